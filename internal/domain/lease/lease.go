package lease

import (
	"fmt"
	"time"

	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle of a lease
type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusInactive   Status = "INACTIVE"
	StatusExpired    Status = "EXPIRED"
	StatusTerminated Status = "TERMINATED"
)

// IsValid checks if the status is a valid lease status
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusExpired, StatusTerminated:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// Lease is an agreement for one rental unit over a date range.
// Balance is the sum of expected billing amounts from the last generated schedule.
type Lease struct {
	shared.TenantAggregateRoot
	shared.SoftDeletable
	RentalUnitID uuid.UUID
	Name         string
	StartDate    time.Time
	EndDate      time.Time
	RentAmount   decimal.Decimal
	TermsMonth   int
	Balance      decimal.Decimal
	Status       Status
}

// NewLease creates an ACTIVE lease after checking the term and rent
func NewLease(tenantID, rentalUnitID uuid.UUID, name string, start, end time.Time, rent decimal.Decimal) (*Lease, error) {
	if rentalUnitID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_RENTAL_UNIT", "rental unit is required")
	}
	if err := validateTerm(start, end, rent); err != nil {
		return nil, err
	}

	l := &Lease{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		RentalUnitID:        rentalUnitID,
		Name:                name,
		StartDate:           shared.DateOf(start),
		EndDate:             shared.DateOf(end),
		RentAmount:          rent,
		TermsMonth:          monthsBetween(start, end),
		Balance:             decimal.Zero,
		Status:              StatusActive,
	}
	return l, nil
}

func validateTerm(start, end time.Time, rent decimal.Decimal) error {
	if shared.DateOf(end).Before(shared.DateOf(start)) {
		return shared.NewValidationError("INVALID_TERM",
			fmt.Sprintf("end date %s is before start date %s", end.Format(time.DateOnly), start.Format(time.DateOnly)))
	}
	if rent.IsNegative() {
		return shared.NewValidationError("INVALID_RENT", "monthly rent cannot be negative")
	}
	return nil
}

// monthsBetween counts the calendar months touched by the term
func monthsBetween(start, end time.Time) int {
	return (end.Year()-start.Year())*12 + int(end.Month()-start.Month()) + 1
}

// IsActive reports whether the lease accepts new billings
func (l *Lease) IsActive() bool {
	return l.Status == StatusActive && !l.IsDeleted()
}

// Overlaps reports whether the lease term intersects [from, to]
func (l *Lease) Overlaps(from, to time.Time) bool {
	return !l.StartDate.After(shared.DateOf(to)) && !l.EndDate.Before(shared.DateOf(from))
}

// ApplySchedule records the total of a freshly generated schedule as the lease balance
func (l *Lease) ApplySchedule(s *Schedule) error {
	if l.IsDeleted() {
		return shared.NewStateError("LEASE_DELETED", "cannot generate a schedule for a deleted lease")
	}
	if s.LeaseID != l.ID {
		return shared.NewValidationError("SCHEDULE_MISMATCH", "schedule belongs to another lease")
	}
	l.Balance = s.Total
	l.IncrementVersion()
	l.AddDomainEvent(NewScheduleGeneratedEvent(l, s))
	return nil
}

// Delete tags the lease as deleted. Billings are handled by the caller.
func (l *Lease) Delete(at time.Time) error {
	if l.IsDeleted() {
		return shared.NewStateError("LEASE_DELETED", "lease is already deleted")
	}
	l.MarkDeleted(at)
	l.Status = StatusTerminated
	l.IncrementVersion()
	return nil
}
