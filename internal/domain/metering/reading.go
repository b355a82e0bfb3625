package metering

import (
	"fmt"
	"time"

	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReviewStatus tracks whether a submitted reading has been checked by staff
type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "PENDING_REVIEW"
	ReviewConfirmed ReviewStatus = "CONFIRMED"
)

// Reading is one meter value on a date
type Reading struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	MeterID         uuid.UUID
	Value           decimal.Decimal
	ReadingDate     time.Time
	PreviousReading decimal.Decimal
	Consumption     decimal.Decimal
	ReviewStatus    ReviewStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func newReading(m *Meter, value decimal.Decimal, date time.Time, previous decimal.Decimal) *Reading {
	now := time.Now()
	return &Reading{
		ID:              uuid.New(),
		TenantID:        m.TenantID,
		MeterID:         m.ID,
		Value:           value,
		ReadingDate:     shared.DateOf(date),
		PreviousReading: previous,
		Consumption:     value.Sub(previous),
		ReviewStatus:    ReviewPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Confirm marks a pending reading as reviewed
func (r *Reading) Confirm() error {
	if r.ReviewStatus == ReviewConfirmed {
		return shared.NewStateError("READING_CONFIRMED", fmt.Sprintf("reading %s is already confirmed", r.ID))
	}
	r.ReviewStatus = ReviewConfirmed
	r.UpdatedAt = time.Now()
	return nil
}

// PeriodConsumption returns the last reading within [from, to] minus the
// latest reading before from (or the meter's initial reading).
func PeriodConsumption(m *Meter, readings []Reading, from, to time.Time) (decimal.Decimal, error) {
	from, to = shared.DateOf(from), shared.DateOf(to)
	if to.Before(from) {
		return decimal.Zero, shared.NewValidationError("INVALID_PERIOD", "period end is before period start")
	}

	baseline := m.InitialReading
	var last *Reading
	for i := range readings {
		r := &readings[i]
		switch {
		case r.ReadingDate.Before(from):
			baseline = decimal.Max(baseline, r.Value)
		case !r.ReadingDate.After(to):
			if last == nil || r.ReadingDate.After(last.ReadingDate) {
				last = r
			}
		}
	}
	if last == nil {
		return decimal.Zero, shared.NewValidationError("NO_READINGS",
			fmt.Sprintf("meter %s has no readings between %s and %s", m.ID, from.Format(time.DateOnly), to.Format(time.DateOnly)))
	}
	return last.Value.Sub(baseline), nil
}
