package lease

import (
	"time"

	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScheduleType distinguishes the one-off prorated charge from monthly rent
type ScheduleType string

const (
	ScheduleTypeRent     ScheduleType = "RENT"
	ScheduleTypeProrated ScheduleType = "PRORATED"
)

// ScheduleInput is everything the generator needs. ProratedAmount is optional.
type ScheduleInput struct {
	LeaseID        uuid.UUID
	StartDate      time.Time
	EndDate        time.Time
	MonthlyRent    decimal.Decimal
	ProratedAmount *decimal.Decimal
}

// ScheduleEntry is one expected charge
type ScheduleEntry struct {
	DueDate time.Time
	Amount  decimal.Decimal
	Type    ScheduleType
}

// Schedule is the ordered set of charges for a lease term
type Schedule struct {
	LeaseID uuid.UUID
	Entries []ScheduleEntry
	Total   decimal.Decimal
}

// GenerateSchedule expands a lease term into dated charges.
// A proration, when given, is due on the start date and monthly rent starts on the
// 1st of the following month. Without one, rent starts on the 1st of the start month.
// Rent is emitted on every 1st of the month up to and including the end date.
// The output depends only on the input.
func GenerateSchedule(in ScheduleInput) (*Schedule, error) {
	if err := validateTerm(in.StartDate, in.EndDate, in.MonthlyRent); err != nil {
		return nil, err
	}
	if in.ProratedAmount != nil && in.ProratedAmount.IsNegative() {
		return nil, shared.NewValidationError("INVALID_PRORATION", "prorated amount cannot be negative")
	}

	start := shared.DateOf(in.StartDate)
	end := shared.DateOf(in.EndDate)
	s := &Schedule{LeaseID: in.LeaseID, Total: decimal.Zero}

	cursor := firstOfMonth(start)
	if in.ProratedAmount != nil {
		s.add(ScheduleEntry{DueDate: start, Amount: *in.ProratedAmount, Type: ScheduleTypeProrated})
		cursor = cursor.AddDate(0, 1, 0)
	}

	for !cursor.After(end) {
		s.add(ScheduleEntry{DueDate: cursor, Amount: in.MonthlyRent, Type: ScheduleTypeRent})
		cursor = cursor.AddDate(0, 1, 0)
	}
	return s, nil
}

func (s *Schedule) add(e ScheduleEntry) {
	s.Entries = append(s.Entries, e)
	s.Total = s.Total.Add(e.Amount)
}

// ProratedAmount charges the daily rate for the days from start to month end inclusive
func ProratedAmount(monthlyRent decimal.Decimal, start time.Time) decimal.Decimal {
	start = shared.DateOf(start)
	daysInMonth := firstOfMonth(start).AddDate(0, 1, -1).Day()
	remaining := daysInMonth - start.Day() + 1
	return shared.Round2(monthlyRent.
		Mul(decimal.NewFromInt(int64(remaining))).
		Div(decimal.NewFromInt(int64(daysInMonth))))
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// PaymentSchedule is the persisted form of a schedule entry (payment_schedules)
type PaymentSchedule struct {
	ID             uuid.UUID
	LeaseID        uuid.UUID
	BillingID      uuid.UUID
	DueDate        time.Time
	ExpectedAmount decimal.Decimal
	Type           ScheduleType
	CreatedAt      time.Time
}

// NewPaymentSchedule links a schedule entry to the billing created for it
func NewPaymentSchedule(leaseID, billingID uuid.UUID, e ScheduleEntry) PaymentSchedule {
	return PaymentSchedule{
		ID:             uuid.New(),
		LeaseID:        leaseID,
		BillingID:      billingID,
		DueDate:        e.DueDate,
		ExpectedAmount: e.Amount,
		Type:           e.Type,
		CreatedAt:      time.Now(),
	}
}
