package ledger

import (
	"time"

	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/erp/rentledger/internal/domain/lease"
	"github.com/erp/rentledger/internal/domain/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GenerateScheduleInput asks for a lease's billing schedule.
// ProratedAmount wins over AutoProrate when both are set.
type GenerateScheduleInput struct {
	LeaseID        uuid.UUID
	ProratedAmount *decimal.Decimal
	AutoProrate    bool
}

// ScheduleResult is a generated schedule with the billings it created
type ScheduleResult struct {
	Lease     *lease.Lease
	Schedule  *lease.Schedule
	Billings  []*billing.Billing
	Schedules []lease.PaymentSchedule
}

// AllocationInput targets one billing. Amount is nil when the service should
// allocate oldest-due-first.
type AllocationInput struct {
	BillingID uuid.UUID
	Amount    *decimal.Decimal
}

// ApplyPaymentInput is a payment submission
type ApplyPaymentInput struct {
	Details        payment.Details
	Allocations    []AllocationInput
	IdempotencyKey string
}

// PaymentResult is an applied payment plus the billings it touched
type PaymentResult struct {
	Payment   *payment.Payment
	Billings  []*billing.Billing
	Penalties []*billing.Billing
}

// PenaltyQuote is the penalty a billing would carry as of a date
type PenaltyQuote struct {
	BillingID uuid.UUID
	AsOf      time.Time
	DaysLate  int
	Persisted decimal.Decimal
	Computed  decimal.Decimal
	Config    *billing.PenaltyConfig
}

// UtilityBillingInput asks for the utility charges of one meter and period
type UtilityBillingInput struct {
	MeterID     uuid.UUID
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// UtilityBillingResult lists the billings created for each lease
type UtilityBillingResult struct {
	MeterID     uuid.UUID
	Consumption decimal.Decimal
	Cost        decimal.Decimal
	Billings    []*billing.Billing
}

// ReceiptUpload is a receipt file attached to a payment
type ReceiptUpload struct {
	PaymentID   uuid.UUID
	Filename    string
	ContentType string
	Size        int64
}

// StatusRefresh reports how many billings of a lease changed status
type StatusRefresh struct {
	LeaseID uuid.UUID
	Changed int
}
