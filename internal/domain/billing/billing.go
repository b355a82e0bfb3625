package billing

import (
	"fmt"
	"time"

	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type is the kind of obligation a billing represents
type Type string

const (
	TypeRent            Type = "RENT"
	TypeUtility         Type = "UTILITY"
	TypeSecurityDeposit Type = "SECURITY_DEPOSIT"
	TypePenalty         Type = "PENALTY"
)

// IsValid checks if the type is a valid billing type
func (t Type) IsValid() bool {
	switch t {
	case TypeRent, TypeUtility, TypeSecurityDeposit, TypePenalty:
		return true
	}
	return false
}

func (t Type) String() string {
	return string(t)
}

// Billing is a single payable obligation tied to a lease
type Billing struct {
	shared.TenantAggregateRoot
	shared.SoftDeletable
	LeaseID       uuid.UUID
	Type          Type
	Amount        decimal.Decimal
	PaidAmount    decimal.Decimal
	PenaltyAmount decimal.Decimal
	Balance       decimal.Decimal
	Status        Status
	DueDate       time.Time
	BillingDate   time.Time
	Notes         string
	// SourceBillingID points a PENALTY billing at the late billing it penalizes
	SourceBillingID *uuid.UUID
}

// NewBilling creates an unpaid billing with balance equal to amount
func NewBilling(tenantID, leaseID uuid.UUID, typ Type, amount decimal.Decimal, due, billingDate time.Time, notes string) (*Billing, error) {
	if leaseID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_LEASE", "lease is required")
	}
	if !typ.IsValid() {
		return nil, shared.NewValidationError("INVALID_BILLING_TYPE", fmt.Sprintf("unknown billing type %q", typ))
	}
	if amount.IsNegative() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "billing amount cannot be negative")
	}

	b := &Billing{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		LeaseID:             leaseID,
		Type:                typ,
		Amount:              shared.Round2(amount),
		PaidAmount:          decimal.Zero,
		PenaltyAmount:       decimal.Zero,
		DueDate:             shared.DateOf(due),
		BillingDate:         shared.DateOf(billingDate),
		Notes:               notes,
	}
	// New billings start PENDING even when due in the past; OVERDUE comes from Refresh.
	b.recompute(b.DueDate)
	b.AddDomainEvent(NewBillingCreatedEvent(b))
	return b, nil
}

// NewPenaltyBilling materializes a late-payment penalty as its own billing on
// the same lease, due dueInDays after now.
func NewPenaltyBilling(source *Billing, penalty decimal.Decimal, daysLate int, now time.Time, dueInDays int) (*Billing, error) {
	if !penalty.IsPositive() {
		return nil, shared.NewValidationError("INVALID_PENALTY", "penalty billing requires a positive amount")
	}
	today := shared.DateOf(now)
	notes := fmt.Sprintf("penalty for billing %s (%d days late)", source.ID, daysLate)
	b, err := NewBilling(source.TenantID, source.LeaseID, TypePenalty, penalty, today.AddDate(0, 0, dueInDays), today, notes)
	if err != nil {
		return nil, err
	}
	id := source.ID
	b.SourceBillingID = &id
	return b, nil
}

// Total is the amount owed including penalty
func (b *Billing) Total() decimal.Decimal {
	return b.Amount.Add(b.PenaltyAmount)
}

// IsOverdue reports whether money is still owed after the due date
func (b *Billing) IsOverdue(now time.Time) bool {
	return b.Balance.IsPositive() && now.After(b.DueDate)
}

// ApplyAllocation adds a payment allocation to the paid amount.
// An allocation larger than the current balance is rejected, never clamped.
func (b *Billing) ApplyAllocation(amount decimal.Decimal, now time.Time) error {
	if b.IsDeleted() {
		return shared.NewStateError("BILLING_DELETED", fmt.Sprintf("billing %s is deleted", b.ID))
	}
	if b.Status == StatusPaid {
		return shared.NewStateError("BILLING_PAID", fmt.Sprintf("billing %s is already paid", b.ID))
	}
	if !amount.IsPositive() {
		return shared.NewValidationError("INVALID_AMOUNT", "allocation amount must be positive")
	}
	if amount.GreaterThan(b.Balance) {
		return shared.NewConflictError("OVER_ALLOCATION",
			fmt.Sprintf("allocation %s exceeds balance %s of billing %s", amount.StringFixed(2), b.Balance.StringFixed(2), b.ID))
	}

	b.PaidAmount = b.PaidAmount.Add(amount)
	b.recompute(now)
	b.IncrementVersion()
	if b.Status == StatusPaid {
		b.AddDomainEvent(NewBillingPaidEvent(b))
	}
	return nil
}

// SetPenalty replaces the persisted penalty amount. The penalty may not drop
// below what has already been paid beyond the base amount.
func (b *Billing) SetPenalty(penalty decimal.Decimal, now time.Time) error {
	if b.IsDeleted() {
		return shared.NewStateError("BILLING_DELETED", fmt.Sprintf("billing %s is deleted", b.ID))
	}
	if penalty.IsNegative() {
		return shared.NewValidationError("INVALID_PENALTY", "penalty amount cannot be negative")
	}
	penalty = shared.Round2(penalty)
	if b.Amount.Add(penalty).LessThan(b.PaidAmount) {
		return shared.NewConflictError("PENALTY_BELOW_PAID",
			fmt.Sprintf("penalty %s would leave billing %s overpaid", penalty.StringFixed(2), b.ID))
	}

	previous := b.PenaltyAmount
	b.PenaltyAmount = penalty
	b.recompute(now)
	b.IncrementVersion()
	b.AddDomainEvent(NewPenaltyAdjustedEvent(b, previous))
	return nil
}

// Refresh re-derives status as of now (an unpaid billing turns OVERDUE once
// its due date passes). Returns true when the status changed.
func (b *Billing) Refresh(now time.Time) bool {
	before := b.Status
	b.recompute(now)
	if b.Status == before {
		return false
	}
	b.IncrementVersion()
	return true
}

// Delete tags the billing deleted. Billings with payments cannot be deleted.
func (b *Billing) Delete(now time.Time) error {
	if b.IsDeleted() {
		return shared.NewStateError("BILLING_DELETED", fmt.Sprintf("billing %s is already deleted", b.ID))
	}
	if b.PaidAmount.IsPositive() {
		return shared.NewConflictError("BILLING_HAS_PAYMENTS", "billing has payments")
	}
	b.MarkDeleted(now)
	b.IncrementVersion()
	b.AddDomainEvent(NewBillingDeletedEvent(b))
	return nil
}

func (b *Billing) recompute(now time.Time) {
	b.Balance = shared.Round2(b.Amount.Add(b.PenaltyAmount).Sub(b.PaidAmount))
	b.Status = DeriveStatus(b.Amount, b.PaidAmount, b.PenaltyAmount, b.DueDate, now)
}

// View is a read-time projection of a billing with the penalty it would carry
// as of a given instant. Nothing in a View is persisted.
type View struct {
	*Billing
	AsOf            time.Time
	DaysLate        int
	ComputedPenalty decimal.Decimal
	DisplayPenalty  decimal.Decimal
	DisplayBalance  decimal.Decimal
	DisplayStatus   Status
}

// ViewAsOf annotates the billing with its computed penalty. A nil config means
// no penalty applies.
func (b *Billing) ViewAsOf(cfg *PenaltyConfig, asOf time.Time) View {
	v := View{
		Billing:         b,
		AsOf:            asOf,
		DaysLate:        max(shared.DaysBetween(b.DueDate, asOf), 0),
		ComputedPenalty: decimal.Zero,
	}
	if b.Balance.IsPositive() && b.PaidAmount.LessThan(b.Amount) {
		v.ComputedPenalty = b.ComputePenalty(cfg, asOf)
	}
	v.DisplayPenalty = decimal.Max(b.PenaltyAmount, v.ComputedPenalty)
	v.DisplayBalance = shared.Round2(b.Amount.Add(v.DisplayPenalty).Sub(b.PaidAmount))
	v.DisplayStatus = DeriveStatus(b.Amount, b.PaidAmount, v.DisplayPenalty, b.DueDate, asOf)
	return v
}

// ComputePenalty applies the penalty calculator to this billing
func (b *Billing) ComputePenalty(cfg *PenaltyConfig, asOf time.Time) decimal.Decimal {
	return ComputePenalty(b.Amount, b.DueDate, cfg, asOf)
}
