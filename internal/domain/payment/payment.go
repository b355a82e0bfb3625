package payment

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Method is how a payment was made
type Method string

const (
	MethodCash            Method = "CASH"
	MethodGCash           Method = "GCASH"
	MethodBankTransfer    Method = "BANK_TRANSFER"
	MethodSecurityDeposit Method = "SECURITY_DEPOSIT"
	MethodOther           Method = "OTHER"
)

// IsValid checks if the method is a valid payment method
func (m Method) IsValid() bool {
	switch m {
	case MethodCash, MethodGCash, MethodBankTransfer, MethodSecurityDeposit, MethodOther:
		return true
	}
	return false
}

func (m Method) String() string {
	return string(m)
}

// CheckBilling enforces method-specific rules for a target billing.
// A security deposit can only settle security deposit billings.
func (m Method) CheckBilling(b *billing.Billing) error {
	if m == MethodSecurityDeposit && b.Type != billing.TypeSecurityDeposit {
		return shared.NewValidationError("METHOD_NOT_ALLOWED",
			fmt.Sprintf("security deposit payments cannot settle %s billing %s", b.Type, b.ID))
	}
	return nil
}

// Allocation is the portion of a payment applied to one billing
type Allocation struct {
	ID        uuid.UUID
	PaymentID uuid.UUID
	BillingID uuid.UUID
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// Payment is money received against one or more billings. Payments are never
// removed; a reversal tags RevertedAt and the allocations stop counting.
type Payment struct {
	shared.TenantAggregateRoot
	Amount          decimal.Decimal
	Method          Method
	PaidBy          string
	PaidAt          time.Time
	ReferenceNumber string
	Notes           string
	ReceiptURL      string
	RevertedAt      *time.Time
	RevertReason    string
	Allocations     []Allocation
}

// Details is the caller-supplied part of a new payment
type Details struct {
	Amount          decimal.Decimal
	Method          Method
	PaidBy          string
	PaidAt          time.Time
	ReferenceNumber string
	Notes           string
	CreatedBy       *uuid.UUID
}

// NewPayment creates a payment with its allocations. The allocations must
// target distinct billings and sum exactly to the payment amount.
func NewPayment(tenantID uuid.UUID, d Details, lines []Line) (*Payment, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, shared.NewValidationError("NO_ALLOCATIONS", "payment must target at least one billing")
	}

	p := &Payment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Amount:              d.Amount,
		Method:              d.Method,
		PaidBy:              strings.TrimSpace(d.PaidBy),
		PaidAt:              d.PaidAt,
		ReferenceNumber:     d.ReferenceNumber,
		Notes:               d.Notes,
	}
	p.CreatedBy = d.CreatedBy

	seen := make(map[uuid.UUID]struct{}, len(lines))
	sum := decimal.Zero
	for _, l := range lines {
		if _, dup := seen[l.BillingID]; dup {
			return nil, shared.NewValidationError("DUPLICATE_ALLOCATION",
				fmt.Sprintf("billing %s is allocated more than once", l.BillingID))
		}
		seen[l.BillingID] = struct{}{}
		if !l.Amount.IsPositive() {
			return nil, shared.NewValidationError("INVALID_AMOUNT", "allocation amount must be positive")
		}
		sum = sum.Add(l.Amount)
		p.Allocations = append(p.Allocations, Allocation{
			ID:        uuid.New(),
			PaymentID: p.ID,
			BillingID: l.BillingID,
			Amount:    l.Amount,
			CreatedAt: p.CreatedAt,
		})
	}
	if !sum.Equal(p.Amount) {
		return nil, shared.NewValidationError("ALLOCATION_MISMATCH",
			fmt.Sprintf("allocations total %s but payment is %s", sum.StringFixed(2), p.Amount.StringFixed(2)))
	}

	p.AddDomainEvent(NewPaymentReceivedEvent(p))
	return p, nil
}

func (d Details) validate() error {
	if !d.Amount.IsPositive() {
		return shared.NewValidationError("INVALID_AMOUNT", "payment amount must be positive")
	}
	if !d.Amount.Equal(shared.Round2(d.Amount)) {
		return shared.NewValidationError("INVALID_AMOUNT", "payment amount has more than 2 decimal places")
	}
	if !d.Method.IsValid() {
		return shared.NewValidationError("INVALID_METHOD", fmt.Sprintf("unknown payment method %q", d.Method))
	}
	if strings.TrimSpace(d.PaidBy) == "" {
		return shared.NewValidationError("INVALID_PAYER", "paid_by is required")
	}
	if d.PaidAt.IsZero() {
		return shared.NewValidationError("INVALID_PAID_AT", "paid_at is required")
	}
	return nil
}

// IsReverted reports whether the payment carries a reversal tag
func (p *Payment) IsReverted() bool {
	return p.RevertedAt != nil
}

// Revert tags the payment reverted. Billing paid amounts are left untouched;
// aggregations exclude reverted allocations.
func (p *Payment) Revert(reason string, at time.Time) error {
	if p.IsReverted() {
		return shared.NewStateError("PAYMENT_REVERTED", fmt.Sprintf("payment %s is already reverted", p.ID))
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewValidationError("INVALID_REASON", "revert reason is required")
	}
	p.RevertedAt = &at
	p.RevertReason = reason
	p.IncrementVersion()
	p.AddDomainEvent(NewPaymentRevertedEvent(p))
	return nil
}

// AttachReceipt records where the receipt file was stored
func (p *Payment) AttachReceipt(url string) error {
	if p.IsReverted() {
		return shared.NewStateError("PAYMENT_REVERTED", "cannot attach a receipt to a reverted payment")
	}
	p.ReceiptURL = url
	p.IncrementVersion()
	return nil
}

// AllocatedTotal sums the allocations
func (p *Payment) AllocatedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.Allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// BillingIDs returns the targeted billings in allocation order
func (p *Payment) BillingIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(p.Allocations))
	for i, a := range p.Allocations {
		ids[i] = a.BillingID
	}
	return ids
}
