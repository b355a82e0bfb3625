package payment

import (
	"time"

	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	AggregateTypePayment = "Payment"

	EventTypePaymentReceived = "PaymentReceived"
	EventTypePaymentReverted = "PaymentReverted"
)

// PaymentReceivedEvent is raised when a payment and its allocations are recorded
type PaymentReceivedEvent struct {
	shared.BaseDomainEvent
	PaymentID  uuid.UUID       `json:"payment_id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     Method          `json:"method"`
	BillingIDs []uuid.UUID     `json:"billing_ids"`
}

func (e *PaymentReceivedEvent) EventType() string { return EventTypePaymentReceived }

// NewPaymentReceivedEvent creates a new PaymentReceivedEvent
func NewPaymentReceivedEvent(p *Payment) *PaymentReceivedEvent {
	return &PaymentReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentReceived, AggregateTypePayment, p.ID, p.TenantID),
		PaymentID:       p.ID,
		Amount:          p.Amount,
		Method:          p.Method,
		BillingIDs:      p.BillingIDs(),
	}
}

// PaymentRevertedEvent is raised when a payment is tagged reverted
type PaymentRevertedEvent struct {
	shared.BaseDomainEvent
	PaymentID  uuid.UUID       `json:"payment_id"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	RevertedAt time.Time       `json:"reverted_at"`
}

func (e *PaymentRevertedEvent) EventType() string { return EventTypePaymentReverted }

// NewPaymentRevertedEvent creates a new PaymentRevertedEvent
func NewPaymentRevertedEvent(p *Payment) *PaymentRevertedEvent {
	return &PaymentRevertedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentReverted, AggregateTypePayment, p.ID, p.TenantID),
		PaymentID:       p.ID,
		Amount:          p.Amount,
		Reason:          p.RevertReason,
		RevertedAt:      *p.RevertedAt,
	}
}
