package billing

import (
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	AggregateTypeBilling = "Billing"

	EventTypeBillingCreated  = "BillingCreated"
	EventTypeBillingPaid     = "BillingPaid"
	EventTypeBillingDeleted  = "BillingDeleted"
	EventTypePenaltyAdjusted = "BillingPenaltyAdjusted"
)

// BillingCreatedEvent is raised when a billing is added to the ledger
type BillingCreatedEvent struct {
	shared.BaseDomainEvent
	BillingID uuid.UUID       `json:"billing_id"`
	LeaseID   uuid.UUID       `json:"lease_id"`
	Type      Type            `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
}

func (e *BillingCreatedEvent) EventType() string { return EventTypeBillingCreated }

// NewBillingCreatedEvent creates a new BillingCreatedEvent
func NewBillingCreatedEvent(b *Billing) *BillingCreatedEvent {
	return &BillingCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillingCreated, AggregateTypeBilling, b.ID, b.TenantID),
		BillingID:       b.ID,
		LeaseID:         b.LeaseID,
		Type:            b.Type,
		Amount:          b.Amount,
	}
}

// BillingPaidEvent is raised when allocations cover the full billing total
type BillingPaidEvent struct {
	shared.BaseDomainEvent
	BillingID  uuid.UUID       `json:"billing_id"`
	LeaseID    uuid.UUID       `json:"lease_id"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
}

func (e *BillingPaidEvent) EventType() string { return EventTypeBillingPaid }

// NewBillingPaidEvent creates a new BillingPaidEvent
func NewBillingPaidEvent(b *Billing) *BillingPaidEvent {
	return &BillingPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillingPaid, AggregateTypeBilling, b.ID, b.TenantID),
		BillingID:       b.ID,
		LeaseID:         b.LeaseID,
		PaidAmount:      b.PaidAmount,
	}
}

// BillingDeletedEvent is raised when an unpaid billing is tagged deleted
type BillingDeletedEvent struct {
	shared.BaseDomainEvent
	BillingID uuid.UUID `json:"billing_id"`
	LeaseID   uuid.UUID `json:"lease_id"`
}

func (e *BillingDeletedEvent) EventType() string { return EventTypeBillingDeleted }

// NewBillingDeletedEvent creates a new BillingDeletedEvent
func NewBillingDeletedEvent(b *Billing) *BillingDeletedEvent {
	return &BillingDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillingDeleted, AggregateTypeBilling, b.ID, b.TenantID),
		BillingID:       b.ID,
		LeaseID:         b.LeaseID,
	}
}

// PenaltyAdjustedEvent is raised when the persisted penalty amount changes
type PenaltyAdjustedEvent struct {
	shared.BaseDomainEvent
	BillingID uuid.UUID       `json:"billing_id"`
	Previous  decimal.Decimal `json:"previous"`
	Current   decimal.Decimal `json:"current"`
}

func (e *PenaltyAdjustedEvent) EventType() string { return EventTypePenaltyAdjusted }

// NewPenaltyAdjustedEvent creates a new PenaltyAdjustedEvent
func NewPenaltyAdjustedEvent(b *Billing, previous decimal.Decimal) *PenaltyAdjustedEvent {
	return &PenaltyAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePenaltyAdjusted, AggregateTypeBilling, b.ID, b.TenantID),
		BillingID:       b.ID,
		Previous:        previous,
		Current:         b.PenaltyAmount,
	}
}
