package lease

import (
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeScheduleGenerated = "LeaseScheduleGenerated"
	AggregateTypeLease         = "Lease"
)

// ScheduleGeneratedEvent is raised when a lease schedule is (re)generated
type ScheduleGeneratedEvent struct {
	shared.BaseDomainEvent
	LeaseID      uuid.UUID       `json:"lease_id"`
	BillingCount int             `json:"billing_count"`
	Total        decimal.Decimal `json:"total"`
}

// EventType returns the event type name
func (e *ScheduleGeneratedEvent) EventType() string {
	return EventTypeScheduleGenerated
}

// NewScheduleGeneratedEvent creates a new ScheduleGeneratedEvent
func NewScheduleGeneratedEvent(l *Lease, s *Schedule) *ScheduleGeneratedEvent {
	return &ScheduleGeneratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeScheduleGenerated, AggregateTypeLease, l.ID, l.TenantID),
		LeaseID:         l.ID,
		BillingCount:    len(s.Entries),
		Total:           s.Total,
	}
}
