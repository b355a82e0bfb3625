package event

import (
	"context"
	"encoding/json"

	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/erp/rentledger/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuditHandler writes every ledger event to the log as a structured audit
// record, payload included
type AuditHandler struct {
	logger *zap.Logger
}

func NewAuditHandler(log *zap.Logger) *AuditHandler {
	return &AuditHandler{logger: log.Named("audit")}
}

func (h *AuditHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	logger.Enrich(ctx, h.logger).Info("Ledger event",
		zap.String("event_id", ev.EventID().String()),
		zap.String("event_type", ev.EventType()),
		zap.String("aggregate_type", ev.AggregateType()),
		zap.String("aggregate_id", ev.AggregateID().String()),
		zap.String("event_tenant_id", ev.TenantID().String()),
		zap.Time("occurred_at", ev.OccurredAt()),
		zap.ByteString("payload", payload))
	return nil
}

// EventTypes is empty so the handler receives every event
func (h *AuditHandler) EventTypes() []string { return nil }
