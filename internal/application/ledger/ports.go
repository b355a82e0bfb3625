package ledger

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PenaltyConfigLookup resolves the penalty configuration for a billing type.
// A nil config with a nil error means no penalty applies.
type PenaltyConfigLookup interface {
	Lookup(ctx context.Context, tenantID uuid.UUID, typ billing.Type) (*billing.PenaltyConfig, error)
}

// RepositoryPenaltyLookup reads penalty configs straight from the repository
type RepositoryPenaltyLookup struct {
	repo billing.PenaltyConfigRepository
}

// NewRepositoryPenaltyLookup creates a lookup backed by repo
func NewRepositoryPenaltyLookup(repo billing.PenaltyConfigRepository) *RepositoryPenaltyLookup {
	return &RepositoryPenaltyLookup{repo: repo}
}

// Lookup returns nil when the tenant has no config for typ
func (l *RepositoryPenaltyLookup) Lookup(ctx context.Context, tenantID uuid.UUID, typ billing.Type) (*billing.PenaltyConfig, error) {
	cfg, err := l.repo.FindByType(ctx, tenantID, typ)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReceiptStorage stores payment receipt files
type ReceiptStorage interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Metrics receives ledger business events for instrumentation
type Metrics interface {
	PaymentApplied(ctx context.Context, tenantID uuid.UUID, method string, amount decimal.Decimal)
	PaymentReverted(ctx context.Context, tenantID uuid.UUID)
	PaymentRejected(ctx context.Context, tenantID uuid.UUID, kind string)
	PenaltyMaterialized(ctx context.Context, tenantID uuid.UUID, amount decimal.Decimal)
	ReadingsSubmitted(ctx context.Context, tenantID uuid.UUID, accepted, rejected int)
	BillingsGenerated(ctx context.Context, tenantID uuid.UUID, billingType string, n int)
}

// NopMetrics discards everything
type NopMetrics struct{}

func (NopMetrics) PaymentApplied(context.Context, uuid.UUID, string, decimal.Decimal) {}
func (NopMetrics) PaymentReverted(context.Context, uuid.UUID)                         {}
func (NopMetrics) PaymentRejected(context.Context, uuid.UUID, string)                 {}
func (NopMetrics) PenaltyMaterialized(context.Context, uuid.UUID, decimal.Decimal)    {}
func (NopMetrics) ReadingsSubmitted(context.Context, uuid.UUID, int, int)             {}
func (NopMetrics) BillingsGenerated(context.Context, uuid.UUID, string, int)          {}

// Settings are the tunable ledger rules
type Settings struct {
	AnomalyThreshold decimal.Decimal
	PenaltyDueDays   int
	UtilityDueDays   int
	IdempotencyTTL   time.Duration
	ReceiptURLTTL    time.Duration
}

// DefaultSettings returns the stock ledger rules
func DefaultSettings() Settings {
	return Settings{
		AnomalyThreshold: decimal.NewFromInt(500),
		PenaltyDueDays:   7,
		UtilityDueDays:   30,
		IdempotencyTTL:   24 * time.Hour,
		ReceiptURLTTL:    15 * time.Minute,
	}
}

// Deps are the collaborators shared by the ledger services. Nil optional
// fields fall back to no-op implementations.
type Deps struct {
	Scope     TransactionScope
	Repos     Repositories
	Penalties PenaltyConfigLookup
	Events    shared.EventPublisher
	Metrics   Metrics
	Logger    *zap.Logger
	Settings  Settings
	Now       func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Metrics == nil {
		d.Metrics = NopMetrics{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Settings == (Settings{}) {
		d.Settings = DefaultSettings()
	}
	return d
}

// penaltyConfig resolves a config for typ. Lookup failures are logged and
// treated as "no penalty" so that a broken config never blocks a payment.
func (d Deps) penaltyConfig(ctx context.Context, tenantID uuid.UUID, typ billing.Type) *billing.PenaltyConfig {
	if d.Penalties == nil {
		return nil
	}
	cfg, err := d.Penalties.Lookup(ctx, tenantID, typ)
	if err != nil {
		d.Logger.Warn("Penalty config lookup failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("billing_type", string(typ)),
			zap.Error(err))
		return nil
	}
	return cfg
}

// aggregate is anything carrying pending domain events
type aggregate interface {
	GetDomainEvents() []shared.DomainEvent
	ClearDomainEvents()
}

// publish sends the pending events of committed aggregates. Publishing
// failures are logged; the ledger change is already durable.
func (d Deps) publish(ctx context.Context, aggs ...aggregate) {
	var events []shared.DomainEvent
	for _, a := range aggs {
		events = append(events, a.GetDomainEvents()...)
		a.ClearDomainEvents()
	}
	if d.Events == nil || len(events) == 0 {
		return
	}
	if err := d.Events.Publish(ctx, events...); err != nil {
		d.Logger.Error("Failed to publish ledger events", zap.Int("events", len(events)), zap.Error(err))
	}
}
