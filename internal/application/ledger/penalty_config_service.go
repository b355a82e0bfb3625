package ledger

import (
	"context"
	"errors"

	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PenaltyConfigInvalidator evicts cached penalty configs after a change
type PenaltyConfigInvalidator interface {
	Invalidate(ctx context.Context, tenantID uuid.UUID, typ billing.Type) error
}

// PenaltyConfigInput is one tenant's penalty rule for a billing type
type PenaltyConfigInput struct {
	BillingType          billing.Type
	GracePeriod          int
	PenaltyPercentage    decimal.Decimal
	CompoundPeriod       int
	MaxPenaltyPercentage *decimal.Decimal
}

// PenaltyConfigService manages per-tenant penalty rules
type PenaltyConfigService struct {
	repo        billing.PenaltyConfigRepository
	invalidator PenaltyConfigInvalidator
	logger      *zap.Logger
	deps        Deps
}

// NewPenaltyConfigService creates the service. invalidator may be nil when
// lookups are not cached.
func NewPenaltyConfigService(deps Deps, repo billing.PenaltyConfigRepository, invalidator PenaltyConfigInvalidator) *PenaltyConfigService {
	deps = deps.withDefaults()
	return &PenaltyConfigService{repo: repo, invalidator: invalidator, logger: deps.Logger, deps: deps}
}

func (s *PenaltyConfigService) ListPenaltyConfigs(ctx context.Context, tenantID uuid.UUID) ([]billing.PenaltyConfig, error) {
	return s.repo.FindAll(ctx, tenantID)
}

// SetPenaltyConfig creates or replaces the tenant's rule for in.BillingType
func (s *PenaltyConfigService) SetPenaltyConfig(ctx context.Context, tenantID uuid.UUID, in PenaltyConfigInput) (*billing.PenaltyConfig, error) {
	cfg, err := billing.NewPenaltyConfig(tenantID, in.BillingType, in.GracePeriod, in.PenaltyPercentage, in.CompoundPeriod, in.MaxPenaltyPercentage)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByType(ctx, tenantID, in.BillingType)
	switch {
	case err == nil:
		cfg.ID = existing.ID
		cfg.CreatedAt = existing.CreatedAt
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}
	cfg.UpdatedAt = s.deps.Now()

	if err := s.repo.Save(ctx, cfg); err != nil {
		return nil, err
	}

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, tenantID, in.BillingType); err != nil {
			s.logger.Warn("Penalty config cache invalidation failed",
				zap.String("tenant_id", tenantID.String()),
				zap.String("billing_type", string(in.BillingType)),
				zap.Error(err))
		}
	}
	return cfg, nil
}
