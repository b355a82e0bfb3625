package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/erp/rentledger/internal/domain/report"
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/erp/rentledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BillingService reads and adjusts billings
type BillingService struct {
	deps Deps
}

// NewBillingService creates a BillingService
func NewBillingService(deps Deps) *BillingService {
	return &BillingService{deps: deps.withDefaults()}
}

// ListLeaseBillings returns the lease's billings annotated with the penalty
// each would carry as of asOf. Nothing is persisted.
func (s *BillingService) ListLeaseBillings(ctx context.Context, tenantID, leaseID uuid.UUID, filter billing.Filter, asOf time.Time) ([]billing.View, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "list_lease")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrLeaseID, leaseID.String())

	if _, err := s.deps.Repos.Leases.FindByID(ctx, tenantID, leaseID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	billings, err := s.deps.Repos.Billings.FindByLease(ctx, tenantID, leaseID, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	configs := make(map[billing.Type]*billing.PenaltyConfig)
	views := make([]billing.View, len(billings))
	for i, b := range billings {
		cfg, ok := configs[b.Type]
		if !ok {
			cfg = s.deps.penaltyConfig(ctx, tenantID, b.Type)
			configs[b.Type] = cfg
		}
		views[i] = b.ViewAsOf(cfg, asOf)
	}
	return views, nil
}

// ComputePenalty quotes the penalty of a billing as of asOf
func (s *BillingService) ComputePenalty(ctx context.Context, tenantID, billingID uuid.UUID, asOf time.Time) (*PenaltyQuote, error) {
	b, err := s.deps.Repos.Billings.FindByID(ctx, tenantID, billingID)
	if err != nil {
		return nil, err
	}
	cfg := s.deps.penaltyConfig(ctx, tenantID, b.Type)
	return &PenaltyQuote{
		BillingID: b.ID,
		AsOf:      asOf,
		DaysLate:  max(shared.DaysBetween(b.DueDate, asOf), 0),
		Persisted: b.PenaltyAmount,
		Computed:  b.ComputePenalty(cfg, asOf),
		Config:    cfg,
	}, nil
}

// DeleteBilling soft-deletes a billing that has no payments
func (s *BillingService) DeleteBilling(ctx context.Context, tenantID, billingID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "delete")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrBillingID, billingID.String())

	b, err := s.mutate(ctx, tenantID, billingID, func(b *billing.Billing) error {
		return b.Delete(s.deps.Now())
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to delete billing %s: %w", billingID, err)
	}
	s.deps.Logger.Info("Billing deleted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("billing_id", b.ID.String()))
	return nil
}

// SetPenalty overrides the persisted penalty of a billing
func (s *BillingService) SetPenalty(ctx context.Context, tenantID, billingID uuid.UUID, penalty decimal.Decimal) (*billing.Billing, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "set_penalty")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrBillingID, billingID.String(),
		telemetry.SpanAttrAmount, penalty.StringFixed(2),
	)

	b, err := s.mutate(ctx, tenantID, billingID, func(b *billing.Billing) error {
		return b.SetPenalty(penalty, s.deps.Now())
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to set penalty on billing %s: %w", billingID, err)
	}
	return b, nil
}

// mutate locks one billing, applies fn and saves it
func (s *BillingService) mutate(ctx context.Context, tenantID, billingID uuid.UUID, fn func(*billing.Billing) error) (*billing.Billing, error) {
	var b *billing.Billing
	err := s.deps.Scope.Execute(ctx, func(repos TransactionalRepositories) error {
		locked, err := repos.BillingRepo().FindByIDsForUpdate(ctx, tenantID, []uuid.UUID{billingID})
		if err != nil {
			return err
		}
		b = locked[0]
		if err := fn(b); err != nil {
			return err
		}
		return repos.BillingRepo().SaveWithLock(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	s.deps.publish(ctx, b)
	return b, nil
}

// LeaseBalanceStatus summarizes what a lease owes as of asOf
func (s *BillingService) LeaseBalanceStatus(ctx context.Context, tenantID, leaseID uuid.UUID, asOf time.Time) (*report.LeaseBalanceStatus, error) {
	if _, err := s.deps.Repos.Leases.FindByID(ctx, tenantID, leaseID); err != nil {
		return nil, err
	}
	billings, err := s.deps.Repos.Billings.FindByLease(ctx, tenantID, leaseID, billing.Filter{})
	if err != nil {
		return nil, err
	}
	status := report.BalanceStatusOf(billings, asOf)
	return &status, nil
}

// RecomputeLeaseStatuses re-derives billing statuses lease by lease. Each
// lease runs in its own transaction; one failing lease does not stop the rest.
func (s *BillingService) RecomputeLeaseStatuses(ctx context.Context, tenantID uuid.UUID, leaseIDs []uuid.UUID) shared.BatchOutcome[StatusRefresh] {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "recompute_statuses")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrCount, len(leaseIDs))

	var outcome shared.BatchOutcome[StatusRefresh]
	now := s.deps.Now()
	for i, leaseID := range leaseIDs {
		changed, err := s.refreshLease(ctx, tenantID, leaseID, now)
		outcome.Add(i, StatusRefresh{LeaseID: leaseID, Changed: changed}, err)
	}
	if outcome.HasFailures() {
		err := outcome.Err()
		telemetry.RecordError(span, err)
		s.deps.Logger.Warn("Status recompute finished with failures",
			zap.Int("succeeded", outcome.Succeeded),
			zap.Int("failed", outcome.Failed),
			zap.Error(err))
	}
	return outcome
}

func (s *BillingService) refreshLease(ctx context.Context, tenantID, leaseID uuid.UUID, now time.Time) (int, error) {
	changed := 0
	err := s.deps.Scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.LeaseRepo().FindByIDForUpdate(ctx, tenantID, leaseID); err != nil {
			return err
		}
		billings, err := repos.BillingRepo().FindByLease(ctx, tenantID, leaseID, billing.Filter{})
		if err != nil {
			return err
		}
		for _, b := range billings {
			if !b.Refresh(now) {
				continue
			}
			if err := repos.BillingRepo().SaveWithLock(ctx, b); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}
