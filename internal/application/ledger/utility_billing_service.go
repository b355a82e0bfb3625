package ledger

import (
	"context"
	"fmt"

	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/erp/rentledger/internal/domain/metering"
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/erp/rentledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UtilityBillingService bills metered consumption to the leases of a rental unit
type UtilityBillingService struct {
	deps Deps
}

// NewUtilityBillingService creates a UtilityBillingService
func NewUtilityBillingService(deps Deps) *UtilityBillingService {
	return &UtilityBillingService{deps: deps.withDefaults()}
}

// CreateUtilityBillings charges a meter's consumption over a period to the
// active leases on its rental unit. The cost is split evenly; the last lease
// absorbs the rounding remainder so the shares always add up to the cost.
func (s *UtilityBillingService) CreateUtilityBillings(ctx context.Context, tenantID uuid.UUID, in UtilityBillingInput) (*UtilityBillingResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "utility", "bill")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrMeterID, in.MeterID.String(),
	)

	now := s.deps.Now()
	var result *UtilityBillingResult
	err := s.deps.Scope.Execute(ctx, func(repos TransactionalRepositories) error {
		m, err := repos.MeterRepo().FindByID(ctx, tenantID, in.MeterID)
		if err != nil {
			return err
		}
		if m.Location.Type != metering.LocationRentalUnit || m.Location.RentalUnitID == nil {
			return shared.NewValidationError("METER_NOT_ON_UNIT", "utility billing needs a meter placed on a rental unit")
		}

		readings, err := repos.ReadingRepo().FindByMeters(ctx, tenantID, []uuid.UUID{m.ID})
		if err != nil {
			return err
		}
		consumption, err := metering.PeriodConsumption(m, readings[m.ID], in.PeriodStart, in.PeriodEnd)
		if err != nil {
			return err
		}
		if !consumption.IsPositive() {
			return shared.NewValidationError("NO_CONSUMPTION", "meter shows no consumption for the period")
		}

		leases, err := repos.LeaseRepo().FindActiveForUnit(ctx, tenantID, *m.Location.RentalUnitID, in.PeriodStart, in.PeriodEnd)
		if err != nil {
			return err
		}
		if len(leases) == 0 {
			return shared.NewConflictError("NO_ACTIVE_LEASES",
				fmt.Sprintf("rental unit %s has no active lease in the period", *m.Location.RentalUnitID))
		}

		cost := shared.Round2(consumption.Mul(m.UnitRate))
		due := shared.DateOf(in.PeriodEnd).AddDate(0, 0, s.deps.Settings.UtilityDueDays)
		notes := fmt.Sprintf("%s %s to %s: %s units",
			m.UtilityType, in.PeriodStart.Format("2006-01-02"), in.PeriodEnd.Format("2006-01-02"), consumption.String())

		shares := SplitEvenly(cost, len(leases))
		billings := make([]*billing.Billing, len(leases))
		for i := range leases {
			b, err := billing.NewBilling(tenantID, leases[i].ID, billing.TypeUtility, shares[i], due, now, notes)
			if err != nil {
				return err
			}
			billings[i] = b
		}
		if err := repos.BillingRepo().Create(ctx, billings...); err != nil {
			return err
		}

		result = &UtilityBillingResult{MeterID: m.ID, Consumption: consumption, Cost: cost, Billings: billings}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to create utility billings for meter %s: %w", in.MeterID, err)
	}

	aggs := make([]aggregate, len(result.Billings))
	for i, b := range result.Billings {
		aggs[i] = b
	}
	s.deps.publish(ctx, aggs...)
	s.deps.Metrics.BillingsGenerated(ctx, tenantID, string(billing.TypeUtility), len(result.Billings))
	s.deps.Logger.Info("Utility billings created",
		zap.String("meter_id", in.MeterID.String()),
		zap.String("cost", result.Cost.StringFixed(2)),
		zap.Int("leases", len(result.Billings)))
	return result, nil
}

// SplitEvenly divides total into n shares rounded to cents. The last share
// takes whatever remainder the rounding left.
func SplitEvenly(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	shares := make([]decimal.Decimal, n)
	each := shared.Round2(total.Div(decimal.NewFromInt(int64(n))))
	allocated := decimal.Zero
	for i := 0; i < n-1; i++ {
		shares[i] = each
		allocated = allocated.Add(each)
	}
	shares[n-1] = total.Sub(allocated)
	return shares
}
