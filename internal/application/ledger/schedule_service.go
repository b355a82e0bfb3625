package ledger

import (
	"context"
	"fmt"

	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/erp/rentledger/internal/domain/lease"
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/erp/rentledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScheduleService turns lease terms into RENT billings
type ScheduleService struct {
	deps Deps
}

// NewScheduleService creates a ScheduleService
func NewScheduleService(deps Deps) *ScheduleService {
	return &ScheduleService{deps: deps.withDefaults()}
}

// GenerateSchedule (re)builds the billing schedule of a lease. Unpaid RENT
// billings from an earlier schedule are soft-deleted; if any of them already
// received a payment the lease is left untouched and a conflict is returned.
func (s *ScheduleService) GenerateSchedule(ctx context.Context, tenantID uuid.UUID, in GenerateScheduleInput) (*ScheduleResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "schedule", "generate")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrLeaseID, in.LeaseID.String(),
	)

	var (
		result *ScheduleResult
		err    error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("generate_schedule", nil), func(c context.Context) {
		result, err = s.generate(c, tenantID, in)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrCount, len(result.Billings))
	s.deps.Metrics.BillingsGenerated(ctx, tenantID, string(billing.TypeRent), len(result.Billings))
	s.deps.Logger.Info("Lease schedule generated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("lease_id", in.LeaseID.String()),
		zap.Int("billings", len(result.Billings)),
		zap.String("total", result.Schedule.Total.StringFixed(2)))
	return result, nil
}

func (s *ScheduleService) generate(ctx context.Context, tenantID uuid.UUID, in GenerateScheduleInput) (*ScheduleResult, error) {
	now := s.deps.Now()
	var (
		result  *ScheduleResult
		retired []*billing.Billing
	)

	err := s.deps.Scope.Execute(ctx, func(repos TransactionalRepositories) error {
		l, err := repos.LeaseRepo().FindByIDForUpdate(ctx, tenantID, in.LeaseID)
		if err != nil {
			return err
		}

		prorated := in.ProratedAmount
		if prorated == nil && in.AutoProrate && l.StartDate.Day() != 1 {
			p := lease.ProratedAmount(l.RentAmount, l.StartDate)
			prorated = &p
		}

		schedule, err := lease.GenerateSchedule(lease.ScheduleInput{
			LeaseID:        l.ID,
			StartDate:      l.StartDate,
			EndDate:        l.EndDate,
			MonthlyRent:    l.RentAmount,
			ProratedAmount: prorated,
		})
		if err != nil {
			return err
		}

		existing, err := repos.BillingRepo().FindByLease(ctx, tenantID, l.ID, billing.Filter{
			Types: []billing.Type{billing.TypeRent},
		})
		if err != nil {
			return err
		}
		for _, b := range existing {
			if b.PaidAmount.IsPositive() {
				return shared.NewConflictError("SCHEDULE_HAS_PAYMENTS",
					fmt.Sprintf("lease %s already has paid rent billings", l.ID))
			}
		}
		for _, b := range existing {
			if err := b.Delete(now); err != nil {
				return err
			}
			if err := repos.BillingRepo().SaveWithLock(ctx, b); err != nil {
				return err
			}
		}
		retired = existing

		billings := make([]*billing.Billing, 0, len(schedule.Entries))
		rows := make([]lease.PaymentSchedule, 0, len(schedule.Entries))
		for _, e := range schedule.Entries {
			notes := "monthly rent"
			if e.Type == lease.ScheduleTypeProrated {
				notes = "prorated rent"
			}
			b, err := billing.NewBilling(tenantID, l.ID, billing.TypeRent, e.Amount, e.DueDate, now, notes)
			if err != nil {
				return err
			}
			billings = append(billings, b)
			rows = append(rows, lease.NewPaymentSchedule(l.ID, b.ID, e))
		}
		if len(billings) > 0 {
			if err := repos.BillingRepo().Create(ctx, billings...); err != nil {
				return err
			}
		}
		if err := repos.LeaseRepo().ReplaceSchedules(ctx, l.ID, rows); err != nil {
			return err
		}

		if err := l.ApplySchedule(schedule); err != nil {
			return err
		}
		if err := repos.LeaseRepo().SaveWithLock(ctx, l); err != nil {
			return err
		}

		result = &ScheduleResult{Lease: l, Schedule: schedule, Billings: billings, Schedules: rows}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate schedule for lease %s: %w", in.LeaseID, err)
	}

	aggs := []aggregate{result.Lease}
	for _, b := range retired {
		aggs = append(aggs, b)
	}
	for _, b := range result.Billings {
		aggs = append(aggs, b)
	}
	s.deps.publish(ctx, aggs...)
	return result, nil
}
