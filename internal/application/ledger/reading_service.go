package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/rentledger/internal/domain/metering"
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/erp/rentledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// errBatchRejected aborts the submission transaction when any reading fails
var errBatchRejected = errors.New("reading batch rejected")

// ReadingService accepts and reviews meter readings
type ReadingService struct {
	deps      Deps
	validator *metering.Validator
}

// NewReadingService creates a ReadingService using the configured anomaly threshold
func NewReadingService(deps Deps) *ReadingService {
	deps = deps.withDefaults()
	return &ReadingService{
		deps:      deps,
		validator: metering.NewValidator(deps.Settings.AnomalyThreshold),
	}
}

// SubmitReadings validates the batch as a unit and persists it only when every
// reading passes. The outcome always carries one result per candidate in input
// order; when anything failed nothing was stored and the error takes the kind
// of the first failed item.
func (s *ReadingService) SubmitReadings(ctx context.Context, tenantID uuid.UUID, candidates []metering.Candidate) (shared.BatchOutcome[*metering.Reading], error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reading", "submit")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrCount, len(candidates),
	)

	var outcome shared.BatchOutcome[*metering.Reading]
	if len(candidates) == 0 {
		return outcome, shared.NewValidationError("EMPTY_BATCH", "at least one reading is required")
	}

	meterIDs := make([]uuid.UUID, 0, len(candidates))
	seen := make(map[uuid.UUID]bool)
	for _, c := range candidates {
		if !seen[c.MeterID] {
			seen[c.MeterID] = true
			meterIDs = append(meterIDs, c.MeterID)
		}
	}

	err := s.deps.Scope.Execute(ctx, func(repos TransactionalRepositories) error {
		meters, err := repos.MeterRepo().FindByIDs(ctx, tenantID, meterIDs)
		if err != nil {
			return err
		}
		existing, err := repos.ReadingRepo().FindByMeters(ctx, tenantID, meterIDs)
		if err != nil {
			return err
		}
		outcome = s.validator.ValidateBatch(meters, existing, candidates)
		if outcome.HasFailures() {
			return errBatchRejected
		}
		return repos.ReadingRepo().Create(ctx, outcome.Values()...)
	})

	s.deps.Metrics.ReadingsSubmitted(ctx, tenantID, outcome.Succeeded, outcome.Failed)
	if errors.Is(err, errBatchRejected) {
		rejected := outcome.Err()
		telemetry.RecordError(span, rejected)
		s.deps.Logger.Info("Reading batch rejected",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("failed", outcome.Failed),
			zap.Error(rejected))
		return outcome, shared.NewDomainError(firstFailureKind(outcome), "READINGS_REJECTED",
			fmt.Sprintf("%d of %d readings rejected, nothing was saved", outcome.Failed, len(candidates)))
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return outcome, fmt.Errorf("failed to submit readings: %w", err)
	}
	return outcome, nil
}

// firstFailureKind is the kind of the earliest failed item. Untyped failures
// count as validation errors.
func firstFailureKind[T any](outcome shared.BatchOutcome[T]) shared.ErrorKind {
	for _, r := range outcome.Results {
		if r.OK() {
			continue
		}
		if kind := shared.KindOf(r.Err); kind != "" {
			return kind
		}
		break
	}
	return shared.KindValidation
}

// ConfirmReading marks a reading as reviewed
func (s *ReadingService) ConfirmReading(ctx context.Context, tenantID, readingID uuid.UUID) (*metering.Reading, error) {
	var r *metering.Reading
	err := s.deps.Scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		r, err = repos.ReadingRepo().FindByID(ctx, tenantID, readingID)
		if err != nil {
			return err
		}
		if err := r.Confirm(); err != nil {
			return err
		}
		return repos.ReadingRepo().Save(ctx, r)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to confirm reading %s: %w", readingID, err)
	}
	return r, nil
}
