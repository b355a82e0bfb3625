package ledger

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/erp/rentledger/internal/domain/payment"
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/erp/rentledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrDuplicatePayment is returned when an idempotency key is replayed
var ErrDuplicatePayment = shared.NewConflictError("DUPLICATE_PAYMENT", "duplicate payment request")

// PaymentService applies and reverts payments against billings
type PaymentService struct {
	deps        Deps
	idempotency shared.IdempotencyStore
	receipts    ReceiptStorage
}

// PaymentServiceOption configures optional PaymentService collaborators
type PaymentServiceOption func(*PaymentService)

// WithIdempotencyStore enables Idempotency-Key handling
func WithIdempotencyStore(store shared.IdempotencyStore) PaymentServiceOption {
	return func(s *PaymentService) { s.idempotency = store }
}

// WithReceiptStorage enables receipt uploads
func WithReceiptStorage(storage ReceiptStorage) PaymentServiceOption {
	return func(s *PaymentService) { s.receipts = storage }
}

// NewPaymentService creates a PaymentService
func NewPaymentService(deps Deps, opts ...PaymentServiceOption) *PaymentService {
	s := &PaymentService{deps: deps.withDefaults()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ApplyPayment records a payment and allocates it to billings in one
// transaction. Billings are row-locked in id order and saved with a version
// check, so concurrent payments against the same billing serialize and an
// allocation that no longer fits is rejected rather than clamped. A late
// payment materializes a PENALTY billing for each late target that has none.
func (s *PaymentService) ApplyPayment(ctx context.Context, tenantID uuid.UUID, in ApplyPaymentInput) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "apply")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrAmount, in.Details.Amount.StringFixed(2),
		telemetry.SpanAttrMethodPay, string(in.Details.Method),
		telemetry.SpanAttrCount, len(in.Allocations),
	)

	if in.IdempotencyKey != "" && s.idempotency != nil {
		key := idempotencyKey(tenantID, in.IdempotencyKey)
		fresh, err := s.idempotency.MarkProcessed(ctx, key, s.deps.Settings.IdempotencyTTL)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if !fresh {
			telemetry.RecordError(span, ErrDuplicatePayment)
			s.deps.Metrics.PaymentRejected(ctx, tenantID, string(shared.KindConflict))
			return nil, ErrDuplicatePayment
		}
	}

	var (
		result *PaymentResult
		err    error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("apply_payment", map[string]string{
		telemetry.ProfilingLabelMethod: string(in.Details.Method),
	}), func(c context.Context) {
		result, err = s.apply(c, tenantID, in)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.deps.Metrics.PaymentRejected(ctx, tenantID, string(shared.KindOf(err)))
		if in.IdempotencyKey != "" && s.idempotency != nil {
			if ferr := s.idempotency.Forget(ctx, idempotencyKey(tenantID, in.IdempotencyKey)); ferr != nil {
				s.deps.Logger.Warn("Failed to release idempotency key", zap.Error(ferr))
			}
		}
		return nil, err
	}

	p := result.Payment
	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, p.ID.String())
	s.deps.Metrics.PaymentApplied(ctx, tenantID, string(p.Method), p.Amount)
	for _, pen := range result.Penalties {
		s.deps.Metrics.PenaltyMaterialized(ctx, tenantID, pen.Amount)
	}
	s.deps.Logger.Info("Payment applied",
		zap.String("tenant_id", tenantID.String()),
		zap.String("payment_id", p.ID.String()),
		zap.String("amount", p.Amount.StringFixed(2)),
		zap.Int("allocations", len(p.Allocations)),
		zap.Int("penalties", len(result.Penalties)))
	return result, nil
}

func idempotencyKey(tenantID uuid.UUID, key string) string {
	return "payment:" + tenantID.String() + ":" + key
}

func (s *PaymentService) apply(ctx context.Context, tenantID uuid.UUID, in ApplyPaymentInput) (*PaymentResult, error) {
	if len(in.Allocations) == 0 {
		return nil, shared.NewValidationError("NO_ALLOCATIONS", "payment must target at least one billing")
	}
	if !in.Details.Amount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "payment amount must be positive")
	}
	explicit, err := allocationMode(in.Allocations)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(in.Allocations))
	seen := make(map[uuid.UUID]bool, len(in.Allocations))
	for _, a := range in.Allocations {
		if !seen[a.BillingID] {
			seen[a.BillingID] = true
			ids = append(ids, a.BillingID)
		}
	}
	if !explicit && len(ids) != len(in.Allocations) {
		return nil, shared.NewValidationError("DUPLICATE_BILLING", "a billing may be targeted only once")
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	now := s.deps.Now()
	var result *PaymentResult
	err = s.deps.Scope.Execute(ctx, func(repos TransactionalRepositories) error {
		billings, err := repos.BillingRepo().FindByIDsForUpdate(ctx, tenantID, ids)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*billing.Billing, len(billings))
		for _, b := range billings {
			if err := in.Details.Method.CheckBilling(b); err != nil {
				return err
			}
			byID[b.ID] = b
		}

		lines, err := planAllocations(in.Details.Amount, in.Allocations, billings, explicit)
		if err != nil {
			return err
		}

		p, err := payment.NewPayment(tenantID, in.Details, lines)
		if err != nil {
			return err
		}
		if err := repos.PaymentRepo().Create(ctx, p); err != nil {
			return err
		}

		touched := make([]*billing.Billing, 0, len(lines))
		for _, line := range lines {
			b := byID[line.BillingID]
			if err := b.ApplyAllocation(line.Amount, now); err != nil {
				return err
			}
			if err := repos.BillingRepo().SaveWithLock(ctx, b); err != nil {
				return err
			}
			touched = append(touched, b)
		}

		penalties, err := s.materializePenalties(ctx, repos, touched, p.PaidAt, now)
		if err != nil {
			return err
		}

		result = &PaymentResult{Payment: p, Billings: touched, Penalties: penalties}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply payment: %w", err)
	}

	aggs := []aggregate{result.Payment}
	for _, b := range result.Billings {
		aggs = append(aggs, b)
	}
	for _, b := range result.Penalties {
		aggs = append(aggs, b)
	}
	s.deps.publish(ctx, aggs...)
	return result, nil
}

// allocationMode reports whether the lines carry explicit amounts. Mixing
// explicit and implicit lines is rejected.
func allocationMode(lines []AllocationInput) (bool, error) {
	withAmount := 0
	for _, a := range lines {
		if a.BillingID == uuid.Nil {
			return false, shared.NewValidationError("INVALID_BILLING", "billing id is required")
		}
		if a.Amount != nil {
			withAmount++
		}
	}
	switch withAmount {
	case 0:
		return false, nil
	case len(lines):
		return true, nil
	default:
		return false, shared.NewValidationError("MIXED_ALLOCATIONS",
			"either every allocation carries an amount or none does")
	}
}

func planAllocations(amount decimal.Decimal, in []AllocationInput, billings []*billing.Billing, explicit bool) ([]payment.Line, error) {
	if explicit {
		lines := make([]payment.Line, len(in))
		for i, a := range in {
			lines[i] = payment.Line{BillingID: a.BillingID, Amount: *a.Amount}
		}
		balances := make(map[uuid.UUID]decimal.Decimal, len(billings))
		for _, b := range billings {
			balances[b.ID] = b.Balance
		}
		return payment.MergeExplicit(amount, lines, balances)
	}

	targets := make([]payment.Target, len(billings))
	for i, b := range billings {
		targets[i] = payment.Target{BillingID: b.ID, DueDate: b.DueDate, CreatedAt: b.CreatedAt, Balance: b.Balance}
	}
	return payment.AllocateOldestFirst(amount, targets)
}

// materializePenalties creates one PENALTY billing per late source billing.
// Penalty billings are never penalized themselves.
func (s *PaymentService) materializePenalties(ctx context.Context, repos TransactionalRepositories, touched []*billing.Billing, paidAt, now time.Time) ([]*billing.Billing, error) {
	var created []*billing.Billing
	for _, b := range touched {
		if b.Type == billing.TypePenalty || !shared.DateOf(paidAt).After(b.DueDate) {
			continue
		}
		cfg := s.deps.penaltyConfig(ctx, b.TenantID, b.Type)
		amount := billing.ComputePenalty(b.Amount, b.DueDate, cfg, paidAt)
		if !amount.IsPositive() {
			continue
		}
		exists, err := repos.BillingRepo().HasPenaltyFor(ctx, b.TenantID, b.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		pen, err := billing.NewPenaltyBilling(b, amount, shared.DaysBetween(b.DueDate, paidAt), now, s.deps.Settings.PenaltyDueDays)
		if err != nil {
			return nil, err
		}
		created = append(created, pen)
	}
	if len(created) > 0 {
		if err := repos.BillingRepo().Create(ctx, created...); err != nil {
			return nil, err
		}
	}
	return created, nil
}

// RevertPayment tags a payment reverted. Billing paid amounts are not
// rolled back; every aggregation skips reverted allocations instead.
func (s *PaymentService) RevertPayment(ctx context.Context, tenantID, paymentID uuid.UUID, reason string) (*payment.Payment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "revert")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrPaymentID, paymentID.String(),
	)

	var p *payment.Payment
	err := s.deps.Scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		p, err = repos.PaymentRepo().FindByIDForUpdate(ctx, tenantID, paymentID)
		if err != nil {
			return err
		}
		if err := p.Revert(reason, s.deps.Now()); err != nil {
			return err
		}
		return repos.PaymentRepo().SaveWithLock(ctx, p)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to revert payment %s: %w", paymentID, err)
	}

	s.deps.publish(ctx, p)
	s.deps.Metrics.PaymentReverted(ctx, tenantID)
	s.deps.Logger.Info("Payment reverted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("payment_id", paymentID.String()),
		zap.String("reason", reason))
	return p, nil
}

// GetPayment loads a payment with its allocations
func (s *PaymentService) GetPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*payment.Payment, error) {
	return s.deps.Repos.Payments.FindByID(ctx, tenantID, paymentID)
}

// ReceiptKey is the object key of a payment receipt
func ReceiptKey(tenantID, paymentID uuid.UUID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "receipt"
	}
	return fmt.Sprintf("receipts/%s/%s/%s", tenantID, paymentID, name)
}

// AttachReceipt uploads a receipt file and records its object key on the payment
func (s *PaymentService) AttachReceipt(ctx context.Context, tenantID uuid.UUID, upload ReceiptUpload, body io.Reader) (*payment.Payment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "attach_receipt")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, upload.PaymentID.String())

	if s.receipts == nil {
		return nil, shared.NewStateError("RECEIPTS_DISABLED", "receipt storage is not configured")
	}
	p, err := s.deps.Repos.Payments.FindByID(ctx, tenantID, upload.PaymentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if p.IsReverted() {
		return nil, shared.NewStateError("PAYMENT_REVERTED", "cannot attach a receipt to a reverted payment")
	}

	key := ReceiptKey(tenantID, upload.PaymentID, upload.Filename)
	if err := s.receipts.Upload(ctx, key, upload.ContentType, body, upload.Size); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to upload receipt: %w", err)
	}

	err = s.deps.Scope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err = repos.PaymentRepo().FindByIDForUpdate(ctx, tenantID, upload.PaymentID)
		if err != nil {
			return err
		}
		if err := p.AttachReceipt(key); err != nil {
			return err
		}
		return repos.PaymentRepo().SaveWithLock(ctx, p)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to attach receipt: %w", err)
	}
	return p, nil
}

// ReceiptURL returns a short-lived download link for the payment's receipt
func (s *PaymentService) ReceiptURL(ctx context.Context, tenantID, paymentID uuid.UUID) (string, error) {
	if s.receipts == nil {
		return "", shared.NewStateError("RECEIPTS_DISABLED", "receipt storage is not configured")
	}
	p, err := s.deps.Repos.Payments.FindByID(ctx, tenantID, paymentID)
	if err != nil {
		return "", err
	}
	if p.ReceiptURL == "" {
		return "", shared.NewDomainError(shared.KindNotFound, "RECEIPT_NOT_FOUND", fmt.Sprintf("payment %s has no receipt", paymentID))
	}
	url, err := s.receipts.PresignGet(ctx, p.ReceiptURL, s.deps.Settings.ReceiptURLTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign receipt url: %w", err)
	}
	return url, nil
}
