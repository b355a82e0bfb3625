package telemetry

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrTenantID    = attribute.Key("tenant_id")
	AttrMethod      = attribute.Key("payment_method")
	AttrBillingType = attribute.Key("billing_type")
	AttrErrorKind   = attribute.Key("error_kind")
	AttrOutcome     = attribute.Key("outcome")
)

// ErrMeterNil is returned when NewLedgerMetrics is given no meter
var ErrMeterNil = errors.New("NewLedgerMetrics: meter cannot be nil")

// LedgerMetrics records ledger business counters.
type LedgerMetrics struct {
	paymentsApplied   *Counter
	paymentsReverted  *Counter
	paymentsRejected  *Counter
	paymentAmount     *Histogram
	penalties         *Counter
	penaltyAmount     *Histogram
	readings          *Counter
	billingsGenerated *Counter
}

// NewLedgerMetrics registers the ledger instruments on meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	var (
		m   LedgerMetrics
		err error
	)
	if m.paymentsApplied, err = NewCounter(meter, "ledger_payments_applied_total", "Payments applied", "{payment}"); err != nil {
		return nil, err
	}
	if m.paymentsReverted, err = NewCounter(meter, "ledger_payments_reverted_total", "Payments reverted", "{payment}"); err != nil {
		return nil, err
	}
	if m.paymentsRejected, err = NewCounter(meter, "ledger_payments_rejected_total", "Payments rejected", "{payment}"); err != nil {
		return nil, err
	}
	if m.paymentAmount, err = NewHistogram(meter, "ledger_payment_amount", "Applied payment amounts", "{currency}",
		100, 500, 1000, 5000, 10000, 50000); err != nil {
		return nil, err
	}
	if m.penalties, err = NewCounter(meter, "ledger_penalty_billings_total", "Penalty billings materialized", "{billing}"); err != nil {
		return nil, err
	}
	if m.penaltyAmount, err = NewHistogram(meter, "ledger_penalty_amount", "Materialized penalty amounts", "{currency}",
		10, 50, 100, 500, 1000); err != nil {
		return nil, err
	}
	if m.readings, err = NewCounter(meter, "ledger_readings_total", "Meter readings by outcome", "{reading}"); err != nil {
		return nil, err
	}
	if m.billingsGenerated, err = NewCounter(meter, "ledger_billings_generated_total", "Billings generated", "{billing}"); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *LedgerMetrics) PaymentApplied(ctx context.Context, tenantID uuid.UUID, method string, amount decimal.Decimal) {
	attrs := []attribute.KeyValue{AttrTenantID.String(tenantID.String()), AttrMethod.String(method)}
	m.paymentsApplied.Inc(ctx, attrs...)
	m.paymentAmount.Record(ctx, amount.InexactFloat64(), attrs...)
}

func (m *LedgerMetrics) PaymentReverted(ctx context.Context, tenantID uuid.UUID) {
	m.paymentsReverted.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

func (m *LedgerMetrics) PaymentRejected(ctx context.Context, tenantID uuid.UUID, kind string) {
	m.paymentsRejected.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrErrorKind.String(kind))
}

func (m *LedgerMetrics) PenaltyMaterialized(ctx context.Context, tenantID uuid.UUID, amount decimal.Decimal) {
	attrs := AttrTenantID.String(tenantID.String())
	m.penalties.Inc(ctx, attrs)
	m.penaltyAmount.Record(ctx, amount.InexactFloat64(), attrs)
}

func (m *LedgerMetrics) ReadingsSubmitted(ctx context.Context, tenantID uuid.UUID, accepted, rejected int) {
	tenant := AttrTenantID.String(tenantID.String())
	if accepted > 0 {
		m.readings.Add(ctx, int64(accepted), tenant, AttrOutcome.String("accepted"))
	}
	if rejected > 0 {
		m.readings.Add(ctx, int64(rejected), tenant, AttrOutcome.String("rejected"))
	}
}

func (m *LedgerMetrics) BillingsGenerated(ctx context.Context, tenantID uuid.UUID, billingType string, n int) {
	if n <= 0 {
		return
	}
	m.billingsGenerated.Add(ctx, int64(n), AttrTenantID.String(tenantID.String()), AttrBillingType.String(billingType))
}
