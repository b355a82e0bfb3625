package telemetry_test

import (
	"context"
	"testing"

	"github.com/erp/rentledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewLedgerMetrics_NilMeter(t *testing.T) {
	m, err := telemetry.NewLedgerMetrics(nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
	assert.Nil(t, m)
}

func TestLedgerMetrics_Counters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := telemetry.NewLedgerMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	tenant := uuid.New()
	m.PaymentApplied(ctx, tenant, "CASH", decimal.NewFromInt(500))
	m.PaymentApplied(ctx, tenant, "GCASH", decimal.NewFromInt(20))
	m.PaymentRejected(ctx, tenant, "CONFLICT")
	m.PaymentReverted(ctx, tenant)
	m.PenaltyMaterialized(ctx, tenant, decimal.NewFromInt(50))
	m.ReadingsSubmitted(ctx, tenant, 3, 1)
	m.BillingsGenerated(ctx, tenant, "RENT", 13)
	m.BillingsGenerated(ctx, tenant, "RENT", 0)

	metrics := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, metrics["ledger_payments_applied_total"]))
	assert.Equal(t, int64(1), sumOf(t, metrics["ledger_payments_rejected_total"]))
	assert.Equal(t, int64(1), sumOf(t, metrics["ledger_payments_reverted_total"]))
	assert.Equal(t, int64(1), sumOf(t, metrics["ledger_penalty_billings_total"]))
	assert.Equal(t, int64(4), sumOf(t, metrics["ledger_readings_total"]))
	assert.Equal(t, int64(13), sumOf(t, metrics["ledger_billings_generated_total"]))

	hist, ok := metrics["ledger_payment_amount"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(2), count)
}
