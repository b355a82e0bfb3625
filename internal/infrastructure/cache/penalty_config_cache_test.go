package cache

import (
	"context"
	"testing"
	"time"

	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubLookup struct {
	calls int
	cfg   *billing.PenaltyConfig
	err   error
}

func (s *stubLookup) Lookup(context.Context, uuid.UUID, billing.Type) (*billing.PenaltyConfig, error) {
	s.calls++
	return s.cfg, s.err
}

func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestPenaltyConfigCache_RedisDownFallsBackToSource(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	tenantID := uuid.New()
	cfg := &billing.PenaltyConfig{TenantID: tenantID, BillingType: billing.TypeRent, PenaltyPercentage: decimal.NewFromInt(5)}
	source := &stubLookup{cfg: cfg}

	cache := NewPenaltyConfigCache(unreachableRedis(t), source, time.Minute, zap.New(core))
	got, err := cache.Lookup(context.Background(), tenantID, billing.TypeRent)

	require.NoError(t, err)
	assert.Same(t, cfg, got)
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, 1, logs.FilterMessage("penalty config cache read failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("penalty config cache write failed").Len())
}

func TestPenaltyConfigCache_SourceErrorPropagates(t *testing.T) {
	source := &stubLookup{err: assert.AnError}
	cache := NewPenaltyConfigCache(unreachableRedis(t), source, 0, nil)

	_, err := cache.Lookup(context.Background(), uuid.New(), billing.TypeRent)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, defaultPenaltyConfigTTL, cache.ttl)
}

func TestPenaltyEntry_RoundTrip(t *testing.T) {
	tenantID := uuid.New()
	assert.Nil(t, newPenaltyEntry(nil).toDomain(tenantID, billing.TypeRent))

	maxPct := decimal.RequireFromString("12.5")
	cfg := &billing.PenaltyConfig{
		ID:                   uuid.New(),
		TenantID:             tenantID,
		BillingType:          billing.TypeUtility,
		GracePeriod:          3,
		PenaltyPercentage:    decimal.RequireFromString("1.25"),
		CompoundPeriod:       7,
		MaxPenaltyPercentage: &maxPct,
	}
	got := newPenaltyEntry(cfg).toDomain(tenantID, billing.TypeUtility)
	assert.Equal(t, cfg, got)
	assert.Equal(t, "ledger:penalty_config:"+tenantID.String()+":UTILITY", penaltyConfigKey(tenantID, billing.TypeUtility))
}
