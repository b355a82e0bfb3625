package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/rentledger/internal/application/ledger"
	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	penaltyConfigPrefix     = "ledger:penalty_config:"
	defaultPenaltyConfigTTL = 5 * time.Minute
)

// penaltyEntry is the cached form of a lookup. Found=false caches the
// absence of a config so tenants without penalties do not hit the database.
type penaltyEntry struct {
	Found                bool             `json:"found"`
	ID                   uuid.UUID        `json:"id,omitempty"`
	GracePeriod          int              `json:"grace_period,omitempty"`
	PenaltyPercentage    decimal.Decimal  `json:"penalty_percentage"`
	CompoundPeriod       int              `json:"compound_period,omitempty"`
	MaxPenaltyPercentage *decimal.Decimal `json:"max_penalty_percentage,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

func newPenaltyEntry(cfg *billing.PenaltyConfig) penaltyEntry {
	if cfg == nil {
		return penaltyEntry{}
	}
	return penaltyEntry{
		Found:                true,
		ID:                   cfg.ID,
		GracePeriod:          cfg.GracePeriod,
		PenaltyPercentage:    cfg.PenaltyPercentage,
		CompoundPeriod:       cfg.CompoundPeriod,
		MaxPenaltyPercentage: cfg.MaxPenaltyPercentage,
		CreatedAt:            cfg.CreatedAt,
		UpdatedAt:            cfg.UpdatedAt,
	}
}

func (e penaltyEntry) toDomain(tenantID uuid.UUID, typ billing.Type) *billing.PenaltyConfig {
	if !e.Found {
		return nil
	}
	return &billing.PenaltyConfig{
		ID:                   e.ID,
		TenantID:             tenantID,
		BillingType:          typ,
		GracePeriod:          e.GracePeriod,
		PenaltyPercentage:    e.PenaltyPercentage,
		CompoundPeriod:       e.CompoundPeriod,
		MaxPenaltyPercentage: e.MaxPenaltyPercentage,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

// PenaltyConfigCache is a read-through Redis cache in front of another
// PenaltyConfigLookup. Redis failures degrade to the underlying lookup.
type PenaltyConfigCache struct {
	client *redis.Client
	source ledger.PenaltyConfigLookup
	ttl    time.Duration
	logger *zap.Logger
}

// NewPenaltyConfigCache caches source results for ttl
func NewPenaltyConfigCache(client *redis.Client, source ledger.PenaltyConfigLookup, ttl time.Duration, logger *zap.Logger) *PenaltyConfigCache {
	if ttl <= 0 {
		ttl = defaultPenaltyConfigTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PenaltyConfigCache{client: client, source: source, ttl: ttl, logger: logger}
}

func penaltyConfigKey(tenantID uuid.UUID, typ billing.Type) string {
	return fmt.Sprintf("%s%s:%s", penaltyConfigPrefix, tenantID, typ)
}

func (c *PenaltyConfigCache) Lookup(ctx context.Context, tenantID uuid.UUID, typ billing.Type) (*billing.PenaltyConfig, error) {
	key := penaltyConfigKey(tenantID, typ)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var entry penaltyEntry
		if jerr := json.Unmarshal(raw, &entry); jerr == nil {
			return entry.toDomain(tenantID, typ), nil
		}
		c.logger.Warn("discarding corrupt penalty config cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("penalty config cache read failed", zap.String("key", key), zap.Error(err))
	}

	cfg, err := c.source.Lookup(ctx, tenantID, typ)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(newPenaltyEntry(cfg))
	if err == nil {
		err = c.client.Set(ctx, key, payload, c.ttl).Err()
	}
	if err != nil {
		c.logger.Warn("penalty config cache write failed", zap.String("key", key), zap.Error(err))
	}
	return cfg, nil
}

// Invalidate drops the cached entry for one tenant and billing type
func (c *PenaltyConfigCache) Invalidate(ctx context.Context, tenantID uuid.UUID, typ billing.Type) error {
	return c.client.Del(ctx, penaltyConfigKey(tenantID, typ)).Err()
}

var _ ledger.PenaltyConfigLookup = (*PenaltyConfigCache)(nil)
