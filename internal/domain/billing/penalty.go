package billing

import (
	"fmt"
	"time"

	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PenaltyConfig describes how late payment is penalized for one billing type
type PenaltyConfig struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	BillingType       Type
	GracePeriod       int // days after due date without penalty
	PenaltyPercentage decimal.Decimal
	// CompoundPeriod in days; 0 means a flat penalty
	CompoundPeriod       int
	MaxPenaltyPercentage *decimal.Decimal
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NewPenaltyConfig validates and creates a penalty configuration
func NewPenaltyConfig(tenantID uuid.UUID, typ Type, grace int, pct decimal.Decimal, compound int, maxPct *decimal.Decimal) (*PenaltyConfig, error) {
	if !typ.IsValid() {
		return nil, shared.NewValidationError("INVALID_BILLING_TYPE", fmt.Sprintf("unknown billing type %q", typ))
	}
	if grace < 0 || compound < 0 {
		return nil, shared.NewValidationError("INVALID_PENALTY_CONFIG", "grace and compound periods cannot be negative")
	}
	if pct.IsNegative() {
		return nil, shared.NewValidationError("INVALID_PENALTY_CONFIG", "penalty percentage cannot be negative")
	}
	if maxPct != nil && maxPct.IsNegative() {
		return nil, shared.NewValidationError("INVALID_PENALTY_CONFIG", "max penalty percentage cannot be negative")
	}
	now := time.Now()
	return &PenaltyConfig{
		ID:                   uuid.New(),
		TenantID:             tenantID,
		BillingType:          typ,
		GracePeriod:          grace,
		PenaltyPercentage:    pct,
		CompoundPeriod:       compound,
		MaxPenaltyPercentage: maxPct,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// ComputePenalty returns the penalty owed on amount as of asOf.
//
// Nothing is owed within the grace period. Past it, the penalty is a flat
// percentage of amount, or when a compound period is set, the percentage is
// compounded once per whole period elapsed after grace. The result is capped
// at the max percentage and rounded half-up to cents. A nil config yields zero.
func ComputePenalty(amount decimal.Decimal, due time.Time, cfg *PenaltyConfig, asOf time.Time) decimal.Decimal {
	if cfg == nil || !amount.IsPositive() {
		return decimal.Zero
	}
	daysLate := shared.DaysBetween(due, asOf)
	if daysLate <= cfg.GracePeriod {
		return decimal.Zero
	}
	effective := daysLate - cfg.GracePeriod
	rate := cfg.PenaltyPercentage.Div(hundred)

	var penalty decimal.Decimal
	if cfg.CompoundPeriod > 0 {
		periods := effective / cfg.CompoundPeriod
		factor := decimal.NewFromInt(1).Add(rate).Pow(decimal.NewFromInt(int64(periods)))
		penalty = amount.Mul(factor.Sub(decimal.NewFromInt(1)))
	} else {
		penalty = amount.Mul(rate)
	}

	if cfg.MaxPenaltyPercentage != nil {
		penalty = decimal.Min(penalty, amount.Mul(cfg.MaxPenaltyPercentage.Div(hundred)))
	}
	return shared.Round2(penalty)
}
