package models

import (
	"testing"
	"time"

	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/erp/rentledger/internal/domain/payment"
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBillingModel_SoftDeleteAndDates(t *testing.T) {
	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	b, err := billing.NewBilling(uuid.New(), uuid.New(), billing.TypeRent, decimal.RequireFromString("1000"), due, due, "March")
	require.NoError(t, err)

	var m BillingModel
	m.FromDomain(b)
	assert.False(t, m.DeletedAt.Valid)
	assert.Equal(t, billing.TypeRent, m.BillingType)

	deletedAt := due.Add(48 * time.Hour)
	b.SoftDeletable = shared.SoftDeletable{DeletedAt: &deletedAt}
	m.FromDomain(b)
	require.True(t, m.DeletedAt.Valid)

	back := m.ToDomain()
	assert.True(t, back.IsDeleted())
	assert.True(t, back.DueDate.Equal(due))
	assert.Equal(t, b.Version, back.Version)
}

func TestDay_NormalizesToUTCMidnight(t *testing.T) {
	manila := time.FixedZone("PHT", 8*3600)
	d := Date(time.Date(2024, 1, 31, 23, 30, 0, 0, manila))
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Day(d))
}

func TestPenaltyConfigModel_NullableCap(t *testing.T) {
	cfg, err := billing.NewPenaltyConfig(uuid.New(), billing.TypeRent, 5, decimal.NewFromInt(2), 30, nil)
	require.NoError(t, err)

	var m PenaltyConfigModel
	m.FromDomain(cfg)
	assert.False(t, m.MaxPenaltyPercentage.Valid)
	assert.Nil(t, m.ToDomain().MaxPenaltyPercentage)

	capPct := decimal.NewFromInt(20)
	cfg.MaxPenaltyPercentage = &capPct
	m.FromDomain(cfg)
	got := m.ToDomain().MaxPenaltyPercentage
	require.NotNil(t, got)
	assert.True(t, got.Equal(capPct))
}

func TestPaymentModel_CarriesAllocations(t *testing.T) {
	p := &payment.Payment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(uuid.New()),
		Amount:              decimal.NewFromInt(150),
		Method:              payment.MethodGCash,
	}
	p.Allocations = []payment.Allocation{
		{ID: uuid.New(), PaymentID: p.ID, BillingID: uuid.New(), Amount: decimal.NewFromInt(100)},
		{ID: uuid.New(), PaymentID: p.ID, BillingID: uuid.New(), Amount: decimal.NewFromInt(50)},
	}

	var m PaymentModel
	m.FromDomain(p)
	require.Len(t, m.Allocations, 2)
	assert.Equal(t, p.ID, m.Allocations[1].PaymentID)

	back := m.ToDomain()
	require.Len(t, back.Allocations, 2)
	assert.Equal(t, p.Allocations[0].BillingID, back.Allocations[0].BillingID)
	assert.Equal(t, payment.MethodGCash, back.Method)
}
