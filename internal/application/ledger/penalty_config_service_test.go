package ledger

import (
	"context"
	"testing"

	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPenaltyConfigRepository struct {
	mock.Mock
}

func (m *MockPenaltyConfigRepository) FindByType(ctx context.Context, tenantID uuid.UUID, typ billing.Type) (*billing.PenaltyConfig, error) {
	args := m.Called(ctx, tenantID, typ)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PenaltyConfig), args.Error(1)
}

func (m *MockPenaltyConfigRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]billing.PenaltyConfig, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]billing.PenaltyConfig), args.Error(1)
}

func (m *MockPenaltyConfigRepository) Save(ctx context.Context, cfg *billing.PenaltyConfig) error {
	return m.Called(ctx, cfg).Error(0)
}

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(ctx context.Context, tenantID uuid.UUID, typ billing.Type) error {
	return m.Called(ctx, tenantID, typ).Error(0)
}

func TestPenaltyConfigService_CreatesNew(t *testing.T) {
	f := newFixture(date(2024, 3, 1))
	repo := new(MockPenaltyConfigRepository)
	inv := new(MockInvalidator)
	repo.On("FindByType", mock.Anything, f.tenantID, billing.TypeRent).
		Return(nil, shared.NewNotFoundError("PenaltyConfig", f.tenantID))
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	inv.On("Invalidate", mock.Anything, f.tenantID, billing.TypeRent).Return(nil)

	cfg, err := NewPenaltyConfigService(f.deps(), repo, inv).SetPenaltyConfig(context.Background(), f.tenantID, PenaltyConfigInput{
		BillingType:       billing.TypeRent,
		GracePeriod:       5,
		PenaltyPercentage: dec("2"),
		CompoundPeriod:    30,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.GracePeriod)
	assert.True(t, cfg.UpdatedAt.Equal(f.now))
	repo.AssertExpectations(t)
	inv.AssertExpectations(t)
}

func TestPenaltyConfigService_ReplacesKeepingIdentity(t *testing.T) {
	f := newFixture(date(2024, 3, 1))
	repo := new(MockPenaltyConfigRepository)
	existing, err := billing.NewPenaltyConfig(f.tenantID, billing.TypeUtility, 0, dec("1"), 0, nil)
	require.NoError(t, err)
	repo.On("FindByType", mock.Anything, f.tenantID, billing.TypeUtility).Return(existing, nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	cfg, err := NewPenaltyConfigService(f.deps(), repo, nil).SetPenaltyConfig(context.Background(), f.tenantID, PenaltyConfigInput{
		BillingType:          billing.TypeUtility,
		PenaltyPercentage:    dec("3"),
		MaxPenaltyPercentage: decPtr("10"),
	})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, cfg.ID)
	assert.True(t, cfg.PenaltyPercentage.Equal(dec("3")))
}

func TestPenaltyConfigService_InvalidInput(t *testing.T) {
	f := newFixture(date(2024, 3, 1))
	repo := new(MockPenaltyConfigRepository)

	_, err := NewPenaltyConfigService(f.deps(), repo, nil).SetPenaltyConfig(context.Background(), f.tenantID, PenaltyConfigInput{
		BillingType:       billing.TypeRent,
		PenaltyPercentage: dec("-1"),
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestPenaltyConfigService_InvalidationFailureIsNotFatal(t *testing.T) {
	f := newFixture(date(2024, 3, 1))
	repo := new(MockPenaltyConfigRepository)
	inv := new(MockInvalidator)
	repo.On("FindByType", mock.Anything, f.tenantID, billing.TypeRent).
		Return(nil, shared.NewNotFoundError("PenaltyConfig", f.tenantID))
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	inv.On("Invalidate", mock.Anything, f.tenantID, billing.TypeRent).Return(assert.AnError)

	_, err := NewPenaltyConfigService(f.deps(), repo, inv).SetPenaltyConfig(context.Background(), f.tenantID, PenaltyConfigInput{
		BillingType:       billing.TypeRent,
		PenaltyPercentage: dec("2"),
	})
	assert.NoError(t, err)
}
