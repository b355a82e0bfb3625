package ledger

import (
	"context"
	"testing"

	"github.com/erp/rentledger/internal/domain/metering"
	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newUnitMeter(t *testing.T, tenantID uuid.UUID, initial, rate string) *metering.Meter {
	t.Helper()
	unit := uuid.New()
	m, err := metering.NewMeter(tenantID, "Unit 4B electric", metering.UtilityElectricity,
		metering.Location{Type: metering.LocationRentalUnit, RentalUnitID: &unit}, dec(initial), dec(rate))
	require.NoError(t, err)
	return m
}

func TestReadingService_SubmitReadings_Accepted(t *testing.T) {
	f := newFixture(date(2024, 2, 1))
	m := newUnitMeter(t, f.tenantID, "100", "12")
	f.meters.On("FindByIDs", mock.Anything, f.tenantID, []uuid.UUID{m.ID}).
		Return(map[uuid.UUID]*metering.Meter{m.ID: m}, nil)
	f.readings.On("FindByMeters", mock.Anything, f.tenantID, []uuid.UUID{m.ID}).
		Return(map[uuid.UUID][]metering.Reading{}, nil)
	f.readings.On("Create", mock.Anything, mock.Anything).Return(nil)

	outcome, err := NewReadingService(f.deps()).SubmitReadings(context.Background(), f.tenantID, []metering.Candidate{
		{MeterID: m.ID, Value: dec("180"), ReadingDate: date(2024, 1, 31)},
		{MeterID: m.ID, Value: dec("150"), ReadingDate: date(2024, 1, 15)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Succeeded)

	values := outcome.Values()
	require.Len(t, values, 2)
	assert.Equal(t, "30", values[0].Consumption.String())
	assert.Equal(t, "50", values[1].Consumption.String())

	saved := f.readings.Calls[len(f.readings.Calls)-1].Arguments.Get(1).([]*metering.Reading)
	assert.Len(t, saved, 2)
}

func TestReadingService_SubmitReadings_RejectedBatchSavesNothing(t *testing.T) {
	f := newFixture(date(2024, 2, 1))
	m := newUnitMeter(t, f.tenantID, "100", "12")
	unknown := uuid.New()
	f.meters.On("FindByIDs", mock.Anything, f.tenantID, mock.Anything).
		Return(map[uuid.UUID]*metering.Meter{m.ID: m}, nil)
	f.readings.On("FindByMeters", mock.Anything, f.tenantID, mock.Anything).
		Return(map[uuid.UUID][]metering.Reading{}, nil)

	outcome, err := NewReadingService(f.deps()).SubmitReadings(context.Background(), f.tenantID, []metering.Candidate{
		{MeterID: m.ID, Value: dec("150"), ReadingDate: date(2024, 1, 15)},
		{MeterID: m.ID, Value: dec("90"), ReadingDate: date(2024, 1, 31)},
		{MeterID: unknown, Value: dec("10"), ReadingDate: date(2024, 1, 31)},
		{MeterID: m.ID, Value: dec("900"), ReadingDate: date(2024, 2, 1)},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "3 of 4 readings rejected")

	require.Len(t, outcome.Results, 4)
	assert.NoError(t, outcome.Results[0].Err)
	assert.ErrorIs(t, outcome.Results[1].Err, shared.ErrValidation)
	assert.ErrorIs(t, outcome.Results[2].Err, shared.ErrNotFound)
	assert.ErrorIs(t, outcome.Results[3].Err, shared.ErrConflict)
	f.readings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestReadingService_SubmitReadings_RejectionKeepsItemKind(t *testing.T) {
	tests := []struct {
		name    string
		known   bool
		value   string
		wantErr error
	}{
		{"anomalous consumption", true, "900", shared.ErrConflict},
		{"unknown meter", false, "10", shared.ErrNotFound},
		{"negative reading", true, "-1", shared.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(date(2024, 2, 1))
			m := newUnitMeter(t, f.tenantID, "0", "12")
			meterID := m.ID
			if !tt.known {
				meterID = uuid.New()
			}
			f.meters.On("FindByIDs", mock.Anything, f.tenantID, mock.Anything).
				Return(map[uuid.UUID]*metering.Meter{m.ID: m}, nil)
			f.readings.On("FindByMeters", mock.Anything, f.tenantID, mock.Anything).
				Return(map[uuid.UUID][]metering.Reading{}, nil)

			_, err := NewReadingService(f.deps()).SubmitReadings(context.Background(), f.tenantID, []metering.Candidate{
				{MeterID: meterID, Value: dec(tt.value), ReadingDate: date(2024, 1, 31)},
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantErr.(*shared.DomainError).Kind, shared.KindOf(err))
			f.readings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestReadingService_SubmitReadings_ConfirmedAnomalyAccepted(t *testing.T) {
	f := newFixture(date(2024, 2, 1))
	m := newUnitMeter(t, f.tenantID, "0", "12")
	f.meters.On("FindByIDs", mock.Anything, f.tenantID, mock.Anything).
		Return(map[uuid.UUID]*metering.Meter{m.ID: m}, nil)
	f.readings.On("FindByMeters", mock.Anything, f.tenantID, mock.Anything).
		Return(map[uuid.UUID][]metering.Reading{}, nil)
	f.readings.On("Create", mock.Anything, mock.Anything).Return(nil)

	outcome, err := NewReadingService(f.deps()).SubmitReadings(context.Background(), f.tenantID, []metering.Candidate{
		{MeterID: m.ID, Value: dec("800"), ReadingDate: date(2024, 1, 31), Confirmed: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Succeeded)
}

func TestReadingService_SubmitReadings_EmptyBatch(t *testing.T) {
	f := newFixture(date(2024, 2, 1))
	_, err := NewReadingService(f.deps()).SubmitReadings(context.Background(), f.tenantID, nil)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestReadingService_ConfirmReading(t *testing.T) {
	f := newFixture(date(2024, 2, 1))
	r := &metering.Reading{ID: uuid.New(), TenantID: f.tenantID, ReviewStatus: metering.ReviewPending}
	f.readings.On("FindByID", mock.Anything, f.tenantID, r.ID).Return(r, nil)
	f.readings.On("Save", mock.Anything, r).Return(nil)

	svc := NewReadingService(f.deps())
	confirmed, err := svc.ConfirmReading(context.Background(), f.tenantID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, metering.ReviewConfirmed, confirmed.ReviewStatus)

	_, err = svc.ConfirmReading(context.Background(), f.tenantID, r.ID)
	assert.ErrorIs(t, err, shared.ErrState)
	f.readings.AssertNumberOfCalls(t, "Save", 1)
}
