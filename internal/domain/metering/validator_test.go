package metering

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

func createTestMeter(t *testing.T, initial string) *Meter {
	t.Helper()
	unit := uuid.New()
	m, err := NewMeter(uuid.New(), "E-101", UtilityElectricity,
		Location{Type: LocationRentalUnit, RentalUnitID: &unit}, dec(initial), dec("12.5"))
	require.NoError(t, err)
	return m
}

func existingReading(m *Meter, value string, date time.Time) Reading {
	return Reading{ID: uuid.New(), MeterID: m.ID, Value: dec(value), ReadingDate: date, ReviewStatus: ReviewConfirmed}
}

func TestValidator_Validate(t *testing.T) {
	m := createTestMeter(t, "1000")
	existing := []Reading{
		existingReading(m, "1100", day(1, 31)),
		existingReading(m, "1250", day(2, 29)),
	}
	v := NewValidator(decimal.Zero)

	t.Run("accepts increasing reading", func(t *testing.T) {
		r, err := v.Validate(m, existing, Candidate{MeterID: m.ID, Value: dec("1400"), ReadingDate: day(3, 31)})
		require.NoError(t, err)
		assert.Equal(t, ReviewPending, r.ReviewStatus)
		assert.Equal(t, "1250", r.PreviousReading.String())
		assert.Equal(t, "150", r.Consumption.String())
	})

	t.Run("equal reading is monotonic", func(t *testing.T) {
		r, err := v.Validate(m, existing, Candidate{MeterID: m.ID, Value: dec("1250"), ReadingDate: day(3, 31)})
		require.NoError(t, err)
		assert.True(t, r.Consumption.IsZero())
	})

	t.Run("rejects decreasing reading", func(t *testing.T) {
		_, err := v.Validate(m, existing, Candidate{MeterID: m.ID, Value: dec("1249"), ReadingDate: day(3, 31)})
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("first reading compares to initial", func(t *testing.T) {
		_, err := v.Validate(m, nil, Candidate{MeterID: m.ID, Value: dec("999"), ReadingDate: day(1, 31)})
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("backdated reading must fit between neighbours", func(t *testing.T) {
		r, err := v.Validate(m, existing, Candidate{MeterID: m.ID, Value: dec("1200"), ReadingDate: day(2, 15)})
		require.NoError(t, err)
		assert.Equal(t, "100", r.Consumption.String())

		_, err = v.Validate(m, existing, Candidate{MeterID: m.ID, Value: dec("1300"), ReadingDate: day(2, 15)})
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("anomalous consumption needs confirmation", func(t *testing.T) {
		c := Candidate{MeterID: m.ID, Value: dec("1750.01"), ReadingDate: day(3, 31)}
		_, err := v.Validate(m, existing, c)
		assert.True(t, errors.Is(err, shared.ErrConflict))

		c.Confirmed = true
		r, err := v.Validate(m, existing, c)
		require.NoError(t, err)
		assert.Equal(t, ReviewPending, r.ReviewStatus)
	})

	t.Run("consumption at threshold accepted", func(t *testing.T) {
		_, err := v.Validate(m, existing, Candidate{MeterID: m.ID, Value: dec("1750"), ReadingDate: day(3, 31)})
		assert.NoError(t, err)
	})

	t.Run("duplicate date conflicts", func(t *testing.T) {
		_, err := v.Validate(m, existing, Candidate{MeterID: m.ID, Value: dec("1300"), ReadingDate: day(2, 29)})
		assert.True(t, errors.Is(err, shared.ErrConflict))
	})

	t.Run("negative reading rejected", func(t *testing.T) {
		_, err := v.Validate(m, nil, Candidate{MeterID: m.ID, Value: dec("-1"), ReadingDate: day(3, 31)})
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

func TestValidator_InactiveMeter(t *testing.T) {
	m := createTestMeter(t, "0")
	m.Status = MeterMaintenance

	_, err := NewValidator(decimal.Zero).Validate(m, nil, Candidate{MeterID: m.ID, Value: dec("1"), ReadingDate: day(1, 1)})
	assert.True(t, errors.Is(err, shared.ErrState))
}

func TestValidator_ValidateBatch(t *testing.T) {
	m := createTestMeter(t, "0")
	v := NewValidator(dec("100"))
	meters := map[uuid.UUID]*Meter{m.ID: m}

	t.Run("chains readings in date order", func(t *testing.T) {
		outcome := v.ValidateBatch(meters, nil, []Candidate{
			{MeterID: m.ID, Value: dec("150"), ReadingDate: day(2, 1)},
			{MeterID: m.ID, Value: dec("80"), ReadingDate: day(1, 1)},
		})
		require.False(t, outcome.HasFailures(), "%v", outcome.Err())
		assert.Equal(t, "70", outcome.Results[0].Value.Consumption.String())
		assert.Equal(t, "80", outcome.Results[1].Value.Consumption.String())
	})

	t.Run("reports every failure by input index", func(t *testing.T) {
		ghost := uuid.New()
		outcome := v.ValidateBatch(meters, nil, []Candidate{
			{MeterID: m.ID, Value: dec("50"), ReadingDate: day(1, 1)},
			{MeterID: ghost, Value: dec("1"), ReadingDate: day(1, 1)},
			{MeterID: m.ID, Value: dec("40"), ReadingDate: day(2, 1)},
		})
		assert.Equal(t, 1, outcome.Succeeded)
		assert.Equal(t, 2, outcome.Failed)
		assert.True(t, errors.Is(outcome.Results[1].Err, shared.ErrNotFound))
		assert.True(t, errors.Is(outcome.Results[2].Err, shared.ErrValidation))
		assert.True(t, outcome.Results[0].OK())
	})
}

func TestPeriodConsumption(t *testing.T) {
	m := createTestMeter(t, "100")
	readings := []Reading{
		existingReading(m, "180", day(1, 31)),
		existingReading(m, "260", day(2, 15)),
		existingReading(m, "300", day(2, 29)),
		existingReading(m, "400", day(3, 31)),
	}

	got, err := PeriodConsumption(m, readings, day(2, 1), day(2, 29))
	require.NoError(t, err)
	assert.Equal(t, "120", got.String())

	got, err = PeriodConsumption(m, readings, day(1, 1), day(1, 31))
	require.NoError(t, err)
	assert.Equal(t, "80", got.String())

	_, err = PeriodConsumption(m, readings, day(4, 1), day(4, 30))
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestReading_Confirm(t *testing.T) {
	r := &Reading{ID: uuid.New(), ReviewStatus: ReviewPending}
	require.NoError(t, r.Confirm())
	assert.Equal(t, ReviewConfirmed, r.ReviewStatus)
	assert.True(t, errors.Is(r.Confirm(), shared.ErrState))
}
