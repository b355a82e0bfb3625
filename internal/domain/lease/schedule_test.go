package lease

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

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestGenerateSchedule_WithProration(t *testing.T) {
	prorated := dec("300")
	s, err := GenerateSchedule(ScheduleInput{
		LeaseID:        uuid.New(),
		StartDate:      date(2024, 1, 15),
		EndDate:        date(2024, 6, 1),
		MonthlyRent:    dec("1000"),
		ProratedAmount: &prorated,
	})
	require.NoError(t, err)

	want := []struct {
		due    time.Time
		amount string
		typ    ScheduleType
	}{
		{date(2024, 1, 15), "300", ScheduleTypeProrated},
		{date(2024, 2, 1), "1000", ScheduleTypeRent},
		{date(2024, 3, 1), "1000", ScheduleTypeRent},
		{date(2024, 4, 1), "1000", ScheduleTypeRent},
		{date(2024, 5, 1), "1000", ScheduleTypeRent},
		{date(2024, 6, 1), "1000", ScheduleTypeRent},
	}
	require.Len(t, s.Entries, len(want))
	for i, w := range want {
		assert.True(t, w.due.Equal(s.Entries[i].DueDate), "entry %d due %s", i, s.Entries[i].DueDate)
		assert.True(t, dec(w.amount).Equal(s.Entries[i].Amount), "entry %d amount", i)
		assert.Equal(t, w.typ, s.Entries[i].Type)
	}
	assert.True(t, dec("5300").Equal(s.Total))
}

func TestGenerateSchedule_WithoutProrationStartsAtMonthStart(t *testing.T) {
	s, err := GenerateSchedule(ScheduleInput{
		LeaseID:     uuid.New(),
		StartDate:   date(2024, 1, 15),
		EndDate:     date(2024, 3, 31),
		MonthlyRent: dec("1000"),
	})
	require.NoError(t, err)

	require.Len(t, s.Entries, 3)
	assert.True(t, date(2024, 1, 1).Equal(s.Entries[0].DueDate))
	assert.True(t, date(2024, 3, 1).Equal(s.Entries[2].DueDate))
	assert.True(t, dec("3000").Equal(s.Total))
}

func TestGenerateSchedule_ProrationOnlyWhenTermEndsInStartMonth(t *testing.T) {
	prorated := dec("450.50")
	s, err := GenerateSchedule(ScheduleInput{
		LeaseID:        uuid.New(),
		StartDate:      date(2024, 1, 15),
		EndDate:        date(2024, 1, 31),
		MonthlyRent:    dec("1000"),
		ProratedAmount: &prorated,
	})
	require.NoError(t, err)

	require.Len(t, s.Entries, 1)
	assert.True(t, dec("450.50").Equal(s.Total))
}

func TestGenerateSchedule_IsDeterministic(t *testing.T) {
	in := ScheduleInput{
		LeaseID:     uuid.New(),
		StartDate:   date(2023, 11, 3),
		EndDate:     date(2024, 11, 2),
		MonthlyRent: dec("1250.75"),
	}
	a, err := GenerateSchedule(in)
	require.NoError(t, err)
	b, err := GenerateSchedule(in)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a.Entries, 13)
}

func TestGenerateSchedule_Rejects(t *testing.T) {
	negative := dec("-1")
	tests := []struct {
		name string
		in   ScheduleInput
	}{
		{"end before start", ScheduleInput{StartDate: date(2024, 2, 1), EndDate: date(2024, 1, 31), MonthlyRent: dec("1000")}},
		{"negative rent", ScheduleInput{StartDate: date(2024, 1, 1), EndDate: date(2024, 3, 1), MonthlyRent: dec("-5")}},
		{"negative proration", ScheduleInput{StartDate: date(2024, 1, 1), EndDate: date(2024, 3, 1), MonthlyRent: dec("5"), ProratedAmount: &negative}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateSchedule(tt.in)
			assert.True(t, errors.Is(err, shared.ErrValidation))
		})
	}
}

func TestProratedAmount(t *testing.T) {
	// 17 of 31 January days
	assert.Equal(t, "548.39", ProratedAmount(dec("1000"), date(2024, 1, 15)).StringFixed(2))
	// leap February, full month
	assert.Equal(t, "1000.00", ProratedAmount(dec("1000"), date(2024, 2, 1)).StringFixed(2))
	assert.Equal(t, "34.48", ProratedAmount(dec("1000"), date(2024, 2, 29)).StringFixed(2))
}
