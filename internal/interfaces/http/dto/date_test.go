package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateOr(t *testing.T) {
	now := time.Date(2024, 3, 15, 22, 30, 0, 0, time.FixedZone("PHT", 8*3600))

	got, err := ParseDateOr("", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDateOr("2024-02-29", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDateOr("2024-02-30", now)
	assert.Error(t, err)
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "", FormatDate(time.Time{}))
	assert.Equal(t, "2024-01-05", FormatDate(time.Date(2024, 1, 5, 13, 0, 0, 0, time.UTC)))
}
