package shared

import (
	"time"

	"github.com/shopspring/decimal"
)

// Round2 rounds an amount half away from zero to 2 decimal places
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// DateOf truncates t to midnight UTC of its calendar date
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns floor((to - from) / 24h). Negative when to precedes from.
func DaysBetween(from, to time.Time) int {
	diff := to.Sub(from)
	days := int(diff / (24 * time.Hour))
	if diff < 0 && diff%(24*time.Hour) != 0 {
		days--
	}
	return days
}
