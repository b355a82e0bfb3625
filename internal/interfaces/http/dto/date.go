package dto

import "time"

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// ParseDate parses a calendar date at UTC midnight
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// ParseDateOr parses s, or returns fallback truncated to its UTC date when s is empty
func ParseDateOr(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		y, m, d := fallback.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return ParseDate(s)
}

// FormatDate renders t as a calendar date
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
