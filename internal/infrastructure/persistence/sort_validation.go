package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes orderDir to ASC or DESC, falling back to def
func ValidateSortOrder(orderDir, def string) string {
	switch strings.ToUpper(strings.TrimSpace(orderDir)) {
	case "ASC":
		return "ASC"
	case "DESC":
		return "DESC"
	}
	return def
}

// ValidateSortField returns sortField when it is whitelisted, else defaultField.
// Only whitelisted names ever reach an ORDER BY clause.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// BillingSortFields contains allowed sort fields for billings
var BillingSortFields = map[string]bool{
	"due_date":     true,
	"billing_date": true,
	"amount":       true,
	"balance":      true,
	"status":       true,
	"billing_type": true,
	"created_at":   true,
}

// orderClause builds a validated ORDER BY with id as the tiebreaker
func orderClause(field string, allowed map[string]bool, defaultField, dir, defaultDir string) string {
	return ValidateSortField(field, allowed, defaultField) + " " + ValidateSortOrder(dir, defaultDir) + ", id ASC"
}
