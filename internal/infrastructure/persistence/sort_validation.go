package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
// Callers must never interpolate a raw sort field into a query.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// AccountSortFields contains allowed sort fields for chart-of-accounts queries
var AccountSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"code":       true,
	"name":       true,
	"type":       true,
	"is_active":  true,
}

// JournalEntrySortFields contains allowed sort fields for journal entry queries
var JournalEntrySortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"entry_number": true,
	"entry_date":   true,
	"entry_type":   true,
	"status":       true,
	"fiscal_year":  true,
}

// TaxLiabilitySortFields contains allowed sort fields for tax liability queries
var TaxLiabilitySortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"tax_type":     true,
	"direction":    true,
	"source_kind":  true,
	"amount":       true,
	"accrual_date": true,
}
