package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes the sort order to ASC or DESC, DESC by default.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when it is whitelisted, otherwise defaultField.
// Sort columns are interpolated into SQL, so only whitelisted names pass.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed != "" && allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// RegistrationSortFields are the sortable columns of the registration queue
var RegistrationSortFields = map[string]bool{
	"submitted_at": true,
	"created_at":   true,
	"student_name": true,
	"status":       true,
}

// StaffSortFields are the sortable columns of the staff list
var StaffSortFields = map[string]bool{
	"created_at":     true,
	"staff_number":   true,
	"monthly_salary": true,
	"status":         true,
}
