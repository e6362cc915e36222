package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	for input, want := range map[string]string{
		"":                          "DESC",
		"asc":                       "ASC",
		" Asc ":                     "ASC",
		"desc":                      "DESC",
		"sideways":                  "DESC",
		"ASC; DELETE FROM students": "DESC",
	} {
		assert.Equal(t, want, ValidateSortOrder(input), "input %q", input)
	}
}

func TestValidateSortField_RegistrationQueue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"default when empty", "", "submitted_at"},
		{"whitelisted column", "student_name", "student_name"},
		{"trimmed", "  status ", "status"},
		{"column not offered for sorting", "father_name", "submitted_at"},
		{"case matters", "STATUS", "submitted_at"},
		{"injection", "status; DROP TABLE student_registrations", "submitted_at"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSortField(tt.input, RegistrationSortFields, "submitted_at"))
		})
	}
}
