package dto

import "net/http"

// Error codes produced by the HTTP layer itself. Domain codes pass through
// unchanged.
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeTooLarge     = "REQUEST_TOO_LARGE"
	ErrCodeRateLimited  = "RATE_LIMITED"
)

var statusByCode = map[string]int{
	ErrCodeValidation:  http.StatusBadRequest,
	ErrCodeBadRequest:  http.StatusBadRequest,
	"INVALID_INPUT":    http.StatusBadRequest,
	ErrCodeTooLarge:    http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited: http.StatusTooManyRequests,

	ErrCodeUnauthorized:   http.StatusUnauthorized,
	"INVALID_CREDENTIALS": http.StatusUnauthorized,
	"TOKEN_EXPIRED":       http.StatusUnauthorized,
	"TOKEN_INVALID":       http.StatusUnauthorized,
	"TOKEN_REVOKED":       http.StatusUnauthorized,

	ErrCodeForbidden:        http.StatusForbidden,
	"ACCOUNT_INACTIVE":      http.StatusForbidden,
	"ORGANIZATION_INACTIVE": http.StatusForbidden,

	ErrCodeNotFound:               http.StatusNotFound,
	"ALREADY_EXISTS":              http.StatusConflict,
	"CONCURRENCY_CONFLICT":        http.StatusConflict,
	"IDENTIFIER_ALREADY_ASSIGNED": http.StatusConflict,

	"INVALID_STATE":           http.StatusUnprocessableEntity,
	"NO_ACTIVE_ACADEMIC_YEAR": http.StatusUnprocessableEntity,
	"ACADEMIC_YEAR_CLOSED":    http.StatusUnprocessableEntity,
	"PAYMENT_EXCEEDS_DUE":     http.StatusUnprocessableEntity,
}

// StatusOf returns the HTTP status for an error code. Unknown codes are 500.
func StatusOf(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
