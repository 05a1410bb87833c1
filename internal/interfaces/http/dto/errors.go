package dto

import (
	"net/http"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
)

// Error codes produced only by the HTTP layer
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	shared.CodeValidation:       http.StatusBadRequest,
	shared.CodeInvalidState:     http.StatusBadRequest,
	ErrCodeBadRequest:           http.StatusBadRequest,
	shared.CodeUnauthorized:     http.StatusUnauthorized,
	shared.CodeForbidden:        http.StatusForbidden,
	shared.CodeNotFound:         http.StatusNotFound,
	shared.CodeStatusConflict:   http.StatusConflict,
	shared.CodeDuplicateInvoice: http.StatusConflict,
	shared.CodeConflict:         http.StatusConflict,
	ErrCodeRequestTooLarge:      http.StatusRequestEntityTooLarge,
	shared.CodeStoreUnavailable: http.StatusServiceUnavailable,
	ErrCodeInternal:             http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes, including CACHE_MISS which never reaches clients, map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
