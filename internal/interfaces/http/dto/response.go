package dto

import "github.com/opentoworkprojects/bill-sub001/internal/domain/shared"

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error     string             `json:"error"`
	Detail    string             `json:"detail"`
	RequestID string             `json:"request_id,omitempty"`
	Fields    []ValidationDetail `json:"fields,omitempty"`
}

// ValidationDetail describes one rejected request field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewErrorResponse creates an error body
func NewErrorResponse(code, detail, requestID string) ErrorResponse {
	return ErrorResponse{
		Error:     code,
		Detail:    detail,
		RequestID: requestID,
	}
}

// NewValidationErrorResponse creates an error body listing the rejected fields
func NewValidationErrorResponse(detail, requestID string, fields []ValidationDetail) ErrorResponse {
	return ErrorResponse{
		Error:     shared.CodeValidation,
		Detail:    detail,
		RequestID: requestID,
		Fields:    fields,
	}
}

// HealthResponse is the body of the health endpoints
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
