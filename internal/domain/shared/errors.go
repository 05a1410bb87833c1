package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches domain errors by code so sentinel comparisons work with errors.Is
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error that keeps the original cause for logging
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error codes
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeStatusConflict   = "STATUS_CONFLICT"
	CodeDuplicateInvoice = "DUPLICATE_INVOICE"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeCacheMiss        = "CACHE_MISS"
	CodeConflict         = "CONFLICT"
	CodeInvalidState     = "INVALID_STATE"
)

// Common domain errors
var (
	ErrValidation       = NewDomainError(CodeValidation, "Invalid input provided")
	ErrUnauthorized     = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrForbidden        = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrNotFound         = NewDomainError(CodeNotFound, "Resource not found")
	ErrStatusConflict   = NewDomainError(CodeStatusConflict, "Resource was modified by another request, refetch and retry")
	ErrDuplicateInvoice = NewDomainError(CodeDuplicateInvoice, "Invoice number already assigned")
	ErrStoreUnavailable = NewDomainError(CodeStoreUnavailable, "Store is temporarily unavailable")
	ErrCacheMiss        = NewDomainError(CodeCacheMiss, "Cache miss")
	ErrConflict         = NewDomainError(CodeConflict, "Resource already exists")
	ErrInvalidState     = NewDomainError(CodeInvalidState, "Operation not allowed in the current state")
)

// NewValidationError creates a validation error with a specific message
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewNotFoundError creates a not-found error naming the missing resource
func NewNotFoundError(resource string) *DomainError {
	return NewDomainError(CodeNotFound, resource+" not found")
}

// NewStatusConflictError creates a status conflict error with a specific message
func NewStatusConflictError(message string) *DomainError {
	return NewDomainError(CodeStatusConflict, message)
}

// NewConflictError creates a unique-constraint conflict error
func NewConflictError(message string) *DomainError {
	return NewDomainError(CodeConflict, message)
}

// ErrorCode extracts the domain error code from err, or "" when err is not a DomainError
func ErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsCode reports whether err carries the given domain error code
func IsCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}
