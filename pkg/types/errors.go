package types

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypePrecondition   ErrorType = "precondition"
	ErrorTypeAuthorization  ErrorType = "authorization"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeConflict       ErrorType = "conflict"
	ErrorTypeInternal       ErrorType = "internal"
	ErrorTypeExternal       ErrorType = "external"
)

// AppError represents a structured error in the visit management system
type AppError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string, details map[string]interface{}) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewPreconditionError creates a new precondition error. A precondition error
// means the request was well formed but the entity's current state does not
// allow the operation.
func NewPreconditionError(code, message string, details map[string]interface{}) *AppError {
	return &AppError{
		Type:    ErrorTypePrecondition,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewAuthorizationError creates a new authorization error
func NewAuthorizationError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeAuthorization,
		Code:    code,
		Message: message,
	}
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeAuthentication,
		Code:    code,
		Message: message,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(code, message string, details map[string]interface{}) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(code, message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(code, message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ErrorTypeOf returns the ErrorType of err, or ErrorTypeInternal when err is
// not an *AppError.
func ErrorTypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool { return ErrorTypeOf(err) == ErrorTypeValidation }

// IsPrecondition reports whether err is a precondition error
func IsPrecondition(err error) bool { return ErrorTypeOf(err) == ErrorTypePrecondition }

// IsNotFound reports whether err is a not found error
func IsNotFound(err error) bool { return ErrorTypeOf(err) == ErrorTypeNotFound }

// IsConflict reports whether err is a conflict error
func IsConflict(err error) bool { return ErrorTypeOf(err) == ErrorTypeConflict }

// IsExternal reports whether err is an external service error
func IsExternal(err error) bool { return ErrorTypeOf(err) == ErrorTypeExternal }

// Common error codes
const (
	ErrCodeInvalidInput         = "INVALID_INPUT"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeConflict             = "CONFLICT"
	ErrCodeInternalError        = "INTERNAL_ERROR"
	ErrCodeExternalError        = "EXTERNAL_ERROR"
	ErrCodeValidationFailed     = "VALIDATION_FAILED"
	ErrCodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeScheduleOverlap      = "SCHEDULE_OVERLAP"
)
