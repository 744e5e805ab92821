package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"
	// ErrorTypeBadRequest indicates a bad request
	ErrorTypeBadRequest ErrorType = "BAD_REQUEST"
	// ErrorTypeConflict indicates a conflict
	ErrorTypeConflict ErrorType = "CONFLICT"
	// ErrorTypeInternal indicates an internal error
	ErrorTypeInternal ErrorType = "INTERNAL"
	// ErrorTypeScopeMissing indicates a candidate arrived without a celebrity scope
	ErrorTypeScopeMissing ErrorType = "SCOPE_MISSING"
	// ErrorTypeSlugCollision indicates two distinct entities derived the same slug
	ErrorTypeSlugCollision ErrorType = "SLUG_COLLISION"
	// ErrorTypeReferentialViolation indicates a reference to a non-existent entity
	ErrorTypeReferentialViolation ErrorType = "REFERENTIAL_VIOLATION"
	// ErrorTypeUntrustedProvider indicates a listing URL from a non-allow-listed provider
	ErrorTypeUntrustedProvider ErrorType = "UNTRUSTED_PROVIDER"
	// ErrorTypeAmbiguousOrphan indicates an orphan with no safe repair candidate
	ErrorTypeAmbiguousOrphan ErrorType = "AMBIGUOUS_ORPHAN"
	// ErrorTypeExternalFetchFailure indicates the upstream metadata source failed
	ErrorTypeExternalFetchFailure ErrorType = "EXTERNAL_FETCH_FAILURE"
	// ErrorTypeTimeout indicates an external call exceeded its deadline
	ErrorTypeTimeout ErrorType = "TIMEOUT"
)

// AppError represents an application error
type AppError struct {
	Type     ErrorType
	Message  string
	EntityID string
	Err      error
}

// Error returns the error message
func (e *AppError) Error() string {
	switch {
	case e.Err != nil && e.EntityID != "":
		return fmt.Sprintf("%s: %s [entity %s]: %v", e.Type, e.Message, e.EntityID, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	case e.EntityID != "":
		return fmt.Sprintf("%s: %s [entity %s]", e.Type, e.Message, e.EntityID)
	default:
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithEntity attaches the offending entity id so run reports can surface it.
func (e *AppError) WithEntity(id string) *AppError {
	e.EntityID = id
	return e
}

// New creates a new application error
func New(errorType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
	}
}

// Wrap wraps an error with an application error
func Wrap(errorType ErrorType, message string, err error) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Err:     err,
	}
}

// NotFound creates a not found error
func NotFound(message string) *AppError {
	return New(ErrorTypeNotFound, message)
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return New(ErrorTypeBadRequest, message)
}

// Conflict creates a conflict error
func Conflict(message string) *AppError {
	return New(ErrorTypeConflict, message)
}

// Internal creates an internal error
func Internal(message string) *AppError {
	return New(ErrorTypeInternal, message)
}

// ScopeMissing creates a scope missing error
func ScopeMissing(message string) *AppError {
	return New(ErrorTypeScopeMissing, message)
}

// SlugCollision creates a slug collision error
func SlugCollision(message string) *AppError {
	return New(ErrorTypeSlugCollision, message)
}

// ReferentialViolation creates a referential violation error
func ReferentialViolation(message string) *AppError {
	return New(ErrorTypeReferentialViolation, message)
}

// UntrustedProvider creates an untrusted provider error
func UntrustedProvider(message string) *AppError {
	return New(ErrorTypeUntrustedProvider, message)
}

// AmbiguousOrphan creates an ambiguous orphan error
func AmbiguousOrphan(message string) *AppError {
	return New(ErrorTypeAmbiguousOrphan, message)
}

// ExternalFetchFailure creates an external fetch failure error
func ExternalFetchFailure(message string, err error) *AppError {
	return Wrap(ErrorTypeExternalFetchFailure, message, err)
}

// Timeout creates a timeout error
func Timeout(message string, err error) *AppError {
	return Wrap(ErrorTypeTimeout, message, err)
}

// TypeOf returns the ErrorType of err, or ErrorTypeInternal for plain errors.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// IsType checks whether err carries the given error type.
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool {
	return IsType(err, ErrorTypeConflict)
}

// IsScopeMissing checks if an error is a scope missing error
func IsScopeMissing(err error) bool {
	return IsType(err, ErrorTypeScopeMissing)
}

// IsSlugCollision checks if an error is a slug collision error
func IsSlugCollision(err error) bool {
	return IsType(err, ErrorTypeSlugCollision)
}

// IsReferentialViolation checks if an error is a referential violation error
func IsReferentialViolation(err error) bool {
	return IsType(err, ErrorTypeReferentialViolation)
}

// IsUntrustedProvider checks if an error is an untrusted provider error
func IsUntrustedProvider(err error) bool {
	return IsType(err, ErrorTypeUntrustedProvider)
}

// IsAmbiguousOrphan checks if an error is an ambiguous orphan error
func IsAmbiguousOrphan(err error) bool {
	return IsType(err, ErrorTypeAmbiguousOrphan)
}

// IsExternalFetchFailure checks if an error is an external fetch failure error
func IsExternalFetchFailure(err error) bool {
	return IsType(err, ErrorTypeExternalFetchFailure)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return IsType(err, ErrorTypeTimeout)
}

// IsRetryable reports whether the error is transient and safe to retry
// within a run. Only timeouts and upstream fetch failures qualify; the
// data-integrity types always need a human decision.
func IsRetryable(err error) bool {
	return IsTimeout(err) || IsExternalFetchFailure(err)
}

// IsDuplicateError checks if an error is a duplicate key error
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "UNIQUE constraint") ||
		strings.Contains(errStr, "duplicate entry")
}
