package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeInvalidFilter     = "INVALID_FILTER"
	ErrCodeParse             = "PARSE_ERROR"
	ErrCodeSourceUnavailable = "SOURCE_UNAVAILABLE"
	ErrCodeStore             = "STORE_ERROR"
	ErrCodeBackendTimeout    = "BACKEND_TIMEOUT"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// Filter validation errors, surfaced to the caller as bad requests.
var (
	ErrInvalidDateRange = NewDomainError(ErrCodeInvalidFilter, "since must not be later than until")
	ErrInvalidDate      = NewDomainError(ErrCodeInvalidFilter, "unrecognized date value")
	ErrInvalidSortMode  = NewDomainError(ErrCodeInvalidFilter, "sort must be 'score' or 'date'")
	ErrInvalidDateField = NewDomainError(ErrCodeInvalidFilter, "date_field must be 'created', 'modified' or 'auto'")
	ErrEmptyQuery       = NewDomainError(ErrCodeInvalidFilter, "query is required")
)

// Sync errors
var (
	ErrSyncInProgress = NewDomainError(ErrCodeConflict, "a sync run is already active")
)

// NewSourceError wraps a blob source listing or fetch failure.
func NewSourceError(op string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeSourceUnavailable, fmt.Sprintf("blob source %s failed", op), err)
}

// NewStoreError wraps a persistence layer failure.
func NewStoreError(op string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeStore, fmt.Sprintf("index store %s failed", op), err)
}

// NewParseError wraps a malformed-document failure for one path.
func NewParseError(path string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeParse, fmt.Sprintf("failed to parse %s", path), err)
}
