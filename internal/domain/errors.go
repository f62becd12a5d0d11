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
		Err:     nil,
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
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeUnavailable      = "UNAVAILABLE"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidDocumentStatus  = NewDomainError(ErrCodeValidation, "invalid document status")
	ErrInvalidMigrationStatus = NewDomainError(ErrCodeValidation, "invalid migration status")
	ErrEmptyNote              = NewDomainError(ErrCodeValidation, "note record is empty")
	ErrEmptyExport            = NewDomainError(ErrCodeValidation, "export cannot be parsed")
)

// Not found errors
var (
	ErrDocumentNotFound     = NewDomainError(ErrCodeNotFound, "document not found")
	ErrMigrationJobNotFound = NewDomainError(ErrCodeNotFound, "migration job not found")
	ErrQueueEntryNotFound   = NewDomainError(ErrCodeNotFound, "embedding queue entry not found")
)

// Operation errors
var (
	ErrEmbeddingNotConfigured = NewDomainError(ErrCodeUnavailable, "embedding generator not configured")
	ErrMigrationAlreadyActive = NewDomainError(ErrCodeInvalidOperation, "migration job is already running")
)
