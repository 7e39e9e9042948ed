package services

import (
	"errors"
	"fmt"

	"github.com/upb/mindscreen/internal/rag"
	"github.com/upb/mindscreen/repositories"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeExternal     ErrorType = "external"
	ErrorTypeUnavailable  ErrorType = "unavailable"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Not Found Errors
	ErrQuestionnaireNotFound = NewDomainError(ErrorTypeNotFound, "questionnaire not found", nil)
	ErrAssessmentNotFound    = NewDomainError(ErrorTypeNotFound, "assessment not found", nil)
	ErrRiskScoreNotFound     = NewDomainError(ErrorTypeNotFound, "risk score not found", nil)

	// Validation Errors
	ErrInvalidInput      = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrEmptyQuery        = NewDomainError(ErrorTypeValidation, "query must not be empty", nil)
	ErrUnknownRiskLevel  = NewDomainError(ErrorTypeValidation, "unknown risk level", nil)
	ErrMissingResponses  = NewDomainError(ErrorTypeValidation, "required responses missing", nil)
	ErrTopKOutOfRange    = NewDomainError(ErrorTypeValidation, "top_k out of range", nil)
	ErrInvalidPagination = NewDomainError(ErrorTypeValidation, "invalid pagination", nil)

	// Authorization Errors
	ErrUnauthorized = NewDomainError(ErrorTypeUnauthorized, "user identity required", nil)

	// Conflict Errors
	ErrAssessmentCompleted = NewDomainError(ErrorTypeConflict, "assessment already completed", nil)

	// External Provider Errors
	ErrEmbeddingUnavailable = NewDomainError(ErrorTypeExternal, "embedding provider unavailable", nil)

	// Availability Errors
	ErrIndexNotReady = NewDomainError(ErrorTypeUnavailable, "knowledge index not ready", nil)
)

// InvalidInput returns a validation error for one field of a request.
func InvalidInput(field, reason string) *DomainError {
	return NewDomainError(ErrorTypeValidation, ErrInvalidInput.Message, nil).WithDetail(field, reason)
}

// InvalidPagination returns a validation error describing a rejected page.
func InvalidPagination(limit, offset, maxLimit int) *DomainError {
	return NewDomainError(ErrorTypeValidation, ErrInvalidPagination.Message, nil).
		WithDetail("limit", limit).
		WithDetail("offset", offset).
		WithDetail("max_limit", maxLimit)
}

// Error type checking helper functions

func hasType(err error, t ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == t
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return hasType(err, ErrorTypeUnauthorized)
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return hasType(err, ErrorTypeConflict)
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return hasType(err, ErrorTypeInternal)
}

// IsExternalError checks if an error is an external provider error
func IsExternalError(err error) bool {
	return hasType(err, ErrorTypeExternal)
}

// IsUnavailableError checks if an error means a dependency is not ready yet
func IsUnavailableError(err error) bool {
	return hasType(err, ErrorTypeUnavailable)
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapExternal wraps an error as an external provider error
func WrapExternal(message string, err error) error {
	return NewDomainError(ErrorTypeExternal, message, err)
}

// FromRepositoryError maps storage sentinels onto domain errors.
// notFound is returned (with err attached) when the lookup matched nothing.
func FromRepositoryError(err error, notFound *DomainError, message string) error {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return NewDomainError(notFound.Type, notFound.Message, err)
	case errors.Is(err, repositories.ErrAlreadyCompleted), errors.Is(err, repositories.ErrDuplicate):
		return NewDomainError(ErrorTypeConflict, ErrAssessmentCompleted.Message, err)
	default:
		return WrapInternal(message, err)
	}
}

// FromRetrievalError maps knowledge base failures onto domain errors.
func FromRetrievalError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, rag.ErrEmptyQuery):
		return NewDomainError(ErrorTypeValidation, ErrEmptyQuery.Message, err)
	case errors.Is(err, rag.ErrUnknownRiskLevel):
		return NewDomainError(ErrorTypeValidation, ErrUnknownRiskLevel.Message, err)
	case errors.Is(err, rag.ErrIndexNotBuilt):
		return NewDomainError(ErrorTypeUnavailable, ErrIndexNotReady.Message, err)
	case errors.Is(err, rag.ErrEmbeddingFailed):
		return NewDomainError(ErrorTypeExternal, ErrEmbeddingUnavailable.Message, err)
	default:
		return WrapInternal("retrieval failed", err)
	}
}
