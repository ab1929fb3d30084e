// Package errors provides standardized error handling for the resolution pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeCatalogLoadFailed ErrorCode = "CATALOG_LOAD_FAILED"
	ErrCodeEncodingFailed    ErrorCode = "ENCODING_FAILED"

	ErrCodeAuthorizationDenied ErrorCode = "AUTHORIZATION_DENIED"

	ErrCodeDataQueryFailed    ErrorCode = "DATA_QUERY_FAILED"
	ErrCodeSessionStoreFailed ErrorCode = "SESSION_STORE_FAILED"

	ErrCodeFallbackTimeout ErrorCode = "EXTERNAL_FALLBACK_TIMEOUT"
	ErrCodeFallbackFailed  ErrorCode = "EXTERNAL_FALLBACK_FAILED"
)

// Sentinel errors for errors.Is checks across package boundaries.
var (
	ErrCatalogLoad         = errors.New(string(ErrCodeCatalogLoadFailed))
	ErrEncoding            = errors.New(string(ErrCodeEncodingFailed))
	ErrAuthorizationDenied = errors.New(string(ErrCodeAuthorizationDenied))
	ErrDataQuery           = errors.New(string(ErrCodeDataQueryFailed))
	ErrSessionStore        = errors.New(string(ErrCodeSessionStoreFailed))
	ErrFallbackTimeout     = errors.New(string(ErrCodeFallbackTimeout))
	ErrFallbackFailed      = errors.New(string(ErrCodeFallbackFailed))
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Fatal     bool                   `json:"fatal"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap maps the structured error back to its sentinel so callers can
// use errors.Is without knowing about StandardError.
func (e *StandardError) Unwrap() error {
	switch e.Code {
	case ErrCodeCatalogLoadFailed:
		return ErrCatalogLoad
	case ErrCodeEncodingFailed:
		return ErrEncoding
	case ErrCodeAuthorizationDenied:
		return ErrAuthorizationDenied
	case ErrCodeDataQueryFailed:
		return ErrDataQuery
	case ErrCodeSessionStoreFailed:
		return ErrSessionStore
	case ErrCodeFallbackTimeout:
		return ErrFallbackTimeout
	case ErrCodeFallbackFailed:
		return ErrFallbackFailed
	default:
		return nil
	}
}

// NewCatalogLoadError creates the fatal catalog error. The service must not
// accept resolution requests after seeing this.
func NewCatalogLoadError(source string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogLoadFailed,
		Message:   "Intent catalog could not be loaded",
		Details:   fmt.Sprintf("source: %s, error: %v", source, err),
		Fatal:     true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEncodingError creates a non-fatal encoding error. The orchestrator
// treats it as zero confidence and falls through to the pattern layer.
func NewEncodingError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEncodingFailed,
		Message:   "Input text could not be vectorized",
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthorizationDeniedError creates the denial error. Message is generic
// on purpose; the detail stays in logs only.
func NewAuthorizationDeniedError(intentID, userID string) *StandardError {
	return &StandardError{
		Code:    ErrCodeAuthorizationDenied,
		Message: "Requester is not authorized for this information",
		Details: fmt.Sprintf("intent: %s, user: %s", intentID, userID),
		Metadata: map[string]interface{}{
			"intentId": intentID,
			"userId":   userID,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewDataQueryError creates a data-access error.
func NewDataQueryError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDataQueryFailed,
		Message:   "Banking data query failed",
		Details:   fmt.Sprintf("operation: %s, error: %v", operation, err),
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionStoreError creates a conversation-context store error.
func NewSessionStoreError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionStoreFailed,
		Message:   "Conversation context store error",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
}

// NewFallbackTimeoutError creates the fallback timeout error.
func NewFallbackTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeFallbackTimeout,
		Message:   "External knowledge source timed out",
		Details:   "call exceeded the configured timeout",
		Timestamp: time.Now().UTC(),
	}
}

// NewFallbackFailedError creates the generic fallback error.
func NewFallbackFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeFallbackFailed,
		Message:   "External knowledge source error",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
}

// IsFatal reports whether err should stop the service from serving requests.
func IsFatal(err error) bool {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Fatal
	}
	return false
}
