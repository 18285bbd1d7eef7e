package llm

import (
	"context"
	"errors"
	"net"
	"time"
)

// Error represents a provider-neutral transport error.
type Error struct {
	Type        ErrorType
	Message     string
	Retryable   bool
	RetryAfter  *time.Duration
	StatusCode  int
	ProviderErr error // Original provider-specific error
}

// ErrorType represents the category of error.
type ErrorType string

const (
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
	ErrorTypeModelNotFound  ErrorType = "model_not_found"
	ErrorTypeProvider       ErrorType = "provider"
	ErrorTypeNetwork        ErrorType = "network"
	ErrorTypeTimeout        ErrorType = "timeout"
	ErrorTypeUnknown        ErrorType = "unknown"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ProviderErr != nil {
		return e.Message + ": " + e.ProviderErr.Error()
	}
	return e.Message
}

// Unwrap returns the underlying provider error.
func (e *Error) Unwrap() error {
	return e.ProviderErr
}

// IsRateLimitError checks if an error is a rate limit error.
func IsRateLimitError(err error) bool {
	return errorTypeOf(err) == ErrorTypeRateLimit
}

// IsTimeoutError checks if an error is a timeout error.
func IsTimeoutError(err error) bool {
	return errorTypeOf(err) == ErrorTypeTimeout
}

// IsModelNotFoundError checks if the service reported an unknown model.
func IsModelNotFoundError(err error) bool {
	return errorTypeOf(err) == ErrorTypeModelNotFound
}

// IsRetryableError checks if an error is retryable.
func IsRetryableError(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// ExtractRetryAfter extracts the retry-after duration from an error.
func ExtractRetryAfter(err error) *time.Duration {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.RetryAfter
	}
	return nil
}

func errorTypeOf(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ""
}

// NewRateLimitError creates a new rate limit error.
func NewRateLimitError(message string, retryAfter *time.Duration, providerErr error) *Error {
	return &Error{
		Type:        ErrorTypeRateLimit,
		Message:     message,
		Retryable:   true,
		RetryAfter:  retryAfter,
		StatusCode:  429,
		ProviderErr: providerErr,
	}
}

// NewProviderError creates a new provider error.
func NewProviderError(message string, providerErr error) *Error {
	return &Error{
		Type:        ErrorTypeProvider,
		Message:     message,
		Retryable:   false,
		ProviderErr: providerErr,
	}
}

// NewTimeoutError creates a new timeout error. Timeouts are not retried:
// the caller's deadline has already been spent.
func NewTimeoutError(message string, providerErr error) *Error {
	return &Error{
		Type:        ErrorTypeTimeout,
		Message:     message,
		Retryable:   false,
		ProviderErr: providerErr,
	}
}

// NewNetworkError creates a new network error (connection refused, reset, ...).
func NewNetworkError(message string, providerErr error) *Error {
	return &Error{
		Type:        ErrorTypeNetwork,
		Message:     message,
		Retryable:   true,
		ProviderErr: providerErr,
	}
}

// NewStatusError classifies an HTTP status returned by the service.
func NewStatusError(message string, statusCode int, providerErr error) *Error {
	e := &Error{
		Type:        ErrorTypeProvider,
		Message:     message,
		StatusCode:  statusCode,
		ProviderErr: providerErr,
	}
	switch {
	case statusCode == 429:
		e.Type = ErrorTypeRateLimit
		e.Retryable = true
	case statusCode == 404:
		e.Type = ErrorTypeModelNotFound
	case statusCode == 400 || statusCode == 422:
		e.Type = ErrorTypeInvalidRequest
	case statusCode >= 500:
		e.Retryable = true
	}
	return e
}

// ClassifyError maps a raw transport failure onto an *Error.
// Errors that already are *Error are returned unchanged.
func ClassifyError(message string, err error) error {
	if err == nil {
		return nil
	}
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(message, err)
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Type: ErrorTypeUnknown, Message: message, ProviderErr: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return NewTimeoutError(message, err)
		}
		return NewNetworkError(message, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return NewNetworkError(message, err)
	}
	return NewProviderError(message, err)
}
