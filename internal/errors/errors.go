package errors

import (
	"errors"
	"fmt"
)

// MenuError is the structured error type for menusearch.
// It carries enough context for logging, retry decisions and CLI output.
type MenuError struct {
	// Code is the unique error code (e.g., "ERR_202_CACHE_WRITE").
	Code string

	// Message is the human-readable error message.
	Message string

	Category Category
	Severity Severity

	// Details contains additional context such as namespace or order type.
	Details map[string]string

	// Cause is the underlying error.
	Cause error

	// Retryable is true when repeating the operation may succeed.
	Retryable bool

	// Suggestion is an actionable hint for the operator.
	Suggestion string
}

// Error implements the error interface.
func (e *MenuError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *MenuError) Unwrap() error {
	return e.Cause
}

// Is matches another MenuError by code so sentinel values work with errors.Is.
func (e *MenuError) Is(target error) bool {
	if t, ok := target.(*MenuError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail and returns the error for chaining.
func (e *MenuError) WithDetail(key, value string) *MenuError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion sets the operator hint and returns the error for chaining.
func (e *MenuError) WithSuggestion(suggestion string) *MenuError {
	e.Suggestion = suggestion
	return e
}

// New creates a MenuError. Category, severity and the retryable flag are
// derived from the code.
func New(code string, message string, cause error) *MenuError {
	return &MenuError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a MenuError whose message is the wrapped error's message.
// Returns nil for a nil error.
func Wrap(code string, err error) *MenuError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// CacheError reports a failed read, decode or write of a persisted index.
func CacheError(code string, message string, cause error) *MenuError {
	return New(code, message, cause).
		WithSuggestion("the index is served from memory; check the cache backend")
}

// ProviderError reports a failure fetching catalog data.
func ProviderError(message string, cause error) *MenuError {
	return New(ErrCodeProviderUnavailable, message, cause)
}

// ValidationError reports bad caller input.
func ValidationError(message string, cause error) *MenuError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError reports an unexpected failure.
func InternalError(message string, cause error) *MenuError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable reports whether any MenuError in the chain is retryable.
func IsRetryable(err error) bool {
	var me *MenuError
	if errors.As(err, &me) {
		return me.Retryable
	}
	return false
}

// IsFatal reports whether the outermost MenuError in the chain is fatal.
func IsFatal(err error) bool {
	var me *MenuError
	if errors.As(err, &me) {
		return me.Severity == SeverityFatal
	}
	return false
}

// GetCode returns the code of the first MenuError in the chain, or "".
func GetCode(err error) string {
	var me *MenuError
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code string) bool {
	return errors.Is(err, &MenuError{Code: code})
}
