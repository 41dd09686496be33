package errors

import (
	stderrors "errors"
	"fmt"
)

// QAError is the structured error type for the question answering service.
type QAError struct {
	// Code is the unique error code (e.g., "ERR_301_EMBEDDING_FAILED").
	Code string

	Message  string
	Category Category
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	Cause error

	// Retryable is set for transient upstream failures.
	Retryable bool

	// Suggestion is an actionable hint for the operator.
	Suggestion string
}

// Error implements the error interface.
func (e *QAError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *QAError) Unwrap() error {
	return e.Cause
}

// Is matches another *QAError by code, so errors.Is(err, &QAError{Code: X})
// works across wrapping.
func (e *QAError) Is(target error) bool {
	if t, ok := target.(*QAError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *QAError) WithDetail(key, value string) *QAError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion.
func (e *QAError) WithSuggestion(suggestion string) *QAError {
	e.Suggestion = suggestion
	return e
}

// New creates a QAError. Category, severity and the retryable flag are
// derived from the code.
func New(code string, message string, cause error) *QAError {
	return &QAError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a QAError from an existing error, reusing its message.
func Wrap(code string, err error) *QAError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError reports an invalid setting.
func ConfigError(message string, cause error) *QAError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// MissingConfig reports a required setting or credential that is absent.
func MissingConfig(setting string) *QAError {
	return New(ErrCodeConfigMissing, setting+" is required", nil).
		WithDetail("setting", setting).
		WithSuggestion("set " + setting + " in the environment, .env or .persoqa.yaml")
}

// CorpusError reports an unreadable or malformed corpus source.
func CorpusError(message string, cause error) *QAError {
	return New(ErrCodeCorpusInvalid, message, cause)
}

// EmbeddingError reports a failed or timed-out embedding call.
func EmbeddingError(cause error, timeout bool) *QAError {
	code := ErrCodeEmbeddingFailed
	if timeout {
		code = ErrCodeEmbeddingTimeout
	}
	return New(code, "Embedding error: "+causeText(cause), cause)
}

// RetrievalError reports a failed or timed-out vector search.
func RetrievalError(cause error, timeout bool) *QAError {
	code := ErrCodeRetrievalFailed
	if timeout {
		code = ErrCodeRetrievalTimeout
	}
	return New(code, "Vector search error: "+causeText(cause), cause)
}

// ValidationError reports a rejected request.
func ValidationError(message string, cause error) *QAError {
	return New(ErrCodeInvalidQuestion, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *QAError {
	return New(ErrCodeInternal, message, cause)
}

func causeText(err error) string {
	if err == nil {
		return "unknown failure"
	}
	return err.Error()
}

// As returns the first *QAError in err's chain.
func As(err error) (*QAError, bool) {
	var qe *QAError
	if stderrors.As(err, &qe) {
		return qe, true
	}
	return nil, false
}

// IsRetryable reports whether err carries a retryable QAError.
func IsRetryable(err error) bool {
	qe, ok := As(err)
	return ok && qe.Retryable
}

// IsFatal reports whether err carries a fatal QAError.
func IsFatal(err error) bool {
	qe, ok := As(err)
	return ok && qe.Severity == SeverityFatal
}

// IsConfigError reports a ConfigurationError.
func IsConfigError(err error) bool {
	qe, ok := As(err)
	return ok && qe.Category == CategoryConfig
}

// IsEmbeddingError reports an EmbeddingServiceError.
func IsEmbeddingError(err error) bool {
	qe, ok := As(err)
	return ok && (qe.Code == ErrCodeEmbeddingFailed || qe.Code == ErrCodeEmbeddingTimeout)
}

// IsRetrievalError reports a RetrievalError.
func IsRetrievalError(err error) bool {
	qe, ok := As(err)
	return ok && (qe.Code == ErrCodeRetrievalFailed || qe.Code == ErrCodeRetrievalTimeout)
}

// IsTimeout reports whether err is an upstream timeout.
func IsTimeout(err error) bool {
	qe, ok := As(err)
	return ok && (qe.Code == ErrCodeEmbeddingTimeout || qe.Code == ErrCodeRetrievalTimeout)
}

// GetCode extracts the error code, or "" when err is not a QAError.
func GetCode(err error) string {
	if qe, ok := As(err); ok {
		return qe.Code
	}
	return ""
}
