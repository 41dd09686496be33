package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQAError_Unwrap_PreservesCause(t *testing.T) {
	// Given: an upstream failure
	cause := errors.New("connection refused")

	// When: wrapping it as an embedding error
	err := EmbeddingError(cause, false)

	// Then: the cause is reachable through the chain
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "Embedding error: connection refused", err.Message)
}

func TestQAError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *QAError
		expected string
	}{
		{
			name:     "missing config",
			err:      New(ErrCodeConfigMissing, "GEMINI_API_KEY is required", nil),
			expected: "[ERR_101_CONFIG_MISSING] GEMINI_API_KEY is required",
		},
		{
			name:     "retrieval timeout",
			err:      RetrievalError(errors.New("deadline exceeded"), true),
			expected: "[ERR_304_RETRIEVAL_TIMEOUT] Vector search error: deadline exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestQAError_Is_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("answer: %w", RetrievalError(errors.New("boom"), false))

	assert.True(t, errors.Is(err, &QAError{Code: ErrCodeRetrievalFailed}))
	assert.False(t, errors.Is(err, &QAError{Code: ErrCodeEmbeddingFailed}))
}

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{ErrCodeConfigMissing, CategoryConfig, SeverityFatal, false},
		{ErrCodeCorpusInvalid, CategoryCorpus, SeverityError, false},
		{ErrCodeEmbeddingTimeout, CategoryUpstream, SeverityWarning, true},
		{ErrCodeRetrievalFailed, CategoryUpstream, SeverityWarning, true},
		{ErrCodeInvalidQuestion, CategoryValidation, SeverityError, false},
		{ErrCodeIngestFailed, CategoryInternal, SeverityError, false},
		{"bad", CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "msg", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestKindPredicates(t *testing.T) {
	embedErr := fmt.Errorf("wrapped: %w", EmbeddingError(nil, true))
	searchErr := RetrievalError(errors.New("x"), false)
	cfgErr := MissingConfig("GEMINI_API_KEY")

	assert.True(t, IsEmbeddingError(embedErr))
	assert.True(t, IsTimeout(embedErr))
	assert.False(t, IsRetrievalError(embedErr))

	assert.True(t, IsRetrievalError(searchErr))
	assert.False(t, IsTimeout(searchErr))

	assert.True(t, IsConfigError(cfgErr))
	assert.True(t, IsFatal(cfgErr))
	assert.Equal(t, "GEMINI_API_KEY", cfgErr.Details["setting"])

	assert.False(t, IsEmbeddingError(errors.New("plain")))
	assert.Equal(t, "", GetCode(errors.New("plain")))
	assert.Equal(t, ErrCodeConfigMissing, GetCode(cfgErr))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestFormatForCLI(t *testing.T) {
	out := FormatForCLI(MissingConfig("GEMINI_API_KEY"))

	assert.Contains(t, out, "Error: GEMINI_API_KEY is required")
	assert.Contains(t, out, "Hint: set GEMINI_API_KEY")
	assert.Contains(t, out, "Code: ERR_101_CONFIG_MISSING")

	plain := FormatForCLI(errors.New("disk on fire"))
	assert.Contains(t, plain, "Code: ERR_501_INTERNAL")
	assert.Empty(t, FormatForCLI(nil))
}

func TestFormatJSON_IncludesCause(t *testing.T) {
	data, err := FormatJSON(EmbeddingError(errors.New("quota"), false))
	require.NoError(t, err)

	assert.Contains(t, string(data), `"code":"ERR_301_EMBEDDING_FAILED"`)
	assert.Contains(t, string(data), `"cause":"quota"`)
	assert.Contains(t, string(data), `"retryable":true`)
}

func TestLogAttrs(t *testing.T) {
	attrs := LogAttrs(New(ErrCodeCorpusInvalid, "missing column", nil).WithDetail("path", "qa.xlsx"))

	assert.Contains(t, attrs, "error_code")
	assert.Contains(t, attrs, ErrCodeCorpusInvalid)
	assert.Contains(t, attrs, "detail_path")
	assert.Equal(t, []any{"error", "plain"}, LogAttrs(errors.New("plain")))
	assert.Nil(t, LogAttrs(nil))
}
