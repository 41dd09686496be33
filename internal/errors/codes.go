// Package errors provides the structured error type shared by the answer
// pipeline, the ingestion flow and the HTTP/MCP surfaces.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: configuration errors (fatal at startup)
//   - 2XX: corpus and on-disk index errors
//   - 3XX: upstream service errors (embedding, vector retrieval)
//   - 4XX: request validation errors
//   - 5XX: internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates missing or invalid settings.
	CategoryConfig Category = "CONFIG"
	// CategoryCorpus indicates corpus source or local index problems.
	CategoryCorpus Category = "CORPUS"
	// CategoryUpstream indicates a failed call to an external collaborator.
	CategoryUpstream Category = "UPSTREAM"
	// CategoryValidation indicates a rejected request.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates the process must not serve traffic.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the operation failed but the process can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates a transient, usually retryable failure.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	ErrCodeConfigMissing = "ERR_101_CONFIG_MISSING"
	ErrCodeConfigInvalid = "ERR_102_CONFIG_INVALID"

	ErrCodeCorpusNotFound = "ERR_201_CORPUS_NOT_FOUND"
	ErrCodeCorpusInvalid  = "ERR_202_CORPUS_INVALID"
	ErrCodeIndexCorrupt   = "ERR_203_INDEX_CORRUPT"

	ErrCodeEmbeddingFailed  = "ERR_301_EMBEDDING_FAILED"
	ErrCodeEmbeddingTimeout = "ERR_302_EMBEDDING_TIMEOUT"
	ErrCodeRetrievalFailed  = "ERR_303_RETRIEVAL_FAILED"
	ErrCodeRetrievalTimeout = "ERR_304_RETRIEVAL_TIMEOUT"

	ErrCodeInvalidQuestion   = "ERR_401_INVALID_QUESTION"
	ErrCodeQuestionTooLong   = "ERR_402_QUESTION_TOO_LONG"
	ErrCodeDimensionMismatch = "ERR_403_DIMENSION_MISMATCH"

	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeIngestFailed = "ERR_502_INGEST_FAILED"
)

// categoryFromCode extracts the category from the numeric block of a code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryCorpus
	case '3':
		return CategoryUpstream
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeConfigMissing, ErrCodeConfigInvalid, ErrCodeIndexCorrupt:
		return SeverityFatal
	}
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbeddingFailed, ErrCodeEmbeddingTimeout,
		ErrCodeRetrievalFailed, ErrCodeRetrievalTimeout:
		return true
	default:
		return false
	}
}
