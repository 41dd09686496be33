package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatForCLI formats an error for terminal output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	qe, ok := As(err)
	if !ok {
		qe = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", qe.Message)
	if qe.Suggestion != "" {
		fmt.Fprintf(&sb, "  Hint: %s\n", qe.Suggestion)
	}
	fmt.Fprintf(&sb, "  Code: %s\n", qe.Code)
	return sb.String()
}

type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// FormatJSON returns a JSON representation of the error for machine consumers.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	qe, ok := As(err)
	if !ok {
		qe = Wrap(ErrCodeInternal, err)
	}

	je := jsonError{
		Code:       qe.Code,
		Message:    qe.Message,
		Category:   string(qe.Category),
		Severity:   string(qe.Severity),
		Details:    qe.Details,
		Suggestion: qe.Suggestion,
		Retryable:  qe.Retryable,
	}
	if qe.Cause != nil {
		je.Cause = qe.Cause.Error()
	}
	return json.Marshal(je)
}

// LogAttrs returns slog key/value pairs describing err.
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}

	qe, ok := As(err)
	if !ok {
		return []any{"error", err.Error()}
	}

	attrs := []any{
		"error_code", qe.Code,
		"error", qe.Message,
		"category", string(qe.Category),
		"retryable", qe.Retryable,
	}
	for k, v := range qe.Details {
		attrs = append(attrs, "detail_"+k, v)
	}
	return attrs
}
