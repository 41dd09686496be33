// Package mcp exposes the answer engine as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"

	qaerrors "github.com/eunjujo120/perso-ai-chatbot/internal/errors"
)

// Custom MCP error codes.
const (
	ErrCodeCorpusUnavailable = -32001
	ErrCodeUpstreamFailed    = -32002
	ErrCodeTimeout           = -32003

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError is a protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts pipeline errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}
	var me *MCPError
	if errors.As(err, &me) {
		return me
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), qaerrors.IsTimeout(err):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	}

	qe, ok := qaerrors.As(err)
	if !ok {
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
	message := qe.Message
	if qe.Suggestion != "" {
		message = message + " " + qe.Suggestion
	}
	switch qe.Category {
	case qaerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case qaerrors.CategoryCorpus:
		return &MCPError{Code: ErrCodeCorpusUnavailable, Message: message}
	case qaerrors.CategoryUpstream:
		return &MCPError{Code: ErrCodeUpstreamFailed, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}

// NewInvalidParamsError creates an error for invalid parameters.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for an unknown tool.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("Tool '%s' not found.", name)}
}
