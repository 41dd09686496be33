// Package logging configures structured JSON logging with log/slog, written
// to a size-rotated file and optionally mirrored to stderr.
//
// In MCP stdio mode stdout carries the protocol stream, so the logger must
// not write to stdout.
package logging
