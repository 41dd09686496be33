package embed

import (
	"context"
	"errors"
	"log/slog"

	qaerrors "github.com/eunjujo120/perso-ai-chatbot/internal/errors"
)

// ResilientEmbedder retries transient failures and fails fast through a
// circuit breaker while the provider is down.
type ResilientEmbedder struct {
	inner   Embedder
	retry   qaerrors.RetryConfig
	breaker *qaerrors.CircuitBreaker
}

var _ Embedder = (*ResilientEmbedder)(nil)

// NewResilientEmbedder wraps inner. A nil breaker disables fail-fast.
func NewResilientEmbedder(inner Embedder, retry qaerrors.RetryConfig, breaker *qaerrors.CircuitBreaker) *ResilientEmbedder {
	if retry.ShouldRetry == nil {
		retry.ShouldRetry = transient
	}
	return &ResilientEmbedder{inner: inner, retry: retry, breaker: breaker}
}

// transient treats every upstream error as retryable except cancellation,
// expired deadlines and an open circuit.
func transient(err error) bool {
	return !errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded) &&
		!errors.Is(err, qaerrors.ErrCircuitOpen)
}

func call[T any](ctx context.Context, r *ResilientEmbedder, op string, fn func(context.Context) (T, error)) (T, error) {
	attempt := func(ctx context.Context) (T, error) {
		if r.breaker == nil {
			return fn(ctx)
		}
		return qaerrors.Execute(r.breaker, func() (T, error) { return fn(ctx) })
	}
	res, err := qaerrors.Retry(ctx, r.retry, attempt)
	if err != nil {
		slog.Debug("embedding_call_failed",
			slog.String("op", op),
			slog.String("model", r.inner.ModelName()),
			slog.String("error", err.Error()))
	}
	return res, err
}

// Embed embeds text with retries.
func (r *ResilientEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return call(ctx, r, "embed", func(ctx context.Context) ([]float32, error) {
		return r.inner.Embed(ctx, text)
	})
}

// EmbedBatch embeds texts with retries.
func (r *ResilientEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return call(ctx, r, "embed_batch", func(ctx context.Context) ([][]float32, error) {
		return r.inner.EmbedBatch(ctx, texts)
	})
}

func (r *ResilientEmbedder) Dimensions() int   { return r.inner.Dimensions() }
func (r *ResilientEmbedder) ModelName() string { return r.inner.ModelName() }
func (r *ResilientEmbedder) Close() error      { return r.inner.Close() }

// Available is false while the breaker is open.
func (r *ResilientEmbedder) Available(ctx context.Context) bool {
	if r.breaker != nil && r.breaker.State() == qaerrors.StateOpen {
		return false
	}
	return r.inner.Available(ctx)
}

// Breaker exposes the circuit breaker, if any.
func (r *ResilientEmbedder) Breaker() *qaerrors.CircuitBreaker {
	return r.breaker
}
