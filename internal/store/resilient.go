package store

import (
	"context"
	"errors"

	qaerrors "github.com/eunjujo120/perso-ai-chatbot/internal/errors"
)

// ResilientStore retries failed searches and counts, and trips a circuit
// breaker when the backend keeps failing. Writes are not retried.
type ResilientStore struct {
	inner   VectorStore
	retry   qaerrors.RetryConfig
	breaker *qaerrors.CircuitBreaker
}

var _ VectorStore = (*ResilientStore)(nil)

// NewResilientStore wraps inner. A nil breaker disables fail-fast.
func NewResilientStore(inner VectorStore, retry qaerrors.RetryConfig, breaker *qaerrors.CircuitBreaker) *ResilientStore {
	if retry.ShouldRetry == nil {
		retry.ShouldRetry = func(err error) bool {
			var qe *qaerrors.QAError
			if errors.As(err, &qe) {
				return qe.Retryable
			}
			return !errors.Is(err, context.Canceled) &&
				!errors.Is(err, context.DeadlineExceeded) &&
				!errors.Is(err, qaerrors.ErrCircuitOpen)
		}
	}
	return &ResilientStore{inner: inner, retry: retry, breaker: breaker}
}

func guarded[T any](r *ResilientStore, fn func() (T, error)) (T, error) {
	if r.breaker == nil {
		return fn()
	}
	return qaerrors.Execute(r.breaker, fn)
}

// Search retries transient failures.
func (r *ResilientStore) Search(ctx context.Context, vector []float32, limit int) ([]Hit, error) {
	return qaerrors.Retry(ctx, r.retry, func(ctx context.Context) ([]Hit, error) {
		return guarded(r, func() ([]Hit, error) { return r.inner.Search(ctx, vector, limit) })
	})
}

// Count retries transient failures.
func (r *ResilientStore) Count(ctx context.Context) (int, error) {
	return qaerrors.Retry(ctx, r.retry, func(ctx context.Context) (int, error) {
		return guarded(r, func() (int, error) { return r.inner.Count(ctx) })
	})
}

func (r *ResilientStore) Replace(ctx context.Context, dims int, points []Point) error {
	return r.inner.Replace(ctx, dims, points)
}

func (r *ResilientStore) Upsert(ctx context.Context, points []Point) error {
	return r.inner.Upsert(ctx, points)
}

func (r *ResilientStore) Close() error {
	return r.inner.Close()
}

// Stats forwards to the wrapped store when it reports stats.
func (r *ResilientStore) Stats(ctx context.Context) Stats {
	if sp, ok := r.inner.(StatsProvider); ok {
		return sp.Stats(ctx)
	}
	n, _ := r.inner.Count(ctx)
	return Stats{Points: n}
}
