package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eunjujo120/perso-ai-chatbot/internal/config"
	qaerrors "github.com/eunjujo120/perso-ai-chatbot/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyStore struct {
	VectorStore
	failures atomic.Int32
	calls    atomic.Int32
	err      error
}

func (f *flakyStore) Search(ctx context.Context, v []float32, limit int) ([]Hit, error) {
	f.calls.Add(1)
	if f.failures.Load() > 0 {
		f.failures.Add(-1)
		return nil, f.err
	}
	return f.VectorStore.Search(ctx, v, limit)
}

func newFlaky(t *testing.T, failures int32, err error) *flakyStore {
	t.Helper()
	inner, err2 := NewSQLiteStore("")
	require.NoError(t, err2)
	t.Cleanup(func() { _ = inner.Close() })
	require.NoError(t, inner.Upsert(context.Background(), fixturePoints))

	f := &flakyStore{VectorStore: inner, err: err}
	f.failures.Store(failures)
	return f
}

func quickRetry(n int) qaerrors.RetryConfig {
	return qaerrors.RetryConfig{MaxRetries: n, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func TestResilientStore_RetriesSearch(t *testing.T) {
	f := newFlaky(t, 1, errors.New("connection reset"))
	r := NewResilientStore(f, quickRetry(2), nil)

	hits, err := r.Search(context.Background(), []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestResilientStore_DoesNotRetryDimensionMismatch(t *testing.T) {
	f := newFlaky(t, 0, nil)
	r := NewResilientStore(f, quickRetry(3), nil)

	_, err := r.Search(context.Background(), []float32{1}, 1)
	require.Error(t, err)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestResilientStore_Stats(t *testing.T) {
	f := newFlaky(t, 0, nil)
	r := NewResilientStore(f.VectorStore, quickRetry(0), nil)
	assert.Equal(t, 3, r.Stats(context.Background()).Points)
}

func TestNew_Backends(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Vector.Backend = config.BackendHNSW
	cfg.Vector.Path = ""
	s, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	cfg.Vector.Backend = "faiss"
	_, err = New(cfg)
	require.Error(t, err)
	assert.True(t, qaerrors.IsConfigError(err))
}
