// Package ingest embeds the corpus into the vector store and swaps the
// exact-match index, so both reflect the same corpus snapshot.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/eunjujo120/perso-ai-chatbot/internal/corpus"
	"github.com/eunjujo120/perso-ai-chatbot/internal/embed"
	qaerrors "github.com/eunjujo120/perso-ai-chatbot/internal/errors"
	"github.com/eunjujo120/perso-ai-chatbot/internal/exact"
	"github.com/eunjujo120/perso-ai-chatbot/internal/store"
)

// Result summarizes one Reload.
type Result struct {
	Entries     int           `json:"entries"`
	Collisions  int           `json:"collisions"`
	Fingerprint string        `json:"fingerprint"`
	Dimensions  int           `json:"dimensions"`
	// Skipped is true when the vector index already matched the corpus.
	Skipped  bool          `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// Reloader rebuilds the vector index and exact index from the corpus.
type Reloader struct {
	loader   corpus.Loader
	embedder embed.Embedder
	store    store.VectorStore
	index    *exact.Manager

	dataDir   string
	backend   string
	batchSize int
	workers   int
	logger    *slog.Logger
	progress  func(done, total int)

	mu   sync.Mutex
	last Result
}

// Option configures a Reloader.
type Option func(*Reloader)

// WithBatchSize sets the number of questions per embedding request.
func WithBatchSize(n int) Option {
	return func(r *Reloader) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithWorkers sets how many embedding batches run concurrently.
func WithWorkers(n int) Option {
	return func(r *Reloader) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithBackend names the vector backend in the manifest.
func WithBackend(name string) Option {
	return func(r *Reloader) { r.backend = name }
}

// WithProgress reports embedded question counts as batches finish.
// Calls are serialized.
func WithProgress(fn func(done, total int)) Option {
	return func(r *Reloader) { r.progress = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reloader) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReloader creates a Reloader. dataDir holds the lock and manifest.
func NewReloader(loader corpus.Loader, e embed.Embedder, s store.VectorStore, index *exact.Manager, dataDir string, opts ...Option) *Reloader {
	r := &Reloader{
		loader:    loader,
		embedder:  e,
		store:     s,
		index:     index,
		dataDir:   dataDir,
		batchSize: embed.DefaultBatchSize,
		workers:   4,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Last returns the result of the most recent successful Reload.
func (r *Reloader) Last() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Reload re-reads the corpus and, unless the manifest shows the vector
// index is current and force is false, re-embeds and re-upserts every
// entry. The exact index is swapped only after the vector index is ready.
func (r *Reloader) Reload(ctx context.Context, force bool) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock := NewFileLock(r.dataDir)
	if err := lock.Lock(ctx); err != nil {
		return Result{}, qaerrors.New(qaerrors.ErrCodeIngestFailed, "another ingest is running", err)
	}
	defer func() { _ = lock.Unlock() }()

	start := time.Now()
	entries, err := r.loader.Load(ctx)
	if err != nil {
		return Result{}, err
	}
	fp := corpus.Fingerprint(entries)
	res := Result{Entries: len(entries), Fingerprint: fp}

	current, err := r.upToDate(ctx, fp, len(entries))
	if err != nil {
		return Result{}, err
	}
	if current && !force {
		res.Skipped = true
		res.Dimensions = r.embedder.Dimensions()
	} else {
		dims, err := r.rebuild(ctx, entries)
		if err != nil {
			return Result{}, err
		}
		res.Dimensions = dims
		err = WriteManifest(r.dataDir, Manifest{
			Fingerprint: fp,
			Entries:     len(entries),
			Model:       r.embedder.ModelName(),
			Dimensions:  dims,
			Backend:     r.backend,
			IngestedAt:  time.Now().UTC(),
		})
		if err != nil {
			r.logger.Warn("ingest_manifest_write_failed", slog.String("error", err.Error()))
		}
	}

	idx := r.index.Replace(entries)
	res.Collisions = len(idx.Stats().Collisions)
	res.Duration = time.Since(start)
	r.last = res

	r.logger.Info("ingest_complete",
		slog.Int("entries", res.Entries),
		slog.Int("dimensions", res.Dimensions),
		slog.Bool("skipped", res.Skipped),
		slog.Duration("duration", res.Duration))
	return res, nil
}

func (r *Reloader) upToDate(ctx context.Context, fp string, n int) (bool, error) {
	m, err := ReadManifest(r.dataDir)
	if err != nil {
		r.logger.Warn("ingest_manifest_unreadable", slog.String("error", err.Error()))
		return false, nil
	}
	if !m.Matches(fp, r.embedder.ModelName()) {
		return false, nil
	}
	count, err := r.store.Count(ctx)
	if err != nil {
		return false, qaerrors.RetrievalError(err, false)
	}
	return count == n, nil
}

func (r *Reloader) rebuild(ctx context.Context, entries []corpus.Entry) (int, error) {
	questions := corpus.Questions(entries)
	vectors, err := r.embedAll(ctx, questions)
	if err != nil {
		return 0, qaerrors.EmbeddingError(err, false)
	}

	dims := r.embedder.Dimensions()
	if len(vectors) > 0 {
		dims = len(vectors[0])
	}
	answers := make([]string, len(entries))
	for i, e := range entries {
		answers[i] = e.Answer
	}
	points, err := store.PointsFrom(questions, answers, vectors, store.DefaultSource)
	if err != nil {
		return 0, qaerrors.InternalError("failed to build points", err)
	}
	if err := r.store.Replace(ctx, dims, points); err != nil {
		return 0, qaerrors.RetrievalError(err, false)
	}
	return dims, nil
}

// embedAll embeds texts in batches on an ants pool, preserving order.
func (r *Reloader) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	pool, err := ants.NewPool(r.workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make([][]float32, len(texts))
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
		progMu   sync.Mutex
		done     int
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for start := 0; start < len(texts); start += r.batchSize {
		end := min(start+r.batchSize, len(texts))
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			vecs, err := r.embedder.EmbedBatch(ctx, texts[start:end])
			if err != nil {
				fail(err)
				return
			}
			if len(vecs) != end-start {
				fail(fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), end-start))
				return
			}
			copy(out[start:end], vecs)
			if r.progress != nil {
				progMu.Lock()
				done += end - start
				r.progress(done, len(texts))
				progMu.Unlock()
			}
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("submit batch: %w", err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
