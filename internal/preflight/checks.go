package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/eunjujo120/perso-ai-chatbot/internal/config"
	"github.com/eunjujo120/perso-ai-chatbot/internal/corpus"
	"github.com/eunjujo120/perso-ai-chatbot/internal/embed"
	qaerrors "github.com/eunjujo120/perso-ai-chatbot/internal/errors"
	"github.com/eunjujo120/perso-ai-chatbot/internal/exact"
	"github.com/eunjujo120/perso-ai-chatbot/internal/ingest"
	"github.com/eunjujo120/perso-ai-chatbot/internal/store"
)

// CheckConfig validates the configuration.
func (c *Checker) CheckConfig(cfg *config.Config) CheckResult {
	r := CheckResult{Name: "config", Required: true}
	if cfg == nil {
		r.Status, r.Message = StatusFail, "no configuration loaded"
		return r
	}
	if err := cfg.Validate(); err != nil {
		r.Status, r.Message = StatusFail, err.Error()
		if qe, ok := qaerrors.As(err); ok {
			r.Message, r.Details = qe.Message, qe.Suggestion
		}
		return r
	}
	r.Status = StatusPass
	r.Message = fmt.Sprintf("provider=%s backend=%s", cfg.Embeddings.Provider, cfg.Vector.Backend)
	return r
}

// CheckWritePermissions checks that the data directory is writable.
func (c *Checker) CheckWritePermissions(dir string) CheckResult {
	r := CheckResult{Name: "data_dir", Required: true}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.Status, r.Message = StatusFail, fmt.Sprintf("cannot create %s: %v", dir, err)
		return r
	}
	marker := filepath.Join(dir, ".persoqa-preflight")
	f, err := os.Create(marker)
	if err != nil {
		r.Status, r.Message = StatusFail, fmt.Sprintf("permission denied: %v", err)
		return r
	}
	_ = f.Close()
	_ = os.Remove(marker)
	r.Status, r.Message = StatusPass, dir
	return r
}

// CheckCorpus loads the corpus and reports its size and key collisions.
func (c *Checker) CheckCorpus(ctx context.Context, loader corpus.Loader) (CheckResult, []corpus.Entry) {
	r := CheckResult{Name: "corpus", Required: true}
	if loader == nil {
		r.Status, r.Message = StatusFail, "no corpus configured"
		return r, nil
	}
	entries, err := loader.Load(ctx)
	if err != nil {
		r.Status, r.Message = StatusFail, err.Error()
		if qe, ok := qaerrors.As(err); ok {
			r.Details = qe.Suggestion
		}
		return r, nil
	}
	if len(entries) == 0 {
		r.Status, r.Message = StatusWarn, "corpus has no usable question/answer rows"
		r.Details = "every question will receive the fallback message"
		return r, entries
	}

	stats := exact.Build(entries).Stats()
	r.Status = StatusPass
	r.Message = fmt.Sprintf("%d entries", len(entries))
	if n := len(stats.Collisions); n > 0 {
		r.Status = StatusWarn
		r.Message = fmt.Sprintf("%d entries, %d duplicate questions", len(entries), n)
		r.Details = fmt.Sprintf("later rows win, e.g. %q replaced %q", stats.Collisions[0].Winner, stats.Collisions[0].Loser)
	}
	return r, entries
}

// CheckEmbedder checks that the embedding provider is reachable.
func (c *Checker) CheckEmbedder(ctx context.Context, e embed.Embedder) CheckResult {
	r := CheckResult{Name: "embedder", Required: true}
	if e == nil {
		r.Status, r.Message = StatusFail, "no embedder configured"
		return r
	}
	if !e.Available(ctx) {
		r.Status = StatusFail
		r.Message = fmt.Sprintf("%s is not reachable", e.ModelName())
		r.Details = "check the API key, base_url, or that the local model is pulled"
		return r
	}
	r.Status = StatusPass
	r.Message = fmt.Sprintf("%s (%d dims)", e.ModelName(), e.Dimensions())
	return r
}

// CheckVectorStore checks that the store answers and holds one point per
// corpus entry.
func (c *Checker) CheckVectorStore(ctx context.Context, s store.VectorStore, entries int) CheckResult {
	r := CheckResult{Name: "vector_store", Required: true}
	if s == nil {
		r.Status, r.Message = StatusFail, "no vector store configured"
		return r
	}
	n, err := s.Count(ctx)
	if err != nil {
		r.Status, r.Message = StatusFail, err.Error()
		return r
	}
	r.Message = fmt.Sprintf("%d vectors", n)
	if sp, ok := s.(store.StatsProvider); ok {
		st := sp.Stats(ctx)
		r.Message = fmt.Sprintf("%s: %d vectors, %d dims", st.Backend, st.Points, st.Dimensions)
	}
	r.Status = StatusPass
	if n != entries {
		r.Status = StatusWarn
		r.Details = fmt.Sprintf("corpus has %d entries; run 'persoqa ingest'", entries)
	}
	return r
}

// CheckIngest compares the ingest manifest with the current corpus.
func (c *Checker) CheckIngest(dataDir string, entries []corpus.Entry, e embed.Embedder) CheckResult {
	r := CheckResult{Name: "ingest", Required: false}
	m, err := ingest.ReadManifest(dataDir)
	switch {
	case err != nil:
		r.Status, r.Message = StatusWarn, err.Error()
	case m == nil:
		r.Status, r.Message = StatusWarn, "corpus has never been ingested"
		r.Details = "run 'persoqa ingest'"
	case e != nil && !m.Matches(corpus.Fingerprint(entries), e.ModelName()):
		r.Status, r.Message = StatusWarn, "vector index is stale"
		r.Details = "the corpus or embedding model changed; run 'persoqa ingest'"
	default:
		r.Status = StatusPass
		r.Message = fmt.Sprintf("%d entries ingested at %s", m.Entries, m.IngestedAt.Format("2006-01-02 15:04:05"))
	}
	return r
}
