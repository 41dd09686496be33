package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/eunjujo120/perso-ai-chatbot/internal/config"
	"github.com/eunjujo120/perso-ai-chatbot/internal/corpus"
	"github.com/eunjujo120/perso-ai-chatbot/internal/embed"
	"github.com/eunjujo120/perso-ai-chatbot/internal/exact"
	"github.com/eunjujo120/perso-ai-chatbot/internal/ingest"
	"github.com/eunjujo120/perso-ai-chatbot/internal/lexical"
	"github.com/eunjujo120/perso-ai-chatbot/internal/logging"
	"github.com/eunjujo120/perso-ai-chatbot/internal/mcp"
	"github.com/eunjujo120/perso-ai-chatbot/internal/qa"
	"github.com/eunjujo120/perso-ai-chatbot/internal/store"
	"github.com/eunjujo120/perso-ai-chatbot/internal/telemetry"
	"github.com/eunjujo120/perso-ai-chatbot/internal/tokenize"
)

// TelemetryFileName is the telemetry database inside the data directory.
const TelemetryFileName = "telemetry.db"

// appOptions controls how an app is assembled for a command.
type appOptions struct {
	// stderrLogs mirrors log lines to stderr. Interactive and stdio
	// commands keep logs in the file only.
	stderrLogs bool
	progress   func(done, total int)
}

// app wires every component a command may need. Build it with newApp and
// release it with Close.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	tok      *tokenize.Tokenizer
	loader   *corpus.FileLoader
	embedder embed.Embedder
	store    store.VectorStore
	index    *exact.Manager
	engine   *qa.Engine
	reloader *ingest.Reloader
	metrics  *telemetry.AnswerMetrics

	closers []func() error
}

var _ mcp.StatusProvider = (*app)(nil)

// loadConfig loads and validates the configuration for the --dir project.
func loadConfig() (*config.Config, error) {
	dir, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}
	return config.Load(dir)
}

// setupLogging installs the default logger described by cfg.
func setupLogging(cfg config.LoggingConfig, stderr bool) (*slog.Logger, func(), error) {
	lc := logging.DefaultConfig()
	lc.Level = cfg.Level
	lc.WriteToStderr = stderr
	if cfg.MaxSizeMB > 0 {
		lc.MaxSizeMB = cfg.MaxSizeMB
	}
	if cfg.MaxFiles > 0 {
		lc.MaxFiles = cfg.MaxFiles
	}
	if debugMode {
		lc.Level = "debug"
	}
	switch {
	case !cfg.File:
		lc.FilePath = ""
	case cfg.Dir != "":
		lc.FilePath = filepath.Join(cfg.Dir, logging.LogFileName)
	}

	logger, cleanup, err := logging.Setup(lc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	slog.SetDefault(logger)
	return logger, cleanup, nil
}

func newTokenizer(cfg config.TokenizerConfig) *tokenize.Tokenizer {
	var opts []tokenize.Option
	if cfg.Brand != "" {
		opts = append(opts, tokenize.WithBrand(cfg.Brand))
	}
	if len(cfg.ExtraStopwords) > 0 {
		opts = append(opts, tokenize.WithExtraStopwords(cfg.ExtraStopwords...))
	}
	if len(cfg.ExtraSynonyms) > 0 {
		opts = append(opts, tokenize.WithExtraRules(cfg.ExtraSynonyms...))
	}
	return tokenize.New(opts...)
}

func newLoader(cfg config.CorpusConfig) (*corpus.FileLoader, error) {
	opts := []corpus.FileOption{corpus.WithColumns(cfg.QuestionColumn, cfg.AnswerColumn)}
	if cfg.Format != "" {
		opts = append(opts, corpus.WithFormat(corpus.Format(strings.ToLower(cfg.Format))))
	}
	return corpus.NewFileLoader(cfg.Path, opts...)
}

// newApp loads the configuration and builds the answer pipeline.
func newApp(ctx context.Context, opts appOptions) (a *app, err error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a = &app{cfg: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	logger, cleanup, err := setupLogging(cfg.Logging, opts.stderrLogs)
	if err != nil {
		return nil, err
	}
	a.logger = logger
	a.closers = append(a.closers, func() error { cleanup(); return nil })

	a.tok = newTokenizer(cfg.Tokenizer)

	a.loader, err = newLoader(cfg.Corpus)
	if err != nil {
		return nil, err
	}

	a.embedder, err = embed.New(ctx, cfg, a.tok)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.embedder.Close)

	a.store, err = store.New(cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.store.Close)

	var tstore telemetry.Store
	if ts, terr := telemetry.OpenSQLiteStore(filepath.Join(cfg.DataDir(), TelemetryFileName)); terr != nil {
		logger.Warn("telemetry_store_unavailable", slog.String("error", terr.Error()))
	} else {
		tstore = ts
	}
	a.metrics = telemetry.NewAnswerMetrics(tstore, a.tok, telemetry.DefaultConfig())
	a.closers = append(a.closers, a.metrics.Close)

	a.index = exact.NewManager(a.loader, exact.WithLogger(logger))

	engineOpts := []qa.Option{
		qa.WithScorer(lexical.NewScorer(lexical.WithTokenizer(a.tok))),
		qa.WithLogger(logger),
		qa.WithRecorder(a.metrics),
	}
	if cfg.Matching.FallbackMessage != "" {
		engineOpts = append(engineOpts, qa.WithFallbackMessage(cfg.Matching.FallbackMessage))
	}
	a.engine = qa.NewEngine(a.index, a.embedder, a.store, cfg.Matching, engineOpts...)

	reloadOpts := []ingest.Option{
		ingest.WithBatchSize(cfg.Embeddings.BatchSize),
		ingest.WithWorkers(cfg.Embeddings.Workers),
		ingest.WithBackend(cfg.Vector.Backend),
		ingest.WithLogger(logger),
	}
	if opts.progress != nil {
		reloadOpts = append(reloadOpts, ingest.WithProgress(opts.progress))
	}
	a.reloader = ingest.NewReloader(a.loader, a.embedder, a.store, a.index, cfg.DataDir(), reloadOpts...)

	logger.Debug("app_ready",
		slog.String("corpus", cfg.Corpus.Path),
		slog.String("provider", cfg.Embeddings.Provider),
		slog.String("backend", cfg.Vector.Backend))
	return a, nil
}

// warm brings the vector index in line with the corpus. Failure is logged
// and tolerated: exact matches still work without vectors.
func (a *app) warm(ctx context.Context) {
	res, err := a.reloader.Reload(ctx, false)
	if err != nil {
		a.logger.Warn("ingest_failed", slog.String("error", err.Error()))
		return
	}
	a.logger.Debug("ingest_checked",
		slog.Int("entries", res.Entries),
		slog.Bool("skipped", res.Skipped))
}

// CorpusStatus reports the loaded corpus and index state.
func (a *app) CorpusStatus(ctx context.Context) (mcp.CorpusStatus, error) {
	st := mcp.CorpusStatus{
		CorpusPath: a.cfg.Corpus.Path,
		Backend:    a.cfg.Vector.Backend,
		Model:      a.embedder.ModelName(),
		Dimensions: a.embedder.Dimensions(),
		Available:  a.embedder.Available(ctx),
	}

	idx, err := a.index.Current(ctx)
	if err != nil {
		return st, err
	}
	stats := idx.Stats()
	st.Entries = stats.Entries
	st.ExactKeys = stats.Keys
	st.Collisions = len(stats.Collisions)

	if n, err := a.store.Count(ctx); err == nil {
		st.Vectors = n
	}
	if m, err := ingest.ReadManifest(a.cfg.DataDir()); err == nil && m != nil {
		st.Fingerprint = m.Fingerprint
		st.LastIngest = m.IngestedAt.Format(time.RFC3339)
		if m.Dimensions > 0 {
			st.Dimensions = m.Dimensions
		}
	}
	return st, nil
}

// Close releases components in reverse construction order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
