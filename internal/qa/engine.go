package qa

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/eunjujo120/perso-ai-chatbot/internal/config"
	"github.com/eunjujo120/perso-ai-chatbot/internal/corpus"
	qaerrors "github.com/eunjujo120/perso-ai-chatbot/internal/errors"
	"github.com/eunjujo120/perso-ai-chatbot/internal/exact"
	"github.com/eunjujo120/perso-ai-chatbot/internal/lexical"
	"github.com/eunjujo120/perso-ai-chatbot/internal/store"
)

// Embedder embeds a user question.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever returns the nearest corpus questions, best first.
type Retriever interface {
	Search(ctx context.Context, vector []float32, limit int) ([]store.Hit, error)
}

// Event describes one answered request.
type Event struct {
	Question string
	Outcome  Outcome
	Score    *float64
	Latency  time.Duration
	// Candidates is the number of well-formed candidates scored.
	Candidates int
	Err        error
}

// Recorder receives an Event after every Answer call.
type Recorder interface {
	Record(Event)
}

// Engine answers questions against an exact index, an embedder and a
// vector retriever. It is safe for concurrent use.
type Engine struct {
	index     exact.Source
	embedder  Embedder
	retriever Retriever
	scorer    lexical.Scorer

	thresholds     Thresholds
	candidateLimit int
	embedTimeout   time.Duration
	searchTimeout  time.Duration
	fallback       string

	logger   *slog.Logger
	recorder Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithScorer replaces the default lexical scorer.
func WithScorer(s lexical.Scorer) Option {
	return func(e *Engine) {
		if s != nil {
			e.scorer = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecorder reports every request to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithFallbackMessage overrides the "no answer" text.
func WithFallbackMessage(msg string) Option {
	return func(e *Engine) {
		if msg != "" {
			e.fallback = msg
		}
	}
}

// NewEngine creates an Engine. Zero timeouts disable the per-call bound.
func NewEngine(index exact.Source, embedder Embedder, retriever Retriever, cfg config.MatchingConfig, opts ...Option) *Engine {
	e := &Engine{
		index:     index,
		embedder:  embedder,
		retriever: retriever,
		scorer:    lexical.NewScorer(),
		thresholds: Thresholds{
			ScoreThreshold: cfg.ScoreThreshold,
			MinLexical:     cfg.MinLexical,
			LexicalStrong:  cfg.LexicalStrong,
			NeighborMargin: cfg.NeighborMargin,
			VectorWeight:   cfg.VectorWeight,
		},
		candidateLimit: cfg.CandidateLimit,
		embedTimeout:   cfg.EmbedTimeout,
		searchTimeout:  cfg.SearchTimeout,
		fallback:       DefaultFallbackMessage,
		logger:         slog.Default(),
	}
	if e.candidateLimit <= 0 {
		e.candidateLimit = 20
	}
	WithFallbackMessage(cfg.FallbackMessage)(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Thresholds returns the decision knobs in use.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// FallbackMessage returns the "no answer" text.
func (e *Engine) FallbackMessage() string {
	return e.fallback
}

// Answer resolves question to a corpus answer or the fallback message.
// Embedding and retrieval failures are returned as *errors.QAError.
func (e *Engine) Answer(ctx context.Context, question string) (Response, error) {
	start := time.Now()
	resp, n, err := e.answer(ctx, question)

	ev := Event{Question: question, Outcome: resp.Outcome, Score: resp.Score,
		Latency: time.Since(start), Candidates: n, Err: err}
	e.log(ev)
	if e.recorder != nil {
		e.recorder.Record(ev)
	}
	return resp, err
}

func (e *Engine) answer(ctx context.Context, question string) (Response, int, error) {
	idx, err := e.index.Current(ctx)
	if err != nil {
		return Response{}, 0, err
	}
	if m, ok := idx.Lookup(question); ok {
		return accept(corpus.Entry{Question: m.Question, Answer: m.Answer}, 1.0, OutcomeExact), 0, nil
	}

	vec, err := e.embed(ctx, question)
	if err != nil {
		return Response{}, 0, err
	}
	hits, err := e.search(ctx, vec)
	if err != nil {
		return Response{}, 0, err
	}

	cands := e.candidates(question, hits)
	return Decide(cands, e.thresholds, e.fallback), len(cands), nil
}

func (e *Engine) embed(ctx context.Context, question string) ([]float32, error) {
	ctx, cancel := withTimeout(ctx, e.embedTimeout)
	defer cancel()

	vec, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return nil, qaerrors.EmbeddingError(err, timedOut(ctx, err))
	}
	return vec, nil
}

func (e *Engine) search(ctx context.Context, vec []float32) ([]store.Hit, error) {
	ctx, cancel := withTimeout(ctx, e.searchTimeout)
	defer cancel()

	hits, err := e.retriever.Search(ctx, vec, e.candidateLimit)
	if err != nil {
		return nil, qaerrors.RetrievalError(err, timedOut(ctx, err))
	}
	return hits, nil
}

// candidates drops hits without a question or answer and scores the rest.
func (e *Engine) candidates(question string, hits []store.Hit) []Candidate {
	out := make([]Candidate, 0, len(hits))
	for i, h := range hits {
		if !h.Payload.Complete() {
			e.logger.Debug("candidate_skipped",
				slog.Int("rank", i),
				slog.Uint64("id", h.ID),
				slog.Float64("vector_score", h.Score))
			continue
		}
		q := h.Payload.Question
		out = append(out, Candidate{
			Entry:        corpus.Entry{Question: q, Answer: h.Payload.Answer},
			VectorScore:  h.Score,
			LexicalScore: e.scorer.Similarity(question, q),
		})
	}
	return out
}

func (e *Engine) log(ev Event) {
	if ev.Err != nil {
		e.logger.Warn("answer_failed",
			append([]any{slog.Duration("latency", ev.Latency)}, qaerrors.LogAttrs(ev.Err)...)...)
		return
	}
	attrs := []any{
		slog.String("outcome", string(ev.Outcome)),
		slog.Int("candidates", ev.Candidates),
		slog.Duration("latency", ev.Latency),
	}
	if ev.Score != nil {
		attrs = append(attrs, slog.Float64("score", *ev.Score))
	}
	e.logger.Info("answer_resolved", attrs...)
	e.logger.Debug("answer_question", slog.String("question", ev.Question), slog.String("outcome", string(ev.Outcome)))
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func timedOut(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}
