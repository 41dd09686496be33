package embed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIConfig configures OpenAIEmbedder.
type OpenAIConfig struct {
	// BaseURL targets an OpenAI-compatible server. Empty means api.openai.com.
	BaseURL string
	APIKey  string
	Model   string
	// Dimensions is informational; 0 means learn it from the first response.
	Dimensions int
	BatchSize  int
}

// OpenAIEmbedder embeds through any OpenAI-compatible embeddings API.
type OpenAIEmbedder struct {
	embedder embeddings.Embedder
	model    string
	logger   *slog.Logger

	mu   sync.RWMutex
	dims int
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder builds a langchaingo embedder for cfg.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	token := cfg.APIKey
	if token == "" {
		// local compatible servers accept any token
		token = "none"
	}

	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	emb, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(cfg.BatchSize),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &OpenAIEmbedder{
		embedder: emb,
		model:    cfg.Model,
		dims:     cfg.Dimensions,
		logger:   slog.Default().With("component", "openai-embedder"),
	}, nil
}

// Embed embeds a single question.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Debug("embed_query_failed", slog.String("error", err.Error()))
		return nil, err
	}
	e.observe(vec)
	return vec, nil
}

// EmbedBatch embeds texts in order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Debug("embed_documents_failed", slog.Int("count", len(texts)), slog.String("error", err.Error()))
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(vecs), len(texts))
	}
	if len(vecs) > 0 {
		e.observe(vecs[0])
	}
	return vecs, nil
}

func (e *OpenAIEmbedder) observe(vec []float32) {
	if len(vec) == 0 {
		return
	}
	e.mu.Lock()
	e.dims = len(vec)
	e.mu.Unlock()
}

// Dimensions returns the last observed vector size.
func (e *OpenAIEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

// ModelName returns the embedding model.
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// Available embeds a short test string.
func (e *OpenAIEmbedder) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()
	_, err := e.Embed(ctx, "ping")
	return err == nil
}

// Close is a no-op.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
