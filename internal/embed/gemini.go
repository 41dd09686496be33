package embed

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

// Gemini task types. Questions are embedded as queries, corpus entries as
// documents.
const (
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"

	DefaultGeminiModel      = "text-embedding-004"
	DefaultGeminiDimensions = 768
)

// GeminiConfig configures GeminiEmbedder.
type GeminiConfig struct {
	APIKey     string
	Model      string
	Dimensions int
	BatchSize  int
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// GeminiEmbedder calls the Gemini embedContent API.
type GeminiEmbedder struct {
	client *genai.Client
	cfg    GeminiConfig

	mu     sync.RWMutex
	dims   int
	closed bool
}

var _ Embedder = (*GeminiEmbedder)(nil)

// NewGeminiEmbedder creates a Gemini client. It does not contact the API.
func NewGeminiEmbedder(ctx context.Context, cfg GeminiConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	dims := cfg.Dimensions
	if dims == 0 {
		dims = DefaultGeminiDimensions
	}
	return &GeminiEmbedder{client: client, cfg: cfg, dims: dims}, nil
}

// Embed embeds a question with the RETRIEVAL_QUERY task type.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text}, TaskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds corpus questions with the RETRIEVAL_DOCUMENT task type.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	out := make([][]float32, 0, len(texts))
	for _, b := range batches(len(texts), e.cfg.BatchSize) {
		vecs, err := e.embed(ctx, texts[b[0]:b[1]], TaskRetrievalDocument)
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch %d-%d: %w", b[0], b[1], err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *GeminiEmbedder) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embedder is closed")
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	cfg := &genai.EmbedContentConfig{TaskType: task}
	if e.cfg.Dimensions > 0 {
		d := int32(e.cfg.Dimensions)
		cfg.OutputDimensionality = &d
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.cfg.Model, contents, cfg)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", got, len(texts))
	}

	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("gemini returned an empty embedding at %d", i)
		}
		out[i] = emb.Values
	}

	e.mu.Lock()
	e.dims = len(out[0])
	e.mu.Unlock()
	return out, nil
}

// Dimensions returns the configured or last observed vector size.
func (e *GeminiEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

// ModelName returns the Gemini model.
func (e *GeminiEmbedder) ModelName() string {
	return e.cfg.Model
}

// Available embeds a short test string.
func (e *GeminiEmbedder) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()
	_, err := e.Embed(ctx, "ping")
	return err == nil
}

// Close marks the embedder closed.
func (e *GeminiEmbedder) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return nil
}
