// Package embed turns text into dense vectors for semantic retrieval.
//
// Providers: Gemini (genai), OpenAI-compatible endpoints (langchaingo), a
// local Ollama server, and a deterministic offline StaticEmbedder. Any of
// them can be wrapped with CachedEmbedder and ResilientEmbedder.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// MaxBatchSize bounds a single upstream batch request.
	MaxBatchSize = 100

	// DefaultBatchSize is the batch size used when none is configured.
	DefaultBatchSize = 32

	// DefaultTimeout bounds provider health checks.
	DefaultTimeout = 10 * time.Second

	// StaticDimensions is the vector size of StaticEmbedder.
	StaticDimensions = 256
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed embeds a user question.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds corpus questions, preserving input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector size, or 0 until it is known.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available reports whether the provider answers.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector scales v to unit length. Zero vectors are returned as-is.
func normalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	mag := math.Sqrt(sum)
	if mag == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / mag)
	}
	return out
}

// batches splits n items into [start, end) windows of at most size.
func batches(n, size int) [][2]int {
	if size <= 0 || size > MaxBatchSize {
		size = MaxBatchSize
	}
	var out [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}
