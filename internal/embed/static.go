package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/eunjujo120/perso-ai-chatbot/internal/tokenize"
)

const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3

	staticModelName = "static-hash-256"
)

// StaticEmbedder hashes canonical tokens and character trigrams into a
// fixed-size vector. It needs no network and is deterministic, so paraphrases
// that share canonical tokens land close together.
type StaticEmbedder struct {
	tok *tokenize.Tokenizer

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*StaticEmbedder)(nil)

// NewStaticEmbedder uses tok for canonical tokens; nil means the default.
func NewStaticEmbedder(tok *tokenize.Tokenizer) *StaticEmbedder {
	if tok == nil {
		tok = tokenize.Default()
	}
	return &StaticEmbedder{tok: tok}
}

// Embed returns a unit vector, or a zero vector for blank text.
func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, fmt.Errorf("embedder is closed")
	}
	return normalizeVector(e.vector(text)), nil
}

// EmbedBatch embeds each text.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *StaticEmbedder) vector(text string) []float32 {
	v := make([]float32, StaticDimensions)
	for _, tok := range e.tok.Tokenize(text) {
		v[hashIndex(tok)] += tokenWeight
	}

	runes := []rune(e.tok.BaseNormalize(text))
	for i := 0; i+ngramSize <= len(runes); i++ {
		gram := string(runes[i : i+ngramSize])
		v[hashIndex(gram)] += ngramWeight
	}
	return v
}

func hashIndex(s string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % StaticDimensions)
}

// Dimensions returns StaticDimensions.
func (e *StaticEmbedder) Dimensions() int {
	return StaticDimensions
}

// ModelName identifies the hashing scheme.
func (e *StaticEmbedder) ModelName() string {
	return staticModelName
}

// Available is true until Close.
func (e *StaticEmbedder) Available(context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Close marks the embedder closed.
func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return nil
}
