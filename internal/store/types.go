// Package store holds the vector index that backs semantic retrieval.
//
// Three backends implement VectorStore: an HNSW graph persisted to a file,
// an exhaustive-scan SQLite table, and a Qdrant collection over REST. All
// of them score hits by cosine similarity, higher is closer.
package store

import (
	"context"
	"fmt"
	"math"

	qaerrors "github.com/eunjujo120/perso-ai-chatbot/internal/errors"
)

// DefaultSource tags points ingested from the spreadsheet corpus.
const DefaultSource = "xlsx"

// Payload is the Q&A pair stored beside a vector.
type Payload struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Source   string `json:"source,omitempty"`
}

// Complete reports whether both question and answer are non-empty.
// Whitespace is kept as stored.
func (p *Payload) Complete() bool {
	return p != nil && p.Question != "" && p.Answer != ""
}

// Point is one vector to index. IDs are positive and stable per corpus row.
type Point struct {
	ID      uint64
	Vector  []float32
	Payload Payload
}

// Hit is a search result. Payload is nil when the backend returned none.
type Hit struct {
	ID      uint64
	Score   float64
	Payload *Payload
}

// VectorStore is a nearest-neighbour index over question embeddings.
type VectorStore interface {
	// Search returns up to limit hits, best first.
	Search(ctx context.Context, vector []float32, limit int) ([]Hit, error)

	// Replace swaps the whole contents for points of dims length. A
	// concurrent Search sees either the old or the new points, and a
	// failed Replace leaves the old points in place.
	Replace(ctx context.Context, dims int, points []Point) error

	// Upsert inserts or replaces points.
	Upsert(ctx context.Context, points []Point) error

	// Count returns the number of stored points.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// Stats describes a store for status output.
type Stats struct {
	Backend    string `json:"backend"`
	Points     int    `json:"points"`
	Dimensions int    `json:"dimensions"`
}

func dimensionMismatch(expected, got int) error {
	return qaerrors.New(qaerrors.ErrCodeDimensionMismatch,
		fmt.Sprintf("dimension mismatch: expected %d, got %d", expected, got), nil).
		WithSuggestion("the embedding model changed; run 'persoqa ingest' to rebuild the index")
}

// PointsFrom numbers entries 1..n in corpus order.
func PointsFrom(questions, answers []string, vectors [][]float32, source string) ([]Point, error) {
	if len(questions) != len(answers) || len(questions) != len(vectors) {
		return nil, fmt.Errorf("length mismatch: %d questions, %d answers, %d vectors",
			len(questions), len(answers), len(vectors))
	}
	if source == "" {
		source = DefaultSource
	}
	points := make([]Point, len(questions))
	for i := range questions {
		points[i] = Point{
			ID:      uint64(i + 1),
			Vector:  vectors[i],
			Payload: Payload{Question: questions[i], Answer: answers[i], Source: source},
		}
	}
	return points, nil
}

func normalizeInPlace(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}

func normalized(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	normalizeInPlace(out)
	return out
}
