package embed

import (
	"context"
	"math"
	"sync/atomic"
)

// countingEmbedder returns a vector derived from text length and counts calls.
type countingEmbedder struct {
	embedCalls atomic.Int32
	batchCalls atomic.Int32
	batchSeen  atomic.Int32
	failFirst  atomic.Int32
	err        error
}

func (c *countingEmbedder) fail() error {
	if c.failFirst.Load() > 0 {
		c.failFirst.Add(-1)
		return c.err
	}
	return nil
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.embedCalls.Add(1)
	if err := c.fail(); err != nil {
		return nil, err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	c.batchCalls.Add(1)
	c.batchSeen.Add(int32(len(texts)))
	if err := c.fail(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 2}
	}
	return out, nil
}

func (c *countingEmbedder) Dimensions() int                { return 2 }
func (c *countingEmbedder) ModelName() string              { return "counting" }
func (c *countingEmbedder) Available(context.Context) bool { return true }
func (c *countingEmbedder) Close() error                   { return nil }

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, ma, mb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		ma += float64(a[i]) * float64(a[i])
		mb += float64(b[i]) * float64(b[i])
	}
	if ma == 0 || mb == 0 {
		return 0
	}
	return dot / (math.Sqrt(ma) * math.Sqrt(mb))
}
