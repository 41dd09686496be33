// Package corpus loads the question/answer pairs the service answers from.
package corpus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Entry is one stored question and its verbatim answer.
type Entry struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// Loader returns the corpus in source order.
type Loader interface {
	Load(ctx context.Context) ([]Entry, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) ([]Entry, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context) ([]Entry, error) {
	return f(ctx)
}

// Static is a Loader over an in-memory slice.
type Static []Entry

// Load returns a cleaned copy of the entries.
func (s Static) Load(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Clean(s), nil
}

// Clean trims both fields and drops entries with an empty question or
// answer, preserving order.
func Clean(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		q := strings.TrimSpace(e.Question)
		a := strings.TrimSpace(e.Answer)
		if q == "" || a == "" {
			continue
		}
		out = append(out, Entry{Question: q, Answer: a})
	}
	return out
}

// Fingerprint hashes the ordered entries. Two loads with the same
// fingerprint produce the same vector index.
func Fingerprint(entries []Entry) string {
	h := sha256.New()
	for _, e := range entries {
		h.Write([]byte(e.Question))
		h.Write([]byte{0})
		h.Write([]byte(e.Answer))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Questions returns the questions of entries in order.
func Questions(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Question
	}
	return out
}
