// Package exact implements the exact-match fast path: a read-only map from
// the strict normalization of each stored question to its entry.
package exact

import (
	"github.com/eunjujo120/perso-ai-chatbot/internal/corpus"
	"github.com/eunjujo120/perso-ai-chatbot/internal/tokenize"
)

// Match is the stored question and answer found for a lookup.
type Match struct {
	Question string
	Answer   string
}

// Collision records two stored questions that share a key. Winner is the
// later entry, which replaced Loser.
type Collision struct {
	Key    string
	Winner string
	Loser  string
}

// Stats describes a built index.
type Stats struct {
	Entries    int         `json:"entries"`
	Keys       int         `json:"keys"`
	Collisions []Collision `json:"collisions,omitempty"`
}

// Index is immutable after Build and safe for concurrent reads.
type Index struct {
	entries    map[string]Match
	size       int
	collisions []Collision
}

// Build indexes entries in order; on a key collision the later entry wins.
func Build(entries []corpus.Entry) *Index {
	idx := &Index{
		entries: make(map[string]Match, len(entries)),
		size:    len(entries),
	}
	for _, e := range entries {
		key := tokenize.StrictKey(e.Question)
		if prev, ok := idx.entries[key]; ok {
			idx.collisions = append(idx.collisions, Collision{
				Key:    key,
				Winner: e.Question,
				Loser:  prev.Question,
			})
		}
		idx.entries[key] = Match{Question: e.Question, Answer: e.Answer}
	}
	return idx
}

// Lookup strictly normalizes question and returns the stored match.
func (idx *Index) Lookup(question string) (Match, bool) {
	if idx == nil {
		return Match{}, false
	}
	m, ok := idx.entries[tokenize.StrictKey(question)]
	return m, ok
}

// Len returns the number of distinct keys.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}

// Stats returns build statistics.
func (idx *Index) Stats() Stats {
	if idx == nil {
		return Stats{}
	}
	return Stats{
		Entries:    idx.size,
		Keys:       len(idx.entries),
		Collisions: append([]Collision(nil), idx.collisions...),
	}
}
