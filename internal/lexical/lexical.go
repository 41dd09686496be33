// Package lexical scores how similar two questions are by their canonical
// tokens: a blend of token-set Jaccard overlap and difflib's matching-block
// ratio over the space-joined token sequences.
package lexical

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/eunjujo120/perso-ai-chatbot/internal/tokenize"
)

// Default blend weights.
const (
	DefaultJaccardWeight  = 0.7
	DefaultSequenceWeight = 0.3
)

// Scorer rates the lexical similarity of two questions in [0, 1].
type Scorer interface {
	Similarity(a, b string) float64
}

// TokenScorer is the Scorer used in production.
type TokenScorer struct {
	tokenizer      *tokenize.Tokenizer
	jaccardWeight  float64
	sequenceWeight float64
}

// Option configures a TokenScorer.
type Option func(*TokenScorer)

// WithTokenizer replaces the default tokenizer.
func WithTokenizer(t *tokenize.Tokenizer) Option {
	return func(s *TokenScorer) {
		if t != nil {
			s.tokenizer = t
		}
	}
}

// NewScorer returns a TokenScorer with the default weights.
func NewScorer(opts ...Option) *TokenScorer {
	s := &TokenScorer{
		tokenizer:      tokenize.Default(),
		jaccardWeight:  DefaultJaccardWeight,
		sequenceWeight: DefaultSequenceWeight,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var defaultScorer = NewScorer()

// Similarity scores a and b with the default tokenizer.
func Similarity(a, b string) float64 {
	return defaultScorer.Similarity(a, b)
}

// Similarity returns 0 when either side has no canonical tokens or the two
// share none; the sequence term only refines scores of overlapping questions.
func (s *TokenScorer) Similarity(a, b string) float64 {
	ta := s.tokenizer.Tokenize(a)
	tb := s.tokenizer.Tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	jaccard := Jaccard(ta, tb)
	if jaccard == 0 {
		return 0
	}
	return s.jaccardWeight*jaccard +
		s.sequenceWeight*SequenceRatio(strings.Join(ta, " "), strings.Join(tb, " "))
}

// Jaccard returns |A ∩ B| / |A ∪ B| over the token sets; 0 for two empty sets.
func Jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}

	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// SequenceRatio is difflib's SequenceMatcher ratio, 2·M / (|a|+|b|), with
// strings compared rune by rune. The autojunk heuristic applies to b once it
// reaches 200 runes, so the ratio is not guaranteed symmetric for long input.
func SequenceRatio(a, b string) float64 {
	return difflib.NewMatcher(runes(a), runes(b)).Ratio()
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
