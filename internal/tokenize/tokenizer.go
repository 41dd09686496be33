package tokenize

import (
	"sort"
	"strings"
)

// Tokenizer produces canonical semantic tokens. It is immutable after New
// and safe for concurrent use.
type Tokenizer struct {
	brand      string
	endings    []string
	particles  []string
	stopwords  map[string]struct{}
	rules      []Rule
	capability string
}

// Option configures a Tokenizer.
type Option func(*Tokenizer)

// WithBrand overrides the brand substring removed during base normalization.
func WithBrand(brand string) Option {
	return func(t *Tokenizer) {
		t.brand = strings.ToLower(brand)
	}
}

// WithExtraStopwords adds stopwords to the built-in set.
func WithExtraStopwords(words ...string) Option {
	return func(t *Tokenizer) {
		for _, w := range words {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				t.stopwords[w] = struct{}{}
			}
		}
	}
}

// WithExtraRules appends synonym rules after the built-in ones.
func WithExtraRules(rules ...Rule) Option {
	return func(t *Tokenizer) {
		for _, r := range rules {
			if r.Canonical != "" && len(r.Patterns) > 0 {
				t.rules = append(t.rules, r)
			}
		}
	}
}

// New returns a Tokenizer with the built-in tables plus any options.
func New(opts ...Option) *Tokenizer {
	t := &Tokenizer{
		brand:      DefaultBrand,
		endings:    longestFirst(DefaultEndings),
		particles:  longestFirst(DefaultParticles),
		stopwords:  make(map[string]struct{}, len(DefaultStopwords)),
		rules:      append([]Rule(nil), DefaultRules...),
		capability: CapabilityPhrase,
	}
	for _, w := range DefaultStopwords {
		t.stopwords[w] = struct{}{}
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var defaultTokenizer = New()

// Default returns the shared tokenizer with built-in tables.
func Default() *Tokenizer {
	return defaultTokenizer
}

// BaseNormalize returns the semantic base form of s.
func (t *Tokenizer) BaseNormalize(s string) string {
	return baseNormalize(s, t.brand)
}

// Tokenize returns the canonical tokens of s in order. Empty input yields nil.
func (t *Tokenizer) Tokenize(s string) []string {
	base := t.BaseNormalize(s)
	if base == "" {
		return nil
	}

	var tokens []string
	for _, raw := range strings.Split(base, " ") {
		tok := stripSuffix(raw, t.endings)
		tok = stripSuffix(tok, t.particles)
		if tok == "" || t.IsStopword(tok) {
			continue
		}
		tok = t.Canonical(tok)
		if t.IsStopword(tok) {
			continue
		}
		tokens = append(tokens, tok)
	}

	if strings.Contains(base, t.capability) {
		tokens = append(tokens, CapabilityToken)
	}
	return tokens
}

// Canonical folds token through the synonym rules; first match wins and
// unmatched tokens pass through unchanged.
func (t *Tokenizer) Canonical(token string) string {
	for _, r := range t.rules {
		if r.Matches(token) {
			return r.Canonical
		}
	}
	return token
}

// IsStopword reports whether token is in the stopword set.
func (t *Tokenizer) IsStopword(token string) bool {
	_, ok := t.stopwords[token]
	return ok
}

// Rules returns a copy of the rule list in priority order.
func (t *Tokenizer) Rules() []Rule {
	return append([]Rule(nil), t.rules...)
}

// stripSuffix removes the first matching suffix; suffixes must be sorted
// longest first so the longest match is removed.
func stripSuffix(tok string, suffixes []string) string {
	for _, s := range suffixes {
		if strings.HasSuffix(tok, s) {
			return strings.TrimSuffix(tok, s)
		}
	}
	return tok
}

func longestFirst(in []string) []string {
	out := append([]string(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		return len([]rune(out[i])) > len([]rune(out[j]))
	})
	return out
}
