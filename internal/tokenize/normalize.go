package tokenize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultBrand is removed from text before tokenizing, so the product name
// never counts as shared vocabulary.
const DefaultBrand = "perso.ai"

// punctuation replaced (semantic) or removed (strict).
const punctuation = "?？!,."

// StrictKey returns the exact-match key for s: NFC, trimmed, lowercased,
// with ? ？ ! , . and every whitespace rune removed.
func StrictKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))

	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || strings.ContainsRune(punctuation, r) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// BaseNormalize returns the semantic base form of s with the default brand.
func BaseNormalize(s string) string {
	return baseNormalize(s, DefaultBrand)
}

func baseNormalize(s, brand string) string {
	s = strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
	if brand != "" {
		s = strings.ReplaceAll(s, brand, " ")
	}
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return ' '
		}
		return r
	}, s)
	// Fields splits on unicode.IsSpace runs and drops the ends.
	return strings.Join(strings.Fields(s), " ")
}
