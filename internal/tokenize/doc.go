// Package tokenize turns raw question text into comparison keys.
//
// StrictKey produces the exact-match key: two questions are the same
// question iff their keys are byte-equal. Tokenizer.Tokenize produces the
// ordered canonical tokens used for lexical similarity: Korean
// sentence-final endings and case particles are stripped, stopwords are
// dropped, and near-synonyms are folded into one representative token by an
// ordered rule list where the first matching rule wins.
package tokenize
