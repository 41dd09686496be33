package config

import (
	"fmt"
	"strings"

	qaerrors "github.com/eunjujo120/perso-ai-chatbot/internal/errors"
)

// Embedding providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderStatic = "static"
)

// Vector store backends.
const (
	BackendSQLite = "sqlite"
	BackendHNSW   = "hnsw"
	BackendQdrant = "qdrant"
)

// Validate checks the configuration. Every failure is a ConfigurationError:
// the process must not serve traffic with it.
func (c *Config) Validate() error {
	m := c.Matching
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"matching.score_threshold", m.ScoreThreshold},
		{"matching.min_lexical", m.MinLexical},
		{"matching.lexical_strong", m.LexicalStrong},
		{"matching.neighbor_margin", m.NeighborMargin},
		{"matching.vector_weight", m.VectorWeight},
	} {
		if f.value < 0 || f.value > 1 {
			return qaerrors.ConfigError(fmt.Sprintf("%s must be between 0 and 1, got %g", f.name, f.value), nil)
		}
	}
	if m.MinLexical > m.LexicalStrong {
		return qaerrors.ConfigError(fmt.Sprintf(
			"matching.min_lexical (%g) must not exceed matching.lexical_strong (%g)", m.MinLexical, m.LexicalStrong), nil)
	}
	if m.CandidateLimit < 1 {
		return qaerrors.ConfigError(fmt.Sprintf("matching.candidate_limit must be at least 1, got %d", m.CandidateLimit), nil)
	}
	if m.EmbedTimeout < 0 || m.SearchTimeout < 0 {
		return qaerrors.ConfigError("matching timeouts must not be negative", nil)
	}

	if c.Corpus.Path == "" {
		return qaerrors.MissingConfig("corpus.path")
	}
	switch strings.ToLower(c.Corpus.Format) {
	case "", "xlsx", "csv", "yaml", "json":
	default:
		return qaerrors.ConfigError(fmt.Sprintf("unknown corpus.format %q", c.Corpus.Format), nil).
			WithSuggestion("use xlsx, csv, yaml or json, or leave it empty to use the file extension")
	}

	switch strings.ToLower(c.Embeddings.Provider) {
	case ProviderGemini:
		if c.Embeddings.APIKey == "" {
			return qaerrors.MissingConfig("GEMINI_API_KEY")
		}
	case ProviderOpenAI:
		if c.Embeddings.APIKey == "" && c.Embeddings.BaseURL == "" {
			return qaerrors.MissingConfig("embeddings.api_key")
		}
	case ProviderOllama, ProviderStatic:
	default:
		return qaerrors.ConfigError(fmt.Sprintf(
			"embeddings.provider must be gemini, openai, ollama or static, got %q", c.Embeddings.Provider), nil)
	}
	if c.Embeddings.BatchSize < 1 {
		return qaerrors.ConfigError("embeddings.batch_size must be at least 1", nil)
	}

	switch strings.ToLower(c.Vector.Backend) {
	case BackendSQLite, BackendHNSW:
		if c.Vector.Path == "" {
			return qaerrors.MissingConfig("vector.path")
		}
	case BackendQdrant:
		if c.Vector.URL == "" {
			return qaerrors.MissingConfig("QDRANT_URL")
		}
		if c.Vector.Collection == "" {
			return qaerrors.MissingConfig("QDRANT_COLLECTION")
		}
	default:
		return qaerrors.ConfigError(fmt.Sprintf(
			"vector.backend must be sqlite, hnsw or qdrant, got %q", c.Vector.Backend), nil)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return qaerrors.ConfigError(fmt.Sprintf(
			"logging.level must be debug, info, warn or error, got %q", c.Logging.Level), nil)
	}

	if c.Server.MaxQuestionLen < 1 {
		return qaerrors.ConfigError("server.max_question_len must be at least 1", nil)
	}
	return nil
}

// Redacted returns a copy safe to print, with credentials masked.
func (c *Config) Redacted() *Config {
	cp := *c
	cp.Embeddings.APIKey = mask(c.Embeddings.APIKey)
	cp.Vector.APIKey = mask(c.Vector.APIKey)
	cp.Server.AdminToken = mask(c.Server.AdminToken)
	return &cp
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
