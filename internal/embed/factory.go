package embed

import (
	"context"
	"fmt"
	"strings"

	"github.com/eunjujo120/perso-ai-chatbot/internal/config"
	qaerrors "github.com/eunjujo120/perso-ai-chatbot/internal/errors"
	"github.com/eunjujo120/perso-ai-chatbot/internal/tokenize"
)

// New builds the configured provider wrapped with retries, a circuit
// breaker and, when cache_size > 0, an LRU cache.
func New(ctx context.Context, cfg *config.Config, tok *tokenize.Tokenizer) (Embedder, error) {
	base, err := newProvider(ctx, cfg.Embeddings, tok)
	if err != nil {
		return nil, err
	}

	retry := qaerrors.DefaultRetryConfig()
	retry.MaxRetries = cfg.Resilience.MaxRetries
	if cfg.Resilience.InitialBackoff > 0 {
		retry.InitialDelay = cfg.Resilience.InitialBackoff
	}
	breaker := qaerrors.NewCircuitBreaker("embeddings",
		qaerrors.WithMaxFailures(cfg.Resilience.BreakerFailures),
		qaerrors.WithResetTimeout(cfg.Resilience.BreakerTimeout),
	)

	var e Embedder = NewResilientEmbedder(base, retry, breaker)
	if cfg.Embeddings.CacheSize > 0 {
		e = NewCachedEmbedder(e, cfg.Embeddings.CacheSize)
	}
	return e, nil
}

func newProvider(ctx context.Context, cfg config.EmbeddingsConfig, tok *tokenize.Tokenizer) (Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case config.ProviderGemini:
		return NewGeminiEmbedder(ctx, GeminiConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
			BaseURL:    cfg.BaseURL,
		})
	case config.ProviderOpenAI:
		return NewOpenAIEmbedder(OpenAIConfig{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
		})
	case config.ProviderOllama:
		return NewOllamaEmbedder(OllamaConfig{
			Host:       cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
		}), nil
	case config.ProviderStatic:
		return NewStaticEmbedder(tok), nil
	default:
		return nil, qaerrors.ConfigError(fmt.Sprintf("unknown embedding provider %q", cfg.Provider), nil).
			WithSuggestion("use one of: gemini, openai, ollama, static")
	}
}
