package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/eunjujo120/perso-ai-chatbot/internal/config"
	qaerrors "github.com/eunjujo120/perso-ai-chatbot/internal/errors"
)

// StatsProvider is implemented by stores that can describe themselves.
type StatsProvider interface {
	Stats(ctx context.Context) Stats
}

// New opens the configured backend wrapped with retries and a breaker.
func New(cfg *config.Config) (VectorStore, error) {
	inner, err := open(cfg.Vector)
	if err != nil {
		return nil, err
	}

	retry := qaerrors.DefaultRetryConfig()
	retry.MaxRetries = cfg.Resilience.MaxRetries
	if cfg.Resilience.InitialBackoff > 0 {
		retry.InitialDelay = cfg.Resilience.InitialBackoff
	}
	breaker := qaerrors.NewCircuitBreaker("vector-store",
		qaerrors.WithMaxFailures(cfg.Resilience.BreakerFailures),
		qaerrors.WithResetTimeout(cfg.Resilience.BreakerTimeout),
	)
	return NewResilientStore(inner, retry, breaker), nil
}

func open(cfg config.VectorConfig) (VectorStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.Path)
	case config.BackendHNSW:
		return NewHNSWStore(cfg.Path)
	case config.BackendQdrant:
		return NewQdrantStore(QdrantConfig{
			URL:        cfg.URL,
			APIKey:     cfg.APIKey,
			Collection: cfg.Collection,
		})
	default:
		return nil, qaerrors.ConfigError(fmt.Sprintf("unknown vector backend %q", cfg.Backend), nil).
			WithSuggestion("use one of: sqlite, hnsw, qdrant")
	}
}
