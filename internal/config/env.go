package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every service-specific environment variable.
const EnvPrefix = "PERSOQA_"

// loadDotEnv reads dir/.env into the process environment. Variables that
// are already set win.
func loadDotEnv(dir string) error {
	path := ".env"
	if dir != "" {
		path = dir + string(os.PathSeparator) + ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variables. The unprefixed names
// (GEMINI_API_KEY, QDRANT_URL, ...) are read first so PERSOQA_* can still
// override them.
func (c *Config) applyEnvOverrides() {
	setString(&c.Embeddings.APIKey, "GEMINI_API_KEY")
	setString(&c.Embeddings.Model, "EMBEDDING_MODEL")
	setString(&c.Vector.URL, "QDRANT_URL")
	setString(&c.Vector.APIKey, "QDRANT_API_KEY")
	setString(&c.Vector.Collection, "QDRANT_COLLECTION")
	setFloat(&c.Matching.ScoreThreshold, "SCORE_THRESHOLD")

	setString(&c.Corpus.Path, EnvPrefix+"CORPUS_PATH")
	setString(&c.Corpus.Format, EnvPrefix+"CORPUS_FORMAT")
	setBool(&c.Corpus.Watch, EnvPrefix+"CORPUS_WATCH")

	setFloat(&c.Matching.ScoreThreshold, EnvPrefix+"SCORE_THRESHOLD")
	setFloat(&c.Matching.MinLexical, EnvPrefix+"MIN_LEXICAL")
	setFloat(&c.Matching.LexicalStrong, EnvPrefix+"LEXICAL_STRONG")
	setFloat(&c.Matching.NeighborMargin, EnvPrefix+"NEIGHBOR_MARGIN")
	setFloat(&c.Matching.VectorWeight, EnvPrefix+"VECTOR_WEIGHT")
	setInt(&c.Matching.CandidateLimit, EnvPrefix+"CANDIDATE_LIMIT")
	setDuration(&c.Matching.EmbedTimeout, EnvPrefix+"EMBED_TIMEOUT")
	setDuration(&c.Matching.SearchTimeout, EnvPrefix+"SEARCH_TIMEOUT")
	setString(&c.Matching.FallbackMessage, EnvPrefix+"FALLBACK_MESSAGE")

	setString(&c.Embeddings.Provider, EnvPrefix+"EMBEDDINGS_PROVIDER")
	setString(&c.Embeddings.Model, EnvPrefix+"EMBEDDINGS_MODEL")
	setString(&c.Embeddings.APIKey, EnvPrefix+"EMBEDDINGS_API_KEY")
	setString(&c.Embeddings.BaseURL, EnvPrefix+"EMBEDDINGS_BASE_URL")
	setInt(&c.Embeddings.Dimensions, EnvPrefix+"EMBEDDINGS_DIMENSIONS")

	setString(&c.Vector.Backend, EnvPrefix+"VECTOR_BACKEND")
	setString(&c.Vector.Path, EnvPrefix+"VECTOR_PATH")
	setString(&c.Vector.URL, EnvPrefix+"VECTOR_URL")
	setString(&c.Vector.Collection, EnvPrefix+"VECTOR_COLLECTION")

	setString(&c.Server.Addr, EnvPrefix+"ADDR")
	setString(&c.Server.AdminToken, EnvPrefix+"ADMIN_TOKEN")
	if v := os.Getenv(EnvPrefix + "CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}

	setString(&c.Logging.Level, EnvPrefix+"LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// Malformed numeric values are ignored; Validate reports what remains.
func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			*dst = f
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			*dst = d
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
