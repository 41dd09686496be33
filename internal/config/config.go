// Package config loads the service configuration.
//
// Values are layered in order of increasing precedence:
//  1. Hardcoded defaults (NewConfig)
//  2. User config (~/.config/persoqa/config.yaml)
//  3. Project config (.persoqa.yaml in the working directory)
//  4. Environment variables, including those read from a .env file
//
// Each YAML layer is decoded onto the previous result, so keys absent from
// a file keep their earlier value and explicit zeros are honored.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eunjujo120/perso-ai-chatbot/internal/tokenize"
)

// ProjectConfigName is the project-level config file name.
const ProjectConfigName = ".persoqa.yaml"

// Config is the complete service configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Corpus     CorpusConfig     `yaml:"corpus" json:"corpus"`
	Matching   MatchingConfig   `yaml:"matching" json:"matching"`
	Tokenizer  TokenizerConfig  `yaml:"tokenizer" json:"tokenizer"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Vector     VectorConfig     `yaml:"vector" json:"vector"`
	Resilience ResilienceConfig `yaml:"resilience" json:"resilience"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// CorpusConfig locates the question/answer source.
type CorpusConfig struct {
	Path           string        `yaml:"path" json:"path"`
	Format         string        `yaml:"format,omitempty" json:"format,omitempty"`
	QuestionColumn string        `yaml:"question_column" json:"question_column"`
	AnswerColumn   string        `yaml:"answer_column" json:"answer_column"`
	Watch          bool          `yaml:"watch" json:"watch"`
	WatchDebounce  time.Duration `yaml:"watch_debounce" json:"watch_debounce"`
}

// MatchingConfig holds the decision thresholds of the answer engine.
type MatchingConfig struct {
	// ScoreThreshold is the acceptance cutoff for the combined score. The
	// engine caps it at 0.6.
	ScoreThreshold float64 `yaml:"score_threshold" json:"score_threshold"`

	// MinLexical rejects a query outright when no candidate reaches it.
	MinLexical float64 `yaml:"min_lexical" json:"min_lexical"`

	// LexicalStrong accepts the best lexical candidate without reranking.
	LexicalStrong float64 `yaml:"lexical_strong" json:"lexical_strong"`

	// NeighborMargin admits candidates within this distance of the best
	// lexical score into reranking.
	NeighborMargin float64 `yaml:"neighbor_margin" json:"neighbor_margin"`

	// VectorWeight is the share of the vector score in the combined score.
	VectorWeight float64 `yaml:"vector_weight" json:"vector_weight"`

	CandidateLimit int `yaml:"candidate_limit" json:"candidate_limit"`

	EmbedTimeout  time.Duration `yaml:"embed_timeout" json:"embed_timeout"`
	SearchTimeout time.Duration `yaml:"search_timeout" json:"search_timeout"`

	// FallbackMessage replaces the default "no answer" text when set.
	FallbackMessage string `yaml:"fallback_message" json:"fallback_message"`
}

// TokenizerConfig extends the built-in tokenizer tables.
type TokenizerConfig struct {
	Brand          string          `yaml:"brand" json:"brand"`
	ExtraStopwords []string        `yaml:"extra_stopwords" json:"extra_stopwords"`
	ExtraSynonyms  []tokenize.Rule `yaml:"extra_synonyms" json:"extra_synonyms"`
}

// EmbeddingsConfig selects the embedding provider.
type EmbeddingsConfig struct {
	// Provider is one of gemini, openai, ollama or static.
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	APIKey     string `yaml:"api_key" json:"-"`
	BaseURL    string `yaml:"base_url" json:"base_url"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	CacheSize  int    `yaml:"cache_size" json:"cache_size"`
	Workers    int    `yaml:"workers" json:"workers"`
}

// VectorConfig selects the vector store backend.
type VectorConfig struct {
	// Backend is one of sqlite, hnsw or qdrant.
	Backend    string `yaml:"backend" json:"backend"`
	Path       string `yaml:"path" json:"path"`
	URL        string `yaml:"url" json:"url"`
	APIKey     string `yaml:"api_key" json:"-"`
	Collection string `yaml:"collection" json:"collection"`
}

// ResilienceConfig wraps upstream calls with retries and a circuit breaker.
type ResilienceConfig struct {
	MaxRetries      int           `yaml:"max_retries" json:"max_retries"`
	InitialBackoff  time.Duration `yaml:"initial_backoff" json:"initial_backoff"`
	BreakerFailures int           `yaml:"breaker_failures" json:"breaker_failures"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout" json:"breaker_timeout"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string        `yaml:"addr" json:"addr"`
	CORSOrigins    []string      `yaml:"cors_origins" json:"cors_origins"`
	AdminToken     string        `yaml:"admin_token" json:"-"`
	MaxQuestionLen int           `yaml:"max_question_len" json:"max_question_len"`
	ReadTimeout    time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" json:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      bool   `yaml:"file" json:"file"`
	Dir       string `yaml:"dir" json:"dir"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig creates a Config with the default settings.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Corpus: CorpusConfig{
			Path:           filepath.Join("data", "Q&A.xlsx"),
			QuestionColumn: "question",
			AnswerColumn:   "answer",
			WatchDebounce:  500 * time.Millisecond,
		},
		Matching: MatchingConfig{
			ScoreThreshold: 0.5,
			MinLexical:     0.15,
			LexicalStrong:  0.6,
			NeighborMargin: 0.2,
			VectorWeight:   0.4,
			CandidateLimit: 20,
			EmbedTimeout:   10 * time.Second,
			SearchTimeout:  10 * time.Second,
		},
		Tokenizer: TokenizerConfig{
			Brand: tokenize.DefaultBrand,
		},
		Embeddings: EmbeddingsConfig{
			Provider:  ProviderGemini,
			Model:     "text-embedding-004",
			BatchSize: 32,
			CacheSize: 1024,
			Workers:   4,
		},
		Vector: VectorConfig{
			Backend:    BackendSQLite,
			Path:       filepath.Join(".persoqa", "vectors.db"),
			URL:        "http://localhost:6333",
			Collection: "perso_qa",
		},
		Resilience: ResilienceConfig{
			MaxRetries:      2,
			InitialBackoff:  200 * time.Millisecond,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Server: ServerConfig{
			Addr:           ":8000",
			CORSOrigins:    []string{"*"},
			MaxQuestionLen: 1000,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
			RequestTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:     "info",
			File:      true,
			Dir:       defaultLogDir(),
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

func defaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".persoqa", "logs")
	}
	return filepath.Join(home, ".persoqa", "logs")
}

// GetUserConfigPath returns the user configuration file path, honoring
// XDG_CONFIG_HOME.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "persoqa", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "persoqa", "config.yaml")
	}
	return filepath.Join(home, ".config", "persoqa", "config.yaml")
}

// Load builds the configuration for the project in dir and validates it.
func Load(dir string) (*Config, error) {
	cfg, err := Resolve(dir)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve applies every configuration layer for dir without validating the
// result.
func Resolve(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.overlayFile(GetUserConfigPath()); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	if err := cfg.overlayFile(filepath.Join(dir, ProjectConfigName)); err != nil {
		return nil, err
	}

	if err := loadDotEnv(dir); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	cfg.resolvePaths(dir)
	return cfg, nil
}

// overlayFile decodes a YAML file onto c. A missing file is not an error.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// resolvePaths makes relative corpus and vector paths relative to dir.
func (c *Config) resolvePaths(dir string) {
	if dir == "" {
		return
	}
	if c.Corpus.Path != "" && !filepath.IsAbs(c.Corpus.Path) {
		c.Corpus.Path = filepath.Join(dir, c.Corpus.Path)
	}
	if c.Vector.Path != "" && !filepath.IsAbs(c.Vector.Path) {
		c.Vector.Path = filepath.Join(dir, c.Vector.Path)
	}
}

// DataDir is the directory holding local index files.
func (c *Config) DataDir() string {
	return filepath.Dir(c.Vector.Path)
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
