package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qaerrors "github.com/eunjujo120/perso-ai-chatbot/internal/errors"
)

// isolate points the user config at an empty dir and clears env overrides.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, k := range []string{
		"GEMINI_API_KEY", "EMBEDDING_MODEL", "QDRANT_URL", "QDRANT_API_KEY",
		"QDRANT_COLLECTION", "SCORE_THRESHOLD",
		"PERSOQA_EMBEDDINGS_PROVIDER", "PERSOQA_SCORE_THRESHOLD", "PERSOQA_VECTOR_BACKEND",
		"PERSOQA_CORS_ORIGINS", "PERSOQA_EMBED_TIMEOUT", "PERSOQA_LOG_LEVEL", "PERSOQA_CORPUS_FORMAT",
	} {
		t.Setenv(k, "")
	}
	return t.TempDir()
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 0.5, cfg.Matching.ScoreThreshold)
	assert.Equal(t, 0.15, cfg.Matching.MinLexical)
	assert.Equal(t, 0.6, cfg.Matching.LexicalStrong)
	assert.Equal(t, 0.2, cfg.Matching.NeighborMargin)
	assert.Equal(t, 0.4, cfg.Matching.VectorWeight)
	assert.Equal(t, 20, cfg.Matching.CandidateLimit)
	assert.Equal(t, 10*time.Second, cfg.Matching.EmbedTimeout)
	assert.Equal(t, ProviderGemini, cfg.Embeddings.Provider)
	assert.Equal(t, "text-embedding-004", cfg.Embeddings.Model)
	assert.Equal(t, "perso_qa", cfg.Vector.Collection)
	assert.Equal(t, "http://localhost:6333", cfg.Vector.URL)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
}

func TestLoad_MissingGeminiKeyIsConfigurationError(t *testing.T) {
	dir := isolate(t)

	_, err := Load(dir)

	require.Error(t, err)
	assert.True(t, qaerrors.IsConfigError(err))
	assert.Equal(t, qaerrors.ErrCodeConfigMissing, qaerrors.GetCode(err))
}

func TestResolve_SkipsValidation(t *testing.T) {
	dir := isolate(t)

	cfg, err := Resolve(dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data", "Q&A.xlsx"), cfg.Corpus.Path)
	assert.Error(t, cfg.Validate())
}

func TestLoad_EnvCompatibilityNames(t *testing.T) {
	dir := isolate(t)
	t.Setenv("GEMINI_API_KEY", "key-123")
	t.Setenv("SCORE_THRESHOLD", "0.7")
	t.Setenv("QDRANT_COLLECTION", "faq")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "key-123", cfg.Embeddings.APIKey)
	assert.Equal(t, 0.7, cfg.Matching.ScoreThreshold)
	assert.Equal(t, "faq", cfg.Vector.Collection)
	assert.Equal(t, filepath.Join(dir, "data", "Q&A.xlsx"), cfg.Corpus.Path)
	assert.Equal(t, filepath.Join(dir, ".persoqa"), cfg.DataDir())
}

func TestLoad_PrefixedEnvWins(t *testing.T) {
	dir := isolate(t)
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("SCORE_THRESHOLD", "0.7")
	t.Setenv("PERSOQA_SCORE_THRESHOLD", "0.3")
	t.Setenv("PERSOQA_EMBED_TIMEOUT", "2s")
	t.Setenv("PERSOQA_CORS_ORIGINS", "http://localhost:5173, https://chat.example.com")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.Matching.ScoreThreshold)
	assert.Equal(t, 2*time.Second, cfg.Matching.EmbedTimeout)
	assert.Equal(t, []string{"http://localhost:5173", "https://chat.example.com"}, cfg.Server.CORSOrigins)
}

func TestLoad_ProjectFileOverlaysDefaults(t *testing.T) {
	dir := isolate(t)
	yml := `
corpus:
  path: /srv/qa.yaml
matching:
  min_lexical: 0
  candidate_limit: 5
  search_timeout: 3s
embeddings:
  provider: static
tokenizer:
  extra_synonyms:
    - patterns: [price, cost]
      canonical: 요금제
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName), []byte(yml), 0o644))

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "/srv/qa.yaml", cfg.Corpus.Path)
	// Explicit zero is honored, untouched keys keep defaults.
	assert.Equal(t, 0.0, cfg.Matching.MinLexical)
	assert.Equal(t, 0.6, cfg.Matching.LexicalStrong)
	assert.Equal(t, 5, cfg.Matching.CandidateLimit)
	assert.Equal(t, 3*time.Second, cfg.Matching.SearchTimeout)
	assert.Equal(t, ProviderStatic, cfg.Embeddings.Provider)
	require.Len(t, cfg.Tokenizer.ExtraSynonyms, 1)
	assert.Equal(t, "요금제", cfg.Tokenizer.ExtraSynonyms[0].Canonical)
}

func TestLoad_UserThenProjectPrecedence(t *testing.T) {
	dir := isolate(t)
	userPath := GetUserConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(userPath), 0o755))
	require.NoError(t, os.WriteFile(userPath, []byte("embeddings:\n  provider: ollama\nserver:\n  addr: \":9000\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName), []byte("server:\n  addr: \":9100\"\n"), 0o644))

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, cfg.Embeddings.Provider)
	assert.Equal(t, ":9100", cfg.Server.Addr)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	os.Unsetenv("GEMINI_API_KEY")
	t.Cleanup(func() { os.Unsetenv("GEMINI_API_KEY") })
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GEMINI_API_KEY=from-dotenv\n"), 0o644))

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Embeddings.APIKey)
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName), []byte("matching: [oops"), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		code   string
	}{
		{"valid", func(c *Config) {}, ""},
		{"threshold above one", func(c *Config) { c.Matching.ScoreThreshold = 1.5 }, qaerrors.ErrCodeConfigInvalid},
		{"negative weight", func(c *Config) { c.Matching.VectorWeight = -0.1 }, qaerrors.ErrCodeConfigInvalid},
		{"min above strong", func(c *Config) { c.Matching.MinLexical = 0.7 }, qaerrors.ErrCodeConfigInvalid},
		{"zero candidates", func(c *Config) { c.Matching.CandidateLimit = 0 }, qaerrors.ErrCodeConfigInvalid},
		{"unknown provider", func(c *Config) { c.Embeddings.Provider = "bert" }, qaerrors.ErrCodeConfigInvalid},
		{"gemini without key", func(c *Config) { c.Embeddings.APIKey = "" }, qaerrors.ErrCodeConfigMissing},
		{"openai with base url", func(c *Config) {
			c.Embeddings.Provider = ProviderOpenAI
			c.Embeddings.APIKey = ""
			c.Embeddings.BaseURL = "http://localhost:8080/v1"
		}, ""},
		{"qdrant without url", func(c *Config) {
			c.Vector.Backend = BackendQdrant
			c.Vector.URL = ""
		}, qaerrors.ErrCodeConfigMissing},
		{"unknown backend", func(c *Config) { c.Vector.Backend = "faiss" }, qaerrors.ErrCodeConfigInvalid},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, qaerrors.ErrCodeConfigInvalid},
		{"empty corpus", func(c *Config) { c.Corpus.Path = "" }, qaerrors.ErrCodeConfigMissing},
		{"forced corpus format", func(c *Config) { c.Corpus.Format = "CSV" }, ""},
		{"unknown corpus format", func(c *Config) { c.Corpus.Format = "tsv" }, qaerrors.ErrCodeConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			cfg.Embeddings.APIKey = "k"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.code, qaerrors.GetCode(err))
			assert.True(t, qaerrors.IsFatal(err))
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := NewConfig()
	cfg.Embeddings.APIKey = "secret"
	cfg.Server.AdminToken = "token"

	r := cfg.Redacted()

	assert.Equal(t, "********", r.Embeddings.APIKey)
	assert.Equal(t, "********", r.Server.AdminToken)
	assert.Equal(t, "", r.Vector.APIKey)
	assert.Equal(t, "secret", cfg.Embeddings.APIKey)
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	dir := isolate(t)
	cfg := NewConfig()
	cfg.Embeddings.Provider = ProviderStatic
	cfg.Matching.CandidateLimit = 7
	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ProjectConfigName)))

	loaded, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Matching.CandidateLimit)
	assert.Equal(t, ProviderStatic, loaded.Embeddings.Provider)
}

func TestBackupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ProjectConfigName)

	got, err := BackupFile(path)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o644))
	for i := 0; i < MaxBackups+2; i++ {
		_, err := BackupFile(path)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	backups, err := ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, MaxBackups)

	data, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, "version: 1\n", string(data))
}
