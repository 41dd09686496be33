package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testCorpus = `question,answer
Perso.ai는 어떤 서비스인가요?,Perso.ai는 AI 영상 더빙 플랫폼입니다.
요금제는 어떻게 되나요?,무료 플랜과 유료 플랜이 있습니다.
지원하는 언어는 무엇인가요?,30개 이상의 언어를 지원합니다.
`

const testProjectConfig = `corpus:
  path: qa.csv
embeddings:
  provider: static
  cache_size: 0
vector:
  backend: hnsw
  path: .persoqa/vectors.hnsw
logging:
  level: error
  file: false
`

// newProject creates a project directory with a CSV corpus, the offline
// embedder and a file-backed HNSW store, isolated from the user's config.
func newProject(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, k := range []string{
		"GEMINI_API_KEY", "EMBEDDING_MODEL", "QDRANT_URL", "QDRANT_API_KEY",
		"QDRANT_COLLECTION", "SCORE_THRESHOLD",
		"PERSOQA_EMBEDDINGS_PROVIDER", "PERSOQA_EMBEDDINGS_API_KEY", "PERSOQA_VECTOR_BACKEND",
		"PERSOQA_VECTOR_PATH", "PERSOQA_CORPUS_PATH", "PERSOQA_LOG_LEVEL", "PERSOQA_FALLBACK_MESSAGE",
		"PERSOQA_SCORE_THRESHOLD", "PERSOQA_ADMIN_TOKEN",
	} {
		t.Setenv(k, "")
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "qa.csv"), []byte(testCorpus), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".persoqa.yaml"), []byte(testProjectConfig), 0o644))
	return dir
}

// runCLI executes the root command and returns stdout and stderr.
func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
