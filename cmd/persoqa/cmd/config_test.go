package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eunjujo120/perso-ai-chatbot/internal/config"
)

func TestConfigShow_MasksSecrets(t *testing.T) {
	// Given: an admin token in the environment
	dir := newProject(t)
	t.Setenv("PERSOQA_ADMIN_TOKEN", "super-secret-token")

	// When: showing the config
	out, _, err := runCLI(t, "", "--dir", dir, "config", "show")

	// Then: the merged values print without the secret
	require.NoError(t, err)
	assert.Contains(t, out, "provider: static")
	assert.Contains(t, out, "backend: hnsw")
	assert.NotContains(t, out, "super-secret-token")
}

func TestConfigShow_InvalidConfigWarns(t *testing.T) {
	dir := newProject(t)
	t.Setenv("PERSOQA_EMBEDDINGS_PROVIDER", "gemini")

	out, errOut, err := runCLI(t, "", "--dir", dir, "config", "show", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"provider": "gemini"`)
	assert.Contains(t, errOut, "GEMINI_API_KEY")
}

func TestConfigInit_WritesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	out, _, err := runCLI(t, "", "--dir", dir, "config", "init")

	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")
	path := filepath.Join(dir, config.ProjectConfigName)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "score_threshold: 0.5")
	assert.Contains(t, string(data), "# persoqa project configuration")
}

func TestConfigInit_KeepsExistingUnlessForced(t *testing.T) {
	// Given: an existing project config
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := filepath.Join(dir, config.ProjectConfigName)
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o600))

	// When: running init without --force
	out, _, err := runCLI(t, "", "--dir", dir, "config", "init")

	// Then: the file is untouched
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
	data, _ := os.ReadFile(path)
	assert.Equal(t, "version: 1\n", string(data))

	// When: forcing
	_, _, err = runCLI(t, "", "--dir", dir, "config", "init", "--force")

	// Then: the old file is backed up and replaced
	require.NoError(t, err)
	backups, err := config.ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, 1)
	data, _ = os.ReadFile(path)
	assert.NotEqual(t, "version: 1\n", string(data))
}

func TestConfigInit_UserFile(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	_, _, err := runCLI(t, "", "config", "init", "--user")

	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(xdg, "persoqa", "config.yaml"))
}

func TestConfigInit_Effective(t *testing.T) {
	// Given: a threshold set only in the environment
	dir := newProject(t)
	t.Setenv("PERSOQA_SCORE_THRESHOLD", "0.7")

	// When: freezing the effective config over the project file
	_, _, err := runCLI(t, "", "--dir", dir, "config", "init", "--effective", "--force")
	require.NoError(t, err)

	// Then: the file carries the environment value and the project settings
	data, err := os.ReadFile(filepath.Join(dir, config.ProjectConfigName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "score_threshold: 0.7")
	assert.Contains(t, string(data), "provider: static")
}
