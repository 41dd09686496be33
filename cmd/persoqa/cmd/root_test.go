package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"serve", "ask", "chat", "ingest", "mcp", "doctor", "validate", "config", "version"} {
		t.Run(name, func(t *testing.T) {
			c, _, err := root.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, c.Name())
		})
	}
}

func TestRootCmd_GlobalFlags(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"debug", "dir", "profile-cpu", "profile-mem", "profile-trace"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, ".", root.PersistentFlags().Lookup("dir").DefValue)
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	_, _, err := runCLI(t, "", "nope")
	assert.Error(t, err)
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, _, err := runCLI(t, "", "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "persoqa version")
}
