package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"enrich", "batch", "serve", "init"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "enrich-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestEnrichCommand_Flags(t *testing.T) {
	flag := enrichCmd.Flags().Lookup("force")
	require.NotNil(t, flag, "enrich command should have --force flag")
	assert.Equal(t, "false", flag.DefValue)
}

func TestBatchCommand_Flags(t *testing.T) {
	require.NotNil(t, batchCmd.Flags().Lookup("file"))
	require.NotNil(t, batchCmd.Flags().Lookup("force"))
	require.NotNil(t, batchCmd.Flags().Lookup("show-metrics"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestReadIdentifiers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artists.txt")
	content := "4gzpq5DPGxSnKTe4SA8HAU\n\n# a comment\n  0123456789abcdefAAAA  \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	ids, err := readIdentifiers(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"4gzpq5DPGxSnKTe4SA8HAU", "0123456789abcdefAAAA"}, ids)
}

func TestReadIdentifiers_MissingFile(t *testing.T) {
	_, err := readIdentifiers(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
