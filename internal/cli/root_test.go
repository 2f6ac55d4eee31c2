package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/wikidom/internal/config"
)

func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	for _, name := range []string{"version", "build", "parse", "toc", "index", "serve", "repl", "completion"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
	for _, flag := range []string{"config", "verbose", "output", "index", "namespaces", "language", "known-pages", "edit-sections", "jobs"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRootCommand_Version(t *testing.T) {
	stdout, _, err := runRoot(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "wikidom v"+Version)
}

func TestRootCommand_BuildWithFlags(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "Main_Page.wiki")
	require.NoError(t, os.WriteFile(page, []byte("== A ==\n[[Known]] [[Unknown]]\n"), 0o600))

	stdout, _, err := runRoot(t, "build", page, "-o", "html", "--known-pages", "Known", "--edit-sections")
	require.NoError(t, err)
	assert.Contains(t, stdout, `href="/wiki/Known"`)
	assert.Contains(t, stdout, `class="new"`)
	assert.Contains(t, stdout, "mw-editsection")
}

func TestRootCommand_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "Main_Page.wiki")
	require.NoError(t, os.WriteFile(page, []byte("''x''\n"), 0o600))
	cfgPath := filepath.Join(dir, config.ConfigFileName)
	require.NoError(t, os.WriteFile(cfgPath, []byte("output: markdown\n"), 0o600))

	stdout, stderr, err := runRoot(t, "build", page, "--config", cfgPath, "-v")
	require.NoError(t, err)
	assert.Contains(t, stdout, "*x*")
	assert.Contains(t, stderr, "Using config file: "+cfgPath)
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	_, _, err := runRoot(t, "version", "-o", "pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			stdout, _, err := runRoot(t, "completion", shell)
			require.NoError(t, err)
			assert.NotEmpty(t, stdout)
		})
	}

	_, _, err := runRoot(t, "completion", "tcsh")
	require.Error(t, err)
}
