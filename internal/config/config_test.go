package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "docs", cfg.Project.Source)
	assert.Equal(t, "site", cfg.Project.Output)
	assert.Equal(t, "docweave.db", cfg.Build.Cache)
	assert.True(t, cfg.Build.Incremental)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
project:
  source: handbook
  output: public
build:
  cache: .cache/docweave.db
  incremental: false
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "handbook", cfg.Project.Source)
	assert.Equal(t, "public", cfg.Project.Output)
	assert.Equal(t, ".cache/docweave.db", cfg.Build.Cache)
	assert.False(t, cfg.Build.Incremental)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DOCWEAVE_SOURCE", "elsewhere")
	t.Setenv("DOCWEAVE_OUTPUT", "out")
	t.Setenv("DOCWEAVE_CACHE", "mem.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "elsewhere", cfg.Project.Source)
	assert.Equal(t, "out", cfg.Project.Output)
	assert.Equal(t, "mem.db", cfg.Build.Cache)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("project: [broken\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
