package builder

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docweave/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Project.Source = filepath.Join(dir, "docs")
	cfg.Project.Output = filepath.Join(dir, "site")
	cfg.Build.Cache = filepath.Join(dir, "cache.db")
	require.NoError(t, os.MkdirAll(cfg.Project.Source, 0o755))
	return cfg
}

func TestBuildRendersGeneratedContent(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, filepath.Join(cfg.Project.Source, "gen.star"), `
def greeting():
    return md.header("Generated", 2)
`)
	writeFile(t, filepath.Join(cfg.Project.Source, "index.md"), `# Home

`+"```{generate-include} gen.star:greeting\n```"+`
`)

	b, err := New(cfg)
	require.NoError(t, err)
	defer b.Close()

	res, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Failed())
	assert.Equal(t, 1, res.Built)

	page, err := os.ReadFile(filepath.Join(cfg.Project.Output, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>Home</title>")
	assert.Contains(t, string(page), "<h2>Generated</h2>")
}

func TestBuildSkipsFreshDocuments(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, filepath.Join(cfg.Project.Source, "plain.md"), "# Plain\n\nNothing generated here.\n")

	b, err := New(cfg)
	require.NoError(t, err)
	defer b.Close()

	first, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Built)

	second, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Built)
	assert.Equal(t, 1, second.Skipped)
}

func TestBuildRebuildsWhenGeneratorChanges(t *testing.T) {
	cfg := testConfig(t)
	gen := filepath.Join(cfg.Project.Source, "gen.star")
	writeFile(t, gen, "def body():\n    return \"first\"\n")
	writeFile(t, filepath.Join(cfg.Project.Source, "index.md"), "```{generate-include} gen.star:body\n```\n")

	b, err := New(cfg)
	require.NoError(t, err)
	defer b.Close()

	_, err = b.Build(context.Background())
	require.NoError(t, err)

	// Same mtime resolution hazard as any snapshot check: change the size too.
	writeFile(t, gen, "def body():\n    return \"second version\"\n")

	res, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Built)

	page, err := os.ReadFile(filepath.Join(cfg.Project.Output, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "second version")
}

func TestBuildIsolatesDirectiveFailures(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, filepath.Join(cfg.Project.Source, "broken.md"), `# Broken

`+"```{generate-include} missing.star:nope\n```"+`

Still here.
`)

	b, err := New(cfg)
	require.NoError(t, err)
	defer b.Close()

	res, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Failed())
	require.Len(t, res.Errors, 1)

	page, err := os.ReadFile(filepath.Join(cfg.Project.Output, "broken.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "docweave-error")
	assert.Contains(t, string(page), "Still here.")
}

func TestBuildFailedDocumentIsRetried(t *testing.T) {
	cfg := testConfig(t)
	doc := filepath.Join(cfg.Project.Source, "index.md")
	writeFile(t, doc, "```{generate-include} gen.star:body\n```\n")

	b, err := New(cfg)
	require.NoError(t, err)
	defer b.Close()

	res, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Failed())

	// The generator appears; the document itself is untouched but must
	// still be rebuilt because the failure was never cached.
	writeFile(t, filepath.Join(cfg.Project.Source, "gen.star"), "def body():\n    return \"fixed\"\n")

	res, err = b.Build(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Failed())
	assert.Equal(t, 1, res.Built)

	page, err := os.ReadFile(filepath.Join(cfg.Project.Output, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "fixed")
}

func TestCheckWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, filepath.Join(cfg.Project.Source, "index.md"), "```{generate-include} missing.star:nope\n```\n")

	b, err := New(cfg)
	require.NoError(t, err)
	defer b.Close()

	res, err := b.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Failed())

	_, err = os.Stat(cfg.Project.Output)
	assert.True(t, os.IsNotExist(err))
}

func TestRenderFileRST(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(cfg.Project.Source, "notes.rst")
	writeFile(t, filepath.Join(cfg.Project.Source, "gen.star"), `
def items():
    return md.unordered_list(["one", "two"])
`)
	writeFile(t, path, `Notes
=====

.. generate-include:: gen.star:items
`)

	b, err := New(cfg)
	require.NoError(t, err)
	defer b.Close()

	page, errs, err := b.RenderFile(path)
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Contains(t, page, "<title>Notes</title>")
	assert.Contains(t, page, "<li>one</li>")
}

func TestBuildNestedOutputDirectories(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, filepath.Join(cfg.Project.Source, "guide", "intro.md"), "# Intro\n")

	b, err := New(cfg)
	require.NoError(t, err)
	defer b.Close()

	_, err = b.Build(context.Background())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(cfg.Project.Output, "guide", "intro.html"))
}
