package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) *BuildCache {
	t.Helper()
	cache, err := NewBuildCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCache_UnknownDocumentIsStale(t *testing.T) {
	cache := newCache(t)
	fresh, err := cache.Fresh(context.Background(), "docs/index.md")
	require.NoError(t, err)
	assert.False(t, fresh)
}

func TestCache_RecordThenFresh(t *testing.T) {
	cache := newCache(t)
	ctx := context.Background()
	dir := t.TempDir()
	doc := writeFile(t, dir, "index.md", "# hi\n")
	gen := writeFile(t, dir, "gen.star", "def f():\n    return \"x\"\n")

	require.NoError(t, cache.Record(ctx, doc, time.Now().Unix(), []string{doc, gen}))

	fresh, err := cache.Fresh(ctx, doc)
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestCache_ChangedDependencyGoesStale(t *testing.T) {
	cache := newCache(t)
	ctx := context.Background()
	dir := t.TempDir()
	doc := writeFile(t, dir, "index.md", "# hi\n")
	gen := writeFile(t, dir, "gen.star", "def f():\n    return \"x\"\n")

	require.NoError(t, cache.Record(ctx, doc, time.Now().Unix(), []string{doc, gen}))

	// Rewrite with different content; size change alone must invalidate
	// even if the filesystem's mtime resolution is coarse.
	writeFile(t, dir, "gen.star", "def f():\n    return \"different and longer\"\n")

	fresh, err := cache.Fresh(ctx, doc)
	require.NoError(t, err)
	assert.False(t, fresh)
}

func TestCache_DeletedDependencyGoesStale(t *testing.T) {
	cache := newCache(t)
	ctx := context.Background()
	dir := t.TempDir()
	doc := writeFile(t, dir, "index.md", "# hi\n")
	gen := writeFile(t, dir, "gen.star", "x = 1\n")

	require.NoError(t, cache.Record(ctx, doc, time.Now().Unix(), []string{doc, gen}))
	require.NoError(t, os.Remove(gen))

	fresh, err := cache.Fresh(ctx, doc)
	require.NoError(t, err)
	assert.False(t, fresh)
}

func TestCache_RecordReplacesSnapshot(t *testing.T) {
	cache := newCache(t)
	ctx := context.Background()
	dir := t.TempDir()
	doc := writeFile(t, dir, "index.md", "# hi\n")
	old := writeFile(t, dir, "old.star", "x = 1\n")

	require.NoError(t, cache.Record(ctx, doc, time.Now().Unix(), []string{doc, old}))
	require.NoError(t, cache.Record(ctx, doc, time.Now().Unix(), []string{doc}))

	// The old dependency no longer matters.
	require.NoError(t, os.Remove(old))
	fresh, err := cache.Fresh(ctx, doc)
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestCache_Forget(t *testing.T) {
	cache := newCache(t)
	ctx := context.Background()
	dir := t.TempDir()
	doc := writeFile(t, dir, "index.md", "# hi\n")

	require.NoError(t, cache.Record(ctx, doc, time.Now().Unix(), []string{doc}))
	require.NoError(t, cache.Forget(ctx, doc))

	fresh, err := cache.Fresh(ctx, doc)
	require.NoError(t, err)
	assert.False(t, fresh)
}

func TestCache_MissingDependencyFileFailsRecord(t *testing.T) {
	cache := newCache(t)
	err := cache.Record(context.Background(), "doc.md", time.Now().Unix(), []string{"/no/such/file"})
	assert.Error(t, err)
}
