// Package storage persists the incremental build cache: for every built
// document, the set of files it depended on (the document itself plus each
// generator file its directives resolved) and their observed mtimes. A
// document whose dependencies are all unchanged can be skipped on rebuild.
//
// Only build bookkeeping is cached. Generator modules are always reloaded
// and re-executed when a document is built.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// BuildCache is a SQLite-backed dependency cache.
type BuildCache struct {
	db *sql.DB
}

// NewBuildCache creates or opens the cache database at path.
func NewBuildCache(path string) (*BuildCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	c := &BuildCache{db: db}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init cache schema: %w", err)
	}
	return c, nil
}

// Close closes the underlying database.
func (c *BuildCache) Close() error {
	return c.db.Close()
}

func (c *BuildCache) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			path TEXT PRIMARY KEY,
			built_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS dependencies (
			doc TEXT NOT NULL,
			path TEXT NOT NULL,
			mtime INTEGER NOT NULL,
			size INTEGER NOT NULL,
			PRIMARY KEY (doc, path)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_dependencies_doc ON dependencies(doc);`,
	}
	for _, q := range queries {
		if _, err := c.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// Record stores the dependency snapshot for a built document, replacing any
// previous snapshot. deps should include the document path itself.
func (c *BuildCache) Record(ctx context.Context, doc string, builtAt int64, deps []string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (path, built_at) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET built_at=excluded.built_at`,
		doc, builtAt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dependencies WHERE doc = ?`, doc); err != nil {
		return err
	}

	for _, dep := range deps {
		info, err := os.Stat(dep)
		if err != nil {
			return fmt.Errorf("stat dependency %s: %w", dep, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO dependencies (doc, path, mtime, size) VALUES (?, ?, ?, ?)
			ON CONFLICT(doc, path) DO UPDATE SET mtime=excluded.mtime, size=excluded.size`,
			doc, dep, info.ModTime().UnixNano(), info.Size()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Fresh reports whether the document has a recorded snapshot whose
// dependencies all still exist unchanged. An unknown document is stale.
func (c *BuildCache) Fresh(ctx context.Context, doc string) (bool, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT path, mtime, size FROM dependencies WHERE doc = ?`, doc)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	seen := false
	for rows.Next() {
		seen = true
		var path string
		var mtime, size int64
		if err := rows.Scan(&path, &mtime, &size); err != nil {
			return false, err
		}
		info, err := os.Stat(path)
		if err != nil || info.ModTime().UnixNano() != mtime || info.Size() != size {
			return false, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, err
	}
	return seen, nil
}

// Forget drops the snapshot for a document, forcing its next build.
func (c *BuildCache) Forget(ctx context.Context, doc string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM dependencies WHERE doc = ?`, doc); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, doc); err != nil {
		return err
	}
	return tx.Commit()
}
