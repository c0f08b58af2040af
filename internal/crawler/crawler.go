// Package crawler scans a source tree for documentation files.
package crawler

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// SourceFile is one discovered documentation source.
type SourceFile struct {
	// Path is the full path of the file.
	Path string
	// Rel is the path relative to the scanned root, using slashes.
	Rel string
	// Format is "md" or "rst", derived from the extension.
	Format string
}

// Crawler walks a directory for Markdown and reStructuredText sources.
type Crawler struct {
	ignored []string
}

// NewCrawler creates a crawler with the default ignore set.
func NewCrawler() *Crawler {
	return &Crawler{
		ignored: []string{".git", "vendor", "node_modules", "testdata"},
	}
}

// Scan walks root and streams every documentation source found. Ignored,
// hidden, and underscore-prefixed directories are skipped.
func (c *Crawler) Scan(root string, onFile func(SourceFile)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
				return filepath.SkipDir
			}
			for _, ign := range c.ignored {
				if name == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		format := ""
		switch strings.ToLower(filepath.Ext(name)) {
		case ".md":
			format = "md"
		case ".rst":
			format = "rst"
		default:
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		onFile(SourceFile{Path: path, Rel: filepath.ToSlash(rel), Format: format})
		return nil
	})
}
