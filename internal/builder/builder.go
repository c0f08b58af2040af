// Package builder runs the document build pass: crawl the source tree,
// parse each document, execute its generate-include directives, and render
// HTML into the output directory. Directive failures are isolated to their
// node; the build finishes and reports every error it collected.
package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docweave/internal/config"
	"docweave/internal/crawler"
	"docweave/internal/directive"
	"docweave/internal/doctree"
	"docweave/internal/markdown"
	"docweave/internal/render"
	"docweave/internal/rst"
	"docweave/internal/storage"
)

// Builder orchestrates a documentation build.
type Builder struct {
	cfg     *config.Config
	crawler *crawler.Crawler
	md      *markdown.Parser
	rst     *rst.Parser
	proc    *directive.Processor
	cache   *storage.BuildCache
}

// Result summarizes one build pass.
type Result struct {
	// Built counts documents rendered this pass.
	Built int
	// Skipped counts documents left alone because their dependencies were
	// unchanged since the cached build.
	Skipped int
	// Errors holds every directive failure encountered. The documents they
	// occurred in were still written, with visible error markers.
	Errors []error
}

// Failed reports whether the pass should exit non-zero.
func (r *Result) Failed() bool {
	return len(r.Errors) > 0
}

// New creates a builder for the given configuration. When incremental
// builds are enabled the cache database is opened (and created on first
// use); call Close when done.
func New(cfg *config.Config) (*Builder, error) {
	md := markdown.New()
	rstParser := rst.New()
	b := &Builder{
		cfg:     cfg,
		crawler: crawler.NewCrawler(),
		md:      md,
		rst:     rstParser,
		proc:    directive.NewProcessor(cfg.Project.Source, md, rstParser),
	}
	if cfg.Build.Incremental && cfg.Build.Cache != "" {
		cache, err := storage.NewBuildCache(cfg.Build.Cache)
		if err != nil {
			return nil, fmt.Errorf("open build cache: %w", err)
		}
		b.cache = cache
	}
	return b, nil
}

// Close releases the build cache.
func (b *Builder) Close() error {
	if b.cache == nil {
		return nil
	}
	return b.cache.Close()
}

// Build runs a full pass over the source tree.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	files, err := b.collect()
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, f := range files {
		outPath := filepath.Join(b.cfg.Project.Output, htmlName(f.Rel))

		if b.cache != nil {
			fresh, err := b.cache.Fresh(ctx, f.Path)
			if err != nil {
				return nil, fmt.Errorf("cache lookup for %s: %w", f.Path, err)
			}
			if fresh && exists(outPath) {
				res.Skipped++
				continue
			}
		}

		doc, deps, errs, err := b.process(f)
		if err != nil {
			return nil, err
		}
		res.Errors = append(res.Errors, errs...)

		page := render.Document(doc, pageTitle(doc, f.Rel))
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(outPath, []byte(page), 0o644); err != nil {
			return nil, err
		}
		res.Built++

		// Documents that failed stay stale so the next build retries them.
		if b.cache != nil && len(errs) == 0 {
			if err := b.cache.Record(ctx, f.Path, nowUnix(), append([]string{f.Path}, deps...)); err != nil {
				return nil, fmt.Errorf("cache record for %s: %w", f.Path, err)
			}
		}
	}
	return res, nil
}

// Check parses every document and executes its directives without writing
// any output. Used to validate generator references in CI.
func (b *Builder) Check(_ context.Context) (*Result, error) {
	files, err := b.collect()
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, f := range files {
		_, _, errs, err := b.process(f)
		if err != nil {
			return nil, err
		}
		res.Errors = append(res.Errors, errs...)
		res.Built++
	}
	return res, nil
}

// RenderFile builds a single document and returns the rendered HTML page.
// Directive failures are rendered as error markers and also returned.
func (b *Builder) RenderFile(path string) (string, []error, error) {
	format := "md"
	if strings.EqualFold(filepath.Ext(path), ".rst") {
		format = "rst"
	}
	doc, _, errs, err := b.process(crawler.SourceFile{Path: path, Rel: filepath.Base(path), Format: format})
	if err != nil {
		return "", nil, err
	}
	return render.Document(doc, pageTitle(doc, filepath.Base(path))), errs, nil
}

func (b *Builder) collect() ([]crawler.SourceFile, error) {
	var files []crawler.SourceFile
	if err := b.crawler.Scan(b.cfg.Project.Source, func(f crawler.SourceFile) {
		files = append(files, f)
	}); err != nil {
		return nil, fmt.Errorf("scan %s: %w", b.cfg.Project.Source, err)
	}
	return files, nil
}

// process parses one source file and executes its directives, returning the
// transformed document, the generator files it depended on, and any
// directive errors.
func (b *Builder) process(f crawler.SourceFile) (*doctree.Document, []string, []error, error) {
	source, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read %s: %w", f.Path, err)
	}

	var doc *doctree.Document
	if f.Format == "rst" {
		doc = b.rst.Parse(source, f.Path)
	} else {
		doc = b.md.Parse(source, f.Path)
	}

	deps, errs := b.proc.Apply(doc)
	return doc, deps, errs, nil
}

// pageTitle picks the first top-level heading, falling back to the relative
// file name.
func pageTitle(doc *doctree.Document, fallback string) string {
	for _, blk := range doc.Blocks {
		if h, ok := blk.(*doctree.Heading); ok {
			return doctree.PlainText(h.Inlines)
		}
	}
	return fallback
}

func htmlName(rel string) string {
	ext := filepath.Ext(rel)
	return filepath.FromSlash(strings.TrimSuffix(rel, ext) + ".html")
}

func nowUnix() int64 {
	return time.Now().Unix()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
