// Package compiler runs the full pipeline over a parse tree: the semantic
// tree builder, then reference resolution, then table of contents
// generation.
//
// # Usage
//
//	c, err := compiler.New(compiler.Config{})
//	if err != nil {
//	    // handle error
//	}
//	res, err := c.CompileSource(src, "Main Page")
//	html, err := format.HTML(res.Root)
package compiler

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/wikidom/pkg/ast"
	"github.com/leapstack-labs/wikidom/pkg/builder"
	"github.com/leapstack-labs/wikidom/pkg/dom"
	"github.com/leapstack-labs/wikidom/pkg/refs"
	"github.com/leapstack-labs/wikidom/pkg/toc"
	"github.com/leapstack-labs/wikidom/pkg/wikitext"
)

// Config holds compiler configuration.
type Config struct {
	// Builder configures the semantic tree builder
	Builder builder.Config
	// TOC configures table of contents generation. Messages default to
	// the builder's.
	TOC toc.Options
	// EditSections adds section edit links when compiling from source
	EditSections bool
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Compiler turns parse trees into finished document trees. It holds no
// per-document state.
type Compiler struct {
	builder      *builder.Builder
	toc          toc.Options
	editSections bool
	logger       *slog.Logger
}

// Result is a compiled document.
type Result struct {
	// Root is the <html> element.
	Root *dom.Node
	// References lists the resolved citations in first-use order.
	References []*refs.Entry
	// Headings is the numbered outline.
	Headings []toc.Heading
	// TOCInserted reports whether a table of contents was added.
	TOCInserted bool
}

// New creates a compiler.
func New(cfg Config) (*Compiler, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Builder.Logger == nil {
		cfg.Builder.Logger = logger
	}
	if cfg.TOC.Logger == nil {
		cfg.TOC.Logger = logger
	}
	if cfg.TOC.Messages == nil {
		cfg.TOC.Messages = cfg.Builder.Messages
	}

	b, err := builder.New(cfg.Builder)
	if err != nil {
		return nil, fmt.Errorf("create builder: %w", err)
	}
	return &Compiler{
		builder:      b,
		toc:          cfg.TOC,
		editSections: cfg.EditSections,
		logger:       logger,
	}, nil
}

// Compile builds doc and runs the whole-tree passes. Section metadata on
// doc enables edit links for its headings.
func (c *Compiler) Compile(doc *ast.Document) (*Result, error) {
	b := c.builder
	if meta := builder.SectionLookup(doc.Sections); meta != nil {
		b = b.WithHeadingMeta(meta)
	}

	root, err := b.Build(doc)
	if err != nil {
		return nil, fmt.Errorf("build document: %w", err)
	}

	entries := refs.Resolve(root, c.logger)
	outline := toc.Generate(root, c.toc)

	c.logger.Debug("compiled document",
		"references", len(entries),
		"headings", len(outline.Headings),
		"toc", outline.Inserted)

	return &Result{
		Root:        root,
		References:  entries,
		Headings:    outline.Headings,
		TOCInserted: outline.Inserted,
	}, nil
}

// CompileSource parses src as the page title and compiles it.
func (c *Compiler) CompileSource(src, title string) (*Result, error) {
	doc, err := wikitext.Parse(src, wikitext.Options{
		Title:        title,
		EditSections: c.editSections,
		Logger:       c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", title, err)
	}
	return c.Compile(doc)
}
