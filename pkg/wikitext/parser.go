// Package wikitext parses MediaWiki markup into an ast.Document.
//
// # Usage
//
//	doc, err := wikitext.Parse(src, wikitext.Options{Title: "Main Page"})
//	if err != nil {
//	    // handle error
//	}
//
// # Grammar Overview
//
// The parser is a backtracking recursive descent parser over the source
// text. There is no separate lexer: every rule works on byte offsets.
//
//	document     → block*
//	block        → blank | heading | rule | directive | table | list
//	             | preformatted | html_block | paragraph
//	heading      → "="{n} inline+ "="{n} comment* EOL
//	table        → ":"* "{|" attrs EOL (caption | row | cells)* "|}"
//	list         → ([*#:;]+ inline* EOL)+
//	preformatted → (" " inline* EOL)+
//	inline       → internal_link | external_link | url | quotes | entity
//	             | comment | nowiki | pre | ref | references | html
//	             | template | directive | text
//
// Context-sensitive termination goes through parsestate snapshots that
// are threaded through every rule: No rules end table cells and headings,
// IfNot rules end link labels, quote runs and HTML elements, BolSkip skips
// the leading space of preformatted lines and WsPreOff switches
// preformatting off inside HTML blocks. A rule that fails leaves the
// caller's snapshot untouched, so backtracking needs no undo step.
package wikitext

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/wikidom/pkg/ast"
	"github.com/leapstack-labs/wikidom/pkg/parsestate"
	"github.com/leapstack-labs/wikidom/pkg/token"
)

// maxDepth bounds the nesting of rules.
const maxDepth = 64

// Options configures Parse.
type Options struct {
	// Title is the page title recorded for section edit links
	Title string
	// EditSections records heading metadata in Document.Sections
	EditSections bool
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

type parser struct {
	src      string
	lines    *token.LineIndex
	opts     Options
	logger   *slog.Logger
	depth    int
	sections []ast.SectionInfo
	err      error
}

// Parse parses src into a document.
func Parse(src string, opts Options) (*ast.Document, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &parser{
		src:    src,
		lines:  token.NewLineIndex(src),
		opts:   opts,
		logger: logger,
	}
	if i := invalidUTF8(src); i >= 0 {
		return nil, p.errorAt(i, ErrInvalidUTF8)
	}

	blocks, _ := p.blocks(0, len(src), parsestate.Empty())
	if p.err != nil {
		return nil, p.err
	}

	doc := &ast.Document{Loc: p.span(0, len(src)), Blocks: blocks}
	if opts.EditSections {
		doc.Sections = p.sections
	}
	logger.Debug("parsed wikitext",
		"bytes", len(src), "blocks", len(blocks), "sections", len(p.sections))
	return doc, nil
}

func invalidUTF8(s string) int {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}

func (p *parser) errorAt(off int, msg string) *ParseError {
	return &ParseError{Pos: p.lines.Position(off), Message: msg}
}

func (p *parser) span(start, end int) ast.Loc {
	return ast.Loc{Span: p.lines.Span(start, end)}
}

// enter guards against runaway nesting. Callers must call leave when it
// returns true.
func (p *parser) enter(off int) bool {
	if p.err != nil {
		return false
	}
	if p.depth >= maxDepth {
		p.err = p.errorAt(off, ErrTooDeep)
		return false
	}
	p.depth++
	return true
}

func (p *parser) leave() { p.depth-- }

// rejected reports whether err ends the current alternative. Errors other
// than parsestate.ErrReject abort the parse.
func (p *parser) rejected(err error) bool {
	if err == nil {
		return false
	}
	if !errors.Is(err, parsestate.ErrReject) && p.err == nil {
		p.err = fmt.Errorf("grammar rule: %w", err)
	}
	return true
}

// ---------- Line Helpers ----------

// lineEnd returns the offset of the newline ending the line at pos, or end.
func (p *parser) lineEnd(pos, end int) int {
	if i := strings.IndexByte(p.src[pos:end], '\n'); i >= 0 {
		return pos + i
	}
	return end
}

// nextLine steps over the newline at eol unless a No rule ends the
// enclosing construct there.
func (p *parser) nextLine(eol, end int, st *parsestate.State) int {
	if eol < end && p.src[eol] == '\n' && !p.rejected(st.CheckNo(p.src, eol)) {
		return eol + 1
	}
	return eol
}

func (p *parser) atLineStart(pos int) bool {
	return pos == 0 || p.src[pos-1] == '\n'
}

func isBlank(s string) bool {
	return strings.Trim(s, " \t\r") == ""
}

func skipSpace(s string, pos, end int) int {
	for pos < end && (s[pos] == ' ' || s[pos] == '\t') {
		pos++
	}
	return pos
}

// trimRightSpace returns end moved back over trailing blanks in [pos, end).
func trimRightSpace(s string, pos, end int) int {
	for end > pos && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\r') {
		end--
	}
	return end
}
