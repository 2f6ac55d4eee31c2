package wikitext

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/leapstack-labs/wikidom/pkg/ast"
	"github.com/leapstack-labs/wikidom/pkg/parsestate"
)

var (
	trailingCommentsRE = regexp.MustCompile(`(?:[ \t\r]|<!--[\s\S]*?-->)*\z`)
	tableStartRE       = regexp.MustCompile(`\A[ \t]*(:*)[ \t]*\{\|`)
	directiveLineRE    = regexp.MustCompile(`\A[ \t]*__(NOTOC|FORCETOC|TOC)__[ \t\r]*\z`)
)

var directiveKinds = map[string]ast.DirectiveKind{
	"TOC":      ast.DirectiveTOC,
	"NOTOC":    ast.DirectiveNoTOC,
	"FORCETOC": ast.DirectiveForceTOC,
}

// headingRule ends heading content at the closing run of '='.
func headingRule(level int) string {
	return fmt.Sprintf(`={%d}[ \t]*(?:<!--[\s\S]*?-->[ \t]*)*(?:\n|\z)`, level)
}

// blocks parses block content in [pos, end) and returns the offset where
// it stopped: end, or an earlier position where a No rule matched.
func (p *parser) blocks(pos, end int, st *parsestate.State) ([]ast.Block, int) {
	if !p.enter(pos) {
		return nil, end
	}
	defer p.leave()

	var out []ast.Block
	for pos < end && p.err == nil {
		if p.rejected(st.CheckNo(p.src, pos)) {
			break
		}
		nodes, next := p.block(pos, end, st)
		if next <= pos {
			break
		}
		out = append(out, nodes...)
		pos = next
	}
	return out, pos
}

func (p *parser) block(pos, end int, st *parsestate.State) ([]ast.Block, int) {
	eol := p.lineEnd(pos, end)
	line := p.src[pos:eol]

	if isBlank(line) {
		n, next := p.blankRun(pos, end, st)
		var out []ast.Block
		for i := 0; i < n/2; i++ {
			out = append(out, &ast.Paragraph{
				Loc:     p.span(pos, next),
				Content: []ast.Inline{&ast.LineBreak{Loc: p.span(pos, next)}},
			})
		}
		return out, next
	}

	if p.atLineStart(pos) {
		if h, next, ok := p.heading(pos, eol, end, st); ok {
			return []ast.Block{h}, next
		}
		if m := directiveLineRE.FindStringSubmatch(line); m != nil {
			d := &ast.TOCDirective{Loc: p.span(pos, eol), Kind: directiveKinds[m[1]]}
			return []ast.Block{d}, p.nextLine(eol, end, st)
		}
		if strings.HasPrefix(line, "----") {
			return p.rule(pos, eol, end, st)
		}
		if tableStartRE.MatchString(line) {
			t, next := p.table(pos, end, st)
			return []ast.Block{t}, next
		}
		if strings.ContainsRune("*#:;", rune(line[0])) {
			return p.list(pos, end, st)
		}
		if line[0] == ' ' && !p.rejected(st.CheckWsPre()) {
			return p.preformatted(pos, end, st)
		}
	}

	if b, next, ok := p.htmlBlock(pos, end, st); ok {
		return []ast.Block{b}, next
	}
	return p.paragraph(pos, end, st)
}

// blankRun consumes consecutive blank lines and returns their count.
func (p *parser) blankRun(pos, end int, st *parsestate.State) (int, int) {
	n := 0
	for pos < end {
		eol := p.lineEnd(pos, end)
		if !isBlank(p.src[pos:eol]) {
			break
		}
		n++
		next := p.nextLine(eol, end, st)
		if next == eol {
			return n, eol
		}
		pos = next
	}
	return n, pos
}

// headingLevel returns the level of a "== title ==" line and the offset
// (relative to the line) where its content ends, or 0.
func headingLevel(line string) (int, int) {
	open := 0
	for open < len(line) && open < 6 && line[open] == '=' {
		open++
	}
	if open == 0 {
		return 0, 0
	}
	loc := trailingCommentsRE.FindStringIndex(line)
	body := line[:loc[0]]
	closing := 0
	for closing < len(body) && body[len(body)-1-closing] == '=' {
		closing++
	}
	level := min(open, closing)
	if len(body) < 2*level+1 {
		level = (len(body) - 1) / 2
	}
	if level < 1 {
		return 0, 0
	}
	return level, len(body) - level
}

func (p *parser) heading(pos, eol, end int, st *parsestate.State) (*ast.Heading, int, bool) {
	level, contentEnd := headingLevel(p.src[pos:eol])
	if level == 0 {
		return nil, 0, false
	}
	hst := st.Push(parsestate.No, headingRule(level))
	content, _ := p.inlines(pos+level, pos+contentEnd, hst)

	h := &ast.Heading{Loc: p.span(pos, eol), Level: level, Content: content}
	p.sections = append(p.sections, ast.SectionInfo{
		End:     eol,
		Title:   p.opts.Title,
		Section: len(p.sections) + 1,
	})
	return h, p.nextLine(eol, end, st), true
}

// rule parses "----". Text after the dashes starts a new paragraph.
func (p *parser) rule(pos, eol, end int, st *parsestate.State) ([]ast.Block, int) {
	stop := pos
	for stop < eol && p.src[stop] == '-' {
		stop++
	}
	hr := &ast.HorizontalRule{Loc: p.span(pos, stop)}
	if isBlank(p.src[stop:eol]) {
		return []ast.Block{hr}, p.nextLine(eol, end, st)
	}
	return []ast.Block{hr}, skipSpace(p.src, stop, eol)
}

// startsBlock reports whether the line at pos opens a block other than a
// paragraph.
func (p *parser) startsBlock(pos, eol int, st *parsestate.State) bool {
	line := p.src[pos:eol]
	if line == "" {
		return false
	}
	if level, _ := headingLevel(line); level > 0 {
		return true
	}
	switch {
	case strings.HasPrefix(line, "----"),
		tableStartRE.MatchString(line),
		directiveLineRE.MatchString(line),
		strings.ContainsRune("*#:;", rune(line[0])):
		return true
	case line[0] == ' ':
		return st.CheckWsPre() == nil
	case line[0] == '<':
		if t, ok := p.openTag(pos, eol); ok {
			return t.name == "references" || blockTags[t.name] || headingTags[t.name]
		}
	}
	return false
}

// paragraphEnd returns the end of the last line belonging to the
// paragraph starting at pos.
func (p *parser) paragraphEnd(pos, end int, st *parsestate.State) int {
	eol := p.lineEnd(pos, end)
	for eol < end {
		if p.rejected(st.CheckNo(p.src, eol)) {
			break
		}
		next := eol + 1
		if next >= end {
			break
		}
		neol := p.lineEnd(next, end)
		if isBlank(p.src[next:neol]) || p.startsBlock(next, neol, st) {
			break
		}
		eol = neol
	}
	return eol
}

func (p *parser) paragraph(pos, end int, st *parsestate.State) ([]ast.Block, int) {
	limit := p.paragraphEnd(pos, end, st)
	content, stop := p.inlines(pos, limit, st)
	if stop == pos {
		// A stray closing tag of an enclosing element; keep it as text.
		var t ast.Inline
		t, stop = p.text(pos, p.textEnd(pos, limit))
		content = []ast.Inline{t}
	}
	para := &ast.Paragraph{Loc: p.span(pos, stop), Content: content}
	if stop == limit {
		stop = p.nextLine(limit, end, st)
	}
	return []ast.Block{para}, stop
}

// preformatted parses consecutive lines that start with a space. The
// leading space of every line is skipped through a BolSkip rule.
func (p *parser) preformatted(pos, end int, st *parsestate.State) ([]ast.Block, int) {
	eol := p.lineEnd(pos, end)
	for eol < end {
		if p.rejected(st.CheckNo(p.src, eol)) {
			break
		}
		next := eol + 1
		if next >= end || p.src[next] != ' ' {
			break
		}
		neol := p.lineEnd(next, end)
		if isBlank(p.src[next:neol]) {
			break
		}
		eol = neol
	}

	pst := st.Push(parsestate.BolSkip, " ")
	content, stop := p.inlines(pos+1, eol, pst)
	pre := &ast.Preformatted{Loc: p.span(pos, stop), Content: content}
	if stop == eol {
		stop = p.nextLine(eol, end, st)
	}
	return []ast.Block{pre}, stop
}

// htmlBlock parses a block-level HTML element at pos.
func (p *parser) htmlBlock(pos, end int, st *parsestate.State) (ast.Block, int, bool) {
	t, ok := p.openTag(pos, end)
	if !ok {
		return nil, 0, false
	}
	if t.name == "references" {
		refs, next := p.referenceList(pos, t, end, st)
		return refs, p.afterBlockTag(next, end, st), true
	}
	if !blockTags[t.name] && !headingTags[t.name] {
		return nil, 0, false
	}

	if t.selfClosing {
		b := &ast.HTMLBlock{Loc: p.span(pos, t.end), Name: t.name, Attrs: t.attrs}
		return b, p.afterBlockTag(t.end, end, st), true
	}

	closeStart, closeEnd, _ := p.findClose(t.name, t.end, end)
	inner := st.Push(parsestate.IfNot, closeRule(t.name))

	if headingTags[t.name] {
		content, _ := p.inlines(skipSpace(p.src, t.end, closeStart), trimRightSpace(p.src, t.end, closeStart), inner)
		h := &ast.Heading{
			Loc:     p.span(pos, closeEnd),
			Level:   int(t.name[1] - '0'),
			Content: content,
			Attrs:   t.attrs,
			HTML:    true,
		}
		return h, p.afterBlockTag(closeEnd, end, st), true
	}

	content, _ := p.blocks(t.end, closeStart, inner.Push(parsestate.WsPreOff, parsestate.Off))
	b := &ast.HTMLBlock{Loc: p.span(pos, closeEnd), Name: t.name, Attrs: t.attrs, Content: content}
	return b, p.afterBlockTag(closeEnd, end, st), true
}

// afterBlockTag steps over the rest of the line when it is blank.
func (p *parser) afterBlockTag(pos, end int, st *parsestate.State) int {
	eol := p.lineEnd(pos, end)
	if isBlank(p.src[pos:eol]) {
		return p.nextLine(eol, end, st)
	}
	return pos
}
