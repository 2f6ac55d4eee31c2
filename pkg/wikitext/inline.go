package wikitext

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/leapstack-labs/wikidom/pkg/ast"
	"github.com/leapstack-labs/wikidom/pkg/parsestate"
)

// IfNot rules ending inline constructs.
const (
	linkTargetRule = `\||\]\]|\n`
	linkLabelRule  = `\]\]`
	extLabelRule   = `\]|\n`
	italicRule     = `''(?:[^']|\z)|\n`
	boldRule       = `'''(?:[^']|\z)|\n`
	quoteRunRule   = `''|\n`
)

var (
	namedEntityRE   = regexp.MustCompile(`\A&([A-Za-z][A-Za-z0-9]*);`)
	decimalEntityRE = regexp.MustCompile(`\A&#([0-9]+);`)
	hexEntityRE     = regexp.MustCompile(`\A&#[xX]([0-9A-Fa-f]+);`)
	urlRE           = regexp.MustCompile(`\A(?i:https?|ftp|ftps|irc|news|gopher|nntp|telnet|svn|git)://[^\s\[\]<>"{}|]+`)
	extLinkRE       = regexp.MustCompile(`\A\[((?i:(?:https?|ftp|ftps|irc|news|gopher|nntp|telnet|svn|git)://|//|mailto:)[^\s\[\]<>"]+)`)
	suffixRE        = regexp.MustCompile(`\A[a-z]+`)
	directiveRE     = regexp.MustCompile(`\A__(NOTOC|FORCETOC|TOC)__`)
)

// textStops are the bytes that may start a construct other than text.
const textStops = "\n[]'&<{_|!="

// inlines parses inline content in [pos, end). It stops early where an
// IfNot or No rule matches.
func (p *parser) inlines(pos, end int, st *parsestate.State) ([]ast.Inline, int) {
	if !p.enter(pos) {
		return nil, end
	}
	defer p.leave()

	var out []ast.Inline
	for pos < end && p.err == nil {
		if p.rejected(st.CheckIfNot(p.src, pos)) || p.rejected(st.CheckNo(p.src, pos)) {
			break
		}
		node, next := p.inline(pos, end, st)
		if next <= pos {
			break
		}
		out = p.appendInline(out, node)
		pos = next
	}
	return out, pos
}

// appendInline appends n, merging adjacent text runs.
func (p *parser) appendInline(out []ast.Inline, n ast.Inline) []ast.Inline {
	if n == nil {
		return out
	}
	if t, ok := n.(*ast.Text); ok && len(out) > 0 {
		if prev, ok := out[len(out)-1].(*ast.Text); ok {
			prev.Value += t.Value
			prev.Loc = p.span(prev.Pos().Offset, t.End().Offset)
			return out
		}
	}
	return append(out, n)
}

func (p *parser) text(start, stop int) (ast.Inline, int) {
	return &ast.Text{Loc: p.span(start, stop), Value: p.src[start:stop]}, stop
}

//nolint:gocyclo // one case per construct
func (p *parser) inline(pos, end int, st *parsestate.State) (ast.Inline, int) {
	rest := p.src[pos:end]
	switch rest[0] {
	case '\n':
		next := pos + 1
		skip, err := st.CheckBolSkip(p.src, next)
		if p.rejected(err) {
			skip = 0
		}
		if next+skip > end {
			skip = end - next
		}
		return &ast.Text{Loc: p.span(pos, next), Value: "\n"}, next + skip
	case '[':
		if strings.HasPrefix(rest, "[[") {
			if n, next, ok := p.internalLink(pos, end, st); ok {
				return n, next
			}
			return p.text(pos, pos+2)
		}
		if n, next, ok := p.externalLink(pos, end, st); ok {
			return n, next
		}
	case '\'':
		if n, next, ok := p.quotes(pos, end, st); ok {
			return n, next
		}
	case '&':
		if n, next, ok := p.entity(pos, end); ok {
			return n, next
		}
	case '<':
		if n, next, ok := p.markup(pos, end, st); ok {
			return n, next
		}
	case '{':
		if n, next, ok := p.template(pos, end); ok {
			return n, next
		}
	case '_':
		if m := directiveRE.FindStringSubmatch(rest); m != nil {
			next := pos + len(m[0])
			return &ast.TOCDirective{Loc: p.span(pos, next), Kind: directiveKinds[m[1]]}, next
		}
	default:
		if n, next, ok := p.plainLink(pos, end); ok {
			return n, next
		}
	}
	return p.text(pos, p.textEnd(pos, end))
}

// textEnd returns the end of the text run starting at pos. At least one
// character is consumed.
func (p *parser) textEnd(pos, end int) int {
	_, size := utf8.DecodeRuneInString(p.src[pos:end])
	i := pos + size
	for i < end {
		c := p.src[i]
		if strings.IndexByte(textStops, c) >= 0 {
			break
		}
		if p.wordStart(i) && urlRE.MatchString(p.src[i:end]) {
			break
		}
		i++
	}
	return i
}

func (p *parser) wordStart(i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(p.src[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// ---------- Links ----------

func (p *parser) internalLink(pos, end int, st *parsestate.State) (*ast.InternalLink, int, bool) {
	target, stop := p.inlines(pos+2, end, st.Push(parsestate.IfNot, linkTargetRule))
	if len(target) == 0 || stop >= end {
		return nil, 0, false
	}

	link := &ast.InternalLink{Target: target}
	if p.src[stop] == '|' {
		link.Label, stop = p.inlines(stop+1, end, st.Push(parsestate.IfNot, linkLabelRule))
	}
	if !strings.HasPrefix(p.src[stop:end], "]]") {
		return nil, 0, false
	}
	next := stop + 2
	if m := suffixRE.FindString(p.src[next:end]); m != "" {
		link.Suffix = m
		next += len(m)
	}
	link.Loc = p.span(pos, next)
	return link, next, true
}

func (p *parser) externalLink(pos, end int, st *parsestate.State) (*ast.ExternalLink, int, bool) {
	m := extLinkRE.FindStringSubmatch(p.src[pos:end])
	if m == nil {
		return nil, 0, false
	}
	link := &ast.ExternalLink{Target: m[1]}
	stop := pos + len(m[0])
	if stop < end && (p.src[stop] == ' ' || p.src[stop] == '\t') {
		link.Label, stop = p.inlines(skipSpace(p.src, stop, end), end, st.Push(parsestate.IfNot, extLabelRule))
	}
	if stop >= end || p.src[stop] != ']' {
		return nil, 0, false
	}
	link.Loc = p.span(pos, stop+1)
	return link, stop + 1, true
}

func (p *parser) plainLink(pos, end int) (*ast.PlainLink, int, bool) {
	if !p.wordStart(pos) {
		return nil, 0, false
	}
	url := urlRE.FindString(p.src[pos:end])
	if url == "" {
		return nil, 0, false
	}
	url = strings.TrimRight(url, ".,;:!?)'")
	if strings.HasSuffix(url, "://") {
		return nil, 0, false
	}
	next := pos + len(url)
	return &ast.PlainLink{Loc: p.span(pos, next), URL: url}, next, true
}

// ---------- Quotes ----------

func quoteRun(s string) int {
	n := 0
	for n < len(s) && s[n] == '\'' {
		n++
	}
	return n
}

// quotes parses bold and italic runs. Unclosed runs end where their
// content ends.
func (p *parser) quotes(pos, end int, st *parsestate.State) (ast.Inline, int, bool) {
	n := quoteRun(p.src[pos:end])
	switch {
	case n == 1:
		return nil, 0, false
	case n == 4:
		t, next := p.text(pos, pos+1)
		return t, next, true
	case n > 5:
		t, next := p.text(pos, pos+n-5)
		return t, next, true
	case n == 2:
		f, next := p.formatted(ast.Italic, pos, pos+2, end, st)
		return f, next, true
	case n == 3:
		f, next := p.formatted(ast.Bold, pos, pos+3, end, st)
		return f, next, true
	}

	inner, stop := p.inlines(pos+5, end, st.Push(parsestate.IfNot, quoteRunRule))
	f := &ast.Formatting{Style: ast.BoldAndItalic}
	switch closing := quoteRun(p.src[stop:end]); {
	case closing >= 5:
		f.Content = inner
		stop += 5
	case closing == 3 || closing == 4:
		f.Style = ast.ItalicBold
		f.Inner = inner
		f.Content, stop = p.inlines(stop+3, end, st.Push(parsestate.IfNot, italicRule))
		stop = closeQuotes(p.src, stop, end, 2)
	case closing == 2:
		f.Style = ast.BoldItalic
		f.Inner = inner
		f.Content, stop = p.inlines(stop+2, end, st.Push(parsestate.IfNot, boldRule))
		stop = closeQuotes(p.src, stop, end, 3)
	default:
		f.Content = inner
	}
	f.Loc = p.span(pos, stop)
	return f, stop, true
}

func (p *parser) formatted(style ast.FormatStyle, pos, start, end int, st *parsestate.State) (*ast.Formatting, int) {
	rule, width := italicRule, 2
	if style == ast.Bold {
		rule, width = boldRule, 3
	}
	content, stop := p.inlines(start, end, st.Push(parsestate.IfNot, rule))
	stop = closeQuotes(p.src, stop, end, width)
	return &ast.Formatting{Loc: p.span(pos, stop), Style: style, Content: content}, stop
}

// closeQuotes steps over a closing run of width quotes at pos.
func closeQuotes(src string, pos, end, width int) int {
	if pos+width <= end && quoteRun(src[pos:pos+width]) == width {
		return pos + width
	}
	return pos
}

// ---------- Entities ----------

func (p *parser) entity(pos, end int) (ast.Inline, int, bool) {
	rest := p.src[pos:end]
	if m := namedEntityRE.FindStringSubmatch(rest); m != nil {
		next := pos + len(m[0])
		return &ast.NamedEntity{Loc: p.span(pos, next), Name: m[1]}, next, true
	}
	if m := decimalEntityRE.FindStringSubmatch(rest); m != nil {
		next := pos + len(m[0])
		return &ast.NumericEntity{Loc: p.span(pos, next), Digits: m[1]}, next, true
	}
	if m := hexEntityRE.FindStringSubmatch(rest); m != nil {
		next := pos + len(m[0])
		return &ast.NumericEntity{Loc: p.span(pos, next), Digits: m[1], Hex: true}, next, true
	}
	return nil, 0, false
}

// ---------- Markup ----------

// markup parses comments and tags starting with '<'.
func (p *parser) markup(pos, end int, st *parsestate.State) (ast.Inline, int, bool) {
	rest := p.src[pos:end]
	if strings.HasPrefix(rest, "<!--") {
		stop := end
		text := rest[4:]
		if i := strings.Index(rest[4:], "-->"); i >= 0 {
			text = rest[4 : 4+i]
			stop = pos + 4 + i + 3
		}
		return &ast.Comment{Loc: p.span(pos, stop), Text: text}, stop, true
	}

	t, ok := p.openTag(pos, end)
	if !ok {
		return nil, 0, false
	}
	switch name := t.name; {
	case name == "nowiki", name == "pre":
		return p.literal(pos, t, end)
	case name == "ref":
		if ref, next, ok := p.reference(pos, t, end, st); ok {
			return ref, next, true
		}
		return nil, 0, false
	case name == "references":
		n, next := p.referenceList(pos, t, end, st)
		return n, next, true
	case name == "br":
		return &ast.HTMLInline{Loc: p.span(pos, t.end), Name: t.name, Attrs: t.attrs, SelfClosing: true}, t.end, true
	case inlineTags[name]:
		el := &ast.HTMLInline{Name: name, Attrs: t.attrs, SelfClosing: t.selfClosing}
		stop := t.end
		if !t.selfClosing {
			el.Content, stop = p.inlines(t.end, end, st.Push(parsestate.IfNot, closeRule(name)))
			if loc := tagScanners[name].FindStringSubmatchIndex(p.src[stop:end]); loc != nil && loc[0] == 0 && loc[3] > loc[2] {
				stop += loc[1]
			}
		}
		el.Loc = p.span(pos, stop)
		return el, stop, true
	}
	return nil, 0, false
}

// literal parses <nowiki> and <pre>, whose content is not interpreted.
func (p *parser) literal(pos int, t tag, end int) (ast.Inline, int, bool) {
	text, stop := "", t.end
	if !t.selfClosing {
		closeStart, closeEnd, ok := p.findClose(t.name, t.end, end)
		if !ok {
			return nil, 0, false
		}
		text, stop = p.src[t.end:closeStart], closeEnd
	}
	if t.name == "pre" {
		return &ast.Pre{Loc: p.span(pos, stop), Attrs: t.attrs, Text: text}, stop, true
	}
	return &ast.Nowiki{Loc: p.span(pos, stop), Text: text}, stop, true
}

// reference parses a <ref> usage. Its content is block content.
func (p *parser) reference(pos int, t tag, end int, st *parsestate.State) (*ast.Reference, int, bool) {
	ref := &ast.Reference{Attrs: t.attrs}
	if t.selfClosing {
		ref.Loc = p.span(pos, t.end)
		return ref, t.end, true
	}
	closeStart, closeEnd, ok := p.findClose("ref", t.end, end)
	if !ok {
		return nil, 0, false
	}
	inner := st.Push(parsestate.WsPreOff, parsestate.Off).Push(parsestate.IfNot, closeRule("ref"))
	ref.Content, _ = p.blocks(t.end, closeStart, inner)
	ref.Loc = p.span(pos, closeEnd)
	return ref, closeEnd, true
}

// referenceList parses <references>. The <ref> elements inside become its
// definitions; other content is dropped.
func (p *parser) referenceList(pos int, t tag, end int, st *parsestate.State) (*ast.ReferenceList, int) {
	list := &ast.ReferenceList{Attrs: t.attrs}
	if t.selfClosing {
		list.Loc = p.span(pos, t.end)
		return list, t.end
	}
	closeStart, closeEnd, _ := p.findClose("references", t.end, end)
	inner := st.Push(parsestate.WsPreOff, parsestate.Off).Push(parsestate.IfNot, closeRule("references"))
	content, _ := p.blocks(t.end, closeStart, inner)
	for _, b := range content {
		ast.Walk(b, func(n ast.Node) bool {
			if ref, ok := n.(*ast.Reference); ok {
				list.Definitions = append(list.Definitions, ref)
				return false
			}
			return true
		})
	}
	list.Loc = p.span(pos, closeEnd)
	return list, closeEnd
}

// ---------- Templates ----------

// template parses an unexpanded {{name|args}} invocation.
func (p *parser) template(pos, end int) (*ast.Template, int, bool) {
	if !strings.HasPrefix(p.src[pos:end], "{{") {
		return nil, 0, false
	}
	depth, parts, partStart := 0, []string(nil), pos+2
	links := 0
	for i := pos; i+1 < end; i++ {
		switch p.src[i : i+2] {
		case "{{":
			depth++
			i++
			continue
		case "}}":
			depth--
			if depth == 0 {
				parts = append(parts, p.src[partStart:i])
				next := i + 2
				tpl := &ast.Template{
					Loc:  p.span(pos, next),
					Name: strings.TrimSpace(parts[0]),
					Args: parts[1:],
				}
				return tpl, next, true
			}
			i++
			continue
		case "[[":
			links++
			i++
			continue
		case "]]":
			if links > 0 {
				links--
			}
			i++
			continue
		}
		if p.src[i] == '|' && depth == 1 && links == 0 {
			parts = append(parts, p.src[partStart:i])
			partStart = i + 1
		}
	}
	return nil, 0, false
}
