package wikitext

import (
	"html"
	"regexp"
	"strings"

	"github.com/leapstack-labs/wikidom/pkg/ast"
)

// blockTags open an HTMLBlock at the start of a line.
var blockTags = set(
	"div", "blockquote", "center", "p",
	"table", "caption", "tr", "td", "th",
	"ul", "ol", "li", "dl", "dt", "dd",
)

// inlineTags become HTMLInline elements.
var inlineTags = set(
	"span", "b", "i", "u", "s", "strike", "small", "big", "sub", "sup",
	"code", "tt", "em", "strong", "abbr", "cite", "dfn", "kbd", "samp",
	"var", "del", "ins", "q", "font", "mark", "bdi", "bdo", "ruby", "rb",
	"rp", "rt", "time", "data", "wbr", "br",
)

// headingTags become HTML headings at the start of a line.
var headingTags = set("h1", "h2", "h3", "h4", "h5", "h6")

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

var (
	openTagRE = regexp.MustCompile(`\A<([A-Za-z][A-Za-z0-9]*)((?:\s[^<>]*?)?)\s*(/?)>`)
	attrRE    = regexp.MustCompile(`([^\s=/>"']+)(?:\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'>]+)))?`)
)

// tag is a parsed opening tag.
type tag struct {
	name        string
	attrs       []ast.Attr
	selfClosing bool
	end         int // offset after '>'
}

// openTag parses an opening tag at pos.
func (p *parser) openTag(pos, end int) (tag, bool) {
	m := openTagRE.FindStringSubmatch(p.src[pos:end])
	if m == nil {
		return tag{}, false
	}
	return tag{
		name:        strings.ToLower(m[1]),
		attrs:       parseAttrs(m[2]),
		selfClosing: m[3] == "/",
		end:         pos + len(m[0]),
	}, true
}

// parseAttrs parses an attribute string. Values are entity-decoded; names
// are kept as written.
func parseAttrs(s string) []ast.Attr {
	var attrs []ast.Attr
	for _, m := range attrRE.FindAllStringSubmatch(s, -1) {
		value := m[2]
		if value == "" {
			value = m[3]
		}
		if value == "" {
			value = m[4]
		}
		attrs = append(attrs, ast.Attr{Name: m[1], Value: html.UnescapeString(value)})
	}
	return attrs
}

// tagScanners caches, per tag name, a pattern matching its opening and
// closing tags.
var tagScanners = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp)
	for _, group := range []map[string]bool{blockTags, inlineTags, headingTags, set("ref", "references", "nowiki", "pre")} {
		for name := range group {
			m[name] = regexp.MustCompile(`(?i)<(/?)` + name + `(?:\s[^<>]*)?\s*(/?)>`)
		}
	}
	return m
}()

// findClose returns the extent of the closing tag matching an element of
// the given name opened before from. Nested elements of the same name are
// skipped. ok is false when the element is never closed.
func (p *parser) findClose(name string, from, end int) (start, stop int, ok bool) {
	re := tagScanners[name]
	if re == nil {
		return end, end, false
	}
	depth := 1
	for _, loc := range re.FindAllStringSubmatchIndex(p.src[from:end], -1) {
		closing := loc[3] > loc[2]
		selfClosing := loc[5] > loc[4]
		switch {
		case closing:
			depth--
		case !selfClosing:
			depth++
		}
		if depth == 0 {
			return from + loc[0], from + loc[1], true
		}
	}
	return end, end, false
}

// closeRule returns the IfNot rule matching the closing tag of name.
func closeRule(name string) string {
	return `(?i)</` + regexp.QuoteMeta(name) + `\s*>`
}
