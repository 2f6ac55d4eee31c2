package wikitext

import (
	"strings"

	"github.com/leapstack-labs/wikidom/pkg/ast"
	"github.com/leapstack-labs/wikidom/pkg/parsestate"
)

// listLine is one line of a list block.
type listLine struct {
	prefix  string // the leading run of *#:;
	start   int    // offset of the line
	content int    // offset after the prefix
	eol     int
}

func listKind(c byte) ast.ListKind {
	switch c {
	case '*':
		return ast.BulletList
	case '#':
		return ast.OrderedList
	default:
		return ast.DefinitionList
	}
}

func itemKind(c byte) ast.ItemKind {
	switch c {
	case ';':
		return ast.TermItem
	case ':':
		return ast.DefinitionItem
	default:
		return ast.Item
	}
}

// list parses a run of consecutive list lines starting at pos.
func (p *parser) list(pos, end int, st *parsestate.State) ([]ast.Block, int) {
	var lines []listLine
	next := pos
	for next < end {
		eol := p.lineEnd(next, end)
		n := 0
		for next+n < eol && strings.IndexByte("*#:;", p.src[next+n]) >= 0 {
			n++
		}
		if n == 0 {
			break
		}
		lines = append(lines, listLine{
			prefix:  p.src[next : next+n],
			start:   next,
			content: next + n,
			eol:     eol,
		})
		after := p.nextLine(eol, end, st)
		if after == eol {
			next = eol
			break
		}
		next = after
	}

	lists := p.buildLists(lines, 0, st)
	out := make([]ast.Block, len(lists))
	for i, l := range lists {
		out[i] = l
	}
	return out, next
}

// buildLists groups lines into lists at the given prefix depth. Lines with
// a longer prefix become sublists of the preceding item.
func (p *parser) buildLists(lines []listLine, depth int, st *parsestate.State) []*ast.List {
	var (
		lists   []*ast.List
		current *ast.List
		item    *ast.ListItem
		nested  []listLine
	)
	flushNested := func() {
		if item != nil && len(nested) > 0 {
			item.Sublists = append(item.Sublists, p.buildLists(nested, depth+1, st)...)
			item.Loc = p.span(item.Pos().Offset, nested[len(nested)-1].eol)
		}
		nested = nil
	}

	for _, line := range lines {
		c := line.prefix[depth]
		if current == nil || current.Kind != listKind(c) {
			flushNested()
			current = &ast.List{Kind: listKind(c)}
			lists = append(lists, current)
			item = nil
		}
		current.Loc = p.span(lineStartOf(current, line), line.eol)

		if len(line.prefix) > depth+1 {
			if item == nil {
				item = &ast.ListItem{Loc: p.span(line.start, line.start), Kind: itemKind(c)}
				current.Items = append(current.Items, item)
			}
			nested = append(nested, line)
			continue
		}

		flushNested()
		item = p.listItem(line, c, st)
		current.Items = append(current.Items, item)
	}
	flushNested()
	return lists
}

// lineStartOf returns the start of l, or of line when l is still empty.
func lineStartOf(l *ast.List, line listLine) int {
	if len(l.Items) == 0 {
		return line.start
	}
	return l.Pos().Offset
}

func (p *parser) listItem(line listLine, c byte, st *parsestate.State) *ast.ListItem {
	start := skipSpace(p.src, line.content, line.eol)
	stop := trimRightSpace(p.src, start, line.eol)
	item := &ast.ListItem{Loc: p.span(line.start, line.eol), Kind: itemKind(c)}

	if c == ';' {
		if colon := definitionColon(p.src[start:stop]); colon >= 0 {
			colon += start
			item.Content, _ = p.inlines(start, trimRightSpace(p.src, start, colon), st)
			defStart := skipSpace(p.src, colon+1, stop)
			item.InlineDefinition, _ = p.inlines(defStart, stop, st)
			item.HasDefinition = true
			return item
		}
	}
	item.Content, _ = p.inlines(start, stop, st)
	return item
}

// definitionColon finds the ':' separating ;term:definition. Colons inside
// links, templates, tags and URL schemes do not count.
func definitionColon(s string) int {
	var brackets, braces, angles int
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			brackets++
		case ']':
			if brackets > 0 {
				brackets--
			}
		case '{':
			braces++
		case '}':
			if braces > 0 {
				braces--
			}
		case '<':
			angles++
		case '>':
			if angles > 0 {
				angles--
			}
		case ':':
			if brackets > 0 || braces > 0 || angles > 0 || strings.HasPrefix(s[i:], "://") {
				continue
			}
			return i
		}
	}
	return -1
}
