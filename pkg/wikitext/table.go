package wikitext

import (
	"strings"

	"github.com/leapstack-labs/wikidom/pkg/ast"
	"github.com/leapstack-labs/wikidom/pkg/parsestate"
)

// Rules ending table content.
const (
	cellLineRule   = `\n[ \t]*[|!]`
	dataCellRule   = `\|\|`
	headerCellRule = `\|\||!!`
)

// tableState drops the line rule of an enclosing table so a nested table
// can see its own lines.
func tableState(st *parsestate.State) *parsestate.State {
	if top, ok := st.Peek(parsestate.No); ok && top == cellLineRule {
		return st.Pop(parsestate.No)
	}
	return st
}

// table parses {| ... |} starting at the line at pos.
func (p *parser) table(pos, end int, outer *parsestate.State) (*ast.Table, int) {
	st := tableState(outer)
	eol := p.lineEnd(pos, end)
	m := tableStartRE.FindStringSubmatchIndex(p.src[pos:eol])
	t := &ast.Table{
		Indent: m[3] - m[2],
		Attrs:  parseAttrs(p.src[pos+m[1] : eol]),
	}

	var row *ast.TableRow
	closeRow := func() {
		if row != nil && len(row.Cells) > 0 {
			t.Rows = append(t.Rows, row)
		}
		row = nil
	}

	next := p.nextLine(eol, end, st)
	for next < end && next > eol && p.err == nil {
		lineStart := next
		eol = p.lineEnd(lineStart, end)
		at := skipSpace(p.src, lineStart, eol)
		line := p.src[at:eol]

		switch {
		case strings.HasPrefix(line, "|}"):
			closeRow()
			stop := at + 2
			t.Loc = p.span(pos, stop)
			return t, p.afterBlockTag(stop, end, outer)

		case strings.HasPrefix(line, "|+"):
			attrs, contentStart := p.cellAttrs(at+2, eol)
			content, stop := p.blocks(contentStart, end, p.cellState(st))
			t.Caption = &ast.TableCaption{Loc: p.span(at, stop), Attrs: attrs, Content: content}
			eol = stop

		case strings.HasPrefix(line, "|-"):
			closeRow()
			dashes := at + 1
			for dashes < eol && p.src[dashes] == '-' {
				dashes++
			}
			row = &ast.TableRow{Loc: p.span(at, eol), Attrs: parseAttrs(p.src[dashes:eol])}

		case strings.HasPrefix(line, "|"), strings.HasPrefix(line, "!"):
			if row == nil {
				row = &ast.TableRow{Loc: p.span(at, at), Implicit: true}
			}
			eol = p.cells(row, at, end, st)
			row.Loc = p.span(row.Pos().Offset, eol)

		default:
			p.logger.Debug("skipping stray table line", "pos", p.lines.Position(lineStart).String())
		}
		next = p.nextLine(eol, end, st)
	}

	closeRow()
	t.Loc = p.span(pos, next)
	p.logger.Debug("table not closed", "pos", p.lines.Position(pos).String())
	return t, next
}

// cellState is the state for multi-line cell content.
func (p *parser) cellState(st *parsestate.State) *parsestate.State {
	return st.Push(parsestate.No, cellLineRule).SetTop(parsestate.WsPreOff, parsestate.On)
}

// cells parses the cells of the line at pos, which starts with '|' or '!'.
// It returns the offset where the last cell's content ended.
func (p *parser) cells(row *ast.TableRow, pos, end int, st *parsestate.State) int {
	header := p.src[pos] == '!'
	sep := dataCellRule
	if header {
		sep = headerCellRule
	}
	eol := p.lineEnd(pos, end)
	inlineState := st.Push(parsestate.No, sep)

	start := pos + 1
	for p.err == nil {
		attrs, contentStart := p.cellAttrs(start, eol)
		content, stop := p.inlines(contentStart, eol, inlineState)
		if stop+2 <= eol && isCellSeparator(p.src[stop:stop+2], header) {
			row.Cells = append(row.Cells, &ast.TableCell{
				Loc:    p.span(start-1, stop),
				Header: header,
				Attrs:  attrs,
				Inline: content,
			})
			start = stop + 2
			continue
		}

		blocks, stop := p.blocks(contentStart, end, p.cellState(st))
		row.Cells = append(row.Cells, &ast.TableCell{
			Loc:    p.span(start-1, stop),
			Header: header,
			Attrs:  attrs,
			Blocks: nonNil(blocks),
		})
		return stop
	}
	return eol
}

func isCellSeparator(s string, header bool) bool {
	return s == "||" || (header && s == "!!")
}

func nonNil(blocks []ast.Block) []ast.Block {
	if blocks == nil {
		return []ast.Block{}
	}
	return blocks
}

// cellAttrs splits "attrs | content" at the first single '|' on the line.
// A '|' after a link, template or cell separator does not count.
func (p *parser) cellAttrs(pos, eol int) ([]ast.Attr, int) {
	for i := pos; i < eol; i++ {
		rest := p.src[i:eol]
		switch {
		case strings.HasPrefix(rest, "[["), strings.HasPrefix(rest, "{{"),
			strings.HasPrefix(rest, "||"), strings.HasPrefix(rest, "!!"):
			return nil, skipSpace(p.src, pos, eol)
		case rest[0] == '|':
			return parseAttrs(p.src[pos:i]), skipSpace(p.src, i+1, eol)
		}
	}
	return nil, skipSpace(p.src, pos, eol)
}
