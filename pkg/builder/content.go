package builder

import (
	"strings"

	"github.com/leapstack-labs/wikidom/pkg/dom"
)

// piece is one unit of mixed content: either text or an element.
type piece struct {
	node *dom.Node
	text string
}

func textPiece(s string) piece { return piece{text: s} }

func nodePiece(n *dom.Node) piece { return piece{node: n} }

func (p piece) isText() bool { return p.node == nil }

// blockPieces returns a block element followed by a newline.
func blockPieces(n *dom.Node) []piece { return []piece{nodePiece(n), textPiece("\n")} }

// collect appends pieces to el, folding text into the leading text or the
// tail of the preceding child.
func collect(el *dom.Node, pieces []piece) {
	for _, p := range pieces {
		if p.isText() {
			el.AppendText(p.text)
			continue
		}
		el.Append(p.node)
	}
}

// trimTrailing removes trailing whitespace from the final text pieces.
func trimTrailing(pieces []piece) []piece {
	for len(pieces) > 0 {
		last := pieces[len(pieces)-1]
		if !last.isText() {
			break
		}
		trimmed := strings.TrimRight(last.text, " \t\r\n")
		if trimmed != "" {
			pieces[len(pieces)-1] = textPiece(trimmed)
			break
		}
		pieces = pieces[:len(pieces)-1]
	}
	return pieces
}

// trimLeading removes leading whitespace from the first text pieces.
func trimLeading(pieces []piece) []piece {
	for len(pieces) > 0 {
		first := pieces[0]
		if !first.isText() {
			break
		}
		trimmed := strings.TrimLeft(first.text, " \t\r\n")
		if trimmed != "" {
			pieces[0] = textPiece(trimmed)
			break
		}
		pieces = pieces[1:]
	}
	return pieces
}

// ensureNewline makes non-empty content end with a newline.
func ensureNewline(pieces []piece) []piece {
	if len(pieces) == 0 {
		return pieces
	}
	last := pieces[len(pieces)-1]
	if last.isText() && strings.HasSuffix(last.text, "\n") {
		return pieces
	}
	return append(pieces, textPiece("\n"))
}

// onlyText returns the concatenated text when pieces hold no elements.
func onlyText(pieces []piece) (string, bool) {
	var sb strings.Builder
	for _, p := range pieces {
		if !p.isText() {
			return "", false
		}
		sb.WriteString(p.text)
	}
	return sb.String(), true
}

// collectBlocks appends block content to el. Content that is exactly one
// paragraph is collapsed: the paragraph's content moves into el with its
// trailing whitespace removed.
func collectBlocks(el *dom.Node, pieces []piece) {
	var elems []*dom.Node
	for _, p := range pieces {
		if !p.isText() {
			elems = append(elems, p.node)
		} else if strings.TrimSpace(p.text) != "" {
			elems = nil
			break
		}
	}
	if len(elems) == 1 && elems[0].Tag == "p" {
		p := elems[0]
		el.AppendText(p.Text)
		for _, ch := range p.Children {
			el.AppendTail(ch.Node, ch.Tail)
		}
		el.SetTrailingText(strings.TrimRight(el.TrailingText(), " \t\r\n"))
		return
	}
	collect(el, pieces)
}
