package format

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"

	"github.com/leapstack-labs/wikidom/pkg/dom"
)

const indentSize = 2

// structural elements are laid out one child per line when they hold no
// text of their own.
var structural = map[string]bool{
	"html": true, "head": true, "body": true, "div": true,
	"table": true, "tr": true, "thead": true, "tbody": true, "tfoot": true,
	"ul": true, "ol": true, "dl": true, "dd": true, "references": true, "blockquote": true,
}

// Printer renders a document tree as indented HTML.
type Printer struct {
	output      *bytes.Buffer
	depth       int
	atLineStart bool
	err         error
}

func newPrinter() *Printer {
	return &Printer{
		output:      &bytes.Buffer{},
		atLineStart: true,
	}
}

// String returns the formatted output.
func (p *Printer) String() string {
	return strings.TrimRight(p.output.String(), "\n") + "\n"
}

func (p *Printer) write(s string) {
	if p.atLineStart && len(s) > 0 && s[0] != '\n' {
		p.writeIndent()
	}
	p.output.WriteString(s)
	p.atLineStart = false
}

func (p *Printer) writeln() {
	p.output.WriteByte('\n')
	p.atLineStart = true
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.depth*indentSize; i++ {
		p.output.WriteByte(' ')
	}
	p.atLineStart = false
}

func (p *Printer) indent() {
	p.depth++
}

func (p *Printer) dedent() {
	if p.depth > 0 {
		p.depth--
	}
}

// Pretty renders n as indented HTML. Structural elements without text of
// their own get one child per line; everything else is rendered compactly,
// so whitespace inside text content is preserved.
func Pretty(n *dom.Node) (string, error) {
	p := newPrinter()
	p.node(n)
	if p.err != nil {
		return "", p.err
	}
	return p.String(), nil
}

func isLayout(n *dom.Node) bool {
	if !structural[n.Tag] || len(n.Children) == 0 {
		return false
	}
	if strings.TrimSpace(n.Text) != "" {
		return false
	}
	for _, ch := range n.Children {
		if strings.TrimSpace(ch.Tail) != "" {
			return false
		}
	}
	return true
}

func (p *Printer) node(n *dom.Node) {
	if !isLayout(n) {
		p.compact(n)
		p.writeln()
		return
	}

	shallow := &dom.Node{Tag: n.Tag, Attr: n.Attr}
	open, _ := renderCompact(shallow)
	p.write(strings.TrimSuffix(open, "</"+n.Tag+">"))
	p.writeln()
	p.indent()
	for _, ch := range n.Children {
		p.node(ch.Node)
	}
	p.dedent()
	p.write("</" + n.Tag + ">")
	p.writeln()
}

func (p *Printer) compact(n *dom.Node) {
	s, err := renderCompact(n)
	if err != nil && p.err == nil {
		p.err = err
	}
	p.write(s)
}

func renderCompact(n *dom.Node) (string, error) {
	var buf bytes.Buffer
	err := html.Render(&buf, ToHTML(n))
	return buf.String(), err
}
