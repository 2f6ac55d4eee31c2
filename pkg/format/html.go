package format

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/leapstack-labs/wikidom/pkg/dom"
)

// ToHTML converts a document tree into an x/net/html node tree. Leading
// text and tails become text nodes; attribute order is kept.
func ToHTML(n *dom.Node) *html.Node {
	el := &html.Node{
		Type:     html.ElementNode,
		Data:     n.Tag,
		DataAtom: atom.Lookup([]byte(n.Tag)),
	}
	for _, a := range n.Attr {
		el.Attr = append(el.Attr, html.Attribute{Key: a.Name, Val: a.Value})
	}
	if n.Text != "" {
		el.AppendChild(&html.Node{Type: html.TextNode, Data: n.Text})
	}
	for _, ch := range n.Children {
		el.AppendChild(ToHTML(ch.Node))
		if ch.Tail != "" {
			el.AppendChild(&html.Node{Type: html.TextNode, Data: ch.Tail})
		}
	}
	return el
}

// FromHTML converts an element of an x/net/html tree back into a document
// tree. Comments and other non-element nodes are dropped.
func FromHTML(h *html.Node) *dom.Node {
	n := dom.New(h.Data)
	for _, a := range h.Attr {
		n.Attr.Set(a.Key, a.Val)
	}
	for c := h.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			n.AppendText(c.Data)
		case html.ElementNode:
			n.Append(FromHTML(c))
		}
	}
	return n
}

// WriteHTML writes n as compact HTML.
func WriteHTML(w io.Writer, n *dom.Node) error {
	if err := html.Render(w, ToHTML(n)); err != nil {
		return fmt.Errorf("render %s: %w", n.Tag, err)
	}
	return nil
}

// HTML returns n as compact HTML.
func HTML(n *dom.Node) (string, error) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// InnerHTML returns the content of n without its own tags.
func InnerHTML(n *dom.Node) (string, error) {
	var buf bytes.Buffer
	h := ToHTML(n)
	for c := h.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("render %s content: %w", n.Tag, err)
		}
	}
	return buf.String(), nil
}

// body returns the <body> of a compiled document, or root itself.
func body(root *dom.Node) *dom.Node {
	if b := root.Find("body"); b != nil {
		return b
	}
	return root
}

// WriteDocument writes a standalone HTML page for a compiled document.
func WriteDocument(w io.Writer, root *dom.Node, title string) error {
	page := dom.New("html")
	head := page.Append(dom.New("head"))
	head.Append(dom.New("meta", dom.A("charset", "utf-8")))
	head.Append(dom.New("title")).AppendText(title)
	page.Append(body(root).Clone())

	if _, err := io.WriteString(w, "<!DOCTYPE html>\n"); err != nil {
		return err
	}
	if err := WriteHTML(w, page); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
