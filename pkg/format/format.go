// Package format serializes compiled document trees as HTML or Markdown.
package format

import (
	"fmt"
	"io"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/leapstack-labs/wikidom/pkg/dom"
)

// Kind selects an output format.
type Kind string

// Output formats.
const (
	KindHTML     Kind = "html"
	KindPretty   Kind = "pretty"
	KindMarkdown Kind = "markdown"
)

// ParseKind validates a format name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindHTML, KindPretty, KindMarkdown:
		return k, nil
	case "md":
		return KindMarkdown, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want html, pretty or markdown)", s)
	}
}

// Extension returns the file extension for the format.
func (k Kind) Extension() string {
	if k == KindMarkdown {
		return ".md"
	}
	return ".html"
}

// Markdown converts the body of a compiled document to Markdown.
func Markdown(root *dom.Node) (string, error) {
	content, err := InnerHTML(body(root))
	if err != nil {
		return "", err
	}
	md, err := htmltomarkdown.ConvertString(content)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	return md, nil
}

// Write serializes a compiled document in the given format. Title is used
// for standalone HTML pages.
func Write(w io.Writer, root *dom.Node, kind Kind, title string) error {
	var out string
	var err error
	switch kind {
	case KindHTML:
		return WriteDocument(w, root, title)
	case KindPretty:
		out, err = Pretty(body(root))
	case KindMarkdown:
		out, err = Markdown(root)
	default:
		return fmt.Errorf("unknown output format %q", kind)
	}
	if err != nil {
		return err
	}
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	_, err = io.WriteString(w, out)
	return err
}
