// Package builder converts a wikitext parse tree into a document tree.
// Each parse node variant maps to zero or more elements and text runs;
// links are resolved through a site.Resolver and attributes are filtered
// by the sanitize package.
package builder

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/leapstack-labs/wikidom/pkg/ast"
	"github.com/leapstack-labs/wikidom/pkg/dom"
	"github.com/leapstack-labs/wikidom/pkg/sanitize"
	"github.com/leapstack-labs/wikidom/pkg/site"
)

// ErrUnknownNode is returned for a parse node the builder cannot handle.
var ErrUnknownNode = errors.New("unknown parse node")

// BrokenTarget is the link target used when a target is not plain text.
const BrokenTarget = "BROKEN"

// HeadingInfo describes the source section of a heading for edit links.
type HeadingInfo struct {
	// Title is the page the section belongs to; empty when unknown.
	Title string
	// Section is the 1-based section number.
	Section int
}

// HeadingMeta returns edit-link metadata for the heading ending at the
// given byte offset.
type HeadingMeta func(end int) (HeadingInfo, bool)

// SectionLookup returns a HeadingMeta over the section list of a document.
func SectionLookup(sections []ast.SectionInfo) HeadingMeta {
	if len(sections) == 0 {
		return nil
	}
	byEnd := make(map[int]HeadingInfo, len(sections))
	for _, s := range sections {
		byEnd[s.End] = HeadingInfo{Title: s.Title, Section: s.Section}
	}
	return func(end int) (HeadingInfo, bool) {
		info, ok := byEnd[end]
		return info, ok
	}
}

// Config holds builder configuration.
type Config struct {
	// Resolver resolves internal link targets (default: site.New(site.DefaultConfig()))
	Resolver site.Resolver
	// Messages provides localized strings (default: English catalog)
	Messages site.Messages
	// HeadingMeta enables section edit links when set
	HeadingMeta HeadingMeta
	// Whitelist extends the attribute whitelist
	Whitelist sanitize.WhitelistOptions
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Builder converts parse trees. It holds no per-document state and may be
// shared between goroutines when its resolver and messages are.
type Builder struct {
	resolver    site.Resolver
	messages    site.Messages
	headingMeta HeadingMeta
	whitelist   sanitize.WhitelistOptions
	logger      *slog.Logger
}

// New returns a Builder for cfg.
func New(cfg Config) (*Builder, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = site.New(site.DefaultConfig())
	}
	messages := cfg.Messages
	if messages == nil {
		catalog, err := site.NewCatalog("en", nil)
		if err != nil {
			return nil, fmt.Errorf("load messages: %w", err)
		}
		messages = catalog
	}
	return &Builder{
		resolver:    resolver,
		messages:    messages,
		headingMeta: cfg.HeadingMeta,
		whitelist:   cfg.Whitelist,
		logger:      logger,
	}, nil
}

// WithHeadingMeta returns a copy of b using meta for edit links.
func (b *Builder) WithHeadingMeta(meta HeadingMeta) *Builder {
	c := *b
	c.headingMeta = meta
	return &c
}

// Build converts doc into an <html><body>...</body></html> tree.
func (b *Builder) Build(doc *ast.Document) (*dom.Node, error) {
	html := dom.New("html")
	body := html.Append(dom.New("body"))

	pieces, err := b.blocks(doc.Blocks)
	if err != nil {
		return nil, err
	}
	collect(body, pieces)

	b.logger.Debug("built document", "blocks", len(doc.Blocks), "elements", body.Len())
	return html, nil
}

func (b *Builder) attrs(tag string, raw []ast.Attr) dom.Attributes {
	if len(raw) == 0 {
		return nil
	}
	conv := make([]dom.Attribute, len(raw))
	for i, a := range raw {
		conv[i] = dom.Attribute{Name: a.Name, Value: a.Value}
	}
	return sanitize.SanitizeWith(sanitize.WhitelistFor(tag, b.whitelist), conv)
}

// setAttrs applies sanitized attributes after any already present.
func (b *Builder) setAttrs(el *dom.Node, raw []ast.Attr) {
	for _, a := range b.attrs(el.Tag, raw) {
		el.Attr.Set(a.Name, a.Value)
	}
}

func (b *Builder) message(key, fallback string) string {
	if v := b.messages.Message(key); v != "" && v != key {
		return v
	}
	return fallback
}

// ---------- Blocks ----------

func (b *Builder) blocks(list []ast.Block) ([]piece, error) {
	var out []piece
	for _, n := range list {
		ps, err := b.block(n)
		if err != nil {
			return nil, err
		}
		out = append(out, ps...)
	}
	return out, nil
}

//nolint:gocyclo // one case per node kind
func (b *Builder) block(node ast.Block) ([]piece, error) {
	switch n := node.(type) {
	case *ast.Heading:
		return b.heading(n)
	case *ast.Paragraph:
		return b.paragraph(n)
	case *ast.List:
		return b.list(n)
	case *ast.Table:
		return b.table(n)
	case *ast.Preformatted:
		content, err := b.inlines(n.Content)
		if err != nil {
			return nil, err
		}
		pre := dom.New("pre")
		collect(pre, ensureNewline(content))
		return []piece{nodePiece(pre)}, nil
	case *ast.HorizontalRule:
		return blockPieces(dom.New("hr")), nil
	case *ast.TOCDirective:
		return []piece{nodePiece(dom.New(n.Kind.String()))}, nil
	case *ast.HTMLBlock:
		return b.htmlBlock(n)
	case *ast.ReferenceList:
		return b.referenceList(n)
	case *ast.Comment:
		return nil, nil
	case *ast.Template:
		return []piece{textPiece(templateText(n))}, nil
	case *ast.Pre:
		return []piece{nodePiece(b.pre(n))}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownNode, node)
	}
}

// Anchor derives the anchor id of a heading from its text: trimmed,
// whitespace runs replaced by underscores, NFC-normalized.
func Anchor(text string) string {
	return norm.NFC.String(strings.Join(strings.Fields(text), "_"))
}

func (b *Builder) heading(n *ast.Heading) ([]piece, error) {
	if n.Level < 1 || n.Level > 6 {
		return nil, fmt.Errorf("%w: heading level %d", ErrUnknownNode, n.Level)
	}
	content, err := b.inlines(n.Content)
	if err != nil {
		return nil, err
	}
	h := dom.New("h" + strconv.Itoa(n.Level))
	headline := h.Append(dom.New("span", dom.A("class", "mw-headline")))
	collect(headline, trimTrailing(trimLeading(content)))
	anchor := Anchor(headline.TextContent())
	headline.Attr.Set("id", anchor)
	if n.HTML {
		b.setAttrs(h, n.Attrs)
	}

	if b.headingMeta != nil {
		if info, ok := b.headingMeta(n.End().Offset); ok {
			h.Append(b.editSection(info, anchor))
		}
	}
	return blockPieces(h), nil
}

func (b *Builder) editSection(info HeadingInfo, anchor string) *dom.Node {
	title := info.Title
	if title == "" {
		title = "(none)"
	}
	href := b.resolver.BuildURL(b.resolver.Canonicalize(title), site.Action("edit"), site.Section(info.Section))

	span := dom.New("span", dom.A("class", "mw-editsection"))
	span.Append(dom.New("span", dom.A("class", "mw-editsection-bracket"))).AppendText("[")
	link := span.Append(dom.New("a",
		dom.A("href", href),
		dom.A("title", b.message(site.MsgEditSection, "Edit section: ")+anchor),
	))
	link.AppendText(b.message(site.MsgEdit, "edit"))
	span.Append(dom.New("span", dom.A("class", "mw-editsection-bracket"))).AppendText("]")
	return span
}

func (b *Builder) paragraph(n *ast.Paragraph) ([]piece, error) {
	content, err := b.inlines(n.Content)
	if err != nil {
		return nil, err
	}
	p := dom.New("p")
	collect(p, ensureNewline(content))
	return []piece{nodePiece(p)}, nil
}

func (b *Builder) list(n *ast.List) ([]piece, error) {
	var tag string
	switch n.Kind {
	case ast.BulletList:
		tag = "ul"
	case ast.OrderedList:
		tag = "ol"
	case ast.DefinitionList:
		tag = "dl"
	default:
		return nil, fmt.Errorf("%w: list kind %d", ErrUnknownNode, n.Kind)
	}
	el := dom.New(tag)
	for _, item := range n.Items {
		ps, err := b.listItem(item)
		if err != nil {
			return nil, err
		}
		collect(el, ps)
	}
	return blockPieces(el), nil
}

func (b *Builder) listItem(n *ast.ListItem) ([]piece, error) {
	var tag string
	switch n.Kind {
	case ast.Item:
		tag = "li"
	case ast.TermItem:
		tag = "dt"
	case ast.DefinitionItem:
		tag = "dd"
	default:
		return nil, fmt.Errorf("%w: list item kind %d", ErrUnknownNode, n.Kind)
	}

	content, err := b.inlines(n.Content)
	if err != nil {
		return nil, err
	}
	el := dom.New(tag)

	if n.Kind == ast.TermItem && n.HasDefinition {
		// ;term:definition expands into a dt/dd pair without sublists.
		collect(el, content)
		def, err := b.inlines(n.InlineDefinition)
		if err != nil {
			return nil, err
		}
		dd := dom.New("dd")
		collect(dd, append(def, textPiece("\n")))
		return []piece{nodePiece(el), nodePiece(dd)}, nil
	}

	collect(el, append(content, textPiece("\n")))
	for _, sub := range n.Sublists {
		ps, err := b.list(sub)
		if err != nil {
			return nil, err
		}
		collect(el, ps)
	}
	return []piece{nodePiece(el)}, nil
}

func (b *Builder) table(n *ast.Table) ([]piece, error) {
	table := dom.New("table")
	if n.Caption != nil {
		caption := table.Append(dom.New("caption"))
		content, err := b.blocks(n.Caption.Content)
		if err != nil {
			return nil, err
		}
		collectBlocks(caption, content)
		b.setAttrs(caption, n.Caption.Attrs)
	}
	for _, row := range n.Rows {
		tr := table.Append(dom.New("tr"))
		for _, cell := range row.Cells {
			td, err := b.tableCell(cell)
			if err != nil {
				return nil, err
			}
			tr.Append(td)
		}
		if !row.Implicit {
			b.setAttrs(tr, row.Attrs)
		}
	}
	b.setAttrs(table, n.Attrs)

	el := table
	for i := 0; i < n.Indent; i++ {
		dl := dom.New("dl")
		dl.Append(dom.New("dd")).Append(el)
		el = dl
	}
	return []piece{nodePiece(el)}, nil
}

func (b *Builder) tableCell(n *ast.TableCell) (*dom.Node, error) {
	tag := "td"
	if n.Header {
		tag = "th"
	}
	el := dom.New(tag)
	if n.IsBlock() {
		content, err := b.blocks(n.Blocks)
		if err != nil {
			return nil, err
		}
		collectBlocks(el, content)
	} else {
		content, err := b.inlines(n.Inline)
		if err != nil {
			return nil, err
		}
		collect(el, trimTrailing(content))
	}
	b.setAttrs(el, n.Attrs)
	return el, nil
}

func (b *Builder) htmlBlock(n *ast.HTMLBlock) ([]piece, error) {
	el := dom.New(strings.ToLower(n.Name))
	content, err := b.blocks(n.Content)
	if err != nil {
		return nil, err
	}
	collectBlocks(el, content)
	b.setAttrs(el, n.Attrs)
	return []piece{nodePiece(el)}, nil
}

func (b *Builder) referenceList(n *ast.ReferenceList) ([]piece, error) {
	el := dom.New("references")
	for _, def := range n.Definitions {
		ref, err := b.reference(def)
		if err != nil {
			return nil, err
		}
		el.Append(ref)
	}
	b.setAttrs(el, n.Attrs)
	return []piece{nodePiece(el)}, nil
}

func (b *Builder) reference(n *ast.Reference) (*dom.Node, error) {
	el := dom.New("ref")
	content, err := b.blocks(n.Content)
	if err != nil {
		return nil, err
	}
	collectBlocks(el, content)
	b.setAttrs(el, n.Attrs)
	return el, nil
}

func (b *Builder) pre(n *ast.Pre) *dom.Node {
	el := dom.New("pre")
	el.AppendText(n.Text)
	b.setAttrs(el, n.Attrs)
	return el
}

func templateText(n *ast.Template) string {
	var sb strings.Builder
	sb.WriteString("{{")
	sb.WriteString(n.Name)
	for _, arg := range n.Args {
		sb.WriteByte('|')
		sb.WriteString(arg)
	}
	sb.WriteString("}}")
	return sb.String()
}
