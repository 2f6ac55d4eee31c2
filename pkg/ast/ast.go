// Package ast defines the wikitext parse tree consumed by the semantic tree
// builder.
//
// The node set is closed: every variant implements [Node] plus at least one
// of the unexported marker methods behind [Block] and [Inline], so code
// outside this package cannot add variants and a type switch over the
// exported types is exhaustive.
package ast

import "github.com/leapstack-labs/wikidom/pkg/token"

// Node is the base interface for all parse tree nodes.
type Node interface {
	// Pos returns the position of the first character of the node.
	Pos() token.Position
	// End returns the position of the character immediately after the node.
	End() token.Position
}

// Block is a marker interface for block-level nodes.
type Block interface {
	Node
	blockNode()
}

// Inline is a marker interface for inline nodes.
type Inline interface {
	Node
	inlineNode()
}

// Loc is embedded by every node to carry its source span.
type Loc struct {
	Span token.Span
}

// Pos implements Node.
func (l Loc) Pos() token.Position { return l.Span.Start }

// End implements Node.
func (l Loc) End() token.Position { return l.Span.End }

// Attr is a raw attribute as written in the source, before sanitizing.
type Attr struct {
	Name  string
	Value string
}

// SectionInfo is out-of-band heading metadata produced alongside the tree.
// It is keyed by the end offset of the heading it belongs to.
type SectionInfo struct {
	End     int    // byte offset of the heading end
	Title   string // page title for the edit link; empty when unknown
	Section int    // 1-based section number
}

// ---------- Document ----------

// Document is the root of a parse tree.
type Document struct {
	Loc
	Blocks   []Block
	Sections []SectionInfo
}

// ---------- Blocks ----------

// Heading is a section heading (== Title ==) or an HTML <hN> element.
type Heading struct {
	Loc
	Level   int // 1-6
	Content []Inline
	Attrs   []Attr // only for HTML headings
	HTML    bool
}

// Paragraph is a run of inline content.
type Paragraph struct {
	Loc
	Content []Inline
}

// ListKind distinguishes the three list syntaxes.
type ListKind int

// List kinds.
const (
	BulletList     ListKind = iota // *
	OrderedList                    // #
	DefinitionList                 // ; and :
)

// List is a bullet, ordered or definition list.
type List struct {
	Loc
	Kind  ListKind
	Items []*ListItem
}

// ItemKind distinguishes list item roles.
type ItemKind int

// Item kinds.
const (
	Item           ItemKind = iota // li
	TermItem                       // dt
	DefinitionItem                 // dd
)

// ListItem is one item of a list. A term may carry a same-line definition
// (;term:definition), which expands to a term/definition pair.
type ListItem struct {
	Loc
	Kind             ItemKind
	Content          []Inline
	InlineDefinition []Inline
	HasDefinition    bool
	Sublists         []*List
}

// Table is a wikitext table ({| ... |}).
type Table struct {
	Loc
	Attrs   []Attr
	Caption *TableCaption
	Rows    []*TableRow
	Indent  int // number of leading ':' characters
}

// TableCaption is the |+ caption line.
type TableCaption struct {
	Loc
	Attrs   []Attr
	Content []Block
}

// TableRow is a row of cells. The first row of a table may be implicit,
// i.e. not introduced by |-; implicit rows carry no attributes.
type TableRow struct {
	Loc
	Implicit bool
	Attrs    []Attr
	Cells    []*TableCell
}

// TableCell is a header (!) or data (|) cell. Cells on a shared line
// (|| or !!) carry Inline content; cells spanning lines carry Blocks.
type TableCell struct {
	Loc
	Header bool
	Attrs  []Attr
	Inline []Inline
	Blocks []Block
}

// IsBlock reports whether the cell holds block content.
func (c *TableCell) IsBlock() bool { return c.Blocks != nil }

// Preformatted is a block of lines starting with a space.
type Preformatted struct {
	Loc
	Content []Inline
}

// HorizontalRule is a ---- line.
type HorizontalRule struct {
	Loc
}

// DirectiveKind identifies a behaviour switch.
type DirectiveKind int

// Directive kinds.
const (
	DirectiveTOC      DirectiveKind = iota // __TOC__
	DirectiveNoTOC                         // __NOTOC__
	DirectiveForceTOC                      // __FORCETOC__
)

func (k DirectiveKind) String() string {
	switch k {
	case DirectiveTOC:
		return "toc"
	case DirectiveNoTOC:
		return "notoc"
	case DirectiveForceTOC:
		return "forcetoc"
	default:
		return "unknown"
	}
}

// TOCDirective is a __TOC__, __NOTOC__ or __FORCETOC__ switch.
type TOCDirective struct {
	Loc
	Kind DirectiveKind
}

// HTMLBlock is a block-level HTML tag passed through with its content.
type HTMLBlock struct {
	Loc
	Name    string
	Attrs   []Attr
	Content []Block
}

// ReferenceList is a <references/> container. Definitions are <ref>
// elements nested inside it.
type ReferenceList struct {
	Loc
	Attrs       []Attr
	Definitions []*Reference
}

// ---------- Inlines ----------

// Text is a literal run of characters.
type Text struct {
	Loc
	Value string
}

// InternalLink is a [[target|label]]suffix link.
type InternalLink struct {
	Loc
	Target []Inline
	Label  []Inline
	Suffix string
}

// ExternalLink is a [url label] link.
type ExternalLink struct {
	Loc
	Target string
	Label  []Inline
}

// PlainLink is a bare URL in running text.
type PlainLink struct {
	Loc
	URL string
}

// FormatStyle selects the quote-formatting variant.
type FormatStyle int

// Format styles. The mixed styles open one run inside the other:
// ItalicBold is '''''bold''' italic'' and BoldItalic is '''''italic'' bold'''.
const (
	Bold          FormatStyle = iota // '''x'''
	Italic                           // ''x''
	BoldAndItalic                    // '''''x'''''
	ItalicBold                       // i > b(Inner), Content
	BoldItalic                       // b > i(Inner), Content
)

// Formatting is bold and/or italic text.
type Formatting struct {
	Loc
	Style   FormatStyle
	Content []Inline
	Inner   []Inline
}

// HTMLInline is an inline HTML tag passed through with its content.
type HTMLInline struct {
	Loc
	Name        string
	Attrs       []Attr
	Content     []Inline
	SelfClosing bool
}

// NamedEntity is a &name; character reference.
type NamedEntity struct {
	Loc
	Name string
}

// NumericEntity is a &#N; or &#xH; character reference.
type NumericEntity struct {
	Loc
	Digits string
	Hex    bool
}

// Comment is an HTML comment. It produces no output.
type Comment struct {
	Loc
	Text string
}

// Template is an unexpanded {{name|args}} invocation.
type Template struct {
	Loc
	Name string
	Args []string
}

// Nowiki is literal text from <nowiki>.
type Nowiki struct {
	Loc
	Text string
}

// Pre is a <pre> tag with literal content.
type Pre struct {
	Loc
	Attrs []Attr
	Text  string
}

// LineBreak is a <br> produced by paragraph spacing.
type LineBreak struct {
	Loc
}

// Reference is a <ref> citation usage, or a definition when nested in a
// ReferenceList.
type Reference struct {
	Loc
	Attrs   []Attr
	Content []Block
}

// ---------- Marker methods ----------

func (*Heading) blockNode()        {}
func (*Paragraph) blockNode()      {}
func (*List) blockNode()           {}
func (*Table) blockNode()          {}
func (*Preformatted) blockNode()   {}
func (*HorizontalRule) blockNode() {}
func (*TOCDirective) blockNode()   {}
func (*HTMLBlock) blockNode()      {}
func (*ReferenceList) blockNode()  {}
func (*Comment) blockNode()        {}
func (*Template) blockNode()       {}
func (*Pre) blockNode()            {}

func (*Text) inlineNode()          {}
func (*InternalLink) inlineNode()  {}
func (*ExternalLink) inlineNode()  {}
func (*PlainLink) inlineNode()     {}
func (*Formatting) inlineNode()    {}
func (*HTMLInline) inlineNode()    {}
func (*NamedEntity) inlineNode()   {}
func (*NumericEntity) inlineNode() {}
func (*Comment) inlineNode()       {}
func (*Template) inlineNode()      {}
func (*Nowiki) inlineNode()        {}
func (*Pre) inlineNode()           {}
func (*LineBreak) inlineNode()     {}
func (*Reference) inlineNode()     {}
func (*TOCDirective) inlineNode()  {}
func (*ReferenceList) inlineNode() {}
