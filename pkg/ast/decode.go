package ast

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/wikidom/pkg/token"
)

// DecodeError reports a malformed node in a YAML parse tree.
type DecodeError struct {
	Line    int
	Message string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

func errorf(n *yaml.Node, format string, args ...any) error {
	return &DecodeError{Line: n.Line, Message: fmt.Sprintf(format, args...)}
}

var (
	listKinds = map[ListKind]string{BulletList: "bullet", OrderedList: "ordered", DefinitionList: "definition"}
	itemKinds = map[ItemKind]string{Item: "item", TermItem: "term", DefinitionItem: "definition"}
	styles    = map[FormatStyle]string{
		Bold: "bold", Italic: "italic", BoldAndItalic: "bold_and_italic",
		ItalicBold: "italic_bold", BoldItalic: "bold_italic",
	}
	directives = map[DirectiveKind]string{DirectiveTOC: "toc", DirectiveNoTOC: "notoc", DirectiveForceTOC: "forcetoc"}
)

func lookupName[K comparable](table map[K]string, name string) (K, bool) {
	for k, v := range table {
		if v == name {
			return k, true
		}
	}
	var zero K
	return zero, false
}

// ---------- Encoding ----------

// Encode writes doc as a YAML document. Every node is a mapping with a
// "kind" key; spans are written as [start, end] byte offsets.
func Encode(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(encodeNode(doc)); err != nil {
		return fmt.Errorf("encode parse tree: %w", err)
	}
	return enc.Close()
}

type mapping struct{ n *yaml.Node }

func newMapping(kind string, span token.Span) *mapping {
	m := &mapping{n: &yaml.Node{Kind: yaml.MappingNode}}
	m.str("kind", kind)
	if span.Start.Offset != 0 || span.End.Offset != 0 {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		seq.Content = append(seq.Content, scalar(strconv.Itoa(span.Start.Offset)), scalar(strconv.Itoa(span.End.Offset)))
		m.set("span", seq)
	}
	return m
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: v}
}

func (m *mapping) set(key string, v *yaml.Node) {
	m.n.Content = append(m.n.Content, scalar(key), v)
}

func (m *mapping) str(key, v string) {
	if v == "" {
		return
	}
	s := scalar(v)
	s.Tag = "!!str"
	m.set(key, s)
}

func (m *mapping) int(key string, v int) {
	m.set(key, scalar(strconv.Itoa(v)))
}

func (m *mapping) flag(key string, v bool) {
	if v {
		m.set(key, scalar("true"))
	}
}

func (m *mapping) attrs(key string, attrs []Attr) {
	if len(attrs) == 0 {
		return
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, a := range attrs {
		pair := &mapping{n: &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}}
		pair.set("name", scalar(a.Name))
		v := scalar(a.Value)
		v.Tag = "!!str"
		pair.set("value", v)
		seq.Content = append(seq.Content, pair.n)
	}
	m.set(key, seq)
}

func (m *mapping) inlines(key string, nodes []Inline) {
	if nodes == nil {
		return
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, n := range nodes {
		seq.Content = append(seq.Content, encodeNode(n))
	}
	m.set(key, seq)
}

func (m *mapping) blocks(key string, nodes []Block) {
	if nodes == nil {
		return
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, n := range nodes {
		seq.Content = append(seq.Content, encodeNode(n))
	}
	m.set(key, seq)
}

func (m *mapping) nodes(key string, nodes []*yaml.Node) {
	if len(nodes) == 0 {
		return
	}
	m.set(key, &yaml.Node{Kind: yaml.SequenceNode, Content: nodes})
}

func encodeNode(node Node) *yaml.Node {
	switch n := node.(type) {
	case *Document:
		m := newMapping("document", n.Span)
		m.blocks("blocks", n.Blocks)
		var secs []*yaml.Node
		for _, s := range n.Sections {
			sm := &mapping{n: &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}}
			sm.int("end", s.End)
			sm.str("title", s.Title)
			sm.int("section", s.Section)
			secs = append(secs, sm.n)
		}
		m.nodes("sections", secs)
		return m.n
	case *Heading:
		m := newMapping("heading", n.Span)
		m.int("level", n.Level)
		m.flag("html", n.HTML)
		m.attrs("attrs", n.Attrs)
		m.inlines("content", n.Content)
		return m.n
	case *Paragraph:
		m := newMapping("paragraph", n.Span)
		m.inlines("content", n.Content)
		return m.n
	case *List:
		m := newMapping("list", n.Span)
		m.str("type", listKinds[n.Kind])
		var items []*yaml.Node
		for _, it := range n.Items {
			items = append(items, encodeNode(it))
		}
		m.nodes("items", items)
		return m.n
	case *ListItem:
		m := newMapping("item", n.Span)
		m.str("type", itemKinds[n.Kind])
		m.inlines("content", n.Content)
		if n.HasDefinition {
			m.inlines("definition", append([]Inline{}, n.InlineDefinition...))
		}
		var subs []*yaml.Node
		for _, s := range n.Sublists {
			subs = append(subs, encodeNode(s))
		}
		m.nodes("sublists", subs)
		return m.n
	case *Table:
		m := newMapping("table", n.Span)
		if n.Indent > 0 {
			m.int("indent", n.Indent)
		}
		m.attrs("attrs", n.Attrs)
		if n.Caption != nil {
			m.set("caption", encodeNode(n.Caption))
		}
		var rows []*yaml.Node
		for _, r := range n.Rows {
			rows = append(rows, encodeNode(r))
		}
		m.nodes("rows", rows)
		return m.n
	case *TableCaption:
		m := newMapping("caption", n.Span)
		m.attrs("attrs", n.Attrs)
		m.blocks("content", n.Content)
		return m.n
	case *TableRow:
		m := newMapping("row", n.Span)
		m.flag("implicit", n.Implicit)
		m.attrs("attrs", n.Attrs)
		var cells []*yaml.Node
		for _, c := range n.Cells {
			cells = append(cells, encodeNode(c))
		}
		m.nodes("cells", cells)
		return m.n
	case *TableCell:
		m := newMapping("cell", n.Span)
		m.flag("header", n.Header)
		m.attrs("attrs", n.Attrs)
		m.inlines("inline", n.Inline)
		m.blocks("blocks", n.Blocks)
		return m.n
	case *Preformatted:
		m := newMapping("preformatted", n.Span)
		m.inlines("content", n.Content)
		return m.n
	case *HorizontalRule:
		return newMapping("hr", n.Span).n
	case *TOCDirective:
		m := newMapping("directive", n.Span)
		m.str("name", directives[n.Kind])
		return m.n
	case *HTMLBlock:
		m := newMapping("html_block", n.Span)
		m.str("name", n.Name)
		m.attrs("attrs", n.Attrs)
		m.blocks("content", n.Content)
		return m.n
	case *ReferenceList:
		m := newMapping("references", n.Span)
		m.attrs("attrs", n.Attrs)
		var defs []*yaml.Node
		for _, d := range n.Definitions {
			defs = append(defs, encodeNode(d))
		}
		m.nodes("definitions", defs)
		return m.n
	case *Text:
		m := newMapping("text", n.Span)
		m.str("value", n.Value)
		return m.n
	case *InternalLink:
		m := newMapping("link", n.Span)
		m.inlines("target", n.Target)
		m.inlines("label", n.Label)
		m.str("suffix", n.Suffix)
		return m.n
	case *ExternalLink:
		m := newMapping("external_link", n.Span)
		m.str("target", n.Target)
		m.inlines("label", n.Label)
		return m.n
	case *PlainLink:
		m := newMapping("plain_link", n.Span)
		m.str("url", n.URL)
		return m.n
	case *Formatting:
		m := newMapping("formatting", n.Span)
		m.str("style", styles[n.Style])
		m.inlines("inner", n.Inner)
		m.inlines("content", n.Content)
		return m.n
	case *HTMLInline:
		m := newMapping("html_inline", n.Span)
		m.str("name", n.Name)
		m.flag("self_closing", n.SelfClosing)
		m.attrs("attrs", n.Attrs)
		m.inlines("content", n.Content)
		return m.n
	case *NamedEntity:
		m := newMapping("entity", n.Span)
		m.str("name", n.Name)
		return m.n
	case *NumericEntity:
		m := newMapping("numeric_entity", n.Span)
		m.str("digits", n.Digits)
		m.flag("hex", n.Hex)
		return m.n
	case *Comment:
		m := newMapping("comment", n.Span)
		m.str("text", n.Text)
		return m.n
	case *Template:
		m := newMapping("template", n.Span)
		m.str("name", n.Name)
		var args []*yaml.Node
		for _, a := range n.Args {
			s := scalar(a)
			s.Tag = "!!str"
			args = append(args, s)
		}
		m.nodes("args", args)
		return m.n
	case *Nowiki:
		m := newMapping("nowiki", n.Span)
		m.str("text", n.Text)
		return m.n
	case *Pre:
		m := newMapping("pre", n.Span)
		m.attrs("attrs", n.Attrs)
		m.str("text", n.Text)
		return m.n
	case *LineBreak:
		return newMapping("br", n.Span).n
	case *Reference:
		m := newMapping("ref", n.Span)
		m.attrs("attrs", n.Attrs)
		m.blocks("content", n.Content)
		return m.n
	default:
		return newMapping(fmt.Sprintf("unknown(%T)", node), token.Span{}).n
	}
}

// ---------- Decoding ----------

// Decode reads a YAML parse tree written by Encode. Decoded positions carry
// byte offsets only.
func Decode(r io.Reader) (*Document, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("read parse tree: %w", err)
	}
	top := &root
	if top.Kind == yaml.DocumentNode && len(top.Content) == 1 {
		top = top.Content[0]
	}
	node, err := decodeNode(top)
	if err != nil {
		return nil, err
	}
	doc, ok := node.(*Document)
	if !ok {
		return nil, errorf(top, "root must be a document, got %T", node)
	}
	return doc, nil
}

type fields struct {
	node *yaml.Node
	m    map[string]*yaml.Node
}

func fieldsOf(n *yaml.Node) (*fields, error) {
	if n.Kind != yaml.MappingNode {
		return nil, errorf(n, "expected a mapping")
	}
	f := &fields{node: n, m: make(map[string]*yaml.Node, len(n.Content)/2)}
	for i := 0; i+1 < len(n.Content); i += 2 {
		f.m[n.Content[i].Value] = n.Content[i+1]
	}
	return f, nil
}

func (f *fields) str(key string) string {
	if v, ok := f.m[key]; ok {
		return v.Value
	}
	return ""
}

func (f *fields) int(key string) (int, error) {
	v, ok := f.m[key]
	if !ok {
		return 0, nil
	}
	i, err := strconv.Atoi(v.Value)
	if err != nil {
		return 0, errorf(v, "%s: not an integer: %q", key, v.Value)
	}
	return i, nil
}

func (f *fields) flag(key string) bool {
	v, ok := f.m[key]
	return ok && v.Value == "true"
}

func (f *fields) span() (token.Span, error) {
	v, ok := f.m["span"]
	if !ok {
		return token.Span{}, nil
	}
	if v.Kind != yaml.SequenceNode || len(v.Content) != 2 {
		return token.Span{}, errorf(v, "span must be [start, end]")
	}
	start, err1 := strconv.Atoi(v.Content[0].Value)
	end, err2 := strconv.Atoi(v.Content[1].Value)
	if err1 != nil || err2 != nil {
		return token.Span{}, errorf(v, "span offsets must be integers")
	}
	return token.Span{Start: token.Position{Offset: start}, End: token.Position{Offset: end}}, nil
}

func (f *fields) seq(key string) ([]*yaml.Node, bool, error) {
	v, ok := f.m[key]
	if !ok {
		return nil, false, nil
	}
	if v.Kind != yaml.SequenceNode {
		return nil, true, errorf(v, "%s: expected a sequence", key)
	}
	return v.Content, true, nil
}

func (f *fields) attrs(key string) ([]Attr, error) {
	items, _, err := f.seq(key)
	if err != nil {
		return nil, err
	}
	var out []Attr
	for _, it := range items {
		af, err := fieldsOf(it)
		if err != nil {
			return nil, err
		}
		out = append(out, Attr{Name: af.str("name"), Value: af.str("value")})
	}
	return out, nil
}

func (f *fields) inlines(key string) ([]Inline, error) {
	items, present, err := f.seq(key)
	if err != nil || !present {
		return nil, err
	}
	out := make([]Inline, 0, len(items))
	for _, it := range items {
		n, err := decodeNode(it)
		if err != nil {
			return nil, err
		}
		in, ok := n.(Inline)
		if !ok {
			return nil, errorf(it, "%s: %T is not an inline node", key, n)
		}
		out = append(out, in)
	}
	return out, nil
}

func (f *fields) blocks(key string) ([]Block, error) {
	items, present, err := f.seq(key)
	if err != nil || !present {
		return nil, err
	}
	out := make([]Block, 0, len(items))
	for _, it := range items {
		n, err := decodeNode(it)
		if err != nil {
			return nil, err
		}
		b, ok := n.(Block)
		if !ok {
			return nil, errorf(it, "%s: %T is not a block node", key, n)
		}
		out = append(out, b)
	}
	return out, nil
}

// children decodes a sequence whose elements must all be of type T.
func children[T Node](f *fields, key string) ([]T, error) {
	items, _, err := f.seq(key)
	if err != nil {
		return nil, err
	}
	var out []T
	for _, it := range items {
		n, err := decodeNode(it)
		if err != nil {
			return nil, err
		}
		t, ok := n.(T)
		if !ok {
			return nil, errorf(it, "%s: unexpected %T", key, n)
		}
		out = append(out, t)
	}
	return out, nil
}

func enumOf[K comparable](f *fields, key string, table map[K]string) (K, error) {
	name := f.str(key)
	k, ok := lookupName(table, name)
	if !ok {
		return k, errorf(f.node, "unknown %s %q", key, name)
	}
	return k, nil
}

//nolint:gocyclo // one case per node kind
func decodeNode(y *yaml.Node) (Node, error) {
	f, err := fieldsOf(y)
	if err != nil {
		return nil, err
	}
	span, err := f.span()
	if err != nil {
		return nil, err
	}
	loc := Loc{Span: span}

	// Decode the sub-fields shared by most kinds; first error wins.
	var firstErr error
	keep := func(e error) {
		if firstErr == nil && e != nil {
			firstErr = e
		}
	}
	attrs := func() []Attr { a, e := f.attrs("attrs"); keep(e); return a }
	inl := func(key string) []Inline { v, e := f.inlines(key); keep(e); return v }
	blk := func(key string) []Block { v, e := f.blocks(key); keep(e); return v }

	var node Node
	switch kind := f.str("kind"); kind {
	case "document":
		doc := &Document{Loc: loc, Blocks: blk("blocks")}
		secs, _, e := f.seq("sections")
		keep(e)
		for _, s := range secs {
			sf, e := fieldsOf(s)
			if e != nil {
				keep(e)
				continue
			}
			end, e1 := sf.int("end")
			num, e2 := sf.int("section")
			keep(e1)
			keep(e2)
			doc.Sections = append(doc.Sections, SectionInfo{End: end, Title: sf.str("title"), Section: num})
		}
		node = doc
	case "heading":
		level, e := f.int("level")
		keep(e)
		if e == nil && (level < 1 || level > 6) {
			keep(errorf(y, "heading level %d out of range", level))
		}
		node = &Heading{Loc: loc, Level: level, HTML: f.flag("html"), Attrs: attrs(), Content: inl("content")}
	case "paragraph":
		node = &Paragraph{Loc: loc, Content: inl("content")}
	case "list":
		k, e := enumOf(f, "type", listKinds)
		keep(e)
		items, e := children[*ListItem](f, "items")
		keep(e)
		node = &List{Loc: loc, Kind: k, Items: items}
	case "item":
		k, e := enumOf(f, "type", itemKinds)
		keep(e)
		subs, e := children[*List](f, "sublists")
		keep(e)
		_, hasDef := f.m["definition"]
		node = &ListItem{
			Loc: loc, Kind: k, Content: inl("content"),
			InlineDefinition: inl("definition"), HasDefinition: hasDef, Sublists: subs,
		}
	case "table":
		indent, e := f.int("indent")
		keep(e)
		t := &Table{Loc: loc, Indent: indent, Attrs: attrs()}
		if c, ok := f.m["caption"]; ok {
			cn, e := decodeNode(c)
			keep(e)
			if tc, ok := cn.(*TableCaption); ok {
				t.Caption = tc
			} else if e == nil {
				keep(errorf(c, "caption: unexpected %T", cn))
			}
		}
		t.Rows, e = children[*TableRow](f, "rows")
		keep(e)
		node = t
	case "caption":
		node = &TableCaption{Loc: loc, Attrs: attrs(), Content: blk("content")}
	case "row":
		cells, e := children[*TableCell](f, "cells")
		keep(e)
		node = &TableRow{Loc: loc, Implicit: f.flag("implicit"), Attrs: attrs(), Cells: cells}
	case "cell":
		node = &TableCell{Loc: loc, Header: f.flag("header"), Attrs: attrs(), Inline: inl("inline"), Blocks: blk("blocks")}
	case "preformatted":
		node = &Preformatted{Loc: loc, Content: inl("content")}
	case "hr":
		node = &HorizontalRule{Loc: loc}
	case "directive":
		k, e := enumOf(f, "name", directives)
		keep(e)
		node = &TOCDirective{Loc: loc, Kind: k}
	case "html_block":
		node = &HTMLBlock{Loc: loc, Name: f.str("name"), Attrs: attrs(), Content: blk("content")}
	case "references":
		defs, e := children[*Reference](f, "definitions")
		keep(e)
		node = &ReferenceList{Loc: loc, Attrs: attrs(), Definitions: defs}
	case "text":
		node = &Text{Loc: loc, Value: f.str("value")}
	case "link":
		node = &InternalLink{Loc: loc, Target: inl("target"), Label: inl("label"), Suffix: f.str("suffix")}
	case "external_link":
		node = &ExternalLink{Loc: loc, Target: f.str("target"), Label: inl("label")}
	case "plain_link":
		node = &PlainLink{Loc: loc, URL: f.str("url")}
	case "formatting":
		s, e := enumOf(f, "style", styles)
		keep(e)
		node = &Formatting{Loc: loc, Style: s, Inner: inl("inner"), Content: inl("content")}
	case "html_inline":
		node = &HTMLInline{Loc: loc, Name: f.str("name"), SelfClosing: f.flag("self_closing"), Attrs: attrs(), Content: inl("content")}
	case "entity":
		node = &NamedEntity{Loc: loc, Name: f.str("name")}
	case "numeric_entity":
		node = &NumericEntity{Loc: loc, Digits: f.str("digits"), Hex: f.flag("hex")}
	case "comment":
		node = &Comment{Loc: loc, Text: f.str("text")}
	case "template":
		args, _, e := f.seq("args")
		keep(e)
		t := &Template{Loc: loc, Name: f.str("name")}
		for _, a := range args {
			t.Args = append(t.Args, a.Value)
		}
		node = t
	case "nowiki":
		node = &Nowiki{Loc: loc, Text: f.str("text")}
	case "pre":
		node = &Pre{Loc: loc, Attrs: attrs(), Text: f.str("text")}
	case "br":
		node = &LineBreak{Loc: loc}
	case "ref":
		node = &Reference{Loc: loc, Attrs: attrs(), Content: blk("content")}
	case "":
		return nil, errorf(y, "node without kind")
	default:
		return nil, errorf(y, "unknown node kind %q", kind)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return node, nil
}
