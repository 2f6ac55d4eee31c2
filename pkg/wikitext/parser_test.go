package wikitext

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/wikidom/internal/testutil"
	"github.com/leapstack-labs/wikidom/pkg/ast"
)

func parse(t *testing.T, src string) *ast.Document {
	t.Helper()
	doc, err := Parse(src, Options{Title: "Main Page", EditSections: true, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	return doc
}

// plain concatenates the text runs of content.
func plain(content []ast.Inline) string {
	var sb strings.Builder
	for _, n := range content {
		if t, ok := n.(*ast.Text); ok {
			sb.WriteString(t.Value)
		}
	}
	return sb.String()
}

func paragraph(t *testing.T, b ast.Block) *ast.Paragraph {
	t.Helper()
	p, ok := b.(*ast.Paragraph)
	require.True(t, ok, "expected *ast.Paragraph, got %T", b)
	return p
}

func TestParse_Headings(t *testing.T) {
	doc := parse(t, "== Intro ==\ntext\n=== Sub ===\n")
	require.Len(t, doc.Blocks, 3)

	h1, ok := doc.Blocks[0].(*ast.Heading)
	require.True(t, ok)
	assert.Equal(t, 2, h1.Level)
	assert.Equal(t, " Intro ", plain(h1.Content))
	assert.Equal(t, "text", plain(paragraph(t, doc.Blocks[1]).Content))

	h2, ok := doc.Blocks[2].(*ast.Heading)
	require.True(t, ok)
	assert.Equal(t, 3, h2.Level)
	assert.Equal(t, " Sub ", plain(h2.Content))

	assert.Equal(t, []ast.SectionInfo{
		{End: 11, Title: "Main Page", Section: 1},
		{End: 28, Title: "Main Page", Section: 2},
	}, doc.Sections)
	assert.Equal(t, 11, h1.End().Offset)
	assert.Equal(t, 28, h2.End().Offset)
}

func TestParse_HeadingVariants(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		level int
		text  string
	}{
		{name: "trailing comment", src: "== A == <!-- c -->\n", level: 2, text: " A "},
		{name: "unbalanced", src: "=Unbalanced==\n", level: 1, text: "Unbalanced="},
		{name: "capped at six", src: "======= Deep =======\n", level: 6, text: "= Deep ="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, tt.src)
			require.Len(t, doc.Blocks, 1)
			h, ok := doc.Blocks[0].(*ast.Heading)
			require.True(t, ok)
			assert.Equal(t, tt.level, h.Level)
			assert.Equal(t, tt.text, plain(h.Content))
		})
	}
}

func TestParse_SectionsOnlyWhenRequested(t *testing.T) {
	doc, err := Parse("== A ==\n", Options{})
	require.NoError(t, err)
	assert.Nil(t, doc.Sections)
}

func TestParse_Paragraphs(t *testing.T) {
	doc := parse(t, "a\nb\n\nc\n\n\n\nd")
	require.Len(t, doc.Blocks, 4)
	assert.Equal(t, "a\nb", plain(paragraph(t, doc.Blocks[0]).Content))
	assert.Equal(t, "c", plain(paragraph(t, doc.Blocks[1]).Content))

	spacer := paragraph(t, doc.Blocks[2])
	require.Len(t, spacer.Content, 1)
	assert.IsType(t, &ast.LineBreak{}, spacer.Content[0])
	assert.Equal(t, "d", plain(paragraph(t, doc.Blocks[3]).Content))
}

func TestParse_RuleAndDirectives(t *testing.T) {
	doc := parse(t, "----\n__NOTOC__\n---- after\n")
	require.Len(t, doc.Blocks, 4)
	assert.IsType(t, &ast.HorizontalRule{}, doc.Blocks[0])

	d, ok := doc.Blocks[1].(*ast.TOCDirective)
	require.True(t, ok)
	assert.Equal(t, ast.DirectiveNoTOC, d.Kind)

	assert.IsType(t, &ast.HorizontalRule{}, doc.Blocks[2])
	assert.Equal(t, "after", plain(paragraph(t, doc.Blocks[3]).Content))
}

func TestParse_Lists(t *testing.T) {
	doc := parse(t, "* a\n** b\n# c\n;t:d\n: e\n")
	require.Len(t, doc.Blocks, 3)

	bullets, ok := doc.Blocks[0].(*ast.List)
	require.True(t, ok)
	assert.Equal(t, ast.BulletList, bullets.Kind)
	require.Len(t, bullets.Items, 1)
	assert.Equal(t, "a", plain(bullets.Items[0].Content))
	require.Len(t, bullets.Items[0].Sublists, 1)
	sub := bullets.Items[0].Sublists[0]
	assert.Equal(t, ast.BulletList, sub.Kind)
	require.Len(t, sub.Items, 1)
	assert.Equal(t, "b", plain(sub.Items[0].Content))

	ordered, ok := doc.Blocks[1].(*ast.List)
	require.True(t, ok)
	assert.Equal(t, ast.OrderedList, ordered.Kind)
	assert.Equal(t, "c", plain(ordered.Items[0].Content))

	defs, ok := doc.Blocks[2].(*ast.List)
	require.True(t, ok)
	assert.Equal(t, ast.DefinitionList, defs.Kind)
	require.Len(t, defs.Items, 2)
	term := defs.Items[0]
	assert.Equal(t, ast.TermItem, term.Kind)
	assert.True(t, term.HasDefinition)
	assert.Equal(t, "t", plain(term.Content))
	assert.Equal(t, "d", plain(term.InlineDefinition))
	assert.Equal(t, ast.DefinitionItem, defs.Items[1].Kind)
	assert.Equal(t, "e", plain(defs.Items[1].Content))
}

func TestParse_ListNestingWithoutParent(t *testing.T) {
	doc := parse(t, "** deep\n")
	require.Len(t, doc.Blocks, 1)
	l := doc.Blocks[0].(*ast.List)
	require.Len(t, l.Items, 1)
	assert.Empty(t, l.Items[0].Content)
	require.Len(t, l.Items[0].Sublists, 1)
	assert.Equal(t, "deep", plain(l.Items[0].Sublists[0].Items[0].Content))
}

func TestDefinitionColon(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"term:def", 4},
		{"no colon", -1},
		{"see http://x.org", -1},
		{"[[a:b]]:c", 7},
		{"{{x:y}}", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, definitionColon(tt.in), tt.in)
	}
}

func TestParse_Table(t *testing.T) {
	src := "{| class=\"wikitable\"\n" +
		"|+ Cap\n" +
		"! H1 !! H2\n" +
		"|-\n" +
		"| a || b\n" +
		"|- class=\"r\"\n" +
		"| style=\"x\" | c\n" +
		"more\n" +
		"|}\n"
	doc := parse(t, src)
	require.Len(t, doc.Blocks, 1)
	table, ok := doc.Blocks[0].(*ast.Table)
	require.True(t, ok)

	assert.Equal(t, 0, table.Indent)
	assert.Equal(t, []ast.Attr{{Name: "class", Value: "wikitable"}}, table.Attrs)
	require.NotNil(t, table.Caption)
	require.Len(t, table.Caption.Content, 1)
	assert.Equal(t, "Cap", plain(paragraph(t, table.Caption.Content[0]).Content))

	require.Len(t, table.Rows, 3)
	head := table.Rows[0]
	assert.True(t, head.Implicit)
	require.Len(t, head.Cells, 2)
	assert.True(t, head.Cells[0].Header)
	assert.False(t, head.Cells[0].IsBlock())
	assert.Equal(t, "H1 ", plain(head.Cells[0].Inline))
	assert.True(t, head.Cells[1].IsBlock())
	assert.Equal(t, "H2", plain(paragraph(t, head.Cells[1].Blocks[0]).Content))

	require.Len(t, table.Rows[1].Cells, 2)
	assert.Equal(t, "a ", plain(table.Rows[1].Cells[0].Inline))
	assert.Equal(t, "b", plain(paragraph(t, table.Rows[1].Cells[1].Blocks[0]).Content))

	last := table.Rows[2]
	assert.False(t, last.Implicit)
	assert.Equal(t, []ast.Attr{{Name: "class", Value: "r"}}, last.Attrs)
	require.Len(t, last.Cells, 1)
	assert.Equal(t, []ast.Attr{{Name: "style", Value: "x"}}, last.Cells[0].Attrs)
	require.Len(t, last.Cells[0].Blocks, 1)
	assert.Equal(t, "c\nmore", plain(paragraph(t, last.Cells[0].Blocks[0]).Content))
}

func TestParse_NestedTable(t *testing.T) {
	doc := parse(t, "{|\n|\n{|\n| inner\n|}\n| outer\n|}")
	require.Len(t, doc.Blocks, 1)
	outer := doc.Blocks[0].(*ast.Table)
	require.Len(t, outer.Rows, 1)
	cells := outer.Rows[0].Cells
	require.Len(t, cells, 2)

	require.Len(t, cells[0].Blocks, 1)
	inner, ok := cells[0].Blocks[0].(*ast.Table)
	require.True(t, ok, "got %T", cells[0].Blocks[0])
	require.Len(t, inner.Rows, 1)
	assert.Equal(t, "inner", plain(paragraph(t, inner.Rows[0].Cells[0].Blocks[0]).Content))

	assert.Equal(t, "outer", plain(paragraph(t, cells[1].Blocks[0]).Content))
}

func TestParse_IndentedTable(t *testing.T) {
	doc := parse(t, "::{|\n| x\n|}\n")
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, 2, doc.Blocks[0].(*ast.Table).Indent)
}

func TestParse_Links(t *testing.T) {
	doc := parse(t, "See [[Main Page|the page]]s and [http://x.org X] or http://y.org/a.")
	require.Len(t, doc.Blocks, 1)
	content := paragraph(t, doc.Blocks[0]).Content
	require.Len(t, content, 7)

	assert.Equal(t, "See ", content[0].(*ast.Text).Value)

	link, ok := content[1].(*ast.InternalLink)
	require.True(t, ok)
	assert.Equal(t, "Main Page", plain(link.Target))
	assert.Equal(t, "the page", plain(link.Label))
	assert.Equal(t, "s", link.Suffix)

	ext, ok := content[3].(*ast.ExternalLink)
	require.True(t, ok)
	assert.Equal(t, "http://x.org", ext.Target)
	assert.Equal(t, "X", plain(ext.Label))

	bare, ok := content[5].(*ast.PlainLink)
	require.True(t, ok)
	assert.Equal(t, "http://y.org/a", bare.URL)
	assert.Equal(t, ".", content[6].(*ast.Text).Value)
}

func TestParse_BrokenLinksAreText(t *testing.T) {
	doc := parse(t, "[[open and [not a link]")
	content := paragraph(t, doc.Blocks[0]).Content
	require.Len(t, content, 1)
	assert.Equal(t, "[[open and [not a link]", plain(content))
}

func TestParse_Quotes(t *testing.T) {
	doc := parse(t, "''i'' '''b''' '''''bi''''' '''''x''' y'' '''''z'' w'''")
	content := paragraph(t, doc.Blocks[0]).Content

	var styles []ast.FormatStyle
	for _, n := range content {
		if f, ok := n.(*ast.Formatting); ok {
			styles = append(styles, f.Style)
		}
	}
	assert.Equal(t, []ast.FormatStyle{ast.Italic, ast.Bold, ast.BoldAndItalic, ast.ItalicBold, ast.BoldItalic}, styles)

	italicBold := content[6].(*ast.Formatting)
	assert.Equal(t, "x", plain(italicBold.Inner))
	assert.Equal(t, " y", plain(italicBold.Content))

	boldItalic := content[8].(*ast.Formatting)
	assert.Equal(t, "z", plain(boldItalic.Inner))
	assert.Equal(t, " w", plain(boldItalic.Content))
}

func TestParse_UnclosedItalicEndsAtLine(t *testing.T) {
	doc := parse(t, "''open\nnext")
	content := paragraph(t, doc.Blocks[0]).Content
	require.Len(t, content, 2)
	f := content[0].(*ast.Formatting)
	assert.Equal(t, ast.Italic, f.Style)
	assert.Equal(t, "open", plain(f.Content))
	assert.Equal(t, "\nnext", plain(content[1:]))
}

func TestParse_Entities(t *testing.T) {
	doc := parse(t, "a &amp; &#169; &#x41; &bogus; & b")
	content := paragraph(t, doc.Blocks[0]).Content
	require.Len(t, content, 9)
	assert.Equal(t, "amp", content[1].(*ast.NamedEntity).Name)

	dec := content[3].(*ast.NumericEntity)
	assert.False(t, dec.Hex)
	assert.Equal(t, "169", dec.Digits)

	hex := content[5].(*ast.NumericEntity)
	assert.True(t, hex.Hex)
	assert.Equal(t, "41", hex.Digits)

	assert.Equal(t, "bogus", content[7].(*ast.NamedEntity).Name)
	assert.Equal(t, " & b", content[8].(*ast.Text).Value)
}

func TestParse_InlineTags(t *testing.T) {
	doc := parse(t, "<span class=\"x\">a<br/>b</span> <b>c")
	content := paragraph(t, doc.Blocks[0]).Content
	require.Len(t, content, 3)

	span := content[0].(*ast.HTMLInline)
	assert.Equal(t, "span", span.Name)
	assert.Equal(t, []ast.Attr{{Name: "class", Value: "x"}}, span.Attrs)
	require.Len(t, span.Content, 3)
	br := span.Content[1].(*ast.HTMLInline)
	assert.Equal(t, "br", br.Name)
	assert.True(t, br.SelfClosing)

	b := content[2].(*ast.HTMLInline)
	assert.Equal(t, "b", b.Name)
	assert.Equal(t, "c", plain(b.Content))
}

func TestParse_LiteralConstructs(t *testing.T) {
	doc := parse(t, "x<!-- hidden -->y<nowiki>''z''</nowiki>{{cite|a|b=c}}__NOTOC__")
	content := paragraph(t, doc.Blocks[0]).Content
	require.Len(t, content, 6)

	assert.Equal(t, " hidden ", content[1].(*ast.Comment).Text)
	assert.Equal(t, "''z''", content[3].(*ast.Nowiki).Text)
	tpl := content[4].(*ast.Template)
	assert.Equal(t, "cite", tpl.Name)
	assert.Equal(t, []string{"a", "b=c"}, tpl.Args)
	assert.Equal(t, ast.DirectiveNoTOC, content[5].(*ast.TOCDirective).Kind)
}

func TestParse_References(t *testing.T) {
	src := "Fact<ref name=\"a\">Source ''one''</ref>.\n\n<references>\n<ref name=\"b\">Def</ref>\n</references>\n"
	doc := parse(t, src)
	require.Len(t, doc.Blocks, 2)

	content := paragraph(t, doc.Blocks[0]).Content
	require.Len(t, content, 3)
	ref := content[1].(*ast.Reference)
	assert.Equal(t, []ast.Attr{{Name: "name", Value: "a"}}, ref.Attrs)
	require.Len(t, ref.Content, 1)
	inner := paragraph(t, ref.Content[0]).Content
	require.Len(t, inner, 2)
	assert.Equal(t, "Source ", inner[0].(*ast.Text).Value)
	assert.Equal(t, ast.Italic, inner[1].(*ast.Formatting).Style)

	list, ok := doc.Blocks[1].(*ast.ReferenceList)
	require.True(t, ok)
	require.Len(t, list.Definitions, 1)
	assert.Equal(t, []ast.Attr{{Name: "name", Value: "b"}}, list.Definitions[0].Attrs)
}

func TestParse_ReferencesEndParagraph(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"self-closing", "a<ref>x</ref>\n<references/>\n"},
		{"with definitions", "a<ref name=\"b\"/>\n<references>\n<ref name=\"b\">Def</ref>\n</references>\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, tt.src)
			require.Len(t, doc.Blocks, 2)
			content := paragraph(t, doc.Blocks[0]).Content
			require.Len(t, content, 2)
			assert.Equal(t, "a", content[0].(*ast.Text).Value)
			_, ok := content[1].(*ast.Reference)
			assert.True(t, ok)
			_, ok = doc.Blocks[1].(*ast.ReferenceList)
			assert.True(t, ok)
		})
	}
}

func TestParse_Preformatted(t *testing.T) {
	doc := parse(t, " code\n more\nafter")
	require.Len(t, doc.Blocks, 2)
	pre, ok := doc.Blocks[0].(*ast.Preformatted)
	require.True(t, ok)
	assert.Equal(t, "code\nmore", plain(pre.Content))
	assert.Equal(t, "after", plain(paragraph(t, doc.Blocks[1]).Content))
}

func TestParse_HTMLBlockTurnsOffPreformatting(t *testing.T) {
	doc := parse(t, "<div class=\"box\">\n inner\n</div>\n")
	require.Len(t, doc.Blocks, 1)
	div, ok := doc.Blocks[0].(*ast.HTMLBlock)
	require.True(t, ok)
	assert.Equal(t, "div", div.Name)
	require.Len(t, div.Content, 1)
	assert.Equal(t, " inner", plain(paragraph(t, div.Content[0]).Content))
}

func TestParse_HTMLHeading(t *testing.T) {
	doc := parse(t, "<h2 id=\"x\">Title</h2>\n")
	require.Len(t, doc.Blocks, 1)
	h := doc.Blocks[0].(*ast.Heading)
	assert.True(t, h.HTML)
	assert.Equal(t, 2, h.Level)
	assert.Equal(t, "Title", plain(h.Content))
	assert.Empty(t, doc.Sections)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		message string
		line    int
	}{
		{name: "invalid utf-8", src: "ok\n\xff", message: ErrInvalidUTF8, line: 2},
		{name: "nesting", src: strings.Repeat("<span>", maxDepth+1), message: ErrTooDeep, line: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src, Options{})
			require.Error(t, err)
			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.message, perr.Message)
			assert.Equal(t, tt.line, perr.Pos.Line)
		})
	}
}

func TestParseError_Format(t *testing.T) {
	_, err := Parse("ok\n\xff", Options{})
	require.Error(t, err)
	assert.Equal(t, "parse error at line 2, column 1: invalid UTF-8 encoding", err.Error())
}
