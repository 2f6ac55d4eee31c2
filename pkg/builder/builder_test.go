package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/wikidom/internal/testutil"
	"github.com/leapstack-labs/wikidom/pkg/ast"
	"github.com/leapstack-labs/wikidom/pkg/format"
	"github.com/leapstack-labs/wikidom/pkg/site"
	"github.com/leapstack-labs/wikidom/pkg/token"
)

func txt(s string) *ast.Text { return &ast.Text{Value: s} }

func para(in ...ast.Inline) *ast.Paragraph { return &ast.Paragraph{Content: in} }

func newBuilder(t *testing.T, cfg Config) *Builder {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = testutil.NewTestLogger(t)
	}
	b, err := New(cfg)
	require.NoError(t, err)
	return b
}

func render(t *testing.T, b *Builder, blocks ...ast.Block) string {
	t.Helper()
	root, err := b.Build(&ast.Document{Blocks: blocks})
	require.NoError(t, err)
	body := root.Find("body")
	require.NotNil(t, body)
	out, err := format.InnerHTML(body)
	require.NoError(t, err)
	return out
}

func TestBuild_Blocks(t *testing.T) {
	tests := []struct {
		name   string
		blocks []ast.Block
		want   string
	}{
		{
			name:   "heading",
			blocks: []ast.Block{&ast.Heading{Level: 2, Content: []ast.Inline{txt(" Intro  text ")}}},
			want:   `<h2><span class="mw-headline" id="Intro_text">Intro  text</span></h2>` + "\n",
		},
		{
			name: "html heading keeps whitelisted attributes",
			blocks: []ast.Block{&ast.Heading{
				Level: 3, HTML: true,
				Attrs:   []ast.Attr{{Name: "class", Value: "x"}, {Name: "onclick", Value: "y"}},
				Content: []ast.Inline{txt("T")},
			}},
			want: `<h3 class="x"><span class="mw-headline" id="T">T</span></h3>` + "\n",
		},
		{
			name:   "paragraph gains trailing newline",
			blocks: []ast.Block{para(txt("Hello"))},
			want:   "<p>Hello\n</p>",
		},
		{
			name:   "paragraph with line break",
			blocks: []ast.Block{para(&ast.LineBreak{})},
			want:   "<p><br/>\n</p>",
		},
		{
			name: "nested lists",
			blocks: []ast.Block{&ast.List{Kind: ast.BulletList, Items: []*ast.ListItem{
				{Kind: ast.Item, Content: []ast.Inline{txt("a")}},
				{Kind: ast.Item, Content: []ast.Inline{txt("b")}, Sublists: []*ast.List{
					{Kind: ast.OrderedList, Items: []*ast.ListItem{{Kind: ast.Item, Content: []ast.Inline{txt("c")}}}},
				}},
			}}},
			want: "<ul><li>a\n</li><li>b\n<ol><li>c\n</li></ol>\n</li></ul>\n",
		},
		{
			name: "term with inline definition",
			blocks: []ast.Block{&ast.List{Kind: ast.DefinitionList, Items: []*ast.ListItem{
				{Kind: ast.TermItem, Content: []ast.Inline{txt("t")}, InlineDefinition: []ast.Inline{txt("d")}, HasDefinition: true},
				{Kind: ast.DefinitionItem, Content: []ast.Inline{txt("e")}},
			}}},
			want: "<dl><dt>t</dt><dd>d\n</dd><dd>e\n</dd></dl>\n",
		},
		{
			name: "table",
			blocks: []ast.Block{&ast.Table{
				Indent: 1,
				Attrs:  []ast.Attr{{Name: "border", Value: "1"}, {Name: "onclick", Value: "x"}},
				Caption: &ast.TableCaption{Content: []ast.Block{para(txt("Cap"))}},
				Rows: []*ast.TableRow{
					{Implicit: true, Cells: []*ast.TableCell{
						{Header: true, Inline: []ast.Inline{txt("H  ")}},
						{Blocks: []ast.Block{para(txt("x"))}},
					}},
					{Attrs: []ast.Attr{{Name: "class", Value: "r"}}, Cells: []*ast.TableCell{
						{Attrs: []ast.Attr{{Name: "colspan", Value: "2"}}, Blocks: []ast.Block{para(txt("a")), para(txt("b"))}},
					}},
				},
			}},
			want: `<dl><dd><table border="1"><caption>Cap</caption>` +
				`<tr><th>H</th><td>x</td></tr>` +
				"<tr class=\"r\"><td colspan=\"2\"><p>a\n</p><p>b\n</p></td></tr></table></dd></dl>",
		},
		{
			name:   "preformatted",
			blocks: []ast.Block{&ast.Preformatted{Content: []ast.Inline{txt("code")}}},
			want:   "<pre>code\n</pre>",
		},
		{
			name:   "rule and directive",
			blocks: []ast.Block{&ast.HorizontalRule{}, &ast.TOCDirective{Kind: ast.DirectiveForceTOC}},
			want:   "<hr/>\n<forcetoc></forcetoc>",
		},
		{
			name: "style expression on paragraph",
			blocks: []ast.Block{&ast.HTMLBlock{
				Name:    "P",
				Attrs:   []ast.Attr{{Name: "style", Value: "color:expression(alert(1))"}},
				Content: []ast.Block{para(txt("text"))},
			}},
			want: `<p style="/* insecure input */">text</p>`,
		},
		{
			name:   "comment and template",
			blocks: []ast.Block{&ast.Comment{Text: "x"}, &ast.Template{Name: "cite", Args: []string{"a", "b=c"}}},
			want:   "{{cite|a|b=c}}",
		},
		{
			name: "reference and list",
			blocks: []ast.Block{
				para(txt("a"), &ast.Reference{
					Attrs:   []ast.Attr{{Name: "name", Value: "x"}, {Name: "class", Value: "y"}},
					Content: []ast.Block{para(txt("note"))},
				}),
				&ast.ReferenceList{Attrs: []ast.Attr{{Name: "group", Value: "g"}}},
			},
			want: "<p>a<ref name=\"x\">note</ref>\n</p><references group=\"g\"></references>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBuilder(t, Config{})
			assert.Equal(t, tt.want, render(t, b, tt.blocks...))
		})
	}
}

func TestBuild_Inlines(t *testing.T) {
	cfg := site.DefaultConfig()
	cfg.Pages = site.NewPageSet("Main Page")
	b := newBuilder(t, Config{Resolver: site.New(cfg)})

	tests := []struct {
		name   string
		inline ast.Inline
		want   string
	}{
		{
			name:   "existing page",
			inline: &ast.InternalLink{Target: []ast.Inline{txt(" main_page ")}},
			want:   `<a href="/wiki/Main_Page" title="Main Page">main_page</a>`,
		},
		{
			name: "missing page",
			inline: &ast.InternalLink{
				Target: []ast.Inline{txt("missing page")},
				Label:  []ast.Inline{txt("label ")},
				Suffix: "s",
			},
			want: `<a href="/index.php?title=Missing_page&amp;action=edit&amp;redlink=1" class="new" ` +
				`title="Missing page (page does not exist)">labels</a>`,
		},
		{
			name:   "suffix without label",
			inline: &ast.InternalLink{Target: []ast.Inline{txt("Main Page")}, Suffix: "s"},
			want:   `<a href="/wiki/Main_Page" title="Main Page">Main Pages</a>`,
		},
		{
			name:   "target with markup",
			inline: &ast.InternalLink{Target: []ast.Inline{&ast.HTMLInline{Name: "b", Content: []ast.Inline{txt("x")}}}},
			want: `<a href="/index.php?title=BROKEN&amp;action=edit&amp;redlink=1" class="new" ` +
				`title="BROKEN (page does not exist)">BROKEN</a>`,
		},
		{
			name:   "external link with label",
			inline: &ast.ExternalLink{Target: " http://x.org ", Label: []ast.Inline{txt("Label ")}},
			want:   `<a rel="nofollow" class="external text" href="http://x.org">Label</a>`,
		},
		{
			name:   "external link without label",
			inline: &ast.ExternalLink{Target: "http://x.org"},
			want:   `<a href="http://x.org">http://x.org</a>`,
		},
		{
			name:   "plain link",
			inline: &ast.PlainLink{URL: "http://y.org"},
			want:   `<a rel="nofollow" class="external free" href="http://y.org">http://y.org</a>`,
		},
		{
			name:   "bold",
			inline: &ast.Formatting{Style: ast.Bold, Content: []ast.Inline{txt("x")}},
			want:   "<b>x</b>",
		},
		{
			name:   "bold and italic",
			inline: &ast.Formatting{Style: ast.BoldAndItalic, Content: []ast.Inline{txt("x")}},
			want:   "<i><b>x</b></i>",
		},
		{
			name:   "italic opening bold",
			inline: &ast.Formatting{Style: ast.ItalicBold, Inner: []ast.Inline{txt("b")}, Content: []ast.Inline{txt(" i")}},
			want:   "<i><b>b</b> i</i>",
		},
		{
			name:   "bold opening italic",
			inline: &ast.Formatting{Style: ast.BoldItalic, Inner: []ast.Inline{txt("i")}, Content: []ast.Inline{txt(" b")}},
			want:   "<b><i>i</i> b</b>",
		},
		{
			name:   "html inline",
			inline: &ast.HTMLInline{Name: "SPAN", Attrs: []ast.Attr{{Name: "ID", Value: "s"}}, Content: []ast.Inline{txt("x")}},
			want:   `<span id="s">x</span>`,
		},
		{
			name:   "self-closing",
			inline: &ast.HTMLInline{Name: "br", SelfClosing: true, Attrs: []ast.Attr{{Name: "clear", Value: "all"}}},
			want:   `<br clear="all"/>`,
		},
		{
			name:   "pre tag",
			inline: &ast.Pre{Attrs: []ast.Attr{{Name: "width", Value: "4"}}, Text: "a  b"},
			want:   `<pre width="4">a  b</pre>`,
		},
		{
			name:   "nowiki",
			inline: &ast.Nowiki{Text: "''x''"},
			want:   "&#39;&#39;x&#39;&#39;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := render(t, b, para(tt.inline))
			assert.Equal(t, "<p>"+tt.want+"\n</p>", got)
		})
	}
}

func TestBuild_Entities(t *testing.T) {
	b := newBuilder(t, Config{})
	root, err := b.Build(&ast.Document{Blocks: []ast.Block{para(
		&ast.NamedEntity{Name: "amp"},
		&ast.NamedEntity{Name: "bogus"},
		&ast.NumericEntity{Digits: "169"},
		&ast.NumericEntity{Digits: "D800", Hex: true},
		&ast.Comment{Text: "hidden"},
	)}})
	require.NoError(t, err)
	p := root.Find("p")
	require.NotNil(t, p)
	assert.Equal(t, "&&bogus;\u00a9&#xD800;\n", p.TextContent())
	assert.Equal(t, 0, p.Len(), "adjacent text coalesces into one run")
}

func TestBuild_EditSections(t *testing.T) {
	meta := SectionLookup([]ast.SectionInfo{
		{End: 10, Title: "Main Page", Section: 1},
		{End: 20, Section: 2},
	})
	b := newBuilder(t, Config{HeadingMeta: meta})

	heading := func(end int, text string) *ast.Heading {
		return &ast.Heading{
			Loc:     ast.Loc{Span: token.Span{End: token.Position{Offset: end}}},
			Level:   2,
			Content: []ast.Inline{txt(text)},
		}
	}

	got := render(t, b, heading(10, "Intro"), heading(20, "Next"), heading(30, "Plain"))
	want := `<h2><span class="mw-headline" id="Intro">Intro</span><span class="mw-editsection">` +
		`<span class="mw-editsection-bracket">[</span>` +
		`<a href="/index.php?title=Main_Page&amp;action=edit&amp;section=1" title="Edit section: Intro">edit</a>` +
		`<span class="mw-editsection-bracket">]</span></span></h2>` + "\n" +
		`<h2><span class="mw-headline" id="Next">Next</span><span class="mw-editsection">` +
		`<span class="mw-editsection-bracket">[</span>` +
		`<a href="/index.php?title=(none)&amp;action=edit&amp;section=2" title="Edit section: Next">edit</a>` +
		`<span class="mw-editsection-bracket">]</span></span></h2>` + "\n" +
		`<h2><span class="mw-headline" id="Plain">Plain</span></h2>` + "\n"
	assert.Equal(t, want, got)

	assert.Nil(t, SectionLookup(nil))
}

func TestBuild_LocalizedMessages(t *testing.T) {
	catalog, err := site.NewCatalog("de", nil)
	require.NoError(t, err)
	cfg := site.DefaultConfig()
	cfg.Pages = site.NewPageSet()
	b := newBuilder(t, Config{Resolver: site.New(cfg), Messages: catalog})

	got := render(t, b, para(&ast.InternalLink{Target: []ast.Inline{txt("X")}}))
	assert.Contains(t, got, `title="X (Seite nicht vorhanden)"`)
}

func TestBuild_UnknownNode(t *testing.T) {
	b := newBuilder(t, Config{})

	_, err := b.Build(&ast.Document{Blocks: []ast.Block{para(nil)}})
	require.ErrorIs(t, err, ErrUnknownNode)

	_, err = b.Build(&ast.Document{Blocks: []ast.Block{nil}})
	require.ErrorIs(t, err, ErrUnknownNode)

	_, err = b.Build(&ast.Document{Blocks: []ast.Block{&ast.Heading{Level: 7}}})
	require.ErrorIs(t, err, ErrUnknownNode)
}

func TestAnchor(t *testing.T) {
	assert.Equal(t, "A_b_c", Anchor("  A b\t\nc "))
	// Decomposed e + combining acute composes to U+00E9.
	assert.Equal(t, "caf\u00e9", Anchor("cafe\u0301"))
}
