package toc

import (
	"strconv"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/wikidom/internal/testutil"
	"github.com/leapstack-labs/wikidom/pkg/dom"
	"github.com/leapstack-labs/wikidom/pkg/format"
	"github.com/leapstack-labs/wikidom/pkg/site"
)

// heading returns <hN><span class="mw-headline" id="anchor">text</span></hN>.
func heading(level int, text, anchor string) *dom.Node {
	h := dom.New("h" + strconv.Itoa(level))
	h.Append(dom.New("span", dom.A("class", "mw-headline"), dom.A("id", anchor))).AppendText(text)
	return h
}

type hdef struct {
	level int
	text  string
}

// document returns html > body with a lead paragraph, the given extra
// nodes and then the headings, each followed by a paragraph.
func document(extra []*dom.Node, headings ...hdef) (*dom.Node, *dom.Node) {
	root := dom.New("html")
	body := root.Append(dom.New("body"))
	body.Append(dom.New("p")).AppendText("lead\n")
	for _, n := range extra {
		body.Append(n)
	}
	for _, h := range headings {
		body.AppendTail(heading(h.level, h.text, h.text), "\n")
		body.Append(dom.New("p")).AppendText("body\n")
	}
	return root, body
}

func query(root *dom.Node) *goquery.Document {
	return goquery.NewDocumentFromNode(format.ToHTML(root))
}

func numbers(hs []Heading) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = h.NumberString()
	}
	return out
}

func TestGenerate_ScenarioA(t *testing.T) {
	root, _ := document([]*dom.Node{dom.New("toc")},
		hdef{1, "A"}, hdef{2, "B"}, hdef{2, "C"})

	res := Generate(root, Options{Logger: testutil.NewTestLogger(t)})
	require.True(t, res.Inserted)
	assert.Equal(t, []string{"1", "1.1", "1.2"}, numbers(res.Headings))

	doc := query(root)
	toc := doc.Find("div#toc.toc")
	require.Equal(t, 1, toc.Length())
	assert.Equal(t, "Contents", toc.Find("div.toctitle h2").Text())

	top := toc.ChildrenFiltered("ul").ChildrenFiltered("li")
	require.Equal(t, 1, top.Length())
	assert.Equal(t, "toclevel-1 tocsection-1", top.AttrOr("class", ""))
	assert.Equal(t, "#A", top.ChildrenFiltered("a").AttrOr("href", ""))
	assert.Equal(t, "1", top.ChildrenFiltered("a").Find("span.tocnumber").Text())
	assert.Equal(t, "1 A", top.ChildrenFiltered("a").Text())

	sub := top.ChildrenFiltered("ul").ChildrenFiltered("li")
	require.Equal(t, 2, sub.Length())
	assert.Equal(t, "toclevel-2 tocsection-3", sub.Eq(1).AttrOr("class", ""))
	assert.Equal(t, "1.2", sub.Eq(1).Find("span.tocnumber").Text())
	assert.Equal(t, "C", sub.Eq(1).Find("span.toctext").Text())

	assert.Equal(t, 0, doc.Find("toc").Length())
	// The placeholder position is kept: right after the lead paragraph.
	assert.Equal(t, "toc", doc.Find("body").Children().Eq(1).AttrOr("id", ""))
}

func TestGenerate_Threshold(t *testing.T) {
	three := []hdef{{2, "A"}, {2, "B"}, {2, "C"}}
	four := append(three[:3:3], hdef{2, "D"})

	root, _ := document(nil, three...)
	res := Generate(root, Options{})
	assert.False(t, res.Inserted)
	assert.Len(t, res.Headings, 3)

	root, body := document(nil, four...)
	res = Generate(root, Options{})
	require.True(t, res.Inserted)
	// Inserted immediately before the first heading.
	assert.Equal(t, "toc", body.Child(1).ID())
	assert.Equal(t, "h2", body.Child(2).Tag)

	root, _ = document(nil, four...)
	res = Generate(root, Options{MinHeadings: 5})
	assert.False(t, res.Inserted)
}

func TestGenerate_Directives(t *testing.T) {
	five := []hdef{{2, "A"}, {2, "B"}, {2, "C"}, {2, "D"}, {2, "E"}}

	tests := []struct {
		name     string
		extra    []string
		headings []hdef
		want     bool
	}{
		{name: "notoc suppresses", extra: []string{"notoc"}, headings: five, want: false},
		{name: "forcetoc with one heading", extra: []string{"forcetoc"}, headings: five[:1], want: true},
		{name: "forcetoc beats notoc", extra: []string{"notoc", "forcetoc"}, headings: five[:2], want: true},
		{name: "placeholder beats notoc", extra: []string{"notoc", "toc"}, headings: five[:2], want: true},
		{name: "placeholder without headings", extra: []string{"toc"}, want: false},
		{name: "forcetoc without headings", extra: []string{"forcetoc"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var extra []*dom.Node
			for _, tag := range tt.extra {
				extra = append(extra, dom.New(tag))
			}
			root, _ := document(extra, tt.headings...)

			res := Generate(root, Options{})
			assert.Equal(t, tt.want, res.Inserted)

			doc := query(root)
			assert.Equal(t, 0, doc.Find("toc, notoc, forcetoc").Length())
			want := 0
			if tt.want {
				want = 1
			}
			assert.Equal(t, want, doc.Find("div#toc").Length())
		})
	}
}

func TestGenerate_SecondPlaceholderRemoved(t *testing.T) {
	root, body := document([]*dom.Node{dom.New("toc"), dom.New("p"), dom.New("toc")}, hdef{2, "A"})

	res := Generate(root, Options{})
	require.True(t, res.Inserted)
	assert.Equal(t, "toc", body.Child(1).ID())
	assert.Equal(t, 1, query(root).Find("div#toc").Length())
	assert.Equal(t, 0, query(root).Find("toc").Length())
}

func TestOutline_SkippedLevels(t *testing.T) {
	root, _ := document(nil,
		hdef{2, "A"}, hdef{4, "B"}, hdef{3, "C"}, hdef{2, "D"}, hdef{3, "E"}, hdef{1, "F"})

	hs := Outline(root)
	assert.Equal(t, []string{"1", "1.1", "1.2", "2", "2.1", "3"}, numbers(hs))
	assert.Equal(t, []int{1, 2, 2, 1, 2, 1}, []int{
		hs[0].Depth(), hs[1].Depth(), hs[2].Depth(), hs[3].Depth(), hs[4].Depth(), hs[5].Depth(),
	})
}

func TestOutline_UniqueAnchors(t *testing.T) {
	tests := []struct {
		name    string
		anchors []string
		want    []string
	}{
		{
			name:    "repeated titles",
			anchors: []string{"Intro", "Intro", "Intro_2", "Intro"},
			want:    []string{"Intro", "Intro_2", "Intro_2_2", "Intro_3"},
		},
		{
			name:    "empty titles",
			anchors: []string{"", ""},
			want:    []string{"", "_2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := dom.New("body")
			for _, a := range tt.anchors {
				root.Append(heading(2, strings.ReplaceAll(a, "_", " "), a))
			}

			hs := Outline(root)
			got := make([]string, len(hs))
			for i, h := range hs {
				got[i] = h.Anchor
			}
			assert.Equal(t, tt.want, got)

			seen := map[string]bool{}
			for _, h := range hs {
				assert.False(t, seen[h.Anchor], h.Anchor)
				seen[h.Anchor] = true
				assert.Equal(t, h.Anchor, headline(h.Node).ID())
			}
		})
	}
}

func TestGenerate_MaxLevel(t *testing.T) {
	root, _ := document([]*dom.Node{dom.New("toc")},
		hdef{2, "A"}, hdef{3, "B"}, hdef{2, "C"})

	res := Generate(root, Options{MaxLevel: 1})
	require.True(t, res.Inserted)
	assert.Equal(t, []string{"1", "1.1", "2"}, numbers(res.Headings))

	doc := query(root)
	assert.Equal(t, 2, doc.Find("div#toc li").Length())
	assert.Equal(t, 0, doc.Find("div#toc li ul").Length())
	assert.Equal(t, "toclevel-1 tocsection-2", doc.Find("div#toc li").Eq(1).AttrOr("class", ""))
}

func TestGenerate_Idempotent(t *testing.T) {
	root, _ := document(nil, hdef{2, "A"}, hdef{3, "B"}, hdef{2, "A"}, hdef{2, "C"})

	require.True(t, Generate(root, Options{}).Inserted)
	first, err := format.HTML(root)
	require.NoError(t, err)

	res := Generate(root, Options{})
	assert.False(t, res.Inserted)
	assert.Len(t, res.Headings, 4, "headings inside the table are not counted")
	second, err := format.HTML(root)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerate_LocalizedTitle(t *testing.T) {
	catalog, err := site.NewCatalog("de", nil)
	require.NoError(t, err)

	root, _ := document([]*dom.Node{dom.New("forcetoc")}, hdef{2, "A"})
	Generate(root, Options{Messages: catalog})
	assert.Equal(t, "Inhaltsverzeichnis", query(root).Find("div.toctitle h2").Text())
}

func TestHeading_TitleSkipsEditLinks(t *testing.T) {
	h := heading(2, "Intro", "Intro")
	edit := h.Append(dom.New("span", dom.A("class", "mw-editsection")))
	edit.AppendText("[edit]")

	hs := Outline(h)
	require.Len(t, hs, 1)
	assert.Equal(t, "Intro", hs[0].Title())
}
