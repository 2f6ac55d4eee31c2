package refs

import (
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/wikidom/internal/testutil"
	"github.com/leapstack-labs/wikidom/pkg/dom"
	"github.com/leapstack-labs/wikidom/pkg/format"
)

func ref(text string, attrs ...dom.Attribute) *dom.Node {
	r := dom.New("ref", attrs...)
	r.AppendText(text)
	return r
}

func references(attrs ...dom.Attribute) *dom.Node {
	return dom.New("references", attrs...)
}

// page returns html > body holding a paragraph with the given inline
// nodes followed by the given blocks.
func page(inline []*dom.Node, blocks ...*dom.Node) (*dom.Node, *dom.Node) {
	root := dom.New("html")
	body := root.Append(dom.New("body"))
	p := body.Append(dom.New("p"))
	p.AppendText("text")
	for _, n := range inline {
		p.AppendTail(n, " more")
	}
	for _, b := range blocks {
		body.AppendTail(b, "\n")
	}
	return root, body
}

func query(t *testing.T, root *dom.Node) *goquery.Document {
	t.Helper()
	return goquery.NewDocumentFromNode(format.ToHTML(root))
}

func TestResolve_UnnamedWithContainer(t *testing.T) {
	root, _ := page([]*dom.Node{ref("one"), ref("two")}, references())

	entries := Resolve(root, testutil.NewTestLogger(t))
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Anonymous)
	assert.Equal(t, 1, entries[0].Index)
	assert.Equal(t, 2, entries[1].GroupIndex)

	doc := query(t, root)
	markers := doc.Find("p sup.reference")
	require.Equal(t, 2, markers.Length())
	assert.Equal(t, "cite_ref-1", markers.Eq(0).AttrOr("id", ""))
	assert.Equal(t, "#cite_note-1", markers.Eq(0).Find("a").AttrOr("href", ""))
	assert.Equal(t, "[1]", markers.Eq(0).Text())
	assert.Equal(t, "[2]", markers.Eq(1).Text())
	assert.Equal(t, "text[1] more[2] more", doc.Find("p").Text())

	items := doc.Find("ol.references > li")
	require.Equal(t, 2, items.Length())
	assert.Equal(t, "cite_note-1", items.Eq(0).AttrOr("id", ""))
	assert.Equal(t, "#cite_ref-1", items.Eq(0).Find("span.mw-cite-backlink a").AttrOr("href", ""))
	assert.Equal(t, "\u2191 ", items.Eq(0).Find("span.mw-cite-backlink").Text())
	assert.Equal(t, "one", items.Eq(0).Find("span.reference-text").Text())
	assert.Equal(t, "two", items.Eq(1).Find("span.reference-text").Text())
	assert.Equal(t, 0, doc.Find("references, ref").Length())
}

func TestResolve_UnnamedWithoutContainer(t *testing.T) {
	root, _ := page([]*dom.Node{ref("one"), ref("one")})

	entries := Resolve(root, nil)
	require.Len(t, entries, 2, "anonymous usages never merge")

	doc := query(t, root)
	assert.Equal(t, 2, doc.Find("sup.reference").Length())
	assert.Equal(t, 0, doc.Find("ol").Length())
}

func TestResolve_PrunesUnusedGroup(t *testing.T) {
	root, body := page([]*dom.Node{ref("one")},
		references(dom.A("group", "notes")),
		references(),
	)

	logger, logs := testutil.NewCaptureLogger()
	Resolve(root, logger)

	doc := query(t, root)
	assert.Equal(t, 1, doc.Find("ol.references").Length())
	assert.Equal(t, 0, doc.Find("references").Length())
	assert.Contains(t, logs.String(), "pruned=1")
	// p, ol remain; the pruned container's tail is kept.
	assert.Equal(t, 2, body.Len())
	assert.Equal(t, "\n", body.Children[0].Tail)
}

func TestResolve_NamedAndGroups(t *testing.T) {
	defs := references(dom.A("group", "g"))
	defs.Append(ref("def y", dom.A("name", "y")))
	defs.Append(ref("skipped"))

	root, _ := page([]*dom.Node{
		ref("content", dom.A("name", "x")),
		ref("", dom.A("name", "x")),
		ref("", dom.A("group", "g"), dom.A("name", "y")),
		ref("", dom.A("name", "z")),
	}, references(), defs)

	entries := Resolve(root, nil)
	require.Len(t, entries, 3)
	assert.Equal(t, "x", entries[0].Name)
	assert.Len(t, entries[0].Usages, 2)
	assert.Equal(t, "g", entries[1].Group)
	assert.Equal(t, 2, entries[1].Index)
	assert.Equal(t, 1, entries[1].GroupIndex)
	assert.Equal(t, 2, entries[2].GroupIndex)

	doc := query(t, root)
	markers := doc.Find("sup.reference")
	require.Equal(t, 4, markers.Length())
	assert.Equal(t, "cite_ref-1-1", markers.Eq(0).AttrOr("id", ""))
	assert.Equal(t, "cite_ref-1-2", markers.Eq(1).AttrOr("id", ""))
	assert.Equal(t, "[1]", markers.Eq(1).Text())
	assert.Equal(t, "cite_ref-2", markers.Eq(2).AttrOr("id", ""))
	assert.Equal(t, "[g 1]", markers.Eq(2).Text())
	assert.Equal(t, "[2]", markers.Eq(3).Text())

	lists := doc.Find("ol.references")
	require.Equal(t, 2, lists.Length())

	first := lists.Eq(0).Find("li")
	require.Equal(t, 2, first.Length())
	sub := first.Eq(0).Find("span.mw-cite-backlink sup a")
	require.Equal(t, 2, sub.Length())
	assert.Equal(t, "#cite_ref-1-1", sub.Eq(0).AttrOr("href", ""))
	assert.Equal(t, "1.1", sub.Eq(0).Text())
	assert.Equal(t, "1.2", sub.Eq(1).Text())
	assert.Equal(t, "\u2191 1.1 1.2 ", first.Eq(0).Find("span.mw-cite-backlink").Text())
	assert.Equal(t, "content", first.Eq(0).Find("span.reference-text").Text())
	assert.Equal(t, NotAvailable, first.Eq(1).Find("span.reference-text").Text())

	grouped := lists.Eq(1).Find("li")
	require.Equal(t, 1, grouped.Length())
	assert.Equal(t, "cite_note-2", grouped.AttrOr("id", ""))
	assert.Equal(t, "def y", grouped.Find("span.reference-text").Text())
}

func TestResolve_BacklinksMatchUsages(t *testing.T) {
	root, _ := page([]*dom.Node{
		ref("a", dom.A("name", "a")),
		ref("b", dom.A("name", "b")),
		ref("", dom.A("name", "a")),
		ref("", dom.A("name", "a")),
		ref("c"),
	}, references())

	entries := Resolve(root, nil)
	doc := query(t, root)
	for _, e := range entries {
		li := doc.Find("li#" + e.NoteID())
		require.Equal(t, 1, li.Length(), e.NoteID())
		links := li.Find("span.mw-cite-backlink a").Length()
		assert.Equal(t, len(e.Usages), links, e.NoteID())
		assert.Len(t, e.Markers, len(e.Usages))
	}
}

func TestResolve_Idempotent(t *testing.T) {
	root, _ := page([]*dom.Node{ref("one"), ref("two", dom.A("name", "n"))}, references())

	Resolve(root, nil)
	first, err := format.HTML(root)
	require.NoError(t, err)

	entries := Resolve(root, nil)
	assert.Empty(t, entries)
	second, err := format.HTML(root)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolve_NestedRefs(t *testing.T) {
	outer := ref("x")
	outer.AppendTail(ref("y"), " after")
	root, _ := page([]*dom.Node{outer}, references())

	entries := Resolve(root, nil)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Index)
	assert.Equal(t, 2, entries[1].Index)

	doc := query(t, root)
	assert.Equal(t, 0, doc.Find("ref").Length())
	require.Equal(t, 1, doc.Find("p sup.reference").Length())

	items := doc.Find("ol.references li")
	require.Equal(t, 2, items.Length())
	inner := items.Eq(0).Find("span.reference-text sup.reference")
	require.Equal(t, 1, inner.Length())
	assert.Equal(t, "cite_ref-2", inner.AttrOr("id", ""))
	assert.Equal(t, "x[2] after", items.Eq(0).Find("span.reference-text").Text())
	assert.Equal(t, "y", items.Eq(1).Find("span.reference-text").Text())
}

func TestResolve_NestedIdempotent(t *testing.T) {
	tests := []struct {
		name   string
		build  func() *dom.Node
		marker int
		lists  int
	}{
		{
			name: "ref inside ref",
			build: func() *dom.Node {
				outer := ref("x")
				outer.Append(ref("y"))
				root, _ := page([]*dom.Node{outer}, references())
				return root
			},
			marker: 2,
			lists:  1,
		},
		{
			name: "container inside ref",
			build: func() *dom.Node {
				r := ref("x")
				r.Append(references())
				root, _ := page([]*dom.Node{r}, references())
				return root
			},
			marker: 1,
			lists:  1,
		},
		{
			name: "ref and container inside definition",
			build: func() *dom.Node {
				def := ref("def", dom.A("name", "d"))
				def.Append(ref("inner"))
				def.Append(references())
				list := references()
				list.Append(def)
				root, _ := page([]*dom.Node{ref("", dom.A("name", "d"))}, list)
				return root
			},
			marker: 1,
			lists:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := tt.build()
			Resolve(root, nil)
			first, err := format.HTML(root)
			require.NoError(t, err)

			doc := query(t, root)
			assert.Equal(t, 0, doc.Find("ref").Length())
			assert.Equal(t, 0, doc.Find("references").Length())
			assert.Equal(t, tt.marker, doc.Find("sup.reference").Length())
			assert.Equal(t, tt.lists, doc.Find("ol.references").Length())

			assert.Empty(t, Resolve(root, nil))
			second, err := format.HTML(root)
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestEntry_Formats(t *testing.T) {
	e := &Entry{Group: "note", Index: 3, GroupIndex: 2, Usages: make([]*dom.Node, 2)}
	assert.Equal(t, "[note 2]", e.Label())
	assert.Equal(t, "cite_note-3", e.NoteID())
	assert.Equal(t, "cite_ref-3-2", e.RefID(1))

	e.Usages = e.Usages[:1]
	assert.Equal(t, "cite_ref-3", e.RefID(0))
}
