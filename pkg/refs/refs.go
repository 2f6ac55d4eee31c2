// Package refs turns <ref> citation elements of a compiled document into
// numbered footnote markers and fills <references> containers with the
// matching footnote lists.
package refs

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/leapstack-labs/wikidom/pkg/dom"
)

// NotAvailable is the footnote text used when no usage carries content.
const NotAvailable = "N/A"

const backArrow = "\u2191"

// Entry is one distinct reference key with its usages in document order.
type Entry struct {
	// Group is the group attribute; empty for the default group.
	Group string
	// Name is the name attribute; empty when Anonymous.
	Name string
	// Anonymous entries never merge with other usages.
	Anonymous bool
	// Usages are the detached <ref> elements in document order.
	Usages []*dom.Node
	// Markers are the <sup> elements that replaced the usages.
	Markers []*dom.Node
	// Index is the 1-based global index in first-occurrence order.
	Index int
	// GroupIndex is the 1-based index within the group.
	GroupIndex int
}

// NoteID returns the id of the footnote list item for e.
func (e *Entry) NoteID() string {
	return "cite_note-" + strconv.Itoa(e.Index)
}

// RefID returns the id of the sub-th marker (0-based) for e.
func (e *Entry) RefID(sub int) string {
	if len(e.Usages) == 1 {
		return "cite_ref-" + strconv.Itoa(e.Index)
	}
	return fmt.Sprintf("cite_ref-%d-%d", e.Index, sub+1)
}

// Label returns the marker text, "[n]" or "[group n]".
func (e *Entry) Label() string {
	if e.Group == "" {
		return fmt.Sprintf("[%d]", e.GroupIndex)
	}
	return fmt.Sprintf("[%s %d]", e.Group, e.GroupIndex)
}

type key struct {
	group, name string
	anon        int
}

// Resolve rewrites every <ref> outside a <references> container into a
// numbered marker and replaces each <references> container by an ordered
// footnote list for its group. Containers whose group has no usages are
// removed. The returned entries are in first-occurrence order. Running
// Resolve on its own output is a no-op.
func Resolve(root *dom.Node, logger *slog.Logger) []*Entry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	entries, groups, sites := collect(root)
	for _, e := range entries {
		for sub := range e.Usages {
			e.Markers = append(e.Markers, marker(e, sub))
		}
	}
	replaceUsages(entries, sites)

	// Containers nested in citation text would end up inside a footnote.
	pruned := 0
	for _, e := range entries {
		for _, u := range e.Usages {
			pruned += strip(u, "references")
		}
	}

	var containers []dom.Located
	dom.Walk(root, func(n, parent *dom.Node, _ int) bool {
		if n.Tag == "references" && parent != nil {
			containers = append(containers, dom.Located{Node: n, Parent: parent})
			return false
		}
		return true
	})

	lists, dropped := 0, 0
	for _, c := range containers {
		group := c.Node.Attr.Value("group")
		members, ok := groups[group]
		if !ok {
			c.Parent.Remove(c.Node)
			pruned++
			continue
		}
		defs := definitions(c.Node)
		for _, list := range defs {
			for _, d := range list {
				dropped += strip(d, "ref", "references")
			}
		}
		c.Parent.Replace(c.Parent.Index(c.Node), noteList(members, defs))
		lists++
	}

	if len(entries) > 0 || pruned > 0 {
		logger.Debug("resolved references",
			"entries", len(entries), "groups", len(groups),
			"lists", lists, "pruned", pruned, "dropped", dropped)
	}
	return entries
}

// collect gathers usages in document order, skipping <references>
// subtrees, and assigns global and per-group indices. Usages nested in
// the content of another usage are collected too. The returned sites hold
// each usage with its parent at the time of the walk.
func collect(root *dom.Node) ([]*Entry, map[string][]*Entry, []dom.Located) {
	var entries []*Entry
	byKey := make(map[key]*Entry)
	groups := make(map[string][]*Entry)
	var sites []dom.Located
	anon := 0

	dom.Walk(root, func(n, parent *dom.Node, _ int) bool {
		switch n.Tag {
		case "references":
			return false
		case "ref":
		default:
			return true
		}

		k := key{group: n.Attr.Value("group"), name: n.Attr.Value("name")}
		if k.name == "" {
			anon++
			k.anon = anon
		}
		e, ok := byKey[k]
		if !ok {
			e = &Entry{
				Group:     k.group,
				Name:      k.name,
				Anonymous: k.anon != 0,
				Index:     len(entries) + 1,
			}
			groups[k.group] = append(groups[k.group], e)
			e.GroupIndex = len(groups[k.group])
			byKey[k] = e
			entries = append(entries, e)
		}
		e.Usages = append(e.Usages, n)
		sites = append(sites, dom.Located{Node: n, Parent: parent})
		return true
	})
	return entries, groups, sites
}

func marker(e *Entry, sub int) *dom.Node {
	sup := dom.New("sup", dom.A("class", "reference"), dom.A("id", e.RefID(sub)))
	sup.Append(dom.New("a", dom.A("href", "#"+e.NoteID()))).AppendText(e.Label())
	return sup
}

// replaceUsages swaps each usage for its marker, keeping the usage's tail.
// A nested usage is replaced inside the detached outer usage, so its marker
// moves into the footnote along with the outer content.
func replaceUsages(entries []*Entry, sites []dom.Located) {
	markers := make(map[*dom.Node]*dom.Node)
	for _, e := range entries {
		for i, ref := range e.Usages {
			markers[ref] = e.Markers[i]
		}
	}
	for _, s := range sites {
		s.Parent.Replace(s.Parent.Index(s.Node), markers[s.Node])
	}
}

// strip removes every descendant of n with one of the given tags and
// returns how many were removed.
func strip(n *dom.Node, tags ...string) int {
	var found []dom.Located
	dom.Walk(n, func(c, parent *dom.Node, _ int) bool {
		if parent == nil {
			return true
		}
		for _, t := range tags {
			if c.Tag == t {
				found = append(found, dom.Located{Node: c, Parent: parent})
				return false
			}
		}
		return true
	})
	for _, f := range found {
		f.Parent.Remove(f.Node)
	}
	return len(found)
}

// definitions returns the named <ref> definitions inside a container.
// Definitions without a name are skipped.
func definitions(container *dom.Node) map[string][]*dom.Node {
	defs := make(map[string][]*dom.Node)
	for _, ch := range container.Children {
		if ch.Node.Tag != "ref" {
			continue
		}
		name := ch.Node.Attr.Value("name")
		if name == "" {
			continue
		}
		defs[name] = append(defs[name], ch.Node)
	}
	return defs
}

func noteList(members []*Entry, defs map[string][]*dom.Node) *dom.Node {
	ol := dom.New("ol", dom.A("class", "references"))
	for _, e := range members {
		li := ol.Append(dom.New("li", dom.A("id", e.NoteID())))
		li.Append(backlinks(e))

		text := li.Append(dom.New("span", dom.A("class", "reference-text")))
		candidates := e.Usages
		if !e.Anonymous {
			candidates = append(candidates[:len(candidates):len(candidates)], defs[e.Name]...)
		}
		if src := firstWithContent(candidates); src != nil {
			moveContent(text, src)
		} else {
			text.AppendText(NotAvailable)
		}
	}
	return ol
}

// backlinks returns the span linking a footnote back to its markers.
// Several usages get one sub-link each, labelled "n.S" with S 1-based.
func backlinks(e *Entry) *dom.Node {
	span := dom.New("span", dom.A("class", "mw-cite-backlink"))
	if len(e.Usages) == 1 {
		a := span.Append(dom.New("a", dom.A("href", "#"+e.RefID(0))))
		a.AppendText(backArrow)
		span.AppendText(" ")
		return span
	}
	span.AppendText(backArrow + " ")
	for sub := range e.Usages {
		sup := span.Append(dom.New("sup"))
		sup.Append(dom.New("a", dom.A("href", "#"+e.RefID(sub)))).
			AppendText(strconv.Itoa(e.GroupIndex) + "." + strconv.Itoa(sub+1))
		span.AppendText(" ")
	}
	return span
}

func firstWithContent(refs []*dom.Node) *dom.Node {
	for _, r := range refs {
		if r.Text != "" || r.Len() > 0 {
			return r
		}
	}
	return nil
}

// moveContent moves the content of src to the end of dst.
func moveContent(dst, src *dom.Node) {
	dst.AppendText(src.Text)
	for _, ch := range src.Children {
		dst.AppendTail(ch.Node, ch.Tail)
	}
	src.Text = ""
	src.Children = nil
}
