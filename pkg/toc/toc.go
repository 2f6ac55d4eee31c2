// Package toc numbers the headings of a compiled document and inserts a
// table of contents.
package toc

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/leapstack-labs/wikidom/pkg/dom"
	"github.com/leapstack-labs/wikidom/pkg/site"
)

// DefaultMinHeadings is the number of headings from which a table of
// contents appears without an explicit placeholder.
const DefaultMinHeadings = 4

// Directive element names produced by the builder.
const (
	tagTOC      = "toc"
	tagNoTOC    = "notoc"
	tagForceTOC = "forcetoc"
)

// Options configures Generate.
type Options struct {
	// MinHeadings overrides DefaultMinHeadings when positive
	MinHeadings int
	// MaxLevel limits the depth of table entries (0 = unlimited)
	MaxLevel int
	// Messages provides the table title (default: "Contents")
	Messages site.Messages
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Heading is one numbered heading of a document.
type Heading struct {
	// Level is the heading level, 1 to 6.
	Level int
	// Number is the outline number path, e.g. [1 2] for 1.2.
	Number []int
	// Anchor is the deduplicated anchor id.
	Anchor string
	// Node is the <hN> element.
	Node *dom.Node
}

// Depth returns the outline depth of h.
func (h Heading) Depth() int { return len(h.Number) }

// NumberString returns the dotted outline number.
func (h Heading) NumberString() string {
	parts := make([]string, len(h.Number))
	for i, n := range h.Number {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// Title returns the text of the heading without edit links.
func (h Heading) Title() string {
	text := dom.New("span")
	copyContent(text, headline(h.Node))
	return strings.TrimSpace(text.TextContent())
}

// Result reports what Generate did.
type Result struct {
	Headings []Heading
	Inserted bool
}

// Outline numbers the headings of root in document order and makes their
// anchors unique by appending _2, _3, ... on collision. Headings inside an
// existing table of contents are ignored.
func Outline(root *dom.Node) []Heading {
	var headings []Heading
	var levels, numbers []int

	dom.Walk(root, func(n, _ *dom.Node, _ int) bool {
		if n.Tag == "div" && n.ID() == "toc" {
			return false
		}
		level := headingLevel(n.Tag)
		if level == 0 {
			return true
		}

		// Skipped intermediate levels count as the new level.
		pos := sort.SearchInts(levels, level)
		if pos == len(levels) {
			numbers = append(numbers, 1)
		} else {
			numbers = append(numbers[:pos:pos], numbers[pos]+1)
		}
		levels = append(levels[:pos:pos], level)

		headings = append(headings, Heading{
			Level:  level,
			Number: append([]int(nil), numbers...),
			Node:   n,
		})
		return false
	})

	dedupAnchors(headings)
	return headings
}

func headingLevel(tag string) int {
	if len(tag) != 2 || tag[0] != 'h' || tag[1] < '1' || tag[1] > '6' {
		return 0
	}
	return int(tag[1] - '0')
}

// headline returns the element carrying the anchor of a heading.
func headline(h *dom.Node) *dom.Node {
	for _, ch := range h.Children {
		if ch.Node.HasClass("mw-headline") {
			return ch.Node
		}
	}
	return h
}

func dedupAnchors(headings []Heading) {
	used := make(map[string]bool, len(headings))
	count := make(map[string]int, len(headings))
	for i := range headings {
		el := headline(headings[i].Node)
		anchor := el.ID()
		if used[anchor] {
			base := anchor
			for n := count[base] + 1; ; n++ {
				anchor = base + "_" + strconv.Itoa(n)
				if !used[anchor] {
					count[base] = n
					break
				}
			}
			el.Attr.Set("id", anchor)
		}
		used[anchor] = true
		if count[anchor] == 0 {
			count[anchor] = 1
		}
		headings[i].Anchor = anchor
	}
}

// Generate numbers the headings of root, removes the __TOC__,
// __NOTOC__ and __FORCETOC__ markers and inserts a table of contents
// where the first placeholder was, or before the first heading when the
// document has enough headings or forces one. Running Generate on its own
// output is a no-op.
func Generate(root *dom.Node, opts Options) Result {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	minHeadings := opts.MinHeadings
	if minHeadings <= 0 {
		minHeadings = DefaultMinHeadings
	}

	res := Result{Headings: Outline(root)}

	force := removeAll(root, tagForceTOC) > 0
	notoc := removeAll(root, tagNoTOC) > 0

	placeholders := root.Collect(func(n *dom.Node) bool { return n.Tag == tagTOC })
	for _, p := range placeholders[min(1, len(placeholders)):] {
		p.Parent.Remove(p.Node)
	}
	var placeholder *dom.Located
	if len(placeholders) > 0 {
		placeholder = &placeholders[0]
	}

	dropPlaceholder := func(reason string) Result {
		if placeholder != nil {
			placeholder.Parent.Remove(placeholder.Node)
		}
		logger.Debug("no table of contents", "reason", reason, "headings", len(res.Headings))
		return res
	}

	if placeholder == nil && notoc && !force {
		return dropPlaceholder("notoc")
	}

	var entries []Heading
	for _, h := range res.Headings {
		if opts.MaxLevel <= 0 || h.Depth() <= opts.MaxLevel {
			entries = append(entries, h)
		}
	}
	switch {
	case len(entries) == 0:
		return dropPlaceholder("no headings")
	case placeholder == nil && !force && len(entries) < minHeadings:
		return dropPlaceholder("too few headings")
	}
	if existing := root.Collect(func(n *dom.Node) bool { return n.Tag == "div" && n.ID() == "toc" }); len(existing) > 0 {
		return dropPlaceholder("already present")
	}

	block := render(entries, title(opts.Messages))
	if placeholder != nil {
		placeholder.Parent.Replace(placeholder.Parent.Index(placeholder.Node), block)
	} else {
		first := res.Headings[0].Node
		parent := parentOf(root, first)
		if parent == nil {
			return dropPlaceholder("heading without parent")
		}
		parent.Insert(parent.Index(first), block)
	}
	res.Inserted = true
	logger.Debug("inserted table of contents", "entries", len(entries), "placeholder", placeholder != nil)
	return res
}

func title(messages site.Messages) string {
	if messages != nil {
		if v := messages.Message(site.MsgTOC); v != "" && v != site.MsgTOC {
			return v
		}
	}
	return "Contents"
}

// render builds the <div id="toc"> block. Entry depths never grow by more
// than one level between consecutive entries.
func render(entries []Heading, heading string) *dom.Node {
	block := dom.New("div", dom.A("id", "toc"), dom.A("class", "toc"))
	titleDiv := block.Append(dom.New("div", dom.A("class", "toctitle")))
	titleDiv.Append(dom.New("h2")).AppendText(heading)

	type frame struct{ ul, li *dom.Node }
	var stack []frame

	for i, h := range entries {
		depth := h.Depth()
		if len(stack) > depth {
			stack = stack[:depth]
		}
		for len(stack) < depth {
			parent := block
			if len(stack) > 0 {
				parent = stack[len(stack)-1].li
				parent.AppendText("\n")
			}
			ul := parent.Append(dom.New("ul"))
			ul.AppendText("\n")
			stack = append(stack, frame{ul: ul, li: ul})
		}

		top := &stack[len(stack)-1]
		li := top.ul.AppendTail(dom.New("li", dom.A("class",
			"toclevel-"+strconv.Itoa(depth)+" tocsection-"+strconv.Itoa(i+1))), "\n")
		a := li.Append(dom.New("a", dom.A("href", "#"+h.Anchor)))
		a.AppendTail(dom.New("span", dom.A("class", "tocnumber")), " ").AppendText(h.NumberString())
		copyContent(a.Append(dom.New("span", dom.A("class", "toctext"))), headline(h.Node))
		top.li = li
	}
	return block
}

// copyContent appends a copy of the content of src to dst, leaving out
// edit-section links.
func copyContent(dst, src *dom.Node) {
	dst.AppendText(src.Text)
	for _, ch := range src.Children {
		if ch.Node.HasClass("mw-editsection") {
			dst.AppendText(ch.Tail)
			continue
		}
		dst.AppendTail(ch.Node.Clone(), ch.Tail)
	}
}

// removeAll removes every element with the given tag and returns how many
// were removed.
func removeAll(root *dom.Node, tag string) int {
	found := root.Collect(func(n *dom.Node) bool { return n.Tag == tag })
	for _, f := range found {
		f.Parent.Remove(f.Node)
	}
	return len(found)
}

func parentOf(root, target *dom.Node) *dom.Node {
	var parent *dom.Node
	dom.Walk(root, func(n, p *dom.Node, _ int) bool {
		if parent != nil {
			return false
		}
		if n == target {
			parent = p
			return false
		}
		return true
	})
	return parent
}
