// Package dom holds the document tree produced by the compiler.
//
// A Node is an element with a tag, ordered attributes and mixed content:
// leading text followed by (child, tail text) pairs. The tree is strictly
// owned top-down; nodes refer to each other only through id attribute values.
package dom

import "strings"

// Attribute is a single name/value pair.
type Attribute struct {
	Name  string
	Value string
}

// Attributes is an ordered attribute list with unique names.
type Attributes []Attribute

// Get returns the value of name.
func (a Attributes) Get(name string) (string, bool) {
	for _, attr := range a {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

// Value returns the value of name or "" when absent.
func (a Attributes) Value(name string) string {
	v, _ := a.Get(name)
	return v
}

// Has reports whether name is present.
func (a Attributes) Has(name string) bool {
	_, ok := a.Get(name)
	return ok
}

// Set replaces the value of name in place, or appends it.
func (a *Attributes) Set(name, value string) {
	for i := range *a {
		if (*a)[i].Name == name {
			(*a)[i].Value = value
			return
		}
	}
	*a = append(*a, Attribute{Name: name, Value: value})
}

// Delete removes name.
func (a *Attributes) Delete(name string) {
	for i := range *a {
		if (*a)[i].Name == name {
			*a = append((*a)[:i], (*a)[i+1:]...)
			return
		}
	}
}

// Child is a child element followed by the text that trails it.
type Child struct {
	Node *Node
	Tail string
}

// Node is an element of the document tree.
type Node struct {
	Tag      string
	Attr     Attributes
	Text     string
	Children []Child
}

// New returns an element with the given attributes in order.
func New(tag string, attrs ...Attribute) *Node {
	n := &Node{Tag: tag}
	for _, a := range attrs {
		n.Attr.Set(a.Name, a.Value)
	}
	return n
}

// A is shorthand for an Attribute literal.
func A(name, value string) Attribute {
	return Attribute{Name: name, Value: value}
}

// Len returns the number of child elements.
func (n *Node) Len() int { return len(n.Children) }

// Child returns the i-th child element.
func (n *Node) Child(i int) *Node { return n.Children[i].Node }

// LastChild returns the last child element or nil.
func (n *Node) LastChild() *Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[len(n.Children)-1].Node
}

// AppendText adds s after the current last piece of content.
func (n *Node) AppendText(s string) {
	if s == "" {
		return
	}
	if len(n.Children) == 0 {
		n.Text += s
		return
	}
	n.Children[len(n.Children)-1].Tail += s
}

// TrailingText returns the text after the last child element, or the
// leading text when there are no children.
func (n *Node) TrailingText() string {
	if len(n.Children) == 0 {
		return n.Text
	}
	return n.Children[len(n.Children)-1].Tail
}

// SetTrailingText replaces the text returned by TrailingText.
func (n *Node) SetTrailingText(s string) {
	if len(n.Children) == 0 {
		n.Text = s
		return
	}
	n.Children[len(n.Children)-1].Tail = s
}

// Append adds c as the last child and returns it.
func (n *Node) Append(c *Node) *Node {
	n.Children = append(n.Children, Child{Node: c})
	return c
}

// AppendTail adds c as the last child followed by tail.
func (n *Node) AppendTail(c *Node, tail string) *Node {
	n.Children = append(n.Children, Child{Node: c, Tail: tail})
	return c
}

// Insert places c before the i-th child. Text preceding position i stays
// in front of c.
func (n *Node) Insert(i int, c *Node) {
	n.Children = append(n.Children, Child{})
	copy(n.Children[i+1:], n.Children[i:])
	n.Children[i] = Child{Node: c}
}

// Replace swaps the i-th child for c, keeping its tail.
func (n *Node) Replace(i int, c *Node) *Node {
	old := n.Children[i].Node
	n.Children[i].Node = c
	return old
}

// RemoveAt removes the i-th child. Its tail text is kept by appending it to
// the previous sibling's tail, or to the leading text.
func (n *Node) RemoveAt(i int) *Node {
	removed := n.Children[i]
	n.Children = append(n.Children[:i], n.Children[i+1:]...)
	if removed.Tail != "" {
		if i > 0 {
			n.Children[i-1].Tail += removed.Tail
		} else {
			n.Text += removed.Tail
		}
	}
	return removed.Node
}

// Remove removes c from n's children. It reports whether c was found.
func (n *Node) Remove(c *Node) bool {
	i := n.Index(c)
	if i < 0 {
		return false
	}
	n.RemoveAt(i)
	return true
}

// Index returns the position of c among n's children or -1.
func (n *Node) Index(c *Node) int {
	for i, ch := range n.Children {
		if ch.Node == c {
			return i
		}
	}
	return -1
}

// Unwrap replaces the i-th child with its own content: leading text, child
// elements and finally its tail.
func (n *Node) Unwrap(i int) {
	c := n.Children[i]
	before := n.Children[:i:i]
	after := append([]Child(nil), n.Children[i+1:]...)

	if i > 0 {
		before[i-1].Tail += c.Node.Text
	} else {
		n.Text += c.Node.Text
	}
	n.Children = append(before, c.Node.Children...)
	n.Children = append(n.Children, after...)

	last := i - 1 + len(c.Node.Children)
	if last >= 0 {
		n.Children[last].Tail += c.Tail
	} else {
		n.Text += c.Tail
	}
}

// HasClass reports whether class appears in the class attribute.
func (n *Node) HasClass(class string) bool {
	for _, c := range strings.Fields(n.Attr.Value("class")) {
		if c == class {
			return true
		}
	}
	return false
}

// ID returns the id attribute.
func (n *Node) ID() string { return n.Attr.Value("id") }

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	c := &Node{Tag: n.Tag, Text: n.Text}
	if n.Attr != nil {
		c.Attr = append(Attributes(nil), n.Attr...)
	}
	if n.Children != nil {
		c.Children = make([]Child, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = Child{Node: ch.Node.Clone(), Tail: ch.Tail}
		}
	}
	return c
}

// TextContent returns the concatenated text of n and its descendants,
// excluding n's own tail.
func (n *Node) TextContent() string {
	var sb strings.Builder
	n.writeText(&sb)
	return sb.String()
}

func (n *Node) writeText(sb *strings.Builder) {
	sb.WriteString(n.Text)
	for _, ch := range n.Children {
		ch.Node.writeText(sb)
		sb.WriteString(ch.Tail)
	}
}
