package dom

// Visitor is called for each node during Walk with its parent and its index
// in the parent (nil and -1 for the root). Returning false skips the
// node's children.
type Visitor func(n, parent *Node, index int) bool

// Walk traverses the tree rooted at n in document order.
func Walk(n *Node, fn Visitor) {
	walk(n, nil, -1, fn)
}

func walk(n, parent *Node, index int, fn Visitor) {
	if n == nil || !fn(n, parent, index) {
		return
	}
	for i := 0; i < len(n.Children); i++ {
		walk(n.Children[i].Node, n, i, fn)
	}
}

// FindAll returns n and its descendants with the given tag in document
// order.
func (n *Node) FindAll(tag string) []*Node {
	var out []*Node
	Walk(n, func(c, _ *Node, _ int) bool {
		if c.Tag == tag {
			out = append(out, c)
		}
		return true
	})
	return out
}

// Find returns the first node with the given tag in document order, or nil.
func (n *Node) Find(tag string) *Node {
	var found *Node
	Walk(n, func(c, _ *Node, _ int) bool {
		if found != nil {
			return false
		}
		if c.Tag == tag {
			found = c
			return false
		}
		return true
	})
	return found
}

// Located is a node together with its parent.
type Located struct {
	Node   *Node
	Parent *Node
}

// Collect returns every descendant of n (excluding n) matching pred, with
// its parent, in document order.
func (n *Node) Collect(pred func(*Node) bool) []Located {
	var out []Located
	Walk(n, func(c, parent *Node, _ int) bool {
		if parent != nil && pred(c) {
			out = append(out, Located{Node: c, Parent: parent})
		}
		return true
	})
	return out
}
