package ast

// Walk traverses a parse tree depth-first and calls fn for each node.
// If fn returns false, the children of that node are skipped.
func Walk(node Node, fn func(node Node) bool) {
	if node == nil {
		return
	}
	if !fn(node) {
		return
	}
	walkNode(node, fn)
}

func walkBlocks(blocks []Block, fn func(Node) bool) {
	for _, b := range blocks {
		Walk(b, fn)
	}
}

func walkInlines(inlines []Inline, fn func(Node) bool) {
	for _, in := range inlines {
		Walk(in, fn)
	}
}

func walkNode(node Node, fn func(Node) bool) {
	switch n := node.(type) {
	case *Document:
		walkBlocks(n.Blocks, fn)

	case *Heading:
		walkInlines(n.Content, fn)

	case *Paragraph:
		walkInlines(n.Content, fn)

	case *List:
		for _, item := range n.Items {
			Walk(item, fn)
		}

	case *ListItem:
		if n == nil {
			return
		}
		walkInlines(n.Content, fn)
		walkInlines(n.InlineDefinition, fn)
		for _, sub := range n.Sublists {
			Walk(sub, fn)
		}

	case *Table:
		if n.Caption != nil {
			Walk(n.Caption, fn)
		}
		for _, row := range n.Rows {
			Walk(row, fn)
		}

	case *TableCaption:
		walkBlocks(n.Content, fn)

	case *TableRow:
		for _, cell := range n.Cells {
			Walk(cell, fn)
		}

	case *TableCell:
		walkInlines(n.Inline, fn)
		walkBlocks(n.Blocks, fn)

	case *Preformatted:
		walkInlines(n.Content, fn)

	case *HTMLBlock:
		walkBlocks(n.Content, fn)

	case *ReferenceList:
		for _, def := range n.Definitions {
			Walk(def, fn)
		}

	case *InternalLink:
		walkInlines(n.Target, fn)
		walkInlines(n.Label, fn)

	case *ExternalLink:
		walkInlines(n.Label, fn)

	case *Formatting:
		walkInlines(n.Inner, fn)
		walkInlines(n.Content, fn)

	case *HTMLInline:
		walkInlines(n.Content, fn)

	case *Reference:
		walkBlocks(n.Content, fn)

	// Leaf nodes
	case *HorizontalRule, *TOCDirective, *Text, *PlainLink, *NamedEntity,
		*NumericEntity, *Comment, *Template, *Nowiki, *Pre, *LineBreak:
		// No children
	}
}

// Inspect collects every node of type T in the tree rooted at node.
func Inspect[T Node](node Node) []T {
	var out []T
	Walk(node, func(n Node) bool {
		if t, ok := n.(T); ok {
			out = append(out, t)
		}
		return true
	})
	return out
}
