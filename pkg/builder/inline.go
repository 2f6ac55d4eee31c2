package builder

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/wikidom/pkg/ast"
	"github.com/leapstack-labs/wikidom/pkg/dom"
	"github.com/leapstack-labs/wikidom/pkg/sanitize"
	"github.com/leapstack-labs/wikidom/pkg/site"
)

func (b *Builder) inlines(list []ast.Inline) ([]piece, error) {
	var out []piece
	for _, n := range list {
		ps, err := b.inline(n)
		if err != nil {
			return nil, err
		}
		out = append(out, ps...)
	}
	return out, nil
}

//nolint:gocyclo // one case per node kind
func (b *Builder) inline(node ast.Inline) ([]piece, error) {
	switch n := node.(type) {
	case *ast.Text:
		return []piece{textPiece(n.Value)}, nil
	case *ast.InternalLink:
		return b.internalLink(n)
	case *ast.ExternalLink:
		return b.externalLink(n)
	case *ast.PlainLink:
		a := dom.New("a",
			dom.A("rel", "nofollow"),
			dom.A("class", "external free"),
			dom.A("href", n.URL),
		)
		a.AppendText(n.URL)
		return []piece{nodePiece(a)}, nil
	case *ast.Formatting:
		return b.formatting(n)
	case *ast.HTMLInline:
		el := dom.New(strings.ToLower(n.Name))
		if !n.SelfClosing {
			content, err := b.inlines(n.Content)
			if err != nil {
				return nil, err
			}
			collect(el, content)
		}
		b.setAttrs(el, n.Attrs)
		return []piece{nodePiece(el)}, nil
	case *ast.NamedEntity:
		if _, ok := sanitize.EntityRune(n.Name); !ok {
			b.logger.Debug("unresolved entity", "name", n.Name, "pos", n.Pos().String())
		}
		return []piece{textPiece(sanitize.Entity(n.Name))}, nil
	case *ast.NumericEntity:
		return []piece{textPiece(sanitize.NumericEntity(n.Digits, n.Hex))}, nil
	case *ast.Comment:
		return nil, nil
	case *ast.Template:
		return []piece{textPiece(templateText(n))}, nil
	case *ast.Nowiki:
		return []piece{textPiece(n.Text)}, nil
	case *ast.Pre:
		return []piece{nodePiece(b.pre(n))}, nil
	case *ast.LineBreak:
		return blockPieces(dom.New("br")), nil
	case *ast.Reference:
		ref, err := b.reference(n)
		if err != nil {
			return nil, err
		}
		return []piece{nodePiece(ref)}, nil
	case *ast.TOCDirective:
		return []piece{nodePiece(dom.New(n.Kind.String()))}, nil
	case *ast.ReferenceList:
		return b.referenceList(n)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownNode, node)
	}
}

func (b *Builder) internalLink(n *ast.InternalLink) ([]piece, error) {
	targetPieces, err := b.inlines(n.Target)
	if err != nil {
		return nil, err
	}
	target, ok := onlyText(targetPieces)
	if ok {
		target = strings.TrimSpace(target)
	} else {
		b.logger.Debug("link target is not plain text", "pos", n.Pos().String())
		target = BrokenTarget
	}

	r := b.resolver
	name := r.Canonicalize(target)
	a := dom.New("a")
	if r.Exists(name) {
		a.Attr.Set("href", r.BuildURL(name))
		a.Attr.Set("title", r.Expand(name))
	} else {
		a.Attr.Set("href", r.BuildURL(name, site.Action("edit"), site.Redlink()))
		a.Attr.Set("class", "new")
		a.Attr.Set("title", r.Expand(name)+" ("+b.message(site.MsgMissing, "page does not exist")+")")
	}

	label, err := b.inlines(n.Label)
	if err != nil {
		return nil, err
	}
	label = trimTrailing(label)
	if len(label) > 0 {
		if n.Suffix != "" {
			label = append(label, textPiece(n.Suffix))
		}
		collect(a, label)
	} else {
		a.AppendText(target + n.Suffix)
	}
	return []piece{nodePiece(a)}, nil
}

func (b *Builder) externalLink(n *ast.ExternalLink) ([]piece, error) {
	target := strings.TrimSpace(n.Target)
	label, err := b.inlines(n.Label)
	if err != nil {
		return nil, err
	}
	label = trimTrailing(label)

	a := dom.New("a")
	if len(label) > 0 {
		collect(a, label)
		a.Attr.Set("rel", "nofollow")
		a.Attr.Set("class", "external text")
	} else {
		a.AppendText(target)
	}
	a.Attr.Set("href", target)
	return []piece{nodePiece(a)}, nil
}

func (b *Builder) formatting(n *ast.Formatting) ([]piece, error) {
	content, err := b.inlines(n.Content)
	if err != nil {
		return nil, err
	}
	inner, err := b.inlines(n.Inner)
	if err != nil {
		return nil, err
	}

	var el *dom.Node
	switch n.Style {
	case ast.Bold:
		el = dom.New("b")
		collect(el, content)
	case ast.Italic:
		el = dom.New("i")
		collect(el, content)
	case ast.BoldAndItalic:
		el = dom.New("i")
		collect(el.Append(dom.New("b")), content)
	case ast.ItalicBold:
		el = dom.New("i")
		collect(el.Append(dom.New("b")), inner)
		collect(el, content)
	case ast.BoldItalic:
		el = dom.New("b")
		collect(el.Append(dom.New("i")), inner)
		collect(el, content)
	default:
		return nil, fmt.Errorf("%w: format style %d", ErrUnknownNode, n.Style)
	}
	return []piece{nodePiece(el)}, nil
}
