// Package markup converts documents to and from HTML using the parse and
// serialization rules declared on the schema.
//
// Node and mark types without ToHTML are written as <div data-node>,
// <span data-node> or <span data-mark> elements, which Parse reads back.
package markup

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dshills/inkstorm/internal/engine/model"
)

// ErrParse wraps HTML that cannot be turned into a valid document.
var ErrParse = errors.New("markup: cannot parse html")

const (
	attrNode = "data-node"
	attrMark = "data-mark"
)

// Serialize renders the document's content as HTML.
func Serialize(doc *model.Node) string {
	root := &html.Node{Type: html.DocumentNode}
	appendContent(root, doc)
	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// SerializeFragment renders a fragment as HTML.
func SerializeFragment(f *model.Fragment) string {
	root := &html.Node{Type: html.DocumentNode}
	appendFragment(root, f)
	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

func appendContent(parent *html.Node, n *model.Node) {
	if n.Content != nil {
		appendFragment(parent, n.Content)
	}
}

// appendFragment writes children, keeping marks shared by adjacent inline
// nodes open across them.
func appendFragment(parent *html.Node, f *model.Fragment) {
	type open struct {
		mark *model.Mark
		el   *html.Node
	}
	var active []open
	for _, child := range f.Nodes() {
		if !child.IsInline() {
			active = nil
			parent.AppendChild(nodeElement(child))
			continue
		}
		keep := 0
		for keep < len(active) && keep < len(child.Marks) && active[keep].mark.Eq(child.Marks[keep]) {
			keep++
		}
		active = active[:keep]
		target := parent
		if keep > 0 {
			target = active[keep-1].el
		}
		for _, m := range child.Marks[keep:] {
			el := markElement(m)
			target.AppendChild(el)
			active = append(active, open{mark: m, el: el})
			target = el
		}
		if child.IsText() {
			target.AppendChild(&html.Node{Type: html.TextNode, Data: child.Text})
		} else {
			target.AppendChild(nodeElement(child))
		}
	}
}

func nodeElement(n *model.Node) *html.Node {
	var spec model.HTMLSpec
	if n.Type.Spec.ToHTML != nil {
		spec = n.Type.Spec.ToHTML(n)
	} else {
		tag := "div"
		if n.IsInline() {
			tag = "span"
		}
		spec = model.HTMLSpec{Tag: tag, Attrs: map[string]string{attrNode: n.Type.Name}}
	}
	el := element(spec)
	appendContent(el, n)
	return el
}

func markElement(m *model.Mark) *html.Node {
	if m.Type.Spec.ToHTML != nil {
		return element(m.Type.Spec.ToHTML(m))
	}
	return element(model.HTMLSpec{Tag: "span", Attrs: map[string]string{attrMark: m.Type.Name}})
}

func element(spec model.HTMLSpec) *html.Node {
	el := &html.Node{Type: html.ElementNode, Data: spec.Tag, DataAtom: atom.Lookup([]byte(spec.Tag))}
	keys := make([]string, 0, len(spec.Attrs))
	for k := range spec.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		el.Attr = append(el.Attr, html.Attribute{Key: k, Val: spec.Attrs[k]})
	}
	return el
}

// Parse parses HTML into a document of the schema's top node type.
func Parse(schema *model.Schema, src string) (*model.Node, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(src), context)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	p := &parser{schema: schema}
	children, err := p.block(nodes, schema.TopNodeType, nil)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		if doc := schema.TopNodeType.CreateAndFill(nil); doc != nil {
			return doc, nil
		}
	}
	doc, err := schema.TopNodeType.CreateChecked(nil, model.NewFragment(children...), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return doc, nil
}

type parser struct {
	schema *model.Schema
}

type match struct {
	node  *model.NodeType
	mark  *model.MarkType
	attrs model.Attrs
}

func (p *parser) match(el *html.Node) (match, bool) {
	attrs := make(map[string]string, len(el.Attr))
	for _, a := range el.Attr {
		attrs[a.Key] = a.Val
	}
	if name, ok := attrs[attrNode]; ok {
		if nt, ok := p.schema.NodeType(name); ok {
			return match{node: nt}, true
		}
	}
	if name, ok := attrs[attrMark]; ok {
		if mt, ok := p.schema.MarkType(name); ok {
			return match{mark: mt}, true
		}
	}
	for _, nt := range p.schema.NodeTypes() {
		if a, ok := matchRules(nt.Spec.ParseHTML, el.Data, attrs); ok {
			return match{node: nt, attrs: a}, true
		}
	}
	for _, mt := range p.schema.MarkTypes() {
		if a, ok := matchRules(mt.Spec.ParseHTML, el.Data, attrs); ok {
			return match{mark: mt, attrs: a}, true
		}
	}
	return match{}, false
}

func matchRules(rules []model.ParseRule, tag string, attrs map[string]string) (model.Attrs, bool) {
	for _, r := range rules {
		if r.Tag != tag {
			continue
		}
		if r.GetAttrs == nil {
			return nil, true
		}
		if a, ok := r.GetAttrs(attrs); ok {
			return a, true
		}
	}
	return nil, false
}

// block parses children of a node with block content. Inline runs are
// wrapped in the parent's default content type.
func (p *parser) block(nodes []*html.Node, parent *model.NodeType, marks []*model.Mark) ([]*model.Node, error) {
	var out, pending []*model.Node
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		wrap := parent.DefaultContentType()
		if wrap == nil || !wrap.IsTextblock() {
			pending = nil
			return nil
		}
		n, err := wrap.CreateChecked(nil, model.NewFragment(pending...), nil)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrParse, err)
		}
		out = append(out, n)
		pending = nil
		return nil
	}
	for _, hn := range nodes {
		switch hn.Type {
		case html.TextNode:
			if strings.TrimSpace(hn.Data) == "" {
				continue
			}
			inl, err := p.inline([]*html.Node{hn}, marks)
			if err != nil {
				return nil, err
			}
			pending = append(pending, inl...)
		case html.ElementNode:
			m, ok := p.match(hn)
			switch {
			case ok && m.node != nil && !m.node.IsInline():
				if err := flush(); err != nil {
					return nil, err
				}
				n, err := p.node(hn, m)
				if err != nil {
					return nil, err
				}
				out = append(out, n)
			case ok && m.node != nil:
				inl, err := p.inline([]*html.Node{hn}, marks)
				if err != nil {
					return nil, err
				}
				pending = append(pending, inl...)
			case ok && m.mark != nil:
				mark, err := m.mark.Create(m.attrs)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrParse, err)
				}
				inl, err := p.inline(children(hn), mark.AddToSet(marks))
				if err != nil {
					return nil, err
				}
				pending = append(pending, inl...)
			default:
				if err := flush(); err != nil {
					return nil, err
				}
				inner, err := p.block(children(hn), parent, marks)
				if err != nil {
					return nil, err
				}
				out = append(out, inner...)
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *parser) node(hn *html.Node, m match) (*model.Node, error) {
	var content []*model.Node
	var err error
	if m.node.InlineContent() {
		content, err = p.inline(children(hn), nil)
	} else if !m.node.IsLeaf() {
		content, err = p.block(children(hn), m.node, nil)
	}
	if err != nil {
		return nil, err
	}
	n, err := m.node.CreateChecked(m.attrs, model.NewFragment(content...), nil)
	if err != nil {
		if filled := m.node.CreateAndFill(m.attrs); filled != nil && len(content) == 0 {
			return filled, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return n, nil
}

// inline parses inline content, collapsing whitespace runs.
func (p *parser) inline(nodes []*html.Node, marks []*model.Mark) ([]*model.Node, error) {
	var out []*model.Node
	for _, hn := range nodes {
		switch hn.Type {
		case html.TextNode:
			text := collapseSpace(hn.Data)
			if text != "" {
				out = append(out, p.schema.Text(text, marks...))
			}
		case html.ElementNode:
			m, ok := p.match(hn)
			switch {
			case ok && m.mark != nil:
				mark, err := m.mark.Create(m.attrs)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrParse, err)
				}
				inner, err := p.inline(children(hn), mark.AddToSet(marks))
				if err != nil {
					return nil, err
				}
				out = append(out, inner...)
			case ok && m.node != nil && m.node.IsInline():
				n, err := p.node(hn, m)
				if err != nil {
					return nil, err
				}
				out = append(out, n.Mark(marks))
			default:
				inner, err := p.inline(children(hn), marks)
				if err != nil {
					return nil, err
				}
				out = append(out, inner...)
			}
		}
	}
	return out, nil
}

func children(hn *html.Node) []*html.Node {
	var out []*html.Node
	for c := hn.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
