package model

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Node is an immutable document node. Text nodes carry Text and no
// Content; all other nodes carry a (possibly empty) Content fragment.
type Node struct {
	Type    *NodeType
	Attrs   Attrs
	Content *Fragment
	Marks   []*Mark
	Text    string
}

// IsText reports whether the node is a text node.
func (n *Node) IsText() bool { return n.Type.IsText() }

// IsInline reports whether the node is inline.
func (n *Node) IsInline() bool { return n.Type.IsInline() }

// IsBlock reports whether the node is a block.
func (n *Node) IsBlock() bool { return n.Type.IsBlock() }

// IsTextblock reports whether the node is a block holding inline content.
func (n *Node) IsTextblock() bool { return n.Type.IsTextblock() }

// IsLeaf reports whether the node cannot hold content.
func (n *Node) IsLeaf() bool { return n.Type.IsLeaf() }

// IsAtom reports whether the node is treated as a single unit.
func (n *Node) IsAtom() bool { return n.Type.IsAtom() }

// InlineContent reports whether the node holds inline content.
func (n *Node) InlineContent() bool { return n.Type.InlineContent() }

// TextLen returns the rune length of a text node.
func (n *Node) TextLen() int { return utf8.RuneCountInString(n.Text) }

// NodeSize returns the size of the node in positions.
func (n *Node) NodeSize() int {
	if n.IsText() {
		return n.TextLen()
	}
	if n.IsLeaf() {
		return 1
	}
	return 2 + n.content().Size()
}

func (n *Node) content() *Fragment {
	if n.Content == nil {
		return EmptyFragment
	}
	return n.Content
}

// ChildCount returns the number of children.
func (n *Node) ChildCount() int { return n.content().ChildCount() }

// Child returns the child at index.
func (n *Node) Child(index int) *Node { return n.content().Child(index) }

// MaybeChild returns the child at index, or nil.
func (n *Node) MaybeChild(index int) *Node { return n.content().MaybeChild(index) }

// FirstChild returns the first child or nil.
func (n *Node) FirstChild() *Node { return n.content().FirstChild() }

// LastChild returns the last child or nil.
func (n *Node) LastChild() *Node { return n.content().LastChild() }

// ForEach calls fn for every child.
func (n *Node) ForEach(fn func(node *Node, offset, index int)) { n.content().ForEach(fn) }

// NodesBetween calls fn for all descendants overlapping [from, to),
// positions relative to this node's content start plus startPos.
func (n *Node) NodesBetween(from, to int, fn NodesBetweenFunc, startPos int) {
	n.content().NodesBetween(from, to, fn, startPos, n)
}

// Descendants calls fn for every descendant.
func (n *Node) Descendants(fn NodesBetweenFunc) {
	n.NodesBetween(0, n.content().Size(), fn, 0)
}

// TextContent returns the concatenated text of the node.
func (n *Node) TextContent() string {
	if n.IsText() {
		return n.Text
	}
	if n.IsLeaf() {
		return n.Type.Spec.LeafText
	}
	return n.TextBetween(0, n.content().Size(), "", "")
}

// TextBetween returns the text between two positions in this node's content.
func (n *Node) TextBetween(from, to int, blockSep, leafText string) string {
	return n.content().TextBetween(from, to, blockSep, leafText)
}

// SameMarkup reports whether the nodes have the same type, attributes and marks.
func (n *Node) SameMarkup(other *Node) bool {
	return n.HasMarkup(other.Type, other.Attrs, other.Marks)
}

// HasMarkup reports whether the node has the given type, attributes and marks.
func (n *Node) HasMarkup(t *NodeType, attrs Attrs, marks []*Mark) bool {
	return n.Type == t && attrsEqual(n.Attrs, attrs) && SameMarkSet(n.Marks, marks)
}

// Eq reports deep structural equality.
func (n *Node) Eq(other *Node) bool {
	if n == other {
		return true
	}
	if n == nil || other == nil {
		return false
	}
	if !n.SameMarkup(other) {
		return false
	}
	if n.IsText() {
		return n.Text == other.Text
	}
	return n.content().Eq(other.content())
}

// Copy returns a node with the same markup and new content.
func (n *Node) Copy(content *Fragment) *Node {
	if content == n.Content {
		return n
	}
	if content == nil {
		content = EmptyFragment
	}
	return &Node{Type: n.Type, Attrs: n.Attrs, Content: content, Marks: n.Marks}
}

// Mark returns a copy of the node with the given mark set.
func (n *Node) Mark(marks []*Mark) *Node {
	if SameMarkSet(marks, n.Marks) {
		return n
	}
	cp := *n
	cp.Marks = marks
	return &cp
}

// WithText returns a text node with the same marks and new text.
func (n *Node) WithText(text string) *Node {
	if text == n.Text {
		return n
	}
	return &Node{Type: n.Type, Attrs: n.Attrs, Marks: n.Marks, Text: text}
}

// Cut returns the part of the node between from and to (content positions
// for non-text nodes, rune offsets for text).
func (n *Node) Cut(from, to int) *Node {
	if n.IsText() {
		l := n.TextLen()
		if from == 0 && to == l {
			return n
		}
		return n.WithText(sliceRunes(n.Text, from, to))
	}
	if from == 0 && to == n.content().Size() {
		return n
	}
	return n.Copy(n.content().Cut(from, to))
}

// Slice cuts the content between two positions into a Slice.
func (n *Node) Slice(from, to int) (*Slice, error) {
	if from == to {
		return EmptySlice, nil
	}
	rfrom, err := n.Resolve(from)
	if err != nil {
		return nil, err
	}
	rto, err := n.Resolve(to)
	if err != nil {
		return nil, err
	}
	depth := rfrom.SharedDepth(to)
	start := rfrom.Start(depth)
	node := rfrom.Node(depth)
	content := node.content().Cut(rfrom.Pos-start, rto.Pos-start)
	return &Slice{Content: content, OpenStart: rfrom.Depth - depth, OpenEnd: rto.Depth - depth}, nil
}

// Replace replaces the content between from and to with the slice.
func (n *Node) Replace(from, to int, slice *Slice) (*Node, error) {
	rfrom, err := n.Resolve(from)
	if err != nil {
		return nil, err
	}
	rto, err := n.Resolve(to)
	if err != nil {
		return nil, err
	}
	return replace(rfrom, rto, slice)
}

// NodeAt returns the node starting directly at pos, or nil.
func (n *Node) NodeAt(pos int) *Node {
	node := n
	for {
		index, offset, err := node.content().FindIndex(pos, 0)
		if err != nil {
			return nil
		}
		child := node.MaybeChild(index)
		if child == nil {
			return nil
		}
		if offset == pos || child.IsText() {
			return child
		}
		pos -= offset + 1
		node = child
	}
}

// RangeHasMark reports whether any inline content in [from, to) carries a
// mark of the given type.
func (n *Node) RangeHasMark(from, to int, mt *MarkType) bool {
	found := false
	if to > from {
		n.NodesBetween(from, to, func(node *Node, _ int, _ *Node, _ int) bool {
			if mt.IsInSet(node.Marks) != nil {
				found = true
			}
			return !found
		}, 0)
	}
	return found
}

// Check validates the node and its descendants against the schema.
func (n *Node) Check() error {
	if n.IsText() {
		return nil
	}
	if err := n.Type.CheckContent(n.content()); err != nil {
		return err
	}
	for _, child := range n.content().nodes {
		if err := child.Check(); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) String() string {
	if n.IsText() {
		s := fmt.Sprintf("%q", n.Text)
		for i := len(n.Marks) - 1; i >= 0; i-- {
			s = n.Marks[i].Type.Name + "(" + s + ")"
		}
		return s
	}
	if n.content().Size() == 0 {
		return n.Type.Name
	}
	inner := n.content().String()
	return n.Type.Name + "(" + strings.TrimSuffix(strings.TrimPrefix(inner, "<"), ">") + ")"
}

func sliceRunes(s string, from, to int) string {
	if from <= 0 && to < 0 {
		return s
	}
	r := []rune(s)
	if to < 0 || to > len(r) {
		to = len(r)
	}
	if from < 0 {
		from = 0
	}
	if from >= to {
		return ""
	}
	return string(r[from:to])
}
