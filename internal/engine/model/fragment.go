package model

import (
	"fmt"
	"strings"
)

// Fragment is an immutable sequence of child nodes.
type Fragment struct {
	nodes []*Node
	size  int
}

// EmptyFragment is the fragment without children.
var EmptyFragment = &Fragment{}

// NewFragment builds a fragment, joining adjacent text nodes that carry the
// same marks.
func NewFragment(nodes ...*Node) *Fragment {
	if len(nodes) == 0 {
		return EmptyFragment
	}
	var joined []*Node
	size := 0
	for _, n := range nodes {
		if n == nil {
			continue
		}
		size += n.NodeSize()
		if last := len(joined) - 1; last >= 0 && n.IsText() && joined[last].SameMarkup(n) {
			joined[last] = joined[last].WithText(joined[last].Text + n.Text)
			continue
		}
		joined = append(joined, n)
	}
	if len(joined) == 0 {
		return EmptyFragment
	}
	return &Fragment{nodes: joined, size: size}
}

// Size returns the total size of the children.
func (f *Fragment) Size() int { return f.size }

// ChildCount returns the number of children.
func (f *Fragment) ChildCount() int { return len(f.nodes) }

// Child returns the child at index. It panics when out of range.
func (f *Fragment) Child(index int) *Node {
	if index < 0 || index >= len(f.nodes) {
		panic(fmt.Sprintf("model: child index %d out of range for fragment of %d", index, len(f.nodes)))
	}
	return f.nodes[index]
}

// MaybeChild returns the child at index, or nil.
func (f *Fragment) MaybeChild(index int) *Node {
	if index < 0 || index >= len(f.nodes) {
		return nil
	}
	return f.nodes[index]
}

// FirstChild returns the first child or nil.
func (f *Fragment) FirstChild() *Node { return f.MaybeChild(0) }

// LastChild returns the last child or nil.
func (f *Fragment) LastChild() *Node { return f.MaybeChild(len(f.nodes) - 1) }

// Nodes returns a copy of the children.
func (f *Fragment) Nodes() []*Node {
	return append([]*Node(nil), f.nodes...)
}

// ForEach calls fn for every child with its offset and index.
func (f *Fragment) ForEach(fn func(node *Node, offset, index int)) {
	pos := 0
	for i, child := range f.nodes {
		fn(child, pos, i)
		pos += child.NodeSize()
	}
}

// NodesBetweenFunc is called for each node overlapping a range. Returning
// false skips the node's children.
type NodesBetweenFunc func(node *Node, pos int, parent *Node, index int) bool

// NodesBetween invokes fn for all descendants overlapping [from, to).
func (f *Fragment) NodesBetween(from, to int, fn NodesBetweenFunc, nodeStart int, parent *Node) {
	pos := 0
	for i := 0; pos < to && i < len(f.nodes); i++ {
		child := f.nodes[i]
		end := pos + child.NodeSize()
		if end > from && fn(child, nodeStart+pos, parent, i) && child.content().Size() > 0 {
			start := pos + 1
			child.NodesBetween(max(0, from-start), min(child.content().Size(), to-start), fn, nodeStart+start)
		}
		pos = end
	}
}

// TextBetween returns the text in [from, to). Textblocks are separated by
// blockSep and inline leaves are rendered as leafText (or their spec's
// LeafText when leafText is empty).
func (f *Fragment) TextBetween(from, to int, blockSep, leafText string) string {
	var b strings.Builder
	first := true
	f.NodesBetween(from, to, func(node *Node, pos int, _ *Node, _ int) bool {
		var nodeText string
		switch {
		case node.IsText():
			nodeText = sliceRunes(node.Text, max(from, pos)-pos, to-pos)
		case !node.IsLeaf():
			nodeText = ""
		case leafText != "":
			nodeText = leafText
		default:
			nodeText = node.Type.Spec.LeafText
		}
		if ((node.IsBlock() && node.IsLeaf() && nodeText != "") || node.IsTextblock()) && blockSep != "" {
			if first {
				first = false
			} else {
				b.WriteString(blockSep)
			}
		}
		b.WriteString(nodeText)
		return true
	}, 0, nil)
	return b.String()
}

// Append concatenates two fragments, joining text at the seam.
func (f *Fragment) Append(other *Fragment) *Fragment {
	if other.size == 0 {
		return f
	}
	if f.size == 0 {
		return other
	}
	nodes := append(append([]*Node(nil), f.nodes...), other.nodes...)
	return NewFragment(nodes...)
}

// Cut returns the part of the fragment between from and to.
func (f *Fragment) Cut(from, to int) *Fragment {
	if from == 0 && to == f.size {
		return f
	}
	var result []*Node
	if to > from {
		pos := 0
		for i := 0; pos < to && i < len(f.nodes); i++ {
			child := f.nodes[i]
			end := pos + child.NodeSize()
			if end > from {
				if pos < from || end > to {
					if child.IsText() {
						child = child.Cut(max(0, from-pos), min(child.TextLen(), to-pos))
					} else {
						child = child.Cut(max(0, from-pos-1), min(child.content().Size(), to-pos-1))
					}
				}
				result = append(result, child)
			}
			pos = end
		}
	}
	return NewFragment(result...)
}

// ReplaceChild returns a fragment with the child at index replaced.
func (f *Fragment) ReplaceChild(index int, node *Node) *Fragment {
	current := f.nodes[index]
	if current == node {
		return f
	}
	nodes := append([]*Node(nil), f.nodes...)
	nodes[index] = node
	return &Fragment{nodes: nodes, size: f.size + node.NodeSize() - current.NodeSize()}
}

// AddToStart prepends a node.
func (f *Fragment) AddToStart(node *Node) *Fragment {
	return NewFragment(append([]*Node{node}, f.nodes...)...)
}

// AddToEnd appends a node.
func (f *Fragment) AddToEnd(node *Node) *Fragment {
	return NewFragment(append(append([]*Node(nil), f.nodes...), node)...)
}

// Eq reports structural equality.
func (f *Fragment) Eq(other *Fragment) bool {
	if len(f.nodes) != len(other.nodes) {
		return false
	}
	for i := range f.nodes {
		if !f.nodes[i].Eq(other.nodes[i]) {
			return false
		}
	}
	return true
}

// FindIndex finds the child index containing pos. With round > 0 a position
// inside a child rounds up to the following index.
func (f *Fragment) FindIndex(pos int, round int) (index, offset int, err error) {
	if pos == 0 {
		return 0, 0, nil
	}
	if pos == f.size {
		return len(f.nodes), pos, nil
	}
	if pos > f.size || pos < 0 {
		return 0, 0, fmt.Errorf("%w: %d in fragment of size %d", ErrPositionOutOfRange, pos, f.size)
	}
	cur := 0
	for i, child := range f.nodes {
		end := cur + child.NodeSize()
		if end >= pos {
			if end == pos || round > 0 {
				return i + 1, end, nil
			}
			return i, cur, nil
		}
		cur = end
	}
	return len(f.nodes), f.size, nil
}

// ToJSON returns the JSON representation of the children.
func (f *Fragment) ToJSON() []any {
	if len(f.nodes) == 0 {
		return nil
	}
	out := make([]any, len(f.nodes))
	for i, n := range f.nodes {
		out[i] = n.ToJSON()
	}
	return out
}

func (f *Fragment) String() string {
	parts := make([]string, len(f.nodes))
	for i, n := range f.nodes {
		parts[i] = n.String()
	}
	return "<" + strings.Join(parts, ", ") + ">"
}
