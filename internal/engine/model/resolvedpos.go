package model

import "fmt"

type pathEntry struct {
	node  *Node
	index int
	start int
}

// ResolvedPos is a position resolved against a document, exposing the path
// of ancestors that contain it.
type ResolvedPos struct {
	Pos          int
	Depth        int
	ParentOffset int

	path []pathEntry
}

// Resolve resolves a position in the node's content.
func (n *Node) Resolve(pos int) (*ResolvedPos, error) {
	if pos < 0 || pos > n.content().Size() {
		return nil, fmt.Errorf("%w: position %d outside document of size %d", ErrPositionOutOfRange, pos, n.content().Size())
	}
	var path []pathEntry
	start := 0
	parentOffset := pos
	for node := n; ; {
		index, offset, err := node.content().FindIndex(parentOffset, 0)
		if err != nil {
			return nil, err
		}
		rem := parentOffset - offset
		path = append(path, pathEntry{node: node, index: index, start: start + offset})
		if rem == 0 {
			break
		}
		node = node.Child(index)
		if node.IsText() {
			break
		}
		parentOffset = rem - 1
		start += offset + 1
	}
	return &ResolvedPos{Pos: pos, Depth: len(path) - 1, ParentOffset: parentOffset, path: path}, nil
}

// MustResolve resolves a position, panicking when it is out of range.
func (n *Node) MustResolve(pos int) *ResolvedPos {
	r, err := n.Resolve(pos)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *ResolvedPos) depth(d int) int {
	if d < 0 {
		return r.Depth + d
	}
	return d
}

// Node returns the ancestor at the given depth. Negative depths count back
// from the innermost parent (-1 is the parent's parent).
func (r *ResolvedPos) Node(depth int) *Node { return r.path[r.depth(depth)].node }

// Index returns the child index in the ancestor at depth.
func (r *ResolvedPos) Index(depth int) int { return r.path[r.depth(depth)].index }

// IndexAfter returns the index pointing after this position in the ancestor at depth.
func (r *ResolvedPos) IndexAfter(depth int) int {
	d := r.depth(depth)
	if d == r.Depth && r.TextOffset() == 0 {
		return r.Index(d)
	}
	return r.Index(d) + 1
}

// Parent returns the innermost ancestor.
func (r *ResolvedPos) Parent() *Node { return r.Node(r.Depth) }

// Doc returns the root node.
func (r *ResolvedPos) Doc() *Node { return r.Node(0) }

// Start returns the start position of the content of the ancestor at depth.
func (r *ResolvedPos) Start(depth int) int {
	d := r.depth(depth)
	if d == 0 {
		return 0
	}
	return r.path[d-1].start + 1
}

// End returns the end position of the content of the ancestor at depth.
func (r *ResolvedPos) End(depth int) int {
	d := r.depth(depth)
	return r.Start(d) + r.Node(d).content().Size()
}

// Before returns the position directly before the ancestor at depth (> 0).
func (r *ResolvedPos) Before(depth int) int {
	d := r.depth(depth)
	if d == 0 {
		panic("model: there is no position before the top-level node")
	}
	if d == r.Depth+1 {
		return r.Pos
	}
	return r.path[d-1].start
}

// After returns the position directly after the ancestor at depth (> 0).
func (r *ResolvedPos) After(depth int) int {
	d := r.depth(depth)
	if d == 0 {
		panic("model: there is no position after the top-level node")
	}
	if d == r.Depth+1 {
		return r.Pos
	}
	return r.path[d-1].start + r.path[d].node.NodeSize()
}

// TextOffset returns the offset into a text node when the position points
// inside one, zero otherwise.
func (r *ResolvedPos) TextOffset() int {
	return r.Pos - r.path[len(r.path)-1].start
}

// NodeAfter returns the node directly after the position, cut when the
// position is inside a text node.
func (r *ResolvedPos) NodeAfter() *Node {
	parent := r.Parent()
	index := r.Index(r.Depth)
	if index == parent.ChildCount() {
		return nil
	}
	dOff := r.TextOffset()
	child := parent.Child(index)
	if dOff > 0 {
		return child.Cut(dOff, child.TextLen())
	}
	return child
}

// NodeBefore returns the node directly before the position.
func (r *ResolvedPos) NodeBefore() *Node {
	index := r.Index(r.Depth)
	dOff := r.TextOffset()
	if dOff > 0 {
		return r.Parent().Child(index).Cut(0, dOff)
	}
	if index == 0 {
		return nil
	}
	return r.Parent().Child(index - 1)
}

// SharedDepth returns the depth of the deepest ancestor containing both
// this position and pos.
func (r *ResolvedPos) SharedDepth(pos int) int {
	for d := r.Depth; d > 0; d-- {
		if r.Start(d) <= pos && r.End(d) >= pos {
			return d
		}
	}
	return 0
}

// Marks returns the marks active at this position, honouring mark
// inclusivity at the edges of marked text.
func (r *ResolvedPos) Marks() []*Mark {
	parent := r.Parent()
	index := r.Index(r.Depth)
	if parent.content().Size() == 0 {
		return nil
	}
	if r.TextOffset() > 0 {
		return parent.Child(index).Marks
	}
	main := parent.MaybeChild(index - 1)
	other := parent.MaybeChild(index)
	if main == nil {
		main, other = other, main
	}
	if main == nil {
		return nil
	}
	marks := main.Marks
	for i := 0; i < len(marks); i++ {
		m := marks[i]
		if !m.Type.Inclusive() && (other == nil || !m.IsInSet(other.Marks)) {
			marks = m.RemoveFromSet(marks)
			i--
		}
	}
	return marks
}

// SameParent reports whether both positions share the same parent node.
func (r *ResolvedPos) SameParent(other *ResolvedPos) bool {
	return r.Depth == other.Depth && r.Pos-r.ParentOffset == other.Pos-other.ParentOffset
}

func (r *ResolvedPos) String() string {
	s := ""
	for i := 1; i <= r.Depth; i++ {
		if s != "" {
			s += "/"
		}
		s += fmt.Sprintf("%s_%d", r.Node(i).Type.Name, r.Index(i-1))
	}
	return fmt.Sprintf("%s:%d", s, r.ParentOffset)
}
