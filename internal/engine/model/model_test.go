package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func testSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := NewSchema(SchemaSpec{
		Nodes: []NodeSpec{
			{Name: "doc", Content: "block+"},
			{Name: "paragraph", Content: "inline*", Group: "block"},
			{Name: "heading", Content: "inline*", Group: "block", Attrs: map[string]AttributeSpec{"level": {Default: 1}}},
			{Name: "text", Group: "inline", Inline: true},
			{Name: "image", Group: "inline", Inline: true, Attrs: map[string]AttributeSpec{"src": {Required: true}}, LeafText: "[img]"},
		},
		Marks: []MarkSpec{
			{Name: "em"},
			{Name: "strong"},
			{Name: "link", Inclusive: boolPtr(false), Attrs: map[string]AttributeSpec{"href": {Required: true}}},
			{Name: "code", Excludes: strPtr("_")},
		},
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return s
}

type builder struct {
	t *testing.T
	s *Schema
}

func (b builder) node(name string, attrs Attrs, children ...*Node) *Node {
	b.t.Helper()
	n, err := b.s.Node(name, attrs, children)
	if err != nil {
		b.t.Fatalf("Node(%s): %v", name, err)
	}
	return n
}

func (b builder) doc(children ...*Node) *Node { return b.node("doc", nil, children...) }
func (b builder) p(children ...*Node) *Node   { return b.node("paragraph", nil, children...) }
func (b builder) text(s string, marks ...*Mark) *Node {
	return b.s.Text(s, marks...)
}

func TestNodeSizes(t *testing.T) {
	b := builder{t, testSchema(t)}
	img := b.node("image", Attrs{"src": "x.png"})
	doc := b.doc(b.p(b.text("ab")), b.p(b.text("c"), img))

	if got := doc.Content.Size(); got != 8 {
		t.Errorf("content size = %d, want 8", got)
	}
	if got := doc.Child(1).NodeSize(); got != 4 {
		t.Errorf("second paragraph size = %d, want 4", got)
	}
	if got := doc.TextBetween(0, doc.Content.Size(), "\n", ""); got != "ab\nc[img]" {
		t.Errorf("TextBetween = %q", got)
	}
	if got := b.text("héllo").NodeSize(); got != 5 {
		t.Errorf("rune counted size = %d, want 5", got)
	}
}

func TestResolve(t *testing.T) {
	b := builder{t, testSchema(t)}
	doc := b.doc(b.p(b.text("ab")), b.p(b.text("c")))

	tests := []struct {
		pos          int
		depth        int
		parentOffset int
		parent       string
		start        int
	}{
		{0, 0, 0, "doc", 0},
		{1, 1, 0, "paragraph", 1},
		{3, 1, 2, "paragraph", 1},
		{4, 0, 4, "doc", 0},
		{5, 1, 0, "paragraph", 5},
		{7, 0, 7, "doc", 0},
	}
	for _, tt := range tests {
		r, err := doc.Resolve(tt.pos)
		if err != nil {
			t.Fatalf("Resolve(%d): %v", tt.pos, err)
		}
		if r.Depth != tt.depth || r.ParentOffset != tt.parentOffset || r.Parent().Type.Name != tt.parent {
			t.Errorf("Resolve(%d) = depth %d offset %d parent %s", tt.pos, r.Depth, r.ParentOffset, r.Parent().Type.Name)
		}
		if got := r.Start(r.Depth); got != tt.start {
			t.Errorf("Resolve(%d).Start = %d, want %d", tt.pos, got, tt.start)
		}
	}

	if _, err := doc.Resolve(8); !errors.Is(err, ErrPositionOutOfRange) {
		t.Errorf("Resolve(8) err = %v, want ErrPositionOutOfRange", err)
	}

	r := doc.MustResolve(2)
	if got := r.NodeBefore().Text; got != "a" {
		t.Errorf("NodeBefore = %q", got)
	}
	if got := r.NodeAfter().Text; got != "b" {
		t.Errorf("NodeAfter = %q", got)
	}
	if r.Before(1) != 0 || r.After(1) != 4 {
		t.Errorf("Before/After = %d/%d", r.Before(1), r.After(1))
	}
}

func TestReplaceJoinsParagraphs(t *testing.T) {
	b := builder{t, testSchema(t)}
	doc := b.doc(b.p(b.text("ab")), b.p(b.text("c")))

	joined, err := doc.Replace(2, 5, EmptySlice)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	want := b.doc(b.p(b.text("ac")))
	if !joined.Eq(want) {
		t.Errorf("Replace = %s, want %s", joined, want)
	}

	slice, err := doc.Slice(2, 5)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if slice.OpenStart != 1 || slice.OpenEnd != 1 || slice.Size() != 3 {
		t.Errorf("slice = %v open %d/%d size %d", slice, slice.OpenStart, slice.OpenEnd, slice.Size())
	}
	restored, err := doc.Replace(2, 5, slice)
	if err != nil {
		t.Fatalf("Replace with slice: %v", err)
	}
	if !restored.Eq(doc) {
		t.Errorf("restored = %s, want %s", restored, doc)
	}
}

func TestReplaceInsertText(t *testing.T) {
	b := builder{t, testSchema(t)}
	doc := b.doc(b.p(b.text("ac")))

	out, err := doc.Replace(2, 2, NewSlice(NewFragment(b.text("b")), 0, 0))
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if got := out.TextContent(); got != "abc" {
		t.Errorf("TextContent = %q", got)
	}
	if out.Child(0).ChildCount() != 1 {
		t.Errorf("adjacent text should be joined, got %d children", out.Child(0).ChildCount())
	}
}

func TestReplaceErrors(t *testing.T) {
	b := builder{t, testSchema(t)}
	doc := b.doc(b.p(b.text("ab")))

	var rerr *ReplaceError
	_, err := doc.Replace(0, 4, EmptySlice)
	if !errors.As(err, &rerr) {
		t.Errorf("deleting the only block: err = %v, want *ReplaceError", err)
	}
	_, err = doc.Replace(1, 1, NewSlice(NewFragment(b.p(b.text("x"))), 2, 0))
	if !errors.As(err, &rerr) {
		t.Errorf("too deep slice: err = %v, want *ReplaceError", err)
	}
}

func TestMarkSets(t *testing.T) {
	s := testSchema(t)
	em := s.Mark("em", nil)
	strong := s.Mark("strong", nil)
	code := s.Mark("code", nil)

	set := strong.AddToSet(nil)
	set = em.AddToSet(set)
	if len(set) != 2 || set[0] != em || set[1] != strong {
		t.Fatalf("rank order = %v", set)
	}
	if got := em.AddToSet(set); !SameMarkSet(got, set) {
		t.Errorf("adding present mark changed set: %v", got)
	}

	set = code.AddToSet(set)
	if len(set) != 1 || set[0] != code {
		t.Errorf("code should exclude others, got %v", set)
	}
	if got := em.AddToSet(set); len(got) != 1 {
		t.Errorf("excluded mark was added: %v", got)
	}
	if got := code.RemoveFromSet(set); len(got) != 0 {
		t.Errorf("RemoveFromSet = %v", got)
	}
}

func TestResolvedMarksInclusive(t *testing.T) {
	b := builder{t, testSchema(t)}
	link := b.s.Mark("link", Attrs{"href": "https://a.b"})
	em := b.s.Mark("em", nil)
	doc := b.doc(b.p(b.text("go", link, em)))

	marks := doc.MustResolve(3).Marks()
	if len(marks) != 1 || marks[0].Type.Name != "em" {
		t.Errorf("marks at end of link = %v, want [em]", marks)
	}
	marks = doc.MustResolve(2).Marks()
	if len(marks) != 2 {
		t.Errorf("marks inside link = %v", marks)
	}
}

func TestRequiredAttributes(t *testing.T) {
	s := testSchema(t)
	if _, err := s.Node("image", nil, nil); !errors.Is(err, ErrMissingAttribute) {
		t.Errorf("err = %v, want ErrMissingAttribute", err)
	}
	h, err := s.Node("heading", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if h.Attrs["level"] != 1 {
		t.Errorf("default level = %v", h.Attrs["level"])
	}
	if _, err := s.Node("table", nil, nil); !errors.Is(err, ErrUnknownNodeType) {
		t.Errorf("err = %v, want ErrUnknownNodeType", err)
	}
	if _, err := s.Node("doc", nil, nil); !errors.Is(err, ErrInvalidContent) {
		t.Errorf("empty doc err = %v, want ErrInvalidContent", err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	b := builder{t, testSchema(t)}
	doc := b.doc(
		b.node("heading", Attrs{"level": 2}, b.text("Title")),
		b.p(b.text("see "), b.text("here", b.s.Mark("link", Attrs{"href": "https://x.y"}))),
	)

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := b.s.NodeFromJSONBytes(data)
	if err != nil {
		t.Fatalf("NodeFromJSONBytes: %v", err)
	}
	if !back.Eq(doc) {
		t.Errorf("round trip = %s, want %s", back, doc)
	}

	if _, err := b.s.NodeFromJSON(map[string]any{"type": "nope"}); !errors.Is(err, ErrUnknownNodeType) {
		t.Errorf("err = %v, want ErrUnknownNodeType", err)
	}
}

func TestSchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		spec SchemaSpec
	}{
		{"no text", SchemaSpec{Nodes: []NodeSpec{{Name: "doc", Content: "doc*"}}}},
		{"no top", SchemaSpec{Nodes: []NodeSpec{{Name: "text", Inline: true}}}},
		{"duplicate", SchemaSpec{Nodes: []NodeSpec{{Name: "doc", Content: "text*"}, {Name: "text"}, {Name: "text"}}}},
		{"bad content", SchemaSpec{Nodes: []NodeSpec{{Name: "doc", Content: "missing+"}, {Name: "text"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSchema(tt.spec); !errors.Is(err, ErrInvalidSchema) {
				t.Errorf("err = %v, want ErrInvalidSchema", err)
			}
		})
	}
}

func TestNodesBetween(t *testing.T) {
	b := builder{t, testSchema(t)}
	doc := b.doc(b.p(b.text("ab")), b.p(b.text("cd")))

	var seen []string
	doc.NodesBetween(2, 6, func(n *Node, pos int, _ *Node, _ int) bool {
		seen = append(seen, n.Type.Name)
		return true
	}, 0)
	want := []string{"paragraph", "text", "paragraph", "text"}
	if len(seen) != len(want) {
		t.Fatalf("visited %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("visit %d = %s, want %s", i, seen[i], want[i])
		}
	}
}
