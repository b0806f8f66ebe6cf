package transform

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/dshills/inkstorm/internal/engine/model"
)

func strPtr(s string) *string { return &s }

func newSchema(t *testing.T) *model.Schema {
	t.Helper()
	s, err := model.NewSchema(model.SchemaSpec{
		Nodes: []model.NodeSpec{
			{Name: "doc", Content: "block+"},
			{Name: "paragraph", Content: "inline*", Group: "block"},
			{Name: "heading", Content: "inline*", Group: "block", Attrs: map[string]model.AttributeSpec{"level": {Default: 1}}},
			{Name: "text", Group: "inline", Inline: true},
		},
		Marks: []model.MarkSpec{
			{Name: "em"},
			{Name: "strong"},
			{Name: "code", Excludes: strPtr("_")},
		},
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return s
}

func para(t *testing.T, s *model.Schema, texts ...*model.Node) *model.Node {
	t.Helper()
	n, err := s.Node("paragraph", nil, texts)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func docOf(t *testing.T, s *model.Schema, blocks ...*model.Node) *model.Node {
	t.Helper()
	n, err := s.Node("doc", nil, blocks)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestStepMapInsertion(t *testing.T) {
	m := NewStepMap(2, 0, 3)
	tests := []struct {
		pos, assoc, want int
	}{
		{1, 1, 1},
		{2, 1, 5},
		{2, -1, 2},
		{4, 1, 7},
	}
	for _, tt := range tests {
		if got := m.Map(tt.pos, tt.assoc); got != tt.want {
			t.Errorf("Map(%d, %d) = %d, want %d", tt.pos, tt.assoc, got, tt.want)
		}
	}
}

func TestStepMapDeletion(t *testing.T) {
	m := NewStepMap(2, 3, 0)

	r := m.MapResult(3, 1)
	if r.Pos != 2 || !r.Deleted() || !r.DeletedAcross() {
		t.Errorf("inside deletion: %+v deleted=%v across=%v", r, r.Deleted(), r.DeletedAcross())
	}
	r = m.MapResult(5, 1)
	if r.Pos != 2 || r.Deleted() || !r.DeletedBefore() {
		t.Errorf("at deletion end: %+v deleted=%v before=%v", r, r.Deleted(), r.DeletedBefore())
	}
	r = m.MapResult(8, 1)
	if r.Pos != 5 || r.Deleted() {
		t.Errorf("after deletion: %+v", r)
	}
}

func TestMappingMirrorRecovers(t *testing.T) {
	del := NewStepMap(2, 3, 0)
	m := NewMapping()
	m.AppendMap(del, -1)
	m.AppendMap(del.Invert(), 0)

	if got := m.Map(3, 1); got != 3 {
		t.Errorf("mirrored map of 3 = %d, want 3", got)
	}
	inv := m.Invert()
	if got := inv.Map(3, 1); got != 3 {
		t.Errorf("inverted mirrored map of 3 = %d, want 3", got)
	}
}

func TestMappingSlice(t *testing.T) {
	m := NewMapping(NewStepMap(0, 0, 2), NewStepMap(0, 0, 3))
	if got := m.Map(1, 1); got != 6 {
		t.Errorf("Map = %d, want 6", got)
	}
	if got := m.SliceFrom(1).Map(1, 1); got != 4 {
		t.Errorf("SliceFrom(1).Map = %d, want 4", got)
	}
	if got := m.Slice(0, 1).Map(1, 1); got != 3 {
		t.Errorf("Slice(0,1).Map = %d, want 3", got)
	}
}

func TestInsertTextAndInvert(t *testing.T) {
	s := newSchema(t)
	doc := docOf(t, s, para(t, s, s.Text("hello")))

	tr := New(doc)
	if err := tr.InsertText(" world", 6, 6, nil); err != nil {
		t.Fatalf("InsertText: %v", err)
	}
	if got := tr.Doc.TextContent(); got != "hello world" {
		t.Fatalf("TextContent = %q", got)
	}
	if !tr.DocChanged() || tr.Before() != doc {
		t.Errorf("DocChanged/Before not tracked")
	}

	inv := tr.Steps[0].Invert(tr.Docs[0])
	res := inv.Apply(tr.Doc)
	if !res.OK() || !res.Doc.Eq(doc) {
		t.Errorf("invert = %v (%s)", res.Doc, res.Failed)
	}

	from, to, ok := tr.ChangedRange()
	if !ok || from != 6 || to != 12 {
		t.Errorf("ChangedRange = %d-%d %v", from, to, ok)
	}
}

func TestReplaceStepMerge(t *testing.T) {
	s := newSchema(t)
	a := NewReplaceStep(1, 1, model.NewSlice(model.NewFragment(s.Text("a")), 0, 0), false)
	b := NewReplaceStep(2, 2, model.NewSlice(model.NewFragment(s.Text("b")), 0, 0), false)

	merged, ok := a.Merge(b).(*ReplaceStep)
	if !ok {
		t.Fatal("adjacent inserts should merge")
	}
	if merged.From != 1 || merged.To != 1 || merged.Slice.Content.TextBetween(0, 2, "", "") != "ab" {
		t.Errorf("merged = %s", merged)
	}
	if NewReplaceStep(5, 5, a.Slice, false).Merge(b) != nil {
		t.Error("non-adjacent steps merged")
	}
}

func TestAddAndRemoveMark(t *testing.T) {
	s := newSchema(t)
	em := s.Mark("em", nil)
	strong := s.Mark("strong", nil)
	doc := docOf(t, s, para(t, s, s.Text("hello world")))

	tr := New(doc)
	tr.AddMark(1, 6, em)
	tr.AddMark(3, 9, strong)
	if len(tr.Steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(tr.Steps))
	}
	p := tr.Doc.Child(0)
	if p.ChildCount() != 4 {
		t.Fatalf("paragraph = %s", p)
	}
	if !tr.Doc.RangeHasMark(1, 3, em.Type) || tr.Doc.RangeHasMark(9, 12, strong.Type) {
		t.Errorf("marks misplaced: %s", tr.Doc)
	}

	tr.RemoveMarkType(0, tr.Doc.Content.Size(), em.Type)
	if tr.Doc.RangeHasMark(0, tr.Doc.Content.Size(), em.Type) {
		t.Errorf("em still present: %s", tr.Doc)
	}
	tr.RemoveMark(0, tr.Doc.Content.Size(), strong)
	if !tr.Doc.Eq(doc) {
		t.Errorf("doc = %s, want %s", tr.Doc, doc)
	}
}

func TestAddExclusiveMarkRemovesOthers(t *testing.T) {
	s := newSchema(t)
	doc := docOf(t, s, para(t, s, s.Text("abc", s.Mark("em", nil))))

	tr := New(doc)
	tr.AddMark(1, 4, s.Mark("code", nil))
	if len(tr.Steps) != 2 {
		t.Fatalf("steps = %d, want remove+add", len(tr.Steps))
	}
	if _, ok := tr.Steps[0].(*RemoveMarkStep); !ok {
		t.Errorf("first step = %T, want *RemoveMarkStep", tr.Steps[0])
	}
	marks := tr.Doc.Child(0).Child(0).Marks
	if len(marks) != 1 || marks[0].Type.Name != "code" {
		t.Errorf("marks = %v", marks)
	}
}

func TestSplitAndJoin(t *testing.T) {
	s := newSchema(t)
	doc := docOf(t, s, para(t, s, s.Text("abcd")))

	tr := New(doc)
	if err := tr.Split(3, 1); err != nil {
		t.Fatalf("Split: %v", err)
	}
	want := docOf(t, s, para(t, s, s.Text("ab")), para(t, s, s.Text("cd")))
	if !tr.Doc.Eq(want) {
		t.Fatalf("split = %s", tr.Doc)
	}
	if !CanJoin(tr.Doc, 4) {
		t.Fatal("CanJoin(4) = false")
	}
	if err := tr.Join(4, 1); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !tr.Doc.Eq(doc) {
		t.Errorf("joined = %s", tr.Doc)
	}
}

func TestStructureStepRefusesContent(t *testing.T) {
	s := newSchema(t)
	doc := docOf(t, s, para(t, s, s.Text("ab")), para(t, s, s.Text("cd")))

	err := New(doc).Step(NewReplaceStep(2, 6, model.EmptySlice, true))
	if !errors.Is(err, ErrStepFailed) {
		t.Errorf("err = %v, want ErrStepFailed", err)
	}
}

func TestSetBlockType(t *testing.T) {
	s := newSchema(t)
	heading, _ := s.NodeType("heading")
	doc := docOf(t, s, para(t, s, s.Text("title")), para(t, s, s.Text("body")))

	tr := New(doc)
	if err := tr.SetBlockType(1, 2, heading, model.Attrs{"level": 2}); err != nil {
		t.Fatalf("SetBlockType: %v", err)
	}
	first := tr.Doc.Child(0)
	if first.Type != heading || first.Attrs["level"] != 2 {
		t.Errorf("first block = %s %v", first.Type.Name, first.Attrs)
	}
	if tr.Doc.Content.Size() != doc.Content.Size() {
		t.Errorf("size changed")
	}
	inv := tr.Steps[0].Invert(tr.Docs[0]).Apply(tr.Doc)
	if !inv.OK() || !inv.Doc.Eq(doc) {
		t.Errorf("invert = %v", inv.Doc)
	}
}

func TestStepJSONRoundTrip(t *testing.T) {
	s := newSchema(t)
	heading, _ := s.NodeType("heading")
	steps := []Step{
		NewReplaceStep(1, 3, model.NewSlice(model.NewFragment(s.Text("xy", s.Mark("em", nil))), 0, 0), false),
		NewReplaceStep(2, 2, model.EmptySlice, true),
		&AddMarkStep{From: 1, To: 4, Mark: s.Mark("strong", nil)},
		&RemoveMarkStep{From: 2, To: 3, Mark: s.Mark("em", nil)},
		&SetNodeMarkupStep{Pos: 0, Type: heading, Attrs: model.Attrs{"level": 3}},
	}
	for _, step := range steps {
		data, err := json.Marshal(step.ToJSON())
		if err != nil {
			t.Fatal(err)
		}
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			t.Fatal(err)
		}
		back, err := StepFromJSON(s, raw)
		if err != nil {
			t.Fatalf("StepFromJSON(%s): %v", data, err)
		}
		again, _ := json.Marshal(back.ToJSON())
		if string(again) != string(data) {
			t.Errorf("round trip = %s, want %s", again, data)
		}
	}

	if _, err := StepFromJSON(s, map[string]any{"stepType": "warp"}); !errors.Is(err, ErrUnknownStepType) {
		t.Errorf("err = %v, want ErrUnknownStepType", err)
	}
}

func TestStepMapThroughDeletion(t *testing.T) {
	s := newSchema(t)
	add := &AddMarkStep{From: 3, To: 5, Mark: s.Mark("em", nil)}
	if add.Map(NewStepMap(2, 4, 0)) != nil {
		t.Error("mark step over deleted range should map to nil")
	}
	mapped := add.Map(NewStepMap(0, 0, 2)).(*AddMarkStep)
	if mapped.From != 5 || mapped.To != 7 {
		t.Errorf("mapped = %s", mapped)
	}
}
