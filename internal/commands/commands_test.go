package commands

import (
	"reflect"
	"testing"

	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/extension"
)

func testSchema(t *testing.T) *model.Schema {
	t.Helper()
	s, err := model.NewSchema(model.SchemaSpec{
		Nodes: []model.NodeSpec{
			{Name: "doc", Content: "block+"},
			{Name: "paragraph", Content: "inline*", Group: "block"},
			{Name: "heading", Content: "inline*", Group: "block",
				Attrs: map[string]model.AttributeSpec{"level": {Default: 1}}},
			{Name: "rule", Group: "block"},
			{Name: "text", Group: "inline", Inline: true},
		},
		Marks: []model.MarkSpec{{Name: "strong"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// docState builds a state with one paragraph per string and the cursor at
// pos.
func docState(t *testing.T, pos int, paras ...string) *state.EditorState {
	t.Helper()
	schema := testSchema(t)
	para, _ := schema.NodeType("paragraph")
	doc, _ := schema.NodeType("doc")
	var blocks []*model.Node
	for _, text := range paras {
		var content *model.Fragment
		if text == "" {
			content = model.EmptyFragment
		} else {
			content = model.NewFragment(schema.Text(text))
		}
		blocks = append(blocks, para.Create(nil, content, nil))
	}
	sel := state.Cursor(pos)
	st, err := state.Create(state.Config{Schema: schema, Doc: doc.Create(nil, model.NewFragment(blocks...), nil), Selection: &sel})
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func run(t *testing.T, st *state.EditorState, cmd extension.Command) (*state.EditorState, bool) {
	t.Helper()
	var next *state.EditorState
	ok := cmd(extension.PropsFor(st, func(tr *state.Transaction) {
		var err error
		if next, err = st.Apply(tr); err != nil {
			t.Fatalf("Apply: %v", err)
		}
	}, nil))
	if next == nil {
		next = st
	}
	return next, ok
}

func withSelection(t *testing.T, st *state.EditorState, sel state.Selection) *state.EditorState {
	t.Helper()
	next, err := st.Apply(st.Tr().SetSelection(sel))
	if err != nil {
		t.Fatal(err)
	}
	return next
}

func TestToggleMarkRange(t *testing.T) {
	st := withSelection(t, docState(t, 1, "hello"), state.TextSelection(1, 3))
	strong, _ := st.Schema.MarkType("strong")

	st, ok := run(t, st, ToggleMark("strong", nil))
	if !ok || !st.Doc.RangeHasMark(1, 3, strong) || st.Doc.RangeHasMark(3, 6, strong) {
		t.Fatalf("after add: %s", st.Doc)
	}
	st, ok = run(t, st, ToggleMark("strong", nil))
	if !ok || st.Doc.RangeHasMark(1, 6, strong) {
		t.Errorf("after remove: %s", st.Doc)
	}
	if _, ok := run(t, st, ToggleMark("missing", nil)); ok {
		t.Error("unknown mark applied")
	}
}

func TestToggleMarkCursorStoresMark(t *testing.T) {
	st := docState(t, 1, "")
	st, ok := run(t, st, ToggleMark("strong", nil))
	if !ok || len(st.StoredMarks) != 1 {
		t.Fatalf("stored marks = %v", st.StoredMarks)
	}
	st, _ = run(t, st, InsertText("x"))
	strong, _ := st.Schema.MarkType("strong")
	if !st.Doc.RangeHasMark(1, 2, strong) {
		t.Errorf("typed text not bold: %s", st.Doc)
	}
}

func TestSetBlockType(t *testing.T) {
	st := docState(t, 2, "title")
	st, ok := run(t, st, SetBlockType("heading", model.Attrs{"level": 2}))
	if !ok || st.Doc.Child(0).Type.Name != "heading" {
		t.Fatalf("doc = %s", st.Doc)
	}
	if _, ok := run(t, st, SetBlockType("heading", model.Attrs{"level": 2})); ok {
		t.Error("setting the same type should not apply")
	}
}

func TestSplitBlock(t *testing.T) {
	st, ok := run(t, docState(t, 3, "abcd"), SplitBlock())
	if !ok || st.Doc.ChildCount() != 2 || st.Doc.Child(0).TextContent() != "ab" || st.Doc.Child(1).TextContent() != "cd" {
		t.Fatalf("doc = %s", st.Doc)
	}
	if pos, _ := st.Selection.CursorPos(); pos != 5 {
		t.Errorf("cursor = %d, want 5", pos)
	}
}

func TestJoinBackwardAndDeleteChar(t *testing.T) {
	// doc: <p>ab</p><p>cd</p>, cursor at start of the second paragraph.
	st := docState(t, 5, "ab", "cd")
	if _, ok := run(t, st, DeleteCharBackward()); ok {
		t.Error("delete char at block start applied")
	}
	st, ok := run(t, st, JoinBackward())
	if !ok || st.Doc.ChildCount() != 1 || st.Doc.TextContent() != "abcd" {
		t.Fatalf("doc = %s", st.Doc)
	}
	st, ok = run(t, st, DeleteCharBackward())
	if !ok || st.Doc.TextContent() != "acd" {
		t.Errorf("doc = %s", st.Doc)
	}
	if _, ok := run(t, docState(t, 1, "x"), JoinBackward()); ok {
		t.Error("join at first block applied")
	}
}

func TestJoinForward(t *testing.T) {
	st, ok := run(t, docState(t, 3, "ab", "cd"), JoinForward())
	if !ok || st.Doc.TextContent() != "abcd" || st.Doc.ChildCount() != 1 {
		t.Errorf("doc = %s", st.Doc)
	}
}

func TestDryRunPurity(t *testing.T) {
	base := withSelection(t, docState(t, 1, "hello", "world"), state.TextSelection(2, 4))
	cursor := docState(t, 8, "hello", "world")
	cmds := map[string]extension.Command{
		"toggleMark":         ToggleMark("strong", nil),
		"insertText":         InsertText("x"),
		"setBlockType":       SetBlockType("heading", nil),
		"splitBlock":         SplitBlock(),
		"deleteSelection":    DeleteSelection(),
		"joinBackward":       JoinBackward(),
		"joinForward":        JoinForward(),
		"deleteCharBackward": DeleteCharBackward(),
		"deleteCharForward":  DeleteCharForward(),
		"selectAll":          SelectAll(),
	}
	for name, cmd := range cmds {
		for _, st := range []*state.EditorState{base, cursor} {
			before := st.Doc.ToJSON()
			dry := cmd(extension.PropsFor(st, nil, nil))
			if !reflect.DeepEqual(st.Doc.ToJSON(), before) {
				t.Errorf("%s: dry run changed the document", name)
			}
			_, wet := run(t, st, cmd)
			if dry != wet {
				t.Errorf("%s: dry run = %v, real run = %v", name, dry, wet)
			}
		}
	}
}
