package trackchanges

import (
	"math/rand"
	"testing"

	"github.com/dshills/inkstorm/internal/engine/view"
	"github.com/dshills/inkstorm/internal/extension"
	"github.com/dshills/inkstorm/internal/extensions/core"
	"github.com/dshills/inkstorm/internal/manager"
)

func newEditor(t *testing.T) (*manager.Manager, *Extension, *view.View) {
	t.Helper()
	ext := New()
	m, err := manager.New(manager.WithPresets(core.Preset()), manager.WithExtensions(ext))
	if err != nil {
		t.Fatal(err)
	}
	v, err := m.NewView(nil)
	if err != nil {
		t.Fatal(err)
	}
	return m, ext, v
}

func commitID(t *testing.T, m *manager.Manager, message string) string {
	t.Helper()
	id, err := m.Helpers().Call("findCommit", message)
	if err != nil || id == "" {
		t.Fatalf("commit %q not found: %v", message, err)
	}
	return id.(string)
}

func checkCoverage(t *testing.T, ts *TrackState, size int) {
	t.Helper()
	pos := 0
	for i, s := range ts.Blame {
		if s.From != pos || s.To <= s.From {
			t.Fatalf("span %d = %+v, expected to start at %d: %+v", i, s, pos, ts.Blame)
		}
		pos = s.To
	}
	if pos != size {
		t.Fatalf("blame covers %d of %d: %+v", pos, size, ts.Blame)
	}
}

func TestDirtyRevertIsNoop(t *testing.T) {
	m, ext, v := newEditor(t)
	v.TypeText("foo")
	if ok, _ := m.Commands().Run("commit", "A"); !ok {
		t.Fatal("commit failed")
	}
	v.TypeText("bar")

	id := commitID(t, m, "A")
	dispatched := 0
	m.OnTransaction(func(extension.TransactionUpdate) { dispatched++ })
	if ok, _ := m.Commands().Enabled("revertCommit", id); ok {
		t.Error("revert enabled while dirty")
	}
	if ok, _ := m.Commands().Run("revertCommit", id); ok {
		t.Error("revert applied while dirty")
	}
	if got := v.State().Doc.TextContent(); got != "foobar" || dispatched != 0 {
		t.Errorf("text = %q, dispatched %d", got, dispatched)
	}
	ts, _ := ext.State(v.State())
	if len(ts.Commits) != 1 || !ts.Dirty() {
		t.Errorf("commits = %d dirty = %v", len(ts.Commits), ts.Dirty())
	}
}

func TestBlameAttribution(t *testing.T) {
	m, ext, v := newEditor(t)
	v.TypeText("foo")
	m.Commands().Run("commit", "A")
	v.TypeText("bar")

	ts, _ := ext.State(v.State())
	checkCoverage(t, ts, v.State().Doc.Content.Size())
	want := []Span{{0, 1, NoCommit}, {1, 4, 0}, {4, 7, 1}, {7, 8, NoCommit}}
	if len(ts.Blame) != len(want) {
		t.Fatalf("blame = %+v", ts.Blame)
	}
	for i := range want {
		if ts.Blame[i] != want[i] {
			t.Errorf("span %d = %+v, want %+v", i, ts.Blame[i], want[i])
		}
	}
	if ts.CommitOf(ts.Blame[1]).Message != "A" || !ts.Uncommitted(ts.Blame[2]) || ts.CommitOf(ts.Blame[0]) != nil {
		t.Error("span attribution wrong")
	}
}

func TestRevertCommit(t *testing.T) {
	m, ext, v := newEditor(t)
	cmds := m.Commands()
	if ok, _ := cmds.Run("commit", "empty"); ok {
		t.Error("committed nothing")
	}
	v.TypeText("foo")
	cmds.Run("commit", "A")
	v.TypeText("bar")
	cmds.Run("commit", "B")

	if ok, _ := cmds.Run("revertCommit", commitID(t, m, "A")); !ok {
		t.Fatal("revert failed")
	}
	if got := v.State().Doc.TextContent(); got != "bar" {
		t.Errorf("text = %q, want bar", got)
	}
	ts, _ := ext.State(v.State())
	if len(ts.Commits) != 3 || ts.Commits[2].Message != "Revert 'A'" || ts.Dirty() {
		t.Fatalf("commits = %d, last %q", len(ts.Commits), ts.Commits[len(ts.Commits)-1].Message)
	}
	checkCoverage(t, ts, v.State().Doc.Content.Size())

	if ok, _ := cmds.Run("revertCommit", ts.Commits[2].ID); !ok {
		t.Fatal("reverting the revert failed")
	}
	if got := v.State().Doc.TextContent(); got != "foobar" {
		t.Errorf("text = %q, want foobar", got)
	}
	if ok, _ := cmds.Run("revertCommit", "missing"); ok {
		t.Error("reverted an unknown commit")
	}
}

func TestHighlight(t *testing.T) {
	m, _, v := newEditor(t)
	cmds := m.Commands()
	v.TypeText("foo")
	cmds.Run("commit", "A")
	v.TypeText("bar")
	id := commitID(t, m, "A")

	if ok, _ := cmds.Run("highlightCommit", id); !ok {
		t.Fatal("highlight failed")
	}
	decos := v.Decorations().All()
	if len(decos) != 1 || decos[0].From != 1 || decos[0].To != 4 || decos[0].Attrs["class"] != "blame-marker" {
		t.Fatalf("decorations = %+v", decos)
	}
	if ok, _ := cmds.Run("highlightCommit", id); ok {
		t.Error("highlighting twice applied")
	}

	v.Dispatch(v.State().Tr().InsertText("xx", 1, 1))
	if decos := v.Decorations().All(); len(decos) != 1 || decos[0].From != 3 || decos[0].To != 6 {
		t.Errorf("mapped decorations = %+v", decos)
	}

	if ok, _ := cmds.Run("clearHighlight"); !ok {
		t.Fatal("clear failed")
	}
	if v.Decorations().Len() != 0 {
		t.Error("highlight not cleared")
	}
	if ok, _ := cmds.Run("clearHighlight"); ok {
		t.Error("clearing an empty highlight applied")
	}
}

func TestBlameCoverage(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	m, ext, v := newEditor(t)
	v.TypeText("the quick brown fox")

	for i := range 300 {
		s := v.State()
		end := s.Doc.Content.Size() - 1
		tr := s.Tr()
		switch op := rng.Intn(10); {
		case op < 5:
			at := 1 + rng.Intn(end)
			tr.InsertText("ab"[:1+rng.Intn(2)], at, at)
		case op < 8:
			from := 1 + rng.Intn(end)
			to := min(from+1+rng.Intn(4), s.Doc.Content.Size())
			if err := tr.Delete(from, to); err != nil {
				continue
			}
		case op < 9:
			at := 1 + rng.Intn(end)
			if err := tr.Split(at, 1); err != nil {
				continue
			}
		default:
			m.Commands().Run("commit", "c")
			continue
		}
		v.Dispatch(tr)
		ts, err := ext.State(v.State())
		if err != nil {
			t.Fatal(err)
		}
		checkCoverage(t, ts, v.State().Doc.Content.Size())
		if i%50 == 0 && len(ts.Blame) == 0 {
			t.Fatal("empty blame")
		}
	}
}

func TestRevertMessage(t *testing.T) {
	tests := []struct {
		template string
		want     string
	}{
		{"Back out {message}", "Back out A"},
		{"Undo", "Undo"},
		{"100% {message}, {message}", "100% A, A"},
	}
	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			m, ext, v := newEditor(t)
			ext.SetOptions(func(o *Options) { o.RevertMessage = tt.template })
			v.TypeText("foo")
			m.Commands().Run("commit", "A")
			if ok, _ := m.Commands().Run("revertCommit", commitID(t, m, "A")); !ok {
				t.Fatal("revert failed")
			}
			ts, _ := ext.State(v.State())
			if got := ts.Commits[len(ts.Commits)-1].Message; got != tt.want {
				t.Errorf("message = %q, want %q", got, tt.want)
			}
		})
	}
}
