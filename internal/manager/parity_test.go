package manager

import (
	"context"
	"reflect"
	"testing"

	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/engine/view"
	"github.com/dshills/inkstorm/internal/extensions/basekeymap"
	"github.com/dshills/inkstorm/internal/extensions/core"
	"github.com/dshills/inkstorm/internal/extensions/emoji"
	"github.com/dshills/inkstorm/internal/extensions/formatting"
	"github.com/dshills/inkstorm/internal/extensions/heading"
	"github.com/dshills/inkstorm/internal/extensions/history"
	"github.com/dshills/inkstorm/internal/extensions/link"
	"github.com/dshills/inkstorm/internal/extensions/mention"
	"github.com/dshills/inkstorm/internal/extensions/placeholder"
	"github.com/dshills/inkstorm/internal/extensions/positiontracker"
	"github.com/dshills/inkstorm/internal/extensions/suggest"
	"github.com/dshills/inkstorm/internal/extensions/trackchanges"
)

// fullEditor builds an editor with every built-in extension.
func fullEditor(t *testing.T) (*Manager, *view.View) {
	t.Helper()
	lnk, err := link.New(func(o *link.Options) { o.AutoLink = true })
	if err != nil {
		t.Fatal(err)
	}
	m, err := New(
		WithPresets(core.Preset(), formatting.Preset()),
		WithExtensions(
			heading.New(),
			history.New(),
			basekeymap.New(func(o *basekeymap.Options) { o.SelectAll = true }),
			lnk,
			placeholder.New(),
			positiontracker.New(),
			trackchanges.New(),
			suggest.New(),
			mention.New(),
			emoji.New(),
		),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = m.Destroy() })
	v, err := m.NewView(nil)
	if err != nil {
		t.Fatal(err)
	}
	return m, v
}

func commitArg(m *Manager) []any {
	id, _ := m.Helpers().Call("findCommit", "A")
	return []any{id}
}

func TestEnabledMatchesRunForEveryCommand(t *testing.T) {
	setups := []struct {
		name  string
		setup func(t *testing.T, m *Manager, v *view.View)
	}{
		{"empty", func(*testing.T, *Manager, *view.View) {}},
		{"text", func(_ *testing.T, _ *Manager, v *view.View) { v.TypeText("hello world") }},
		{"selection", func(_ *testing.T, _ *Manager, v *view.View) {
			v.TypeText("hello world")
			v.Dispatch(v.State().Tr().SetSelection(state.TextSelection(1, 6)))
		}},
		{"mention match", func(_ *testing.T, _ *Manager, v *view.View) { v.TypeText("hi @Jo") }},
		{"emoji match", func(_ *testing.T, _ *Manager, v *view.View) { v.TypeText("so :smi") }},
		{"committed link", func(t *testing.T, m *Manager, v *view.View) {
			v.TypeText("see https://example.com")
			if ok, _ := m.Commands().Run("commit", "A"); !ok {
				t.Fatal("commit failed")
			}
			if ok, _ := m.Commands().Run("addPositionTracker", "t", 3); !ok {
				t.Fatal("addPositionTracker failed")
			}
			v.Dispatch(v.State().Tr().SetSelection(state.Cursor(10)))
		}},
	}

	pending := positiontracker.PendingText(func(context.Context) (string, error) { return "x", nil })
	argSets := map[string][]func(*Manager) []any{
		"addPositionTracker":    {func(*Manager) []any { return []any{"p"} }, func(*Manager) []any { return []any{"t", 2} }},
		"removePositionTracker": {func(*Manager) []any { return []any{"t"} }},
		"commit":                {func(*Manager) []any { return []any{"B"} }},
		"revertCommit":          {commitArg},
		"highlightCommit":       {commitArg},
		"createMention": {
			func(*Manager) []any { return []any{model.Attrs{"id": "u1", "name": "at"}} },
			func(*Manager) []any { return []any{model.Attrs{"name": "at"}} },
			func(*Manager) []any { return []any{model.Attrs{"id": "u1", "name": "at"}, 1, 3} },
		},
		"removeMention":     {func(*Manager) []any { return nil }, func(*Manager) []any { return []any{1, 3} }},
		"dismissSuggestion": {func(*Manager) []any { return nil }, func(*Manager) []any { return []any{"at"} }},
		"insertSuggestion": {
			func(*Manager) []any { return []any{"at", model.Attrs{"id": "u1", "name": "at"}} },
			func(*Manager) []any { return []any{"at", model.Attrs{"name": "at"}} },
			func(*Manager) []any { return []any{"emoji", model.Attrs{"code": "smile"}} },
			func(*Manager) []any { return []any{"emoji", model.Attrs{"code": "nope"}} },
		},
		"insertEmoji":     {func(*Manager) []any { return []any{"smile"} }, func(*Manager) []any { return []any{"nope"} }},
		"insertText":      {func(*Manager) []any { return []any{"x"} }, func(*Manager) []any { return []any{"x", 1, 99} }},
		"updateLink":      {func(*Manager) []any { return []any{"https://inkstorm.dev"} }, func(*Manager) []any { return []any{""} }},
		"removeLink":      {func(*Manager) []any { return nil }, func(*Manager) []any { return []any{1, 4} }},
		"setHeading":      {func(*Manager) []any { return []any{2} }},
		"toggleHeading":   {func(*Manager) []any { return []any{1} }},
		"insertTextAsync": {func(*Manager) []any { return []any{pending} }, func(*Manager) []any { return nil }},
	}

	m, _ := fullEditor(t)
	names := m.Commands().Names()
	if len(names) < 20 {
		t.Fatalf("only %d commands registered: %v", len(names), names)
	}

	for _, st := range setups {
		for _, name := range names {
			sets := argSets[name]
			if len(sets) == 0 {
				sets = []func(*Manager) []any{func(*Manager) []any { return nil }}
			}
			for i, argsFor := range sets {
				m, v := fullEditor(t)
				st.setup(t, m, v)
				args := argsFor(m)
				before := v.State()
				beforeJSON := before.ToJSON()

				enabled, err := m.Commands().Enabled(name, args...)
				if err != nil {
					t.Fatalf("%s/%s: %v", st.name, name, err)
				}
				if v.State() != before || !v.State().Doc.Eq(before.Doc) {
					t.Errorf("%s/%s#%d: Enabled changed the state", st.name, name, i)
				}
				if got := v.State().ToJSON(); !reflect.DeepEqual(got, beforeJSON) {
					t.Errorf("%s/%s#%d: Enabled changed the document", st.name, name, i)
				}

				ran, err := m.Commands().Run(name, args...)
				if err != nil {
					t.Fatalf("%s/%s: %v", st.name, name, err)
				}
				if enabled != ran {
					t.Errorf("%s/%s#%d %v: Enabled = %v, Run = %v", st.name, name, i, args, enabled, ran)
				}
			}
		}
	}
}
