package terminal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/inkstorm/internal/engine/view"
	"github.com/dshills/inkstorm/internal/extensions/basekeymap"
	"github.com/dshills/inkstorm/internal/extensions/core"
	"github.com/dshills/inkstorm/internal/extensions/formatting"
	"github.com/dshills/inkstorm/internal/manager"
)

func newTestEditor(t *testing.T) (*Editor, tcell.SimulationScreen, *view.View) {
	t.Helper()
	m, err := manager.New(
		manager.WithPresets(core.Preset(), formatting.Preset()),
		manager.WithExtensions(basekeymap.New()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = m.Destroy() })
	v, err := m.NewView(nil)
	if err != nil {
		t.Fatal(err)
	}
	sim := tcell.NewSimulationScreen("UTF-8")
	scr := Wrap(sim)
	if err := scr.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(scr.Fini)
	sim.SetSize(20, 5)
	return NewEditor(scr, v, nil), sim, v
}

func screenRow(sim tcell.SimulationScreen, y int) string {
	cells, w, _ := sim.GetContents()
	var out []rune
	for x := 0; x < w; x++ {
		out = append(out, cells[y*w+x].Runes...)
	}
	for len(out) > 0 && out[len(out)-1] == ' ' {
		out = out[:len(out)-1]
	}
	return string(out)
}

func press(t *testing.T, e *Editor, key tcell.Key, r rune, mod tcell.ModMask) {
	t.Helper()
	if err := e.HandleEvent(tcell.NewEventKey(key, r, mod)); err != nil {
		t.Fatalf("key %v %q: %v", key, r, err)
	}
}

func typeText(t *testing.T, e *Editor, text string) {
	t.Helper()
	for _, r := range text {
		press(t, e, tcell.KeyRune, r, tcell.ModNone)
	}
}

func TestEditorTypingAndNavigation(t *testing.T) {
	e, sim, v := newTestEditor(t)
	typeText(t, e, "hi")
	press(t, e, tcell.KeyEnter, 0, tcell.ModNone)
	typeText(t, e, "yo")
	e.Draw()

	if screenRow(sim, 0) != "hi" || screenRow(sim, 1) != "yo" {
		t.Fatalf("rows = %q %q", screenRow(sim, 0), screenRow(sim, 1))
	}
	if x, y, visible := sim.GetCursor(); x != 2 || y != 1 || !visible {
		t.Errorf("cursor = %d,%d %v", x, y, visible)
	}

	steps := []struct {
		key          tcell.Key
		mod          tcell.ModMask
		anchor, head int
	}{
		{tcell.KeyUp, tcell.ModNone, 3, 3},
		{tcell.KeyHome, tcell.ModNone, 1, 1},
		{tcell.KeyEnd, tcell.ModShift, 1, 3},
		{tcell.KeyLeft, tcell.ModNone, 1, 1},
		{tcell.KeyRight, tcell.ModShift, 1, 2},
		{tcell.KeyDown, tcell.ModNone, 6, 6},
		{tcell.KeyRight, tcell.ModNone, 7, 7},
		{tcell.KeyRight, tcell.ModNone, 7, 7},
	}
	for i, s := range steps {
		press(t, e, s.key, 0, s.mod)
		sel := v.State().Selection
		if sel.Anchor != s.anchor || sel.Head != s.head {
			t.Errorf("step %d: selection = %s, want %d-%d", i, sel, s.anchor, s.head)
		}
	}

	press(t, e, tcell.KeyRune, 'b', tcell.ModCtrl)
	typeText(t, e, "!")
	e.Draw()
	cells, w, _ := sim.GetContents()
	if _, _, attrs := cells[w+2].Style.Decompose(); attrs&tcell.AttrBold == 0 {
		t.Error("Ctrl-b did not bold the typed text")
	}
}

func TestEditorClickSaveAndStatus(t *testing.T) {
	e, sim, v := newTestEditor(t)
	typeText(t, e, "hello")
	if err := e.HandleEvent(tcell.NewEventMouse(2, 0, tcell.Button1, tcell.ModNone)); err != nil {
		t.Fatal(err)
	}
	if head := v.State().Selection.Head; head != 3 {
		t.Errorf("click head = %d, want 3", head)
	}

	saves := 0
	e.OnSave = func() error {
		saves++
		if saves > 1 {
			return errors.New("disk full")
		}
		return nil
	}
	press(t, e, tcell.KeyCtrlS, 0, tcell.ModCtrl)
	if saves != 1 || e.Status() != "saved" {
		t.Errorf("saves = %d status = %q", saves, e.Status())
	}
	press(t, e, tcell.KeyCtrlS, 0, tcell.ModCtrl)
	e.Draw()
	if got := screenRow(sim, 4); got != "save failed: disk fu" {
		t.Errorf("status row = %q", got)
	}
}

func TestEditorRunQuits(t *testing.T) {
	e, sim, v := newTestEditor(t)
	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	for _, r := range "ok" {
		sim.InjectKey(tcell.KeyRune, r, tcell.ModNone)
	}
	sim.InjectKey(tcell.KeyCtrlQ, 0, tcell.ModCtrl)
	select {
	case err := <-done:
		if !errors.Is(err, ErrQuit) {
			t.Errorf("Run = %v, want ErrQuit", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	if got := v.State().Doc.TextContent(); got != "ok" {
		t.Errorf("text = %q", got)
	}
}

func TestEditorRunStopsOnCancel(t *testing.T) {
	e, _, _ := newTestEditor(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}
