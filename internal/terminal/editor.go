package terminal

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/engine/view"
	"github.com/dshills/inkstorm/internal/logging"
)

// ErrQuit is returned by Run when the user quits.
var ErrQuit = errors.New("quit")

// Key names the editor handles itself before the view sees them.
const (
	QuitKey = "Ctrl-q"
	SaveKey = "Ctrl-s"
)

type refresh struct{}

// Editor runs an interactive loop over a view.
type Editor struct {
	screen *Screen
	view   *view.View
	logger *logging.Logger

	// OnSave is called for SaveKey.
	OnSave func() error

	mu     sync.Mutex
	status string
	top    int
}

// NewEditor creates an editor drawing v on screen.
func NewEditor(screen *Screen, v *view.View, logger *logging.Logger) *Editor {
	return &Editor{
		screen: screen,
		view:   v,
		logger: logging.OrNop(logger).WithComponent("terminal"),
	}
}

// SetStatus replaces the status line text and redraws.
func (e *Editor) SetStatus(status string) {
	e.mu.Lock()
	e.status = status
	e.mu.Unlock()
	e.Refresh()
}

// Status returns the status line text.
func (e *Editor) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Refresh asks the loop to redraw. It is safe from any goroutine.
func (e *Editor) Refresh() {
	e.screen.Interrupt(refresh{})
}

// Run draws the view and handles events until ctx ends, the screen is
// finalized or the user quits, which returns ErrQuit.
func (e *Editor) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, e.Refresh)
	defer stop()

	e.Draw()
	for {
		ev := e.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.HandleEvent(ev); err != nil {
			return err
		}
		e.Draw()
	}
}

// HandleEvent applies one terminal event to the view.
func (e *Editor) HandleEvent(ev tcell.Event) error {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return e.handleKey(ev)
	case *tcell.EventMouse:
		if ev.Buttons()&tcell.Button1 != 0 {
			x, y := ev.Position()
			f, top := e.layout()
			e.view.Click(f.PosAt(x, y+top))
		}
	case *tcell.EventResize:
		e.screen.Sync()
	}
	return nil
}

func (e *Editor) handleKey(ev *tcell.EventKey) error {
	name, text := KeyName(ev)
	switch {
	case name == QuitKey:
		return ErrQuit
	case name == SaveKey:
		e.save()
	case text != "":
		if !e.view.TypeText(text) {
			e.setStatus("read-only")
		}
	case name == "":
	case e.view.PressKey(name):
	case e.moveCursor(name):
	default:
		e.logger.Debug("unbound key %s", name)
	}
	return nil
}

func (e *Editor) save() {
	if e.OnSave == nil {
		return
	}
	if err := e.OnSave(); err != nil {
		e.logger.Error("save: %v", err)
		e.setStatus("save failed: " + err.Error())
		return
	}
	e.setStatus("saved")
}

func (e *Editor) setStatus(s string) {
	e.mu.Lock()
	e.status = s
	e.mu.Unlock()
}

// moveCursor handles the navigation keys no keymap claimed.
func (e *Editor) moveCursor(name string) bool {
	extend := strings.HasPrefix(name, "Shift-")
	key := strings.TrimPrefix(name, "Shift-")
	s := e.view.State()
	sel := s.Selection
	head := sel.Head
	f, _ := e.layout()

	switch key {
	case "ArrowLeft":
		if !extend && !sel.Empty() {
			head = sel.From()
		} else if head > 0 {
			head = state.Near(s.Doc, head-1, -1).Head
		}
	case "ArrowRight":
		if !extend && !sel.Empty() {
			head = sel.To()
		} else if head < s.Doc.Content.Size() {
			head = state.Near(s.Doc, head+1, 1).Head
		}
	case "ArrowUp", "ArrowDown":
		x, y := f.Locate(head)
		if key == "ArrowUp" {
			y--
		} else {
			y++
		}
		if y < 0 || y >= len(f.Lines) {
			return true
		}
		head = f.PosAt(x, y)
	case "Home", "End":
		_, y := f.Locate(head)
		if key == "Home" {
			head = f.Lines[y].Start
		} else {
			head = f.Lines[y].End
		}
	default:
		return false
	}
	anchor := head
	if extend {
		anchor = sel.Anchor
	}
	e.view.DispatchFunc(func(s *state.EditorState) *state.Transaction {
		if s == nil {
			return nil
		}
		return s.Tr().SetSelection(state.TextSelection(anchor, head)).ScrollIntoView()
	})
	return true
}

// layout returns the frame for the current state and the first visible
// row, scrolled so the cursor stays on screen.
func (e *Editor) layout() (*Frame, int) {
	width, height := e.screen.Size()
	s := e.view.State()
	f := Layout(s.Doc, e.view.Decorations(), width)
	_, cy := f.Locate(s.Selection.Head)

	e.mu.Lock()
	defer e.mu.Unlock()
	rows := max(height-1, 1)
	if cy < e.top {
		e.top = cy
	} else if cy >= e.top+rows {
		e.top = cy - rows + 1
	}
	return f, e.top
}

// Draw renders the current state.
func (e *Editor) Draw() {
	f, top := e.layout()
	cx, cy := f.Locate(e.view.State().Selection.Head)
	e.screen.Render(f, top, e.Status(), cx, cy)
}
