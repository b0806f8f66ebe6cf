package terminal

import (
	"sync"

	"github.com/gdamore/tcell/v2"
)

// Screen wraps a tcell screen. Drawing is serialized.
type Screen struct {
	screen tcell.Screen
	mu     sync.Mutex
}

// NewScreen opens the controlling terminal.
func NewScreen() (*Screen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return &Screen{screen: s}, nil
}

// Wrap uses an existing tcell screen, such as a simulation screen.
func Wrap(s tcell.Screen) *Screen {
	return &Screen{screen: s}
}

// Init initializes the terminal with mouse and bracketed paste enabled.
func (s *Screen) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.screen.Init(); err != nil {
		return err
	}
	s.screen.EnableMouse()
	s.screen.EnablePaste()
	return nil
}

// Fini restores the terminal. PollEvent returns nil afterwards.
func (s *Screen) Fini() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screen.Fini()
}

// Size returns the terminal size.
func (s *Screen) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screen.Size()
}

// Sync redraws the whole terminal, as needed after a resize.
func (s *Screen) Sync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screen.Sync()
}

// PollEvent blocks for the next event.
func (s *Screen) PollEvent() tcell.Event {
	return s.screen.PollEvent()
}

// Interrupt wakes PollEvent with an interrupt event carrying data.
func (s *Screen) Interrupt(data any) {
	_ = s.screen.PostEvent(tcell.NewEventInterrupt(data)) // queue full means a redraw is already pending
}

// Render draws rows [top, top+height-1) of f, the status line on the last
// row and the cursor at frame cell (cx, cy).
func (s *Screen) Render(f *Frame, top int, status string, cx, cy int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.screen.Clear()
	width, height := s.screen.Size()
	for row := 0; row < height-1; row++ {
		i := top + row
		if i >= len(f.Lines) {
			break
		}
		x := 0
		for _, c := range f.Lines[i].Cells {
			if x >= width {
				break
			}
			s.setCluster(x, row, c.Text, cellStyle(c.Style))
			x += c.Width
		}
	}

	barStyle := tcell.StyleDefault.Reverse(true)
	for x := 0; x < width; x++ {
		s.screen.SetContent(x, height-1, ' ', nil, barStyle)
	}
	x := 0
	eachCluster(status, func(cluster string, _, w int) {
		if x+w <= width {
			s.setCluster(x, height-1, cluster, barStyle)
		}
		x += w
	})

	if y := cy - top; y >= 0 && y < height-1 {
		s.screen.ShowCursor(cx, y)
	} else {
		s.screen.HideCursor()
	}
	s.screen.Show()
}

func (s *Screen) setCluster(x, y int, cluster string, style tcell.Style) {
	runes := []rune(cluster)
	if len(runes) == 0 {
		return
	}
	s.screen.SetContent(x, y, runes[0], runes[1:], style)
}

func cellStyle(st Style) tcell.Style {
	style := tcell.StyleDefault
	if st.Bold {
		style = style.Bold(true)
	}
	if st.Italic {
		style = style.Italic(true)
	}
	if st.Code {
		style = style.Foreground(tcell.ColorOlive)
	}
	if st.Mention {
		style = style.Foreground(tcell.ColorTeal).Bold(true)
	}
	if st.Link != "" {
		style = style.Underline(true).Foreground(tcell.ColorBlue).Url(st.Link)
	}
	if st.Highlight {
		style = style.Background(tcell.ColorDarkGreen)
	}
	return style
}
