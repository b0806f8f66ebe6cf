package terminal

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestKeyName(t *testing.T) {
	tests := []struct {
		key  tcell.Key
		r    rune
		mod  tcell.ModMask
		name string
		text string
	}{
		{tcell.KeyRune, 'a', tcell.ModNone, "", "a"},
		{tcell.KeyRune, 'A', tcell.ModShift, "", "A"},
		{tcell.KeyRune, ' ', tcell.ModNone, "", " "},
		{tcell.KeyRune, 'b', tcell.ModAlt, "Alt-b", ""},
		{tcell.KeyRune, 'b', tcell.ModCtrl, "Ctrl-b", ""},
		{tcell.KeyCtrlQ, 0, tcell.ModCtrl, "Ctrl-q", ""},
		{tcell.KeyEnter, 0, tcell.ModNone, "Enter", ""},
		{tcell.KeyEnter, 0, tcell.ModShift, "Shift-Enter", ""},
		{tcell.KeyBackspace2, 0, tcell.ModNone, "Backspace", ""},
		{tcell.KeyLeft, 0, tcell.ModShift, "Shift-ArrowLeft", ""},
		{tcell.KeyBacktab, 0, tcell.ModNone, "Shift-Tab", ""},
		{tcell.KeyF5, 0, tcell.ModNone, "", ""},
	}
	for _, tt := range tests {
		name, text := KeyName(tcell.NewEventKey(tt.key, tt.r, tt.mod))
		if name != tt.name || text != tt.text {
			t.Errorf("KeyName(%v %q %v) = %q %q, want %q %q", tt.key, tt.r, tt.mod, name, text, tt.name, tt.text)
		}
	}
}
