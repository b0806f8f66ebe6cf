package terminal

import (
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/inkstorm/internal/keymap"
)

var namedKeys = map[tcell.Key]string{
	tcell.KeyEnter:      "Enter",
	tcell.KeyTab:        "Tab",
	tcell.KeyEscape:     "Escape",
	tcell.KeyBackspace:  "Backspace",
	tcell.KeyBackspace2: "Backspace",
	tcell.KeyDelete:     "Delete",
	tcell.KeyInsert:     "Insert",
	tcell.KeyUp:         "ArrowUp",
	tcell.KeyDown:       "ArrowDown",
	tcell.KeyLeft:       "ArrowLeft",
	tcell.KeyRight:      "ArrowRight",
	tcell.KeyHome:       "Home",
	tcell.KeyEnd:        "End",
	tcell.KeyPgUp:       "PageUp",
	tcell.KeyPgDn:       "PageDown",
}

func modifiers(m tcell.ModMask) keymap.Modifier {
	var mods keymap.Modifier
	if m&tcell.ModAlt != 0 {
		mods |= keymap.ModAlt
	}
	if m&tcell.ModCtrl != 0 {
		mods |= keymap.ModCtrl
	}
	if m&tcell.ModMeta != 0 {
		mods |= keymap.ModMeta
	}
	if m&tcell.ModShift != 0 {
		mods |= keymap.ModShift
	}
	return mods
}

// KeyName converts a key event into a keymap name such as "Ctrl-b" or
// "Shift-ArrowLeft". Plain printable keys return the text they type and
// an empty name.
func KeyName(ev *tcell.EventKey) (name, text string) {
	mods := modifiers(ev.Modifiers())
	k := ev.Key()
	if k == tcell.KeyBacktab {
		return keymap.Name("Tab", mods|keymap.ModShift), ""
	}
	if n, ok := namedKeys[k]; ok {
		if k == tcell.KeyBackspace || k == tcell.KeyTab || k == tcell.KeyEnter || k == tcell.KeyEscape {
			// These share codes with Ctrl-h, Ctrl-i, Ctrl-m and Ctrl-[.
			mods &^= keymap.ModCtrl
		}
		return keymap.Name(n, mods), ""
	}
	if k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ {
		letter := string(rune('a' + int(k-tcell.KeyCtrlA)))
		return keymap.Name(letter, mods|keymap.ModCtrl), ""
	}
	if k != tcell.KeyRune {
		return "", ""
	}
	r := ev.Rune()
	if mods&^keymap.ModShift == 0 {
		return "", string(r)
	}
	return keymap.Name(string(r), mods&^keymap.ModShift), ""
}
