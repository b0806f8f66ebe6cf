// Package keymap normalizes key combinations and routes key presses to
// bound handlers, first handler returning true wins.
package keymap

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Parse errors.
var (
	ErrEmptySpec   = errors.New("empty key specification")
	ErrInvalidSpec = errors.New("invalid key specification")
)

// Modifier is a set of modifier keys.
type Modifier uint8

// Modifier keys, in canonical output order.
const (
	ModAlt Modifier = 1 << iota
	ModCtrl
	ModMeta
	ModShift
)

// Has reports whether m contains mod.
func (m Modifier) Has(mod Modifier) bool { return m&mod != 0 }

var keyAliases = map[string]string{
	"esc":       "Escape",
	"escape":    "Escape",
	"cr":        "Enter",
	"return":    "Enter",
	"enter":     "Enter",
	"bs":        "Backspace",
	"backspace": "Backspace",
	"del":       "Delete",
	"delete":    "Delete",
	"tab":       "Tab",
	"space":     " ",
	"up":        "ArrowUp",
	"down":      "ArrowDown",
	"left":      "ArrowLeft",
	"right":     "ArrowRight",
	"home":      "Home",
	"end":       "End",
}

// Normalize turns a key specification into its canonical name, such as
// "Ctrl-Shift-Enter". Accepted forms are "Mod-b", "Ctrl+S", "<C-s>" and
// bare key names. Mod means Meta when mac is true and Ctrl otherwise.
func Normalize(spec string, mac bool) (string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return "", ErrEmptySpec
	}
	vim := false
	if len(spec) > 2 && strings.HasPrefix(spec, "<") && strings.HasSuffix(spec, ">") {
		spec = spec[1 : len(spec)-1]
		vim = true
	}
	sep := "-"
	if strings.Contains(spec, "+") && spec != "+" {
		sep = "+"
	}
	var name string
	var modParts []string
	if spec == sep || strings.HasSuffix(spec, sep+sep) {
		// "Ctrl--" binds the separator key itself.
		name = sep
		if rest := strings.TrimSuffix(spec, sep+sep); spec != sep && rest != "" {
			modParts = strings.Split(rest, sep)
		}
	} else {
		parts := strings.Split(spec, sep)
		name = parts[len(parts)-1]
		modParts = parts[:len(parts)-1]
	}
	var mods Modifier
	for _, p := range modParts {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "alt", "a", "option", "opt":
			mods |= ModAlt
		case "ctrl", "c", "control":
			mods |= ModCtrl
		case "meta", "m", "d", "cmd", "command":
			mods |= ModMeta
		case "shift", "s":
			mods |= ModShift
		case "mod":
			if mac {
				mods |= ModMeta
			} else {
				mods |= ModCtrl
			}
		default:
			return "", fmt.Errorf("%w: unknown modifier %q in %q", ErrInvalidSpec, p, spec)
		}
	}
	if name == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidSpec, spec)
	}
	if alias, ok := keyAliases[strings.ToLower(name)]; ok && utf8.RuneCountInString(name) > 1 {
		name = alias
	}
	if vim && utf8.RuneCountInString(name) == 1 && mods.Has(ModCtrl) {
		name = strings.ToLower(name)
	}
	return Name(name, mods), nil
}

// Name builds the canonical name of a key with modifiers.
func Name(key string, mods Modifier) string {
	var b strings.Builder
	if mods.Has(ModAlt) {
		b.WriteString("Alt-")
	}
	if mods.Has(ModCtrl) {
		b.WriteString("Ctrl-")
	}
	if mods.Has(ModMeta) {
		b.WriteString("Meta-")
	}
	if mods.Has(ModShift) {
		b.WriteString("Shift-")
	}
	b.WriteString(key)
	return b.String()
}
