package keymap

import (
	"strings"
	"unicode/utf8"

	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/plugin"
)

// Handler handles a key press. dispatch is nil for dry runs.
type Handler func(s *state.EditorState, dispatch func(*state.Transaction), v state.EditorView) bool

// Keymap maps normalized key names to handlers. Handlers bound earlier
// take precedence over handlers bound later to the same key.
type Keymap struct {
	mac      bool
	bindings map[string][]Handler
	order    []string
}

// New creates an empty keymap.
func New(mac bool) *Keymap {
	return &Keymap{mac: mac, bindings: make(map[string][]Handler)}
}

// Bind adds a handler for a key specification.
func (k *Keymap) Bind(spec string, h Handler) error {
	name, err := Normalize(spec, k.mac)
	if err != nil {
		return err
	}
	if _, ok := k.bindings[name]; !ok {
		k.order = append(k.order, name)
	}
	k.bindings[name] = append(k.bindings[name], h)
	return nil
}

// Keys returns the bound key names in binding order.
func (k *Keymap) Keys() []string {
	return append([]string(nil), k.order...)
}

// Handlers returns the handlers bound to a normalized key name.
func (k *Keymap) Handlers(name string) []Handler {
	return k.bindings[name]
}

// Handle runs the handlers bound to key until one returns true. A shifted
// single character also tries its unshifted binding.
func (k *Keymap) Handle(v state.EditorView, key string) bool {
	name, err := Normalize(key, k.mac)
	if err != nil {
		return false
	}
	if k.run(v, name) {
		return true
	}
	if strings.Contains(name, "Shift-") {
		base := name[strings.LastIndex(name, "-")+1:]
		if utf8.RuneCountInString(base) == 1 {
			return k.run(v, strings.Replace(name, "Shift-", "", 1))
		}
	}
	return false
}

func (k *Keymap) run(v state.EditorView, name string) bool {
	s := v.State()
	for _, h := range k.bindings[name] {
		if h(s, v.Dispatch, v) {
			return true
		}
	}
	return false
}

// Plugin wraps the keymap in a plugin handling key presses.
func (k *Keymap) Plugin(key *state.PluginKey) *state.Plugin {
	return plugin.Stateless(key, plugin.WithProps(state.Props{
		HandleKeyDown: k.Handle,
	}))
}
