package state

import (
	"fmt"
	"sync"

	"github.com/dshills/inkstorm/internal/engine/decoration"
)

var (
	keysMu sync.Mutex
	keys   = map[string]int{}
)

// PluginKey identifies a plugin and gives access to its state. Keys are
// unique: creating a second key with the same name yields "name$1".
type PluginKey struct {
	name string
}

// NewPluginKey creates a unique key.
func NewPluginKey(name string) *PluginKey {
	keysMu.Lock()
	defer keysMu.Unlock()
	n := keys[name]
	keys[name] = n + 1
	if n > 0 {
		return &PluginKey{name: fmt.Sprintf("%s$%d", name, n)}
	}
	return &PluginKey{name: name}
}

// String returns the unique key name.
func (k *PluginKey) String() string { return k.name }

// GetState returns the plugin state stored under this key.
func (k *PluginKey) GetState(s *EditorState) (any, bool) {
	return s.PluginState(k)
}

// Get returns the plugin registered under this key in s, or nil.
func (k *PluginKey) Get(s *EditorState) *Plugin {
	for _, p := range s.plugins {
		if p.Key == k {
			return p
		}
	}
	return nil
}

// StateField holds a plugin's state logic.
type StateField struct {
	// Init creates the initial state.
	Init func(cfg Config, s *EditorState) any

	// Apply computes the next state. newState has the document, the
	// selection and the states of earlier plugins already updated.
	Apply func(tr *Transaction, value any, oldState, newState *EditorState) any
}

// EditorView is the part of a view that plugins interact with.
type EditorView interface {
	State() *EditorState
	Dispatch(tr *Transaction)
}

// PluginView is the view component of a plugin.
type PluginView interface {
	Update(v EditorView, prevState *EditorState)
	Destroy()
}

// PluginViewFuncs adapts functions to PluginView.
type PluginViewFuncs struct {
	UpdateFunc  func(v EditorView, prevState *EditorState)
	DestroyFunc func()
}

// Update implements PluginView.
func (f PluginViewFuncs) Update(v EditorView, prevState *EditorState) {
	if f.UpdateFunc != nil {
		f.UpdateFunc(v, prevState)
	}
}

// Destroy implements PluginView.
func (f PluginViewFuncs) Destroy() {
	if f.DestroyFunc != nil {
		f.DestroyFunc()
	}
}

// Props are the view-facing hooks a plugin may provide.
type Props struct {
	Decorations     func(s *EditorState) *decoration.Set
	HandleKeyDown   func(v EditorView, key string) bool
	HandleTextInput func(v EditorView, from, to int, text string) bool
	HandleClick     func(v EditorView, pos int) bool
	Editable        func(s *EditorState) *bool
}

// PluginSpec describes a plugin.
type PluginSpec struct {
	Key   *PluginKey
	State *StateField
	Props Props

	// AppendTransaction may return a transaction to apply after the given
	// ones, or nil.
	AppendTransaction func(trs []*Transaction, oldState, newState *EditorState) *Transaction

	// FilterTransaction may veto a transaction by returning false.
	FilterTransaction func(tr *Transaction, s *EditorState) bool

	View func(v EditorView) PluginView
}

// Plugin extends the editor state and view.
type Plugin struct {
	Spec PluginSpec
	Key  *PluginKey
}

// NewPlugin creates a plugin. A plugin without key gets a fresh one.
func NewPlugin(spec PluginSpec) *Plugin {
	if spec.Key == nil {
		spec.Key = NewPluginKey("plugin")
	}
	return &Plugin{Spec: spec, Key: spec.Key}
}

// GetState returns the plugin's state in s.
func (p *Plugin) GetState(s *EditorState) (any, bool) {
	return s.PluginState(p.Key)
}
