// Package view provides a headless editor view. It owns the current
// EditorState, serializes dispatched transactions, runs plugin views and
// exposes the props that input handling consults.
package view

import (
	"errors"
	"sync"

	"github.com/dshills/inkstorm/internal/engine/decoration"
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/logging"
)

// ErrDestroyed is returned when using a destroyed view.
var ErrDestroyed = errors.New("view destroyed")

// Builder builds a transaction against the state current at dispatch time.
// Returning nil dispatches nothing. A builder whose view is destroyed
// before its turn is called once with a nil state and its result is
// ignored.
type Builder func(s *state.EditorState) *state.Transaction

// Options configure a View.
type Options struct {
	State *state.EditorState

	// Props are consulted before plugin props.
	Props state.Props

	// OnUpdate runs after every applied transaction batch, once plugin
	// views have been updated.
	OnUpdate func(v *View, trs []*state.Transaction, prev *state.EditorState)

	Logger *logging.Logger
}

// View is a headless editor view. Dispatch may be called from any
// goroutine and from inside plugin views; transactions are applied one at
// a time in dispatch order.
type View struct {
	opts   Options
	logger *logging.Logger

	stateMu sync.RWMutex
	state   *state.EditorState

	mu          sync.Mutex
	queue       []Builder
	dispatching bool
	destroyed   bool
	lastErr     error

	plugins     []*state.Plugin
	pluginViews []state.PluginView
}

// New creates a view and its plugin views.
func New(opts Options) *View {
	v := &View{
		opts:   opts,
		logger: logging.OrNop(opts.Logger).WithComponent("view"),
		state:  opts.State,
	}
	v.createPluginViews()
	return v
}

// State returns the current state.
func (v *View) State() *state.EditorState {
	v.stateMu.RLock()
	defer v.stateMu.RUnlock()
	return v.state
}

// Dispatch applies a transaction built from the current state.
func (v *View) Dispatch(tr *state.Transaction) {
	v.DispatchFunc(func(*state.EditorState) *state.Transaction { return tr })
}

// DispatchFunc queues build and applies it against the state current when
// its turn comes. A call made while another dispatch is running on any
// goroutine returns once the build is queued.
func (v *View) DispatchFunc(build Builder) {
	v.mu.Lock()
	if v.destroyed {
		v.mu.Unlock()
		build(nil)
		return
	}
	v.queue = append(v.queue, build)
	if v.dispatching {
		v.mu.Unlock()
		return
	}
	v.dispatching = true
	for len(v.queue) > 0 {
		next := v.queue[0]
		v.queue = v.queue[1:]
		v.mu.Unlock()
		v.apply(next)
		v.mu.Lock()
	}
	v.dispatching = false
	v.mu.Unlock()
}

func (v *View) apply(build Builder) {
	prev := v.State()
	tr := build(prev)
	if tr == nil {
		return
	}
	next, trs, err := prev.ApplyTransaction(tr)
	if err != nil {
		v.logger.Warn("dropping transaction: %v", err)
		v.mu.Lock()
		v.lastErr = err
		v.mu.Unlock()
		return
	}
	if next == prev {
		return
	}
	v.updateState(next, prev)
	if v.opts.OnUpdate != nil {
		v.opts.OnUpdate(v, trs, prev)
	}
}

// Err returns the last dispatch error, if any.
func (v *View) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr
}

// UpdateState replaces the state without applying a transaction, for
// example after reconfiguring plugins.
func (v *View) UpdateState(s *state.EditorState) {
	v.updateState(s, v.State())
}

func (v *View) updateState(next, prev *state.EditorState) {
	v.stateMu.Lock()
	v.state = next
	v.stateMu.Unlock()

	if !samePlugins(v.plugins, next.Plugins()) {
		v.destroyPluginViews()
		v.createPluginViews()
		return
	}
	for _, pv := range v.pluginViews {
		pv.Update(v, prev)
	}
}

func samePlugins(a, b []*state.Plugin) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (v *View) createPluginViews() {
	s := v.State()
	if s == nil {
		return
	}
	v.plugins = s.Plugins()
	v.pluginViews = nil
	for _, p := range v.plugins {
		if p.Spec.View != nil {
			if pv := p.Spec.View(v); pv != nil {
				v.pluginViews = append(v.pluginViews, pv)
			}
		}
	}
}

func (v *View) destroyPluginViews() {
	for _, pv := range v.pluginViews {
		pv.Destroy()
	}
	v.pluginViews = nil
}

// Destroy destroys the plugin views. Later dispatches are ignored.
func (v *View) Destroy() {
	v.mu.Lock()
	if v.destroyed {
		v.mu.Unlock()
		return
	}
	v.destroyed = true
	dropped := v.queue
	v.queue = nil
	v.mu.Unlock()
	for _, build := range dropped {
		build(nil)
	}
	v.destroyPluginViews()
}

// Destroyed reports whether Destroy was called.
func (v *View) Destroyed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.destroyed
}

// SomeProp calls fn with the view's own props and then each plugin's props
// until fn returns true.
func (v *View) SomeProp(fn func(p state.Props) bool) bool {
	if fn(v.opts.Props) {
		return true
	}
	for _, p := range v.State().Plugins() {
		if fn(p.Spec.Props) {
			return true
		}
	}
	return false
}

// Editable reports whether no Editable prop returns false.
func (v *View) Editable() bool {
	s := v.State()
	readOnly := v.SomeProp(func(p state.Props) bool {
		if p.Editable == nil {
			return false
		}
		e := p.Editable(s)
		return e != nil && !*e
	})
	return !readOnly
}

// Decorations merges the decorations of every Decorations prop.
func (v *View) Decorations() *decoration.Set {
	s := v.State()
	var all []*decoration.Decoration
	v.SomeProp(func(p state.Props) bool {
		if p.Decorations != nil {
			if set := p.Decorations(s); set != nil {
				all = append(all, set.All()...)
			}
		}
		return false
	})
	return decoration.Create(s.Doc, all...)
}
