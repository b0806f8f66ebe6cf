package manager

import (
	"fmt"
	"sort"

	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/extension"
)

// Commands is the merged command namespace.
type Commands struct {
	m *Manager
}

// Commands returns the command namespace.
func (m *Manager) Commands() *Commands { return &Commands{m: m} }

// Names returns every command name, sorted.
func (c *Commands) Names() []string {
	names := make([]string, 0, len(c.m.commands))
	for name := range c.m.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the command built from name and args.
func (c *Commands) Get(name string, args ...any) (extension.Command, error) {
	entry, ok := c.m.commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return entry.factory(args...), nil
}

// Run runs a command against the view's state and dispatches its result.
func (c *Commands) Run(name string, args ...any) (bool, error) {
	v, err := c.m.View()
	if err != nil {
		return false, err
	}
	return c.Exec(extension.PropsFor(v.State(), v.Dispatch, v), name, args...)
}

// Enabled reports whether a command would apply to the view's state,
// without dispatching anything.
func (c *Commands) Enabled(name string, args ...any) (bool, error) {
	v, err := c.m.View()
	if err != nil {
		return false, err
	}
	return c.Exec(extension.PropsFor(v.State(), nil, v), name, args...)
}

// Exec runs a command with explicit props.
func (c *Commands) Exec(p extension.CommandProps, name string, args ...any) (bool, error) {
	cmd, err := c.Get(name, args...)
	if err != nil {
		return false, err
	}
	return cmd(p), nil
}

// Chain starts a chain of commands sharing one transaction.
func (c *Commands) Chain() (*Chain, error) {
	v, err := c.m.View()
	if err != nil {
		return nil, err
	}
	s := v.State()
	return &Chain{c: c, view: v, state: s, tr: s.Tr(), ok: true}, nil
}

// Chain accumulates commands into one transaction. Nothing is dispatched
// until Run.
type Chain struct {
	c     *Commands
	view  state.EditorView
	state *state.EditorState
	tr    *state.Transaction
	steps []extension.Command
	ok    bool
	err   error
}

// Then appends a command to the chain.
func (ch *Chain) Then(name string, args ...any) *Chain {
	if ch.err != nil {
		return ch
	}
	cmd, err := ch.c.Get(name, args...)
	if err != nil {
		ch.err = err
		return ch
	}
	ch.steps = append(ch.steps, cmd)
	return ch
}

// Enabled reports whether every command in the chain would apply.
func (ch *Chain) Enabled() (bool, error) {
	if ch.err != nil {
		return false, ch.err
	}
	tr := ch.state.Tr()
	for _, step := range ch.steps {
		if !step(extension.CommandProps{State: ch.state, Tr: tr, View: ch.view}) {
			return false, nil
		}
	}
	return true, nil
}

// Run runs the chained commands against the shared transaction and
// dispatches it once if every command applied.
func (ch *Chain) Run() (bool, error) {
	if ch.err != nil {
		return false, ch.err
	}
	record := func(*state.Transaction) {}
	for _, step := range ch.steps {
		if !step(extension.CommandProps{State: ch.state, Tr: ch.tr, Dispatch: record, View: ch.view}) {
			ch.ok = false
		}
	}
	if !ch.ok {
		return false, nil
	}
	ch.view.Dispatch(ch.tr)
	return true, nil
}

// Helpers is the merged helper namespace.
type Helpers struct {
	m *Manager
}

// Helpers returns the helper namespace.
func (m *Manager) Helpers() *Helpers { return &Helpers{m: m} }

// Names returns every helper name, sorted.
func (h *Helpers) Names() []string {
	names := make([]string, 0, len(h.m.helpers))
	for name := range h.m.helpers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call calls a helper against the view's state. Before a view is attached
// it returns a phase error.
func (h *Helpers) Call(name string, args ...any) (any, error) {
	v, err := h.m.View()
	if err != nil {
		return nil, err
	}
	return h.CallOn(v.State(), name, args...)
}

// CallOn calls a helper against s.
func (h *Helpers) CallOn(s *state.EditorState, name string, args ...any) (any, error) {
	entry, ok := h.m.helpers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHelper, name)
	}
	return entry.helper(s, args...), nil
}
