package manager

import (
	"errors"
	"fmt"

	"github.com/dshills/inkstorm/internal/engine/markup"
	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/engine/view"
	"github.com/dshills/inkstorm/internal/event"
	"github.com/dshills/inkstorm/internal/extension"
)

// CreateState creates an editor state with the manager's schema and
// plugins. content may be nil or "" for an empty document, an HTML
// string, a *model.Node, a JSON document map, or a JSON state map with
// "doc" and "selection" keys.
func (m *Manager) CreateState(content any) (*state.EditorState, error) {
	if p := m.Phase(); p < extension.PhaseCreate || p >= extension.PhaseDestroy {
		return nil, &extension.PhaseError{Op: "create state", Phase: p, Required: extension.PhaseCreate}
	}
	cfg := state.Config{Schema: m.schema, Plugins: m.plugins}
	switch c := content.(type) {
	case nil:
	case string:
		if c == "" {
			break
		}
		doc, err := markup.Parse(m.schema, c)
		if err != nil {
			return nil, err
		}
		cfg.Doc = doc
	case *model.Node:
		cfg.Doc = c
	case map[string]any:
		if _, ok := c["doc"]; ok {
			return state.FromJSON(cfg, c)
		}
		doc, err := m.schema.NodeFromJSON(c)
		if err != nil {
			return nil, err
		}
		cfg.Doc = doc
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedContent, content)
	}
	return state.Create(cfg)
}

// NewView attaches a headless view to st, or to an empty state when st is
// nil, runs every OnView hook and enters the runtime phase. A manager
// supports a single view.
func (m *Manager) NewView(st *state.EditorState) (*view.View, error) {
	if p := m.Phase(); p != extension.PhaseCreate {
		return nil, &extension.PhaseError{Op: "new view", Phase: p, Required: extension.PhaseCreate}
	}
	if st == nil {
		var err error
		if st, err = m.CreateState(nil); err != nil {
			return nil, err
		}
	}
	if err := m.advance(extension.PhaseViewAttach); err != nil {
		return nil, err
	}
	v := view.New(view.Options{
		State:    st,
		OnUpdate: m.onUpdate,
		Logger:   m.logger,
	})
	if err := m.store.SetView(v); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.view = v
	m.mu.Unlock()

	ctx := &extension.ViewContext{Store: m.store, View: v, Lookup: m, Logger: m.logger}
	for _, ext := range m.extensions {
		hook, ok := ext.(extension.ViewHook)
		if !ok {
			continue
		}
		if err := hook.OnView(ctx); err != nil {
			return nil, &ConfigError{Extension: ext.Name(), Name: "view", Err: err}
		}
	}
	if err := m.advance(extension.PhaseRuntime); err != nil {
		return nil, err
	}
	return v, nil
}

// onUpdate reports an applied transaction batch to extensions and
// listeners.
func (m *Manager) onUpdate(v *view.View, trs []*state.Transaction, prev *state.EditorState) {
	if len(trs) == 0 || m.Phase() >= extension.PhaseDestroy {
		return
	}
	u := extension.TransactionUpdate{
		Store:        m.store,
		Tr:           trs[0],
		Transactions: trs,
		PrevState:    prev,
		State:        v.State(),
	}
	for _, ext := range m.extensions {
		if hook, ok := ext.(extension.TransactionHook); ok {
			hook.OnTransaction(u)
		}
	}
	m.mu.RLock()
	listeners := append([]func(extension.TransactionUpdate){}, m.listeners...)
	m.mu.RUnlock()
	for _, fn := range listeners {
		fn(u)
	}
	m.publish(event.TopicTransaction, u)
}

// Dispatch dispatches tr through the attached view.
func (m *Manager) Dispatch(tr *state.Transaction) error {
	v, err := m.View()
	if err != nil {
		return err
	}
	v.Dispatch(tr)
	return nil
}

// Destroy runs every OnDestroy hook in reverse priority order and destroys
// the view. Destroying twice is a no-op.
func (m *Manager) Destroy() error {
	if m.Phase() == extension.PhaseDestroy {
		return nil
	}
	if err := m.advance(extension.PhaseDestroy); err != nil {
		return err
	}
	for i := len(m.extensions) - 1; i >= 0; i-- {
		if hook, ok := m.extensions[i].(extension.DestroyHook); ok {
			hook.OnDestroy()
		}
	}
	m.mu.Lock()
	v := m.view
	m.mu.Unlock()
	if v != nil {
		v.Destroy()
	}
	return nil
}

// ApplyConfig updates extension options at any phase before Destroy. Every
// entry is attempted; the returned error joins the failures.
func (m *Manager) ApplyConfig(cfg map[string]map[string]any) error {
	if p := m.Phase(); p >= extension.PhaseDestroy {
		return &extension.PhaseError{Op: "apply config", Phase: p, Required: extension.PhaseNone}
	}
	var errs []error
	for name, raw := range cfg {
		if err := m.decodeOptions(name, raw); err != nil {
			errs = append(errs, err)
			continue
		}
		m.publish(event.TopicOptionsChanged.Child(name), raw)
	}
	return errors.Join(errs...)
}

func (m *Manager) decodeOptions(name string, raw map[string]any) error {
	ext, ok := m.byName[name]
	if !ok {
		if m.strict {
			return &ConfigError{Extension: name, Err: ErrUnknownExtension}
		}
		m.logger.Warn("options for unknown extension %q ignored", name)
		return nil
	}
	c, ok := ext.(extension.Configurable)
	if !ok {
		return nil
	}
	if err := c.DecodeOptions(raw); err != nil {
		return &ConfigError{Extension: name, Name: "options", Err: err}
	}
	return nil
}
