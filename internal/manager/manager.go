package manager

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/engine/view"
	"github.com/dshills/inkstorm/internal/event"
	"github.com/dshills/inkstorm/internal/event/topic"
	"github.com/dshills/inkstorm/internal/extension"
	"github.com/dshills/inkstorm/internal/keymap"
	"github.com/dshills/inkstorm/internal/logging"
)

// Manager is the composition root of an editor.
type Manager struct {
	mu sync.RWMutex

	// Configuration
	registered    []extension.Extension
	initialConfig map[string]map[string]any
	strict        bool
	mac           bool
	logger        *logging.Logger
	bus           *event.Bus

	// Built during the create phase
	store      *extension.Store
	extensions []extension.Extension
	byName     map[string]extension.Extension
	schema     *model.Schema
	plugins    []*state.Plugin
	keys       *keymap.Keymap
	commands   map[string]commandEntry
	helpers    map[string]helperEntry

	view      *view.View
	listeners []func(extension.TransactionUpdate)
}

type commandEntry struct {
	owner   string
	factory extension.CommandFactory
}

type helperEntry struct {
	owner  string
	helper extension.Helper
}

type loggerSetter interface {
	SetLogger(l *logging.Logger)
}

// New builds a manager from its options and runs the create phase.
func New(opts ...Option) (*Manager, error) {
	m := &Manager{
		logger:   logging.Nop(),
		store:    extension.NewStore(),
		byName:   make(map[string]extension.Extension),
		commands: make(map[string]commandEntry),
		helpers:  make(map[string]helperEntry),
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.build(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) build() error {
	if err := m.resolveExtensions(); err != nil {
		return err
	}
	for name, raw := range m.initialConfig {
		if err := m.decodeOptions(name, raw); err != nil {
			return err
		}
	}
	if err := m.advance(extension.PhaseCreate); err != nil {
		return err
	}

	schema, err := m.buildSchema()
	if err != nil {
		return err
	}
	m.schema = schema
	if err := m.store.SetSchema(schema); err != nil {
		return err
	}
	if err := m.buildCommands(); err != nil {
		return err
	}
	if err := m.buildHelpers(); err != nil {
		return err
	}
	if err := m.buildKeymap(); err != nil {
		return err
	}

	ctx := &extension.CreateContext{Store: m.store, Schema: schema, Lookup: m, Logger: m.logger}
	m.buildPlugins(ctx)

	for _, ext := range m.extensions {
		hook, ok := ext.(extension.CreateHook)
		if !ok {
			continue
		}
		if err := hook.OnCreate(ctx); err != nil {
			return &ConfigError{Extension: ext.Name(), Name: "create", Err: err}
		}
	}
	m.logger.Info("built editor with %d extensions, %d plugins", len(m.extensions), len(m.plugins))
	return nil
}

// resolveExtensions sorts by descending priority, keeping registration
// order for ties, and resolves duplicate extension names.
func (m *Manager) resolveExtensions() error {
	sorted := append([]extension.Extension(nil), m.registered...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() > sorted[j].Priority()
	})

	for _, ext := range sorted {
		name := ext.Name()
		if name == "" {
			return &ConfigError{Err: ErrEmptyName}
		}
		if winner, ok := m.byName[name]; ok {
			if err := m.collision("extension", name, winner, ext); err != nil {
				return err
			}
			continue
		}
		m.byName[name] = ext
		m.extensions = append(m.extensions, ext)
		if s, ok := ext.(loggerSetter); ok {
			s.SetLogger(m.logger.WithComponent(name))
		}
	}
	return nil
}

// collision resolves a name taken by winner, an entry of higher or equal
// priority. It returns an error when loser must not be silently dropped.
func (m *Manager) collision(what, name string, winner, loser extension.Extension) error {
	if winner.Priority() == loser.Priority() {
		return &ConfigError{Extension: loser.Name(), Name: what + " " + name,
			Err: fmt.Errorf("%w with %q at priority %d", ErrNameCollision, winner.Name(), winner.Priority())}
	}
	if m.strict {
		return &ConfigError{Extension: loser.Name(), Name: what + " " + name,
			Err: fmt.Errorf("%w: shadowed by %q", ErrNameCollision, winner.Name())}
	}
	m.logger.Warn("%s %q from %q dropped in favor of %q", what, name, loser.Name(), winner.Name())
	return nil
}

func (m *Manager) buildCommands() error {
	for _, ext := range m.extensions {
		p, ok := ext.(extension.CommandProvider)
		if !ok {
			continue
		}
		for name, factory := range p.Commands() {
			if prev, exists := m.commands[name]; exists {
				return &ConfigError{Extension: ext.Name(), Name: "command " + name,
					Err: fmt.Errorf("%w: already defined by %q", ErrDuplicateCommand, prev.owner)}
			}
			m.commands[name] = commandEntry{owner: ext.Name(), factory: factory}
		}
	}
	return nil
}

func (m *Manager) buildHelpers() error {
	for _, ext := range m.extensions {
		p, ok := ext.(extension.HelperProvider)
		if !ok {
			continue
		}
		for name, h := range p.Helpers() {
			if prev, exists := m.helpers[name]; exists {
				return &ConfigError{Extension: ext.Name(), Name: "helper " + name,
					Err: fmt.Errorf("%w: already defined by %q", ErrDuplicateHelper, prev.owner)}
			}
			m.helpers[name] = helperEntry{owner: ext.Name(), helper: h}
		}
	}
	return nil
}

// buildKeymap binds in priority order, so a higher-priority binding for a
// key runs first.
func (m *Manager) buildKeymap() error {
	m.keys = keymap.New(m.mac)
	for _, ext := range m.extensions {
		p, ok := ext.(extension.KeymapProvider)
		if !ok {
			continue
		}
		bindings := p.Keymap()
		specs := make([]string, 0, len(bindings))
		for spec := range bindings {
			specs = append(specs, spec)
		}
		sort.Strings(specs)
		for _, spec := range specs {
			if err := m.keys.Bind(spec, extension.ToHandler(bindings[spec])); err != nil {
				return &ConfigError{Extension: ext.Name(), Name: "key " + spec, Err: err}
			}
		}
	}
	return nil
}

// buildPlugins collects each extension's plugin and external plugins in
// priority order, followed by the merged keymap.
func (m *Manager) buildPlugins(ctx *extension.CreateContext) {
	for _, ext := range m.extensions {
		if p, ok := ext.(extension.PluginProvider); ok {
			if pl := p.Plugin(ctx); pl != nil {
				m.plugins = append(m.plugins, pl)
			}
		}
		if p, ok := ext.(extension.ExternalPluginProvider); ok {
			for _, pl := range p.ExternalPlugins(ctx) {
				if pl != nil {
					m.plugins = append(m.plugins, pl)
				}
			}
		}
	}
	if len(m.keys.Keys()) > 0 {
		m.plugins = append(m.plugins, m.keys.Plugin(state.NewPluginKey("keymap")))
	}
}

func (m *Manager) advance(p extension.Phase) error {
	if err := m.store.Advance(p); err != nil {
		return err
	}
	m.logger.Debug("phase %s", p)
	m.publish(event.TopicPhasePrefix.Child(p.String()), p)
	return nil
}

func (m *Manager) publish(t topic.Topic, payload any) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(context.Background(), event.New(t, payload, "manager")); err != nil {
		m.logger.Warn("event %s: %v", t, err)
	}
}

// Phase returns the current lifecycle phase.
func (m *Manager) Phase() extension.Phase { return m.store.Phase() }

// Store returns the shared store.
func (m *Manager) Store() *extension.Store { return m.store }

// Schema returns the merged schema.
func (m *Manager) Schema() *model.Schema { return m.schema }

// Plugins returns the collected plugins in order.
func (m *Manager) Plugins() []*state.Plugin { return append([]*state.Plugin(nil), m.plugins...) }

// Keymap returns the merged keymap.
func (m *Manager) Keymap() *keymap.Keymap { return m.keys }

// Extension implements extension.Lookup.
func (m *Manager) Extension(name string) (extension.Extension, bool) {
	ext, ok := m.byName[name]
	return ext, ok
}

// ExtensionsByTag implements extension.Lookup.
func (m *Manager) ExtensionsByTag(tag extension.Tag) []extension.Extension {
	var out []extension.Extension
	for _, ext := range m.extensions {
		if extension.HasTag(ext, tag) {
			out = append(out, ext)
		}
	}
	return out
}

// Extensions implements extension.Lookup. The result is in priority order.
func (m *Manager) Extensions() []extension.Extension {
	return append([]extension.Extension(nil), m.extensions...)
}

// View returns the attached view, or a phase error before NewView.
func (m *Manager) View() (*view.View, error) { return m.store.View() }

// MustView is View that panics.
func (m *Manager) MustView() *view.View { return m.store.MustView() }

// OnTransaction registers fn to run after every applied transaction, after
// the extensions' hooks.
func (m *Manager) OnTransaction(fn func(extension.TransactionUpdate)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}
