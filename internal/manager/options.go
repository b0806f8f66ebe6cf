package manager

import (
	"github.com/dshills/inkstorm/internal/event"
	"github.com/dshills/inkstorm/internal/extension"
	"github.com/dshills/inkstorm/internal/logging"
)

// Option configures a Manager.
type Option func(*Manager)

// WithExtensions registers extensions.
func WithExtensions(exts ...extension.Extension) Option {
	return func(m *Manager) { m.registered = append(m.registered, exts...) }
}

// WithPresets registers every extension of the given presets.
func WithPresets(presets ...extension.Preset) Option {
	return func(m *Manager) {
		for _, p := range presets {
			m.registered = append(m.registered, p.Extensions...)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) { m.logger = logging.OrNop(l).WithComponent("manager") }
}

// WithStrict makes priority-resolved name collisions fatal instead of
// dropping the lower-priority entry with a warning.
func WithStrict(strict bool) Option {
	return func(m *Manager) { m.strict = strict }
}

// WithBus publishes lifecycle and transaction events on bus.
func WithBus(bus *event.Bus) Option {
	return func(m *Manager) { m.bus = bus }
}

// WithConfig supplies extension options keyed by extension name. They are
// decoded before the schema is built.
func WithConfig(cfg map[string]map[string]any) Option {
	return func(m *Manager) { m.initialConfig = cfg }
}

// WithMac selects macOS key semantics, where Mod means Meta.
func WithMac(mac bool) Option {
	return func(m *Manager) { m.mac = mac }
}
