package extension

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/logging"
)

// Base carries what every extension has in common. Concrete extensions
// embed *Base[O] with their own options struct O.
//
// Options are layered: the defaults given to NewBase, then constructor
// modifiers, then runtime updates through SetOptions or DecodeOptions.
// Options fields are decoded from configuration using their toml tags.
type Base[O any] struct {
	name     string
	kind     Kind
	priority Priority
	tags     []Tag
	key      *state.PluginKey

	mu        sync.RWMutex
	options   O
	listeners []func(prev, next O)
	logger    *logging.Logger
}

// NewBase creates a base. Each modifier is applied to a copy of defaults.
func NewBase[O any](name string, kind Kind, defaults O, modifiers ...func(*O)) *Base[O] {
	opts := defaults
	for _, m := range modifiers {
		m(&opts)
	}
	return &Base[O]{
		name:     name,
		kind:     kind,
		priority: PriorityDefault,
		key:      state.NewPluginKey(name),
		options:  opts,
		logger:   logging.Nop(),
	}
}

// Name implements Extension.
func (b *Base[O]) Name() string { return b.name }

// Kind implements Extension.
func (b *Base[O]) Kind() Kind { return b.kind }

// Priority implements Extension.
func (b *Base[O]) Priority() Priority { return b.priority }

// Tags implements Extension.
func (b *Base[O]) Tags() []Tag { return append([]Tag(nil), b.tags...) }

// WithPriority overrides the priority. It must be called before the
// extension is handed to a manager.
func (b *Base[O]) WithPriority(p Priority) *Base[O] {
	b.priority = p
	return b
}

// WithTags adds tags.
func (b *Base[O]) WithTags(tags ...Tag) *Base[O] {
	b.tags = append(b.tags, tags...)
	return b
}

// PluginKey returns the key for the extension's own plugin.
func (b *Base[O]) PluginKey() *state.PluginKey { return b.key }

// SetLogger is called by the manager with a component logger.
func (b *Base[O]) SetLogger(l *logging.Logger) {
	b.mu.Lock()
	b.logger = logging.OrNop(l)
	b.mu.Unlock()
}

// Logger returns the extension's logger.
func (b *Base[O]) Logger() *logging.Logger {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.logger
}

// Options returns a copy of the current options.
func (b *Base[O]) Options() O {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.options
}

// SetOptions applies fn to a copy of the options, stores the result and
// notifies listeners.
func (b *Base[O]) SetOptions(fn func(*O)) {
	b.mu.Lock()
	prev := b.options
	next := prev
	fn(&next)
	b.options = next
	listeners := append([]func(prev, next O){}, b.listeners...)
	b.mu.Unlock()

	for _, l := range listeners {
		l(prev, next)
	}
}

// OnOptionsUpdate registers a listener called after every option update.
func (b *Base[O]) OnOptionsUpdate(fn func(prev, next O)) {
	b.mu.Lock()
	b.listeners = append(b.listeners, fn)
	b.mu.Unlock()
}

// DecodeOptions implements Configurable. Keys not present in raw keep their
// current value.
func (b *Base[O]) DecodeOptions(raw map[string]any) error {
	if len(raw) == 0 {
		return nil
	}
	data, err := toml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidOptions, b.name, err)
	}
	next := b.Options()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&next); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidOptions, b.name, err)
	}
	b.SetOptions(func(o *O) { *o = next })
	return nil
}
