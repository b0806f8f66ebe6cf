package plugin

import "github.com/dshills/inkstorm/internal/engine/state"

// Container binds a plugin key to its state type, so an extension and the
// extensions reading its state share one typed accessor.
type Container[S any] struct {
	key *state.PluginKey
}

// NewContainer creates a container with a fresh key derived from name.
func NewContainer[S any](name string) *Container[S] {
	return &Container[S]{key: state.NewPluginKey(name)}
}

// Key returns the stable plugin key.
func (c *Container[S]) Key() *state.PluginKey { return c.key }

// Plugin creates the plugin owning the container's state.
func (c *Container[S]) Plugin(init InitFunc[S], apply ApplyFunc[S], opts ...Option) *state.Plugin {
	return New(c.key, init, apply, opts...)
}

// Get returns the state in s.
func (c *Container[S]) Get(s *state.EditorState) (S, error) {
	return GetState[S](c.key, s)
}

// MustGet returns the state in s and panics when it is missing.
func (c *Container[S]) MustGet(s *state.EditorState) S {
	return MustGetState[S](c.key, s)
}

// SetMeta stores an instruction for the plugin's apply function.
func (c *Container[S]) SetMeta(tr *state.Transaction, meta any) *state.Transaction {
	return tr.SetMeta(c.key, meta)
}

// Meta returns the instruction stored by SetMeta.
func (c *Container[S]) Meta(tr *state.Transaction) (any, bool) {
	if !tr.HasMeta(c.key) {
		return nil, false
	}
	return tr.GetMeta(c.key), true
}
