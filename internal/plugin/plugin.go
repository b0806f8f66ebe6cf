package plugin

import (
	"fmt"

	"github.com/dshills/inkstorm/internal/engine/state"
)

// InitFunc creates a plugin's initial state.
type InitFunc[S any] func(cfg state.Config, s *state.EditorState) S

// ApplyFunc computes the next plugin state for a transaction.
type ApplyFunc[S any] func(tr *state.Transaction, value S, oldState, newState *state.EditorState) S

// Option configures the non-state parts of a plugin.
type Option func(spec *state.PluginSpec)

// WithProps sets the plugin's view props.
func WithProps(props state.Props) Option {
	return func(spec *state.PluginSpec) { spec.Props = props }
}

// WithAppendTransaction sets the appendTransaction hook.
func WithAppendTransaction(fn func(trs []*state.Transaction, oldState, newState *state.EditorState) *state.Transaction) Option {
	return func(spec *state.PluginSpec) { spec.AppendTransaction = fn }
}

// WithFilterTransaction sets the transaction filter.
func WithFilterTransaction(fn func(tr *state.Transaction, s *state.EditorState) bool) Option {
	return func(spec *state.PluginSpec) { spec.FilterTransaction = fn }
}

// WithView sets the plugin view constructor.
func WithView(fn func(v state.EditorView) state.PluginView) Option {
	return func(spec *state.PluginSpec) { spec.View = fn }
}

// New creates a plugin whose state is typed S. A nil apply keeps the
// initial state for the editor's lifetime. Both may be nil for plugins
// that only contribute props or hooks.
func New[S any](key *state.PluginKey, init InitFunc[S], apply ApplyFunc[S], opts ...Option) *state.Plugin {
	spec := state.PluginSpec{Key: key}
	if init != nil {
		field := &state.StateField{
			Init: func(cfg state.Config, s *state.EditorState) any { return init(cfg, s) },
		}
		if apply != nil {
			field.Apply = func(tr *state.Transaction, value any, oldState, newState *state.EditorState) any {
				prev, _ := value.(S)
				return apply(tr, prev, oldState, newState)
			}
		}
		spec.State = field
	}
	for _, opt := range opts {
		opt(&spec)
	}
	return state.NewPlugin(spec)
}

// Stateless creates a plugin without state.
func Stateless(key *state.PluginKey, opts ...Option) *state.Plugin {
	return New[struct{}](key, nil, nil, opts...)
}

// GetState returns the state stored under key.
func GetState[S any](key *state.PluginKey, s *state.EditorState) (S, error) {
	var zero S
	v, ok := s.PluginState(key)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrPluginStateNotFound, key)
	}
	typed, ok := v.(S)
	if !ok {
		return zero, fmt.Errorf("%w: %s holds %T, want %T", ErrStateType, key, v, zero)
	}
	return typed, nil
}

// MustGetState is GetState that panics on error.
func MustGetState[S any](key *state.PluginKey, s *state.EditorState) S {
	v, err := GetState[S](key, s)
	if err != nil {
		panic(err)
	}
	return v
}

// Meta returns the transaction metadata stored under key, typed M.
func Meta[M any](tr *state.Transaction, key *state.PluginKey) (M, bool) {
	v, ok := tr.GetMeta(key).(M)
	return v, ok
}
