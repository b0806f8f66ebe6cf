package extension

import (
	"fmt"
	"sync"

	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/engine/view"
)

// Phase is the manager's lifecycle stage. Phases only move forward.
type Phase int

// Lifecycle phases.
const (
	PhaseNone Phase = iota
	PhaseCreate
	PhaseViewAttach
	PhaseRuntime
	PhaseDestroy
)

func (p Phase) String() string {
	switch p {
	case PhaseCreate:
		return "create"
	case PhaseViewAttach:
		return "view-attach"
	case PhaseRuntime:
		return "runtime"
	case PhaseDestroy:
		return "destroy"
	default:
		return "none"
	}
}

// ReadStore is the store as seen during the runtime phase.
type ReadStore interface {
	Phase() Phase
	Get(key string) (any, bool)
	Schema() *model.Schema
	View() (*view.View, error)
	State() (*state.EditorState, error)
}

// Store is the context shared by the manager and its extensions. Keys may
// be added at any phase before Destroy but not reassigned once the runtime
// phase begins.
type Store struct {
	mu     sync.RWMutex
	phase  Phase
	values map[string]any
	schema *model.Schema
	view   *view.View
}

// NewStore creates an empty store in PhaseNone.
func NewStore() *Store {
	return &Store{values: make(map[string]any)}
}

// Phase returns the current phase.
func (s *Store) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Advance moves to the next phase p. Skipping back or staying is an error.
func (s *Store) Advance(p Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p <= s.phase {
		return &PhaseError{Op: "advance to " + p.String(), Phase: s.phase, Required: p - 1}
	}
	s.phase = p
	return nil
}

// Set stores a value.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase >= PhaseDestroy {
		return &PhaseError{Op: "store set " + key, Phase: s.phase, Required: PhaseCreate}
	}
	if _, exists := s.values[key]; exists && s.phase >= PhaseRuntime {
		return fmt.Errorf("%w: %s", ErrStoreFrozen, key)
	}
	s.values[key] = value
	return nil
}

// Get returns a stored value.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Schema returns the merged schema, nil before the create phase.
func (s *Store) Schema() *model.Schema {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schema
}

// SetSchema records the merged schema. It is only allowed while creating.
func (s *Store) SetSchema(schema *model.Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseCreate {
		return &PhaseError{Op: "set schema", Phase: s.phase, Required: PhaseCreate}
	}
	s.schema = schema
	return nil
}

// SetView records the live view. It is only allowed while attaching.
func (s *Store) SetView(v *view.View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseViewAttach {
		return &PhaseError{Op: "set view", Phase: s.phase, Required: PhaseViewAttach}
	}
	s.view = v
	return nil
}

// View returns the live view. Before a view is attached it returns a
// *PhaseError.
func (s *Store) View() (*view.View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.phase < PhaseViewAttach || s.view == nil {
		return nil, &PhaseError{Op: "view", Phase: s.phase, Required: PhaseViewAttach}
	}
	return s.view, nil
}

// MustView is View that panics with the phase error.
func (s *Store) MustView() *view.View {
	v, err := s.View()
	if err != nil {
		panic(err)
	}
	return v
}

// State returns the live view's state.
func (s *Store) State() (*state.EditorState, error) {
	v, err := s.View()
	if err != nil {
		return nil, err
	}
	return v.State(), nil
}
