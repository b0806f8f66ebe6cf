package extension

import (
	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/engine/view"
	"github.com/dshills/inkstorm/internal/logging"
)

// Lookup finds registered extensions by name or tag.
type Lookup interface {
	Extension(name string) (Extension, bool)
	ExtensionsByTag(tag Tag) []Extension
	Extensions() []Extension
}

// CreateContext is passed to plugin providers and OnCreate. Its store is
// writable.
type CreateContext struct {
	Store  *Store
	Schema *model.Schema
	Lookup Lookup
	Logger *logging.Logger
}

// ViewContext is passed to OnView.
type ViewContext struct {
	Store  *Store
	View   *view.View
	Lookup Lookup
	Logger *logging.Logger
}

// TransactionUpdate is passed to OnTransaction after a state update.
type TransactionUpdate struct {
	Store ReadStore

	// Tr is the dispatched transaction; Transactions also holds the ones
	// appended by plugins.
	Tr           *state.Transaction
	Transactions []*state.Transaction

	PrevState *state.EditorState
	State     *state.EditorState
}
