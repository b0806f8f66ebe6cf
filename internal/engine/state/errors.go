package state

import "errors"

// Errors returned by state operations.
var (
	// ErrMismatchedTransaction indicates a transaction built on a different document.
	ErrMismatchedTransaction = errors.New("applying a mismatched transaction")

	// ErrDuplicatePlugin indicates two plugins sharing one key.
	ErrDuplicatePlugin = errors.New("duplicate plugin key")

	// ErrInvalidSelection indicates a selection outside the document.
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrNoSchema indicates a state configuration without schema or document.
	ErrNoSchema = errors.New("state config requires a schema or a document")
)
