package model

import (
	"errors"
	"fmt"
)

// Errors returned by model operations.
var (
	// ErrUnknownNodeType indicates a node type name missing from the schema.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrUnknownMarkType indicates a mark type name missing from the schema.
	ErrUnknownMarkType = errors.New("unknown mark type")

	// ErrInvalidContent indicates content that does not satisfy a node's content expression.
	ErrInvalidContent = errors.New("invalid content")

	// ErrMissingAttribute indicates a required attribute was not supplied.
	ErrMissingAttribute = errors.New("missing required attribute")

	// ErrPositionOutOfRange indicates a position outside the document.
	ErrPositionOutOfRange = errors.New("position out of range")

	// ErrInvalidSchema indicates a schema specification that cannot be built.
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrInvalidJSON indicates a malformed JSON document representation.
	ErrInvalidJSON = errors.New("invalid document json")
)

// ReplaceError is returned when a replace operation cannot produce a valid document.
type ReplaceError struct {
	Message string
}

func (e *ReplaceError) Error() string {
	return "replace: " + e.Message
}

func replaceErrorf(format string, args ...any) *ReplaceError {
	return &ReplaceError{Message: fmt.Sprintf(format, args...)}
}
