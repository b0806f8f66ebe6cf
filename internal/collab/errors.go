package collab

import "errors"

// Errors returned by authorities and providers.
var (
	// ErrClosed is returned after a provider was closed.
	ErrClosed = errors.New("collab provider closed")

	// ErrVersionAhead is returned for a version the authority has not reached.
	ErrVersionAhead = errors.New("version is ahead of the authority")

	// ErrEmptyClientID is returned when steps carry no client id.
	ErrEmptyClientID = errors.New("steps require a client id")
)
