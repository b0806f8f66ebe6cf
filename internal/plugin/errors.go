package plugin

import "errors"

// Adapter errors.
var (
	// ErrPluginStateNotFound is returned when no plugin with the key is
	// registered in the state.
	ErrPluginStateNotFound = errors.New("plugin state not found")

	// ErrStateType is returned when the stored state has another type.
	ErrStateType = errors.New("plugin state has unexpected type")
)
