package manager

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrNameCollision indicates two extensions, nodes or marks sharing a
	// name at the same priority.
	ErrNameCollision = errors.New("name collision")

	// ErrDuplicateCommand indicates two extensions exporting one command name.
	ErrDuplicateCommand = errors.New("duplicate command")

	// ErrDuplicateHelper indicates two extensions exporting one helper name.
	ErrDuplicateHelper = errors.New("duplicate helper")

	// ErrEmptyName indicates an extension without a name.
	ErrEmptyName = errors.New("extension name is empty")

	// ErrUnknownCommand indicates a command name not registered.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUnknownHelper indicates a helper name not registered.
	ErrUnknownHelper = errors.New("unknown helper")

	// ErrUnknownExtension indicates configuration for an extension not registered.
	ErrUnknownExtension = errors.New("unknown extension")

	// ErrUnsupportedContent indicates initial content of an unsupported type.
	ErrUnsupportedContent = errors.New("unsupported content")
)

// ConfigError reports a problem found while building the manager.
type ConfigError struct {
	Extension string
	Name      string
	Err       error
}

func (e *ConfigError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("extension %q: %v", e.Extension, e.Err)
	}
	return fmt.Sprintf("extension %q: %s: %v", e.Extension, e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }
