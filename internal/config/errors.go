package config

import (
	"errors"
	"fmt"
)

// ErrInvalidValue is returned when a setting has the wrong type.
var ErrInvalidValue = errors.New("invalid config value")

// ValueError names the setting that failed to decode.
type ValueError struct {
	Path string
	Want string
	Got  any
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: want %s, got %T", e.Path, e.Want, e.Got)
}

func (e *ValueError) Unwrap() error { return ErrInvalidValue }
