package extension

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrPhase indicates an operation outside the lifecycle phase that
	// allows it.
	ErrPhase = errors.New("invalid lifecycle phase")

	// ErrStoreFrozen indicates reassigning a store key after the runtime
	// phase began.
	ErrStoreFrozen = errors.New("store key cannot be reassigned at runtime")

	// ErrInvalidOptions indicates options that cannot be decoded.
	ErrInvalidOptions = errors.New("invalid extension options")
)

// PhaseError reports an operation attempted in the wrong phase.
type PhaseError struct {
	Op       string
	Phase    Phase
	Required Phase
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: requires phase %s or later, current phase is %s", e.Op, e.Required, e.Phase)
}

// Unwrap returns ErrPhase.
func (e *PhaseError) Unwrap() error { return ErrPhase }
