package transform

import "errors"

// Errors returned by transform operations.
var (
	// ErrUnknownStepType indicates a JSON step with an unregistered stepType.
	ErrUnknownStepType = errors.New("unknown step type")

	// ErrInvalidStepJSON indicates a malformed JSON step.
	ErrInvalidStepJSON = errors.New("invalid step json")

	// ErrStepFailed indicates a step could not be applied.
	ErrStepFailed = errors.New("step failed")
)

// StepError reports a step that failed to apply.
type StepError struct {
	Step   Step
	Reason string
}

func (e *StepError) Error() string {
	return "transform: step failed: " + e.Reason
}

// Unwrap returns ErrStepFailed.
func (e *StepError) Unwrap() error {
	return ErrStepFailed
}
