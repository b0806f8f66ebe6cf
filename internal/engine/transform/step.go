package transform

import (
	"errors"
	"fmt"

	"github.com/dshills/inkstorm/internal/engine/model"
)

// Step is an atomic change to a document. Applying a step either produces a
// new document or fails.
type Step interface {
	// Apply applies the step to a document.
	Apply(doc *model.Node) StepResult

	// GetMap returns the position map describing the step's changes.
	GetMap() *StepMap

	// Invert returns a step that undoes this one, given the document the
	// step was applied to.
	Invert(doc *model.Node) Step

	// Map maps the step through a mapping. It returns nil when the step's
	// content was deleted.
	Map(mapping Mappable) Step

	// Merge tries to combine this step with a step applied directly after
	// it. It returns nil when the steps cannot be merged.
	Merge(other Step) Step

	// ToJSON returns the JSON representation of the step.
	ToJSON() map[string]any
}

// StepResult is the result of applying a step.
type StepResult struct {
	Doc    *model.Node
	Failed string
}

// OK reports whether the step applied.
func (r StepResult) OK() bool { return r.Failed == "" }

func okResult(doc *model.Node) StepResult { return StepResult{Doc: doc} }

func failResult(msg string) StepResult { return StepResult{Failed: msg} }

func resultFromReplace(doc *model.Node, from, to int, slice *model.Slice) StepResult {
	out, err := doc.Replace(from, to, slice)
	if err != nil {
		var rerr *model.ReplaceError
		if errors.As(err, &rerr) {
			return failResult(rerr.Message)
		}
		return failResult(err.Error())
	}
	return okResult(out)
}

// StepDecoder rebuilds a step from its JSON representation.
type StepDecoder func(schema *model.Schema, raw map[string]any) (Step, error)

var stepDecoders = map[string]StepDecoder{}

// RegisterStep registers a JSON decoder for a step type. It panics when the
// id is registered twice.
func RegisterStep(id string, dec StepDecoder) {
	if _, dup := stepDecoders[id]; dup {
		panic(fmt.Sprintf("transform: duplicate step type %q", id))
	}
	stepDecoders[id] = dec
}

// StepFromJSON decodes a step.
func StepFromJSON(schema *model.Schema, raw map[string]any) (Step, error) {
	id, _ := raw["stepType"].(string)
	dec, ok := stepDecoders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStepType, id)
	}
	return dec(schema, raw)
}

func init() {
	RegisterStep("replace", replaceStepFromJSON)
	RegisterStep("addMark", func(schema *model.Schema, raw map[string]any) (Step, error) {
		from, to, mark, err := markStepFromJSON(schema, raw)
		if err != nil {
			return nil, err
		}
		return &AddMarkStep{From: from, To: to, Mark: mark}, nil
	})
	RegisterStep("removeMark", func(schema *model.Schema, raw map[string]any) (Step, error) {
		from, to, mark, err := markStepFromJSON(schema, raw)
		if err != nil {
			return nil, err
		}
		return &RemoveMarkStep{From: from, To: to, Mark: mark}, nil
	})
	RegisterStep("setNodeMarkup", setNodeMarkupStepFromJSON)
}

func positionsFromJSON(raw map[string]any, keys ...string) ([]int, error) {
	out := make([]int, len(keys))
	for i, k := range keys {
		v, ok := raw[k]
		if !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrInvalidStepJSON, k)
		}
		n, err := model.IntFromJSON(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidStepJSON, k, err)
		}
		out[i] = n
	}
	return out, nil
}
