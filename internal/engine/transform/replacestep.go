package transform

import (
	"fmt"

	"github.com/dshills/inkstorm/internal/engine/model"
)

// ReplaceStep replaces the range [From, To) with a slice. A structure step
// refuses to overwrite content and is used for splitting and joining.
type ReplaceStep struct {
	From      int
	To        int
	Slice     *model.Slice
	Structure bool
}

// NewReplaceStep creates a replace step.
func NewReplaceStep(from, to int, slice *model.Slice, structure bool) *ReplaceStep {
	if slice == nil {
		slice = model.EmptySlice
	}
	return &ReplaceStep{From: from, To: to, Slice: slice, Structure: structure}
}

// Apply implements Step.
func (s *ReplaceStep) Apply(doc *model.Node) StepResult {
	if s.Structure && contentBetween(doc, s.From, s.To) {
		return failResult("structure replace would overwrite content")
	}
	return resultFromReplace(doc, s.From, s.To, s.Slice)
}

// GetMap implements Step.
func (s *ReplaceStep) GetMap() *StepMap {
	return NewStepMap(s.From, s.To-s.From, s.Slice.Size())
}

// Invert implements Step.
func (s *ReplaceStep) Invert(doc *model.Node) Step {
	slice, err := doc.Slice(s.From, s.To)
	if err != nil {
		slice = model.EmptySlice
	}
	return NewReplaceStep(s.From, s.From+s.Slice.Size(), slice, false)
}

// Map implements Step.
func (s *ReplaceStep) Map(mapping Mappable) Step {
	from := mapping.MapResult(s.From, 1)
	to := mapping.MapResult(s.To, -1)
	if from.DeletedAcross() && to.DeletedAcross() {
		return nil
	}
	return NewReplaceStep(from.Pos, max(from.Pos, to.Pos), s.Slice, s.Structure)
}

// Merge implements Step.
func (s *ReplaceStep) Merge(other Step) Step {
	o, ok := other.(*ReplaceStep)
	if !ok || o.Structure || s.Structure {
		return nil
	}
	switch {
	case s.From+s.Slice.Size() == o.From && s.Slice.OpenEnd == 0 && o.Slice.OpenStart == 0:
		slice := model.EmptySlice
		if s.Slice.Size()+o.Slice.Size() != 0 {
			slice = model.NewSlice(s.Slice.Content.Append(o.Slice.Content), s.Slice.OpenStart, o.Slice.OpenEnd)
		}
		return NewReplaceStep(s.From, s.To+(o.To-o.From), slice, false)
	case o.To == s.From && s.Slice.OpenStart == 0 && o.Slice.OpenEnd == 0:
		slice := model.EmptySlice
		if s.Slice.Size()+o.Slice.Size() != 0 {
			slice = model.NewSlice(o.Slice.Content.Append(s.Slice.Content), o.Slice.OpenStart, s.Slice.OpenEnd)
		}
		return NewReplaceStep(o.From, s.To, slice, false)
	default:
		return nil
	}
}

// ToJSON implements Step.
func (s *ReplaceStep) ToJSON() map[string]any {
	out := map[string]any{"stepType": "replace", "from": s.From, "to": s.To}
	if js := s.Slice.ToJSON(); js != nil {
		out["slice"] = js
	}
	if s.Structure {
		out["structure"] = true
	}
	return out
}

func (s *ReplaceStep) String() string {
	return fmt.Sprintf("replace(%d-%d, %s)", s.From, s.To, s.Slice)
}

func replaceStepFromJSON(schema *model.Schema, raw map[string]any) (Step, error) {
	pos, err := positionsFromJSON(raw, "from", "to")
	if err != nil {
		return nil, err
	}
	var sliceJSON map[string]any
	if v, ok := raw["slice"]; ok && v != nil {
		if sliceJSON, ok = v.(map[string]any); !ok {
			return nil, fmt.Errorf("%w: slice must be an object", ErrInvalidStepJSON)
		}
	}
	slice, err := schema.SliceFromJSON(sliceJSON)
	if err != nil {
		return nil, err
	}
	structure, _ := raw["structure"].(bool)
	return NewReplaceStep(pos[0], pos[1], slice, structure), nil
}

// contentBetween reports whether there is content other than node
// boundaries between from and to.
func contentBetween(doc *model.Node, from, to int) bool {
	rfrom, err := doc.Resolve(from)
	if err != nil {
		return true
	}
	dist := to - from
	depth := rfrom.Depth
	for dist > 0 && depth > 0 && rfrom.IndexAfter(depth) == rfrom.Node(depth).ChildCount() {
		depth--
		dist--
	}
	if dist > 0 {
		next := rfrom.Node(depth).MaybeChild(rfrom.IndexAfter(depth))
		for dist > 0 {
			if next == nil || next.IsLeaf() {
				return true
			}
			next = next.FirstChild()
			dist--
		}
	}
	return false
}
