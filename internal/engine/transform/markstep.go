package transform

import (
	"fmt"

	"github.com/dshills/inkstorm/internal/engine/model"
)

func mapFragment(fragment *model.Fragment, fn func(node, parent *model.Node) *model.Node, parent *model.Node) *model.Fragment {
	mapped := make([]*model.Node, 0, fragment.ChildCount())
	fragment.ForEach(func(child *model.Node, _, _ int) {
		if child.Content != nil && child.Content.Size() > 0 {
			child = child.Copy(mapFragment(child.Content, fn, child))
		}
		if child.IsInline() {
			child = fn(child, parent)
		}
		mapped = append(mapped, child)
	})
	return model.NewFragment(mapped...)
}

func applyMarkChange(doc *model.Node, from, to int, change func(node *model.Node) *model.Node, markType *model.MarkType) StepResult {
	oldSlice, err := doc.Slice(from, to)
	if err != nil {
		return failResult(err.Error())
	}
	rfrom, err := doc.Resolve(from)
	if err != nil {
		return failResult(err.Error())
	}
	parent := rfrom.Node(rfrom.SharedDepth(to))
	content := mapFragment(oldSlice.Content, func(node, parent *model.Node) *model.Node {
		if !node.IsAtom() || (markType != nil && !parent.Type.AllowsMarkType(markType)) {
			return node
		}
		return change(node)
	}, parent)
	return resultFromReplace(doc, from, to, model.NewSlice(content, oldSlice.OpenStart, oldSlice.OpenEnd))
}

// AddMarkStep adds a mark to all inline content in a range.
type AddMarkStep struct {
	From int
	To   int
	Mark *model.Mark
}

// Apply implements Step.
func (s *AddMarkStep) Apply(doc *model.Node) StepResult {
	return applyMarkChange(doc, s.From, s.To, func(node *model.Node) *model.Node {
		return node.Mark(s.Mark.AddToSet(node.Marks))
	}, s.Mark.Type)
}

// GetMap implements Step.
func (s *AddMarkStep) GetMap() *StepMap { return EmptyStepMap }

// Invert implements Step.
func (s *AddMarkStep) Invert(*model.Node) Step {
	return &RemoveMarkStep{From: s.From, To: s.To, Mark: s.Mark}
}

// Map implements Step.
func (s *AddMarkStep) Map(mapping Mappable) Step {
	from := mapping.MapResult(s.From, 1)
	to := mapping.MapResult(s.To, -1)
	if (from.Deleted() && to.Deleted()) || from.Pos >= to.Pos {
		return nil
	}
	return &AddMarkStep{From: from.Pos, To: to.Pos, Mark: s.Mark}
}

// Merge implements Step.
func (s *AddMarkStep) Merge(other Step) Step {
	o, ok := other.(*AddMarkStep)
	if !ok || !o.Mark.Eq(s.Mark) || s.From > o.To || s.To < o.From {
		return nil
	}
	return &AddMarkStep{From: min(s.From, o.From), To: max(s.To, o.To), Mark: s.Mark}
}

// ToJSON implements Step.
func (s *AddMarkStep) ToJSON() map[string]any {
	return map[string]any{"stepType": "addMark", "mark": s.Mark.ToJSON(), "from": s.From, "to": s.To}
}

func (s *AddMarkStep) String() string {
	return fmt.Sprintf("addMark(%d-%d, %s)", s.From, s.To, s.Mark)
}

// RemoveMarkStep removes a mark from all inline content in a range.
type RemoveMarkStep struct {
	From int
	To   int
	Mark *model.Mark
}

// Apply implements Step.
func (s *RemoveMarkStep) Apply(doc *model.Node) StepResult {
	return applyMarkChange(doc, s.From, s.To, func(node *model.Node) *model.Node {
		return node.Mark(s.Mark.RemoveFromSet(node.Marks))
	}, nil)
}

// GetMap implements Step.
func (s *RemoveMarkStep) GetMap() *StepMap { return EmptyStepMap }

// Invert implements Step.
func (s *RemoveMarkStep) Invert(*model.Node) Step {
	return &AddMarkStep{From: s.From, To: s.To, Mark: s.Mark}
}

// Map implements Step.
func (s *RemoveMarkStep) Map(mapping Mappable) Step {
	from := mapping.MapResult(s.From, 1)
	to := mapping.MapResult(s.To, -1)
	if (from.Deleted() && to.Deleted()) || from.Pos >= to.Pos {
		return nil
	}
	return &RemoveMarkStep{From: from.Pos, To: to.Pos, Mark: s.Mark}
}

// Merge implements Step.
func (s *RemoveMarkStep) Merge(other Step) Step {
	o, ok := other.(*RemoveMarkStep)
	if !ok || !o.Mark.Eq(s.Mark) || s.From > o.To || s.To < o.From {
		return nil
	}
	return &RemoveMarkStep{From: min(s.From, o.From), To: max(s.To, o.To), Mark: s.Mark}
}

// ToJSON implements Step.
func (s *RemoveMarkStep) ToJSON() map[string]any {
	return map[string]any{"stepType": "removeMark", "mark": s.Mark.ToJSON(), "from": s.From, "to": s.To}
}

func (s *RemoveMarkStep) String() string {
	return fmt.Sprintf("removeMark(%d-%d, %s)", s.From, s.To, s.Mark)
}

func markStepFromJSON(schema *model.Schema, raw map[string]any) (int, int, *model.Mark, error) {
	pos, err := positionsFromJSON(raw, "from", "to")
	if err != nil {
		return 0, 0, nil, err
	}
	markJSON, ok := raw["mark"].(map[string]any)
	if !ok {
		return 0, 0, nil, fmt.Errorf("%w: mark must be an object", ErrInvalidStepJSON)
	}
	mark, err := schema.MarkFromJSON(markJSON)
	if err != nil {
		return 0, 0, nil, err
	}
	return pos[0], pos[1], mark, nil
}
