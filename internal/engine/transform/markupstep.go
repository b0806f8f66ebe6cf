package transform

import (
	"fmt"

	"github.com/dshills/inkstorm/internal/engine/model"
)

// SetNodeMarkupStep changes the type, attributes and marks of the node at
// Pos, keeping its content. It does not change the document size.
type SetNodeMarkupStep struct {
	Pos   int
	Type  *model.NodeType
	Attrs model.Attrs
	Marks []*model.Mark
}

// Apply implements Step.
func (s *SetNodeMarkupStep) Apply(doc *model.Node) StepResult {
	node := doc.NodeAt(s.Pos)
	if node == nil || node.IsText() {
		return failResult(fmt.Sprintf("no node at position %d", s.Pos))
	}
	updated, err := s.Type.CreateChecked(s.Attrs, node.Content, s.Marks)
	if err != nil {
		return failResult(err.Error())
	}
	if updated.NodeSize() != node.NodeSize() {
		return failResult("node markup change would change size")
	}
	rpos, err := doc.Resolve(s.Pos)
	if err != nil {
		return failResult(err.Error())
	}
	if !rpos.Parent().Type.ValidContent(rpos.Parent().Content.ReplaceChild(rpos.Index(rpos.Depth), updated)) {
		return failResult(fmt.Sprintf("%s not allowed in %s", s.Type.Name, rpos.Parent().Type.Name))
	}
	return resultFromReplace(doc, s.Pos, s.Pos+node.NodeSize(), model.NewSlice(model.NewFragment(updated), 0, 0))
}

// GetMap implements Step.
func (s *SetNodeMarkupStep) GetMap() *StepMap { return EmptyStepMap }

// Invert implements Step.
func (s *SetNodeMarkupStep) Invert(doc *model.Node) Step {
	node := doc.NodeAt(s.Pos)
	if node == nil {
		return s
	}
	return &SetNodeMarkupStep{Pos: s.Pos, Type: node.Type, Attrs: node.Attrs, Marks: node.Marks}
}

// Map implements Step.
func (s *SetNodeMarkupStep) Map(mapping Mappable) Step {
	pos := mapping.MapResult(s.Pos, 1)
	if pos.DeletedAfter() {
		return nil
	}
	return &SetNodeMarkupStep{Pos: pos.Pos, Type: s.Type, Attrs: s.Attrs, Marks: s.Marks}
}

// Merge implements Step.
func (s *SetNodeMarkupStep) Merge(Step) Step { return nil }

// ToJSON implements Step.
func (s *SetNodeMarkupStep) ToJSON() map[string]any {
	out := map[string]any{"stepType": "setNodeMarkup", "pos": s.Pos, "type": s.Type.Name}
	if len(s.Attrs) > 0 {
		out["attrs"] = map[string]any(s.Attrs.Clone())
	}
	if len(s.Marks) > 0 {
		marks := make([]any, len(s.Marks))
		for i, m := range s.Marks {
			marks[i] = m.ToJSON()
		}
		out["marks"] = marks
	}
	return out
}

func (s *SetNodeMarkupStep) String() string {
	return fmt.Sprintf("setNodeMarkup(%d, %s)", s.Pos, s.Type.Name)
}

func setNodeMarkupStepFromJSON(schema *model.Schema, raw map[string]any) (Step, error) {
	pos, err := positionsFromJSON(raw, "pos")
	if err != nil {
		return nil, err
	}
	name, _ := raw["type"].(string)
	nt, ok := schema.NodeType(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownNodeType, name)
	}
	step := &SetNodeMarkupStep{Pos: pos[0], Type: nt}
	if attrs, ok := raw["attrs"].(map[string]any); ok {
		step.Attrs = model.Attrs(attrs).Clone()
	}
	if list, ok := raw["marks"].([]any); ok {
		for _, item := range list {
			mj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: mark must be an object", ErrInvalidStepJSON)
			}
			m, err := schema.MarkFromJSON(mj)
			if err != nil {
				return nil, err
			}
			step.Marks = append(step.Marks, m)
		}
	}
	return step, nil
}
