package model

import (
	"encoding/json"
	"fmt"
)

// ToJSON returns the JSON representation of the node.
func (n *Node) ToJSON() map[string]any {
	out := map[string]any{"type": n.Type.Name}
	if len(n.Attrs) > 0 {
		out["attrs"] = map[string]any(n.Attrs.Clone())
	}
	if n.IsText() {
		out["text"] = n.Text
	} else if content := n.content().ToJSON(); content != nil {
		out["content"] = content
	}
	if len(n.Marks) > 0 {
		marks := make([]any, len(n.Marks))
		for i, m := range n.Marks {
			marks[i] = m.ToJSON()
		}
		out["marks"] = marks
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.ToJSON())
}

// NodeFromJSON rebuilds a node from its JSON representation.
func (s *Schema) NodeFromJSON(raw map[string]any) (*Node, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: nil node", ErrInvalidJSON)
	}
	typeName, ok := raw["type"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: node without type", ErrInvalidJSON)
	}
	nt, ok := s.nodes[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNodeType, typeName)
	}

	var marks []*Mark
	if rawMarks, ok := raw["marks"]; ok {
		list, ok := rawMarks.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: marks must be a list", ErrInvalidJSON)
		}
		for _, rm := range list {
			m, ok := rm.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: mark must be an object", ErrInvalidJSON)
			}
			mark, err := s.MarkFromJSON(m)
			if err != nil {
				return nil, err
			}
			marks = append(marks, mark)
		}
	}

	if nt.IsText() {
		text, ok := raw["text"].(string)
		if !ok || text == "" {
			return nil, fmt.Errorf("%w: text node without text", ErrInvalidJSON)
		}
		return s.Text(text, marks...), nil
	}

	attrs, err := attrsFromJSON(raw["attrs"])
	if err != nil {
		return nil, err
	}
	content, err := s.FragmentFromJSON(raw["content"])
	if err != nil {
		return nil, err
	}
	return nt.CreateChecked(attrs, content, marks)
}

// NodeFromJSONBytes decodes a node from encoded JSON.
func (s *Schema) NodeFromJSONBytes(data []byte) (*Node, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return s.NodeFromJSON(raw)
}

// FragmentFromJSON rebuilds a fragment from a JSON list of nodes.
func (s *Schema) FragmentFromJSON(raw any) (*Fragment, error) {
	if raw == nil {
		return EmptyFragment, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: content must be a list", ErrInvalidJSON)
	}
	nodes := make([]*Node, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: node must be an object", ErrInvalidJSON)
		}
		n, err := s.NodeFromJSON(m)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return NewFragment(nodes...), nil
}

// MarkFromJSON rebuilds a mark from its JSON representation.
func (s *Schema) MarkFromJSON(raw map[string]any) (*Mark, error) {
	typeName, ok := raw["type"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: mark without type", ErrInvalidJSON)
	}
	mt, ok := s.marks[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMarkType, typeName)
	}
	attrs, err := attrsFromJSON(raw["attrs"])
	if err != nil {
		return nil, err
	}
	return mt.Create(attrs)
}

// SliceFromJSON rebuilds a slice. A nil value yields EmptySlice.
func (s *Schema) SliceFromJSON(raw map[string]any) (*Slice, error) {
	if raw == nil {
		return EmptySlice, nil
	}
	content, err := s.FragmentFromJSON(raw["content"])
	if err != nil {
		return nil, err
	}
	openStart, err := IntFromJSON(raw["openStart"])
	if err != nil {
		return nil, err
	}
	openEnd, err := IntFromJSON(raw["openEnd"])
	if err != nil {
		return nil, err
	}
	return NewSlice(content, openStart, openEnd), nil
}

func attrsFromJSON(raw any) (Attrs, error) {
	if raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case map[string]any:
		return Attrs(v).Clone(), nil
	case Attrs:
		return v.Clone(), nil
	default:
		return nil, fmt.Errorf("%w: attrs must be an object", ErrInvalidJSON)
	}
}

// IntFromJSON converts a decoded JSON number to an int.
func IntFromJSON(raw any) (int, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case float64:
		return int(v), nil
	case json.Number:
		i, err := v.Int64()
		return int(i), err
	default:
		return 0, fmt.Errorf("%w: expected number, got %T", ErrInvalidJSON, raw)
	}
}
