package model

import (
	"reflect"
	"sort"
)

// Mark is a piece of information attached to inline content, such as
// emphasis or a link target. Marks are immutable.
type Mark struct {
	Type  *MarkType
	Attrs Attrs
}

// Eq reports whether two marks have the same type and attributes.
func (m *Mark) Eq(other *Mark) bool {
	if m == other {
		return true
	}
	if m == nil || other == nil {
		return false
	}
	return m.Type == other.Type && attrsEqual(m.Attrs, other.Attrs)
}

// AddToSet returns a set with this mark added, replacing marks it excludes.
// If the set already contains this mark, or a mark that excludes it, the
// set is returned unchanged.
func (m *Mark) AddToSet(set []*Mark) []*Mark {
	var out []*Mark
	copied := false
	placed := false
	for i, other := range set {
		if m.Eq(other) {
			return set
		}
		if m.Type.Excludes(other.Type) {
			if !copied {
				out = append([]*Mark(nil), set[:i]...)
				copied = true
			}
			continue
		}
		if other.Type.Excludes(m.Type) {
			return set
		}
		if !placed && other.Type.rank > m.Type.rank {
			if !copied {
				out = append([]*Mark(nil), set[:i]...)
				copied = true
			}
			out = append(out, m)
			placed = true
		}
		if copied {
			out = append(out, other)
		}
	}
	if !copied {
		out = append([]*Mark(nil), set...)
	}
	if !placed {
		out = append(out, m)
	}
	return out
}

// RemoveFromSet returns the set without this mark.
func (m *Mark) RemoveFromSet(set []*Mark) []*Mark {
	for i, other := range set {
		if m.Eq(other) {
			out := append([]*Mark(nil), set[:i]...)
			return append(out, set[i+1:]...)
		}
	}
	return set
}

// IsInSet reports whether the set contains this mark.
func (m *Mark) IsInSet(set []*Mark) bool {
	for _, other := range set {
		if m.Eq(other) {
			return true
		}
	}
	return false
}

// ToJSON returns the JSON representation of the mark.
func (m *Mark) ToJSON() map[string]any {
	out := map[string]any{"type": m.Type.Name}
	if len(m.Attrs) > 0 {
		out["attrs"] = map[string]any(m.Attrs.Clone())
	}
	return out
}

func (m *Mark) String() string {
	return m.Type.Name
}

// SameMarkSet reports whether two mark sets are equal.
func SameMarkSet(a, b []*Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Eq(b[i]) {
			return false
		}
	}
	return true
}

// MarkSetFrom builds a sorted, de-duplicated mark set.
func MarkSetFrom(marks ...*Mark) []*Mark {
	var set []*Mark
	for _, m := range marks {
		if m != nil {
			set = m.AddToSet(set)
		}
	}
	return set
}

func sortMarks(marks []*Mark) []*Mark {
	if len(marks) < 2 {
		if len(marks) == 0 {
			return nil
		}
		return marks
	}
	out := append([]*Mark(nil), marks...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Type.rank < out[j].Type.rank })
	return out
}

func attrsEqual(a, b Attrs) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !valuesEqual(av, bv) {
			return false
		}
	}
	return true
}

// valuesEqual compares attribute values, treating numbers of different Go
// types as equal when their values match so JSON round trips are stable.
func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}
