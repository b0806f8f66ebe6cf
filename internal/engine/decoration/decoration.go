// Package decoration provides immutable sets of decorations: annotations
// over document ranges that do not change the document itself and are
// remapped through every transaction.
package decoration

import (
	"sort"

	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/engine/transform"
)

// Kind distinguishes the decoration variants.
type Kind int

// Decoration kinds.
const (
	// Widget is a zero-width decoration at a single position.
	Widget Kind = iota

	// Inline decorates inline content in a range.
	Inline

	// NodeDeco decorates a single node, from its start to its end.
	NodeDeco
)

func (k Kind) String() string {
	switch k {
	case Widget:
		return "widget"
	case Inline:
		return "inline"
	case NodeDeco:
		return "node"
	default:
		return "unknown"
	}
}

// Decoration is an immutable annotation.
type Decoration struct {
	From  int
	To    int
	Kind  Kind
	Attrs map[string]string

	// Spec is free-form data identifying the decoration to its owner.
	Spec any

	// Side associates a widget with the content before it (negative) or
	// after it (zero or positive). A widget is dropped when the content it
	// is associated with is deleted.
	Side int

	// InclusiveStart and InclusiveEnd grow an inline decoration when
	// content is inserted at its edges.
	InclusiveStart bool
	InclusiveEnd   bool
}

// NewWidget creates a widget decoration at pos.
func NewWidget(pos int, spec any, side int) *Decoration {
	return &Decoration{From: pos, To: pos, Kind: Widget, Spec: spec, Side: side}
}

// NewInline creates an inline decoration over [from, to).
func NewInline(from, to int, attrs map[string]string, spec any) *Decoration {
	return &Decoration{From: from, To: to, Kind: Inline, Attrs: attrs, Spec: spec}
}

// NewNode creates a node decoration over the node at [from, to).
func NewNode(from, to int, attrs map[string]string, spec any) *Decoration {
	return &Decoration{From: from, To: to, Kind: NodeDeco, Attrs: attrs, Spec: spec}
}

// Map maps the decoration through a mapping. It returns nil when the
// decorated content was deleted.
func (d *Decoration) Map(mapping transform.Mappable) *Decoration {
	switch d.Kind {
	case Widget:
		assoc := 1
		if d.Side < 0 {
			assoc = -1
		}
		r := mapping.MapResult(d.From, assoc)
		if r.Deleted() {
			return nil
		}
		cp := *d
		cp.From, cp.To = r.Pos, r.Pos
		return &cp
	case Inline:
		startAssoc, endAssoc := 1, -1
		if d.InclusiveStart {
			startAssoc = -1
		}
		if d.InclusiveEnd {
			endAssoc = 1
		}
		from := mapping.Map(d.From, startAssoc)
		to := mapping.Map(d.To, endAssoc)
		if from >= to {
			return nil
		}
		cp := *d
		cp.From, cp.To = from, to
		return &cp
	default:
		from := mapping.MapResult(d.From, 1)
		to := mapping.MapResult(d.To, -1)
		if from.Deleted() || to.Deleted() || to.Pos <= from.Pos {
			return nil
		}
		cp := *d
		cp.From, cp.To = from.Pos, to.Pos
		return &cp
	}
}

// Set is an immutable, position-ordered collection of decorations.
type Set struct {
	decos []*Decoration
}

// Empty is the set without decorations.
var Empty = &Set{}

// Create builds a set from decorations. The document is accepted for parity
// with the engine contract and is not inspected.
func Create(_ *model.Node, decos ...*Decoration) *Set {
	return Empty.Add(nil, decos...)
}

// Len returns the number of decorations.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.decos)
}

// All returns the decorations in position order.
func (s *Set) All() []*Decoration {
	if s == nil {
		return nil
	}
	return append([]*Decoration(nil), s.decos...)
}

// Map maps every decoration through the mapping, dropping those whose
// content was deleted.
func (s *Set) Map(mapping transform.Mappable, _ *model.Node) *Set {
	if s.Len() == 0 {
		return Empty
	}
	out := make([]*Decoration, 0, len(s.decos))
	for _, d := range s.decos {
		if mapped := d.Map(mapping); mapped != nil {
			out = append(out, mapped)
		}
	}
	return newSet(out)
}

// Add returns a set with the decorations added.
func (s *Set) Add(_ *model.Node, decos ...*Decoration) *Set {
	if len(decos) == 0 {
		if s == nil {
			return Empty
		}
		return s
	}
	out := append(s.All(), decos...)
	return newSet(out)
}

// Remove returns a set without the given decorations. Decorations are
// compared by identity.
func (s *Set) Remove(decos ...*Decoration) *Set {
	if s.Len() == 0 || len(decos) == 0 {
		return s
	}
	drop := make(map[*Decoration]bool, len(decos))
	for _, d := range decos {
		drop[d] = true
	}
	out := make([]*Decoration, 0, len(s.decos))
	for _, d := range s.decos {
		if !drop[d] {
			out = append(out, d)
		}
	}
	return newSet(out)
}

// Find returns decorations touching [from, to] that satisfy pred. A nil
// predicate matches all. Negative bounds select the whole set.
func (s *Set) Find(from, to int, pred func(spec any) bool) []*Decoration {
	if s.Len() == 0 {
		return nil
	}
	var out []*Decoration
	for _, d := range s.decos {
		if from >= 0 && d.To < from {
			continue
		}
		if to >= 0 && d.From > to {
			continue
		}
		if pred == nil || pred(d.Spec) {
			out = append(out, d)
		}
	}
	return out
}

func newSet(decos []*Decoration) *Set {
	if len(decos) == 0 {
		return Empty
	}
	sort.SliceStable(decos, func(i, j int) bool {
		if decos[i].From != decos[j].From {
			return decos[i].From < decos[j].From
		}
		return decos[i].To < decos[j].To
	})
	return &Set{decos: decos}
}
