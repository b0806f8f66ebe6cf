package state

import (
	"fmt"

	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/engine/transform"
)

// Selection is a text selection between Anchor and Head, or the selection
// of the whole document.
type Selection struct {
	Anchor int
	Head   int

	all bool
}

// TextSelection creates a text selection.
func TextSelection(anchor, head int) Selection {
	return Selection{Anchor: anchor, Head: head}
}

// Cursor creates a collapsed text selection.
func Cursor(pos int) Selection {
	return Selection{Anchor: pos, Head: pos}
}

// AllSelection selects the whole document.
func AllSelection(doc *model.Node) Selection {
	return Selection{Anchor: 0, Head: doc.Content.Size(), all: true}
}

// From returns the lower bound of the selection.
func (s Selection) From() int { return min(s.Anchor, s.Head) }

// To returns the upper bound of the selection.
func (s Selection) To() int { return max(s.Anchor, s.Head) }

// Empty reports whether the selection is collapsed.
func (s Selection) Empty() bool { return s.Anchor == s.Head }

// IsAll reports whether the selection covers the whole document.
func (s Selection) IsAll() bool { return s.all }

// CursorPos returns the cursor position when the selection is a collapsed
// text selection.
func (s Selection) CursorPos() (int, bool) {
	if s.all || !s.Empty() {
		return 0, false
	}
	return s.Head, true
}

// Eq reports whether two selections are equal.
func (s Selection) Eq(other Selection) bool {
	return s.Anchor == other.Anchor && s.Head == other.Head && s.all == other.all
}

// Map maps the selection through a mapping into doc. Endpoints that no
// longer point into inline content are moved to the nearest valid position.
func (s Selection) Map(doc *model.Node, mapping transform.Mappable) Selection {
	if s.all {
		return AllSelection(doc)
	}
	size := doc.Content.Size()
	head := clamp(mapping.Map(s.Head, 1), 0, size)
	if !inInlineContent(doc, head) {
		return Near(doc, head, 1)
	}
	anchor := clamp(mapping.Map(s.Anchor, 1), 0, size)
	if !inInlineContent(doc, anchor) {
		anchor = head
	}
	return TextSelection(anchor, head)
}

// ToJSON returns the JSON representation of the selection.
func (s Selection) ToJSON() map[string]any {
	if s.all {
		return map[string]any{"type": "all"}
	}
	return map[string]any{"type": "text", "anchor": s.Anchor, "head": s.Head}
}

func (s Selection) String() string {
	if s.all {
		return "all"
	}
	return fmt.Sprintf("%d-%d", s.Anchor, s.Head)
}

// SelectionFromJSON decodes a selection against doc.
func SelectionFromJSON(doc *model.Node, raw map[string]any) (Selection, error) {
	switch raw["type"] {
	case "all":
		return AllSelection(doc), nil
	case "text", nil:
		anchor, err := model.IntFromJSON(raw["anchor"])
		if err != nil {
			return Selection{}, err
		}
		head, err := model.IntFromJSON(raw["head"])
		if err != nil {
			return Selection{}, err
		}
		size := doc.Content.Size()
		if anchor < 0 || anchor > size || head < 0 || head > size {
			return Selection{}, fmt.Errorf("%w: selection %d-%d", ErrInvalidSelection, anchor, head)
		}
		return TextSelection(anchor, head), nil
	default:
		return Selection{}, fmt.Errorf("%w: type %v", ErrInvalidSelection, raw["type"])
	}
}

// Near returns a cursor at the inline position closest to pos, searching
// forward first when bias is positive and backward first otherwise.
func Near(doc *model.Node, pos, bias int) Selection {
	if inInlineContent(doc, pos) {
		return Cursor(pos)
	}
	before, after := -1, -1
	doc.Descendants(func(node *model.Node, p int, _ *model.Node, _ int) bool {
		if !node.IsTextblock() {
			return true
		}
		start, end := p+1, p+1+node.Content.Size()
		if end <= pos {
			before = end
		} else if after < 0 && start >= pos {
			after = start
		}
		return false
	})
	switch {
	case bias >= 0 && after >= 0:
		return Cursor(after)
	case before >= 0:
		return Cursor(before)
	case after >= 0:
		return Cursor(after)
	default:
		return Cursor(clamp(pos, 0, doc.Content.Size()))
	}
}

// AtStart returns a cursor at the first inline position of doc.
func AtStart(doc *model.Node) Selection { return Near(doc, 0, 1) }

// AtEnd returns a cursor at the last inline position of doc.
func AtEnd(doc *model.Node) Selection { return Near(doc, doc.Content.Size(), -1) }

func inInlineContent(doc *model.Node, pos int) bool {
	r, err := doc.Resolve(pos)
	if err != nil {
		return false
	}
	return r.Parent().InlineContent()
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
