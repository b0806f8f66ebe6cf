// Package textrange holds position and range helpers shared by the
// reconciliation extensions: text windows where every rune is one document
// position, regex matching over them, mark ranges and changed ranges.
package textrange

import (
	"regexp"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/engine/transform"
)

// LeafChar stands in for an inline leaf node in a text window. It is never
// a word character, so it acts as a boundary and cannot join two matches.
const LeafChar = '\uFFFC'

// Range is a half-open document range.
type Range struct {
	From, To int
}

// Empty reports whether the range has no content.
func (r Range) Empty() bool { return r.From >= r.To }

// Contains reports whether pos lies in [From, To].
func (r Range) Contains(pos int) bool { return pos >= r.From && pos <= r.To }

// Match is a regex match in document positions.
type Match struct {
	Range
	Text   string
	Groups []string
}

// TextWindow returns the text in [from, to) of a single textblock, one
// rune per document position.
func TextWindow(doc *model.Node, from, to int) string {
	if to <= from {
		return ""
	}
	return doc.TextBetween(from, to, "", string(LeafChar))
}

// FindMatches runs re over text and returns matches in document
// positions, where text starts at position offset.
func FindMatches(text string, re *regexp.Regexp, offset int) []Match {
	var out []Match
	for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
		start := offset + utf8.RuneCountInString(text[:loc[0]])
		m := Match{
			Range: Range{From: start, To: start + utf8.RuneCountInString(text[loc[0]:loc[1]])},
			Text:  text[loc[0]:loc[1]],
		}
		for g := 2; g+1 < len(loc); g += 2 {
			if loc[g] < 0 {
				m.Groups = append(m.Groups, "")
				continue
			}
			m.Groups = append(m.Groups, text[loc[g]:loc[g+1]])
		}
		out = append(out, m)
	}
	return out
}

// RuneBefore returns the rune preceding rune index i of text.
func RuneBefore(text string, i int) (rune, bool) {
	if i <= 0 {
		return 0, false
	}
	runes := []rune(text)
	if i > len(runes) {
		return 0, false
	}
	return runes[i-1], true
}

// IsWordChar reports whether r is a letter, digit or underscore.
func IsWordChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// IsWordBoundaryBefore reports whether rune index i of text starts a word:
// it is at the start or follows a non-word rune.
func IsWordBoundaryBefore(text string, i int) bool {
	r, ok := RuneBefore(text, i)
	return !ok || !IsWordChar(r)
}

// IsSpaceBefore reports whether rune index i of text is at the start or
// follows whitespace or a leaf placeholder.
func IsSpaceBefore(text string, i int) bool {
	r, ok := RuneBefore(text, i)
	return !ok || r == LeafChar || unicode.IsSpace(r)
}

// Block describes the inline content of one textblock.
type Block struct {
	Start, End int
	Node       *model.Node
}

// Text returns the block's text window.
func (b Block) Text(doc *model.Node) string { return TextWindow(doc, b.Start, b.End) }

// TextblockAt returns the textblock containing pos.
func TextblockAt(doc *model.Node, pos int) (Block, bool) {
	r, err := doc.Resolve(pos)
	if err != nil || !r.Parent().IsTextblock() {
		return Block{}, false
	}
	return Block{Start: r.Start(r.Depth), End: r.End(r.Depth), Node: r.Parent()}, true
}

// PreviousTextblock returns the last textblock ending before the block
// that starts at or contains pos.
func PreviousTextblock(doc *model.Node, pos int) (Block, bool) {
	cur, ok := TextblockAt(doc, pos)
	limit := pos
	if ok {
		limit = cur.Start - 1
	}
	var found Block
	have := false
	doc.Descendants(func(node *model.Node, p int, _ *model.Node, _ int) bool {
		if p >= limit {
			return false
		}
		if node.IsTextblock() {
			end := p + 1 + node.Content.Size()
			if end < limit {
				found, have = Block{Start: p + 1, End: end, Node: node}, true
			}
			return false
		}
		return true
	})
	return found, have
}

// GetMarkRange returns the extent of the mark of type mt around pos.
// When attrs is non-nil only marks with equal attributes count.
func GetMarkRange(doc *model.Node, pos int, mt *model.MarkType, attrs model.Attrs) (Range, bool) {
	r, err := doc.Resolve(pos)
	if err != nil {
		return Range{}, false
	}
	parent := r.Parent()
	start := r.Start(r.Depth)
	matches := func(n *model.Node) *model.Mark {
		if n == nil {
			return nil
		}
		m := mt.IsInSet(n.Marks)
		if m == nil {
			return nil
		}
		if attrs != nil && !m.Eq(mustMark(mt, attrs)) {
			return nil
		}
		return m
	}

	index := -1
	offset := start
	parent.ForEach(func(child *model.Node, off, i int) {
		if index >= 0 {
			return
		}
		childStart, childEnd := start+off, start+off+child.NodeSize()
		if pos >= childStart && pos <= childEnd && matches(child) != nil {
			// Prefer the node after pos when pos sits on a boundary.
			if pos == childEnd {
				if next := parent.MaybeChild(i + 1); next != nil && matches(next) != nil {
					return
				}
			}
			index, offset = i, childStart
		}
	})
	if index < 0 {
		return Range{}, false
	}
	mark := matches(parent.Child(index))
	from, to := offset, offset+parent.Child(index).NodeSize()
	for i := index - 1; i >= 0; i-- {
		c := parent.Child(i)
		if !mark.IsInSet(c.Marks) {
			break
		}
		from -= c.NodeSize()
	}
	for i := index + 1; i < parent.ChildCount(); i++ {
		c := parent.Child(i)
		if !mark.IsInSet(c.Marks) {
			break
		}
		to += c.NodeSize()
	}
	return Range{From: from, To: to}, true
}

func mustMark(mt *model.MarkType, attrs model.Attrs) *model.Mark {
	m, err := mt.Create(attrs)
	if err != nil {
		return nil
	}
	return m
}

// RangeHasMark reports whether any text in [from, to) carries mt.
func RangeHasMark(doc *model.Node, from, to int, mt *model.MarkType) bool {
	return doc.RangeHasMark(from, to, mt)
}

// IsDocEmpty reports whether doc holds a single empty textblock.
func IsDocEmpty(doc *model.Node) bool {
	if doc.ChildCount() != 1 {
		return doc.ChildCount() == 0
	}
	first := doc.FirstChild()
	return first.IsTextblock() && first.Content.Size() == 0
}

// MapRange maps a range through a mapping. The result is false when the
// whole range was deleted.
func MapRange(m transform.Mappable, r Range) (Range, bool) {
	from := m.MapResult(r.From, 1)
	to := m.MapResult(r.To, -1)
	if to.Pos < from.Pos {
		return Range{From: from.Pos, To: from.Pos}, false
	}
	if r.From < r.To && from.Pos == to.Pos && from.Deleted() && to.Deleted() {
		return Range{From: from.Pos, To: to.Pos}, false
	}
	return Range{From: from.Pos, To: to.Pos}, true
}

// ChangedRanges returns the ranges of the final document touched by the
// transform's steps, merged and sorted. A pure deletion yields an empty
// range at its position.
func ChangedRanges(t *transform.Transform) []Range {
	maps := t.Mapping.Maps()
	var out []Range
	for i, sm := range maps {
		rest := t.Mapping.SliceFrom(i + 1)
		sm.ForEach(func(_, _, newFrom, newTo int) {
			out = append(out, Range{From: rest.Map(newFrom, -1), To: rest.Map(newTo, 1)})
		})
	}
	return MergeRanges(out)
}

// MergeRanges sorts ranges and merges overlapping or touching ones.
func MergeRanges(ranges []Range) []Range {
	if len(ranges) == 0 {
		return nil
	}
	sorted := append([]Range(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].From != sorted[j].From {
			return sorted[i].From < sorted[j].From
		}
		return sorted[i].To < sorted[j].To
	})
	merged := []Range{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if r.From <= last.To {
			last.To = max(last.To, r.To)
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// HasReplaceStep reports whether any step of the transform replaces
// content.
func HasReplaceStep(t *transform.Transform) bool {
	for _, s := range t.Steps {
		if _, ok := s.(*transform.ReplaceStep); ok {
			return true
		}
	}
	return false
}
