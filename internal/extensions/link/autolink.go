package link

import (
	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/textrange"
)

// autoLink rescans the text touched by an edit and around the selection,
// clears the auto links found there and marks every URL match afresh. It
// returns nil when nothing changes, so rescanning an unchanged document is
// a no-op.
func (e *Extension) autoLink(trs []*state.Transaction, s *state.EditorState) *state.Transaction {
	var changed []textrange.Range
	replaced := false
	for _, tr := range trs {
		for i, r := range changed {
			changed[i], _ = textrange.MapRange(tr.Mapping, r)
		}
		if textrange.HasReplaceStep(tr.Transform) {
			replaced = true
			changed = append(changed, textrange.ChangedRanges(tr.Transform)...)
		}
	}
	if !replaced {
		return nil
	}
	return e.rescan(s, textrange.MergeRanges(changed))
}

func (e *Extension) rescan(s *state.EditorState, changed []textrange.Range) *state.Transaction {
	mt, ok := linkType(s.Schema)
	if !ok {
		return nil
	}
	re, err := e.pattern()
	if err != nil {
		e.Logger().Warn("auto link disabled: %v", err)
		return nil
	}

	blocks := scanBlocks(s, changed)
	if len(blocks) == 0 {
		return nil
	}
	opts := e.Options()
	tr := s.Tr()
	for _, b := range blocks {
		text := b.Text(s.Doc)
		var matches []textrange.Match
		for _, m := range textrange.FindMatches(text, re, b.Start) {
			if !textrange.IsWordBoundaryBefore(text, m.From-b.Start) {
				continue
			}
			if touchesExcludingMark(s.Doc, m.Range, mt) || hasManualLink(s.Doc, m.Range, mt) {
				continue
			}
			matches = append(matches, m)
		}

		clearAutoLinks(tr, b, mt)
		for _, m := range matches {
			mark, err := mt.Create(model.Attrs{
				"href":   hrefFor(m.Text, opts.DefaultProtocol),
				"target": opts.DefaultTarget,
				"auto":   true,
			})
			if err != nil {
				continue
			}
			tr.AddMark(m.From, m.To, mark)
		}
	}

	if !tr.DocChanged() || tr.Doc.Eq(s.Doc) {
		return nil
	}
	// Mark steps leave positions alone, so the selection maps onto itself
	// and the cursor stays where the user put it.
	tr.SetSelection(s.Selection.Map(tr.Doc, tr.Mapping))
	if s.StoredMarks != nil {
		tr.SetStoredMarks(s.StoredMarks)
	}
	return tr.SetMeta(e.PluginKey(), true)
}

// scanBlocks returns the textblocks holding the selection ends or touched
// by a changed range. A block starting at such a position brings in the
// previous block too: splitting a block can cut a URL that was matched
// before.
func scanBlocks(s *state.EditorState, changed []textrange.Range) []textrange.Block {
	var out []textrange.Block
	add := func(b textrange.Block) {
		for _, have := range out {
			if have.Start == b.Start {
				return
			}
		}
		out = append(out, b)
	}
	addAt := func(pos int, withPrevious bool) {
		b, ok := textrange.TextblockAt(s.Doc, pos)
		if !ok {
			return
		}
		add(b)
		if withPrevious && pos == b.Start && b.Start > 1 {
			if prev, ok := textrange.PreviousTextblock(s.Doc, b.Start); ok {
				add(prev)
			}
		}
	}

	sel := s.Selection
	addAt(sel.From(), true)
	addAt(sel.To(), false)
	for _, r := range changed {
		addAt(r.From, true)
		s.Doc.NodesBetween(r.From, r.To, func(node *model.Node, pos int, _ *model.Node, _ int) bool {
			if node.IsTextblock() {
				add(textrange.Block{Start: pos + 1, End: pos + 1 + node.Content.Size(), Node: node})
				return false
			}
			return true
		}, 0)
		addAt(r.To, false)
	}
	return out
}

// touchesExcludingMark reports whether text in r carries a mark that
// cannot coexist with a link.
func touchesExcludingMark(doc *model.Node, r textrange.Range, mt *model.MarkType) bool {
	found := false
	doc.NodesBetween(r.From, r.To, func(node *model.Node, _ int, _ *model.Node, _ int) bool {
		for _, m := range node.Marks {
			if m.Type != mt && (m.Type.Excludes(mt) || mt.Excludes(m.Type)) {
				found = true
			}
		}
		return !found
	}, 0)
	return found
}

// hasManualLink reports whether text in r carries a link the user set.
func hasManualLink(doc *model.Node, r textrange.Range, mt *model.MarkType) bool {
	found := false
	doc.NodesBetween(r.From, r.To, func(node *model.Node, _ int, _ *model.Node, _ int) bool {
		if m := mt.IsInSet(node.Marks); m != nil {
			if auto, _ := m.Attrs["auto"].(bool); !auto {
				found = true
			}
		}
		return !found
	}, 0)
	return found
}

// clearAutoLinks removes every auto link mark in block b.
func clearAutoLinks(tr *state.Transaction, b textrange.Block, mt *model.MarkType) {
	type span struct {
		from, to int
		mark     *model.Mark
	}
	var spans []span
	tr.Doc.NodesBetween(b.Start, b.End, func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if !node.IsInline() {
			return true
		}
		if m := mt.IsInSet(node.Marks); m != nil {
			if auto, _ := m.Attrs["auto"].(bool); auto {
				spans = append(spans, span{from: max(pos, b.Start), to: min(pos+node.NodeSize(), b.End), mark: m})
			}
		}
		return false
	}, 0)
	for _, sp := range spans {
		tr.RemoveMark(sp.from, sp.to, sp.mark)
	}
}
