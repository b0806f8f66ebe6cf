// Package commands holds the editing commands shared by the built-in
// extensions. Every command reads positions from the props' transaction
// and returns without touching it when run as a dry run.
package commands

import (
	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/engine/transform"
	"github.com/dshills/inkstorm/internal/extension"
)

// ToggleMark adds the mark when the selection lacks it and removes it
// otherwise. On a cursor it toggles the stored marks.
func ToggleMark(name string, attrs model.Attrs) extension.Command {
	return func(p extension.CommandProps) bool {
		schema := p.Tr.Doc.Type.Schema
		mt, ok := schema.MarkType(name)
		if !ok {
			return false
		}
		sel := p.Tr.Selection()
		from, err := p.Tr.Doc.Resolve(sel.From())
		if err != nil {
			return false
		}
		if sel.Empty() {
			if !from.Parent().Type.AllowsMarkType(mt) {
				return false
			}
			if p.DryRun() {
				return true
			}
			marks := p.Tr.StoredMarks()
			if marks == nil {
				marks = from.Marks()
			}
			if mt.IsInSet(marks) != nil {
				p.Tr.RemoveStoredMark(mt)
			} else {
				mark, err := mt.Create(attrs)
				if err != nil {
					return false
				}
				p.Tr.AddStoredMark(mark)
			}
			p.Apply()
			return true
		}

		if !markApplies(p.Tr.Doc, sel.From(), sel.To(), mt) {
			return false
		}
		if p.DryRun() {
			return true
		}
		if p.Tr.Doc.RangeHasMark(sel.From(), sel.To(), mt) {
			p.Tr.RemoveMarkType(sel.From(), sel.To(), mt)
		} else {
			mark, err := mt.Create(attrs)
			if err != nil {
				return false
			}
			p.Tr.AddMark(sel.From(), sel.To(), mark)
		}
		p.Apply()
		return true
	}
}

func markApplies(doc *model.Node, from, to int, mt *model.MarkType) bool {
	applies := false
	doc.NodesBetween(from, to, func(node *model.Node, _ int, _ *model.Node, _ int) bool {
		if applies {
			return false
		}
		applies = node.InlineContent() && node.Type.AllowsMarkType(mt)
		return true
	}, 0)
	return applies
}

// InsertText inserts text at the selection, or over [from, to) when a
// range is given as two int arguments.
func InsertText(text string, rng ...int) extension.Command {
	return func(p extension.CommandProps) bool {
		if text == "" {
			return false
		}
		from, to := -1, -1
		if len(rng) > 0 {
			from, to = rng[0], rng[0]
			if len(rng) > 1 {
				to = rng[1]
			}
			if from < 0 || to < from || to > p.Tr.Doc.Content.Size() {
				return false
			}
		}
		if p.DryRun() {
			return true
		}
		p.Tr.InsertText(text, from, to)
		p.Apply()
		return true
	}
}

// SetBlockType turns the selected textblocks into the named type.
func SetBlockType(name string, attrs model.Attrs) extension.Command {
	return func(p extension.CommandProps) bool {
		nt, ok := p.Tr.Doc.Type.Schema.NodeType(name)
		if !ok || !nt.IsTextblock() {
			return false
		}
		sel := p.Tr.Selection()
		applies := false
		p.Tr.Doc.NodesBetween(sel.From(), sel.To(), func(node *model.Node, _ int, _ *model.Node, _ int) bool {
			if applies {
				return false
			}
			if node.IsTextblock() {
				applies = !node.HasMarkup(nt, attrs, node.Marks)
				return false
			}
			return true
		}, 0)
		if !applies {
			return false
		}
		if p.DryRun() {
			return true
		}
		if err := p.Tr.SetBlockType(sel.From(), sel.To(), nt, attrs); err != nil {
			return false
		}
		p.Apply()
		return true
	}
}

// SplitBlock deletes the selection and splits the textblock at the
// cursor. Splitting at the end of a block creates the parent's default
// block type.
func SplitBlock() extension.Command {
	return func(p extension.CommandProps) bool {
		sel := p.Tr.Selection()
		from, err := p.Tr.Doc.Resolve(sel.From())
		if err != nil || !from.Parent().IsTextblock() || from.Depth < 1 {
			return false
		}
		if p.DryRun() {
			return true
		}
		if !sel.Empty() {
			p.Tr.DeleteSelection()
			if from, err = p.Tr.Doc.Resolve(p.Tr.Selection().From()); err != nil {
				return false
			}
		}
		atEnd := from.ParentOffset == from.Parent().Content.Size()
		if atEnd {
			deflt := from.Node(-1).Type.DefaultContentType()
			if deflt == nil || !deflt.IsTextblock() {
				deflt = from.Parent().Type
			}
			err = p.Tr.SplitAs(from.Pos, deflt, nil)
		} else {
			err = p.Tr.Split(from.Pos, 1)
		}
		if err != nil {
			return false
		}
		p.Tr.ScrollIntoView()
		p.Apply()
		return true
	}
}

// DeleteSelection deletes a non-empty selection.
func DeleteSelection() extension.Command {
	return func(p extension.CommandProps) bool {
		if p.Tr.Selection().Empty() {
			return false
		}
		if p.DryRun() {
			return true
		}
		p.Tr.DeleteSelection().ScrollIntoView()
		p.Apply()
		return true
	}
}

// JoinBackward joins the cursor's textblock with the block before it when
// the cursor is at the start of the block. A leaf block before it is
// deleted instead.
func JoinBackward() extension.Command {
	return func(p extension.CommandProps) bool {
		cursor, ok := cursorAt(p)
		if !ok || cursor.ParentOffset > 0 || cursor.Index(-1) == 0 {
			return false
		}
		before := cursor.Before(cursor.Depth)
		cut, err := p.Tr.Doc.Resolve(before)
		if err != nil {
			return false
		}
		prev := cut.NodeBefore()
		if prev == nil || !(prev.IsTextblock() || prev.IsLeaf()) {
			return false
		}
		if p.DryRun() {
			return true
		}
		if prev.IsLeaf() {
			err = p.Tr.Delete(before-prev.NodeSize(), before)
		} else {
			err = join(p.Tr, before)
		}
		if err != nil {
			return false
		}
		p.Tr.ScrollIntoView()
		p.Apply()
		return true
	}
}

// JoinForward joins the cursor's textblock with the block after it when
// the cursor is at the end of the block.
func JoinForward() extension.Command {
	return func(p extension.CommandProps) bool {
		cursor, ok := cursorAt(p)
		if !ok || cursor.ParentOffset < cursor.Parent().Content.Size() {
			return false
		}
		after := cursor.After(cursor.Depth)
		cut, err := p.Tr.Doc.Resolve(after)
		if err != nil {
			return false
		}
		next := cut.NodeAfter()
		if next == nil || !(next.IsTextblock() || next.IsLeaf()) {
			return false
		}
		if p.DryRun() {
			return true
		}
		if next.IsLeaf() {
			err = p.Tr.Delete(after, after+next.NodeSize())
		} else {
			err = join(p.Tr, after)
		}
		if err != nil {
			return false
		}
		p.Tr.ScrollIntoView()
		p.Apply()
		return true
	}
}

func join(tr *state.Transaction, pos int) error {
	if transform.CanJoin(tr.Doc, pos) {
		return tr.Join(pos, 1)
	}
	return tr.Delete(pos-1, pos+1)
}

// DeleteCharBackward deletes the character or inline leaf before the
// cursor within its textblock.
func DeleteCharBackward() extension.Command {
	return func(p extension.CommandProps) bool {
		cursor, ok := cursorAt(p)
		if !ok || cursor.ParentOffset == 0 {
			return false
		}
		if p.DryRun() {
			return true
		}
		if err := p.Tr.Delete(cursor.Pos-1, cursor.Pos); err != nil {
			return false
		}
		p.Tr.ScrollIntoView()
		p.Apply()
		return true
	}
}

// DeleteCharForward deletes the character or inline leaf after the cursor
// within its textblock.
func DeleteCharForward() extension.Command {
	return func(p extension.CommandProps) bool {
		cursor, ok := cursorAt(p)
		if !ok || cursor.ParentOffset >= cursor.Parent().Content.Size() {
			return false
		}
		if p.DryRun() {
			return true
		}
		if err := p.Tr.Delete(cursor.Pos, cursor.Pos+1); err != nil {
			return false
		}
		p.Tr.ScrollIntoView()
		p.Apply()
		return true
	}
}

// SelectAll selects the whole document.
func SelectAll() extension.Command {
	return func(p extension.CommandProps) bool {
		if p.DryRun() {
			return true
		}
		p.Tr.SetSelection(state.AllSelection(p.Tr.Doc))
		p.Apply()
		return true
	}
}

func cursorAt(p extension.CommandProps) (*model.ResolvedPos, bool) {
	pos, ok := p.Tr.Selection().CursorPos()
	if !ok {
		return nil, false
	}
	r, err := p.Tr.Doc.Resolve(pos)
	if err != nil || r.Depth < 1 {
		return nil, false
	}
	if !r.Parent().IsTextblock() {
		return nil, false
	}
	return r, true
}

// MarkActive reports whether the named mark is active: on a cursor it
// checks the stored marks or the marks at the cursor, on a range whether
// any text in it carries the mark.
func MarkActive(s *state.EditorState, name string) bool {
	mt, ok := s.Schema.MarkType(name)
	if !ok {
		return false
	}
	sel := s.Selection
	if sel.Empty() {
		marks := s.StoredMarks
		if marks == nil {
			r, err := s.Doc.Resolve(sel.Head)
			if err != nil {
				return false
			}
			marks = r.Marks()
		}
		return mt.IsInSet(marks) != nil
	}
	return s.Doc.RangeHasMark(sel.From(), sel.To(), mt)
}
