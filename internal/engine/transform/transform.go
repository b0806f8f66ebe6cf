package transform

import (
	"github.com/dshills/inkstorm/internal/engine/model"
)

// Transform accumulates steps applied to a document, tracking the
// intermediate documents and the mapping of positions through them.
type Transform struct {
	// Doc is the current document, with all steps applied.
	Doc *model.Node

	// Steps are the steps applied so far.
	Steps []Step

	// Docs holds the document before each step.
	Docs []*model.Node

	// Mapping maps positions in the starting document to the current one.
	Mapping *Mapping
}

// New creates a transform starting at doc.
func New(doc *model.Node) *Transform {
	return &Transform{Doc: doc, Mapping: NewMapping()}
}

// Before returns the starting document.
func (t *Transform) Before() *model.Node {
	if len(t.Docs) > 0 {
		return t.Docs[0]
	}
	return t.Doc
}

// DocChanged reports whether any steps were applied.
func (t *Transform) DocChanged() bool { return len(t.Steps) > 0 }

// Step applies a step, returning a *StepError when it fails.
func (t *Transform) Step(step Step) error {
	res := t.MaybeStep(step)
	if !res.OK() {
		return &StepError{Step: step, Reason: res.Failed}
	}
	return nil
}

// MaybeStep applies a step when it succeeds and returns the result.
func (t *Transform) MaybeStep(step Step) StepResult {
	res := step.Apply(t.Doc)
	if res.OK() {
		t.addStep(step, res.Doc)
	}
	return res
}

func (t *Transform) addStep(step Step, doc *model.Node) {
	t.Docs = append(t.Docs, t.Doc)
	t.Steps = append(t.Steps, step)
	t.Mapping.AppendMap(step.GetMap(), -1)
	t.Doc = doc
}

// ChangedRange returns the range in the current document touched by the
// transform's steps. ok is false when nothing changed.
func (t *Transform) ChangedRange() (from, to int, ok bool) {
	from, to = -1, -1
	maps := t.Mapping.Maps()
	for _, sm := range maps {
		if from >= 0 {
			from = sm.Map(from, -1)
			to = sm.Map(to, 1)
		}
		sm.ForEach(func(_, _, newStart, newEnd int) {
			if from < 0 || newStart < from {
				from = newStart
			}
			if to < 0 || newEnd > to {
				to = newEnd
			}
		})
	}
	if from < 0 {
		return 0, 0, false
	}
	return from, to, true
}

// Replace replaces [from, to) with a slice. Replacing an empty range with
// an empty slice is a no-op.
func (t *Transform) Replace(from, to int, slice *model.Slice) error {
	if slice == nil {
		slice = model.EmptySlice
	}
	if from == to && slice.Size() == 0 {
		return nil
	}
	return t.Step(NewReplaceStep(from, to, slice, false))
}

// ReplaceWith replaces [from, to) with the given nodes.
func (t *Transform) ReplaceWith(from, to int, nodes ...*model.Node) error {
	return t.Replace(from, to, model.NewSlice(model.NewFragment(nodes...), 0, 0))
}

// Insert inserts nodes at pos.
func (t *Transform) Insert(pos int, nodes ...*model.Node) error {
	return t.ReplaceWith(pos, pos, nodes...)
}

// Delete deletes [from, to).
func (t *Transform) Delete(from, to int) error {
	return t.Replace(from, to, model.EmptySlice)
}

// InsertText inserts text with the given marks, replacing [from, to).
// Empty text deletes the range.
func (t *Transform) InsertText(text string, from, to int, marks []*model.Mark) error {
	if text == "" {
		return t.Delete(from, to)
	}
	schema := t.Doc.Type.Schema
	return t.ReplaceWith(from, to, schema.Text(text, marks...))
}

// Split splits the node at pos into depth levels.
func (t *Transform) Split(pos, depth int) error {
	rpos, err := t.Doc.Resolve(pos)
	if err != nil {
		return err
	}
	before, after := model.EmptyFragment, model.EmptyFragment
	for d, e := rpos.Depth, rpos.Depth-depth; d > e; d-- {
		before = model.NewFragment(rpos.Node(d).Copy(before))
		after = model.NewFragment(rpos.Node(d).Copy(after))
	}
	return t.Step(NewReplaceStep(pos, pos, model.NewSlice(before.Append(after), depth, depth), true))
}

// SplitAs splits the textblock at pos, giving the new block the given type.
func (t *Transform) SplitAs(pos int, typeAfter *model.NodeType, attrs model.Attrs) error {
	rpos, err := t.Doc.Resolve(pos)
	if err != nil {
		return err
	}
	before := model.NewFragment(rpos.Parent().Copy(model.EmptyFragment))
	after := model.NewFragment(typeAfter.Create(attrs, model.EmptyFragment, nil))
	return t.Step(NewReplaceStep(pos, pos, model.NewSlice(before.Append(after), 1, 1), true))
}

// Join joins the blocks around pos.
func (t *Transform) Join(pos, depth int) error {
	return t.Step(NewReplaceStep(pos-depth, pos+depth, model.EmptySlice, true))
}

// CanJoin reports whether the blocks around pos can be joined.
func CanJoin(doc *model.Node, pos int) bool {
	rpos, err := doc.Resolve(pos)
	if err != nil {
		return false
	}
	a, b := rpos.NodeBefore(), rpos.NodeAfter()
	if a == nil || b == nil || a.IsLeaf() || a.IsText() || b.IsText() {
		return false
	}
	if !b.Type.CompatibleContent(a.Type) {
		return false
	}
	return a.Type.ValidContent(a.Content.Append(b.Content))
}

// SetNodeMarkup changes the type, attributes and marks of the node at pos.
// A nil type keeps the node's type.
func (t *Transform) SetNodeMarkup(pos int, nt *model.NodeType, attrs model.Attrs, marks []*model.Mark) error {
	node := t.Doc.NodeAt(pos)
	if node == nil {
		return &StepError{Reason: "no node at position"}
	}
	if nt == nil {
		nt = node.Type
	}
	if marks == nil {
		marks = node.Marks
	}
	return t.Step(&SetNodeMarkupStep{Pos: pos, Type: nt, Attrs: attrs, Marks: marks})
}

// SetBlockType sets every textblock in [from, to) to the given type.
func (t *Transform) SetBlockType(from, to int, nt *model.NodeType, attrs model.Attrs) error {
	var positions []int
	t.Doc.NodesBetween(from, to, func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if !node.IsTextblock() {
			return true
		}
		if !node.HasMarkup(nt, attrs, node.Marks) {
			positions = append(positions, pos)
		}
		return false
	}, 0)
	mapFrom := len(t.Steps)
	for _, pos := range positions {
		mapped := t.Mapping.SliceFrom(mapFrom).Map(pos, 1)
		if err := t.SetNodeMarkup(mapped, nt, attrs, nil); err != nil {
			return err
		}
	}
	return nil
}

// AddMark adds a mark to the inline content in [from, to), removing marks it
// excludes. Adjacent ranges are coalesced into single steps.
func (t *Transform) AddMark(from, to int, mark *model.Mark) {
	var removed, added []Step
	var removing *RemoveMarkStep
	var adding *AddMarkStep
	t.Doc.NodesBetween(from, to, func(node *model.Node, pos int, parent *model.Node, _ int) bool {
		if !node.IsInline() {
			return true
		}
		marks := node.Marks
		if mark.IsInSet(marks) || !parent.Type.AllowsMarkType(mark.Type) {
			return true
		}
		start, end := max(pos, from), min(pos+node.NodeSize(), to)
		newSet := mark.AddToSet(marks)
		for _, m := range marks {
			if m.IsInSet(newSet) {
				continue
			}
			if removing != nil && removing.To == start && removing.Mark.Eq(m) {
				removing.To = end
			} else {
				removing = &RemoveMarkStep{From: start, To: end, Mark: m}
				removed = append(removed, removing)
			}
		}
		if adding != nil && adding.To == start {
			adding.To = end
		} else {
			adding = &AddMarkStep{From: start, To: end, Mark: mark}
			added = append(added, adding)
		}
		return true
	}, 0)
	for _, s := range removed {
		t.MaybeStep(s)
	}
	for _, s := range added {
		t.MaybeStep(s)
	}
}

// RemoveMark removes the given mark from inline content in [from, to).
func (t *Transform) RemoveMark(from, to int, mark *model.Mark) {
	t.removeMarks(from, to, func(marks []*model.Mark) []*model.Mark {
		if mark.IsInSet(marks) {
			return []*model.Mark{mark}
		}
		return nil
	})
}

// RemoveMarkType removes all marks of a type from inline content in
// [from, to). A nil type removes every mark.
func (t *Transform) RemoveMarkType(from, to int, mt *model.MarkType) {
	t.removeMarks(from, to, func(marks []*model.Mark) []*model.Mark {
		if mt == nil {
			return marks
		}
		var out []*model.Mark
		for _, m := range marks {
			if m.Type == mt {
				out = append(out, m)
			}
		}
		return out
	})
}

func (t *Transform) removeMarks(from, to int, match func([]*model.Mark) []*model.Mark) {
	type matched struct {
		style *model.Mark
		from  int
		to    int
		step  int
	}
	var found []*matched
	step := 0
	t.Doc.NodesBetween(from, to, func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if !node.IsInline() {
			return true
		}
		step++
		toRemove := match(node.Marks)
		end := min(pos+node.NodeSize(), to)
		for _, style := range toRemove {
			var hit *matched
			for _, m := range found {
				if m.step == step-1 && style.Eq(m.style) {
					hit = m
				}
			}
			if hit != nil {
				hit.to = end
				hit.step = step
			} else {
				found = append(found, &matched{style: style, from: max(pos, from), to: end, step: step})
			}
		}
		return true
	}, 0)
	for _, m := range found {
		t.MaybeStep(&RemoveMarkStep{From: m.from, To: m.to, Mark: m.style})
	}
}
