package state

import (
	"time"

	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/engine/transform"
)

// Well-known metadata keys.
const (
	MetaAddToHistory        = "addToHistory"
	MetaAppendedTransaction = "appendedTransaction"
	MetaCloseHistory        = "closeHistory"
	MetaRebased             = "rebased"
	MetaPointer             = "pointer"
	MetaUIEvent             = "uiEvent"
)

// Transaction is a transform that also tracks the selection, stored marks,
// time and arbitrary metadata. Transactions are created by
// EditorState.Tr and applied with EditorState.Apply.
type Transaction struct {
	*transform.Transform

	// Time is the transaction's timestamp, used for grouping history.
	Time time.Time

	curSelection    Selection
	curSelectionFor int
	selectionSet    bool

	storedMarks    []*model.Mark
	storedMarksFor int
	marksSet       bool

	scrolled bool
	meta     map[any]any
}

func newTransaction(s *EditorState) *Transaction {
	return &Transaction{
		Transform:    transform.New(s.Doc),
		Time:         time.Now(),
		curSelection: s.Selection,
		storedMarks:  s.StoredMarks,
	}
}

// Selection returns the transaction's selection, mapped through any steps
// added since it was set.
func (tr *Transaction) Selection() Selection {
	if tr.curSelectionFor < len(tr.Steps) {
		tr.curSelection = tr.curSelection.Map(tr.Doc, tr.Mapping.SliceFrom(tr.curSelectionFor))
		tr.curSelectionFor = len(tr.Steps)
	}
	return tr.curSelection
}

// SetSelection sets the selection.
func (tr *Transaction) SetSelection(sel Selection) *Transaction {
	tr.curSelection = sel
	tr.curSelectionFor = len(tr.Steps)
	tr.selectionSet = true
	tr.storedMarks = nil
	tr.marksSet = false
	return tr
}

// SelectionSet reports whether the selection was explicitly set.
func (tr *Transaction) SelectionSet() bool { return tr.selectionSet }

// StoredMarks returns the stored marks, which are cleared by any step.
func (tr *Transaction) StoredMarks() []*model.Mark {
	if tr.storedMarksFor < len(tr.Steps) {
		return nil
	}
	return tr.storedMarks
}

// SetStoredMarks sets the marks applied to the next input.
func (tr *Transaction) SetStoredMarks(marks []*model.Mark) *Transaction {
	tr.storedMarks = marks
	tr.storedMarksFor = len(tr.Steps)
	tr.marksSet = true
	return tr
}

// StoredMarksSet reports whether stored marks were set after the last step.
func (tr *Transaction) StoredMarksSet() bool {
	return tr.marksSet && tr.storedMarksFor == len(tr.Steps)
}

// EnsureMarks makes sure the stored marks equal marks.
func (tr *Transaction) EnsureMarks(marks []*model.Mark) *Transaction {
	current := tr.StoredMarks()
	if current == nil {
		current = tr.markAtSelection()
	}
	if !model.SameMarkSet(current, marks) {
		tr.SetStoredMarks(marks)
	}
	return tr
}

// AddStoredMark adds a mark to the stored marks.
func (tr *Transaction) AddStoredMark(mark *model.Mark) *Transaction {
	current := tr.StoredMarks()
	if current == nil {
		current = tr.markAtSelection()
	}
	return tr.EnsureMarks(mark.AddToSet(current))
}

// RemoveStoredMark removes marks of the given type from the stored marks.
func (tr *Transaction) RemoveStoredMark(mt *model.MarkType) *Transaction {
	current := tr.StoredMarks()
	if current == nil {
		current = tr.markAtSelection()
	}
	return tr.EnsureMarks(mt.RemoveFromSet(current))
}

func (tr *Transaction) markAtSelection() []*model.Mark {
	r, err := tr.Doc.Resolve(tr.Selection().Head)
	if err != nil {
		return nil
	}
	return r.Marks()
}

// ReplaceSelection replaces the selection with a slice.
func (tr *Transaction) ReplaceSelection(slice *model.Slice) *Transaction {
	sel := tr.Selection()
	mapFrom := len(tr.Steps)
	if sel.IsAll() && slice.Size() == 0 {
		return tr.clearDocument()
	}
	if err := tr.Replace(sel.From(), sel.To(), slice); err != nil {
		return tr
	}
	tr.selectionToInsertionEnd(mapFrom, 1)
	return tr
}

// ReplaceSelectionWith replaces the selection with a node, optionally
// giving it the marks active at the selection.
func (tr *Transaction) ReplaceSelectionWith(node *model.Node, inheritMarks bool) *Transaction {
	sel := tr.Selection()
	if inheritMarks {
		marks := tr.StoredMarks()
		if marks == nil {
			marks = tr.markAtFrom(sel)
		}
		node = node.Mark(marks)
	}
	mapFrom := len(tr.Steps)
	if err := tr.ReplaceWith(sel.From(), sel.To(), node); err != nil {
		return tr
	}
	bias := 1
	if node.IsInline() {
		bias = -1
	}
	tr.selectionToInsertionEnd(mapFrom, bias)
	return tr
}

func (tr *Transaction) markAtFrom(sel Selection) []*model.Mark {
	r, err := tr.Doc.Resolve(sel.From())
	if err != nil {
		return nil
	}
	return r.Marks()
}

// DeleteSelection deletes the selected content.
func (tr *Transaction) DeleteSelection() *Transaction {
	return tr.ReplaceSelection(model.EmptySlice)
}

// InsertText inserts text. With from < 0 it replaces the selection,
// otherwise it replaces [from, to) (to < 0 means to = from) and inherits the
// marks at from.
func (tr *Transaction) InsertText(text string, from, to int) *Transaction {
	schema := tr.Doc.Type.Schema
	if from < 0 {
		if text == "" {
			return tr.DeleteSelection()
		}
		return tr.ReplaceSelectionWith(schema.Text(text), true)
	}
	if to < 0 {
		to = from
	}
	if text == "" {
		_ = tr.Delete(from, to)
		return tr
	}
	marks := tr.StoredMarks()
	if marks == nil {
		r, err := tr.Doc.Resolve(from)
		if err != nil {
			return tr
		}
		marks = r.Marks()
	}
	if err := tr.Transform.InsertText(text, from, to, marks); err != nil {
		return tr
	}
	if sel := tr.Selection(); !sel.Empty() {
		tr.SetSelection(Near(tr.Doc, sel.To(), 1))
	}
	return tr
}

func (tr *Transaction) clearDocument() *Transaction {
	top := tr.Doc.Type
	fill := top.DefaultContentType()
	if fill == nil {
		return tr
	}
	block := fill.CreateAndFill(nil)
	if block == nil {
		return tr
	}
	if err := tr.ReplaceWith(0, tr.Doc.Content.Size(), block); err != nil {
		return tr
	}
	return tr.SetSelection(AtStart(tr.Doc))
}

func (tr *Transaction) selectionToInsertionEnd(startLen, bias int) {
	last := len(tr.Steps) - 1
	if last < startLen {
		return
	}
	if _, ok := tr.Steps[last].(*transform.ReplaceStep); !ok {
		return
	}
	end := -1
	tr.Mapping.Maps()[last].ForEach(func(_, _, _, newTo int) {
		if end < 0 {
			end = newTo
		}
	})
	if end < 0 {
		return
	}
	tr.SetSelection(Near(tr.Doc, end, bias))
}

// SetTime sets the transaction's timestamp.
func (tr *Transaction) SetTime(t time.Time) *Transaction {
	tr.Time = t
	return tr
}

// ScrollIntoView marks the transaction as wanting the selection scrolled
// into view.
func (tr *Transaction) ScrollIntoView() *Transaction {
	tr.scrolled = true
	return tr
}

// ScrolledIntoView reports whether ScrollIntoView was called.
func (tr *Transaction) ScrolledIntoView() bool { return tr.scrolled }

// SetMeta stores metadata. Keys are strings, *PluginKey or *Plugin values.
func (tr *Transaction) SetMeta(key, value any) *Transaction {
	if tr.meta == nil {
		tr.meta = make(map[any]any)
	}
	tr.meta[metaKey(key)] = value
	return tr
}

// GetMeta returns metadata stored under key, or nil.
func (tr *Transaction) GetMeta(key any) any {
	return tr.meta[metaKey(key)]
}

// HasMeta reports whether metadata is stored under key.
func (tr *Transaction) HasMeta(key any) bool {
	_, ok := tr.meta[metaKey(key)]
	return ok
}

// IsGeneric reports whether the transaction carries no metadata.
func (tr *Transaction) IsGeneric() bool { return len(tr.meta) == 0 }

func metaKey(key any) any {
	if p, ok := key.(*Plugin); ok {
		return p.Key
	}
	return key
}
