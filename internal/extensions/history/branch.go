package history

import (
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/engine/transform"
)

// item is one entry of a branch. Items without a step only carry a map
// used to rebase the steps recorded before them. The first item of an
// event carries the selection to restore.
type item struct {
	stepMap      *transform.StepMap
	step         transform.Step
	selection    *state.Selection
	mirrorOffset int
}

func mapItem(m *transform.StepMap) item { return item{stepMap: m, mirrorOffset: -1} }

func (it item) merge(other item) (item, bool) {
	if it.step == nil || other.step == nil || other.selection != nil {
		return item{}, false
	}
	merged := other.step.Merge(it.step)
	if merged == nil {
		return item{}, false
	}
	return item{stepMap: merged.GetMap().Invert(), step: merged, selection: it.selection, mirrorOffset: -1}, true
}

// branch is the undo or redo stack.
type branch struct {
	items      []item
	eventCount int
}

var emptyBranch = branch{}

// addTransform records the inverted steps of tr. A non-nil selection
// starts a new event. Events beyond depth are dropped from the bottom.
func (b branch) addTransform(tr *transform.Transform, selection *state.Selection, depth int, preserveItems bool) branch {
	var newItems []item
	eventCount := b.eventCount
	oldItems := b.items
	var last *item
	if !preserveItems && len(oldItems) > 0 {
		l := oldItems[len(oldItems)-1]
		last = &l
	}

	for i, step := range tr.Steps {
		it := item{stepMap: tr.Mapping.Maps()[i], step: step.Invert(tr.Docs[i]), selection: selection, mirrorOffset: -1}
		if last != nil {
			if merged, ok := last.merge(it); ok {
				it = merged
				if i > 0 {
					newItems = newItems[:len(newItems)-1]
				} else {
					oldItems = oldItems[:len(oldItems)-1]
				}
			}
		}
		newItems = append(newItems, it)
		if selection != nil {
			eventCount++
			selection = nil
		}
		if !preserveItems {
			l := it
			last = &l
		}
	}

	items := make([]item, 0, len(oldItems)+len(newItems))
	items = append(items, oldItems...)
	items = append(items, newItems...)
	if depth > 0 && eventCount > depth {
		items = cutOffEvents(items, eventCount-depth)
		eventCount = depth
	}
	return branch{items: items, eventCount: eventCount}
}

// cutOffEvents drops the oldest n events.
func cutOffEvents(items []item, n int) []item {
	for i, it := range items {
		if it.selection == nil {
			continue
		}
		if n == 0 {
			return append([]item(nil), items[i:]...)
		}
		n--
	}
	return nil
}

// addMaps records maps of changes that are not part of the history, so
// earlier steps can be rebased over them.
func (b branch) addMaps(maps []*transform.StepMap) branch {
	if b.eventCount == 0 {
		return b
	}
	items := make([]item, 0, len(b.items)+len(maps))
	items = append(items, b.items...)
	for _, m := range maps {
		items = append(items, mapItem(m))
	}
	return branch{items: items, eventCount: b.eventCount}
}

// remapping builds the mapping over items [from, to).
func (b branch) remapping(from, to int) *transform.Mapping {
	maps := transform.NewMapping()
	for i := from; i < to; i++ {
		it := b.items[i]
		mirror := -1
		if it.mirrorOffset >= 0 && i-it.mirrorOffset >= from {
			mirror = maps.Len() - it.mirrorOffset
		}
		maps.AppendMap(it.stepMap, mirror)
	}
	return maps
}

type popped struct {
	remaining branch
	tr        *state.Transaction
	selection state.Selection
}

// popEvent undoes the most recent event against s, rebasing its steps over
// any maps recorded after them.
func (b branch) popEvent(s *state.EditorState, preserveItems bool) (popped, bool) {
	if b.eventCount == 0 {
		return popped{}, false
	}
	end := len(b.items)
	for ; end > 0; end-- {
		if b.items[end-1].selection != nil {
			end--
			break
		}
	}

	var remap *transform.Mapping
	mapFrom := 0
	if preserveItems {
		remap = b.remapping(end, len(b.items))
		mapFrom = remap.Len()
	}
	tr := s.Tr()
	var addAfter, addBefore []item
	var out popped

	for i := len(b.items) - 1; i >= 0; i-- {
		it := b.items[i]
		if it.step == nil {
			if remap == nil {
				remap = b.remapping(end, i+1)
				mapFrom = remap.Len()
			}
			mapFrom--
			addBefore = append(addBefore, it)
			continue
		}

		if remap != nil {
			addBefore = append(addBefore, mapItem(it.stepMap))
			var stepMap *transform.StepMap
			if step := it.step.Map(remap.SliceFrom(mapFrom)); step != nil && tr.MaybeStep(step).OK() {
				maps := tr.Mapping.Maps()
				stepMap = maps[len(maps)-1]
				addAfter = append(addAfter, item{stepMap: stepMap, mirrorOffset: len(addAfter) + len(addBefore)})
			}
			mapFrom--
			if stepMap != nil {
				remap.AppendMap(stepMap, mapFrom)
			}
		} else {
			tr.MaybeStep(it.step)
		}

		if it.selection != nil {
			if remap != nil {
				out.selection = it.selection.Map(tr.Doc, remap.SliceFrom(mapFrom))
			} else {
				out.selection = *it.selection
			}
			items := append([]item(nil), b.items[:end]...)
			for j := len(addBefore) - 1; j >= 0; j-- {
				items = append(items, addBefore[j])
			}
			items = append(items, addAfter...)
			out.remaining = branch{items: items, eventCount: b.eventCount - 1}
			break
		}
	}
	out.tr = tr
	return out, true
}
