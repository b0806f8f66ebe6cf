// Package history provides undo and redo. Consecutive adjacent edits made
// within the group delay form one undo event; the number of retained
// events is bounded by the configured depth.
package history

import (
	"time"

	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/engine/transform"
	"github.com/dshills/inkstorm/internal/plugin"
)

// State is the history plugin state.
type State struct {
	done       branch
	undone     branch
	prevRanges []int
	prevTime   time.Time
}

// UndoDepth returns the number of undoable events.
func (s State) UndoDepth() int { return s.done.eventCount }

// RedoDepth returns the number of redoable events.
func (s State) RedoDepth() int { return s.undone.eventCount }

// historyMeta is set on undo and redo transactions.
type historyMeta struct {
	redo  bool
	state State
}

type config struct {
	depth         int
	newGroupDelay time.Duration
	preserveItems func(s *state.EditorState) bool
}

func (c config) preserve(s *state.EditorState) bool {
	return c.preserveItems != nil && c.preserveItems(s)
}

func newPlugin(key *state.PluginKey, cfg func() config) *state.Plugin {
	return plugin.New(key,
		func(state.Config, *state.EditorState) State { return State{} },
		func(tr *state.Transaction, hist State, oldState, _ *state.EditorState) State {
			return applyTransaction(key, hist, oldState, tr, cfg())
		},
	)
}

func applyTransaction(key *state.PluginKey, hist State, s *state.EditorState, tr *state.Transaction, cfg config) State {
	if meta, ok := tr.GetMeta(key).(historyMeta); ok {
		return meta.state
	}
	if closed, _ := tr.GetMeta(state.MetaCloseHistory).(bool); closed {
		hist.prevTime = time.Time{}
		hist.prevRanges = nil
	}

	appended, _ := tr.GetMeta(state.MetaAppendedTransaction).(*state.Transaction)
	maps := tr.Mapping.Maps()
	switch {
	case len(tr.Steps) == 0:
		return hist

	case appended != nil && appended.HasMeta(key):
		// Steps appended to an undo or redo belong to the same event.
		meta, _ := appended.GetMeta(key).(historyMeta)
		if meta.redo {
			return State{
				done:       hist.done.addTransform(tr.Transform, nil, cfg.depth, cfg.preserve(s)),
				undone:     hist.undone,
				prevRanges: rangesFor(maps),
				prevTime:   hist.prevTime,
			}
		}
		return State{
			done:     hist.done,
			undone:   hist.undone.addTransform(tr.Transform, nil, cfg.depth, cfg.preserve(s)),
			prevTime: hist.prevTime,
		}

	case addToHistory(tr) && (appended == nil || addToHistory(appended)):
		newGroup := hist.prevTime.IsZero() ||
			(appended == nil && (tr.Time.Sub(hist.prevTime) > cfg.newGroupDelay || !isAdjacentTo(tr.Transform, hist.prevRanges)))
		var prevRanges []int
		if appended != nil {
			prevRanges = mapRanges(hist.prevRanges, tr.Mapping)
		} else {
			prevRanges = rangesFor(maps)
		}
		var sel *state.Selection
		if newGroup {
			bookmark := s.Selection
			sel = &bookmark
		}
		return State{
			done:       hist.done.addTransform(tr.Transform, sel, cfg.depth, cfg.preserve(s)),
			undone:     emptyBranch,
			prevRanges: prevRanges,
			prevTime:   tr.Time,
		}

	default:
		// Changes kept out of the history, including rebased remote steps,
		// only shift the recorded positions.
		return State{
			done:       hist.done.addMaps(maps),
			undone:     hist.undone.addMaps(maps),
			prevRanges: mapRanges(hist.prevRanges, tr.Mapping),
			prevTime:   hist.prevTime,
		}
	}
}

func addToHistory(tr *state.Transaction) bool {
	v, ok := tr.GetMeta(state.MetaAddToHistory).(bool)
	return !ok || v
}

func isAdjacentTo(tr *transform.Transform, prevRanges []int) bool {
	if prevRanges == nil {
		return false
	}
	if !tr.DocChanged() {
		return true
	}
	adjacent := false
	tr.Mapping.Maps()[0].ForEach(func(start, end, _, _ int) {
		for i := 0; i+1 < len(prevRanges); i += 2 {
			if start <= prevRanges[i+1] && end >= prevRanges[i] {
				adjacent = true
			}
		}
	})
	return adjacent
}

func rangesFor(maps []*transform.StepMap) []int {
	var result []int
	for i := len(maps) - 1; i >= 0 && len(result) == 0; i-- {
		maps[i].ForEach(func(_, _, from, to int) {
			result = append(result, from, to)
		})
	}
	return result
}

func mapRanges(ranges []int, mapping transform.Mappable) []int {
	if ranges == nil {
		return nil
	}
	result := []int{}
	for i := 0; i+1 < len(ranges); i += 2 {
		from, to := mapping.Map(ranges[i], 1), mapping.Map(ranges[i+1], -1)
		if from <= to {
			result = append(result, from, to)
		}
	}
	return result
}

// histTransaction builds the undo (or redo) transaction for s.
func histTransaction(key *state.PluginKey, hist State, s *state.EditorState, redo bool, cfg config) (*state.Transaction, bool) {
	preserve := cfg.preserve(s)
	from, to := hist.done, hist.undone
	if redo {
		from, to = hist.undone, hist.done
	}
	pop, ok := from.popEvent(s, preserve)
	if !ok {
		return nil, false
	}
	bookmark := s.Selection
	added := to.addTransform(pop.tr.Transform, &bookmark, cfg.depth, preserve)

	next := State{done: pop.remaining, undone: added}
	if redo {
		next = State{done: added, undone: pop.remaining}
	}
	sel := pop.selection.Map(pop.tr.Doc, transform.NewMapping())
	tr := pop.tr.SetSelection(sel).SetMeta(key, historyMeta{redo: redo, state: next})
	return tr, true
}
