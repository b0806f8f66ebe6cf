package trackchanges

import (
	"time"

	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/engine/transform"
)

// NoCommit marks content that predates every commit.
const NoCommit = -1

// Span attributes [From, To) to the commit at index Commit. Spans with
// Commit equal to the number of commits hold uncommitted changes.
type Span struct {
	From, To int
	Commit   int
}

// Commit is a sealed group of changes. Steps are the inverted steps, each
// applying to the document produced by the step at the same index, so the
// commit can be reverted; Maps are the forward step maps.
type Commit struct {
	ID      string
	Message string
	Time    time.Time
	Steps   []transform.Step
	Maps    []*transform.StepMap
}

// TrackState is the immutable attribution state. Blame spans are
// contiguous, never overlap and cover the whole document.
type TrackState struct {
	Blame            []Span
	Commits          []*Commit
	UncommittedSteps []transform.Step
	UncommittedMaps  []*transform.StepMap
}

// NewTrackState attributes all of doc to no commit.
func NewTrackState(doc *model.Node) *TrackState {
	return &TrackState{Blame: []Span{{From: 0, To: doc.Content.Size(), Commit: NoCommit}}}
}

// Dirty reports whether changes are waiting to be committed.
func (t *TrackState) Dirty() bool { return len(t.UncommittedSteps) > 0 }

// ApplyTransform records the changes of tr as uncommitted.
func (t *TrackState) ApplyTransform(tr *transform.Transform) *TrackState {
	if !tr.DocChanged() {
		return t
	}
	inverted := make([]transform.Step, len(tr.Steps))
	for i, step := range tr.Steps {
		inverted[i] = step.Invert(tr.Docs[i])
	}
	return &TrackState{
		Blame:            updateBlame(t.Blame, tr.Mapping, len(t.Commits)),
		Commits:          t.Commits,
		UncommittedSteps: append(append([]transform.Step(nil), t.UncommittedSteps...), inverted...),
		UncommittedMaps:  append(append([]*transform.StepMap(nil), t.UncommittedMaps...), tr.Mapping.Maps()...),
	}
}

// ApplyCommit seals the uncommitted changes into a new commit. Without
// uncommitted changes it returns t.
func (t *TrackState) ApplyCommit(id, message string, at time.Time) *TrackState {
	if !t.Dirty() {
		return t
	}
	c := &Commit{ID: id, Message: message, Time: at, Steps: t.UncommittedSteps, Maps: t.UncommittedMaps}
	return &TrackState{
		Blame:   t.Blame,
		Commits: append(append([]*Commit(nil), t.Commits...), c),
	}
}

// Find returns the index of the commit with the given id.
func (t *TrackState) Find(id string) (int, bool) {
	for i, c := range t.Commits {
		if c.ID == id {
			return i, true
		}
	}
	return 0, false
}

// CommitOf returns the commit a span is attributed to, or nil for
// original or uncommitted content.
func (t *TrackState) CommitOf(s Span) *Commit {
	if s.Commit < 0 || s.Commit >= len(t.Commits) {
		return nil
	}
	return t.Commits[s.Commit]
}

// Uncommitted reports whether a span holds uncommitted changes.
func (t *TrackState) Uncommitted(s Span) bool { return s.Commit == len(t.Commits) }

// updateBlame maps every span through the mapping, dropping collapsed
// ones, then attributes the ranges touched by each map to commit.
func updateBlame(blame []Span, mapping *transform.Mapping, commit int) []Span {
	out := make([]Span, 0, len(blame)+1)
	for _, s := range blame {
		from, to := mapping.Map(s.From, 1), mapping.Map(s.To, -1)
		if from < to {
			out = append(out, Span{From: from, To: to, Commit: s.Commit})
		}
	}
	maps := mapping.Maps()
	for i, sm := range maps {
		after := mapping.SliceFrom(i + 1)
		sm.ForEach(func(_, _, newFrom, newTo int) {
			out = insertSpan(out, after.Map(newFrom, 1), after.Map(newTo, -1), commit)
		})
	}
	return out
}

// insertSpan attributes [from, to) to commit, trimming the spans of other
// commits it overlaps and absorbing touching spans of the same commit.
func insertSpan(blame []Span, from, to, commit int) []Span {
	if from >= to {
		return blame
	}
	pos := 0
	for ; pos < len(blame); pos++ {
		next := blame[pos]
		if next.Commit == commit {
			if next.To >= from {
				break
			}
			continue
		}
		if next.To > from {
			if next.From < from {
				left := Span{From: next.From, To: from, Commit: next.Commit}
				if next.To > to {
					blame = insertAt(blame, pos, left)
				} else {
					blame[pos] = left
				}
				pos++
			}
			break
		}
	}
	for pos < len(blame) {
		next := blame[pos]
		if next.Commit == commit {
			if next.From > to {
				break
			}
			from, to = min(from, next.From), max(to, next.To)
			blame = append(blame[:pos], blame[pos+1:]...)
			continue
		}
		if next.From >= to {
			break
		}
		if next.To > to {
			blame[pos] = Span{From: to, To: next.To, Commit: next.Commit}
			break
		}
		blame = append(blame[:pos], blame[pos+1:]...)
	}
	return insertAt(blame, pos, Span{From: from, To: to, Commit: commit})
}

func insertAt(spans []Span, i int, s Span) []Span {
	spans = append(spans, Span{})
	copy(spans[i+1:], spans[i:])
	spans[i] = s
	return spans
}

// revert builds the steps undoing the commit at index on tr, mapping each
// inverted step through everything that happened after it. Steps that no
// longer apply are skipped.
func (t *TrackState) revert(tr *transform.Transform, index int) {
	commit := t.Commits[index]
	var maps []*transform.StepMap
	for _, c := range t.Commits[index:] {
		maps = append(maps, c.Maps...)
	}
	remap := transform.NewMapping(maps...)
	for i := len(commit.Steps) - 1; i >= 0; i-- {
		remapped := commit.Steps[i].Map(remap.SliceFrom(i + 1))
		if remapped == nil {
			continue
		}
		if res := tr.MaybeStep(remapped); res.OK() {
			remap.AppendMap(remapped.GetMap(), i)
		}
	}
}
