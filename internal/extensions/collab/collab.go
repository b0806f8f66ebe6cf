// Package collab tracks the steps an editor has not yet had confirmed by
// a central authority, and rebases them over the steps the authority
// sends back.
package collab

import (
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/engine/transform"
	"github.com/dshills/inkstorm/internal/extension"
	"github.com/dshills/inkstorm/internal/extensions/history"
	"github.com/dshills/inkstorm/internal/plugin"
)

// Name is the extension name.
const Name = "collab"

// Options configure collaboration.
type Options struct {
	// ClientID identifies this editor to the authority. Empty means a
	// fresh random id.
	ClientID string `toml:"client_id"`

	// Version is the authority version the initial document is at.
	Version int `toml:"version"`

	// MapSelectionBackward keeps the cursor in front of remote text
	// inserted at its position.
	MapSelectionBackward bool `toml:"map_selection_backward"`
}

// Rebaseable is an unconfirmed local step with its inverse and the
// transaction it came from.
type Rebaseable struct {
	Step     transform.Step
	Inverted transform.Step
	Origin   *state.Transaction
}

// State is the collab plugin state.
type State struct {
	Version     int
	Unconfirmed []Rebaseable
}

// Sendable is what an editor has to push.
type Sendable struct {
	Version  int
	Steps    []transform.Step
	ClientID string
	Origins  []*state.Transaction
}

// Extension is the collab extension.
type Extension struct {
	*extension.Base[Options]
	container *plugin.Container[State]

	mu      sync.Mutex
	session *Session
}

// New creates the collab extension.
func New(opts ...func(*Options)) *Extension {
	e := &Extension{
		Base: extension.NewBase(Name, extension.KindPlain, Options{}, opts...).
			WithPriority(extension.PriorityHigh).
			WithTags(extension.TagBehavior),
		container: plugin.NewContainer[State](Name),
	}
	if e.Options().ClientID == "" {
		e.SetOptions(func(o *Options) { o.ClientID = uuid.NewString() })
	}
	return e
}

// ClientID returns the id this editor pushes under.
func (e *Extension) ClientID() string { return e.Options().ClientID }

// Plugin implements extension.PluginProvider.
func (e *Extension) Plugin(*extension.CreateContext) *state.Plugin {
	return e.container.Plugin(
		func(state.Config, *state.EditorState) State { return State{Version: e.Options().Version} },
		func(tr *state.Transaction, prev State, _, _ *state.EditorState) State {
			if next, ok := plugin.Meta[State](tr, e.container.Key()); ok {
				return next
			}
			if tr.DocChanged() {
				unconfirmed := append(append([]Rebaseable(nil), prev.Unconfirmed...), unconfirmedFrom(tr)...)
				return State{Version: prev.Version, Unconfirmed: unconfirmed}
			}
			return prev
		},
	)
}

// OnCreate implements extension.CreateHook. Undo history keeps the steps
// it would otherwise drop, so undo can be rebased over remote changes.
func (e *Extension) OnCreate(ctx *extension.CreateContext) error {
	if ext, ok := ctx.Lookup.Extension("history"); ok {
		if h, ok := ext.(*history.Extension); ok {
			h.PreserveItems = func(*state.EditorState) bool { return true }
		}
	}
	return nil
}

// OnTransaction implements extension.TransactionHook.
func (e *Extension) OnTransaction(u extension.TransactionUpdate) {
	changed := false
	for _, tr := range u.Transactions {
		changed = changed || (tr.DocChanged() && !tr.HasMeta(e.container.Key()))
	}
	if !changed {
		return
	}
	e.mu.Lock()
	s := e.session
	e.mu.Unlock()
	if s != nil {
		s.kick()
	}
}

// OnDestroy implements extension.DestroyHook.
func (e *Extension) OnDestroy() {
	e.mu.Lock()
	s := e.session
	e.mu.Unlock()
	if s != nil {
		s.Close()
	}
}

func unconfirmedFrom(tr *state.Transaction) []Rebaseable {
	out := make([]Rebaseable, len(tr.Steps))
	for i, step := range tr.Steps {
		out[i] = Rebaseable{Step: step, Inverted: step.Invert(tr.Docs[i]), Origin: tr}
	}
	return out
}

// rebaseSteps undoes steps, applies over, then reapplies the mapped steps
// that still apply. Each reapplied step mirrors its inverse so positions
// map cleanly across the pair.
func rebaseSteps(steps []Rebaseable, over []transform.Step, tr *state.Transaction) []Rebaseable {
	for i := len(steps) - 1; i >= 0; i-- {
		tr.MaybeStep(steps[i].Inverted)
	}
	for _, s := range over {
		tr.MaybeStep(s)
	}
	var out []Rebaseable
	mapFrom := len(steps)
	for _, s := range steps {
		mapped := s.Step.Map(tr.Mapping.SliceFrom(mapFrom))
		mapFrom--
		if mapped == nil || !tr.MaybeStep(mapped).OK() {
			continue
		}
		tr.Mapping.SetMirror(mapFrom, len(tr.Steps)-1)
		out = append(out, Rebaseable{Step: mapped, Inverted: mapped.Invert(tr.Docs[len(tr.Docs)-1]), Origin: s.Origin})
	}
	return out
}

// GetState returns the collab state of s.
func (e *Extension) GetState(s *state.EditorState) State {
	st, _ := e.container.Get(s)
	return st
}

// Version returns the authority version s is based on.
func (e *Extension) Version(s *state.EditorState) int { return e.GetState(s).Version }

// SendableSteps returns the unconfirmed steps of s, or false when there
// are none.
func (e *Extension) SendableSteps(s *state.EditorState) (Sendable, bool) {
	st := e.GetState(s)
	if len(st.Unconfirmed) == 0 {
		return Sendable{}, false
	}
	out := Sendable{Version: st.Version, ClientID: e.ClientID()}
	for _, r := range st.Unconfirmed {
		out.Steps = append(out.Steps, r.Step)
		out.Origins = append(out.Origins, r.Origin)
	}
	return out, true
}

// ReceiveTransaction builds the transaction applying steps received from
// the authority. Leading steps carrying this editor's client id confirm
// unconfirmed local steps; the rest are applied with the remaining local
// steps rebased on top. The transaction stays out of the undo history.
func (e *Extension) ReceiveTransaction(s *state.EditorState, steps []transform.Step, clientIDs []string) *state.Transaction {
	st := e.GetState(s)
	version := st.Version + len(steps)
	ours := 0
	for ours < len(clientIDs) && clientIDs[ours] == e.ClientID() {
		ours++
	}
	unconfirmed := st.Unconfirmed
	if ours <= len(unconfirmed) {
		unconfirmed = unconfirmed[ours:]
	} else {
		unconfirmed = nil
	}
	steps = steps[ours:]

	tr := s.Tr()
	if len(steps) == 0 {
		return e.container.SetMeta(tr, State{Version: version, Unconfirmed: unconfirmed})
	}
	nUnconfirmed := len(unconfirmed)
	if nUnconfirmed > 0 {
		unconfirmed = rebaseSteps(unconfirmed, steps, tr)
	} else {
		for _, step := range steps {
			tr.MaybeStep(step)
		}
	}
	if e.Options().MapSelectionBackward {
		sel := s.Selection
		anchor, head := tr.Mapping.Map(sel.Anchor, -1), tr.Mapping.Map(sel.Head, -1)
		tr.SetSelection(state.TextSelection(anchor, head))
	}
	tr.SetMeta(state.MetaRebased, nUnconfirmed)
	tr.SetMeta(state.MetaAddToHistory, false)
	return e.container.SetMeta(tr, State{Version: version, Unconfirmed: unconfirmed})
}

// Helpers implements extension.HelperProvider:
//
//	getVersion() int
//	getClientID() string
//	unconfirmedCount() int
func (e *Extension) Helpers() map[string]extension.Helper {
	return map[string]extension.Helper{
		"getVersion":       func(s *state.EditorState, _ ...any) any { return e.Version(s) },
		"getClientID":      func(*state.EditorState, ...any) any { return e.ClientID() },
		"unconfirmedCount": func(s *state.EditorState, _ ...any) any { return len(e.GetState(s).Unconfirmed) },
	}
}
