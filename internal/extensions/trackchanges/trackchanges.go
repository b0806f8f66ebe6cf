// Package trackchanges attributes document content to commits: groups of
// changes sealed with a message. Any commit can later be reverted while
// the document has no uncommitted changes, and the content of one commit
// can be highlighted.
package trackchanges

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dshills/inkstorm/internal/engine/decoration"
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/engine/transform"
	"github.com/dshills/inkstorm/internal/extension"
	"github.com/dshills/inkstorm/internal/plugin"
)

// Name is the extension name.
const Name = "trackChanges"

// MessagePlaceholder stands for the reverted commit's message in
// Options.RevertMessage.
const MessagePlaceholder = "{message}"

// Options configure track changes.
type Options struct {
	// HighlightClass is the class of highlighted commit content.
	HighlightClass string `toml:"highlight_class"`

	// RevertMessage is the message of a revert commit. MessagePlaceholder
	// in it is replaced by the reverted commit's message.
	RevertMessage string `toml:"revert_message"`
}

// commitMeta asks the track plugin to seal the uncommitted changes.
type commitMeta struct {
	message string
}

// highlightMeta toggles the highlight of a commit.
type highlightMeta struct {
	add   string
	clear bool
}

// highlightState is the highlight plugin's state.
type highlightState struct {
	decos  *decoration.Set
	commit string
}

// Extension is the track changes extension.
type Extension struct {
	*extension.Base[Options]
	track     *plugin.Container[*TrackState]
	highlight *plugin.Container[highlightState]
}

// New creates the track changes extension.
func New(opts ...func(*Options)) *Extension {
	return &Extension{
		Base: extension.NewBase(Name, extension.KindPlain, Options{
			HighlightClass: "blame-marker",
			RevertMessage:  "Revert '" + MessagePlaceholder + "'",
		}, opts...).WithTags(extension.TagBehavior),
		track:     plugin.NewContainer[*TrackState](Name),
		highlight: plugin.NewContainer[highlightState](Name + "Highlight"),
	}
}

// Plugin implements extension.PluginProvider.
func (e *Extension) Plugin(*extension.CreateContext) *state.Plugin {
	return e.track.Plugin(
		func(cfg state.Config, _ *state.EditorState) *TrackState { return NewTrackState(cfg.Doc) },
		func(tr *state.Transaction, ts *TrackState, _, _ *state.EditorState) *TrackState {
			ts = ts.ApplyTransform(tr.Transform)
			if m, ok := plugin.Meta[commitMeta](tr, e.track.Key()); ok {
				ts = ts.ApplyCommit(newID(tr.Time), m.message, tr.Time)
			}
			return ts
		},
	)
}

// ExternalPlugins implements extension.ExternalPluginProvider with the
// highlight plugin.
func (e *Extension) ExternalPlugins(*extension.CreateContext) []*state.Plugin {
	return []*state.Plugin{e.highlight.Plugin(
		func(state.Config, *state.EditorState) highlightState {
			return highlightState{decos: decoration.Empty}
		},
		e.applyHighlight,
		plugin.WithProps(state.Props{Decorations: func(s *state.EditorState) *decoration.Set {
			hs, err := e.highlight.Get(s)
			if err != nil {
				return nil
			}
			return hs.decos
		}}),
	)}
}

func (e *Extension) applyHighlight(tr *state.Transaction, prev highlightState, old, next *state.EditorState) highlightState {
	m, ok := plugin.Meta[highlightMeta](tr, e.highlight.Key())
	switch {
	case ok && m.add != "" && m.add != prev.commit:
		ts, err := e.track.Get(next)
		if err != nil {
			return prev
		}
		return highlightState{decos: e.highlightDecorations(ts, m.add), commit: m.add}
	case ok && m.clear:
		return highlightState{decos: decoration.Empty}
	case tr.DocChanged() && prev.commit != "":
		return highlightState{decos: prev.decos.Map(tr.Mapping, tr.Doc), commit: prev.commit}
	}
	return prev
}

func (e *Extension) highlightDecorations(ts *TrackState, id string) *decoration.Set {
	index, ok := ts.Find(id)
	if !ok {
		return decoration.Empty
	}
	class := e.Options().HighlightClass
	var decos []*decoration.Decoration
	for _, s := range ts.Blame {
		if s.Commit == index {
			decos = append(decos, decoration.NewInline(s.From, s.To, map[string]string{"class": class}, id))
		}
	}
	return decoration.Create(nil, decos...)
}

func newID(at time.Time) string {
	if at.IsZero() {
		at = time.Now()
	}
	return ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}

// State returns the track state in s.
func (e *Extension) State(s *state.EditorState) (*TrackState, error) {
	return e.track.Get(s)
}

// Commit returns a command that seals the uncommitted changes. It does not
// apply when nothing is uncommitted.
func (e *Extension) Commit(message string) extension.Command {
	return func(p extension.CommandProps) bool {
		ts, err := e.track.Get(p.State)
		if err != nil || !ts.Dirty() && !p.Tr.DocChanged() {
			return false
		}
		if p.DryRun() {
			return true
		}
		e.track.SetMeta(p.Tr, commitMeta{message: message})
		p.Apply()
		return true
	}
}

// Revert returns a command that undoes the commit with the given id and
// records the revert as a commit of its own. It does not apply to an
// unknown commit, while changes are uncommitted, or when nothing of the
// commit can be undone any more.
func (e *Extension) Revert(id string) extension.Command {
	return func(p extension.CommandProps) bool {
		ts, err := e.track.Get(p.State)
		if err != nil || ts.Dirty() || p.Tr.DocChanged() {
			return false
		}
		index, ok := ts.Find(id)
		if !ok {
			return false
		}
		if p.DryRun() {
			scratch := transform.New(p.Tr.Doc)
			ts.revert(scratch, index)
			return scratch.DocChanged()
		}
		ts.revert(p.Tr.Transform, index)
		if !p.Tr.DocChanged() {
			return false
		}
		msg := strings.ReplaceAll(e.Options().RevertMessage, MessagePlaceholder, ts.Commits[index].Message)
		e.track.SetMeta(p.Tr, commitMeta{message: msg})
		p.Apply()
		return true
	}
}

// Highlight returns a command that highlights the content of a commit.
func (e *Extension) Highlight(id string) extension.Command {
	return func(p extension.CommandProps) bool {
		ts, err := e.track.Get(p.State)
		if err != nil {
			return false
		}
		if _, ok := ts.Find(id); !ok {
			return false
		}
		if hs, _ := e.highlight.Get(p.State); hs.commit == id {
			return false
		}
		if p.DryRun() {
			return true
		}
		e.highlight.SetMeta(p.Tr, highlightMeta{add: id})
		p.Apply()
		return true
	}
}

// ClearHighlight returns a command that removes the highlight.
func (e *Extension) ClearHighlight() extension.Command {
	return func(p extension.CommandProps) bool {
		hs, err := e.highlight.Get(p.State)
		if err != nil || hs.commit == "" {
			return false
		}
		if p.DryRun() {
			return true
		}
		e.highlight.SetMeta(p.Tr, highlightMeta{clear: true})
		p.Apply()
		return true
	}
}

// Commands implements extension.CommandProvider:
//
//	commit(message string)
//	revertCommit(id string)
//	highlightCommit(id string)
//	clearHighlight()
func (e *Extension) Commands() map[string]extension.CommandFactory {
	return map[string]extension.CommandFactory{
		"commit": func(args ...any) extension.Command {
			msg, _ := extension.Arg[string](args, 0)
			return e.Commit(msg)
		},
		"revertCommit": func(args ...any) extension.Command {
			id, _ := extension.Arg[string](args, 0)
			return e.Revert(id)
		},
		"highlightCommit": func(args ...any) extension.Command {
			id, _ := extension.Arg[string](args, 0)
			return e.Highlight(id)
		},
		"clearHighlight": extension.Simple(e.ClearHighlight()),
	}
}

// Helpers implements extension.HelperProvider:
//
//	getCommits() []*Commit
//	getBlame() []Span
//	getTrackState() *TrackState
//	findCommit(message string) string, the id of the latest commit with
//	that message or ""
func (e *Extension) Helpers() map[string]extension.Helper {
	return map[string]extension.Helper{
		"getCommits": func(s *state.EditorState, _ ...any) any {
			ts, err := e.track.Get(s)
			if err != nil {
				return []*Commit(nil)
			}
			return append([]*Commit(nil), ts.Commits...)
		},
		"getBlame": func(s *state.EditorState, _ ...any) any {
			ts, err := e.track.Get(s)
			if err != nil {
				return []Span(nil)
			}
			return append([]Span(nil), ts.Blame...)
		},
		"getTrackState": func(s *state.EditorState, _ ...any) any {
			ts, _ := e.track.Get(s)
			return ts
		},
		"findCommit": func(s *state.EditorState, args ...any) any {
			msg, _ := extension.Arg[string](args, 0)
			ts, err := e.track.Get(s)
			if err != nil {
				return ""
			}
			for i := len(ts.Commits) - 1; i >= 0; i-- {
				if ts.Commits[i].Message == msg {
					return ts.Commits[i].ID
				}
			}
			return ""
		},
	}
}
