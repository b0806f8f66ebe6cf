// Package suggest detects trigger-prefixed tokens such as "@name" being
// typed at the cursor and reports them to handlers through a small state
// machine recomputed on every transaction. Extensions contribute
// suggesters by implementing Provider; the matcher itself never changes
// the document.
package suggest

import (
	"errors"
	"fmt"

	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/extension"
	"github.com/dshills/inkstorm/internal/plugin"
	"github.com/dshills/inkstorm/internal/textrange"
)

// Name is the extension name.
const Name = "suggest"

// Provider is implemented by extensions contributing suggesters.
type Provider interface {
	Suggesters() []*Suggester
}

// State is the plugin state: one match per suggester, in suggester order.
type State struct {
	Matches   []Match
	dismissed []dismissal
}

// dismissal hides the match of a suggester starting at From until that
// trigger is deleted.
type dismissal struct {
	name string
	from int
}

type dismissMeta struct {
	name string
}

// Extension runs every registered suggester.
type Extension struct {
	*extension.Base[struct{}]
	container  *plugin.Container[State]
	suggesters []*Suggester
	buildErr   error
}

// New creates the suggest extension with optional standalone suggesters.
func New(suggesters ...*Suggester) *Extension {
	return &Extension{
		Base:       extension.NewBase(Name, extension.KindPlain, struct{}{}).WithPriority(extension.PriorityHigh).WithTags(extension.TagBehavior),
		container:  plugin.NewContainer[State](Name),
		suggesters: suggesters,
	}
}

// Plugin implements extension.PluginProvider. It collects the suggesters
// of every Provider; validation errors surface from OnCreate.
func (e *Extension) Plugin(ctx *extension.CreateContext) *state.Plugin {
	all := append([]*Suggester(nil), e.suggesters...)
	for _, ext := range ctx.Lookup.Extensions() {
		if p, ok := ext.(Provider); ok {
			all = append(all, p.Suggesters()...)
		}
	}
	seen := make(map[string]bool, len(all))
	var errs []error
	for _, s := range all {
		if err := s.compile(); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicate, s.Name))
		}
		seen[s.Name] = true
	}
	e.suggesters = all
	e.buildErr = errors.Join(errs...)

	return e.container.Plugin(
		func(_ state.Config, s *state.EditorState) State { return e.compute(s, nil) },
		e.apply,
		plugin.WithView(func(state.EditorView) state.PluginView {
			return state.PluginViewFuncs{UpdateFunc: e.update}
		}),
	)
}

// OnCreate implements extension.CreateHook.
func (e *Extension) OnCreate(*extension.CreateContext) error { return e.buildErr }

func (e *Extension) compute(s *state.EditorState, dismissed []dismissal) State {
	out := State{Matches: make([]Match, len(e.suggesters)), dismissed: dismissed}
	for i, sg := range e.suggesters {
		out.Matches[i] = sg.match(s, dismissed)
	}
	return out
}

func (e *Extension) apply(tr *state.Transaction, prev State, _, next *state.EditorState) State {
	dismissed := mapDismissals(prev.dismissed, tr, next)
	if m, ok := plugin.Meta[dismissMeta](tr, e.container.Key()); ok {
		for i, sg := range e.suggesters {
			if match := prev.Matches[i]; match.Active && (m.name == "" || m.name == sg.Name) {
				dismissed = append(dismissed, dismissal{name: sg.Name, from: tr.Mapping.Map(match.Range.From, 1)})
			}
		}
	}
	return e.compute(next, dismissed)
}

// mapDismissals keeps the dismissals whose trigger is still in place.
func mapDismissals(in []dismissal, tr *state.Transaction, s *state.EditorState) []dismissal {
	if len(in) == 0 {
		return nil
	}
	out := make([]dismissal, 0, len(in))
	for _, d := range in {
		r := tr.Mapping.MapResult(d.from, 1)
		if r.Deleted() {
			continue
		}
		out = append(out, dismissal{name: d.name, from: r.Pos})
	}
	return out
}

func isDismissed(dismissed []dismissal, name string, from int) bool {
	for _, d := range dismissed {
		if d.name == name && d.from == from {
			return true
		}
	}
	return false
}

// update runs the handlers of every suggester whose match changed, in the
// order exit, change, enter. A moved match exits the old range and enters
// the new one without a change.
func (e *Extension) update(v state.EditorView, prevState *state.EditorState) {
	prev, err := e.container.Get(prevState)
	if err != nil {
		return
	}
	next, err := e.container.Get(v.State())
	if err != nil {
		return
	}
	for i, sg := range e.suggesters {
		change, ok := classify(prev.Matches[i], next.Matches[i])
		if !ok {
			continue
		}
		if (change == Stopped || change == Moved) && sg.OnExit != nil {
			sg.OnExit(e.props(sg, change, prev.Matches[i], v))
		}
		if change == Changed && sg.OnChange != nil {
			sg.OnChange(e.props(sg, change, next.Matches[i], v))
		}
		if (change == Started || change == Moved) && sg.OnEnter != nil {
			sg.OnEnter(e.props(sg, change, next.Matches[i], v))
		}
	}
}

func (e *Extension) props(sg *Suggester, change Change, m Match, v state.EditorView) Props {
	return Props{
		Suggester: sg,
		Change:    change,
		Match:     m,
		View:      v,
		Command: func(attrs model.Attrs) bool {
			return e.Insert(sg.Name, attrs)(extension.PropsFor(v.State(), v.Dispatch, v))
		},
	}
}

// Match returns the current match of the named suggester.
func (e *Extension) Match(s *state.EditorState, name string) (Match, bool) {
	st, err := e.container.Get(s)
	if err != nil {
		return Match{}, false
	}
	for i, sg := range e.suggesters {
		if sg.Name == name {
			return st.Matches[i], st.Matches[i].Active
		}
	}
	return Match{}, false
}

// Suggester returns the named suggester.
func (e *Extension) Suggester(name string) (*Suggester, bool) {
	for _, sg := range e.suggesters {
		if sg.Name == name {
			return sg, true
		}
	}
	return nil, false
}

// Insert returns a command inserting a suggestion at the named
// suggester's active match, then its append text.
func (e *Extension) Insert(name string, attrs model.Attrs) extension.Command {
	return func(p extension.CommandProps) bool {
		sg, ok := e.Suggester(name)
		if !ok {
			return false
		}
		m, ok := e.Match(p.State, name)
		if !ok {
			return false
		}
		r := textrange.Range{From: p.Tr.Mapping.Map(m.Range.From, 1), To: p.Tr.Mapping.Map(m.Range.To, -1)}
		if p.DryRun() {
			return insertWithAppend(sg, p.Scratch(), r, attrs)
		}
		if !insertWithAppend(sg, p.Tr, r, attrs) {
			return false
		}
		p.Apply()
		return true
	}
}

func insertWithAppend(sg *Suggester, tr *state.Transaction, r textrange.Range, attrs model.Attrs) bool {
	if !insert(sg, tr, r, attrs) {
		return false
	}
	appendText := sg.AppendText
	if s, ok := attrs["appendText"].(string); ok {
		appendText = s
	}
	if appendText != "" {
		head := tr.Selection().Head
		tr.InsertText(appendText, head, head)
		tr.SetSelection(state.Near(tr.Doc, head+textLen(appendText), 1))
	}
	return true
}

func insert(sg *Suggester, tr *state.Transaction, r textrange.Range, attrs model.Attrs) bool {
	if sg.Insert != nil {
		return sg.Insert(tr, r, attrs)
	}
	text, _ := attrs["text"].(string)
	if text == "" {
		return false
	}
	tr.InsertText(text, r.From, r.To)
	tr.SetSelection(state.Near(tr.Doc, r.From+textLen(text), 1))
	return true
}

func textLen(s string) int { return len([]rune(s)) }

// Dismiss returns a command hiding the named suggester's active match, or
// every active match when name is empty, until its trigger is deleted.
func (e *Extension) Dismiss(name string) extension.Command {
	return func(p extension.CommandProps) bool {
		st, err := e.container.Get(p.State)
		if err != nil {
			return false
		}
		active := false
		for i, sg := range e.suggesters {
			if st.Matches[i].Active && (name == "" || name == sg.Name) {
				active = true
			}
		}
		if !active {
			return false
		}
		if p.DryRun() {
			return true
		}
		e.container.SetMeta(p.Tr, dismissMeta{name: name})
		p.Apply()
		return true
	}
}

// Commands implements extension.CommandProvider:
//
//	dismissSuggestion([name string])
//	insertSuggestion(name string, attrs model.Attrs)
func (e *Extension) Commands() map[string]extension.CommandFactory {
	return map[string]extension.CommandFactory{
		"dismissSuggestion": func(args ...any) extension.Command {
			name, _ := extension.Arg[string](args, 0)
			return e.Dismiss(name)
		},
		"insertSuggestion": func(args ...any) extension.Command {
			name, _ := extension.Arg[string](args, 0)
			attrs, _ := extension.Arg[model.Attrs](args, 1)
			return e.Insert(name, attrs)
		},
	}
}

// Helpers implements extension.HelperProvider:
//
//	getSuggestMatch(name string) Match
func (e *Extension) Helpers() map[string]extension.Helper {
	return map[string]extension.Helper{
		"getSuggestMatch": func(s *state.EditorState, args ...any) any {
			name, _ := extension.Arg[string](args, 0)
			m, _ := e.Match(s, name)
			return m
		},
	}
}
