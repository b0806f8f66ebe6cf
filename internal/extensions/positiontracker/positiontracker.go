// Package positiontracker tracks named document positions across edits.
// Each tracker is a widget decoration in one persistent set; every
// transaction maps the set before applying this plugin's instruction, so a
// tracker keeps pointing at the same content while the document changes.
package positiontracker

import (
	"github.com/dshills/inkstorm/internal/engine/decoration"
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/extension"
	"github.com/dshills/inkstorm/internal/plugin"
)

// Name is the extension name.
const Name = "positionTracker"

// decorationType tags the decorations owned by this extension.
const decorationType = "positionTracker"

// Spec is the decoration spec of a tracker.
type Spec struct {
	ID   string
	Type string
}

type opKind int

const (
	opAdd opKind = iota
	opRemove
	opClear
)

// instruction is the transaction metadata read by the plugin.
type instruction struct {
	op  opKind
	id  string
	pos int
}

// Extension is the position tracker.
type Extension struct {
	*extension.Base[struct{}]
	container *plugin.Container[*decoration.Set]
}

// New creates the position tracker extension.
func New() *Extension {
	return &Extension{
		Base:      extension.NewBase(Name, extension.KindPlain, struct{}{}).WithTags(extension.TagBehavior),
		container: plugin.NewContainer[*decoration.Set](Name),
	}
}

// Plugin implements extension.PluginProvider.
func (e *Extension) Plugin(*extension.CreateContext) *state.Plugin {
	return e.container.Plugin(
		func(state.Config, *state.EditorState) *decoration.Set { return decoration.Empty },
		e.apply,
	)
}

// apply maps the set first and only then honors the instruction, which is
// expressed in positions of the transaction's final document.
func (e *Extension) apply(tr *state.Transaction, set *decoration.Set, _, next *state.EditorState) *decoration.Set {
	set = set.Map(tr.Mapping, tr.Doc)
	in, ok := plugin.Meta[instruction](tr, e.container.Key())
	if !ok {
		return set
	}
	switch in.op {
	case opAdd:
		if len(findByID(set, in.id)) > 0 {
			return set
		}
		pos := min(max(in.pos, 0), next.Doc.Content.Size())
		return set.Add(next.Doc, decoration.NewWidget(pos, Spec{ID: in.id, Type: decorationType}, 0))
	case opRemove:
		return set.Remove(findByID(set, in.id)...)
	case opClear:
		return set.Remove(set.Find(-1, -1, isTracker)...)
	}
	return set
}

func isTracker(spec any) bool {
	s, ok := spec.(Spec)
	return ok && s.Type == decorationType
}

func findByID(set *decoration.Set, id string) []*decoration.Decoration {
	return set.Find(-1, -1, func(spec any) bool {
		s, ok := spec.(Spec)
		return ok && s.Type == decorationType && s.ID == id
	})
}

// Set returns the tracker decorations in s.
func (e *Extension) Set(s *state.EditorState) *decoration.Set {
	set, err := e.container.Get(s)
	if err != nil {
		return decoration.Empty
	}
	return set
}

// Find returns the current position of tracker id.
func (e *Extension) Find(s *state.EditorState, id string) (int, bool) {
	found := findByID(e.Set(s), id)
	if len(found) == 0 {
		return 0, false
	}
	return found[0].From, true
}

// FindAll returns the position of every tracker.
func (e *Extension) FindAll(s *state.EditorState) map[string]int {
	out := make(map[string]int)
	for _, d := range e.Set(s).Find(-1, -1, isTracker) {
		out[d.Spec.(Spec).ID] = d.From
	}
	return out
}

// Add returns a command that starts tracking pos, or the selection head
// when pos is negative. It does not apply when id is already tracked.
func (e *Extension) Add(id string, pos int) extension.Command {
	return func(p extension.CommandProps) bool {
		if id == "" {
			return false
		}
		if _, tracked := e.Find(p.State, id); tracked {
			return false
		}
		if p.DryRun() {
			return true
		}
		at := p.Tr.Selection().Head
		if pos >= 0 {
			at = p.Tr.Mapping.Map(pos, 1)
		}
		e.container.SetMeta(p.Tr, instruction{op: opAdd, id: id, pos: at})
		p.Apply()
		return true
	}
}

// Remove returns a command that stops tracking id.
func (e *Extension) Remove(id string) extension.Command {
	return func(p extension.CommandProps) bool {
		if _, tracked := e.Find(p.State, id); !tracked {
			return false
		}
		if p.DryRun() {
			return true
		}
		e.container.SetMeta(p.Tr, instruction{op: opRemove, id: id})
		p.Apply()
		return true
	}
}

// Clear returns a command that drops every tracker.
func (e *Extension) Clear() extension.Command {
	return func(p extension.CommandProps) bool {
		if len(e.Set(p.State).Find(-1, -1, isTracker)) == 0 {
			return false
		}
		if p.DryRun() {
			return true
		}
		e.container.SetMeta(p.Tr, instruction{op: opClear})
		p.Apply()
		return true
	}
}

// Commands implements extension.CommandProvider:
//
//	addPositionTracker(id string [, pos int])
//	removePositionTracker(id string)
//	clearPositionTrackers()
//	insertTextAsync(pending PendingText)
func (e *Extension) Commands() map[string]extension.CommandFactory {
	return map[string]extension.CommandFactory{
		"addPositionTracker": func(args ...any) extension.Command {
			id, _ := extension.Arg[string](args, 0)
			pos, ok := extension.Arg[int](args, 1)
			if !ok {
				pos = -1
			}
			return e.Add(id, pos)
		},
		"removePositionTracker": func(args ...any) extension.Command {
			id, _ := extension.Arg[string](args, 0)
			return e.Remove(id)
		},
		"clearPositionTrackers": extension.Simple(e.Clear()),
		"insertTextAsync": func(args ...any) extension.Command {
			pending, _ := extension.Arg[PendingText](args, 0)
			return e.insertTextAsyncCommand(pending)
		},
	}
}

// Helpers implements extension.HelperProvider:
//
//	findPositionTracker(id string) int, or nil when not tracked
//	findAllPositionTrackers() map[string]int
func (e *Extension) Helpers() map[string]extension.Helper {
	return map[string]extension.Helper{
		"findPositionTracker": func(s *state.EditorState, args ...any) any {
			id, _ := extension.Arg[string](args, 0)
			if pos, ok := e.Find(s, id); ok {
				return pos
			}
			return nil
		},
		"findAllPositionTrackers": func(s *state.EditorState, _ ...any) any {
			return e.FindAll(s)
		},
	}
}
