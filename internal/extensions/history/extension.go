package history

import (
	"time"

	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/extension"
	"github.com/dshills/inkstorm/internal/plugin"
)

// Options configure the history.
type Options struct {
	// Depth is the number of undo events kept. Zero keeps all.
	Depth int `toml:"depth"`

	// NewGroupDelay is the maximum gap, in milliseconds, between adjacent
	// edits grouped into one undo event.
	NewGroupDelay int `toml:"new_group_delay"`
}

// DefaultOptions returns depth 100 and a 500ms group delay.
func DefaultOptions() Options {
	return Options{Depth: 100, NewGroupDelay: 500}
}

// Extension is the history extension.
type Extension struct {
	*extension.Base[Options]

	// PreserveItems reports whether undo must keep rebased steps, as
	// collaborative editing requires.
	PreserveItems func(s *state.EditorState) bool
}

// New creates the history extension.
func New(opts ...func(*Options)) *Extension {
	return &Extension{Base: extension.NewBase("history", extension.KindPlain, DefaultOptions(), opts...).
		WithPriority(extension.PriorityHigh).
		WithTags(extension.TagBehavior)}
}

func (e *Extension) config() config {
	opts := e.Options()
	return config{
		depth:         opts.Depth,
		newGroupDelay: time.Duration(opts.NewGroupDelay) * time.Millisecond,
		preserveItems: e.PreserveItems,
	}
}

// Plugin implements extension.PluginProvider.
func (e *Extension) Plugin(*extension.CreateContext) *state.Plugin {
	return newPlugin(e.PluginKey(), e.config)
}

func (e *Extension) command(redo bool) extension.Command {
	return func(p extension.CommandProps) bool {
		hist, err := plugin.GetState[State](e.PluginKey(), p.State)
		if err != nil {
			return false
		}
		if p.Tr.DocChanged() {
			// Undo inside a chain runs against the chain's starting state.
			return false
		}
		if p.DryRun() {
			if redo {
				return hist.RedoDepth() > 0
			}
			return hist.UndoDepth() > 0
		}
		tr, ok := histTransaction(e.PluginKey(), hist, p.State, redo, e.config())
		if !ok {
			return false
		}
		p.Dispatch(tr.ScrollIntoView())
		return true
	}
}

// Undo returns the undo command.
func (e *Extension) Undo() extension.Command { return e.command(false) }

// Redo returns the redo command.
func (e *Extension) Redo() extension.Command { return e.command(true) }

// Commands implements extension.CommandProvider.
func (e *Extension) Commands() map[string]extension.CommandFactory {
	return map[string]extension.CommandFactory{
		"undo": extension.Simple(e.Undo()),
		"redo": extension.Simple(e.Redo()),
	}
}

// Helpers implements extension.HelperProvider.
func (e *Extension) Helpers() map[string]extension.Helper {
	depth := func(redo bool) extension.Helper {
		return func(s *state.EditorState, _ ...any) any {
			hist, err := plugin.GetState[State](e.PluginKey(), s)
			if err != nil {
				return 0
			}
			if redo {
				return hist.RedoDepth()
			}
			return hist.UndoDepth()
		}
	}
	return map[string]extension.Helper{
		"undoDepth": depth(false),
		"redoDepth": depth(true),
	}
}

// Keymap implements extension.KeymapProvider.
func (e *Extension) Keymap() map[string]extension.Command {
	return map[string]extension.Command{
		"Mod-z":       e.Undo(),
		"Shift-Mod-z": e.Redo(),
		"Mod-y":       e.Redo(),
	}
}
