package extension

import (
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/keymap"
)

// CommandProps is what a command runs against. Commands read positions
// from Tr, which starts at State and may already carry earlier changes
// when commands are chained. A nil Dispatch asks whether the command
// would apply without applying it.
type CommandProps struct {
	State    *state.EditorState
	Tr       *state.Transaction
	Dispatch func(tr *state.Transaction)
	View     state.EditorView
}

// DryRun reports whether the props only query applicability.
func (p CommandProps) DryRun() bool { return p.Dispatch == nil }

// Apply dispatches the props' transaction unless this is a dry run.
func (p CommandProps) Apply() {
	if p.Dispatch != nil {
		p.Dispatch(p.Tr)
	}
}

// Scratch returns a throwaway transaction over Tr's current document and
// selection. Dry runs that can only tell whether an edit succeeds by
// attempting it run it here.
func (p CommandProps) Scratch() *state.Transaction {
	sel := p.Tr.Selection()
	s, err := state.Create(state.Config{Schema: p.Tr.Doc.Type.Schema, Doc: p.Tr.Doc, Selection: &sel})
	if err != nil {
		return p.State.Tr()
	}
	return s.Tr()
}

// Command reports whether it applies and, unless dry running, applies it.
type Command func(p CommandProps) bool

// CommandFactory builds a command from call arguments.
type CommandFactory func(args ...any) Command

// Simple adapts an argument-less command to a factory.
func Simple(cmd Command) CommandFactory {
	return func(...any) Command { return cmd }
}

// Helper is a read-only query against a state.
type Helper func(s *state.EditorState, args ...any) any

// PropsFor builds props with a fresh transaction.
func PropsFor(s *state.EditorState, dispatch func(*state.Transaction), v state.EditorView) CommandProps {
	return CommandProps{State: s, Tr: s.Tr(), Dispatch: dispatch, View: v}
}

// ToHandler adapts a command to a key handler.
func ToHandler(cmd Command) keymap.Handler {
	return func(s *state.EditorState, dispatch func(*state.Transaction), v state.EditorView) bool {
		return cmd(PropsFor(s, dispatch, v))
	}
}

// ChainCommands runs commands in order until one applies.
func ChainCommands(cmds ...Command) Command {
	return func(p CommandProps) bool {
		for _, c := range cmds {
			if c(p) {
				return true
			}
		}
		return false
	}
}

// Arg returns args[i] as a T.
func Arg[T any](args []any, i int) (T, bool) {
	var zero T
	if i >= len(args) {
		return zero, false
	}
	v, ok := args[i].(T)
	return v, ok
}
