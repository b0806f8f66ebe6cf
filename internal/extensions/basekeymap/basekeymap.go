// Package basekeymap binds the editing keys every editor expects: Enter,
// Backspace, Delete and select all.
package basekeymap

import (
	"github.com/dshills/inkstorm/internal/commands"
	"github.com/dshills/inkstorm/internal/extension"
)

// Options configure the base keymap.
type Options struct {
	// SelectAll binds Mod-a.
	SelectAll bool `toml:"select_all"`
}

// Extension is the base keymap. It runs after every other keymap.
type Extension struct {
	*extension.Base[Options]
}

// New creates the base keymap extension.
func New(opts ...func(*Options)) *Extension {
	return &Extension{Base: extension.NewBase("baseKeymap", extension.KindPlain, Options{SelectAll: true}, opts...).
		WithPriority(extension.PriorityLow).
		WithTags(extension.TagBehavior, extension.TagLast)}
}

// Keymap implements extension.KeymapProvider.
func (e *Extension) Keymap() map[string]extension.Command {
	bindings := map[string]extension.Command{
		"Enter": extension.ChainCommands(commands.SplitBlock()),
		"Backspace": extension.ChainCommands(
			commands.DeleteSelection(),
			commands.JoinBackward(),
			commands.DeleteCharBackward(),
		),
		"Delete": extension.ChainCommands(
			commands.DeleteSelection(),
			commands.JoinForward(),
			commands.DeleteCharForward(),
		),
	}
	if e.Options().SelectAll {
		bindings["Mod-a"] = commands.SelectAll()
	}
	return bindings
}

// Commands implements extension.CommandProvider.
func (e *Extension) Commands() map[string]extension.CommandFactory {
	return map[string]extension.CommandFactory{
		"selectAll":       extension.Simple(commands.SelectAll()),
		"deleteSelection": extension.Simple(commands.DeleteSelection()),
		"splitBlock":      extension.Simple(commands.SplitBlock()),
		"insertText": func(args ...any) extension.Command {
			text, _ := extension.Arg[string](args, 0)
			var rng []int
			for i := 1; i < len(args) && i < 3; i++ {
				if pos, ok := extension.Arg[int](args, i); ok {
					rng = append(rng, pos)
				}
			}
			return commands.InsertText(text, rng...)
		},
	}
}
