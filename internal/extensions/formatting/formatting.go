// Package formatting provides the bold, italic and code marks.
package formatting

import (
	"github.com/dshills/inkstorm/internal/commands"
	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/extension"
)

// Options configure a formatting mark.
type Options struct {
	// Keys are the bindings toggling the mark.
	Keys []string `toml:"keys"`
}

// Mark is a simple toggled formatting mark.
type Mark struct {
	*extension.Base[Options]

	command string
	spec    model.MarkSpec
}

func newMark(name, command, tag string, keys []string, spec model.MarkSpec, opts []func(*Options)) *Mark {
	spec.Name = name
	if spec.ToHTML == nil {
		spec.ToHTML = func(*model.Mark) model.HTMLSpec { return model.HTMLSpec{Tag: tag} }
	}
	base := extension.NewBase(name, extension.KindMark, Options{Keys: keys}, opts...).
		WithTags(extension.TagFormatting)
	return &Mark{Base: base, command: command, spec: spec}
}

// NewBold creates the bold mark, parsed from <strong> and <b>.
func NewBold(opts ...func(*Options)) *Mark {
	return newMark("bold", "toggleBold", "strong", []string{"Mod-b"}, model.MarkSpec{
		ParseHTML: []model.ParseRule{{Tag: "strong"}, {Tag: "b"}},
	}, opts)
}

// NewItalic creates the italic mark, parsed from <em> and <i>.
func NewItalic(opts ...func(*Options)) *Mark {
	return newMark("italic", "toggleItalic", "em", []string{"Mod-i"}, model.MarkSpec{
		ParseHTML: []model.ParseRule{{Tag: "em"}, {Tag: "i"}},
	}, opts)
}

// NewCode creates the inline code mark. Code excludes every other mark.
func NewCode(opts ...func(*Options)) *Mark {
	all := "_"
	m := newMark("code", "toggleCode", "code", []string{"Mod-`"}, model.MarkSpec{
		Excludes:  &all,
		ParseHTML: []model.ParseRule{{Tag: "code"}},
	}, opts)
	m.WithTags(extension.TagCode)
	return m
}

// MarkSpec implements extension.MarkSpecProvider.
func (m *Mark) MarkSpec() model.MarkSpec { return m.spec }

// Commands implements extension.CommandProvider.
func (m *Mark) Commands() map[string]extension.CommandFactory {
	return map[string]extension.CommandFactory{
		m.command: extension.Simple(commands.ToggleMark(m.Name(), nil)),
	}
}

// Helpers implements extension.HelperProvider. The active helper reports
// whether the selection, or the marks at the cursor, carry the mark.
func (m *Mark) Helpers() map[string]extension.Helper {
	return map[string]extension.Helper{
		m.Name() + "Active": func(s *state.EditorState, _ ...any) any {
			return commands.MarkActive(s, m.Name())
		},
	}
}

// Keymap implements extension.KeymapProvider.
func (m *Mark) Keymap() map[string]extension.Command {
	bindings := make(map[string]extension.Command)
	for _, key := range m.Options().Keys {
		bindings[key] = commands.ToggleMark(m.Name(), nil)
	}
	return bindings
}

// Preset bundles bold, italic and code.
func Preset() extension.Preset {
	return extension.NewPreset("formatting", NewBold(), NewItalic(), NewCode())
}
