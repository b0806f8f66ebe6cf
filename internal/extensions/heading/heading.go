// Package heading provides the heading node, h1 through h6.
package heading

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/dshills/inkstorm/internal/commands"
	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/extension"
)

// Options configure headings.
type Options struct {
	// Levels are the allowed heading levels.
	Levels []int `toml:"levels"`

	// DefaultLevel is used when no level is given.
	DefaultLevel int `toml:"default_level"`
}

// Extension is the heading node.
type Extension struct {
	*extension.Base[Options]
}

// New creates the heading extension.
func New(opts ...func(*Options)) *Extension {
	defaults := Options{Levels: []int{1, 2, 3, 4, 5, 6}, DefaultLevel: 1}
	return &Extension{Base: extension.NewBase("heading", extension.KindNode, defaults, opts...).
		WithTags(extension.TagBlockNode, extension.TagTextblock, extension.TagFormatting)}
}

// NodeSpec implements extension.NodeSpecProvider.
func (e *Extension) NodeSpec() model.NodeSpec {
	opts := e.Options()
	var rules []model.ParseRule
	for _, level := range opts.Levels {
		level := level
		rules = append(rules, model.ParseRule{
			Tag:      "h" + strconv.Itoa(level),
			GetAttrs: func(map[string]string) (model.Attrs, bool) { return model.Attrs{"level": level}, true },
		})
	}
	return model.NodeSpec{
		Name:      "heading",
		Content:   "inline*",
		Group:     "block",
		Attrs:     map[string]model.AttributeSpec{"level": {Default: opts.DefaultLevel}},
		ParseHTML: rules,
		ToHTML: func(n *model.Node) model.HTMLSpec {
			level, err := model.IntFromJSON(n.Attrs["level"])
			if err != nil || level < 1 || level > 6 {
				level = 1
			}
			return model.HTMLSpec{Tag: fmt.Sprintf("h%d", level)}
		},
	}
}

func (e *Extension) level(args []any) int {
	if l, ok := extension.Arg[int](args, 0); ok && slices.Contains(e.Options().Levels, l) {
		return l
	}
	return e.Options().DefaultLevel
}

// Commands implements extension.CommandProvider.
func (e *Extension) Commands() map[string]extension.CommandFactory {
	return map[string]extension.CommandFactory{
		"setHeading": func(args ...any) extension.Command {
			return commands.SetBlockType("heading", model.Attrs{"level": e.level(args)})
		},
		"toggleHeading": func(args ...any) extension.Command {
			attrs := model.Attrs{"level": e.level(args)}
			return extension.ChainCommands(
				commands.SetBlockType("heading", attrs),
				commands.SetBlockType("paragraph", nil),
			)
		},
	}
}

// Keymap implements extension.KeymapProvider.
func (e *Extension) Keymap() map[string]extension.Command {
	bindings := make(map[string]extension.Command)
	for _, level := range e.Options().Levels {
		bindings[fmt.Sprintf("Shift-Mod-%d", level)] = commands.SetBlockType("heading", model.Attrs{"level": level})
	}
	return bindings
}
