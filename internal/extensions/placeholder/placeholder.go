// Package placeholder decorates an empty document with placeholder text.
package placeholder

import (
	"github.com/dshills/inkstorm/internal/engine/decoration"
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/extension"
	"github.com/dshills/inkstorm/internal/plugin"
	"github.com/dshills/inkstorm/internal/textrange"
)

// Options configure the placeholder.
type Options struct {
	Placeholder    string `toml:"placeholder"`
	EmptyNodeClass string `toml:"empty_node_class"`
}

// Extension is the placeholder extension.
type Extension struct {
	*extension.Base[Options]
}

// New creates the placeholder extension.
func New(opts ...func(*Options)) *Extension {
	return &Extension{Base: extension.NewBase("placeholder", extension.KindPlain,
		Options{EmptyNodeClass: "empty-node"}, opts...).WithTags(extension.TagBehavior)}
}

// Plugin implements extension.PluginProvider.
func (e *Extension) Plugin(*extension.CreateContext) *state.Plugin {
	return plugin.Stateless(e.PluginKey(), plugin.WithProps(state.Props{
		Decorations: e.decorations,
	}))
}

func (e *Extension) decorations(s *state.EditorState) *decoration.Set {
	if !textrange.IsDocEmpty(s.Doc) {
		return nil
	}
	opts := e.Options()
	first := s.Doc.FirstChild()
	if first == nil {
		return nil
	}
	deco := decoration.NewNode(0, first.NodeSize(), map[string]string{
		"class":            opts.EmptyNodeClass,
		"data-placeholder": opts.Placeholder,
	}, e.Name())
	return decoration.Create(s.Doc, deco)
}
