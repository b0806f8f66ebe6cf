package app

import (
	"github.com/dshills/inkstorm/internal/config"
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/extension"
	"github.com/dshills/inkstorm/internal/extensions/basekeymap"
	collabext "github.com/dshills/inkstorm/internal/extensions/collab"
	"github.com/dshills/inkstorm/internal/extensions/core"
	"github.com/dshills/inkstorm/internal/extensions/emoji"
	"github.com/dshills/inkstorm/internal/extensions/formatting"
	"github.com/dshills/inkstorm/internal/extensions/heading"
	"github.com/dshills/inkstorm/internal/extensions/history"
	"github.com/dshills/inkstorm/internal/extensions/link"
	"github.com/dshills/inkstorm/internal/extensions/mention"
	"github.com/dshills/inkstorm/internal/extensions/placeholder"
	"github.com/dshills/inkstorm/internal/extensions/positiontracker"
	"github.com/dshills/inkstorm/internal/extensions/script"
	"github.com/dshills/inkstorm/internal/extensions/suggest"
	"github.com/dshills/inkstorm/internal/extensions/trackchanges"
	"github.com/dshills/inkstorm/internal/plugin"
)

// ReadOnlyName is the extension that makes the view read-only.
const ReadOnlyName = "readOnly"

type readOnlyOptions struct {
	Enabled bool `toml:"enabled"`
}

// readOnly vetoes editing while enabled. Its option can be flipped by a
// config reload.
type readOnly struct {
	*extension.Base[readOnlyOptions]
}

func newReadOnly(enabled bool) *readOnly {
	return &readOnly{Base: extension.NewBase(ReadOnlyName, extension.KindPlain,
		readOnlyOptions{Enabled: enabled}).WithTags(extension.TagBehavior)}
}

func (r *readOnly) Plugin(*extension.CreateContext) *state.Plugin {
	return plugin.Stateless(r.PluginKey(), plugin.WithProps(state.Props{
		Editable: func(*state.EditorState) *bool {
			editable := !r.Options().Enabled
			return &editable
		},
	}))
}

// composition is the extension set of one editor.
type composition struct {
	presets    []extension.Preset
	extensions []extension.Extension
	collab     *collabext.Extension
}

// defaultComposition builds the standard extension library. Scripts are
// loaded when configured and collaboration when a server is set.
func defaultComposition(cfg *config.Config, readOnlyDoc, withCollab bool) (*composition, error) {
	c := &composition{presets: []extension.Preset{core.Preset(), formatting.Preset()}}
	lnk, err := link.New(func(o *link.Options) { o.AutoLink = true })
	if err != nil {
		return nil, err
	}
	c.extensions = []extension.Extension{
		heading.New(),
		history.New(),
		basekeymap.New(func(o *basekeymap.Options) { o.SelectAll = true }),
		lnk,
		placeholder.New(func(o *placeholder.Options) { o.Placeholder = "Start writing…" }),
		positiontracker.New(),
		trackchanges.New(),
		suggest.New(),
		mention.New(),
		emoji.New(),
		newReadOnly(readOnlyDoc),
	}
	if _, ok := cfg.Extensions[script.Name]; ok {
		c.extensions = append(c.extensions, script.New())
	}
	if withCollab {
		c.collab = collabext.New(func(o *collabext.Options) {
			if cfg.Collab.ClientID != "" {
				o.ClientID = cfg.Collab.ClientID
			}
		})
		c.extensions = append(c.extensions, c.collab)
	}
	return c, nil
}
