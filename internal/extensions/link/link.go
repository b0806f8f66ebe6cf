// Package link provides the link mark, link commands and automatic
// linking of URLs as they are typed.
package link

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/extension"
	"github.com/dshills/inkstorm/internal/plugin"
	"github.com/dshills/inkstorm/internal/textrange"
)

// DefaultAutoLinkPattern matches URLs starting with a scheme or "www.".
// Trailing punctuation is left out of the match.
const DefaultAutoLinkPattern = `(?i)(?:https?://|www\.)[^\s\x{FFFC}]*[^\s\x{FFFC}.,;:!?'")\]}>]`

// Options configure the link extension.
type Options struct {
	// AutoLink marks URLs as they are typed.
	AutoLink bool `toml:"auto_link"`

	// AutoLinkPattern is the URL pattern used by AutoLink.
	AutoLinkPattern string `toml:"auto_link_pattern"`

	// DefaultProtocol prefixes auto links without a scheme.
	DefaultProtocol string `toml:"default_protocol"`

	// DefaultTarget is the target attribute of new links.
	DefaultTarget string `toml:"default_target"`

	// SelectTextOnClick selects the whole link when it is clicked.
	SelectTextOnClick bool `toml:"select_text_on_click"`
}

// DefaultOptions returns the defaults: auto linking off, https for
// links without scheme.
func DefaultOptions() Options {
	return Options{AutoLinkPattern: DefaultAutoLinkPattern, DefaultProtocol: "https://"}
}

// Extension is the link mark extension.
type Extension struct {
	*extension.Base[Options]

	reMu      sync.Mutex
	re        *regexp.Regexp
	rePattern string
}

// New creates the link extension. An invalid auto link pattern is
// reported by New.
func New(opts ...func(*Options)) (*Extension, error) {
	e := &Extension{Base: extension.NewBase("link", extension.KindMark, DefaultOptions(), opts...)}
	e.WithTags(extension.TagFormatting)
	if _, err := e.pattern(); err != nil {
		return nil, err
	}
	return e, nil
}

// pattern returns the compiled auto link pattern, recompiling after
// option updates.
func (e *Extension) pattern() (*regexp.Regexp, error) {
	src := e.Options().AutoLinkPattern
	if src == "" {
		src = DefaultAutoLinkPattern
	}
	e.reMu.Lock()
	defer e.reMu.Unlock()
	if e.re != nil && e.rePattern == src {
		return e.re, nil
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("%w: link: auto link pattern: %v", extension.ErrInvalidOptions, err)
	}
	e.re, e.rePattern = re, src
	return re, nil
}

// MarkSpec implements extension.MarkSpecProvider.
func (e *Extension) MarkSpec() model.MarkSpec {
	inclusive := false
	return model.MarkSpec{
		Name:      "link",
		Inclusive: &inclusive,
		Attrs: map[string]model.AttributeSpec{
			"href":   {Required: true},
			"target": {Default: ""},
			"auto":   {Default: false},
		},
		ParseHTML: []model.ParseRule{{
			Tag: "a",
			GetAttrs: func(attrs map[string]string) (model.Attrs, bool) {
				href, ok := attrs["href"]
				if !ok {
					return nil, false
				}
				return model.Attrs{"href": href, "target": attrs["target"], "auto": attrs["data-auto"] == "true"}, true
			},
		}},
		ToHTML: func(m *model.Mark) model.HTMLSpec {
			out := map[string]string{"href": fmt.Sprint(m.Attrs["href"])}
			if target, _ := m.Attrs["target"].(string); target != "" {
				out["target"] = target
			}
			if auto, _ := m.Attrs["auto"].(bool); auto {
				out["data-auto"] = "true"
			}
			return model.HTMLSpec{Tag: "a", Attrs: out}
		},
	}
}

func linkType(s *model.Schema) (*model.MarkType, bool) { return s.MarkType("link") }

// Commands implements extension.CommandProvider.
//
//	updateLink(href string [, from, to int])
//	removeLink([from, to int])
//	selectLink()
func (e *Extension) Commands() map[string]extension.CommandFactory {
	return map[string]extension.CommandFactory{
		"updateLink": func(args ...any) extension.Command {
			href, _ := extension.Arg[string](args, 0)
			return e.updateLink(href, rangeArgs(args[min(1, len(args)):]))
		},
		"removeLink": func(args ...any) extension.Command {
			return e.removeLink(rangeArgs(args))
		},
		"selectLink": func(...any) extension.Command { return e.selectLink() },
	}
}

func rangeArgs(args []any) *textrange.Range {
	from, ok1 := extension.Arg[int](args, 0)
	to, ok2 := extension.Arg[int](args, 1)
	if !ok1 || !ok2 {
		return nil
	}
	return &textrange.Range{From: from, To: to}
}

// targetRange is the explicit range, the selection, or the link around
// an empty selection.
func targetRange(tr *state.Transaction, mt *model.MarkType, explicit *textrange.Range) (textrange.Range, bool) {
	if explicit != nil {
		if explicit.From < 0 || explicit.To > tr.Doc.Content.Size() || explicit.Empty() {
			return textrange.Range{}, false
		}
		return *explicit, true
	}
	sel := tr.Selection()
	if !sel.Empty() {
		return textrange.Range{From: sel.From(), To: sel.To()}, true
	}
	return textrange.GetMarkRange(tr.Doc, sel.Head, mt, nil)
}

func (e *Extension) updateLink(href string, explicit *textrange.Range) extension.Command {
	return func(p extension.CommandProps) bool {
		mt, ok := linkType(p.Tr.Doc.Type.Schema)
		if !ok || href == "" {
			return false
		}
		r, ok := targetRange(p.Tr, mt, explicit)
		if !ok {
			return false
		}
		mark, err := mt.Create(model.Attrs{"href": href, "target": e.Options().DefaultTarget, "auto": false})
		if err != nil {
			return false
		}
		if p.DryRun() {
			return true
		}
		p.Tr.RemoveMarkType(r.From, r.To, mt)
		p.Tr.AddMark(r.From, r.To, mark)
		p.Apply()
		return true
	}
}

func (e *Extension) removeLink(explicit *textrange.Range) extension.Command {
	return func(p extension.CommandProps) bool {
		mt, ok := linkType(p.Tr.Doc.Type.Schema)
		if !ok {
			return false
		}
		r, ok := targetRange(p.Tr, mt, explicit)
		if !ok || !p.Tr.Doc.RangeHasMark(r.From, r.To, mt) {
			return false
		}
		if p.DryRun() {
			return true
		}
		p.Tr.RemoveMarkType(r.From, r.To, mt)
		p.Apply()
		return true
	}
}

func (e *Extension) selectLink() extension.Command {
	return func(p extension.CommandProps) bool {
		mt, ok := linkType(p.Tr.Doc.Type.Schema)
		if !ok {
			return false
		}
		r, ok := textrange.GetMarkRange(p.Tr.Doc, p.Tr.Selection().Head, mt, nil)
		if !ok {
			return false
		}
		if p.DryRun() {
			return true
		}
		p.Tr.SetSelection(state.TextSelection(r.From, r.To))
		p.Apply()
		return true
	}
}

// Helpers implements extension.HelperProvider.
//
//	getLinkRange([pos int]) textrange.Range or nil
//	isLinkActive() bool
func (e *Extension) Helpers() map[string]extension.Helper {
	return map[string]extension.Helper{
		"getLinkRange": func(s *state.EditorState, args ...any) any {
			mt, ok := linkType(s.Schema)
			if !ok {
				return nil
			}
			pos, ok := extension.Arg[int](args, 0)
			if !ok {
				pos = s.Selection.Head
			}
			if r, ok := textrange.GetMarkRange(s.Doc, pos, mt, nil); ok {
				return r
			}
			return nil
		},
		"isLinkActive": func(s *state.EditorState, _ ...any) any {
			mt, ok := linkType(s.Schema)
			if !ok {
				return false
			}
			sel := s.Selection
			if sel.Empty() {
				_, ok := textrange.GetMarkRange(s.Doc, sel.Head, mt, nil)
				return ok
			}
			return s.Doc.RangeHasMark(sel.From(), sel.To(), mt)
		},
	}
}

// Plugin implements extension.PluginProvider.
func (e *Extension) Plugin(*extension.CreateContext) *state.Plugin {
	return plugin.Stateless(e.PluginKey(),
		plugin.WithProps(state.Props{HandleClick: e.handleClick}),
		plugin.WithAppendTransaction(func(trs []*state.Transaction, _, newState *state.EditorState) *state.Transaction {
			if !e.Options().AutoLink {
				return nil
			}
			return e.autoLink(trs, newState)
		}),
	)
}

func (e *Extension) handleClick(v state.EditorView, pos int) bool {
	if !e.Options().SelectTextOnClick {
		return false
	}
	s := v.State()
	mt, ok := linkType(s.Schema)
	if !ok {
		return false
	}
	r, ok := textrange.GetMarkRange(s.Doc, pos, mt, nil)
	if !ok {
		return false
	}
	v.Dispatch(s.Tr().SetSelection(state.TextSelection(r.From, r.To)))
	return true
}

func hrefFor(text, defaultProtocol string) string {
	if strings.Contains(text, "://") {
		return text
	}
	return defaultProtocol + text
}
