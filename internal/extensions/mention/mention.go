// Package mention provides the mention mark and wires one suggester per
// configured matcher, so typing "@jo" can be turned into a mention.
package mention

import (
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"golang.org/x/text/cases"

	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/extension"
	"github.com/dshills/inkstorm/internal/extensions/suggest"
	"github.com/dshills/inkstorm/internal/plugin"
	"github.com/dshills/inkstorm/internal/textrange"
)

// Name is the extension and mark name.
const Name = "mention"

// Errors reported while building the editor.
var (
	ErrNoMatchers     = errors.New("mention requires at least one matcher")
	ErrSuggestMissing = errors.New("mention requires the suggest extension")
	ErrMatchersFixed  = errors.New("mention matchers cannot change once the editor is built")
)

// Matcher configures one mention trigger.
type Matcher struct {
	Name                string `toml:"name"`
	Char                string `toml:"char"`
	StartOfLine         bool   `toml:"start_of_line"`
	SupportedCharacters string `toml:"supported_characters"`
	AppendText          string `toml:"append_text"`
}

// Options configure mentions.
type Options struct {
	Matchers  []Matcher `toml:"matchers"`
	ClassName string    `toml:"class_name"`

	OnEnter  suggest.Handler `toml:"-"`
	OnChange suggest.Handler `toml:"-"`
	OnExit   suggest.Handler `toml:"-"`
}

// Extension is the mention mark extension.
type Extension struct {
	*extension.Base[Options]
	suggest *suggest.Extension

	// built is set once the suggesters were handed out.
	built atomic.Bool
}

// New creates the mention extension. The default matcher is "at",
// triggered by "@".
func New(opts ...func(*Options)) *Extension {
	defaults := Options{
		Matchers:  []Matcher{{Name: "at", Char: "@", AppendText: " "}},
		ClassName: "mention",
	}
	return &Extension{
		Base: extension.NewBase(Name, extension.KindMark, defaults, opts...),
	}
}

// MarkSpec implements extension.MarkSpecProvider.
func (e *Extension) MarkSpec() model.MarkSpec {
	inclusive, excludes := false, "_"
	return model.MarkSpec{
		Name:      Name,
		Inclusive: &inclusive,
		Excludes:  &excludes,
		Attrs: map[string]model.AttributeSpec{
			"id":    {Required: true},
			"label": {Default: ""},
			"name":  {Required: true},
		},
		ParseHTML: []model.ParseRule{{
			Tag: "a",
			GetAttrs: func(attrs map[string]string) (model.Attrs, bool) {
				id, ok := attrs["data-mention-id"]
				if !ok {
					return nil, false
				}
				return model.Attrs{"id": id, "label": attrs["data-mention-label"], "name": attrs["data-mention-name"]}, true
			},
		}},
		ToHTML: func(m *model.Mark) model.HTMLSpec {
			name := fmt.Sprint(m.Attrs["name"])
			return model.HTMLSpec{Tag: "a", Attrs: map[string]string{
				"class":              e.Options().ClassName + " " + e.Options().ClassName + "-" + name,
				"data-mention-id":    fmt.Sprint(m.Attrs["id"]),
				"data-mention-label": fmt.Sprint(m.Attrs["label"]),
				"data-mention-name":  name,
			}}
		},
	}
}

// Suggesters implements suggest.Provider. The matchers are read once,
// when the suggest plugin is built.
func (e *Extension) Suggesters() []*suggest.Suggester {
	e.built.Store(true)
	opts := e.Options()
	out := make([]*suggest.Suggester, 0, len(opts.Matchers))
	for _, m := range opts.Matchers {
		out = append(out, &suggest.Suggester{
			Name:                m.Name,
			Char:                m.Char,
			StartOfLine:         m.StartOfLine,
			SupportedCharacters: m.SupportedCharacters,
			AppendText:          m.AppendText,
			OnEnter:             opts.OnEnter,
			OnChange:            opts.OnChange,
			OnExit:              opts.OnExit,
			Insert:              e.insertFor(m),
		})
	}
	return out
}

// DecodeOptions implements extension.Configurable. After the editor is
// built, updates that change the matchers are rejected as a whole.
func (e *Extension) DecodeOptions(raw map[string]any) error {
	if e.built.Load() {
		if _, ok := raw["matchers"]; ok {
			trial := extension.NewBase(Name, extension.KindMark, e.Options())
			if err := trial.DecodeOptions(raw); err != nil {
				return err
			}
			if !slices.Equal(trial.Options().Matchers, e.Options().Matchers) {
				return fmt.Errorf("%w: %w", extension.ErrInvalidOptions, ErrMatchersFixed)
			}
		}
	}
	return e.Base.DecodeOptions(raw)
}

// OnCreate implements extension.CreateHook.
func (e *Extension) OnCreate(ctx *extension.CreateContext) error {
	if len(e.Options().Matchers) == 0 {
		return ErrNoMatchers
	}
	ext, ok := ctx.Lookup.Extension(suggest.Name)
	if !ok {
		return ErrSuggestMissing
	}
	s, ok := ext.(*suggest.Extension)
	if !ok {
		return ErrSuggestMissing
	}
	e.suggest = s
	return nil
}

// insertFor replaces the match with the label marked as a mention.
func (e *Extension) insertFor(m Matcher) suggest.InsertFunc {
	return func(tr *state.Transaction, r textrange.Range, attrs model.Attrs) bool {
		return e.mark(tr, r, m, attrs)
	}
}

func (e *Extension) mark(tr *state.Transaction, r textrange.Range, m Matcher, attrs model.Attrs) bool {
	mt, ok := tr.Doc.Type.Schema.MarkType(Name)
	if !ok {
		return false
	}
	id, _ := attrs["id"].(string)
	if id == "" {
		return false
	}
	label, _ := attrs["label"].(string)
	if label == "" {
		label = id
	}
	text := m.Char + label
	mark, err := mt.Create(model.Attrs{"id": id, "label": text, "name": m.Name})
	if err != nil {
		return false
	}
	if err := tr.ReplaceWith(r.From, r.To, tr.Doc.Type.Schema.Text(text, mark)); err != nil {
		return false
	}
	end := r.From + len([]rune(text))
	tr.SetSelection(state.Cursor(end))
	tr.SetStoredMarks([]*model.Mark{})
	return true
}

func (e *Extension) matcher(name string) (Matcher, bool) {
	for _, m := range e.Options().Matchers {
		if m.Name == name {
			return m, true
		}
	}
	return Matcher{}, false
}

// CreateMention returns a command marking a mention. With an explicit
// range the text there is replaced, otherwise the active match of the
// matcher named by attrs["name"] is.
func (e *Extension) CreateMention(attrs model.Attrs, explicit *textrange.Range) extension.Command {
	return func(p extension.CommandProps) bool {
		name, _ := attrs["name"].(string)
		m, ok := e.matcher(name)
		if !ok {
			return false
		}
		if explicit == nil {
			if e.suggest == nil {
				return false
			}
			return e.suggest.Insert(name, attrs)(p)
		}
		if explicit.Empty() || explicit.To > p.Tr.Doc.Content.Size() {
			return false
		}
		if p.DryRun() {
			return e.mark(p.Scratch(), *explicit, m, attrs)
		}
		if !e.mark(p.Tr, *explicit, m, attrs) {
			return false
		}
		p.Apply()
		return true
	}
}

// Commands implements extension.CommandProvider:
//
//	createMention(attrs model.Attrs [, from, to int])
//	removeMention([from, to int])
func (e *Extension) Commands() map[string]extension.CommandFactory {
	return map[string]extension.CommandFactory{
		"createMention": func(args ...any) extension.Command {
			attrs, _ := extension.Arg[model.Attrs](args, 0)
			return e.CreateMention(attrs, rangeArgs(args, 1))
		},
		"removeMention": func(args ...any) extension.Command {
			return e.removeMention(rangeArgs(args, 0))
		},
	}
}

func rangeArgs(args []any, i int) *textrange.Range {
	from, ok1 := extension.Arg[int](args, i)
	to, ok2 := extension.Arg[int](args, i+1)
	if !ok1 || !ok2 {
		return nil
	}
	return &textrange.Range{From: from, To: to}
}

func (e *Extension) removeMention(explicit *textrange.Range) extension.Command {
	return func(p extension.CommandProps) bool {
		mt, ok := p.Tr.Doc.Type.Schema.MarkType(Name)
		if !ok {
			return false
		}
		r, ok := textrange.Range{}, false
		if explicit != nil {
			r, ok = *explicit, !explicit.Empty()
		} else {
			r, ok = textrange.GetMarkRange(p.Tr.Doc, p.Tr.Selection().Head, mt, nil)
		}
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

// Helpers implements extension.HelperProvider:
//
//	getMentionQuery(name string) string, case folded, "" when inactive
func (e *Extension) Helpers() map[string]extension.Helper {
	return map[string]extension.Helper{
		"getMentionQuery": func(s *state.EditorState, args ...any) any {
			name, _ := extension.Arg[string](args, 0)
			if e.suggest == nil {
				return ""
			}
			m, ok := e.suggest.Match(s, name)
			if !ok {
				return ""
			}
			return cases.Fold().String(m.Query)
		},
	}
}

// Plugin implements extension.PluginProvider. It drops the mention mark
// from text that no longer reads as the mention's label.
func (e *Extension) Plugin(*extension.CreateContext) *state.Plugin {
	return plugin.Stateless(e.PluginKey(), plugin.WithAppendTransaction(
		func(trs []*state.Transaction, _, s *state.EditorState) *state.Transaction {
			changed := false
			for _, tr := range trs {
				changed = changed || textrange.HasReplaceStep(tr.Transform)
			}
			if !changed {
				return nil
			}
			return e.removeStale(s)
		}))
}

func (e *Extension) removeStale(s *state.EditorState) *state.Transaction {
	mt, ok := s.Schema.MarkType(Name)
	if !ok {
		return nil
	}
	type run struct {
		r     textrange.Range
		mark  *model.Mark
		label string
		text  string
	}
	var runs []run
	s.Doc.Descendants(func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if !node.IsText() {
			return true
		}
		mark := mt.IsInSet(node.Marks)
		if mark == nil {
			return false
		}
		end := pos + node.NodeSize()
		if n := len(runs); n > 0 && runs[n-1].r.To == pos && runs[n-1].mark.Eq(mark) {
			runs[n-1].r.To = end
			runs[n-1].text += node.Text
			return false
		}
		label, _ := mark.Attrs["label"].(string)
		runs = append(runs, run{r: textrange.Range{From: pos, To: end}, mark: mark, label: label, text: node.Text})
		return false
	})
	var tr *state.Transaction
	for _, r := range runs {
		if r.text == r.label {
			continue
		}
		if tr == nil {
			tr = s.Tr()
		}
		tr.RemoveMark(r.r.From, r.r.To, r.mark)
	}
	return tr
}
