// Package emoji turns ":shortcode" input into emoji characters through a
// suggester, and offers a case-insensitive shortcode search.
package emoji

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/extension"
	"github.com/dshills/inkstorm/internal/extensions/suggest"
	"github.com/dshills/inkstorm/internal/textrange"
)

// Name is the extension and suggester name.
const Name = "emoji"

// Options configure the emoji extension.
type Options struct {
	Char       string `toml:"char"`
	AppendText string `toml:"append_text"`
	// Limit caps search results; zero means no cap.
	Limit int `toml:"limit"`

	OnEnter  suggest.Handler `toml:"-"`
	OnChange suggest.Handler `toml:"-"`
	OnExit   suggest.Handler `toml:"-"`
}

// Extension is the emoji extension.
type Extension struct {
	*extension.Base[Options]
	suggest *suggest.Extension
}

// New creates the emoji extension.
func New(opts ...func(*Options)) *Extension {
	return &Extension{
		Base: extension.NewBase(Name, extension.KindPlain, Options{Char: ":", Limit: 10}, opts...).
			WithTags(extension.TagBehavior),
	}
}

// Suggesters implements suggest.Provider.
func (e *Extension) Suggesters() []*suggest.Suggester {
	opts := e.Options()
	return []*suggest.Suggester{{
		Name:                Name,
		Char:                opts.Char,
		SupportedCharacters: `[\w+-]`,
		AppendText:          opts.AppendText,
		OnEnter:             opts.OnEnter,
		OnChange:            opts.OnChange,
		OnExit:              opts.OnExit,
		Insert: func(tr *state.Transaction, r textrange.Range, attrs model.Attrs) bool {
			code, _ := attrs["code"].(string)
			return replace(tr, r, code)
		},
	}}
}

// OnCreate implements extension.CreateHook.
func (e *Extension) OnCreate(ctx *extension.CreateContext) error {
	if ext, ok := ctx.Lookup.Extension(suggest.Name); ok {
		e.suggest, _ = ext.(*suggest.Extension)
	}
	return nil
}

func replace(tr *state.Transaction, r textrange.Range, code string) bool {
	em, ok := Lookup(code)
	if !ok {
		return false
	}
	tr.InsertText(em.Char, r.From, r.To)
	tr.SetSelection(state.Near(tr.Doc, r.From+len([]rune(em.Char)), 1))
	return true
}

// Search returns the emoji whose shortcode matches query ignoring case:
// exact matches first, then prefix matches, then the rest, each sorted by
// code.
func (e *Extension) Search(query string) []Emoji {
	fold := cases.Fold()
	q := fold.String(query)
	type ranked struct {
		Emoji
		rank int
	}
	var hits []ranked
	for _, em := range table {
		code := fold.String(em.Code)
		switch {
		case code == q:
			hits = append(hits, ranked{em, 0})
		case strings.HasPrefix(code, q):
			hits = append(hits, ranked{em, 1})
		case strings.Contains(code, q):
			hits = append(hits, ranked{em, 2})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].rank != hits[j].rank {
			return hits[i].rank < hits[j].rank
		}
		return hits[i].Code < hits[j].Code
	})
	limit := e.Options().Limit
	out := make([]Emoji, 0, len(hits))
	for _, h := range hits {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, h.Emoji)
	}
	return out
}

// InsertEmoji returns a command inserting the emoji for code. An active
// ":query" match is replaced; otherwise the selection is.
func (e *Extension) InsertEmoji(code string) extension.Command {
	return func(p extension.CommandProps) bool {
		if _, ok := Lookup(code); !ok {
			return false
		}
		if e.suggest != nil {
			if _, active := e.suggest.Match(p.State, Name); active {
				return e.suggest.Insert(Name, model.Attrs{"code": code})(p)
			}
		}
		if p.DryRun() {
			return true
		}
		sel := p.Tr.Selection()
		if !replace(p.Tr, textrange.Range{From: sel.From(), To: sel.To()}, code) {
			return false
		}
		p.Apply()
		return true
	}
}

// Commands implements extension.CommandProvider:
//
//	insertEmoji(code string)
func (e *Extension) Commands() map[string]extension.CommandFactory {
	return map[string]extension.CommandFactory{
		"insertEmoji": func(args ...any) extension.Command {
			code, _ := extension.Arg[string](args, 0)
			return e.InsertEmoji(code)
		},
	}
}

// Helpers implements extension.HelperProvider:
//
//	searchEmoji(query string) []Emoji
//	emojiQuery() string, the active ":query" or ""
func (e *Extension) Helpers() map[string]extension.Helper {
	return map[string]extension.Helper{
		"searchEmoji": func(_ *state.EditorState, args ...any) any {
			q, _ := extension.Arg[string](args, 0)
			return e.Search(q)
		},
		"emojiQuery": func(s *state.EditorState, _ ...any) any {
			if e.suggest == nil {
				return ""
			}
			m, _ := e.suggest.Match(s, Name)
			return m.Query
		},
	}
}
