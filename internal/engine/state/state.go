// Package state holds the editor state: a document, a selection, stored
// marks and the state of every plugin. States are immutable; applying a
// Transaction yields a new state.
package state

import (
	"fmt"

	"github.com/dshills/inkstorm/internal/engine/model"
)

// Config configures EditorState creation.
type Config struct {
	Schema      *model.Schema
	Doc         *model.Node
	Selection   *Selection
	StoredMarks []*model.Mark
	Plugins     []*Plugin
}

// EditorState is an immutable snapshot of the editor.
type EditorState struct {
	Doc         *model.Node
	Selection   Selection
	StoredMarks []*model.Mark
	Schema      *model.Schema

	plugins []*Plugin
	fields  map[*PluginKey]any
}

// Create creates a state. Without a document, an empty document is built
// from the schema.
func Create(cfg Config) (*EditorState, error) {
	schema := cfg.Schema
	if schema == nil && cfg.Doc != nil {
		schema = cfg.Doc.Type.Schema
	}
	if schema == nil {
		return nil, ErrNoSchema
	}
	if err := checkPlugins(cfg.Plugins); err != nil {
		return nil, err
	}

	doc := cfg.Doc
	if doc == nil {
		doc = schema.TopNodeType.CreateAndFill(nil)
		if doc == nil {
			return nil, fmt.Errorf("%w: cannot create empty %s", model.ErrInvalidContent, schema.TopNodeType.Name)
		}
	}
	sel := AtStart(doc)
	if cfg.Selection != nil {
		sel = *cfg.Selection
	}

	s := &EditorState{
		Doc:         doc,
		Selection:   sel,
		StoredMarks: cfg.StoredMarks,
		Schema:      schema,
		plugins:     append([]*Plugin(nil), cfg.Plugins...),
		fields:      make(map[*PluginKey]any, len(cfg.Plugins)),
	}
	cfg.Schema = schema
	cfg.Doc = doc
	for _, p := range s.plugins {
		if p.Spec.State != nil && p.Spec.State.Init != nil {
			s.fields[p.Key] = p.Spec.State.Init(cfg, s)
		}
	}
	return s, nil
}

func checkPlugins(plugins []*Plugin) error {
	seen := make(map[*PluginKey]bool, len(plugins))
	for _, p := range plugins {
		if seen[p.Key] {
			return fmt.Errorf("%w: %s", ErrDuplicatePlugin, p.Key)
		}
		seen[p.Key] = true
	}
	return nil
}

// Plugins returns the active plugins in order.
func (s *EditorState) Plugins() []*Plugin {
	return append([]*Plugin(nil), s.plugins...)
}

// PluginState returns the state of the plugin with the given key.
func (s *EditorState) PluginState(key *PluginKey) (any, bool) {
	v, ok := s.fields[key]
	return v, ok
}

// Tr starts a transaction from this state.
func (s *EditorState) Tr() *Transaction {
	return newTransaction(s)
}

// Apply applies a transaction, including transactions appended by plugins,
// and returns the resulting state.
func (s *EditorState) Apply(tr *Transaction) (*EditorState, error) {
	next, _, err := s.ApplyTransaction(tr)
	return next, err
}

// ApplyTransaction applies a transaction and returns the resulting state
// together with every transaction applied: the root followed by those
// appended by plugins. A filtered transaction yields the unchanged state.
func (s *EditorState) ApplyTransaction(root *Transaction) (*EditorState, []*Transaction, error) {
	if !s.filterTransaction(root, -1) {
		return s, nil, nil
	}
	trs := []*Transaction{root}
	newState, err := s.applyInner(root)
	if err != nil {
		return s, nil, err
	}

	type seenEntry struct {
		state *EditorState
		n     int
	}
	var seen []seenEntry
	for {
		haveNew := false
		for i, p := range s.plugins {
			if p.Spec.AppendTransaction == nil {
				continue
			}
			n, oldState := 0, s
			if seen != nil {
				n, oldState = seen[i].n, seen[i].state
			}
			var tr *Transaction
			if n < len(trs) {
				tr = p.Spec.AppendTransaction(trs[n:], oldState, newState)
			}
			if tr != nil && newState.filterTransaction(tr, i) {
				tr.SetMeta(MetaAppendedTransaction, root)
				if seen == nil {
					seen = make([]seenEntry, len(s.plugins))
					for j := range s.plugins {
						if j < i {
							seen[j] = seenEntry{state: newState, n: len(trs)}
						} else {
							seen[j] = seenEntry{state: s, n: 0}
						}
					}
				}
				trs = append(trs, tr)
				newState, err = newState.applyInner(tr)
				if err != nil {
					return s, nil, err
				}
				haveNew = true
			}
			if seen != nil {
				seen[i] = seenEntry{state: newState, n: len(trs)}
			}
		}
		if !haveNew {
			return newState, trs, nil
		}
	}
}

func (s *EditorState) filterTransaction(tr *Transaction, ignore int) bool {
	for i, p := range s.plugins {
		if i == ignore || p.Spec.FilterTransaction == nil {
			continue
		}
		if !p.Spec.FilterTransaction(tr, s) {
			return false
		}
	}
	return true
}

func (s *EditorState) applyInner(tr *Transaction) (*EditorState, error) {
	if !tr.Before().Eq(s.Doc) {
		return nil, ErrMismatchedTransaction
	}
	next := &EditorState{
		Doc:       tr.Doc,
		Selection: tr.Selection(),
		Schema:    s.Schema,
		plugins:   s.plugins,
		fields:    make(map[*PluginKey]any, len(s.fields)),
	}
	if _, ok := next.Selection.CursorPos(); ok {
		next.StoredMarks = tr.StoredMarks()
	}
	for _, p := range s.plugins {
		if p.Spec.State == nil || p.Spec.State.Apply == nil {
			if v, ok := s.fields[p.Key]; ok {
				next.fields[p.Key] = v
			}
			continue
		}
		next.fields[p.Key] = p.Spec.State.Apply(tr, s.fields[p.Key], s, next)
	}
	return next, nil
}

// Reconfigure returns a state with a new plugin set. Plugins present in
// both sets keep their state; new plugins are initialized.
func (s *EditorState) Reconfigure(plugins []*Plugin) (*EditorState, error) {
	if err := checkPlugins(plugins); err != nil {
		return nil, err
	}
	next := &EditorState{
		Doc:         s.Doc,
		Selection:   s.Selection,
		StoredMarks: s.StoredMarks,
		Schema:      s.Schema,
		plugins:     append([]*Plugin(nil), plugins...),
		fields:      make(map[*PluginKey]any, len(plugins)),
	}
	cfg := Config{Schema: s.Schema, Doc: s.Doc, Selection: &next.Selection, Plugins: plugins}
	for _, p := range plugins {
		if v, ok := s.fields[p.Key]; ok {
			next.fields[p.Key] = v
			continue
		}
		if p.Spec.State != nil && p.Spec.State.Init != nil {
			next.fields[p.Key] = p.Spec.State.Init(cfg, next)
		}
	}
	return next, nil
}

// ToJSON serializes the document and selection.
func (s *EditorState) ToJSON() map[string]any {
	return map[string]any{"doc": s.Doc.ToJSON(), "selection": s.Selection.ToJSON()}
}

// FromJSON creates a state from its JSON representation.
func FromJSON(cfg Config, raw map[string]any) (*EditorState, error) {
	if cfg.Schema == nil {
		return nil, ErrNoSchema
	}
	docJSON, _ := raw["doc"].(map[string]any)
	doc, err := cfg.Schema.NodeFromJSON(docJSON)
	if err != nil {
		return nil, err
	}
	cfg.Doc = doc
	if selJSON, ok := raw["selection"].(map[string]any); ok {
		sel, err := SelectionFromJSON(doc, selJSON)
		if err != nil {
			return nil, err
		}
		cfg.Selection = &sel
	}
	return Create(cfg)
}
