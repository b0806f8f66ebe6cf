package view

import "github.com/dshills/inkstorm/internal/engine/state"

// TypeText simulates typing text one character at a time. Each character
// is offered to HandleTextInput props first; unhandled characters replace
// the selection. It returns false when the view is not editable.
func (v *View) TypeText(text string) bool {
	if v.Destroyed() || !v.Editable() {
		return false
	}
	for _, r := range text {
		ch := string(r)
		sel := v.State().Selection
		from, to := sel.From(), sel.To()
		handled := v.SomeProp(func(p state.Props) bool {
			return p.HandleTextInput != nil && p.HandleTextInput(v, from, to, ch)
		})
		if handled {
			continue
		}
		v.DispatchFunc(func(s *state.EditorState) *state.Transaction {
			if s == nil {
				return nil
			}
			sel := s.Selection
			return s.Tr().InsertText(ch, sel.From(), sel.To()).ScrollIntoView()
		})
	}
	return true
}

// PressKey offers a normalized key name such as "Enter" or "Mod-b" to the
// HandleKeyDown props and reports whether one handled it.
func (v *View) PressKey(key string) bool {
	if v.Destroyed() {
		return false
	}
	return v.SomeProp(func(p state.Props) bool {
		return p.HandleKeyDown != nil && p.HandleKeyDown(v, key)
	})
}

// Click offers a click at pos to the HandleClick props. Unhandled clicks
// place the cursor at the nearest valid position.
func (v *View) Click(pos int) bool {
	if v.Destroyed() {
		return false
	}
	if v.SomeProp(func(p state.Props) bool {
		return p.HandleClick != nil && p.HandleClick(v, pos)
	}) {
		return true
	}
	v.DispatchFunc(func(s *state.EditorState) *state.Transaction {
		if s == nil {
			return nil
		}
		return s.Tr().SetSelection(state.Near(s.Doc, pos, 1)).SetMeta(state.MetaPointer, true)
	})
	return false
}
