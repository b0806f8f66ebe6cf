package script

import (
	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/inkstorm/internal/engine/state"
)

func (e *Extension) module() map[string]glua.LGFunction {
	return map[string]glua.LGFunction{
		"command": func(L *glua.LState) int { return define(L, e.commands) },
		"helper":  func(L *glua.LState) int { return define(L, e.helpers) },

		"text": func(L *glua.LState) int {
			s := e.current(L)
			L.Push(glua.LString(s.Doc.TextBetween(0, s.Doc.Content.Size(), "\n", "")))
			return 1
		},
		"text_between": func(L *glua.LState) int {
			s := e.current(L)
			from, to := L.CheckInt(1), L.CheckInt(2)
			if from < 0 || to > s.Doc.Content.Size() || from > to {
				L.ArgError(1, "range outside the document")
				return 0
			}
			L.Push(glua.LString(s.Doc.TextBetween(from, to, "\n", "")))
			return 1
		},
		"size": func(L *glua.LState) int {
			L.Push(glua.LNumber(e.current(L).Doc.Content.Size()))
			return 1
		},
		"selection": func(L *glua.LState) int {
			sel := e.current(L).Selection
			if c := e.cur; c != nil && c.props != nil {
				sel = c.props.Tr.Selection()
			}
			L.Push(glua.LNumber(sel.From()))
			L.Push(glua.LNumber(sel.To()))
			return 2
		},
		"dry_run": func(L *glua.LState) int {
			c := e.cur
			L.Push(glua.LBool(c == nil || c.props == nil || c.props.DryRun()))
			return 1
		},
		"insert": func(L *glua.LState) int {
			tr, ok := e.writable()
			if !ok {
				L.Push(glua.LFalse)
				return 1
			}
			text := L.CheckString(1)
			from, to := L.OptInt(2, -1), L.OptInt(3, -1)
			if from > tr.Doc.Content.Size() || to > tr.Doc.Content.Size() {
				L.ArgError(2, "position outside the document")
				return 0
			}
			before := len(tr.Steps)
			tr.InsertText(text, from, to)
			L.Push(glua.LBool(len(tr.Steps) > before))
			return 1
		},
		"select": func(L *glua.LState) int {
			tr, ok := e.writable()
			if !ok {
				L.Push(glua.LFalse)
				return 1
			}
			anchor := L.CheckInt(1)
			head := L.OptInt(2, anchor)
			size := tr.Doc.Content.Size()
			if anchor < 0 || head < 0 || anchor > size || head > size {
				L.ArgError(1, "position outside the document")
				return 0
			}
			tr.SetSelection(state.TextSelection(anchor, head))
			L.Push(glua.LTrue)
			return 1
		},
	}
}

// current returns the state the running call reads from.
func (e *Extension) current(L *glua.LState) *state.EditorState {
	c := e.cur
	if c == nil {
		L.RaiseError("editor state is only available inside commands and helpers")
		return nil
	}
	if c.props != nil {
		// Commands read through the transaction so chained edits are visible.
		return stateView(c)
	}
	return c.state
}

// writable returns the command transaction unless dry running.
func (e *Extension) writable() (*state.Transaction, bool) {
	c := e.cur
	if c == nil || c.props == nil || c.props.DryRun() {
		return nil, false
	}
	return c.props.Tr, true
}

func stateView(c *call) *state.EditorState {
	tr := c.props.Tr
	if !tr.DocChanged() {
		return c.state
	}
	return &state.EditorState{Doc: tr.Doc, Selection: tr.Selection(), Schema: c.state.Schema}
}
