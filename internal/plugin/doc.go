// Package plugin adapts the engine's plugin and state-field API into
// extension-scoped, typed state containers.
//
// An extension creates its plugin with New, passing a stable key and typed
// init and apply functions:
//
//	key := state.NewPluginKey("positionTracker")
//	p := plugin.New(key,
//	    func(state.Config, *state.EditorState) *decoration.Set { return decoration.Empty },
//	    func(tr *state.Transaction, set *decoration.Set, _, next *state.EditorState) *decoration.Set {
//	        return set.Map(tr.Mapping, next.Doc)
//	    },
//	)
//
// Any holder of the key reads the state with GetState, which reports a
// missing plugin or a type mismatch as an error instead of a zero value.
//
// The lua subpackage hosts sandboxed Lua states used by scripted
// extensions.
package plugin
