// Package script defines commands and helpers in Lua.
//
// Scripts run in a sandboxed state and register through the "inkstorm"
// module:
//
//	local ink = require("inkstorm")
//	ink.command("shout", function(...)
//	  local from, to = ink.selection()
//	  if from == to then return false end
//	  if ink.dry_run() then return true end
//	  ink.insert(string.upper(ink.text_between(from, to)), from, to)
//	  return true
//	end)
//	ink.helper("words", function() return #ink.text() end)
//
// A command returns whether it applies. Edits made while dry running are
// ignored.
package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/extension"
	"github.com/dshills/inkstorm/internal/plugin/lua"
)

// Name is the extension name.
const Name = "script"

// ModuleName is the module scripts require.
const ModuleName = "inkstorm"

// Errors reported while loading scripts.
var (
	ErrScriptLoad   = errors.New("script load failed")
	ErrDuplicateDef = errors.New("script defines a name twice")
)

// Options configure the script extension.
type Options struct {
	// Files are Lua files run in order.
	Files []string `toml:"files"`

	// Source is Lua code run after Files.
	Source string `toml:"source"`

	// Timeout bounds one script call, in milliseconds.
	Timeout int `toml:"timeout"`
}

// Extension is the script extension.
type Extension struct {
	*extension.Base[Options]

	once     sync.Once
	loadErr  error
	lua      *lua.State
	commands map[string]glua.LValue
	helpers  map[string]glua.LValue

	// callMu guards cur for the duration of one Lua call.
	callMu sync.Mutex
	cur    *call
}

// call is what host functions act on during one Lua call.
type call struct {
	state *state.EditorState
	props *extension.CommandProps
}

// New creates the script extension.
func New(opts ...func(*Options)) *Extension {
	return &Extension{
		Base:     extension.NewBase(Name, extension.KindPlain, Options{Timeout: int(lua.DefaultExecutionTimeout / time.Millisecond)}, opts...),
		commands: make(map[string]glua.LValue),
		helpers:  make(map[string]glua.LValue),
	}
}

// load runs the configured scripts once. Commands and helpers are
// collected before the create hooks run, so loading happens on first use.
func (e *Extension) load() error {
	e.once.Do(func() {
		opts := e.Options()
		e.lua = lua.NewState(lua.WithTimeout(time.Duration(opts.Timeout) * time.Millisecond))
		e.lua.PreloadModule(ModuleName, e.module())
		ctx := context.Background()
		for _, f := range opts.Files {
			if _, err := os.Stat(f); err != nil {
				e.loadErr = fmt.Errorf("%w: %v", ErrScriptLoad, err)
				return
			}
			if err := e.lua.DoFile(ctx, f); err != nil {
				e.loadErr = fmt.Errorf("%w: %s: %v", ErrScriptLoad, f, err)
				return
			}
		}
		if opts.Source != "" {
			if err := e.lua.DoString(ctx, opts.Source); err != nil {
				e.loadErr = fmt.Errorf("%w: %v", ErrScriptLoad, err)
				return
			}
		}
		e.Logger().Info("loaded %d script commands, %d helpers", len(e.commands), len(e.helpers))
	})
	return e.loadErr
}

// define records a registration. It runs inside a Lua call.
func define(L *glua.LState, into map[string]glua.LValue) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	if _, dup := into[name]; dup {
		L.RaiseError("%s: %q", ErrDuplicateDef, name)
		return 0
	}
	into[name] = fn
	return 0
}

// Commands implements extension.CommandProvider.
func (e *Extension) Commands() map[string]extension.CommandFactory {
	if e.load() != nil {
		return nil
	}
	out := make(map[string]extension.CommandFactory, len(e.commands))
	for name, fn := range e.commands {
		out[name] = func(args ...any) extension.Command {
			return func(p extension.CommandProps) bool {
				res, err := e.invoke(&call{state: p.State, props: &p}, fn, args)
				if err != nil {
					e.Logger().Warn("command %s: %v", name, err)
					return false
				}
				ok := len(res) > 0 && res[0] == true
				if ok {
					p.Apply()
				}
				return ok
			}
		}
	}
	return out
}

// Helpers implements extension.HelperProvider.
func (e *Extension) Helpers() map[string]extension.Helper {
	if e.load() != nil {
		return nil
	}
	out := make(map[string]extension.Helper, len(e.helpers))
	for name, fn := range e.helpers {
		out[name] = func(s *state.EditorState, args ...any) any {
			res, err := e.invoke(&call{state: s}, fn, args)
			if err != nil {
				e.Logger().Warn("helper %s: %v", name, err)
				return nil
			}
			if len(res) == 0 {
				return nil
			}
			return res[0]
		}
	}
	return out
}

func (e *Extension) invoke(c *call, fn glua.LValue, args []any) ([]any, error) {
	e.callMu.Lock()
	defer e.callMu.Unlock()
	e.cur = c
	defer func() { e.cur = nil }()
	return e.lua.CallValue(context.Background(), fn, args...)
}

// Names returns the script-defined command and helper names, sorted.
func (e *Extension) Names() (commands, helpers []string) {
	for n := range e.commands {
		commands = append(commands, n)
	}
	for n := range e.helpers {
		helpers = append(helpers, n)
	}
	sort.Strings(commands)
	sort.Strings(helpers)
	return commands, helpers
}

// OnCreate implements extension.CreateHook.
func (e *Extension) OnCreate(*extension.CreateContext) error {
	return e.load()
}

// OnDestroy implements extension.DestroyHook.
func (e *Extension) OnDestroy() {
	if e.lua != nil {
		e.lua.Close()
	}
}
