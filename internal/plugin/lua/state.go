// Package lua hosts sandboxed gopher-lua states for scripted extensions.
//
// A State opens only the base, table, string and math libraries, removes
// code-loading functions and restricts require to safe libraries and
// modules registered with PreloadModule. Every execution takes a context;
// cancelling it or reaching its deadline stops the script.
package lua

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultExecutionTimeout bounds executions whose context has no deadline.
const DefaultExecutionTimeout = 2 * time.Second

// State is a sandboxed Lua state. gopher-lua states are not goroutine
// safe; State serializes access with a mutex.
type State struct {
	mu      sync.Mutex
	L       *lua.LState
	timeout time.Duration
	modules map[string]bool
	closed  bool
}

// Option configures a State.
type Option func(*State)

// WithTimeout sets the default execution timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *State) { s.timeout = d }
}

// NewState creates a sandboxed state.
func NewState(opts ...Option) *State {
	s := &State{
		L:       lua.NewState(lua.Options{SkipOpenLibs: true}),
		timeout: DefaultExecutionTimeout,
		modules: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	openSafeLibraries(s.L)
	installSandbox(s.L, s.modules)
	return s
}

// PreloadModule makes a Go-defined module available to require.
func (s *State) PreloadModule(name string, funcs map[string]lua.LGFunction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.modules[name] = true
	s.L.PreloadModule(name, func(L *lua.LState) int {
		L.Push(L.SetFuncs(L.NewTable(), funcs))
		return 1
	})
}

// DoString runs a chunk.
func (s *State) DoString(ctx context.Context, code string) error {
	return s.run(ctx, func() error { return s.L.DoString(code) })
}

// DoFile runs a file.
func (s *State) DoFile(ctx context.Context, path string) error {
	return s.run(ctx, func() error { return s.L.DoFile(path) })
}

// CallValue calls a Lua function value with Go arguments and returns its
// results converted to Go values.
func (s *State) CallValue(ctx context.Context, fn lua.LValue, args ...any) ([]any, error) {
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w: got %s", ErrNotFunction, fn.Type())
	}
	var results []any
	err := s.run(ctx, func() error {
		top := s.L.GetTop()
		s.L.Push(fn)
		for _, a := range args {
			s.L.Push(ToLua(s.L, a))
		}
		if err := s.L.PCall(len(args), lua.MultRet, nil); err != nil {
			s.L.SetTop(top)
			return err
		}
		n := s.L.GetTop() - top
		results = make([]any, n)
		for i := 0; i < n; i++ {
			results[i] = ToGo(s.L.Get(top + i + 1))
		}
		s.L.SetTop(top)
		return nil
	})
	return results, err
}

// Call calls a global function.
func (s *State) Call(ctx context.Context, name string, args ...any) ([]any, error) {
	return s.CallValue(ctx, s.Global(name), args...)
}

// Global returns a global value.
func (s *State) Global(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// SetGlobal sets a global from a Go value.
func (s *State) SetGlobal(name string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.L.SetGlobal(name, ToLua(s.L, v))
}

func (s *State) run(ctx context.Context, fn func() error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStateClosed
	}
	if _, ok := ctx.Deadline(); !ok && s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	if err = fn(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return fmt.Errorf("%w: %v", ErrExecutionTimeout, err)
			}
			return ctxErr
		}
	}
	return err
}

// Close releases the state.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.L.Close()
		s.closed = true
	}
}
