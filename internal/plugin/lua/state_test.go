package lua

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	lua "github.com/yuin/gopher-lua"
)

func TestSandboxBlocksUnsafeAccess(t *testing.T) {
	s := NewState()
	defer s.Close()
	ctx := context.Background()

	tests := []struct {
		name string
		code string
	}{
		{"os", `return os.getenv("HOME")`},
		{"io", `return io.open("/etc/passwd")`},
		{"dofile", `dofile("/tmp/x.lua")`},
		{"load", `load("return 1")()`},
		{"require", `require("socket")`},
	}
	for _, tt := range tests {
		if err := s.DoString(ctx, tt.code); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
	if err := s.DoString(ctx, `local m = require("math"); x = m.floor(2.5)`); err != nil {
		t.Fatalf("safe require failed: %v", err)
	}
	if got := ToGo(s.Global("x")); got != 2 {
		t.Errorf("x = %v", got)
	}
}

func TestPreloadedModuleAndCall(t *testing.T) {
	s := NewState()
	defer s.Close()
	var seen []string
	s.PreloadModule("inkstorm", map[string]lua.LGFunction{
		"log": func(L *lua.LState) int {
			seen = append(seen, L.CheckString(1))
			return 0
		},
	})
	ctx := context.Background()
	err := s.DoString(ctx, `
		local ink = require("inkstorm")
		function greet(name, opts)
			ink.log("hi " .. name)
			return string.upper(name), #opts.list, opts.flag
		end`)
	if err != nil {
		t.Fatal(err)
	}
	out, err := s.Call(ctx, "greet", "ada", map[string]any{"list": []any{1, 2, 3}, "flag": true})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 || out[0] != "ADA" || out[1] != 3 || out[2] != true {
		t.Errorf("results = %v", out)
	}
	if len(seen) != 1 || seen[0] != "hi ada" {
		t.Errorf("log = %v", seen)
	}
	if _, err := s.Call(ctx, "missing"); !errors.Is(err, ErrNotFunction) {
		t.Errorf("missing function err = %v", err)
	}
}

func TestExecutionTimeout(t *testing.T) {
	s := NewState(WithTimeout(50 * time.Millisecond))
	defer s.Close()
	err := s.DoString(context.Background(), `while true do end`)
	if !errors.Is(err, ErrExecutionTimeout) {
		t.Errorf("err = %v, want timeout", err)
	}
	// The state stays usable.
	if err := s.DoString(context.Background(), `y = 1`); err != nil {
		t.Errorf("after timeout: %v", err)
	}
}

func TestBridgeConversions(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	v := ToGo(ToLua(L, map[string]any{"a": []any{"x", 2.5}, "b": map[string]any{"c": false}}))
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("value = %#v", v)
	}
	list := m["a"].([]any)
	if list[0] != "x" || list[1] != 2.5 || m["b"].(map[string]any)["c"] != false {
		t.Errorf("round trip = %#v", m)
	}
	if ToGo(ToLua(L, []int{4, 5})).([]any)[1] != 5 {
		t.Error("reflect slice conversion failed")
	}
}

func TestClosedState(t *testing.T) {
	s := NewState()
	s.Close()
	s.Close()
	if err := s.DoString(context.Background(), "x = 1"); !errors.Is(err, ErrStateClosed) {
		t.Errorf("err = %v", err)
	}
	if !strings.Contains(ErrStateClosed.Error(), "closed") {
		t.Error("message")
	}
}
