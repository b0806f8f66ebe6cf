package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/dshills/inkstorm/internal/config/loader"
	"github.com/dshills/inkstorm/internal/config/watcher"
	"github.com/dshills/inkstorm/internal/logging"
)

type envMap map[string]any

func (e envMap) Load() (map[string]any, error) { return e, nil }

func TestLoadLayers(t *testing.T) {
	fsys := fstest.MapFS{
		"user.toml": {Data: []byte(`
log_level = "debug"
[extensions.history]
depth = 20
new_group_delay = 300
`)},
		"project.yaml": {Data: []byte(`
extensions:
  history:
    depth: 5
  link:
    auto_link: true
collab:
  url: ws://localhost:9000/collab
`)},
	}
	l := NewLoader([]string{"user.toml", "project.yaml", "absent.toml"},
		WithFS(fsys), WithEnv(envMap{"strict": true}))
	cfg, err := l.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Level() != logging.LevelDebug || !cfg.Strict {
		t.Errorf("cfg = %+v", cfg)
	}
	hist := cfg.Extensions["history"]
	if hist["depth"] != 5 || hist["new_group_delay"] != int64(300) {
		t.Errorf("history = %v", hist)
	}
	if cfg.Collab.URL != "ws://localhost:9000/collab" {
		t.Errorf("collab = %+v", cfg.Collab)
	}
	if names := cfg.ExtensionNames(); len(names) != 2 || names[0] != "history" {
		t.Errorf("names = %v", names)
	}
}

func TestFromMapErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		path string
	}{
		{"level", map[string]any{"log_level": 3}, "log_level"},
		{"strict", map[string]any{"strict": "yes"}, "strict"},
		{"extensions", map[string]any{"extensions": []any{}}, "extensions"},
		{"extension", map[string]any{"extensions": map[string]any{"link": true}}, "extensions.link"},
		{"collab", map[string]any{"collab": map[string]any{"url": 1}}, "collab.url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(tt.raw)
			var verr *ValueError
			if !errors.As(err, &verr) || verr.Path != tt.path || !errors.Is(err, ErrInvalidValue) {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestParseErrorSurfaces(t *testing.T) {
	fsys := fstest.MapFS{"bad.toml": {Data: []byte("[extensions\n")}}
	_, err := NewLoader([]string{"bad.toml"}, WithFS(fsys), WithEnv(nil)).Load()
	var perr *loader.ParseError
	if !errors.As(err, &perr) {
		t.Errorf("err = %v, want *loader.ParseError", err)
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inkstorm.toml")
	if err := os.WriteFile(path, []byte("[extensions.history]\ndepth = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := NewLoader([]string{path}, WithEnv(nil))
	if _, err := l.Load(); err != nil {
		t.Fatal(err)
	}
	w, err := watcher.New(watcher.WithDebounce(20 * time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan *Config, 4)
	if err := l.Watch(ctx, w, func(cfg *Config, err error) {
		if err == nil {
			reloaded <- cfg
		}
	}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("[extensions.history]\ndepth = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case cfg := <-reloaded:
		if got := cfg.Extensions["history"]["depth"]; got != int64(2) {
			t.Errorf("depth = %v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload")
	}
}
