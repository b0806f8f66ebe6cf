// Package config loads editor configuration from layered TOML and YAML
// files plus INKSTORM_* environment variables, and reloads it when the
// files change.
//
// A configuration file looks like:
//
//	log_level = "info"
//	strict = false
//
//	[collab]
//	url = "ws://localhost:8080/collab"
//
//	[extensions.history]
//	depth = 200
//
//	[extensions.link]
//	auto_link = true
//
// Each [extensions.<name>] table is decoded into that extension's options.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dshills/inkstorm/internal/config/layer"
	"github.com/dshills/inkstorm/internal/config/loader"
	"github.com/dshills/inkstorm/internal/config/watcher"
	"github.com/dshills/inkstorm/internal/logging"
)

// Config is the decoded configuration.
type Config struct {
	LogLevel   string
	Strict     bool
	Collab     Collab
	Extensions map[string]map[string]any

	// Raw is the merged map the fields were decoded from.
	Raw map[string]any
}

// Collab configures the collaboration transport.
type Collab struct {
	URL      string
	ClientID string
}

// Defaults returns the built-in settings.
func Defaults() map[string]any {
	return map[string]any{
		"log_level":  "info",
		"strict":     false,
		"extensions": map[string]any{},
	}
}

// DefaultPaths returns the user and project files, lowest precedence
// first. Missing files are skipped at load time.
func DefaultPaths(projectDir string) []string {
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "inkstorm", "config.toml"), filepath.Join(dir, "inkstorm", "config.yaml"))
	}
	if projectDir != "" {
		paths = append(paths, filepath.Join(projectDir, ".inkstorm.toml"), filepath.Join(projectDir, ".inkstorm.yaml"))
	}
	return paths
}

// FromMap decodes a merged configuration map.
func FromMap(raw map[string]any) (*Config, error) {
	cfg := &Config{Extensions: make(map[string]map[string]any), Raw: raw}
	var err error
	if cfg.LogLevel, err = stringAt(raw, "log_level"); err != nil {
		return nil, err
	}
	if v, ok := raw["strict"]; ok {
		b, isBool := v.(bool)
		if !isBool {
			return nil, &ValueError{Path: "strict", Want: "bool", Got: v}
		}
		cfg.Strict = b
	}
	if cfg.Collab.URL, err = stringAt(raw, "collab.url"); err != nil {
		return nil, err
	}
	if cfg.Collab.ClientID, err = stringAt(raw, "collab.client_id"); err != nil {
		return nil, err
	}
	if v, ok := raw["extensions"]; ok {
		exts, isMap := v.(map[string]any)
		if !isMap {
			return nil, &ValueError{Path: "extensions", Want: "table", Got: v}
		}
		for name, opts := range exts {
			m, isMap := opts.(map[string]any)
			if !isMap {
				return nil, &ValueError{Path: "extensions." + name, Want: "table", Got: opts}
			}
			cfg.Extensions[name] = m
		}
	}
	return cfg, nil
}

func stringAt(raw map[string]any, path string) (string, error) {
	v, ok := layer.GetByPath(raw, path)
	if !ok {
		return "", nil
	}
	s, isString := v.(string)
	if !isString {
		return "", &ValueError{Path: path, Want: "string", Got: v}
	}
	return s, nil
}

// Level returns the configured log level.
func (c *Config) Level() logging.Level { return logging.ParseLevel(c.LogLevel) }

// ExtensionNames returns the configured extension names, sorted.
func (c *Config) ExtensionNames() []string {
	names := make([]string, 0, len(c.Extensions))
	for n := range c.Extensions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Loader layers defaults, files and the environment.
type Loader struct {
	fs     loader.FileSystem
	logger *logging.Logger
	stack  *layer.Stack
	env    loader.Loader

	mu    sync.Mutex
	files []string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithFS reads files through fsys.
func WithFS(fsys loader.FileSystem) LoaderOption {
	return func(l *Loader) { l.fs = fsys }
}

// WithEnv replaces the environment source; nil disables it.
func WithEnv(env loader.Loader) LoaderOption {
	return func(l *Loader) { l.env = env }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logging.OrNop(logger).WithComponent("config") }
}

// NewLoader creates a loader over files, lowest precedence first.
func NewLoader(files []string, opts ...LoaderOption) *Loader {
	l := &Loader{
		fs:     loader.DefaultFS(),
		logger: logging.Nop(),
		stack:  layer.NewStack(),
		env:    loader.NewEnvLoader(loader.EnvPrefix),
		files:  append([]string(nil), files...),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.stack.Set(layer.New("defaults", layer.SourceBuiltin, Defaults()))
	return l
}

// Files returns the configured files.
func (l *Loader) Files() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.files...)
}

// Load reads every source and decodes the merged result.
func (l *Loader) Load() (*Config, error) {
	for i, path := range l.Files() {
		if err := l.loadFile(i, path); err != nil {
			return nil, err
		}
	}
	if l.env != nil {
		data, err := l.env.Load()
		if err != nil {
			return nil, err
		}
		l.stack.Set(layer.New("env", layer.SourceEnv, data))
	}
	return FromMap(l.stack.Merged())
}

// Reload re-reads one file and decodes the merged result. Other layers
// keep their last loaded contents.
func (l *Loader) Reload(path string) (*Config, error) {
	for i, f := range l.Files() {
		if sameFile(f, path) {
			if err := l.loadFile(i, f); err != nil {
				return nil, err
			}
			return FromMap(l.stack.Merged())
		}
	}
	return nil, fmt.Errorf("%s is not a configured file", path)
}

func (l *Loader) loadFile(index int, path string) error {
	fl, err := loader.ForPath(l.fs, path)
	if err != nil {
		return err
	}
	data, err := fl.Load()
	if err != nil {
		return err
	}
	name := "file:" + path
	if data == nil {
		l.stack.Remove(name)
		return nil
	}
	lay := layer.New(name, layer.SourceUser, data)
	lay.Path = path
	// Later files win over earlier ones.
	lay.Priority = layer.SourceUser.Priority() + index
	l.stack.Set(lay)
	l.logger.Debug("loaded %s", path)
	return nil
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// Watch reloads on file changes until ctx ends, calling onReload with the
// new configuration or the error that prevented it.
func (l *Loader) Watch(ctx context.Context, w *watcher.Watcher, onReload func(*Config, error)) error {
	for _, f := range l.Files() {
		if err := w.Watch(f); err != nil {
			return err
		}
	}
	w.OnChange(func(ev watcher.Event) {
		if ctx.Err() != nil {
			return
		}
		cfg, err := l.Reload(ev.Path)
		if err != nil {
			l.logger.Warn("reload %s: %v", ev.Path, err)
		} else {
			l.logger.Info("reloaded %s", ev.Path)
		}
		onReload(cfg, err)
	})
	return nil
}
