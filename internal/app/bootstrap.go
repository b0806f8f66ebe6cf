package app

import (
	"context"
	"fmt"
	"io"

	"github.com/dshills/inkstorm/internal/collab"
	"github.com/dshills/inkstorm/internal/collab/ws"
	"github.com/dshills/inkstorm/internal/config"
	"github.com/dshills/inkstorm/internal/config/watcher"
	"github.com/dshills/inkstorm/internal/event"
	"github.com/dshills/inkstorm/internal/extension"
	collabext "github.com/dshills/inkstorm/internal/extensions/collab"
	"github.com/dshills/inkstorm/internal/logging"
	"github.com/dshills/inkstorm/internal/manager"
)

// bootstrap initializes components in dependency order.
func (a *Application) bootstrap() error {
	out := a.opts.LogOutput
	if out == nil {
		out = io.Discard
	}
	a.logger = logging.New(logging.Config{Level: logging.LevelInfo, Output: out, Prefix: "inkstorm"})
	a.bus = event.NewBus()

	// 1. Configuration
	a.loader = config.NewLoader(a.configPaths(), config.WithLogger(a.logger))
	cfg, err := a.loader.Load()
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}
	a.config = cfg
	a.applyLogLevel(cfg)

	// 2. Document
	doc, content, err := OpenDocument(a.opts.File, a.opts.ReadOnly)
	if err != nil {
		return &InitError{Component: "document", Err: err}
	}
	a.doc = doc

	// 3. Extensions and manager
	comp, err := defaultComposition(cfg, a.opts.ReadOnly, a.collabURL() != "")
	if err != nil {
		return &InitError{Component: "extensions", Err: err}
	}
	a.collab = comp.collab
	a.manager, err = manager.New(
		manager.WithPresets(comp.presets...),
		manager.WithExtensions(comp.extensions...),
		manager.WithBus(a.bus),
		manager.WithLogger(a.logger),
		manager.WithStrict(cfg.Strict),
		manager.WithConfig(cfg.Extensions),
	)
	if err != nil {
		return &InitError{Component: "manager", Err: err}
	}

	// 4. State and view
	st, err := a.manager.CreateState(content)
	if err != nil {
		return &InitError{Component: "document", Err: err}
	}
	if a.view, err = a.manager.NewView(st); err != nil {
		return &InitError{Component: "view", Err: err}
	}
	a.manager.OnTransaction(a.onTransaction)

	// 5. Events and config reloads
	if err := a.subscribe(); err != nil {
		return &InitError{Component: "events", Err: err}
	}
	if a.opts.Watch {
		w, err := watcher.New(watcher.WithLogger(a.logger))
		if err != nil {
			return &InitError{Component: "watcher", Err: err}
		}
		a.watcher = w
		if err := a.loader.Watch(context.Background(), w, a.onReload); err != nil {
			return &InitError{Component: "watcher", Err: err}
		}
	}
	a.logger.Info("editing %s with %d extensions", doc.Name, len(a.manager.Extensions()))
	return nil
}

func (a *Application) configPaths() []string {
	paths := a.opts.ConfigPaths
	if paths == nil {
		paths = config.DefaultPaths(a.opts.WorkspacePath)
	}
	paths = append([]string(nil), paths...)
	if a.opts.ConfigPath != "" {
		paths = append(paths, a.opts.ConfigPath)
	}
	return paths
}

func (a *Application) collabURL() string {
	if a.opts.CollabURL != "" {
		return a.opts.CollabURL
	}
	return a.config.Collab.URL
}

func (a *Application) applyLogLevel(cfg *config.Config) {
	level := cfg.Level()
	if a.opts.LogLevel != "" {
		level = logging.ParseLevel(a.opts.LogLevel)
	}
	a.logger.SetLevel(level)
}

// Reload re-reads every configuration source and applies the result.
func (a *Application) Reload() error {
	cfg, err := a.loader.Load()
	if err != nil {
		a.updateStatus("config error")
		return err
	}
	return a.applyConfig(cfg)
}

func (a *Application) onReload(cfg *config.Config, err error) {
	if err != nil {
		a.updateStatus("config error")
		return
	}
	if err := a.applyConfig(cfg); err != nil {
		a.logger.Warn("applying config: %v", err)
	}
}

// applyConfig pushes new extension options into the running editor and
// announces the reload.
func (a *Application) applyConfig(cfg *config.Config) error {
	a.mu.Lock()
	a.config = cfg
	a.mu.Unlock()
	a.applyLogLevel(cfg)

	err := a.manager.ApplyConfig(cfg.Extensions)
	if perr := a.bus.Publish(context.Background(), event.New(event.TopicConfigReloaded, cfg, "app")); perr != nil {
		a.logger.Warn("publishing reload: %v", perr)
	}
	a.updateStatus("config reloaded")
	return err
}

func (a *Application) onTransaction(u extension.TransactionUpdate) {
	for _, tr := range u.Transactions {
		if tr.DocChanged() {
			a.doc.SetModified(true)
			break
		}
	}
	a.updateStatus("")
}

// connect dials the configured collaboration server.
func (a *Application) connect(ctx context.Context) error {
	if a.collab == nil {
		return nil
	}
	client, err := ws.Dial(ctx, a.collabURL(), a.logger)
	if err != nil {
		return &InitError{Component: "collab", Err: err}
	}
	return a.ConnectCollab(ctx, client)
}

// ConnectCollab starts syncing through p, which the application closes on
// shutdown.
func (a *Application) ConnectCollab(ctx context.Context, p collab.Provider) error {
	if a.collab == nil {
		return &InitError{Component: "collab", Err: fmt.Errorf("collaboration is not configured")}
	}
	s, err := a.collab.Connect(ctx, a.view, collabext.SessionConfig{Provider: p, Bus: a.bus, Logger: a.logger})
	if err != nil {
		return &InitError{Component: "collab", Err: err}
	}
	a.mu.Lock()
	a.provider, a.session = p, s
	a.mu.Unlock()
	return nil
}

// StatusLine returns the status text for the current state.
func (a *Application) StatusLine(msg string) string {
	status := a.doc.Title()
	if a.collab != nil {
		st := a.collab.GetState(a.view.State())
		status += fmt.Sprintf(" | v%d", st.Version)
		if n := len(st.Unconfirmed); n > 0 {
			status += fmt.Sprintf(" +%d", n)
		}
	}
	if msg != "" {
		status += " | " + msg
	}
	return status
}

func (a *Application) updateStatus(msg string) {
	a.mu.Lock()
	ed := a.editor
	a.mu.Unlock()
	if ed != nil {
		ed.SetStatus(a.StatusLine(msg))
	}
}
