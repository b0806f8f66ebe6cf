// Package app wires the editor together: configuration, the extension
// manager, the document file, collaboration and the terminal front end.
package app

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/dshills/inkstorm/internal/collab"
	"github.com/dshills/inkstorm/internal/config"
	"github.com/dshills/inkstorm/internal/config/watcher"
	"github.com/dshills/inkstorm/internal/engine/view"
	"github.com/dshills/inkstorm/internal/event"
	collabext "github.com/dshills/inkstorm/internal/extensions/collab"
	"github.com/dshills/inkstorm/internal/logging"
	"github.com/dshills/inkstorm/internal/manager"
	"github.com/dshills/inkstorm/internal/terminal"
)

// Options configures the application.
type Options struct {
	// ConfigPath is an extra configuration file with the highest file
	// precedence.
	ConfigPath string

	// ConfigPaths replaces the default user and project files when set.
	ConfigPaths []string

	// WorkspacePath is the project directory searched for .inkstorm files.
	WorkspacePath string

	// File is the HTML document to edit.
	File string

	// CollabURL overrides collab.url from the configuration.
	CollabURL string

	// LogLevel overrides log_level from the configuration.
	LogLevel string

	// LogOutput receives log lines. Nil discards them.
	LogOutput io.Writer

	ReadOnly bool

	// Watch reloads configuration files when they change.
	Watch bool
}

// Application owns one editor and everything around it.
type Application struct {
	opts   Options
	logger *logging.Logger
	bus    *event.Bus

	loader  *config.Loader
	config  *config.Config
	watcher *watcher.Watcher

	manager *manager.Manager
	view    *view.View
	doc     *Document

	collab   *collabext.Extension
	provider collab.Provider
	session  *collabext.Session

	subs []event.Subscription

	mu      sync.Mutex
	editor  *terminal.Editor
	running atomic.Bool
	cancel  context.CancelFunc
	closed  bool
}

// New bootstraps the application. Collaboration, if configured, connects
// in Run.
func New(opts Options) (*Application, error) {
	a := &Application{opts: opts}
	if err := a.bootstrap(); err != nil {
		a.Shutdown()
		return nil, err
	}
	return a, nil
}

// Manager returns the extension manager.
func (a *Application) Manager() *manager.Manager { return a.manager }

// View returns the editor view.
func (a *Application) View() *view.View { return a.view }

// Document returns the edited document.
func (a *Application) Document() *Document { return a.doc }

// Config returns the current configuration.
func (a *Application) Config() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.config
}

// Bus returns the event bus.
func (a *Application) Bus() *event.Bus { return a.bus }

// Save writes the document.
func (a *Application) Save() error {
	if err := a.doc.Save(a.view.State().Doc); err != nil {
		return err
	}
	a.logger.Info("saved %s", a.doc.Path)
	a.updateStatus("")
	return nil
}

// Run connects collaboration and runs the terminal editor on screen until
// ctx ends, Shutdown is called or the user quits. Quitting returns
// terminal.ErrQuit.
func (a *Application) Run(ctx context.Context, screen *terminal.Screen) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	if err := a.connect(ctx); err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return &InitError{Component: "terminal", Err: err}
	}
	defer screen.Fini()

	ed := terminal.NewEditor(screen, a.view, a.logger)
	ed.OnSave = a.Save
	a.mu.Lock()
	a.editor = ed
	a.mu.Unlock()
	a.updateStatus("")

	return ed.Run(ctx)
}

// Shutdown stops Run and releases every component. It is safe to call
// more than once.
func (a *Application) Shutdown() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	if a.session != nil {
		a.session.Close()
	}
	if a.provider != nil {
		if err := a.provider.Close(); err != nil {
			a.logger.Warn("closing collab provider: %v", err)
		}
	}
	for _, sub := range a.subs {
		_ = a.bus.Unsubscribe(sub)
	}
	if a.manager != nil {
		if err := a.manager.Destroy(); err != nil {
			a.logger.Warn("destroying editor: %v", err)
		}
	}
}
