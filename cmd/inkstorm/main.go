// Package main is the entry point for the inkstorm editor.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dshills/inkstorm/internal/app"
	"github.com/dshills/inkstorm/internal/collab"
	"github.com/dshills/inkstorm/internal/collab/ws"
	"github.com/dshills/inkstorm/internal/logging"
	"github.com/dshills/inkstorm/internal/terminal"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type flags struct {
	opts    app.Options
	logFile string
	serve   string
}

func main() {
	os.Exit(run())
}

func run() int {
	f := parseFlags()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, closeLog, err := openLog(f.logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeLog()
	f.opts.LogOutput = out

	if f.serve != "" {
		if err := serve(ctx, f.serve, f.opts.LogLevel, out); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	application, err := app.New(f.opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer application.Shutdown()

	screen, err := terminal.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create terminal: %v\n", err)
		return 1
	}

	err = application.Run(ctx, screen)
	if err == nil || errors.Is(err, terminal.ErrQuit) || errors.Is(err, context.Canceled) {
		return 0
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

// serve runs a collaboration authority until ctx ends.
func serve(ctx context.Context, addr, level string, out io.Writer) error {
	logger := logging.New(logging.Config{Level: logging.ParseLevel(level), Output: out, Prefix: "inkstorm"})
	srv := &http.Server{
		Addr:              addr,
		Handler:           ws.NewServer(collab.NewAuthority(), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info("collaboration authority listening on %s", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// openLog opens the log destination. The terminal owns stdout and
// stderr while editing, so logs go to a file or nowhere.
func openLog(path string) (io.Writer, func(), error) {
	if path == "" {
		return io.Discard, func() {}, nil
	}
	if path == "-" {
		return os.Stderr, func() {}, nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return file, func() { _ = file.Close() }, nil
}

func parseFlags() flags {
	var f flags
	var showVersion bool
	var showHelp bool

	flag.StringVar(&f.opts.ConfigPath, "config", "", "Path to configuration file")
	flag.StringVar(&f.opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&f.opts.WorkspacePath, "workspace", "", "Project directory searched for .inkstorm.toml")
	flag.StringVar(&f.opts.WorkspacePath, "w", "", "Project directory (shorthand)")
	flag.StringVar(&f.opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&f.logFile, "log", "", "Log file, or - for stderr")
	flag.StringVar(&f.opts.CollabURL, "collab", "", "Collaboration server URL (ws://host:port/)")
	flag.StringVar(&f.serve, "serve", "", "Run a collaboration server on this address instead of editing")
	flag.BoolVar(&f.opts.ReadOnly, "readonly", false, "Open the document read-only")
	flag.BoolVar(&f.opts.ReadOnly, "R", false, "Open the document read-only (shorthand)")
	flag.BoolVar(&f.opts.Watch, "watch", true, "Reload configuration files when they change")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "inkstorm - extensible rich-text editor\n\n")
		fmt.Fprintf(os.Stderr, "Usage: inkstorm [options] [file.html]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  inkstorm notes.html                          Edit a document\n")
		fmt.Fprintf(os.Stderr, "  inkstorm -serve :8080                        Run a collaboration server\n")
		fmt.Fprintf(os.Stderr, "  inkstorm -collab ws://localhost:8080/ a.html  Edit together\n")
		fmt.Fprintf(os.Stderr, "\nKeys: Ctrl-S save, Ctrl-Q quit, Ctrl-Z undo, Ctrl-B bold\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("inkstorm %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	switch f.opts.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", f.opts.LogLevel)
		os.Exit(1)
	}

	if flag.NArg() > 1 {
		fmt.Fprintf(os.Stderr, "Error: expected at most one file\n")
		os.Exit(1)
	}
	f.opts.File = flag.Arg(0)

	if f.opts.WorkspacePath == "" {
		if f.opts.File != "" {
			if abs, err := filepath.Abs(f.opts.File); err == nil {
				f.opts.WorkspacePath = filepath.Dir(abs)
			}
		} else if wd, err := os.Getwd(); err == nil {
			f.opts.WorkspacePath = wd
		}
	}

	return f
}
