package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Alia5/hdrbind/internal/codegen/callbacks"
)

type Generate struct {
	BindOptions `embed:""`
	Cargo       bool          `help:"Print cargo:rerun-if-changed directives for every file read" env:"HDRBIND_CARGO"`
	Watch       bool          `help:"Regenerate whenever the header changes, until interrupted"`
	Debounce    time.Duration `help:"Quiet period after a header change before regenerating" default:"200ms" env:"HDRBIND_DEBOUNCE"`
}

// Run is called by Kong when the generate command is executed.
func (g *Generate) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return g.Execute(ctx, logger, os.Stdout)
}

// Execute generates once and, in watch mode, keeps regenerating until ctx
// is cancelled. Cargo directives go to stdout.
func (g *Generate) Execute(ctx context.Context, logger *slog.Logger, stdout io.Writer) error {
	if err := g.generate(logger, stdout); err != nil {
		return err
	}
	if !g.Watch {
		return nil
	}
	return watchFile(ctx, logger, g.Header, g.Debounce, func() error {
		return g.generate(logger, stdout)
	})
}

func (g *Generate) generate(logger *slog.Logger, stdout io.Writer) error {
	var extra []callbacks.ParseCallbacks
	if g.Cargo {
		extra = append(extra, callbacks.NewCargo(stdout))
	}
	b, err := g.bindings(logger, extra...)
	if err != nil {
		return err
	}
	if _, err := g.generator(logger).GenerateLang(g.Lang, g.Output, b); err != nil {
		return fmt.Errorf("generate %s bindings: %w", g.Lang, err)
	}
	return nil
}

// watchFile calls regen after path changes, once per burst of events.
// The parent directory is watched so editors that replace the file by
// renaming are still seen. Regeneration errors are logged and watching
// continues.
func watchFile(ctx context.Context, logger *slog.Logger, path string, debounce time.Duration, regen func() error) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("Watching header", "file", abs)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("Stopped watching", "file", abs)
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("Header changed", "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error", "error", err)
		case <-fire:
			fire = nil
			if err := regen(); err != nil {
				logger.Error("Regeneration failed", "error", err)
			}
		}
	}
}
