// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/starford/dagaz/internal/exclude"
	"github.com/starford/dagaz/internal/hasher"
	"github.com/starford/dagaz/internal/scan"
	"github.com/starford/dagaz/internal/snapshot"
	"github.com/starford/dagaz/internal/syncer"
	"github.com/starford/dagaz/internal/watch"
)

// Run executes one index/diff/sync cycle and, in watch mode, keeps re-running
// it until interrupted. Change lines go to the configured output (stdout);
// logs go to stderr so the two never interleave.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	out := app.out
	if out == nil {
		out = os.Stdout
	}

	algo, err := hasher.Parse(cfg.Scan.Algorithm)
	if err != nil {
		return err
	}
	matcher, err := exclude.NewMatcher(cfg.Scan.Excludes)
	if err != nil {
		return err
	}

	rootAbs, err := filepath.Abs(cfg.Scan.Root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	stateAbs, err := filepath.Abs(cfg.State.File)
	if err != nil {
		return fmt.Errorf("resolve state file: %w", err)
	}

	// Overlap is a configuration error: reject it before any work begins.
	if cfg.Sync.Target != "" {
		if err := syncer.ValidateRoots(rootAbs, cfg.Sync.Target); err != nil {
			return err
		}
	}

	logger.Info("Configuration loaded",
		slog.String("state_file", stateAbs),
		slog.String("root", rootAbs),
		slog.String("algorithm", string(algo)),
		slog.String("target", cfg.Sync.Target),
		slog.Bool("watch", cfg.Watch.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	scanner := &scan.Scanner{
		Matcher:        matcher,
		Algorithm:      algo,
		FollowSymlinks: cfg.Scan.FollowSymlinks,
		Workers:        cfg.Scan.Workers,
		Logger:         logger,
	}
	mirror := &syncer.Syncer{
		Workers: cfg.Scan.Workers,
		Logger:  logger,
	}

	cycle := func(ctx context.Context, persistClean bool) error {
		return runCycle(ctx, cfg, scanner, mirror, stateAbs, rootAbs, out, persistClean)
	}

	if err := cycle(ctx, true); err != nil {
		return err
	}
	if !cfg.Watch.Enabled {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := &watch.Watcher{
		Root:     rootAbs,
		Debounce: cfg.Watch.Debounce,
		Ignore: func(absPath string) bool {
			if absPath == stateAbs {
				return true
			}
			rel, err := filepath.Rel(rootAbs, absPath)
			if err != nil || strings.HasPrefix(rel, "..") {
				return false
			}
			return matcher.Match(filepath.ToSlash(rel))
		},
		Logger: logger,
	}
	return w.Run(ctx, func(ctx context.Context) error {
		// Re-runs skip persisting an unchanged snapshot so the state file
		// write does not schedule yet another cycle.
		return cycle(ctx, false)
	})
}

// runCycle is one load → scan → diff → print → sync → persist pass.
// Persistence reflects the scan and happens regardless of sync outcome.
func runCycle(ctx context.Context, cfg *Config, scanner *scan.Scanner, mirror *syncer.Syncer, stateFile, root string, out io.Writer, persistClean bool) error {
	previous, err := snapshot.Load(stateFile)
	if err != nil {
		return err
	}
	current, err := scanner.Scan(ctx, root)
	if err != nil {
		return err
	}

	changes := snapshot.Diff(previous, current)
	for _, ch := range changes {
		if _, err := fmt.Fprintf(out, "%s: %s\n", ch.Kind, ch.Path); err != nil {
			return fmt.Errorf("write changes: %w", err)
		}
	}

	var syncErr error
	if cfg.Sync.Target != "" {
		syncErr = mirror.Apply(ctx, changes, root, cfg.Sync.Target)
	}

	var saveErr error
	if !cfg.State.NoWrite && (persistClean || len(changes) > 0) {
		saveErr = snapshot.Save(stateFile, current)
	}

	return errors.Join(syncErr, saveErr)
}
