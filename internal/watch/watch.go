// Package watch re-runs the index pipeline whenever the source tree changes.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RunFunc re-runs the scan/diff/sync/persist cycle.
type RunFunc func(ctx context.Context) error

// Watcher observes a directory tree with fsnotify and invokes a RunFunc
// after events settle for a debounce interval. Directories created at
// runtime are added to the watch list automatically.
type Watcher struct {
	Root     string
	Debounce time.Duration
	Ignore   func(absPath string) bool // events to drop entirely, may be nil
	Logger   *slog.Logger
}

// Run watches until ctx is cancelled. Pipeline failures are logged and do
// not stop the watch loop; only watcher setup errors are returned.
func (w *Watcher) Run(ctx context.Context, run RunFunc) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, w.Root); err != nil {
		return fmt.Errorf("watch: register %s: %w", w.Root, err)
	}

	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	logger.Info("watch: started", slog.String("root", w.Root))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watch: stopped")
			return nil

		case <-fire:
			if err := run(ctx); err != nil {
				logger.Error("watch: run failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.Ignore != nil && w.Ignore(ev.Name) {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(fw, ev.Name); addErr != nil {
						logger.Warn("watch: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watch: watching new dir", slog.String("path", ev.Name))
					}
				}
			}
			schedule()

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}
