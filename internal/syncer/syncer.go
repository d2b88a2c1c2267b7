// Package syncer applies a classified change list onto a target directory so
// that it mirrors the source.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/snapshot"
)

// Syncer copies Added/Updated files from the source root into the target
// root and removes Deleted ones. Changes are applied by a bounded worker
// pool; per-file failures are collected and reported in aggregate while the
// remaining changes still get processed.
type Syncer struct {
	Workers int // <=0 means runtime.NumCPU()
	Logger  *slog.Logger
}

// ValidateRoots rejects a target that is the same directory as the source or
// nested inside it (or the reverse), resolving symlinks where possible. It
// must pass before any destructive operation.
func ValidateRoots(source, target string) error {
	src, err := canonical(source)
	if err != nil {
		return fmt.Errorf("sync: resolve source: %w", err)
	}
	tgt, err := canonical(target)
	if err != nil {
		return fmt.Errorf("sync: resolve target: %w", err)
	}
	sep := string(os.PathSeparator)
	switch {
	case src == tgt:
		return fmt.Errorf("sync: target equals source %s: %w", src, apperr.ErrPathOverlap)
	case strings.HasPrefix(tgt, src+sep):
		return fmt.Errorf("sync: target %s is inside source %s: %w", tgt, src, apperr.ErrPathOverlap)
	case strings.HasPrefix(src, tgt+sep):
		return fmt.Errorf("sync: source %s is inside target %s: %w", src, tgt, apperr.ErrPathOverlap)
	}
	return nil
}

// canonical resolves p to an absolute, symlink-free form. A path that does
// not exist yet falls back to its cleaned absolute form.
func canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// Apply mirrors changes onto targetRoot. The target root is created if
// missing. Copy and delete failures for individual files do not stop the
// remaining changes; the aggregate error is returned at the end.
func (s *Syncer) Apply(ctx context.Context, changes []snapshot.Change, sourceRoot, targetRoot string) error {
	if err := ValidateRoots(sourceRoot, targetRoot); err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}

	srcAbs, err := filepath.Abs(sourceRoot)
	if err != nil {
		return fmt.Errorf("sync: resolve source: %w", err)
	}
	tgtAbs, err := filepath.Abs(targetRoot)
	if err != nil {
		return fmt.Errorf("sync: resolve target: %w", err)
	}
	if err := os.MkdirAll(tgtAbs, 0o755); err != nil {
		return fmt.Errorf("sync: create target root: %w", err)
	}

	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		mkdirs   singleflight.Group
		mu       sync.Mutex
		failures []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, ch := range changes {
		ch := ch
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			if err := s.applyOne(ch, srcAbs, tgtAbs, &mkdirs, logger); err != nil {
				logger.Warn("sync: change failed",
					slog.String("kind", ch.Kind.String()),
					slog.String("path", ch.Path),
					slog.String("error", err.Error()))
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
			}
			// Per-file failures never cancel the remaining changes.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if len(failures) > 0 {
		return fmt.Errorf("sync: %d of %d changes failed: %w", len(failures), len(changes), errors.Join(failures...))
	}
	return nil
}

func (s *Syncer) applyOne(ch snapshot.Change, srcRoot, tgtRoot string, mkdirs *singleflight.Group, logger *slog.Logger) error {
	dst, err := targetPath(tgtRoot, ch.Path)
	if err != nil {
		return err
	}

	switch ch.Kind {
	case snapshot.Added, snapshot.Updated:
		src := filepath.Join(srcRoot, filepath.FromSlash(ch.Path))
		parent := filepath.Dir(dst)
		// Concurrent workers landing in the same directory collapse to a
		// single MkdirAll.
		if _, err, _ := mkdirs.Do(parent, func() (any, error) {
			return nil, os.MkdirAll(parent, 0o755)
		}); err != nil {
			return fmt.Errorf("sync: create dir %s: %w", parent, err)
		}
		if err := s.copyFile(src, dst, logger); err != nil {
			return err
		}
		logger.Debug("sync: copied", slog.String("path", ch.Path))

	case snapshot.Deleted:
		info, err := os.Lstat(dst)
		if errors.Is(err, fs.ErrNotExist) {
			// Already gone: deletion is idempotent.
			return nil
		}
		if err != nil {
			return fmt.Errorf("sync: stat %s: %w", dst, err)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if err := os.Remove(dst); err != nil {
			return fmt.Errorf("sync: delete %s: %w", dst, err)
		}
		logger.Debug("sync: deleted", slog.String("path", ch.Path))
	}
	return nil
}

// targetPath joins rel onto root and rejects any result that would escape
// it, so a hostile state file cannot write outside the target.
func targetPath(root, rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	sep := string(os.PathSeparator)
	if cleaned == "." || cleaned == ".." || filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, ".."+sep) {
		return "", fmt.Errorf("sync: path escapes target root: %s", rel)
	}
	return filepath.Join(root, cleaned), nil
}

// copyFile copies the full content of src to dst, then restores the source's
// permission bits and mtime. Metadata restore is best-effort: a filesystem
// that refuses it degrades to a warning, not a failed change.
func (s *Syncer) copyFile(src, dst string, logger *slog.Logger) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("sync: open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("sync: stat %s: %w", src, err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("sync: create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("sync: copy to %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("sync: close %s: %w", dst, err)
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		logger.Warn("sync: restore permissions failed",
			slog.String("path", dst),
			slog.String("error", err.Error()))
	}
	mtime := info.ModTime()
	if err := os.Chtimes(dst, mtime, mtime); err != nil {
		logger.Warn("sync: restore mtime failed",
			slog.String("path", dst),
			slog.String("error", err.Error()))
	}
	return nil
}
