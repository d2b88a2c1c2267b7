// Package scan walks a directory tree and builds a content-hash snapshot.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/starford/dagaz/internal/exclude"
	"github.com/starford/dagaz/internal/hasher"
	"github.com/starford/dagaz/internal/snapshot"
)

// Scanner produces one snapshot.Record per surviving regular file under a
// root directory. Traversal is single-threaded; hashing runs on a bounded
// worker pool and a single collector owns the snapshot map.
type Scanner struct {
	Matcher        *exclude.Matcher // nil excludes nothing
	Algorithm      hasher.Algorithm
	FollowSymlinks bool
	Workers        int // hashing goroutines; <=0 means runtime.NumCPU()
	Logger         *slog.Logger
}

// Scan walks root and returns the current snapshot. Unreadable files and
// directories are skipped with a warning and left out of the snapshot; only
// a failure on the root itself aborts the scan.
func (s *Scanner) Scan(ctx context.Context, root string) (snapshot.Snapshot, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("scan: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("scan: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan: root is not a directory: %s", abs)
	}

	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	paths := make(chan string)
	records := make(chan snapshot.Record)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(paths)
		return s.walk(gctx, abs, paths, logger)
	})

	g.Go(func() error {
		defer close(records)
		pool, pctx := errgroup.WithContext(gctx)
		for i := 0; i < workers; i++ {
			pool.Go(func() error {
				for rel := range paths {
					rec, err := hashOne(abs, rel, s.Algorithm)
					if err != nil {
						logger.Warn("scan: skipping unreadable file",
							slog.String("path", rel),
							slog.String("error", err.Error()))
						continue
					}
					select {
					case records <- rec:
					case <-pctx.Done():
						return pctx.Err()
					}
				}
				return nil
			})
		}
		return pool.Wait()
	})

	errCh := make(chan error, 1)
	go func() { errCh <- g.Wait() }()

	// Single owner of the map; workers never touch it.
	snap := snapshot.Snapshot{}
	for rec := range records {
		snap[rec.Path] = rec
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return snap, nil
}

func hashOne(root, rel string, algo hasher.Algorithm) (snapshot.Record, error) {
	abs := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(abs)
	if err != nil {
		return snapshot.Record{}, err
	}
	hash, err := hasher.File(abs, algo)
	if err != nil {
		return snapshot.Record{}, err
	}
	return snapshot.Record{
		Path:     rel,
		Size:     info.Size(),
		Modified: info.ModTime().Unix(),
		Hash:     hash,
	}, nil
}

// walk does a depth-first traversal rooted at abs, sending the root-relative
// path of every surviving regular file to out.
func (s *Scanner) walk(ctx context.Context, abs string, out chan<- string, logger *slog.Logger) error {
	visited := map[string]struct{}{}
	if s.FollowSymlinks {
		if canon, err := filepath.EvalSymlinks(abs); err == nil {
			visited[canon] = struct{}{}
		}
	}
	return s.walkDir(ctx, abs, "", visited, out, logger)
}

func (s *Scanner) walkDir(ctx context.Context, dir, rel string, visited map[string]struct{}, out chan<- string, logger *slog.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if rel == "" {
			return fmt.Errorf("scan: read root: %w", err)
		}
		logger.Warn("scan: skipping unreadable directory",
			slog.String("path", rel),
			slog.String("error", err.Error()))
		return nil
	}

	for _, e := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		childRel := e.Name()
		if rel != "" {
			childRel = rel + "/" + e.Name()
		}
		childAbs := filepath.Join(dir, e.Name())

		isDir := e.IsDir()
		isFile := e.Type().IsRegular()
		if e.Type()&fs.ModeSymlink != 0 {
			if !s.FollowSymlinks {
				continue
			}
			// Treat the link as its resolved type.
			info, err := os.Stat(childAbs)
			if err != nil {
				logger.Warn("scan: skipping broken symlink",
					slog.String("path", childRel),
					slog.String("error", err.Error()))
				continue
			}
			isDir = info.IsDir()
			isFile = info.Mode().IsRegular()
		}

		switch {
		case isDir:
			if s.excluded(childRel) {
				// Pruned: never descended into.
				continue
			}
			if s.FollowSymlinks {
				canon, err := filepath.EvalSymlinks(childAbs)
				if err != nil {
					logger.Warn("scan: skipping unresolvable directory",
						slog.String("path", childRel),
						slog.String("error", err.Error()))
					continue
				}
				if _, seen := visited[canon]; seen {
					logger.Debug("scan: symlink cycle pruned", slog.String("path", childRel))
					continue
				}
				visited[canon] = struct{}{}
				err = s.walkDir(ctx, childAbs, childRel, visited, out, logger)
				// Only refuse re-entry while the directory is on the
				// current traversal path.
				delete(visited, canon)
				if err != nil {
					return err
				}
			} else if err := s.walkDir(ctx, childAbs, childRel, visited, out, logger); err != nil {
				return err
			}
		case isFile:
			if s.excluded(childRel) {
				continue
			}
			select {
			case out <- childRel:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		// Sockets, devices and the like are skipped.
	}
	return nil
}

func (s *Scanner) excluded(rel string) bool {
	return s.Matcher != nil && s.Matcher.Match(rel)
}
