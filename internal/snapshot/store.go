package snapshot

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/starford/dagaz/internal/apperr"
)

// delimiter separates the four record fields. Paths containing it cannot be
// represented and are rejected on save.
const delimiter = ":"

// Load reads the state file at path. A missing file is an empty snapshot,
// not an error. A malformed record line fails the whole load: a corrupt
// state file must never masquerade as "everything was deleted". Blank lines
// and '#' comments are tolerated.
func Load(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: open %s: %w", path, err)
	}
	defer f.Close()

	snap := Snapshot{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rec, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("state: %s line %d: %w", path, lineno, err)
		}
		snap[rec.Path] = rec
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("state: read %s: %w", path, err)
	}
	return snap, nil
}

func parseLine(line string) (Record, error) {
	parts := strings.Split(line, delimiter)
	if len(parts) != 4 {
		return Record{}, fmt.Errorf("%w: want 4 fields, got %d", apperr.ErrCorruptState, len(parts))
	}
	if parts[0] == "" {
		return Record{}, fmt.Errorf("%w: empty path", apperr.ErrCorruptState)
	}
	size, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: bad size %q", apperr.ErrCorruptState, parts[1])
	}
	modified, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: bad timestamp %q", apperr.ErrCorruptState, parts[2])
	}
	if parts[3] == "" {
		return Record{}, fmt.Errorf("%w: empty hash", apperr.ErrCorruptState)
	}
	return Record{Path: parts[0], Size: size, Modified: modified, Hash: parts[3]}, nil
}

// Save atomically writes snap to path: tmp file → fsync → rename. Records
// are written sorted by path, one "path:size:modified:hash" line each.
func Save(path string, snap Snapshot) error {
	paths := make([]string, 0, len(snap))
	for p := range snap {
		if strings.Contains(p, delimiter) {
			return fmt.Errorf("state: save %q: %w", p, apperr.ErrDelimiterInPath)
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("state: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".dagaz-tmp-*")
	if err != nil {
		return fmt.Errorf("state: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmp)
	for _, p := range paths {
		rec := snap[p]
		if _, err := fmt.Fprintf(w, "%s:%d:%d:%s\n", rec.Path, rec.Size, rec.Modified, rec.Hash); err != nil {
			return fmt.Errorf("state: write temp: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("state: flush: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("state: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("state: close temp: %w", err)
	}
	// CreateTemp opens the file 0600; the state file is not a secret.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("state: chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("state: rename: %w", err)
	}
	success = true
	return nil
}
