// Package testutil provides shared test helpers for building source trees
// and state files.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// WriteTree materializes files under dir. Keys are '/'-separated relative
// paths, values are file contents; parent directories are created as needed.
func WriteTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		abs := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// StatePath returns a state file path inside a fresh temp directory, so the
// state file never lives under a scanned root.
func StatePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "state.txt")
}

// DiscardLogger returns a logger that swallows everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
