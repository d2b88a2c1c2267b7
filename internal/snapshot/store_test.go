package snapshot

import (
	"errors"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/dagaz/internal/apperr"
)

func statePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "state.txt")
}

func TestLoadMissingFile(t *testing.T) {
	snap, err := Load(statePath(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap) != 0 {
		t.Errorf("missing state file should load as empty snapshot, got %d records", len(snap))
	}
}

func TestRoundTrip(t *testing.T) {
	path := statePath(t)
	snap := Snapshot{
		"a.txt":     {Path: "a.txt", Size: 5, Modified: 1700000000, Hash: "aa11"},
		"sub/b.txt": {Path: "sub/b.txt", Size: 0, Modified: 0, Hash: "bb22"},
	}

	if err := Save(path, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !maps.Equal(got, snap) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, snap)
	}
}

func TestSaveFormat(t *testing.T) {
	path := statePath(t)
	snap := Snapshot{
		"b.txt": {Path: "b.txt", Size: 2, Modified: 20, Hash: "beef"},
		"a.txt": {Path: "a.txt", Size: 1, Modified: 10, Hash: "cafe"},
	}
	if err := Save(path, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "a.txt:1:10:cafe\nb.txt:2:20:beef\n"
	if string(data) != want {
		t.Errorf("state file = %q, want %q", data, want)
	}
}

func TestLoadTolerantLines(t *testing.T) {
	path := statePath(t)
	content := "# previous run\n\na.txt:5:100:aa\n   \nb.txt:6:200:bb\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	snap, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap) != 2 {
		t.Errorf("len = %d, want 2", len(snap))
	}
}

func TestLoadCorruptIsFatal(t *testing.T) {
	cases := []string{
		"not a record\n",
		"a.txt:5:100\n",              // three fields
		"a.txt:big:100:aa\n",         // bad size
		"a.txt:5:later:aa\n",         // bad timestamp
		"a.txt:5:100:\n",             // empty hash
		":5:100:aa\n",                // empty path
		"ok.txt:1:1:aa\nbroken\n",    // valid line does not excuse a bad one
	}
	for _, content := range cases {
		path := statePath(t)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(path)
		if err == nil {
			t.Errorf("Load(%q): expected error", content)
			continue
		}
		if !errors.Is(err, apperr.ErrCorruptState) {
			t.Errorf("Load(%q): error %v does not wrap ErrCorruptState", content, err)
		}
	}
}

func TestSaveRejectsDelimiterInPath(t *testing.T) {
	path := statePath(t)
	snap := Snapshot{"a:b.txt": {Path: "a:b.txt", Size: 1, Modified: 1, Hash: "aa"}}

	err := Save(path, snap)
	if err == nil {
		t.Fatal("expected error for path containing delimiter")
	}
	if !errors.Is(err, apperr.ErrDelimiterInPath) {
		t.Errorf("error %v does not wrap ErrDelimiterInPath", err)
	}
	if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("rejected save must not leave a state file behind")
	}
}

func TestSaveCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "state.txt")
	if err := Save(path, Snapshot{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("state file missing: %v", err)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	path := statePath(t)
	if err := Save(path, Snapshot{"a": {Path: "a", Size: 1, Modified: 1, Hash: "aa"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".dagaz-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestSaveFileMode(t *testing.T) {
	path := statePath(t)
	if err := Save(path, Snapshot{"a": {Path: "a", Size: 1, Modified: 1, Hash: "aa"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if got := info.Mode().Perm(); got != 0o644 {
		t.Errorf("state file mode = %o, want 644", got)
	}
}

func TestSaveOverwritesAtomically(t *testing.T) {
	path := statePath(t)
	first := Snapshot{"a": {Path: "a", Size: 1, Modified: 1, Hash: "old"}}
	second := Snapshot{"a": {Path: "a", Size: 1, Modified: 2, Hash: "new"}}

	if err := Save(path, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := Save(path, second); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got["a"].Hash != "new" {
		t.Errorf("hash = %q, want %q", got["a"].Hash, "new")
	}
	data, _ := os.ReadFile(path)
	if strings.Count(string(data), "\n") != 1 {
		t.Errorf("overwrite left extra lines: %q", data)
	}
}
