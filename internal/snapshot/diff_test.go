package snapshot

import (
	"slices"
	"testing"
)

func rec(path, hash string) Record {
	return Record{Path: path, Size: int64(len(hash)), Modified: 1700000000, Hash: hash}
}

func TestDiffClassification(t *testing.T) {
	previous := Snapshot{
		"keep.txt":   rec("keep.txt", "h1"),
		"change.txt": rec("change.txt", "h2"),
		"gone.txt":   rec("gone.txt", "h3"),
	}
	current := Snapshot{
		"keep.txt":   rec("keep.txt", "h1"),
		"change.txt": rec("change.txt", "h2-new"),
		"new.txt":    rec("new.txt", "h4"),
	}

	changes := Diff(previous, current)

	want := []Change{
		{Kind: Updated, Path: "change.txt", Size: 6, Hash: "h2-new"},
		{Kind: Deleted, Path: "gone.txt"},
		{Kind: Added, Path: "new.txt", Size: 2, Hash: "h4"},
	}
	if !slices.Equal(changes, want) {
		t.Errorf("Diff = %+v, want %+v", changes, want)
	}
}

func TestDiffPartitionsPaths(t *testing.T) {
	previous := Snapshot{"a": rec("a", "1"), "b": rec("b", "2"), "c": rec("c", "3")}
	current := Snapshot{"b": rec("b", "2"), "c": rec("c", "9"), "d": rec("d", "4")}

	changes := Diff(previous, current)

	// Every path in keys(previous) ∪ keys(current) is either unchanged or
	// appears in exactly one change.
	seen := map[string]int{}
	for _, ch := range changes {
		seen[ch.Path]++
	}
	for p, n := range seen {
		if n != 1 {
			t.Errorf("path %q classified %d times", p, n)
		}
	}
	union := map[string]struct{}{}
	for p := range previous {
		union[p] = struct{}{}
	}
	for p := range current {
		union[p] = struct{}{}
	}
	unchanged := 0
	for p := range union {
		prev, inPrev := previous[p]
		cur, inCur := current[p]
		if inPrev && inCur && prev.Hash == cur.Hash {
			unchanged++
			if _, ok := seen[p]; ok {
				t.Errorf("unchanged path %q produced a change", p)
			}
		}
	}
	if unchanged+len(seen) != len(union) {
		t.Errorf("partition mismatch: %d unchanged + %d changed != %d paths", unchanged, len(seen), len(union))
	}
}

func TestDiffHashOnly(t *testing.T) {
	previous := Snapshot{"a.txt": {Path: "a.txt", Size: 5, Modified: 100, Hash: "same"}}
	current := Snapshot{"a.txt": {Path: "a.txt", Size: 99, Modified: 999, Hash: "same"}}

	if changes := Diff(previous, current); len(changes) != 0 {
		t.Errorf("size/mtime-only difference produced changes: %+v", changes)
	}
}

func TestDiffEmptyPrevious(t *testing.T) {
	current := Snapshot{"b": rec("b", "2"), "a": rec("a", "1")}

	changes := Diff(Snapshot{}, current)
	if len(changes) != 2 {
		t.Fatalf("len = %d, want 2", len(changes))
	}
	// First run is entirely Added, sorted by path.
	if changes[0].Path != "a" || changes[0].Kind != Added {
		t.Errorf("changes[0] = %+v", changes[0])
	}
	if changes[1].Path != "b" || changes[1].Kind != Added {
		t.Errorf("changes[1] = %+v", changes[1])
	}
}

func TestDiffIdentical(t *testing.T) {
	s := Snapshot{"a": rec("a", "1")}
	if changes := Diff(s, s); len(changes) != 0 {
		t.Errorf("identical snapshots produced changes: %+v", changes)
	}
}

func TestChangeKindString(t *testing.T) {
	cases := map[ChangeKind]string{Added: "A", Updated: "U", Deleted: "D"}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", kind, got, want)
		}
	}
}
