package snapshot

import (
	"cmp"
	"slices"
)

// Diff classifies every path across previous and current:
//   - in current only: Added
//   - in both with a different hash: Updated
//   - in previous only: Deleted
//
// Equal hashes produce no change; size and mtime do not participate.
// The result is sorted by path for deterministic output.
func Diff(previous, current Snapshot) []Change {
	var changes []Change

	for path, cur := range current {
		prev, ok := previous[path]
		switch {
		case !ok:
			changes = append(changes, Change{Kind: Added, Path: path, Size: cur.Size, Hash: cur.Hash})
		case prev.Hash != cur.Hash:
			changes = append(changes, Change{Kind: Updated, Path: path, Size: cur.Size, Hash: cur.Hash})
		}
	}
	for path := range previous {
		if _, ok := current[path]; !ok {
			changes = append(changes, Change{Kind: Deleted, Path: path})
		}
	}

	slices.SortFunc(changes, func(a, b Change) int {
		if c := cmp.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return cmp.Compare(a.Kind, b.Kind)
	})
	return changes
}
