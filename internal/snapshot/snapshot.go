// Package snapshot holds the content-hash index of a directory tree and the
// three-way comparison between two such indexes.
package snapshot

// Record is one indexed regular file.
type Record struct {
	Path     string // relative to the scan root, '/' separated
	Size     int64  // bytes at scan time
	Modified int64  // mtime, unix seconds
	Hash     string // hex content digest
}

// Snapshot maps a root-relative path to its Record. It is built once per run
// and never mutated afterwards.
type Snapshot map[string]Record

// ChangeKind classifies one path's difference between two snapshots.
type ChangeKind int

const (
	Added ChangeKind = iota
	Updated
	Deleted
)

// String returns the single-letter form used in change output.
func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "A"
	case Updated:
		return "U"
	case Deleted:
		return "D"
	}
	return "?"
}

// Change is a classified difference for one path. Size and Hash carry the
// current record's values and are zero for Deleted.
type Change struct {
	Kind ChangeKind
	Path string
	Size int64
	Hash string
}
