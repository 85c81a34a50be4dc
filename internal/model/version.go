package model

import "math"

// RetiredOpen marks a version as currently visible to new snapshots.
// At most one version per key carries it at any instant.
const RetiredOpen = uint64(math.MaxUint64)

// Version is one immutable committed snapshot of a record. CreatedTS is the
// commit sequence number of the transaction that produced it; RetiredTS is
// the commit sequence number of the transaction that superseded it, or
// RetiredOpen while it is the current version.
type Version struct {
	Value     Record
	CreatedTS uint64
	RetiredTS uint64
	Tombstone bool
}

// VisibleAt reports whether this version belongs to the snapshot anchored at
// the given timestamp: CreatedTS <= ts < RetiredTS.
func (v *Version) VisibleAt(ts uint64) bool {
	return v.CreatedTS <= ts && (v.RetiredTS == RetiredOpen || ts < v.RetiredTS)
}

// Open reports whether the version is the current one for its key.
func (v *Version) Open() bool {
	return v.RetiredTS == RetiredOpen
}
