package engine

import (
	"github.com/devrev/scoredb/internal/errors"
	"github.com/devrev/scoredb/internal/model"
	"github.com/devrev/scoredb/internal/store"
)

// ConflictPolicy is the protocol-specific half of the engine: how a
// transaction's reads observe the store during execution, and whether its
// observations still hold when it asks to commit. Validate runs inside the
// store's commit critical section and must not block.
type ConflictPolicy interface {
	Name() model.Protocol

	// ReadVersion resolves a read that missed the transaction's own write
	// buffer, returning the value and the created timestamp observed.
	ReadVersion(txn *Txn, st *store.VersionedStore, key model.Key) (model.Record, uint64, error)

	// Validate decides whether the transaction may commit given what has
	// happened since it started. Returns nil to allow, or a
	// ConflictRejected error naming every stale key.
	Validate(txn *Txn, view store.ConflictView) error
}

// NewConflictPolicy returns the policy implementation for a protocol.
func NewConflictPolicy(p model.Protocol) (ConflictPolicy, error) {
	switch p {
	case model.ProtocolMVCC:
		return mvccPolicy{}, nil
	case model.ProtocolOCC:
		return occPolicy{}, nil
	case model.ProtocolHybrid:
		return hybridPolicy{}, nil
	default:
		return nil, errors.InvalidArgument("unknown conflict policy: "+string(p), nil)
	}
}

// validateWriteSet applies the first-committer-wins rule: reject if any
// written key's open version was created after the transaction's snapshot.
// A tombstone committed after the snapshot counts the same as a value write.
// Shared by the MVCC and hybrid policies.
func validateWriteSet(txn *Txn, view store.ConflictView) error {
	var stale []string
	for key := range txn.ws.writes {
		info, ok := view.CurrentInfo(key)
		if ok && info.CreatedTS > txn.startTS {
			stale = append(stale, string(key))
		}
	}
	if len(stale) > 0 {
		return errors.ConflictRejected(stale)
	}
	return nil
}

// mvccPolicy serves reads from the transaction's snapshot and only checks
// write-write conflicts at commit. Reads never cause rejection.
type mvccPolicy struct{}

func (mvccPolicy) Name() model.Protocol {
	return model.ProtocolMVCC
}

func (mvccPolicy) ReadVersion(txn *Txn, st *store.VersionedStore, key model.Key) (model.Record, uint64, error) {
	return st.Read(key, txn.startTS)
}

func (mvccPolicy) Validate(txn *Txn, view store.ConflictView) error {
	return validateWriteSet(txn, view)
}

// occPolicy reads the latest committed version with no mid-transaction
// isolation, then revalidates the full read set at commit: any key whose
// current created timestamp differs from the one observed rejects the
// transaction. Keys written blind, without a prior read, pass freely.
type occPolicy struct{}

func (occPolicy) Name() model.Protocol {
	return model.ProtocolOCC
}

func (occPolicy) ReadVersion(txn *Txn, st *store.VersionedStore, key model.Key) (model.Record, uint64, error) {
	return st.Current(key)
}

func (occPolicy) Validate(txn *Txn, view store.ConflictView) error {
	var stale []string
	for key, stamp := range txn.ws.reads {
		info, ok := view.CurrentInfo(key)
		if !ok || info.CreatedTS != stamp.createdTS {
			stale = append(stale, string(key))
		}
	}
	if len(stale) > 0 {
		return errors.ConflictRejected(stale)
	}
	return nil
}

// hybridPolicy combines MVCC's snapshot reads with OCC's validate-at-end
// resolution, restricted to the write set: the snapshot makes read
// revalidation structurally unnecessary, so only write-write conflicts can
// reject.
type hybridPolicy struct{}

func (hybridPolicy) Name() model.Protocol {
	return model.ProtocolHybrid
}

func (hybridPolicy) ReadVersion(txn *Txn, st *store.VersionedStore, key model.Key) (model.Record, uint64, error) {
	return st.Read(key, txn.startTS)
}

func (hybridPolicy) Validate(txn *Txn, view store.ConflictView) error {
	return validateWriteSet(txn, view)
}
