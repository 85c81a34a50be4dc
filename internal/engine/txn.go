package engine

import "github.com/devrev/scoredb/internal/model"

// Txn is one transaction's handle: identity, snapshot anchor, lifecycle
// status and private workspace. A Txn is driven by a single goroutine while
// Active and becomes immutable once Committed or Aborted.
type Txn struct {
	id      uint64
	startTS uint64
	status  model.TxnStatus
	ws      *Workspace
}

// ID returns the transaction's unique identifier.
func (t *Txn) ID() uint64 {
	return t.id
}

// StartTS returns the commit sequence value observed at begin, anchoring the
// transaction's snapshot.
func (t *Txn) StartTS() uint64 {
	return t.startTS
}

// Status returns the current lifecycle state.
func (t *Txn) Status() model.TxnStatus {
	return t.status
}
