package engine

import (
	"sync/atomic"
	"time"

	"github.com/devrev/scoredb/internal/errors"
	"github.com/devrev/scoredb/internal/metrics"
	"github.com/devrev/scoredb/internal/model"
	"github.com/devrev/scoredb/internal/store"
	"go.uber.org/zap"
)

// TransactionManager drives the transaction lifecycle under one conflict
// policy: begin, read, write, commit, abort. All shared state lives in the
// injected store and sequence; the manager itself holds no locks, so any
// number of goroutines may run transactions through it concurrently.
type TransactionManager struct {
	store   *store.VersionedStore
	seq     *store.GlobalSequence
	policy  ConflictPolicy
	metrics *metrics.Metrics
	logger  *zap.Logger
	nextID  uint64
}

// NewTransactionManager creates a manager bound to a store and policy.
func NewTransactionManager(
	st *store.VersionedStore,
	policy ConflictPolicy,
	m *metrics.Metrics,
	logger *zap.Logger,
) *TransactionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionManager{
		store:   st,
		seq:     st.Sequence(),
		policy:  policy,
		metrics: m,
		logger:  logger,
	}
}

// Protocol returns the protocol the manager runs under.
func (m *TransactionManager) Protocol() model.Protocol {
	return m.policy.Name()
}

// Begin starts a transaction anchored at the current commit sequence.
func (m *TransactionManager) Begin() *Txn {
	txn := &Txn{
		id:      atomic.AddUint64(&m.nextID, 1),
		startTS: m.seq.Current(),
		status:  model.TxnActive,
		ws:      NewWorkspace(),
	}

	m.metrics.RecordBegin()
	m.logger.Debug("Transaction begun",
		zap.Uint64("txn_id", txn.id),
		zap.Uint64("start_ts", txn.startTS))

	return txn
}

// Read returns the value of a key as the transaction's policy sees it. A key
// the transaction has already written is served from its own write buffer;
// a buffered tombstone reads as NotFound.
func (m *TransactionManager) Read(txn *Txn, key model.Key) (model.Record, error) {
	if txn.status != model.TxnActive {
		return model.Record{}, errors.InvalidState("read", txn.status.String())
	}

	if w, ok := txn.ws.PendingWrite(key); ok {
		if w.Tombstone {
			return model.Record{}, errors.NotFound(string(key))
		}
		return w.Value, nil
	}

	value, createdTS, err := m.policy.ReadVersion(txn, m.store, key)
	if err != nil {
		return model.Record{}, err
	}
	txn.ws.RecordRead(key, createdTS)
	return value, nil
}

// Write stages the final intended value for a key. Writing a key the
// transaction never read is allowed.
func (m *TransactionManager) Write(txn *Txn, key model.Key, value model.Record) error {
	if txn.status != model.TxnActive {
		return errors.InvalidState("write", txn.status.String())
	}
	txn.ws.StageWrite(key, value)
	return nil
}

// Delete stages a tombstone for a key.
func (m *TransactionManager) Delete(txn *Txn, key model.Key) error {
	if txn.status != model.TxnActive {
		return errors.InvalidState("delete", txn.status.String())
	}
	txn.ws.StageDelete(key)
	return nil
}

// Commit runs the policy's validation inside the store's commit critical
// section and, on success, publishes the write set at a fresh commit
// timestamp. On rejection the transaction aborts, its workspace is
// discarded, and the ConflictRejected error names the stale keys. A
// transaction with an empty write set commits without entering the critical
// section: pure reads never conflict and never consume a timestamp.
func (m *TransactionManager) Commit(txn *Txn) (uint64, error) {
	if txn.status != model.TxnActive {
		return 0, errors.InvalidState("commit", txn.status.String())
	}

	writes := txn.ws.Writes()
	if len(writes) == 0 {
		txn.status = model.TxnCommitted
		m.metrics.RecordCommit(0, 0)
		m.logger.Debug("Read-only transaction committed",
			zap.Uint64("txn_id", txn.id))
		return txn.startTS, nil
	}

	start := time.Now()
	commitTS, err := m.store.TryCommit(writes, func(view store.ConflictView) error {
		return m.policy.Validate(txn, view)
	})
	if err != nil {
		txn.status = model.TxnAborted
		txn.ws.Discard()
		m.metrics.RecordAbort(errors.IsConflict(err))
		m.logger.Debug("Transaction rejected",
			zap.Uint64("txn_id", txn.id),
			zap.Uint64("start_ts", txn.startTS),
			zap.Strings("conflict_keys", errors.ConflictKeys(err)))
		return 0, err
	}

	txn.status = model.TxnCommitted
	m.metrics.RecordCommit(time.Since(start).Seconds(), len(writes))
	m.logger.Debug("Transaction committed",
		zap.Uint64("txn_id", txn.id),
		zap.Uint64("commit_ts", commitTS),
		zap.Int("write_set", len(writes)))

	return commitTS, nil
}

// Abort discards the transaction's workspace without touching the store.
// Aborting an already-aborted transaction is a no-op; aborting a committed
// one is a programming error.
func (m *TransactionManager) Abort(txn *Txn) error {
	switch txn.status {
	case model.TxnAborted:
		return nil
	case model.TxnCommitted:
		return errors.InvalidState("abort", txn.status.String())
	}

	txn.status = model.TxnAborted
	txn.ws.Discard()
	m.metrics.RecordAbort(false)
	m.logger.Debug("Transaction aborted",
		zap.Uint64("txn_id", txn.id))
	return nil
}
