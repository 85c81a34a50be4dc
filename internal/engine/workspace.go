package engine

import "github.com/devrev/scoredb/internal/model"

// readStamp records the version a transaction observed for a key, so
// optimistic validation can detect that the observation went stale.
type readStamp struct {
	createdTS uint64
}

// Workspace is a transaction's private scratch area: reads it has observed
// and writes it intends to apply. Nothing here is visible to any other
// transaction until commit succeeds.
type Workspace struct {
	reads  map[model.Key]readStamp
	writes map[model.Key]model.PendingWrite
}

// NewWorkspace creates an empty workspace.
func NewWorkspace() *Workspace {
	return &Workspace{
		reads:  make(map[model.Key]readStamp),
		writes: make(map[model.Key]model.PendingWrite),
	}
}

// RecordRead remembers the created timestamp observed for a key. Re-reading
// a key overwrites the stamp, matching validate-at-end semantics where the
// latest observation is the one checked.
func (ws *Workspace) RecordRead(key model.Key, createdTS uint64) {
	ws.reads[key] = readStamp{createdTS: createdTS}
}

// StageWrite buffers the final intended value for a key.
func (ws *Workspace) StageWrite(key model.Key, value model.Record) {
	ws.writes[key] = model.PendingWrite{Value: value}
}

// StageDelete buffers a tombstone for a key.
func (ws *Workspace) StageDelete(key model.Key) {
	ws.writes[key] = model.PendingWrite{Tombstone: true}
}

// PendingWrite returns the buffered write for a key, if the transaction has
// staged one. Serves read-your-own-writes.
func (ws *Workspace) PendingWrite(key model.Key) (model.PendingWrite, bool) {
	w, ok := ws.writes[key]
	return w, ok
}

// Writes exposes the staged write set for the commit protocol.
func (ws *Workspace) Writes() map[model.Key]model.PendingWrite {
	return ws.writes
}

// ReadSetSize returns the number of distinct keys read.
func (ws *Workspace) ReadSetSize() int {
	return len(ws.reads)
}

// Discard drops all buffered state. The workspace must not be used after.
func (ws *Workspace) Discard() {
	ws.reads = nil
	ws.writes = nil
}
