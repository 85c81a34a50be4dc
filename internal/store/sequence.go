package store

import "sync/atomic"

// GlobalSequence is the process-wide commit counter. It is the engine's only
// notion of time: Current() anchors transaction snapshots at begin, and the
// store bumps it exactly once per state-changing commit, inside the commit
// critical section. The counter value doubles as the serialization order of
// committed transactions.
type GlobalSequence struct {
	counter uint64
}

// NewGlobalSequence creates a sequence starting at the given value. Seeded
// data is published at this timestamp, so the first commit lands at start+1.
func NewGlobalSequence(start uint64) *GlobalSequence {
	return &GlobalSequence{counter: start}
}

// Current returns the latest published commit timestamp.
func (s *GlobalSequence) Current() uint64 {
	return atomic.LoadUint64(&s.counter)
}

// Next increments the counter and returns the new commit timestamp. Callers
// must hold the store's commit section; the atomic only makes the new value
// safe to observe from concurrent Current() calls.
func (s *GlobalSequence) Next() uint64 {
	return atomic.AddUint64(&s.counter, 1)
}
