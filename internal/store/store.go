package store

import (
	"sync"

	"github.com/devrev/scoredb/internal/errors"
	"github.com/devrev/scoredb/internal/model"
	"github.com/google/btree"
	"go.uber.org/zap"
)

const btreeDegree = 32

// versionChain is the committed history for one key: an append-only arena of
// versions plus the index of the currently-open entry. Owned exclusively by
// the store; transactions only append through the commit protocol.
type versionChain struct {
	key      model.Key
	versions []model.Version
	openIdx  int
}

// visibleAt returns the version belonging to the snapshot at ts, scanning
// newest-first. Chains grow at the tail, so recent snapshots resolve in one
// or two steps.
func (c *versionChain) visibleAt(ts uint64) (*model.Version, bool) {
	for i := len(c.versions) - 1; i >= 0; i-- {
		if c.versions[i].VisibleAt(ts) {
			return &c.versions[i], true
		}
	}
	return nil, false
}

func (c *versionChain) open() *model.Version {
	return &c.versions[c.openIdx]
}

// ChainInfo describes the currently-open version of a key, as seen from
// inside the commit critical section. Conflict policies validate against it.
type ChainInfo struct {
	CreatedTS uint64
	Tombstone bool
}

// ConflictView is the read surface handed to a conflict check while the
// commit section is held. It must not be retained past the check.
type ConflictView interface {
	// CurrentInfo returns the open version's metadata for a key, or
	// ok=false if the key has never been written.
	CurrentInfo(key model.Key) (ChainInfo, bool)
}

// ConflictCheck validates a transaction's observations against the store's
// current state. A nil return allows the commit; an error aborts the whole
// batch before anything is applied.
type ConflictCheck func(view ConflictView) error

// VersionedStore holds per-key version chains behind an ordered index and
// serializes all commits through a single short critical section. Reads and
// snapshots never block commits for longer than the index lookup.
type VersionedStore struct {
	mu     sync.RWMutex
	index  *btree.BTreeG[*versionChain]
	seq    *GlobalSequence
	logger *zap.Logger
}

// NewVersionedStore creates an empty store bound to the given sequence.
func NewVersionedStore(seq *GlobalSequence, logger *zap.Logger) *VersionedStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VersionedStore{
		index: btree.NewG(btreeDegree, func(a, b *versionChain) bool {
			return a.key < b.key
		}),
		seq:    seq,
		logger: logger,
	}
}

// Sequence exposes the store's commit sequence.
func (s *VersionedStore) Sequence() *GlobalSequence {
	return s.seq
}

// Seed publishes the initial dataset at the sequence's current timestamp
// without consuming a commit slot. Seeded versions are visible to every
// snapshot taken afterwards.
func (s *VersionedStore) Seed(players []model.PlayerScore) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.seq.Current()
	for _, p := range players {
		chain := &versionChain{
			key: p.Player,
			versions: []model.Version{{
				Value:     model.Record{Score: p.Score},
				CreatedTS: ts,
				RetiredTS: model.RetiredOpen,
			}},
			openIdx: 0,
		}
		s.index.ReplaceOrInsert(chain)
	}

	s.logger.Info("Store seeded",
		zap.Int("players", len(players)),
		zap.Uint64("timestamp", ts))
}

// Read returns the value and created timestamp of the version visible to the
// snapshot anchored at snapshotTS. A key that has never been written, whose
// chain postdates the snapshot, or whose visible version is a tombstone
// fails with NotFound.
func (s *VersionedStore) Read(key model.Key, snapshotTS uint64) (model.Record, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain, ok := s.index.Get(&versionChain{key: key})
	if !ok {
		return model.Record{}, 0, errors.NotFound(string(key))
	}
	v, ok := chain.visibleAt(snapshotTS)
	if !ok || v.Tombstone {
		return model.Record{}, 0, errors.NotFound(string(key))
	}
	return v.Value, v.CreatedTS, nil
}

// Current returns the open version of a key, ignoring snapshot isolation.
// Used by optimistic reads that revalidate at commit time.
func (s *VersionedStore) Current(key model.Key) (model.Record, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain, ok := s.index.Get(&versionChain{key: key})
	if !ok {
		return model.Record{}, 0, errors.NotFound(string(key))
	}
	v := chain.open()
	if v.Tombstone {
		return model.Record{}, 0, errors.NotFound(string(key))
	}
	return v.Value, v.CreatedTS, nil
}

// lockedView serves conflict checks while the commit section is held.
type lockedView struct {
	s *VersionedStore
}

func (v lockedView) CurrentInfo(key model.Key) (ChainInfo, bool) {
	chain, ok := v.s.index.Get(&versionChain{key: key})
	if !ok {
		return ChainInfo{}, false
	}
	open := chain.open()
	return ChainInfo{CreatedTS: open.CreatedTS, Tombstone: open.Tombstone}, true
}

// TryCommit runs the commit critical section: it validates the caller's
// observations via check and, only if every key passes, draws the next
// commit timestamp, retires the open version of each written key and appends
// the new open version. Validation and application are fused into one
// mutually-exclusive step so no other commit can interleave between them,
// and the apply phase is all-or-nothing across the write set.
func (s *VersionedStore) TryCommit(writeSet map[model.Key]model.PendingWrite, check ConflictCheck) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if check != nil {
		if err := check(lockedView{s}); err != nil {
			return 0, err
		}
	}
	if len(writeSet) == 0 {
		return s.seq.Current(), nil
	}

	commitTS := s.seq.Next()
	for key, w := range writeSet {
		chain, ok := s.index.Get(&versionChain{key: key})
		if !ok {
			chain = &versionChain{key: key}
			s.index.ReplaceOrInsert(chain)
		} else {
			chain.versions[chain.openIdx].RetiredTS = commitTS
		}
		chain.versions = append(chain.versions, model.Version{
			Value:     w.Value,
			CreatedTS: commitTS,
			RetiredTS: model.RetiredOpen,
			Tombstone: w.Tombstone,
		})
		chain.openIdx = len(chain.versions) - 1
	}

	return commitTS, nil
}

// Snapshot returns every live key/score pair visible at snapshotTS, in key
// order. Tombstoned and not-yet-created keys are skipped.
func (s *VersionedStore) Snapshot(snapshotTS uint64) []model.PlayerScore {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.PlayerScore, 0, s.index.Len())
	s.index.Ascend(func(chain *versionChain) bool {
		if v, ok := chain.visibleAt(snapshotTS); ok && !v.Tombstone {
			out = append(out, model.PlayerScore{Player: chain.key, Score: v.Value.Score})
		}
		return true
	})
	return out
}

// Stats reports the number of indexed keys and the longest version chain.
func (s *VersionedStore) Stats() (keys int, maxChain int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys = s.index.Len()
	s.index.Ascend(func(chain *versionChain) bool {
		if len(chain.versions) > maxChain {
			maxChain = len(chain.versions)
		}
		return true
	})
	return keys, maxChain
}

// ChainLength returns the number of versions recorded for a key.
func (s *VersionedStore) ChainLength(key model.Key) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain, ok := s.index.Get(&versionChain{key: key})
	if !ok {
		return 0
	}
	return len(chain.versions)
}
