package model

// Key identifies one logical record in the store, e.g. a player id.
type Key string

// Record is the value held per key: the player's score plus submission
// bookkeeping. LastSubmission is informational only; transactional time is
// the commit sequence, never the wall clock.
type Record struct {
	Score          int64
	LastSubmission int64
}

// PlayerScore pairs a key with a score, used for seeding and for
// leaderboard output.
type PlayerScore struct {
	Player Key
	Score  int64
}

// PendingWrite is a value staged by a transaction but not yet committed.
// A tombstone write models deletion of the key.
type PendingWrite struct {
	Value     Record
	Tombstone bool
}
