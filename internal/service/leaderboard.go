package service

import (
	"context"
	"time"

	"github.com/devrev/scoredb/internal/engine"
	"github.com/devrev/scoredb/internal/errors"
	"github.com/devrev/scoredb/internal/metrics"
	"github.com/devrev/scoredb/internal/model"
	"github.com/devrev/scoredb/internal/store"
	"github.com/emirpasic/gods/queues/priorityqueue"
	"go.uber.org/zap"
)

// RankedPlayer is one leaderboard row.
type RankedPlayer struct {
	Rank   int
	Player model.Key
	Score  int64
}

// LeaderboardService is the host-facing layer over the transaction engine:
// every operation runs as a transaction, score submissions with automatic
// conflict retry.
type LeaderboardService struct {
	manager *engine.TransactionManager
	retry   *engine.RetryScheduler
	store   *store.VersionedStore
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewLeaderboardService creates a new leaderboard service.
func NewLeaderboardService(
	manager *engine.TransactionManager,
	retry *engine.RetryScheduler,
	st *store.VersionedStore,
	m *metrics.Metrics,
	logger *zap.Logger,
) *LeaderboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardService{
		manager: manager,
		retry:   retry,
		store:   st,
		metrics: m,
		logger:  logger,
	}
}

// SeedPlayers loads the initial dataset, one transaction per player. Blind
// writes of fresh keys never conflict, so seeding is deterministic.
func (s *LeaderboardService) SeedPlayers(ctx context.Context, players []model.PlayerScore) error {
	for _, p := range players {
		player := p
		err := s.retry.Run(ctx, func(txn *engine.Txn) error {
			return s.manager.Write(txn, player.Player, model.Record{Score: player.Score})
		})
		if err != nil {
			return err
		}
	}

	s.logger.Info("Leaderboard seeded", zap.Int("players", len(players)))
	return nil
}

// SubmitScore applies a score delta to a player's record inside a retried
// read-modify-write transaction and returns the new score. A missing player
// fails with NotFound without retrying.
func (s *LeaderboardService) SubmitScore(ctx context.Context, player model.Key, delta int64) (int64, error) {
	return s.submitScore(ctx, player, delta, 0)
}

// submitScore is SubmitScore with an artificial think time between read and
// write, used by the simulator to widen the conflict window.
func (s *LeaderboardService) submitScore(ctx context.Context, player model.Key, delta int64, think time.Duration) (int64, error) {
	start := time.Now()
	var newScore int64

	err := s.retry.Run(ctx, func(txn *engine.Txn) error {
		rec, err := s.manager.Read(txn, player)
		if err != nil {
			return err
		}

		if think > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(think):
			}
		}

		rec.Score += delta
		rec.LastSubmission = time.Now().Unix()
		if err := s.manager.Write(txn, player, rec); err != nil {
			return err
		}
		newScore = rec.Score
		return nil
	})

	duration := time.Since(start).Seconds()
	if err != nil {
		s.metrics.RecordSubmission(outcomeOf(err), duration)
		s.logger.Warn("Score submission failed",
			zap.String("player", string(player)),
			zap.Int64("delta", delta),
			zap.Error(err))
		return 0, err
	}

	s.metrics.RecordSubmission("ok", duration)
	s.logger.Debug("Score submitted",
		zap.String("player", string(player)),
		zap.Int64("delta", delta),
		zap.Int64("new_score", newScore))
	return newScore, nil
}

func outcomeOf(err error) string {
	switch errors.GetCode(err) {
	case errors.ErrCodeConflictExhausted:
		return "exhausted"
	case errors.ErrCodeNotFound:
		return "not_found"
	default:
		return "error"
	}
}

// Score returns a player's current score via a read-only transaction.
func (s *LeaderboardService) Score(ctx context.Context, player model.Key) (int64, error) {
	var score int64
	err := s.retry.Run(ctx, func(txn *engine.Txn) error {
		rec, err := s.manager.Read(txn, player)
		if err != nil {
			return err
		}
		score = rec.Score
		return nil
	})
	if err != nil {
		return 0, err
	}
	return score, nil
}

// RemovePlayer tombstones a player's record.
func (s *LeaderboardService) RemovePlayer(ctx context.Context, player model.Key) error {
	return s.retry.Run(ctx, func(txn *engine.Txn) error {
		if _, err := s.manager.Read(txn, player); err != nil {
			return err
		}
		return s.manager.Delete(txn, player)
	})
}

// scoreComparator orders entries by score descending, breaking ties by
// player id so rankings are stable.
func scoreComparator(a, b interface{}) int {
	pa := a.(model.PlayerScore)
	pb := b.(model.PlayerScore)
	switch {
	case pa.Score > pb.Score:
		return -1
	case pa.Score < pb.Score:
		return 1
	case pa.Player < pb.Player:
		return -1
	case pa.Player > pb.Player:
		return 1
	default:
		return 0
	}
}

// TopK returns the k highest-scoring players from a snapshot anchored at the
// current commit sequence.
func (s *LeaderboardService) TopK(k int) []RankedPlayer {
	ranking := s.Ranking()
	if k < len(ranking) {
		ranking = ranking[:k]
	}
	return ranking
}

// Ranking returns the full leaderboard, highest score first. The snapshot is
// consistent: concurrent commits after the anchor are not visible.
func (s *LeaderboardService) Ranking() []RankedPlayer {
	snapshot := s.store.Snapshot(s.store.Sequence().Current())

	heap := priorityqueue.NewWith(scoreComparator)
	for _, entry := range snapshot {
		heap.Enqueue(entry)
	}

	ranked := make([]RankedPlayer, 0, heap.Size())
	for rank := 1; !heap.Empty(); rank++ {
		v, _ := heap.Dequeue()
		entry := v.(model.PlayerScore)
		ranked = append(ranked, RankedPlayer{
			Rank:   rank,
			Player: entry.Player,
			Score:  entry.Score,
		})
	}
	return ranked
}
