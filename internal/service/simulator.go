package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/devrev/scoredb/internal/errors"
	"github.com/devrev/scoredb/internal/model"
	"github.com/devrev/scoredb/internal/util/workerpool"
	"go.uber.org/zap"
)

// Submission is one simulated score update: which player, what delta, and
// how long the actor "thinks" between reading and writing the score. Think
// time widens the conflict window so concurrent protocols actually collide.
type Submission struct {
	Player    model.Key
	Delta     int64
	ThinkTime time.Duration
}

// SimulationReport aggregates workload outcomes.
type SimulationReport struct {
	Submitted int
	Succeeded int
	Exhausted int
	Failed    int
	Duration  time.Duration
}

// SimulatorService drives concurrent score submissions against the
// leaderboard through a bounded worker pool, standing in for real actors.
type SimulatorService struct {
	leaderboard *LeaderboardService
	pool        *workerpool.WorkerPool
	logger      *zap.Logger
}

// NewSimulatorService creates a simulator over a leaderboard service.
func NewSimulatorService(
	leaderboard *LeaderboardService,
	pool *workerpool.WorkerPool,
	logger *zap.Logger,
) *SimulatorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulatorService{
		leaderboard: leaderboard,
		pool:        pool,
		logger:      logger,
	}
}

// Run submits the whole workload to the pool and waits for every submission
// to finish or the context to cancel.
func (s *SimulatorService) Run(ctx context.Context, workload []Submission) (*SimulationReport, error) {
	start := time.Now()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		report = SimulationReport{Submitted: len(workload)}
	)

	for i, sub := range workload {
		sub := sub
		wg.Add(1)

		task := workerpool.Task{
			ID: fmt.Sprintf("submit-%d-%s", i, sub.Player),
			Fn: func(taskCtx context.Context) error {
				defer wg.Done()

				_, err := s.leaderboard.submitScore(ctx, sub.Player, sub.Delta, sub.ThinkTime)

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					report.Succeeded++
				case errors.GetCode(err) == errors.ErrCodeConflictExhausted:
					report.Exhausted++
				default:
					report.Failed++
				}
				return err
			},
		}

		if err := s.pool.SubmitWithContext(ctx, task); err != nil {
			wg.Done()
			mu.Lock()
			report.Failed++
			mu.Unlock()
			s.logger.Error("Failed to submit workload task",
				zap.String("task_id", task.ID),
				zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
	}

	report.Duration = time.Since(start)
	s.logger.Info("Simulation finished",
		zap.Int("submitted", report.Submitted),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("exhausted", report.Exhausted),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration))

	return &report, nil
}

// BuildWorkload expands per-actor settings into a flat submission list.
// Deltas cycle deterministically so runs are reproducible; every actor
// hammers the seeded players round-robin, which is what makes conflicts
// likely.
func BuildWorkload(players []model.Key, actors, submissionsPerActor int, maxDelta int64, think time.Duration) []Submission {
	if len(players) == 0 {
		return nil
	}

	workload := make([]Submission, 0, actors*submissionsPerActor)
	for a := 0; a < actors; a++ {
		for n := 0; n < submissionsPerActor; n++ {
			i := a*submissionsPerActor + n
			delta := int64(i%int(maxDelta)) + 1
			if i%7 == 0 {
				delta = -delta
			}
			workload = append(workload, Submission{
				Player:    players[i%len(players)],
				Delta:     delta,
				ThinkTime: think,
			})
		}
	}
	return workload
}
