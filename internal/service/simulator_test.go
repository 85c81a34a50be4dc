package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/devrev/scoredb/internal/model"
	"github.com/devrev/scoredb/internal/service"
	"github.com/devrev/scoredb/internal/util/workerpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildWorkload(t *testing.T) {
	players := []model.Key{"a", "b", "c"}
	workload := service.BuildWorkload(players, 2, 5, 10, time.Millisecond)

	require.Len(t, workload, 10)
	for i, sub := range workload {
		assert.Equal(t, players[i%3], sub.Player)
		assert.Equal(t, time.Millisecond, sub.ThinkTime)
		assert.NotZero(t, sub.Delta)
		if i%7 == 0 {
			assert.Negative(t, sub.Delta)
		} else {
			assert.Positive(t, sub.Delta)
		}
	}

	// Workloads are deterministic run to run.
	assert.Equal(t, workload, service.BuildWorkload(players, 2, 5, 10, time.Millisecond))

	assert.Nil(t, service.BuildWorkload(nil, 2, 5, 10, 0))
}

func TestSimulator_AppliesEverySubmission(t *testing.T) {
	for _, protocol := range []model.Protocol{model.ProtocolMVCC, model.ProtocolOCC, model.ProtocolHybrid} {
		t.Run(string(protocol), func(t *testing.T) {
			ctx := context.Background()
			lb := newLeaderboard(t, protocol)

			seed := []model.PlayerScore{
				{Player: "p1", Score: 100},
				{Player: "p2", Score: 200},
			}
			require.NoError(t, lb.SeedPlayers(ctx, seed))

			pool := workerpool.NewWorkerPool(&workerpool.Config{
				Name:       "test-submissions",
				MaxWorkers: 4,
				QueueSize:  64,
			})
			defer pool.Stop(time.Second)

			sim := service.NewSimulatorService(lb, pool, zap.NewNop())
			workload := service.BuildWorkload([]model.Key{"p1", "p2"}, 2, 10, 25, 0)

			report, err := sim.Run(ctx, workload)
			require.NoError(t, err)

			assert.Equal(t, len(workload), report.Submitted)
			assert.Equal(t, report.Submitted, report.Succeeded+report.Exhausted+report.Failed)
			assert.Zero(t, report.Failed)

			// With a generous retry budget every submission lands, so the
			// board totals match the seed plus all deltas.
			require.Equal(t, report.Submitted, report.Succeeded)

			expected := map[model.Key]int64{"p1": 100, "p2": 200}
			for _, sub := range workload {
				expected[sub.Player] += sub.Delta
			}
			for player, want := range expected {
				got, err := lb.Score(ctx, player)
				require.NoError(t, err)
				assert.Equal(t, want, got, "player %s", player)
			}
		})
	}
}

func TestSimulator_CancelledMidRun(t *testing.T) {
	lb := newLeaderboard(t, model.ProtocolMVCC)
	require.NoError(t, lb.SeedPlayers(context.Background(), []model.PlayerScore{{Player: "p1", Score: 1}}))

	pool := workerpool.NewWorkerPool(&workerpool.Config{MaxWorkers: 1, QueueSize: 16})
	defer pool.Stop(time.Second)

	sim := service.NewSimulatorService(lb, pool, zap.NewNop())

	// Long think times keep submissions in flight well past the deadline.
	workload := service.BuildWorkload([]model.Key{"p1"}, 1, 4, 10, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := sim.Run(ctx, workload)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
