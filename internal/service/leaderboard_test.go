package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/devrev/scoredb/internal/engine"
	"github.com/devrev/scoredb/internal/errors"
	"github.com/devrev/scoredb/internal/metrics"
	"github.com/devrev/scoredb/internal/model"
	"github.com/devrev/scoredb/internal/service"
	"github.com/devrev/scoredb/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLeaderboard(t *testing.T, protocol model.Protocol) *service.LeaderboardService {
	t.Helper()

	policy, err := engine.NewConflictPolicy(protocol)
	require.NoError(t, err)

	st := store.NewVersionedStore(store.NewGlobalSequence(0), zap.NewNop())
	m := metrics.NewMetrics(string(protocol), prometheus.NewRegistry())
	mgr := engine.NewTransactionManager(st, policy, m, zap.NewNop())
	retry := engine.NewRetryScheduler(mgr, &engine.RetryConfig{
		MaxAttempts: 100,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  8 * time.Millisecond,
	}, m, zap.NewNop())

	return service.NewLeaderboardService(mgr, retry, st, m, zap.NewNop())
}

func demoPlayers() []model.PlayerScore {
	return []model.PlayerScore{
		{Player: "user_1", Score: 100},
		{Player: "user_2", Score: 200},
		{Player: "user_3", Score: 150},
		{Player: "user_4", Score: 180},
		{Player: "user_5", Score: 120},
	}
}

func TestLeaderboard_SeedAndRanking(t *testing.T) {
	lb := newLeaderboard(t, model.ProtocolMVCC)
	require.NoError(t, lb.SeedPlayers(context.Background(), demoPlayers()))

	ranking := lb.Ranking()
	require.Len(t, ranking, 5)

	want := []struct {
		player model.Key
		score  int64
	}{
		{"user_2", 200},
		{"user_4", 180},
		{"user_3", 150},
		{"user_5", 120},
		{"user_1", 100},
	}
	for i, w := range want {
		assert.Equal(t, i+1, ranking[i].Rank)
		assert.Equal(t, w.player, ranking[i].Player)
		assert.Equal(t, w.score, ranking[i].Score)
	}
}

func TestLeaderboard_SubmitScore(t *testing.T) {
	ctx := context.Background()
	lb := newLeaderboard(t, model.ProtocolOCC)
	require.NoError(t, lb.SeedPlayers(ctx, demoPlayers()))

	newScore, err := lb.SubmitScore(ctx, "user_1", 50)
	require.NoError(t, err)
	assert.Equal(t, int64(150), newScore)

	newScore, err = lb.SubmitScore(ctx, "user_1", -30)
	require.NoError(t, err)
	assert.Equal(t, int64(120), newScore)

	score, err := lb.Score(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, int64(120), score)
}

func TestLeaderboard_SubmitUnknownPlayer(t *testing.T) {
	lb := newLeaderboard(t, model.ProtocolMVCC)

	_, err := lb.SubmitScore(context.Background(), "ghost", 10)
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))
}

// The sequential demo run: four submissions against the seeded board produce
// a fully determined final ranking.
func TestLeaderboard_DemoScenario(t *testing.T) {
	ctx := context.Background()
	lb := newLeaderboard(t, model.ProtocolHybrid)
	require.NoError(t, lb.SeedPlayers(ctx, demoPlayers()))

	for _, sub := range []struct {
		player model.Key
		delta  int64
	}{
		{"user_1", 50},
		{"user_2", 30},
		{"user_3", 70},
		{"user_1", -20},
	} {
		_, err := lb.SubmitScore(ctx, sub.player, sub.delta)
		require.NoError(t, err)
	}

	top := lb.TopK(3)
	require.Len(t, top, 3)
	assert.Equal(t, model.Key("user_2"), top[0].Player)
	assert.Equal(t, int64(230), top[0].Score)
	assert.Equal(t, model.Key("user_3"), top[1].Player)
	assert.Equal(t, int64(220), top[1].Score)
	assert.Equal(t, model.Key("user_4"), top[2].Player)
	assert.Equal(t, int64(180), top[2].Score)

	score, err := lb.Score(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, int64(130), score)
}

func TestLeaderboard_TopKLargerThanBoard(t *testing.T) {
	lb := newLeaderboard(t, model.ProtocolMVCC)
	require.NoError(t, lb.SeedPlayers(context.Background(), demoPlayers()[:2]))

	assert.Len(t, lb.TopK(10), 2)
	assert.Len(t, lb.TopK(1), 1)
}

func TestLeaderboard_TieBreaksByPlayer(t *testing.T) {
	lb := newLeaderboard(t, model.ProtocolMVCC)
	require.NoError(t, lb.SeedPlayers(context.Background(), []model.PlayerScore{
		{Player: "zoe", Score: 50},
		{Player: "amy", Score: 50},
		{Player: "mia", Score: 50},
	}))

	ranking := lb.Ranking()
	require.Len(t, ranking, 3)
	assert.Equal(t, model.Key("amy"), ranking[0].Player)
	assert.Equal(t, model.Key("mia"), ranking[1].Player)
	assert.Equal(t, model.Key("zoe"), ranking[2].Player)
}

func TestLeaderboard_RemovePlayer(t *testing.T) {
	ctx := context.Background()
	lb := newLeaderboard(t, model.ProtocolMVCC)
	require.NoError(t, lb.SeedPlayers(ctx, demoPlayers()))

	require.NoError(t, lb.RemovePlayer(ctx, "user_2"))

	_, err := lb.Score(ctx, "user_2")
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))

	for _, row := range lb.Ranking() {
		assert.NotEqual(t, model.Key("user_2"), row.Player)
	}
	assert.Len(t, lb.Ranking(), 4)

	// Removing twice reports the missing record.
	err = lb.RemovePlayer(ctx, "user_2")
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))
}
