package workerpool_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/devrev/scoredb/internal/util/workerpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_ExecutesTasks(t *testing.T) {
	pool := workerpool.NewWorkerPool(&workerpool.Config{
		Name:       "test",
		MaxWorkers: 4,
		QueueSize:  32,
	})
	defer pool.Stop(time.Second)

	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		wg   sync.WaitGroup
	)

	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("task-%d", i)
		wg.Add(1)
		err := pool.SubmitWithContext(context.Background(), workerpool.Task{
			ID: id,
			Fn: func(context.Context) error {
				defer wg.Done()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
				return nil
			},
		})
		require.NoError(t, err)
	}
	wg.Wait()

	assert.Len(t, seen, 20)
	assert.Equal(t, uint64(20), pool.Stats().CompletedTasks)
}

func TestWorkerPool_PanicRecovery(t *testing.T) {
	pool := workerpool.NewWorkerPool(&workerpool.Config{MaxWorkers: 1, QueueSize: 4})
	defer pool.Stop(time.Second)

	var wg sync.WaitGroup
	wg.Add(2)

	require.NoError(t, pool.Submit(workerpool.Task{
		ID: "boom",
		Fn: func(context.Context) error {
			defer wg.Done()
			panic("kaboom")
		},
	}))

	// The worker survives the panic and keeps serving.
	require.NoError(t, pool.Submit(workerpool.Task{
		ID: "after",
		Fn: func(context.Context) error {
			defer wg.Done()
			return nil
		},
	}))
	wg.Wait()

	stats := pool.Stats()
	assert.Equal(t, uint64(1), stats.FailedTasks)
	assert.Equal(t, uint64(1), stats.CompletedTasks)
}

func TestWorkerPool_SubmitRejectsWhenFull(t *testing.T) {
	pool := workerpool.NewWorkerPool(&workerpool.Config{MaxWorkers: 1, QueueSize: 1})
	defer pool.Stop(time.Second)

	release := make(chan struct{})
	blocker := workerpool.Task{Fn: func(context.Context) error {
		<-release
		return nil
	}}

	// One task occupies the worker, one fills the queue; the next is rejected.
	require.NoError(t, pool.Submit(blocker))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, pool.Submit(blocker))

	err := pool.Submit(workerpool.Task{Fn: func(context.Context) error { return nil }})
	assert.Error(t, err)
	assert.Equal(t, uint64(1), pool.Stats().RejectedTasks)

	close(release)
}

func TestWorkerPool_SubmitWithContextHonorsCancel(t *testing.T) {
	pool := workerpool.NewWorkerPool(&workerpool.Config{MaxWorkers: 1, QueueSize: 1})
	defer pool.Stop(time.Second)

	release := make(chan struct{})
	defer close(release)
	blocker := workerpool.Task{Fn: func(context.Context) error {
		<-release
		return nil
	}}
	require.NoError(t, pool.Submit(blocker))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, pool.Submit(blocker))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := pool.SubmitWithContext(ctx, blocker)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWorkerPool_SubmitAfterStop(t *testing.T) {
	pool := workerpool.NewWorkerPool(&workerpool.Config{MaxWorkers: 1, QueueSize: 1})
	require.NoError(t, pool.Stop(time.Second))

	err := pool.Submit(workerpool.Task{Fn: func(context.Context) error { return nil }})
	assert.Error(t, err)

	err = pool.SubmitWithContext(context.Background(), workerpool.Task{Fn: func(context.Context) error { return nil }})
	assert.Error(t, err)

	// Stop is idempotent.
	assert.NoError(t, pool.Stop(time.Second))
}
