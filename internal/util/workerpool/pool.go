package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Task represents a unit of work to be executed
type Task struct {
	ID string
	Fn func(context.Context) error
}

// WorkerPool manages a bounded pool of goroutines for executing tasks
type WorkerPool struct {
	name           string
	maxWorkers     int
	taskQueue      chan Task
	logger         *zap.Logger
	wg             sync.WaitGroup
	stopOnce       sync.Once
	stopChan       chan struct{}
	completedTasks uint64
	failedTasks    uint64
	rejectedTasks  uint64
}

// Config holds worker pool configuration
type Config struct {
	Name       string
	MaxWorkers int
	QueueSize  int
	Logger     *zap.Logger
}

// NewWorkerPool creates a new worker pool and starts its workers
func NewWorkerPool(cfg *Config) *WorkerPool {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	pool := &WorkerPool{
		name:       cfg.Name,
		maxWorkers: cfg.MaxWorkers,
		taskQueue:  make(chan Task, cfg.QueueSize),
		logger:     cfg.Logger,
		stopChan:   make(chan struct{}),
	}

	for i := 0; i < pool.maxWorkers; i++ {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	pool.logger.Info("Worker pool started",
		zap.String("name", pool.name),
		zap.Int("max_workers", pool.maxWorkers),
		zap.Int("queue_size", cfg.QueueSize))

	return pool
}

// worker is the main worker goroutine
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case task := <-p.taskQueue:
			p.executeTask(id, task)
		}
	}
}

// executeTask executes a single task with panic recovery
func (p *WorkerPool) executeTask(workerID int, task Task) {
	start := time.Now()
	err := p.safeExecute(task)

	if err != nil {
		atomic.AddUint64(&p.failedTasks, 1)
		p.logger.Error("Task failed",
			zap.String("pool", p.name),
			zap.Int("worker_id", workerID),
			zap.String("task_id", task.ID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return
	}

	atomic.AddUint64(&p.completedTasks, 1)
	p.logger.Debug("Task completed",
		zap.String("pool", p.name),
		zap.Int("worker_id", workerID),
		zap.String("task_id", task.ID),
		zap.Duration("duration", time.Since(start)))
}

func (p *WorkerPool) safeExecute(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
			p.logger.Error("Task panic recovered",
				zap.String("pool", p.name),
				zap.String("task_id", task.ID),
				zap.Any("panic", r))
		}
	}()
	return task.Fn(context.Background())
}

// Submit submits a task without blocking.
// Returns an error if the queue is full or the pool is stopped.
func (p *WorkerPool) Submit(task Task) error {
	select {
	case <-p.stopChan:
		atomic.AddUint64(&p.rejectedTasks, 1)
		return fmt.Errorf("worker pool %q is stopped", p.name)
	case p.taskQueue <- task:
		return nil
	default:
		atomic.AddUint64(&p.rejectedTasks, 1)
		return fmt.Errorf("worker pool %q queue is full", p.name)
	}
}

// SubmitWithContext submits a task, blocking until accepted, the context is
// canceled or the pool is stopped.
func (p *WorkerPool) SubmitWithContext(ctx context.Context, task Task) error {
	select {
	case <-p.stopChan:
		atomic.AddUint64(&p.rejectedTasks, 1)
		return fmt.Errorf("worker pool %q is stopped", p.name)
	case <-ctx.Done():
		atomic.AddUint64(&p.rejectedTasks, 1)
		return ctx.Err()
	case p.taskQueue <- task:
		return nil
	}
}

// Stop gracefully stops the worker pool, waiting for in-flight tasks up to
// the given timeout.
func (p *WorkerPool) Stop(timeout time.Duration) error {
	var err error
	p.stopOnce.Do(func() {
		p.logger.Info("Stopping worker pool", zap.String("name", p.name))
		close(p.stopChan)

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(timeout):
			err = fmt.Errorf("worker pool %q stop timeout after %v", p.name, timeout)
		}
	})
	return err
}

// Stats represents worker pool statistics
type Stats struct {
	CompletedTasks uint64
	FailedTasks    uint64
	RejectedTasks  uint64
	QueuedTasks    int
}

// Stats returns current worker pool statistics
func (p *WorkerPool) Stats() Stats {
	return Stats{
		CompletedTasks: atomic.LoadUint64(&p.completedTasks),
		FailedTasks:    atomic.LoadUint64(&p.failedTasks),
		RejectedTasks:  atomic.LoadUint64(&p.rejectedTasks),
		QueuedTasks:    len(p.taskQueue),
	}
}
