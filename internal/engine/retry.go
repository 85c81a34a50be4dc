package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/devrev/scoredb/internal/errors"
	"github.com/devrev/scoredb/internal/metrics"
	"github.com/devrev/scoredb/internal/model"
	"go.uber.org/zap"
)

// RetryConfig holds retry scheduler configuration
type RetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// RetryScheduler wraps begin-run-commit in a bounded retry loop. Only
// commit-time conflict rejections are retried; every other failure surfaces
// to the caller as-is. Exhausting the attempt budget returns
// ConflictExhausted wrapping the last rejection.
type RetryScheduler struct {
	manager     *TransactionManager
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewRetryScheduler creates a retry scheduler over a transaction manager.
func NewRetryScheduler(
	manager *TransactionManager,
	cfg *RetryConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *RetryScheduler {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 100 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryScheduler{
		manager:     manager,
		maxAttempts: cfg.MaxAttempts,
		baseBackoff: cfg.BaseBackoff,
		maxBackoff:  cfg.MaxBackoff,
		metrics:     m,
		logger:      logger,
	}
}

// Run executes body inside a fresh transaction and commits it, retrying the
// whole transaction on conflict. If body returns an error the transaction is
// aborted and the error returned without retry; body must therefore be safe
// to re-execute from scratch on each attempt.
func (r *RetryScheduler) Run(ctx context.Context, body func(txn *Txn) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		txn := r.manager.Begin()

		if err := body(txn); err != nil {
			if txn.Status() == model.TxnActive {
				_ = r.manager.Abort(txn)
			}
			return err
		}

		if _, err := r.manager.Commit(txn); err == nil {
			return nil
		} else if !errors.IsConflict(err) {
			return err
		} else {
			lastErr = err
		}

		if attempt == r.maxAttempts {
			break
		}

		r.metrics.RecordRetry()
		backoff := r.backoff(attempt)
		r.logger.Warn("Transaction conflicted, retrying",
			zap.Uint64("txn_id", txn.ID()),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.maxAttempts),
			zap.Duration("backoff", backoff),
			zap.Strings("conflict_keys", errors.ConflictKeys(lastErr)))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	r.metrics.RecordRetryExhausted()
	return errors.ConflictExhausted(r.maxAttempts, lastErr)
}

// backoff computes the exponential delay for an attempt, capped at the
// configured maximum, with bounded jitter of up to half the delay.
func (r *RetryScheduler) backoff(attempt int) time.Duration {
	d := r.baseBackoff * time.Duration(1<<uint(attempt-1))
	if d > r.maxBackoff {
		d = r.maxBackoff
	}
	return d + time.Duration(rand.Int63n(int64(d/2)+1))
}
