package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the transaction engine
type Metrics struct {
	// Transaction lifecycle metrics
	TxnsBegunTotal     prometheus.Counter
	TxnsCommittedTotal prometheus.Counter
	TxnsAbortedTotal   prometheus.Counter
	ConflictsTotal     prometheus.Counter
	CommitDuration     prometheus.Histogram
	WriteSetSize       prometheus.Histogram

	// Retry metrics
	RetriesTotal        prometheus.Counter
	RetryExhaustedTotal prometheus.Counter

	// Store metrics
	StoreKeysTotal  prometheus.Gauge
	VersionChainMax prometheus.Gauge
	CommitSequence  prometheus.Gauge

	// Leaderboard metrics
	SubmissionsTotal   *prometheus.CounterVec
	SubmissionDuration prometheus.Histogram

	// System metrics
	GoroutinesTotal  prometheus.Gauge
	MemoryUsageBytes prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics. The protocol is
// attached as a constant label so dashboards can compare runs.
func NewMetrics(protocol string, reg prometheus.Registerer) *Metrics {
	labels := prometheus.Labels{"protocol": protocol}
	factory := promauto.With(reg)

	return &Metrics{
		TxnsBegunTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "scoredb",
			Subsystem:   "txn",
			Name:        "begun_total",
			Help:        "Total number of transactions begun",
			ConstLabels: labels,
		}),
		TxnsCommittedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "scoredb",
			Subsystem:   "txn",
			Name:        "committed_total",
			Help:        "Total number of transactions committed",
			ConstLabels: labels,
		}),
		TxnsAbortedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "scoredb",
			Subsystem:   "txn",
			Name:        "aborted_total",
			Help:        "Total number of transactions aborted",
			ConstLabels: labels,
		}),
		ConflictsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "scoredb",
			Subsystem:   "txn",
			Name:        "conflicts_total",
			Help:        "Total number of commit-time conflict rejections",
			ConstLabels: labels,
		}),
		CommitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "scoredb",
			Subsystem:   "txn",
			Name:        "commit_duration_seconds",
			Help:        "Histogram of commit critical section durations",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.000001, 4, 10), // 1us to ~260ms
		}),
		WriteSetSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "scoredb",
			Subsystem:   "txn",
			Name:        "write_set_size",
			Help:        "Histogram of committed write set sizes",
			ConstLabels: labels,
			Buckets:     prometheus.LinearBuckets(1, 1, 10),
		}),

		RetriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "scoredb",
			Subsystem:   "retry",
			Name:        "attempts_total",
			Help:        "Total number of conflict retries scheduled",
			ConstLabels: labels,
		}),
		RetryExhaustedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "scoredb",
			Subsystem:   "retry",
			Name:        "exhausted_total",
			Help:        "Total number of transactions that exhausted their retry budget",
			ConstLabels: labels,
		}),

		StoreKeysTotal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "scoredb",
			Subsystem:   "store",
			Name:        "keys_total",
			Help:        "Current number of keys in the versioned store",
			ConstLabels: labels,
		}),
		VersionChainMax: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "scoredb",
			Subsystem:   "store",
			Name:        "version_chain_max",
			Help:        "Length of the longest version chain",
			ConstLabels: labels,
		}),
		CommitSequence: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "scoredb",
			Subsystem:   "store",
			Name:        "commit_sequence",
			Help:        "Current value of the global commit sequence",
			ConstLabels: labels,
		}),

		SubmissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "scoredb",
			Subsystem:   "leaderboard",
			Name:        "submissions_total",
			Help:        "Total number of score submissions by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),
		SubmissionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "scoredb",
			Subsystem:   "leaderboard",
			Name:        "submission_duration_seconds",
			Help:        "Histogram of end-to-end score submission durations",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),

		GoroutinesTotal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "scoredb",
			Subsystem:   "system",
			Name:        "goroutines_total",
			Help:        "Current number of goroutines",
			ConstLabels: labels,
		}),
		MemoryUsageBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "scoredb",
			Subsystem:   "system",
			Name:        "memory_usage_bytes",
			Help:        "Current memory usage in bytes",
			ConstLabels: labels,
		}),
	}
}

// RecordBegin records a transaction begin
func (m *Metrics) RecordBegin() {
	m.TxnsBegunTotal.Inc()
}

// RecordCommit records a successful commit
func (m *Metrics) RecordCommit(duration float64, writeSetSize int) {
	m.TxnsCommittedTotal.Inc()
	m.CommitDuration.Observe(duration)
	if writeSetSize > 0 {
		m.WriteSetSize.Observe(float64(writeSetSize))
	}
}

// RecordAbort records an abort; conflict marks commit-time rejections as
// opposed to caller-requested aborts
func (m *Metrics) RecordAbort(conflict bool) {
	m.TxnsAbortedTotal.Inc()
	if conflict {
		m.ConflictsTotal.Inc()
	}
}

// RecordRetry records a scheduled conflict retry
func (m *Metrics) RecordRetry() {
	m.RetriesTotal.Inc()
}

// RecordRetryExhausted records a transaction that ran out of attempts
func (m *Metrics) RecordRetryExhausted() {
	m.RetryExhaustedTotal.Inc()
}

// RecordSubmission records a leaderboard submission outcome
func (m *Metrics) RecordSubmission(outcome string, duration float64) {
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
	m.SubmissionDuration.Observe(duration)
}

// UpdateStoreStats updates store-level gauges
func (m *Metrics) UpdateStoreStats(keys, maxChain int, sequence uint64) {
	m.StoreKeysTotal.Set(float64(keys))
	m.VersionChainMax.Set(float64(maxChain))
	m.CommitSequence.Set(float64(sequence))
}

// UpdateSystemStats updates system-level gauges
func (m *Metrics) UpdateSystemStats(memoryUsage int64, goroutines int) {
	m.MemoryUsageBytes.Set(float64(memoryUsage))
	m.GoroutinesTotal.Set(float64(goroutines))
}
