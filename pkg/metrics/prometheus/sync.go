// Package prometheus provides the Prometheus-backed implementation of
// the metrics.Recorder interface.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/krbsync/krbsync/pkg/metrics"
)

// syncMetrics is the Prometheus implementation of metrics.Recorder.
type syncMetrics struct {
	queueWrites  *prometheus.CounterVec
	conflicts    *prometheus.CounterVec
	syncAttempts *prometheus.CounterVec
	queueDepth   prometheus.Gauge
}

// NewSyncMetrics creates a Prometheus-backed Recorder.
//
// Returns nil if metrics are not enabled (InitRegistry not called),
// which callers pass through as a disabled Recorder.
func NewSyncMetrics() metrics.Recorder {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &syncMetrics{
		queueWrites: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "krbsync_queue_writes_total",
				Help: "Total number of events written to the retry queue by operation",
			},
			[]string{"operation"},
		),
		conflicts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "krbsync_queue_conflicts_total",
				Help: "Total number of dispatches that queued behind an existing entry",
			},
			[]string{"operation"},
		),
		syncAttempts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "krbsync_sync_attempts_total",
				Help: "Total number of direct synchronization attempts by operation and outcome",
			},
			[]string{"operation", "outcome"}, // outcome: "success", "failure"
		),
		queueDepth: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "krbsync_queue_depth",
				Help: "Number of entries currently in the retry queue",
			},
		),
	}
}

func (m *syncMetrics) RecordQueueWrite(operation string) {
	m.queueWrites.WithLabelValues(operation).Inc()
}

func (m *syncMetrics) RecordConflict(operation string) {
	m.conflicts.WithLabelValues(operation).Inc()
}

func (m *syncMetrics) RecordSyncAttempt(operation, outcome string) {
	m.syncAttempts.WithLabelValues(operation, outcome).Inc()
}

func (m *syncMetrics) RecordQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}
