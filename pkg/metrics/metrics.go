// Package metrics defines the observability interface for the
// synchronization hook and queue processor.
//
// The interface is optional: a nil Recorder disables collection with
// zero overhead, which is how the short-lived CLI commands run. The
// prometheus subpackage provides the real implementation used by the
// long-running queue processor.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder collects synchronization and queue activity.
type Recorder interface {
	// RecordQueueWrite records a durable queue write for an operation
	// (password, enable, disable).
	RecordQueueWrite(operation string)

	// RecordConflict records a dispatch that skipped its direct attempt
	// because a conflicting entry was already queued.
	RecordConflict(operation string)

	// RecordSyncAttempt records a direct remote synchronization attempt
	// and its outcome ("success" or "failure").
	RecordSyncAttempt(operation, outcome string)

	// RecordQueueDepth records the number of entries currently queued.
	RecordQueueDepth(n int)
}

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry installs the Prometheus registry used by the prometheus
// subpackage. It is called once by the queue processor before building
// its Recorder; until then metrics stay disabled.
func InitRegistry(reg *prometheus.Registry) {
	mu.Lock()
	defer mu.Unlock()
	registry = reg
}

// IsEnabled reports whether a registry has been installed.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the installed registry, or nil when metrics are
// disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}
