// Package hook implements the synchronization entry points invoked by
// the KDC administration daemon around its database commits, and the
// replay logic used by the offline queue processor.
//
// Each entry point is a pure sequencing of the eligibility filter, the
// queue conflict check, the direct push to Active Directory, and the
// durable queue fallback. There is no internal threading: concurrency
// comes only from multiple daemon threads or processes dispatching at
// once, which the queue lock serializes.
package hook

import (
	"time"

	"github.com/krbsync/krbsync/pkg/ad"
	"github.com/krbsync/krbsync/pkg/config"
	"github.com/krbsync/krbsync/pkg/kdc"
	"github.com/krbsync/krbsync/pkg/metrics"
	"github.com/krbsync/krbsync/pkg/principal"
	"github.com/krbsync/krbsync/pkg/queue"
)

// SyncClient is the remote synchronization transport. The production
// implementation is ad.Client; tests substitute fakes.
type SyncClient interface {
	// PushPassword propagates a password change for the named local
	// principal.
	PushPassword(name, password string) error

	// PushStatus propagates an enable/disable change for the named
	// local principal.
	PushStatus(name string, enabled bool) error
}

// Hook holds the wiring for one configuration. Multiple hooks with
// independent configurations can coexist in a process.
type Hook struct {
	cfg      *config.Config
	queue    *queue.Queue
	client   SyncClient
	filter   *principal.Filter
	recorder metrics.Recorder
}

// Option adjusts the hook wiring at construction time.
type Option func(*Hook)

// WithSyncClient substitutes the remote synchronization transport.
func WithSyncClient(client SyncClient) Option {
	return func(h *Hook) {
		h.client = client
	}
}

// WithLookup substitutes the principal-existence lookup used by the
// base-instance eligibility rule.
func WithLookup(lookup principal.LookupFunc) Option {
	return func(h *Hook) {
		h.filter.Lookup = lookup
	}
}

// WithMetrics installs a metrics recorder. A nil recorder (the default)
// disables collection.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(h *Hook) {
		h.recorder = recorder
	}
}

// WithClock overrides the queue timestamp source, for tests.
func WithClock(now func() time.Time) Option {
	return func(h *Hook) {
		h.queue = queue.Open(h.cfg.Queue.Dir, queue.WithClock(now))
	}
}

// New wires a hook from cfg. When a base instance is configured and no
// lookup override is given, the local KDC is probed through the
// Kerberos configuration named in the AD settings.
func New(cfg *config.Config, opts ...Option) (*Hook, error) {
	h := &Hook{
		cfg:   cfg,
		queue: queue.Open(cfg.Queue.Dir),
		filter: &principal.Filter{
			Instances:    cfg.AD.Instances,
			BaseInstance: cfg.AD.BaseInstance,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.client == nil {
		h.client = ad.NewClient(&cfg.AD)
	}
	if h.filter.Lookup == nil && cfg.AD.BaseInstance != "" {
		checker, err := kdc.NewChecker(cfg.AD.Krb5Conf)
		if err != nil {
			return nil, err
		}
		h.filter.Lookup = checker.PrincipalExists
	}
	return h, nil
}

// Queue exposes the hook's queue handle to the command-line tools so
// that listing and purging share the clock and directory wiring.
func (h *Hook) Queue() *queue.Queue {
	return h.queue
}

func (h *Hook) recordQueueWrite(operation string) {
	if h.recorder != nil {
		h.recorder.RecordQueueWrite(operation)
	}
}

func (h *Hook) recordConflict(operation string) {
	if h.recorder != nil {
		h.recorder.RecordConflict(operation)
	}
}

func (h *Hook) recordSyncAttempt(operation, outcome string) {
	if h.recorder != nil {
		h.recorder.RecordSyncAttempt(operation, outcome)
	}
}

func (h *Hook) recordQueueDepth(n int) {
	if h.recorder != nil {
		h.recorder.RecordQueueDepth(n)
	}
}
