package hook

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/krbsync/krbsync/internal/logger"
	"github.com/krbsync/krbsync/pkg/queue"
	"github.com/krbsync/krbsync/pkg/syncerr"
)

// ProcessFile replays a single queue file against Active Directory and
// removes it on success. Failed files are left in place for the next
// run.
func (h *Hook) ProcessFile(path string) error {
	entry, err := queue.ReadFile(path)
	if err != nil {
		return err
	}
	if entry.Domain != queue.DomainAD {
		return syncerr.Internal("unknown target system %q in queue file %s", entry.Domain, path)
	}
	switch entry.Operation {
	case queue.OpPassword:
		err = h.client.PushPassword(entry.Principal, entry.Password)
	case queue.OpEnable:
		err = h.client.PushStatus(entry.Principal, true)
	case queue.OpDisable:
		err = h.client.PushStatus(entry.Principal, false)
	}
	if err != nil {
		h.recordSyncAttempt(entry.Operation, "failure")
		return err
	}
	h.recordSyncAttempt(entry.Operation, "success")
	return h.queue.Remove(path)
}

// Process replays every queued change in timestamp order. Replay
// continues past individual failures so that one unreachable account
// does not starve the rest of the queue; entries whose replay fails
// stay queued. Returns the number of files successfully replayed.
func (h *Hook) Process() (int, error) {
	entries, err := h.queue.List()
	if err != nil {
		return 0, err
	}
	h.recordQueueDepth(len(entries))
	processed := 0
	failed := 0
	for i := range entries {
		if err := h.ProcessFile(entries[i].Path); err != nil {
			failed++
			logger.Warn("queue replay failed",
				"file", entries[i].Path, "error", err)
			continue
		}
		processed++
	}
	h.recordQueueDepth(failed)
	if failed > 0 {
		return processed, syncerr.Internal("%d of %d queue files failed", failed, failed+processed)
	}
	return processed, nil
}

// Watch drains the queue, then blocks replaying new entries as they
// appear until ctx is cancelled. Filesystem notification triggers an
// immediate replay; interval bounds how long previously failed entries
// wait for a retry when the directory is otherwise quiet.
func (h *Hook) Watch(ctx context.Context, interval time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return syncerr.System(err, "cannot create queue watcher")
	}
	defer watcher.Close()
	if err := watcher.Add(h.queue.Dir()); err != nil {
		return syncerr.System(err, "cannot watch %s", h.queue.Dir())
	}

	log := logger.With("dir", h.queue.Dir())
	replay := func() {
		n, err := h.Process()
		if err != nil {
			log.Warn("queue pass incomplete", "processed", n, "error", err)
		} else if n > 0 {
			log.Info("queue drained", "processed", n)
		}
	}
	replay()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return syncerr.System(nil, "queue watcher closed")
			}
			if event.Op.Has(fsnotify.Create) {
				replay()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return syncerr.System(nil, "queue watcher closed")
			}
			log.Warn("queue watcher error", "error", err)
		case <-ticker.C:
			replay()
		}
	}
}
