package hook

import (
	"github.com/krbsync/krbsync/internal/logger"
	"github.com/krbsync/krbsync/pkg/principal"
	"github.com/krbsync/krbsync/pkg/queue"
)

// PrecommitPassword propagates a password change for name before the
// local database commit. Changes for ineligible principals succeed
// without doing anything, as do key randomizations (which carry no
// cleartext password). If the direct push fails the change is queued
// for later replay and the queue write's result is returned, so the
// local commit only fails when even the queue is unavailable.
func (h *Hook) PrecommitPassword(name, password string) error {
	if h.cfg.AD.Realm == "" {
		return nil
	}
	if password == "" {
		logger.Debug("password unavailable, skipping synchronization", "principal", name)
		return nil
	}
	p, err := principal.Parse(name)
	if err != nil {
		return err
	}
	ok, err := h.filter.Eligible(p, true)
	if err != nil || !ok {
		return err
	}
	return h.dispatch(name, queue.OpPassword, password, func() error {
		return h.client.PushPassword(name, password)
	})
}

// PostcommitPassword runs after the local database commit of a password
// change. It is a reserved extension point for targets that must only
// see changes already durable locally; the Active Directory target
// synchronizes in the precommit phase.
func (h *Hook) PostcommitPassword(name, password string) error {
	return nil
}

// PostcommitStatus propagates an enable or disable of name after the
// local database commit. It does nothing unless the Active Directory
// configuration is complete enough to locate and modify the account.
func (h *Hook) PostcommitStatus(name string, enabled bool) error {
	ad := &h.cfg.AD
	if ad.AdminServer == "" || ad.Keytab == "" || ad.Principal == "" || ad.LDAPBase == "" || ad.Realm == "" {
		return nil
	}
	p, err := principal.Parse(name)
	if err != nil {
		return err
	}
	ok, err := h.filter.Eligible(p, true)
	if err != nil || !ok {
		return err
	}
	op := queue.OpDisable
	if enabled {
		op = queue.OpEnable
	}
	return h.dispatch(name, op, "", func() error {
		return h.client.PushStatus(name, enabled)
	})
}

// dispatch runs the shared queue-or-push sequence. The conflict check
// and any conflict-forced write happen under a single lock acquisition
// so that no competing writer can slip a conflicting entry in between.
// The lock is released before the direct push: remote calls can block
// for a long time, and the fallback write takes the lock again.
func (h *Hook) dispatch(name, operation, password string, push func() error) error {
	lock, err := h.queue.Lock()
	if err != nil {
		return err
	}
	conflict, err := h.queue.HasConflictLocked(name, queue.DomainAD, operation)
	if err != nil {
		lock.Unlock()
		return err
	}
	if conflict || h.cfg.AD.QueueOnly {
		if conflict {
			h.recordConflict(operation)
			logger.Debug("queuing behind existing queued change",
				"principal", name, "operation", operation)
		}
		err := h.queue.WriteLocked(name, queue.DomainAD, operation, password)
		lock.Unlock()
		if err == nil {
			h.recordQueueWrite(operation)
		}
		return err
	}
	if err := lock.Unlock(); err != nil {
		return err
	}
	if err := push(); err != nil {
		h.recordSyncAttempt(operation, "failure")
		logger.Warn("synchronization failed, queuing change",
			"principal", name, "operation", operation, "error", err)
		werr := h.queue.Write(name, queue.DomainAD, operation, password)
		if werr == nil {
			h.recordQueueWrite(operation)
		}
		return werr
	}
	h.recordSyncAttempt(operation, "success")
	return nil
}
