// Package queue implements the durable retry queue for account
// synchronization events.
//
// Each queued event is a small file whose name encodes the normalized
// principal, the target domain, a conflict key, a second-resolution UTC
// timestamp, and a two-digit sequence number. All directory access —
// conflict checks, writes, listing, deletion — happens under a single
// exclusive advisory lock on a well-known lock file, because the
// directory is shared between the in-daemon hook and the offline
// processing tool.
package queue

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/krbsync/krbsync/pkg/principal"
	"github.com/krbsync/krbsync/pkg/syncerr"
)

// DomainAD tags entries destined for Active Directory. It is the only
// domain currently written, but the on-disk format carries the tag so
// that further target systems can share the queue.
const DomainAD = "ad"

// Queue operations. Enable and disable are mutually exclusive states of
// the same logical slot and share the "enable" conflict key, but the
// literal operation name is what the entry file records.
const (
	OpPassword = "password"
	OpEnable   = "enable"
	OpDisable  = "disable"
)

// maxSequence bounds how many entries may share one
// principal/domain/conflict-key/timestamp bucket. The value is part of
// the on-disk contract with the historical queue tools.
const maxSequence = 100

// timestampLayout is the sortable UTC timestamp embedded in entry names.
const timestampLayout = "20060102T150405Z"

// Queue is a handle on a queue directory. The zero value is unusable;
// obtain one with Open.
type Queue struct {
	dir string
	now func() time.Time
}

// Option adjusts a Queue at Open time.
type Option func(*Queue)

// WithClock overrides the timestamp source, for tests that need
// deterministic entry names.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		q.now = now
	}
}

// Open returns a handle on the queue directory at dir. The directory is
// not created or checked here; a missing directory surfaces as a system
// error from the first operation, never as an empty queue.
func Open(dir string, opts ...Option) *Queue {
	q := &Queue{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Dir returns the queue directory path.
func (q *Queue) Dir() string {
	return q.dir
}

// conflictKey maps an operation to the key used in entry names for
// conflict detection. Enable and disable go into the same queue slot: a
// pending disable must conflict with a new enable and vice versa.
func conflictKey(operation string) string {
	if operation == OpDisable {
		return OpEnable
	}
	return operation
}

// entryPrefix builds the filename prefix identifying all entries for one
// principal, domain, and conflict key. The trailing dash is part of the
// prefix so that "alice" never matches entries for "alicebob".
func entryPrefix(name, domain, operation string) string {
	return fmt.Sprintf("%s-%s-%s-", principal.Norm(name), domain, conflictKey(operation))
}

// HasConflict reports whether any entry is queued for the given
// principal, domain, and conflict key. It acquires the queue lock
// itself; callers that need to keep the lock across a
// check-then-write sequence use Lock with HasConflictLocked.
func (q *Queue) HasConflict(name, domain, operation string) (bool, error) {
	lock, err := q.Lock()
	if err != nil {
		return false, err
	}
	defer lock.Unlock()
	return q.HasConflictLocked(name, domain, operation)
}

// HasConflictLocked is HasConflict for callers already holding the queue
// lock. A missing queue directory is a system error, never "no
// conflict": silently proceeding would let a later write fail after the
// direct attempt was already skipped or made.
func (q *Queue) HasConflictLocked(name, domain, operation string) (bool, error) {
	prefix := entryPrefix(name, domain, operation)
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return false, syncerr.System(err, "cannot open %s", q.dir)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), prefix) {
			return true, nil
		}
	}
	return false, nil
}

// Write queues an event durably. password is recorded only for the
// password operation. Write acquires the queue lock itself.
func (q *Queue) Write(name, domain, operation, password string) error {
	lock, err := q.Lock()
	if err != nil {
		return err
	}
	defer lock.Unlock()
	return q.WriteLocked(name, domain, operation, password)
}

// WriteLocked is Write for callers already holding the queue lock.
//
// The entry file is created exclusively so that a concurrent writer in a
// cooperating process can never be silently overwritten, and any failure
// after creation removes the partial file: the queue never contains a
// truncated entry.
func (q *Queue) WriteLocked(name, domain, operation, password string) error {
	prefix := entryPrefix(name, domain, operation)
	timestamp := q.now().UTC().Format(timestampLayout)

	var f *os.File
	var path string
	for i := 0; i < maxSequence; i++ {
		path = filepath.Join(q.dir, fmt.Sprintf("%s%s-%02d", prefix, timestamp, i))
		var err error
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			break
		}
		f = nil
		if !errors.Is(err, fs.ErrExist) {
			return syncerr.System(err, "cannot create queue file %s", path)
		}
	}
	if f == nil {
		return syncerr.Internal("queue sequence numbers exhausted for %s%s", prefix, timestamp)
	}

	if err := q.writeEntry(f, name, domain, operation, password); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return syncerr.System(err, "cannot write queue file %s", path)
	}
	return nil
}

func (q *Queue) writeEntry(f *os.File, name, domain, operation, password string) error {
	// The entry may carry a plaintext credential; restrict it to the
	// owning service account regardless of the process umask.
	if err := f.Chmod(0o600); err != nil {
		return syncerr.System(err, "cannot set permissions on %s", f.Name())
	}

	var body strings.Builder
	body.WriteString(principal.StripRealm(name))
	body.WriteByte('\n')
	body.WriteString(domain)
	body.WriteByte('\n')
	body.WriteString(operation)
	body.WriteByte('\n')
	if operation == OpPassword {
		body.WriteString(password)
		body.WriteByte('\n')
	}
	if _, err := f.WriteString(body.String()); err != nil {
		return syncerr.System(err, "cannot write queue file %s", f.Name())
	}
	return nil
}
