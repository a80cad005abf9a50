package queue

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/krbsync/krbsync/pkg/syncerr"
)

// Entry is a parsed queue file.
type Entry struct {
	// Principal is the account name as recorded in the file: realm
	// stripped, component separators intact.
	Principal string

	// Domain is the target system tag, currently always DomainAD.
	Domain string

	// Operation is the literal operation name recorded in the file
	// (password, enable, or disable — never the conflict key).
	Operation string

	// Password is present only for the password operation.
	Password string

	// Path is the entry file this was read from.
	Path string

	// Timestamp is the creation time parsed from the file name, or the
	// zero time when the name does not follow the queue convention.
	Timestamp time.Time
}

// ReadFile parses a queue entry file. The format is three
// newline-terminated lines (principal, domain, operation) plus a fourth
// payload line for password operations. Anything else is malformed:
// replaying a half-understood entry could apply the wrong change.
func ReadFile(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, syncerr.System(err, "cannot read queue file %s", path)
	}
	text := string(data)
	if !strings.HasSuffix(text, "\n") {
		return nil, syncerr.Internal("truncated queue file %s", path)
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if len(lines) < 3 {
		return nil, syncerr.Internal("malformed queue file %s: expected at least 3 lines, got %d", path, len(lines))
	}

	entry := &Entry{
		Principal: lines[0],
		Domain:    lines[1],
		Operation: lines[2],
		Path:      path,
		Timestamp: entryTimestamp(filepath.Base(path)),
	}
	switch entry.Operation {
	case OpPassword:
		if len(lines) != 4 {
			return nil, syncerr.Internal("malformed queue file %s: password entry has %d lines", path, len(lines))
		}
		entry.Password = lines[3]
	case OpEnable, OpDisable:
		if len(lines) != 3 {
			return nil, syncerr.Internal("malformed queue file %s: %s entry has %d lines", path, entry.Operation, len(lines))
		}
	default:
		return nil, syncerr.Internal("unknown action %q in queue file %s", entry.Operation, path)
	}
	return entry, nil
}

// entryTimestamp recovers the creation timestamp from an entry file
// name. The normalized principal may itself contain dashes, so the
// timestamp is located from the end of the name.
func entryTimestamp(name string) time.Time {
	parts := strings.Split(name, "-")
	if len(parts) < 5 {
		return time.Time{}
	}
	ts, err := time.Parse(timestampLayout, parts[len(parts)-2])
	if err != nil {
		return time.Time{}
	}
	return ts
}

// List reads every queue entry under the lock and returns them sorted by
// file name, which orders them by principal and then by creation time.
func (q *Queue) List() ([]Entry, error) {
	lock, err := q.Lock()
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()

	names, err := q.entryNamesLocked()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		entry, err := ReadFile(filepath.Join(q.dir, name))
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func (q *Queue) entryNamesLocked() ([]string, error) {
	dirents, err := os.ReadDir(q.dir)
	if err != nil {
		return nil, syncerr.System(err, "cannot open %s", q.dir)
	}
	var names []string
	for _, d := range dirents {
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			continue
		}
		names = append(names, d.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Remove deletes a processed entry under the lock. It is called by the
// processing tool only after the replay was confirmed successful.
func (q *Queue) Remove(path string) error {
	lock, err := q.Lock()
	if err != nil {
		return err
	}
	defer lock.Unlock()
	if err := os.Remove(path); err != nil {
		return syncerr.System(err, "unable to unlink queue file %s", path)
	}
	return nil
}

// Purge removes entries older than the given age, returning how many
// were deleted. Entries whose names carry no parseable timestamp are
// left alone.
func (q *Queue) Purge(olderThan time.Duration) (int, error) {
	lock, err := q.Lock()
	if err != nil {
		return 0, err
	}
	defer lock.Unlock()

	names, err := q.entryNamesLocked()
	if err != nil {
		return 0, err
	}
	cutoff := q.now().UTC().Add(-olderThan)
	removed := 0
	for _, name := range names {
		ts := entryTimestamp(name)
		if ts.IsZero() || !ts.Before(cutoff) {
			continue
		}
		path := filepath.Join(q.dir, name)
		if err := os.Remove(path); err != nil {
			return removed, syncerr.System(err, "unable to unlink queue file %s", path)
		}
		removed++
	}
	return removed, nil
}
