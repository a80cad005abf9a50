package queue

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/krbsync/krbsync/pkg/syncerr"
)

// lockFileName is the well-known lock file inside the queue directory.
// Its name is shared with the offline processing tools that drain the
// queue, so it must never change.
const lockFileName = ".lock"

// Lock is a held exclusive lock on a queue directory. Release it with
// Unlock.
type Lock struct {
	f *os.File
}

// Lock acquires the exclusive advisory lock covering the whole queue
// directory, creating the lock file if needed. Acquisition blocks until
// the lock is available; there is no timeout, so a hung holder blocks
// all dispatches until resolved operationally. flock is used rather than
// an in-process primitive because separate processes (the kadmind hook
// and the queue processing tool) cooperate on the same directory.
func (q *Queue) Lock() (*Lock, error) {
	if q.dir == "" {
		return nil, syncerr.Config("configuration setting queue_dir missing")
	}
	path := filepath.Join(q.dir, lockFileName)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, syncerr.System(err, "cannot open lock file %s", path)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, syncerr.System(err, "cannot lock %s", path)
	}
	return &Lock{f: f}, nil
}

// Unlock releases the lock and closes the lock file.
func (l *Lock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		f.Close()
		return syncerr.System(err, "cannot unlock %s", f.Name())
	}
	if err := f.Close(); err != nil {
		return syncerr.System(err, "cannot close %s", f.Name())
	}
	return nil
}
