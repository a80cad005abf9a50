package queue

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krbsync/krbsync/pkg/syncerr"
)

var testTime = time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

func testQueue(t *testing.T) (*Queue, string) {
	t.Helper()
	dir := t.TempDir()
	return Open(dir, WithClock(func() time.Time { return testTime })), dir
}

// entryFiles returns the entry file names in dir, skipping the lock
// file.
func entryFiles(t *testing.T, dir string) []string {
	t.Helper()
	dirents, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, d := range dirents {
		if strings.HasPrefix(d.Name(), ".") {
			continue
		}
		names = append(names, d.Name())
	}
	return names
}

func TestWritePasswordEntry(t *testing.T) {
	q, dir := testQueue(t)
	password := "so secret\twith tab "
	require.NoError(t, q.Write("alice@EXAMPLE.COM", DomainAD, OpPassword, password))

	names := entryFiles(t, dir)
	require.Equal(t, []string{"alice-ad-password-20260826T120000Z-00"}, names)

	path := filepath.Join(dir, names[0])
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "alice\nad\npassword\n"+password+"\n", string(data))
}

func TestWriteStatusEntryHasNoPayload(t *testing.T) {
	q, dir := testQueue(t)
	require.NoError(t, q.Write("alice@EXAMPLE.COM", DomainAD, OpDisable, ""))

	names := entryFiles(t, dir)
	require.Equal(t, []string{"alice-ad-enable-20260826T120000Z-00"}, names)

	data, err := os.ReadFile(filepath.Join(dir, names[0]))
	require.NoError(t, err)
	assert.Equal(t, "alice\nad\ndisable\n", string(data))
}

func TestWriteNormalizesPrincipal(t *testing.T) {
	q, dir := testQueue(t)
	require.NoError(t, q.Write("host/www.example.com@EXAMPLE.COM", DomainAD, OpPassword, "pw"))

	names := entryFiles(t, dir)
	require.Len(t, names, 1)
	assert.Equal(t, "host.www.example.com-ad-password-20260826T120000Z-00", names[0])

	// The file body keeps the real principal form, only the realm is
	// dropped.
	data, err := os.ReadFile(filepath.Join(dir, names[0]))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "host/www.example.com\n"))
}

func TestWriteSequenceNumbers(t *testing.T) {
	q, dir := testQueue(t)
	require.NoError(t, q.Write("alice", DomainAD, OpPassword, "one"))
	require.NoError(t, q.Write("alice", DomainAD, OpPassword, "two"))

	names := entryFiles(t, dir)
	assert.Equal(t, []string{
		"alice-ad-password-20260826T120000Z-00",
		"alice-ad-password-20260826T120000Z-01",
	}, names)
}

func TestWriteSequenceExhaustion(t *testing.T) {
	q, dir := testQueue(t)
	for i := 0; i < maxSequence; i++ {
		require.NoError(t, q.Write("alice", DomainAD, OpPassword, "pw"))
	}
	require.Len(t, entryFiles(t, dir), maxSequence)

	// The bucket for this principal and timestamp is full; the next
	// write must fail loudly, never drop the change.
	err := q.Write("alice", DomainAD, OpPassword, "pw")
	require.Error(t, err)
	assert.True(t, syncerr.IsKind(err, syncerr.KindInternal))
	assert.Contains(t, err.Error(), "sequence numbers exhausted")
	assert.Len(t, entryFiles(t, dir), maxSequence)
}

func TestHasConflict(t *testing.T) {
	q, _ := testQueue(t)
	require.NoError(t, q.Write("alice", DomainAD, OpPassword, "pw"))

	conflict, err := q.HasConflict("alice", DomainAD, OpPassword)
	require.NoError(t, err)
	assert.True(t, conflict)

	conflict, err = q.HasConflict("alice", DomainAD, OpEnable)
	require.NoError(t, err)
	assert.False(t, conflict)

	conflict, err = q.HasConflict("bob", DomainAD, OpPassword)
	require.NoError(t, err)
	assert.False(t, conflict)
}

func TestHasConflictPrefixIsExact(t *testing.T) {
	q, _ := testQueue(t)
	require.NoError(t, q.Write("alicebob", DomainAD, OpPassword, "pw"))

	conflict, err := q.HasConflict("alice", DomainAD, OpPassword)
	require.NoError(t, err)
	assert.False(t, conflict, "alice must not match entries for alicebob")
}

func TestEnableDisableShareConflictKey(t *testing.T) {
	q, _ := testQueue(t)
	require.NoError(t, q.Write("alice", DomainAD, OpDisable, ""))

	for _, op := range []string{OpEnable, OpDisable} {
		conflict, err := q.HasConflict("alice", DomainAD, op)
		require.NoError(t, err)
		assert.True(t, conflict, "operation %s", op)
	}
}

func TestMissingDirIsSystemError(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	q := Open(dir)

	_, err := q.HasConflict("alice", DomainAD, OpPassword)
	require.Error(t, err)
	assert.True(t, syncerr.IsKind(err, syncerr.KindSystem))
	assert.Contains(t, err.Error(), dir)
}

func TestEmptyDirIsConfigError(t *testing.T) {
	q := Open("")
	err := q.Write("alice", DomainAD, OpPassword, "pw")
	require.Error(t, err)
	assert.True(t, syncerr.IsKind(err, syncerr.KindConfig))
}

func TestReadFile(t *testing.T) {
	q, dir := testQueue(t)
	require.NoError(t, q.Write("alice@EXAMPLE.COM", DomainAD, OpPassword, "pw"))

	names := entryFiles(t, dir)
	require.Len(t, names, 1)
	entry, err := ReadFile(filepath.Join(dir, names[0]))
	require.NoError(t, err)
	assert.Equal(t, "alice", entry.Principal)
	assert.Equal(t, DomainAD, entry.Domain)
	assert.Equal(t, OpPassword, entry.Operation)
	assert.Equal(t, "pw", entry.Password)
	assert.Equal(t, testTime, entry.Timestamp)
}

func TestReadFileRejectsMalformed(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		body string
	}{
		{"truncated", "alice\nad\npassword"},
		{"too few lines", "alice\nad\n"},
		{"password without payload", "alice\nad\npassword\n"},
		{"status with payload", "alice\nad\nenable\nstray\n"},
		{"unknown operation", "alice\nad\ndestroy\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "entry-"+tt.name)
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))
			_, err := ReadFile(path)
			assert.Error(t, err)
		})
	}
}

func TestListOrdersByNameAndSkipsLockFile(t *testing.T) {
	q, _ := testQueue(t)
	require.NoError(t, q.Write("bob", DomainAD, OpDisable, ""))
	require.NoError(t, q.Write("alice", DomainAD, OpPassword, "pw"))
	require.NoError(t, q.Write("alice", DomainAD, OpPassword, "pw2"))

	entries, err := q.List()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "alice", entries[0].Principal)
	assert.Equal(t, "pw", entries[0].Password)
	assert.Equal(t, "pw2", entries[1].Password)
	assert.Equal(t, "bob", entries[2].Principal)
}

func TestRemove(t *testing.T) {
	q, dir := testQueue(t)
	require.NoError(t, q.Write("alice", DomainAD, OpPassword, "pw"))

	entries, err := q.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, q.Remove(entries[0].Path))

	assert.Empty(t, entryFiles(t, dir))
}

func TestPurge(t *testing.T) {
	dir := t.TempDir()
	old := Open(dir, WithClock(func() time.Time { return testTime.Add(-48 * time.Hour) }))
	require.NoError(t, old.Write("alice", DomainAD, OpPassword, "stale"))

	q := Open(dir, WithClock(func() time.Time { return testTime }))
	require.NoError(t, q.Write("bob", DomainAD, OpPassword, "fresh"))

	removed, err := q.Purge(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	entries, err := q.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "bob", entries[0].Principal)
}

func TestLockBlocksNothingWhenReleased(t *testing.T) {
	q, _ := testQueue(t)
	lock, err := q.Lock()
	require.NoError(t, err)
	require.NoError(t, lock.Unlock())
	// Unlock is idempotent.
	require.NoError(t, lock.Unlock())

	// A fresh acquisition must succeed immediately.
	lock, err = q.Lock()
	require.NoError(t, err)
	require.NoError(t, lock.Unlock())
}
