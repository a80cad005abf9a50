package syncerr

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	err := Config("configuration setting %s missing", "queue_dir")
	assert.Equal(t, "configuration setting queue_dir missing", err.Error())

	wrapped := System(os.ErrPermission, "cannot open %s", "/var/spool/krbsync")
	assert.Equal(t, "cannot open /var/spool/krbsync: permission denied", wrapped.Error())
}

func TestUnwrap(t *testing.T) {
	cause := os.ErrNotExist
	err := System(cause, "cannot open queue")
	require.ErrorIs(t, err, os.ErrNotExist)

	// A further fmt wrap must still expose the classification.
	outer := fmt.Errorf("dispatch failed: %w", err)
	assert.True(t, IsKind(outer, KindSystem))
	assert.Equal(t, KindSystem, KindOf(outer))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.False(t, IsKind(errors.New("plain"), KindRemote))
}

func TestKindNames(t *testing.T) {
	assert.Equal(t, "config", KindConfig.String())
	assert.Equal(t, "system", KindSystem.String())
	assert.Equal(t, "remote", KindRemote.String())
	assert.Equal(t, "filter", KindFilter.String())
	assert.Equal(t, "internal", KindInternal.String())
}
