package principal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krbsync/krbsync/pkg/syncerr"
)

func mustParse(t *testing.T, name string) Principal {
	t.Helper()
	p, err := Parse(name)
	require.NoError(t, err)
	return p
}

func TestEligibleSinglePart(t *testing.T) {
	f := &Filter{}
	ok, err := f.Eligible(mustParse(t, "alice@EXAMPLE.COM"), true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEligibleInstanceAllowList(t *testing.T) {
	f := &Filter{Instances: []string{"root", "ipass"}}

	tests := []struct {
		principal string
		want      bool
	}{
		{"admin/root@EXAMPLE.COM", true},
		{"admin/ipass@EXAMPLE.COM", true},
		// Matching is whole-token: root2 is not root.
		{"admin/root2@EXAMPLE.COM", false},
		{"admin/other@EXAMPLE.COM", false},
		{"host/www.example.com@EXAMPLE.COM", false},
	}
	for _, tt := range tests {
		ok, err := f.Eligible(mustParse(t, tt.principal), true)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, "principal %s", tt.principal)
	}
}

func TestEligibleNoAllowListSkipsAllInstances(t *testing.T) {
	f := &Filter{}
	ok, err := f.Eligible(mustParse(t, "alice/admin@EXAMPLE.COM"), true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEligibleBaseInstanceAlwaysAllowed(t *testing.T) {
	f := &Filter{BaseInstance: "windows"}
	ok, err := f.Eligible(mustParse(t, "alice/windows@EXAMPLE.COM"), true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEligibleBaseInstanceRedirect(t *testing.T) {
	var looked string
	f := &Filter{
		BaseInstance: "windows",
		Lookup: func(name string) (bool, error) {
			looked = name
			return true, nil
		},
	}

	// alice/windows exists, so a password change for bare alice is
	// suppressed: the instance's changes propagate instead.
	ok, err := f.Eligible(mustParse(t, "alice@EXAMPLE.COM"), true)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "alice/windows@EXAMPLE.COM", looked)

	// Without the instance, the bare account propagates normally.
	f.Lookup = func(string) (bool, error) { return false, nil }
	ok, err = f.Eligible(mustParse(t, "alice@EXAMPLE.COM"), true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEligibleBaseInstanceOnlyForPasswordChanges(t *testing.T) {
	f := &Filter{
		BaseInstance: "windows",
		Lookup: func(string) (bool, error) {
			t.Fatal("lookup must not run for non-password events")
			return false, nil
		},
	}
	ok, err := f.Eligible(mustParse(t, "alice@EXAMPLE.COM"), false)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEligibleLookupErrorAborts(t *testing.T) {
	boom := errors.New("kdc unreachable")
	f := &Filter{
		BaseInstance: "windows",
		Lookup:       func(string) (bool, error) { return false, boom },
	}
	_, err := f.Eligible(mustParse(t, "alice@EXAMPLE.COM"), true)
	require.ErrorIs(t, err, boom)
}

func TestEligibleBaseInstanceWithoutLookup(t *testing.T) {
	f := &Filter{BaseInstance: "windows"}
	_, err := f.Eligible(mustParse(t, "alice@EXAMPLE.COM"), true)
	require.Error(t, err)
	assert.True(t, syncerr.IsKind(err, syncerr.KindFilter))
}
