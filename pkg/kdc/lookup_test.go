package kdc

import (
	"os"
	"path/filepath"
	"testing"

	krb5config "github.com/jcmturner/gokrb5/v8/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krbsync/krbsync/pkg/syncerr"
)

const testKrb5Conf = `[libdefaults]
 default_realm = EXAMPLE.COM

[realms]
 EXAMPLE.COM = {
 }
`

func writeKrb5Conf(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "krb5.conf")
	require.NoError(t, os.WriteFile(path, []byte(testKrb5Conf), 0o600))
	return path
}

func TestNewCheckerMissingConfig(t *testing.T) {
	_, err := NewChecker(filepath.Join(t.TempDir(), "nonexistent.conf"))
	require.Error(t, err)
	assert.True(t, syncerr.IsKind(err, syncerr.KindFilter))
}

func TestPrincipalExistsDefaultsRealm(t *testing.T) {
	c, err := NewChecker(writeKrb5Conf(t))
	require.NoError(t, err)

	// The realm has no KDCs configured, so the probe cannot get an
	// answer; that must surface as a filter error, never as a
	// yes-or-no guess.
	_, err = c.PrincipalExists("alice")
	require.Error(t, err)
	assert.True(t, syncerr.IsKind(err, syncerr.KindFilter))
}

func TestPrincipalExistsRequiresRealm(t *testing.T) {
	cfg, err := krb5config.NewFromString("[libdefaults]\n")
	require.NoError(t, err)

	c := &Checker{cfg: cfg}
	_, err = c.PrincipalExists("alice")
	require.Error(t, err)
	assert.True(t, syncerr.IsKind(err, syncerr.KindFilter))
}
