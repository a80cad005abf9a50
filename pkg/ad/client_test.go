package ad

import (
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krbsync/krbsync/pkg/config"
	"github.com/krbsync/krbsync/pkg/syncerr"
)

func TestMapPrincipal(t *testing.T) {
	c := NewClient(&config.ADConfig{
		Realm:        "AD.EXAMPLE.COM",
		BaseInstance: "windows",
	})

	tests := []struct {
		input, want string
	}{
		// The realm is always rewritten to the AD realm.
		{"alice@EXAMPLE.COM", "alice@AD.EXAMPLE.COM"},
		{"alice", "alice@AD.EXAMPLE.COM"},
		// The base instance collapses to the bare account.
		{"alice/windows@EXAMPLE.COM", "alice@AD.EXAMPLE.COM"},
		// Other instances keep their form.
		{"alice/root@EXAMPLE.COM", "alice/root@AD.EXAMPLE.COM"},
	}
	for _, tt := range tests {
		p, err := c.mapPrincipal(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, p.String(), "input %q", tt.input)
	}
}

func TestMapPrincipalRequiresRealm(t *testing.T) {
	c := NewClient(&config.ADConfig{})
	_, err := c.mapPrincipal("alice@EXAMPLE.COM")
	require.Error(t, err)
	assert.True(t, syncerr.IsKind(err, syncerr.KindConfig))
}

func TestEncodePassword(t *testing.T) {
	encoded, err := encodePassword("hunter2")
	require.NoError(t, err)

	// unicodePwd is the quoted password in UTF-16LE without a BOM.
	want := utf16.Encode([]rune(`"hunter2"`))
	raw := []byte(encoded)
	require.Len(t, raw, 2*len(want))
	for i, unit := range want {
		assert.Equal(t, byte(unit&0xff), raw[2*i])
		assert.Equal(t, byte(unit>>8), raw[2*i+1])
	}
}

func TestConnectRequiresConfiguration(t *testing.T) {
	for _, tt := range []struct {
		name string
		cfg  config.ADConfig
	}{
		{"admin_server", config.ADConfig{Keytab: "/kt", Principal: "svc@AD.EXAMPLE.COM"}},
		{"keytab", config.ADConfig{AdminServer: "dc", Principal: "svc@AD.EXAMPLE.COM"}},
		{"principal", config.ADConfig{AdminServer: "dc", Keytab: "/kt"}},
		{"principal realm", config.ADConfig{AdminServer: "dc", Keytab: "/kt", Principal: "svc"}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(&tt.cfg)
			_, err := c.connect()
			require.Error(t, err)
			assert.True(t, syncerr.IsKind(err, syncerr.KindConfig))
		})
	}
}
