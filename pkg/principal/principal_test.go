package principal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		components []string
		realm      string
	}{
		{"bare name", "alice", []string{"alice"}, ""},
		{"name with realm", "alice@EXAMPLE.COM", []string{"alice"}, "EXAMPLE.COM"},
		{"instance", "alice/admin@EXAMPLE.COM", []string{"alice", "admin"}, "EXAMPLE.COM"},
		{"host principal", "host/www.example.com@EXAMPLE.COM", []string{"host", "www.example.com"}, "EXAMPLE.COM"},
		{"escaped slash", `a\/b@EXAMPLE.COM`, []string{"a/b"}, "EXAMPLE.COM"},
		{"escaped at", `a\@b@EXAMPLE.COM`, []string{"a@b"}, "EXAMPLE.COM"},
		{"escaped at no realm", `a\@b`, []string{"a@b"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.components, p.Components)
			assert.Equal(t, tt.realm, p.Realm)
		})
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, input := range []string{"", "@EXAMPLE.COM"} {
		_, err := Parse(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestNameRoundTrip(t *testing.T) {
	for _, input := range []string{
		"alice@EXAMPLE.COM",
		"alice/admin@EXAMPLE.COM",
		`a\/b@EXAMPLE.COM`,
		`a\@b`,
	} {
		p, err := Parse(input)
		require.NoError(t, err)
		assert.Equal(t, input, p.String(), "input %q", input)
	}
}

func TestWithInstance(t *testing.T) {
	p, err := Parse("alice@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, "alice/windows@EXAMPLE.COM", p.WithInstance("windows").String())
	// The receiver is unchanged.
	assert.Equal(t, []string{"alice"}, p.Components)
}

func TestStripRealm(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"alice@EXAMPLE.COM", "alice"},
		{"alice/admin@EXAMPLE.COM", "alice/admin"},
		{"alice", "alice"},
		{`a\@b@EXAMPLE.COM`, `a\@b`},
		{`a\@b`, `a\@b`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripRealm(tt.input), "input %q", tt.input)
	}
}

func TestNorm(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"alice@EXAMPLE.COM", "alice"},
		{"alice", "alice"},
		{"host/www.example.com@EXAMPLE.COM", "host.www.example.com"},
		{"alice/admin", "alice.admin"},
		// Escaped separators are content, but a slash can never
		// survive into a file name.
		{`a\/b@EXAMPLE.COM`, `a\.b`},
		{`a\@b@EXAMPLE.COM`, `a\@b`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Norm(tt.input), "input %q", tt.input)
	}
}
