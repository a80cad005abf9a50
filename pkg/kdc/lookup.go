// Package kdc answers existence questions about principals in the local
// Kerberos database.
//
// There is no kadm5 client available here, so the check is done with the
// only signal the KDC exposes remotely: an AS exchange for the principal
// with throwaway credentials. A "client principal unknown" error is a
// definitive negative answer; a preauthentication demand or failure
// proves the principal exists.
package kdc

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	krb5client "github.com/jcmturner/gokrb5/v8/client"
	krb5config "github.com/jcmturner/gokrb5/v8/config"

	"github.com/krbsync/krbsync/pkg/principal"
	"github.com/krbsync/krbsync/pkg/syncerr"
)

// Checker probes the KDCs of the local realm.
type Checker struct {
	cfg *krb5config.Config
}

// NewChecker loads the Kerberos configuration at krb5confPath (or the
// system default when empty) and returns a Checker using its realm and
// KDC settings.
func NewChecker(krb5confPath string) (*Checker, error) {
	if krb5confPath == "" {
		krb5confPath = "/etc/krb5.conf"
	}
	cfg, err := krb5config.Load(krb5confPath)
	if err != nil {
		return nil, syncerr.Filter(err, "cannot load %s", krb5confPath)
	}
	return &Checker{cfg: cfg}, nil
}

// PrincipalExists reports whether name exists in the local Kerberos
// database. Its signature matches principal.LookupFunc.
func (c *Checker) PrincipalExists(name string) (bool, error) {
	p, err := principal.Parse(name)
	if err != nil {
		return false, err
	}
	realm := p.Realm
	if realm == "" {
		realm = c.cfg.LibDefaults.DefaultRealm
	}
	if realm == "" {
		return false, syncerr.Filter(nil, "no realm for principal %q and no default realm configured", name)
	}

	// A random password guarantees the login can only fail; the failure
	// mode is what carries the answer.
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return false, syncerr.Filter(err, "cannot generate probe password")
	}
	cl := krb5client.NewWithPassword(p.Name(), realm, hex.EncodeToString(buf),
		c.cfg, krb5client.DisablePAFXFAST(true))
	defer cl.Destroy()

	err = cl.Login()
	if err == nil {
		return true, nil
	}

	// gokrb5 flattens the KDC error into the message text, so the error
	// code names are matched as strings.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "KDC_ERR_C_PRINCIPAL_UNKNOWN"):
		return false, nil
	case strings.Contains(msg, "KDC_ERR_PREAUTH_REQUIRED"),
		strings.Contains(msg, "KDC_ERR_PREAUTH_FAILED"),
		strings.Contains(msg, "KDC_ERR_KEY_EXPIRED"),
		strings.Contains(msg, "KDC_ERR_CLIENT_REVOKED"):
		return true, nil
	}
	return false, syncerr.Filter(err, "cannot look up principal %q in realm %s", name, realm)
}
