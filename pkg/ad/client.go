// Package ad pushes password and account status changes to Active
// Directory.
//
// The client binds to a domain controller over LDAPS using GSSAPI
// credentials obtained from the configured keytab, locates accounts by
// userPrincipalName under the configured search base, and applies the
// change as an attribute modification: unicodePwd for passwords,
// userAccountControl for enable/disable.
package ad

import (
	"crypto/tls"
	"fmt"
	"net"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldap/v3/gssapi"
	krb5client "github.com/jcmturner/gokrb5/v8/client"

	"github.com/krbsync/krbsync/pkg/config"
	"github.com/krbsync/krbsync/pkg/principal"
	"github.com/krbsync/krbsync/pkg/syncerr"
)

// Client talks to one Active Directory domain.
type Client struct {
	cfg *config.ADConfig
}

// NewClient returns a client for the AD domain described by cfg.
// Connections are established per call: the hook runs inside kadmind
// request threads and must not hold idle directory connections there.
func NewClient(cfg *config.ADConfig) *Client {
	return &Client{cfg: cfg}
}

// connect dials the domain controller and performs the GSSAPI bind.
func (c *Client) connect() (*ldap.Conn, error) {
	if c.cfg.AdminServer == "" {
		return nil, syncerr.Config("configuration setting ad.admin_server missing")
	}
	if c.cfg.Keytab == "" {
		return nil, syncerr.Config("configuration setting ad.keytab missing")
	}
	if c.cfg.Principal == "" {
		return nil, syncerr.Config("configuration setting ad.principal missing")
	}

	bindPrinc, err := principal.Parse(c.cfg.Principal)
	if err != nil {
		return nil, err
	}
	if bindPrinc.Realm == "" {
		return nil, syncerr.Config("configuration setting ad.principal must include a realm")
	}

	host := c.cfg.AdminServer
	if h, _, splitErr := net.SplitHostPort(host); splitErr == nil {
		host = h
	}

	conn, err := ldap.DialURL("ldaps://"+c.cfg.AdminServer,
		ldap.DialWithTLSConfig(&tls.Config{ServerName: host}))
	if err != nil {
		return nil, syncerr.Remote(err, "LDAP connection to %s failed", c.cfg.AdminServer)
	}

	// AD KDCs reject FAST negotiation from service keytabs, so it is
	// disabled the same way the MIT client profile does for this realm.
	krbClient, err := gssapi.NewClientWithKeytab(
		bindPrinc.Name(), bindPrinc.Realm, c.cfg.Keytab, c.cfg.Krb5Conf,
		krb5client.DisablePAFXFAST(true))
	if err != nil {
		conn.Close()
		return nil, syncerr.Remote(err, "cannot obtain credentials for %s from %s", c.cfg.Principal, c.cfg.Keytab)
	}

	if err := conn.GSSAPIBind(krbClient, "ldap/"+host, ""); err != nil {
		conn.Close()
		krbClient.Destroy()
		return nil, syncerr.Remote(err, "LDAP bind to %s failed", c.cfg.AdminServer)
	}
	return conn, nil
}

// mapPrincipal converts a local principal name to the corresponding
// Active Directory principal. A two-part principal whose instance is the
// configured base instance maps to the bare base account; the realm is
// always rewritten to the AD realm.
func (c *Client) mapPrincipal(name string) (principal.Principal, error) {
	if c.cfg.Realm == "" {
		return principal.Principal{}, syncerr.Config("configuration setting ad.realm missing")
	}
	p, err := principal.Parse(name)
	if err != nil {
		return principal.Principal{}, err
	}
	if c.cfg.BaseInstance != "" && len(p.Components) == 2 && p.Components[1] == c.cfg.BaseInstance {
		p.Components = p.Components[:1]
	}
	p.Realm = c.cfg.Realm
	return p, nil
}

// findAccount searches the configured base for the account with the
// given AD principal, requesting attrs, and returns the single matching
// entry.
func (c *Client) findAccount(conn *ldap.Conn, target principal.Principal, attrs []string) (*ldap.Entry, error) {
	if c.cfg.LDAPBase == "" {
		return nil, syncerr.Config("configuration setting ad.ldap_base missing")
	}
	filter := fmt.Sprintf("(userPrincipalName=%s)", ldap.EscapeFilter(target.String()))
	req := ldap.NewSearchRequest(c.cfg.LDAPBase, ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases, 0, 0, false, filter, attrs, nil)
	res, err := conn.Search(req)
	if err != nil {
		return nil, syncerr.Remote(err, "LDAP search for %q failed", filter)
	}
	if len(res.Entries) == 0 {
		return nil, syncerr.Remote(nil, "user %q not found via LDAP", target.String())
	}
	if len(res.Entries) > 1 {
		dns := make([]string, len(res.Entries))
		for i, e := range res.Entries {
			dns[i] = e.DN
		}
		return nil, syncerr.Remote(nil, "multiple entries for %q: %s", target.String(), strings.Join(dns, ", "))
	}
	return res.Entries[0], nil
}
