package ad

import (
	"github.com/go-ldap/ldap/v3"
	"golang.org/x/text/encoding/unicode"

	"github.com/krbsync/krbsync/internal/logger"
	"github.com/krbsync/krbsync/pkg/syncerr"
)

// PushPassword sets the account's password in Active Directory.
//
// AD accepts password writes as a replace of the unicodePwd attribute
// over an encrypted connection; the value is the new password in quotes,
// encoded UTF-16LE.
func (c *Client) PushPassword(name, password string) error {
	target, err := c.mapPrincipal(name)
	if err != nil {
		return err
	}

	conn, err := c.connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	entry, err := c.findAccount(conn, target, []string{"dn"})
	if err != nil {
		return err
	}

	encoded, err := encodePassword(password)
	if err != nil {
		return err
	}
	modify := ldap.NewModifyRequest(entry.DN, nil)
	modify.Replace("unicodePwd", []string{encoded})
	if err := conn.Modify(modify); err != nil {
		return syncerr.Remote(err, "password change failed for %s", target.String())
	}

	logger.Info("password changed", "principal", target.String())
	return nil
}

// encodePassword produces the unicodePwd attribute value: the password
// surrounded by double quotes, encoded UTF-16LE without a BOM.
func encodePassword(password string) (string, error) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	encoded, err := enc.String(`"` + password + `"`)
	if err != nil {
		return "", syncerr.Internal("cannot encode password: %v", err)
	}
	return encoded, nil
}
