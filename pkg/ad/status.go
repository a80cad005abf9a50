package ad

import (
	"strconv"

	"github.com/go-ldap/ldap/v3"

	"github.com/krbsync/krbsync/internal/logger"
	"github.com/krbsync/krbsync/pkg/syncerr"
)

// uafAccountDisable is the userAccountControl flag marking a disabled
// account in Active Directory.
const uafAccountDisable = 0x2

// PushStatus enables or disables the account in Active Directory by
// flipping the ACCOUNTDISABLE bit of userAccountControl, preserving all
// other flags.
func (c *Client) PushStatus(name string, enabled bool) error {
	target, err := c.mapPrincipal(name)
	if err != nil {
		return err
	}

	conn, err := c.connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	entry, err := c.findAccount(conn, target, []string{"userAccountControl"})
	if err != nil {
		return err
	}
	raw := entry.GetAttributeValue("userAccountControl")
	control, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return syncerr.Remote(err, "unable to parse userAccountControl for user %q (%s)", target.String(), raw)
	}

	if enabled {
		control &^= uafAccountDisable
	} else {
		control |= uafAccountDisable
	}

	modify := ldap.NewModifyRequest(entry.DN, nil)
	modify.Replace("userAccountControl", []string{strconv.FormatUint(control, 10)})
	if err := conn.Modify(modify); err != nil {
		return syncerr.Remote(err, "LDAP modification for user %q failed", target.String())
	}

	action := "disabled"
	if enabled {
		action = "enabled"
	}
	logger.Info("account status changed", "principal", target.String(), "status", action)
	return nil
}
