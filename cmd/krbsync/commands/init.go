package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/krbsync/krbsync/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Write a configuration file with every default filled in to the
--config path (or the default location). Existing files are preserved
unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath
	}

	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}
	}

	sample := config.GetDefaultConfig()
	sample.AD.Realm = "AD.EXAMPLE.COM"
	sample.AD.AdminServer = "dc.ad.example.com"
	sample.AD.Keytab = "/etc/krbsync/ad.keytab"
	sample.AD.Principal = "service/krbsync@AD.EXAMPLE.COM"
	sample.AD.LDAPBase = "ou=Accounts,dc=ad,dc=example,dc=com"
	sample.Queue.Dir = "/var/spool/krbsync"

	if err := config.SaveConfig(sample, path); err != nil {
		return err
	}
	fmt.Printf("Wrote sample configuration to %s\n", path)
	return nil
}
