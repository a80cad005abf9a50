// Package commands implements the CLI commands for the krbsync tool.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/krbsync/krbsync/internal/logger"
	"github.com/krbsync/krbsync/pkg/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	configPath string
	cfg        *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "krbsync",
	Short: "Propagate Kerberos account changes to Active Directory",
	Long: `krbsync propagates password changes and account enable/disable
events from a Kerberos KDC to Active Directory.

The same synchronization core runs inside the KDC administration daemon;
this tool exercises it by hand and replays the durable retry queue of
changes that could not be pushed directly.

Use "krbsync [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		return logger.Init(logger.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: cfg.Logging.Output,
		})
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default: "+config.DefaultConfigPath+")")

	rootCmd.AddCommand(passwordCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
