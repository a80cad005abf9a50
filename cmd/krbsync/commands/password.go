package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krbsync/krbsync/internal/cli/prompt"
	"github.com/krbsync/krbsync/pkg/hook"
)

var passwordValue string

var passwordCmd = &cobra.Command{
	Use:   "password <principal>",
	Short: "Synchronize a password change to Active Directory",
	Long: `Push a password change for a principal to Active Directory, exactly
as the KDC hook would on a real password change. If the direct push
fails, the change is written to the retry queue.

Examples:
  # Prompt for the new password
  krbsync password alice@EXAMPLE.COM

  # Password on the command line (visible in process listings)
  krbsync password alice@EXAMPLE.COM -p secret`,
	Args: cobra.ExactArgs(1),
	RunE: runPassword,
}

func init() {
	passwordCmd.Flags().StringVarP(&passwordValue, "password", "p", "", "New password (prompted when omitted)")
}

func runPassword(cmd *cobra.Command, args []string) error {
	password := passwordValue
	if password == "" {
		var err error
		password, err = prompt.NewPassword("New password")
		if err != nil {
			return err
		}
	}

	h, err := hook.New(cfg)
	if err != nil {
		return err
	}
	if err := h.PrecommitPassword(args[0], password); err != nil {
		return err
	}
	fmt.Printf("Password change for %s accepted\n", args[0])
	return nil
}
