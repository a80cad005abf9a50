package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krbsync/krbsync/pkg/hook"
)

var enableCmd = &cobra.Command{
	Use:   "enable <principal>",
	Short: "Enable the matching Active Directory account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(args[0], true)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <principal>",
	Short: "Disable the matching Active Directory account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(args[0], false)
	},
}

func runStatus(name string, enabled bool) error {
	h, err := hook.New(cfg)
	if err != nil {
		return err
	}
	if err := h.PostcommitStatus(name, enabled); err != nil {
		return err
	}
	state := "disable"
	if enabled {
		state = "enable"
	}
	fmt.Printf("Account %s for %s accepted\n", state, name)
	return nil
}
