package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yuriy-kovalchuk/yk-netsync/internal/automation"
)

func hostnameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hostname <url>",
		Short: "Print the host component of a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), automation.GetHostname(args[0]))
			return nil
		},
	}
}
