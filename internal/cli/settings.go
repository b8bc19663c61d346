package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yuriy-kovalchuk/yk-netsync/internal/inventory"
)

func (r *root) settingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Settings store commands",
		Long:  "Manage named settings. CLOUDFLARE_API_KEY, ZABBIX_URL, ZABBIX_USERNAME and ZABBIX_PASSWORD fill backend credentials the config file leaves empty.",
	}

	var description string
	set := &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Store a setting",
		Args:  cobra.ExactArgs(2),
		RunE: r.run(writeInventory, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			return a.db.SetSetting(ctx, args[0], args[1], description)
		}),
	}
	set.Flags().StringVarP(&description, "description", "d", "", "What the setting is for")

	get := &cobra.Command{
		Use:   "get <name>",
		Short: "Print a setting value",
		Args:  cobra.ExactArgs(1),
		RunE: r.run(readInventory, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			s, err := a.db.GetSetting(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.Value)
			return nil
		}),
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List settings without their values",
		Args:  cobra.NoArgs,
		RunE: r.run(readInventory, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			settings, err := a.db.Settings(ctx)
			if err != nil {
				return err
			}
			printSettings(cmd, settings)
			return nil
		}),
	}

	unset := &cobra.Command{
		Use:   "unset <name>",
		Short: "Remove a setting",
		Args:  cobra.ExactArgs(1),
		RunE: r.run(writeInventory, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			return a.db.UnsetSetting(ctx, args[0])
		}),
	}

	cmd.AddCommand(set, get, list, unset)
	return cmd
}

func printSettings(cmd *cobra.Command, settings []inventory.Setting) {
	table := newTable(cmd.OutOrStdout(), "Name", "Configured", "Description")
	for _, s := range settings {
		table.Append([]string{s.Name, s.Configured(), s.Description})
	}
	table.Render()
}
