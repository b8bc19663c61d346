package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yuriy-kovalchuk/yk-netsync/internal/inventory"
)

func (r *root) domainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domain",
		Short: "Domain commands",
	}

	var registrar string
	save := &cobra.Command{
		Use:   "save <name>",
		Short: "Create a domain or change its registrar",
		Args:  cobra.ExactArgs(1),
		RunE: r.run(writeInventory, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			d, err := svc.SaveDomain(ctx, inventory.Domain{Name: args[0], Registrar: registrar})
			if err != nil {
				return err
			}
			printDomains(cmd, []inventory.Domain{d})
			return nil
		}),
	}
	save.Flags().StringVarP(&registrar, "registrar", "r", "", "Registrar name passed with DNS changes")

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a domain that has no subdomains",
		Args:  cobra.ExactArgs(1),
		RunE: r.run(writeInventory, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			return svc.DeleteDomain(ctx, args[0])
		}),
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List domains",
		Args:  cobra.NoArgs,
		RunE: r.run(readInventory, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			domains, err := a.db.Domains(ctx)
			if err != nil {
				return err
			}
			printDomains(cmd, domains)
			return nil
		}),
	}

	cmd.AddCommand(save, del, list)
	return cmd
}

func (r *root) subdomainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subdomain",
		Short: "Subdomain commands",
		Long:  "Manage subdomains. Saving or deleting a subdomain updates its DNS record.",
	}

	save := &cobra.Command{
		Use:   "save <name> <domain> <device-hostname>",
		Short: "Point a subdomain at a device",
		Args:  cobra.ExactArgs(3),
		RunE: r.run(writeInventory, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			s, err := svc.SaveSubdomain(ctx, args[0], args[1], args[2])
			if s.Name != "" {
				printSubdomains(cmd, []inventory.Subdomain{s})
			}
			return err
		}),
	}

	del := &cobra.Command{
		Use:   "delete <name> <domain>",
		Short: "Delete a subdomain and its DNS record",
		Args:  cobra.ExactArgs(2),
		RunE: r.run(writeInventory, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			return svc.DeleteSubdomain(ctx, args[0], args[1])
		}),
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List subdomains",
		Args:  cobra.NoArgs,
		RunE: r.run(readInventory, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			subs, err := a.db.Subdomains(ctx)
			if err != nil {
				return err
			}
			printSubdomains(cmd, subs)
			return nil
		}),
	}

	cmd.AddCommand(save, del, list)
	return cmd
}

func printDomains(cmd *cobra.Command, domains []inventory.Domain) {
	table := newTable(cmd.OutOrStdout(), "Domain", "Registrar")
	for _, d := range domains {
		table.Append([]string{d.Name, d.Registrar})
	}
	table.Render()
}

func printSubdomains(cmd *cobra.Command, subs []inventory.Subdomain) {
	table := newTable(cmd.OutOrStdout(), "FQDN", "Hosted On", "IP", "Registrar")
	for _, s := range subs {
		table.Append([]string{s.FQDN(), s.HostedOn, s.HostIP, s.Registrar})
	}
	table.Render()
}
