package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/yuriy-kovalchuk/yk-netsync/internal/dns"
)

func (r *root) dnsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dns",
		Short: "DNS record commands",
		Long:  "Create, delete and inspect records at the configured DNS provider.",
	}

	var provider string
	update := &cobra.Command{
		Use:   "update <hostname> <address>",
		Short: "Point a hostname at an address",
		Args:  cobra.ExactArgs(2),
		RunE: r.run(readInventory, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			f, err := a.automation(ctx)
			if err != nil {
				return err
			}
			hostname, address := args[0], args[1]
			if err := f.UpdateDNS(ctx, hostname, address, a.registrar(hostname, provider)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", hostname, address)
			return nil
		}),
	}
	update.Flags().StringVarP(&provider, "provider", "p", "", "Registrar name recorded with the change (default from dns.registrars)")

	del := &cobra.Command{
		Use:   "delete <hostname>",
		Short: "Delete the record of a hostname",
		Args:  cobra.ExactArgs(1),
		RunE: r.run(readInventory, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			f, err := a.automation(ctx)
			if err != nil {
				return err
			}
			if err := f.DeleteDNS(ctx, args[0], a.registrar(args[0], provider)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s deleted\n", args[0])
			return nil
		}),
	}
	del.Flags().StringVarP(&provider, "provider", "p", "", "Registrar name recorded with the change (default from dns.registrars)")

	var refresh bool
	records := &cobra.Command{
		Use:   "records <domain>",
		Short: "List the records of a domain",
		Args:  cobra.ExactArgs(1),
		RunE: r.run(readInventory, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			f, err := a.automation(ctx)
			if err != nil {
				return err
			}
			client, err := f.DNS()
			if err != nil {
				return err
			}
			recs, err := client.Records(ctx, args[0], refresh)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no records for %s\n", args[0])
				return nil
			}
			printRecords(cmd, recs)
			return nil
		}),
	}
	records.Flags().BoolVar(&refresh, "refresh", false, "Bypass the record cache")

	var server string
	lookup := &cobra.Command{
		Use:   "lookup <hostname>",
		Short: "Resolve a hostname against a DNS server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			answers, err := dns.Lookup(cmd.Context(), server, args[0])
			if err != nil {
				return err
			}
			if len(answers) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: no answer\n", args[0])
				return nil
			}
			table := newTable(cmd.OutOrStdout(), "Name", "Type", "Content", "TTL")
			for _, ans := range answers {
				table.Append([]string{ans.Name, ans.Type, ans.Content, strconv.FormatUint(uint64(ans.TTL), 10)})
			}
			table.Render()
			return nil
		},
	}
	lookup.Flags().StringVarP(&server, "server", "s", dns.DefaultResolver, "DNS server to query (host:port)")

	cmd.AddCommand(update, del, records, lookup)
	return cmd
}

// registrar picks the registrar name for hostname: the flag, then the
// registrar map, then the configured DNS provider.
func (a *app) registrar(hostname, flag string) string {
	if flag != "" {
		return flag
	}
	if name, ok := a.cfg.DNS.Registrars.Lookup(hostname); ok {
		return name
	}
	return a.cfg.DNS.Provider
}

func printRecords(cmd *cobra.Command, recs []dns.Record) {
	table := newTable(cmd.OutOrStdout(), "Name", "Type", "Content", "TTL", "ID")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_LEFT})
	for _, rec := range recs {
		table.Append([]string{rec.Name, rec.Type, truncate(rec.Content, 48), strconv.Itoa(rec.TTL), rec.ID})
	}
	table.Render()
}
