package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuriy-kovalchuk/yk-netsync/internal/controller"
	"github.com/yuriy-kovalchuk/yk-netsync/internal/inventory"
)

func (r *root) deviceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Device inventory commands",
	}

	var (
		hostname, ip, deviceType, name string
		groups                         []int
		monitored, snmp                bool
	)
	save := &cobra.Command{
		Use:   "save",
		Short: "Create or update a device",
		Long:  "Create or update a device. On update only the flags given are changed.",
		Args:  cobra.NoArgs,
		RunE: r.run(writeInventory, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}

			hostname := strings.ToLower(strings.TrimSpace(hostname))
			d, err := svc.Device(ctx, hostname)
			switch {
			case errors.Is(err, inventory.ErrNotFound):
				d = inventory.Device{Hostname: hostname}
			case err != nil:
				return err
			}
			d.Groups = nil

			flags := cmd.Flags()
			if flags.Changed("ip") {
				d.IP = ip
			}
			if flags.Changed("type") {
				d.DeviceType = deviceType
			}
			if flags.Changed("name") {
				d.Name = name
			}
			if flags.Changed("group") {
				d.Groups = groups
			}
			if flags.Changed("monitored") {
				d.Monitored = monitored
			}
			if flags.Changed("snmp") {
				d.SNMP = snmp
			}

			saved, err := svc.SaveDevice(ctx, d)
			if saved.Hostname != "" {
				printDevices(cmd, []inventory.Device{saved})
			}
			return err
		}),
	}
	save.Flags().StringVar(&hostname, "hostname", "", "Device hostname")
	save.Flags().StringVar(&ip, "ip", "", "Device IP address")
	save.Flags().StringVar(&deviceType, "type", "", "Device type name")
	save.Flags().StringVar(&name, "name", "", "Display name (default hostname)")
	save.Flags().IntSliceVar(&groups, "group", nil, "Monitoring group id (repeatable)")
	save.Flags().BoolVar(&monitored, "monitored", false, "Monitor the device")
	save.Flags().BoolVar(&snmp, "snmp", false, "Add an SNMP interface when monitored")
	_ = save.MarkFlagRequired("hostname")

	del := &cobra.Command{
		Use:   "delete <hostname>",
		Short: "Delete a device that hosts no subdomains",
		Args:  cobra.ExactArgs(1),
		RunE: r.run(writeInventory, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			return svc.DeleteDevice(ctx, args[0])
		}),
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List devices",
		Args:  cobra.NoArgs,
		RunE: r.run(readInventory, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			devices, err := a.db.Devices(ctx)
			if err != nil {
				return err
			}
			printDevices(cmd, devices)
			return nil
		}),
	}

	show := &cobra.Command{
		Use:   "show <hostname>",
		Short: "Show a device, its monitoring descriptor and hosted subdomains",
		Args:  cobra.ExactArgs(1),
		RunE: r.run(readInventory, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			d, err := a.db.Device(ctx, args[0])
			if err != nil {
				return err
			}
			var templates []int
			if d.DeviceType != "" {
				t, err := a.db.DeviceType(ctx, d.DeviceType)
				if err != nil {
					return err
				}
				templates = t.Templates
			}
			subs, err := a.db.SubdomainsHostedOn(ctx, d.Hostname)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Device %s\n  IP: %s\n  Type: %s\n  Monitored: %s\n  SNMP: %s\n",
				d.Hostname, d.IP, d.DeviceType, yesNo(d.Monitored), yesNo(d.SNMP))
			if len(subs) > 0 {
				fmt.Fprintf(out, "  Subdomains:\n")
				for _, s := range subs {
					fmt.Fprintf(out, "    - %s\n", s.FQDN())
				}
			}
			fmt.Fprint(out, controller.FormatDescriptor(controller.DeviceDescriptor(d, templates)))
			return nil
		}),
	}

	groupsCmd := &cobra.Command{
		Use:   "groups <hostname> [group-id]...",
		Short: "Replace the monitoring groups of a device",
		Args:  cobra.MinimumNArgs(1),
		RunE: r.run(writeInventory, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			d, err := svc.SetDeviceGroups(ctx, args[0], ids)
			if d.Hostname != "" {
				printDevices(cmd, []inventory.Device{d})
			}
			return err
		}),
	}

	cmd.AddCommand(save, del, list, show, groupsCmd)
	return cmd
}

func (r *root) deviceTypeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device-type",
		Short: "Device type commands",
	}

	var templates []int
	save := &cobra.Command{
		Use:   "save <name>",
		Short: "Create or update a device type and its monitoring templates",
		Args:  cobra.ExactArgs(1),
		RunE: r.run(writeInventory, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			t, err := svc.SaveDeviceType(ctx, inventory.DeviceType{Name: args[0], Templates: templates})
			if t.Name != "" {
				printDeviceTypes(cmd, []inventory.DeviceType{t})
			}
			return err
		}),
	}
	save.Flags().IntSliceVar(&templates, "template", nil, "Monitoring template id (repeatable)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List device types",
		Args:  cobra.NoArgs,
		RunE: r.run(readInventory, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			types, err := a.db.DeviceTypes(ctx)
			if err != nil {
				return err
			}
			printDeviceTypes(cmd, types)
			return nil
		}),
	}

	cmd.AddCommand(save, list)
	return cmd
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := strconv.Atoi(arg)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func printDevices(cmd *cobra.Command, devices []inventory.Device) {
	table := newTable(cmd.OutOrStdout(), "Hostname", "Name", "IP", "Type", "Monitored", "SNMP", "Groups")
	for _, d := range devices {
		table.Append([]string{d.Hostname, d.Name, d.IP, d.DeviceType, yesNo(d.Monitored), yesNo(d.SNMP), joinInts(d.Groups)})
	}
	table.Render()
}

func printDeviceTypes(cmd *cobra.Command, types []inventory.DeviceType) {
	table := newTable(cmd.OutOrStdout(), "Name", "Templates")
	for _, t := range types {
		table.Append([]string{t.Name, joinInts(t.Templates)})
	}
	table.Render()
}
