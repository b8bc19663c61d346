package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/yuriy-kovalchuk/yk-netsync/internal/automation"
	"github.com/yuriy-kovalchuk/yk-netsync/internal/controller"
	"github.com/yuriy-kovalchuk/yk-netsync/internal/monitoring"
)

func (r *root) monitoringCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitoring",
		Short: "Monitored host commands",
		Long:  "Create, reconcile or delete a monitored host from a YAML device descriptor.",
	}

	type op struct {
		use, short string
		call       func(f *automation.Facade, ctx context.Context, d monitoring.Descriptor) error
	}
	ops := []op{
		{"create", "Create the host described by the descriptor", (*automation.Facade).CreateDeviceMonitoring},
		{"update", "Reconcile the host with the descriptor, creating it when missing", (*automation.Facade).UpdateDeviceMonitoring},
		{"delete", "Delete the host named by the descriptor", (*automation.Facade).DeleteDeviceMonitoring},
	}

	for _, o := range ops {
		var file string
		sub := &cobra.Command{
			Use:   o.use + " -f <descriptor.yaml>",
			Short: o.short,
			Args:  cobra.NoArgs,
			RunE: r.run(readInventory, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
				desc, err := loadDescriptor(file)
				if err != nil {
					return err
				}
				f, err := a.automation(ctx)
				if err != nil {
					return err
				}
				if err := o.call(f, ctx, desc); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s", o.use, controller.FormatDescriptor(desc))
				return nil
			}),
		}
		sub.Flags().StringVarP(&file, "file", "f", "", "Device descriptor file")
		_ = sub.MarkFlagRequired("file")
		cmd.AddCommand(sub)
	}
	return cmd
}

func loadDescriptor(path string) (monitoring.Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return monitoring.Descriptor{}, fmt.Errorf("reading descriptor: %w", err)
	}
	defer f.Close()

	var d monitoring.Descriptor
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return monitoring.Descriptor{}, fmt.Errorf("parsing descriptor %s: %w", path, err)
	}
	if d.Name == "" {
		d.Name = d.Hostname
	}
	if err := d.Validate(); err != nil {
		return monitoring.Descriptor{}, err
	}
	return d, nil
}
