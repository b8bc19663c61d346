// Package cli implements the yk-netsync command tree.
package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time.
var Version = "dev"

type root struct {
	v *viper.Viper
}

// NewRootCommand builds the full command tree. Global flags can also be set
// through NETSYNC_* environment variables.
func NewRootCommand() *cobra.Command {
	r := &root{v: viper.New()}

	cmd := &cobra.Command{
		Use:          "yk-netsync",
		Short:        "Keep DNS and monitoring in sync with a device inventory",
		Long:         "yk-netsync owns a small device and subdomain inventory and reconciles Cloudflare or OPNsense DNS and Zabbix monitoring whenever it changes.",
		Version:      Version,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringP("config", "c", "", "Configuration file (default "+defaultConfigHint+")")
	flags.String("db", "", "Inventory database path (overrides inventory.path)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.Bool("dev", false, "Human-friendly development logging")
	flags.Bool("offline", false, "Change the inventory without reconciling DNS or monitoring")

	r.v.SetEnvPrefix("NETSYNC")
	r.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	r.v.AutomaticEnv()
	for _, name := range []string{"config", "db", "log-level", "dev", "offline"} {
		_ = r.v.BindPFlag(name, flags.Lookup(name))
	}

	cmd.AddCommand(
		r.dnsCommand(),
		r.monitoringCommand(),
		r.deviceCommand(),
		r.deviceTypeCommand(),
		r.domainCommand(),
		r.subdomainCommand(),
		r.settingsCommand(),
		hostnameCommand(),
	)
	return cmd
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
