// Package commands defines the CLI command structure and flag bindings.
//
// Command execution is delegated to functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/aries/cmd/aries/handlers"
)

// Root returns the root command for the aries CLI. The global flags are
// bound to one handlers.Options shared by all subcommands.
func Root() *cobra.Command {
	opts := &handlers.Options{}

	cmd := &cobra.Command{
		Use:           "aries",
		Short:         "Provision a single server stack on Hetzner Cloud",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to aries.yaml (default: search the current directory and its parents)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", handlers.LogFormatText, "Log format: text or json")
	cmd.PersistentFlags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics of the run to this file")

	cmd.AddCommand(Init())
	cmd.AddCommand(Preview(opts))
	cmd.AddCommand(Up(opts))
	cmd.AddCommand(Destroy(opts))
	cmd.AddCommand(Refresh(opts))
	cmd.AddCommand(Output(opts))
	cmd.AddCommand(Graph(opts))
	cmd.AddCommand(Version())

	return cmd
}
