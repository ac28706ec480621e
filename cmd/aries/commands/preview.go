package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/aries/cmd/aries/handlers"
)

// Preview returns the command printing the planned changes.
func Preview(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Show the changes up would make",
		Long: `Compare the configuration with the recorded state and print the plan.

Each resource is marked as created (+), updated (~), replaced (-/+) or
deleted (-). Changed properties are listed below their resource. Nothing
is changed in Hetzner Cloud.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Preview(cmd.Context(), opts)
		},
	}
}
