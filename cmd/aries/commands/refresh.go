package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/aries/cmd/aries/handlers"
)

// Refresh returns the command syncing state with Hetzner Cloud.
func Refresh(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Sync state with Hetzner Cloud",
		Long: `Read every resource in state from Hetzner Cloud.

Resources deleted outside aries are removed from state so the next up
creates them again. Changed addresses and attachments are recorded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Refresh(cmd.Context(), opts)
		},
	}
}
