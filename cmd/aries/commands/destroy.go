package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/aries/cmd/aries/handlers"
)

// Destroy returns the destroy command.
func Destroy(opts *handlers.Options) *cobra.Command {
	var (
		yes        bool
		orphans    bool
		purgeState bool
	)

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete every resource of the stack",
		Long: `Delete every resource recorded in state, in reverse dependency order.

Delete commands run on the server before it is removed: k3s is stopped
and the data volume unmounted with the default configuration.

With --orphans, servers, volumes, primary IPs and SSH keys labelled with
the stack name are deleted as well, even when state does not know them.

With --purge-state, the emptied state and its backup are removed from the
backend once every resource is gone.

WARNING: This operation is irreversible. All data on the volume is lost.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Destroy(cmd.Context(), opts, yes, orphans, purgeState)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().BoolVar(&orphans, "orphans", false, "Also delete labelled resources missing from state")
	cmd.Flags().BoolVar(&purgeState, "purge-state", false, "Remove the state and its backup after destroying")

	return cmd
}
