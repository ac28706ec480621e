package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/aries/cmd/aries/handlers"
)

// Up returns the command applying the configuration.
func Up(opts *handlers.Options) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Create or update the stack",
		Long: `Bring the stack to the configured state.

The plan is printed first and applied after confirmation. Deletions and
the delete half of replacements run first, in reverse dependency order,
then creations and updates in dependency order. State is saved after
every step, so an interrupted run continues where it stopped.

Example:
  aries up --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Up(cmd.Context(), opts, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
