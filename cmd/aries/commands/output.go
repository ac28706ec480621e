package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/aries/cmd/aries/handlers"
)

// Output returns the command printing stack outputs.
func Output(opts *handlers.Options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "output [name]",
		Short: "Print the stack outputs",
		Long: `Print the outputs recorded by the last up or refresh.

With a name only that value is printed, which is handy in scripts:

  ssh root@$(aries output server_ipv4)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return handlers.Output(cmd.Context(), opts, name, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	return cmd
}
