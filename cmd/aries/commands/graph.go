package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/aries/cmd/aries/handlers"
)

// Graph returns the command exporting the dependency graph.
func Graph(opts *handlers.Options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the resource dependency graph",
		Long: `Print the dependency graph of the configured resources as Graphviz DOT,
Mermaid, or a text list of each resource's dependencies and dependents.

Example:
  aries graph | dot -Tsvg > graph.svg`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.Graph(opts, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", handlers.GraphFormatDOT, "Output format: dot, mermaid or text")

	return cmd
}
