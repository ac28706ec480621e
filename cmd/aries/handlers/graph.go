package handlers

import (
	"fmt"

	"github.com/imamik/aries/internal/provisioning"
)

// Graph formats accepted by --format.
const (
	GraphFormatDOT     = "dot"
	GraphFormatMermaid = "mermaid"
	GraphFormatText    = "text"
)

// Graph prints the dependency graph of the configured resources.
func Graph(opts *Options, format string) error {
	switch format {
	case GraphFormatDOT, GraphFormatMermaid, GraphFormatText:
	default:
		return fmt.Errorf("unknown graph format %q (expected %s, %s or %s)", format, GraphFormatDOT, GraphFormatMermaid, GraphFormatText)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	desired, err := desiredResources(cfg)
	if err != nil {
		return err
	}
	g, err := provisioning.BuildGraph(desired)
	if err != nil {
		return err
	}

	switch format {
	case GraphFormatMermaid:
		fmt.Fprint(stdout, g.Mermaid())
	case GraphFormatText:
		renderGraph(stdout, g, isTerminal())
	default:
		fmt.Fprint(stdout, g.DOT())
	}
	return nil
}
