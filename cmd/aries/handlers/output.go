package handlers

import (
	"context"
	"encoding/json"
	"fmt"
)

// Output prints the stack outputs recorded by the last run. With a name only
// that value is printed, unstyled, so it can be used in scripts.
func Output(ctx context.Context, opts *Options, name string, asJSON bool) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if err := cfg.RequireStateSecrets(); err != nil {
		return err
	}
	backend, err := newStateBackend(ctx, cfg)
	if err != nil {
		return err
	}
	st, err := backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load state from %s: %w", backend, err)
	}

	outputs := st.Outputs
	if outputs == nil {
		outputs = map[string]string{}
	}

	if name != "" {
		v, ok := outputs[name]
		if !ok {
			return fmt.Errorf("output %q not found in state of stack %s", name, cfg.Name)
		}
		if asJSON {
			return writeJSON(v)
		}
		fmt.Fprintln(stdout, v)
		return nil
	}

	if asJSON {
		return writeJSON(outputs)
	}
	if len(outputs) == 0 {
		fmt.Fprintf(stdout, "Stack %s has no outputs, run 'aries up' first.\n", cfg.Name)
		return nil
	}
	renderOutputs(stdout, outputs, isTerminal())
	return nil
}

func writeJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode outputs: %w", err)
	}
	fmt.Fprintln(stdout, string(data))
	return nil
}
