package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/aries/internal/config"
)

// Refresh reads every resource in state from Hetzner Cloud, dropping the
// ones deleted outside aries and recording changed outputs.
func Refresh(ctx context.Context, opts *Options) (err error) {
	s, err := openSession(ctx, opts, (*config.Config).RequireRefreshSecrets)
	if err != nil {
		return err
	}
	defer func() { err = s.close(err) }()

	return s.engine.WithLock(ctx, "refresh", func(ctx context.Context) error {
		rep, err := s.engine.Refresh(ctx)
		if err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}

		if len(rep.Gone) == 0 && len(rep.Changed) == 0 {
			fmt.Fprintln(stdout, "State is in sync.")
			return nil
		}
		for _, id := range rep.Gone {
			fmt.Fprintf(stdout, "  %s no longer exists and was removed from state\n", id)
		}
		for _, id := range rep.Changed {
			fmt.Fprintf(stdout, "  %s outputs updated\n", id)
		}
		renderOutputs(stdout, rep.State.Outputs, s.styled)
		return nil
	})
}
