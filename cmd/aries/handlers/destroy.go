package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/aries/internal/config"
	"github.com/imamik/aries/internal/provisioning"
	"github.com/imamik/aries/internal/util/labels"
)

// Destroy deletes every resource recorded in state. Remote delete hooks run
// before the server they target goes away. With orphans set, resources that
// carry the stack's labels but are missing from state are removed too. With
// purgeState the emptied state and its backup are removed afterwards.
func Destroy(ctx context.Context, opts *Options, autoApprove, orphans, purgeState bool) (err error) {
	s, err := openSession(ctx, opts, (*config.Config).RequireDestroySecrets)
	if err != nil {
		return err
	}
	defer func() { err = s.close(err) }()

	return s.engine.WithLock(ctx, "destroy", func(ctx context.Context) error {
		st, err := s.engine.Load(ctx)
		if err != nil {
			return err
		}
		if st.Empty() && !orphans {
			fmt.Fprintf(stdout, "Nothing to destroy, stack %s has no resources in state.\n", s.cfg.Name)
			if purgeState {
				return purge(ctx, s)
			}
			return nil
		}

		if !st.Empty() {
			renderDestroyPlan(stdout, st, s.styled)
		}
		description := "This cannot be undone."
		if orphans {
			description = "Labelled resources missing from state are deleted too. " + description
		}
		ok, err := approve(ctx, autoApprove, fmt.Sprintf("Destroy stack %s?", s.cfg.Name), description)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(stdout, "Aborted.")
			return nil
		}

		res, err := s.engine.Destroy(ctx)
		if err != nil {
			return fmt.Errorf("destroy failed: %w", err)
		}

		if orphans {
			selector := labels.NewLabelBuilder(s.cfg.Name).Build()
			if err := s.infra.CleanupByLabel(ctx, selector); err != nil {
				return fmt.Errorf("failed to clean up orphaned resources: %w", err)
			}
		}

		fmt.Fprintf(stdout, "Destroyed %d resources of stack %s.\n", res.Counts[provisioning.ActionDelete], s.cfg.Name)
		if purgeState {
			return purge(ctx, s)
		}
		return nil
	})
}

func purge(ctx context.Context, s *session) error {
	if err := s.engine.PurgeState(ctx); err != nil {
		return fmt.Errorf("failed to remove state: %w", err)
	}
	fmt.Fprintf(stdout, "Removed the state of stack %s.\n", s.cfg.Name)
	return nil
}
