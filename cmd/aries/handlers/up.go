package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/aries/internal/config"
	"github.com/imamik/aries/internal/provisioning"
)

// Up brings the stack to the configured state. It previews the plan and
// asks for confirmation unless autoApprove is set.
func Up(ctx context.Context, opts *Options, autoApprove bool) (err error) {
	s, err := openSession(ctx, opts, (*config.Config).RequireDeploySecrets)
	if err != nil {
		return err
	}
	defer func() { err = s.close(err) }()

	desired, err := desiredResources(s.cfg)
	if err != nil {
		return err
	}

	return s.engine.WithLock(ctx, "up", func(ctx context.Context) error {
		plan, err := s.engine.Plan(ctx, desired)
		if err != nil {
			return err
		}
		renderPlan(stdout, plan, s.styled)

		if !plan.HasChanges() {
			fmt.Fprintln(stdout, "\nNo changes. The stack is up to date.")
			st, err := s.engine.Load(ctx)
			if err != nil {
				return err
			}
			renderOutputs(stdout, st.Outputs, s.styled)
			return nil
		}

		ok, err := approve(ctx, autoApprove, "Apply these changes?", fmt.Sprintf("Stack %s", s.cfg.Name))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(stdout, "Aborted.")
			return nil
		}

		res, err := s.engine.Apply(ctx, plan)
		if err != nil {
			return fmt.Errorf("up failed: %w", err)
		}

		fmt.Fprintf(stdout, "\nApplied: %d created, %d updated, %d replaced, %d deleted.\n",
			res.Counts[provisioning.ActionCreate],
			res.Counts[provisioning.ActionUpdate],
			res.Counts[provisioning.ActionReplace],
			res.Counts[provisioning.ActionDelete])
		renderOutputs(stdout, res.State.Outputs, s.styled)
		return nil
	})
}
