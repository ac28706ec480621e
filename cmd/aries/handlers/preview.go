package handlers

import (
	"context"

	"github.com/imamik/aries/internal/config"
)

// Preview prints the changes "aries up" would make without touching any
// resource.
func Preview(ctx context.Context, opts *Options) (err error) {
	s, err := openSession(ctx, opts, (*config.Config).RequirePlanSecrets)
	if err != nil {
		return err
	}
	defer func() { err = s.close(err) }()

	desired, err := desiredResources(s.cfg)
	if err != nil {
		return err
	}
	plan, err := s.engine.Plan(ctx, desired)
	if err != nil {
		return err
	}

	renderPlan(stdout, plan, s.styled)
	return nil
}
