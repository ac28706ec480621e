package handlers

import (
	"context"
	"errors"

	"github.com/charmbracelet/huh"
)

// errNeedsApproval is returned when confirmation is required but no
// terminal is attached.
var errNeedsApproval = errors.New("refusing to continue without confirmation on a non-interactive terminal, pass --yes")

// confirm asks a yes/no question. Replaced in tests.
var confirm = func(ctx context.Context, title, description string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).RunWithContext(ctx)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// approve returns whether to go ahead. autoApprove skips the prompt.
func approve(ctx context.Context, autoApprove bool, title, description string) (bool, error) {
	if autoApprove {
		return true, nil
	}
	if !isTerminal() {
		return false, errNeedsApproval
	}
	return confirm(ctx, title, description)
}
