package output

import (
	"context"

	"vision-navigator/internal/domain/entity"
)

// ConfirmationPort gates critical actions behind an external yes/no answer.
type ConfirmationPort interface {
	Confirm(ctx context.Context, result entity.NavigationResult, matched []string) (bool, error)
}

type UserInteractionPort interface {
	ConfirmationPort

	ShowIteration(ctx context.Context, iteration, maxIterations int)
	ShowDecision(ctx context.Context, result entity.NavigationResult)
	ShowWarning(ctx context.Context, message string)
}
