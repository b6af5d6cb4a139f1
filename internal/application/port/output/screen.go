package output

import (
	"context"

	"vision-navigator/internal/domain/entity"
)

// ScreenPort captures the screen and performs decided actions on it.
type ScreenPort interface {
	Capture(ctx context.Context) (*entity.Observation, error)
	Perform(ctx context.Context, result entity.NavigationResult) error
	Close()
}
