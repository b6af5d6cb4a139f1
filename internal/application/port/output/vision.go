package output

import (
	"context"
	"errors"

	"vision-navigator/internal/domain/entity"
)

var (
	// ErrContentBlocked means the oracle answered without usable content,
	// typically because a safety filter withheld it.
	ErrContentBlocked = errors.New("oracle response blocked")
	// ErrTransport wraps network and API failures of the oracle call.
	ErrTransport = errors.New("oracle transport failure")
)

// VisionPort is the inference service that looks at screenshots and answers in text.
type VisionPort interface {
	Analyze(ctx context.Context, req VisionRequest) (string, error)
}

type VisionRequest struct {
	Prompt string
	Images []entity.Screenshot
}
