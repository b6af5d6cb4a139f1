package navigator

import (
	"fmt"

	"vision-navigator/internal/usecase/guard"
	"vision-navigator/internal/usecase/retry"
)

// LowConfidencePolicy decides what a below-threshold decision does to the session.
type LowConfidencePolicy string

const (
	// LowConfidenceContinue records the step as skipped and moves on.
	LowConfidenceContinue LowConfidencePolicy = "continue"
	// LowConfidenceStop ends the session.
	LowConfidenceStop LowConfidencePolicy = "stop"
)

func ParseLowConfidencePolicy(s string) (LowConfidencePolicy, error) {
	switch p := LowConfidencePolicy(s); p {
	case LowConfidenceContinue, LowConfidenceStop:
		return p, nil
	}
	return "", fmt.Errorf("unknown low confidence policy %q, want %q or %q", s, LowConfidenceContinue, LowConfidenceStop)
}

// Config is the per-session state that stays fixed for a run.
type Config struct {
	MaxIterations       int
	ConfidenceThreshold float64
	CriticalKeywords    []string
	LoopThreshold       int
	LoopBufferSize      int
	LoopTolerance       int
	BoundsMargin        int
	LowConfidence       LowConfidencePolicy
	Retry               retry.Policy
}

func DefaultConfig() Config {
	return Config{
		MaxIterations:       10,
		ConfidenceThreshold: 0.6,
		CriticalKeywords:    guard.DefaultCriticalKeywords(),
		LoopThreshold:       guard.DefaultLoopThreshold,
		LoopBufferSize:      guard.DefaultLoopBufferSize,
		LoopTolerance:       guard.DefaultLoopTolerance,
		BoundsMargin:        guard.DefaultBoundsMargin,
		LowConfidence:       LowConfidenceContinue,
		Retry:               retry.DefaultPolicy(),
	}
}
