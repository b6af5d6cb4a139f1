package input

import (
	"context"

	"vision-navigator/internal/domain/entity"
)

type StopReason string

const (
	StopCompleted      StopReason = "completed"
	StopLoopDetected   StopReason = "loop_detected"
	StopIterationLimit StopReason = "iteration_limit"
	StopLowConfidence  StopReason = "low_confidence"
	StopCancelled      StopReason = "cancelled"
	StopOracleFailure  StopReason = "oracle_failure"
	StopCaptureFailure StopReason = "capture_failure"
)

// SessionOutcome summarizes a finished navigation session, including partial results.
type SessionOutcome struct {
	RequestID  string
	Reason     StopReason
	Iterations int
	Final      entity.NavigationResult
	Warning    string
	Entries    []entity.AuditEntry
}

func (o *SessionOutcome) Completed() bool {
	return o.Reason == StopCompleted
}

type Navigator interface {
	Run(ctx context.Context, task string) (*SessionOutcome, error)
	VerifyOutcome(ctx context.Context, before, after entity.Screenshot, expected string) (*entity.Verification, error)
	ShouldContinue(ctx context.Context, goal string) (*entity.ContinuationAdvice, error)
}
