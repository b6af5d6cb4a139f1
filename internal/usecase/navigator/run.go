package navigator

import (
	"context"
	"fmt"

	"vision-navigator/internal/application/port/input"
	"vision-navigator/internal/application/port/output"
	"vision-navigator/internal/domain/entity"
	"vision-navigator/internal/usecase/guard"
)

// run holds what one Run accumulates.
type run struct {
	task      string
	requestID string
	log       output.LoggerPort
	outcome   *input.SessionOutcome
	// next is the follow-up observation to reuse instead of capturing again.
	next *entity.Observation
}

// Run drives the loop until the task completes or a stop condition fires.
// The outcome is always returned; the error is non-nil only when the oracle
// is exhausted, the screen cannot be captured, or ctx is cancelled.
func (s *Session) Run(ctx context.Context, task string) (*input.SessionOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loop.Reset()

	requestID := s.newRequestID()
	r := &run{
		task:      task,
		requestID: requestID,
		log:       s.logger.WithFields(map[string]any{"request_id": requestID}),
		outcome: &input.SessionOutcome{
			RequestID: requestID,
			Final:     entity.NoAction("Session ended before any decision was made"),
		},
	}

	r.log.Info("Navigation session started", "task", task, "max_iterations", s.cfg.MaxIterations)

	for iteration := 1; iteration <= s.cfg.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return s.finish(r, input.StopCancelled, "Session cancelled: "+err.Error()), err
		}

		r.outcome.Iterations = iteration
		if s.ui != nil {
			s.ui.ShowIteration(ctx, iteration, s.cfg.MaxIterations)
		}

		reason, warning, err := s.step(ctx, r, iteration)
		if err != nil {
			return s.finish(r, reason, warning), err
		}
		if reason != "" {
			return s.finish(r, reason, warning), nil
		}

		if reached, warning := guard.CheckIterationLimit(iteration, s.cfg.MaxIterations); reached {
			return s.finish(r, input.StopIterationLimit, warning), nil
		}
	}

	// MaxIterations < 1 runs no iteration at all.
	_, warning := guard.CheckIterationLimit(0, s.cfg.MaxIterations)
	return s.finish(r, input.StopIterationLimit, warning), nil
}

func (s *Session) finish(r *run, reason input.StopReason, warning string) *input.SessionOutcome {
	r.outcome.Reason = reason
	r.outcome.Warning = warning

	fields := []any{
		"reason", string(reason),
		"iterations", r.outcome.Iterations,
		"final", r.outcome.Final.String(),
	}
	if warning != "" {
		fields = append(fields, "warning", warning)
	}
	if reason == input.StopCompleted {
		r.log.Info("Navigation session finished", fields...)
	} else {
		r.log.Warn("Navigation session stopped", fields...)
		if s.ui != nil && warning != "" {
			s.ui.ShowWarning(context.Background(), warning)
		}
	}
	return r.outcome
}

// step runs one iteration and records exactly one audit entry for it. A
// non-empty reason ends the session.
func (s *Session) step(ctx context.Context, r *run, iteration int) (input.StopReason, string, error) {
	log := r.log.WithField("iteration", iteration)

	obs := r.next
	r.next = nil
	if obs == nil {
		var err error
		obs, err = s.screen.Capture(ctx)
		if err != nil {
			reason := input.StopCaptureFailure
			if isCancellation(err) {
				reason = input.StopCancelled
			}
			msg := fmt.Sprintf("Screen capture failed: %v", err)
			s.record(r, iteration, &entity.Observation{}, entity.NoAction(msg), entity.AuditError, err.Error())
			return reason, msg, fmt.Errorf("capture screen: %w", err)
		}
	}

	d, err := s.DecideNextAction(ctx, r.task, obs)
	if err != nil {
		reason := input.StopOracleFailure
		if isCancellation(err) {
			reason = input.StopCancelled
		}
		msg := fmt.Sprintf("Oracle call failed after %d attempts: %v", s.cfg.Retry.MaxAttempts, err)
		s.record(r, iteration, obs, entity.NoAction(msg), entity.AuditError, err.Error())
		return reason, msg, err
	}

	result := d.Result
	r.outcome.Final = result
	if s.ui != nil {
		s.ui.ShowDecision(ctx, result)
	}

	log.Info("Decision received",
		"action", result.Action().String(),
		"confidence", result.Confidence(),
		"verdict", d.Verdict.String(),
	)

	if d.ParseErr != nil {
		s.record(r, iteration, obs, result, entity.AuditSkipped, d.ParseErr.Error())
		return "", "", nil
	}

	if result.Action() == entity.ActionComplete {
		s.record(r, iteration, obs, result, entity.AuditSuccess, "")
		return input.StopCompleted, "", nil
	}
	if !result.Action().Executable() {
		errText := ""
		if d.Verdict == guard.Rejected {
			errText = "coordinates out of bounds"
		}
		s.record(r, iteration, obs, result, entity.AuditSkipped, errText)
		return "", "", nil
	}

	if result.Confidence() < s.cfg.ConfidenceThreshold {
		note := fmt.Sprintf("[Confidence %.2f below threshold %.2f]", result.Confidence(), s.cfg.ConfidenceThreshold)
		downgraded := result.Downgrade(note)
		r.outcome.Final = downgraded
		s.record(r, iteration, obs, downgraded, entity.AuditSkipped, "low confidence")

		if s.cfg.LowConfidence == LowConfidenceStop {
			return input.StopLowConfidence, "Stopped: " + note, nil
		}
		return "", "", nil
	}

	if critical, matched := s.gate.Evaluate(result); critical {
		log.Warn("Critical action requires confirmation", "matched", matched)
		approved, err := s.confirm.Confirm(ctx, result, matched)
		if err != nil {
			if isCancellation(err) {
				s.record(r, iteration, obs, result.Downgrade("[Confirmation cancelled]"), entity.AuditSkipped, err.Error())
				return input.StopCancelled, "Session cancelled during confirmation", err
			}
			log.Error("Confirmation failed, treating as denied", "error", err)
		}
		if !approved {
			denied := result.Downgrade(fmt.Sprintf("[Critical action denied: %v]", matched))
			r.outcome.Final = denied
			errText := ""
			if err != nil {
				errText = err.Error()
			}
			s.record(r, iteration, obs, denied, entity.AuditSkipped, errText)
			return "", "", nil
		}
		log.Info("Critical action approved", "matched", matched)
	}

	if p, ok := result.Coordinates(); ok {
		if check := s.loop.Check(p); check.Detected {
			s.record(r, iteration, obs, result, entity.AuditSkipped, check.Warning)
			return input.StopLoopDetected, check.Warning, nil
		}
	}

	if err := s.screen.Perform(ctx, result); err != nil {
		log.Error("Action failed", "action", result.String(), "error", err)
		s.record(r, iteration, obs, result, entity.AuditError, err.Error())
		return "", "", nil
	}
	s.loop.Record(result.Action(), result.CoordinatesPtr())

	if result.RequiresFollowup() {
		next, err := s.screen.Capture(ctx)
		if err != nil {
			log.Warn("Follow-up capture failed, next iteration captures again", "error", err)
		} else {
			r.next = next
		}
	}

	s.record(r, iteration, obs, result, entity.AuditSuccess, "")
	return "", "", nil
}

func (s *Session) record(r *run, iteration int, obs *entity.Observation, result entity.NavigationResult, status entity.AuditStatus, errText string) {
	entry := entity.NewAuditEntry(entity.AuditRecord{
		RequestID:       r.requestID,
		Iteration:       iteration,
		TaskDescription: r.task,
		ScreenshotPath:  obs.ScreenshotRef,
		MouseBefore:     obs.Mouse,
		Result:          result,
		Status:          status,
		Error:           errText,
	})
	s.audit.Append(entry)
	r.outcome.Entries = append(r.outcome.Entries, entry)
}
