package navigator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"vision-navigator/internal/application/port/input"
	"vision-navigator/internal/application/port/output"
	"vision-navigator/internal/domain/entity"
	"vision-navigator/internal/infrastructure/prompts"
	"vision-navigator/internal/usecase/decision"
	"vision-navigator/internal/usecase/guard"
	"vision-navigator/internal/usecase/retry"
)

var _ input.Navigator = (*Session)(nil)

// Session runs the vision-guided action loop for one task at a time. Its loop
// history is reset at the start of every Run; separate sessions share nothing.
type Session struct {
	vision  output.VisionPort
	screen  output.ScreenPort
	confirm output.ConfirmationPort
	ui      output.UserInteractionPort
	audit   output.AuditSink
	logger  output.LoggerPort
	cfg     Config

	gate *guard.CriticalGate

	// mu serializes runs and guards loop.
	mu   sync.Mutex
	loop *guard.LoopDetector

	newRequestID func() string
}

// New builds a session. When confirm also implements output.UserInteractionPort
// it is used to display progress.
func New(
	vision output.VisionPort,
	screen output.ScreenPort,
	confirm output.ConfirmationPort,
	audit output.AuditSink,
	logger output.LoggerPort,
	cfg Config,
) *Session {
	if cfg.Retry.Logger == nil {
		cfg.Retry.Logger = logger
	}
	ui, _ := confirm.(output.UserInteractionPort)

	return &Session{
		vision:       vision,
		screen:       screen,
		confirm:      confirm,
		ui:           ui,
		audit:        audit,
		logger:       logger,
		cfg:          cfg,
		gate:         guard.NewCriticalGate(cfg.CriticalKeywords),
		loop:         guard.NewLoopDetector(cfg.LoopBufferSize, cfg.LoopThreshold, cfg.LoopTolerance),
		newRequestID: uuid.NewString,
	}
}

// Decision is the validated outcome of one oracle consultation.
type Decision struct {
	Result entity.NavigationResult
	Raw    string
	// ParseErr is set when the oracle output could not be decoded; Result is then a NoAction.
	ParseErr error
	Verdict  guard.Verdict
}

// DecideNextAction asks the oracle what to do on obs and validates the answer.
// The only error it returns is an exhausted oracle call.
func (s *Session) DecideNextAction(ctx context.Context, task string, obs *entity.Observation) (Decision, error) {
	prompt := prompts.BuildNavigationPrompt(task, obs.Mouse, obs.Screen)

	raw, err := s.ask(ctx, output.VisionRequest{
		Prompt: prompt,
		Images: []entity.Screenshot{obs.Screenshot},
	})
	if err != nil {
		return Decision{}, err
	}

	d := Decision{Raw: raw}
	result, err := decision.Decode(raw)
	if err != nil {
		s.logger.Warn("Oracle response not decodable", "error", err)
		d.ParseErr = err
		result = decision.Fallback(err)
	}

	d.Result, d.Verdict = guard.ValidateCoordinates(result, obs.Screen, s.cfg.BoundsMargin)
	if d.Verdict != guard.Unchanged {
		s.logger.Warn("Coordinates adjusted",
			"verdict", d.Verdict.String(),
			"screen", obs.Screen.String(),
			"result", d.Result.String(),
		)
	}
	return d, nil
}

// VerifyOutcome asks the oracle whether the change from before to after matches expected.
// Undecodable answers count as failure; only an exhausted oracle call is an error.
func (s *Session) VerifyOutcome(ctx context.Context, before, after entity.Screenshot, expected string) (*entity.Verification, error) {
	raw, err := s.ask(ctx, output.VisionRequest{
		Prompt: prompts.BuildVerificationPrompt(expected),
		Images: []entity.Screenshot{before, after},
	})
	if err != nil {
		return nil, err
	}

	v, err := decision.ParseVerification(raw)
	if err != nil {
		s.logger.Warn("Verification response not decodable", "error", err)
	}
	s.logger.Info("Outcome verified", "expected", expected, "success", v.Success, "confidence", v.Confidence)
	return &v, nil
}

// ShouldContinue asks the oracle whether goal needs more actions, given the
// actions of the latest run. It waits for a run in progress to finish.
func (s *Session) ShouldContinue(ctx context.Context, goal string) (*entity.ContinuationAdvice, error) {
	s.mu.Lock()
	history := s.loop.History()
	s.mu.Unlock()

	raw, err := s.ask(ctx, output.VisionRequest{
		Prompt: prompts.BuildContinuationPrompt(goal, history),
	})
	if err != nil {
		return nil, err
	}

	advice, err := decision.ParseContinuation(raw)
	if err != nil {
		s.logger.Warn("Continuation response not decodable", "error", err)
	}
	s.logger.Info("Continuation advised", "goal", goal, "continue", advice.Continue, "next_subtask", advice.NextSubtask)
	return &advice, nil
}

func (s *Session) ask(ctx context.Context, req output.VisionRequest) (string, error) {
	raw, err := retry.Call(ctx, s.cfg.Retry, func(ctx context.Context) (string, error) {
		return s.vision.Analyze(ctx, req)
	})
	if err != nil {
		return "", fmt.Errorf("vision oracle: %w", err)
	}
	return raw, nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
