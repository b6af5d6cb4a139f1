// Package retry wraps one fallible call with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"

	"vision-navigator/internal/application/port/output"
)

// Policy sleeps BaseDelay * Multiplier^i after failed attempt i (zero based)
// and never sleeps after the last attempt.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64

	// Timer overrides the wait between attempts; nil uses a real timer.
	Timer  backoff.Timer
	Logger output.LoggerPort
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Multiplier:  2,
	}
}

func (p Policy) newBackOff(ctx context.Context) backoff.BackOff {
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	attempts := max(p.MaxAttempts, 1)

	exp := &backoff.ExponentialBackOff{
		InitialInterval:     p.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          multiplier,
		MaxInterval:         time.Duration(math.MaxInt64),
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	exp.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

// Do runs op until it succeeds or the attempts are used up, returning the
// last error unchanged. Context errors from op are not retried.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := op(ctx)
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, delay time.Duration) {
		if p.Logger != nil {
			p.Logger.Warn("Attempt failed, retrying",
				"attempt", attempt,
				"max_attempts", p.MaxAttempts,
				"delay", delay.String(),
				"error", err,
			)
		}
	}

	err := backoff.RetryNotifyWithTimer(operation, p.newBackOff(ctx), notify, p.Timer)
	if err != nil && p.Logger != nil {
		p.Logger.Error("All attempts failed", "attempts", attempt, "error", err)
	}
	return err
}

// Call is Do for operations that produce a value.
func Call[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
