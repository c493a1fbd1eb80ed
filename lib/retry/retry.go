package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds how often a unit of work is attempted and how long to wait
// between attempts.
type Policy struct {
	// MaxAttempts includes the first attempt, values below 1 are treated as 1.
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// Jitter is the randomization factor applied to each interval, 0 makes
	// the schedule deterministic.
	Jitter float64
	// Timer is used to wait between attempts, nil uses a real timer.
	Timer backoff.Timer
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2,
		Jitter:          0.25,
	}
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		exp.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		exp.MaxInterval = p.MaxInterval
	}
	if p.Multiplier > 0 {
		exp.Multiplier = p.Multiplier
	}
	exp.RandomizationFactor = p.Jitter
	exp.MaxElapsedTime = 0

	return backoff.WithContext(
		backoff.WithMaxRetries(exp, uint64(p.attempts()-1)),
		ctx,
	)
}

// Do runs op until it succeeds, returns an error that retryable rejects, or
// the attempt budget is spent. It returns the number of attempts made and the
// last error.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error, retryable func(error) bool) (int, error) {
	attempts := 0
	operation := func() error {
		attempts++
		err := op(ctx)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		slog.WarnContext(
			ctx, "retrying after error",
			"attempt", attempts,
			"max_attempts", p.attempts(),
			"wait", wait,
			"err", err,
		)
	}

	err := backoff.RetryNotifyWithTimer(operation, p.backOff(ctx), notify, p.Timer)
	return attempts, err
}
