package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recordingTimer fires immediately and remembers every requested wait.
type recordingTimer struct {
	c     chan time.Time
	waits []time.Duration
}

func newRecordingTimer() *recordingTimer {
	return &recordingTimer{c: make(chan time.Time, 1)}
}

func (t *recordingTimer) Start(d time.Duration) {
	t.waits = append(t.waits, d)
	t.c <- time.Now()
}

func (t *recordingTimer) Stop() {}

func (t *recordingTimer) C() <-chan time.Time {
	return t.c
}

var errTransient = fmt.Errorf("transient")
var errFatal = fmt.Errorf("fatal")

func isTransient(err error) bool {
	return errors.Is(err, errTransient)
}

func testPolicy(timer *recordingTimer, maxAttempts int) Policy {
	return Policy{
		MaxAttempts:     maxAttempts,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2,
		Timer:           timer,
	}
}

func TestDoExhaustsExactlyMaxAttempts(t *testing.T) {
	for _, maxAttempts := range []int{1, 2, 3, 5} {
		timer := newRecordingTimer()
		calls := 0

		attempts, err := testPolicy(timer, maxAttempts).Do(
			context.Background(),
			func(context.Context) error {
				calls++
				return errTransient
			},
			isTransient,
		)

		require.ErrorIs(t, err, errTransient)
		require.Equal(t, maxAttempts, attempts)
		require.Equal(t, maxAttempts, calls)
		require.Len(t, timer.waits, maxAttempts-1)
	}
}

func TestDoBackoffSchedule(t *testing.T) {
	timer := newRecordingTimer()

	_, err := testPolicy(timer, 5).Do(
		context.Background(),
		func(context.Context) error { return errTransient },
		isTransient,
	)

	require.ErrorIs(t, err, errTransient)
	require.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
	}, timer.waits)
}

func TestDoDoesNotRetryPermanentErrors(t *testing.T) {
	timer := newRecordingTimer()

	attempts, err := testPolicy(timer, 3).Do(
		context.Background(),
		func(context.Context) error { return fmt.Errorf("wrapped: %w", errFatal) },
		isTransient,
	)

	require.ErrorIs(t, err, errFatal)
	require.Equal(t, 1, attempts)
	require.Empty(t, timer.waits)
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	timer := newRecordingTimer()
	calls := 0

	attempts, err := testPolicy(timer, 3).Do(
		context.Background(),
		func(context.Context) error {
			calls++
			if calls < 3 {
				return errTransient
			}
			return nil
		},
		isTransient,
	)

	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testPolicy(newRecordingTimer(), 3).Do(
		ctx,
		func(context.Context) error { return errTransient },
		isTransient,
	)

	require.Error(t, err)
}
