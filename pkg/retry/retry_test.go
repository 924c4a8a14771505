package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func alwaysTransient(error) bool { return true }

func TestDoSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
		alwaysTransient, func() error {
			attempts++
			if attempts < 3 {
				return errTransient
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoStopsOnNonTransientError(t *testing.T) {
	permanent := errors.New("permanent")
	attempts := 0
	err := Do(context.Background(), DefaultPolicy,
		func(err error) bool { return !errors.Is(err, permanent) },
		func() error {
			attempts++
			return permanent
		})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestDoZeroBackoffDoesNotPanic(t *testing.T) {
	// A zero-value backoff must not feed Int63n a non-positive bound.
	attempts := 0
	err := Do(context.Background(), Policy{MaxAttempts: 3},
		alwaysTransient, func() error {
			attempts++
			return errTransient
		})
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, attempts)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, Policy{MaxAttempts: 2, InitialBackoff: time.Hour, MaxBackoff: time.Hour},
		alwaysTransient, func() error { return errTransient })
	assert.ErrorIs(t, err, context.Canceled)
}
