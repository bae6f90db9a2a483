package indexer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWithRetryEventuallySucceeds(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("rate limited")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestWithRetryGivesUp(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), 2, time.Millisecond, func(context.Context) error {
		attempts++
		return errors.New("rate limited")
	})
	require.EqualError(t, err, "rate limited")
	require.Equal(t, 3, attempts)
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := withRetry(ctx, 5, time.Hour, func(context.Context) error {
		return errors.New("unavailable")
	})
	require.ErrorIs(t, err, context.Canceled)
}
