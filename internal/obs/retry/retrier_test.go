package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpoJitter_Caps(t *testing.T) {
	b := ExpoJitter{Base: 100 * time.Millisecond, Max: time.Second}
	assert.Equal(t, 100*time.Millisecond, b.Next(0))
	assert.Equal(t, 400*time.Millisecond, b.Next(2))
	assert.Equal(t, time.Second, b.Next(10))
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, Policy{Name: "test_success", Attempts: 5, Backoff: ExpoJitter{Base: time.Millisecond}})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	permanent := errors.New("permanent")
	calls, exhausted := 0, false
	err := Do(context.Background(), func() error {
		calls++
		return permanent
	}, Policy{
		Name:      "test_permanent",
		Attempts:  5,
		Backoff:   ExpoJitter{Base: time.Millisecond},
		Retryable: func(err error) bool { return !errors.Is(err, permanent) },
		OnExhaust: func(error) { exhausted = true },
	})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
	assert.True(t, exhausted)
}

func TestDo_HonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, func() error { return errors.New("x") },
		Policy{Name: "test_ctx", Attempts: 3, Backoff: ExpoJitter{Base: time.Hour}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDo_PermanentShortCircuits(t *testing.T) {
	calls := 0
	base := errors.New("bad request")
	err := Do(context.Background(), func() error {
		calls++
		return Permanent(base)
	}, Policy{Name: "test_marked", Attempts: 4, Backoff: ExpoJitter{Base: time.Millisecond}})
	require.ErrorIs(t, err, base)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
	assert.NoError(t, Permanent(nil))
}
