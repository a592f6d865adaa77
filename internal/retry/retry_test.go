package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tempErr struct{ temporary bool }

func (e tempErr) Error() string   { return "temp" }
func (e tempErr) Temporary() bool { return e.temporary }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "wrapped canceled", err: fmt.Errorf("call: %w", context.Canceled), want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "timeout text", err: errors.New("Connection Timeout"), want: true},
		{name: "deadline text", err: errors.New("operation deadline exceeded after 5s"), want: true},
		{name: "rate limit text", err: errors.New("429 Rate Limit Exceeded"), want: true},
		{name: "eof", err: errors.New("unexpected EOF"), want: true},
		{name: "unauthorized", err: errors.New("status 401: invalid key"), want: false},
		{name: "temporary typed", err: fmt.Errorf("wrap: %w", tempErr{temporary: true}), want: true},
		{name: "permanent typed", err: tempErr{temporary: false}, want: false},
		{name: "unknown", err: errors.New("something odd"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestDo_SingleAttemptByDefault(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Config{}, func(context.Context) (string, error) {
		calls++
		return "", errors.New("connection refused")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientErrors(t *testing.T) {
	calls := 0
	cfg := Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

	got, err := Do(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("service unavailable")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	calls := 0
	cfg := Config{MaxAttempts: 5, InitialBackoff: time.Millisecond}

	_, err := Do(context.Background(), cfg, func(context.Context) (string, error) {
		calls++
		return "", tempErr{temporary: false}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	cfg := Config{MaxAttempts: 2, InitialBackoff: time.Millisecond}

	_, err := Do(context.Background(), cfg, func(context.Context) (string, error) {
		return "", tempErr{temporary: true}
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 attempts failed")
	var te tempErr
	assert.ErrorAs(t, err, &te)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 3, InitialBackoff: time.Hour, MaxBackoff: time.Hour}

	_, err := Do(ctx, cfg, func(context.Context) (string, error) {
		cancel()
		return "", tempErr{temporary: true}
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, time.Second, calculateBackoff(0, time.Second, 10*time.Second))
	assert.Equal(t, 4*time.Second, calculateBackoff(2, time.Second, 10*time.Second))
	assert.Equal(t, 10*time.Second, calculateBackoff(5, time.Second, 10*time.Second))
}
