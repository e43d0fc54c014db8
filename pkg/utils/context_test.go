package utils_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robalyx/warden/pkg/utils"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestContextSleep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		duration    time.Duration
		cancelAfter time.Duration
		want        utils.SleepResult
	}{
		{
			name:     "sleep completes normally",
			duration: 10 * time.Millisecond,
			want:     utils.SleepCompleted,
		},
		{
			name:        "context cancelled before sleep completes",
			duration:    time.Second,
			cancelAfter: 10 * time.Millisecond,
			want:        utils.SleepCancelled,
		},
		{
			name:     "zero duration",
			duration: 0,
			want:     utils.SleepCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			if tt.cancelAfter > 0 {
				time.AfterFunc(tt.cancelAfter, cancel)
			}

			assert.Equal(t, tt.want, utils.ContextSleep(ctx, tt.duration))
		})
	}
}

func TestNextMidnight(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "middle of day",
			now:  time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC),
			want: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly midnight",
			now:  time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "end of year",
			now:  time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC),
			want: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, utils.NextMidnight(tt.now))
		})
	}
}

func TestStartOfDay(t *testing.T) {
	t.Parallel()

	got := utils.StartOfDay(time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestRunDailyRunsUntilCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	var runs atomic.Int32

	done := make(chan struct{})
	go func() {
		defer close(done)
		utils.RunDaily(ctx, zap.NewNop(), "test", 0, func(context.Context) error {
			runs.Add(1)
			cancel()
			return errors.New("boom")
		})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunDaily did not stop after cancellation")
	}
	assert.Equal(t, int32(1), runs.Load())
}

func TestRunDailyRecoversPanics(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())

	done := make(chan struct{})
	go func() {
		defer close(done)
		utils.RunDaily(ctx, zap.NewNop(), "panicky", 0, func(context.Context) error {
			cancel()
			panic("unexpected")
		})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunDaily did not survive a panicking job")
	}
}
