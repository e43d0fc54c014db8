package utils

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SleepResult represents the outcome of a context-aware sleep operation.
type SleepResult int

const (
	// SleepCompleted indicates the sleep duration completed normally.
	SleepCompleted SleepResult = iota
	// SleepCancelled indicates the context was cancelled during sleep.
	SleepCancelled
)

// ContextSleep sleeps for the specified duration while respecting context cancellation.
func ContextSleep(ctx context.Context, duration time.Duration) SleepResult {
	if duration <= 0 {
		return SleepCompleted
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return SleepCompleted
	case <-ctx.Done():
		return SleepCancelled
	}
}

// ContextSleepUntil waits until the specified time while respecting context cancellation.
func ContextSleepUntil(ctx context.Context, target time.Time) SleepResult {
	return ContextSleep(ctx, time.Until(target))
}

// NextMidnight returns the start of the day following now, in now's location.
func NextMidnight(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, now.Location())
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// RunDaily runs job once after the initial delay and then at every following midnight
// until the context is cancelled. A failed run is logged and the schedule continues.
func RunDaily(ctx context.Context, logger *zap.Logger, name string, initial time.Duration, job func(ctx context.Context) error) {
	if ContextSleep(ctx, initial) == SleepCancelled {
		return
	}

	for {
		runJob(ctx, logger, name, job)

		next := NextMidnight(time.Now())
		logger.Debug("Scheduled next daily run",
			zap.String("job", name),
			zap.Time("next", next))

		if ContextSleepUntil(ctx, next) == SleepCancelled {
			logger.Info("Daily job stopped", zap.String("job", name))
			return
		}
	}
}

// runJob executes one scheduled run, containing panics so the schedule survives.
func runJob(ctx context.Context, logger *zap.Logger, name string, job func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Daily job panicked",
				zap.String("job", name),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()

	start := time.Now()
	if err := job(ctx); err != nil {
		logger.Error("Daily job failed",
			zap.String("job", name),
			zap.Error(err))
		return
	}

	logger.Info("Daily job completed",
		zap.String("job", name),
		zap.Duration("duration", time.Since(start)))
}
