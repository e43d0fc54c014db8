package dbretry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	maxElapsedTime  = 15 * time.Second
	initialInterval = 250 * time.Millisecond
	maxInterval     = 3 * time.Second
	maxRetries      = uint64(3)
)

// retryableCodes lists the Postgres error codes worth another attempt.
var retryableCodes = map[string]struct{}{
	"08000": {}, // connection_exception
	"08001": {}, // sqlclient_unable_to_establish_sqlconnection
	"08003": {}, // connection_does_not_exist
	"08004": {}, // sqlserver_rejected_establishment_of_sqlconnection
	"08006": {}, // connection_failure
	"08007": {}, // transaction_resolution_unknown
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"53000": {}, // insufficient_resources
	"53300": {}, // too_many_connections
	"55P03": {}, // lock_not_available
	"57P01": {}, // admin_shutdown
	"57P03": {}, // cannot_connect_now
}

// IsRetryableError checks if the given error is transient.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Caller gave up, retrying would only delay the failure
	if errors.Is(err, context.Canceled) {
		return false
	}

	var pgerr pgdriver.Error
	if errors.As(err, &pgerr) {
		_, ok := retryableCodes[pgerr.Field('C')]
		return ok
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "connection reset by peer") ||
		strings.Contains(errMsg, "broken pipe") ||
		strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "i/o timeout")
}

// newBackOff builds the shared exponential policy bound to ctx.
func newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(maxElapsedTime),
		backoff.WithInitialInterval(initialInterval),
		backoff.WithMaxInterval(maxInterval),
	), maxRetries)

	return backoff.WithContext(b, ctx)
}

// Operation wraps a database operation returning a value with retry logic.
func Operation[T any](ctx context.Context, operation func(context.Context) (T, error)) (T, error) {
	var result T

	err := NoResult(ctx, func(ctx context.Context) error {
		var err error
		result, err = operation(ctx)
		return err
	})

	return result, err
}

// NoResult wraps a database operation that doesn't return a result.
func NoResult(ctx context.Context, operation func(context.Context) error) error {
	var lastErr error

	err := backoff.Retry(func() error {
		err := operation(ctx)
		if err == nil {
			return nil
		}

		lastErr = err
		if !IsRetryableError(err) {
			return backoff.Permanent(err)
		}

		return err
	}, newBackOff(ctx))
	if err != nil {
		if lastErr != nil {
			return lastErr
		}
		return fmt.Errorf("database operation aborted: %w", err)
	}

	return nil
}

// Transaction runs fn inside a transaction, retrying the whole unit on transient failures.
func Transaction(ctx context.Context, db *bun.DB, fn func(context.Context, bun.Tx) error) error {
	return NoResult(ctx, func(ctx context.Context) error {
		return db.RunInTx(ctx, nil, fn)
	})
}
