package dbretry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/robalyx/warden/internal/database/dbretry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryableError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain error", err: errors.New("syntax error at or near"), want: false},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), want: true},
		{name: "wrapped reset", err: fmt.Errorf("failed: %w", errors.New("connection reset by peer")), want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "cancelled", err: context.Canceled, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, dbretry.IsRetryableError(tt.err))
		})
	}
}

func TestOperationRetriesTransientErrors(t *testing.T) {
	t.Parallel()

	attempts := 0
	result, err := dbretry.Operation(t.Context(), func(context.Context) (int, error) {
		attempts++
		if attempts < 2 {
			return 0, errors.New("broken pipe")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 2, attempts)
}

func TestNoResultStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	permanent := errors.New("duplicate key value violates unique constraint")
	attempts := 0
	err := dbretry.NoResult(t.Context(), func(context.Context) error {
		attempts++
		return permanent
	})

	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}
