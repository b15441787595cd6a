package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_Do(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		policy    RetryPolicy
		failures  []error
		wantCalls int
		wantErr   error
	}{
		{"succeeds first time", RetryPolicy{MaxAttempts: 3}, nil, 1, nil},
		{"retries conflicts", RetryPolicy{MaxAttempts: 3}, []error{shared.ErrConcurrencyConflict, shared.ErrConcurrencyConflict}, 3, nil},
		{"gives up after max attempts", RetryPolicy{MaxAttempts: 2}, []error{shared.ErrConcurrencyConflict, shared.ErrConcurrencyConflict, shared.ErrConcurrencyConflict}, 2, shared.ErrConcurrencyConflict},
		{"other errors stop at once", RetryPolicy{MaxAttempts: 3}, []error{boom}, 1, boom},
		{"zero attempts still runs once", RetryPolicy{}, []error{shared.ErrConcurrencyConflict}, 1, shared.ErrConcurrencyConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := tt.policy.Do(context.Background(), func() error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			})
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestRetryPolicy_DoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxAttempts: 5, Backoff: time.Hour}

	calls := 0
	err := policy.Do(ctx, func() error {
		calls++
		cancel()
		return shared.ErrConcurrencyConflict
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
