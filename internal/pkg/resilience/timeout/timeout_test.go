package timeout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo(t *testing.T) {
	t.Run("returns the operation result within the bound", func(t *testing.T) {
		v, err := Do(t.Context(), "op", time.Second, func(ctx context.Context) (string, error) {
			return "ok", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "ok", v)
	})

	t.Run("propagates operation errors unchanged", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := Do(t.Context(), "op", time.Second, func(ctx context.Context) (int, error) {
			return 0, boom
		})

		assert.ErrorIs(t, err, boom)
		assert.False(t, IsTimeout(err))
	})

	t.Run("fails with a timeout error and cancels the operation", func(t *testing.T) {
		canceled := make(chan struct{})

		start := time.Now()
		_, err := Do(t.Context(), "eth_blockNumber", 20*time.Millisecond, func(ctx context.Context) (int, error) {
			<-ctx.Done()
			close(canceled)
			return 0, ctx.Err()
		})

		require.Error(t, err)
		assert.True(t, IsTimeout(err))
		assert.Less(t, time.Since(start), time.Second)

		var te *Error
		require.ErrorAs(t, err, &te)
		assert.Equal(t, 20*time.Millisecond, te.Bound)
		assert.Contains(t, te.Error(), "eth_blockNumber")

		select {
		case <-canceled:
		case <-time.After(time.Second):
			t.Fatal("operation context was not canceled")
		}
	})

	t.Run("returns without waiting for an operation that ignores its context", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)

		start := time.Now()
		_, err := Do(t.Context(), "", 20*time.Millisecond, func(ctx context.Context) (int, error) {
			<-release
			return 1, nil
		})

		assert.True(t, IsTimeout(err))
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})

	t.Run("zero bound disables the guard", func(t *testing.T) {
		v, err := Do(t.Context(), "op", 0, func(ctx context.Context) (int, error) {
			_, hasDeadline := ctx.Deadline()
			assert.False(t, hasDeadline)
			return 7, nil
		})

		require.NoError(t, err)
		assert.Equal(t, 7, v)
	})

	t.Run("parent cancellation is not reported as a timeout", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err := Do(ctx, "op", time.Second, func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})

		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, IsTimeout(err))
	})
}
