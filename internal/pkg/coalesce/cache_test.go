package coalesce

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestWithCache(t *testing.T) {
	t.Run("concurrent calls execute once and share the value", func(t *testing.T) {
		for _, n := range []int{1, 2, 10, 100} {
			c := NewCache()

			var calls atomic.Int32
			release := make(chan struct{})
			fn := func(context.Context) (string, error) {
				calls.Add(1)
				<-release
				return "0x1b4", nil
			}

			results := make([]string, n)
			var wg sync.WaitGroup
			for i := range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					v, err := WithCache(t.Context(), c, "blockNumber", time.Minute, fn)
					assert.NoError(t, err)
					results[i] = v
				}()
			}

			// let every caller reach the in-flight join
			time.Sleep(50 * time.Millisecond)
			close(release)
			wg.Wait()

			assert.Equal(t, int32(1), calls.Load(), "n=%d", n)
			for _, v := range results {
				assert.Equal(t, "0x1b4", v)
			}
		}
	})

	t.Run("fresh entry is reused until max age", func(t *testing.T) {
		clock := newFakeClock()
		c := NewCache(WithClock(clock.Now))

		var calls int
		fn := func(context.Context) (int, error) {
			calls++
			return calls, nil
		}

		v, err := WithCache(t.Context(), c, "k", time.Second, fn)
		require.NoError(t, err)
		assert.Equal(t, 1, v)

		clock.Advance(999 * time.Millisecond)
		v, err = WithCache(t.Context(), c, "k", time.Second, fn)
		require.NoError(t, err)
		assert.Equal(t, 1, v, "entry younger than max age")

		clock.Advance(time.Millisecond)
		v, err = WithCache(t.Context(), c, "k", time.Second, fn)
		require.NoError(t, err)
		assert.Equal(t, 2, v, "entry at max age is stale")
		assert.Equal(t, 2, calls)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		c := NewCache()
		boom := errors.New("boom")

		var calls int
		fn := func(context.Context) (int, error) {
			calls++
			if calls == 1 {
				return 0, boom
			}
			return 42, nil
		}

		_, err := WithCache(t.Context(), c, "k", time.Minute, fn)
		assert.ErrorIs(t, err, boom)

		_, ok := c.Get("k")
		assert.False(t, ok)

		v, err := WithCache(t.Context(), c, "k", time.Minute, fn)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	})

	t.Run("type mismatch", func(t *testing.T) {
		c := NewCache()
		c.Set("k", "a string")

		_, err := WithCache(t.Context(), c, "k", time.Minute, func(context.Context) (int, error) {
			return 1, nil
		})
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("nil values are returned as zero", func(t *testing.T) {
		c := NewCache()

		v, err := WithCache(t.Context(), c, "k", time.Minute, func(context.Context) (*int, error) {
			return nil, nil
		})
		require.NoError(t, err)
		assert.Nil(t, v)
	})
}

func TestCache_Primitives(t *testing.T) {
	c := NewCache()

	c.Set("a", 1)
	c.Set("b", 2)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	got, err := WithCache(t.Context(), c, "a", time.Minute, func(context.Context) (int, error) {
		t.Fatal("primed entry should be served")
		return 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)

	c.Clear()
	_, ok = c.Get("b")
	assert.False(t, ok)
}
