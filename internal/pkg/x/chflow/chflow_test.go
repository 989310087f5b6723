package chflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReceive(t *testing.T) {
	t.Run("returns a buffered value", func(t *testing.T) {
		ch := make(chan int, 1)
		ch <- 42

		v, ok := Receive(t.Context(), ch)

		assert.True(t, ok)
		assert.Equal(t, 42, v)
	})

	t.Run("stops on canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		v, ok := Receive(ctx, make(chan int))

		assert.False(t, ok)
		assert.Zero(t, v)
	})

	t.Run("stops on closed channel", func(t *testing.T) {
		ch := make(chan string)
		close(ch)

		v, ok := Receive(t.Context(), ch)

		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("waits for a late value", func(t *testing.T) {
		ch := make(chan *int)
		n := 7
		go func() {
			time.Sleep(10 * time.Millisecond)
			ch <- &n
		}()

		v, ok := Receive(t.Context(), ch)

		assert.True(t, ok)
		assert.Same(t, &n, v)
	})
}

func TestOffer(t *testing.T) {
	t.Run("sends while there is room", func(t *testing.T) {
		ch := make(chan int, 2)

		assert.True(t, Offer(ch, 1))
		assert.True(t, Offer(ch, 2))
		assert.Equal(t, 1, <-ch)
		assert.Equal(t, 2, <-ch)
	})

	t.Run("drops on a full channel", func(t *testing.T) {
		ch := make(chan int, 1)
		ch <- 1

		assert.False(t, Offer(ch, 2))
		assert.Equal(t, 1, <-ch)
	})

	t.Run("drops without a receiver", func(t *testing.T) {
		assert.False(t, Offer(make(chan int), 1))
	})
}
