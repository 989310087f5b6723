package client

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gabapcia/rpcwatch/internal/pkg/coalesce"
	"github.com/gabapcia/rpcwatch/internal/pkg/validator"
	"github.com/gabapcia/rpcwatch/internal/transport/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		tr := mocks.NewTransport(t)

		c, err := New(tr)
		require.NoError(t, err)

		_, err = uuid.Parse(c.UID())
		assert.NoError(t, err)
		assert.Same(t, tr, c.Transport())
		assert.Equal(t, DefaultPollingInterval, c.PollingInterval())
		assert.NotNil(t, c.Cache())
		assert.NotNil(t, c.Observers())
	})

	t.Run("each client gets its own id and cache", func(t *testing.T) {
		tr := mocks.NewTransport(t)

		a, err := New(tr)
		require.NoError(t, err)
		b, err := New(tr)
		require.NoError(t, err)

		assert.NotEqual(t, a.UID(), b.UID())
		assert.NotSame(t, a.Cache(), b.Cache())
	})

	t.Run("options", func(t *testing.T) {
		tr := mocks.NewTransport(t)
		cache := coalesce.NewCache()
		observers := coalesce.NewObservers()

		c, err := New(tr,
			WithUID("client-1"),
			WithPollingInterval(time.Second),
			WithCache(cache),
			WithObservers(observers),
		)
		require.NoError(t, err)

		assert.Equal(t, "client-1", c.UID())
		assert.Equal(t, time.Second, c.PollingInterval())
		assert.Same(t, cache, c.Cache())
		assert.Same(t, observers, c.Observers())
	})

	t.Run("validation", func(t *testing.T) {
		_, err := New(nil)
		assert.ErrorIs(t, err, validator.ErrValidationFailed)

		_, err = New(mocks.NewTransport(t), WithPollingInterval(0))
		assert.ErrorIs(t, err, validator.ErrValidationFailed)
	})
}

func TestClient_Request(t *testing.T) {
	tr := mocks.NewTransport(t)
	tr.EXPECT().
		Request(mock.Anything, "eth_getTransactionByHash", []any{"0xabc"}).
		Return(json.RawMessage(`{"hash":"0xabc"}`), nil).
		Once()

	c, err := New(tr)
	require.NoError(t, err)

	res, err := c.Request(t.Context(), "eth_getTransactionByHash", "0xabc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"hash":"0xabc"}`, string(res))
}
