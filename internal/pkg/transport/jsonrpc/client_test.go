package jsonrpc

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	transporthttp "github.com/gabapcia/rpcwatch/internal/pkg/transport/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	t.Run("assigns increasing ids", func(t *testing.T) {
		a := NewRequest("eth_blockNumber")
		b := NewRequest("eth_chainId")

		assert.Equal(t, Version, a.JSONRPC)
		assert.Greater(t, b.ID, a.ID)
	})

	t.Run("encodes missing params as an empty array", func(t *testing.T) {
		data, err := json.Marshal(NewRequest("eth_blockNumber"))
		require.NoError(t, err)
		assert.Contains(t, string(data), `"params":[]`)
	})
}

func TestMessage(t *testing.T) {
	t.Run("response with result", func(t *testing.T) {
		var m Message
		require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":7,"result":"0x10"}`), &m))

		require.NotNil(t, m.ID)
		assert.Equal(t, int64(7), *m.ID)
		assert.False(t, m.IsSubscription())
		assert.NoError(t, m.Err())
		assert.JSONEq(t, `"0x10"`, string(m.Result))
	})

	t.Run("response with error", func(t *testing.T) {
		var m Message
		require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":8,"error":{"code":-32601,"message":"method not found"}}`), &m))

		err := m.Err()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProviderReturnedError)

		var rpcErr *RPCError
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, -32601, rpcErr.Code)
		assert.Contains(t, err.Error(), "[-32601]")
		assert.Contains(t, err.Error(), "method not found")
	})

	t.Run("subscription push", func(t *testing.T) {
		var m Message
		raw := `{"jsonrpc":"2.0","method":"eth_subscription","params":{"subscription":"0xabc","result":{"number":"0x1"}}}`
		require.NoError(t, json.Unmarshal([]byte(raw), &m))

		assert.True(t, m.IsSubscription())
		assert.Nil(t, m.ID)
		assert.Equal(t, "0xabc", m.Params.Subscription)
		assert.NoError(t, m.Err())
	})

	t.Run("subscription push with error", func(t *testing.T) {
		var m Message
		raw := `{"jsonrpc":"2.0","method":"eth_subscription","params":{"subscription":"0xabc","error":{"code":-1,"message":"gone"}}}`
		require.NoError(t, json.Unmarshal([]byte(raw), &m))

		assert.ErrorIs(t, m.Err(), ErrProviderReturnedError)
	})
}

func TestClient_Fetch(t *testing.T) {
	t.Run("successful response with result", func(t *testing.T) {
		expected := map[string]any{"hello": "world"}
		var received Request
		mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
			_ = json.NewDecoder(r.Body).Decode(&received)

			json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0",
				"result":  expected,
				"id":      received.ID,
			})
		}))
		defer mockServer.Close()

		c := NewClient(mockServer.URL, WithHeader("X-Api-Key", "secret"))

		result, err := c.Fetch(t.Context(), "dummy_method", "0x1", true)
		require.NoError(t, err)

		var actual map[string]any
		require.NoError(t, json.Unmarshal(result, &actual))
		assert.Equal(t, expected, actual)
		assert.Equal(t, "dummy_method", received.Method)
		assert.Equal(t, []any{"0x1", true}, received.Params)
	})

	t.Run("response with JSON-RPC error", func(t *testing.T) {
		mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0",
				"error": map[string]any{
					"code":    -32601,
					"message": "method not found",
				},
				"id": 1,
			})
		}))
		defer mockServer.Close()

		c := NewClient(mockServer.URL)

		result, err := c.Fetch(t.Context(), "nonexistent_method")
		assert.Nil(t, result)

		var rpcErr *RPCError
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, -32601, rpcErr.Code)
	})

	t.Run("non 2xx status after retries", func(t *testing.T) {
		calls := 0
		mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			http.Error(w, "upstream down", http.StatusServiceUnavailable)
		}))
		defer mockServer.Close()

		c := NewClient(mockServer.URL, WithHTTPOptions(
			transporthttp.WithRetryDelay(time.Millisecond),
			transporthttp.WithRetryMax(2),
		))

		_, err := c.Fetch(t.Context(), "eth_blockNumber")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrHTTPRequest)

		var httpErr *HTTPRequestError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusServiceUnavailable, httpErr.Status)
		assert.Contains(t, httpErr.Details, "upstream down")
		assert.Equal(t, 3, calls, "one attempt plus two retries")
	})

	t.Run("malformed JSON response", func(t *testing.T) {
		mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("this is not json"))
		}))
		defer mockServer.Close()

		c := NewClient(mockServer.URL)

		result, err := c.Fetch(t.Context(), "bad_json")
		assert.Error(t, err)
		assert.Nil(t, result)
		assert.Contains(t, err.Error(), "invalid character")
	})

	t.Run("network error when server is down", func(t *testing.T) {
		mockServer := httptest.NewServer(nil)
		mockServer.Close()

		c := NewClient(mockServer.URL, WithHTTPOptions(
			transporthttp.WithTimeout(time.Second),
			transporthttp.WithRetryMax(0),
		))

		result, err := c.Fetch(t.Context(), "network_failure")
		assert.Error(t, err)
		assert.Nil(t, result)
	})
}

func TestNewClient(t *testing.T) {
	t.Run("uses default configuration when no options are provided", func(t *testing.T) {
		client := NewClient("http://localhost:8080")

		assert.Equal(t, "http://localhost:8080", client.providerEndpoint)
		require.NotNil(t, client.httpClient)
		assert.Equal(t, 150*time.Millisecond, client.httpClient.RetryWaitMin)
		assert.Equal(t, 3, client.httpClient.RetryMax)
		assert.Empty(t, client.headers)
	})

	t.Run("applies all custom options correctly", func(t *testing.T) {
		c := NewClient(
			"http://localhost:8080",
			WithHTTPOptions(
				transporthttp.WithTimeout(9*time.Second),
				transporthttp.WithRetryDelay(111*time.Millisecond),
				transporthttp.WithRetryMax(7),
			),
			WithHeader("Authorization", "Bearer x"),
		)

		assert.Equal(t, 9*time.Second, c.httpClient.HTTPClient.Timeout)
		assert.Equal(t, 111*time.Millisecond, c.httpClient.RetryWaitMin)
		assert.Equal(t, 7, c.httpClient.RetryMax)
		assert.Equal(t, "Bearer x", c.headers.Get("Authorization"))
	})
}
