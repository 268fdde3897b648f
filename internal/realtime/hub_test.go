package realtime

import (
	"context"
	"testing"

	"happythoughts/internal/observability"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_BroadcastAll(t *testing.T) {
	hub := NewHub(0, nil)

	a, err := hub.Register(nil)
	require.NoError(t, err)
	b, err := hub.Register(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Count())

	hub.BroadcastAll([]byte("hello"))

	assert.Equal(t, []byte("hello"), <-a.Send)
	assert.Equal(t, []byte("hello"), <-b.Send)
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	hub := NewHub(0, metrics)

	client, err := hub.Register(nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WSConnections))

	hub.UnregisterClient(client)
	hub.UnregisterClient(client)

	assert.Equal(t, 0, hub.Count())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.WSConnections))
	_, open := <-client.Send
	assert.False(t, open)

	// Sending to an unregistered client is recovered, not a panic.
	assert.NotPanics(t, func() { assert.False(t, client.TrySend([]byte("late"))) })
}

func TestHub_ConnectionLimit(t *testing.T) {
	hub := NewHub(2, nil)

	_, err := hub.Register(nil)
	require.NoError(t, err)
	_, err = hub.Register(nil)
	require.NoError(t, err)

	_, err = hub.Register(nil)
	assert.ErrorIs(t, err, ErrConnectionLimit)
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	hub := NewHub(0, metrics)
	client, err := hub.Register(nil)
	require.NoError(t, err)

	for range sendBufferSize {
		require.True(t, client.TrySend([]byte("x")))
	}
	assert.False(t, client.TrySend([]byte("overflow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WSBackpressureDrop.WithLabelValues("full")))
	assert.Len(t, client.Send, sendBufferSize)
}

func TestHub_BroadcastDisconnectsSlowClient(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	hub := NewHub(0, metrics)
	slow, err := hub.Register(nil)
	require.NoError(t, err)
	fast, err := hub.Register(nil)
	require.NoError(t, err)

	for range sendBufferSize {
		require.True(t, slow.TrySend([]byte("x")))
	}

	hub.BroadcastAll([]byte("event"))

	assert.Equal(t, 1, hub.Count())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WSConnections))
	assert.Equal(t, []byte("event"), <-fast.Send)

	// The slow client's queue drains and then reports closed.
	for range sendBufferSize {
		<-slow.Send
	}
	_, open := <-slow.Send
	assert.False(t, open)

	hub.BroadcastAll([]byte("next"))
	assert.Equal(t, []byte("next"), <-fast.Send)
	assert.Equal(t, 1, hub.Count())
}

func TestHub_Shutdown(t *testing.T) {
	hub := NewHub(0, nil)
	client, err := hub.Register(nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))

	assert.Equal(t, 0, hub.Count())
	_, open := <-client.Send
	assert.False(t, open)

	_, err = hub.Register(nil)
	assert.ErrorIs(t, err, ErrHubClosed)
}
