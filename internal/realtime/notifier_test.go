package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"happythoughts/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, client *Client) models.ThoughtEvent {
	t.Helper()
	select {
	case raw := <-client.Send:
		var event models.ThoughtEvent
		require.NoError(t, json.Unmarshal(raw, &event))
		return event
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return models.ThoughtEvent{}
	}
}

func TestNotifier_LocalDeliveryWithoutRedis(t *testing.T) {
	hub := NewHub(0, nil)
	client, err := hub.Register(nil)
	require.NoError(t, err)

	n := NewNotifier(nil, hub)
	require.NoError(t, n.Start(context.Background()))

	thought := models.Thought{ID: "t1", Message: "hi", Hearts: 2}
	require.NoError(t, n.Publish(context.Background(), models.ThoughtEvent{Type: models.EventThoughtLiked, Thought: thought}))

	event := receive(t, client)
	assert.Equal(t, models.EventThoughtLiked, event.Type)
	assert.Equal(t, "t1", event.Thought.ID)
	assert.Equal(t, 2, event.Thought.Hearts)
}

func TestNotifier_RedisFanOutAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	newClient := func() *redis.Client {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		return rdb
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Two instances sharing one Redis: an event published on one reaches the other's clients.
	hubA, hubB := NewHub(0, nil), NewHub(0, nil)
	notifierA := NewNotifier(newClient(), hubA)
	notifierB := NewNotifier(newClient(), hubB)
	require.NoError(t, notifierA.Start(ctx))
	require.NoError(t, notifierB.Start(ctx))

	clientA, err := hubA.Register(nil)
	require.NoError(t, err)
	clientB, err := hubB.Register(nil)
	require.NoError(t, err)

	event := models.ThoughtEvent{Type: models.EventThoughtCreated, Thought: models.Thought{ID: "t2", Message: "new"}}
	require.NoError(t, notifierA.Publish(ctx, event))

	assert.Equal(t, "t2", receive(t, clientA).Thought.ID)
	assert.Equal(t, models.EventThoughtCreated, receive(t, clientB).Type)
}

func TestNotifier_StopsOnCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	hub := NewHub(0, nil)
	client, err := hub.Register(nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	n := NewNotifier(rdb, hub)
	require.NoError(t, n.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool {
		return len(mr.PubSubChannels("")) == 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, n.Publish(context.Background(), models.ThoughtEvent{Type: models.EventThoughtDeleted}))
	assert.Never(t, func() bool { return len(client.Send) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}
