package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"happythoughts/internal/middleware"
	"happythoughts/internal/models"

	"github.com/redis/go-redis/v9"
)

// EventsChannel is the Redis channel thought events travel on between instances.
const EventsChannel = "thoughts:events"

// Notifier publishes thought events. With Redis every instance receives every
// event through its subscriber; without Redis events go straight to the local hub.
type Notifier struct {
	rdb *redis.Client
	hub *Hub
}

// NewNotifier creates a Notifier. rdb may be nil.
func NewNotifier(rdb *redis.Client, hub *Hub) *Notifier {
	return &Notifier{rdb: rdb, hub: hub}
}

// Publish encodes event as JSON and sends it to subscribers.
func (n *Notifier) Publish(ctx context.Context, event models.ThoughtEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if n.rdb == nil {
		n.hub.BroadcastAll(payload)
		return nil
	}
	return n.rdb.Publish(ctx, EventsChannel, payload).Err()
}

// Start subscribes to EventsChannel and forwards every message to the hub until
// ctx is cancelled. It returns once the subscription is confirmed.
func (n *Notifier) Start(ctx context.Context) error {
	if n.rdb == nil {
		return nil
	}

	sub := n.rdb.Subscribe(ctx, EventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", EventsChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in thought event subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					n.hub.BroadcastAll([]byte(msg.Payload))
				}()
			}
		}
	}()

	return nil
}
