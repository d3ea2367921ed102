// Package notifications provides real-time chat delivery over Redis pub/sub
// and WebSockets.
package notifications

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes chat events into per-partition Redis channels. Every
// server instance subscribes to the partition pattern, so a message reaches
// the recipient no matter which instance holds their WebSocket.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishPartition sends a chat event payload to a partition owner's channel.
func (n *Notifier) PublishPartition(ctx context.Context, ownerID uint, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, PartitionChannel(ownerID), payload).Err()
}

// SubscribePartition opens a subscription on a single partition channel.
// Returns nil when no Redis client is configured.
func (n *Notifier) SubscribePartition(ctx context.Context, ownerID uint) *redis.PubSub {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Subscribe(ctx, PartitionChannel(ownerID))
}

// StartPartitionSubscriber subscribes to pattern `chat:partition:*` and calls
// onMessage for each incoming message. onMessage receives channel and payload.
func (n *Notifier) StartPartitionSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "chat:partition:*")
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
							log.Printf("PANIC in PartitionSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// PartitionChannel derives the Redis channel name for a user's partition.
func PartitionChannel(ownerID uint) string {
	return "chat:partition:" + strconv.FormatUint(uint64(ownerID), 10)
}

// ParsePartitionChannel extracts the partition owner ID from a channel name.
func ParsePartitionChannel(channel string) (uint, error) {
	var ownerID uint
	if _, err := fmt.Sscanf(channel, "chat:partition:%d", &ownerID); err != nil {
		return 0, fmt.Errorf("invalid partition channel %q: %w", channel, err)
	}
	return ownerID, nil
}
