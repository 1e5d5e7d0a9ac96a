// Package notifications delivers realtime feed events to websocket clients
// through Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"farmlink/internal/middleware"
	"farmlink/internal/observability"

	"github.com/redis/go-redis/v9"
)

// FeedChannel is the Redis channel carrying feed events.
const FeedChannel = "farmlink:feed"

// Feed event types.
const (
	EventPostCreated    = "post_created"
	EventPostDeleted    = "post_deleted"
	EventCommentCreated = "comment_created"
	EventPostLiked      = "post_liked"
	EventPollVoted      = "poll_voted"
)

// FeedEvent is the message broadcast to feed subscribers.
type FeedEvent struct {
	Type      string         `json:"type"`
	PostID    uint           `json:"post_id,omitempty"`
	AccountID uint           `json:"account_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	At        time.Time      `json:"at"`
}

// Notifier publishes feed events into Redis.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier. A nil client turns every publish into a
// no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishFeedEvent encodes ev and publishes it on FeedChannel.
func (n *Notifier) PublishFeedEvent(ctx context.Context, ev FeedEvent) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal feed event: %w", err)
	}
	if err := n.rdb.Publish(ctx, FeedChannel, payload).Err(); err != nil {
		observability.RedisErrors.WithLabelValues("publish").Inc()
		return fmt.Errorf("publish feed event: %w", err)
	}
	observability.FeedEvents.WithLabelValues(ev.Type).Inc()
	return nil
}

// StartFeedSubscriber subscribes to FeedChannel and calls onMessage with each
// raw payload until ctx is cancelled.
func (n *Notifier) StartFeedSubscriber(ctx context.Context, onMessage func(payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, FeedChannel)
	// Wait for the subscription confirmation so no early events are missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", FeedChannel, err)
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
							middleware.Logger.Error("panic in feed subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
