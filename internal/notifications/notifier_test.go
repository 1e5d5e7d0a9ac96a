package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishFeedEvent(context.Background(), FeedEvent{Type: EventPostCreated}))
	assert.NoError(t, n.StartFeedSubscriber(context.Background(), func(string) {
		t.Fatal("unexpected message")
	}))

	var nilNotifier *Notifier
	assert.NoError(t, nilNotifier.PublishFeedEvent(context.Background(), FeedEvent{Type: EventPostCreated}))
}

func TestNotifier_PublishAndSubscribe(t *testing.T) {
	_, rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payloads := make(chan string, 2)
	require.NoError(t, n.StartFeedSubscriber(ctx, func(payload string) {
		payloads <- payload
	}))

	require.NoError(t, n.PublishFeedEvent(ctx, FeedEvent{
		Type:      EventPollVoted,
		PostID:    3,
		AccountID: 7,
		Payload:   map[string]any{"poll_id": 2},
	}))

	select {
	case raw := <-payloads:
		var ev FeedEvent
		require.NoError(t, json.Unmarshal([]byte(raw), &ev))
		assert.Equal(t, EventPollVoted, ev.Type)
		assert.Equal(t, uint(3), ev.PostID)
		assert.Equal(t, uint(7), ev.AccountID)
		assert.Equal(t, float64(2), ev.Payload["poll_id"])
		assert.False(t, ev.At.IsZero())
	case <-time.After(testEventuallyTimeout):
		t.Fatal("feed event not received")
	}
}

func TestNotifier_SubscriberSurvivesPanic(t *testing.T) {
	_, rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan string, 2)
	require.NoError(t, n.StartFeedSubscriber(ctx, func(payload string) {
		received <- payload
		if len(received) == 1 {
			panic("boom")
		}
	}))

	require.NoError(t, n.PublishFeedEvent(ctx, FeedEvent{Type: EventPostCreated, PostID: 1}))
	require.NoError(t, n.PublishFeedEvent(ctx, FeedEvent{Type: EventPostDeleted, PostID: 1}))

	assert.Eventually(t, func() bool { return len(received) == 2 }, testEventuallyTimeout, testPollInterval)
}

func TestHub_StartWiringForwardsEvents(t *testing.T) {
	_, rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	hub := NewHub(nil)
	defer func() { _ = hub.Shutdown(context.Background()) }()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := hub.Register(5, nil)
	require.NoError(t, err)
	require.NoError(t, hub.StartWiring(ctx, n))
	require.NoError(t, n.PublishFeedEvent(ctx, FeedEvent{Type: EventCommentCreated, PostID: 9}))

	select {
	case raw := <-client.Send:
		assert.Contains(t, string(raw), `"type":"comment_created"`)
	case <-time.After(testEventuallyTimeout):
		t.Fatal("hub did not forward the event")
	}
}
