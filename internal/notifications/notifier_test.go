package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestChannels(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "notifications:user:1", UserChannel(1))
	assert.Equal(t, "notifications:user:100", UserChannel(100))
	assert.Equal(t, "chat:conv:5", ConversationChannel(5))
}

func TestParseChannels(t *testing.T) {
	t.Parallel()
	tests := []struct {
		channel  string
		parse    func(string) (uint, bool)
		expected uint
		ok       bool
	}{
		{"notifications:user:42", ParseUserChannel, 42, true},
		{"notifications:user:", ParseUserChannel, 0, false},
		{"notifications:user:abc", ParseUserChannel, 0, false},
		{"notifications:user:0", ParseUserChannel, 0, false},
		{"chat:conv:42", ParseUserChannel, 0, false},
		{"chat:conv:7", ParseConversationChannel, 7, true},
		{"chat:conv:-1", ParseConversationChannel, 0, false},
	}
	for _, tt := range tests {
		id, ok := tt.parse(tt.channel)
		assert.Equal(t, tt.ok, ok, tt.channel)
		assert.Equal(t, tt.expected, id, tt.channel)
	}
}

func TestNotifier_WithoutRedisDispatchesLocally(t *testing.T) {
	n := NewNotifier(nil)
	ctx := context.Background()

	var got []string
	require.NoError(t, n.StartConversationSubscriber(ctx, func(channel, payload string) {
		got = append(got, channel+"="+payload)
	}))

	require.NoError(t, n.PublishConversation(ctx, 3, "hello"))
	require.NoError(t, n.PublishUser(ctx, 3, "ignored by conversation subscribers"))

	assert.Equal(t, []string{"chat:conv:3=hello"}, got)
}

func TestNotifier_LocalDispatchRecoversPanics(t *testing.T) {
	n := NewNotifier(nil)
	ctx := context.Background()
	calls := 0
	require.NoError(t, n.StartUserSubscriber(ctx, func(string, string) { panic("boom") }))
	require.NoError(t, n.StartUserSubscriber(ctx, func(string, string) { calls++ }))

	assert.NotPanics(t, func() { _ = n.PublishUser(ctx, 1, "x") })
	assert.Equal(t, 1, calls)
}

func TestNotifier_RedisRoundTrip(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan string, 4)
	require.NoError(t, n.StartUserSubscriber(ctx, func(channel, payload string) {
		received <- channel + "=" + payload
	}))

	require.NoError(t, n.PublishUser(ctx, 9, `{"type":"follow"}`))
	require.NoError(t, n.PublishConversation(ctx, 9, "not for user subscribers"))

	select {
	case msg := <-received:
		assert.Equal(t, `notifications:user:9={"type":"follow"}`, msg)
	case <-time.After(testEventuallyTimeout):
		t.Fatal("timed out waiting for published payload")
	}
	assert.Never(t, func() bool { return len(received) > 0 }, 10*testPollInterval, testPollInterval)
}

func TestNotifier_SubscriberStopsOnCancel(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())

	received := make(chan string, 4)
	require.NoError(t, n.StartConversationSubscriber(ctx, func(_, payload string) { received <- payload }))
	require.NoError(t, n.PublishConversation(context.Background(), 1, "first"))
	assert.Eventually(t, func() bool { return len(received) == 1 }, testEventuallyTimeout, testPollInterval)

	cancel()
	assert.Eventually(t, func() bool {
		subs, err := rdb.PubSubNumPat(context.Background()).Result()
		return err == nil && subs == 0
	}, testEventuallyTimeout, testPollInterval)
}
