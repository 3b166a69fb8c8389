// Package notifications fans out live events (new DMs, follows) to websocket
// clients through Redis pub/sub.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"

	"warbler/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix         = "notifications:user:"
	conversationChannelPrefix = "chat:conv:"
)

// Notifier publishes events into Redis channels and runs the pattern
// subscribers that feed the hubs. Without Redis it dispatches in process to
// the subscribers registered on the same Notifier.
type Notifier struct {
	rdb *redis.Client

	mu    sync.RWMutex
	local map[string][]func(channel, payload string)
}

// NewNotifier creates a new Notifier. rdb may be nil.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{
		rdb:   rdb,
		local: make(map[string][]func(channel, payload string)),
	}
}

// PublishUser sends a payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	return n.publish(ctx, userChannelPrefix, UserChannel(userID), payload)
}

// PublishConversation sends a payload to a conversation's channel.
func (n *Notifier) PublishConversation(ctx context.Context, conversationID uint, payload string) error {
	return n.publish(ctx, conversationChannelPrefix, ConversationChannel(conversationID), payload)
}

func (n *Notifier) publish(ctx context.Context, prefix, channel, payload string) error {
	if n.rdb == nil {
		n.mu.RLock()
		handlers := n.local[prefix]
		n.mu.RUnlock()
		for _, h := range handlers {
			dispatch(h, channel, payload)
		}
		return nil
	}
	if err := n.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// StartUserSubscriber calls onMessage for every payload published to any user channel.
func (n *Notifier) StartUserSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	return n.subscribe(ctx, userChannelPrefix, onMessage)
}

// StartConversationSubscriber calls onMessage for every payload published to any conversation channel.
func (n *Notifier) StartConversationSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	return n.subscribe(ctx, conversationChannelPrefix, onMessage)
}

func (n *Notifier) subscribe(ctx context.Context, prefix string, onMessage func(channel, payload string)) error {
	if n.rdb == nil {
		n.mu.Lock()
		n.local[prefix] = append(n.local[prefix], onMessage)
		n.mu.Unlock()
		return nil
	}

	sub := n.rdb.PSubscribe(ctx, prefix+"*")
	// Block until Redis confirms the subscription.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s*: %w", prefix, err)
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
				dispatch(onMessage, msg.Channel, msg.Payload)
			}
		}
	}()

	return nil
}

func dispatch(onMessage func(channel, payload string), channel, payload string) {
	defer func() {
		if r := recover(); r != nil {
			middleware.Logger.Error("panic in notification subscriber",
				slog.String("channel", channel),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	onMessage(channel, payload)
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ConversationChannel derives the Redis channel name for a conversation.
func ConversationChannel(conversationID uint) string {
	return conversationChannelPrefix + strconv.FormatUint(uint64(conversationID), 10)
}

// ParseUserChannel extracts the user ID from a user channel name.
func ParseUserChannel(channel string) (uint, bool) {
	return parseChannelID(channel, userChannelPrefix)
}

// ParseConversationChannel extracts the conversation ID from a conversation channel name.
func ParseConversationChannel(channel string) (uint, bool) {
	return parseChannelID(channel, conversationChannelPrefix)
}

func parseChannelID(channel, prefix string) (uint, bool) {
	rest, ok := strings.CutPrefix(channel, prefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
