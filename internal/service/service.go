// Package service holds warbler's business rules on top of the repositories:
// credentials, the social graph, the message ledger and conversations.
package service

import "context"

// Publisher delivers live events. notifications.Notifier satisfies it.
type Publisher interface {
	PublishUser(ctx context.Context, userID uint, payload string) error
	PublishConversation(ctx context.Context, conversationID uint, payload string) error
}
