package model

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

type ConversationRepository interface {
	// AddMessage adds a message to the conversation history for the given conversation
	AddMessage(ctx context.Context, conversationID string, message *schema.Message) error

	// LoadHistory retrieves the conversation history for a conversation
	LoadHistory(ctx context.Context, conversationID string) (*ConversationHistory, error)

	// ClearHistory removes all conversation history for a conversation
	ClearHistory(ctx context.Context, conversationID string) error

	// GetMessageCount returns the number of messages in the conversation
	GetMessageCount(ctx context.Context, conversationID string) (int, error)

	// Trim keeps only the newest limit messages, dropping the oldest first.
	Trim(ctx context.Context, conversationID string, limit int) error
}

// ConversationHistory represents loaded conversation data with metadata.
type ConversationHistory struct {
	ConversationID string
	Messages       []*schema.Message
}

// ResponseCache stores final answers by fingerprint. Entries older than the
// cache TTL are reported absent; expiry is decided at read time.
type ResponseCache interface {
	Get(ctx context.Context, key string) (answer string, age time.Duration, ok bool, err error)
	Put(ctx context.Context, key string, answer string) error
}
