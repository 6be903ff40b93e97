package conversations

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/people-agent/server/internal/agent/model"
)

// MessagesManager owns one store of conversation turns and keeps every
// conversation within its memory limit.
type MessagesManager struct {
	conversationRepo model.ConversationRepository
	memoryLimit      int
	historyWindow    int
}

func NewMessagesManager(conversationRepo model.ConversationRepository, config model.ConversationConfig) *MessagesManager {
	return &MessagesManager{
		conversationRepo: conversationRepo,
		memoryLimit:      config.MemoryLimit,
		historyWindow:    config.HistoryWindow,
	}
}

// SaveQuery appends the user's turn.
func (cm *MessagesManager) SaveQuery(ctx context.Context, conversationID string, query string) error {
	return cm.append(ctx, conversationID, schema.UserMessage(query))
}

// SaveResponse appends the assistant's turn.
func (cm *MessagesManager) SaveResponse(ctx context.Context, conversationID string, content string) error {
	return cm.append(ctx, conversationID, schema.AssistantMessage(content, nil))
}

// append adds msg and trims right away, so the stored history is never
// longer than the memory limit between two calls.
func (cm *MessagesManager) append(ctx context.Context, conversationID string, msg *schema.Message) error {
	if err := cm.conversationRepo.AddMessage(ctx, conversationID, msg); err != nil {
		return err
	}
	return cm.conversationRepo.Trim(ctx, conversationID, cm.memoryLimit)
}

// RecentWindow returns the last historyWindow turns without system turns,
// oldest first, ready to be placed ahead of the current query.
func (cm *MessagesManager) RecentWindow(ctx context.Context, conversationID string) ([]*schema.Message, error) {
	history, err := cm.conversationRepo.LoadHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	recent := trimTail(history.Messages, cm.historyWindow)
	out := recent[:0]
	for _, msg := range recent {
		if msg == nil || msg.Role == schema.System || msg.Content == "" {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

// History returns every stored turn.
func (cm *MessagesManager) History(ctx context.Context, conversationID string) ([]*schema.Message, error) {
	history, err := cm.conversationRepo.LoadHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return history.Messages, nil
}

// Clear forgets the conversation.
func (cm *MessagesManager) Clear(ctx context.Context, conversationID string) error {
	return cm.conversationRepo.ClearHistory(ctx, conversationID)
}

// ====================== Helper function ======================
func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if maxTurns < 0 {
		maxTurns = 0
	}
	if len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
