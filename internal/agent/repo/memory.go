package repo

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/people-agent/server/internal/agent/model"
)

// MemoryConversationRepository keeps history in process memory.
type MemoryConversationRepository struct {
	mu    sync.RWMutex
	convs map[string][]*schema.Message
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{convs: make(map[string][]*schema.Message)}
}

func (r *MemoryConversationRepository) AddMessage(_ context.Context, conversationID string, message *schema.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.convs[conversationID] = append(r.convs[conversationID], message)
	return nil
}

func (r *MemoryConversationRepository) LoadHistory(_ context.Context, conversationID string) (*model.ConversationHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msgs := make([]*schema.Message, len(r.convs[conversationID]))
	copy(msgs, r.convs[conversationID])
	return &model.ConversationHistory{ConversationID: conversationID, Messages: msgs}, nil
}

func (r *MemoryConversationRepository) ClearHistory(_ context.Context, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.convs, conversationID)
	return nil
}

func (r *MemoryConversationRepository) GetMessageCount(_ context.Context, conversationID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.convs[conversationID]), nil
}

func (r *MemoryConversationRepository) Trim(_ context.Context, conversationID string, limit int) error {
	if limit <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.convs[conversationID]
	if len(msgs) <= limit {
		return nil
	}
	kept := make([]*schema.Message, limit)
	copy(kept, msgs[len(msgs)-limit:])
	r.convs[conversationID] = kept
	return nil
}

var _ model.ConversationRepository = (*MemoryConversationRepository)(nil)
