package repo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/people-agent/server/internal/agent/model"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func conversationRepos(t *testing.T) map[string]model.ConversationRepository {
	_, rdb := newRedis(t)
	return map[string]model.ConversationRepository{
		"memory": NewMemoryConversationRepository(),
		"redis":  NewRedisConversationRepository(rdb, time.Hour),
	}
}

func TestConversationRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, r := range conversationRepos(t) {
		t.Run(name, func(t *testing.T) {
			if err := r.AddMessage(ctx, "jane", schema.UserMessage("hi")); err != nil {
				t.Fatalf("AddMessage: %v", err)
			}
			if err := r.AddMessage(ctx, "jane", schema.AssistantMessage("hello", nil)); err != nil {
				t.Fatalf("AddMessage: %v", err)
			}

			h, err := r.LoadHistory(ctx, "jane")
			if err != nil {
				t.Fatalf("LoadHistory: %v", err)
			}
			if len(h.Messages) != 2 {
				t.Fatalf("expected 2 messages, got %d", len(h.Messages))
			}
			if h.Messages[0].Role != schema.User || h.Messages[1].Content != "hello" {
				t.Errorf("unexpected history %+v", h.Messages)
			}

			if err := r.ClearHistory(ctx, "jane"); err != nil {
				t.Fatalf("ClearHistory: %v", err)
			}
			n, err := r.GetMessageCount(ctx, "jane")
			if err != nil || n != 0 {
				t.Errorf("expected empty history, got %d %v", n, err)
			}
		})
	}
}

func TestConversationRepositoryTrimDropsOldest(t *testing.T) {
	ctx := context.Background()
	for name, r := range conversationRepos(t) {
		t.Run(name, func(t *testing.T) {
			for _, c := range []string{"1", "2", "3", "4", "5"} {
				if err := r.AddMessage(ctx, "id", schema.UserMessage(c)); err != nil {
					t.Fatal(err)
				}
			}
			if err := r.Trim(ctx, "id", 3); err != nil {
				t.Fatalf("Trim: %v", err)
			}
			h, err := r.LoadHistory(ctx, "id")
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, m := range h.Messages {
				got = append(got, m.Content)
			}
			if len(got) != 3 || got[0] != "3" || got[2] != "5" {
				t.Errorf("expected [3 4 5], got %v", got)
			}
		})
	}
}

func TestLoadHistoryUnknownConversation(t *testing.T) {
	ctx := context.Background()
	for name, r := range conversationRepos(t) {
		t.Run(name, func(t *testing.T) {
			h, err := r.LoadHistory(ctx, "nobody")
			if err != nil {
				t.Fatalf("LoadHistory: %v", err)
			}
			if len(h.Messages) != 0 {
				t.Errorf("expected no messages")
			}
		})
	}
}

func TestResponseCachesExpireAtReadTime(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(10_000, 0)
	clock := func() time.Time { return now }
	_, rdb := newRedis(t)

	caches := map[string]model.ResponseCache{
		"memory": NewMemoryResponseCache(time.Minute, clock),
		"redis":  NewRedisResponseCache(rdb, time.Minute, clock),
	}
	for name, c := range caches {
		t.Run(name, func(t *testing.T) {
			now = time.Unix(10_000, 0)
			if err := c.Put(ctx, "k", "answer"); err != nil {
				t.Fatalf("Put: %v", err)
			}

			now = now.Add(30 * time.Second)
			got, age, ok, err := c.Get(ctx, "k")
			if err != nil || !ok || got != "answer" {
				t.Fatalf("expected hit, got %q %v %v", got, ok, err)
			}
			if age != 30*time.Second {
				t.Errorf("age = %s", age)
			}

			now = now.Add(30 * time.Second)
			if _, _, ok, _ := c.Get(ctx, "k"); ok {
				t.Errorf("entry older than TTL must read as absent")
			}
		})
	}
}

func TestRedisResponseCacheMiss(t *testing.T) {
	_, rdb := newRedis(t)
	c := NewRedisResponseCache(rdb, time.Minute, nil)
	_, _, ok, err := c.Get(context.Background(), "missing")
	if err != nil || ok {
		t.Errorf("expected clean miss, got ok=%v err=%v", ok, err)
	}
}
