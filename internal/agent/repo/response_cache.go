package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/people-agent/server/internal/agent/cache"
	"github.com/people-agent/server/internal/agent/model"
	errx "github.com/people-agent/server/internal/core/error"
	logx "github.com/people-agent/server/pkg/logger"
)

// MemoryResponseCache holds final answers for one process.
type MemoryResponseCache struct {
	c *cache.TTL[string, string]
}

func NewMemoryResponseCache(ttl time.Duration, now func() time.Time) *MemoryResponseCache {
	return &MemoryResponseCache{c: cache.New[string, string](ttl, now)}
}

func (m *MemoryResponseCache) Get(_ context.Context, key string) (string, time.Duration, bool, error) {
	v, age, ok := m.c.Get(key)
	return v, age, ok, nil
}

func (m *MemoryResponseCache) Put(_ context.Context, key string, answer string) error {
	m.c.Put(key, answer)
	return nil
}

// RedisResponseCache shares final answers between processes. Redis expiry is
// set as a cleanup backstop; freshness is still decided from the stored
// timestamp when the entry is read.
type RedisResponseCache struct {
	rdb redis.Cmdable
	ttl time.Duration
	now func() time.Time
}

type cachedAnswer struct {
	Answer   string    `json:"answer"`
	StoredAt time.Time `json:"stored_at"`
}

func NewRedisResponseCache(rdb redis.Cmdable, ttl time.Duration, now func() time.Time) *RedisResponseCache {
	if now == nil {
		now = time.Now
	}
	return &RedisResponseCache{rdb: rdb, ttl: ttl, now: now}
}

func (r *RedisResponseCache) cacheKey(key string) string {
	return fmt.Sprintf("people:response:%s", key)
}

func (r *RedisResponseCache) Get(ctx context.Context, key string) (string, time.Duration, bool, error) {
	k := r.cacheKey(key)
	raw, err := r.rdb.Get(ctx, k).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", 0, false, nil
		}
		logx.Error().Err(err).Str("key", k).Msg("failed to read cached response")
		return "", 0, false, errx.WrapRedis(err)
	}

	var ca cachedAnswer
	if err := json.Unmarshal([]byte(raw), &ca); err != nil {
		logx.Warn().Err(err).Str("key", k).Msg("dropping unreadable cached response")
		return "", 0, false, nil
	}
	age := r.now().Sub(ca.StoredAt)
	if age >= r.ttl {
		return "", 0, false, nil
	}
	return ca.Answer, age, true, nil
}

func (r *RedisResponseCache) Put(ctx context.Context, key string, answer string) error {
	b, err := json.Marshal(cachedAnswer{Answer: answer, StoredAt: r.now()})
	if err != nil {
		return fmt.Errorf("marshal cached response: %w", err)
	}
	k := r.cacheKey(key)
	if err := r.rdb.Set(ctx, k, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", k).Msg("failed to store cached response")
		return errx.WrapRedis(err)
	}
	return nil
}

var (
	_ model.ResponseCache = (*MemoryResponseCache)(nil)
	_ model.ResponseCache = (*RedisResponseCache)(nil)
)
