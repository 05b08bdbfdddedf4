package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Cache key patterns (hash-tagged so both keys of a pair share a slot):
// - unread:{user_id:thread_id}      - derived unread count
// - unread:{user_id:thread_id}:gen  - bumped on every invalidation

const (
	DefaultUnreadTTL = 5 * time.Minute
	generationTTL    = 24 * time.Hour
)

// UnreadCache caches per-user unread counts. A count is only written when
// the generation read before computing it is still current.
type UnreadCache struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

func NewUnreadCache(client goredis.UniversalClient, ttl time.Duration) *UnreadCache {
	if ttl < time.Second {
		ttl = DefaultUnreadTTL
	}
	return &UnreadCache{client: client, ttl: ttl}
}

func unreadKey(userID, threadID uuid.UUID) string {
	return fmt.Sprintf("unread:{%s:%s}", userID, threadID)
}

func generationKey(userID, threadID uuid.UUID) string {
	return unreadKey(userID, threadID) + ":gen"
}

// Get returns the cached count and whether it was present.
func (c *UnreadCache) Get(ctx context.Context, userID, threadID uuid.UUID) (int, bool, error) {
	n, err := c.client.Get(ctx, unreadKey(userID, threadID)).Int()
	if err == goredis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// Generation returns the current generation, 0 if none was recorded.
func (c *UnreadCache) Generation(ctx context.Context, userID, threadID uuid.UUID) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(userID, threadID)).Int64()
	if err == goredis.Nil {
		return 0, nil
	}
	return gen, err
}

var setIfGenerationScript = goredis.NewScript(`
	local current = redis.call('GET', KEYS[1]) or '0'
	if current ~= ARGV[1] then
		return 0
	end
	redis.call('SET', KEYS[2], ARGV[2], 'EX', ARGV[3])
	return 1
`)

func (c *UnreadCache) Set(ctx context.Context, userID, threadID uuid.UUID, gen int64, count int) (bool, error) {
	keys := []string{generationKey(userID, threadID), unreadKey(userID, threadID)}
	stored, err := setIfGenerationScript.Run(ctx, c.client, keys, gen, count, int(c.ttl.Seconds())).Int()
	if err != nil {
		return false, fmt.Errorf("unread cache set failed: %w", err)
	}
	return stored == 1, nil
}

// Invalidate advances the generation and drops the cached count of threadID
// for each user.
func (c *UnreadCache) Invalidate(ctx context.Context, threadID uuid.UUID, userIDs ...uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, id := range userIDs {
			gk := generationKey(id, threadID)
			pipe.Incr(ctx, gk)
			pipe.Expire(ctx, gk, generationTTL)
			pipe.Del(ctx, unreadKey(id, threadID))
		}
		return nil
	})
	return err
}
