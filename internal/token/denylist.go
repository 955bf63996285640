package token

import (
	"context"
	"errors"
	"time"

	"github.com/jellydator/ttlcache/v2"
	"github.com/redis/go-redis/v9"
)

// MemoryDenylist keeps revoked ids in process memory. Revocations are lost
// on restart and are not shared between instances.
type MemoryDenylist struct {
	cache *ttlcache.Cache
}

func NewMemoryDenylist() *MemoryDenylist {
	c := ttlcache.NewCache()
	c.SkipTTLExtensionOnHit(true)

	return &MemoryDenylist{cache: c}
}

func (m *MemoryDenylist) Add(_ context.Context, id string, ttl time.Duration) error {
	return m.cache.SetWithTTL(id, struct{}{}, ttl)
}

func (m *MemoryDenylist) Contains(_ context.Context, id string) (bool, error) {
	_, err := m.cache.Get(id)
	if errors.Is(err, ttlcache.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (m *MemoryDenylist) Close() error {
	return m.cache.Close()
}

const redisKeyPrefix = "revoked_session:"

type RedisDenylist struct {
	rdb redis.Cmdable
}

func NewRedisDenylist(rdb redis.Cmdable) *RedisDenylist {
	return &RedisDenylist{rdb: rdb}
}

func (r *RedisDenylist) Add(ctx context.Context, id string, ttl time.Duration) error {
	return r.rdb.Set(ctx, redisKeyPrefix+id, "1", ttl).Err()
}

func (r *RedisDenylist) Contains(ctx context.Context, id string) (bool, error) {
	n, err := r.rdb.Exists(ctx, redisKeyPrefix+id).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}
