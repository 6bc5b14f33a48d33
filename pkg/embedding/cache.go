package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"adjunct-search-go/pkg/log"
)

// RedisCache keeps query vectors in Redis as JSON arrays.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache returns nil when rdb is nil so callers can pass the result straight
// to NewGenerator.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) Cache {
	if rdb == nil {
		return nil
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warnf("[EmbeddingCache] 读取缓存失败, key: %s, error: %v", key, err)
		}
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		log.Warnf("[EmbeddingCache] 缓存内容无法解析, key: %s, error: %v", key, err)
		return nil, false
	}
	return vec, true
}

func (c *RedisCache) Set(ctx context.Context, key string, vec []float32) {
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Warnf("[EmbeddingCache] 写入缓存失败, key: %s, error: %v", key, err)
	}
}
