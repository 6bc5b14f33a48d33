package database

import (
	"context"

	"github.com/go-redis/redis/v8"

	"adjunct-search-go/pkg/log"
)

var RDB *redis.Client

// InitRedis 初始化 Redis 客户端连接。
// Redis 只承载查询向量缓存与 Kafka 重试计数，连接失败时不阻止启动。
func InitRedis(addr, password string, db int) {
	if addr == "" {
		log.Warnf("未配置 Redis 地址，跳过 Redis 初始化")
		return
	}
	RDB = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// 测试连接
	ctx := context.Background()
	if err := RDB.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to redis, cache disabled", err)
		_ = RDB.Close()
		RDB = nil
		return
	}

	log.Info("Redis client connected successfully")
}
