package database

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/SlpAus/battle-effects-backend/internal/platform/config"
)

// RDB 是一个全局的Redis客户端实例；Redis被禁用时为 nil
var RDB *redis.Client

// InitRedis 初始化与Redis数据库的连接。
// Redis 在本服务中只承担缓存职责，连接失败时降级运行而不是退出。
func InitRedis(ctx context.Context, cfg config.RedisConfig) {
	if !cfg.Enabled {
		log.Info().Msg("Redis已在配置中禁用，已审核视图将不做缓存")
		return
	}

	RDB = redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := RDB.Ping(ctx).Err(); err != nil {
		UpdateStatus(false)
		log.Warn().Err(err).Str("addr", cfg.Address).Msg("无法连接到Redis，以降级模式启动")
		return
	}

	UpdateStatus(true)
	log.Info().Str("addr", cfg.Address).Msg("Redis 连接成功！")
}
