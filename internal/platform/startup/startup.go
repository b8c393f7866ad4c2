package startup

import (
	"context"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/SlpAus/battle-effects-backend/internal/catalog"
	"github.com/SlpAus/battle-effects-backend/internal/effects"
	"github.com/SlpAus/battle-effects-backend/internal/platform/database"
	"github.com/SlpAus/battle-effects-backend/internal/platform/metadata"
	"github.com/SlpAus/battle-effects-backend/internal/submission"
)

// InitializeSchema 迁移所有模块的表结构，服务和命令行工具启动时都会调用
func InitializeSchema(db *gorm.DB) error {
	log.Info().Msg("开始迁移数据库表结构...")

	migrations := []func(*gorm.DB) error{
		metadata.Migrate,
		catalog.Migrate,
		submission.Migrate,
		effects.Migrate,
	}
	for _, migrate := range migrations {
		if err := migrate(db); err != nil {
			return err
		}
	}

	log.Info().Msg("数据库表结构迁移完成！")
	return nil
}

// RebuildCache 清空视图缓存。
// 上次运行期间Redis不可用时的写入无法使缓存失效，因此启动时不能信任已有的缓存。
func RebuildCache(ctx context.Context, cache *effects.Cache) {
	if cache == nil || !database.IsRedisHealthy() {
		return
	}
	if err := cache.Flush(ctx); err != nil {
		log.Warn().Err(err).Msg("启动时清空视图缓存失败，标记Redis为不可用")
		database.UpdateStatus(false)
	}
}
