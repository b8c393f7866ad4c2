package catalog

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Migrate 负责自动迁移物品目录表结构
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Item{}); err != nil {
		return fmt.Errorf("无法迁移item表: %w", err)
	}
	log.Debug().Msg("Item数据库表迁移成功。")
	return nil
}
