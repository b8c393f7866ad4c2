package effects

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Migrate 负责自动迁移已审核效果数据的表结构
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&EffectRow{}); err != nil {
		return fmt.Errorf("无法迁移effect_rows表: %w", err)
	}
	log.Debug().Msg("EffectRow数据库表迁移成功。")
	return nil
}
