package submission

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Migrate 负责自动迁移原始战报相关的表结构
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Submission{}, &SubmissionItem{}); err != nil {
		return fmt.Errorf("无法迁移submission表: %w", err)
	}
	log.Debug().Msg("Submission数据库表迁移成功。")
	return nil
}
