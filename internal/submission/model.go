package submission

import (
	"errors"
	"time"

	"gorm.io/datatypes"
)

// ErrInvalidReport 表示战报格式错误或为空
var ErrInvalidReport = errors.New("无效的战报")

// Submission 是原始战报在数据库中的持久化模型，只追加、不修改。
type Submission struct {
	ID uint `gorm:"primarykey"`

	// BattleID 由外部战斗系统生成，重复提交同一ID不会产生新记录
	BattleID string `gorm:"uniqueIndex;not null;type:varchar(128)"`

	// Payload 是提交时的原始JSON，逐字节保存
	Payload datatypes.JSON `gorm:"not null"`

	// ItemRefs 是战报引用的物品ID列表（反规范化副本，查询走 SubmissionItem）
	ItemRefs datatypes.JSON

	// Processed 只会在馆长采纳统计结果时被置为 true
	Processed bool `gorm:"index;not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SubmissionItem 索引战报与物品之间的引用关系
type SubmissionItem struct {
	SubmissionID uint `gorm:"primaryKey;autoIncrement:false"`
	ItemID       uint `gorm:"primaryKey;autoIncrement:false;index"`
}
