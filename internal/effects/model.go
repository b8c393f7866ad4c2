package effects

import "time"

// EffectRow 是已审核效果数据的一行，(ItemID, EffectKey) 唯一，重复写入即覆盖。
type EffectRow struct {
	ID        uint   `gorm:"primarykey"`
	ItemID    uint   `gorm:"not null;uniqueIndex:idx_item_effect_key"`
	EffectKey string `gorm:"type:varchar(191);not null;uniqueIndex:idx_item_effect_key"`
	Value     string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
