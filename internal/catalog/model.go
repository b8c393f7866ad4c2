package catalog

import "time"

// Item 是物品目录中的一条记录。
// 目录属于平台的其他部分，这里只保留效果引擎需要的字段。
type Item struct {
	ID uint `gorm:"primarykey" json:"id" yaml:"id"`

	// Name 是物品在战斗日志中出现的名称，区分大小写
	Name string `gorm:"uniqueIndex;not null" json:"name" yaml:"name"`

	// Category 例如 "weapon"
	Category string `gorm:"index" json:"category" yaml:"category"`

	CreatedAt time.Time `json:"-" yaml:"-"`
	UpdatedAt time.Time `json:"-" yaml:"-"`
}
