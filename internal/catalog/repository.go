package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrItemNotFound 表示物品目录中没有对应的记录
var ErrItemNotFound = errors.New("物品不存在")

// Repository 是物品目录的数据访问层
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ResolveWeapons 把武器名称解析为物品ID。
// 名称按区分大小写的完全相等匹配，未匹配的名称不会出现在结果中。
func (r *Repository) ResolveWeapons(ctx context.Context, names []string) (map[string]uint, error) {
	resolved := make(map[string]uint, len(names))
	if len(names) == 0 {
		return resolved, nil
	}

	var items []Item
	if err := r.db.WithContext(ctx).Where("name IN ?", names).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("无法查询物品目录: %w", err)
	}
	for _, item := range items {
		resolved[item.Name] = item.ID
	}
	return resolved, nil
}

// GetByID 按ID获取物品
func (r *Repository) GetByID(ctx context.Context, id uint) (*Item, error) {
	var item Item
	err := r.db.WithContext(ctx).First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("无法查询物品 %d: %w", id, err)
	}
	return &item, nil
}

// Upsert 以名称为键写入物品：已存在的名称只更新分类，新名称按给定ID（为0时自增）插入。
func (r *Repository) Upsert(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			var existing Item
			err := tx.Where("name = ?", item.Name).First(&existing).Error
			switch {
			case err == nil:
				if err := tx.Model(&existing).Update("category", item.Category).Error; err != nil {
					return fmt.Errorf("无法更新物品 %s: %w", item.Name, err)
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				newItem := Item{ID: item.ID, Name: item.Name, Category: item.Category}
				if err := tx.Create(&newItem).Error; err != nil {
					return fmt.Errorf("无法创建物品 %s: %w", item.Name, err)
				}
			default:
				return err
			}
		}
		return nil
	})
}
