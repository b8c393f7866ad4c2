package effects

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store 是已审核效果数据的数据访问层。
// 除 Service 外，其他代码不应直接读取它。
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Plan 根据事务内读取到的当前行计算改动，并可以在同一事务中写入附带数据。
// 返回错误会使整个事务回滚。
type Plan func(tx *gorm.DB, current []EffectRow) (Changes, error)

// Upsert 写入单个键，已存在时覆盖
func (s *Store) Upsert(ctx context.Context, itemID uint, key, value string) error {
	return upsertRows(s.db.WithContext(ctx), itemID, []Upsert{{Key: key, Value: value}})
}

// Delete 删除给定的键，不存在的键会被忽略
func (s *Store) Delete(ctx context.Context, itemID uint, keys []string) error {
	return deleteRows(s.db.WithContext(ctx), itemID, keys)
}

// ListByItem 返回物品的所有效果行，按键排序
func (s *Store) ListByItem(ctx context.Context, itemID uint) ([]EffectRow, error) {
	return listRows(s.db.WithContext(ctx), itemID)
}

// Apply 在一个事务中读取当前行、执行 plan 并写入它返回的改动，要么全部成功，要么全部回滚。
func (s *Store) Apply(ctx context.Context, itemID uint, plan Plan) (Changes, error) {
	var applied Changes
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := listRows(tx, itemID)
		if err != nil {
			return err
		}
		changes, err := plan(tx, current)
		if err != nil {
			return err
		}
		if err := upsertRows(tx, itemID, changes.Upserts); err != nil {
			return err
		}
		if err := deleteRows(tx, itemID, changes.Deletions); err != nil {
			return err
		}
		applied = changes
		return nil
	})
	if err != nil {
		return Changes{}, err
	}
	return applied, nil
}

func listRows(db *gorm.DB, itemID uint) ([]EffectRow, error) {
	var rows []EffectRow
	if err := db.Where("item_id = ?", itemID).Order("effect_key asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("无法查询物品 %d 的效果数据: %w", itemID, err)
	}
	return rows, nil
}

func upsertRows(db *gorm.DB, itemID uint, upserts []Upsert) error {
	if len(upserts) == 0 {
		return nil
	}
	rows := make([]EffectRow, 0, len(upserts))
	for _, u := range upserts {
		rows = append(rows, EffectRow{ItemID: itemID, EffectKey: u.Key, Value: u.Value})
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}, {Name: "effect_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("无法写入物品 %d 的效果数据: %w", itemID, err)
	}
	return nil
}

func deleteRows(db *gorm.DB, itemID uint, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	err := db.Where("item_id = ? AND effect_key IN ?", itemID, keys).Delete(&EffectRow{}).Error
	if err != nil {
		return fmt.Errorf("无法删除物品 %d 的效果数据: %w", itemID, err)
	}
	return nil
}
