package submission

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Prepared 是通过校验、已完成武器解析、等待入库的战报
type Prepared struct {
	Report  BattleReport
	Raw     []byte
	ItemIDs []uint
}

// StoreResult 统计一次入库的结果
type StoreResult struct {
	Stored     int `json:"stored"`
	Duplicates int `json:"duplicates"`
}

// Repository 是原始战报的数据访问层
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Store 保存单份战报，battle_id 已存在时为空操作并返回 false。
func (r *Repository) Store(ctx context.Context, p Prepared) (bool, error) {
	res, err := r.StoreBatch(ctx, []Prepared{p})
	if err != nil {
		return false, err
	}
	return res.Stored == 1, nil
}

// StoreBatch 在一个事务中保存一批战报，任何一份写入失败都会整体回滚。
func (r *Repository) StoreBatch(ctx context.Context, batch []Prepared) (StoreResult, error) {
	var result StoreResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range batch {
			refs, err := sonic.Marshal(p.ItemIDs)
			if err != nil {
				return fmt.Errorf("无法序列化物品引用: %w", err)
			}
			sub := Submission{
				BattleID: p.Report.BattleID,
				Payload:  datatypes.JSON(p.Raw),
				ItemRefs: datatypes.JSON(refs),
			}
			create := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "battle_id"}},
				DoNothing: true,
			}).Create(&sub)
			if create.Error != nil {
				return fmt.Errorf("无法保存战报 %s: %w", p.Report.BattleID, create.Error)
			}
			if create.RowsAffected == 0 {
				result.Duplicates++
				continue
			}
			result.Stored++

			if len(p.ItemIDs) == 0 {
				continue
			}
			links := make([]SubmissionItem, 0, len(p.ItemIDs))
			for _, itemID := range p.ItemIDs {
				links = append(links, SubmissionItem{SubmissionID: sub.ID, ItemID: itemID})
			}
			if err := tx.Create(&links).Error; err != nil {
				return fmt.Errorf("无法保存战报 %s 的物品引用: %w", p.Report.BattleID, err)
			}
		}
		return nil
	})
	if err != nil {
		return StoreResult{}, err
	}
	return result, nil
}

func unprocessedQuery(db *gorm.DB, itemID uint) *gorm.DB {
	return db.Model(&Submission{}).
		Joins("JOIN submission_items ON submission_items.submission_id = submissions.id").
		Where("submission_items.item_id = ? AND submissions.processed = ?", itemID, false)
}

// FetchUnprocessed 返回所有引用了该物品且尚未被采纳的战报，按入库顺序排列。
func (r *Repository) FetchUnprocessed(ctx context.Context, itemID uint) ([]BattleReport, error) {
	batch, err := LoadUnprocessed(r.db.WithContext(ctx), itemID)
	if err != nil {
		return nil, err
	}
	return batch.Reports, nil
}

// UnprocessedBatch 是一次读取到的未处理战报及其ID，两者按相同顺序排列
type UnprocessedBatch struct {
	IDs     []uint
	Reports []BattleReport
}

// LoadUnprocessed 与 FetchUnprocessed 相同，但在调用方给定的连接或事务上执行，
// 并返回战报ID。采纳流程只把这些ID交给 MarkProcessed。
func LoadUnprocessed(db *gorm.DB, itemID uint) (UnprocessedBatch, error) {
	var subs []Submission
	if err := unprocessedQuery(db, itemID).Order("submissions.id asc").Find(&subs).Error; err != nil {
		return UnprocessedBatch{}, fmt.Errorf("无法查询物品 %d 的未处理战报: %w", itemID, err)
	}

	batch := UnprocessedBatch{
		IDs:     make([]uint, 0, len(subs)),
		Reports: make([]BattleReport, 0, len(subs)),
	}
	for _, s := range subs {
		var report BattleReport
		if err := sonic.Unmarshal(s.Payload, &report); err != nil {
			return UnprocessedBatch{}, fmt.Errorf("战报 %s 的存档已损坏: %w", s.BattleID, err)
		}
		batch.IDs = append(batch.IDs, s.ID)
		batch.Reports = append(batch.Reports, report)
	}
	return batch, nil
}

// HasUnprocessed 判断是否存在引用了该物品的未处理战报
func (r *Repository) HasUnprocessed(ctx context.Context, itemID uint) (bool, error) {
	var count int64
	if err := unprocessedQuery(r.db.WithContext(ctx), itemID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("无法统计物品 %d 的未处理战报: %w", itemID, err)
	}
	return count > 0, nil
}

// MarkProcessed 把给定的战报标记为已处理，ids 必须来自同一事务中的 LoadUnprocessed。
// 必须传入调用方的事务，使其与审核数据的写入一同提交或回滚。
func MarkProcessed(tx *gorm.DB, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := tx.Model(&Submission{}).Where("id IN ? AND processed = ?", ids, false).Update("processed", true)
	if res.Error != nil {
		return 0, fmt.Errorf("无法标记 %d 条战报为已处理: %w", len(ids), res.Error)
	}
	return res.RowsAffected, nil
}
