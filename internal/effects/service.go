package effects

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/SlpAus/battle-effects-backend/internal/aggregate"
	"github.com/SlpAus/battle-effects-backend/internal/catalog"
	"github.com/SlpAus/battle-effects-backend/internal/platform/metadata"
	"github.com/SlpAus/battle-effects-backend/internal/submission"
)

// ErrInsufficientData 表示没有任何合格攻击，无法采纳统计结果
var ErrInsufficientData = errors.New("统计数据不足")

// State 是物品效果数据的状态
type State string

const (
	// StateCurated 表示数据已由馆长确认，是权威数据
	StateCurated State = "curated"
	// StateProcessing 表示尚未审核，但已有未处理的战报，统计结果只作参考
	StateProcessing State = "processing"
	// StateEmpty 表示既没有审核数据也没有待处理的战报
	StateEmpty State = "empty"
)

// ReadResult 是读路径的结果；State 为 StateProcessing 时 View 为空视图
type ReadResult struct {
	State State
	View  View
}

// SubmissionSource 提供读路径和参考统计所需的原始战报
type SubmissionSource interface {
	HasUnprocessed(ctx context.Context, itemID uint) (bool, error)
	FetchUnprocessed(ctx context.Context, itemID uint) ([]submission.BattleReport, error)
}

// ItemLookup 按ID查找物品
type ItemLookup interface {
	GetByID(ctx context.Context, id uint) (*catalog.Item, error)
}

// Service 是效果数据唯一的读写入口
type Service struct {
	db          *gorm.DB
	store       *Store
	submissions SubmissionSource
	items       ItemLookup
	aggregator  *aggregate.Aggregator
	cache       *Cache
	now         func() time.Time
}

// NewService 创建服务；cache 可以为 nil
func NewService(db *gorm.DB, store *Store, submissions SubmissionSource, items ItemLookup, aggregator *aggregate.Aggregator, cache *Cache) *Service {
	return &Service{
		db:          db,
		store:       store,
		submissions: submissions,
		items:       items,
		aggregator:  aggregator,
		cache:       cache,
		now:         time.Now,
	}
}

// GetCuratedView 返回物品的效果视图。
// 有审核标记或已有效果行时返回已审核视图；否则若存在未处理战报则返回"统计中"，
// 其余情况返回空视图。读路径从不触发采纳。
func (s *Service) GetCuratedView(ctx context.Context, itemID uint) (ReadResult, error) {
	if view, ok := s.cache.Get(ctx, itemID); ok {
		return ReadResult{State: StateCurated, View: view}, nil
	}

	version := s.cache.Version(ctx, itemID)
	rows, err := s.store.ListByItem(ctx, itemID)
	if err != nil {
		return ReadResult{}, err
	}
	marker, err := metadata.GetCuration(s.db.WithContext(ctx), itemID)
	if err != nil {
		return ReadResult{}, fmt.Errorf("无法读取物品 %d 的审核标记: %w", itemID, err)
	}

	if marker != nil || len(rows) > 0 {
		view := Assemble(itemID, rows)
		s.cache.Set(ctx, itemID, version, view)
		return ReadResult{State: StateCurated, View: view}, nil
	}

	pending, err := s.submissions.HasUnprocessed(ctx, itemID)
	if err != nil {
		return ReadResult{}, err
	}
	if pending {
		return ReadResult{State: StateProcessing, View: NewView()}, nil
	}

	if _, err := s.items.GetByID(ctx, itemID); err != nil {
		return ReadResult{}, err
	}
	return ReadResult{State: StateEmpty, View: NewView()}, nil
}

// Curate 把馆长编辑后的视图与当前视图比较，并在一个事务中写入改动和审核标记。
// 即使没有任何改动，物品也会被标记为已审核。
func (s *Service) Curate(ctx context.Context, curator string, itemID uint, edited View) (Changes, error) {
	if _, err := s.items.GetByID(ctx, itemID); err != nil {
		return Changes{}, err
	}

	changes, err := s.store.Apply(ctx, itemID, func(tx *gorm.DB, current []EffectRow) (Changes, error) {
		changes, err := Diff(Assemble(itemID, current), edited)
		if err != nil {
			return Changes{}, err
		}
		marker := metadata.Curation{Curator: curator, CuratedAt: s.now(), Source: metadata.SourceEdit}
		if err := metadata.SetCuration(tx, itemID, marker); err != nil {
			return Changes{}, fmt.Errorf("无法写入审核标记: %w", err)
		}
		return changes, nil
	})
	if err != nil {
		return Changes{}, err
	}
	s.cache.Invalidate(ctx, itemID)

	log.Info().
		Str("curator", curator).
		Uint("item_id", itemID).
		Int("upserts", len(changes.Upserts)).
		Int("deletions", len(changes.Deletions)).
		Msg("效果数据已更新")
	return changes, nil
}

// Promote 把未处理战报的统计结果合并进已审核数据，并把这些战报标记为已处理。
// 统计、写入与标记在同一个事务中完成。
func (s *Service) Promote(ctx context.Context, curator string, itemID uint) (Changes, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return Changes{}, err
	}

	var marked int64
	changes, err := s.store.Apply(ctx, itemID, func(tx *gorm.DB, current []EffectRow) (Changes, error) {
		batch, err := submission.LoadUnprocessed(tx, itemID)
		if err != nil {
			return Changes{}, err
		}
		result := s.aggregator.Aggregate(item.Name, batch.Reports)
		if result.Empty() {
			return Changes{}, ErrInsufficientData
		}

		currentView := Assemble(itemID, current)
		changes, err := Diff(currentView, mergeView(currentView, ViewFromAggregation(result)))
		if err != nil {
			return Changes{}, err
		}

		marker := metadata.Curation{Curator: curator, CuratedAt: s.now(), Source: metadata.SourcePromotion}
		if err := metadata.SetCuration(tx, itemID, marker); err != nil {
			return Changes{}, fmt.Errorf("无法写入审核标记: %w", err)
		}
		if marked, err = submission.MarkProcessed(tx, batch.IDs); err != nil {
			return Changes{}, err
		}
		return changes, nil
	})
	if err != nil {
		return Changes{}, err
	}
	s.cache.Invalidate(ctx, itemID)

	log.Info().
		Str("curator", curator).
		Uint("item_id", itemID).
		Int("upserts", len(changes.Upserts)).
		Int64("processed", marked).
		Msg("统计结果已采纳")
	return changes, nil
}

// Advisory 对未处理战报实时计算统计结果，只读且不做缓存。
func (s *Service) Advisory(ctx context.Context, itemID uint) (aggregate.Result, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return aggregate.Result{}, err
	}
	reports, err := s.submissions.FetchUnprocessed(ctx, itemID)
	if err != nil {
		return aggregate.Result{}, err
	}
	return s.aggregator.Aggregate(item.Name, reports), nil
}
