package submission

import (
	"context"
	"fmt"
	"sort"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// WeaponResolver 把武器名称解析为物品ID，由物品目录实现
type WeaponResolver interface {
	ResolveWeapons(ctx context.Context, names []string) (map[string]uint, error)
}

// Ingestor 负责解析、校验并保存一批战报
type Ingestor struct {
	repo     *Repository
	resolver WeaponResolver
}

func NewIngestor(repo *Repository, resolver WeaponResolver) *Ingestor {
	return &Ingestor{repo: repo, resolver: resolver}
}

// ParseBatch 把请求体拆分为单份战报。
// 请求体可以是战报数组，也可以是单个战报对象；每份战报保留其原始字节。
// 任意一份格式错误都会使整批被拒绝。
func ParseBatch(body []byte) ([]Prepared, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: 请求体不是合法的JSON", ErrInvalidReport)
	}

	root := gjson.ParseBytes(body)
	var elements []gjson.Result
	switch {
	case root.IsArray():
		elements = root.Array()
	case root.IsObject():
		elements = []gjson.Result{root}
	default:
		return nil, fmt.Errorf("%w: 请求体必须是对象或数组", ErrInvalidReport)
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: 战报列表为空", ErrInvalidReport)
	}

	batch := make([]Prepared, 0, len(elements))
	for i, el := range elements {
		if !el.IsObject() {
			return nil, fmt.Errorf("%w: 第 %d 份战报不是对象", ErrInvalidReport, i+1)
		}
		raw := []byte(el.Raw)
		var report BattleReport
		if err := sonic.Unmarshal(raw, &report); err != nil {
			return nil, fmt.Errorf("%w: 第 %d 份战报无法解析: %v", ErrInvalidReport, i+1, err)
		}
		if err := report.Validate(); err != nil {
			return nil, err
		}
		batch = append(batch, Prepared{Report: report, Raw: raw})
	}
	return batch, nil
}

// IngestBatch 解析请求体、解析武器引用并整体入库。
// 未能匹配到物品的武器名称会被忽略，战报仍以已匹配的物品为引用保存。
func (i *Ingestor) IngestBatch(ctx context.Context, body []byte) (StoreResult, error) {
	batch, err := ParseBatch(body)
	if err != nil {
		return StoreResult{}, err
	}

	var names []string
	seen := make(map[string]bool)
	for _, p := range batch {
		for _, name := range p.Report.WeaponNames() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	resolved, err := i.resolver.ResolveWeapons(ctx, names)
	if err != nil {
		return StoreResult{}, fmt.Errorf("无法解析武器名称: %w", err)
	}

	for idx := range batch {
		batch[idx].ItemIDs = referencedItems(batch[idx].Report, resolved)
		if len(batch[idx].ItemIDs) == 0 {
			log.Debug().Str("battle_id", batch[idx].Report.BattleID).Msg("战报中的武器均未在物品目录中找到")
		}
	}

	result, err := i.repo.StoreBatch(ctx, batch)
	if err != nil {
		return StoreResult{}, err
	}
	log.Info().Int("stored", result.Stored).Int("duplicates", result.Duplicates).Msg("战报入库完成")
	return result, nil
}

func referencedItems(report BattleReport, resolved map[string]uint) []uint {
	set := make(map[uint]bool)
	for _, name := range report.WeaponNames() {
		if id, ok := resolved[name]; ok {
			set[id] = true
		}
	}
	ids := make([]uint, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}
