package effects

import (
	"math"

	"github.com/SlpAus/battle-effects-backend/internal/aggregate"
)

// FreezeField 是冰冻概率在 other 分区中的字段名
const FreezeField = "freeze"

// ViewFromAggregation 把统计结果转换为视图：
// 数组型分区的值为数值范围，其余分区写入 other 的 "<分区>_<图标>" 字段，
// 冰冻概率写入 other 的 freeze 字段。
func ViewFromAggregation(r aggregate.Result) View {
	view := NewView()
	for _, icon := range r.Icons {
		section := Section(icon.Section)
		switch {
		case section.IsArray():
			key := EffectKey{Section: section, Icon: icon.Icon, Suffix: 1}
			view.appendEntry(section, Entry{Icon: icon.Icon, Key: key.String(), Value: icon.Range})
		case icon.Section == aggregate.SectionOther:
			view.Other[icon.Icon] = icon.Range
		default:
			view.Other[icon.Section+"_"+icon.Icon] = icon.Range
		}
	}
	if r.Freeze != nil {
		view.Other[FreezeField] = aggregate.FormatAmount(math.Round(r.Freeze.Percentage*10)/10) + "%"
	}
	return view
}

// mergeView 以 current 为基础叠加 incoming：同键覆盖，新键追加，notes 保持不变。
// 采纳统计结果不会删除馆长已有的条目。
func mergeView(current, incoming View) View {
	merged := NewView()
	for _, section := range ArraySections {
		index := make(map[string]int)
		for _, e := range current.Entries(section) {
			index[e.Key] = len(merged.Entries(section))
			merged.appendEntry(section, e)
		}
		for _, e := range incoming.Entries(section) {
			if i, ok := index[e.Key]; ok {
				merged.Entries(section)[i].Value = e.Value
				continue
			}
			merged.appendEntry(section, e)
		}
	}
	for field, value := range current.Other {
		merged.Other[field] = value
	}
	for field, value := range incoming.Other {
		merged.Other[field] = value
	}
	merged.Notes = current.Notes
	return merged
}
