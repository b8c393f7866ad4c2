package effects

import (
	"fmt"
	"sort"
)

// Upsert 是一条需要写入（新增或覆盖）的效果行
type Upsert struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Changes 是把旧视图变为新视图所需的最小改动，两个列表均按键排序。
type Changes struct {
	Upserts   []Upsert `json:"upserts"`
	Deletions []string `json:"deletions"`
}

// IsEmpty 判断是否没有任何改动
func (c Changes) IsEmpty() bool {
	return len(c.Upserts) == 0 && len(c.Deletions) == 0
}

// Diff 计算把 old 变为 edited 所需的改动，不执行任何 I/O。
//
//   - 数组分区：值变化或新增的键写入，edited 中缺失的键删除，未变化的键忽略。
//     edited 中没有键的条目按 {分区, 图标} 分配最小的空闲后缀。
//   - other：值变化或新增的字段写入；缺失的字段视为未变化，不会删除。
//   - notes：变为空时删除，变为非空时写入。
func Diff(old, edited View) (Changes, error) {
	changes := Changes{Upserts: []Upsert{}, Deletions: []string{}}

	for _, section := range ArraySections {
		oldValues := make(map[string]string)
		for _, e := range old.Entries(section) {
			if e.Key != "" {
				oldValues[e.Key] = e.Value
			}
		}
		newValues, err := resolveEntries(section, edited.Entries(section))
		if err != nil {
			return Changes{}, err
		}

		for key, value := range newValues {
			if prev, ok := oldValues[key]; !ok || prev != value {
				changes.Upserts = append(changes.Upserts, Upsert{Key: key, Value: value})
			}
		}
		for key := range oldValues {
			if _, ok := newValues[key]; !ok {
				changes.Deletions = append(changes.Deletions, key)
			}
		}
	}

	for field, value := range edited.Other {
		if field == "" {
			return Changes{}, fmt.Errorf("%w: other 分区的字段名不能为空", ErrInvalidView)
		}
		if prev, ok := old.Other[field]; !ok || prev != value {
			key := EffectKey{Section: SectionOther, Icon: field}
			changes.Upserts = append(changes.Upserts, Upsert{Key: key.String(), Value: value})
		}
	}

	if edited.Notes != old.Notes {
		if edited.Notes == "" {
			changes.Deletions = append(changes.Deletions, string(SectionNotes))
		} else {
			changes.Upserts = append(changes.Upserts, Upsert{Key: string(SectionNotes), Value: edited.Notes})
		}
	}

	sort.Slice(changes.Upserts, func(i, j int) bool { return changes.Upserts[i].Key < changes.Upserts[j].Key })
	sort.Strings(changes.Deletions)
	return changes, nil
}

// resolveEntries 把编辑后的条目转换为 key -> value，并为没有键的条目分配键。
func resolveEntries(section Section, entries []Entry) (map[string]string, error) {
	values := make(map[string]string, len(entries))

	for _, e := range entries {
		if e.Key == "" {
			continue
		}
		key, err := ParseKey(e.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidView, err)
		}
		if key.Section != section || key.String() != e.Key {
			return nil, fmt.Errorf("%w: 键 %q 不属于 %s 分区", ErrInvalidView, e.Key, section)
		}
		if _, dup := values[e.Key]; dup {
			return nil, fmt.Errorf("%w: 键 %q 重复", ErrInvalidView, e.Key)
		}
		values[e.Key] = e.Value
	}

	taken := make(map[string]bool, len(values))
	for key := range values {
		taken[key] = true
	}
	for _, e := range entries {
		if e.Key != "" {
			continue
		}
		if e.Icon == "" {
			return nil, fmt.Errorf("%w: %s 分区的新条目缺少图标", ErrInvalidView, section)
		}
		if !iconRoundTrips(section, e.Icon) {
			return nil, fmt.Errorf("%w: 图标 %q 不能以 _<数字> 结尾", ErrInvalidView, e.Icon)
		}
		key := nextFreeKey(section, e.Icon, taken).String()
		taken[key] = true
		values[key] = e.Value
	}
	return values, nil
}
