package effects

import (
	"errors"

	"github.com/rs/zerolog/log"
)

// ErrInvalidView 表示提交的编辑视图无法转换为效果行
var ErrInvalidView = errors.New("编辑视图不合法")

// Entry 是数组型分区中的一项。编辑视图中新增的项可以不带 Key，由系统分配。
type Entry struct {
	Icon  string `json:"icon"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// View 是某个物品已审核效果的分组视图，也是馆长编辑时提交的结构。
type View struct {
	Attack  []Entry           `json:"attack"`
	Defense []Entry           `json:"defense"`
	Reflect []Entry           `json:"reflect"`
	Notes   string            `json:"notes"`
	Other   map[string]string `json:"other"`
}

// NewView 返回各分区均已初始化的空视图
func NewView() View {
	return View{
		Attack:  []Entry{},
		Defense: []Entry{},
		Reflect: []Entry{},
		Other:   map[string]string{},
	}
}

// Entries 返回数组型分区的条目，其他分区返回 nil
func (v View) Entries(s Section) []Entry {
	switch s {
	case SectionAttack:
		return v.Attack
	case SectionDefense:
		return v.Defense
	case SectionReflect:
		return v.Reflect
	}
	return nil
}

func (v *View) appendEntry(s Section, e Entry) {
	switch s {
	case SectionAttack:
		v.Attack = append(v.Attack, e)
	case SectionDefense:
		v.Defense = append(v.Defense, e)
	case SectionReflect:
		v.Reflect = append(v.Reflect, e)
	}
}

// IsEmpty 判断视图中是否没有任何数据
func (v View) IsEmpty() bool {
	return len(v.Attack) == 0 && len(v.Defense) == 0 && len(v.Reflect) == 0 &&
		v.Notes == "" && len(v.Other) == 0
}

// Assemble 把按键排序的效果行分组为视图。
// 无法识别的键会被跳过并记录日志，不影响其余数据的读取。
func Assemble(itemID uint, rows []EffectRow) View {
	view := NewView()
	for _, row := range rows {
		key, err := ParseKey(row.EffectKey)
		if err != nil {
			log.Warn().Err(err).Uint("item_id", itemID).Str("key", row.EffectKey).Msg("跳过无法识别的效果键")
			continue
		}
		switch {
		case key.Section == SectionNotes:
			view.Notes = row.Value
		case key.Section == SectionOther:
			view.Other[key.Icon] = row.Value
		default:
			view.appendEntry(key.Section, Entry{Icon: key.Icon, Key: row.EffectKey, Value: row.Value})
		}
	}
	return view
}
