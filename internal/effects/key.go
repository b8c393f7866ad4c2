package effects

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Section 是效果数据的分区
type Section string

const (
	SectionAttack  Section = "attack"
	SectionDefense Section = "defense"
	SectionReflect Section = "reflect"
	SectionNotes   Section = "notes"
	SectionOther   Section = "other"
)

// ArraySections 按固定顺序列出数组型分区
var ArraySections = []Section{SectionAttack, SectionDefense, SectionReflect}

// IsArray 判断分区是否为 {icon, key, value} 数组
func (s Section) IsArray() bool {
	switch s {
	case SectionAttack, SectionDefense, SectionReflect:
		return true
	}
	return false
}

var (
	ErrUnknownSection = errors.New("未知的效果分区")
	ErrMalformedKey   = errors.New("效果键格式错误")
)

// EffectKey 是效果行的结构化键，只在持久化边界上序列化为字符串：
//
//	attack_fire      {attack, fire, 1}
//	attack_fire_2    {attack, fire, 2}
//	notes            {notes, "", 0}
//	other_freeze     {other, freeze, 0}
//
// 对 other 分区，Icon 保存字段名。
type EffectKey struct {
	Section Section
	Icon    string
	Suffix  int
}

// String 返回持久化使用的键
func (k EffectKey) String() string {
	switch {
	case k.Section == SectionNotes:
		return string(SectionNotes)
	case k.Section.IsArray() && k.Suffix > 1:
		return string(k.Section) + "_" + k.Icon + "_" + strconv.Itoa(k.Suffix)
	default:
		return string(k.Section) + "_" + k.Icon
	}
}

// ParseKey 把持久化的键还原为结构化的 EffectKey
func ParseKey(raw string) (EffectKey, error) {
	if raw == string(SectionNotes) {
		return EffectKey{Section: SectionNotes}, nil
	}

	head, rest, ok := strings.Cut(raw, "_")
	section := Section(head)
	if !section.IsArray() && section != SectionOther {
		return EffectKey{}, fmt.Errorf("%w: %q", ErrUnknownSection, raw)
	}
	if !ok || rest == "" {
		return EffectKey{}, fmt.Errorf("%w: %q", ErrMalformedKey, raw)
	}
	if section == SectionOther {
		return EffectKey{Section: section, Icon: rest}, nil
	}

	key := EffectKey{Section: section, Icon: rest, Suffix: 1}
	if i := strings.LastIndexByte(rest, '_'); i > 0 {
		if n, err := strconv.Atoi(rest[i+1:]); err == nil && n > 1 && rest[i+1] != '+' && rest[i+1] != '0' {
			key.Icon = rest[:i]
			key.Suffix = n
		}
	}
	return key, nil
}

// iconRoundTrips 判断图标生成的键能否被 ParseKey 还原为同一个图标。
// 以 _<数字> 结尾的图标会与编号后缀混淆。
func iconRoundTrips(section Section, icon string) bool {
	key, err := ParseKey(EffectKey{Section: section, Icon: icon, Suffix: 1}.String())
	return err == nil && key.Icon == icon
}

// nextFreeKey 返回 {section, icon} 在 taken 中尚未使用的最小后缀对应的键
func nextFreeKey(section Section, icon string, taken map[string]bool) EffectKey {
	key := EffectKey{Section: section, Icon: icon, Suffix: 1}
	for taken[key.String()] {
		key.Suffix++
	}
	return key
}
