package submission

import (
	"fmt"
	"strings"
)

// Side 是战斗中的一方
type Side string

const (
	SideP1 Side = "p1"
	SideP2 Side = "p2"
)

// Opponent 返回对手一方；未知的一方没有对手
func (s Side) Opponent() (Side, bool) {
	switch s {
	case SideP1:
		return SideP2, true
	case SideP2:
		return SideP1, true
	}
	return "", false
}

// BattleReport 是一份原始战报。入库后不可修改。
type BattleReport struct {
	BattleID  string     `json:"battle_id"`
	Attacks   []Attack   `json:"attacks"`
	RoundLogs []RoundLog `json:"round_logs,omitempty"`
}

// Attack 是战报中一次武器的使用
type Attack struct {
	Round  int           `json:"round"`
	Side   Side          `json:"side"`
	Weapon string        `json:"weapon"`
	Text   string        `json:"text"`
	Damage []DamageEntry `json:"damage"`
}

// DamageEntry 是一次攻击产生的一条伤害/效果
type DamageEntry struct {
	Type        string   `json:"type"`
	Label       string   `json:"label"`
	Amount      float64  `json:"amount"`
	HealPercent *float64 `json:"heal_percent,omitempty"`
}

// RoundLog 是某一回合开始时双方的状态快照
type RoundLog struct {
	Round int                `json:"round"`
	Sides map[Side]SideState `json:"sides"`
}

// SideState 记录一方在该回合是否被冰冻、是否使用了抗冻能力
type SideState struct {
	Frozen     bool `json:"frozen"`
	AntiFreeze bool `json:"anti_freeze"`
}

// LogForRound 按回合号查找快照
func (r BattleReport) LogForRound(round int) (RoundLog, bool) {
	for _, l := range r.RoundLogs {
		if l.Round == round {
			return l, true
		}
	}
	return RoundLog{}, false
}

// WeaponNames 返回战报中出现过的所有武器名称（去重，保持首次出现顺序）
func (r BattleReport) WeaponNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, a := range r.Attacks {
		if !seen[a.Weapon] {
			seen[a.Weapon] = true
			names = append(names, a.Weapon)
		}
	}
	return names
}

// Validate 检查战报的结构完整性
func (r BattleReport) Validate() error {
	if strings.TrimSpace(r.BattleID) == "" {
		return fmt.Errorf("%w: 缺少 battle_id", ErrInvalidReport)
	}
	if len(r.Attacks) == 0 {
		return fmt.Errorf("%w: 战报 %s 没有任何攻击记录", ErrInvalidReport, r.BattleID)
	}
	for i, a := range r.Attacks {
		if strings.TrimSpace(a.Weapon) == "" {
			return fmt.Errorf("%w: 战报 %s 第 %d 次攻击缺少武器名称", ErrInvalidReport, r.BattleID, i+1)
		}
		if a.Round < 0 {
			return fmt.Errorf("%w: 战报 %s 第 %d 次攻击的回合号为负数", ErrInvalidReport, r.BattleID, i+1)
		}
		for j, d := range a.Damage {
			if strings.TrimSpace(d.Type) == "" {
				return fmt.Errorf("%w: 战报 %s 第 %d 次攻击的第 %d 条伤害缺少类型", ErrInvalidReport, r.BattleID, i+1, j+1)
			}
		}
	}
	return nil
}
