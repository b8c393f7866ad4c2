package aggregate

import (
	"strings"

	"github.com/SlpAus/battle-effects-backend/internal/submission"
)

// freezeVocabulary 是判定"冰冻"效果的同义词表，全部小写
var freezeVocabulary = []string{"freeze", "frozen", "froze", "stunned", "stun"}

// IsFreezeClaim 判断攻击描述是否声称造成了冰冻。
// 武器名本身包含某个同义词时（例如 "Frozen Scepter"），该同义词不计入，
// 以免把武器名误判为效果描述。
func IsFreezeClaim(weapon, text string) bool {
	lowerText := strings.ToLower(text)
	lowerWeapon := strings.ToLower(weapon)
	for _, word := range freezeVocabulary {
		if strings.Contains(lowerText, word) && !strings.Contains(lowerWeapon, word) {
			return true
		}
	}
	return false
}

// FreezeDetector 判断战报中的某次攻击是否造成了冰冻。
// 这是一个没有置信度的启发式判断，实现可以随时替换或禁用。
type FreezeDetector interface {
	Detect(report submission.BattleReport, attackIdx int) bool
}

// TextDetector 只依据攻击描述判断
type TextDetector struct{}

func (TextDetector) Detect(report submission.BattleReport, attackIdx int) bool {
	a := report.Attacks[attackIdx]
	return IsFreezeClaim(a.Weapon, a.Text)
}

// RoundLogDetector 先依据攻击描述判断；描述没有声称冰冻时，
// 再用下一回合的状态快照交叉验证：
//   - 下一回合对手处于冰冻状态；
//   - 对手在该回合没有使用抗冻能力；
//   - 同一回合同一方没有其他攻击已经在描述中声称冰冻。
type RoundLogDetector struct{}

func (RoundLogDetector) Detect(report submission.BattleReport, attackIdx int) bool {
	a := report.Attacks[attackIdx]
	if IsFreezeClaim(a.Weapon, a.Text) {
		return true
	}

	opponent, ok := a.Side.Opponent()
	if !ok {
		return false
	}
	next, ok := report.LogForRound(a.Round + 1)
	if !ok {
		return false
	}
	state, ok := next.Sides[opponent]
	if !ok || !state.Frozen || state.AntiFreeze {
		return false
	}

	for i, other := range report.Attacks {
		if i == attackIdx || other.Round != a.Round || other.Side != a.Side {
			continue
		}
		if IsFreezeClaim(other.Weapon, other.Text) {
			// 冰冻已由另一次攻击解释
			return false
		}
	}
	return true
}

// NoFreezeDetector 禁用冰冻推断
type NoFreezeDetector struct{}

func (NoFreezeDetector) Detect(submission.BattleReport, int) bool { return false }
