package aggregate

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/SlpAus/battle-effects-backend/internal/submission"
)

const (
	// SectionOther 收纳非数组类型的效果，例如治疗百分比
	SectionOther = "other"
	// IconHealPercent 是治疗百分比的合成图标
	IconHealPercent = "heal_percent"
	// genericIcon 用于没有显示标签的伤害条目
	genericIcon = "generic"
)

// IconStats 是某个 (分区, 图标) 的统计结果
type IconStats struct {
	Section string `json:"section"`
	Icon    string `json:"icon"`

	// Distribution 把数值（格式化后的字符串）映射到出现百分比，
	// 分母是合格攻击总数，而不是该图标的出现次数。
	Distribution map[string]float64 `json:"distribution"`

	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Range string  `json:"range"`
}

// FreezeSummary 是冰冻推断的结果
type FreezeSummary struct {
	Occurrences int     `json:"occurrences"`
	Percentage  float64 `json:"percentage"`
}

// Result 是一把武器的统计画像，只作参考，不直接持久化。
type Result struct {
	Weapon         string         `json:"weapon"`
	TotalAttacks   int            `json:"totalAttacks"`
	SampledReports int            `json:"sampledReports"`
	Icons          []IconStats    `json:"icons"`
	Freeze         *FreezeSummary `json:"freeze,omitempty"`
}

// Empty 表示没有任何合格攻击，即"数据不足"
func (r Result) Empty() bool {
	return r.TotalAttacks == 0
}

// Aggregator 从原始战报推断武器的效果画像。它没有副作用，可以并发使用。
type Aggregator struct {
	detector FreezeDetector
}

// New 创建统计器，detector 为 nil 时使用 RoundLogDetector
func New(detector FreezeDetector) *Aggregator {
	if detector == nil {
		detector = RoundLogDetector{}
	}
	return &Aggregator{detector: detector}
}

type iconKey struct {
	section string
	icon    string
}

// Aggregate 统计所有战报中武器名与 weaponName 完全相等（区分大小写）的攻击。
func (a *Aggregator) Aggregate(weaponName string, reports []submission.BattleReport) Result {
	result := Result{Weapon: weaponName, Icons: []IconStats{}}

	counts := make(map[iconKey]map[float64]int)
	freezeCount := 0

	for _, report := range reports {
		sampled := false
		for idx, attack := range report.Attacks {
			if attack.Weapon != weaponName {
				continue
			}
			sampled = true
			result.TotalAttacks++

			// 同一次攻击对同一图标只计一次，数值取该攻击内的合计
			sums := make(map[iconKey]float64)
			var order []iconKey
			add := func(k iconKey, v float64) {
				if _, ok := sums[k]; !ok {
					order = append(order, k)
				}
				sums[k] += v
			}
			for _, entry := range attack.Damage {
				add(iconFor(entry), entry.Amount)
				if entry.HealPercent != nil {
					add(iconKey{section: SectionOther, icon: IconHealPercent}, *entry.HealPercent)
				}
			}
			for _, k := range order {
				if counts[k] == nil {
					counts[k] = make(map[float64]int)
				}
				counts[k][sums[k]]++
			}

			if a.detector.Detect(report, idx) {
				freezeCount++
			}
		}
		if sampled {
			result.SampledReports++
		}
	}

	if result.TotalAttacks == 0 {
		return result
	}

	total := float64(result.TotalAttacks)
	for k, amounts := range counts {
		stats := IconStats{
			Section:      k.section,
			Icon:         k.icon,
			Distribution: make(map[string]float64, len(amounts)),
		}
		first := true
		for amount, n := range amounts {
			stats.Distribution[FormatAmount(amount)] = float64(n) / total * 100
			if first || amount < stats.Min {
				stats.Min = amount
			}
			if first || amount > stats.Max {
				stats.Max = amount
			}
			first = false
		}
		stats.Range = FormatRange(stats.Min, stats.Max)
		result.Icons = append(result.Icons, stats)
	}
	sort.Slice(result.Icons, func(i, j int) bool {
		if result.Icons[i].Section != result.Icons[j].Section {
			return result.Icons[i].Section < result.Icons[j].Section
		}
		return result.Icons[i].Icon < result.Icons[j].Icon
	})

	if freezeCount > 0 {
		result.Freeze = &FreezeSummary{
			Occurrences: freezeCount,
			Percentage:  float64(freezeCount) / total * 100,
		}
	}
	return result
}

// iconFor 把 (类型, 标签) 规整为小写的图标键，标签中的空白折叠为下划线，末尾的编号去掉下划线
func iconFor(entry submission.DamageEntry) iconKey {
	section := normalize(entry.Type)
	icon := numberedLabel.ReplaceAllString(normalize(entry.Label), "$1")
	if icon == "" {
		icon = genericIcon
	}
	return iconKey{section: section, icon: icon}
}

// numberedLabel 匹配 "fire_2" 这类以编号结尾的标签，编号直接并入图标名
var numberedLabel = regexp.MustCompile(`_(\d+)$`)

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}

// FormatAmount 以最短形式输出数值，例如 5、2.5
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatRange 在最小值与最大值相同时输出单个值，否则输出 "min-max"
func FormatRange(min, max float64) string {
	if min == max {
		return FormatAmount(min)
	}
	return FormatAmount(min) + "-" + FormatAmount(max)
}
