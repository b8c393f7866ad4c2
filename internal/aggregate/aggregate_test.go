package aggregate

import (
	"testing"

	"github.com/SlpAus/battle-effects-backend/internal/submission"
)

func dmg(typ, label string, amount float64) submission.DamageEntry {
	return submission.DamageEntry{Type: typ, Label: label, Amount: amount}
}

func attack(round int, side submission.Side, weapon, text string, entries ...submission.DamageEntry) submission.Attack {
	return submission.Attack{Round: round, Side: side, Weapon: weapon, Text: text, Damage: entries}
}

func findIcon(t *testing.T, r Result, section, icon string) IconStats {
	t.Helper()
	for _, s := range r.Icons {
		if s.Section == section && s.Icon == icon {
			return s
		}
	}
	t.Fatalf("icon %s/%s not found in %+v", section, icon, r.Icons)
	return IconStats{}
}

func TestPercentagesAreRelativeToTotalAttacks(t *testing.T) {
	reports := []submission.BattleReport{
		{BattleID: "a", Attacks: []submission.Attack{
			attack(1, submission.SideP1, "Ice Sword", "slash", dmg("attack", "Water", 5), dmg("defense", "Armor", 2)),
			attack(2, submission.SideP1, "Ice Sword", "slash", dmg("attack", "Water", 7)),
			attack(2, submission.SideP2, "Fire Axe", "chop", dmg("attack", "Fire", 9)),
		}},
		{BattleID: "b", Attacks: []submission.Attack{
			attack(1, submission.SideP2, "Ice Sword", "slash", dmg("attack", "Water", 5)),
			attack(3, submission.SideP2, "Ice Sword", "miss"),
		}},
	}

	r := New(NoFreezeDetector{}).Aggregate("Ice Sword", reports)
	if r.TotalAttacks != 4 {
		t.Fatalf("expected 4 qualifying attacks, got %d", r.TotalAttacks)
	}
	if r.SampledReports != 2 {
		t.Errorf("expected 2 sampled reports, got %d", r.SampledReports)
	}

	for _, icon := range r.Icons {
		sum := 0.0
		for amount, pct := range icon.Distribution {
			if pct > 100 {
				t.Errorf("%s/%s bucket %s exceeds 100%%: %v", icon.Section, icon.Icon, amount, pct)
			}
			sum += pct
		}
		if sum > 100+1e-9 {
			t.Errorf("%s/%s distribution sums to %v", icon.Section, icon.Icon, sum)
		}
	}

	water := findIcon(t, r, "attack", "water")
	if water.Distribution["5"] != 50 || water.Distribution["7"] != 25 {
		t.Errorf("unexpected water distribution: %v", water.Distribution)
	}
	if water.Range != "5-7" {
		t.Errorf("expected range 5-7, got %q", water.Range)
	}
	armor := findIcon(t, r, "defense", "armor")
	if armor.Distribution["2"] != 25 || armor.Range != "2" {
		t.Errorf("unexpected armor stats: %+v", armor)
	}
	for _, icon := range r.Icons {
		if icon.Icon == "fire" {
			t.Error("attacks by other weapons must not be tallied")
		}
	}
}

func TestSameIconWithinOneAttackCountsOnce(t *testing.T) {
	reports := []submission.BattleReport{{BattleID: "a", Attacks: []submission.Attack{
		attack(1, submission.SideP1, "Ice Sword", "", dmg("attack", "Water", 3), dmg("Attack", "WATER", 2)),
	}}}
	r := New(NoFreezeDetector{}).Aggregate("Ice Sword", reports)
	water := findIcon(t, r, "attack", "water")
	if len(water.Distribution) != 1 || water.Distribution["5"] != 100 {
		t.Errorf("expected a single 100%% bucket at 5, got %v", water.Distribution)
	}
}

func TestHealPercentUsesSyntheticIcon(t *testing.T) {
	pct := 30.0
	entry := dmg("heal", "Life", 4)
	entry.HealPercent = &pct
	reports := []submission.BattleReport{{BattleID: "a", Attacks: []submission.Attack{
		attack(1, submission.SideP1, "Ice Sword", "", entry),
		attack(2, submission.SideP1, "Ice Sword", ""),
	}}}
	r := New(NoFreezeDetector{}).Aggregate("Ice Sword", reports)
	heal := findIcon(t, r, SectionOther, IconHealPercent)
	if heal.Distribution["30"] != 50 {
		t.Errorf("expected heal_percent 30 at 50%%, got %v", heal.Distribution)
	}
	findIcon(t, r, "heal", "life")
}

func TestHealPercentSumsWithinOneAttack(t *testing.T) {
	pct := 30.0
	first := dmg("heal", "Life", 4)
	first.HealPercent = &pct
	second := dmg("heal", "Vigor", 2)
	second.HealPercent = &pct
	reports := []submission.BattleReport{{BattleID: "a", Attacks: []submission.Attack{
		attack(1, submission.SideP1, "Ice Sword", "", first, second),
	}}}
	r := New(NoFreezeDetector{}).Aggregate("Ice Sword", reports)
	heal := findIcon(t, r, SectionOther, IconHealPercent)
	if len(heal.Distribution) != 1 || heal.Distribution["60"] != 100 {
		t.Errorf("expected the two heals to sum into one 60 bucket, got %v", heal.Distribution)
	}
}

func TestNumberedLabelsFoldIntoIcon(t *testing.T) {
	reports := []submission.BattleReport{{BattleID: "a", Attacks: []submission.Attack{
		attack(1, submission.SideP1, "Ice Sword", "", dmg("attack", "Fire 2", 3), dmg("attack", "ice_10", 1), dmg("attack", "Deep Water", 2)),
	}}}
	r := New(NoFreezeDetector{}).Aggregate("Ice Sword", reports)
	findIcon(t, r, "attack", "fire2")
	findIcon(t, r, "attack", "ice10")
	findIcon(t, r, "attack", "deep_water")
}

func TestWeaponMatchIsCaseSensitive(t *testing.T) {
	reports := []submission.BattleReport{{BattleID: "a", Attacks: []submission.Attack{
		attack(1, submission.SideP1, "ice sword", "", dmg("attack", "Water", 3)),
	}}}
	r := New(nil).Aggregate("Ice Sword", reports)
	if !r.Empty() {
		t.Fatalf("expected empty result, got %+v", r)
	}
}

func TestZeroAttacksYieldsEmptyResult(t *testing.T) {
	r := New(nil).Aggregate("Ice Sword", nil)
	if !r.Empty() || len(r.Icons) != 0 || r.Freeze != nil {
		t.Fatalf("expected empty result, got %+v", r)
	}
}

func TestIsFreezeClaim(t *testing.T) {
	cases := []struct {
		weapon, text string
		want         bool
	}{
		{"Ice Sword", "the enemy is frozen solid", true},
		{"Ice Sword", "Enemy STUNNED", true},
		{"Frozen Scepter", "the frozen scepter strikes", false},
		{"Frozen Scepter", "the frozen scepter strikes and the foe cannot move, stunned", true},
		{"Ice Sword", "a clean slash", false},
		{"Freeze Ray", "freeze ray fires", false},
	}
	for _, c := range cases {
		if got := IsFreezeClaim(c.weapon, c.text); got != c.want {
			t.Errorf("IsFreezeClaim(%q, %q) = %v, want %v", c.weapon, c.text, got, c.want)
		}
	}
}

func TestFreezeFromText(t *testing.T) {
	reports := []submission.BattleReport{{BattleID: "a", Attacks: []submission.Attack{
		attack(1, submission.SideP1, "Ice Sword", "the enemy is frozen"),
		attack(2, submission.SideP1, "Ice Sword", "slash"),
	}}}
	r := New(TextDetector{}).Aggregate("Ice Sword", reports)
	if r.Freeze == nil || r.Freeze.Occurrences != 1 || r.Freeze.Percentage != 50 {
		t.Fatalf("expected 1 freeze at 50%%, got %+v", r.Freeze)
	}

	scepter := []submission.BattleReport{{BattleID: "b", Attacks: []submission.Attack{
		attack(1, submission.SideP1, "Frozen Scepter", "the frozen scepter strikes"),
	}}}
	r = New(RoundLogDetector{}).Aggregate("Frozen Scepter", scepter)
	if r.Freeze != nil {
		t.Fatalf("weapon name must not count as a freeze claim, got %+v", r.Freeze)
	}
}

func frozenLog(round int, side submission.Side, antiFreeze bool) submission.RoundLog {
	return submission.RoundLog{Round: round, Sides: map[submission.Side]submission.SideState{
		side: {Frozen: true, AntiFreeze: antiFreeze},
	}}
}

func TestRoundLogFallback(t *testing.T) {
	base := func(logs ...submission.RoundLog) []submission.BattleReport {
		return []submission.BattleReport{{
			BattleID:  "a",
			Attacks:   []submission.Attack{attack(1, submission.SideP1, "Ice Sword", "slash")},
			RoundLogs: logs,
		}}
	}

	r := New(RoundLogDetector{}).Aggregate("Ice Sword", base(frozenLog(2, submission.SideP2, false)))
	if r.Freeze == nil || r.Freeze.Occurrences != 1 {
		t.Fatalf("expected fallback to count a freeze, got %+v", r.Freeze)
	}

	r = New(RoundLogDetector{}).Aggregate("Ice Sword", base(frozenLog(2, submission.SideP2, true)))
	if r.Freeze != nil {
		t.Errorf("anti-freeze must cancel the fallback, got %+v", r.Freeze)
	}

	r = New(RoundLogDetector{}).Aggregate("Ice Sword", base(frozenLog(2, submission.SideP1, false)))
	if r.Freeze != nil {
		t.Errorf("own side frozen must not count, got %+v", r.Freeze)
	}

	r = New(RoundLogDetector{}).Aggregate("Ice Sword", base(frozenLog(3, submission.SideP2, false)))
	if r.Freeze != nil {
		t.Errorf("only the immediately following round counts, got %+v", r.Freeze)
	}

	r = New(TextDetector{}).Aggregate("Ice Sword", base(frozenLog(2, submission.SideP2, false)))
	if r.Freeze != nil {
		t.Errorf("text detector must ignore round logs, got %+v", r.Freeze)
	}
}

func TestRoundLogFallbackYieldsToExplicitClaim(t *testing.T) {
	reports := []submission.BattleReport{{
		BattleID: "a",
		Attacks: []submission.Attack{
			attack(1, submission.SideP1, "Ice Sword", "slash"),
			attack(1, submission.SideP1, "Frost Bomb", "the enemy is frozen"),
		},
		RoundLogs: []submission.RoundLog{frozenLog(2, submission.SideP2, false)},
	}}
	r := New(RoundLogDetector{}).Aggregate("Ice Sword", reports)
	if r.Freeze != nil {
		t.Fatalf("freeze already explained by another attack, got %+v", r.Freeze)
	}
}

func TestNoFreezeDetector(t *testing.T) {
	reports := []submission.BattleReport{{BattleID: "a", Attacks: []submission.Attack{
		attack(1, submission.SideP1, "Ice Sword", "the enemy is frozen"),
	}}}
	if r := New(NoFreezeDetector{}).Aggregate("Ice Sword", reports); r.Freeze != nil {
		t.Fatalf("expected freeze inference disabled, got %+v", r.Freeze)
	}
}

func TestFormatRange(t *testing.T) {
	if got := FormatRange(5, 5); got != "5" {
		t.Errorf("got %q", got)
	}
	if got := FormatRange(2.5, 10); got != "2.5-10" {
		t.Errorf("got %q", got)
	}
}
