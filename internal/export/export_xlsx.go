package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/SlpAus/battle-effects-backend/internal/aggregate"
	"github.com/SlpAus/battle-effects-backend/internal/effects"
)

const (
	SheetCurated  = "Curated"
	SheetAdvisory = "Advisory"
)

// Sheet 是导出的一个物品的数据
type Sheet struct {
	ItemID   uint
	ItemName string
	State    effects.State
	View     effects.View
	Advisory aggregate.Result
}

// WriteXLSX 把已审核视图与参考统计结果并排导出，供馆长离线核对。
func WriteXLSX(outPath string, s Sheet) error {
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetCurated); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetAdvisory); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	if err := writeCurated(f, s, headerStyle); err != nil {
		return fmt.Errorf("写入 %s 工作表失败: %w", SheetCurated, err)
	}
	if err := writeAdvisory(f, s, headerStyle); err != nil {
		return fmt.Errorf("写入 %s 工作表失败: %w", SheetAdvisory, err)
	}

	for _, sh := range []string{SheetCurated, SheetAdvisory} {
		if err := f.SetColWidth(sh, "A", "E", 16); err != nil {
			return err
		}
	}
	return f.SaveAs(outPath)
}

func writeTitle(f *excelize.File, sheet, lastCol, title string, headerStyle int, headers ...interface{}) error {
	if err := f.SetCellValue(sheet, "A1", title); err != nil {
		return err
	}
	if err := f.MergeCell(sheet, "A1", lastCol+"1"); err != nil {
		return err
	}
	if err := setRow(f, sheet, 2, headers...); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A2", lastCol+"2", headerStyle)
}

func writeCurated(f *excelize.File, s Sheet, headerStyle int) error {
	title := fmt.Sprintf("#%d %s (%s)", s.ItemID, s.ItemName, s.State)
	if err := writeTitle(f, SheetCurated, "D", title, headerStyle, "Section", "Icon", "Key", "Value"); err != nil {
		return err
	}

	row := 3
	for _, section := range effects.ArraySections {
		for _, e := range s.View.Entries(section) {
			if err := setRow(f, SheetCurated, row, string(section), e.Icon, e.Key, e.Value); err != nil {
				return err
			}
			row++
		}
	}
	fields := make([]string, 0, len(s.View.Other))
	for field := range s.View.Other {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		key := effects.EffectKey{Section: effects.SectionOther, Icon: field}
		if err := setRow(f, SheetCurated, row, string(effects.SectionOther), field, key.String(), s.View.Other[field]); err != nil {
			return err
		}
		row++
	}
	if s.View.Notes != "" {
		return setRow(f, SheetCurated, row, string(effects.SectionNotes), "", string(effects.SectionNotes), s.View.Notes)
	}
	return nil
}

func writeAdvisory(f *excelize.File, s Sheet, headerStyle int) error {
	title := fmt.Sprintf("%s: %d attacks / %d reports", s.ItemName, s.Advisory.TotalAttacks, s.Advisory.SampledReports)
	if err := writeTitle(f, SheetAdvisory, "E", title, headerStyle, "Section", "Icon", "Amount", "Percent", "Range"); err != nil {
		return err
	}
	pctStyle, err := f.NewStyle(&excelize.Style{NumFmt: 10})
	if err != nil {
		return err
	}

	row := 3
	for _, icon := range s.Advisory.Icons {
		for _, amount := range sortedAmounts(icon.Distribution) {
			if err := setRow(f, SheetAdvisory, row, icon.Section, icon.Icon, amount, icon.Distribution[amount]/100, icon.Range); err != nil {
				return err
			}
			row++
		}
	}
	if s.Advisory.Freeze != nil {
		if err := setRow(f, SheetAdvisory, row, aggregate.SectionOther, effects.FreezeField, s.Advisory.Freeze.Occurrences, s.Advisory.Freeze.Percentage/100, ""); err != nil {
			return err
		}
		row++
	}
	if row > 3 {
		return f.SetCellStyle(SheetAdvisory, "D3", fmt.Sprintf("D%d", row-1), pctStyle)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// sortedAmounts 按数值大小排列分布中的数值
func sortedAmounts(distribution map[string]float64) []string {
	amounts := make([]string, 0, len(distribution))
	for a := range distribution {
		amounts = append(amounts, a)
	}
	sort.Slice(amounts, func(i, j int) bool {
		x, _ := strconv.ParseFloat(amounts[i], 64)
		y, _ := strconv.ParseFloat(amounts[j], 64)
		return x < y
	})
	return amounts
}
