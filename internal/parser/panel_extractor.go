package parser

import (
	"strings"

	"ductsync/internal/model"
)

// 板材页标签
const (
	LabelMaterial        = "Material"
	LabelThickness       = "Thickness"
	LabelSheetLength     = "Sheet Length"
	LabelSheetWidth      = "Sheet Width"
	LabelSheetsUsed      = "Sheets Used"
	LabelGrossArea       = "Gross Area"
	LabelReusableRemnant = "Reusable Remnant"
	LabelWasteArea       = "Waste Area"
	LabelWastePercent    = "Waste %"
	LabelCutType         = "Cut Type"
)

const panelTab = "Panel"

func init() {
	registerLabels(LabelMaterial, LabelThickness, LabelSheetLength, LabelSheetWidth, LabelSheetsUsed,
		LabelGrossArea, LabelReusableRemnant, LabelWasteArea, LabelWastePercent, LabelCutType)
}

// PanelExtractor 板材页抽取器
type PanelExtractor struct {
	finder *AnchorFinder
}

// NewPanelExtractor 创建板材页抽取器
func NewPanelExtractor(f *AnchorFinder) *PanelExtractor {
	return &PanelExtractor{finder: f}
}

// Extract 抽取板材规格、库存影响与损耗
func (e *PanelExtractor) Extract() Result[model.RawMaterialPanel] {
	res := Result[model.RawMaterialPanel]{}
	f := e.finder

	p := model.RawMaterialPanel{
		Spec:        text(&res, f, panelTab, LabelMaterial, true),
		ThicknessMM: thickness(&res, f, panelTab, LabelThickness),
		LengthMM:    quantity(&res, f, panelTab, LabelSheetLength),
		WidthMM:     quantity(&res, f, panelTab, LabelSheetWidth),
	}

	sheets := quantity(&res, f, panelTab, LabelSheetsUsed)
	p.Inventory = model.InventoryImpact{
		UtilizedSheets:        int(sheets + 0.5),
		GrossAreaM2:           quantity(&res, f, panelTab, LabelGrossArea),
		ReusableRemnantAreaM2: quantity(&res, f, panelTab, LabelReusableRemnant),
	}
	if p.Inventory.ReusableRemnantAreaM2 > p.Inventory.GrossAreaM2 && p.Inventory.GrossAreaM2 > 0 {
		res.Warn("%s: reusable remnant %.2f exceeds gross area %.2f", panelTab,
			p.Inventory.ReusableRemnantAreaM2, p.Inventory.GrossAreaM2)
	}

	p.Efficiency.WasteAreaM2 = quantity(&res, f, panelTab, LabelWasteArea)
	if v, ok := optionalQuantity(&res, f, panelTab, LabelWastePercent); ok {
		p.Efficiency.WastePercent = fractionToPercent(f, LabelWastePercent, v)
	} else if p.Inventory.GrossAreaM2 > 0 {
		// 导出版本缺少损耗率时由面积推算
		p.Efficiency.WastePercent = p.Efficiency.WasteAreaM2 / p.Inventory.GrossAreaM2 * 100
	}
	p.Efficiency.WasteByCutType = e.cutWaste(&res)

	res.Data = p
	return res
}

// cutWaste 按切割类型的损耗明细表（可选）
func (e *PanelExtractor) cutWaste(res *Result[model.RawMaterialPanel]) []model.CutWaste {
	f := e.finder
	hr, ok := f.FindTableHeaderRow([]string{LabelCutType, "Waste"}, 0)
	if !ok {
		return nil
	}
	rows := f.ExtractTable(hr, map[string]string{
		"cut":  LabelCutType,
		"area": "Waste",
	}, "cut", true)

	out := make([]model.CutWaste, 0, len(rows))
	for _, r := range rows {
		name := r.String("cut", "")
		if strings.EqualFold(name, "total") {
			break
		}
		area, ok := CastFloat(r.Cells["area"])
		if !ok {
			res.Warn("%s: cut type %q has no waste value", panelTab, name)
			continue
		}
		if area < 0 {
			res.Warn("%s: cut type %q waste is negative (%g), clamped to 0", panelTab, name, area)
			area = 0
		}
		out = append(out, model.CutWaste{CutType: name, AreaM2: area})
	}
	return out
}

// fractionToPercent Excel 百分比格式的原始值是小数（0.12 表示 12%），文本 "12%" 则原样使用
func fractionToPercent(f *AnchorFinder, label string, v float64) float64 {
	if v <= 0 || v >= 1 {
		return v
	}
	a, ok := locateLabel(f, label)
	if !ok {
		return v
	}
	for _, o := range valueOffsets {
		c := f.grid.At(a.Row+o.row, a.Col+o.col)
		if _, ok := CastFloat(c); ok {
			if c.Kind == CellNumber {
				return v * 100
			}
			return v
		}
	}
	return v
}
