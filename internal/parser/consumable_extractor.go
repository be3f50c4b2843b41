package parser

import (
	"sort"
	"strings"

	"ductsync/internal/model"
)

// 耗材页标签
const (
	LabelTotal     = "Total"
	LabelAllowance = "Extra"
)

const consumablesTab = "Consumables"

// ConsumableSection 耗材页中并列的一段（标题 + 默认单位）
type ConsumableSection struct {
	Title       string
	DefaultUnit string
}

// DefaultConsumableSections 默认的左右两段：胶水与密封胶
var DefaultConsumableSections = []ConsumableSection{
	{Title: "Glue", DefaultUnit: "kg"},
	{Title: "Silicone", DefaultUnit: "tubes"},
}

// ConsumableExtractor 耗材页抽取器
// 两个互不相关的耗材共用同一批物理行、各占一段列范围；合计与余量只在本段列范围内查找
type ConsumableExtractor struct {
	finder   *AnchorFinder
	sections []ConsumableSection
}

// NewConsumableExtractor 创建耗材抽取器
func NewConsumableExtractor(f *AnchorFinder, sections []ConsumableSection) *ConsumableExtractor {
	if len(sections) == 0 {
		sections = DefaultConsumableSections
	}
	return &ConsumableExtractor{finder: f, sections: sections}
}

type sectionSpan struct {
	section ConsumableSection
	title   Anchor
	colFrom int
	colTo   int // exclusive
}

// Extract 抽取每段的合计与余量百分比
func (e *ConsumableExtractor) Extract() Result[[]model.Consumable] {
	res := Result[[]model.Consumable]{}
	f := e.finder

	spans := make([]sectionSpan, 0, len(e.sections))
	for _, s := range e.sections {
		a, ok := locateLabel(f, s.Title)
		if !ok {
			res.Warn("%s: section %q not found", consumablesTab, s.Title)
			continue
		}
		spans = append(spans, sectionSpan{section: s, title: a})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].title.Col < spans[j].title.Col })
	for i := range spans {
		spans[i].colFrom = spans[i].title.Col
		spans[i].colTo = f.grid.Cols()
		if i+1 < len(spans) {
			spans[i].colTo = spans[i+1].title.Col
		}
	}

	for _, sp := range spans {
		sr := Safely(consumablesTab+" "+sp.section.Title, func() Result[model.Consumable] {
			return e.extractSection(sp)
		})
		res.Merge(sr.Warnings, sr.Errors)
		if sr.Data.Name != "" {
			res.Data = append(res.Data, sr.Data)
		}
	}
	return res
}

func (e *ConsumableExtractor) extractSection(sp sectionSpan) Result[model.Consumable] {
	res := Result[model.Consumable]{}
	g := e.finder.grid

	c := model.Consumable{
		Name: StripUnit(sp.title.Text),
		Unit: NormalizeUnit(UnitFromLabel(sp.title.Text)),
	}
	if c.Name == "" {
		c.Name = sp.section.Title
	}
	if c.Unit == "" {
		c.Unit = sp.section.DefaultUnit
	}
	res.Data = c
	label := consumablesTab + " " + c.Name

	totalRow, totalCol, ok := findInSpan(g, LabelTotal, sp.title.Row+1, sp.colFrom, sp.colTo)
	if !ok {
		res.Warn("%s: %q not found in section columns, using 0", label, LabelTotal)
		return res
	}
	total, ok := firstNumberRight(g, totalRow, totalCol+1, sp.colTo)
	if !ok {
		res.Warn("%s: %q has no usable value, using 0", label, LabelTotal)
		return res
	}
	if total < 0 {
		res.Warn("%s: total is negative (%g), clamped to 0", label, total)
		total = 0
	}
	res.Data.Total = total

	// 余量固定在合计的上一行
	allowRow := totalRow - 1
	if allowRow <= sp.title.Row {
		res.Warn("%s: no allowance row above total", label)
		return res
	}
	pct, cell, ok := firstNumberCellRight(g, allowRow, sp.colFrom, sp.colTo)
	if !ok {
		res.Warn("%s: allowance above total is missing, using 0%%", label)
		return res
	}
	if !rowHasLabel(g, allowRow, LabelAllowance, sp.colFrom, sp.colTo) && !strings.Contains(cell.Text, "%") {
		res.Warn("%s: value above total is not labelled %q, reading it as allowance", label, LabelAllowance)
	}
	if cell.Kind == CellNumber && pct > 0 && pct < 1 {
		pct *= 100
	}
	if pct < 0 {
		res.Warn("%s: allowance is negative (%g), using 0%%", label, pct)
		pct = 0
	}
	res.Data.ExtraAllowancePercent = pct
	return res
}

// findInSpan 在 [colFrom, colTo) 列范围内自 startRow 向下查找标签
func findInSpan(g *Grid, label string, startRow, colFrom, colTo int) (int, int, bool) {
	want := normalizeLabel(label, false)
	for r := startRow; r < g.Rows(); r++ {
		for c := colFrom; c < colTo; c++ {
			cell := g.At(r, c)
			if cell.Kind == CellText && matchLabel(cell.Text, want, false, false) {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}

func rowHasLabel(g *Grid, row int, label string, colFrom, colTo int) bool {
	want := normalizeLabel(label, false)
	for c := colFrom; c < colTo; c++ {
		cell := g.At(row, c)
		if cell.Kind == CellText && matchLabel(cell.Text, want, false, false) {
			return true
		}
	}
	return false
}

func firstNumberRight(g *Grid, row, colFrom, colTo int) (float64, bool) {
	v, _, ok := firstNumberCellRight(g, row, colFrom, colTo)
	return v, ok
}

func firstNumberCellRight(g *Grid, row, colFrom, colTo int) (float64, Cell, bool) {
	for c := colFrom; c < colTo; c++ {
		cell := g.At(row, c)
		if v, ok := CastFloat(cell); ok {
			return v, cell, true
		}
	}
	return 0, Cell{}, false
}
