package parser

import (
	"strings"

	"ductsync/internal/model"
)

// 成品表头
const (
	HeaderItemNo       = "No."
	HeaderPart         = "Part"
	HeaderWidth        = "Width"
	HeaderHeight       = "Height"
	HeaderLength       = "Length"
	HeaderQty          = "Qty"
	HeaderConnection   = "Connection"
	HeaderInternalArea = "Int. Area"
	HeaderExternalArea = "Ext. Area"
)

const finishedGoodsTab = "Finished Goods"

var (
	finishedGoodsHeaders = []string{HeaderItemNo, HeaderPart, HeaderWidth, HeaderHeight, HeaderLength, HeaderQty}
	// 子表头行的探测标签
	subHeaderLabels = []string{"x", "y", "type", "mm", "m²", "m2"}
)

// FinishedGoodsExtractor 成品明细抽取器（两行表头）
type FinishedGoodsExtractor struct {
	finder *AnchorFinder
	opts   ExtractOptions
}

// NewFinishedGoodsExtractor 创建成品抽取器
func NewFinishedGoodsExtractor(f *AnchorFinder, opts ExtractOptions) *FinishedGoodsExtractor {
	return &FinishedGoodsExtractor{finder: f, opts: opts.withDefaults()}
}

type fgColumns struct {
	item, part, width, height, length, qty int
	conn, intArea, extArea                 int
}

// Extract 抽取成品行
func (e *FinishedGoodsExtractor) Extract() Result[[]model.FinishedGood] {
	res := Result[[]model.FinishedGood]{}
	f := e.finder
	g := f.grid

	hr, ok := f.FindTableHeaderRow(finishedGoodsHeaders, 0)
	if !ok {
		res.Warn("%s: finished goods header not found", finishedGoodsTab)
		return res
	}

	cols := fgColumns{
		item:    f.FindColumnIndex(HeaderItemNo, hr),
		part:    f.FindColumnIndex(HeaderPart, hr),
		width:   f.FindColumnIndex(HeaderWidth, hr),
		height:  f.FindColumnIndex(HeaderHeight, hr),
		length:  f.FindColumnIndex(HeaderLength, hr),
		qty:     f.FindColumnIndex(HeaderQty, hr),
		conn:    f.FindColumnIndex(HeaderConnection, hr),
		intArea: f.FindColumnIndex(HeaderInternalArea, hr),
		extArea: f.FindColumnIndex(HeaderExternalArea, hr),
	}
	if cols.item < 0 {
		res.Warn("%s: %q column not found", finishedGoodsTab, HeaderItemNo)
		return res
	}

	subRow := -1
	if isSubHeaderRow(g, hr+1) {
		subRow = hr + 1
	}
	e.checkUnits(&res, hr, subRow, cols)

	start := hr + 1
	if subRow >= 0 {
		start = subRow + 1
	}

	blank := 0
	for r := start; r < g.Rows(); r++ {
		id, ok := CastString(g.At(r, cols.item))
		if !ok {
			blank++
			if blank >= e.opts.FinishedGoodsBlankRows {
				break
			}
			continue
		}
		blank = 0
		if strings.EqualFold(id, "total") {
			break
		}
		res.Data = append(res.Data, e.readRow(&res, r, id, cols))
	}
	return res
}

func (e *FinishedGoodsExtractor) readRow(res *Result[[]model.FinishedGood], r int, id string, cols fgColumns) model.FinishedGood {
	g := e.finder.grid
	num := func(col int, name string) float64 {
		if col < 0 {
			return 0
		}
		cell := g.At(r, col)
		v, ok := CastFloat(cell)
		if !ok {
			if !cell.IsBlank() {
				res.Warn("%s: item %s %s %q is not numeric, using 0", finishedGoodsTab, id, name, cell.String())
			}
			return 0
		}
		if v < 0 {
			res.Warn("%s: item %s %s is negative (%g), clamped to 0", finishedGoodsTab, id, name, v)
			return 0
		}
		return v
	}
	str := func(col int) string {
		if col < 0 {
			return ""
		}
		s, _ := CastString(g.At(r, col))
		return s
	}

	fg := model.FinishedGood{
		ItemNo:         id,
		PartType:       str(cols.part),
		WidthMM:        num(cols.width, "width"),
		HeightMM:       num(cols.height, "height"),
		LengthMM:       num(cols.length, "length"),
		Quantity:       int(num(cols.qty, "quantity") + 0.5),
		InternalAreaM2: num(cols.intArea, "internal area"),
		ExternalAreaM2: num(cols.extArea, "external area"),
	}
	if cols.conn >= 0 {
		fg.Connection = model.ConnectionGeometry{
			X:          num(cols.conn, "connection x"),
			Y:          num(cols.conn+1, "connection y"),
			FlangeType: str(cols.conn + 2),
		}
	}
	return fg
}

// checkUnits 表头或子表头中声明的单位与期望不符时告警，数值照常读取
func (e *FinishedGoodsExtractor) checkUnits(res *Result[[]model.FinishedGood], hr, subRow int, cols fgColumns) {
	g := e.finder.grid
	unitOf := func(col int) string {
		if u := UnitFromLabel(g.At(hr, col).String()); u != "" {
			return NormalizeUnit(u)
		}
		if subRow >= 0 {
			s := NormalizeUnit(g.At(subRow, col).String())
			s = strings.Trim(s, "()[] ")
			if s != "x" && s != "y" && s != "type" {
				return NormalizeUnit(s)
			}
		}
		return ""
	}
	check := func(col int, name, want string) {
		if col < 0 {
			return
		}
		if u := unitOf(col); u != "" && u != want {
			res.Warn("%s: %s unit is %q, expected %q", finishedGoodsTab, name, u, want)
		}
	}
	check(cols.width, HeaderWidth, "mm")
	check(cols.height, HeaderHeight, "mm")
	check(cols.length, HeaderLength, "mm")
	check(cols.intArea, HeaderInternalArea, "m2")
	check(cols.extArea, HeaderExternalArea, "m2")
}

// isSubHeaderRow 至少命中两个子表头标签才视为子表头行
func isSubHeaderRow(g *Grid, row int) bool {
	if row >= g.Rows() {
		return false
	}
	hit := 0
	for c := 0; c < g.Cols(); c++ {
		cell := g.At(row, c)
		if cell.Kind != CellText {
			continue
		}
		s := strings.Trim(normalizeLabel(cell.Text, false), "()[] ")
		for _, l := range subHeaderLabels {
			if s == l {
				hit++
				break
			}
		}
	}
	return hit >= 2
}
