package parser

import (
	"errors"
	"fmt"
)

// ErrAnchorNotFound 必填锚点不存在
var ErrAnchorNotFound = errors.New("anchor not found")

const (
	// DefaultHeaderScanRows 未指定表头行时扫描的行数
	DefaultHeaderScanRows = 20
	// DefaultHeaderMatchRatio 多列表头模糊匹配的最低命中比例
	DefaultHeaderMatchRatio = 0.8
)

// Anchor 已定位的锚点
type Anchor struct {
	Row  int    `json:"row"`
	Col  int    `json:"col"`
	Text string `json:"text"`
}

// Lookup 锚点偏移取值参数
type Lookup struct {
	Anchor        string
	RowOffset     int
	ColOffset     int
	Required      bool
	CaseSensitive bool
	ExactMatch    bool
}

// FinderOptions 查找器选项
type FinderOptions struct {
	HeaderScanRows   int
	HeaderMatchRatio float64
}

type anchorKey struct {
	text          string
	caseSensitive bool
	exact         bool
}

type anchorHit struct {
	anchor Anchor
	found  bool
}

// AnchorFinder 基于文本锚点的表格定位器
// 一个查找器对应一次抽取会话，锚点结果（含未命中）在会话内缓存
type AnchorFinder struct {
	grid *Grid
	opts FinderOptions
	memo map[anchorKey]anchorHit
}

// NewAnchorFinder 创建查找器
func NewAnchorFinder(g *Grid) *AnchorFinder {
	return NewAnchorFinderWithOptions(g, FinderOptions{})
}

// NewAnchorFinderWithOptions 创建查找器（自定义表头扫描参数）
func NewAnchorFinderWithOptions(g *Grid, opts FinderOptions) *AnchorFinder {
	if g == nil {
		g = NewGrid("", nil)
	}
	if opts.HeaderScanRows <= 0 {
		opts.HeaderScanRows = DefaultHeaderScanRows
	}
	if opts.HeaderMatchRatio <= 0 || opts.HeaderMatchRatio > 1 {
		opts.HeaderMatchRatio = DefaultHeaderMatchRatio
	}
	return &AnchorFinder{
		grid: g,
		opts: opts,
		memo: make(map[anchorKey]anchorHit),
	}
}

// Grid 底层表格
func (f *AnchorFinder) Grid() *Grid { return f.grid }

// Region 返回 [startRow, endRow) 子区域上的新查找器，坐标相对子区域
func (f *AnchorFinder) Region(startRow, endRow int) *AnchorFinder {
	return NewAnchorFinderWithOptions(f.grid.Slice(startRow, endRow), f.opts)
}

// FindAnchor 按行优先顺序查找第一个匹配文本的单元格
func (f *AnchorFinder) FindAnchor(text string, caseSensitive, exactMatch bool) (Anchor, bool) {
	key := anchorKey{text: text, caseSensitive: caseSensitive, exact: exactMatch}
	if hit, ok := f.memo[key]; ok {
		return hit.anchor, hit.found
	}

	want := normalizeLabel(text, caseSensitive)
	hit := anchorHit{}
	if want != "" {
	scan:
		for r := 0; r < f.grid.Rows(); r++ {
			for c := 0; c < f.grid.Cols(); c++ {
				cell := f.grid.At(r, c)
				if cell.Kind != CellText {
					continue
				}
				if matchLabel(cell.Text, want, caseSensitive, exactMatch) {
					hit = anchorHit{anchor: Anchor{Row: r, Col: c, Text: cell.Text}, found: true}
					break scan
				}
			}
		}
	}

	f.memo[key] = hit
	return hit.anchor, hit.found
}

// FindAllAnchors 查找所有匹配文本的单元格（不区分大小写，包含匹配）
func (f *AnchorFinder) FindAllAnchors(text string) []Anchor {
	want := normalizeLabel(text, false)
	if want == "" {
		return nil
	}
	var out []Anchor
	for r := 0; r < f.grid.Rows(); r++ {
		for c := 0; c < f.grid.Cols(); c++ {
			cell := f.grid.At(r, c)
			if cell.Kind == CellText && matchLabel(cell.Text, want, false, false) {
				out = append(out, Anchor{Row: r, Col: c, Text: cell.Text})
			}
		}
	}
	return out
}

func (f *AnchorFinder) locate(l Lookup) (int, int, error) {
	a, ok := f.FindAnchor(l.Anchor, l.CaseSensitive, l.ExactMatch)
	if !ok {
		if l.Required {
			return 0, 0, fmt.Errorf("%w: %q in %s", ErrAnchorNotFound, l.Anchor, f.grid.Name())
		}
		return -1, -1, nil
	}
	return a.Row + l.RowOffset, a.Col + l.ColOffset, nil
}

// Float 锚点偏移处的浮点数；仅当必填锚点缺失时返回错误
func (f *AnchorFinder) Float(l Lookup, def float64) (float64, error) {
	r, c, err := f.locate(l)
	if err != nil {
		return def, err
	}
	return f.FloatAt(r, c, def), nil
}

// Int 锚点偏移处的整数
func (f *AnchorFinder) Int(l Lookup, def int) (int, error) {
	r, c, err := f.locate(l)
	if err != nil {
		return def, err
	}
	return f.IntAt(r, c, def), nil
}

// String 锚点偏移处的文本
func (f *AnchorFinder) String(l Lookup, def string) (string, error) {
	r, c, err := f.locate(l)
	if err != nil {
		return def, err
	}
	return f.StringAt(r, c, def), nil
}

// FloatAt 绝对坐标处的浮点数，越界或无法转换时返回默认值
func (f *AnchorFinder) FloatAt(row, col int, def float64) float64 {
	if !f.grid.InBounds(row, col) {
		return def
	}
	if v, ok := CastFloat(f.grid.At(row, col)); ok {
		return v
	}
	return def
}

// IntAt 绝对坐标处的整数
func (f *AnchorFinder) IntAt(row, col int, def int) int {
	if !f.grid.InBounds(row, col) {
		return def
	}
	if v, ok := CastInt(f.grid.At(row, col)); ok {
		return v
	}
	return def
}

// StringAt 绝对坐标处的文本
func (f *AnchorFinder) StringAt(row, col int, def string) string {
	if !f.grid.InBounds(row, col) {
		return def
	}
	if v, ok := CastString(f.grid.At(row, col)); ok {
		return v
	}
	return def
}

// FindColumn 在表头区域查找列标题；searchRow < 0 时扫描前 HeaderScanRows 行
func (f *AnchorFinder) FindColumn(header string, searchRow int) (Anchor, bool) {
	want := normalizeLabel(header, false)
	if want == "" {
		return Anchor{}, false
	}
	start, end := 0, f.opts.HeaderScanRows
	if searchRow >= 0 {
		start, end = searchRow, searchRow+1
	}
	if end > f.grid.Rows() {
		end = f.grid.Rows()
	}
	// 先精确再包含，避免 "Area" 命中 "Waste Area"
	for _, exact := range []bool{true, false} {
		for r := start; r < end; r++ {
			for c := 0; c < f.grid.Cols(); c++ {
				cell := f.grid.At(r, c)
				if cell.Kind == CellText && matchLabel(cell.Text, want, false, exact) {
					return Anchor{Row: r, Col: c, Text: cell.Text}, true
				}
			}
		}
	}
	return Anchor{}, false
}

// FindColumnIndex 列标题所在列索引，未找到返回 -1
func (f *AnchorFinder) FindColumnIndex(header string, searchRow int) int {
	if a, ok := f.FindColumn(header, searchRow); ok {
		return a.Col
	}
	return -1
}

// ColumnValues 读取某列自 startRow 起连续的数值，遇到空白或非数值即停止
func (f *AnchorFinder) ColumnValues(col, startRow int) []float64 {
	var out []float64
	for r := startRow; r < f.grid.Rows(); r++ {
		v, ok := CastFloat(f.grid.At(r, col))
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}

// SumColumn 列标题下方连续数值之和
func (f *AnchorFinder) SumColumn(header string, searchRow int) float64 {
	a, ok := f.FindColumn(header, searchRow)
	if !ok {
		return 0
	}
	sum := 0.0
	for _, v := range f.ColumnValues(a.Col, a.Row+1) {
		sum += v
	}
	return sum
}

// FindTableHeaderRow 查找第一个满足表头集合命中比例的行
func (f *AnchorFinder) FindTableHeaderRow(required []string, maxRows int) (int, bool) {
	if len(required) == 0 {
		return -1, false
	}
	if maxRows <= 0 || maxRows > f.grid.Rows() {
		maxRows = f.grid.Rows()
	}
	wants := make([]string, 0, len(required))
	for _, h := range required {
		wants = append(wants, normalizeLabel(h, false))
	}
	for r := 0; r < maxRows; r++ {
		hit := 0
		for _, want := range wants {
			for c := 0; c < f.grid.Cols(); c++ {
				cell := f.grid.At(r, c)
				if cell.Kind == CellText && matchLabel(cell.Text, want, false, false) {
					hit++
					break
				}
			}
		}
		if float64(hit)/float64(len(wants)) >= f.opts.HeaderMatchRatio {
			return r, true
		}
	}
	return -1, false
}
