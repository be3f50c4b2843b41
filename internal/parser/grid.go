package parser

import (
	"math"
	"strconv"
	"strings"
)

// CellKind 单元格类型
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

// Cell 单元格（Empty / Text / Number 三选一）
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// EmptyCell 空单元格
func EmptyCell() Cell { return Cell{Kind: CellEmpty} }

// TextCell 文本单元格
func TextCell(s string) Cell { return Cell{Kind: CellText, Text: s} }

// NumberCell 数值单元格
func NumberCell(f float64) Cell { return Cell{Kind: CellNumber, Number: f} }

// IsBlank 空单元格或空白文本
func (c Cell) IsBlank() bool {
	switch c.Kind {
	case CellEmpty:
		return true
	case CellText:
		return strings.TrimSpace(c.Text) == ""
	default:
		return false
	}
}

// String 单元格的展示文本
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// CellFromRaw 将 excelize 读出的原始字符串转换为单元格
// 只有可完整解析且有限的数值才视为 Number，其余保持文本，由取值时按转换规则处理
func CellFromRaw(raw string) Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return EmptyCell()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return NumberCell(f)
	}
	return TextCell(raw)
}

// Grid 单个工作表的只读二维视图
type Grid struct {
	name  string
	cells [][]Cell
	cols  int
}

// NewGrid 创建 Grid，所有行补齐到最宽行
func NewGrid(name string, rows [][]Cell) *Grid {
	cols := 0
	for _, r := range rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	cells := make([][]Cell, len(rows))
	for i, r := range rows {
		row := make([]Cell, cols)
		copy(row, r)
		cells[i] = row
	}
	return &Grid{name: name, cells: cells, cols: cols}
}

// GridFromStrings 由字符串行构建 Grid
func GridFromStrings(name string, rows [][]string) *Grid {
	cells := make([][]Cell, len(rows))
	for i, r := range rows {
		row := make([]Cell, len(r))
		for j, v := range r {
			row[j] = CellFromRaw(v)
		}
		cells[i] = row
	}
	return NewGrid(name, cells)
}

// Name 工作表名
func (g *Grid) Name() string { return g.name }

// Rows 行数
func (g *Grid) Rows() int { return len(g.cells) }

// Cols 列数
func (g *Grid) Cols() int { return g.cols }

// At 返回 (row, col) 处的单元格，越界返回空单元格
func (g *Grid) At(row, col int) Cell {
	if !g.InBounds(row, col) {
		return EmptyCell()
	}
	return g.cells[row][col]
}

// InBounds 坐标是否在表内
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && row < len(g.cells) && col >= 0 && col < g.cols
}

// Slice 返回 [start, end) 行构成的子表，单元格共享（只读）
func (g *Grid) Slice(start, end int) *Grid {
	if start < 0 {
		start = 0
	}
	if end > len(g.cells) {
		end = len(g.cells)
	}
	if start >= end {
		return &Grid{name: g.name, cols: g.cols}
	}
	return &Grid{name: g.name, cells: g.cells[start:end], cols: g.cols}
}

// NonBlankCount 某行非空单元格数量
func (g *Grid) NonBlankCount(row int) int {
	if row < 0 || row >= len(g.cells) {
		return 0
	}
	n := 0
	for _, c := range g.cells[row] {
		if !c.IsBlank() {
			n++
		}
	}
	return n
}

// RowBlank 整行是否为空
func (g *Grid) RowBlank(row int) bool {
	return g.NonBlankCount(row) == 0
}
