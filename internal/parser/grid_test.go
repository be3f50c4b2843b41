package parser

import (
	"math"
	"testing"
)

// buildGrid 测试用：nil 为空单元格，string 为文本，数值类型为数字
func buildGrid(name string, rows ...[]any) *Grid {
	cells := make([][]Cell, len(rows))
	for i, r := range rows {
		row := make([]Cell, len(r))
		for j, v := range r {
			switch x := v.(type) {
			case nil:
				row[j] = EmptyCell()
			case string:
				row[j] = TextCell(x)
			case int:
				row[j] = NumberCell(float64(x))
			case float64:
				row[j] = NumberCell(x)
			default:
				panic("unsupported cell value")
			}
		}
		cells[i] = row
	}
	return NewGrid(name, cells)
}

// shiftDown 在表格上方插入 n 个空行
func shiftDown(g *Grid, n int) *Grid {
	cells := make([][]Cell, 0, g.Rows()+n)
	for i := 0; i < n; i++ {
		cells = append(cells, nil)
	}
	for r := 0; r < g.Rows(); r++ {
		row := make([]Cell, g.Cols())
		for c := 0; c < g.Cols(); c++ {
			row[c] = g.At(r, c)
		}
		cells = append(cells, row)
	}
	return NewGrid(g.Name(), cells)
}

func TestGrid_PadsRowsAndBounds(t *testing.T) {
	t.Parallel()

	g := buildGrid("s", []any{"a"}, []any{nil, nil, 3})
	if g.Rows() != 2 || g.Cols() != 3 {
		t.Fatalf("unexpected shape %dx%d", g.Rows(), g.Cols())
	}
	if !g.At(0, 2).IsBlank() {
		t.Fatalf("padded cell should be blank")
	}
	if !g.At(-1, 0).IsBlank() || !g.At(9, 9).IsBlank() {
		t.Fatalf("out of bounds cells should be blank")
	}
	if g.NonBlankCount(1) != 1 {
		t.Fatalf("NonBlankCount=%d", g.NonBlankCount(1))
	}
	if s := g.Slice(1, 5); s.Rows() != 1 || s.At(0, 2).Number != 3 {
		t.Fatalf("slice mismatch")
	}
}

func TestCellFromRaw(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		kind CellKind
	}{
		{"", CellEmpty},
		{"   ", CellEmpty},
		{"12.5", CellNumber},
		{"1e3", CellNumber},
		{"NaN", CellText},
		{"Inf", CellText},
		{"1,200", CellText},
		{"Glue (kg)", CellText},
	}
	for _, tc := range cases {
		if got := CellFromRaw(tc.raw).Kind; got != tc.kind {
			t.Fatalf("CellFromRaw(%q) kind=%v want=%v", tc.raw, got, tc.kind)
		}
	}
}

func TestCastFloat_MalformedReturnsFailure(t *testing.T) {
	t.Parallel()

	bad := []Cell{
		EmptyCell(),
		TextCell(""),
		TextCell("abc"),
		TextCell("nan"),
		TextCell("inf"),
		TextCell("-Infinity"),
		NumberCell(math.NaN()),
		NumberCell(math.Inf(1)),
	}
	for _, c := range bad {
		if v, ok := CastFloat(c); ok {
			t.Fatalf("CastFloat(%+v) = %v, want failure", c, v)
		}
	}

	good := map[string]float64{
		"1,234.5": 1234.5,
		" 42 ":    42,
		"12%":     12,
		"1 000":   1000,
	}
	for raw, want := range good {
		got, ok := CastFloat(TextCell(raw))
		if !ok || got != want {
			t.Fatalf("CastFloat(%q)=%v,%v want %v", raw, got, ok, want)
		}
	}
}

func TestCastIntAndString(t *testing.T) {
	t.Parallel()

	if v, ok := CastInt(NumberCell(2.6)); !ok || v != 3 {
		t.Fatalf("CastInt(2.6)=%v,%v", v, ok)
	}
	if _, ok := CastInt(NumberCell(1e12)); ok {
		t.Fatalf("CastInt should reject values beyond int32")
	}
	if _, ok := CastString(TextCell("NaN")); ok {
		t.Fatalf("CastString should reject nan")
	}
	if v, ok := CastString(NumberCell(7)); !ok || v != "7" {
		t.Fatalf("CastString(7)=%q,%v", v, ok)
	}
}
