package parser

// TableRow 表格中的一行，按输出字段名索引
type TableRow struct {
	Row   int
	Cells map[string]Cell
}

// Float 字段的浮点值
func (t TableRow) Float(field string, def float64) float64 {
	if v, ok := CastFloat(t.Cells[field]); ok {
		return v
	}
	return def
}

// Int 字段的整数值
func (t TableRow) Int(field string, def int) int {
	if v, ok := CastInt(t.Cells[field]); ok {
		return v
	}
	return def
}

// String 字段的文本值
func (t TableRow) String(field string, def string) string {
	if v, ok := CastString(t.Cells[field]); ok {
		return v
	}
	return def
}

// Has 字段是否有非空值
func (t TableRow) Has(field string) bool {
	c, ok := t.Cells[field]
	return ok && !c.IsBlank()
}

// ExtractTable 从表头行向下读取数据行
// columns: 输出字段名 -> 表头文本；keyField 为标识列
// stopOnEmptyID 为真时遇到标识列为空的行即停止；否则仅跳过整行为空的行
func (f *AnchorFinder) ExtractTable(headerRow int, columns map[string]string, keyField string, stopOnEmptyID bool) []TableRow {
	if headerRow < 0 || headerRow >= f.grid.Rows() {
		return nil
	}

	colIndex := make(map[string]int, len(columns))
	for field, header := range columns {
		if c := f.FindColumnIndex(header, headerRow); c >= 0 {
			colIndex[field] = c
		}
	}
	if len(colIndex) == 0 {
		return nil
	}

	var out []TableRow
	for r := headerRow + 1; r < f.grid.Rows(); r++ {
		if keyField != "" {
			if kc, ok := colIndex[keyField]; ok && f.grid.At(r, kc).IsBlank() {
				if stopOnEmptyID {
					break
				}
			}
		}

		row := TableRow{Row: r, Cells: make(map[string]Cell, len(colIndex))}
		empty := true
		for field, c := range colIndex {
			cell := f.grid.At(r, c)
			row.Cells[field] = cell
			if !cell.IsBlank() {
				empty = false
			}
		}
		if empty {
			continue
		}
		out = append(out, row)
	}
	return out
}
