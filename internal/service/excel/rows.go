package excel

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadTables 读取以首行为表头的工作表，返回 页签名 -> 行（表头 -> 文本）
// 用于把参照表、覆盖规则等基础数据导入行存储
func ReadTables(r io.Reader) (map[string][]map[string]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel: %w", err)
	}
	defer f.Close()

	out := make(map[string][]map[string]string)
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		if len(rows) == 0 {
			continue
		}
		headers := make([]string, len(rows[0]))
		for i, h := range rows[0] {
			headers[i] = strings.TrimSpace(h)
		}

		var table []map[string]string
		for _, row := range rows[1:] {
			rec := make(map[string]string, len(headers))
			empty := true
			for i, h := range headers {
				if h == "" || i >= len(row) {
					continue
				}
				v := strings.TrimSpace(row[i])
				if v != "" {
					empty = false
				}
				rec[h] = v
			}
			if !empty {
				table = append(table, rec)
			}
		}
		out[name] = table
	}
	return out, nil
}
