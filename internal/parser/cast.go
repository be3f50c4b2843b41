package parser

import (
	"math"
	"strconv"
	"strings"
)

// CastFloat 将单元格转换为浮点数
// 空值、NaN、无穷大、无法解析的文本都视为失败
func CastFloat(c Cell) (float64, bool) {
	switch c.Kind {
	case CellNumber:
		if math.IsNaN(c.Number) || math.IsInf(c.Number, 0) {
			return 0, false
		}
		return c.Number, true
	case CellText:
		return parseNumber(c.Text)
	default:
		return 0, false
	}
}

// CastInt 将单元格转换为整数（小数部分四舍五入）
func CastInt(c Cell) (int, bool) {
	f, ok := CastFloat(c)
	if !ok {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(math.Round(f)), true
}

// CastString 将单元格转换为去除首尾空白的文本
func CastString(c Cell) (string, bool) {
	if c.IsBlank() {
		return "", false
	}
	s := strings.TrimSpace(c.String())
	if strings.EqualFold(s, "nan") {
		return "", false
	}
	return s, true
}

// parseNumber 解析数值文本：移除千分位、空白与末尾百分号
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "") // 移除千分位
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.TrimSuffix(s, "%")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
