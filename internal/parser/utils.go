package parser

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	unitLabelRe  = regexp.MustCompile(`\(([^()]+)\)\s*$`)
)

// normalizeLabel 规范化标签文本：压缩空白、去除首尾空白与末尾冒号
func normalizeLabel(s string, caseSensitive bool) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ":：")
	s = strings.TrimSpace(s)
	if !caseSensitive {
		s = strings.ToLower(s)
	}
	return s
}

// matchLabel 单元格文本是否匹配已规范化的目标标签
func matchLabel(cellText, want string, caseSensitive, exact bool) bool {
	got := normalizeLabel(cellText, caseSensitive)
	if got == "" {
		return false
	}
	if exact {
		return got == want
	}
	return strings.Contains(got, want)
}

// NormalizeColumnName 规范化列名，去除换行并压缩空白
func NormalizeColumnName(name string) string {
	name = strings.ReplaceAll(name, "\n", " ")
	name = strings.ReplaceAll(name, "\r", " ")
	name = strings.ReplaceAll(name, "\t", " ")
	return normalizeLabel(name, true)
}

// UnitFromLabel 提取标签末尾括号中的单位，如 "Glue (kg)" -> "kg"
func UnitFromLabel(label string) string {
	m := unitLabelRe.FindStringSubmatch(strings.TrimSpace(label))
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// StripUnit 去掉标签末尾的括号单位
func StripUnit(label string) string {
	return strings.TrimSpace(unitLabelRe.ReplaceAllString(strings.TrimSpace(label), ""))
}

// ContainsAny 检查字符串是否包含任意一个关键词（不区分大小写）
func ContainsAny(text string, keywords []string) bool {
	text = strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// NormalizeUnit 统一单位写法
func NormalizeUnit(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	switch u {
	case "m²", "sqm", "sq m", "m^2":
		return "m2"
	case "m³", "m^3":
		return "m3"
	case "pc", "pcs.", "piece", "pieces", "ea", "each":
		return "pcs"
	case "tube":
		return "tubes"
	case "bar":
		return "bars"
	case "meter", "meters", "metre", "metres":
		return "m"
	case "litre", "liter", "litres", "liters", "ltr":
		return "l"
	}
	return u
}
