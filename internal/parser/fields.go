package parser

import (
	"errors"
	"fmt"
	"strings"
)

var errNoValue = errors.New("no usable value")

type offset struct{ row, col int }

// valueOffsets 标签值的候选位置：右侧、右侧第二格（中间隔单位列）、正下方
var valueOffsets = []offset{{0, 1}, {0, 2}, {1, 0}}

// locateLabel 先精确匹配再包含匹配，避免 "Material" 命中标题 "Raw Material Report"
func locateLabel(f *AnchorFinder, label string) (Anchor, bool) {
	if a, ok := f.FindAnchor(label, false, true); ok {
		return a, true
	}
	return f.FindAnchor(label, false, false)
}

func probeFloat(f *AnchorFinder, label string) (float64, error) {
	a, ok := locateLabel(f, label)
	if !ok {
		return 0, ErrAnchorNotFound
	}
	for _, o := range valueOffsets {
		if v, ok := CastFloat(f.grid.At(a.Row+o.row, a.Col+o.col)); ok {
			return v, nil
		}
	}
	return 0, errNoValue
}

func probeString(f *AnchorFinder, label string) (string, error) {
	a, ok := locateLabel(f, label)
	if !ok {
		return "", ErrAnchorNotFound
	}
	for _, o := range valueOffsets {
		r, c := a.Row+o.row, a.Col+o.col
		cell := f.grid.At(r, c)
		// 相邻的另一个标签不是值
		if cell.Kind == CellText && isKnownLabel(cell.Text) {
			continue
		}
		if o.row > 0 && (isKeyRow(f.grid, a, r, c) || strings.HasSuffix(strings.TrimSpace(cell.Text), ":")) {
			continue
		}
		if v, ok := CastString(cell); ok {
			return v, nil
		}
	}
	return "", errNoValue
}

// isKeyRow 标签右侧为空而下方单元格右侧有值：下方是键值列中的下一个键
func isKeyRow(g *Grid, a Anchor, r, c int) bool {
	if !g.At(a.Row, a.Col+1).IsBlank() {
		return false
	}
	return !g.At(r, c+1).IsBlank() || !g.At(r, c+2).IsBlank()
}

func fieldWarning(tab, label string, err error) string {
	if errors.Is(err, ErrAnchorNotFound) {
		return fmt.Sprintf("%s: %q not found, using default", tab, label)
	}
	return fmt.Sprintf("%s: %q has no usable value, using default", tab, label)
}

// quantity 读取非负数量；缺失或异常时返回 0 并记录警告
func quantity[T any](res *Result[T], f *AnchorFinder, tab, label string) float64 {
	v, err := probeFloat(f, label)
	if err != nil {
		res.Warnings = append(res.Warnings, fieldWarning(tab, label, err))
		return 0
	}
	if v < 0 {
		res.Warn("%s: %q is negative (%g), clamped to 0", tab, label, v)
		return 0
	}
	return v
}

// optionalQuantity 同 quantity，但标签缺失时不记录警告
func optionalQuantity[T any](res *Result[T], f *AnchorFinder, tab, label string) (float64, bool) {
	v, err := probeFloat(f, label)
	if errors.Is(err, ErrAnchorNotFound) {
		return 0, false
	}
	if err != nil {
		res.Warnings = append(res.Warnings, fieldWarning(tab, label, err))
		return 0, false
	}
	if v < 0 {
		res.Warn("%s: %q is negative (%g), clamped to 0", tab, label, v)
		return 0, true
	}
	return v, true
}

// thickness 厚度只接受正数，非正数视为缺失
func thickness[T any](res *Result[T], f *AnchorFinder, tab, label string) float64 {
	v, err := probeFloat(f, label)
	if err != nil {
		res.Warnings = append(res.Warnings, fieldWarning(tab, label, err))
		return 0
	}
	if v <= 0 {
		res.Warn("%s: %q must be positive, got %g", tab, label, v)
		return 0
	}
	return v
}

func text[T any](res *Result[T], f *AnchorFinder, tab, label string, required bool) string {
	v, err := probeString(f, label)
	if err != nil {
		if required || !errors.Is(err, ErrAnchorNotFound) {
			res.Warnings = append(res.Warnings, fieldWarning(tab, label, err))
		}
		return ""
	}
	return v
}

var knownLabels = map[string]struct{}{}

func registerLabels(labels ...string) {
	for _, l := range labels {
		knownLabels[normalizeLabel(l, false)] = struct{}{}
	}
}

func isKnownLabel(s string) bool {
	_, ok := knownLabels[normalizeLabel(s, false)]
	return ok
}
