package mapping

import (
	"math"
	"strconv"
	"strings"
	"time"

	"ductsync/internal/model"
	"ductsync/internal/store"
)

// referenceTable 参照表快照
type referenceTable struct {
	byDesc map[string]model.MaterialReference
	byCode map[string]model.MaterialReference
}

// overrideTable 覆盖规则快照：作用域 -> 作用域值 -> 规范化描述 -> 规则（保持表内顺序）
type overrideTable map[model.ScopeType]map[string]map[string][]model.MappingOverride

func buildReferenceTable(rows []store.Row) *referenceTable {
	t := &referenceTable{
		byDesc: make(map[string]model.MaterialReference, len(rows)),
		byCode: make(map[string]model.MaterialReference, len(rows)),
	}
	for _, r := range rows {
		ref := model.MaterialReference{
			Description:      strings.TrimSpace(r[store.ColDescription]),
			CanonicalCode:    strings.TrimSpace(r[store.ColCanonicalCode]),
			ExternalCode:     strings.TrimSpace(r[store.ColExternalCode]),
			Unit:             strings.TrimSpace(r[store.ColUnit]),
			ExternalUnit:     strings.TrimSpace(r[store.ColExternalUnit]),
			ConversionFactor: parseFloat(r[store.ColConversionFactor]),
			Tracked:          parseBool(r[store.ColTracked], false),
			Active:           parseBool(r[store.ColActive], true),
		}
		if !ref.Active || ref.CanonicalCode == "" {
			continue
		}
		key := Normalize(ref.Description)
		if key == "" {
			continue
		}
		// 重复描述取第一条
		if _, dup := t.byDesc[key]; !dup {
			t.byDesc[key] = ref
		}
		if _, dup := t.byCode[ref.CanonicalCode]; !dup {
			t.byCode[ref.CanonicalCode] = ref
		}
	}
	return t
}

func buildOverrideTable(rows []store.Row) overrideTable {
	t := make(overrideTable)
	for _, r := range rows {
		o := model.MappingOverride{
			ScopeType:     model.ScopeType(strings.ToUpper(strings.TrimSpace(r[store.ColScopeType]))),
			ScopeValue:    strings.TrimSpace(r[store.ColScopeValue]),
			EffectiveFrom: strings.TrimSpace(r[store.ColEffectiveFrom]),
			EffectiveTo:   strings.TrimSpace(r[store.ColEffectiveTo]),
			Description:   strings.TrimSpace(r[store.ColDescription]),
			CanonicalCode: strings.TrimSpace(r[store.ColCanonicalCode]),
			ExternalCode:  strings.TrimSpace(r[store.ColExternalCode]),
			Active:        parseBool(r[store.ColActive], true),
		}
		if !o.Active || o.CanonicalCode == "" || o.ScopeValue == "" {
			continue
		}
		switch o.ScopeType {
		case model.ScopeLPO, model.ScopeProject, model.ScopeCustomer:
		default:
			continue
		}
		desc := Normalize(o.Description)
		if desc == "" {
			continue
		}
		byValue, ok := t[o.ScopeType]
		if !ok {
			byValue = make(map[string]map[string][]model.MappingOverride)
			t[o.ScopeType] = byValue
		}
		byDesc, ok := byValue[scopeKey(o.ScopeValue)]
		if !ok {
			byDesc = make(map[string][]model.MappingOverride)
			byValue[scopeKey(o.ScopeValue)] = byDesc
		}
		byDesc[desc] = append(byDesc[desc], o)
	}
	return t
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006/01/02", "2006-01-02 15:04:05"}

// parseDate 解析生效日期，仅保留日期部分
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// effective 当天是否在生效区间内（含边界）
// 未设置或无法解析的边界视为该侧不限
func effective(o model.MappingOverride, now time.Time) bool {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if from, ok := parseDate(o.EffectiveFrom); ok && today.Before(from) {
		return false
	}
	if to, ok := parseDate(o.EffectiveTo); ok && today.After(to) {
		return false
	}
	return true
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func parseBool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def
	case "true", "yes", "y", "1", "x", "active":
		return true
	case "false", "no", "n", "0", "inactive":
		return false
	}
	return def
}
