package bom

import (
	"strings"

	"github.com/shopspring/decimal"
)

// 标准单位
const (
	UnitM2    = "m2"
	UnitM     = "m"
	UnitMM    = "mm"
	UnitKg    = "kg"
	UnitG     = "g"
	UnitL     = "l"
	UnitML    = "ml"
	UnitPcs   = "pcs"
	UnitTubes = "tubes"
	UnitBars  = "bars"
	UnitSqFt  = "sqft"
	UnitFt    = "ft"
	UnitLb    = "lb"
)

var unitAliases = map[string]string{
	"m²": UnitM2, "sqm": UnitM2, "sq m": UnitM2, "sq.m": UnitM2, "m^2": UnitM2,
	"mtr": UnitM, "meter": UnitM, "metre": UnitM, "meters": UnitM, "metres": UnitM, "lm": UnitM,
	"kgs": UnitKg, "kilogram": UnitKg,
	"ltr": UnitL, "litre": UnitL, "liter": UnitL,
	"pc": UnitPcs, "ea": UnitPcs, "each": UnitPcs, "nos": UnitPcs, "no": UnitPcs, "pieces": UnitPcs, "piece": UnitPcs,
	"tube": UnitTubes,
	"bar": UnitBars,
	"ft²": UnitSqFt, "sq ft": UnitSqFt,
	"feet": UnitFt,
	"lbs": UnitLb,
}

// CanonicalUnit 单位别名归一（小写、去空白）
func CanonicalUnit(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	if c, ok := unitAliases[u]; ok {
		return c
	}
	return u
}

type unitPair struct{ from, to string }

// builtinFactors 内置换算系数（from -> to 乘以系数）
var builtinFactors = map[unitPair]decimal.Decimal{
	{UnitM, UnitMM}:    decimal.NewFromInt(1000),
	{UnitM, UnitFt}:    decimal.RequireFromString("3.28084"),
	{UnitM2, UnitSqFt}: decimal.RequireFromString("10.7639"),
	{UnitKg, UnitG}:    decimal.NewFromInt(1000),
	{UnitKg, UnitLb}:   decimal.RequireFromString("2.20462"),
	{UnitL, UnitML}:    decimal.NewFromInt(1000),
}

// BuiltinFactor 内置换算系数；同单位为 1，反向取倒数
func BuiltinFactor(from, to string) (decimal.Decimal, bool) {
	from, to = CanonicalUnit(from), CanonicalUnit(to)
	if from == to {
		return decimal.NewFromInt(1), true
	}
	if f, ok := builtinFactors[unitPair{from, to}]; ok {
		return f, true
	}
	if f, ok := builtinFactors[unitPair{to, from}]; ok {
		return decimal.NewFromInt(1).DivRound(f, 8), true
	}
	return decimal.Decimal{}, false
}
