package bom

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ductsync/internal/model"
)

// lineNamespace BOM 行 id 的 UUIDv5 命名空间
var lineNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("ductsync.bom.line"))

// GeneratorOptions 生成参数
type GeneratorOptions struct {
	// IncludeWear 是否为设备磨损指标生成行（磨损不计库存，默认关闭）
	IncludeWear bool
}

// Generator 将执行记录展开为有序的 BOM 行
type Generator struct {
	opts GeneratorOptions
}

// NewGenerator 创建生成器
func NewGenerator(opts GeneratorOptions) *Generator {
	return &Generator{opts: opts}
}

// Generate 展开记录：板材、型材、法兰配件、耗材、（可选）磨损
// 数量为零的项不生成行；行号从 1 连续编号
func (g *Generator) Generate(rec *model.ExecutionRecord) []*model.BOMLine {
	if rec == nil {
		return nil
	}
	var lines []*model.BOMLine
	add := func(t model.MaterialType, desc string, raw float64, unit string) {
		if raw <= 0 {
			return
		}
		unit = CanonicalUnit(unit)
		qty := RoundQuantity(raw, unit)
		var msg string
		// 非零数量不因取整丢行，按最小单位补足
		if qty <= 0 {
			qty = minQuantity(unit)
			msg = fmt.Sprintf("quantity %s %s rounded up to %s", decimal.NewFromFloat(raw).String(), unit, decimal.NewFromFloat(qty).String())
		}
		n := len(lines) + 1
		lines = append(lines, &model.BOMLine{
			LineNumber:     n,
			LineID:         LineID(rec.Metadata.ProjectID, rec.Metadata.SourceFile, n),
			MaterialType:   t,
			Description:    strings.ToLower(strings.TrimSpace(desc)),
			RawDescription: desc,
			Quantity:       qty,
			Unit:           unit,
			Message:        msg,
		})
	}

	add(model.MaterialPanel, panelDescription(rec.Panel), rec.Panel.ConsumedAreaM2(), UnitM2)

	for _, p := range rec.Profiles {
		add(model.MaterialProfile, p.ProfileType, p.ConsumptionM, UnitM)
	}
	for _, a := range rec.Accessories {
		unit := a.Unit
		if strings.TrimSpace(unit) == "" {
			unit = UnitPcs
		}
		add(model.MaterialAccessory, a.Name, a.Quantity, unit)
	}
	for _, c := range rec.Consumables {
		if c.Total <= 0 {
			continue
		}
		add(model.MaterialConsumable, c.Name, c.WithAllowance(), c.Unit)
	}
	if g.opts.IncludeWear {
		for _, w := range rec.Telemetry.Wear {
			add(model.MaterialWear, w.Name, w.Value, w.Unit)
		}
	}
	return lines
}

// LineID 由 (项目, 源文件, 行号) 确定的行 id，同一文件重复生成结果一致
func LineID(projectID, sourceFile string, lineNumber int) string {
	name := projectID + "\x00" + sourceFile + "\x00" + strconv.Itoa(lineNumber)
	return uuid.NewSHA1(lineNamespace, []byte(name)).String()
}

func panelDescription(p model.RawMaterialPanel) string {
	if s := strings.TrimSpace(p.Spec); s != "" {
		return s
	}
	if p.ThicknessMM > 0 {
		return fmt.Sprintf("panel %smm", decimal.NewFromFloat(p.ThicknessMM).String())
	}
	return "panel"
}

// RoundQuantity 按单位族精度取整：面积/长度 2 位，重量/体积 3 位，计件 0 位
func RoundQuantity(v float64, unit string) float64 {
	return decimal.NewFromFloat(v).Round(precision(CanonicalUnit(unit))).InexactFloat64()
}

// minQuantity 该单位精度下的最小正数量
func minQuantity(unit string) float64 {
	return decimal.New(1, -precision(unit)).InexactFloat64()
}

func precision(unit string) int32 {
	switch unit {
	case UnitM2, UnitM:
		return 2
	case UnitKg, UnitL:
		return 3
	case UnitPcs, UnitTubes, UnitBars:
		return 0
	}
	return 2
}
