package parser

import (
	"strings"

	"ductsync/internal/model"
)

// 法兰配件表头
const (
	HeaderItem     = "Item"
	HeaderSize     = "Size"
	HeaderQuantity = "Quantity"
	HeaderUnit     = "Unit"
	HeaderRemarks  = "Remarks"
)

const accessoriesTab = "Accessories"

// AccessoryExtractor 法兰配件页抽取器（表头位置不固定的明细表）
type AccessoryExtractor struct {
	finder *AnchorFinder
}

// NewAccessoryExtractor 创建法兰配件抽取器
func NewAccessoryExtractor(f *AnchorFinder) *AccessoryExtractor {
	return &AccessoryExtractor{finder: f}
}

// Extract 抽取法兰配件
func (e *AccessoryExtractor) Extract() Result[[]model.FlangeAccessory] {
	res := Result[[]model.FlangeAccessory]{}
	f := e.finder

	hr, ok := f.FindTableHeaderRow([]string{HeaderItem, HeaderSize, HeaderQuantity, HeaderUnit, HeaderRemarks}, 0)
	if !ok {
		res.Warn("%s: accessory table header not found", accessoriesTab)
		return res
	}

	rows := f.ExtractTable(hr, map[string]string{
		"item": HeaderItem,
		"size": HeaderSize,
		"qty":  HeaderQuantity,
		"unit": HeaderUnit,
	}, "item", true)

	for _, r := range rows {
		name := r.String("item", "")
		if strings.EqualFold(name, "total") {
			break
		}
		if size := r.String("size", ""); size != "" {
			name = name + " " + size
		}

		qty, ok := CastFloat(r.Cells["qty"])
		if !ok {
			if r.Has("qty") {
				res.Warn("%s: row %d %q quantity is not numeric, using 0", accessoriesTab, r.Row+1, name)
			}
			qty = 0
		}
		if qty < 0 {
			res.Warn("%s: row %d %q quantity is negative (%g), clamped to 0", accessoriesTab, r.Row+1, name, qty)
			qty = 0
		}

		unit := NormalizeUnit(r.String("unit", ""))
		if unit == "" {
			unit = "pcs"
		}
		res.Data = append(res.Data, model.FlangeAccessory{Name: name, Quantity: qty, Unit: unit})
	}
	return res
}
