package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"ductsync/internal/model"
)

const (
	bomSheet     = "BOM"
	summarySheet = "Summary"
)

// Exporter BOM 导出器
type Exporter struct{}

// NewExporter 创建导出器
func NewExporter() *Exporter {
	return &Exporter{}
}

// Export 导出 BOM 行与解析摘要；record 可为空
func (e *Exporter) Export(record *model.ExecutionRecord, lines []*model.BOMLine) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", bomSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headers := []string{
		"Line", "Line ID", "Type", "Description", "Quantity", "Unit",
		"Canonical Code", "External Code", "Decision",
		"Converted Qty", "Converted Unit", "Factor", "History ID", "Exception ID",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(bomSheet, cell, h)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	reviewStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FEF3C7"}, Pattern: 1},
	})
	f.SetRowStyle(bomSheet, 1, 1, headerStyle)

	row := 1
	for _, l := range lines {
		if l == nil {
			continue
		}
		row++
		values := []interface{}{
			l.LineNumber, l.LineID, string(l.MaterialType), l.Description, l.Quantity, l.Unit,
			l.CanonicalCode, l.ExternalCode, string(l.Decision),
			l.ConvertedQuantity, l.ConvertedUnit, l.ConversionFactor, l.HistoryID, l.ExceptionID,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(bomSheet, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("write line %d: %w", l.LineNumber, err)
		}
		if l.Decision == model.DecisionReview {
			f.SetRowStyle(bomSheet, row, row, reviewStyle)
		}
	}

	f.SetColWidth(bomSheet, "A", "A", 6)
	f.SetColWidth(bomSheet, "B", "B", 38)
	f.SetColWidth(bomSheet, "C", "C", 12)
	f.SetColWidth(bomSheet, "D", "D", 36)
	f.SetColWidth(bomSheet, "E", "N", 15)

	if record != nil {
		f.NewSheet(summarySheet)
		summary := [][]interface{}{
			{"Field", "Value"},
			{"Project ID", record.Metadata.ProjectID},
			{"Job Reference", record.Metadata.JobReference},
			{"Source File", record.Metadata.SourceFile},
			{"Status", string(record.Metadata.Status)},
			{"Panel", record.Panel.Spec},
			{"Gross Area (m2)", record.Panel.Inventory.GrossAreaM2},
			{"Reusable Remnant (m2)", record.Panel.Inventory.ReusableRemnantAreaM2},
			{"Waste %", record.Panel.Efficiency.WastePercent},
			{"Internal Area (m2)", record.Billing.InternalAreaM2},
			{"External Area (m2)", record.Billing.ExternalAreaM2},
			{"Finished Goods", len(record.FinishedGoods)},
		}
		for _, msg := range record.Metadata.Messages {
			summary = append(summary, []interface{}{"Message", msg})
		}
		for i, r := range summary {
			for j, v := range r {
				cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
				f.SetCellValue(summarySheet, cell, v)
			}
		}
		f.SetRowStyle(summarySheet, 1, 1, headerStyle)
		f.SetColWidth(summarySheet, "A", "A", 24)
		f.SetColWidth(summarySheet, "B", "B", 40)
	}

	return f, nil
}
