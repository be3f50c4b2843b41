package excel_test

import (
	"bytes"
	"testing"

	"ductsync/internal/model"
	"ductsync/internal/service/excel"
)

func TestExporter_WritesBOMAndSummary(t *testing.T) {
	t.Parallel()

	rec := &model.ExecutionRecord{Metadata: model.RecordMetadata{ProjectID: "P-1", Status: model.ValidationWarning, Messages: []string{"missing tab: Panel"}}}
	lines := []*model.BOMLine{
		{LineNumber: 1, LineID: "a", MaterialType: model.MaterialPanel, Description: "pir alu 20mm", Quantity: 45, Unit: "m2", Decision: model.DecisionAuto, CanonicalCode: "PNL-20"},
		{LineNumber: 2, LineID: "b", MaterialType: model.MaterialProfile, Description: "u-profile", Quantity: 120, Unit: "m", Decision: model.DecisionReview},
	}

	f, err := excel.NewExporter().Export(rec, lines)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("BOM")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows=%d", len(rows))
	}
	if rows[1][6] != "PNL-20" || rows[2][8] != "REVIEW" {
		t.Fatalf("unexpected rows: %v", rows)
	}

	summary, err := f.GetRows("Summary")
	if err != nil {
		t.Fatalf("GetRows summary: %v", err)
	}
	if summary[1][1] != "P-1" || summary[len(summary)-1][1] != "missing tab: Panel" {
		t.Fatalf("summary=%v", summary)
	}
}

func TestExporter_SkipsNilLines(t *testing.T) {
	t.Parallel()

	lines := []*model.BOMLine{
		nil,
		{LineNumber: 1, LineID: "a", MaterialType: model.MaterialAccessory, Description: "corner", Quantity: 48, Unit: "pcs"},
		nil,
	}
	f, err := excel.NewExporter().Export(nil, lines)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("BOM")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 || rows[1][3] != "corner" {
		t.Fatalf("rows=%v", rows)
	}
	if idx, _ := f.GetSheetIndex("Summary"); idx != -1 {
		t.Fatalf("summary sheet written without a record")
	}
}

func TestReadTables(t *testing.T) {
	t.Parallel()

	data := buildWorkbook(t, []tab{
		{name: "MATERIAL_REFERENCE", rows: [][]interface{}{
			{"Description", "Canonical Code", "Unit"},
			{"PIR ALU 20mm", "PNL-20", "m2"},
			{},
			{"U-profile", "PRF-U", "m"},
		}},
		{name: "MAPPING_OVERRIDES", rows: [][]interface{}{
			{"Scope Type", "Scope Value"},
		}},
	})

	tables, err := excel.ReadTables(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadTables: %v", err)
	}
	ref := tables["MATERIAL_REFERENCE"]
	if len(ref) != 2 || ref[1]["Canonical Code"] != "PRF-U" {
		t.Fatalf("reference=%v", ref)
	}
	if len(tables["MAPPING_OVERRIDES"]) != 0 {
		t.Fatalf("overrides=%v", tables["MAPPING_OVERRIDES"])
	}
}
