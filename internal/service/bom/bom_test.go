package bom

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ductsync/internal/model"
	"ductsync/internal/service/mapping"
	memstore "ductsync/internal/service/store"
	"ductsync/internal/store"
)

func twoLineRecord() *model.ExecutionRecord {
	return &model.ExecutionRecord{
		Metadata: model.RecordMetadata{ProjectID: "P-100", SourceFile: "job-42.xlsx"},
		Panel: model.RawMaterialPanel{
			Spec:      "PIR Panel 20mm",
			Inventory: model.InventoryImpact{UtilizedSheets: 6, GrossAreaM2: 45},
		},
		Profiles: []model.ProfileConsumption{
			{ProfileType: "U-Profile", ConsumptionM: 120},
			{ProfileType: "F-Profile", ConsumptionM: 0},
		},
		Accessories: []model.FlangeAccessory{{Name: "Corner", Quantity: 0, Unit: "pcs"}},
		Consumables: []model.Consumable{{Name: "Glue", Unit: "kg", Total: 0, ExtraAllowancePercent: 10}},
		Telemetry: model.MachineTelemetry{
			Wear: []model.WearMetric{{Name: "Blade", Value: 1.5, Unit: "h"}},
		},
	}
}

func TestGenerate_PanelAndProfile(t *testing.T) {
	t.Parallel()

	lines := NewGenerator(GeneratorOptions{}).Generate(twoLineRecord())
	if len(lines) != 2 {
		t.Fatalf("lines=%d, want 2", len(lines))
	}
	if lines[0].MaterialType != model.MaterialPanel || lines[0].LineNumber != 1 || lines[0].Quantity != 45 || lines[0].Unit != UnitM2 {
		t.Fatalf("line 1=%+v", lines[0])
	}
	if lines[0].Description != "pir panel 20mm" || lines[0].RawDescription != "PIR Panel 20mm" {
		t.Fatalf("line 1 description=%q", lines[0].Description)
	}
	if lines[1].MaterialType != model.MaterialProfile || lines[1].LineNumber != 2 || lines[1].Quantity != 120 || lines[1].Unit != UnitM {
		t.Fatalf("line 2=%+v", lines[1])
	}
	if lines[1].Description != "u-profile" {
		t.Fatalf("line 2 description=%q", lines[1].Description)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	t.Parallel()

	g := NewGenerator(GeneratorOptions{})
	a := g.Generate(twoLineRecord())
	b := g.Generate(twoLineRecord())
	for i := range a {
		if a[i].LineID != b[i].LineID {
			t.Fatalf("line %d id changed: %s vs %s", i, a[i].LineID, b[i].LineID)
		}
	}
	if a[0].LineID == a[1].LineID {
		t.Fatalf("line ids must differ")
	}
	if LineID("P-100", "other.xlsx", 1) == a[0].LineID {
		t.Fatalf("line id must depend on source file")
	}
}

func TestGenerate_RoundingAllowanceAndWear(t *testing.T) {
	t.Parallel()

	rec := &model.ExecutionRecord{
		Metadata: model.RecordMetadata{ProjectID: "P-1", SourceFile: "a.xlsx"},
		Panel: model.RawMaterialPanel{
			ThicknessMM: 20,
			Inventory:   model.InventoryImpact{GrossAreaM2: 45.678, ReusableRemnantAreaM2: 5.5},
		},
		Accessories: []model.FlangeAccessory{{Name: " Corner Piece ", Quantity: 39.6}},
		Consumables: []model.Consumable{
			{Name: "Glue", Unit: "kg", Total: 12.5, ExtraAllowancePercent: 10},
			{Name: "Silicone", Unit: "tubes", Total: 7, ExtraAllowancePercent: 5},
		},
		Telemetry: model.MachineTelemetry{
			Wear: []model.WearMetric{{Name: "Blade", Value: 1.5, Unit: "h"}, {Name: "Nozzle", Value: 0, Unit: "h"}},
		},
	}

	lines := NewGenerator(GeneratorOptions{}).Generate(rec)
	if len(lines) != 4 {
		t.Fatalf("lines=%d, want 4", len(lines))
	}
	want := []struct {
		typ  model.MaterialType
		desc string
		qty  float64
		unit string
	}{
		{model.MaterialPanel, "panel 20mm", 40.18, UnitM2},
		{model.MaterialAccessory, "corner piece", 40, UnitPcs},
		{model.MaterialConsumable, "glue", 13.75, UnitKg},
		{model.MaterialConsumable, "silicone", 7, UnitTubes},
	}
	for i, w := range want {
		l := lines[i]
		if l.MaterialType != w.typ || l.Description != w.desc || l.Quantity != w.qty || l.Unit != w.unit || l.LineNumber != i+1 {
			t.Errorf("line %d=%+v, want %+v", i+1, l, w)
		}
	}

	withWear := NewGenerator(GeneratorOptions{IncludeWear: true}).Generate(rec)
	if len(withWear) != 5 || withWear[4].MaterialType != model.MaterialWear || withWear[4].Description != "blade" {
		t.Fatalf("wear lines=%d", len(withWear))
	}
}

func TestGenerate_SmallNonzeroQuantityKeepsLine(t *testing.T) {
	t.Parallel()

	rec := &model.ExecutionRecord{
		Metadata:    model.RecordMetadata{ProjectID: "P-1", SourceFile: "a.xlsx"},
		Accessories: []model.FlangeAccessory{{Name: "Corner", Quantity: 0.4}, {Name: "Cleat", Quantity: 0}},
		Consumables: []model.Consumable{{Name: "Primer", Unit: "kg", Total: 0.0004}},
	}
	lines := NewGenerator(GeneratorOptions{}).Generate(rec)
	if len(lines) != 2 {
		t.Fatalf("lines=%d, want 2", len(lines))
	}
	if l := lines[0]; l.Description != "corner" || l.Quantity != 1 || l.Unit != UnitPcs {
		t.Fatalf("accessory=%+v", l)
	}
	if !strings.Contains(lines[0].Message, "rounded up to 1") {
		t.Fatalf("message=%q", lines[0].Message)
	}
	if l := lines[1]; l.Quantity != 0.001 || l.Unit != UnitKg || !strings.Contains(l.Message, "0.0004") {
		t.Fatalf("consumable=%+v", l)
	}
}

func TestBuiltinFactor(t *testing.T) {
	t.Parallel()

	if f, ok := BuiltinFactor("M", "mm"); !ok || f.String() != "1000" {
		t.Fatalf("m->mm=%v %v", f, ok)
	}
	if f, ok := BuiltinFactor("sqm", "m²"); !ok || f.IntPart() != 1 {
		t.Fatalf("sqm->m2=%v %v", f, ok)
	}
	if f, ok := BuiltinFactor("g", "kg"); !ok || f.String() != "0.001" {
		t.Fatalf("g->kg=%v %v", f, ok)
	}
	if _, ok := BuiltinFactor("kg", "m"); ok {
		t.Fatalf("kg->m should not convert")
	}
}

func referenceStore() *memstore.MemoryStore {
	s := memstore.NewMemoryStore()
	s.Seed(store.TableMaterialReference,
		store.Row{
			store.ColDescription:   "PIR Panel 20mm",
			store.ColCanonicalCode: "PNL-PIR-20",
			store.ColExternalCode:  "ERP-1001",
			store.ColUnit:          "m2",
			store.ColExternalUnit:  "sqm",
		},
		store.Row{
			store.ColDescription:   "U-Profile",
			store.ColCanonicalCode: "PRF-U",
			store.ColUnit:          "m",
			store.ColExternalUnit:  "mm",
		},
	)
	return s
}

func newProcessor(s *memstore.MemoryStore) *Processor {
	clock := func() time.Time { return time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC) }
	svc := mapping.NewService(s, nil, mapping.Options{Clock: clock})
	return NewProcessor(svc, s, ProcessorOptions{Now: clock})
}

func TestProcess_MapsConvertsAndPersists(t *testing.T) {
	t.Parallel()

	s := referenceStore()
	res := newProcessor(s).Process(context.Background(), twoLineRecord(), ProcessOptions{SessionID: "sess-1"})

	if !res.Success || res.TotalLines != 2 || res.MappedLines != 2 || res.ExceptionLines != 0 {
		t.Fatalf("res=%+v", res)
	}
	panel, profile := res.Lines[0], res.Lines[1]
	if panel.CanonicalCode != "PNL-PIR-20" || panel.ConvertedUnit != UnitM2 || panel.ConvertedQuantity != 45 {
		t.Fatalf("panel=%+v", panel)
	}
	if profile.CanonicalCode != "PRF-U" || profile.ConvertedUnit != UnitMM || profile.ConvertedQuantity != 120000 {
		t.Fatalf("profile=%+v", profile)
	}
	if panel.IngestLineID == "" || panel.IngestLineID == profile.IngestLineID {
		t.Fatalf("ingest ids: %q %q", panel.IngestLineID, profile.IngestLineID)
	}

	if s.AddCalls(store.TableBOMLines) != 1 || s.Count(store.TableBOMLines) != 2 {
		t.Fatalf("bom writes=%d rows=%d", s.AddCalls(store.TableBOMLines), s.Count(store.TableBOMLines))
	}
	row := s.Rows(store.TableBOMLines)[1]
	if row[store.ColSessionID] != "sess-1" || row[store.ColLineNumber] != "2" || row[store.ColConvertedQuantity] != "120000" {
		t.Fatalf("row=%v", row)
	}
}

func TestProcess_RetriedSessionReplays(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := referenceStore()
	p := newProcessor(s)

	first := p.Process(ctx, twoLineRecord(), ProcessOptions{SessionID: "3f1c7a52-8a7e-4f4e-9d3a-0c2b5b1d9e11"})
	second := p.Process(ctx, twoLineRecord(), ProcessOptions{SessionID: "3f1c7a52-8a7e-4f4e-9d3a-0c2b5b1d9e11"})

	if s.Count(store.TableMappingHistory) != 2 {
		t.Fatalf("history rows=%d, want 2", s.Count(store.TableMappingHistory))
	}
	for i := range first.Lines {
		if first.Lines[i].HistoryID != second.Lines[i].HistoryID {
			t.Fatalf("line %d history changed", i)
		}
	}

	// 新会话重新映射
	p.Process(ctx, twoLineRecord(), ProcessOptions{SessionID: "sess-2"})
	if s.Count(store.TableMappingHistory) != 4 {
		t.Fatalf("history rows=%d, want 4", s.Count(store.TableMappingHistory))
	}
}

type panicMapper struct {
	inner Mapper
	on    string
}

func (m panicMapper) Lookup(ctx context.Context, req mapping.LookupRequest) model.MappingResult {
	if req.Description == m.on {
		panic("sheet api exploded")
	}
	return m.inner.Lookup(ctx, req)
}

func TestProcess_LineFailureIsolated(t *testing.T) {
	t.Parallel()

	s := referenceStore()
	svc := mapping.NewService(s, nil, mapping.Options{})
	p := NewProcessor(panicMapper{inner: svc, on: "pir panel 20mm"}, s, ProcessorOptions{})

	res := p.Process(context.Background(), twoLineRecord(), ProcessOptions{SessionID: "sess-1"})
	if !res.Success || res.TotalLines != 2 || res.MappedLines != 1 || res.ExceptionLines != 1 {
		t.Fatalf("res=%+v", res)
	}
	panel := res.Lines[0]
	if panel.Decision != model.DecisionReview || !strings.Contains(panel.Message, "sheet api exploded") {
		t.Fatalf("panel=%+v", panel)
	}
	if panel.ConvertedQuantity != 45 || panel.ConvertedUnit != UnitM2 {
		t.Fatalf("panel conversion=%+v", panel)
	}
	if res.Lines[1].CanonicalCode != "PRF-U" {
		t.Fatalf("profile=%+v", res.Lines[1])
	}
	if s.Count(store.TableBOMLines) != 2 {
		t.Fatalf("bom rows=%d", s.Count(store.TableBOMLines))
	}
}

func TestProcess_UnmappedLineIsReview(t *testing.T) {
	t.Parallel()

	s := memstore.NewMemoryStore()
	res := newProcessor(s).Process(context.Background(), twoLineRecord(), ProcessOptions{SessionID: "sess-1"})

	if !res.Success || res.MappedLines != 0 || res.ExceptionLines != 2 {
		t.Fatalf("res=%+v", res)
	}
	if s.Count(store.TableMappingExceptions) != 2 {
		t.Fatalf("exceptions=%d", s.Count(store.TableMappingExceptions))
	}
	// 未映射时按原单位等值换算
	if l := res.Lines[1]; l.ConvertedQuantity != 120 || l.ConvertedUnit != UnitM || l.ConversionFactor != 1 {
		t.Fatalf("line=%+v", l)
	}
}

func TestProcess_BatchFailure(t *testing.T) {
	t.Parallel()

	s := referenceStore()
	s.FailOn(store.TableBOMLines, memstore.OpAdd, errors.New("quota exceeded"))

	res := newProcessor(s).Process(context.Background(), twoLineRecord(), ProcessOptions{SessionID: "sess-1"})
	if res.Success || !strings.Contains(res.Message, "quota exceeded") {
		t.Fatalf("res=%+v", res)
	}
	if len(res.Lines) != 2 || res.MappedLines != 2 {
		t.Fatalf("lines must still be returned: %+v", res)
	}
}

func TestProcess_NilRecord(t *testing.T) {
	t.Parallel()

	res := newProcessor(memstore.NewMemoryStore()).Process(context.Background(), nil, ProcessOptions{})
	if res.Success || res.SessionID == "" || res.Message == "" {
		t.Fatalf("res=%+v", res)
	}
}
