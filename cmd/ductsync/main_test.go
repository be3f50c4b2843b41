package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"ductsync/internal/model"
)

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, base string) string {
	t.Helper()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(
		"[data]\ndata_dir = %q\ndb_file = %q\n\n[log]\nlevel = \"error\"\noutput = %q\n",
		"data",
		filepath.Join(base, "data", "cli.db"),
		filepath.Join(base, "cli.log"),
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func writeWorkbook(t *testing.T, path string, sheets map[string][][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for name, rows := range sheets {
		if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("NewSheet %s: %v", name, err)
		}
		for i, row := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			r := row
			if err := f.SetSheetRow(name, cell, &r); err != nil {
				t.Fatalf("SetSheetRow: %v", err)
			}
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		t.Fatalf("DeleteSheet: %v", err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
}

func TestCLISeedAndLookup(t *testing.T) {
	base := t.TempDir()
	configPath := writeTestConfig(t, base)

	tables := filepath.Join(base, "tables.xlsx")
	writeWorkbook(t, tables, map[string][][]interface{}{
		"MATERIAL_REFERENCE": {
			{"description", "canonical_code", "external_code", "unit"},
			{"PIR Panel 20mm", "PNL-PIR-20", "ERP-1001", "m2"},
			{"Glue", "CON-GLUE", "ERP-2001", "kg"},
		},
		"Notes": {
			{"ignored"},
			{"x"},
		},
	})

	out, _, err := runCLI(t, []string{"seed", tables}, configPath)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !strings.Contains(out, "MATERIAL_REFERENCE") || strings.Contains(out, "Notes") {
		t.Fatalf("seed output = %q", out)
	}

	out, _, err = runCLI(t, []string{"lookup", "PIR Panel 20mm"}, configPath)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	var res model.MappingResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode lookup output %q: %v", out, err)
	}
	if !res.Success || res.Decision != model.DecisionAuto || res.CanonicalCode != "PNL-PIR-20" {
		t.Fatalf("lookup result = %+v", res)
	}

	out, _, err = runCLI(t, []string{"lookup", "Mystery", "Sealant"}, configPath)
	if err != nil {
		t.Fatalf("lookup unknown: %v", err)
	}
	res = model.MappingResult{}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Success || res.Decision != model.DecisionReview || res.ExceptionID == "" {
		t.Fatalf("unknown lookup = %+v", res)
	}
}

func TestCLISeedRejectsUnknownTabs(t *testing.T) {
	base := t.TempDir()
	configPath := writeTestConfig(t, base)

	path := filepath.Join(base, "other.xlsx")
	writeWorkbook(t, path, map[string][][]interface{}{
		"Prices": {{"a"}, {"b"}},
	})
	if _, _, err := runCLI(t, []string{"seed", path}, configPath); err == nil || !strings.Contains(err.Error(), "no known tables") {
		t.Fatalf("seed err = %v", err)
	}
}

func TestCLIParseMissingFile(t *testing.T) {
	base := t.TempDir()
	configPath := writeTestConfig(t, base)

	_, _, err := runCLI(t, []string{"parse", filepath.Join(base, "nope.xlsx")}, configPath)
	if err == nil || !strings.Contains(err.Error(), "nope.xlsx") {
		t.Fatalf("parse err = %v", err)
	}
}

func TestCLIRootRequiresValidConfig(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte("[server\nport = "), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := runCLI(t, []string{"parse", "x.xlsx"}, path); err == nil {
		t.Fatal("expected config error")
	}
}

func TestRenderTable(t *testing.T) {
	t.Parallel()
	out := renderTable([]string{"Table", "Rows"}, [][]string{{"MATERIAL_REFERENCE", "2"}, {"short"}}, []columnAlignment{alignLeft, alignRight})
	for _, want := range []string{"Table", "MATERIAL_REFERENCE", "short", "╭"} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("empty headers should render nothing")
	}
}
