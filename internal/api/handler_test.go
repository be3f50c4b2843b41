package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"ductsync/internal/importer"
	"ductsync/internal/model"
	"ductsync/internal/service/bom"
	"ductsync/internal/service/excel"
	"ductsync/internal/service/mapping"
	memstore "ductsync/internal/service/store"
	"ductsync/internal/store"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestRouter(t *testing.T) (*gin.Engine, *memstore.MemoryStore) {
	t.Helper()

	s := memstore.NewMemoryStore()
	s.Seed(store.TableMaterialReference,
		store.Row{store.ColDescription: "glue", store.ColCanonicalCode: "CON-GLUE", store.ColUnit: "kg"},
		store.Row{store.ColDescription: "PIR ALU 20mm", store.ColCanonicalCode: "PNL-PIR-20", store.ColUnit: "m2"},
		store.Row{store.ColDescription: "u-profile", store.ColCanonicalCode: "PRF-U", store.ColUnit: "m"},
	)
	svc := mapping.NewService(s, nil, mapping.Options{})
	proc := bom.NewProcessor(svc, s, bom.ProcessorOptions{})
	p := excel.NewParser(excel.Options{})

	h := NewHandler(Deps{
		Parser:      p,
		Mapping:     svc,
		Processor:   proc,
		Coordinator: importer.NewCoordinator(p, proc, nil, nil),
		ExportDir:   t.TempDir(),
	})
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return r, s
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doUpload(t *testing.T, r http.Handler, path, filename string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if data != nil {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		fw.Write(data)
	}
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func exportWorkbook(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	tabs := []struct {
		name string
		rows [][]interface{}
	}{
		{"Project", [][]interface{}{{"Project ID", "P-7"}, {"Internal Area", 10}, {"External Area", 11}}},
		{"Panel", [][]interface{}{
			{"Material", "PIR ALU 20mm"}, {"Thickness", 20}, {"Sheet Length", 4000}, {"Sheet Width", 1200},
			{"Sheets Used", 3}, {"Gross Area", 14.4}, {"Reusable Remnant", 2.4}, {"Waste Area", 1}, {"Waste %", "5%"},
		}},
	}
	for _, tab := range tabs {
		if _, err := f.NewSheet(tab.name); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
		for i, row := range tab.rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			if err := f.SetSheetRow(tab.name, cell, &row); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		t.Fatalf("delete sheet: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	return buf.Bytes()
}

func TestLookup(t *testing.T) {
	t.Parallel()

	r, s := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/mapping/lookup", LookupRequest{Description: "Glue", IngestLineID: "l-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	var res model.MappingResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Decision != model.DecisionAuto || res.CanonicalCode != "CON-GLUE" || res.HistoryID == "" {
		t.Fatalf("res=%+v", res)
	}
	if s.Count(store.TableMappingHistory) != 1 {
		t.Fatalf("history rows=%d", s.Count(store.TableMappingHistory))
	}

	w = doJSON(t, r, http.MethodPost, "/api/mapping/lookup", LookupRequest{Description: "  "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code=%d", w.Code)
	}
}

func TestInvalidate(t *testing.T) {
	t.Parallel()

	r, s := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/api/mapping/lookup", LookupRequest{Description: "glue"})

	w := doJSON(t, r, http.MethodPost, "/api/mapping/invalidate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code=%d", w.Code)
	}
	doJSON(t, r, http.MethodPost, "/api/mapping/lookup", LookupRequest{Description: "glue"})
	if n := s.GetCalls(store.TableMaterialReference); n != 2 {
		t.Fatalf("reference reads=%d, want 2", n)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	w := doUpload(t, r, "/api/parse", "job-7.xlsx", exportWorkbook(t), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	var res model.ParseResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Status != model.ParsePartial || res.Data == nil || res.Data.Metadata.ProjectID != "P-7" || res.Data.Metadata.SourceFile != "job-7.xlsx" {
		t.Fatalf("res=%+v", res)
	}

	w = doUpload(t, r, "/api/parse", "broken.xlsx", []byte("nope"), nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ERROR"`) {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}

	w = doUpload(t, r, "/api/parse", "", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing file code=%d", w.Code)
	}
}

func TestImportStreamsEvents(t *testing.T) {
	t.Parallel()

	r, s := newTestRouter(t)

	w := doUpload(t, r, "/api/import", "job-7.xlsx", exportWorkbook(t), map[string]string{"sessionId": "sess-9"})
	if w.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type=%s", ct)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "data: ") || !strings.Contains(body, `"type":"done"`) {
		t.Fatalf("body=%s", body)
	}
	// 只有板材一行
	if s.Count(store.TableBOMLines) != 1 {
		t.Fatalf("bom rows=%d", s.Count(store.TableBOMLines))
	}
}

func sampleRecord() *model.ExecutionRecord {
	return &model.ExecutionRecord{
		Metadata: model.RecordMetadata{ProjectID: "P-7", SourceFile: "job-7.xlsx"},
		Panel:    model.RawMaterialPanel{Spec: "PIR ALU 20mm", Inventory: model.InventoryImpact{GrossAreaM2: 45}},
		Profiles: []model.ProfileConsumption{{ProfileType: "U-profile", ConsumptionM: 120}},
	}
}

func TestProcessBOM(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/bom/process", ProcessRequest{Record: sampleRecord(), SessionID: "sess-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	var res model.ProcessResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Success || res.TotalLines != 2 || res.MappedLines != 2 || len(res.Lines) != 2 {
		t.Fatalf("res=%+v", res)
	}

	w = doJSON(t, r, http.MethodPost, "/api/bom/process", ProcessRequest{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing record code=%d", w.Code)
	}
}

func TestExportAndDownload(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	lines := bom.NewGenerator(bom.GeneratorOptions{}).Generate(sampleRecord())

	w := doJSON(t, r, http.MethodPost, "/api/bom/export", ExportRequest{Record: sampleRecord(), Lines: lines})
	if w.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Token       string `json:"token"`
		Filename    string `json:"filename"`
		DownloadURL string `json:"downloadUrl"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Token == "" || out.Filename != "bom-P-7.xlsx" {
		t.Fatalf("out=%+v", out)
	}

	req := httptest.NewRequest(http.MethodGet, out.DownloadURL, nil)
	dl := httptest.NewRecorder()
	r.ServeHTTP(dl, req)
	if dl.Code != http.StatusOK {
		t.Fatalf("download code=%d", dl.Code)
	}
	if !strings.Contains(dl.Header().Get("Content-Disposition"), `filename="bom-P-7.xlsx"`) {
		t.Fatalf("disposition=%s", dl.Header().Get("Content-Disposition"))
	}
	f, err := excelize.OpenReader(bytes.NewReader(dl.Body.Bytes()))
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("BOM")
	if err != nil || len(rows) != 3 {
		t.Fatalf("bom rows=%d err=%v", len(rows), err)
	}

	// 令牌只能使用一次
	again := httptest.NewRecorder()
	r.ServeHTTP(again, httptest.NewRequest(http.MethodGet, out.DownloadURL, nil))
	if again.Code != http.StatusNotFound {
		t.Fatalf("second download code=%d", again.Code)
	}
}

func TestExportBOM_NullLineIgnored(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	body := map[string]any{
		"bomLines": []any{nil, map[string]any{"lineNumber": 1, "description": "corner", "quantity": 4, "unit": "pcs"}},
	}
	w := doJSON(t, r, http.MethodPost, "/api/bom/export", body)
	if w.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
}

func TestGetStatus(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/api/mapping/lookup", LookupRequest{Description: "glue", IngestLineID: "l-1"})

	w := doJSON(t, r, http.MethodGet, "/api/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code=%d", w.Code)
	}
	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Mapping == nil || resp.Mapping.Decisions != 1 || resp.Mapping.ReferenceLoadedAt.IsZero() {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestBuildExportContentDisposition(t *testing.T) {
	t.Parallel()

	got := buildExportContentDisposition("bom-项目 7.xlsx")
	want := "attachment; filename=\"bom-_7.xlsx\"; filename*=UTF-8''bom-%E9%A1%B9%E7%9B%AE%207.xlsx"
	if got != want {
		t.Fatalf("content-disposition mismatch:\n got: %s\nwant: %s", got, want)
	}
}

func TestExportDownloadStore_ExpiredFilesRemoved(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s := newExportDownloadStore(func() time.Time { return now })

	path := filepath.Join(t.TempDir(), "old.xlsx")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	token := s.put(path, "old.xlsx", time.Minute)

	now = now.Add(2 * time.Minute)
	if _, ok := s.take(token); ok {
		t.Fatal("expired token should not be served")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expired export file still present: %v", err)
	}
}
