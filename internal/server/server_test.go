package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ductsync/internal/api"
	"ductsync/internal/service/excel"
	"ductsync/internal/service/mapping"
	memstore "ductsync/internal/service/store"
)

func TestServer_Routes(t *testing.T) {
	svc := mapping.NewService(memstore.NewMemoryStore(), nil, mapping.Options{})
	h := api.NewHandler(api.Deps{Parser: excel.NewParser(excel.Options{}), Mapping: svc})
	srv := NewServer(h, false, nil)

	cases := []struct {
		method, path string
		code         int
		contains     string
	}{
		{http.MethodGet, "/healthz", http.StatusOK, `"ok"`},
		{http.MethodGet, "/api/status", http.StatusOK, `"uptimeSeconds"`},
		{http.MethodGet, "/metrics", http.StatusOK, "go_goroutines"},
		{http.MethodOptions, "/api/parse", http.StatusNoContent, ""},
		{http.MethodGet, "/nope", http.StatusNotFound, ""},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		if w.Code != tc.code {
			t.Errorf("%s %s: code=%d, want %d", tc.method, tc.path, w.Code, tc.code)
		}
		if tc.contains != "" && !strings.Contains(w.Body.String(), tc.contains) {
			t.Errorf("%s %s: body missing %q", tc.method, tc.path, tc.contains)
		}
	}
}
