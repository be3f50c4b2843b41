package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// 解析
	ParseTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ductsync_parse_total",
			Help: "Workbooks parsed, by resulting status",
		},
		[]string{"status"},
	)

	ParseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ductsync_parse_duration_seconds",
			Help:    "Time taken to parse one workbook",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	ExtractWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ductsync_extract_warnings_total",
			Help: "Non-fatal extraction warnings, by tab",
		},
		[]string{"tab"},
	)

	// 映射
	MappingDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ductsync_mapping_decisions_total",
			Help: "Mapping lookups, by decision",
		},
		[]string{"decision", "replayed"},
	)

	CacheRefresh = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ductsync_cache_refresh_total",
			Help: "Mapping cache reloads, by table and result",
		},
		[]string{"table", "result"},
	)

	// BOM
	BOMLines = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ductsync_bom_lines_total",
			Help: "BOM lines processed, by outcome",
		},
		[]string{"outcome"},
	)
)

// Handler /metrics 处理器
func Handler() http.Handler {
	return promhttp.Handler()
}
