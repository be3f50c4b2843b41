package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ductsync/internal/importer"
	"ductsync/internal/logging"
	"ductsync/internal/service/bom"
	"ductsync/internal/service/excel"
	"ductsync/internal/service/mapping"
	"ductsync/internal/store"
)

// ImportLogLister 导入日志查询
type ImportLogLister interface {
	ListImportLogs(ctx context.Context, limit int) ([]store.ImportLog, error)
}

// Deps 处理器依赖
type Deps struct {
	Parser      *excel.Parser
	Mapping     *mapping.Service
	Processor   *bom.Processor
	Coordinator *importer.Coordinator
	Exporter    *excel.Exporter
	Logs        ImportLogLister
	// ExportDir 导出文件目录
	ExportDir string
	Logger    *zap.Logger
}

// Handler API 处理器：只做请求解码与结果编码
type Handler struct {
	deps      Deps
	logger    *zap.Logger
	downloads *exportDownloadStore
	started   time.Time
}

// NewHandler 创建 API 处理器
func NewHandler(deps Deps) *Handler {
	if deps.Exporter == nil {
		deps.Exporter = excel.NewExporter()
	}
	return &Handler{
		deps:      deps,
		logger:    logging.OrNop(deps.Logger).Named("api"),
		downloads: newExportDownloadStore(nil),
		started:   time.Now(),
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 解析与导入
	router.POST("/parse", h.Parse)
	router.POST("/import", h.Import)

	// BOM
	router.POST("/bom/process", h.ProcessBOM)
	router.POST("/bom/export", h.ExportBOM)
	router.GET("/export/download/:token", h.DownloadExport)

	// 物料映射
	router.POST("/mapping/lookup", h.Lookup)
	router.POST("/mapping/invalidate", h.Invalidate)
}
