package api

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ductsync/internal/model"
	"ductsync/internal/service/bom"
)

// ProcessRequest BOM 处理请求
type ProcessRequest struct {
	Record     *model.ExecutionRecord `json:"record"`
	SessionID  string                 `json:"sessionId"`
	LPOID      string                 `json:"lpoId"`
	ProjectID  string                 `json:"projectId"`
	CustomerID string                 `json:"customerId"`
}

// ProcessBOM 对已解析的记录生成并映射 BOM
// POST /api/bom/process
func (h *Handler) ProcessBOM(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if req.Record == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "record is required"})
		return
	}

	res := h.deps.Processor.Process(c.Request.Context(), req.Record, bom.ProcessOptions{
		SessionID:  req.SessionID,
		LPOID:      req.LPOID,
		ProjectID:  req.ProjectID,
		CustomerID: req.CustomerID,
	})
	c.JSON(http.StatusOK, res)
}

// ExportRequest BOM 导出请求
type ExportRequest struct {
	Record *model.ExecutionRecord `json:"record"`
	Lines  []*model.BOMLine       `json:"bomLines"`
}

// ExportBOM 生成 BOM 工作簿，返回一次性下载令牌
// POST /api/bom/export
func (h *Handler) ExportBOM(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
		return
	}

	f, err := h.deps.Exporter.Export(req.Record, req.Lines)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	dir := h.deps.ExportDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prepare export dir"})
		return
	}
	path := filepath.Join(dir, "bom-"+uuid.NewString()+".xlsx")
	if err := f.SaveAs(path); err != nil {
		h.logger.Error("export save failed", zap.String("path", path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write export"})
		return
	}

	name := exportFilename(req.Record)
	token := h.downloads.put(path, name, exportTTL)
	c.JSON(http.StatusOK, gin.H{
		"token":       token,
		"filename":    name,
		"downloadUrl": "/api/export/download/" + token,
	})
}

// DownloadExport 下载导出文件（令牌一次有效）
// GET /api/export/download/:token
func (h *Handler) DownloadExport(c *gin.Context) {
	token := c.Param("token")
	item, ok := h.downloads.take(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "export not found or expired"})
		return
	}

	c.Header("Content-Disposition", buildExportContentDisposition(item.filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.File(item.filePath)
	_ = os.Remove(item.filePath)
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func exportFilename(rec *model.ExecutionRecord) string {
	if rec == nil || rec.Metadata.ProjectID == "" {
		return "bom.xlsx"
	}
	return fmt.Sprintf("bom-%s.xlsx", rec.Metadata.ProjectID)
}

// buildExportContentDisposition ASCII 回退名 + RFC 5987 原名
func buildExportContentDisposition(name string) string {
	fallback := unsafeFilename.ReplaceAllString(name, "_")
	return fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", fallback, url.PathEscape(name))
}
