package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ductsync/internal/importer"
)

// maxUploadBytes 单个上传文件上限
const maxUploadBytes = 32 << 20

// readUpload 读取表单中的 file 字段
func readUpload(c *gin.Context) ([]byte, string, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("missing upload field \"file\"")
	}
	if fh.Size > maxUploadBytes {
		return nil, "", fmt.Errorf("file too large: %d bytes", fh.Size)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	return data, fh.Filename, nil
}

// Parse 解析上传的导出文件
// POST /api/parse
func (h *Handler) Parse(c *gin.Context) {
	data, name, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res := h.deps.Parser.Parse(c.Request.Context(), data, name)
	c.JSON(http.StatusOK, res)
}

// Import 解析并处理 BOM (SSE 流式响应)
// POST /api/import
func (h *Handler) Import(c *gin.Context) {
	data, name, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	progressChan := h.deps.Coordinator.Import(c.Request.Context(), importer.ImportOptions{
		Data:       data,
		Filename:   name,
		SessionID:  c.PostForm("sessionId"),
		LPOID:      c.PostForm("lpoId"),
		ProjectID:  c.PostForm("projectId"),
		CustomerID: c.PostForm("customerId"),
		SkipBOM:    c.DefaultPostForm("skipBom", "false") == "true",
	})

	for event := range progressChan {
		eventData, err := json.Marshal(event)
		if err != nil {
			h.logger.Warn("event encode failed", zap.String("type", event.Type), zap.Error(err))
			continue
		}
		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
}
