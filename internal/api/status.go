package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ductsync/internal/service/mapping"
	"ductsync/internal/store"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	UptimeSeconds int64                `json:"uptimeSeconds"`
	Mapping       *mapping.CacheStatus `json:"mapping,omitempty"`
	LastImport    *store.ImportLog     `json:"lastImport,omitempty"`
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	resp := StatusResponse{UptimeSeconds: int64(time.Since(h.started).Seconds())}

	if h.deps.Mapping != nil {
		st := h.deps.Mapping.Status()
		resp.Mapping = &st
	}
	if h.deps.Logs != nil {
		logs, err := h.deps.Logs.ListImportLogs(c.Request.Context(), 1)
		if err != nil {
			h.logger.Warn("list import logs failed", zap.Error(err))
		} else if len(logs) > 0 {
			resp.LastImport = &logs[0]
		}
	}
	c.JSON(http.StatusOK, resp)
}
