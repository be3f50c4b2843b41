package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ductsync/internal/service/mapping"
)

// LookupRequest 映射查询请求
type LookupRequest struct {
	Description  string `json:"description"`
	LPOID        string `json:"lpoId"`
	ProjectID    string `json:"projectId"`
	CustomerID   string `json:"customerId"`
	IngestLineID string `json:"ingestLineId"`
	TraceID      string `json:"traceId"`
}

// Lookup 单条物料描述映射
// POST /api/mapping/lookup
func (h *Handler) Lookup(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "description is required"})
		return
	}

	res := h.deps.Mapping.Lookup(c.Request.Context(), mapping.LookupRequest{
		Description:  req.Description,
		LPOID:        req.LPOID,
		ProjectID:    req.ProjectID,
		CustomerID:   req.CustomerID,
		IngestLineID: req.IngestLineID,
		TraceID:      req.TraceID,
	})
	c.JSON(http.StatusOK, res)
}

// Invalidate 强制下一次查询重新加载参照表
// POST /api/mapping/invalidate
func (h *Handler) Invalidate(c *gin.Context) {
	h.deps.Mapping.Invalidate()
	c.JSON(http.StatusOK, gin.H{"invalidated": true})
}
