package importer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ductsync/internal/logging"
	"ductsync/internal/model"
	"ductsync/internal/service/bom"
	"ductsync/internal/service/excel"
	"ductsync/internal/store"
)

// LogStore 导入日志与页签识别记录
type LogStore interface {
	CreateImportLog(ctx context.Context, filename string, fileSize int64, fileHash string) (int64, error)
	UpdateImportLog(ctx context.Context, id int64, sum store.ImportSummary) error
	InsertSheetMeta(ctx context.Context, importLogID int64, rec model.SheetRecognition) error
}

// Coordinator 导入协调器：解析 -> BOM 处理，过程以事件推送
type Coordinator struct {
	parser    *excel.Parser
	processor *bom.Processor
	logs      LogStore
	logger    *zap.Logger
}

// NewCoordinator 创建导入协调器；logs 为空时不记录导入日志
func NewCoordinator(p *excel.Parser, proc *bom.Processor, logs LogStore, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		parser:    p,
		processor: proc,
		logs:      logs,
		logger:    logging.OrNop(logger).Named("importer"),
	}
}

// ImportOptions 导入选项
type ImportOptions struct {
	FilePath string
	// Data 非空时直接使用，Filename 作为记录中的源文件名
	Data     []byte
	Filename string

	SessionID  string
	LPOID      string
	ProjectID  string
	CustomerID string
	// SkipBOM 只解析，不生成/映射 BOM
	SkipBOM bool
}

// 事件类型
const (
	EventStart  = "start"
	EventInfo   = "info"
	EventParsed = "parsed"
	EventBOM    = "bom"
	EventDone   = "done"
	EventError  = "error"
)

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// ImportReport 导入报告
type ImportReport struct {
	ImportLogID int64                    `json:"importLogId"`
	Filename    string                   `json:"filename"`
	SessionID   string                   `json:"sessionId"`
	Sheets      []model.SheetRecognition `json:"sheets"`
	Parse       model.ParseResult        `json:"parse"`
	BOM         *model.ProcessResult     `json:"bom,omitempty"`
	Duration    time.Duration            `json:"duration"`
}

// Import 执行导入，返回进度通道；通道在导入结束后关闭
func (c *Coordinator) Import(ctx context.Context, opts ImportOptions) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 16)

	go func() {
		defer close(progressChan)
		c.doImport(ctx, opts, progressChan)
	}()

	return progressChan
}

// Run 同步执行导入，丢弃中间事件
func (c *Coordinator) Run(ctx context.Context, opts ImportOptions) (*ImportReport, error) {
	var report *ImportReport
	var lastErr string
	for evt := range c.Import(ctx, opts) {
		switch evt.Type {
		case EventDone:
			report, _ = evt.Data.(*ImportReport)
		case EventError:
			lastErr = evt.Message
		}
	}
	if report == nil {
		return nil, fmt.Errorf("import failed: %s", lastErr)
	}
	return report, nil
}

func (c *Coordinator) doImport(ctx context.Context, opts ImportOptions, progressChan chan<- ProgressEvent) {
	startTime := time.Now()

	data, filename, err := readInput(opts)
	if err != nil {
		c.sendProgress(ctx, progressChan, EventError, err.Error(), nil)
		return
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	log := c.logger.With(zap.String("file", filename), zap.String("session_id", opts.SessionID))

	c.sendProgress(ctx, progressChan, EventStart, "import started", map[string]string{
		"filename":   filename,
		"session_id": opts.SessionID,
	})

	report := &ImportReport{Filename: filename, SessionID: opts.SessionID}

	if c.logs != nil {
		sum := sha256.Sum256(data)
		id, err := c.logs.CreateImportLog(ctx, filename, int64(len(data)), hex.EncodeToString(sum[:]))
		if err != nil {
			log.Warn("import log unavailable", zap.Error(err))
		}
		report.ImportLogID = id
	}

	grids, err := excel.LoadTabs(bytes.NewReader(data))
	if err != nil {
		report.Parse = model.ParseResult{Status: model.ParseError, Errors: []string{err.Error()}}
		c.finish(ctx, report, "", err.Error())
		c.sendProgress(ctx, progressChan, EventError, err.Error(), report)
		return
	}

	report.Sheets = c.parser.Recognize(grids)
	for _, rec := range report.Sheets {
		if c.logs != nil && report.ImportLogID > 0 {
			if err := c.logs.InsertSheetMeta(ctx, report.ImportLogID, rec); err != nil {
				log.Warn("sheet meta write failed", zap.String("sheet", rec.SheetName), zap.Error(err))
			}
		}
		c.sendProgress(ctx, progressChan, EventInfo,
			fmt.Sprintf("sheet %q recognized as %s (score %.2f)", rec.SheetName, rec.Type, rec.Score), rec)
	}

	report.Parse = c.parser.ParseTabs(ctx, grids, filename)
	c.sendProgress(ctx, progressChan, EventParsed,
		fmt.Sprintf("parsed with status %s", report.Parse.Status), report.Parse)

	if report.Parse.Status != model.ParseError && !opts.SkipBOM && c.processor != nil {
		res := c.processor.Process(ctx, report.Parse.Data, bom.ProcessOptions{
			SessionID:  opts.SessionID,
			LPOID:      opts.LPOID,
			ProjectID:  opts.ProjectID,
			CustomerID: opts.CustomerID,
		})
		report.BOM = &res
		c.sendProgress(ctx, progressChan, EventBOM,
			fmt.Sprintf("%d bom lines, %d mapped, %d for review", res.TotalLines, res.MappedLines, res.ExceptionLines), res)
	}

	report.Duration = time.Since(startTime)
	status, msg := "completed", ""
	if report.Parse.Status == model.ParseError {
		status, msg = "failed", firstOf(report.Parse.Errors)
	} else if report.BOM != nil && !report.BOM.Success {
		status, msg = "failed", report.BOM.Message
	}
	c.finish(ctx, report, status, msg)
	log.Info("import finished", zap.String("status", status), zap.Duration("duration", report.Duration))

	c.sendProgress(ctx, progressChan, EventDone, "import finished", report)
}

// finish 回写导入日志
func (c *Coordinator) finish(ctx context.Context, report *ImportReport, status, msg string) {
	if c.logs == nil || report.ImportLogID == 0 {
		return
	}
	if status == "" {
		status = "failed"
	}
	sum := store.ImportSummary{
		SessionID:    report.SessionID,
		ParseStatus:  string(report.Parse.Status),
		Warnings:     len(report.Parse.Warnings),
		Status:       status,
		ErrorMessage: msg,
	}
	if report.Parse.Data != nil {
		sum.ProjectID = report.Parse.Data.Metadata.ProjectID
	}
	if report.BOM != nil {
		sum.TotalLines = report.BOM.TotalLines
		sum.MappedLines = report.BOM.MappedLines
		sum.ExceptionLines = report.BOM.ExceptionLines
	}
	// 调用方取消时仍需落库
	if err := c.logs.UpdateImportLog(context.WithoutCancel(ctx), report.ImportLogID, sum); err != nil {
		c.logger.Warn("import log update failed", zap.Int64("import_log_id", report.ImportLogID), zap.Error(err))
	}
}

// sendProgress 推送事件；调用方放弃读取后不再阻塞
func (c *Coordinator) sendProgress(ctx context.Context, ch chan<- ProgressEvent, typ, msg string, data interface{}) {
	select {
	case ch <- ProgressEvent{Type: typ, Message: msg, Data: data, Timestamp: time.Now()}:
	case <-ctx.Done():
	}
}

func readInput(opts ImportOptions) ([]byte, string, error) {
	if opts.Data != nil {
		name := opts.Filename
		if name == "" {
			name = "upload.xlsx"
		}
		return opts.Data, name, nil
	}
	if opts.FilePath == "" {
		return nil, "", fmt.Errorf("no input file")
	}
	data, err := os.ReadFile(opts.FilePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", opts.FilePath, err)
	}
	name := opts.Filename
	if name == "" {
		name = filepath.Base(opts.FilePath)
	}
	return data, name, nil
}

func firstOf(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
