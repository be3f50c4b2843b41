package excel

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"ductsync/internal/logging"
	"ductsync/internal/metrics"
	"ductsync/internal/model"
	"ductsync/internal/parser"
)

// Options 解析器选项
type Options struct {
	Extract            parser.ExtractOptions
	ConsumableSections []parser.ConsumableSection
	TabProfiles        []parser.TabProfile
	Logger             *zap.Logger
	// Now 测试注入时钟
	Now func() time.Time
}

// Parser 切割导出文件解析器：加载工作簿、识别页签、按固定顺序驱动各页抽取器
type Parser struct {
	opts       Options
	logger     *zap.Logger
	recognizer *parser.SheetRecognizer
}

// NewParser 创建解析器
func NewParser(opts Options) *Parser {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Parser{
		opts:       opts,
		logger:     logging.OrNop(opts.Logger),
		recognizer: parser.NewSheetRecognizer(opts.TabProfiles, opts.Extract.Finder.HeaderScanRows),
	}
}

// LoadTabs 读取工作簿所有页签为只读 Grid
func LoadTabs(r io.Reader) ([]*parser.Grid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel: %w", err)
	}
	defer f.Close()
	return WorkbookTabs(f)
}

// WorkbookTabs 将已打开的工作簿转换为 Grid
func WorkbookTabs(f *excelize.File) ([]*parser.Grid, error) {
	sheets := f.GetSheetList()
	grids := make([]*parser.Grid, 0, len(sheets))
	for _, name := range sheets {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		grids = append(grids, parser.GridFromStrings(name, rows))
	}
	return grids, nil
}

// Parse 解析一个导出文件；不返回错误，加载失败时 Status=ERROR 且 Data 为空
func (p *Parser) Parse(ctx context.Context, data []byte, filename string) (result model.ParseResult) {
	defer p.observe(filename, time.Now(), &result)

	if err := ctx.Err(); err != nil {
		return model.ParseResult{Status: model.ParseError, Errors: []string{err.Error()}}
	}

	grids, err := LoadTabs(bytes.NewReader(data))
	if err != nil {
		p.logger.Warn("workbook load failed", zap.String("file", filename), zap.Error(err))
		return model.ParseResult{Status: model.ParseError, Errors: []string{err.Error()}}
	}
	return p.parseTabs(ctx, grids, filename)
}

// ParseTabs 对已加载的页签执行抽取，与 Parse 共用 panic 兜底和指标
func (p *Parser) ParseTabs(ctx context.Context, grids []*parser.Grid, filename string) (result model.ParseResult) {
	defer p.observe(filename, time.Now(), &result)
	return p.parseTabs(ctx, grids, filename)
}

// observe 必须直接 defer 调用
func (p *Parser) observe(filename string, start time.Time, result *model.ParseResult) {
	if r := recover(); r != nil {
		p.logger.Error("parse panicked", zap.String("file", filename), zap.Any("panic", r))
		*result = model.ParseResult{
			Status: model.ParseError,
			Errors: []string{fmt.Sprintf("parse failed: %v", r)},
		}
	}
	elapsed := time.Since(start)
	result.ProcessingTimeMS = elapsed.Milliseconds()
	metrics.ParseTotal.WithLabelValues(string(result.Status)).Inc()
	metrics.ParseDuration.Observe(elapsed.Seconds())
}

// Recognize 返回每个页签的识别结果（用于导入追溯）
func (p *Parser) Recognize(grids []*parser.Grid) []model.SheetRecognition {
	_, recs := p.recognizer.Resolve(grids)
	return recs
}

func (p *Parser) parseTabs(ctx context.Context, grids []*parser.Grid, filename string) model.ParseResult {
	log := p.logger.With(zap.String("file", filename))
	tabs, recs := p.recognizer.Resolve(grids)
	for _, rec := range recs {
		log.Debug("tab recognized",
			zap.String("sheet", rec.SheetName),
			zap.String("type", string(rec.Type)),
			zap.Float64("score", rec.Score))
	}

	record := &model.ExecutionRecord{
		Metadata: model.RecordMetadata{
			ProjectID:   model.UnknownProjectID,
			SourceFile:  filename,
			ExtractedAt: p.opts.Now().UTC(),
		},
	}
	var warnings, errs []string

	for _, st := range model.SheetOrder {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err.Error())
			break
		}
		title := model.SheetTitle(st)
		g, ok := tabs[st]
		if !ok {
			msg := "missing tab: " + title
			if st == model.SheetTypeProject {
				errs = append(errs, msg, parser.ErrNoProjectIdentity)
			} else {
				warnings = append(warnings, msg)
			}
			continue
		}

		w, e := p.extractTab(st, g, record)
		if len(w) > 0 {
			metrics.ExtractWarnings.WithLabelValues(title).Add(float64(len(w)))
		}
		warnings = append(warnings, w...)
		errs = append(errs, e...)
	}

	switch {
	case len(errs) > 0:
		record.Metadata.Status = model.ValidationError
	case len(warnings) > 0:
		record.Metadata.Status = model.ValidationWarning
	default:
		record.Metadata.Status = model.ValidationOK
	}
	record.Metadata.Messages = append(append([]string{}, errs...), warnings...)
	for _, st := range model.SheetOrder {
		if g, ok := tabs[st]; ok && !strings.EqualFold(strings.TrimSpace(g.Name()), model.SheetTitle(st)) {
			record.Metadata.Messages = append(record.Metadata.Messages,
				fmt.Sprintf("tab %s read from %q", model.SheetTitle(st), g.Name()))
		}
	}

	res := model.ParseResult{
		Status:   model.ParseStatusFor(record.Metadata.Status),
		Data:     record,
		Warnings: warnings,
		Errors:   errs,
	}
	log.Info("workbook parsed",
		zap.String("status", string(res.Status)),
		zap.String("project", record.Metadata.ProjectID),
		zap.Int("warnings", len(warnings)),
		zap.Int("errors", len(errs)))
	return res
}

// extractTab 运行单个页签的抽取器；抽取器 panic 只让该页签回落到默认值
func (p *Parser) extractTab(st model.SheetType, g *parser.Grid, record *model.ExecutionRecord) (warnings, errs []string) {
	title := model.SheetTitle(st)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("extractor panicked", zap.String("tab", title), zap.Any("panic", r))
			warnings = append(warnings, fmt.Sprintf("%s: extractor failed: %v", title, r))
			if st == model.SheetTypeProject {
				record.Metadata.ProjectID = model.UnknownProjectID
				errs = append(errs, parser.ErrNoProjectIdentity)
			}
		}
	}()

	f := parser.NewAnchorFinderWithOptions(g, p.opts.Extract.Finder)
	switch st {
	case model.SheetTypeProject:
		r := parser.NewProjectExtractor(f).Extract()
		record.Metadata.ProjectID = r.Data.ProjectID
		record.Metadata.JobReference = r.Data.JobReference
		record.Billing = r.Data.Billing
		record.Telemetry = r.Data.Telemetry
		return r.Warnings, r.Errors
	case model.SheetTypePanel:
		r := parser.NewPanelExtractor(f).Extract()
		record.Panel = r.Data
		return r.Warnings, r.Errors
	case model.SheetTypeProfiles:
		r := parser.NewProfileExtractor(f, p.opts.Extract).Extract()
		record.Profiles = r.Data
		return r.Warnings, r.Errors
	case model.SheetTypeAccessories:
		r := parser.NewAccessoryExtractor(f).Extract()
		record.Accessories = r.Data
		return r.Warnings, r.Errors
	case model.SheetTypeConsumables:
		r := parser.NewConsumableExtractor(f, p.opts.ConsumableSections).Extract()
		record.Consumables = r.Data
		return r.Warnings, r.Errors
	case model.SheetTypeFinishedGoods:
		r := parser.NewFinishedGoodsExtractor(f, p.opts.Extract).Extract()
		record.FinishedGoods = r.Data
		return r.Warnings, r.Errors
	}
	return nil, nil
}
