package bom

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ductsync/internal/logging"
	"ductsync/internal/metrics"
	"ductsync/internal/model"
	"ductsync/internal/service/mapping"
	"ductsync/internal/store"
)

// Mapper 单行映射
type Mapper interface {
	Lookup(ctx context.Context, req mapping.LookupRequest) model.MappingResult
}

// ProcessorOptions 处理器选项
type ProcessorOptions struct {
	Generator GeneratorOptions
	Logger    *zap.Logger
	Now       func() time.Time
}

// ProcessOptions 单次处理参数
type ProcessOptions struct {
	SessionID  string
	LPOID      string
	ProjectID  string
	CustomerID string
}

// Processor 生成 -> 映射 -> 单位换算 -> 批量写入
type Processor struct {
	gen    *Generator
	mapper Mapper
	store  store.RowStore
	logger *zap.Logger
	now    func() time.Time
}

// NewProcessor 创建处理器
func NewProcessor(mapper Mapper, rs store.RowStore, opts ProcessorOptions) *Processor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Processor{
		gen:    NewGenerator(opts.Generator),
		mapper: mapper,
		store:  rs,
		logger: logging.OrNop(opts.Logger).Named("bom"),
		now:    opts.Now,
	}
}

// Process 处理一个文件的执行记录
// 单行失败降级为 REVIEW 不影响其余行；批量写入失败时 Success=false，但仍返回全部行
func (p *Processor) Process(ctx context.Context, rec *model.ExecutionRecord, opts ProcessOptions) model.ProcessResult {
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	res := model.ProcessResult{SessionID: opts.SessionID}
	if rec == nil {
		res.Message = "no execution record"
		return res
	}
	if opts.ProjectID == "" && rec.Metadata.ProjectID != model.UnknownProjectID {
		opts.ProjectID = rec.Metadata.ProjectID
	}

	log := p.logger.With(zap.String("session_id", opts.SessionID), zap.String("source_file", rec.Metadata.SourceFile))
	lines := p.gen.Generate(rec)

	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			line.Decision = model.DecisionReview
			line.Message = err.Error()
			continue
		}
		line.IngestLineID = IngestLineID(opts.SessionID, line.LineID)
		p.mapLine(ctx, line, opts, log)
	}

	for _, line := range lines {
		if line.Mapped() {
			res.MappedLines++
			metrics.BOMLines.WithLabelValues("mapped").Inc()
		} else {
			res.ExceptionLines++
			metrics.BOMLines.WithLabelValues("review").Inc()
		}
	}
	res.TotalLines = len(lines)
	res.Lines = lines

	if len(lines) == 0 {
		res.Success = true
		res.Message = "no material lines"
		return res
	}

	rows := make([]store.Row, 0, len(lines))
	now := p.now().UTC().Format(time.RFC3339)
	for _, line := range lines {
		rows = append(rows, lineRow(opts.SessionID, rec.Metadata.SourceFile, line, now))
	}
	if err := p.store.AddRows(ctx, store.TableBOMLines, rows); err != nil {
		log.Error("bom batch write failed", zap.Int("lines", len(rows)), zap.Error(err))
		res.Message = fmt.Sprintf("persist bom lines: %v", err)
		return res
	}

	res.Success = true
	log.Info("bom processed",
		zap.Int("total", res.TotalLines),
		zap.Int("mapped", res.MappedLines),
		zap.Int("exceptions", res.ExceptionLines))
	return res
}

// mapLine 映射并换算一行；panic 只影响本行
func (p *Processor) mapLine(ctx context.Context, line *model.BOMLine, opts ProcessOptions, log *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("line mapping panicked",
				zap.Int("line", line.LineNumber),
				zap.String("ingest_line_id", line.IngestLineID),
				zap.Any("panic", r))
			line.Decision = model.DecisionReview
			appendMessage(line, fmt.Sprintf("mapping failed: %v", r))
			line.ConvertedQuantity = line.Quantity
			line.ConvertedUnit = line.Unit
			line.ConversionFactor = 1
		}
	}()

	r := p.mapper.Lookup(ctx, mapping.LookupRequest{
		Description:  line.Description,
		LPOID:        opts.LPOID,
		ProjectID:    opts.ProjectID,
		CustomerID:   opts.CustomerID,
		IngestLineID: line.IngestLineID,
		TraceID:      opts.SessionID,
	})

	line.CanonicalCode = r.CanonicalCode
	line.ExternalCode = r.ExternalCode
	line.Decision = r.Decision
	line.HistoryID = r.HistoryID
	line.ExceptionID = r.ExceptionID
	appendMessage(line, r.Message)
	if line.Decision == "" || (!r.Success && line.Decision != model.DecisionReview) {
		line.Decision = model.DecisionReview
	}

	appendMessage(line, convert(line, r))
}

// appendMessage 保留生成阶段的说明
func appendMessage(line *model.BOMLine, msg string) {
	if msg == "" {
		return
	}
	if line.Message != "" {
		line.Message += "; "
	}
	line.Message += msg
}

// convert 换算到映射结果的单位：优先使用外部单位；系数取映射结果（>0），否则内置表，否则同单位
// 无法换算时保持原数量与单位并返回说明
func convert(line *model.BOMLine, r model.MappingResult) string {
	target := r.ExternalUnit
	if target == "" {
		target = r.Unit
	}
	if target == "" {
		target = line.Unit
	}

	var factor decimal.Decimal
	switch f, ok := BuiltinFactor(line.Unit, target); {
	case r.ConversionFactor > 0:
		factor = decimal.NewFromFloat(r.ConversionFactor)
	case ok:
		factor = f
	default:
		line.ConvertedQuantity = line.Quantity
		line.ConvertedUnit = line.Unit
		line.ConversionFactor = 1
		return fmt.Sprintf("no conversion from %s to %s", line.Unit, target)
	}

	unit := CanonicalUnit(target)
	line.ConvertedUnit = unit
	line.ConversionFactor = factor.InexactFloat64()
	line.ConvertedQuantity = decimal.NewFromFloat(line.Quantity).Mul(factor).Round(precision(unit)).InexactFloat64()
	return ""
}

// sessionNamespace 会话 id 为 UUID 时直接作命名空间，否则派生一个
func sessionNamespace(sessionID string) uuid.UUID {
	if ns, err := uuid.Parse(sessionID); err == nil {
		return ns
	}
	return uuid.NewSHA1(lineNamespace, []byte(sessionID))
}

// IngestLineID 会话内的行幂等键；同一会话重试时保持不变
func IngestLineID(sessionID, lineID string) string {
	return uuid.NewSHA1(sessionNamespace(sessionID), []byte(lineID)).String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func lineRow(sessionID, sourceFile string, l *model.BOMLine, now string) store.Row {
	return store.Row{
		store.ColLineID:            l.LineID,
		store.ColSessionID:         sessionID,
		store.ColIngestLineID:      l.IngestLineID,
		store.ColLineNumber:        strconv.Itoa(l.LineNumber),
		store.ColMaterialType:      string(l.MaterialType),
		store.ColDescription:       l.Description,
		store.ColQuantity:          formatFloat(l.Quantity),
		store.ColUnit:              l.Unit,
		store.ColCanonicalCode:     l.CanonicalCode,
		store.ColExternalCode:      l.ExternalCode,
		store.ColDecision:          string(l.Decision),
		store.ColHistoryID:         l.HistoryID,
		store.ColExceptionID:       l.ExceptionID,
		store.ColConvertedQuantity: formatFloat(l.ConvertedQuantity),
		store.ColConvertedUnit:     l.ConvertedUnit,
		store.ColConversionFactor:  formatFloat(l.ConversionFactor),
		store.ColSourceFile:        sourceFile,
		store.ColReason:            l.Message,
		store.ColCreatedAt:         now,
	}
}
