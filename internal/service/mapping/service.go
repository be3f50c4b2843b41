package mapping

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"ductsync/internal/logging"
	"ductsync/internal/metrics"
	"ductsync/internal/model"
	"ductsync/internal/store"
)

// DefaultTTL 参照表与覆盖规则快照的默认有效期
const DefaultTTL = 5 * time.Minute

// Options 映射服务选项
type Options struct {
	TTL    time.Duration
	Clock  func() time.Time
	Logger *zap.Logger
}

// LookupRequest 单行映射请求；作用域 id 均可为空
type LookupRequest struct {
	Description  string
	LPOID        string
	ProjectID    string
	CustomerID   string
	IngestLineID string
	TraceID      string
}

func (r LookupRequest) scopeValue(s model.ScopeType) string {
	switch s {
	case model.ScopeLPO:
		return r.LPOID
	case model.ScopeProject:
		return r.ProjectID
	case model.ScopeCustomer:
		return r.CustomerID
	}
	return ""
}

func (r LookupRequest) hasScope() bool {
	return r.LPOID != "" || r.ProjectID != "" || r.CustomerID != ""
}

// Service 物料映射服务
// 进程内唯一的共享可变状态：两份表快照和按 ingest line id 的决策索引
type Service struct {
	store  store.RowStore
	clock  func() time.Time
	logger *zap.Logger

	refs      *tableCache[*referenceTable]
	overrides *tableCache[overrideTable]

	indexMu sync.RWMutex
	seeded  bool
	index   map[string]model.MappingResult
	seedMu  sync.Mutex

	group singleflight.Group
}

// NewService 创建映射服务；manifest 为空时直接使用逻辑表/列名
func NewService(rs store.RowStore, manifest *store.Manifest, opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	logger := logging.OrNop(opts.Logger).Named("mapping")
	if manifest != nil {
		rs = store.NewMapped(rs, manifest)
	}

	s := &Service{
		store:  rs,
		clock:  opts.Clock,
		logger: logger,
		index:  make(map[string]model.MappingResult),
	}
	s.refs = newTableCache(store.TableMaterialReference, opts.TTL, opts.Clock, logger,
		func(ctx context.Context) (*referenceTable, error) {
			rows, err := rs.GetAllRows(ctx, store.TableMaterialReference)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", store.TableMaterialReference, err)
			}
			return buildReferenceTable(rows), nil
		})
	s.overrides = newTableCache(store.TableMappingOverrides, opts.TTL, opts.Clock, logger,
		func(ctx context.Context) (overrideTable, error) {
			rows, err := rs.GetAllRows(ctx, store.TableMappingOverrides)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", store.TableMappingOverrides, err)
			}
			return buildOverrideTable(rows), nil
		})
	return s
}

// Lookup 解析一条物料描述；不返回错误，基础设施故障体现为 Success=false 的 REVIEW 结果
// 同一 IngestLineID 的重复调用返回首次决策，历史表只写一次
func (s *Service) Lookup(ctx context.Context, req LookupRequest) (res model.MappingResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("lookup panicked",
				zap.String("trace_id", req.TraceID),
				zap.String("ingest_line_id", req.IngestLineID),
				zap.Any("panic", r))
			res = failure(fmt.Errorf("lookup failed: %v", r))
		}
		metrics.MappingDecisions.WithLabelValues(string(res.Decision), strconv.FormatBool(res.Replayed)).Inc()
	}()

	if req.IngestLineID == "" {
		return s.resolveAndRecord(ctx, req)
	}

	if err := s.ensureIndex(ctx); err != nil {
		s.logger.Warn("decision index unavailable", zap.String("ingest_line_id", req.IngestLineID), zap.Error(err))
		return failure(err)
	}
	if r, ok := s.decision(req.IngestLineID); ok {
		return r
	}

	v, _, _ := s.group.Do(req.IngestLineID, func() (any, error) {
		if r, ok := s.decision(req.IngestLineID); ok {
			return r, nil
		}
		r := s.resolveAndRecord(ctx, req)
		if r.HistoryID != "" {
			s.indexMu.Lock()
			s.index[req.IngestLineID] = r
			s.indexMu.Unlock()
		}
		return r, nil
	})
	return v.(model.MappingResult)
}

// Invalidate 强制下一次查询重新加载参照表与覆盖规则
func (s *Service) Invalidate() {
	s.refs.invalidate()
	s.overrides.invalidate()
	s.logger.Info("mapping caches invalidated")
}

// CacheStatus 缓存状态
type CacheStatus struct {
	ReferenceLoadedAt time.Time `json:"referenceLoadedAt"`
	OverrideLoadedAt  time.Time `json:"overrideLoadedAt"`
	Decisions         int       `json:"decisions"`
}

// Status 当前缓存状态
func (s *Service) Status() CacheStatus {
	s.indexMu.RLock()
	n := len(s.index)
	s.indexMu.RUnlock()
	return CacheStatus{
		ReferenceLoadedAt: s.refs.loadedAt(),
		OverrideLoadedAt:  s.overrides.loadedAt(),
		Decisions:         n,
	}
}

func (s *Service) decision(id string) (model.MappingResult, bool) {
	s.indexMu.RLock()
	r, ok := s.index[id]
	s.indexMu.RUnlock()
	if ok {
		r.Replayed = true
	}
	return r, ok
}

// ensureIndex 首次使用时从历史表构建决策索引，失败时下次重试
func (s *Service) ensureIndex(ctx context.Context) error {
	s.indexMu.RLock()
	done := s.seeded
	s.indexMu.RUnlock()
	if done {
		return nil
	}

	s.seedMu.Lock()
	defer s.seedMu.Unlock()
	s.indexMu.RLock()
	done = s.seeded
	s.indexMu.RUnlock()
	if done {
		return nil
	}

	rows, err := s.store.GetAllRows(ctx, store.TableMappingHistory)
	if err != nil {
		return fmt.Errorf("load %s: %w", store.TableMappingHistory, err)
	}

	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	for _, r := range rows {
		id := r[store.ColIngestLineID]
		if id == "" {
			continue
		}
		if _, dup := s.index[id]; dup {
			continue
		}
		s.index[id] = resultFromHistory(r)
	}
	s.seeded = true
	s.logger.Info("decision index seeded", zap.Int("decisions", len(s.index)))
	return nil
}

// resolveAndRecord 覆盖规则 -> 参照表 -> REVIEW，并写入历史（REVIEW 先写异常）
func (s *Service) resolveAndRecord(ctx context.Context, req LookupRequest) model.MappingResult {
	log := s.logger.With(zap.String("trace_id", req.TraceID), zap.String("ingest_line_id", req.IngestLineID))
	key := Normalize(req.Description)

	res, err := s.resolve(ctx, req, key)
	if err != nil {
		log.Warn("mapping resolution failed", zap.Error(err))
		return failure(err)
	}

	now := s.clock().UTC()
	if res.Decision == model.DecisionReview {
		res.ExceptionID = exceptionID(req.IngestLineID)
		exists, err := s.exceptionExists(ctx, req.IngestLineID, res.ExceptionID)
		if err != nil {
			log.Warn("exception read failed", zap.Error(err))
			return failure(fmt.Errorf("read %s: %w", store.TableMappingExceptions, err))
		}
		exc := store.Row{
			store.ColExceptionID:           res.ExceptionID,
			store.ColIngestLineID:          req.IngestLineID,
			store.ColTraceID:               req.TraceID,
			store.ColDescription:           req.Description,
			store.ColNormalizedDescription: key,
			store.ColReason:                res.Message,
			store.ColStatus:                "OPEN",
			store.ColLPOID:                 req.LPOID,
			store.ColProjectID:             req.ProjectID,
			store.ColCustomerID:            req.CustomerID,
			store.ColCreatedAt:             now.Format(time.RFC3339),
		}
		if !exists {
			if err := s.store.AddRow(ctx, store.TableMappingExceptions, exc); err != nil {
				log.Warn("exception write failed", zap.Error(err))
				return failure(fmt.Errorf("write %s: %w", store.TableMappingExceptions, err))
			}
		}
		log.Info("description sent to review", zap.String("description", req.Description), zap.String("exception_id", res.ExceptionID))
	}

	res.HistoryID = uuid.NewString()
	if err := s.store.AddRow(ctx, store.TableMappingHistory, historyRow(req, key, res, now)); err != nil {
		log.Warn("history write failed", zap.Error(err))
		return failure(fmt.Errorf("write %s: %w", store.TableMappingHistory, err))
	}
	return res
}

var exceptionNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("ductsync.mapping.exception"))

// exceptionID 同一导入行的异常 ID 固定，重试不会产生第二条异常
func exceptionID(ingestLineID string) string {
	if ingestLineID == "" {
		return uuid.NewString()
	}
	return uuid.NewSHA1(exceptionNamespace, []byte(ingestLineID)).String()
}

// exceptionExists 上次调用可能已写入异常而历史写入失败
func (s *Service) exceptionExists(ctx context.Context, ingestLineID, id string) (bool, error) {
	if ingestLineID == "" {
		return false, nil
	}
	rows, err := s.store.GetAllRows(ctx, store.TableMappingExceptions)
	if err != nil {
		return false, err
	}
	for _, r := range rows {
		if r[store.ColExceptionID] == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) resolve(ctx context.Context, req LookupRequest, key string) (model.MappingResult, error) {
	refs, err := s.refs.get(ctx)
	if err != nil {
		return model.MappingResult{}, err
	}

	if req.hasScope() && key != "" {
		ov, err := s.overrides.get(ctx)
		if err != nil {
			return model.MappingResult{}, err
		}
		now := s.clock()
		for _, scope := range model.ScopePrecedence {
			v := req.scopeValue(scope)
			if v == "" {
				continue
			}
			for _, o := range ov[scope][scopeKey(v)][key] {
				if !effective(o, now) {
					continue
				}
				res := model.MappingResult{
					Success:       true,
					Decision:      model.DecisionOverride,
					CanonicalCode: o.CanonicalCode,
					ExternalCode:  o.ExternalCode,
					ScopeType:     scope,
					ScopeValue:    o.ScopeValue,
				}
				if ref, ok := refs.byCode[o.CanonicalCode]; ok {
					res.Unit = ref.Unit
					res.ExternalUnit = ref.ExternalUnit
					res.ConversionFactor = ref.ConversionFactor
					if res.ExternalCode == "" {
						res.ExternalCode = ref.ExternalCode
					}
				}
				return res, nil
			}
		}
	}

	if ref, ok := refs.byDesc[key]; ok && key != "" {
		return model.MappingResult{
			Success:          true,
			Decision:         model.DecisionAuto,
			CanonicalCode:    ref.CanonicalCode,
			ExternalCode:     ref.ExternalCode,
			Unit:             ref.Unit,
			ExternalUnit:     ref.ExternalUnit,
			ConversionFactor: ref.ConversionFactor,
		}, nil
	}

	return model.MappingResult{
		Decision: model.DecisionReview,
		Message:  fmt.Sprintf("no mapping found for %q", req.Description),
	}, nil
}

func failure(err error) model.MappingResult {
	return model.MappingResult{
		Success:  false,
		Decision: model.DecisionReview,
		Message:  err.Error(),
	}
}

func historyRow(req LookupRequest, key string, res model.MappingResult, now time.Time) store.Row {
	return store.Row{
		store.ColHistoryID:             res.HistoryID,
		store.ColIngestLineID:          req.IngestLineID,
		store.ColTraceID:               req.TraceID,
		store.ColDescription:           req.Description,
		store.ColNormalizedDescription: key,
		store.ColDecision:              string(res.Decision),
		store.ColCanonicalCode:         res.CanonicalCode,
		store.ColExternalCode:          res.ExternalCode,
		store.ColUnit:                  res.Unit,
		store.ColExternalUnit:          res.ExternalUnit,
		store.ColConversionFactor:      strconv.FormatFloat(res.ConversionFactor, 'f', -1, 64),
		store.ColScopeType:             string(res.ScopeType),
		store.ColScopeValue:            res.ScopeValue,
		store.ColExceptionID:           res.ExceptionID,
		store.ColReason:                res.Message,
		store.ColLPOID:                 req.LPOID,
		store.ColProjectID:             req.ProjectID,
		store.ColCustomerID:            req.CustomerID,
		store.ColCreatedAt:             now.Format(time.RFC3339),
	}
}

// resultFromHistory 历史行还原为决策结果（含人工确认的 MANUAL 决策）
func resultFromHistory(r store.Row) model.MappingResult {
	d := model.Decision(r[store.ColDecision])
	switch d {
	case model.DecisionAuto, model.DecisionOverride, model.DecisionManual, model.DecisionReview:
	default:
		d = model.DecisionReview
	}
	res := model.MappingResult{
		Success:          d != model.DecisionReview,
		Decision:         d,
		CanonicalCode:    r[store.ColCanonicalCode],
		ExternalCode:     r[store.ColExternalCode],
		Unit:             r[store.ColUnit],
		ExternalUnit:     r[store.ColExternalUnit],
		ConversionFactor: parseFloat(r[store.ColConversionFactor]),
		HistoryID:        r[store.ColHistoryID],
		ExceptionID:      r[store.ColExceptionID],
		ScopeType:        model.ScopeType(r[store.ColScopeType]),
		ScopeValue:       r[store.ColScopeValue],
		Message:          r[store.ColReason],
	}
	return res
}
