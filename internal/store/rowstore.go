package store

import (
	"context"
	"errors"
	"strings"
)

// ErrUnknownTable 表名为空
var ErrUnknownTable = errors.New("unknown table")

func checkTable(table string) error {
	if strings.TrimSpace(table) == "" {
		return ErrUnknownTable
	}
	return nil
}

// Row 表格行：逻辑列名 -> 文本值
type Row map[string]string

// Clone 复制一行
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RowStore 表格化的记录系统（按页签整表读取、追加写入）
type RowStore interface {
	GetAllRows(ctx context.Context, table string) ([]Row, error)
	AddRow(ctx context.Context, table string, row Row) error
	// AddRows 批量追加，全部成功或全部失败
	AddRows(ctx context.Context, table string, rows []Row) error
}

// 逻辑表名
const (
	TableMaterialReference = "MATERIAL_REFERENCE"
	TableMappingOverrides  = "MAPPING_OVERRIDES"
	TableMappingHistory    = "MAPPING_HISTORY"
	TableMappingExceptions = "MAPPING_EXCEPTIONS"
	TableBOMLines          = "BOM_LINES"
)

// LogicalTables 所有逻辑表
var LogicalTables = []string{
	TableMaterialReference,
	TableMappingOverrides,
	TableMappingHistory,
	TableMappingExceptions,
	TableBOMLines,
}

// 逻辑列名
const (
	ColDescription           = "description"
	ColNormalizedDescription = "normalized_description"
	ColCanonicalCode         = "canonical_code"
	ColExternalCode          = "external_code"
	ColUnit                  = "unit"
	ColExternalUnit          = "external_unit"
	ColConversionFactor      = "conversion_factor"
	ColTracked               = "tracked"
	ColActive                = "active"

	ColScopeType     = "scope_type"
	ColScopeValue    = "scope_value"
	ColEffectiveFrom = "effective_from"
	ColEffectiveTo   = "effective_to"

	ColHistoryID    = "history_id"
	ColExceptionID  = "exception_id"
	ColIngestLineID = "ingest_line_id"
	ColTraceID      = "trace_id"
	ColDecision     = "decision"
	ColLPOID        = "lpo_id"
	ColProjectID    = "project_id"
	ColCustomerID   = "customer_id"
	ColReason       = "reason"
	ColStatus       = "status"
	ColCreatedAt    = "created_at"

	ColLineID            = "line_id"
	ColSessionID         = "session_id"
	ColLineNumber        = "line_number"
	ColMaterialType      = "material_type"
	ColQuantity          = "quantity"
	ColConvertedQuantity = "converted_quantity"
	ColConvertedUnit     = "converted_unit"
	ColSourceFile        = "source_file"
)
