package model

// ScopeType 覆盖规则作用域
type ScopeType string

const (
	ScopeLPO      ScopeType = "LPO"
	ScopeProject  ScopeType = "PROJECT"
	ScopeCustomer ScopeType = "CUSTOMER"
)

// ScopePrecedence 作用域优先级（从高到低）
var ScopePrecedence = []ScopeType{ScopeLPO, ScopeProject, ScopeCustomer}

// MaterialReference 物料参照表条目
type MaterialReference struct {
	Description      string  `json:"description"`
	CanonicalCode    string  `json:"canonicalCode"`
	ExternalCode     string  `json:"externalCode"`
	Unit             string  `json:"unit"`
	ExternalUnit     string  `json:"externalUnit"`
	ConversionFactor float64 `json:"conversionFactor"`
	Tracked          bool    `json:"tracked"`
	Active           bool    `json:"active"`
}

// MappingOverride 作用域覆盖规则
// EffectiveFrom/EffectiveTo 保留原始文本，无法解析的日期视为不限
type MappingOverride struct {
	ScopeType     ScopeType `json:"scopeType"`
	ScopeValue    string    `json:"scopeValue"`
	EffectiveFrom string    `json:"effectiveFrom,omitempty"`
	EffectiveTo   string    `json:"effectiveTo,omitempty"`
	Description   string    `json:"description"`
	CanonicalCode string    `json:"canonicalCode"`
	ExternalCode  string    `json:"externalCode"`
	Active        bool      `json:"active"`
}

// MappingResult 单次查询结果
type MappingResult struct {
	Success          bool      `json:"success"`
	Decision         Decision  `json:"decision"`
	CanonicalCode    string    `json:"canonicalCode,omitempty"`
	ExternalCode     string    `json:"externalCode,omitempty"`
	Unit             string    `json:"unit,omitempty"`
	ExternalUnit     string    `json:"externalUnit,omitempty"`
	ConversionFactor float64   `json:"conversionFactor,omitempty"`
	HistoryID        string    `json:"historyId,omitempty"`
	ExceptionID      string    `json:"exceptionId,omitempty"`
	ScopeType        ScopeType `json:"scopeType,omitempty"`
	ScopeValue       string    `json:"scopeValue,omitempty"`
	Replayed         bool      `json:"replayed,omitempty"`
	Message          string    `json:"message,omitempty"`
}
