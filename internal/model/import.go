package model

// ParseStatus 解析结果状态
type ParseStatus string

const (
	ParseSuccess ParseStatus = "SUCCESS"
	ParsePartial ParseStatus = "PARTIAL"
	ParseError   ParseStatus = "ERROR"
)

// ParseStatusFor 由记录校验状态推导解析状态
func ParseStatusFor(v ValidationStatus) ParseStatus {
	switch v {
	case ValidationOK:
		return ParseSuccess
	case ValidationWarning:
		return ParsePartial
	default:
		return ParseError
	}
}

// ParseResult 解析结果；调用方总能拿到该结构而不是错误
type ParseResult struct {
	Status           ParseStatus      `json:"status"`
	Data             *ExecutionRecord `json:"data"`
	Warnings         []string         `json:"warnings"`
	Errors           []string         `json:"errors"`
	ProcessingTimeMS int64            `json:"processingTimeMs"`
}

// ProcessResult BOM 处理结果
type ProcessResult struct {
	Success        bool       `json:"success"`
	SessionID      string     `json:"sessionId"`
	TotalLines     int        `json:"totalLines"`
	MappedLines    int        `json:"mappedLines"`
	ExceptionLines int        `json:"exceptionLines"`
	Lines          []*BOMLine `json:"bomLines"`
	Message        string     `json:"message,omitempty"`
}
