package model

// MaterialType BOM 行物料类别
type MaterialType string

const (
	MaterialPanel      MaterialType = "PANEL"
	MaterialProfile    MaterialType = "PROFILE"
	MaterialAccessory  MaterialType = "ACCESSORY"
	MaterialConsumable MaterialType = "CONSUMABLE"
	MaterialWear       MaterialType = "WEAR"
)

// Decision 映射决策
type Decision string

const (
	DecisionAuto     Decision = "AUTO"
	DecisionOverride Decision = "OVERRIDE"
	DecisionManual   Decision = "MANUAL"
	DecisionReview   Decision = "REVIEW"
)

// BOMLine 物料清单行；由生成器创建，映射阶段原地补全
type BOMLine struct {
	LineNumber     int          `json:"lineNumber"`
	LineID         string       `json:"lineId"`
	IngestLineID   string       `json:"ingestLineId,omitempty"`
	MaterialType   MaterialType `json:"materialType"`
	Description    string       `json:"description"`
	RawDescription string       `json:"rawDescription"`
	Quantity       float64      `json:"quantity"`
	Unit           string       `json:"unit"`

	CanonicalCode     string   `json:"canonicalCode,omitempty"`
	ExternalCode      string   `json:"externalCode,omitempty"`
	Decision          Decision `json:"decision,omitempty"`
	HistoryID         string   `json:"historyId,omitempty"`
	ExceptionID       string   `json:"exceptionId,omitempty"`
	ConvertedQuantity float64  `json:"convertedQuantity"`
	ConvertedUnit     string   `json:"convertedUnit,omitempty"`
	ConversionFactor  float64  `json:"conversionFactor"`
	Message           string   `json:"message,omitempty"`
}

// Mapped 是否已解析出编码
func (l *BOMLine) Mapped() bool {
	return l.CanonicalCode != "" && l.Decision != DecisionReview && l.Decision != ""
}
