package model

import "time"

// UnknownProjectID 无法识别项目标识时的占位值
const UnknownProjectID = "UNKNOWN"

// ValidationStatus 记录校验状态
type ValidationStatus string

const (
	ValidationOK      ValidationStatus = "OK"
	ValidationWarning ValidationStatus = "WARNING"
	ValidationError   ValidationStatus = "ERROR"
)

// RecordMetadata 执行记录元信息
type RecordMetadata struct {
	ProjectID    string           `json:"projectId"`
	JobReference string           `json:"jobReference,omitempty"`
	SourceFile   string           `json:"sourceFile"`
	ExtractedAt  time.Time        `json:"extractedAt"`
	Status       ValidationStatus `json:"status"`
	Messages     []string         `json:"messages"`
}

// InventoryImpact 板材库存影响
type InventoryImpact struct {
	UtilizedSheets        int     `json:"utilizedSheets"`
	GrossAreaM2           float64 `json:"grossAreaM2"`
	ReusableRemnantAreaM2 float64 `json:"reusableRemnantAreaM2"`
}

// CutWaste 单一切割类型的损耗
type CutWaste struct {
	CutType string  `json:"cutType"`
	AreaM2  float64 `json:"areaM2"`
}

// EfficiencyMetrics 排版效率指标
type EfficiencyMetrics struct {
	WasteAreaM2    float64    `json:"wasteAreaM2"`
	WastePercent   float64    `json:"wastePercent"`
	WasteByCutType []CutWaste `json:"wasteByCutType"`
}

// RawMaterialPanel 主板材
type RawMaterialPanel struct {
	Spec        string            `json:"spec"`
	ThicknessMM float64           `json:"thicknessMm"`
	LengthMM    float64           `json:"lengthMm"`
	WidthMM     float64           `json:"widthMm"`
	Inventory   InventoryImpact   `json:"inventory"`
	Efficiency  EfficiencyMetrics `json:"efficiency"`
}

// ConsumedAreaM2 净消耗面积（毛面积扣除可复用余料）
func (p RawMaterialPanel) ConsumedAreaM2() float64 {
	v := p.Inventory.GrossAreaM2 - p.Inventory.ReusableRemnantAreaM2
	if v < 0 {
		return 0
	}
	return v
}

// BillingMetrics 结算面积
type BillingMetrics struct {
	InternalAreaM2 float64 `json:"internalAreaM2"`
	ExternalAreaM2 float64 `json:"externalAreaM2"`
}

// ProfileConsumption 型材消耗（每种型材一条）
type ProfileConsumption struct {
	ProfileType       string  `json:"profileType"`
	ThicknessMM       float64 `json:"thicknessMm"`
	ConsumptionM      float64 `json:"consumptionM"`
	RemnantGeneratedM float64 `json:"remnantGeneratedM"`
	BarCount          int     `json:"barCount"`
	FlangeCount       int     `json:"flangeCount"`
}

// FlangeAccessory 法兰配件
type FlangeAccessory struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// Consumable 耗材
type Consumable struct {
	Name                  string  `json:"name"`
	Unit                  string  `json:"unit"`
	Total                 float64 `json:"total"`
	ExtraAllowancePercent float64 `json:"extraAllowancePercent"`
}

// WithAllowance 含损耗余量的用量
func (c Consumable) WithAllowance() float64 {
	return c.Total * (1 + c.ExtraAllowancePercent/100)
}

// WearMetric 设备磨损指标
type WearMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// MachineTelemetry 设备运行数据
type MachineTelemetry struct {
	MachineName    string       `json:"machineName,omitempty"`
	Operator       string       `json:"operator,omitempty"`
	CutLengthM     float64      `json:"cutLengthM"`
	TravelLengthM  float64      `json:"travelLengthM"`
	MachineTimeMin float64      `json:"machineTimeMin"`
	PierceCount    int          `json:"pierceCount"`
	Wear           []WearMetric `json:"wear"`
}

// ConnectionGeometry 连接方式（X/Y/法兰类型）
type ConnectionGeometry struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	FlangeType string  `json:"flangeType"`
}

// FinishedGood 成品明细
type FinishedGood struct {
	ItemNo         string             `json:"itemNo"`
	PartType       string             `json:"partType"`
	WidthMM        float64            `json:"widthMm"`
	HeightMM       float64            `json:"heightMm"`
	LengthMM       float64            `json:"lengthMm"`
	Connection     ConnectionGeometry `json:"connection"`
	Quantity       int                `json:"quantity"`
	InternalAreaM2 float64            `json:"internalAreaM2"`
	ExternalAreaM2 float64            `json:"externalAreaM2"`
}

// ExecutionRecord 一次切割导出的统一口径执行记录
// 每个文件构建一次，构建后不再修改
type ExecutionRecord struct {
	Metadata      RecordMetadata       `json:"metadata"`
	Panel         RawMaterialPanel     `json:"panel"`
	Billing       BillingMetrics       `json:"billing"`
	Profiles      []ProfileConsumption `json:"profiles"`
	Accessories   []FlangeAccessory    `json:"accessories"`
	Consumables   []Consumable         `json:"consumables"`
	Telemetry     MachineTelemetry     `json:"telemetry"`
	FinishedGoods []FinishedGood       `json:"finishedGoods"`
}
