package model

// SheetType 工作表角色（导出文件中的固定页签）
type SheetType string

const (
	SheetTypeUnknown SheetType = "unknown"

	SheetTypeProject       SheetType = "project"        // 项目/汇总页，含项目标识
	SheetTypePanel         SheetType = "panel"          // 板材
	SheetTypeProfiles      SheetType = "profiles"       // 型材（重复块）
	SheetTypeAccessories   SheetType = "accessories"    // 法兰配件
	SheetTypeConsumables   SheetType = "consumables"    // 耗材（左右并列两段）
	SheetTypeFinishedGoods SheetType = "finished_goods" // 成品明细（多行表头）
)

// SheetOrder 抽取顺序
var SheetOrder = []SheetType{
	SheetTypeProject,
	SheetTypePanel,
	SheetTypeProfiles,
	SheetTypeAccessories,
	SheetTypeConsumables,
	SheetTypeFinishedGoods,
}

// SheetTitle 页签的标准名称
func SheetTitle(t SheetType) string {
	switch t {
	case SheetTypeProject:
		return "Project"
	case SheetTypePanel:
		return "Panel"
	case SheetTypeProfiles:
		return "Profiles"
	case SheetTypeAccessories:
		return "Accessories"
	case SheetTypeConsumables:
		return "Consumables"
	case SheetTypeFinishedGoods:
		return "Finished Goods"
	default:
		return string(t)
	}
}

// SheetRecognition 单个 sheet 的识别结果
type SheetRecognition struct {
	SheetName     string    `json:"sheetName"`
	Type          SheetType `json:"type"`
	Score         float64   `json:"score"`
	MissingFields []string  `json:"missingFields"`
}
