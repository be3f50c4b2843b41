package parser

import "ductsync/internal/model"

// 项目页标签
const (
	LabelProjectID    = "Project ID"
	LabelJobReference = "Job Reference"
	LabelInternalArea = "Internal Area"
	LabelExternalArea = "External Area"
	LabelMachineName  = "Machine Name"
	LabelOperator     = "Operator"
	LabelCutLength    = "Cut Length"
	LabelTravelLength = "Travel Length"
	LabelMachineTime  = "Machine Time"
	LabelPierceCount  = "Pierce Count"
)

const projectTab = "Project"

// ErrNoProjectIdentity 项目标识缺失时的结构性错误文本
const ErrNoProjectIdentity = "no project identity found"

// WearLabels 设备磨损指标标签（标签 -> 默认单位）
var WearLabels = []struct {
	Label string
	Unit  string
}{
	{"Knife Wear", "m"},
	{"Router Wear", "m"},
	{"Nozzle Hours", "h"},
}

func init() {
	registerLabels(LabelProjectID, LabelJobReference, LabelInternalArea, LabelExternalArea,
		LabelMachineName, LabelOperator, LabelCutLength, LabelTravelLength, LabelMachineTime, LabelPierceCount)
	for _, w := range WearLabels {
		registerLabels(w.Label)
	}
}

// ProjectSection 项目页抽取结果
type ProjectSection struct {
	ProjectID    string
	JobReference string
	Billing      model.BillingMetrics
	Telemetry    model.MachineTelemetry
}

// ProjectExtractor 项目页抽取器：项目标识、结算面积、设备运行数据
type ProjectExtractor struct {
	finder *AnchorFinder
}

// NewProjectExtractor 创建项目页抽取器
func NewProjectExtractor(f *AnchorFinder) *ProjectExtractor {
	return &ProjectExtractor{finder: f}
}

// Extract 抽取项目页
// 项目标识是唯一会产生结构性错误的字段：主标识为空时回退到任务编号，两者都为空才报错
func (e *ProjectExtractor) Extract() Result[ProjectSection] {
	res := Result[ProjectSection]{}
	f := e.finder

	primary, _ := probeString(f, LabelProjectID)
	secondary, _ := probeString(f, LabelJobReference)
	switch {
	case primary != "":
		res.Data.ProjectID = primary
	case secondary != "":
		res.Data.ProjectID = secondary
		res.Warn("%s: %q is blank, using %q %s", projectTab, LabelProjectID, LabelJobReference, secondary)
	default:
		res.Data.ProjectID = model.UnknownProjectID
		res.Fail(ErrNoProjectIdentity)
	}
	res.Data.JobReference = secondary

	res.Data.Billing = model.BillingMetrics{
		InternalAreaM2: quantity(&res, f, projectTab, LabelInternalArea),
		ExternalAreaM2: quantity(&res, f, projectTab, LabelExternalArea),
	}

	// 设备运行数据并非每个导出版本都有，缺失不告警
	t := model.MachineTelemetry{
		MachineName: text(&res, f, projectTab, LabelMachineName, false),
		Operator:    text(&res, f, projectTab, LabelOperator, false),
	}
	t.CutLengthM, _ = optionalQuantity(&res, f, projectTab, LabelCutLength)
	t.TravelLengthM, _ = optionalQuantity(&res, f, projectTab, LabelTravelLength)
	t.MachineTimeMin, _ = optionalQuantity(&res, f, projectTab, LabelMachineTime)
	if v, ok := optionalQuantity(&res, f, projectTab, LabelPierceCount); ok {
		t.PierceCount = int(v + 0.5)
	}
	for _, w := range WearLabels {
		v, ok := optionalQuantity(&res, f, projectTab, w.Label)
		if !ok {
			continue
		}
		unit := w.Unit
		if a, found := locateLabel(f, w.Label); found {
			if u := UnitFromLabel(a.Text); u != "" {
				unit = NormalizeUnit(u)
			}
		}
		t.Wear = append(t.Wear, model.WearMetric{Name: w.Label, Value: v, Unit: unit})
	}
	res.Data.Telemetry = t

	return res
}
