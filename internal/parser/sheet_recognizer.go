package parser

import (
	"sort"

	"ductsync/internal/model"
)

// TabProfile 单个页签角色的识别规则
type TabProfile struct {
	Type    model.SheetType
	Aliases []string
	// Landmarks 页签内容中应出现的标签，用于页签被改名时的兜底识别
	Landmarks []string
}

// DefaultTabProfiles 默认识别规则
var DefaultTabProfiles = []TabProfile{
	{
		Type:      model.SheetTypeProject,
		Aliases:   []string{"Project", "Summary", "Job"},
		Landmarks: []string{LabelProjectID, LabelJobReference, LabelInternalArea, LabelExternalArea},
	},
	{
		Type:      model.SheetTypePanel,
		Aliases:   []string{"Panel", "Sheet Material", "Raw Material"},
		Landmarks: []string{LabelMaterial, LabelSheetsUsed, LabelGrossArea, LabelReusableRemnant},
	},
	{
		Type:      model.SheetTypeProfiles,
		Aliases:   []string{"Profiles", "Profile", "Flange Profiles"},
		Landmarks: []string{LabelProfileType, LabelTotalLength, LabelRemnant},
	},
	{
		Type:      model.SheetTypeAccessories,
		Aliases:   []string{"Accessories", "Flange Accessories"},
		Landmarks: []string{HeaderItem, HeaderSize, HeaderQuantity, HeaderRemarks},
	},
	{
		Type:      model.SheetTypeConsumables,
		Aliases:   []string{"Consumables"},
		Landmarks: []string{"Glue", "Silicone", LabelTotal},
	},
	{
		Type:      model.SheetTypeFinishedGoods,
		Aliases:   []string{"Finished Goods", "Parts", "Duct Parts"},
		Landmarks: []string{HeaderItemNo, HeaderPart, HeaderConnection, HeaderQty},
	},
}

// minLandmarkScore 内容识别的最低命中比例
const minLandmarkScore = 0.5

// SheetRecognizer 页签识别器：先按名称/别名，再按内容标志性标签
type SheetRecognizer struct {
	profiles []TabProfile
	scanRows int
}

// NewSheetRecognizer 创建识别器
func NewSheetRecognizer(profiles []TabProfile, scanRows int) *SheetRecognizer {
	if len(profiles) == 0 {
		profiles = DefaultTabProfiles
	}
	if scanRows <= 0 {
		scanRows = DefaultHeaderScanRows
	}
	return &SheetRecognizer{profiles: profiles, scanRows: scanRows}
}

// Recognize 识别单个页签
func (r *SheetRecognizer) Recognize(g *Grid) model.SheetRecognition {
	if t, ok := r.byName(g.Name()); ok {
		return model.SheetRecognition{SheetName: g.Name(), Type: t, Score: 1}
	}

	best := model.SheetRecognition{SheetName: g.Name(), Type: model.SheetTypeUnknown}
	for _, p := range r.profiles {
		score, missing := r.landmarkScore(g, p.Landmarks)
		if score > best.Score {
			best = model.SheetRecognition{SheetName: g.Name(), Type: p.Type, Score: score, MissingFields: missing}
		}
	}
	if best.Score < minLandmarkScore {
		best.Type = model.SheetTypeUnknown
	}
	return best
}

// Resolve 将工作簿的页签分配到各角色；每个角色至多一个页签，名称命中优先于内容命中
func (r *SheetRecognizer) Resolve(grids []*Grid) (map[model.SheetType]*Grid, []model.SheetRecognition) {
	recs := make([]model.SheetRecognition, len(grids))
	for i, g := range grids {
		recs[i] = r.Recognize(g)
	}

	named := make([]bool, len(grids))
	order := make([]int, len(grids))
	for i := range order {
		order[i] = i
		_, named[i] = r.byName(grids[i].Name())
	}
	// 内容满分与名称命中同分时名称优先
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if recs[ia].Score != recs[ib].Score {
			return recs[ia].Score > recs[ib].Score
		}
		return named[ia] && !named[ib]
	})

	out := make(map[model.SheetType]*Grid, len(model.SheetOrder))
	for _, i := range order {
		rec := recs[i]
		if rec.Type == model.SheetTypeUnknown {
			continue
		}
		if _, taken := out[rec.Type]; taken {
			continue
		}
		out[rec.Type] = grids[i]
	}
	return out, recs
}

func (r *SheetRecognizer) byName(name string) (model.SheetType, bool) {
	got := normalizeLabel(name, false)
	for _, p := range r.profiles {
		for _, a := range p.Aliases {
			if got == normalizeLabel(a, false) {
				return p.Type, true
			}
		}
	}
	return model.SheetTypeUnknown, false
}

func (r *SheetRecognizer) landmarkScore(g *Grid, landmarks []string) (float64, []string) {
	if len(landmarks) == 0 {
		return 0, nil
	}
	rows := r.scanRows
	if rows > g.Rows() {
		rows = g.Rows()
	}
	var missing []string
	hit := 0
	for _, l := range landmarks {
		want := normalizeLabel(l, false)
		found := false
	scan:
		for row := 0; row < rows; row++ {
			for c := 0; c < g.Cols(); c++ {
				cell := g.At(row, c)
				if cell.Kind == CellText && matchLabel(cell.Text, want, false, false) {
					found = true
					break scan
				}
			}
		}
		if found {
			hit++
		} else {
			missing = append(missing, l)
		}
	}
	return float64(hit) / float64(len(landmarks)), missing
}
