package parser

import (
	"fmt"

	"ductsync/internal/model"
)

// 型材页标签
const (
	LabelProfileType  = "Profile Type"
	LabelTotalLength  = "Total Length"
	LabelRemnant      = "Remnant"
	LabelBarsUsed     = "Bars Used"
	LabelFlangeCount  = "Flanges"
	LabelProfileThick = "Thickness"
)

const profilesTab = "Profiles"

func init() {
	registerLabels(LabelProfileType, LabelTotalLength, LabelRemnant, LabelBarsUsed, LabelFlangeCount)
}

// Block 重复块的行范围 [Start, End)
type Block struct {
	Start  int
	End    int
	Marker Anchor
}

// ProfileExtractor 型材页抽取器
// 每种型材是一个以 "Profile Type" 开头的重复块，块数量不固定
type ProfileExtractor struct {
	finder *AnchorFinder
	opts   ExtractOptions
}

// NewProfileExtractor 创建型材页抽取器
func NewProfileExtractor(f *AnchorFinder, opts ExtractOptions) *ProfileExtractor {
	return &ProfileExtractor{finder: f, opts: opts.withDefaults()}
}

// Extract 抽取所有型材块；单个块失败只影响该块
func (e *ProfileExtractor) Extract() Result[[]model.ProfileConsumption] {
	res := Result[[]model.ProfileConsumption]{}

	blocks := FindBlocks(e.finder, LabelProfileType, e.opts.BlockEndBlankRows)
	if len(blocks) == 0 {
		res.Warn("%s: no %q blocks found", profilesTab, LabelProfileType)
		return res
	}

	for i, b := range blocks {
		label := fmt.Sprintf("%s block %d", profilesTab, i+1)
		br := Safely(label, func() Result[model.ProfileConsumption] {
			return e.extractBlock(label, b)
		})
		res.Merge(br.Warnings, br.Errors)
		if br.Data.ProfileType == "" {
			continue
		}
		res.Data = append(res.Data, br.Data)
	}
	return res
}

// extractBlock 在块自身的子区域内重新定位每个字段
func (e *ProfileExtractor) extractBlock(label string, b Block) Result[model.ProfileConsumption] {
	res := Result[model.ProfileConsumption]{}
	region := e.finder.Region(b.Start, b.End)

	name := region.StringAt(0, b.Marker.Col+1, "")
	if name == "" {
		name = region.StringAt(0, b.Marker.Col+2, "")
	}
	if name == "" {
		name = fmt.Sprintf("profile %d", b.Start+1)
		res.Warn("%s: profile type is blank, using %q", label, name)
	}
	tab := fmt.Sprintf("%s (%s)", label, name)

	pc := model.ProfileConsumption{
		ProfileType:       name,
		ConsumptionM:      quantity(&res, region, tab, LabelTotalLength),
		RemnantGeneratedM: quantity(&res, region, tab, LabelRemnant),
	}
	if v, ok := optionalQuantity(&res, region, tab, LabelProfileThick); ok && v > 0 {
		pc.ThicknessMM = v
	}
	if v, ok := optionalQuantity(&res, region, tab, LabelBarsUsed); ok {
		pc.BarCount = int(v + 0.5)
	}
	if v, ok := optionalQuantity(&res, region, tab, LabelFlangeCount); ok {
		pc.FlangeCount = int(v + 0.5)
	}

	res.Data = pc
	return res
}

// FindBlocks 定位所有块起始标记并推导块边界
// 块范围为 [标记行, 下一个标记行)；最后一个块止于第一段连续 blankRun 个近空行
func FindBlocks(f *AnchorFinder, marker string, blankRun int) []Block {
	anchors := f.FindAllAnchors(marker)
	if len(anchors) == 0 {
		return nil
	}

	// 同一行出现多个标记时只取第一个
	starts := make([]Anchor, 0, len(anchors))
	for _, a := range anchors {
		if len(starts) > 0 && starts[len(starts)-1].Row == a.Row {
			continue
		}
		starts = append(starts, a)
	}

	blocks := make([]Block, 0, len(starts))
	for i, a := range starts {
		end := f.grid.Rows()
		if i+1 < len(starts) {
			end = starts[i+1].Row
		} else {
			end = blockEnd(f.grid, a.Row+1, blankRun)
		}
		blocks = append(blocks, Block{Start: a.Row, End: end, Marker: a})
	}
	return blocks
}

// blockEnd 从 start 开始查找第一段连续 blankRun 个近空行（至多一个非空单元格），返回该段起始行
func blockEnd(g *Grid, start, blankRun int) int {
	if blankRun <= 0 {
		blankRun = DefaultBlockEndBlankRows
	}
	run := 0
	for r := start; r < g.Rows(); r++ {
		if g.NonBlankCount(r) <= 1 {
			run++
			if run >= blankRun {
				return r - run + 1
			}
			continue
		}
		run = 0
	}
	return g.Rows()
}
