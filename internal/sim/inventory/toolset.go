package inventory

import "voxelmotion.ai/internal/sim/blocks"

// ToolSet holds the best breaking strength for every catalog kind. Strength is the fraction
// of a block broken per tick, so 1/strength is the number of ticks needed. It is computed
// once and never written again.
type ToolSet struct {
	strength []float64
	best     []int
	tools    []Tool
}

func NewToolSet(cat *blocks.Catalog, tools []Tool) *ToolSet {
	ts := &ToolSet{
		strength: make([]float64, len(cat.Defs)),
		best:     make([]int, len(cat.Defs)),
		tools:    append([]Tool(nil), tools...),
	}
	for i := range cat.Defs {
		ts.strength[i], ts.best[i] = strengthFor(&cat.Defs[i], ts.tools)
	}
	return ts
}

// Strength is the per-tick break progress for a block, 0 when it cannot be broken.
func (t *ToolSet) Strength(s blocks.State) float64 {
	if int(s.Kind) >= len(t.strength) {
		return 0
	}
	return t.strength[s.Kind]
}

// BestTool returns the tool to hold while breaking a block, if any helps.
func (t *ToolSet) BestTool(s blocks.State) (Tool, bool) {
	if int(s.Kind) >= len(t.best) || t.best[s.Kind] < 0 {
		return Tool{}, false
	}
	return t.tools[t.best[s.Kind]], true
}

func strengthFor(d *blocks.Def, tools []Tool) (float64, int) {
	if d.Hardness < 0 {
		return 0, -1
	}
	best := -1
	speed := 1.0
	for i, tool := range tools {
		if d.Tool == "" || tool.Class != d.Tool {
			continue
		}
		if tool.Speed > speed {
			speed = tool.Speed
			best = i
		}
	}
	if d.Hardness == 0 {
		return 1, best
	}
	canHarvest := !d.NeedsTool || best >= 0
	div := 100.0
	if canHarvest {
		div = 30
	}
	return speed / d.Hardness / div, best
}
