package agent

import (
	"voxelmotion.ai/internal/sim/blocks"
	"voxelmotion.ai/internal/sim/inventory"
)

type Held uint8

const (
	HeldNothing Held = iota
	HeldTool
	HeldThrowaway
	HeldWaterBucket
	HeldEmptyBucket
)

func (h Held) String() string {
	switch h {
	case HeldTool:
		return "tool"
	case HeldThrowaway:
		return "throwaway"
	case HeldWaterBucket:
		return "water_bucket"
	case HeldEmptyBucket:
		return "empty_bucket"
	}
	return "nothing"
}

// Hands selects from the inventory what the body holds.
type Hands struct {
	cat   *blocks.Catalog
	inv   *inventory.Inventory
	tools *inventory.ToolSet

	held      Held
	tool      inventory.Tool
	throwaway blocks.Kind
}

func NewHands(cat *blocks.Catalog, inv *inventory.Inventory) *Hands {
	return &Hands{cat: cat, inv: inv, tools: inventory.NewToolSet(cat, inv.Tools)}
}

func (h *Hands) Held() Held { return h.held }

func (h *Hands) Tool() (inventory.Tool, bool) { return h.tool, h.held == HeldTool }

func (h *Hands) SelectBestTool(s blocks.State) {
	if t, ok := h.tools.BestTool(s); ok {
		h.held, h.tool = HeldTool, t
		return
	}
	h.held = HeldNothing
}

func (h *Hands) SelectThrowaway() bool {
	k, ok := h.inv.Throwaway(h.cat)
	if !ok {
		return false
	}
	h.held, h.throwaway = HeldThrowaway, k
	return true
}

func (h *Hands) SelectWaterBucket() bool {
	if !h.inv.WaterBucket {
		return false
	}
	h.held = HeldWaterBucket
	return true
}

func (h *Hands) SelectEmptyBucket() bool {
	if !h.inv.EmptyBucket {
		return false
	}
	h.held = HeldEmptyBucket
	return true
}

// breakStrength is the per-tick progress against s with whatever is held.
func (h *Hands) breakStrength(s blocks.State) float64 {
	return h.tools.Strength(s)
}
