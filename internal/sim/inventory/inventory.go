package inventory

import (
	"sort"

	"voxelmotion.ai/internal/sim/blocks"
)

// Tool is a held item that speeds up breaking blocks of its class.
type Tool struct {
	Name  string  `json:"name" yaml:"name"`
	Class string  `json:"class" yaml:"class"` // pickaxe, axe, shovel, shears
	Speed float64 `json:"speed" yaml:"speed"`
}

// Inventory is what the agent carries. It is owned by the tick goroutine; planning reads
// a Snapshot.
type Inventory struct {
	Tools       []Tool
	Blocks      map[blocks.Kind]int
	WaterBucket bool
	EmptyBucket bool
}

func New() *Inventory {
	return &Inventory{Blocks: map[blocks.Kind]int{}}
}

func (inv *Inventory) AddTool(t Tool) { inv.Tools = append(inv.Tools, t) }

func (inv *Inventory) AddBlocks(k blocks.Kind, n int) {
	if inv.Blocks == nil {
		inv.Blocks = map[blocks.Kind]int{}
	}
	inv.Blocks[k] += n
}

// Throwaway picks the throwaway block the agent has the most of, ties broken by kind.
func (inv *Inventory) Throwaway(cat *blocks.Catalog) (blocks.Kind, bool) {
	kinds := make([]blocks.Kind, 0, len(inv.Blocks))
	for k, n := range inv.Blocks {
		if n > 0 && cat.Def(k).Throwaway {
			kinds = append(kinds, k)
		}
	}
	if len(kinds) == 0 {
		return 0, false
	}
	sort.Slice(kinds, func(i, j int) bool {
		ni, nj := inv.Blocks[kinds[i]], inv.Blocks[kinds[j]]
		if ni != nj {
			return ni > nj
		}
		return kinds[i] < kinds[j]
	})
	return kinds[0], true
}

// Consume removes one block of a kind, reporting false when none is held.
func (inv *Inventory) Consume(k blocks.Kind) bool {
	if inv.Blocks[k] <= 0 {
		return false
	}
	inv.Blocks[k]--
	return true
}

// PourBucket empties a water bucket, reporting false when none is held.
func (inv *Inventory) PourBucket() bool {
	if !inv.WaterBucket {
		return false
	}
	inv.WaterBucket, inv.EmptyBucket = false, true
	return true
}

// FillBucket fills an empty bucket, reporting false when none is held.
func (inv *Inventory) FillBucket() bool {
	if !inv.EmptyBucket {
		return false
	}
	inv.WaterBucket, inv.EmptyBucket = true, false
	return true
}

// Snapshot is the frozen view a cost context is built from.
type Snapshot struct {
	Tools        *ToolSet
	HasThrowaway bool
	WaterBucket  bool
}

func (inv *Inventory) Snapshot(cat *blocks.Catalog) Snapshot {
	_, ok := inv.Throwaway(cat)
	return Snapshot{
		Tools:        NewToolSet(cat, inv.Tools),
		HasThrowaway: ok,
		WaterBucket:  inv.WaterBucket,
	}
}
