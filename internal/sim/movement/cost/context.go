package cost

import (
	"fmt"

	"voxelmotion.ai/internal/sim/blocks"
	"voxelmotion.ai/internal/sim/inventory"
	"voxelmotion.ai/internal/sim/tuning"
	"voxelmotion.ai/internal/sim/voxel"
)

// Context is everything needed to price a movement. It is built once per planning pass
// from a world lookup, an inventory snapshot and the settings, and is read-only
// afterwards: the exported fields must not be written once New returns. A Context built
// over a voxel.Snapshot may be shared by any number of goroutines.
type Context struct {
	lookup voxel.Lookup
	cat    *blocks.Catalog
	tools  *inventory.ToolSet
	border voxel.Border

	HasThrowaway   bool
	HasWaterBucket bool
	CanSprint      bool

	AllowBreak            bool
	AllowPlace            bool
	AllowParkour          bool
	AllowParkourAscend    bool
	AllowDiagonalDescend  bool
	AllowDiagonalAscend   bool
	AllowDownward         bool
	AllowWalkOnBottomSlab bool
	AssumeWalkOnWater     bool
	AssumeWalkOnLava      bool
	AllowFallIntoLava     bool

	AvoidBreakingNearLiquid    bool
	AvoidUpdatingFallingBlocks bool

	BreakPenaltyMultiplier float64
	BreakAdditionalCost    float64
	PlaceBlockCost         float64
	JumpPenalty            float64
	WalkOnWaterOnePenalty  float64
	WaterWalkSpeed         float64

	MaxFallHeightNoWater int
	MaxFallHeightBucket  int

	avoid            map[blocks.Kind]bool
	disallowBreaking map[blocks.Kind]bool
	breakAnyway      map[blocks.Kind]bool
}

// New builds a context. It fails only when the settings name blocks the catalog does not know.
func New(lookup voxel.Lookup, cat *blocks.Catalog, inv inventory.Snapshot, s tuning.Settings) (*Context, error) {
	if lookup == nil || cat == nil {
		return nil, fmt.Errorf("cost: nil lookup or catalog")
	}
	avoid, err := cat.Kinds(s.BlocksToAvoid)
	if err != nil {
		return nil, fmt.Errorf("blocks_to_avoid: %w", err)
	}
	disallow, err := cat.Kinds(s.BlocksToDisallowBreaking)
	if err != nil {
		return nil, fmt.Errorf("blocks_to_disallow_breaking: %w", err)
	}
	anyway, err := cat.Kinds(s.AllowBreakAnyway)
	if err != nil {
		return nil, fmt.Errorf("allow_break_anyway: %w", err)
	}
	tools := inv.Tools
	if tools == nil {
		tools = inventory.NewToolSet(cat, nil)
	}
	return &Context{
		lookup: lookup,
		cat:    cat,
		tools:  tools,
		border: lookup.Border(),

		HasThrowaway:   inv.HasThrowaway,
		HasWaterBucket: inv.WaterBucket,
		CanSprint:      s.AllowSprint,

		AllowBreak:            s.AllowBreak,
		AllowPlace:            s.AllowPlace,
		AllowParkour:          s.AllowParkour,
		AllowParkourAscend:    s.AllowParkourAscend,
		AllowDiagonalDescend:  s.AllowDiagonalDescend,
		AllowDiagonalAscend:   s.AllowDiagonalAscend,
		AllowDownward:         s.AllowDownward,
		AllowWalkOnBottomSlab: s.AllowWalkOnBottomSlab,
		AssumeWalkOnWater:     s.AssumeWalkOnWater,
		AssumeWalkOnLava:      s.AssumeWalkOnLava,
		AllowFallIntoLava:     s.AllowFallIntoLava,

		AvoidBreakingNearLiquid:    s.AvoidBreakingNearLiquid,
		AvoidUpdatingFallingBlocks: s.AvoidUpdatingFallingBlocks,

		BreakPenaltyMultiplier: s.BreakPenaltyMultiplier,
		BreakAdditionalCost:    s.BlockBreakAdditionalCost,
		PlaceBlockCost:         s.BlockPlacementPenalty,
		JumpPenalty:            s.JumpPenalty,
		WalkOnWaterOnePenalty:  s.WalkOnWaterOnePenalty,
		WaterWalkSpeed:         WalkOneInWaterCost,

		MaxFallHeightNoWater: s.MaxFallHeightNoWater,
		MaxFallHeightBucket:  s.MaxFallHeightBucket,

		avoid:            avoid,
		disallowBreaking: disallow,
		breakAnyway:      anyway,
	}, nil
}

// Valid reports whether the context was built by New.
func (c *Context) Valid() bool { return c != nil && c.lookup != nil && c.cat != nil }

func (c *Context) Get(x, y, z int) blocks.State { return c.lookup.Get(x, y, z) }

func (c *Context) Loaded(x, z int) bool { return c.lookup.Loaded(x, z) }

func (c *Context) Height() int { return c.lookup.Height() }

func (c *Context) Catalog() *blocks.Catalog { return c.cat }

func (c *Context) Tools() *inventory.ToolSet { return c.tools }

func (c *Context) Def(s blocks.State) *blocks.Def { return c.cat.Def(s.Kind) }

// BreakCostMultiplierAt is ≥1, or Inf when breaking is not allowed at a cell.
func (c *Context) BreakCostMultiplierAt(x, y, z int, s blocks.State) float64 {
	if !c.AllowBreak && !c.breakAnyway[s.Kind] {
		return Inf
	}
	if c.lookup.Protected(x, y, z) {
		return Inf
	}
	return c.BreakPenaltyMultiplier
}

// PlaceCost is the cost of placing a throwaway block into a cell.
func (c *Context) PlaceCost(x, y, z int) float64 {
	if !c.HasThrowaway || !c.AllowPlace {
		return Inf
	}
	if c.lookup.Protected(x, y, z) {
		return Inf
	}
	if !c.border.CanPlaceAt(x, z) {
		return Inf
	}
	return c.PlaceBlockCost
}

func (c *Context) PlaceBucketCost() float64 { return c.PlaceBlockCost }
