package cost

import "voxelmotion.ai/internal/sim/blocks"

// The predicates below are pure functions of the Context and its lookup. The planner calls
// them over a frozen snapshot and the executor calls them over the live world, so both
// always agree on what a cell allows.

func (c *Context) CanWalkThrough(x, y, z int) bool {
	return c.CanWalkThroughState(x, y, z, c.Get(x, y, z))
}

// CanWalkThroughState reports whether the agent's body can occupy a cell holding s.
func (c *Context) CanWalkThroughState(x, y, z int, s blocks.State) bool {
	if s.Kind == blocks.Unknown || s.Kind == blocks.Air {
		return true
	}
	d := c.Def(s)
	if c.avoid[s.Kind] {
		return false
	}
	switch d.Class {
	case blocks.ClassAir, blocks.ClassPlant, blocks.ClassTorch, blocks.ClassCarpet,
		blocks.ClassLadder, blocks.ClassVine:
		return true
	case blocks.ClassSnow:
		// one or two layers are stepped through; the cell below still has to carry the agent
		return s.Meta <= 2
	case blocks.ClassDoor, blocks.ClassGate:
		// opened by hand on the way through
		return true
	case blocks.ClassIronDoor:
		return s.Meta == 1
	case blocks.ClassWater:
		// a walkable surface is never also a cell to stand in
		return !IsFlowingState(s) && !c.AssumeWalkOnWater
	case blocks.ClassLava:
		return false
	case blocks.ClassLilyPad:
		return true
	}
	return false
}

// FullyPassable is stricter than CanWalkThrough: nothing in the cell may slow, hold or
// redirect a falling or walking body.
func (c *Context) FullyPassable(x, y, z int) bool {
	return c.FullyPassableState(c.Get(x, y, z))
}

func (c *Context) FullyPassableState(s blocks.State) bool {
	if s.Kind == blocks.Unknown || s.Kind == blocks.Air {
		return true
	}
	switch c.Def(s).Class {
	case blocks.ClassAir, blocks.ClassPlant, blocks.ClassTorch, blocks.ClassCarpet:
		return !c.avoid[s.Kind]
	}
	return false
}

func (c *Context) CanWalkOn(x, y, z int) bool {
	return c.CanWalkOnState(x, y, z, c.Get(x, y, z))
}

// CanWalkOnState reports whether the agent can stand on top of a cell holding s.
func (c *Context) CanWalkOnState(x, y, z int, s blocks.State) bool {
	if s.Kind == blocks.Unknown || s.Kind == blocks.Air {
		return false
	}
	d := c.Def(s)
	switch d.Class {
	case blocks.ClassMagma:
		return false
	case blocks.ClassSolid, blocks.ClassSoulSand, blocks.ClassIce, blocks.ClassInfested,
		blocks.ClassFarmland, blocks.ClassGlass, blocks.ClassStairs, blocks.ClassChest,
		blocks.ClassLadder, blocks.ClassScaffolding:
		return true
	case blocks.ClassSlab:
		if s.Meta == blocks.SlabBottom {
			return c.AllowWalkOnBottomSlab
		}
		return true
	case blocks.ClassSnow:
		return s.Meta >= 8
	case blocks.ClassWater:
		up := c.Get(x, y+1, z)
		upClass := c.Def(up).Class
		if upClass == blocks.ClassLilyPad || upClass == blocks.ClassCarpet {
			return true
		}
		if IsFlowingState(s) || upClass == blocks.ClassWater {
			return false
		}
		return c.AssumeWalkOnWater
	case blocks.ClassLava:
		return c.AssumeWalkOnLava && !IsFlowingState(s)
	}
	return false
}

// IsReplaceable reports whether placing a block into the cell needs no prior break.
func (c *Context) IsReplaceable(x, y, z int) bool {
	s := c.Get(x, y, z)
	if s.Kind == blocks.Unknown || s.Kind == blocks.Air {
		return true
	}
	switch c.Def(s).Class {
	case blocks.ClassAir, blocks.ClassPlant, blocks.ClassFire, blocks.ClassVine,
		blocks.ClassWater, blocks.ClassLava:
		return true
	case blocks.ClassSnow:
		return s.Meta <= 1
	}
	return false
}

func (c *Context) CanPlaceAgainst(x, y, z int) bool {
	s := c.Get(x, y, z)
	if s.Kind == blocks.Unknown {
		return false
	}
	d := c.Def(s)
	if d.FullCube() || d.Class == blocks.ClassGlass {
		return true
	}
	return d.Class == blocks.ClassSlab && s.Meta == blocks.SlabDouble
}

// AvoidBreaking reports whether breaking the cell could release liquid or falling blocks
// into the agent's path, or is forbidden outright.
func (c *Context) AvoidBreaking(x, y, z int, s blocks.State) bool {
	if !c.border.CanPlaceAt(x, z) {
		return true
	}
	if c.disallowBreaking[s.Kind] {
		return true
	}
	switch c.Def(s).Class {
	case blocks.ClassIce, blocks.ClassInfested:
		return true
	}
	return c.avoidAdjacentBreaking(x, y+1, z, true) ||
		c.avoidAdjacentBreaking(x+1, y, z, false) ||
		c.avoidAdjacentBreaking(x-1, y, z, false) ||
		c.avoidAdjacentBreaking(x, y, z+1, false) ||
		c.avoidAdjacentBreaking(x, y, z-1, false)
}

// avoidAdjacentBreaking looks at one neighbour of a cell about to be broken. A falling
// block directly above is allowed; its cost is added by MiningCost.
func (c *Context) avoidAdjacentBreaking(x, y, z int, directlyAbove bool) bool {
	s := c.Get(x, y, z)
	d := c.Def(s)
	if !directlyAbove && d.Falling && c.AvoidUpdatingFallingBlocks && c.fallingFree(x, y-1, z) {
		return true
	}
	if d.Liquid() && c.AvoidBreakingNearLiquid {
		return true
	}
	return false
}

// fallingFree reports whether a falling block resting on the cell would drop into it.
func (c *Context) fallingFree(x, y, z int) bool {
	s := c.Get(x, y, z)
	if s.Kind == blocks.Unknown || s.Kind == blocks.Air {
		return true
	}
	switch c.Def(s).Class {
	case blocks.ClassAir, blocks.ClassFire, blocks.ClassWater, blocks.ClassLava, blocks.ClassPlant:
		return true
	}
	return false
}

// AvoidWalkingInto reports cells that hurt or trap the agent.
func (c *Context) AvoidWalkingInto(s blocks.State) bool {
	if c.avoid[s.Kind] {
		return true
	}
	switch c.Def(s).Class {
	case blocks.ClassMagma, blocks.ClassCactus, blocks.ClassFire, blocks.ClassWeb, blocks.ClassLava:
		return true
	}
	return false
}

func (c *Context) IsWater(s blocks.State) bool { return c.Def(s).Class == blocks.ClassWater }

func (c *Context) IsLava(s blocks.State) bool { return c.Def(s).Class == blocks.ClassLava }

func (c *Context) IsLiquid(s blocks.State) bool { return c.Def(s).Liquid() }

func (c *Context) IsClimbable(s blocks.State) bool { return c.Def(s).Climbable() }

func (c *Context) IsBottomSlab(s blocks.State) bool {
	return c.Def(s).Class == blocks.ClassSlab && s.Meta == blocks.SlabBottom
}

func (c *Context) IsFalling(s blocks.State) bool { return c.Def(s).Falling }

// IsOpenable reports a closed door or gate the agent can open by hand.
func (c *Context) IsOpenable(s blocks.State) bool {
	cl := c.Def(s).Class
	return (cl == blocks.ClassDoor || cl == blocks.ClassGate) && s.Meta == 0
}

// IsFlowingState reports a liquid that is not a source.
func IsFlowingState(s blocks.State) bool { return s.Meta != 0 }

func (c *Context) IsFlowing(x, y, z int) bool {
	s := c.Get(x, y, z)
	return c.IsLiquid(s) && IsFlowingState(s)
}

// MiningCost is the number of ticks needed to clear a cell, 0 when it is already
// passable, or Inf. With includeFalling the cost of every falling block stacked above is
// added, since each one drops into the cell in turn.
func (c *Context) MiningCost(x, y, z int, s blocks.State, includeFalling bool) float64 {
	if c.CanWalkThroughState(x, y, z, s) {
		return 0
	}
	if c.IsLiquid(s) {
		return Inf
	}
	mult := c.BreakCostMultiplierAt(x, y, z, s)
	if mult >= Inf {
		return Inf
	}
	if c.AvoidBreaking(x, y, z, s) {
		return Inf
	}
	str := c.tools.Strength(s)
	if str <= 0 {
		return Inf
	}
	result := (1/str + c.BreakAdditionalCost) * mult
	if includeFalling {
		above := c.Get(x, y+1, z)
		if c.IsFalling(above) {
			result = Add(result, c.MiningCost(x, y+1, z, above, true))
		}
	}
	return result
}
