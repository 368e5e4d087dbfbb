package movement

import (
	"math"

	"voxelmotion.ai/internal/sim/blocks"
	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/movement/cost"
)

func traverseCost(ctx *cost.Context, x, y, z, destX, destZ int) float64 {
	pb0 := ctx.Get(destX, y+1, destZ)
	pb1 := ctx.Get(destX, y, destZ)
	destOn := ctx.Get(destX, y-1, destZ)
	srcDown := ctx.Get(x, y-1, z)
	if ctx.CanWalkOnState(destX, y-1, destZ, destOn) {
		wc := cost.WalkOneBlockCost
		water := false
		if ctx.IsWater(pb0) || ctx.IsWater(pb1) {
			wc = ctx.WaterWalkSpeed
			water = true
		} else {
			if isClass(ctx, destOn, blocks.ClassSoulSand) {
				wc += (cost.WalkOneOverSoulSandCost - cost.WalkOneBlockCost) / 2
			} else if ctx.IsWater(destOn) {
				wc += ctx.WalkOnWaterOnePenalty
			}
			if isClass(ctx, srcDown, blocks.ClassSoulSand) {
				wc += (cost.WalkOneOverSoulSandCost - cost.WalkOneBlockCost) / 2
			}
		}
		if ctx.AvoidWalkingInto(pb1) || ctx.AvoidWalkingInto(pb0) {
			return cost.Inf
		}
		h1 := ctx.MiningCost(destX, y, destZ, pb1, false)
		if h1 >= cost.Inf {
			return cost.Inf
		}
		h2 := ctx.MiningCost(destX, y+1, destZ, pb0, true)
		if h1 == 0 && h2 == 0 {
			if !water && ctx.CanSprint {
				wc *= cost.SprintMultiplier
			}
			return wc
		}
		if ctx.IsClimbable(srcDown) {
			h1 *= 5
			h2 *= 5
		}
		return cost.Add(wc, h1, h2)
	}

	// bridge: place a block under the destination first
	if ctx.IsClimbable(srcDown) {
		return cost.Inf
	}
	if !ctx.IsReplaceable(destX, y-1, destZ) {
		return cost.Inf
	}
	throughWater := ctx.IsWater(pb0) || ctx.IsWater(pb1)
	if ctx.IsWater(destOn) && throughWater {
		return cost.Inf
	}
	wc := cost.WalkOneBlockCost
	if throughWater {
		wc = ctx.WaterWalkSpeed
	}
	place := ctx.PlaceCost(destX, y-1, destZ)
	if place >= cost.Inf {
		return cost.Inf
	}
	h1 := ctx.MiningCost(destX, y, destZ, pb1, false)
	if h1 >= cost.Inf {
		return cost.Inf
	}
	h2 := ctx.MiningCost(destX, y+1, destZ, pb0, true)
	if h2 >= cost.Inf {
		return cost.Inf
	}
	wc += h1 + h2
	for _, dir := range geom.HorizontalsAndDown {
		ax, ay, az := destX+dir.Offset().X, y-1+dir.Offset().Y, destZ+dir.Offset().Z
		if ax == x && az == z && ay == y-1 {
			// the block we stand on is only usable by sneaking back over the edge
			continue
		}
		if ctx.CanPlaceAgainst(ax, ay, az) {
			return cost.Add(wc, place)
		}
	}
	if isClass(ctx, srcDown, blocks.ClassSoulSand) || (isClass(ctx, srcDown, blocks.ClassSlab) && srcDown.Meta != blocks.SlabDouble) {
		return cost.Inf
	}
	if !ctx.CanPlaceAgainst(x, y-1, z) {
		return cost.Inf
	}
	wc *= cost.SneakOneBlockCost / cost.WalkOneBlockCost
	return cost.Add(wc, place)
}

func ascendCost(ctx *cost.Context, x, y, z, destX, destZ int) float64 {
	toPlace := ctx.Get(destX, y, destZ)
	placement := 0.0
	if !ctx.CanWalkOnState(destX, y, destZ, toPlace) {
		placement = ctx.PlaceCost(destX, y, destZ)
		if placement >= cost.Inf {
			return cost.Inf
		}
		if !ctx.IsReplaceable(destX, y, destZ) {
			return cost.Inf
		}
		found := false
		for _, dir := range geom.HorizontalsAndDown {
			ax, ay, az := destX+dir.Offset().X, y+dir.Offset().Y, destZ+dir.Offset().Z
			if ax == x && az == z {
				continue
			}
			if ctx.CanPlaceAgainst(ax, ay, az) {
				found = true
				break
			}
		}
		if !found {
			return cost.Inf
		}
	}
	srcUp2 := ctx.Get(x, y+2, z)
	if ctx.IsFalling(ctx.Get(x, y+3, z)) && (ctx.CanWalkThrough(x, y+1, z) || !ctx.IsFalling(srcUp2)) {
		// breaking the head block would drop the column onto the agent
		return cost.Inf
	}
	srcDown := ctx.Get(x, y-1, z)
	if ctx.IsClimbable(srcDown) {
		return cost.Inf
	}
	fromSlab := ctx.IsBottomSlab(srcDown)
	toSlab := ctx.IsBottomSlab(toPlace)
	if fromSlab && !toSlab {
		return cost.Inf
	}
	var walk float64
	if toSlab {
		if fromSlab {
			walk = math.Max(cost.JumpOneBlockCost, cost.WalkOneBlockCost) + ctx.JumpPenalty
		} else {
			walk = cost.WalkOneBlockCost
		}
	} else {
		if isClass(ctx, toPlace, blocks.ClassSoulSand) {
			walk = cost.WalkOneOverSoulSandCost
		} else {
			walk = math.Max(cost.JumpOneBlockCost, cost.WalkOneBlockCost)
		}
		walk += ctx.JumpPenalty
	}
	total := walk + placement
	total = cost.Add(total, ctx.MiningCost(x, y+2, z, srcUp2, false))
	if total >= cost.Inf {
		return cost.Inf
	}
	dest1 := ctx.Get(destX, y+1, destZ)
	if ctx.AvoidWalkingInto(dest1) {
		return cost.Inf
	}
	total = cost.Add(total, ctx.MiningCost(destX, y+1, destZ, dest1, false))
	if total >= cost.Inf {
		return cost.Inf
	}
	return cost.Add(total, ctx.MiningCost(destX, y+2, destZ, ctx.Get(destX, y+2, destZ), true))
}

func descendCost(ctx *cost.Context, x, y, z, destX, destZ int, res *MoveResult) {
	res.X, res.Y, res.Z = destX, y-1, destZ
	res.Cost = cost.Inf
	destDown := ctx.Get(destX, y-1, destZ)
	total := ctx.MiningCost(destX, y-1, destZ, destDown, false)
	if total >= cost.Inf {
		return
	}
	total = cost.Add(total, ctx.MiningCost(destX, y, destZ, ctx.Get(destX, y, destZ), false))
	if total >= cost.Inf {
		return
	}
	total = cost.Add(total, ctx.MiningCost(destX, y+1, destZ, ctx.Get(destX, y+1, destZ), true))
	if total >= cost.Inf {
		return
	}
	fromDown := ctx.Get(x, y-1, z)
	if ctx.IsClimbable(fromDown) {
		return
	}
	below := ctx.Get(destX, y-2, destZ)
	if !ctx.CanWalkOnState(destX, y-2, destZ, below) {
		dynamicFallCost(ctx, x, y, z, destX, destZ, total, below, res)
		return
	}
	if ctx.IsClimbable(destDown) {
		return
	}
	walk := cost.WalkOffBlockCost
	if isClass(ctx, fromDown, blocks.ClassSoulSand) {
		walk = cost.WalkOneOverSoulSandCost / 2
	}
	res.Cost = total + walk + math.Max(cost.FallNBlocksCost[1], cost.CenterAfterFallCost)
}

// dynamicFallCost probes down the destination column for a landing. It reports whether
// the landing needs a water bucket.
func dynamicFallCost(ctx *cost.Context, x, y, z, destX, destZ int, frontBreak float64, below blocks.State, res *MoveResult) bool {
	if frontBreak != 0 && ctx.IsFalling(ctx.Get(destX, y+2, destZ)) {
		// breaking in front would let the falling block drop down the column
		return false
	}
	if !ctx.CanWalkThroughState(destX, y-2, destZ, below) {
		return false
	}
	costSoFar := 0.0
	effectiveStart := y
	for fallHeight := 3; ; fallHeight++ {
		newY := y - fallHeight
		if newY < 0 {
			return false
		}
		onto := ctx.Get(destX, newY, destZ)
		unprotected := fallHeight - (y - effectiveStart)
		if unprotected >= len(cost.FallNBlocksCost) {
			return false
		}
		tentative := cost.WalkOffBlockCost + cost.FallNBlocksCost[unprotected] + frontBreak + costSoFar
		if ctx.IsWater(onto) {
			if !ctx.CanWalkThroughState(destX, newY, destZ, onto) || ctx.AssumeWalkOnWater {
				return false
			}
			if cost.IsFlowingState(onto) {
				return false
			}
			if !ctx.CanWalkOn(destX, newY-1, destZ) {
				// would sink through into whatever is below
				return false
			}
			res.X, res.Y, res.Z, res.Cost = destX, newY, destZ, tentative
			return false
		}
		if ctx.AllowFallIntoLava && ctx.IsLava(onto) {
			res.X, res.Y, res.Z, res.Cost = destX, newY, destZ, tentative
			return false
		}
		if unprotected <= 11 && ctx.IsClimbable(onto) {
			// grabbing a ladder or vine resets the fall
			costSoFar += cost.FallNBlocksCost[unprotected-1] + cost.LadderDownOneCost
			effectiveStart = newY
			continue
		}
		if ctx.CanWalkThroughState(destX, newY, destZ, onto) {
			continue
		}
		if !ctx.CanWalkOnState(destX, newY, destZ, onto) || ctx.IsBottomSlab(onto) {
			return false
		}
		if unprotected <= ctx.MaxFallHeightNoWater+1 {
			res.X, res.Y, res.Z, res.Cost = destX, newY+1, destZ, tentative
			return false
		}
		if ctx.HasWaterBucket && unprotected <= ctx.MaxFallHeightBucket+1 {
			res.X, res.Y, res.Z = destX, newY+1, destZ
			res.Cost = cost.Add(tentative, ctx.PlaceBucketCost())
			return true
		}
		return false
	}
}

// diagonalCost prices a corner-free diagonal step. Both shoulder cells must be clear at feet
// and head height; nothing is mined on the way.
func diagonalCost(ctx *cost.Context, x, y, z, destX, destZ int, res *MoveResult) {
	res.X, res.Y, res.Z = destX, y, destZ
	res.Cost = cost.Inf
	if !ctx.Loaded(destX, destZ) {
		return
	}
	if !ctx.CanWalkThrough(destX, y+1, destZ) {
		return
	}
	destInto := ctx.Get(destX, y, destZ)
	ascend, descend := false, false
	var destWalkOn blocks.State
	if !ctx.CanWalkThroughState(destX, y, destZ, destInto) {
		ascend = true
		if !ctx.AllowDiagonalAscend || !ctx.CanWalkThrough(x, y+2, z) || !ctx.CanWalkOnState(destX, y, destZ, destInto) || !ctx.CanWalkThrough(destX, y+2, destZ) {
			return
		}
		destWalkOn = destInto
	} else {
		destWalkOn = ctx.Get(destX, y-1, destZ)
		if !ctx.CanWalkOnState(destX, y-1, destZ, destWalkOn) {
			descend = true
			if !ctx.AllowDiagonalDescend || !ctx.CanWalkOn(destX, y-2, destZ) || !ctx.CanWalkThroughState(destX, y-1, destZ, destWalkOn) {
				return
			}
		}
	}
	mult := cost.WalkOneBlockCost
	if isClass(ctx, destWalkOn, blocks.ClassSoulSand) {
		mult += (cost.WalkOneOverSoulSandCost - cost.WalkOneBlockCost) / 2
	} else if ctx.IsWater(destWalkOn) {
		mult += ctx.WalkOnWaterOnePenalty * cost.Sqrt2
	}
	fromDown := ctx.Get(x, y-1, z)
	if ctx.IsClimbable(fromDown) {
		return
	}
	if isClass(ctx, fromDown, blocks.ClassSoulSand) {
		mult += (cost.WalkOneOverSoulSandCost - cost.WalkOneBlockCost) / 2
	}
	for _, under := range [2]blocks.State{ctx.Get(x, y-1, destZ), ctx.Get(destX, y-1, z)} {
		if isClass(ctx, under, blocks.ClassMagma) || ctx.IsLava(under) {
			return
		}
	}
	water := false
	if ctx.IsWater(ctx.Get(x, y, z)) || ctx.IsWater(destInto) {
		if ascend {
			return
		}
		mult = ctx.WaterWalkSpeed
		water = true
	}

	top := 1
	if ascend {
		top = 2
	}
	for _, sh := range [2][2]int{{x, destZ}, {destX, z}} {
		for dy := 0; dy <= top; dy++ {
			s := ctx.Get(sh[0], y+dy, sh[1])
			if !ctx.CanWalkThroughState(sh[0], y+dy, sh[1], s) {
				return
			}
			if ctx.AvoidWalkingInto(s) {
				return
			}
		}
	}
	if ascend {
		res.Y = y + 1
		res.Cost = mult*cost.Sqrt2 + cost.JumpOneBlockCost
		return
	}
	if ctx.CanSprint && !water {
		mult *= cost.SprintMultiplier
	}
	res.Cost = mult * cost.Sqrt2
	if descend {
		res.Cost += math.Max(cost.FallNBlocksCost[1], cost.CenterAfterFallCost)
		res.Y = y - 1
	}
}

func pillarCost(ctx *cost.Context, x, y, z int) float64 {
	from := ctx.Get(x, y, z)
	ladder := ctx.IsClimbable(from)
	fromDown := ctx.Get(x, y-1, z)
	if !ladder {
		if ctx.IsClimbable(fromDown) || ctx.IsBottomSlab(fromDown) {
			return cost.Inf
		}
	}
	if isClass(ctx, from, blocks.ClassVine) && !hasAgainst(ctx, x, y, z) {
		return cost.Inf
	}
	toBreak := ctx.Get(x, y+2, z)
	if isClass(ctx, toBreak, blocks.ClassGate) {
		return cost.Inf
	}
	var srcUp blocks.State
	srcUpRead := false
	if ctx.IsWater(toBreak) && ctx.IsWater(from) {
		srcUp = ctx.Get(x, y+1, z)
		srcUpRead = true
		if ctx.IsWater(srcUp) {
			// a water column: swim up
			return cost.LadderUpOneCost
		}
	}
	place := 0.0
	if !ladder {
		place = ctx.PlaceCost(x, y, z)
		if place >= cost.Inf {
			return cost.Inf
		}
		if fromDown.Kind == blocks.Air {
			place += 0.1
		}
	}
	if (ctx.IsLiquid(from) && !ctx.CanPlaceAgainst(x, y-1, z)) || (ctx.IsLiquid(fromDown) && ctx.AssumeWalkOnWater) {
		return cost.Inf
	}
	hardness := ctx.MiningCost(x, y+2, z, toBreak, true)
	if hardness >= cost.Inf {
		return cost.Inf
	}
	if hardness != 0 {
		if ctx.IsClimbable(toBreak) {
			hardness = 0
		} else if ctx.IsFalling(ctx.Get(x, y+3, z)) {
			if !srcUpRead {
				srcUp = ctx.Get(x, y+1, z)
			}
			if !ctx.IsFalling(toBreak) || !ctx.IsFalling(srcUp) {
				return cost.Inf
			}
		}
	}
	if ladder {
		return cost.LadderUpOneCost + hardness*5
	}
	return cost.JumpOneBlockCost + place + ctx.JumpPenalty + hardness
}

func hasAgainst(ctx *cost.Context, x, y, z int) bool {
	for _, d := range geom.Horizontals {
		o := d.Offset()
		if ctx.Def(ctx.Get(x+o.X, y, z+o.Z)).FullCube() {
			return true
		}
	}
	return false
}

func downwardCost(ctx *cost.Context, x, y, z int) float64 {
	if !ctx.AllowDownward {
		return cost.Inf
	}
	if !ctx.CanWalkOn(x, y-2, z) {
		return cost.Inf
	}
	down := ctx.Get(x, y-1, z)
	if ctx.IsClimbable(down) {
		return cost.LadderDownOneCost
	}
	// the block is underfoot, so anything falling onto it lands in the cell already vacated
	return cost.Add(cost.FallNBlocksCost[1], ctx.MiningCost(x, y-1, z, down, false))
}

// MaxParkourGap is the longest horizontal leap, in blocks from the takeoff cell.
const MaxParkourGap = 4

func parkourCost(ctx *cost.Context, x, y, z, dx, dz int, res *MoveResult) {
	res.X, res.Y, res.Z = x, y, z
	res.Cost = cost.Inf
	if !ctx.AllowParkour {
		return
	}
	if y+3 >= ctx.Height() {
		return
	}
	if !ctx.FullyPassable(x+dx, y, z+dz) {
		return
	}
	adj := ctx.Get(x+dx, y-1, z+dz)
	if ctx.CanWalkOnState(x+dx, y-1, z+dz, adj) {
		// a plain traverse does this
		return
	}
	if ctx.AvoidWalkingInto(adj) && !ctx.IsWater(adj) {
		return
	}
	if !ctx.FullyPassable(x+dx, y+1, z+dz) || !ctx.FullyPassable(x+dx, y+2, z+dz) || !ctx.FullyPassable(x, y+2, z) {
		return
	}
	standingOn := ctx.Get(x, y-1, z)
	if ctx.IsClimbable(standingOn) || isClass(ctx, standingOn, blocks.ClassStairs) || ctx.IsBottomSlab(standingOn) || ctx.IsLiquid(standingOn) {
		return
	}
	maxJump := 3
	switch {
	case isClass(ctx, standingOn, blocks.ClassSoulSand):
		maxJump = 2
	case ctx.CanSprint:
		maxJump = MaxParkourGap
	}
	for i := 2; i <= maxJump; i++ {
		destX, destZ := x+dx*i, z+dz*i
		if !ctx.FullyPassable(destX, y+1, destZ) || !ctx.FullyPassable(destX, y+2, destZ) {
			return
		}
		destInto := ctx.Get(destX, y, destZ)
		if !ctx.FullyPassableState(destInto) {
			if i <= 3 && ctx.AllowParkourAscend && ctx.CanSprint && ctx.CanWalkOnState(destX, y, destZ, destInto) && overshootSafe(ctx, destX+dx, y+1, destZ+dz) {
				res.X, res.Y, res.Z = destX, y+1, destZ
				res.Cost = float64(i)*cost.SprintOneBlockCost + ctx.JumpPenalty
			}
			return
		}
		landing := ctx.Get(destX, y-1, destZ)
		if !isClass(ctx, landing, blocks.ClassFarmland) && ctx.CanWalkOnState(destX, y-1, destZ, landing) {
			if overshootSafe(ctx, destX+dx, y, destZ+dz) {
				res.X, res.Y, res.Z = destX, y, destZ
				res.Cost = costFromJumpDistance(i) + ctx.JumpPenalty
			}
			return
		}
		if !ctx.FullyPassable(destX, y+3, destZ) {
			return
		}
	}
}

func overshootSafe(ctx *cost.Context, x, y, z int) bool {
	return !ctx.AvoidWalkingInto(ctx.Get(x, y, z)) && !ctx.AvoidWalkingInto(ctx.Get(x, y+1, z))
}

func costFromJumpDistance(dist int) float64 {
	switch dist {
	case 2:
		return cost.WalkOneBlockCost * 2
	case 3:
		return cost.WalkOneBlockCost * 3
	case 4:
		return cost.SprintOneBlockCost * 4
	}
	panic("movement: parkour distance out of range")
}

func isClass(ctx *cost.Context, s blocks.State, c blocks.Class) bool {
	return ctx.Def(s).Class == c
}
