// Package goals describes where the agent wants to be: a membership test plus a distance
// estimate the search orders its frontier by.
package goals

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/movement/cost"
)

// DefaultCostHeuristic scales the horizontal part of every heuristic when a goal carries
// no coefficient of its own.
const DefaultCostHeuristic = 3.563

// Goal must be pure: the search and the scheduler call it from different goroutines.
type Goal interface {
	InGoal(x, y, z int) bool
	Heuristic(x, y, z int) float64
	String() string
}

// Contains is InGoal over a position.
func Contains(g Goal, p geom.Pos) bool { return g.InGoal(p.X, p.Y, p.Z) }

// HeuristicAt is Heuristic over a position.
func HeuristicAt(g Goal, p geom.Pos) float64 { return g.Heuristic(p.X, p.Y, p.Z) }

// Equal reports whether two goals describe the same target.
func Equal(a, b Goal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a, b)
}

func coeff(c float64) float64 {
	if c <= 0 {
		return DefaultCostHeuristic
	}
	return c
}

// xzCost is the octile distance over the column grid scaled by c.
func xzCost(dx, dz int, c float64) float64 {
	x, z := math.Abs(float64(dx)), math.Abs(float64(dz))
	straight, diagonal := x-z, z
	if x < z {
		straight, diagonal = z-x, x
	}
	return (diagonal*cost.Sqrt2 + straight) * coeff(c)
}

// yCost estimates the vertical part: falling is cheap per block, jumping is not.
func yCost(goalY, y int) float64 {
	switch {
	case y > goalY:
		return cost.FallNBlocksCost[2] / 2 * float64(y-goalY)
	case y < goalY:
		return float64(goalY-y) * cost.JumpOneBlockCost
	}
	return 0
}

func blockCost(dx, dy, dz int, c float64) float64 {
	return yCost(0, dy) + xzCost(dx, dz, c)
}

// Block is a single cell the feet must occupy.
type Block struct {
	Pos   geom.Pos
	Coeff float64
}

func NewBlock(p geom.Pos) Block { return Block{Pos: p} }

func (g Block) InGoal(x, y, z int) bool { return x == g.Pos.X && y == g.Pos.Y && z == g.Pos.Z }

func (g Block) Heuristic(x, y, z int) float64 {
	return blockCost(x-g.Pos.X, y-g.Pos.Y, z-g.Pos.Z, g.Coeff)
}

func (g Block) String() string { return "block{" + g.Pos.String() + "}" }

// TwoBlocks is satisfied when either the feet or the head occupy Pos.
type TwoBlocks struct {
	Pos   geom.Pos
	Coeff float64
}

func (g TwoBlocks) InGoal(x, y, z int) bool {
	return x == g.Pos.X && z == g.Pos.Z && (y == g.Pos.Y || y == g.Pos.Y-1)
}

func (g TwoBlocks) Heuristic(x, y, z int) float64 {
	dy := y - g.Pos.Y
	if dy < 0 {
		dy++
	}
	return blockCost(x-g.Pos.X, dy, z-g.Pos.Z, g.Coeff)
}

func (g TwoBlocks) String() string { return "two_blocks{" + g.Pos.String() + "}" }

// GetToBlock is satisfied when standing next to Pos, including directly above it or with
// the head beside it.
type GetToBlock struct {
	Pos   geom.Pos
	Coeff float64
}

func (g GetToBlock) InGoal(x, y, z int) bool {
	dx, dy, dz := x-g.Pos.X, y-g.Pos.Y, z-g.Pos.Z
	if dy < 0 {
		dy++
	}
	return iabs(dx)+iabs(dy)+iabs(dz) <= 1
}

func (g GetToBlock) Heuristic(x, y, z int) float64 {
	return blockCost(x-g.Pos.X, y-g.Pos.Y, z-g.Pos.Z, g.Coeff)
}

func (g GetToBlock) String() string { return "get_to_block{" + g.Pos.String() + "}" }

// Near is satisfied within Range blocks (euclidean) of Pos.
type Near struct {
	Pos   geom.Pos
	Range int
	Coeff float64
}

func (g Near) InGoal(x, y, z int) bool {
	return geom.P(x, y, z).DistanceSq(g.Pos) <= g.Range*g.Range
}

func (g Near) Heuristic(x, y, z int) float64 {
	return blockCost(x-g.Pos.X, y-g.Pos.Y, z-g.Pos.Z, g.Coeff)
}

func (g Near) String() string { return fmt.Sprintf("near{%s r=%d}", g.Pos, g.Range) }

// XZ is a column: any height will do.
type XZ struct {
	X, Z  int
	Coeff float64
}

func (g XZ) InGoal(x, _, z int) bool { return x == g.X && z == g.Z }

func (g XZ) Heuristic(x, _, z int) float64 { return xzCost(x-g.X, z-g.Z, g.Coeff) }

func (g XZ) String() string { return fmt.Sprintf("xz{%d,%d}", g.X, g.Z) }

// YLevel is any cell at height Y.
type YLevel struct {
	Y int
}

func (g YLevel) InGoal(_, y, _ int) bool { return y == g.Y }

func (g YLevel) Heuristic(_, y, _ int) float64 { return yCost(g.Y, y) }

func (g YLevel) String() string { return fmt.Sprintf("y_level{%d}", g.Y) }

// Composite is satisfied by any member. Its heuristic is the smallest member heuristic.
type Composite struct {
	Goals []Goal
}

func NewComposite(gs ...Goal) Composite { return Composite{Goals: gs} }

func (g Composite) InGoal(x, y, z int) bool {
	for _, m := range g.Goals {
		if m.InGoal(x, y, z) {
			return true
		}
	}
	return false
}

func (g Composite) Heuristic(x, y, z int) float64 {
	best := math.Inf(1)
	for _, m := range g.Goals {
		if h := m.Heuristic(x, y, z); h < best {
			best = h
		}
	}
	return best
}

func (g Composite) String() string {
	parts := make([]string, len(g.Goals))
	for i, m := range g.Goals {
		parts[i] = m.String()
	}
	return "any{" + strings.Join(parts, ", ") + "}"
}

// Inverted is never reached; its heuristic rewards distance from Origin. Used to flee.
type Inverted struct {
	Origin Goal
}

func (g Inverted) InGoal(int, int, int) bool { return false }

func (g Inverted) Heuristic(x, y, z int) float64 { return -g.Origin.Heuristic(x, y, z) }

func (g Inverted) String() string { return "inverted{" + g.Origin.String() + "}" }

// StrictDirection is never reached; it rewards progress along Dir from Origin and
// punishes drifting sideways or vertically.
type StrictDirection struct {
	Origin geom.Pos
	Dir    geom.Direction
}

func (g StrictDirection) InGoal(int, int, int) bool { return false }

func (g StrictDirection) Heuristic(x, y, z int) float64 {
	o := g.Dir.Offset()
	dx, dz := x-g.Origin.X, z-g.Origin.Z
	along := dx*o.X + dz*o.Z
	across := iabs(dx*o.Z) + iabs(dz*o.X)
	vertical := iabs(y - g.Origin.Y)
	return float64(-along*100 + across*1000 + vertical*1000)
}

func (g StrictDirection) String() string {
	return fmt.Sprintf("strict_direction{%s %s}", g.Origin, g.Dir)
}

// Tune returns g with every horizontal coefficient it carries set to c, recursing through
// Composite and Inverted.
func Tune(g Goal, c float64) Goal {
	switch v := g.(type) {
	case Block:
		v.Coeff = c
		return v
	case TwoBlocks:
		v.Coeff = c
		return v
	case GetToBlock:
		v.Coeff = c
		return v
	case Near:
		v.Coeff = c
		return v
	case XZ:
		v.Coeff = c
		return v
	case Composite:
		out := make([]Goal, len(v.Goals))
		for i, m := range v.Goals {
			out[i] = Tune(m, c)
		}
		return Composite{Goals: out}
	case Inverted:
		return Inverted{Origin: Tune(v.Origin, c)}
	}
	return g
}

func iabs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
