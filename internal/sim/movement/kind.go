package movement

import (
	"fmt"

	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/movement/cost"
)

// Kind is one movement template: a geometric transition between neighbouring cells. The
// set is closed; every Kind has a pure cost function and a constructor for the stateful
// Movement that executes it.
type Kind uint8

const (
	Downward Kind = iota
	Pillar

	TraverseNorth
	TraverseSouth
	TraverseEast
	TraverseWest

	AscendNorth
	AscendSouth
	AscendEast
	AscendWest

	DescendNorth
	DescendSouth
	DescendEast
	DescendWest

	DiagonalNorthEast
	DiagonalNorthWest
	DiagonalSouthEast
	DiagonalSouthWest

	ParkourNorth
	ParkourSouth
	ParkourEast
	ParkourWest

	kindCount
)

// Family groups templates that share a cost function and an execution strategy. Descend
// templates resolve to either FamilyDescend or FamilyFall once the landing is known.
type Family uint8

const (
	FamilyTraverse Family = iota
	FamilyAscend
	FamilyDescend
	FamilyFall
	FamilyDiagonal
	FamilyPillar
	FamilyDownward
	FamilyParkour
)

var familyNames = [...]string{"traverse", "ascend", "descend", "fall", "diagonal", "pillar", "downward", "parkour"}

func (f Family) String() string {
	if int(f) < len(familyNames) {
		return familyNames[f]
	}
	return "invalid"
}

// Template describes the fixed part of a Kind. Dynamic templates only know the direction
// they probe; the landing cell is discovered by the cost function.
type Template struct {
	Kind      Kind
	Name      string
	Family    Family
	DX        int
	DY        int
	DZ        int
	DynamicXZ bool
	DynamicY  bool
}

var templates = [kindCount]Template{
	Downward: {Name: "downward", Family: FamilyDownward, DY: -1},
	Pillar:   {Name: "pillar", Family: FamilyPillar, DY: 1},

	TraverseNorth: {Name: "traverse_north", Family: FamilyTraverse, DZ: -1},
	TraverseSouth: {Name: "traverse_south", Family: FamilyTraverse, DZ: 1},
	TraverseEast:  {Name: "traverse_east", Family: FamilyTraverse, DX: 1},
	TraverseWest:  {Name: "traverse_west", Family: FamilyTraverse, DX: -1},

	AscendNorth: {Name: "ascend_north", Family: FamilyAscend, DY: 1, DZ: -1},
	AscendSouth: {Name: "ascend_south", Family: FamilyAscend, DY: 1, DZ: 1},
	AscendEast:  {Name: "ascend_east", Family: FamilyAscend, DX: 1, DY: 1},
	AscendWest:  {Name: "ascend_west", Family: FamilyAscend, DX: -1, DY: 1},

	DescendNorth: {Name: "descend_north", Family: FamilyDescend, DY: -1, DZ: -1, DynamicY: true},
	DescendSouth: {Name: "descend_south", Family: FamilyDescend, DY: -1, DZ: 1, DynamicY: true},
	DescendEast:  {Name: "descend_east", Family: FamilyDescend, DX: 1, DY: -1, DynamicY: true},
	DescendWest:  {Name: "descend_west", Family: FamilyDescend, DX: -1, DY: -1, DynamicY: true},

	DiagonalNorthEast: {Name: "diagonal_northeast", Family: FamilyDiagonal, DX: 1, DZ: -1, DynamicY: true},
	DiagonalNorthWest: {Name: "diagonal_northwest", Family: FamilyDiagonal, DX: -1, DZ: -1, DynamicY: true},
	DiagonalSouthEast: {Name: "diagonal_southeast", Family: FamilyDiagonal, DX: 1, DZ: 1, DynamicY: true},
	DiagonalSouthWest: {Name: "diagonal_southwest", Family: FamilyDiagonal, DX: -1, DZ: 1, DynamicY: true},

	ParkourNorth: {Name: "parkour_north", Family: FamilyParkour, DZ: -4, DynamicXZ: true, DynamicY: true},
	ParkourSouth: {Name: "parkour_south", Family: FamilyParkour, DZ: 4, DynamicXZ: true, DynamicY: true},
	ParkourEast:  {Name: "parkour_east", Family: FamilyParkour, DX: 4, DynamicXZ: true, DynamicY: true},
	ParkourWest:  {Name: "parkour_west", Family: FamilyParkour, DX: -4, DynamicXZ: true, DynamicY: true},
}

func init() {
	for i := range templates {
		templates[i].Kind = Kind(i)
	}
}

// All lists every template in Kind order. Search expands neighbours in this order.
func All() []Kind {
	out := make([]Kind, kindCount)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

func (k Kind) Template() Template { return templates[k] }

func (k Kind) Family() Family { return templates[k].Family }

func (k Kind) Dynamic() bool { return templates[k].DynamicXZ || templates[k].DynamicY }

func (k Kind) String() string {
	if k < kindCount {
		return templates[k].Name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind maps a template name back to its Kind.
func ParseKind(name string) (Kind, bool) {
	for i := range templates {
		if templates[i].Name == name {
			return Kind(i), true
		}
	}
	return 0, false
}

// Direction is the lateral direction of a straight template.
func (k Kind) Direction() (geom.Direction, bool) {
	t := templates[k]
	return geom.DirectionTo(sign(t.DX), sign(t.DZ))
}

// Cost evaluates the template from (x, y, z) and writes the landing cell and its cost into
// res. Infeasible moves leave res.Cost at cost.Inf. It never allocates.
func (k Kind) Cost(ctx *cost.Context, x, y, z int, res *MoveResult) {
	if !ctx.Valid() {
		panic("movement: cost evaluated with an uninitialized context")
	}
	t := &templates[k]
	res.X, res.Y, res.Z = x+t.DX, y+t.DY, z+t.DZ
	res.Cost = cost.Inf
	switch t.Family {
	case FamilyTraverse:
		res.Cost = traverseCost(ctx, x, y, z, x+t.DX, z+t.DZ)
	case FamilyAscend:
		res.Cost = ascendCost(ctx, x, y, z, x+t.DX, z+t.DZ)
	case FamilyDescend:
		descendCost(ctx, x, y, z, x+t.DX, z+t.DZ, res)
	case FamilyDiagonal:
		diagonalCost(ctx, x, y, z, x+t.DX, z+t.DZ, res)
	case FamilyPillar:
		res.Cost = pillarCost(ctx, x, y, z)
	case FamilyDownward:
		res.Cost = downwardCost(ctx, x, y, z)
	case FamilyParkour:
		parkourCost(ctx, x, y, z, sign(t.DX), sign(t.DZ), res)
	}
}

// Instantiate evaluates the template from src and builds the Movement for the resulting
// edge. The returned Movement carries the cost computed here.
func (k Kind) Instantiate(ctx *cost.Context, src geom.Pos) *Movement {
	var res MoveResult
	k.Cost(ctx, src.X, src.Y, src.Z, &res)
	dest := res.Pos()
	fam := templates[k].Family
	if fam == FamilyDescend && dest.Y != src.Y-1 {
		fam = FamilyFall
	}
	m := newMovement(k, fam, src, dest)
	if fam == FamilyFall {
		m.bucket = src.Y-dest.Y > ctx.MaxFallHeightNoWater && !ctx.IsWater(ctx.Get(dest.X, dest.Y, dest.Z))
	}
	m.cost = res.Cost
	m.costSet = true
	return m
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
