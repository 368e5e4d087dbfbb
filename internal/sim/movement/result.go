package movement

import (
	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/movement/cost"
)

// MoveResult is a caller-owned scratch record that Kind.Cost writes into. Search keeps one
// per goroutine and reuses it for every edge it prices.
type MoveResult struct {
	X, Y, Z int
	Cost    float64
}

func (r *MoveResult) Reset() {
	r.X, r.Y, r.Z = 0, 0, 0
	r.Cost = cost.Inf
}

func (r *MoveResult) Pos() geom.Pos { return geom.P(r.X, r.Y, r.Z) }

func (r *MoveResult) Feasible() bool { return r.Cost < cost.Inf }
