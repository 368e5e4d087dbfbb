package goals

import (
	"math"
	"testing"

	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/movement/cost"
)

func TestCompositeHeuristicIsMinimum(t *testing.T) {
	a := NewBlock(geom.P(10, 64, 0))
	b := XZ{X: -3, Z: 7}
	c := NewComposite(a, b)
	for _, p := range []geom.Pos{geom.P(0, 64, 0), geom.P(9, 70, 1), geom.P(-3, 10, 7), geom.P(100, 0, -100)} {
		want := math.Min(HeuristicAt(a, p), HeuristicAt(b, p))
		if got := HeuristicAt(c, p); got != want {
			t.Fatalf("composite(%v)=%v want %v", p, got, want)
		}
	}
	if !Contains(c, geom.P(-3, 200, 7)) || Contains(c, geom.P(10, 65, 0)) {
		t.Fatalf("composite membership mismatch")
	}
}

func TestBlockHeuristic(t *testing.T) {
	g := NewBlock(geom.P(0, 10, 0))
	if h := g.Heuristic(0, 10, 0); h != 0 {
		t.Fatalf("at goal h=%v", h)
	}
	if h := g.Heuristic(3, 10, 0); math.Abs(h-3*DefaultCostHeuristic) > 1e-9 {
		t.Fatalf("straight h=%v", h)
	}
	if h := g.Heuristic(2, 10, 2); math.Abs(h-2*cost.Sqrt2*DefaultCostHeuristic) > 1e-9 {
		t.Fatalf("diagonal h=%v", h)
	}
	if h := g.Heuristic(0, 8, 0); math.Abs(h-2*cost.JumpOneBlockCost) > 1e-9 {
		t.Fatalf("below h=%v", h)
	}
	// each block down is priced at half a two-block fall
	if h := g.Heuristic(0, 12, 0); math.Abs(h-cost.FallNBlocksCost[2]) > 1e-9 {
		t.Fatalf("above h=%v", h)
	}
}

func TestTwoBlocksAndGetToBlock(t *testing.T) {
	tb := TwoBlocks{Pos: geom.P(1, 5, 1)}
	if !tb.InGoal(1, 5, 1) || !tb.InGoal(1, 4, 1) || tb.InGoal(1, 6, 1) {
		t.Fatalf("two blocks membership")
	}
	if tb.Heuristic(1, 4, 1) != 0 {
		t.Fatalf("head level should cost nothing")
	}
	gb := GetToBlock{Pos: geom.P(0, 5, 0)}
	// standing with the head directly beneath the block also reaches it
	for _, p := range []geom.Pos{geom.P(1, 5, 0), geom.P(0, 6, 0), geom.P(0, 4, 1), geom.P(0, 4, 0), geom.P(0, 3, 0)} {
		if !Contains(gb, p) {
			t.Fatalf("get_to_block should contain %v", p)
		}
	}
	if Contains(gb, geom.P(1, 6, 0)) || Contains(gb, geom.P(0, 2, 0)) || Contains(gb, geom.P(1, 3, 0)) {
		t.Fatalf("get_to_block too loose")
	}
}

func TestNearYLevelAndInverted(t *testing.T) {
	n := Near{Pos: geom.P(0, 0, 0), Range: 2}
	if !n.InGoal(1, 1, 1) || n.InGoal(2, 1, 0) {
		t.Fatalf("near membership")
	}
	y := YLevel{Y: 30}
	if !y.InGoal(-50, 30, 9) || y.Heuristic(0, 30, 0) != 0 {
		t.Fatalf("y level")
	}
	inv := Inverted{Origin: n}
	if inv.InGoal(0, 0, 0) {
		t.Fatalf("inverted goal is never reached")
	}
	if inv.Heuristic(5, 0, 0) >= inv.Heuristic(1, 0, 0) {
		t.Fatalf("inverted should prefer distance")
	}
}

func TestStrictDirectionPrefersProgress(t *testing.T) {
	g := StrictDirection{Origin: geom.P(0, 64, 0), Dir: geom.East}
	ahead, sideways, up := g.Heuristic(5, 64, 0), g.Heuristic(0, 64, 5), g.Heuristic(0, 66, 0)
	if !(ahead < 0 && sideways > 0 && up > 0) {
		t.Fatalf("ahead=%v sideways=%v up=%v", ahead, sideways, up)
	}
}

func TestTuneAndEqual(t *testing.T) {
	g := NewComposite(NewBlock(geom.P(4, 0, 0)), Inverted{Origin: XZ{X: 1}})
	tuned := Tune(g, 1)
	if h := tuned.Heuristic(0, 0, 0); math.Abs(h-(-1)) > 1e-9 {
		t.Fatalf("tuned composite h=%v", h)
	}
	if !Equal(g, NewComposite(NewBlock(geom.P(4, 0, 0)), Inverted{Origin: XZ{X: 1}})) {
		t.Fatalf("equal goals reported different")
	}
	if Equal(g, tuned) || Equal(g, nil) || !Equal(nil, nil) {
		t.Fatalf("equality mismatch")
	}
}
