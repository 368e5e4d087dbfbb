package cost

import (
	"math"
	"testing"

	"voxelmotion.ai/internal/sim/blocks"
	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/inventory"
	"voxelmotion.ai/internal/sim/tuning"
	"voxelmotion.ai/internal/sim/voxel"
)

func newCtx(t *testing.T, w voxel.Lookup, inv *inventory.Inventory, mutate func(*tuning.Settings)) *Context {
	t.Helper()
	cat := blocks.Default()
	s := tuning.Defaults()
	if mutate != nil {
		mutate(&s)
	}
	if inv == nil {
		inv = inventory.New()
	}
	ctx, err := New(w, cat, inv.Snapshot(cat), s)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ctx
}

func buildWorld(t *testing.T, layers ...[]string) *voxel.World {
	t.Helper()
	w, err := voxel.Build(blocks.Default(), nil, layers...)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return w
}

func TestInfIsAbsorbing(t *testing.T) {
	if got := Add(1, 2, 3); got != 6 {
		t.Fatalf("Add=%v", got)
	}
	for _, c := range []float64{0, 1, WalkOneBlockCost, 1e5} {
		if got := Add(c, Inf); got != Inf {
			t.Fatalf("Add(%v, Inf)=%v", c, got)
		}
		if got := Add(Inf, c, Inf); got != Inf {
			t.Fatalf("Add(Inf, %v, Inf)=%v", c, got)
		}
	}
	if got := Add(Inf-1, 5); got != Inf {
		t.Fatalf("overflowing sum should clamp to Inf: %v", got)
	}
}

func TestFallCostTable(t *testing.T) {
	if FallNBlocksCost[0] != 0 {
		t.Fatalf("fall 0=%v", FallNBlocksCost[0])
	}
	for i := 1; i < 20; i++ {
		if FallNBlocksCost[i] <= FallNBlocksCost[i-1] {
			t.Fatalf("fall cost not increasing at %d", i)
		}
	}
	if JumpOneBlockCost <= 0 || JumpOneBlockCost >= FallNBlocksCost[2] {
		t.Fatalf("jump cost=%v", JumpOneBlockCost)
	}
}

func TestMiningCostWithTool(t *testing.T) {
	w := buildWorld(t,
		[]string{"###"},
		[]string{".#."},
	)
	cat := blocks.Default()
	stone := w.Get(1, 1, 0)

	inv := inventory.New()
	inv.AddTool(inventory.Tool{Name: "iron_pickaxe", Class: "pickaxe", Speed: 6})
	ctx := newCtx(t, w, inv, nil)

	str := inventory.NewToolSet(cat, inv.Tools).Strength(stone)
	want := 1/str + 2
	if got := ctx.MiningCost(1, 1, 0, stone, true); math.Abs(got-want) > 1e-9 {
		t.Fatalf("mining cost=%v want %v", got, want)
	}

	bare := newCtx(t, w, nil, func(s *tuning.Settings) { s.AllowBreak = false })
	if got := bare.MiningCost(1, 1, 0, stone, true); got != Inf {
		t.Fatalf("no tool and allow_break=false: %v", got)
	}
}

func TestMiningCostDecreasesWithBetterTools(t *testing.T) {
	cat := blocks.Default()
	w := buildWorld(t, []string{"###"}, []string{".#."})
	last := math.MaxFloat64
	for _, speed := range []float64{2, 4, 6, 8, 12} {
		inv := inventory.New()
		inv.AddTool(inventory.Tool{Name: "pick", Class: "pickaxe", Speed: speed})
		ctx := newCtx(t, w, inv, nil)
		for _, name := range []string{"STONE", "OBSIDIAN", "COAL_ORE"} {
			s := blocks.S(cat.MustKind(name))
			if c := ctx.MiningCost(1, 1, 0, s, false); c <= 0 || c >= Inf {
				t.Fatalf("%s speed %v: cost=%v", name, speed, c)
			}
		}
		c := ctx.MiningCost(1, 1, 0, w.Get(1, 1, 0), false)
		if c >= last {
			t.Fatalf("speed %v: cost %v not below %v", speed, c, last)
		}
		last = c
	}
}

func TestMiningCostSpecialCases(t *testing.T) {
	cat := blocks.Default()
	w := buildWorld(t,
		[]string{"#####"},
		[]string{".#bw."},
		[]string{".s..."},
		[]string{".v..."},
	)
	ctx := newCtx(t, w, nil, nil)

	if got := ctx.MiningCost(0, 1, 0, w.Get(0, 1, 0), true); got != 0 {
		t.Fatalf("air cost=%v", got)
	}
	if got := ctx.MiningCost(2, 1, 0, w.Get(2, 1, 0), true); got != Inf {
		t.Fatalf("bedrock cost=%v", got)
	}
	// the stone at x=1 has water two cells over; only the bedrock touches it
	single := ctx.MiningCost(1, 1, 0, w.Get(1, 1, 0), false)
	stacked := ctx.MiningCost(1, 1, 0, w.Get(1, 1, 0), true)
	if single >= Inf || stacked <= single {
		t.Fatalf("falling stack not added: single=%v stacked=%v", single, stacked)
	}
	if got := ctx.MiningCost(3, 1, 0, w.Get(3, 1, 0), true); got != 0 {
		t.Fatalf("water cost=%v", got)
	}

	glass := blocks.S(cat.MustKind("GLASS"))
	nearWater := buildWorld(t, []string{"###"}, []string{"Gw."})
	c := newCtx(t, nearWater, nil, nil)
	if got := c.MiningCost(0, 1, 0, glass, false); got != Inf {
		t.Fatalf("breaking next to water should be avoided: %v", got)
	}
	c = newCtx(t, nearWater, nil, func(s *tuning.Settings) { s.AvoidBreakingNearLiquid = false })
	if got := c.MiningCost(0, 1, 0, glass, false); got >= Inf {
		t.Fatalf("setting off should allow break: %v", got)
	}
}

func TestPlaceCost(t *testing.T) {
	cat := blocks.Default()
	w := buildWorld(t, []string{"###"})
	w.Protect(voxel.Region{Max: geom.P(0, 5, 0)})

	none := newCtx(t, w, nil, nil)
	if got := none.PlaceCost(1, 1, 0); got != Inf {
		t.Fatalf("no throwaway: %v", got)
	}
	inv := inventory.New()
	inv.AddBlocks(cat.MustKind("DIRT"), 16)
	ctx := newCtx(t, w, inv, nil)
	if got := ctx.PlaceCost(1, 1, 0); got != 20 {
		t.Fatalf("place cost=%v", got)
	}
	if got := ctx.PlaceCost(0, 1, 0); got != Inf {
		t.Fatalf("protected cell: %v", got)
	}
	off := newCtx(t, w, inv, func(s *tuning.Settings) { s.AllowPlace = false })
	if got := off.PlaceCost(1, 1, 0); got != Inf {
		t.Fatalf("allow_place=false: %v", got)
	}
}

func TestWalkPredicates(t *testing.T) {
	cat := blocks.Default()
	w := buildWorld(t, []string{"#_mwGl"})
	ctx := newCtx(t, w, nil, nil)
	cases := []struct {
		x      int
		walkOn bool
	}{
		{0, true}, {1, true}, {2, false}, {3, false}, {4, true}, {5, false},
	}
	for _, tc := range cases {
		if got := ctx.CanWalkOn(tc.x, 0, 0); got != tc.walkOn {
			t.Fatalf("CanWalkOn(%s)=%v", cat.Name(w.Get(tc.x, 0, 0).Kind), got)
		}
	}
	noSlab := newCtx(t, w, nil, func(s *tuning.Settings) { s.AllowWalkOnBottomSlab = false })
	if noSlab.CanWalkOn(1, 0, 0) {
		t.Fatalf("bottom slab walkable with setting off")
	}
	waterWalk := newCtx(t, w, nil, func(s *tuning.Settings) { s.AssumeWalkOnWater = true })
	if !waterWalk.CanWalkOn(3, 0, 0) || waterWalk.CanWalkThrough(3, 0, 0) {
		t.Fatalf("assume_walk_on_water should make water a floor")
	}
	if !ctx.CanWalkThrough(3, 0, 0) || ctx.FullyPassable(3, 0, 0) {
		t.Fatalf("still water is passable but not fully")
	}
	if !ctx.CanWalkThrough(9, 9, 9) || ctx.CanWalkOn(100, 0, 100) {
		t.Fatalf("unknown cells are air-like")
	}
	if !ctx.AvoidWalkingInto(w.Get(2, 0, 0)) || !ctx.AvoidWalkingInto(w.Get(5, 0, 0)) {
		t.Fatalf("magma and lava must be avoided")
	}
	door := blocks.S(cat.MustKind("OAK_DOOR"))
	iron := blocks.S(cat.MustKind("IRON_DOOR"))
	if !ctx.CanWalkThroughState(0, 0, 0, door) || ctx.FullyPassableState(door) {
		t.Fatalf("wooden door is walked through but never fallen through")
	}
	if ctx.CanWalkThroughState(0, 0, 0, iron) || !ctx.CanWalkThroughState(0, 0, 0, iron.WithMeta(1)) {
		t.Fatalf("iron door passable only when open")
	}
	if !ctx.IsOpenable(door) || ctx.IsOpenable(iron) {
		t.Fatalf("only wooden doors open by hand")
	}
}

func TestNewRejectsUnknownBlockNames(t *testing.T) {
	w := buildWorld(t, []string{"#"})
	cat := blocks.Default()
	s := tuning.Defaults()
	s.BlocksToAvoid = []string{"NOT_A_BLOCK"}
	if _, err := New(w, cat, inventory.New().Snapshot(cat), s); err == nil {
		t.Fatalf("expected error")
	}
}
