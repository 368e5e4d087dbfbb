package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"voxelmotion.ai/internal/sim/blocks"
	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/goals"
	"voxelmotion.ai/internal/sim/inventory"
	"voxelmotion.ai/internal/sim/movement"
	"voxelmotion.ai/internal/sim/movement/cost"
	"voxelmotion.ai/internal/sim/tuning"
	"voxelmotion.ai/internal/sim/voxel"
)

func newContext(t *testing.T, layers ...[]string) *cost.Context {
	t.Helper()
	cat := blocks.Default()
	w, err := voxel.Build(cat, nil, layers...)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ctx, err := cost.New(w.Snapshot(geom.P(0, 0, 0), 1), cat, inventory.New().Snapshot(cat), tuning.Defaults())
	if err != nil {
		t.Fatalf("cost.New: %v", err)
	}
	return ctx
}

func TestStraightCorridor(t *testing.T) {
	ctx := newContext(t,
		[]string{"bbbbbbb", "bbbbbbb", "bbbbbbb"},
		[]string{"#######", ".......", "#######"},
		[]string{"#######", ".......", "#######"},
		[]string{"bbbbbbb", "bbbbbbb", "bbbbbbb"},
	)
	p, err := New(ctx, geom.P(0, 1, 1), goals.NewBlock(geom.P(6, 1, 1)), Options{MaxNodes: 10000}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p.Partial || p.Dest() != geom.P(6, 1, 1) {
		t.Fatalf("unexpected path %s partial=%v", p, p.Partial)
	}
	if len(p.Positions) != len(p.Movements)+1 {
		t.Fatalf("positions=%d movements=%d", len(p.Positions), len(p.Movements))
	}
	for i, m := range p.Movements {
		if m.Src != p.Positions[i] || m.Dest != p.Positions[i+1] {
			t.Fatalf("movement %d %s does not chain", i, m)
		}
		if c, ok := m.CalculatedCost(); !ok || c >= cost.Inf {
			t.Fatalf("movement %d has no finite cost", i)
		}
	}
	if p.Cost() >= cost.Inf {
		t.Fatalf("path cost infinite")
	}
}

func TestClimbsOntoStep(t *testing.T) {
	ctx := newContext(t,
		[]string{"bbbb"},
		[]string{"..##"},
		[]string{"...."},
		[]string{"...."},
	)
	p, err := New(ctx, geom.P(0, 1, 0), goals.NewBlock(geom.P(3, 2, 0)), Options{MaxNodes: 10000}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	found := false
	for _, m := range p.Movements {
		if m.Family() == movement.FamilyAscend {
			found = true
		}
	}
	if !found || p.Dest() != geom.P(3, 2, 0) {
		t.Fatalf("expected an ascend in %s", p)
	}
}

func TestNoPathInSealedRoom(t *testing.T) {
	ctx := newContext(t,
		[]string{"bbb", "bbb", "bbb"},
		[]string{"bbb", "b.b", "bbb"},
		[]string{"bbb", "b.b", "bbb"},
		[]string{"bbb", "bbb", "bbb"},
	)
	_, err := New(ctx, geom.P(1, 1, 1), goals.NewBlock(geom.P(12, 1, 12)), Options{MaxNodes: 10000}).Run(context.Background())
	if !errors.Is(err, ErrNoPath) {
		t.Fatalf("err=%v want ErrNoPath", err)
	}
}

func TestPartialPathWhenBudgetRunsOut(t *testing.T) {
	row := "bbbbbbbbbbbbbbbb"
	ctx := newContext(t, []string{row}, []string{"................"}, []string{"................"})
	p, err := New(ctx, geom.P(0, 1, 0), goals.XZ{X: 400, Z: 0}, Options{MaxNodes: 2000}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !p.Partial {
		t.Fatalf("expected a partial path")
	}
	if p.Dest().DistanceSq(p.Start) < MinPartialDist*MinPartialDist {
		t.Fatalf("partial path too short: %s", p)
	}
}

func TestCancelledSearchPublishesNothing(t *testing.T) {
	ctx := newContext(t, []string{"bbbbbbbb"}, []string{"........"}, []string{"........"})

	c, cancel := context.WithCancel(context.Background())
	cancel()
	p, err := New(ctx, geom.P(0, 1, 0), goals.NewBlock(geom.P(7, 1, 0)), Options{}).Run(c)
	if !errors.Is(err, ErrCancelled) || p != nil {
		t.Fatalf("p=%v err=%v", p, err)
	}

	s := New(ctx, geom.P(0, 1, 0), goals.NewBlock(geom.P(7, 1, 0)), Options{Timeout: time.Second})
	s.Cancel()
	if p, err := s.Run(context.Background()); !errors.Is(err, ErrCancelled) || p != nil {
		t.Fatalf("p=%v err=%v", p, err)
	}
}
