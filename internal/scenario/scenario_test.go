package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelmotion.ai/internal/sim/agent"
	"voxelmotion.ai/internal/sim/blocks"
	"voxelmotion.ai/internal/sim/tuning"
)

func small() Scenario {
	sc := Default()
	sc.RadiusChunks = 1
	sc.Height = 32
	sc.Goal = &GoalSpec{Kind: "block", Pos: [3]int{8, 0, 3}}
	sc.Pauses = []Window{{From: 10, To: 15}}
	return sc
}

func record(t *testing.T, sc Scenario, ticks int) []agent.TickRecord {
	t.Helper()
	r, err := Build(blocks.Default(), tuning.Defaults(), sc, Hooks{})
	require.NoError(t, err)
	defer r.Close()
	var out []agent.TickRecord
	for i := 0; i < ticks; i++ {
		out = append(out, r.Step())
	}
	return out
}

func TestRunsReplayTickForTick(t *testing.T) {
	a := record(t, small(), 120)
	b := record(t, small(), 120)
	require.Len(t, b, len(a))
	for i := range a {
		require.Equal(t, a[i], b[i], "tick %d diverged", i+1)
	}
}

func TestPauseWindowHoldsControl(t *testing.T) {
	recs := record(t, small(), 20)
	for _, r := range recs {
		if r.Tick >= 10 && r.Tick < 15 {
			assert.Equal(t, "pause", r.Controller, "tick %d", r.Tick)
		}
	}
	assert.NotEqual(t, "pause", recs[16].Controller)
}

func TestSurfaceIsAboveTerrain(t *testing.T) {
	r, err := Build(blocks.Default(), tuning.Defaults(), small(), Hooks{})
	require.NoError(t, err)
	defer r.Close()
	p := Surface(r.World, r.Catalog, 0, 0)
	assert.Equal(t, blocks.Air, r.World.At(p).Kind)
	assert.NotEqual(t, blocks.Air, r.World.At(p.Down()).Kind)
	assert.Equal(t, p, r.Agent.Feet())
}

func TestValidateRejectsBadScenarios(t *testing.T) {
	cases := map[string]func(*Scenario){
		"goal kind": func(sc *Scenario) { sc.Goal = &GoalSpec{Kind: "spiral"} },
		"direction": func(sc *Scenario) { sc.Explore = "up" },
		"follow":    func(sc *Scenario) { sc.Follow = &FollowSpec{} },
		"pause":     func(sc *Scenario) { sc.Pauses = []Window{{From: 5, To: 5}} },
		"radius":    func(sc *Scenario) { sc.RadiusChunks = 40 },
		"tick rate": func(sc *Scenario) { sc.TickRateHz = -1 },
	}
	for name, mutate := range cases {
		sc := Default()
		mutate(&sc)
		if err := sc.Validate(); err == nil {
			t.Fatalf("%s: expected an error", name)
		}
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("default: %v", err)
	}
}
