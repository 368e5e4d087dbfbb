package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelmotion.ai/internal/sim/blocks"
	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/goals"
	"voxelmotion.ai/internal/sim/inventory"
	"voxelmotion.ai/internal/sim/pathing"
	"voxelmotion.ai/internal/sim/process"
	"voxelmotion.ai/internal/sim/tuning"
	"voxelmotion.ai/internal/sim/voxel"
)

func newAgent(t *testing.T, spawn geom.Pos, inv *inventory.Inventory, layers ...[]string) (*Agent, *voxel.World, *[]pathing.Segment) {
	t.Helper()
	cat := blocks.Default()
	w, err := voxel.Build(cat, nil, layers...)
	require.NoError(t, err)
	var segs []pathing.Segment
	a, err := New(Config{
		Catalog:        cat,
		Settings:       tuning.Defaults(),
		World:          w,
		Inventory:      inv,
		Spawn:          spawn,
		SnapshotRadius: 1,
		Inline:         true,
		OnSegment:      func(s pathing.Segment) { segs = append(segs, s) },
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a, w, &segs
}

func TestAgentWalksToCustomGoal(t *testing.T) {
	a, _, segs := newAgent(t, geom.P(0, 1, 0), nil,
		[]string{"bbbbbbbb"}, []string{"........"}, []string{"........"})
	custom := process.NewCustomGoal(a, 0, nil)
	require.NoError(t, a.Register(custom))

	goal := goals.NewBlock(geom.P(5, 1, 0))
	custom.SetGoalAndPath(goal)

	var rec TickRecord
	for i := 0; i < 300 && custom.IsActive(); i++ {
		rec = a.Tick()
	}
	require.False(t, custom.IsActive(), "custom goal never finished: %s", rec)
	assert.Equal(t, geom.P(5, 1, 0), a.Feet())
	assert.Nil(t, a.Halted())
	require.NotEmpty(t, *segs)
	assert.Equal(t, pathing.Finished, (*segs)[len(*segs)-1].Outcome)
}

func TestAgentDigsThroughWall(t *testing.T) {
	inv := inventory.New()
	inv.AddTool(inventory.Tool{Name: "iron_pickaxe", Class: "pickaxe", Speed: 6})
	a, w, _ := newAgent(t, geom.P(0, 1, 0), inv,
		[]string{"bbbbb"}, []string{"..#.."}, []string{"..#.."}, []string{"bbbbb"})
	custom := process.NewCustomGoal(a, 0, nil)
	require.NoError(t, a.Register(custom))
	custom.SetGoalAndPath(goals.NewBlock(geom.P(4, 1, 0)))

	for i := 0; i < 400 && custom.IsActive(); i++ {
		a.Tick()
	}
	assert.Equal(t, geom.P(4, 1, 0), a.Feet())
	assert.Equal(t, 2, a.Body().Broken())
	assert.Equal(t, blocks.Air, w.Get(2, 1, 0).Kind)
	assert.Equal(t, blocks.Air, w.Get(2, 2, 0).Kind)
}

type silentProc struct{ ticks int }

func (p *silentProc) IsActive() bool                     { return true }
func (p *silentProc) OnTick(bool, bool) *process.Command { p.ticks++; return nil }
func (p *silentProc) IsTemporary() bool                  { return false }
func (p *silentProc) OnLostControl()                     {}
func (p *silentProc) Priority() float64                  { return 1 }
func (p *silentProc) DisplayName() string                { return "silent" }

func TestContractViolationDisablesOnlyTheProcess(t *testing.T) {
	a, _, segs := newAgent(t, geom.P(0, 1, 0), nil,
		[]string{"bbbbbb"}, []string{"......"}, []string{"......"})
	bad := &silentProc{}
	require.NoError(t, a.Register(bad))
	custom := process.NewCustomGoal(a, 0, nil)
	require.NoError(t, a.Register(custom))
	custom.SetGoalAndPath(goals.NewBlock(geom.P(4, 1, 0)))

	rec := a.Tick()
	require.Len(t, a.Disabled(), 1)
	var ce *process.ContractError
	require.ErrorAs(t, a.Disabled()[0], &ce)
	assert.Equal(t, "silent", ce.Process)
	assert.Nil(t, a.Halted())
	assert.False(t, rec.Halted)

	for i := 0; i < 300 && custom.IsActive(); i++ {
		a.Tick()
	}
	assert.Equal(t, 1, bad.ticks, "a disabled process is never consulted again")
	assert.Equal(t, geom.P(4, 1, 0), a.Feet())
	require.NotEmpty(t, *segs)
	assert.Equal(t, pathing.Finished, (*segs)[len(*segs)-1].Outcome)
}

func TestArrivalIsRecordedAsFinished(t *testing.T) {
	a, _, segs := newAgent(t, geom.P(0, 1, 0), nil,
		[]string{"bbbbbbbb"}, []string{"........"}, []string{"........"})
	custom := process.NewCustomGoal(a, 0, nil)
	require.NoError(t, a.Register(custom))
	custom.SetGoalAndPath(goals.NewBlock(geom.P(5, 1, 0)))

	for i := 0; i < 300 && custom.IsActive(); i++ {
		a.Tick()
	}
	require.Len(t, *segs, 1)
	seg := (*segs)[0]
	assert.Equal(t, pathing.Finished, seg.Outcome)
	assert.Empty(t, seg.Reason)
	assert.Equal(t, geom.P(5, 1, 0), seg.Feet)
	assert.Equal(t, seg.Movements, seg.Completed)
}
