package movement

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelmotion.ai/internal/sim/blocks"
	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/inventory"
	"voxelmotion.ai/internal/sim/tuning"
	"voxelmotion.ai/internal/sim/voxel"
)

type fakePlayer struct {
	pos      mgl64.Vec3
	vel      mgl64.Vec3
	rot      geom.Rotation
	onGround bool
}

func (p *fakePlayer) Feet() geom.Pos                       { return geom.Floor(p.pos.Add(mgl64.Vec3{0, 0.1251, 0})) }
func (p *fakePlayer) Position() mgl64.Vec3                 { return p.pos }
func (p *fakePlayer) Velocity() mgl64.Vec3                 { return p.vel }
func (p *fakePlayer) Eyes() mgl64.Vec3                     { return p.pos.Add(mgl64.Vec3{0, 1.62, 0}) }
func (p *fakePlayer) Rotation() geom.Rotation              { return p.rot }
func (p *fakePlayer) OnGround() bool                       { return p.onGround }
func (p *fakePlayer) InWall() bool                         { return false }
func (p *fakePlayer) standAt(c geom.Pos)                   { p.pos = c.BottomCenter(); p.onGround = true }
func (p *fakePlayer) UpdateTarget(r geom.Rotation, _ bool) { p.rot = r }
func (p *fakePlayer) Insisting() bool                      { return false }

type fakeHands struct{ throwaway bool }

func (h *fakeHands) SelectBestTool(blocks.State) {}
func (h *fakeHands) SelectThrowaway() bool       { return h.throwaway }
func (h *fakeHands) SelectWaterBucket() bool     { return false }
func (h *fakeHands) SelectEmptyBucket() bool     { return false }

type fakeInputs struct {
	held    map[Input]bool
	cleared int
}

func (f *fakeInputs) ClearAll() {
	f.held = map[Input]bool{}
	f.cleared++
}

func (f *fakeInputs) Set(in Input, forced bool) {
	if forced {
		f.held[in] = true
	} else {
		delete(f.held, in)
	}
}

type harness struct {
	world  *voxel.World
	player *fakePlayer
	inputs *fakeInputs
	env    *Env
}

func newHarness(t *testing.T, layers ...[]string) *harness {
	t.Helper()
	w := world(t, layers...)
	inv := inventory.New()
	inv.AddTool(inventory.Tool{Name: "iron_pickaxe", Class: "pickaxe", Speed: 6})
	s := tuning.Defaults()
	ctx := costContext(t, w, inv, nil)
	p := &fakePlayer{}
	in := &fakeInputs{held: map[Input]bool{}}
	return &harness{
		world:  w,
		player: p,
		inputs: in,
		env: &Env{
			Player:                      p,
			Hands:                       &fakeHands{},
			Look:                        p,
			Input:                       in,
			World:                       w,
			Ctx:                         ctx,
			Reach:                       s.BlockReachDistance,
			PauseMiningForFallingBlocks: s.PauseMiningForFallingBlocks,
		},
	}
}

func TestStateMachineWaitsOneTickBeforeRunning(t *testing.T) {
	h := newHarness(t, []string{"###"}, []string{"..."}, []string{"..."})
	h.player.standAt(geom.P(0, 1, 0))
	m := TraverseEast.Instantiate(h.env.Ctx, geom.P(0, 1, 0))

	require.Equal(t, Prepping, m.Status())
	assert.Equal(t, Waiting, m.Update(h.env))
	assert.Empty(t, h.inputs.held, "nothing is driven while waiting")
	assert.Equal(t, Running, m.Update(h.env))
	assert.True(t, h.inputs.held[MoveForward])

	h.player.standAt(geom.P(1, 1, 0))
	assert.Equal(t, Success, m.Update(h.env))
	assert.Empty(t, h.inputs.held, "inputs must not leak past completion")
}

func TestStateMachineBreaksBeforeWaiting(t *testing.T) {
	h := newHarness(t, []string{"###"}, []string{".#."}, []string{"..."})
	h.player.standAt(geom.P(0, 1, 0))
	m := TraverseEast.Instantiate(h.env.Ctx, geom.P(0, 1, 0))

	var seen []Status
	seen = append(seen, m.Update(h.env))
	st := m.State()
	require.True(t, st.Target.Set && st.Target.Force, "prepping must force a look at the block")
	assert.False(t, h.inputs.held[ClickLeft], "not yet looking at the block")

	seen = append(seen, m.Update(h.env))
	assert.True(t, h.inputs.held[ClickLeft], "break input once aimed")

	h.world.Set(1, 1, 0, blocks.AirState)
	for i := 0; i < 2; i++ {
		seen = append(seen, m.Update(h.env))
	}
	assert.Equal(t, []Status{Prepping, Prepping, Waiting, Running}, seen)
}

func TestStateMachineUnreachableWhenOutOfReach(t *testing.T) {
	h := newHarness(t, []string{"###"}, []string{".#."}, []string{"..."})
	h.player.standAt(geom.P(0, 1, 0))
	m := TraverseEast.Instantiate(h.env.Ctx, geom.P(0, 1, 0))
	h.env.Reach = 0.5
	assert.Equal(t, Unreachable, m.Update(h.env))
	assert.Empty(t, h.inputs.held)
}

func TestStateMachinePausesForFallingBlocks(t *testing.T) {
	h := newHarness(t, []string{"###"}, []string{"..."}, []string{"..."})
	h.player.standAt(geom.P(0, 1, 0))
	m := TraverseEast.Instantiate(h.env.Ctx, geom.P(0, 1, 0))
	h.world.SetFallingBlock(geom.P(1, 2, 0), true)

	assert.Equal(t, Prepping, m.Update(h.env))
	assert.False(t, m.State().Target.Set)
	assert.Empty(t, h.inputs.held)

	h.world.SetFallingBlock(geom.P(1, 2, 0), false)
	assert.Equal(t, Waiting, m.Update(h.env))
}

func TestResetRearms(t *testing.T) {
	h := newHarness(t, []string{"###"}, []string{"..."}, []string{"..."})
	h.player.standAt(geom.P(0, 1, 0))
	m := TraverseEast.Instantiate(h.env.Ctx, geom.P(0, 1, 0))
	m.Update(h.env)
	m.Update(h.env)
	require.Equal(t, Running, m.Status())
	m.Reset()
	assert.Equal(t, Prepping, m.Status())
	assert.Equal(t, Waiting, m.Update(h.env))
}

func TestBlockCachesAreMemoizedUntilReset(t *testing.T) {
	h := newHarness(t, []string{"###"}, []string{".#."}, []string{"..."})
	ctx := h.env.Ctx
	m := TraverseEast.Instantiate(ctx, geom.P(0, 1, 0))
	assert.Equal(t, []geom.Pos{geom.P(1, 1, 0)}, m.ToBreak(ctx))
	assert.Empty(t, m.ToPlace(ctx))

	h.world.Set(1, 1, 0, blocks.AirState)
	h.world.Set(1, 0, 0, blocks.AirState)
	assert.Len(t, m.ToBreak(ctx), 1, "memoized until reset")
	m.ResetBlockCache()
	assert.Empty(t, m.ToBreak(ctx))
	assert.Equal(t, []geom.Pos{geom.P(1, 0, 0)}, m.ToPlace(ctx))
}

func TestParkourUnsafeToCancelWhileRunning(t *testing.T) {
	h := newHarness(t, []string{"#.##"}, []string{"...."}, []string{"...."}, []string{"...."})
	h.player.standAt(geom.P(0, 1, 0))
	m := ParkourEast.Instantiate(h.env.Ctx, geom.P(0, 1, 0))
	require.Equal(t, geom.P(2, 1, 0), m.Dest)
	assert.True(t, m.SafeToCancel(h.env))
	m.Update(h.env)
	m.Update(h.env)
	require.Equal(t, Running, m.Status())
	assert.False(t, m.SafeToCancel(h.env))
}

func TestValidPositionsForDiagonalDescend(t *testing.T) {
	m := newMovement(DiagonalSouthEast, FamilyDiagonal, geom.P(0, 2, 0), geom.P(1, 1, 1))
	v := m.ValidPositions()
	for _, p := range []geom.Pos{geom.P(0, 2, 0), geom.P(1, 1, 1), geom.P(1, 2, 1), geom.P(0, 2, 1), geom.P(1, 2, 0), geom.P(0, 1, 1), geom.P(1, 1, 0)} {
		_, ok := v[p]
		assert.True(t, ok, "missing %v", p)
	}
	assert.Len(t, v, 7)
}
