package movement

import (
	"github.com/go-gl/mathgl/mgl64"

	"voxelmotion.ai/internal/sim/blocks"
	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/movement/cost"
	"voxelmotion.ai/internal/sim/voxel"
)

// Player is the read side of the agent body a movement steers.
type Player interface {
	// Feet is the cell the agent stands in. Standing on a bottom slab reports the cell above it.
	Feet() geom.Pos
	Position() mgl64.Vec3
	Velocity() mgl64.Vec3
	Eyes() mgl64.Vec3
	Rotation() geom.Rotation
	OnGround() bool
	// InWall reports the agent's head inside a block it cannot stand in.
	InWall() bool
}

// Hands selects what the agent holds. Select calls report false when nothing suitable is held.
type Hands interface {
	SelectBestTool(s blocks.State)
	SelectThrowaway() bool
	SelectWaterBucket() bool
	SelectEmptyBucket() bool
}

// Looker receives the rotation a movement wants.
type Looker interface {
	UpdateTarget(r geom.Rotation, force bool)
	// Insisting reports another owner holding the look direction this tick.
	Insisting() bool
}

// InputSink receives the inputs a movement asserts.
type InputSink interface {
	ClearAll()
	Set(in Input, forced bool)
}

// World is the live voxel grid as the executor sees it.
type World interface {
	voxel.Lookup
	FallingBlockAt(p geom.Pos) bool
}

// Env is everything a movement touches while executing. Ctx must be built over World so
// the executor and the planner evaluate the same predicates.
type Env struct {
	Player Player
	Hands  Hands
	Look   Looker
	Input  InputSink
	World  World
	Ctx    *cost.Context

	Reach                       float64
	PauseMiningForFallingBlocks bool
}

func (e *Env) get(p geom.Pos) blocks.State { return e.World.Get(p.X, p.Y, p.Z) }

// lookingAt casts a ray along the agent's current rotation.
func (e *Env) lookingAt() (voxel.Hit, bool) {
	return e.castFrom(e.Player.Rotation())
}

func (e *Env) castFrom(r geom.Rotation) (voxel.Hit, bool) {
	return voxel.RayCast(e.World, e.Player.Eyes(), geom.LookVector(r), e.Reach, voxel.Solid(e.Ctx.Catalog()))
}

func (e *Env) isLookingAt(p geom.Pos) bool {
	hit, ok := e.lookingAt()
	return ok && hit.Pos == p
}

// faceAims are points just inside each face of a unit cell, tried after the center.
var faceAims = [...]mgl64.Vec3{
	{0.5, 0.5, 0.5},
	{0.5, 0.05, 0.5},
	{0.5, 0.95, 0.5},
	{0.5, 0.5, 0.05},
	{0.5, 0.5, 0.95},
	{0.05, 0.5, 0.5},
	{0.95, 0.5, 0.5},
}

// Reachable finds a rotation whose ray from the eyes hits p first, within reach.
func (e *Env) Reachable(p geom.Pos) (geom.Rotation, bool) {
	cur := e.Player.Rotation()
	if e.isLookingAt(p) {
		return cur, true
	}
	eyes := e.Player.Eyes()
	base := mgl64.Vec3{float64(p.X), float64(p.Y), float64(p.Z)}
	for _, aim := range faceAims {
		r := geom.CalcRotation(eyes, base.Add(aim), cur)
		if hit, ok := e.castFrom(r); ok && hit.Pos == p {
			return r, true
		}
	}
	return geom.Rotation{}, false
}

// moveTowards turns toward a cell without changing pitch and walks forward.
func moveTowards(e *Env, st *State, p geom.Pos) {
	cur := e.Player.Rotation()
	yaw := geom.CalcRotation(e.Player.Eyes(), p.Center(), cur).Yaw
	st.SetTarget(geom.Rotation{Yaw: yaw, Pitch: cur.Pitch}, false)
	st.SetInput(MoveForward, true)
}

type placeResult uint8

const (
	placeNoOption placeResult = iota
	placeAttempting
	placeReady
)

// attemptPlace aims at a face a throwaway block could be placed against so that it lands
// in cell p. preferDown tries the face below first.
func attemptPlace(e *Env, st *State, p geom.Pos, preferDown bool) placeResult {
	dirs := []geom.Direction{geom.North, geom.South, geom.East, geom.West, geom.Down}
	if preferDown {
		dirs = []geom.Direction{geom.Down, geom.North, geom.South, geom.East, geom.West}
	}
	cur := e.Player.Rotation()
	eyes := e.Player.Eyes()
	found := false
	for _, d := range dirs {
		against := p.Step(d)
		if !e.Ctx.CanPlaceAgainst(against.X, against.Y, against.Z) {
			continue
		}
		face := p.Center().Add(against.Center()).Mul(0.5)
		r := geom.CalcRotation(eyes, face, cur)
		hit, ok := e.castFrom(r)
		if ok && hit.Pos == against && hit.Adjacent() == p {
			st.SetTarget(r, true)
			found = true
			break
		}
	}
	if !found {
		return placeNoOption
	}
	if hit, ok := e.lookingAt(); ok && hit.Adjacent() == p && e.Ctx.CanPlaceAgainst(hit.Pos.X, hit.Pos.Y, hit.Pos.Z) {
		return placeReady
	}
	return placeAttempting
}
