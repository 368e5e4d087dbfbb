package agent

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxelmotion.ai/internal/sim/blocks"
	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/movement"
	"voxelmotion.ai/internal/sim/voxel"
)

const (
	Width      = 0.6
	Height     = 1.8
	EyeHeight  = 1.62
	StepHeight = 0.6

	// ground speeds in blocks per tick
	WalkSpeed   = 0.21585
	SprintSpeed = 0.2806
	SneakSpeed  = 0.065
	WaterSpeed  = 0.11

	jumpVelocity    = 0.42
	sprintJumpBoost = 0.2
	gravity         = 0.08
	verticalDrag    = 0.98
	airFriction     = 0.91
	airAccel        = 0.02
	airAccelSprint  = 0.026
	ladderClimb     = 0.1176
	ladderMaxFall   = 0.15
	sneakEdgeStep   = 0.05
)

// Body is a kinematic voxel body: a 0.6 x 1.8 box moved with axis-separated collision.
type Body struct {
	cat   *blocks.Catalog
	world *voxel.World

	pos      mgl64.Vec3
	vel      mgl64.Vec3
	rot      geom.Rotation
	onGround bool
	inLiquid bool
	sneaking bool

	mining    geom.Pos
	miningOn  bool
	progress  float64
	useDelay  int
	lastBreak geom.Pos
	broken    int
	placed    int
}

func NewBody(cat *blocks.Catalog, w *voxel.World, feet geom.Pos) *Body {
	b := &Body{cat: cat, world: w}
	b.Teleport(feet)
	return b
}

// Teleport puts the body at the bottom center of a cell, at rest.
func (b *Body) Teleport(feet geom.Pos) {
	b.pos = feet.BottomCenter()
	b.vel = mgl64.Vec3{}
	b.onGround = b.supported(b.box())
}

func (b *Body) Position() mgl64.Vec3    { return b.pos }
func (b *Body) Velocity() mgl64.Vec3    { return b.vel }
func (b *Body) Eyes() mgl64.Vec3        { return b.pos.Add(mgl64.Vec3{0, EyeHeight, 0}) }
func (b *Body) Rotation() geom.Rotation { return b.rot }
func (b *Body) OnGround() bool          { return b.onGround }
func (b *Body) InLiquid() bool          { return b.inLiquid }

// Broken and Placed count blocks the body changed.
func (b *Body) Broken() int { return b.broken }
func (b *Body) Placed() int { return b.placed }

// Feet is the cell the body stands in. On a bottom slab that is the cell above the slab.
func (b *Body) Feet() geom.Pos {
	p := geom.Floor(b.pos.Add(mgl64.Vec3{0, 0.1251, 0}))
	if s := b.world.At(p); b.cat.Def(s.Kind).Class == blocks.ClassSlab && s.Meta == blocks.SlabBottom {
		return p.Up()
	}
	return p
}

// InWall reports the eyes inside a block that collides.
func (b *Body) InWall() bool {
	e := geom.Floor(b.Eyes())
	lo, hi, ok := shapeOf(b.cat, b.world.At(e))
	if !ok {
		return false
	}
	y := b.Eyes().Y() - float64(e.Y)
	return y >= lo && y < hi
}

func (b *Body) box() aabb {
	h := Width / 2
	return aabb{
		min: mgl64.Vec3{b.pos.X() - h, b.pos.Y(), b.pos.Z() - h},
		max: mgl64.Vec3{b.pos.X() + h, b.pos.Y() + Height, b.pos.Z() + h},
	}
}

// supported reports something to stand on within step height below box.
func (b *Body) supported(box aabb) bool {
	probe := aabb{min: box.min.Sub(mgl64.Vec3{0, StepHeight, 0}), max: mgl64.Vec3{box.max.X(), box.min.Y(), box.max.Z()}}
	for _, c := range boxes(b.world, b.cat, probe) {
		if c.intersects(probe) {
			return true
		}
	}
	return false
}

func (b *Body) liquidAt(p geom.Pos) bool {
	return b.cat.Def(b.world.At(p).Kind).Liquid()
}

func (b *Body) climbing() bool {
	return b.cat.Def(b.world.At(geom.Floor(b.pos.Add(mgl64.Vec3{0, 0.1, 0}))).Kind).Climbable()
}

// Tick turns to the look target, interacts with the world, then moves. hands may be nil
// for a body that only walks.
func (b *Body) Tick(look *Look, in *InputOverride, hands *Hands, reach float64) {
	b.rot = look.apply(b.rot)
	if hands != nil {
		b.interact(in, hands, reach)
	}
	b.physics(in)
}

func (b *Body) wish(in *InputOverride) mgl64.Vec3 {
	var f, s float64
	if in.IsForced(movement.MoveForward) {
		f++
	}
	if in.IsForced(movement.MoveBack) {
		f--
	}
	if in.IsForced(movement.MoveLeft) {
		s--
	}
	if in.IsForced(movement.MoveRight) {
		s++
	}
	if f == 0 && s == 0 {
		return mgl64.Vec3{}
	}
	yaw := mgl64.DegToRad(b.rot.Yaw)
	forward := mgl64.Vec3{-math.Sin(yaw), 0, math.Cos(yaw)}
	right := mgl64.Vec3{-math.Cos(yaw), 0, -math.Sin(yaw)}
	return forward.Mul(f).Add(right.Mul(s)).Normalize()
}

func (b *Body) physics(in *InputOverride) {
	b.sneaking = in.IsForced(movement.Sneak)
	sprint := in.IsForced(movement.Sprint) && in.IsForced(movement.MoveForward) && !b.sneaking
	jump := in.IsForced(movement.Jump)
	feet := geom.Floor(b.pos.Add(mgl64.Vec3{0, 0.1, 0}))
	b.inLiquid = b.liquidAt(feet) || b.liquidAt(feet.Up())
	wish := b.wish(in)

	switch {
	case b.inLiquid:
		v := wish.Mul(WaterSpeed)
		b.vel[0], b.vel[2] = v[0], v[2]
		b.vel[1] = b.vel[1]*0.8 - 0.02
		if jump {
			b.vel[1] += 0.06
		}
	case b.onGround:
		speed := WalkSpeed
		switch {
		case b.sneaking:
			speed = SneakSpeed
		case sprint:
			speed = SprintSpeed
		}
		v := wish.Mul(speed)
		b.vel[0], b.vel[2] = v[0], v[2]
		if jump {
			b.vel[1] = jumpVelocity
			if sprint {
				yaw := mgl64.DegToRad(b.rot.Yaw)
				b.vel[0] -= math.Sin(yaw) * sprintJumpBoost
				b.vel[2] += math.Cos(yaw) * sprintJumpBoost
			}
		}
	default:
		accel := airAccel
		if sprint {
			accel = airAccelSprint
		}
		b.vel[0] = b.vel[0]*airFriction + wish[0]*accel
		b.vel[2] = b.vel[2]*airFriction + wish[2]*accel
	}

	if b.climbing() {
		if jump || (wish.Len() > 0 && b.horizontallyBlocked(wish)) {
			b.vel[1] = ladderClimb
		} else if b.sneaking && b.vel[1] < 0 {
			b.vel[1] = 0
		} else if b.vel[1] < -ladderMaxFall {
			b.vel[1] = -ladderMaxFall
		}
	}

	b.move(b.vel)

	if !b.inLiquid {
		b.vel[1] = (b.vel[1] - gravity) * verticalDrag
	}
}

// horizontallyBlocked reports a wall right in front of the body along dir.
func (b *Body) horizontallyBlocked(dir mgl64.Vec3) bool {
	d := dir.Mul(0.1)
	box := b.box()
	for _, c := range boxes(b.world, b.cat, box.expand(d)) {
		if box.clip(c, 0, d[0]) != d[0] || box.clip(c, 2, d[2]) != d[2] {
			return true
		}
	}
	return false
}

// move applies d with collision: Y first, then X, then Z. A grounded body that hits a low
// obstacle tries to step up onto it.
func (b *Body) move(d mgl64.Vec3) {
	box := b.box()
	if b.sneaking && b.onGround {
		d = b.guardEdges(box, d)
	}
	res, got := b.sweep(box, d)
	landed := d[1] < 0 && got[1] != d[1]

	blockedH := got[0] != d[0] || got[2] != d[2]
	if blockedH && (b.onGround || landed) {
		up, rise := b.sweep(box, mgl64.Vec3{0, StepHeight, 0})
		across, h := b.sweep(up, mgl64.Vec3{d[0], 0, d[2]})
		down, _ := b.sweep(across, mgl64.Vec3{0, -rise[1], 0})
		if down.min.Y() > box.min.Y()+1e-9 && hyp(h[0], h[2]) > hyp(got[0], got[2])+1e-9 {
			res = down
			got = mgl64.Vec3{h[0], down.min.Y() - box.min.Y(), h[2]}
			landed = true
		}
	}

	b.pos = mgl64.Vec3{(res.min.X() + res.max.X()) / 2, res.min.Y(), (res.min.Z() + res.max.Z()) / 2}
	b.onGround = landed || (d[1] == 0 && b.onGround && b.supported(res))
	if got[0] != d[0] {
		b.vel[0] = 0
	}
	if got[2] != d[2] {
		b.vel[2] = 0
	}
	if got[1] != d[1] {
		b.vel[1] = 0
	}
}

func (b *Body) sweep(box aabb, d mgl64.Vec3) (aabb, mgl64.Vec3) {
	cs := boxes(b.world, b.cat, box.expand(d))
	for _, ax := range [3]int{1, 0, 2} {
		v := d[ax]
		for _, c := range cs {
			v = box.clip(c, ax, v)
		}
		var off mgl64.Vec3
		off[ax] = v
		box = box.offset(off)
		d[ax] = v
	}
	return box, d
}

// guardEdges shrinks horizontal motion so a sneaking body keeps something under its
// footprint.
func (b *Body) guardEdges(box aabb, d mgl64.Vec3) mgl64.Vec3 {
	for _, ax := range [2]int{0, 2} {
		for d[ax] != 0 {
			var off mgl64.Vec3
			off[ax] = d[ax]
			if b.supported(box.offset(off)) {
				break
			}
			d[ax] = shrink(d[ax])
		}
	}
	for d[0] != 0 && d[2] != 0 && !b.supported(box.offset(mgl64.Vec3{d[0], 0, d[2]})) {
		d[0], d[2] = shrink(d[0]), shrink(d[2])
	}
	return d
}

func shrink(v float64) float64 {
	switch {
	case v < sneakEdgeStep && v >= -sneakEdgeStep:
		return 0
	case v > 0:
		return v - sneakEdgeStep
	}
	return v + sneakEdgeStep
}

func hyp(a, b float64) float64 { return math.Sqrt(a*a + b*b) }
