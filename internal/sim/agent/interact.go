package agent

import (
	"github.com/go-gl/mathgl/mgl64"

	"voxelmotion.ai/internal/sim/blocks"
	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/movement"
	"voxelmotion.ai/internal/sim/voxel"
)

// useCooldown is the number of ticks between two right clicks that do something.
const useCooldown = 4

func (b *Body) cast(reach float64, stop func(geom.Pos, blocks.State) bool) (voxel.Hit, bool) {
	return voxel.RayCast(b.world, b.Eyes(), geom.LookVector(b.rot), reach, stop)
}

// waterSource also stops on still water, for picking it up with a bucket.
func (b *Body) waterSource() func(geom.Pos, blocks.State) bool {
	solid := voxel.Solid(b.cat)
	return func(p geom.Pos, s blocks.State) bool {
		if b.cat.Def(s.Kind).Class == blocks.ClassWater {
			return s.Meta == 0
		}
		return solid(p, s)
	}
}

func (b *Body) interact(in *InputOverride, hands *Hands, reach float64) {
	if b.useDelay > 0 {
		b.useDelay--
	}
	if in.IsForced(movement.ClickLeft) {
		b.mine(hands, reach)
	} else {
		b.miningOn = false
		b.progress = 0
	}
	if in.IsForced(movement.ClickRight) && b.useDelay == 0 {
		if b.use(hands, reach) {
			b.useDelay = useCooldown
		}
	}
}

// mine accumulates break progress on the block under the crosshair and breaks it once the
// progress reaches one.
func (b *Body) mine(hands *Hands, reach float64) {
	hit, ok := b.cast(reach, voxel.Solid(b.cat))
	if !ok {
		b.miningOn = false
		b.progress = 0
		return
	}
	if !b.miningOn || hit.Pos != b.mining {
		b.mining, b.miningOn, b.progress = hit.Pos, true, 0
	}
	s := b.world.At(hit.Pos)
	if b.world.Protected(hit.Pos.X, hit.Pos.Y, hit.Pos.Z) {
		return
	}
	b.progress += hands.breakStrength(s)
	if b.progress < 1 {
		return
	}
	b.world.SetAt(hit.Pos, blocks.AirState)
	b.miningOn, b.progress = false, 0
	b.lastBreak = hit.Pos
	b.broken++
	b.settle(hit.Pos.X, hit.Pos.Y+1, hit.Pos.Z)
}

// settle drops the falling blocks stacked from (x, y, z) upward onto whatever is below.
func (b *Body) settle(x, y, z int) {
	for ; y < b.world.Height(); y++ {
		s := b.world.Get(x, y, z)
		if !b.cat.Def(s.Kind).Falling {
			return
		}
		land := y
		for land > 0 {
			below := b.world.Get(x, land-1, z)
			if _, _, solid := shapeOf(b.cat, below); solid || b.cat.Def(below.Kind).Liquid() {
				break
			}
			land--
		}
		if land == y {
			continue
		}
		b.world.Set(x, y, z, blocks.AirState)
		b.world.Set(x, land, z, s)
	}
}

// use performs a right click: toggling a wooden door or gate, placing the held throwaway
// block, or pouring or filling a bucket.
func (b *Body) use(hands *Hands, reach float64) bool {
	switch hands.Held() {
	case HeldEmptyBucket:
		hit, ok := b.cast(reach, b.waterSource())
		if !ok || b.cat.Def(b.world.At(hit.Pos).Kind).Class != blocks.ClassWater {
			return false
		}
		if !hands.inv.FillBucket() {
			return false
		}
		b.world.SetAt(hit.Pos, blocks.AirState)
		return true
	}

	hit, ok := b.cast(reach, voxel.Solid(b.cat))
	if !ok {
		return false
	}
	target := b.world.At(hit.Pos)
	switch b.cat.Def(target.Kind).Class {
	case blocks.ClassDoor, blocks.ClassGate, blocks.ClassTrapdoor:
		b.world.SetAt(hit.Pos, target.WithMeta(target.Meta^1))
		return true
	}

	at := hit.Adjacent()
	if !b.canPlaceAt(at) {
		return false
	}
	switch hands.Held() {
	case HeldThrowaway:
		k := hands.throwaway
		if !hands.inv.Consume(k) {
			return false
		}
		b.world.SetAt(at, blocks.S(k))
		b.placed++
		return true
	case HeldWaterBucket:
		water, ok := b.cat.Kind("WATER")
		if !ok || !hands.inv.PourBucket() {
			return false
		}
		b.world.SetAt(at, blocks.S(water))
		return true
	}
	return false
}

func (b *Body) canPlaceAt(p geom.Pos) bool {
	if !b.world.Border().CanPlaceAt(p.X, p.Z) || b.world.Protected(p.X, p.Y, p.Z) {
		return false
	}
	s := b.world.At(p)
	d := b.cat.Def(s.Kind)
	switch d.Class {
	case blocks.ClassAir, blocks.ClassPlant, blocks.ClassFire, blocks.ClassVine, blocks.ClassWater, blocks.ClassLava:
	case blocks.ClassSnow:
		if s.Meta > 1 {
			return false
		}
	default:
		return false
	}
	cell := aabb{
		min: mgl64.Vec3{float64(p.X), float64(p.Y), float64(p.Z)},
		max: mgl64.Vec3{float64(p.X + 1), float64(p.Y + 1), float64(p.Z + 1)},
	}
	return !cell.intersects(b.box())
}
