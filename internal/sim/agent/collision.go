package agent

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxelmotion.ai/internal/sim/blocks"
	"voxelmotion.ai/internal/sim/voxel"
)

type aabb struct {
	min, max mgl64.Vec3
}

func (a aabb) offset(d mgl64.Vec3) aabb { return aabb{a.min.Add(d), a.max.Add(d)} }

// expand grows the box toward d, covering everything swept by moving it by d.
func (a aabb) expand(d mgl64.Vec3) aabb {
	out := a
	for i := 0; i < 3; i++ {
		if d[i] < 0 {
			out.min[i] += d[i]
		} else {
			out.max[i] += d[i]
		}
	}
	return out
}

func overlap(amin, amax, bmin, bmax float64) bool { return amax > bmin && amin < bmax }

func (a aabb) intersects(b aabb) bool {
	return overlap(a.min[0], a.max[0], b.min[0], b.max[0]) &&
		overlap(a.min[1], a.max[1], b.min[1], b.max[1]) &&
		overlap(a.min[2], a.max[2], b.min[2], b.max[2])
}

// clip shortens d along axis so that a moving by d does not enter b.
func (a aabb) clip(b aabb, axis int, d float64) float64 {
	for i := 0; i < 3; i++ {
		if i != axis && !overlap(a.min[i], a.max[i], b.min[i], b.max[i]) {
			return d
		}
	}
	if d > 0 && b.min[axis] >= a.max[axis] {
		return math.Min(d, b.min[axis]-a.max[axis])
	}
	if d < 0 && b.max[axis] <= a.min[axis] {
		return math.Max(d, b.max[axis]-a.min[axis])
	}
	return d
}

// shapeOf is the collision box of a block inside its unit cell as (minY, maxY), or false
// when nothing collides. Every shape spans the full cell horizontally.
func shapeOf(cat *blocks.Catalog, s blocks.State) (float64, float64, bool) {
	if s.Kind == blocks.Air || s.Kind == blocks.Unknown {
		return 0, 0, false
	}
	d := cat.Def(s.Kind)
	switch d.Class {
	case blocks.ClassAir, blocks.ClassWater, blocks.ClassLava, blocks.ClassPlant, blocks.ClassTorch,
		blocks.ClassFire, blocks.ClassVine, blocks.ClassLadder, blocks.ClassWeb:
		return 0, 0, false
	case blocks.ClassDoor, blocks.ClassIronDoor, blocks.ClassGate:
		if s.Meta == 1 {
			return 0, 0, false
		}
		if d.Class == blocks.ClassGate {
			return 0, 1.5, true
		}
		return 0, 1, true
	case blocks.ClassTrapdoor:
		if s.Meta == 1 {
			return 0, 0, false
		}
		return 0, 0.1875, true
	case blocks.ClassSlab:
		switch s.Meta {
		case blocks.SlabBottom:
			return 0, 0.5, true
		case blocks.SlabTop:
			return 0.5, 1, true
		}
		return 0, 1, true
	case blocks.ClassSnow:
		if s.Meta <= 1 {
			return 0, 0, false
		}
		return 0, float64(s.Meta-1) * 0.125, true
	case blocks.ClassCarpet:
		return 0, 0.0625, true
	case blocks.ClassLilyPad:
		return 0, 0.09375, true
	case blocks.ClassFarmland, blocks.ClassSoulSand, blocks.ClassChest:
		return 0, 0.875, true
	case blocks.ClassScaffolding:
		return 0.875, 1, true
	}
	return 0, 1, true
}

// boxes lists the collision boxes of every cell the region touches. Gates reach half a
// block into the cell above, so the scan starts one cell lower.
func boxes(l voxel.Lookup, cat *blocks.Catalog, region aabb) []aabb {
	x0, x1 := int(math.Floor(region.min[0])), int(math.Floor(region.max[0]))
	y0, y1 := int(math.Floor(region.min[1]))-1, int(math.Floor(region.max[1]))
	z0, z1 := int(math.Floor(region.min[2])), int(math.Floor(region.max[2]))
	var out []aabb
	for x := x0; x <= x1; x++ {
		for z := z0; z <= z1; z++ {
			if !l.Loaded(x, z) {
				// unloaded terrain is a wall so the body never walks into the void
				out = append(out, aabb{mgl64.Vec3{float64(x), float64(y0), float64(z)}, mgl64.Vec3{float64(x + 1), float64(y1 + 1), float64(z + 1)}})
				continue
			}
			for y := y0; y <= y1; y++ {
				lo, hi, ok := shapeOf(cat, l.Get(x, y, z))
				if !ok {
					continue
				}
				b := aabb{
					mgl64.Vec3{float64(x), float64(y) + lo, float64(z)},
					mgl64.Vec3{float64(x + 1), float64(y) + hi, float64(z + 1)},
				}
				if b.intersects(region) {
					out = append(out, b)
				}
			}
		}
	}
	return out
}
