package voxel

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxelmotion.ai/internal/sim/blocks"
	"voxelmotion.ai/internal/sim/geom"
)

// Hit is the result of a ray cast: the first matching cell and the face the ray entered it
// through. Face points from the cell back toward the ray origin.
type Hit struct {
	Pos   geom.Pos
	Face  geom.Direction
	Point mgl64.Vec3
	Dist  float64
}

// Adjacent is the cell on the hit face, where a block placed against the hit would go.
func (h Hit) Adjacent() geom.Pos { return h.Pos.Step(h.Face) }

// RayCast walks the cells crossed by a ray (Amanatides-Woo traversal) and returns the first
// one for which stop reports true, within maxDist.
func RayCast(l Lookup, origin, dir mgl64.Vec3, maxDist float64, stop func(geom.Pos, blocks.State) bool) (Hit, bool) {
	if dir.Len() == 0 {
		return Hit{}, false
	}
	d := dir.Normalize()
	cell := geom.Floor(origin)

	var step [3]int
	var tMax, tDelta [3]float64
	c := [3]int{cell.X, cell.Y, cell.Z}
	for i := 0; i < 3; i++ {
		switch {
		case d[i] > 0:
			step[i] = 1
			tMax[i] = (float64(c[i]+1) - origin[i]) / d[i]
			tDelta[i] = 1 / d[i]
		case d[i] < 0:
			step[i] = -1
			tMax[i] = (origin[i] - float64(c[i])) / -d[i]
			tDelta[i] = -1 / d[i]
		default:
			tMax[i] = math.Inf(1)
			tDelta[i] = math.Inf(1)
		}
	}

	face := entryFace(d)
	t := 0.0
	for t <= maxDist {
		p := geom.P(c[0], c[1], c[2])
		if stop(p, l.Get(p.X, p.Y, p.Z)) {
			return Hit{Pos: p, Face: face, Point: origin.Add(d.Mul(t)), Dist: t}, true
		}
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		t = tMax[axis]
		tMax[axis] += tDelta[axis]
		c[axis] += step[axis]
		face = faceFor(axis, step[axis])
	}
	return Hit{}, false
}

// Solid is the usual stop function: anything that is not air, liquid or unloaded.
func Solid(cat *blocks.Catalog) func(geom.Pos, blocks.State) bool {
	return func(_ geom.Pos, s blocks.State) bool {
		if s.Kind == blocks.Air || s.Kind == blocks.Unknown {
			return false
		}
		d := cat.Def(s.Kind)
		return d.Class != blocks.ClassAir && !d.Liquid()
	}
}

func faceFor(axis, step int) geom.Direction {
	switch axis {
	case 0:
		if step > 0 {
			return geom.West
		}
		return geom.East
	case 1:
		if step > 0 {
			return geom.Down
		}
		return geom.Up
	default:
		if step > 0 {
			return geom.North
		}
		return geom.South
	}
}

// entryFace is used when the origin cell itself stops the ray.
func entryFace(d mgl64.Vec3) geom.Direction {
	ax, ay, az := math.Abs(d[0]), math.Abs(d[1]), math.Abs(d[2])
	switch {
	case ay >= ax && ay >= az:
		return faceFor(1, sign(d[1]))
	case ax >= az:
		return faceFor(0, sign(d[0]))
	default:
		return faceFor(2, sign(d[2]))
	}
}

func sign(f float64) int {
	if f < 0 {
		return -1
	}
	return 1
}
