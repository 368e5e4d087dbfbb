package geom

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Pos is an integer voxel coordinate.
type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func P(x, y, z int) Pos { return Pos{X: x, Y: y, Z: z} }

func (p Pos) Add(o Pos) Pos { return Pos{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z} }
func (p Pos) Sub(o Pos) Pos { return Pos{X: p.X - o.X, Y: p.Y - o.Y, Z: p.Z - o.Z} }

func (p Pos) Offset(dx, dy, dz int) Pos { return Pos{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz} }

func (p Pos) Up() Pos   { return p.Offset(0, 1, 0) }
func (p Pos) Down() Pos { return p.Offset(0, -1, 0) }

func (p Pos) UpN(n int) Pos   { return p.Offset(0, n, 0) }
func (p Pos) DownN(n int) Pos { return p.Offset(0, -n, 0) }

func (p Pos) Step(d Direction) Pos {
	o := d.Offset()
	return p.Add(o)
}

func (p Pos) DistanceSq(o Pos) int {
	dx, dy, dz := p.X-o.X, p.Y-o.Y, p.Z-o.Z
	return dx*dx + dy*dy + dz*dz
}

func (p Pos) Manhattan(o Pos) int {
	return abs(p.X-o.X) + abs(p.Y-o.Y) + abs(p.Z-o.Z)
}

// DistXZ is the Manhattan distance on the horizontal plane.
func (p Pos) DistXZ(o Pos) int {
	return abs(p.X-o.X) + abs(p.Z-o.Z)
}

// Center is the middle of the voxel in world space.
func (p Pos) Center() mgl64.Vec3 {
	return mgl64.Vec3{float64(p.X) + 0.5, float64(p.Y) + 0.5, float64(p.Z) + 0.5}
}

// BottomCenter is the point an agent stands on when centered in the voxel.
func (p Pos) BottomCenter() mgl64.Vec3 {
	return mgl64.Vec3{float64(p.X) + 0.5, float64(p.Y), float64(p.Z) + 0.5}
}

func (p Pos) String() string { return fmt.Sprintf("%d,%d,%d", p.X, p.Y, p.Z) }

// Floor returns the voxel containing a world-space point.
func Floor(v mgl64.Vec3) Pos {
	return Pos{X: floor(v[0]), Y: floor(v[1]), Z: floor(v[2])}
}

// Key packs a position into a single map key. Coordinates must fit in 26 bits for X/Z and
// 12 bits for Y, which covers every world this module builds.
func (p Pos) Key() int64 {
	return (int64(p.X)&0x3FFFFFF)<<38 | (int64(p.Y)&0xFFF)<<26 | int64(p.Z)&0x3FFFFFF
}

func floor(f float64) int {
	i := int(f)
	if f < float64(i) {
		i--
	}
	return i
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
