package geom

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Rotation is a look direction in degrees. Yaw 0 faces +Z (south), 90 faces -X (west);
// pitch 90 looks straight down.
type Rotation struct {
	Yaw   float64
	Pitch float64
}

func (r Rotation) Add(o Rotation) Rotation {
	return Rotation{Yaw: r.Yaw + o.Yaw, Pitch: r.Pitch + o.Pitch}
}

func (r Rotation) Subtract(o Rotation) Rotation {
	return Rotation{Yaw: r.Yaw - o.Yaw, Pitch: r.Pitch - o.Pitch}
}

// Clamp limits pitch to [-90, 90].
func (r Rotation) Clamp() Rotation {
	return Rotation{Yaw: r.Yaw, Pitch: ClampPitch(r.Pitch)}
}

// Normalize wraps yaw into [-180, 180).
func (r Rotation) Normalize() Rotation {
	return Rotation{Yaw: NormalizeYaw(r.Yaw), Pitch: r.Pitch}
}

func (r Rotation) NormalizeAndClamp() Rotation {
	return Rotation{Yaw: NormalizeYaw(r.Yaw), Pitch: ClampPitch(r.Pitch)}
}

// YawIsReallyClose compares yaw modulo a full turn.
func (r Rotation) YawIsReallyClose(o Rotation) bool {
	diff := math.Abs(NormalizeYaw(r.Yaw) - NormalizeYaw(o.Yaw))
	return diff < 0.01 || diff > 359.99
}

func (r Rotation) IsReallyCloseTo(o Rotation) bool {
	return r.YawIsReallyClose(o) && math.Abs(r.Pitch-o.Pitch) < 0.01
}

func (r Rotation) String() string {
	return fmt.Sprintf("yaw=%.2f pitch=%.2f", r.Yaw, r.Pitch)
}

func NormalizeYaw(yaw float64) float64 {
	y := math.Mod(yaw, 360)
	if y >= 180 {
		y -= 360
	}
	if y < -180 {
		y += 360
	}
	return y
}

func ClampPitch(pitch float64) float64 {
	return math.Max(-90, math.Min(90, pitch))
}

// WrapRelative rewrites target so that its yaw is the shortest turn away from current. The
// result may lie outside [-180, 180) when current does.
func WrapRelative(current, target Rotation) Rotation {
	if current.YawIsReallyClose(target) {
		return Rotation{Yaw: current.Yaw, Pitch: target.Pitch}
	}
	return target.Subtract(current).Normalize().Add(current)
}

// CalcRotation returns the rotation that looks from orig toward dest, wrapped relative to current.
func CalcRotation(orig, dest mgl64.Vec3, current Rotation) Rotation {
	return WrapRelative(current, calcRotation(orig, dest))
}

func calcRotation(orig, dest mgl64.Vec3) Rotation {
	delta := orig.Sub(dest)
	yaw := mgl64.RadToDeg(math.Atan2(delta.X(), -delta.Z()))
	dist := math.Sqrt(delta.X()*delta.X() + delta.Z()*delta.Z())
	pitch := mgl64.RadToDeg(math.Atan2(delta.Y(), dist))
	return Rotation{Yaw: yaw, Pitch: pitch}
}

// LookVector is the unit vector a rotation points along.
func LookVector(r Rotation) mgl64.Vec3 {
	yaw := mgl64.DegToRad(r.Yaw)
	pitch := mgl64.DegToRad(r.Pitch)
	f := math.Cos(-yaw - math.Pi)
	f1 := math.Sin(-yaw - math.Pi)
	f2 := -math.Cos(-pitch)
	f3 := math.Sin(-pitch)
	return mgl64.Vec3{f1 * f2, f3, f * f2}
}

// YawToward is the horizontal heading from one point to another.
func YawToward(orig, dest mgl64.Vec3) float64 {
	return calcRotation(orig, dest).Yaw
}
