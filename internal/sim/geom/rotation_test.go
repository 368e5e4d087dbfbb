package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestNormalizeYaw(t *testing.T) {
	cases := map[float64]float64{0: 0, 179: 179, 180: -180, -190: 170, 540: -180, -360: 0, 725: 5}
	for in, want := range cases {
		if got := NormalizeYaw(in); math.Abs(got-want) > 1e-9 {
			t.Fatalf("NormalizeYaw(%v)=%v want %v", in, got, want)
		}
	}
}

func TestWrapRelativeTakesShortWay(t *testing.T) {
	cur := Rotation{Yaw: 170}
	got := WrapRelative(cur, Rotation{Yaw: -170, Pitch: 10})
	if math.Abs(got.Yaw-190) > 1e-9 || got.Pitch != 10 {
		t.Fatalf("WrapRelative=%v", got)
	}
	cur = Rotation{Yaw: 720 + 10}
	got = WrapRelative(cur, Rotation{Yaw: 10, Pitch: 5})
	if got.Yaw != cur.Yaw || got.Pitch != 5 {
		t.Fatalf("same heading should keep current yaw: %v", got)
	}
}

func TestReallyClose(t *testing.T) {
	if !(Rotation{Yaw: 359.995}).YawIsReallyClose(Rotation{Yaw: 0}) {
		t.Fatalf("wraparound yaw should be close")
	}
	if (Rotation{Yaw: 0, Pitch: 1}).IsReallyCloseTo(Rotation{Yaw: 0, Pitch: 1.5}) {
		t.Fatalf("pitch differs")
	}
}

func TestCalcRotationAndLookVectorAgree(t *testing.T) {
	orig := mgl64.Vec3{0.5, 1.62, 0.5}
	for _, dest := range []mgl64.Vec3{{3.5, 1.62, 0.5}, {0.5, 0, 0.5}, {-4, 3, -2}, {0.5, 1.62, 9}} {
		rot := CalcRotation(orig, dest, Rotation{})
		dir := dest.Sub(orig).Normalize()
		look := LookVector(rot)
		if look.Sub(dir).Len() > 1e-6 {
			t.Fatalf("dest=%v rot=%v look=%v want %v", dest, rot, look, dir)
		}
	}
}

func TestPosHelpers(t *testing.T) {
	p := P(1, 2, 3)
	if p.Step(North) != P(1, 2, 2) || p.Step(East) != P(2, 2, 3) {
		t.Fatalf("step mismatch")
	}
	if got := p.Manhattan(P(0, 0, 0)); got != 6 {
		t.Fatalf("Manhattan=%d", got)
	}
	if Floor(mgl64.Vec3{-0.5, 1.99, 2}) != P(-1, 1, 2) {
		t.Fatalf("floor mismatch")
	}
	if P(-1, 5, 7).Key() == P(1, 5, 7).Key() {
		t.Fatalf("key collision")
	}
}
