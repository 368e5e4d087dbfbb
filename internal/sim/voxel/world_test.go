package voxel

import (
	"testing"

	"voxelmotion.ai/internal/sim/blocks"
	"voxelmotion.ai/internal/sim/geom"
)

func TestSnapshotIsIsolatedFromLaterWrites(t *testing.T) {
	cat := blocks.Default()
	stone := blocks.S(cat.MustKind("STONE"))
	w := New(16, Border{})
	w.LoadChunks([]ChunkKey{{0, 0}, {-1, 0}}, func(x, y, z int) blocks.State {
		if y == 0 {
			return stone
		}
		return blocks.AirState
	})

	snap := w.Snapshot(geom.P(0, 0, 0), 1)
	if !w.Set(3, 1, 3, stone) {
		t.Fatalf("set failed")
	}
	if got := snap.Get(3, 1, 3); got != blocks.AirState {
		t.Fatalf("snapshot saw later write: %+v", got)
	}
	if got := w.Get(3, 1, 3); got != stone {
		t.Fatalf("world lost write: %+v", got)
	}
	if got := snap.Get(-5, 0, 2); got != stone {
		t.Fatalf("negative chunk lookup: %+v", got)
	}
}

func TestUnknownOutsideLoadedArea(t *testing.T) {
	w := New(8, Border{})
	w.LoadChunks([]ChunkKey{{0, 0}}, nil)
	if w.Get(100, 1, 100) != blocks.UnknownState {
		t.Fatalf("unloaded cell should be unknown")
	}
	if w.Get(1, -1, 1) != blocks.UnknownState || w.Get(1, 8, 1) != blocks.UnknownState {
		t.Fatalf("out of range y should be unknown")
	}
	if w.Loaded(16, 0) || !w.Loaded(15, 15) {
		t.Fatalf("loaded mismatch")
	}
	if w.Set(100, 1, 100, blocks.AirState) {
		t.Fatalf("write to unloaded chunk should fail")
	}
}

func TestGenerationBumpsPerBatch(t *testing.T) {
	w := New(8, Border{})
	g0 := w.Generation()
	w.LoadChunks([]ChunkKey{{0, 0}, {1, 0}, {2, 0}}, nil)
	if w.Generation() != g0+1 {
		t.Fatalf("generation=%d want %d", w.Generation(), g0+1)
	}
	w.Set(1, 1, 1, blocks.AirState)
	if w.Generation() != g0+1 {
		t.Fatalf("block writes must not change generation")
	}
}

func TestBorderAndProtection(t *testing.T) {
	b := Border{Radius: 10}
	if !b.CanPlaceAt(9, -9) || b.CanPlaceAt(10, 0) {
		t.Fatalf("border mismatch")
	}
	w := New(8, b)
	w.Protect(Region{Min: geom.P(0, 0, 0), Max: geom.P(2, 2, 2)})
	snap := w.Snapshot(geom.P(0, 0, 0), 0)
	if !snap.Protected(1, 1, 1) || snap.Protected(3, 1, 1) {
		t.Fatalf("protection not copied into snapshot")
	}
}

func TestBuildLayers(t *testing.T) {
	cat := blocks.Default()
	w, err := Build(cat, nil,
		[]string{"###", "###"},
		[]string{"..w", "..."},
	)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if w.Get(2, 1, 0).Kind != cat.MustKind("WATER") {
		t.Fatalf("water missing")
	}
	if w.Get(1, 0, 1).Kind != cat.MustKind("STONE") {
		t.Fatalf("stone missing")
	}
	if _, err := Build(cat, nil, []string{"?"}); err == nil {
		t.Fatalf("expected legend error")
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	cat := blocks.Default()
	a := Generate(cat, GenConfig{Seed: 42, RadiusChunk: 1, Height: 32})
	b := Generate(cat, GenConfig{Seed: 42, RadiusChunk: 1, Height: 32})
	if a.Digest() != b.Digest() {
		t.Fatalf("digest mismatch")
	}
}
