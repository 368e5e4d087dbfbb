package voxel

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync/atomic"

	"voxelmotion.ai/internal/sim/blocks"
	"voxelmotion.ai/internal/sim/geom"
)

// Lookup is the read side of a voxel grid. Cells that are out of bounds or not loaded read
// as blocks.UnknownState.
type Lookup interface {
	Get(x, y, z int) blocks.State
	Loaded(x, z int) bool
	Height() int
	Border() Border
	Protected(x, y, z int) bool
}

// Border is a square world border centered on the origin. Radius 0 disables it.
type Border struct {
	Radius int
}

func (b Border) CanPlaceAt(x, z int) bool {
	if b.Radius <= 0 {
		return true
	}
	return x > -b.Radius && x < b.Radius && z > -b.Radius && z < b.Radius
}

// Region is an inclusive box of protected cells.
type Region struct {
	Min geom.Pos
	Max geom.Pos
}

func (r Region) Contains(x, y, z int) bool {
	return x >= r.Min.X && x <= r.Max.X && y >= r.Min.Y && y <= r.Max.Y && z >= r.Min.Z && z <= r.Max.Z
}

// World is the live, mutable voxel grid. It is owned by the tick goroutine; background
// work reads a Snapshot instead.
type World struct {
	height    int
	border    Border
	chunks    map[ChunkKey]*Chunk
	protected []Region
	falling   map[geom.Pos]bool

	generation atomic.Uint64
	revision   atomic.Uint64
}

func New(height int, border Border) *World {
	return &World{
		height:  height,
		border:  border,
		chunks:  map[ChunkKey]*Chunk{},
		falling: map[geom.Pos]bool{},
	}
}

func (w *World) Height() int    { return w.height }
func (w *World) Border() Border { return w.border }

// Generation changes whenever a batch of chunks is loaded or unloaded. Cached block
// lists derived from an older generation must be recomputed.
func (w *World) Generation() uint64 { return w.generation.Load() }

// Revision changes on every block write.
func (w *World) Revision() uint64 { return w.revision.Load() }

// LoadChunks fills and installs a batch of chunks, bumping the generation once.
func (w *World) LoadChunks(keys []ChunkKey, fill func(x, y, z int) blocks.State) {
	for _, k := range keys {
		c := NewChunk(k.CX, k.CZ, w.height)
		if fill != nil {
			for y := 0; y < w.height; y++ {
				for lz := 0; lz < ChunkSize; lz++ {
					for lx := 0; lx < ChunkSize; lx++ {
						c.Set(lx, y, lz, fill(k.CX*ChunkSize+lx, y, k.CZ*ChunkSize+lz))
					}
				}
			}
		}
		w.chunks[k] = c
	}
	w.generation.Add(1)
}

func (w *World) UnloadChunks(keys []ChunkKey) {
	for _, k := range keys {
		delete(w.chunks, k)
	}
	w.generation.Add(1)
}

func (w *World) Loaded(x, z int) bool {
	_, ok := w.chunks[KeyFor(x, z)]
	return ok
}

func (w *World) Get(x, y, z int) blocks.State {
	if y < 0 || y >= w.height {
		return blocks.UnknownState
	}
	c := w.chunks[KeyFor(x, z)]
	if c == nil {
		return blocks.UnknownState
	}
	return c.Get(floorMod(x, ChunkSize), y, floorMod(z, ChunkSize))
}

func (w *World) At(p geom.Pos) blocks.State { return w.Get(p.X, p.Y, p.Z) }

// Set writes a block. Writes outside loaded chunks are dropped and reported as false.
func (w *World) Set(x, y, z int, s blocks.State) bool {
	if y < 0 || y >= w.height {
		return false
	}
	k := KeyFor(x, z)
	c := w.chunks[k]
	if c == nil {
		return false
	}
	if c.frozen {
		c = c.clone()
		w.chunks[k] = c
	}
	c.Set(floorMod(x, ChunkSize), y, floorMod(z, ChunkSize), s)
	w.revision.Add(1)
	return true
}

func (w *World) SetAt(p geom.Pos, s blocks.State) bool { return w.Set(p.X, p.Y, p.Z, s) }

func (w *World) Protect(r Region) { w.protected = append(w.protected, r) }

func (w *World) Protected(x, y, z int) bool { return protectedIn(w.protected, x, y, z) }

// SetFallingBlock marks a falling block entity as occupying a cell.
func (w *World) SetFallingBlock(p geom.Pos, falling bool) {
	if falling {
		w.falling[p] = true
		return
	}
	delete(w.falling, p)
}

func (w *World) FallingBlockAt(p geom.Pos) bool { return w.falling[p] }

// Snapshot freezes every loaded chunk within radius chunks of center. The snapshot is
// immutable and safe to read from any goroutine; later writes to the world clone the
// affected chunk instead of touching the frozen copy.
func (w *World) Snapshot(center geom.Pos, radius int) *Snapshot {
	cc := KeyFor(center.X, center.Z)
	s := &Snapshot{
		height:     w.height,
		border:     w.border,
		chunks:     make(map[ChunkKey]*Chunk),
		protected:  append([]Region(nil), w.protected...),
		generation: w.generation.Load(),
	}
	for k, c := range w.chunks {
		if abs(k.CX-cc.CX) > radius || abs(k.CZ-cc.CZ) > radius {
			continue
		}
		c.frozen = true
		s.chunks[k] = c
	}
	return s
}

// Chunks returns the loaded chunks in key order. Callers must not write to them.
func (w *World) Chunks() []*Chunk {
	keys := make([]ChunkKey, 0, len(w.chunks))
	for k := range w.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	out := make([]*Chunk, len(keys))
	for i, k := range keys {
		out[i] = w.chunks[k]
	}
	return out
}

// Install adds fully built chunks, replacing loaded ones with the same key, and bumps
// the generation once.
func (w *World) Install(chunks []*Chunk) error {
	for _, c := range chunks {
		if c.Height != w.height || len(c.Blocks) != ChunkSize*ChunkSize*w.height {
			return fmt.Errorf("chunk %d,%d: height %d does not match world height %d", c.CX, c.CZ, c.Height, w.height)
		}
	}
	for _, c := range chunks {
		c.dirty = true
		w.chunks[ChunkKey{CX: c.CX, CZ: c.CZ}] = c
	}
	w.generation.Add(1)
	return nil
}

// Digest hashes every loaded chunk in key order.
func (w *World) Digest() string {
	h := sha256.New()
	for _, c := range w.Chunks() {
		d := c.Digest()
		h.Write(d[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

func protectedIn(regions []Region, x, y, z int) bool {
	for _, r := range regions {
		if r.Contains(x, y, z) {
			return true
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
