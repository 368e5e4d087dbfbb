package voxel

import (
	"crypto/sha256"
	"encoding/binary"

	"voxelmotion.ai/internal/sim/blocks"
)

const ChunkSize = 16

type ChunkKey struct {
	CX int
	CZ int
}

func KeyFor(x, z int) ChunkKey {
	return ChunkKey{CX: floorDiv(x, ChunkSize), CZ: floorDiv(z, ChunkSize)}
}

// Chunk is a 16x16 column of voxels. A frozen chunk is referenced by at least one snapshot
// and must be cloned before it is written.
type Chunk struct {
	CX, CZ int
	Height int
	Blocks []blocks.State // len = 16*16*Height

	frozen bool
	dirty  bool
	hash   [32]byte
}

func NewChunk(cx, cz, height int) *Chunk {
	return &Chunk{CX: cx, CZ: cz, Height: height, Blocks: make([]blocks.State, ChunkSize*ChunkSize*height), dirty: true}
}

func (c *Chunk) index(lx, y, lz int) int {
	return lx + lz*ChunkSize + y*ChunkSize*ChunkSize
}

func (c *Chunk) Get(lx, y, lz int) blocks.State {
	return c.Blocks[c.index(lx, y, lz)]
}

func (c *Chunk) Set(lx, y, lz int, s blocks.State) {
	i := c.index(lx, y, lz)
	if c.Blocks[i] == s {
		return
	}
	c.Blocks[i] = s
	c.dirty = true
}

func (c *Chunk) clone() *Chunk {
	out := &Chunk{CX: c.CX, CZ: c.CZ, Height: c.Height, Blocks: make([]blocks.State, len(c.Blocks)), dirty: c.dirty, hash: c.hash}
	copy(out.Blocks, c.Blocks)
	return out
}

func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [3]byte
		for _, v := range c.Blocks {
			binary.LittleEndian.PutUint16(tmp[:2], uint16(v.Kind))
			tmp[2] = v.Meta
			h.Write(tmp[:])
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
