package voxel

import "voxelmotion.ai/internal/sim/blocks"

// Snapshot is a frozen view of part of a World.
type Snapshot struct {
	height     int
	border     Border
	chunks     map[ChunkKey]*Chunk
	protected  []Region
	generation uint64
}

func (s *Snapshot) Height() int        { return s.height }
func (s *Snapshot) Border() Border     { return s.border }
func (s *Snapshot) Generation() uint64 { return s.generation }
func (s *Snapshot) Chunks() int        { return len(s.chunks) }

func (s *Snapshot) Loaded(x, z int) bool {
	_, ok := s.chunks[KeyFor(x, z)]
	return ok
}

func (s *Snapshot) Get(x, y, z int) blocks.State {
	if y < 0 || y >= s.height {
		return blocks.UnknownState
	}
	c := s.chunks[KeyFor(x, z)]
	if c == nil {
		return blocks.UnknownState
	}
	return c.Get(floorMod(x, ChunkSize), y, floorMod(z, ChunkSize))
}

func (s *Snapshot) Protected(x, y, z int) bool { return protectedIn(s.protected, x, y, z) }
