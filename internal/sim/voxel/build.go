package voxel

import (
	"fmt"
	"hash/fnv"

	"voxelmotion.ai/internal/sim/blocks"
)

// DefaultLegend maps layer runes to catalog ids for Build.
var DefaultLegend = map[rune]string{
	'.': "AIR",
	'#': "STONE",
	'd': "DIRT",
	'g': "GRASS",
	's': "SAND",
	'v': "GRAVEL",
	'b': "BEDROCK",
	'w': "WATER",
	'l': "LAVA",
	'L': "LADDER",
	'V': "VINE",
	'D': "OAK_DOOR",
	'I': "IRON_DOOR",
	'G': "GLASS",
	'_': "STONE_SLAB",
	'S': "SOUL_SAND",
	'm': "MAGMA",
	'c': "CACTUS",
	'f': "FARMLAND",
	'*': "SNOW_LAYER",
	'o': "OBSIDIAN",
	'p': "PLANKS",
	'i': "ICE",
}

// Build creates a world from horizontal layers listed bottom first. Each layer is a list of
// rows along +Z; each row is a string along +X starting at x=0, z=0. Cells not covered by a
// layer are air. Every chunk touched by the layers is loaded.
func Build(cat *blocks.Catalog, legend map[rune]string, layers ...[]string) (*World, error) {
	if legend == nil {
		legend = DefaultLegend
	}
	maxX, maxZ := 1, 1
	for _, layer := range layers {
		if len(layer) > maxZ {
			maxZ = len(layer)
		}
		for _, row := range layer {
			if n := len([]rune(row)); n > maxX {
				maxX = n
			}
		}
	}
	height := len(layers) + 8
	w := New(height, Border{})
	var keys []ChunkKey
	for cx := 0; cx <= (maxX-1)/ChunkSize; cx++ {
		for cz := 0; cz <= (maxZ-1)/ChunkSize; cz++ {
			keys = append(keys, ChunkKey{CX: cx, CZ: cz})
		}
	}
	w.LoadChunks(keys, nil)
	for y, layer := range layers {
		for z, row := range layer {
			for x, r := range []rune(row) {
				name, ok := legend[r]
				if !ok {
					return nil, fmt.Errorf("layer %d row %d: no legend entry for %q", y, z, r)
				}
				k, ok := cat.Kind(name)
				if !ok {
					return nil, fmt.Errorf("legend %q: unknown block %s", r, name)
				}
				w.Set(x, y, z, blocks.S(k))
			}
		}
	}
	return w, nil
}

// GenConfig describes the demo terrain.
type GenConfig struct {
	Seed        int64
	RadiusChunk int
	Height      int
	BaseY       int
}

// Generate builds a deterministic rolling terrain of grass over dirt and stone with a few
// ore pockets, sand/gravel patches and a pond.
func Generate(cat *blocks.Catalog, cfg GenConfig) *World {
	if cfg.Height <= 0 {
		cfg.Height = 64
	}
	if cfg.BaseY <= 0 {
		cfg.BaseY = 20
	}
	w := New(cfg.Height, Border{Radius: (cfg.RadiusChunk + 1) * ChunkSize})
	var keys []ChunkKey
	for cx := -cfg.RadiusChunk; cx <= cfg.RadiusChunk; cx++ {
		for cz := -cfg.RadiusChunk; cz <= cfg.RadiusChunk; cz++ {
			keys = append(keys, ChunkKey{CX: cx, CZ: cz})
		}
	}
	var (
		air     = blocks.S(blocks.Air)
		bedrock = blocks.S(cat.MustKind("BEDROCK"))
		stone   = blocks.S(cat.MustKind("STONE"))
		dirt    = blocks.S(cat.MustKind("DIRT"))
		grass   = blocks.S(cat.MustKind("GRASS"))
		sand    = blocks.S(cat.MustKind("SAND"))
		gravel  = blocks.S(cat.MustKind("GRAVEL"))
		coal    = blocks.S(cat.MustKind("COAL_ORE"))
		iron    = blocks.S(cat.MustKind("IRON_ORE"))
		water   = blocks.S(cat.MustKind("WATER"))
	)
	w.LoadChunks(keys, func(x, y, z int) blocks.State {
		surface := cfg.BaseY + int(hash2(cfg.Seed, x/4, z/4)%3)
		pond := x >= 6 && x <= 10 && z >= -10 && z <= -6
		switch {
		case y == 0:
			return bedrock
		case pond && y == surface:
			return water
		case y < surface-3:
			switch h := hash3(cfg.Seed, x, y, z) % 100; {
			case h < 2:
				return iron
			case h < 5:
				return coal
			}
			return stone
		case y < surface:
			return dirt
		case y == surface:
			switch hash2(cfg.Seed+7, x/3, z/3) % 16 {
			case 0:
				return sand
			case 1:
				return gravel
			}
			return grass
		}
		return air
	})
	return w
}

func hash2(seed int64, a, b int) uint64 {
	return hash3(seed, a, 0, b)
}

func hash3(seed int64, a, b, c int) uint64 {
	h := fnv.New64a()
	var buf [32]byte
	for i, v := range []int64{seed, int64(a), int64(b), int64(c)} {
		for j := 0; j < 8; j++ {
			buf[i*8+j] = byte(v >> (8 * j))
		}
	}
	h.Write(buf[:])
	return h.Sum64()
}
