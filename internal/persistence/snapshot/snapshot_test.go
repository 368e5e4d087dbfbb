package snapshot

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelmotion.ai/internal/scenario"
	"voxelmotion.ai/internal/sim/blocks"
	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/tuning"
)

func TestSnapshotRoundTrip(t *testing.T) {
	sc := scenario.Default()
	sc.RadiusChunks = 1
	sc.Height = 32
	sc.Goal = &scenario.GoalSpec{Kind: "block", Pos: [3]int{6, 0, 2}}

	cat := blocks.Default()
	r, err := scenario.Build(cat, tuning.Defaults(), sc, scenario.Hooks{})
	require.NoError(t, err)
	defer r.Close()
	for i := 0; i < 40; i++ {
		r.Step()
	}
	// A block change after generation must survive the round trip.
	feet := r.Agent.Feet()
	marker := geom.P(feet.X+3, sc.Height-2, feet.Z)
	require.True(t, r.World.SetAt(marker, blocks.State{Kind: cat.MustKind("COBBLESTONE")}))

	snap := Capture("run-1", r)
	path := filepath.Join(t.TempDir(), "snapshots", "40.snap.zst")
	require.NoError(t, WriteSnapshot(path, snap))

	h, err := ReadHeader(path)
	require.NoError(t, err)
	assert.Equal(t, Header{Version: Version, RunID: "run-1", Tick: 40}, h)

	got, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, snap.Agent.Pos, got.Agent.Pos)
	assert.Equal(t, 64, got.Agent.Blocks["DIRT"]+r.Agent.Body().Placed())

	w, err := Restore(cat, got)
	require.NoError(t, err)
	assert.Equal(t, r.World.Digest(), w.Digest())
	assert.Equal(t, "COBBLESTONE", cat.Name(w.At(marker).Kind))

	ids, counts, err := BlockCounts(got)
	require.NoError(t, err)
	assert.Contains(t, ids, "COBBLESTONE")
	assert.GreaterOrEqual(t, counts["COBBLESTONE"], 1)
}

func TestRestoreRejectsForeignPalette(t *testing.T) {
	snap := SnapshotV1{Header: Header{Version: Version}, Height: 16, Palette: []string{"AIR", "STONE"}}
	_, err := Restore(blocks.Default(), snap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "palette mismatch")
}
