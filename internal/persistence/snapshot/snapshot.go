// Package snapshot saves the voxel world and the agent's body at the end of a run.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"voxelmotion.ai/internal/scenario"
	"voxelmotion.ai/internal/sim/blocks"
	"voxelmotion.ai/internal/sim/encoding"
	"voxelmotion.ai/internal/sim/inventory"
	"voxelmotion.ai/internal/sim/voxel"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	RunID   string `json:"run_id"`
	Tick    uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed         int64    `json:"seed"`
	Height       int      `json:"height"`
	BorderRadius int      `json:"border_radius"`
	Palette      []string `json:"palette"`
	Digest       string   `json:"digest"`

	Chunks []ChunkV1 `json:"chunks"`
	Agent  AgentV1   `json:"agent"`
}

type ChunkV1 struct {
	CX     int             `json:"cx"`
	CZ     int             `json:"cz"`
	Column encoding.Column `json:"column"`
}

type AgentV1 struct {
	Pos         [3]float64       `json:"pos"`
	Yaw         float64          `json:"yaw"`
	Pitch       float64          `json:"pitch"`
	Broken      int              `json:"broken"`
	Placed      int              `json:"placed"`
	Tools       []inventory.Tool `json:"tools,omitempty"`
	Blocks      map[string]int   `json:"blocks,omitempty"`
	WaterBucket bool             `json:"water_bucket"`
	EmptyBucket bool             `json:"empty_bucket"`
}

// Capture copies the run's world and agent state. It must be called from the goroutine
// that ticks the run.
func Capture(runID string, r *scenario.Run) SnapshotV1 {
	w := r.World
	snap := SnapshotV1{
		Header:       Header{Version: Version, RunID: runID, Tick: r.Agent.Ticks()},
		Seed:         r.Scenario.Seed,
		Height:       w.Height(),
		BorderRadius: w.Border().Radius,
		Palette:      append([]string(nil), r.Catalog.Palette...),
		Digest:       w.Digest(),
	}
	for _, c := range w.Chunks() {
		snap.Chunks = append(snap.Chunks, ChunkV1{CX: c.CX, CZ: c.CZ, Column: encoding.EncodeStates(c.Blocks)})
	}

	b := r.Agent.Body()
	pos, rot := b.Position(), b.Rotation()
	snap.Agent = AgentV1{
		Pos:    [3]float64{pos[0], pos[1], pos[2]},
		Yaw:    rot.Yaw,
		Pitch:  rot.Pitch,
		Broken: b.Broken(),
		Placed: b.Placed(),
	}
	if inv := r.Inventory; inv != nil {
		snap.Agent.Tools = append([]inventory.Tool(nil), inv.Tools...)
		snap.Agent.WaterBucket = inv.WaterBucket
		snap.Agent.EmptyBucket = inv.EmptyBucket
		snap.Agent.Blocks = map[string]int{}
		for k, n := range inv.Blocks {
			if n > 0 {
				snap.Agent.Blocks[r.Catalog.Name(k)] = n
			}
		}
	}
	return snap
}

// Restore rebuilds the world a snapshot was taken from. The catalog must have the same
// palette the snapshot was written with.
func Restore(cat *blocks.Catalog, snap SnapshotV1) (*voxel.World, error) {
	if snap.Header.Version != Version {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	if len(snap.Palette) != len(cat.Palette) {
		return nil, fmt.Errorf("palette mismatch: snapshot has %d blocks, catalog has %d", len(snap.Palette), len(cat.Palette))
	}
	for i, id := range snap.Palette {
		if cat.Palette[i] != id {
			return nil, fmt.Errorf("palette mismatch at %d: %s != %s", i, id, cat.Palette[i])
		}
	}
	w := voxel.New(snap.Height, voxel.Border{Radius: snap.BorderRadius})
	n := voxel.ChunkSize * voxel.ChunkSize * snap.Height
	chunks := make([]*voxel.Chunk, 0, len(snap.Chunks))
	for _, cv := range snap.Chunks {
		states, err := encoding.DecodeStates(cv.Column, n)
		if err != nil {
			return nil, fmt.Errorf("chunk %d,%d: %w", cv.CX, cv.CZ, err)
		}
		c := voxel.NewChunk(cv.CX, cv.CZ, snap.Height)
		copy(c.Blocks, states)
		chunks = append(chunks, c)
	}
	if err := w.Install(chunks); err != nil {
		return nil, err
	}
	if got := w.Digest(); snap.Digest != "" && got != snap.Digest {
		return nil, fmt.Errorf("digest mismatch: snapshot=%s restored=%s", snap.Digest, got)
	}
	return w, nil
}

// BlockCounts tallies the non-air blocks of a snapshot by id, for summaries.
func BlockCounts(snap SnapshotV1) ([]string, map[string]int, error) {
	n := voxel.ChunkSize * voxel.ChunkSize * snap.Height
	counts := map[string]int{}
	for _, cv := range snap.Chunks {
		states, err := encoding.DecodeStates(cv.Column, n)
		if err != nil {
			return nil, nil, err
		}
		for _, s := range states {
			if int(s.Kind) < len(snap.Palette) && s.Kind != blocks.Air {
				counts[snap.Palette[s.Kind]]++
			}
		}
	}
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, counts, nil
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Sync()
}

// ReadHeader reads only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, err
	}
	return h, json.Unmarshal(line, &h)
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	// The header is repeated inside the gob payload.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, err
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
