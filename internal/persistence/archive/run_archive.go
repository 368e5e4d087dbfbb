package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"voxelmotion.ai/internal/persistence/snapshot"
)

type RunArchiveMeta struct {
	RunID      string `json:"run_id"`
	Tick       uint64 `json:"tick"`
	Seed       int64  `json:"seed"`
	ConfigHash string `json:"config_hash"`
	Digest     string `json:"digest"`
	Snapshot   string `json:"snapshot"`
	CreatedAt  string `json:"created_at"`
}

// ConfigHash identifies the inputs of a run. Two runs with the same hash and tick count
// must end with the same world digest.
func ConfigHash(settingsJSON, scenarioJSON []byte) string {
	h := sha256.New()
	h.Write(settingsJSON)
	h.Write([]byte{0})
	h.Write(scenarioJSON)
	return hex.EncodeToString(h.Sum(nil))
}

func seedDir(dataDir string, seed int64) string {
	return filepath.Join(dataDir, "archives", fmt.Sprintf("seed_%d", seed))
}

// ArchiveRunSnapshot copies a run's final snapshot into `dataDir/archives/seed_<seed>/<run>/`
// and writes a meta.json next to it.
func ArchiveRunSnapshot(dataDir, snapshotPath, configHash string, snap snapshot.SnapshotV1, now time.Time) (RunArchiveMeta, error) {
	if snap.Header.RunID == "" {
		return RunArchiveMeta{}, errors.New("snapshot has no run id")
	}
	dir := filepath.Join(seedDir(dataDir, snap.Seed), snap.Header.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return RunArchiveMeta{}, err
	}
	dst := filepath.Join(dir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return RunArchiveMeta{}, err
	}

	meta := RunArchiveMeta{
		RunID:      snap.Header.RunID,
		Tick:       snap.Header.Tick,
		Seed:       snap.Seed,
		ConfigHash: configHash,
		Digest:     snap.Digest,
		Snapshot:   filepath.Base(dst),
		CreatedAt:  now.UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return meta, err
	}
	return meta, os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644)
}

// Previous lists archived runs for a seed, oldest first. Directories without a readable
// meta.json are skipped.
func Previous(dataDir string, seed int64) ([]RunArchiveMeta, error) {
	ents, err := os.ReadDir(seedDir(dataDir, seed))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []RunArchiveMeta
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}
		b, err := os.ReadFile(filepath.Join(seedDir(dataDir, seed), e.Name(), "meta.json"))
		if err != nil {
			continue
		}
		var m RunArchiveMeta
		if json.Unmarshal(b, &m) != nil {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].RunID < out[j].RunID
	})
	return out, nil
}

// Divergent returns the archived runs that share meta's inputs and tick count but ended
// with a different world.
func Divergent(prev []RunArchiveMeta, meta RunArchiveMeta) []RunArchiveMeta {
	var out []RunArchiveMeta
	for _, p := range prev {
		if p.RunID == meta.RunID || p.ConfigHash != meta.ConfigHash || p.Tick != meta.Tick {
			continue
		}
		if p.Digest != meta.Digest {
			out = append(out, p)
		}
	}
	return out
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
