package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"voxelmotion.ai/internal/persistence/snapshot"
)

func TestArchiveRunSnapshot_CopiesAndLists(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "runs", "r1", "snapshots", "120.snap.zst")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatalf("mkdir snapshots: %v", err)
	}
	want := []byte("dummy")
	if err := os.WriteFile(src, want, 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: snapshot.Version, RunID: "r1", Tick: 120},
		Seed:   42,
		Digest: "aaaa",
	}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	meta, err := ArchiveRunSnapshot(dir, src, "cfg", snap, now)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "archives", "seed_42", "r1", meta.Snapshot))
	if err != nil {
		t.Fatalf("read archived: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("archived content mismatch: got=%q want=%q", string(got), string(want))
	}

	prev, err := Previous(dir, 42)
	if err != nil {
		t.Fatalf("previous: %v", err)
	}
	if len(prev) != 1 || prev[0] != meta {
		t.Fatalf("previous=%+v want [%+v]", prev, meta)
	}
	if none, err := Previous(dir, 7); err != nil || len(none) != 0 {
		t.Fatalf("unknown seed: %v %v", none, err)
	}
}

func TestDivergentComparesOnlyMatchingRuns(t *testing.T) {
	cur := RunArchiveMeta{RunID: "r3", Tick: 100, ConfigHash: "cfg", Digest: "d1"}
	prev := []RunArchiveMeta{
		{RunID: "r1", Tick: 100, ConfigHash: "cfg", Digest: "d1"},
		{RunID: "r2", Tick: 100, ConfigHash: "cfg", Digest: "d2"},
		{RunID: "r4", Tick: 90, ConfigHash: "cfg", Digest: "d9"},
		{RunID: "r5", Tick: 100, ConfigHash: "other", Digest: "d9"},
		cur,
	}
	got := Divergent(prev, cur)
	if len(got) != 1 || got[0].RunID != "r2" {
		t.Fatalf("divergent=%+v want only r2", got)
	}
}
