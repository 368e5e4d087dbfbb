package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	persistlog "voxelmotion.ai/internal/persistence/log"
	"voxelmotion.ai/internal/persistence/snapshot"
	"voxelmotion.ai/internal/scenario"
	"voxelmotion.ai/internal/sim/agent"
	"voxelmotion.ai/internal/sim/blocks"
	"voxelmotion.ai/internal/sim/pathing"
	"voxelmotion.ai/internal/sim/tuning"
)

func main() {
	var (
		runDir   = flag.String("run", "", "run directory containing journal/ticks-*.jsonl.zst")
		verify   = flag.Bool("verify", false, "re-run the scenario and compare every tick")
		quiet    = flag.Bool("q", false, "print only the summary")
		fromTick = flag.Uint64("from_tick", 0, "print transitions from tick (inclusive, optional)")
		toTick   = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
		snapPath = flag.String("snapshot", "", "print a world snapshot summary (default: latest in the run dir)")
	)
	flag.Parse()

	if *runDir == "" {
		fmt.Fprintln(os.Stderr, "missing -run")
		os.Exit(2)
	}
	files, err := listJournalFiles(filepath.Join(*runDir, "journal"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "list journal:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no journal files found in", *runDir)
		os.Exit(1)
	}

	var (
		header   *persistlog.RunHeader
		ticks    []agent.TickRecord
		segments []persistlog.SegmentEntry
	)
	for _, path := range files {
		err := persistlog.ReadFile(path, func(e persistlog.Entry) error {
			switch e.Kind {
			case persistlog.KindRun:
				if header == nil {
					header = e.Run
				}
			case persistlog.KindTick:
				if *toTick == 0 || e.Tick.Tick <= *toTick {
					ticks = append(ticks, *e.Tick)
				}
			case persistlog.KindSegment:
				segments = append(segments, *e.Segment)
			}
			return nil
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", filepath.Base(path), err)
			os.Exit(1)
		}
	}
	if header == nil {
		fmt.Fprintln(os.Stderr, "journal has no run header")
		os.Exit(1)
	}

	if !*quiet {
		printTransitions(ticks, *fromTick)
		for _, s := range segments {
			if s.Tick >= *fromTick {
				fmt.Printf("t=%d segment %s %s -> %s completed=%d/%d %s\n", s.Tick, s.Outcome, s.Start, s.End, s.Completed, s.Movements, s.Reason)
			}
		}
	}
	summarize(header, ticks, segments)

	snap, haveSnap := loadSnapshot(*runDir, *snapPath)
	if haveSnap && !*quiet {
		printSnapshot(snap)
	}

	if *verify {
		var final *snapshot.SnapshotV1
		if haveSnap && *toTick == 0 {
			final = &snap
		}
		n, err := replay(header, ticks, final)
		if err != nil {
			fmt.Fprintln(os.Stderr, "verify:", err)
			os.Exit(1)
		}
		fmt.Printf("replay ok: checked=%d ticks\n", n)
	}
}

// loadSnapshot reads the snapshot at path, or the one with the highest tick under
// runDir/snapshots when path is empty.
func loadSnapshot(runDir, path string) (snapshot.SnapshotV1, bool) {
	if path == "" {
		ents, err := os.ReadDir(filepath.Join(runDir, "snapshots"))
		if err != nil {
			return snapshot.SnapshotV1{}, false
		}
		var best uint64
		for _, e := range ents {
			name := e.Name()
			if !strings.HasSuffix(name, ".snap.zst") {
				continue
			}
			t, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
			if err != nil || (path != "" && t < best) {
				continue
			}
			best, path = t, filepath.Join(runDir, "snapshots", name)
		}
		if path == "" {
			return snapshot.SnapshotV1{}, false
		}
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "snapshot %s: %v\n", path, err)
		os.Exit(1)
	}
	return snap, true
}

func printSnapshot(snap snapshot.SnapshotV1) {
	a := snap.Agent
	fmt.Printf("snapshot tick=%d chunks=%d digest=%s agent=(%.3f,%.3f,%.3f) broken=%d placed=%d\n",
		snap.Header.Tick, len(snap.Chunks), snap.Digest, a.Pos[0], a.Pos[1], a.Pos[2], a.Broken, a.Placed)
	ids, counts, err := snapshot.BlockCounts(snap)
	if err != nil {
		fmt.Fprintln(os.Stderr, "snapshot:", err)
		return
	}
	for _, id := range ids {
		fmt.Printf("  %-20s %d\n", id, counts[id])
	}
}

func listJournalFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range ents {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, "ticks-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// printTransitions prints the ticks on which the controller, command or movement status
// changed.
func printTransitions(ticks []agent.TickRecord, from uint64) {
	var prev agent.TickRecord
	for i, r := range ticks {
		changed := i == 0 || r.Controller != prev.Controller || r.Command != prev.Command ||
			r.Movement != prev.Movement || r.Status != prev.Status || r.Halted != prev.Halted
		prev = r
		if changed && r.Tick >= from {
			fmt.Println(r)
		}
	}
}

func summarize(h *persistlog.RunHeader, ticks []agent.TickRecord, segs []persistlog.SegmentEntry) {
	controllers := map[string]int{}
	for _, r := range ticks {
		name := r.Controller
		if name == "" {
			name = "(none)"
		}
		controllers[name]++
	}
	var names []string
	for n := range controllers {
		names = append(names, n)
	}
	sort.Strings(names)
	var parts []string
	for _, n := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", n, controllers[n]))
	}
	finished := 0
	for _, s := range segs {
		if s.Outcome == pathing.Finished {
			finished++
		}
	}
	last := agent.TickRecord{}
	if len(ticks) > 0 {
		last = ticks[len(ticks)-1]
	}
	fmt.Printf("run=%s seed=%d ticks=%d final_feet=%s segments=%d finished=%d control[%s]\n",
		h.RunID, h.Seed, len(ticks), last.Feet, len(segs), finished, strings.Join(parts, " "))
}

// replay rebuilds the run from its header and compares each tick with the journal.
// When final is set, the rebuilt world must also match the snapshot taken at the end of
// the run.
func replay(h *persistlog.RunHeader, want []agent.TickRecord, final *snapshot.SnapshotV1) (int, error) {
	if len(h.Scenario) == 0 {
		return 0, errors.New("run header has no scenario")
	}
	settings := tuning.Defaults()
	if len(h.Settings) > 0 {
		if err := json.Unmarshal(h.Settings, &settings); err != nil {
			return 0, fmt.Errorf("settings: %w", err)
		}
	}
	var sc scenario.Scenario
	if err := json.Unmarshal(h.Scenario, &sc); err != nil {
		return 0, fmt.Errorf("scenario: %w", err)
	}
	run, err := scenario.Build(blocks.Default(), settings, sc, scenario.Hooks{})
	if err != nil {
		return 0, err
	}
	defer run.Close()

	checked := 0
	for _, w := range want {
		got := run.Step()
		if got.Tick != w.Tick {
			return checked, fmt.Errorf("tick mismatch: want=%d got=%d", w.Tick, got.Tick)
		}
		if !reflect.DeepEqual(normalize(got), normalize(w)) {
			return checked, fmt.Errorf("tick %d diverged:\n  journal: %s\n  replay:  %s", w.Tick, w, got)
		}
		checked++
	}
	if final != nil && final.Header.Tick == run.Agent.Ticks() {
		if got := run.World.Digest(); got != final.Digest {
			return checked, fmt.Errorf("world digest mismatch at tick %d: snapshot=%s replay=%s", final.Header.Tick, final.Digest, got)
		}
	}
	return checked, nil
}

// normalize round-trips a record through JSON so empty and nil slices compare equal.
func normalize(r agent.TickRecord) agent.TickRecord {
	b, _ := json.Marshal(r)
	var out agent.TickRecord
	_ = json.Unmarshal(b, &out)
	return out
}
