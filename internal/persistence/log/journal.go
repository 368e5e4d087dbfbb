// Package log writes the per-run tick journal: one compressed JSON line per agent tick,
// plus the run header and every finished path segment.
package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxelmotion.ai/internal/sim/agent"
	"voxelmotion.ai/internal/sim/pathing"
)

const (
	KindRun     = "run"
	KindTick    = "tick"
	KindSegment = "segment"
)

// RunHeader opens a journal.
type RunHeader struct {
	RunID     string          `json:"run_id"`
	StartedAt string          `json:"started_at"`
	Seed      int64           `json:"seed"`
	Settings  json.RawMessage `json:"settings,omitempty"`
	Scenario  json.RawMessage `json:"scenario,omitempty"`
}

// SegmentEntry is a finished path segment stamped with the tick it ended on.
type SegmentEntry struct {
	Tick uint64 `json:"tick"`
	pathing.Segment
}

// Entry is one journal line. Exactly one of the payload fields is set, matching Kind.
type Entry struct {
	Kind    string            `json:"kind"`
	Run     *RunHeader        `json:"run,omitempty"`
	Tick    *agent.TickRecord `json:"tick,omitempty"`
	Segment *SegmentEntry     `json:"segment,omitempty"`
}

type Journal struct {
	w *JSONLZstdWriter
}

// NewJournal writes under runDir/journal.
func NewJournal(runDir string) *Journal {
	return &Journal{w: NewJSONLZstdWriter(filepath.Join(runDir, "journal"), "ticks")}
}

func (j *Journal) WriteRun(h RunHeader) error {
	if h.StartedAt == "" {
		h.StartedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	return j.w.Write(Entry{Kind: KindRun, Run: &h})
}

func (j *Journal) WriteTick(r agent.TickRecord) error {
	return j.w.Write(Entry{Kind: KindTick, Tick: &r})
}

func (j *Journal) WriteSegment(tick uint64, s pathing.Segment) error {
	return j.w.Write(Entry{Kind: KindSegment, Segment: &SegmentEntry{Tick: tick, Segment: s}})
}

func (j *Journal) Flush() error { return j.w.Flush() }

// OnRotate registers fn to receive journal files closed by hourly rotation.
func (j *Journal) OnRotate(fn func(path string)) { j.w.OnRotate(fn) }

func (j *Journal) Files() []string { return j.w.Files() }
func (j *Journal) Close() error    { return j.w.Close() }

// ReadFile calls fn for every entry of a journal file in order.
func ReadFile(path string, fn func(Entry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Read(f, fn)
}

func Read(r io.Reader, fn func(Entry) error) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return sc.Err()
}
