// Package indexdb is a queryable SQLite read model of agent runs. The journal stays the
// source of truth; writes are queued and dropped when the writer falls behind.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelmotion.ai/internal/sim/agent"
	"voxelmotion.ai/internal/sim/pathing"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropSegment atomic.Uint64
	dropControl atomic.Uint64
}

type reqKind int

const (
	reqRun reqKind = iota + 1
	reqSegment
	reqControl
	reqFlush
)

type req struct {
	kind reqKind

	runID   string
	tick    uint64
	run     runRow
	segment pathing.Segment
	control agent.TickRecord
	done    chan struct{}
}

type runRow struct {
	StartedAt string
	Seed      int64
	Settings  []byte
}

// SegmentRow is a stored path segment.
type SegmentRow struct {
	Seq       int
	Tick      uint64
	Start     [3]int
	End       [3]int
	Goal      string
	Movements int
	Completed int
	Partial   bool
	Outcome   string
	Reason    string
	Ticks     int
	Nodes     int
}

// ControlRow is a tick on which the controlling process or its command changed.
type ControlRow struct {
	Tick       uint64
	Controller string
	Command    string
	Goal       string
}

type Stats struct {
	QueueDepth       int
	QueueCapacity    int
	DropSegmentTotal uint64
	DropControlTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &SQLiteIndex{db: db, ch: make(chan req, 16384)}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			seed INTEGER NOT NULL,
			settings_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS segments (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			start_x INTEGER NOT NULL, start_y INTEGER NOT NULL, start_z INTEGER NOT NULL,
			end_x INTEGER NOT NULL, end_y INTEGER NOT NULL, end_z INTEGER NOT NULL,
			goal TEXT NOT NULL,
			movements INTEGER NOT NULL,
			completed INTEGER NOT NULL,
			partial INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			reason TEXT,
			ticks INTEGER NOT NULL,
			nodes INTEGER NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_segments_outcome ON segments(run_id, outcome);`,
		`CREATE TABLE IF NOT EXISTS controls (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			controller TEXT NOT NULL,
			command TEXT NOT NULL,
			goal TEXT,
			PRIMARY KEY (run_id, tick)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueDepth:       len(s.ch),
		QueueCapacity:    cap(s.ch),
		DropSegmentTotal: s.dropSegment.Load(),
		DropControlTotal: s.dropControl.Load(),
	}
}

// RecordRun stores the run header. It blocks until queued so a run row always precedes
// its segments.
func (s *SQLiteIndex) RecordRun(runID string, seed int64, settings any) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	b, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	s.ch <- req{kind: reqRun, runID: runID, run: runRow{
		StartedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Seed:      seed,
		Settings:  b,
	}}
	return nil
}

func (s *SQLiteIndex) WriteSegment(runID string, tick uint64, seg pathing.Segment) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqSegment, runID: runID, tick: tick, segment: seg}:
	default:
		s.dropSegment.Add(1)
	}
}

// WriteTick records r in controls when its controller or command differs from the last
// recorded tick of the run.
func (s *SQLiteIndex) WriteTick(runID string, r agent.TickRecord) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqControl, runID: runID, control: r}:
	default:
		s.dropControl.Add(1)
	}
}

// Flush waits until everything queued before it is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) Segments(ctx context.Context, runID string) ([]SegmentRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq,tick,start_x,start_y,start_z,end_x,end_y,end_z,goal,movements,completed,partial,outcome,reason,ticks,nodes
		FROM segments WHERE run_id=? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SegmentRow
	for rows.Next() {
		var r SegmentRow
		var partial int
		var reason sql.NullString
		if err := rows.Scan(&r.Seq, &r.Tick, &r.Start[0], &r.Start[1], &r.Start[2], &r.End[0], &r.End[1], &r.End[2],
			&r.Goal, &r.Movements, &r.Completed, &partial, &r.Outcome, &reason, &r.Ticks, &r.Nodes); err != nil {
			return nil, err
		}
		r.Partial = partial != 0
		r.Reason = reason.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) Controls(ctx context.Context, runID string) ([]ControlRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tick,controller,command,goal FROM controls WHERE run_id=? ORDER BY tick`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ControlRow
	for rows.Next() {
		var r ControlRow
		var goal sql.NullString
		if err := rows.Scan(&r.Tick, &r.Controller, &r.Command, &goal); err != nil {
			return nil, err
		}
		r.Goal = goal.String
		out = append(out, r)
	}
	return out, rows.Err()
}

type lastControl struct{ controller, command string }

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(run_id,started_at,seed,settings_json) VALUES(?,?,?,?)`)
	insertSegment, _ := s.db.Prepare(`INSERT OR REPLACE INTO segments(run_id,seq,tick,start_x,start_y,start_z,end_x,end_y,end_z,goal,movements,completed,partial,outcome,reason,ticks,nodes) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertControl, _ := s.db.Prepare(`INSERT OR REPLACE INTO controls(run_id,tick,controller,command,goal) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertRun, insertSegment, insertControl} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second

		segSeq = map[string]int{}
		last   = map[string]lastControl{}
	)
	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
	}

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqRun:
			if insertRun == nil {
				break
			}
			if _, err := tx.Stmt(insertRun).Exec(r.runID, r.run.StartedAt, r.run.Seed, string(r.run.Settings)); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqSegment:
			if insertSegment == nil {
				break
			}
			g := r.segment
			seq := segSeq[r.runID]
			segSeq[r.runID] = seq + 1
			partial := 0
			if g.Partial {
				partial = 1
			}
			if _, err := tx.Stmt(insertSegment).Exec(r.runID, seq, int64(r.tick),
				g.Start.X, g.Start.Y, g.Start.Z, g.End.X, g.End.Y, g.End.Z,
				g.Goal, g.Movements, g.Completed, partial, g.Outcome.String(), g.Reason, g.Ticks, g.Nodes,
			); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqControl:
			c := r.control
			cur := lastControl{c.Controller, c.Command}
			if prev, ok := last[r.runID]; ok && prev == cur {
				break
			}
			last[r.runID] = cur
			if insertControl == nil {
				break
			}
			if _, err := tx.Stmt(insertControl).Exec(r.runID, int64(c.Tick), c.Controller, c.Command, c.Goal); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	commit()
}
