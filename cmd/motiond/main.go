package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"voxelmotion.ai/internal/observerproto"
	"voxelmotion.ai/internal/persistence/archive"
	"voxelmotion.ai/internal/persistence/indexdb"
	persistlog "voxelmotion.ai/internal/persistence/log"
	"voxelmotion.ai/internal/persistence/r2s3"
	"voxelmotion.ai/internal/persistence/snapshot"
	"voxelmotion.ai/internal/scenario"
	"voxelmotion.ai/internal/sim/agent"
	"voxelmotion.ai/internal/sim/blocks"
	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/pathing"
	"voxelmotion.ai/internal/sim/tuning"
	"voxelmotion.ai/internal/transport/observer"
)

func main() {
	// A .env file only fills variables that are not already set.
	_ = godotenv.Load()

	var (
		addr         = flag.String("addr", envOr("MOTIOND_ADDR", "127.0.0.1:8081"), "observer http listen address (empty to disable)")
		settingsPath = flag.String("settings", envOr("MOTIOND_SETTINGS", ""), "path to settings.yaml (default: built-in defaults)")
		scenarioPath = flag.String("scenario", envOr("MOTIOND_SCENARIO", ""), "path to scenario.yaml (default: built-in demo)")
		blocksPath   = flag.String("blocks", envOr("MOTIOND_BLOCKS", ""), "path to a blocks.json catalog (default: embedded)")
		dataDir      = flag.String("data", envOr("MOTIOND_DATA", "./data"), "runtime data directory")
		disableDB    = flag.Bool("disable_db", envBool("MOTIOND_DISABLE_DB", false), "disable the sqlite index")
		ticks        = flag.Uint64("ticks", 0, "stop after this many ticks (overrides the scenario)")
		rate         = flag.Int("rate", 0, "ticks per second (overrides the scenario; negative runs unthrottled)")
		verbose      = flag.Bool("v", envBool("MOTIOND_VERBOSE", false), "log every tick")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[motiond] ", log.LstdFlags|log.Lmicroseconds)

	cat := blocks.Default()
	if *blocksPath != "" {
		c, err := blocks.LoadFile(*blocksPath)
		if err != nil {
			logger.Fatalf("load blocks: %v", err)
		}
		cat = c
	}
	settings := tuning.Defaults()
	if *settingsPath != "" {
		s, err := tuning.Load(*settingsPath)
		if err != nil {
			logger.Fatalf("load settings: %v", err)
		}
		settings = s
	}
	sc := scenario.Default()
	if *scenarioPath != "" {
		s, err := scenario.Load(*scenarioPath)
		if err != nil {
			logger.Fatalf("load scenario: %v", err)
		}
		sc = s
	}
	if *ticks > 0 {
		sc.Ticks = *ticks
	}
	switch {
	case *rate > 0:
		sc.TickRateHz = *rate
	case *rate < 0:
		sc.TickRateHz = 0
	}

	runID := uuid.NewString()
	runDir := filepath.Join(*dataDir, "runs", runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		i, err := indexdb.OpenSQLite(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		idx = i
		defer idx.Close()
		if err := idx.RecordRun(runID, sc.Seed, settings); err != nil {
			logger.Printf("index: record run: %v", err)
		}
	}

	mirror, err := buildMirror(*dataDir, logger)
	if err != nil {
		logger.Fatalf("mirror: %v", err)
	}

	journal := persistlog.NewJournal(runDir)
	defer journal.Close()
	if mirror != nil {
		journal.OnRotate(mirror.Enqueue)
	}
	settingsJSON, _ := json.Marshal(settings)
	scenarioJSON, _ := json.Marshal(sc)
	if err := journal.WriteRun(persistlog.RunHeader{
		RunID:    runID,
		Seed:     sc.Seed,
		Settings: settingsJSON,
		Scenario: scenarioJSON,
	}); err != nil {
		logger.Fatalf("journal: %v", err)
	}

	st := &stats{runID: runID, cat: cat, sc: sc}
	obs := observer.NewServer(st, logger)

	hooks := scenario.Hooks{
		Logger: logger,
		OnTick: func(r agent.TickRecord) {
			if err := journal.WriteTick(r); err != nil {
				logger.Printf("journal: %v", err)
			}
			idx.WriteTick(runID, r)
			if *verbose {
				logger.Print(r)
			}
		},
		OnSegment: func(tick uint64, s pathing.Segment) {
			st.segment(s)
			logger.Printf("segment %s %s -> %s (%d/%d movements) %s", s.Outcome, s.Start, s.End, s.Completed, s.Movements, s.Reason)
			if err := journal.WriteSegment(tick, s); err != nil {
				logger.Printf("journal: %v", err)
			}
			idx.WriteSegment(runID, tick, s)
			obs.PublishSegment(observer.SegmentFrom(tick, s))
		},
	}
	run, err := scenario.Build(cat, settings, sc, hooks)
	if err != nil {
		logger.Fatalf("scenario: %v", err)
	}
	defer run.Close()
	st.spawn = run.Agent.Feet()
	st.height = run.World.Height()
	st.processes = processNames(run)
	logger.Printf("run=%s seed=%d spawn=%s dir=%s", runID, sc.Seed, st.spawn, runDir)

	ctx, cancel := signalContext()
	defer cancel()

	var srv *http.Server
	if strings.TrimSpace(*addr) != "" {
		mux := http.NewServeMux()
		mux.Handle("/observer/", obs.Handler())
		mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
			rw.WriteHeader(http.StatusOK)
			_, _ = rw.Write([]byte("ok"))
		})
		mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
			writeMetrics(rw, st, obs, idx, mirror)
		})
		srv = &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Printf("observer listening on %s", *addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("http: %v", err)
				cancel()
			}
		}()
	}

	loop(ctx, run, sc.TickRateHz, func(r agent.TickRecord) {
		st.tick.Store(r.Tick)
		if obs.Subscribers() > 0 {
			var view *agent.PathView
			if v, ok := run.Agent.PathView(); ok {
				view = &v
			}
			obs.PublishTick(observer.TickFromRecord(r, view))
		}
	})

	for _, err := range run.Agent.Disabled() {
		logger.Printf("process disabled: %v", err)
	}
	if err := run.Agent.Halted(); err != nil {
		logger.Printf("pathing halted: %v", err)
	}
	logger.Printf("stopped at tick=%d feet=%s broken=%d placed=%d segments finished=%d failed=%d",
		run.Agent.Ticks(), run.Agent.Feet(), run.Agent.Body().Broken(), run.Agent.Body().Placed(),
		st.finished.Load(), st.failed.Load())

	snapPath := filepath.Join(runDir, "snapshots", fmt.Sprintf("%d.snap.zst", run.Agent.Ticks()))
	snap := snapshot.Capture(runID, run)
	if err := snapshot.WriteSnapshot(snapPath, snap); err != nil {
		logger.Printf("snapshot: %v", err)
	} else {
		logger.Printf("snapshot written: %s", snapPath)
		archiveRun(logger, *dataDir, snapPath, archive.ConfigHash(settingsJSON, scenarioJSON), snap)
	}
	if err := journal.Close(); err != nil {
		logger.Printf("journal close: %v", err)
	}
	if mirror != nil {
		for _, f := range journal.Files() {
			mirror.Enqueue(f)
		}
		mirror.Enqueue(snapPath)
	}

	if srv != nil {
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = srv.Shutdown(shutCtx)
		shutCancel()
	}
	if idx != nil {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := idx.Flush(flushCtx); err != nil {
			logger.Printf("index flush: %v", err)
		}
		flushCancel()
	}
	if mirror != nil {
		mirrorCtx, mirrorCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := mirror.Close(mirrorCtx); err != nil {
			logger.Printf("%v", err)
		}
		mirrorCancel()
	}
}

// archiveRun keeps the final snapshot per seed and warns when an earlier run with the same
// inputs and length ended in a different world.
func archiveRun(logger *log.Logger, dataDir, snapPath, configHash string, snap snapshot.SnapshotV1) {
	prev, err := archive.Previous(dataDir, snap.Seed)
	if err != nil {
		logger.Printf("archive: %v", err)
	}
	meta, err := archive.ArchiveRunSnapshot(dataDir, snapPath, configHash, snap, time.Now())
	if err != nil {
		logger.Printf("archive: %v", err)
		return
	}
	for _, p := range archive.Divergent(prev, meta) {
		logger.Printf("archive: run %s diverged from %s at tick %d (digest %s != %s)", meta.RunID, p.RunID, meta.Tick, meta.Digest, p.Digest)
	}
}

// loop ticks the run at rateHz until ctx ends or the run is done. rateHz <= 0 runs as fast
// as possible.
func loop(ctx context.Context, run *scenario.Run, rateHz int, after func(agent.TickRecord)) {
	var tick <-chan time.Time
	if rateHz > 0 {
		t := time.NewTicker(time.Second / time.Duration(rateHz))
		defer t.Stop()
		tick = t.C
	}
	for !run.Done() {
		if tick != nil {
			select {
			case <-ctx.Done():
				return
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return
		}
		after(run.Step())
	}
}

func processNames(run *scenario.Run) []string {
	var out []string
	for _, p := range run.Agent.Scheduler().Processes() {
		out = append(out, p.DisplayName())
	}
	return out
}

type stats struct {
	runID     string
	cat       *blocks.Catalog
	sc        scenario.Scenario
	spawn     geom.Pos
	height    int
	processes []string

	tick     atomic.Uint64
	finished atomic.Uint64
	failed   atomic.Uint64
}

func (s *stats) segment(seg pathing.Segment) {
	if seg.Outcome == pathing.Finished {
		s.finished.Add(1)
	} else {
		s.failed.Add(1)
	}
}

func (s *stats) Bootstrap() observerproto.BootstrapResponse {
	return observerproto.BootstrapResponse{
		RunID:        s.runID,
		Tick:         s.tick.Load(),
		TickRateHz:   s.sc.TickRateHz,
		Height:       s.height,
		Seed:         s.sc.Seed,
		Spawn:        [3]int{s.spawn.X, s.spawn.Y, s.spawn.Z},
		BlockPalette: append([]string(nil), s.cat.Palette...),
		Processes:    s.processes,
	}
}

func writeMetrics(rw http.ResponseWriter, s *stats, obs *observer.Server, idx *indexdb.SQLiteIndex, mirror *r2s3.Mirror) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(rw, "# HELP voxelmotion_tick Current agent tick.\n")
	fmt.Fprintf(rw, "# TYPE voxelmotion_tick gauge\n")
	fmt.Fprintf(rw, "voxelmotion_tick{run=%q} %d\n", s.runID, s.tick.Load())

	fmt.Fprintf(rw, "# HELP voxelmotion_segments_total Path segments by outcome.\n")
	fmt.Fprintf(rw, "# TYPE voxelmotion_segments_total counter\n")
	fmt.Fprintf(rw, "voxelmotion_segments_total{run=%q,outcome=%q} %d\n", s.runID, "finished", s.finished.Load())
	fmt.Fprintf(rw, "voxelmotion_segments_total{run=%q,outcome=%q} %d\n", s.runID, "failed", s.failed.Load())

	fmt.Fprintf(rw, "# HELP voxelmotion_observers Connected observers.\n")
	fmt.Fprintf(rw, "# TYPE voxelmotion_observers gauge\n")
	fmt.Fprintf(rw, "voxelmotion_observers{run=%q} %d\n", s.runID, obs.Subscribers())
	fmt.Fprintf(rw, "voxelmotion_observer_dropped_total{run=%q} %d\n", s.runID, obs.Dropped())

	if idx != nil {
		st := idx.Stats()
		fmt.Fprintf(rw, "# HELP voxelmotion_index_queue Index writer queue.\n")
		fmt.Fprintf(rw, "# TYPE voxelmotion_index_queue gauge\n")
		fmt.Fprintf(rw, "voxelmotion_index_queue{run=%q,stat=%q} %d\n", s.runID, "depth", st.QueueDepth)
		fmt.Fprintf(rw, "voxelmotion_index_queue{run=%q,stat=%q} %d\n", s.runID, "capacity", st.QueueCapacity)
		fmt.Fprintf(rw, "voxelmotion_index_dropped_total{run=%q,kind=%q} %d\n", s.runID, "segment", st.DropSegmentTotal)
		fmt.Fprintf(rw, "voxelmotion_index_dropped_total{run=%q,kind=%q} %d\n", s.runID, "control", st.DropControlTotal)
	}
	if mirror != nil {
		st := mirror.Stats()
		fmt.Fprintf(rw, "# HELP voxelmotion_mirror_uploads_total Mirror uploads by result.\n")
		fmt.Fprintf(rw, "# TYPE voxelmotion_mirror_uploads_total counter\n")
		fmt.Fprintf(rw, "voxelmotion_mirror_uploads_total{run=%q,result=%q} %d\n", s.runID, "ok", st.UploadSuccessTotal)
		fmt.Fprintf(rw, "voxelmotion_mirror_uploads_total{run=%q,result=%q} %d\n", s.runID, "fail", st.UploadFailTotal)
		fmt.Fprintf(rw, "voxelmotion_mirror_uploads_total{run=%q,result=%q} %d\n", s.runID, "dropped", st.DroppedTotal)
		fmt.Fprintf(rw, "voxelmotion_mirror_queue_depth{run=%q} %d\n", s.runID, st.QueueDepth)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}
