package pathing

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/goals"
	"voxelmotion.ai/internal/sim/movement"
	"voxelmotion.ai/internal/sim/movement/cost"
	"voxelmotion.ai/internal/sim/search"
)

// Segment is the record of one executed path.
type Segment struct {
	Start     geom.Pos `json:"start"`
	End       geom.Pos `json:"end"`
	Feet      geom.Pos `json:"feet"`
	Goal      string   `json:"goal"`
	Movements int      `json:"movements"`
	Completed int      `json:"completed"`
	Partial   bool     `json:"partial,omitempty"`
	Outcome   Outcome  `json:"outcome"`
	Reason    string   `json:"reason,omitempty"`
	Ticks     int      `json:"ticks"`
	Nodes     int      `json:"nodes"`
}

type Config struct {
	// Env is the live environment. The owner refreshes its fields every tick.
	Env *movement.Env
	// Plan builds a frozen cost context for a search starting at start.
	Plan func(start geom.Pos) (*cost.Context, error)

	CostHeuristic float64
	Search        search.Options
	// Inline runs searches on the calling goroutine, which makes runs reproducible.
	Inline bool

	Logger    *log.Logger
	OnSegment func(Segment)
}

type result struct {
	gen  uint64
	path *search.Path
	err  error
}

// Behavior is the scheduler's view of pathing. All methods except Close are called from
// the tick goroutine.
type Behavior struct {
	cfg Config

	goal    goals.Goal
	current *Executor

	pauseRequested bool
	paused         bool
	cancelPending  bool
	calcFailed     bool
	generation     uint64

	runCtx    context.Context
	runCancel context.CancelFunc
	wg        sync.WaitGroup

	mu         sync.Mutex
	calcGen    uint64
	inProgress *search.Search
	pending    *result
}

func NewBehavior(cfg Config) *Behavior {
	ctx, cancel := context.WithCancel(context.Background())
	return &Behavior{cfg: cfg, runCtx: ctx, runCancel: cancel}
}

// Close stops background searches and waits for them to exit.
func (b *Behavior) Close() {
	b.runCancel()
	b.wg.Wait()
}

func (b *Behavior) printf(format string, args ...any) {
	if b.cfg.Logger != nil {
		b.cfg.Logger.Printf(format, args...)
	}
}

func (b *Behavior) Goal() goals.Goal { return b.goal }

// SetGoal replaces the goal without touching the current path.
func (b *Behavior) SetGoal(g goals.Goal) {
	if g != nil && b.cfg.CostHeuristic > 0 {
		g = goals.Tune(g, b.cfg.CostHeuristic)
	}
	b.goal = g
}

// SetGoalAndPath sets the goal and starts planning toward it, unless a path is executing
// or being planned already or the agent is already in the goal.
func (b *Behavior) SetGoalAndPath(g goals.Goal) bool {
	b.SetGoal(g)
	if b.goal == nil {
		return false
	}
	feet := b.cfg.Env.Player.Feet()
	if goals.Contains(b.goal, feet) {
		return false
	}
	if b.current != nil || b.InProgress() {
		return false
	}
	return b.startSearch(feet, b.goal)
}

// RequestPause freezes execution for this tick once the movement is safe to stop.
func (b *Behavior) RequestPause() { b.pauseRequested = true }

// SoftCancel drops the route at the first tick the current movement is safe to stop.
func (b *Behavior) SoftCancel() {
	b.cancelPending = true
	b.cancelSearch()
	if b.SafeToCancel() {
		b.dropPath("soft cancel")
	}
}

// ForceCancel drops the route and any search immediately.
func (b *Behavior) ForceCancel() {
	b.cancelSearch()
	b.cancelPending = false
	if b.current != nil {
		if !b.current.Arrive(b.cfg.Env) {
			b.current.Cancel(b.cfg.Env, "force cancel")
		}
		b.finish(b.current)
		b.current = nil
	}
	b.cfg.Env.Input.ClearAll()
}

// IsPathing reports an executing path.
func (b *Behavior) IsPathing() bool { return b.current != nil }

// InProgress reports a search whose result has not been published yet.
func (b *Behavior) InProgress() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inProgress != nil
}

// Current is the executing path, if any.
func (b *Behavior) Current() *Executor { return b.current }

// CurrentPath reports the goal and end of the executing path.
func (b *Behavior) CurrentPath() (goals.Goal, geom.Pos, bool) {
	if b.current == nil {
		return nil, geom.Pos{}, false
	}
	p := b.current.Path()
	return p.Goal, p.Dest(), true
}

// CalcFailedLastTick reports a search that ended without a path during the last tick.
func (b *Behavior) CalcFailedLastTick() bool { return b.calcFailed }

// Paused reports that the last tick was spent paused.
func (b *Behavior) Paused() bool { return b.paused }

// CancelPending reports a soft cancel waiting for a safe moment.
func (b *Behavior) CancelPending() bool { return b.cancelPending }

func (b *Behavior) SafeToCancel() bool {
	return b.current == nil || b.current.SafeToCancel(b.cfg.Env)
}

// Tick publishes finished searches and advances the current path. generation is the
// world's chunk generation, used to invalidate movement block caches.
func (b *Behavior) Tick(generation uint64) {
	b.generation = generation
	b.calcFailed = false
	b.poll()

	safe := b.SafeToCancel()
	if b.pauseRequested {
		b.pauseRequested = false
		if safe {
			if !b.paused {
				b.cfg.Env.Input.ClearAll()
			}
			b.paused = true
			return
		}
	}
	b.paused = false

	if b.cancelPending && safe {
		b.dropPath("soft cancel")
	}
	if b.current == nil {
		return
	}
	switch b.current.Tick(b.cfg.Env, generation) {
	case Finished, Failed:
		// the path ended on its own; a cancel still waiting for a safe moment has nothing left to drop
		b.cancelPending = false
		done := b.current
		b.finish(done)
		b.current = nil
		b.replan(done)
	}
}

func (b *Behavior) replan(done *Executor) {
	if b.goal == nil {
		return
	}
	feet := b.cfg.Env.Player.Feet()
	if goals.Contains(b.goal, feet) {
		return
	}
	if done.Outcome() == Failed {
		b.printf("segment failed (%s); replanning from %s", done.Reason(), feet)
	}
	b.startSearch(feet, b.goal)
}

func (b *Behavior) dropPath(reason string) {
	b.cancelPending = false
	if b.current == nil {
		return
	}
	if !b.current.Arrive(b.cfg.Env) {
		b.current.Cancel(b.cfg.Env, reason)
	}
	b.finish(b.current)
	b.current = nil
}

func (b *Behavior) finish(x *Executor) {
	if b.cfg.OnSegment == nil {
		return
	}
	p := x.Path()
	b.cfg.OnSegment(Segment{
		Start:     p.Start,
		End:       p.Dest(),
		Feet:      b.cfg.Env.Player.Feet(),
		Goal:      p.Goal.String(),
		Movements: len(p.Movements),
		Completed: x.Position(),
		Partial:   p.Partial,
		Outcome:   x.Outcome(),
		Reason:    x.Reason(),
		Ticks:     x.Ticks(),
		Nodes:     p.NodesConsidered,
	})
}

func (b *Behavior) startSearch(start geom.Pos, g goals.Goal) bool {
	ctx, err := b.cfg.Plan(start)
	if err != nil {
		b.printf("plan context: %v", err)
		b.calcFailed = true
		return false
	}
	s := search.New(ctx, start, g, b.cfg.Search)

	b.mu.Lock()
	if b.inProgress != nil {
		b.inProgress.Cancel()
	}
	b.calcGen++
	gen := b.calcGen
	b.inProgress = s
	b.mu.Unlock()

	if b.cfg.Inline {
		p, err := s.Run(b.runCtx)
		b.publish(gen, p, err)
		return true
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		started := time.Now()
		p, err := s.Run(b.runCtx)
		if err == nil {
			b.printf("search %s -> %s: %d nodes in %s", start, g, p.NodesConsidered, time.Since(started).Round(time.Millisecond))
		}
		b.publish(gen, p, err)
	}()
	return true
}

// publish stores a result unless a newer search has superseded it.
func (b *Behavior) publish(gen uint64, p *search.Path, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.calcGen {
		return
	}
	b.pending = &result{gen: gen, path: p, err: err}
}

func (b *Behavior) cancelSearch() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inProgress != nil {
		b.inProgress.Cancel()
		b.inProgress = nil
	}
	b.calcGen++
	b.pending = nil
}

func (b *Behavior) poll() {
	b.mu.Lock()
	r := b.pending
	b.pending = nil
	if r != nil {
		b.inProgress = nil
	}
	b.mu.Unlock()
	if r == nil {
		return
	}
	switch {
	case errors.Is(r.err, search.ErrCancelled):
	case r.err != nil:
		b.printf("search failed: %v", r.err)
		b.calcFailed = true
	case b.current != nil:
		// a path started executing while this one was planned
	default:
		b.current = NewExecutor(r.path, b.generation)
	}
}
