package agent

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"voxelmotion.ai/internal/sim/blocks"
	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/inventory"
	"voxelmotion.ai/internal/sim/movement"
	"voxelmotion.ai/internal/sim/movement/cost"
	"voxelmotion.ai/internal/sim/pathing"
	"voxelmotion.ai/internal/sim/process"
	"voxelmotion.ai/internal/sim/search"
	"voxelmotion.ai/internal/sim/tuning"
	"voxelmotion.ai/internal/sim/voxel"
)

type Config struct {
	Catalog   *blocks.Catalog
	Settings  tuning.Settings
	World     *voxel.World
	Inventory *inventory.Inventory
	Spawn     geom.Pos

	// SnapshotRadius is the chunk radius frozen around the start of every search.
	SnapshotRadius int
	// Inline runs searches on the tick goroutine, bounded by node count only, so a run
	// repeats exactly.
	Inline bool

	Logger    *log.Logger
	OnTick    func(TickRecord)
	OnSegment func(pathing.Segment)
}

// TickRecord is what one agent tick looked like from the outside.
type TickRecord struct {
	Tick       uint64     `json:"tick"`
	Feet       geom.Pos   `json:"feet"`
	Pos        [3]float64 `json:"pos"`
	Yaw        float64    `json:"yaw"`
	Pitch      float64    `json:"pitch"`
	OnGround   bool       `json:"on_ground"`
	Controller string     `json:"controller,omitempty"`
	Command    string     `json:"command,omitempty"`
	Goal       string     `json:"goal,omitempty"`
	Movement   string     `json:"movement,omitempty"`
	Status     string     `json:"status,omitempty"`
	Inputs     []string   `json:"inputs,omitempty"`
	Pathing    bool       `json:"pathing"`
	CalcFailed bool       `json:"calc_failed,omitempty"`
	Halted     bool       `json:"halted,omitempty"`
}

// Agent drives one body: processes pick a goal, pathing plans and executes movements, and
// the body applies the resulting look and inputs to the world.
type Agent struct {
	cfg Config

	body  *Body
	hands *Hands
	look  *Look
	input *InputOverride
	env   *movement.Env

	path  *pathing.Behavior
	sched *process.Scheduler

	tick     uint64
	halted   error
	disabled []error
	last     TickRecord
}

func New(cfg Config) (*Agent, error) {
	if cfg.Catalog == nil || cfg.World == nil {
		return nil, errors.New("agent: catalog and world are required")
	}
	if cfg.Inventory == nil {
		cfg.Inventory = inventory.New()
	}
	if cfg.SnapshotRadius <= 0 {
		cfg.SnapshotRadius = 4
	}
	a := &Agent{
		cfg:   cfg,
		body:  NewBody(cfg.Catalog, cfg.World, cfg.Spawn),
		hands: NewHands(cfg.Catalog, cfg.Inventory),
		look:  &Look{},
		input: &InputOverride{},
	}
	live, err := a.liveContext()
	if err != nil {
		return nil, err
	}
	a.env = &movement.Env{
		Player: a.body,
		Hands:  a.hands,
		Look:   a.look,
		Input:  a.input,
		World:  cfg.World,
		Ctx:    live,

		Reach:                       cfg.Settings.BlockReachDistance,
		PauseMiningForFallingBlocks: cfg.Settings.PauseMiningForFallingBlocks,
	}
	opts := search.Options{MaxNodes: cfg.Settings.MaxPathNodes}
	if !cfg.Inline {
		opts.Timeout = time.Duration(cfg.Settings.PrimaryTimeoutMs) * time.Millisecond
	}
	a.path = pathing.NewBehavior(pathing.Config{
		Env:           a.env,
		Plan:          a.plan,
		CostHeuristic: cfg.Settings.CostHeuristic,
		Search:        opts,
		Inline:        cfg.Inline,
		Logger:        cfg.Logger,
		OnSegment:     cfg.OnSegment,
	})
	a.sched = process.NewScheduler(a.path, process.Options{
		CancelOnGoalInvalidation: cfg.Settings.CancelOnGoalInvalidation,
		Logger:                   cfg.Logger,
	})
	return a, nil
}

func (a *Agent) printf(format string, args ...any) {
	if a.cfg.Logger != nil {
		a.cfg.Logger.Printf(format, args...)
	}
}

func (a *Agent) liveContext() (*cost.Context, error) {
	return cost.New(a.cfg.World, a.cfg.Catalog, a.cfg.Inventory.Snapshot(a.cfg.Catalog), a.cfg.Settings)
}

// plan freezes the chunks around start for a background search.
func (a *Agent) plan(start geom.Pos) (*cost.Context, error) {
	snap := a.cfg.World.Snapshot(start, a.cfg.SnapshotRadius)
	return cost.New(snap, a.cfg.Catalog, a.cfg.Inventory.Snapshot(a.cfg.Catalog), a.cfg.Settings)
}

func (a *Agent) Register(p process.Process) error { return a.sched.Register(p) }

func (a *Agent) Scheduler() *process.Scheduler { return a.sched }
func (a *Agent) Pathing() *pathing.Behavior    { return a.path }
func (a *Agent) Body() *Body                   { return a.body }
func (a *Agent) Look() *Look                   { return a.look }
func (a *Agent) Feet() geom.Pos                { return a.body.Feet() }
func (a *Agent) Ticks() uint64                 { return a.tick }
func (a *Agent) Last() TickRecord              { return a.last }

// Halted returns the contract violation that stopped pathing, if any.
func (a *Agent) Halted() error { return a.halted }

// Disabled lists the contract violations whose processes were dropped.
func (a *Agent) Disabled() []error { return a.disabled }

// Close stops any background search.
func (a *Agent) Close() { a.path.Close() }

// Tick runs one simulation step: processes are resolved, the executor ticks the current
// movement, the body applies look and inputs, then revalidation commands run.
func (a *Agent) Tick() TickRecord {
	a.tick++
	if live, err := a.liveContext(); err == nil {
		a.env.Ctx = live
	} else {
		a.printf("agent: live context: %v", err)
	}

	if a.halted == nil {
		if err := a.sched.PreTick(); err != nil {
			a.halt(err)
		}
	}
	if a.halted == nil {
		a.path.Tick(a.cfg.World.Generation())
	} else {
		a.input.ClearAll()
	}
	a.body.Tick(a.look, a.input, a.hands, a.cfg.Settings.BlockReachDistance)
	if a.halted == nil {
		a.sched.PostTick()
	}

	a.last = a.record()
	if a.cfg.OnTick != nil {
		a.cfg.OnTick(a.last)
	}
	return a.last
}

// halt drops the offending process when it is known, leaving the others in charge of
// pathing. Anything else stops pathing for the rest of the run.
func (a *Agent) halt(err error) {
	a.path.ForceCancel()
	a.input.ClearAll()
	var ce *process.ContractError
	if errors.As(err, &ce) && ce.Culprit != nil && a.sched.Unregister(ce.Culprit) {
		a.disabled = append(a.disabled, err)
		a.printf("agent: process disabled: %v", ce)
		return
	}
	a.halted = err
	a.printf("agent: pathing halted: %v", err)
}

func (a *Agent) record() TickRecord {
	pos := a.body.Position()
	rot := a.body.Rotation()
	r := TickRecord{
		Tick:       a.tick,
		Feet:       a.body.Feet(),
		Pos:        [3]float64{round3(pos[0]), round3(pos[1]), round3(pos[2])},
		Yaw:        round3(rot.Yaw),
		Pitch:      round3(rot.Pitch),
		OnGround:   a.body.OnGround(),
		Pathing:    a.path.IsPathing(),
		CalcFailed: a.path.CalcFailedLastTick(),
		Halted:     a.halted != nil,
	}
	if p, ok := a.sched.MostRecentInControl(); ok {
		r.Controller = p.DisplayName()
	}
	if c, ok := a.sched.MostRecentCommand(); ok {
		r.Command = c.Type.String()
	}
	if g := a.path.Goal(); g != nil {
		r.Goal = g.String()
	}
	if x := a.path.Current(); x != nil {
		if m := x.Current(); m != nil {
			r.Movement = m.String()
			r.Status = m.Status().String()
		}
	}
	for _, in := range a.input.Held() {
		r.Inputs = append(r.Inputs, in.String())
	}
	return r
}

func round3(f float64) float64 { return math.Round(f*1000) / 1000 }

// String summarizes a record on one line.
func (r TickRecord) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "t=%d feet=%s", r.Tick, r.Feet)
	if r.Controller != "" {
		fmt.Fprintf(&b, " ctl=%q cmd=%s", r.Controller, r.Command)
	}
	if r.Movement != "" {
		fmt.Fprintf(&b, " mv=%s %s", r.Movement, r.Status)
	}
	if len(r.Inputs) > 0 {
		fmt.Fprintf(&b, " in=%s", strings.Join(r.Inputs, ","))
	}
	if r.Halted {
		b.WriteString(" halted")
	}
	return b.String()
}

// PathView is the part of the current path not yet walked.
type PathView struct {
	Dest       geom.Pos
	Remaining  []geom.Pos
	ToBreak    []geom.Pos
	ToPlace    []geom.Pos
	ToWalkInto []geom.Pos
}

func (a *Agent) PathView() (PathView, bool) {
	x := a.path.Current()
	if x == nil {
		return PathView{}, false
	}
	p := x.Path()
	v := PathView{Dest: p.Dest()}
	if i := x.Position(); i < len(p.Positions) {
		v.Remaining = append(v.Remaining, p.Positions[i:]...)
	}
	v.ToBreak, v.ToPlace, v.ToWalkInto = x.Blocks(a.env.Ctx)
	return v, true
}
