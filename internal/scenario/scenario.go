// Package scenario describes a reproducible agent run: the generated terrain, the agent's
// kit and the processes competing for it. The motiond command runs scenarios and the
// replay command re-runs them from a journal header.
package scenario

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"voxelmotion.ai/internal/sim/agent"
	"voxelmotion.ai/internal/sim/blocks"
	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/goals"
	"voxelmotion.ai/internal/sim/inventory"
	"voxelmotion.ai/internal/sim/pathing"
	"voxelmotion.ai/internal/sim/process"
	"voxelmotion.ai/internal/sim/tuning"
	"voxelmotion.ai/internal/sim/voxel"
)

type GoalSpec struct {
	// Kind is block, near, xz or y.
	Kind  string `yaml:"kind" json:"kind"`
	Pos   [3]int `yaml:"pos" json:"pos"`
	Range int    `yaml:"range,omitempty" json:"range,omitempty"`
}

type FollowSpec struct {
	Waypoints [][3]int `yaml:"waypoints" json:"waypoints"`
	// Every is how many ticks the target rests at each waypoint.
	Every int `yaml:"every" json:"every"`
	Range int `yaml:"range" json:"range"`
}

type RunAwaySpec struct {
	Threats  [][3]int `yaml:"threats" json:"threats"`
	Distance int      `yaml:"distance" json:"distance"`
}

// Window is a tick interval [From, To).
type Window struct {
	From uint64 `yaml:"from" json:"from"`
	To   uint64 `yaml:"to" json:"to"`
}

type Scenario struct {
	Seed         int64  `yaml:"seed" json:"seed"`
	RadiusChunks int    `yaml:"radius_chunks" json:"radius_chunks"`
	Height       int    `yaml:"height" json:"height"`
	TickRateHz   int    `yaml:"tick_rate_hz" json:"tick_rate_hz"`
	Ticks        uint64 `yaml:"ticks" json:"ticks"`
	// Spawn defaults to the surface above the origin.
	Spawn *[3]int `yaml:"spawn,omitempty" json:"spawn,omitempty"`

	Tools       []inventory.Tool `yaml:"tools" json:"tools,omitempty"`
	Blocks      map[string]int   `yaml:"blocks" json:"blocks,omitempty"`
	WaterBucket bool             `yaml:"water_bucket" json:"water_bucket,omitempty"`

	Goal    *GoalSpec    `yaml:"goal,omitempty" json:"goal,omitempty"`
	Explore string       `yaml:"explore,omitempty" json:"explore,omitempty"`
	Follow  *FollowSpec  `yaml:"follow,omitempty" json:"follow,omitempty"`
	RunAway *RunAwaySpec `yaml:"run_away,omitempty" json:"run_away,omitempty"`
	Pauses  []Window     `yaml:"pauses,omitempty" json:"pauses,omitempty"`
}

func Default() Scenario {
	return Scenario{
		Seed:         1337,
		RadiusChunks: 3,
		Height:       64,
		TickRateHz:   20,
		Tools: []inventory.Tool{
			{Name: "iron_pickaxe", Class: "pickaxe", Speed: 6},
			{Name: "iron_shovel", Class: "shovel", Speed: 6},
			{Name: "iron_axe", Class: "axe", Speed: 6},
		},
		Blocks: map[string]int{"DIRT": 64},
		Goal:   &GoalSpec{Kind: "block", Pos: [3]int{24, 0, 18}},
	}
}

// Load reads a YAML scenario over the defaults.
func Load(path string) (Scenario, error) {
	sc := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return sc, err
	}
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return sc, fmt.Errorf("scenario.yaml: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return sc, fmt.Errorf("scenario.yaml: %w", err)
	}
	return sc, nil
}

func (sc Scenario) Validate() error {
	if sc.RadiusChunks < 0 || sc.RadiusChunks > 16 {
		return fmt.Errorf("radius_chunks must be in [0,16] (got %d)", sc.RadiusChunks)
	}
	if sc.TickRateHz < 0 || sc.TickRateHz > 1000 {
		return fmt.Errorf("tick_rate_hz must be in [0,1000] (got %d)", sc.TickRateHz)
	}
	if sc.Goal != nil {
		switch sc.Goal.Kind {
		case "block", "near", "xz", "y":
		default:
			return fmt.Errorf("unknown goal kind %q", sc.Goal.Kind)
		}
	}
	if sc.Explore != "" {
		if _, ok := parseDirection(sc.Explore); !ok {
			return fmt.Errorf("unknown explore direction %q", sc.Explore)
		}
	}
	if f := sc.Follow; f != nil && len(f.Waypoints) == 0 {
		return fmt.Errorf("follow needs at least one waypoint")
	}
	for _, w := range sc.Pauses {
		if w.To <= w.From {
			return fmt.Errorf("pause window %d..%d is empty", w.From, w.To)
		}
	}
	return nil
}

func parseDirection(s string) (geom.Direction, bool) {
	for _, d := range geom.Horizontals {
		if d.String() == s {
			return d, true
		}
	}
	return 0, false
}

// Goal builds the operator goal. A zero Y on a block or near goal means the surface.
func (g GoalSpec) build(w *voxel.World, cat *blocks.Catalog) goals.Goal {
	p := geom.P(g.Pos[0], g.Pos[1], g.Pos[2])
	if p.Y == 0 && (g.Kind == "block" || g.Kind == "near") {
		p = Surface(w, cat, p.X, p.Z)
	}
	switch g.Kind {
	case "near":
		return goals.Near{Pos: p, Range: g.Range}
	case "xz":
		return goals.XZ{X: p.X, Z: p.Z}
	case "y":
		return goals.YLevel{Y: p.Y}
	}
	return goals.NewBlock(p)
}

// Surface is the first cell above the highest collidable block of a column.
func Surface(w *voxel.World, cat *blocks.Catalog, x, z int) geom.Pos {
	for y := w.Height() - 2; y > 0; y-- {
		d := cat.Def(w.Get(x, y, z).Kind)
		if d.Class != blocks.ClassAir && d.Class != blocks.ClassPlant {
			return geom.P(x, y+1, z)
		}
	}
	return geom.P(x, 1, z)
}

// Hooks receive what a run produces.
type Hooks struct {
	Logger    *log.Logger
	OnTick    func(agent.TickRecord)
	OnSegment func(tick uint64, s pathing.Segment)
}

// Run is a built scenario.
type Run struct {
	Scenario  Scenario
	Catalog   *blocks.Catalog
	World     *voxel.World
	Inventory *inventory.Inventory
	Agent     *agent.Agent

	Custom  *process.CustomGoal
	Pause   *process.Pause
	Follow  *process.Follow
	RunAway *process.RunAway
	Explore *process.Explore

	followAt int
}

// Build generates the world and registers the processes the scenario asks for. Searches
// run inline so that a run with the same scenario and settings replays tick for tick.
func Build(cat *blocks.Catalog, settings tuning.Settings, sc Scenario, hooks Hooks) (*Run, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	w := voxel.Generate(cat, voxel.GenConfig{Seed: sc.Seed, RadiusChunk: sc.RadiusChunks, Height: sc.Height})

	inv := inventory.New()
	for _, t := range sc.Tools {
		inv.AddTool(t)
	}
	for name, n := range sc.Blocks {
		k, ok := cat.Kind(name)
		if !ok {
			return nil, fmt.Errorf("blocks: unknown block %s", name)
		}
		inv.AddBlocks(k, n)
	}
	inv.WaterBucket = sc.WaterBucket
	if !inv.WaterBucket {
		inv.EmptyBucket = true
	}

	spawn := Surface(w, cat, 0, 0)
	if sc.Spawn != nil {
		spawn = geom.P(sc.Spawn[0], sc.Spawn[1], sc.Spawn[2])
	}

	r := &Run{Scenario: sc, Catalog: cat, World: w, Inventory: inv}
	var onSegment func(pathing.Segment)
	if hooks.OnSegment != nil {
		onSegment = func(s pathing.Segment) { hooks.OnSegment(r.Agent.Ticks(), s) }
	}
	a, err := agent.New(agent.Config{
		Catalog:        cat,
		Settings:       settings,
		World:          w,
		Inventory:      inv,
		Spawn:          spawn,
		SnapshotRadius: sc.RadiusChunks + 1,
		Inline:         true,
		Logger:         hooks.Logger,
		OnTick:         hooks.OnTick,
		OnSegment:      onSegment,
	})
	if err != nil {
		return nil, err
	}
	r.Agent = a

	r.Pause = process.NewPause(process.PriorityPause)
	if err := a.Register(r.Pause); err != nil {
		return nil, err
	}
	if ra := sc.RunAway; ra != nil {
		threats := make([]geom.Pos, len(ra.Threats))
		for i, t := range ra.Threats {
			threats[i] = geom.P(t[0], t[1], t[2])
		}
		r.RunAway = process.NewRunAway(a, func() []geom.Pos { return threats }, ra.Distance, process.PriorityRunAway)
		if err := a.Register(r.RunAway); err != nil {
			return nil, err
		}
	}
	if f := sc.Follow; f != nil {
		r.Follow = process.NewFollow(r.followTarget, f.Range, process.PriorityFollow)
		if err := a.Register(r.Follow); err != nil {
			return nil, err
		}
	}
	r.Custom = process.NewCustomGoal(a, process.PriorityCustom, hooks.Logger)
	if err := a.Register(r.Custom); err != nil {
		return nil, err
	}
	if sc.Goal != nil {
		r.Custom.SetGoalAndPath(sc.Goal.build(w, cat))
	}
	r.Explore = process.NewExplore(process.PriorityExplore, hooks.Logger)
	if err := a.Register(r.Explore); err != nil {
		return nil, err
	}
	if d, ok := parseDirection(sc.Explore); ok {
		r.Explore.Start(spawn, d)
	}
	return r, nil
}

func (r *Run) followTarget() (geom.Pos, bool) {
	f := r.Scenario.Follow
	wp := f.Waypoints[r.followAt%len(f.Waypoints)]
	p := geom.P(wp[0], wp[1], wp[2])
	if p.Y == 0 {
		p = Surface(r.World, r.Catalog, p.X, p.Z)
	}
	return p, true
}

// Step advances the scripted parts of the scenario, then ticks the agent once.
func (r *Run) Step() agent.TickRecord {
	next := r.Agent.Ticks() + 1
	paused := false
	for _, w := range r.Scenario.Pauses {
		if next >= w.From && next < w.To {
			paused = true
		}
	}
	if paused {
		r.Pause.Engage()
	} else {
		r.Pause.Release()
	}
	if f := r.Scenario.Follow; f != nil && f.Every > 0 {
		r.followAt = int((next - 1) / uint64(f.Every))
	}
	return r.Agent.Tick()
}

// Done reports that the run reached its tick limit or nothing is left to do.
func (r *Run) Done() bool {
	if r.Scenario.Ticks > 0 && r.Agent.Ticks() >= r.Scenario.Ticks {
		return true
	}
	if r.Agent.Halted() != nil {
		return true
	}
	idle := !r.Custom.IsActive() && !r.Explore.IsActive() && r.Follow == nil && r.RunAway == nil
	return idle && !r.Agent.Pathing().IsPathing() && !r.Agent.Pathing().InProgress() && r.Agent.Ticks() > 0
}

func (r *Run) Close() { r.Agent.Close() }
