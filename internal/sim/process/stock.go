package process

import (
	"log"

	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/goals"
)

// Default priorities of the stock processes.
const (
	PriorityPause   = 10
	PriorityRunAway = 5
	PriorityFollow  = 1
	PriorityCustom  = 0
	PriorityExplore = -1
)

// Locator reports where the agent stands.
type Locator interface {
	Feet() geom.Pos
}

type customState uint8

const (
	customNone customState = iota
	customGoalSet
	customPathRequested
	customExecuting
)

// CustomGoal walks to a goal given by an operator and lets go once the agent is in it.
type CustomGoal struct {
	agent    Locator
	priority float64
	log      *log.Logger

	goal  goals.Goal
	state customState
}

func NewCustomGoal(agent Locator, priority float64, logger *log.Logger) *CustomGoal {
	return &CustomGoal{agent: agent, priority: priority, log: logger}
}

// SetGoal only announces the goal; no path is planned.
func (c *CustomGoal) SetGoal(g goals.Goal) {
	c.goal = g
	c.state = customGoalSet
}

// SetGoalAndPath announces the goal and walks to it.
func (c *CustomGoal) SetGoalAndPath(g goals.Goal) {
	c.goal = g
	c.state = customPathRequested
}

func (c *CustomGoal) Goal() goals.Goal { return c.goal }

func (c *CustomGoal) IsActive() bool { return c.state != customNone }

func (c *CustomGoal) OnTick(calcFailed, _ bool) *Command {
	switch c.state {
	case customGoalSet:
		return NewCommand(c.goal, CancelAndSetGoal)
	case customPathRequested:
		c.state = customExecuting
		return NewCommand(c.goal, ForceRevalidateGoalAndPath)
	case customExecuting:
		g := c.goal
		if calcFailed {
			c.printf("no path to %s", g)
			c.OnLostControl()
			return NewCommand(g, CancelAndSetGoal)
		}
		if g == nil || goals.Contains(g, c.agent.Feet()) {
			c.printf("arrived at %s", g)
			c.OnLostControl()
			return NewCommand(g, CancelAndSetGoal)
		}
		return NewCommand(g, SetGoalAndPath)
	}
	return Deferred()
}

func (c *CustomGoal) IsTemporary() bool { return false }

func (c *CustomGoal) OnLostControl() {
	c.state = customNone
	c.goal = nil
}

func (c *CustomGoal) Priority() float64 { return c.priority }

func (c *CustomGoal) DisplayName() string { return "custom goal " + goalName(c.goal) }

func (c *CustomGoal) printf(format string, args ...any) {
	if c.log != nil {
		c.log.Printf(format, args...)
	}
}

// Follow keeps the agent within Range blocks of a moving target.
type Follow struct {
	target   func() (geom.Pos, bool)
	rng      int
	priority float64
	enabled  bool
}

func NewFollow(target func() (geom.Pos, bool), rng int, priority float64) *Follow {
	return &Follow{target: target, rng: rng, priority: priority, enabled: true}
}

func (f *Follow) goal() (goals.Goal, bool) {
	p, ok := f.target()
	if !ok {
		return nil, false
	}
	if f.rng <= 0 {
		return goals.NewBlock(p), true
	}
	return goals.Near{Pos: p, Range: f.rng}, true
}

func (f *Follow) IsActive() bool {
	if !f.enabled {
		return false
	}
	_, ok := f.target()
	return ok
}

func (f *Follow) OnTick(bool, bool) *Command {
	g, ok := f.goal()
	if !ok {
		return Deferred()
	}
	return NewCommand(g, RevalidateGoalAndPath)
}

func (f *Follow) IsTemporary() bool { return false }

func (f *Follow) OnLostControl() {}

// Stop disables following until Resume.
func (f *Follow) Stop()   { f.enabled = false }
func (f *Follow) Resume() { f.enabled = true }

func (f *Follow) Priority() float64 { return f.priority }

func (f *Follow) DisplayName() string { return "follow" }

// Pause holds the agent still while engaged. It never evicts the process it interrupts.
type Pause struct {
	engaged  bool
	priority float64
}

func NewPause(priority float64) *Pause { return &Pause{priority: priority} }

func (p *Pause) Engage()       { p.engaged = true }
func (p *Pause) Release()      { p.engaged = false }
func (p *Pause) Engaged() bool { return p.engaged }

func (p *Pause) IsActive() bool { return p.engaged }

func (p *Pause) OnTick(bool, bool) *Command { return NewCommand(nil, RequestPause) }

func (p *Pause) IsTemporary() bool { return true }

func (p *Pause) OnLostControl() {}

func (p *Pause) Priority() float64 { return p.priority }

func (p *Pause) DisplayName() string { return "pause" }

// RunAway flees from threats that come within Distance blocks.
type RunAway struct {
	agent    Locator
	threats  func() []geom.Pos
	distance int
	priority float64
}

func NewRunAway(agent Locator, threats func() []geom.Pos, distance int, priority float64) *RunAway {
	return &RunAway{agent: agent, threats: threats, distance: distance, priority: priority}
}

func (r *RunAway) near() []geom.Pos {
	feet := r.agent.Feet()
	var out []geom.Pos
	for _, t := range r.threats() {
		if t.DistanceSq(feet) < r.distance*r.distance {
			out = append(out, t)
		}
	}
	return out
}

func (r *RunAway) IsActive() bool { return len(r.near()) > 0 }

func (r *RunAway) OnTick(bool, bool) *Command {
	near := r.near()
	if len(near) == 0 {
		return Deferred()
	}
	members := make([]goals.Goal, len(near))
	for i, t := range near {
		members[i] = goals.Near{Pos: t, Range: r.distance}
	}
	return NewCommand(goals.Inverted{Origin: goals.NewComposite(members...)}, ForceRevalidateGoalAndPath)
}

func (r *RunAway) IsTemporary() bool { return false }

func (r *RunAway) OnLostControl() {}

func (r *RunAway) Priority() float64 { return r.priority }

func (r *RunAway) DisplayName() string { return "run away" }

// Explore heads in one direction from Origin until a search fails.
type Explore struct {
	goal     goals.StrictDirection
	enabled  bool
	priority float64
	log      *log.Logger
}

func NewExplore(priority float64, logger *log.Logger) *Explore {
	return &Explore{priority: priority, log: logger}
}

// Start explores along dir from origin.
func (e *Explore) Start(origin geom.Pos, dir geom.Direction) {
	e.goal = goals.StrictDirection{Origin: origin, Dir: dir}
	e.enabled = true
}

func (e *Explore) IsActive() bool { return e.enabled }

func (e *Explore) OnTick(calcFailed, _ bool) *Command {
	if calcFailed {
		if e.log != nil {
			e.log.Printf("explore %s: no way forward", e.goal)
		}
		e.OnLostControl()
		return NewCommand(nil, CancelAndSetGoal)
	}
	return NewCommand(e.goal, SetGoalAndPath)
}

func (e *Explore) IsTemporary() bool { return false }

func (e *Explore) OnLostControl() { e.enabled = false }

func (e *Explore) Priority() float64 { return e.priority }

func (e *Explore) DisplayName() string { return "explore" }

func goalName(g goals.Goal) string {
	if g == nil {
		return "<none>"
	}
	return g.String()
}
