// Package pathing owns the agent's current route: it plans in the background and walks the
// committed path one movement per tick.
package pathing

import (
	"fmt"
	"math"

	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/movement"
	"voxelmotion.ai/internal/sim/movement/cost"
	"voxelmotion.ai/internal/sim/search"
)

const (
	// MaxTicksAway is how long the agent may stray from the path before the segment fails.
	MaxTicksAway = 40
	// MaxDistFromPath is the distance from the nearest path cell that counts as straying.
	MaxDistFromPath = 2
	// MaxMaxDistFromPath fails the segment at once.
	MaxMaxDistFromPath = 3
	// movementTimeoutTicks is added to a movement's cost to bound how long it may run.
	movementTimeoutTicks = 100
)

type Outcome uint8

const (
	Executing Outcome = iota
	Finished
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Executing:
		return "executing"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	}
	return "unknown"
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Outcome) UnmarshalText(b []byte) error {
	switch string(b) {
	case "executing":
		*o = Executing
	case "finished":
		*o = Finished
	case "failed":
		*o = Failed
	default:
		return fmt.Errorf("unknown outcome %q", b)
	}
	return nil
}

// Executor walks one committed path. It is driven from the tick goroutine only.
type Executor struct {
	path           *search.Path
	idx            int
	ticksAway      int
	ticksOnCurrent int
	generation     uint64
	outcome        Outcome
	reason         string
	ticks          int
}

func NewExecutor(p *search.Path, generation uint64) *Executor {
	return &Executor{path: p, generation: generation}
}

func (x *Executor) Path() *search.Path { return x.path }

func (x *Executor) Outcome() Outcome { return x.outcome }

// Reason explains a failure.
func (x *Executor) Reason() string { return x.reason }

// Ticks counts ticks spent executing.
func (x *Executor) Ticks() int { return x.ticks }

// Position is the index of the current movement.
func (x *Executor) Position() int { return x.idx }

// Current is the movement being executed, or nil when the path is done.
func (x *Executor) Current() *movement.Movement {
	if x.idx >= len(x.path.Movements) {
		return nil
	}
	return x.path.Movements[x.idx]
}

// SafeToCancel asks the current movement.
func (x *Executor) SafeToCancel(e *movement.Env) bool {
	m := x.Current()
	return m == nil || x.outcome != Executing || m.SafeToCancel(e)
}

// Cancel abandons the path immediately.
func (x *Executor) Cancel(e *movement.Env, reason string) {
	if m := x.Current(); m != nil && !m.Status().Complete() {
		m.Cancel()
	}
	if e != nil {
		e.Input.ClearAll()
	}
	x.fail(reason)
}

// Arrive closes the path as finished when the feet already stand on its destination, so a
// cancel that lands after the last step is not reported as a failure.
func (x *Executor) Arrive(e *movement.Env) bool {
	if x.outcome != Executing || e.Player.Feet() != x.path.Dest() {
		return false
	}
	if m := x.Current(); m != nil && !m.Status().Complete() {
		m.Cancel()
	}
	e.Input.ClearAll()
	x.idx = len(x.path.Movements)
	x.outcome = Finished
	return true
}

func (x *Executor) fail(reason string) {
	x.outcome = Failed
	x.reason = reason
}

// Tick advances the path by one game tick. A movement that completes hands over to the
// next one within the same tick.
func (x *Executor) Tick(e *movement.Env, generation uint64) Outcome {
	if x.outcome != Executing {
		return x.outcome
	}
	x.ticks++
	if generation != x.generation {
		x.generation = generation
		for _, m := range x.path.Movements[x.idx:] {
			m.ResetBlockCache()
		}
	}
	for range x.path.Movements {
		m := x.Current()
		if m == nil {
			x.outcome = Finished
			return x.outcome
		}
		feet := e.Player.Feet()
		if j, ok := x.locate(feet); ok && j != x.idx {
			x.skipTo(j)
			m = x.Current()
		}

		d := x.distanceFromPath(feet)
		if d > MaxMaxDistFromPath {
			x.Cancel(e, "too far from path")
			return x.outcome
		}
		if d > MaxDistFromPath {
			x.ticksAway++
			if x.ticksAway > MaxTicksAway {
				x.Cancel(e, "off path for too long")
				return x.outcome
			}
		} else {
			x.ticksAway = 0
		}

		if st := m.Status(); st == movement.Prepping || st == movement.Waiting {
			if c := m.RecalculateCost(e.Ctx); c >= cost.Inf && m.SafeToCancel(e) {
				x.Cancel(e, "movement became impossible: "+m.String())
				return x.outcome
			}
		}
		x.ticksOnCurrent++
		if c, _ := m.CalculatedCost(); float64(x.ticksOnCurrent) > c+movementTimeoutTicks && m.SafeToCancel(e) {
			x.Cancel(e, "movement took too long: "+m.String())
			return x.outcome
		}

		switch m.Update(e) {
		case movement.Unreachable:
			x.fail("unreachable: " + m.String())
			return x.outcome
		case movement.Canceled:
			x.fail("canceled: " + m.String())
			return x.outcome
		case movement.Success:
			x.idx++
			x.ticksOnCurrent = 0
			continue
		}
		return x.outcome
	}
	if x.Current() == nil {
		x.outcome = Finished
	}
	return x.outcome
}

// locate finds the movement whose valid positions hold feet, looking at the current one
// first, then ahead, then behind.
func (x *Executor) locate(feet geom.Pos) (int, bool) {
	ms := x.path.Movements
	if _, ok := ms[x.idx].ValidPositions()[feet]; ok {
		return x.idx, true
	}
	for i := x.idx + 1; i < len(ms); i++ {
		if _, ok := ms[i].ValidPositions()[feet]; ok {
			return i, true
		}
	}
	for i := x.idx - 1; i >= 0; i-- {
		if _, ok := ms[i].ValidPositions()[feet]; ok {
			return i, true
		}
	}
	return 0, false
}

func (x *Executor) skipTo(j int) {
	lo, hi := x.idx, j
	if lo > hi {
		lo, hi = hi, lo
	}
	for _, m := range x.path.Movements[lo : hi+1] {
		m.Reset()
	}
	x.idx = j
	x.ticksOnCurrent = 0
}

func (x *Executor) distanceFromPath(feet geom.Pos) float64 {
	best := math.Inf(1)
	for _, p := range x.path.Positions {
		if d := math.Sqrt(float64(p.DistanceSq(feet))); d < best {
			best = d
		}
	}
	return best
}

// Blocks collects what the remaining movements still need broken, placed and walked
// through, computed against ctx.
func (x *Executor) Blocks(ctx *cost.Context) (toBreak, toPlace, toWalkInto []geom.Pos) {
	if x.outcome != Executing {
		return nil, nil, nil
	}
	for _, m := range x.path.Movements[x.idx:] {
		toBreak = append(toBreak, m.ToBreak(ctx)...)
		toPlace = append(toPlace, m.ToPlace(ctx)...)
		toWalkInto = append(toWalkInto, m.ToWalkInto(ctx)...)
	}
	return toBreak, toPlace, toWalkInto
}
