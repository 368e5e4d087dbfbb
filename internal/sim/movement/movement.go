package movement

import (
	"math"

	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/movement/cost"
)

// Movement is one committed edge of a path. It is owned by the path executor and ticked on
// the tick goroutine only.
type Movement struct {
	kind   Kind
	family Family
	Src    geom.Pos
	Dest   geom.Pos

	dir    geom.Direction
	dist   int
	ascend bool
	bucket bool

	positionsToBreak []geom.Pos
	positionToPlace  geom.Pos
	hasPlace         bool

	cost    float64
	costSet bool

	state        State
	ticks        int
	placeTicks   int
	placedBucket bool

	breakCache    []geom.Pos
	placeCache    []geom.Pos
	walkIntoCache []geom.Pos
	valid         map[geom.Pos]struct{}
}

func newMovement(k Kind, fam Family, src, dest geom.Pos) *Movement {
	m := &Movement{kind: k, family: fam, Src: src, Dest: dest, cost: cost.Inf}
	if d, ok := geom.DirectionTo(sign(dest.X-src.X), sign(dest.Z-src.Z)); ok {
		m.dir = d
	}
	switch fam {
	case FamilyTraverse:
		m.positionsToBreak = []geom.Pos{dest.Up(), dest}
		m.setPlace(dest.Down())
	case FamilyAscend:
		m.positionsToBreak = []geom.Pos{dest, src.UpN(2), dest.Up()}
		m.setPlace(dest.Down())
	case FamilyDescend:
		m.positionsToBreak = []geom.Pos{dest.UpN(2), dest.Up(), dest}
		m.setPlace(dest.Down())
	case FamilyFall:
		for y := src.Y + 1; y >= dest.Y; y-- {
			m.positionsToBreak = append(m.positionsToBreak, geom.P(dest.X, y, dest.Z))
		}
	case FamilyDiagonal:
		m.positionsToBreak = []geom.Pos{dest, dest.Up()}
		switch {
		case dest.Y > src.Y:
			m.positionsToBreak = append(m.positionsToBreak, src.UpN(2))
		case dest.Y < src.Y:
			m.positionsToBreak = append(m.positionsToBreak, dest.UpN(2))
		}
	case FamilyPillar:
		m.positionsToBreak = []geom.Pos{src.UpN(2)}
		m.setPlace(src)
	case FamilyDownward:
		m.positionsToBreak = []geom.Pos{dest}
	case FamilyParkour:
		m.dist = abs(dest.X-src.X) + abs(dest.Z-src.Z)
		m.ascend = dest.Y > src.Y
		m.setPlace(dest.Down())
	}
	m.state.Status = Prepping
	return m
}

func (m *Movement) setPlace(p geom.Pos) {
	m.positionToPlace = p
	m.hasPlace = true
}

func (m *Movement) Kind() Kind { return m.kind }

func (m *Movement) Family() Family { return m.family }

func (m *Movement) Status() Status { return m.state.Status }

// State is the decision made on the last tick.
func (m *Movement) State() State { return m.state }

// PositionsToBreak lists the cells that must be clear before the move can run.
func (m *Movement) PositionsToBreak() []geom.Pos { return m.positionsToBreak }

// PositionToPlace is the cell that must carry the agent, if the move needs one.
func (m *Movement) PositionToPlace() (geom.Pos, bool) { return m.positionToPlace, m.hasPlace }

// Cost returns the memoized cost, computing it from ctx the first time.
func (m *Movement) Cost(ctx *cost.Context) float64 {
	if !m.costSet {
		m.cost = m.evaluate(ctx)
		m.costSet = true
	}
	return m.cost
}

// CalculatedCost returns the memoized cost without evaluating anything.
func (m *Movement) CalculatedCost() (float64, bool) { return m.cost, m.costSet }

// RecalculateCost prices the edge again against ctx and replaces the memoized value.
func (m *Movement) RecalculateCost(ctx *cost.Context) float64 {
	m.cost = m.evaluate(ctx)
	m.costSet = true
	return m.cost
}

func (m *Movement) evaluate(ctx *cost.Context) float64 {
	var res MoveResult
	m.kind.Cost(ctx, m.Src.X, m.Src.Y, m.Src.Z, &res)
	if res.Pos() != m.Dest {
		// the landing moved, so this is no longer the same edge
		return cost.Inf
	}
	return res.Cost
}

// Reset re-arms the movement: status goes back to PREPPING and per-run counters clear.
func (m *Movement) Reset() {
	m.state = State{Status: Prepping}
	m.ticks = 0
	m.placeTicks = 0
	m.placedBucket = false
}

// Cancel marks the movement as abandoned.
func (m *Movement) Cancel() { m.state.Status = Canceled }

// ToBreak lists the positions to break that are not yet passable, memoized until
// ResetBlockCache.
func (m *Movement) ToBreak(ctx *cost.Context) []geom.Pos {
	if m.breakCache != nil {
		return m.breakCache
	}
	out := make([]geom.Pos, 0, len(m.positionsToBreak))
	for _, p := range m.positionsToBreak {
		if !ctx.CanWalkThrough(p.X, p.Y, p.Z) {
			out = append(out, p)
		}
	}
	m.breakCache = out
	return out
}

// ToPlace lists the position to place if it cannot yet be stood on, memoized until
// ResetBlockCache.
func (m *Movement) ToPlace(ctx *cost.Context) []geom.Pos {
	if m.placeCache != nil {
		return m.placeCache
	}
	out := []geom.Pos{}
	if m.hasPlace && !ctx.CanWalkOn(m.positionToPlace.X, m.positionToPlace.Y, m.positionToPlace.Z) {
		out = append(out, m.positionToPlace)
	}
	m.placeCache = out
	return out
}

// ToWalkInto lists cells the body brushes past that are not passable: the shoulders of a
// diagonal step.
func (m *Movement) ToWalkInto(ctx *cost.Context) []geom.Pos {
	if m.walkIntoCache != nil {
		return m.walkIntoCache
	}
	out := []geom.Pos{}
	if m.family == FamilyDiagonal {
		for _, p := range m.shoulders() {
			if !ctx.CanWalkThrough(p.X, p.Y, p.Z) {
				out = append(out, p)
			}
		}
	}
	m.walkIntoCache = out
	return out
}

// ResetBlockCache drops the memoized block lists. Call it when the lookup they were
// computed from changes discontinuously, such as a new batch of chunks.
func (m *Movement) ResetBlockCache() {
	m.breakCache = nil
	m.placeCache = nil
	m.walkIntoCache = nil
}

func (m *Movement) shoulders() []geom.Pos {
	a := geom.P(m.Src.X, m.Src.Y, m.Dest.Z)
	b := geom.P(m.Dest.X, m.Src.Y, m.Src.Z)
	return []geom.Pos{a, a.Up(), b, b.Up()}
}

// ValidPositions are the cells the agent's feet may occupy while the movement runs.
func (m *Movement) ValidPositions() map[geom.Pos]struct{} {
	if m.valid != nil {
		return m.valid
	}
	v := map[geom.Pos]struct{}{m.Src: {}, m.Dest: {}}
	add := func(ps ...geom.Pos) {
		for _, p := range ps {
			v[p] = struct{}{}
		}
	}
	switch m.family {
	case FamilyAscend:
		add(m.Src.Up())
	case FamilyDescend:
		add(m.Dest.Up())
	case FamilyFall:
		for y := m.Src.Y; y >= m.Dest.Y; y-- {
			add(geom.P(m.Dest.X, y, m.Dest.Z))
		}
	case FamilyDiagonal:
		a := geom.P(m.Src.X, m.Src.Y, m.Dest.Z)
		b := geom.P(m.Dest.X, m.Src.Y, m.Src.Z)
		add(a, b)
		switch {
		case m.Dest.Y < m.Src.Y:
			add(m.Dest.Up(), a.Down(), b.Down())
		case m.Dest.Y > m.Src.Y:
			add(m.Src.Up(), a.Up(), b.Up())
		}
	case FamilyParkour:
		for i := 0; i <= m.dist; i++ {
			p := m.Src.Add(geom.P(m.dir.Offset().X*i, 0, m.dir.Offset().Z*i))
			add(p, p.Up())
		}
	}
	m.valid = v
	return v
}

func (m *Movement) inValidPosition(e *Env) bool {
	_, ok := m.ValidPositions()[e.Player.Feet()]
	return ok
}

// SafeToCancel reports whether abandoning the movement now leaves the agent standing
// somewhere stable.
func (m *Movement) SafeToCancel(e *Env) bool {
	running := m.state.Status == Running
	switch m.family {
	case FamilyTraverse:
		p := m.positionToPlace
		return !running || e.Ctx.CanWalkOn(p.X, p.Y, p.Z)
	case FamilyAscend:
		return !running || e.Player.OnGround()
	case FamilyDescend, FamilyFall:
		return !running || e.Player.Feet() == m.Src
	case FamilyDiagonal:
		if e.Player.Feet() == m.Src || e.Player.OnGround() {
			return true
		}
		a := geom.P(m.Src.X, m.Src.Y-1, m.Dest.Z)
		b := geom.P(m.Dest.X, m.Src.Y-1, m.Src.Z)
		return e.Ctx.CanWalkOn(a.X, a.Y, a.Z) && e.Ctx.CanWalkOn(b.X, b.Y, b.Z)
	case FamilyPillar:
		return !running || (e.Player.OnGround() && (e.Player.Feet() == m.Src || e.Player.Feet() == m.Dest))
	case FamilyParkour:
		return !running
	}
	return true
}

// Update runs one tick of the state machine against the live world and pushes the
// resulting look target and inputs to the agent. It returns the new status.
func (m *Movement) Update(e *Env) Status {
	m.state.Target = Target{}
	m.updateState(e)

	feet := e.Player.Feet()
	if e.Ctx.IsLiquid(e.get(feet)) && e.Player.Position().Y() < float64(m.Dest.Y)+0.6 {
		m.state.SetInput(Jump, true)
	}
	if e.Player.InWall() {
		if hit, ok := e.lookingAt(); ok {
			e.Hands.SelectBestTool(e.get(hit.Pos))
		}
		m.state.SetInput(ClickLeft, true)
	}

	if t := m.state.Target; t.Set && (t.Force || !e.Look.Insisting()) {
		e.Look.UpdateTarget(t.Rotation, t.Force)
	}
	e.Input.ClearAll()
	m.state.each(e.Input.Set)
	m.state.clearInputs()
	if m.state.Status.Complete() {
		e.Input.ClearAll()
	}
	return m.state.Status
}

// updateState advances PREPPING -> WAITING -> RUNNING. WAITING always lasts one tick.
func (m *Movement) updateState(e *Env) {
	switch m.state.Status {
	case Waiting:
		m.state.Status = Running
	case Prepping, Running:
		ok := m.prepared(e)
		if m.state.Status == Unreachable {
			return
		}
		if !ok {
			m.state.Status = Prepping
			return
		}
		if m.state.Status == Prepping {
			m.state.Status = Waiting
			return
		}
	default:
		return
	}
	m.run(e)
}

// prepared reports whether every position to break is passable. While one is not, it aims
// at the block and holds the break input. A block that cannot be aimed at from here makes
// the movement UNREACHABLE.
func (m *Movement) prepared(e *Env) bool {
	blocked := false
	for _, p := range m.positionsToBreak {
		if e.PauseMiningForFallingBlocks && e.World.FallingBlockAt(p) {
			return false
		}
		s := e.get(p)
		if e.Ctx.CanWalkThroughState(p.X, p.Y, p.Z, s) {
			continue
		}
		blocked = true
		e.Hands.SelectBestTool(s)
		if rot, ok := e.Reachable(p); ok {
			m.state.SetTarget(rot, true)
			if e.isLookingAt(p) || e.Player.Rotation().IsReallyCloseTo(rot) {
				m.state.SetInput(ClickLeft, true)
			}
			return false
		}
		eyes := e.Player.Eyes()
		if eyes.Sub(p.Center()).Len() <= e.Reach {
			// no face is visible, so break whatever is in the way toward it
			m.state.SetTarget(geom.CalcRotation(eyes, p.Center(), e.Player.Rotation()), true)
			m.state.SetInput(ClickLeft, true)
			return false
		}
	}
	if blocked {
		m.state.Status = Unreachable
	}
	return true
}

func (m *Movement) run(e *Env) {
	switch m.family {
	case FamilyTraverse:
		m.runTraverse(e)
	case FamilyAscend:
		m.runAscend(e)
	case FamilyDescend:
		m.runDescend(e)
	case FamilyFall:
		m.runFall(e)
	case FamilyDiagonal:
		m.runDiagonal(e)
	case FamilyPillar:
		m.runPillar(e)
	case FamilyDownward:
		m.runDownward(e)
	case FamilyParkour:
		m.runParkour(e)
	}
}

func (m *Movement) String() string {
	return m.kind.String() + " " + m.Src.String() + "->" + m.Dest.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func hypot(a, b float64) float64 { return math.Sqrt(a*a + b*b) }
