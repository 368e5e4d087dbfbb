package movement

import (
	"math"

	"voxelmotion.ai/internal/sim/geom"
)

// onGroundEpsilon is how far above a block top the feet may be and still count as landed.
const onGroundEpsilon = 0.094

func (m *Movement) landed(e *Env) bool {
	return e.Player.Position().Y()-float64(e.Player.Feet().Y) < onGroundEpsilon
}

func (m *Movement) runTraverse(e *Env) {
	st := &m.state
	st.SetInput(Sneak, false)

	for _, p := range [2]geom.Pos{m.Dest, m.Dest.Up()} {
		if !e.Ctx.IsOpenable(e.get(p)) {
			continue
		}
		if rot, ok := e.Reachable(p); ok {
			st.SetTarget(rot, true)
			if e.isLookingAt(p) {
				st.SetInput(ClickRight, true)
			}
			return
		}
	}

	feet := e.Player.Feet()
	ladder := e.Ctx.IsClimbable(e.get(m.Src.Down()))
	p := m.positionToPlace
	bridgeThere := e.Ctx.CanWalkOn(p.X, p.Y, p.Z) || ladder
	if feet.Y != m.Dest.Y && !ladder {
		if feet.Y < m.Dest.Y {
			st.SetInput(Jump, true)
		}
		return
	}
	if bridgeThere {
		if feet == m.Dest {
			st.Status = Success
			return
		}
		inWater := e.Ctx.IsWater(e.get(feet)) || e.Ctx.IsWater(e.get(m.Dest))
		if e.Ctx.CanSprint && !inWater {
			st.SetInput(Sprint, true)
		}
		moveTowards(e, st, m.Dest)
		return
	}

	if !e.Hands.SelectThrowaway() {
		st.Status = Unreachable
		return
	}
	st.SetInput(Sneak, true)
	switch attemptPlace(e, st, p, false) {
	case placeReady:
		st.SetInput(ClickRight, true)
	case placeNoOption:
		m.backplace(e, p)
	}
}

// backplacePitch aims back down at the side of the block underfoot once the agent has
// sneaked out to the edge.
const backplacePitch = 82

// backplace sneaks backwards over the edge while looking back at the side of the block the
// agent stands on, and places when that face comes into view.
func (m *Movement) backplace(e *Env, p geom.Pos) {
	st := &m.state
	against := m.Src.Down()
	yaw := geom.YawToward(m.Dest.Center(), m.Src.Center())
	rot := geom.WrapRelative(e.Player.Rotation(), geom.Rotation{Yaw: yaw, Pitch: backplacePitch})
	st.SetTarget(rot, true)
	st.SetInput(Sneak, true)
	st.SetInput(MoveBack, true)
	if hit, ok := e.lookingAt(); ok && hit.Pos == against && hit.Adjacent() == p {
		st.SetInput(ClickRight, true)
	}
	m.placeTicks++
	if m.placeTicks > 100 {
		st.Status = Unreachable
	}
}

func (m *Movement) runAscend(e *Env) {
	st := &m.state
	feet := e.Player.Feet()
	if feet.Y < m.Src.Y {
		st.Status = Unreachable
		return
	}
	if feet == m.Dest || feet == m.Dest.Up() {
		st.Status = Success
		return
	}
	p := m.positionToPlace
	onto := e.get(p)
	if !e.Ctx.CanWalkOnState(p.X, p.Y, p.Z, onto) {
		if !e.Hands.SelectThrowaway() {
			st.Status = Unreachable
			return
		}
		st.SetInput(Sneak, true)
		switch attemptPlace(e, st, p, true) {
		case placeReady:
			st.SetInput(ClickRight, true)
			m.placeTicks = 0
		default:
			m.placeTicks++
			if m.placeTicks > 20 {
				st.Status = Unreachable
			}
		}
		return
	}
	moveTowards(e, st, m.Dest)
	if e.Ctx.IsBottomSlab(onto) && !e.Ctx.IsBottomSlab(e.get(m.Src.Down())) {
		// a bottom slab is stepped onto, not jumped
		return
	}
	if feet == m.Src.Up() {
		return
	}
	pos := e.Player.Position()
	xAxis := math.Abs(float64(m.Src.X - m.Dest.X))
	zAxis := math.Abs(float64(m.Src.Z - m.Dest.Z))
	dc := m.Dest.Center()
	flat := xAxis*math.Abs(dc.X()-pos.X()) + zAxis*math.Abs(dc.Z()-pos.Z())
	side := zAxis*math.Abs(dc.X()-pos.X()) + xAxis*math.Abs(dc.Z()-pos.Z())
	if flat > 1.2 || side > 0.2 {
		return
	}
	st.SetInput(Jump, true)
}

func (m *Movement) runDescend(e *Env) {
	st := &m.state
	feet := e.Player.Feet()
	pos := e.Player.Position()
	if feet == m.Dest && (e.Ctx.IsLiquid(e.get(m.Dest)) || pos.Y()-float64(m.Dest.Y) < onGroundEpsilon) {
		st.Status = Success
		return
	}
	dc := m.Dest.Center()
	sc := m.Src.Center()
	ab := hypot(pos.X()-dc.X(), pos.Z()-dc.Z())
	fromStart := hypot(pos.X()-sc.X(), pos.Z()-sc.Z())
	if feet != m.Dest || ab > 0.25 {
		if m.ticks < 20 && fromStart < 1.25 {
			// aim past the edge so the agent does not stop on it
			beyond := geom.P(2*m.Dest.X-m.Src.X, m.Dest.Y, 2*m.Dest.Z-m.Src.Z)
			moveTowards(e, st, beyond)
		} else {
			moveTowards(e, st, m.Dest)
		}
		m.ticks++
	}
}

func (m *Movement) runFall(e *Env) {
	st := &m.state
	feet := e.Player.Feet()
	pos := e.Player.Position()
	cur := e.Player.Rotation()
	toDest := geom.CalcRotation(e.Player.Eyes(), m.Dest.Center(), cur)
	isWater := e.Ctx.IsWater(e.get(m.Dest))

	forced := false
	if !isWater && m.bucket && feet != m.Dest {
		if !e.Hands.SelectWaterBucket() {
			st.Status = Unreachable
			return
		}
		if pos.Y()-float64(m.Dest.Y) < e.Reach && !e.Player.OnGround() {
			st.SetTarget(geom.Rotation{Yaw: toDest.Yaw, Pitch: 90}, true)
			forced = true
			if e.isLookingAt(m.Dest) || e.isLookingAt(m.Dest.Down()) {
				st.SetInput(ClickRight, true)
				m.placedBucket = true
			}
		}
	}
	if !forced {
		st.SetTarget(toDest, false)
	}
	if feet == m.Dest && (pos.Y()-float64(feet.Y) < onGroundEpsilon || isWater) {
		if isWater && m.placedBucket {
			if e.Hands.SelectEmptyBucket() {
				if e.Player.Velocity().Y() >= 0 {
					st.SetInput(ClickRight, true)
				}
				return
			}
		}
		st.Status = Success
		return
	}
	dc := m.Dest.Center()
	vel := e.Player.Velocity()
	if math.Abs(pos.X()+vel.X()-dc.X()) > 0.1 || math.Abs(pos.Z()+vel.Z()-dc.Z()) > 0.1 {
		if !e.Player.OnGround() && math.Abs(vel.Y()) > 0.4 {
			st.SetInput(Sneak, true)
		}
		st.SetInput(MoveForward, true)
	}
}

func (m *Movement) runDiagonal(e *Env) {
	st := &m.state
	feet := e.Player.Feet()
	if feet == m.Dest {
		st.Status = Success
		return
	}
	if !m.inValidPosition(e) {
		if _, ok := m.ValidPositions()[feet.Up()]; !(ok && e.Ctx.IsLiquid(e.get(m.Src))) {
			st.Status = Unreachable
			return
		}
	}
	pos := e.Player.Position()
	if m.Dest.Y > m.Src.Y && pos.Y() < float64(m.Src.Y)+0.1 && e.Player.OnGround() {
		st.SetInput(Jump, true)
	}
	if e.Ctx.CanSprint && !e.Ctx.IsWater(e.get(feet)) && m.Dest.Y == m.Src.Y {
		st.SetInput(Sprint, true)
	}
	moveTowards(e, st, m.Dest)
}

func (m *Movement) runPillar(e *Env) {
	st := &m.state
	feet := e.Player.Feet()
	pos := e.Player.Position()
	if feet.Y < m.Src.Y {
		st.Status = Unreachable
		return
	}
	if e.Ctx.IsClimbable(e.get(m.Src)) {
		if feet == m.Dest {
			st.Status = Success
			return
		}
		st.SetInput(Jump, true)
		return
	}
	if !e.Hands.SelectThrowaway() {
		st.Status = Unreachable
		return
	}
	cur := e.Player.Rotation()
	rot := geom.CalcRotation(e.Player.Eyes(), m.Src.Center(), cur)
	st.SetTarget(geom.Rotation{Yaw: cur.Yaw, Pitch: rot.Pitch}, true)
	st.SetInput(Sneak, pos.Y() > float64(m.Dest.Y) || pos.Y() < float64(m.Src.Y)+0.2)

	blockThere := e.Ctx.CanWalkOn(m.Src.X, m.Src.Y, m.Src.Z)
	dist := hypot(pos.X()-(float64(m.Dest.X)+0.5), pos.Z()-(float64(m.Dest.Z)+0.5))
	vel := e.Player.Velocity()
	if dist > 0.17 {
		st.SetInput(MoveForward, true)
		st.SetTarget(rot, true)
	} else if hypot(vel.X(), vel.Z()) < 0.05 {
		st.SetInput(Jump, pos.Y() < float64(m.Dest.Y))
	}
	if !blockThere {
		if !e.Ctx.IsReplaceable(m.Src.X, m.Src.Y, m.Src.Z) {
			if r, ok := e.Reachable(m.Src); ok {
				st.SetTarget(r, true)
			}
			st.SetInput(Jump, false)
			st.SetInput(ClickLeft, true)
		} else if pos.Y() > float64(m.Dest.Y)+0.1 && (e.isLookingAt(m.Src.Down()) || e.isLookingAt(m.Src)) {
			st.SetInput(ClickRight, true)
		}
	}
	if feet == m.Dest && blockThere {
		st.Status = Success
	}
}

func (m *Movement) runDownward(e *Env) {
	st := &m.state
	feet := e.Player.Feet()
	if feet == m.Dest {
		st.Status = Success
		return
	}
	if !m.inValidPosition(e) {
		st.Status = Unreachable
		return
	}
	pos := e.Player.Position()
	dc := m.Dest.Center()
	ab := hypot(pos.X()-dc.X(), pos.Z()-dc.Z())
	m.ticks++
	if m.ticks <= 10 && ab < 0.2 {
		return
	}
	moveTowards(e, st, m.Dest)
}

func (m *Movement) runParkour(e *Env) {
	st := &m.state
	if m.dist >= 4 || m.ascend {
		st.SetInput(Sprint, true)
	}
	moveTowards(e, st, m.Dest)
	feet := e.Player.Feet()
	switch {
	case feet == m.Dest:
		if e.Ctx.IsClimbable(e.get(m.Dest)) || m.landed(e) {
			st.Status = Success
		}
	case feet != m.Src:
		pos := e.Player.Position()
		back := m.dir.Opposite()
		if feet == m.Src.Step(m.dir) || pos.Y()-float64(m.Src.Y) > 0.0001 {
			if m.dist == 3 && !m.ascend {
				// a two block gap: take off from the far edge
				sc := m.Src.Center()
				fromStart := math.Max(math.Abs(sc.X()-pos.X()), math.Abs(sc.Z()-pos.Z()))
				if fromStart < 0.7 {
					return
				}
			}
			st.SetInput(Jump, true)
		} else if feet != m.Dest.Step(back) {
			st.SetInput(Sprint, false)
			if feet == m.Src.Step(back) {
				moveTowards(e, st, m.Src)
			} else {
				moveTowards(e, st, m.Src.Step(back))
			}
		}
	}
}
