package observer

import (
	"voxelmotion.ai/internal/observerproto"
	"voxelmotion.ai/internal/sim/agent"
	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/pathing"
)

func triple(p geom.Pos) [3]int { return [3]int{p.X, p.Y, p.Z} }

func triples(ps []geom.Pos) [][3]int {
	if len(ps) == 0 {
		return nil
	}
	out := make([][3]int, len(ps))
	for i, p := range ps {
		out[i] = triple(p)
	}
	return out
}

// TickFromRecord builds the TICK message for one agent tick. view may be nil.
func TickFromRecord(r agent.TickRecord, view *agent.PathView) observerproto.TickMsg {
	msg := observerproto.TickMsg{
		Tick: r.Tick,
		Agent: observerproto.AgentState{
			Feet:       triple(r.Feet),
			Pos:        r.Pos,
			Yaw:        r.Yaw,
			Pitch:      r.Pitch,
			OnGround:   r.OnGround,
			Controller: r.Controller,
			Command:    r.Command,
			Goal:       r.Goal,
			Movement:   r.Movement,
			Status:     r.Status,
			Inputs:     r.Inputs,
			Pathing:    r.Pathing,
			Halted:     r.Halted,
		},
	}
	if view != nil {
		msg.Path = &observerproto.PathState{
			Dest:       triple(view.Dest),
			Remaining:  triples(view.Remaining),
			ToBreak:    triples(view.ToBreak),
			ToPlace:    triples(view.ToPlace),
			ToWalkInto: triples(view.ToWalkInto),
		}
	}
	return msg
}

func SegmentFrom(tick uint64, s pathing.Segment) observerproto.SegmentMsg {
	return observerproto.SegmentMsg{
		Tick:      tick,
		Start:     triple(s.Start),
		End:       triple(s.End),
		Goal:      s.Goal,
		Movements: s.Movements,
		Completed: s.Completed,
		Outcome:   s.Outcome.String(),
		Reason:    s.Reason,
	}
}
