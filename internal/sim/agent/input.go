// Package agent is the simulated body a movement drives, plus the tick loop that runs the
// scheduler, the path executor and the body in order.
package agent

import "voxelmotion.ai/internal/sim/movement"

// InputOverride holds the inputs forced for the next body tick.
type InputOverride struct {
	forced [movement.NumInputs]bool
}

var movementInputs = movement.Inputs()

func (o *InputOverride) ClearAll() { o.forced = [movement.NumInputs]bool{} }

func (o *InputOverride) Set(in movement.Input, forced bool) {
	if int(in) < len(o.forced) {
		o.forced[in] = forced
	}
}

func (o *InputOverride) IsForced(in movement.Input) bool {
	return int(in) < len(o.forced) && o.forced[in]
}

// Held lists the forced inputs in declaration order.
func (o *InputOverride) Held() []movement.Input {
	var out []movement.Input
	for _, in := range movementInputs {
		if o.forced[in] {
			out = append(out, in)
		}
	}
	return out
}
