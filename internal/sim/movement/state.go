package movement

import "voxelmotion.ai/internal/sim/geom"

type Status uint8

const (
	Prepping Status = iota
	Waiting
	Running
	Success
	Unreachable
	Canceled
)

var statusNames = [...]string{"PREPPING", "WAITING", "RUNNING", "SUCCESS", "UNREACHABLE", "CANCELED"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "INVALID"
}

// Complete reports a terminal status.
func (s Status) Complete() bool { return s >= Success }

// Failed reports a terminal status that is not success.
func (s Status) Failed() bool { return s == Unreachable || s == Canceled }

// Input is one control the agent can hold down for a tick.
type Input uint8

const (
	MoveForward Input = iota
	MoveBack
	MoveLeft
	MoveRight
	Jump
	Sneak
	Sprint
	ClickLeft
	ClickRight
	inputCount
)

// NumInputs is the number of input kinds.
const NumInputs = int(inputCount)

var inputNames = [...]string{"forward", "back", "left", "right", "jump", "sneak", "sprint", "click_left", "click_right"}

func (i Input) String() string {
	if int(i) < len(inputNames) {
		return inputNames[i]
	}
	return "invalid"
}

// Inputs lists every input kind.
func Inputs() []Input {
	out := make([]Input, inputCount)
	for i := range out {
		out[i] = Input(i)
	}
	return out
}

// Target is where the movement wants the agent to look. Force is set while breaking or
// placing, when the exact rotation matters.
type Target struct {
	Rotation geom.Rotation
	Set      bool
	Force    bool
}

// State is what a movement decided this tick.
type State struct {
	Status Status
	Target Target
	inputs [inputCount]int8 // 0 unset, 1 forced off, 2 forced on
}

func (s *State) SetInput(in Input, forced bool) {
	if forced {
		s.inputs[in] = 2
	} else {
		s.inputs[in] = 1
	}
}

// Input reports whether an input is asserted and whether it was set at all.
func (s *State) Input(in Input) (forced, set bool) {
	return s.inputs[in] == 2, s.inputs[in] != 0
}

func (s *State) SetTarget(r geom.Rotation, force bool) {
	s.Target = Target{Rotation: r, Set: true, Force: force}
}

func (s *State) clearInputs() { s.inputs = [inputCount]int8{} }

func (s *State) each(fn func(Input, bool)) {
	for i, v := range s.inputs {
		if v != 0 {
			fn(Input(i), v == 2)
		}
	}
}
