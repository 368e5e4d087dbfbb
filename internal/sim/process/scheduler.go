package process

import (
	"fmt"
	"log"
	"sort"

	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/goals"
)

// Pather is what the scheduler drives. pathing.Behavior implements it.
type Pather interface {
	Goal() goals.Goal
	SetGoal(g goals.Goal)
	SetGoalAndPath(g goals.Goal) bool
	RequestPause()
	SoftCancel()
	ForceCancel()
	IsPathing() bool
	InProgress() bool
	CalcFailedLastTick() bool
	SafeToCancel() bool
	// CurrentPath reports the goal the executing path was planned for and its end.
	CurrentPath() (goals.Goal, geom.Pos, bool)
}

// ContractError reports a process breaking the scheduler's rules. It is a bug in the
// process, never a runtime condition.
type ContractError struct {
	Process string
	Reason  string
	// Culprit is the offending process when it is registered and can be dropped.
	Culprit Process
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("process %q: %s", e.Process, e.Reason)
}

type Options struct {
	// CancelOnGoalInvalidation lets a revalidate command drop a route whose end the new goal
	// no longer contains.
	CancelOnGoalInvalidation bool
	Logger                   *log.Logger
}

// Scheduler resolves one command per tick. It is used from the tick goroutine only.
type Scheduler struct {
	pather Pather
	opts   Options

	processes []Process
	active    []Process

	inControlThisTick Process
	inControlLastTick Process
	command           *Command
	prevCommand       *Command
}

func NewScheduler(p Pather, opts Options) *Scheduler {
	return &Scheduler{pather: p, opts: opts}
}

func (s *Scheduler) printf(format string, args ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Printf(format, args...)
	}
}

// Register adds a process. Registering the same process twice is a contract violation.
func (s *Scheduler) Register(p Process) error {
	for _, q := range s.processes {
		if q == p {
			return &ContractError{Process: p.DisplayName(), Reason: "registered twice"}
		}
	}
	s.processes = append(s.processes, p)
	return nil
}

// Unregister drops a process for good and tells it it lost control.
func (s *Scheduler) Unregister(p Process) bool {
	i := indexOf(s.processes, p)
	if i < 0 {
		return false
	}
	s.processes = append(s.processes[:i], s.processes[i+1:]...)
	if j := indexOf(s.active, p); j >= 0 {
		s.active = append(s.active[:j], s.active[j+1:]...)
	}
	if s.inControlThisTick == p {
		s.inControlThisTick = nil
	}
	if s.inControlLastTick == p {
		s.inControlLastTick = nil
	}
	p.OnLostControl()
	return true
}

func (s *Scheduler) Processes() []Process { return s.processes }

// MostRecentInControl is the process that won the last resolution, if any.
func (s *Scheduler) MostRecentInControl() (Process, bool) {
	return s.inControlThisTick, s.inControlThisTick != nil
}

// MostRecentCommand is the command resolved last, if any.
func (s *Scheduler) MostRecentCommand() (*Command, bool) {
	return s.command, s.command != nil
}

// CancelEverything tells every process it lost control and drops the route at once.
func (s *Scheduler) CancelEverything() {
	for _, p := range s.processes {
		p.OnLostControl()
	}
	s.active = s.active[:0]
	s.inControlThisTick = nil
	s.command = nil
	s.pather.ForceCancel()
	s.pather.SetGoal(nil)
}

// PreTick resolves this tick's controller and applies the commands that act before the
// path executor runs.
func (s *Scheduler) PreTick() error {
	s.inControlLastTick = s.inControlThisTick
	s.prevCommand = s.command
	cmd, err := s.resolve()
	s.command = cmd
	if err != nil {
		return err
	}
	p := s.pather
	if cmd == nil {
		if s.prevCommand != nil {
			s.printf("nothing in control; soft cancelling")
		}
		p.SoftCancel()
		p.SetGoal(nil)
		return nil
	}
	if s.inControlThisTick != s.inControlLastTick {
		s.printf("control: %s -> %s (%s)", name(s.inControlLastTick), name(s.inControlThisTick), cmd)
		if cmd.Type != RequestPause && s.inControlLastTick != nil && !s.inControlLastTick.IsTemporary() {
			// the previous real controller's route is no longer wanted
			p.SoftCancel()
		}
	}
	switch cmd.Type {
	case RequestPause:
		p.RequestPause()
	case CancelAndSetGoal:
		p.SetGoal(cmd.Goal)
		p.SoftCancel()
	case RevalidateGoalAndPath, ForceRevalidateGoalAndPath:
		if !p.IsPathing() && !p.InProgress() {
			p.SetGoalAndPath(cmd.Goal)
		}
	case SetGoalAndPath:
		if cmd.Goal != nil {
			p.SetGoalAndPath(cmd.Goal)
		}
	}
	return nil
}

// PostTick applies the revalidation commands after the executor has run against the
// previous plan.
func (s *Scheduler) PostTick() {
	cmd := s.command
	if cmd == nil {
		return
	}
	p := s.pather
	switch cmd.Type {
	case ForceRevalidateGoalAndPath:
		if cmd.Goal == nil || s.forceRevalidate(cmd.Goal) || s.revalidate(cmd.Goal) {
			p.SoftCancel()
		}
		p.SetGoalAndPath(cmd.Goal)
	case RevalidateGoalAndPath:
		if s.opts.CancelOnGoalInvalidation && (cmd.Goal == nil || s.revalidate(cmd.Goal)) {
			p.SoftCancel()
		}
		p.SetGoalAndPath(cmd.Goal)
	}
}

// revalidate reports that the new goal no longer wants where the current path ends, while
// the goal it was planned for did.
func (s *Scheduler) revalidate(g goals.Goal) bool {
	planned, dest, ok := s.pather.CurrentPath()
	if !ok {
		return false
	}
	return goals.Contains(planned, dest) && !goals.Contains(g, dest)
}

// forceRevalidate reports any change of goal, unless the new goal still contains the end of
// the current path.
func (s *Scheduler) forceRevalidate(g goals.Goal) bool {
	planned, dest, ok := s.pather.CurrentPath()
	if !ok {
		return false
	}
	if goals.Contains(g, dest) {
		return false
	}
	return !goals.Equal(g, planned)
}

func (s *Scheduler) resolve() (*Command, error) {
	s.inControlThisTick = nil
	for _, p := range s.processes {
		idx := indexOf(s.active, p)
		switch {
		case p.IsActive() && idx < 0:
			s.active = append([]Process{p}, s.active...)
		case !p.IsActive() && idx >= 0:
			s.active = append(s.active[:idx], s.active[idx+1:]...)
		}
	}
	sort.SliceStable(s.active, func(i, j int) bool {
		return s.active[i].Priority() > s.active[j].Priority()
	})

	calcFailed := s.pather.CalcFailedLastTick()
	safe := s.pather.SafeToCancel()
	for i, p := range s.active {
		cmd := p.OnTick(p == s.inControlLastTick && calcFailed, safe)
		if cmd == nil {
			if p.IsActive() {
				return nil, &ContractError{Process: p.DisplayName(), Reason: "returned a nil command while active", Culprit: p}
			}
			continue
		}
		if cmd.Type == Defer {
			continue
		}
		s.inControlThisTick = p
		if !p.IsTemporary() {
			for _, q := range s.active[i+1:] {
				if !q.IsTemporary() {
					q.OnLostControl()
				}
			}
		}
		return cmd, nil
	}
	return nil, nil
}

func indexOf(ps []Process, p Process) int {
	for i, q := range ps {
		if q == p {
			return i
		}
	}
	return -1
}

func name(p Process) string {
	if p == nil {
		return "none"
	}
	return p.DisplayName()
}
