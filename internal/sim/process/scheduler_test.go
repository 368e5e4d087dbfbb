package process

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/goals"
)

type fakeProc struct {
	name      string
	priority  float64
	active    bool
	temporary bool
	cmd       *Command

	ticks      int
	lost       int
	calcFailed []bool
}

func (f *fakeProc) IsActive() bool { return f.active }

func (f *fakeProc) OnTick(calcFailed, _ bool) *Command {
	f.ticks++
	f.calcFailed = append(f.calcFailed, calcFailed)
	return f.cmd
}

func (f *fakeProc) IsTemporary() bool   { return f.temporary }
func (f *fakeProc) OnLostControl()      { f.lost++ }
func (f *fakeProc) Priority() float64   { return f.priority }
func (f *fakeProc) DisplayName() string { return f.name }

type fakePather struct {
	goal        goals.Goal
	pathing     bool
	inProgress  bool
	calcFailed  bool
	safe        bool
	pathGoal    goals.Goal
	pathDest    geom.Pos
	calls       []string
	softCancels int
}

func newFakePather() *fakePather { return &fakePather{safe: true} }

func (f *fakePather) Goal() goals.Goal     { return f.goal }
func (f *fakePather) SetGoal(g goals.Goal) { f.goal = g; f.calls = append(f.calls, "set_goal") }
func (f *fakePather) SetGoalAndPath(g goals.Goal) bool {
	f.goal = g
	f.calls = append(f.calls, "set_goal_and_path")
	return true
}
func (f *fakePather) RequestPause()            { f.calls = append(f.calls, "pause") }
func (f *fakePather) SoftCancel()              { f.softCancels++; f.calls = append(f.calls, "soft_cancel") }
func (f *fakePather) ForceCancel()             { f.calls = append(f.calls, "force_cancel") }
func (f *fakePather) IsPathing() bool          { return f.pathing }
func (f *fakePather) InProgress() bool         { return f.inProgress }
func (f *fakePather) CalcFailedLastTick() bool { return f.calcFailed }
func (f *fakePather) SafeToCancel() bool       { return f.safe }
func (f *fakePather) CurrentPath() (goals.Goal, geom.Pos, bool) {
	return f.pathGoal, f.pathDest, f.pathing
}

func register(t *testing.T, s *Scheduler, ps ...Process) {
	t.Helper()
	for _, p := range ps {
		require.NoError(t, s.Register(p))
	}
}

func TestHigherPriorityWins(t *testing.T) {
	low := &fakeProc{name: "low", priority: 1, active: true, cmd: NewCommand(goals.YLevel{Y: 1}, SetGoalAndPath)}
	high := &fakeProc{name: "high", priority: 10, active: true, cmd: NewCommand(goals.YLevel{Y: 10}, SetGoalAndPath)}
	s := NewScheduler(newFakePather(), Options{})
	register(t, s, low, high)

	require.NoError(t, s.PreTick())
	winner, ok := s.MostRecentInControl()
	require.True(t, ok)
	assert.Same(t, high, winner)
	cmd, _ := s.MostRecentCommand()
	assert.Equal(t, goals.YLevel{Y: 10}, cmd.Goal)
	assert.Equal(t, 1, low.lost, "the loser is told it lost control")
	assert.Zero(t, low.ticks, "nobody below the winner is asked")
}

func TestResolutionIsDeterministic(t *testing.T) {
	run := func() []string {
		ps := []*fakeProc{
			{name: "a", priority: 3, active: true, cmd: Deferred()},
			{name: "b", priority: 3, active: true, cmd: NewCommand(goals.YLevel{Y: 2}, SetGoalAndPath)},
			{name: "c", priority: 3, active: true, cmd: NewCommand(goals.YLevel{Y: 3}, SetGoalAndPath)},
			{name: "d", priority: 7, active: false, cmd: NewCommand(goals.YLevel{Y: 4}, SetGoalAndPath)},
		}
		s := NewScheduler(newFakePather(), Options{})
		for _, p := range ps {
			require.NoError(t, s.Register(p))
		}
		var winners []string
		for tick := 0; tick < 6; tick++ {
			ps[3].active = tick >= 3
			require.NoError(t, s.PreTick())
			w, _ := s.MostRecentInControl()
			winners = append(winners, name(w))
			s.PostTick()
		}
		return winners
	}
	first := run()
	assert.Equal(t, first, run())
	// ties keep the order in which processes became active: the most recent first
	assert.Equal(t, []string{"c", "c", "c", "d", "d", "d"}, first)
}

func TestNewlyActiveProcessesGoFirstAmongEqualPriorities(t *testing.T) {
	a := &fakeProc{name: "a", priority: 1, active: true, cmd: NewCommand(goals.YLevel{Y: 1}, SetGoalAndPath)}
	b := &fakeProc{name: "b", priority: 1, active: false, cmd: NewCommand(goals.YLevel{Y: 2}, SetGoalAndPath)}
	s := NewScheduler(newFakePather(), Options{})
	register(t, s, a, b)

	require.NoError(t, s.PreTick())
	w, _ := s.MostRecentInControl()
	assert.Same(t, a, w)

	b.active = true
	require.NoError(t, s.PreTick())
	w, _ = s.MostRecentInControl()
	assert.Same(t, b, w)
}

func TestTemporaryWinnerDoesNotEvict(t *testing.T) {
	// P1 wants a path, P2 asks for a pause below it: P1 wins and the temporary P2 is left
	// alone.
	p1 := &fakeProc{name: "p1", priority: 5, active: true, cmd: NewCommand(goals.YLevel{Y: 5}, SetGoalAndPath)}
	p2 := &fakeProc{name: "p2", priority: 1, active: true, temporary: true, cmd: NewCommand(nil, RequestPause)}
	pather := newFakePather()
	s := NewScheduler(pather, Options{})
	register(t, s, p1, p2)

	require.NoError(t, s.PreTick())
	w, _ := s.MostRecentInControl()
	assert.Same(t, p1, w)
	assert.Zero(t, p2.lost)
	assert.Contains(t, pather.calls, "set_goal_and_path")

	// a temporary pause on top keeps the persistent controller's state
	pause := &fakeProc{name: "pause", priority: 10, active: true, temporary: true, cmd: NewCommand(nil, RequestPause)}
	register(t, s, pause)
	pather.calls = nil
	require.NoError(t, s.PreTick())
	w, _ = s.MostRecentInControl()
	assert.Same(t, pause, w)
	assert.Zero(t, p1.lost)
	assert.Equal(t, []string{"pause"}, pather.calls)
}

func TestNothingInControlSoftCancels(t *testing.T) {
	p := &fakeProc{name: "p", priority: 1, active: true, cmd: Deferred()}
	pather := newFakePather()
	pather.goal = goals.YLevel{Y: 3}
	s := NewScheduler(pather, Options{})
	register(t, s, p)

	require.NoError(t, s.PreTick())
	_, ok := s.MostRecentInControl()
	assert.False(t, ok)
	assert.Equal(t, []string{"soft_cancel", "set_goal"}, pather.calls)
	assert.Nil(t, pather.goal)
}

func TestNilCommandFromActiveProcessIsContractError(t *testing.T) {
	bad := &fakeProc{name: "bad", priority: 1, active: true, cmd: nil}
	s := NewScheduler(newFakePather(), Options{})
	register(t, s, bad)

	err := s.PreTick()
	var ce *ContractError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "bad", ce.Process)
	assert.Same(t, bad, ce.Culprit)

	require.True(t, errors.As(s.Register(bad), &ce))
	assert.Equal(t, "registered twice", ce.Reason)
}

func TestUnregisteredProcessLosesControl(t *testing.T) {
	bad := &fakeProc{name: "bad", priority: 2, active: true, cmd: nil}
	good := &fakeProc{name: "good", priority: 1, active: true, cmd: &Command{Type: SetGoalAndPath, Goal: goals.NewBlock(geom.P(3, 1, 0))}}
	pather := newFakePather()
	s := NewScheduler(pather, Options{})
	register(t, s, bad, good)

	var ce *ContractError
	require.ErrorAs(t, s.PreTick(), &ce)
	require.True(t, s.Unregister(ce.Culprit))
	assert.False(t, s.Unregister(ce.Culprit))
	assert.Equal(t, 1, bad.lost)

	require.NoError(t, s.PreTick())
	p, ok := s.MostRecentInControl()
	require.True(t, ok)
	assert.Equal(t, "good", p.DisplayName())
	assert.Len(t, s.Processes(), 1)
}

func TestCalcFailedGoesOnlyToLastController(t *testing.T) {
	a := &fakeProc{name: "a", priority: 2, active: true, cmd: Deferred()}
	b := &fakeProc{name: "b", priority: 1, active: true, cmd: NewCommand(goals.YLevel{Y: 1}, SetGoalAndPath)}
	pather := newFakePather()
	s := NewScheduler(pather, Options{})
	register(t, s, a, b)

	require.NoError(t, s.PreTick())
	pather.calcFailed = true
	require.NoError(t, s.PreTick())
	assert.Equal(t, []bool{false, false}, a.calcFailed)
	assert.Equal(t, []bool{false, true}, b.calcFailed)
}

func TestRevalidateCancelsOnlyWhenGoalStopsContainingDest(t *testing.T) {
	pather := newFakePather()
	pather.pathing = true
	pather.pathGoal = goals.NewBlock(geom.P(5, 1, 0))
	pather.pathDest = geom.P(5, 1, 0)
	p := &fakeProc{name: "p", priority: 1, active: true}
	s := NewScheduler(pather, Options{CancelOnGoalInvalidation: true})
	register(t, s, p)

	p.cmd = NewCommand(goals.Near{Pos: geom.P(6, 1, 0), Range: 2}, RevalidateGoalAndPath)
	require.NoError(t, s.PreTick())
	s.PostTick()
	assert.Zero(t, pather.softCancels, "the new goal still contains the path end")

	p.cmd = NewCommand(goals.NewBlock(geom.P(-5, 1, 0)), RevalidateGoalAndPath)
	require.NoError(t, s.PreTick())
	s.PostTick()
	assert.Equal(t, 1, pather.softCancels)

	p.cmd = NewCommand(goals.Near{Pos: geom.P(6, 1, 0), Range: 2}, ForceRevalidateGoalAndPath)
	require.NoError(t, s.PreTick())
	s.PostTick()
	assert.Equal(t, 1, pather.softCancels, "force revalidate keeps a path whose end is still wanted")

	pather.pathDest = geom.P(0, 1, 0)
	pather.pathGoal = goals.XZ{X: 0, Z: 0}
	p.cmd = NewCommand(goals.XZ{X: 9, Z: 9}, ForceRevalidateGoalAndPath)
	require.NoError(t, s.PreTick())
	s.PostTick()
	assert.Equal(t, 2, pather.softCancels)
}

func TestCancelEverything(t *testing.T) {
	a := &fakeProc{name: "a", priority: 1, active: true, cmd: NewCommand(goals.YLevel{Y: 1}, SetGoalAndPath)}
	pather := newFakePather()
	s := NewScheduler(pather, Options{})
	register(t, s, a)
	require.NoError(t, s.PreTick())

	s.CancelEverything()
	assert.Equal(t, 1, a.lost)
	assert.Contains(t, pather.calls, "force_cancel")
	_, ok := s.MostRecentInControl()
	assert.False(t, ok)
}
