// Package process arbitrates between behaviors that want to steer the agent.
package process

import (
	"fmt"

	"voxelmotion.ai/internal/sim/goals"
)

type CommandType uint8

const (
	// RequestPause freezes execution in place without cancelling or replanning.
	RequestPause CommandType = iota
	// CancelAndSetGoal replaces the goal and soft cancels the current route.
	CancelAndSetGoal
	// SetGoalAndPath plans toward the goal only when nothing is executing or planning.
	SetGoalAndPath
	// RevalidateGoalAndPath keeps the current route while the new goal still contains its
	// end.
	RevalidateGoalAndPath
	// ForceRevalidateGoalAndPath also drops the route when the goal changed at all.
	ForceRevalidateGoalAndPath
	// Defer passes the decision to the next process.
	Defer
)

var commandNames = [...]string{
	RequestPause:               "request_pause",
	CancelAndSetGoal:           "cancel_and_set_goal",
	SetGoalAndPath:             "set_goal_and_path",
	RevalidateGoalAndPath:      "revalidate_goal_and_path",
	ForceRevalidateGoalAndPath: "force_revalidate_goal_and_path",
	Defer:                      "defer",
}

func (t CommandType) String() string {
	if int(t) < len(commandNames) {
		return commandNames[t]
	}
	return fmt.Sprintf("command(%d)", t)
}

// Command is what a process wants this tick.
type Command struct {
	Goal goals.Goal
	Type CommandType
}

func NewCommand(g goals.Goal, t CommandType) *Command { return &Command{Goal: g, Type: t} }

// Deferred is the shared "nothing to say" command.
func Deferred() *Command { return &Command{Type: Defer} }

func (c *Command) String() string {
	if c == nil {
		return "<nil>"
	}
	if c.Goal == nil {
		return c.Type.String()
	}
	return c.Type.String() + " " + c.Goal.String()
}
