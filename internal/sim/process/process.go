package process

// Process is one behavior competing for control. OnTick is only called while IsActive
// reports true, and must then return a non-nil command.
type Process interface {
	IsActive() bool
	// OnTick is asked for a command. calcFailed reports that this process was in control
	// last tick and the search it asked for failed. safeToCancel reports whether the
	// movement in flight may be abandoned now.
	OnTick(calcFailed, safeToCancel bool) *Command
	// IsTemporary processes take control briefly, so winning does not evict the others.
	IsTemporary() bool
	// OnLostControl is called when a higher priority process took control.
	OnLostControl()
	Priority() float64
	DisplayName() string
}
