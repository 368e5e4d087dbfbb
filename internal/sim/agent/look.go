package agent

import "voxelmotion.ai/internal/sim/geom"

// Look collects the rotation wanted for the next body tick. Another system may insist on
// the look direction, in which case movements only turn the head when they must.
type Look struct {
	target geom.Rotation
	set    bool
	force  bool
	owner  string
}

func (l *Look) UpdateTarget(r geom.Rotation, force bool) {
	l.target, l.set, l.force = r, true, force
}

func (l *Look) Insisting() bool { return l.owner != "" }

// Insist claims the look direction for owner until Release.
func (l *Look) Insist(owner string, r geom.Rotation) {
	l.owner = owner
	l.target, l.set = r, true
}

func (l *Look) Release() { l.owner = "" }

func (l *Look) Owner() string { return l.owner }

// Target is the pending rotation, if any.
func (l *Look) Target() (geom.Rotation, bool, bool) { return l.target, l.set, l.force }

// apply returns the rotation the body should take this tick and clears a movement's
// target. The rotation is wrapped so the head never turns the long way round.
func (l *Look) apply(current geom.Rotation) geom.Rotation {
	if !l.set {
		return current
	}
	r := geom.WrapRelative(current, l.target).Clamp()
	if l.owner == "" {
		l.set, l.force = false, false
	}
	return r
}
