package geom

type Direction uint8

const (
	North Direction = iota // -Z
	South                  // +Z
	East                   // +X
	West                   // -X
	Up
	Down
)

var directionOffsets = [...]Pos{
	North: {Z: -1},
	South: {Z: 1},
	East:  {X: 1},
	West:  {X: -1},
	Up:    {Y: 1},
	Down:  {Y: -1},
}

var directionNames = [...]string{"north", "south", "east", "west", "up", "down"}

// Horizontals lists the four lateral directions in a fixed order.
var Horizontals = [4]Direction{North, South, East, West}

// HorizontalsAndDown is every face except the top one, used when looking for a block to
// place against.
var HorizontalsAndDown = [5]Direction{North, South, East, West, Down}

// AllDirections lists every face of a voxel.
var AllDirections = [6]Direction{Down, Up, North, South, East, West}

func (d Direction) Offset() Pos { return directionOffsets[d] }

func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	case Up:
		return Down
	default:
		return Up
	}
}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return "invalid"
}

// DirectionTo returns the horizontal direction matching a unit step, and false when the step
// is not a single lateral offset.
func DirectionTo(dx, dz int) (Direction, bool) {
	switch {
	case dx == 0 && dz == -1:
		return North, true
	case dx == 0 && dz == 1:
		return South, true
	case dx == 1 && dz == 0:
		return East, true
	case dx == -1 && dz == 0:
		return West, true
	}
	return 0, false
}
