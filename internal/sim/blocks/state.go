package blocks

// State is a block kind plus a small per-kind value:
//   - water/lava: 0 for a source, 1..7 for flowing levels
//   - snow: layer count 1..8
//   - slab: SlabBottom, SlabTop or SlabDouble
//   - door/gate/trapdoor: 1 when open
type State struct {
	Kind Kind
	Meta uint8
}

const (
	SlabBottom uint8 = 0
	SlabTop    uint8 = 1
	SlabDouble uint8 = 2
)

var (
	AirState     = State{Kind: Air}
	UnknownState = State{Kind: Unknown}
)

func S(k Kind) State { return State{Kind: k} }

func (s State) WithMeta(m uint8) State { return State{Kind: s.Kind, Meta: m} }
