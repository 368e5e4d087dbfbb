// Package observerproto is the JSON protocol spoken to debug viewers watching an agent.
package observerproto

// Version is the observer protocol version.
const Version = "0.2"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeTick      = "TICK"
	TypeSegment   = "SEGMENT"
)

// SubscribeMsg is the first client message on the observer connection.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// Every sends one TICK message per this many ticks. 0 or 1 sends all of them.
	Every int `json:"every,omitempty"`
	// Path includes the remaining path and its block lists in TICK messages.
	Path bool `json:"path,omitempty"`
}

// BootstrapResponse is served at GET /observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string   `json:"protocol_version"`
	RunID           string   `json:"run_id"`
	Tick            uint64   `json:"tick"`
	TickRateHz      int      `json:"tick_rate_hz"`
	Height          int      `json:"height"`
	Seed            int64    `json:"seed"`
	Spawn           [3]int   `json:"spawn"`
	BlockPalette    []string `json:"block_palette"`
	Processes       []string `json:"processes"`
}

// TickMsg is sent after every agent tick.
type TickMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Tick            uint64     `json:"tick"`
	Agent           AgentState `json:"agent"`
	Path            *PathState `json:"path,omitempty"`
}

type AgentState struct {
	Feet       [3]int     `json:"feet"`
	Pos        [3]float64 `json:"pos"`
	Yaw        float64    `json:"yaw"`
	Pitch      float64    `json:"pitch"`
	OnGround   bool       `json:"on_ground"`
	Controller string     `json:"controller,omitempty"`
	Command    string     `json:"command,omitempty"`
	Goal       string     `json:"goal,omitempty"`
	Movement   string     `json:"movement,omitempty"`
	Status     string     `json:"status,omitempty"`
	Inputs     []string   `json:"inputs,omitempty"`
	Pathing    bool       `json:"pathing"`
	Halted     bool       `json:"halted,omitempty"`
}

// PathState is the part of the committed path not yet walked.
type PathState struct {
	Dest       [3]int   `json:"dest"`
	Remaining  [][3]int `json:"remaining"`
	ToBreak    [][3]int `json:"to_break,omitempty"`
	ToPlace    [][3]int `json:"to_place,omitempty"`
	ToWalkInto [][3]int `json:"to_walk_into,omitempty"`
}

// SegmentMsg reports a finished path segment.
type SegmentMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Start           [3]int `json:"start"`
	End             [3]int `json:"end"`
	Goal            string `json:"goal"`
	Movements       int    `json:"movements"`
	Completed       int    `json:"completed"`
	Outcome         string `json:"outcome"`
	Reason          string `json:"reason,omitempty"`
}
