package tuning

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed settings.schema.json
var settingsSchemaJSON []byte

// Settings are the tunables consumed by cost evaluation, movement execution and the
// process scheduler. A Settings value is copied into every cost context and never
// mutated afterwards.
type Settings struct {
	AllowBreak         bool     `yaml:"allow_break" json:"allow_break"`
	AllowBreakAnyway   []string `yaml:"allow_break_anyway" json:"allow_break_anyway,omitempty"`
	AllowPlace         bool     `yaml:"allow_place" json:"allow_place"`
	AllowSprint        bool     `yaml:"allow_sprint" json:"allow_sprint"`
	AllowParkour       bool     `yaml:"allow_parkour" json:"allow_parkour"`
	AllowParkourAscend bool     `yaml:"allow_parkour_ascend" json:"allow_parkour_ascend"`

	AllowDiagonalDescend  bool `yaml:"allow_diagonal_descend" json:"allow_diagonal_descend"`
	AllowDiagonalAscend   bool `yaml:"allow_diagonal_ascend" json:"allow_diagonal_ascend"`
	AllowDownward         bool `yaml:"allow_downward" json:"allow_downward"`
	AllowWalkOnBottomSlab bool `yaml:"allow_walk_on_bottom_slab" json:"allow_walk_on_bottom_slab"`

	AssumeWalkOnWater bool `yaml:"assume_walk_on_water" json:"assume_walk_on_water"`
	AssumeWalkOnLava  bool `yaml:"assume_walk_on_lava" json:"assume_walk_on_lava"`
	AllowFallIntoLava bool `yaml:"allow_fall_into_lava" json:"allow_fall_into_lava"`

	AvoidBreakingNearLiquid     bool `yaml:"avoid_breaking_near_liquid" json:"avoid_breaking_near_liquid"`
	AvoidUpdatingFallingBlocks  bool `yaml:"avoid_updating_falling_blocks" json:"avoid_updating_falling_blocks"`
	PauseMiningForFallingBlocks bool `yaml:"pause_mining_for_falling_blocks" json:"pause_mining_for_falling_blocks"`

	BreakPenaltyMultiplier   float64 `yaml:"break_penalty_multiplier" json:"break_penalty_multiplier"`
	BlockBreakAdditionalCost float64 `yaml:"block_break_additional_cost" json:"block_break_additional_cost"`
	BlockPlacementPenalty    float64 `yaml:"block_placement_penalty" json:"block_placement_penalty"`
	JumpPenalty              float64 `yaml:"jump_penalty" json:"jump_penalty"`
	WalkOnWaterOnePenalty    float64 `yaml:"walk_on_water_one_penalty" json:"walk_on_water_one_penalty"`

	MaxFallHeightNoWater int `yaml:"max_fall_height_no_water" json:"max_fall_height_no_water"`
	MaxFallHeightBucket  int `yaml:"max_fall_height_bucket" json:"max_fall_height_bucket"`

	BlocksToAvoid            []string `yaml:"blocks_to_avoid" json:"blocks_to_avoid,omitempty"`
	BlocksToDisallowBreaking []string `yaml:"blocks_to_disallow_breaking" json:"blocks_to_disallow_breaking,omitempty"`

	CostHeuristic      float64 `yaml:"cost_heuristic" json:"cost_heuristic"`
	BlockReachDistance float64 `yaml:"block_reach_distance" json:"block_reach_distance"`

	CancelOnGoalInvalidation bool `yaml:"cancel_on_goal_invalidation" json:"cancel_on_goal_invalidation"`

	MaxPathNodes     int `yaml:"max_path_nodes" json:"max_path_nodes"`
	PrimaryTimeoutMs int `yaml:"primary_timeout_ms" json:"primary_timeout_ms"`
}

func Defaults() Settings {
	return Settings{
		AllowBreak:         true,
		AllowPlace:         true,
		AllowSprint:        true,
		AllowParkour:       true,
		AllowParkourAscend: true,
		AllowDownward:      true,

		AllowWalkOnBottomSlab: true,

		AvoidBreakingNearLiquid:     true,
		AvoidUpdatingFallingBlocks:  true,
		PauseMiningForFallingBlocks: true,

		BreakPenaltyMultiplier:   1,
		BlockBreakAdditionalCost: 2,
		BlockPlacementPenalty:    20,
		JumpPenalty:              2,
		WalkOnWaterOnePenalty:    3,

		MaxFallHeightNoWater: 3,
		MaxFallHeightBucket:  20,

		CostHeuristic:      3.563,
		BlockReachDistance: 4.5,

		CancelOnGoalInvalidation: true,

		MaxPathNodes:     200000,
		PrimaryTimeoutMs: 500,
	}
}

// Normalize trims block names and fills zero budgets with defaults.
func (s *Settings) Normalize() {
	s.AllowBreakAnyway = normalizeNames(s.AllowBreakAnyway)
	s.BlocksToAvoid = normalizeNames(s.BlocksToAvoid)
	s.BlocksToDisallowBreaking = normalizeNames(s.BlocksToDisallowBreaking)
	def := Defaults()
	if s.MaxPathNodes <= 0 {
		s.MaxPathNodes = def.MaxPathNodes
	}
	if s.PrimaryTimeoutMs <= 0 {
		s.PrimaryTimeoutMs = def.PrimaryTimeoutMs
	}
	if s.BlockReachDistance <= 0 {
		s.BlockReachDistance = def.BlockReachDistance
	}
}

func (s Settings) Validate() error {
	if s.BreakPenaltyMultiplier < 1 {
		return fmt.Errorf("break_penalty_multiplier must be >= 1 (got %v)", s.BreakPenaltyMultiplier)
	}
	if s.BlockBreakAdditionalCost < 0 || s.BlockPlacementPenalty < 0 || s.JumpPenalty < 0 || s.WalkOnWaterOnePenalty < 0 {
		return fmt.Errorf("penalties must be >= 0")
	}
	if s.MaxFallHeightNoWater < 0 || s.MaxFallHeightBucket < s.MaxFallHeightNoWater {
		return fmt.Errorf("invalid fall heights: no_water=%d bucket=%d", s.MaxFallHeightNoWater, s.MaxFallHeightBucket)
	}
	if s.CostHeuristic <= 0 {
		return fmt.Errorf("cost_heuristic must be > 0")
	}
	return nil
}

// Load reads a YAML settings file. Keys missing from the file keep their default values.
func Load(path string) (Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Defaults(), err
	}
	return Parse(raw)
}

func Parse(raw []byte) (Settings, error) {
	s := Defaults()
	if err := validateDoc(raw); err != nil {
		return s, fmt.Errorf("settings.yaml: %w", err)
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("settings.yaml: %w", err)
	}
	s.Normalize()
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("settings.yaml: %w", err)
	}
	return s, nil
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// validateDoc checks the raw YAML against the embedded JSON schema. The document is
// round-tripped through encoding/json so numbers reach the validator as float64.
func validateDoc(raw []byte) error {
	schemaOnce.Do(func() {
		comp := jsonschema.NewCompiler()
		if err := comp.AddResource("settings.schema.json", bytes.NewReader(settingsSchemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = comp.Compile("settings.schema.json")
	})
	if schemaErr != nil {
		return schemaErr
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var jdoc any
	if err := json.Unmarshal(b, &jdoc); err != nil {
		return err
	}
	return schema.Validate(jdoc)
}

func normalizeNames(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, n := range in {
		n = strings.ToUpper(strings.TrimSpace(n))
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}
