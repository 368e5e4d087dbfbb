package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseKeepsDefaultsForMissingKeys(t *testing.T) {
	s, err := Parse([]byte("allow_parkour: false\nbreak_penalty_multiplier: 2.5\nblocks_to_avoid: [' cactus ']\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.AllowParkour {
		t.Fatalf("allow_parkour should be false")
	}
	if s.BreakPenaltyMultiplier != 2.5 {
		t.Fatalf("break_penalty_multiplier=%v", s.BreakPenaltyMultiplier)
	}
	if !s.AllowBreak || s.JumpPenalty != 2 {
		t.Fatalf("defaults lost: %+v", s)
	}
	if len(s.BlocksToAvoid) != 1 || s.BlocksToAvoid[0] != "CACTUS" {
		t.Fatalf("blocks_to_avoid=%v", s.BlocksToAvoid)
	}
}

func TestParseRejectsUnknownAndInvalid(t *testing.T) {
	for _, raw := range []string{
		"allow_flying: true\n",
		"break_penalty_multiplier: 0.5\n",
		"jump_penalty: -1\n",
		"max_fall_height_no_water: 10\nmax_fall_height_bucket: 4\n",
		"allow_break: yes please\n",
	} {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestEmptyDocumentIsDefaults(t *testing.T) {
	s, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil): %v", err)
	}
	def := Defaults()
	if s.CostHeuristic != def.CostHeuristic || s.MaxPathNodes != def.MaxPathNodes {
		t.Fatalf("got %+v", s)
	}
}

func TestLoadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(p, []byte("allow_place: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.AllowPlace {
		t.Fatalf("allow_place should be false")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist, got %v", err)
	}
}
