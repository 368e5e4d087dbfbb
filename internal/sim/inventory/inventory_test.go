package inventory

import (
	"testing"

	"voxelmotion.ai/internal/sim/blocks"
)

func TestStrengthImprovesWithBetterTools(t *testing.T) {
	cat := blocks.Default()
	stone := blocks.S(cat.MustKind("STONE"))
	bare := NewToolSet(cat, nil).Strength(stone)
	wood := NewToolSet(cat, []Tool{{Name: "wooden_pickaxe", Class: "pickaxe", Speed: 2}}).Strength(stone)
	iron := NewToolSet(cat, []Tool{{Name: "wooden_pickaxe", Class: "pickaxe", Speed: 2}, {Name: "iron_pickaxe", Class: "pickaxe", Speed: 6}}).Strength(stone)
	if !(bare > 0 && bare < wood && wood < iron) {
		t.Fatalf("bare=%v wood=%v iron=%v", bare, wood, iron)
	}
	if want := 6.0 / 1.5 / 30; iron != want {
		t.Fatalf("iron strength=%v want %v", iron, want)
	}
}

func TestUnbreakableAndInstant(t *testing.T) {
	cat := blocks.Default()
	ts := NewToolSet(cat, nil)
	if s := ts.Strength(blocks.S(cat.MustKind("BEDROCK"))); s != 0 {
		t.Fatalf("bedrock strength=%v", s)
	}
	if s := ts.Strength(blocks.S(cat.MustKind("TALL_GRASS"))); s != 1 {
		t.Fatalf("tall grass strength=%v", s)
	}
	if s := ts.Strength(blocks.UnknownState); s != 0 {
		t.Fatalf("unknown strength=%v", s)
	}
}

func TestThrowawaySelection(t *testing.T) {
	cat := blocks.Default()
	inv := New()
	if _, ok := inv.Throwaway(cat); ok {
		t.Fatalf("empty inventory has no throwaway")
	}
	inv.AddBlocks(cat.MustKind("STONE"), 64) // not a throwaway kind
	inv.AddBlocks(cat.MustKind("DIRT"), 3)
	inv.AddBlocks(cat.MustKind("COBBLESTONE"), 5)
	k, ok := inv.Throwaway(cat)
	if !ok || k != cat.MustKind("COBBLESTONE") {
		t.Fatalf("throwaway=%v ok=%v", cat.Name(k), ok)
	}
	snap := inv.Snapshot(cat)
	if !snap.HasThrowaway || snap.Tools == nil {
		t.Fatalf("snapshot=%+v", snap)
	}
	for i := 0; i < 5; i++ {
		inv.Consume(k)
	}
	if inv.Consume(k) {
		t.Fatalf("consumed past zero")
	}
}
