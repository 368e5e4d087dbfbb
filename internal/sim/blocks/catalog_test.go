package blocks

import "testing"

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	if c.Palette[0] != "AIR" {
		t.Fatalf("palette[0]=%s", c.Palette[0])
	}
	if c.Def(Air).Class != ClassAir {
		t.Fatalf("AIR class=%s", c.Def(Air).Class)
	}
	stone := c.MustKind("STONE")
	if !c.Def(stone).FullCube() || !c.Def(stone).NeedsTool {
		t.Fatalf("stone def mismatch: %+v", c.Def(stone))
	}
	if c.Def(Unknown).Class != ClassAir {
		t.Fatalf("unknown must be air-like")
	}
	if !c.Def(c.MustKind("SAND")).Falling {
		t.Fatalf("sand should fall")
	}
	if c.Digest == "" {
		t.Fatalf("missing digest")
	}
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	bad := map[string]string{
		"no air":    `[{"id":"STONE","class":"solid","hardness":1}]`,
		"bad class": `[{"id":"AIR","class":"air","hardness":0},{"id":"X","class":"goo","hardness":1}]`,
		"dup":       `[{"id":"AIR","class":"air","hardness":0},{"id":"X","class":"solid","hardness":1},{"id":"X","class":"solid","hardness":1}]`,
		"lowercase": `[{"id":"AIR","class":"air","hardness":0},{"id":"stone","class":"solid","hardness":1}]`,
		"extra":     `[{"id":"AIR","class":"air","hardness":0,"color":"blue"}]`,
	}
	for name, raw := range bad {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestKindsResolvesNames(t *testing.T) {
	c := Default()
	set, err := c.Kinds([]string{"DIRT", "GLASS"})
	if err != nil || len(set) != 2 || !set[c.MustKind("DIRT")] {
		t.Fatalf("Kinds=%v err=%v", set, err)
	}
	if _, err := c.Kinds([]string{"NOPE"}); err == nil {
		t.Fatalf("expected unknown block error")
	}
}
