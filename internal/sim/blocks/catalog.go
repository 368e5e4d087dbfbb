package blocks

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed blocks.json
var defaultBlocksJSON []byte

//go:embed blocks.schema.json
var blocksSchemaJSON []byte

// Kind is a palette index into a Catalog. AIR is always 0.
type Kind uint16

// Unknown is returned for cells that are out of bounds or not loaded. It behaves like air.
const Unknown Kind = 0xFFFF

const Air Kind = 0

type Class string

const (
	ClassAir         Class = "air"
	ClassSolid       Class = "solid"
	ClassWater       Class = "water"
	ClassLava        Class = "lava"
	ClassDoor        Class = "door"
	ClassIronDoor    Class = "iron_door"
	ClassGate        Class = "gate"
	ClassSlab        Class = "slab"
	ClassSnow        Class = "snow"
	ClassCarpet      Class = "carpet"
	ClassLadder      Class = "ladder"
	ClassVine        Class = "vine"
	ClassScaffolding Class = "scaffolding"
	ClassGlass       Class = "glass"
	ClassStairs      Class = "stairs"
	ClassChest       Class = "chest"
	ClassFarmland    Class = "farmland"
	ClassSoulSand    Class = "soul_sand"
	ClassMagma       Class = "magma"
	ClassCactus      Class = "cactus"
	ClassFire        Class = "fire"
	ClassWeb         Class = "web"
	ClassLilyPad     Class = "lily_pad"
	ClassIce         Class = "ice"
	ClassInfested    Class = "infested"
	ClassPlant       Class = "plant"
	ClassTorch       Class = "torch"
	ClassTrapdoor    Class = "trapdoor"
)

type Def struct {
	ID        string  `json:"id"`
	Class     Class   `json:"class"`
	Hardness  float64 `json:"hardness"` // -1 = unbreakable
	Tool      string  `json:"tool,omitempty"`
	NeedsTool bool    `json:"needs_tool,omitempty"`
	Falling   bool    `json:"falling,omitempty"`
	Throwaway bool    `json:"throwaway,omitempty"`
}

// FullCube reports whether the block occupies its whole voxel and can be stood on,
// placed against and mined like ordinary terrain.
func (d *Def) FullCube() bool {
	switch d.Class {
	case ClassSolid, ClassSoulSand, ClassMagma, ClassIce, ClassInfested, ClassFarmland:
		return true
	}
	return false
}

func (d *Def) Liquid() bool { return d.Class == ClassWater || d.Class == ClassLava }

func (d *Def) Climbable() bool { return d.Class == ClassLadder || d.Class == ClassVine }

type Catalog struct {
	Palette []string
	Index   map[string]Kind
	Defs    []Def
	Digest  string
}

var unknownDef = Def{ID: "UNKNOWN", Class: ClassAir}

// Def returns the definition for a kind. Unknown and out-of-range kinds are air-like.
func (c *Catalog) Def(k Kind) *Def {
	if int(k) >= len(c.Defs) {
		return &unknownDef
	}
	return &c.Defs[k]
}

func (c *Catalog) Kind(name string) (Kind, bool) {
	k, ok := c.Index[name]
	return k, ok
}

// MustKind is for fixtures and generators that name well-known blocks.
func (c *Catalog) MustKind(name string) Kind {
	k, ok := c.Index[name]
	if !ok {
		panic(fmt.Sprintf("blocks: unknown kind %q", name))
	}
	return k
}

func (c *Catalog) Name(k Kind) string { return c.Def(k).ID }

// Kinds resolves a list of names, reporting the first unknown one.
func (c *Catalog) Kinds(names []string) (map[Kind]bool, error) {
	out := make(map[Kind]bool, len(names))
	for _, n := range names {
		k, ok := c.Index[n]
		if !ok {
			return nil, fmt.Errorf("unknown block %q", n)
		}
		out[k] = true
	}
	return out, nil
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the embedded catalog.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(defaultBlocksJSON)
		if err != nil {
			panic(fmt.Sprintf("blocks: embedded catalog: %v", err))
		}
		defaultCat = c
	})
	return defaultCat
}

func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	if err := validate(raw); err != nil {
		return nil, fmt.Errorf("blocks.json: %w", err)
	}
	var defs []Def
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("blocks.json: %w", err)
	}
	byID := make(map[string]Def, len(defs))
	for _, d := range defs {
		if _, dup := byID[d.ID]; dup {
			return nil, fmt.Errorf("blocks.json: duplicate id %s", d.ID)
		}
		byID[d.ID] = d
	}
	air, ok := byID["AIR"]
	if !ok {
		return nil, fmt.Errorf("blocks.json: missing AIR")
	}
	if air.Class != ClassAir {
		return nil, fmt.Errorf("blocks.json: AIR must have class air")
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		if id != "AIR" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	ids = append([]string{"AIR"}, ids...)
	if len(ids) >= int(Unknown) {
		return nil, fmt.Errorf("blocks.json: too many kinds (%d)", len(ids))
	}

	c := &Catalog{
		Palette: ids,
		Index:   make(map[string]Kind, len(ids)),
		Defs:    make([]Def, len(ids)),
	}
	for i, id := range ids {
		c.Index[id] = Kind(i)
		c.Defs[i] = byID[id]
	}
	sum := sha256.Sum256(raw)
	c.Digest = hex.EncodeToString(sum[:])
	return c, nil
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func validate(raw []byte) error {
	schemaOnce.Do(func() {
		comp := jsonschema.NewCompiler()
		if err := comp.AddResource("blocks.schema.json", bytes.NewReader(blocksSchemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = comp.Compile("blocks.schema.json")
	})
	if schemaErr != nil {
		return schemaErr
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return schema.Validate(doc)
}
