package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/server/internal/combat"
)

// DropItem is one weighted possible drop from an NPC kill (spec.md
// §4.8 "NPC death drop-table resolution").
type DropItem struct {
	ItemNum  uint32 `yaml:"item_num"`
	ItemVal  uint16 `yaml:"item_val"`
	MinCount uint16 `yaml:"min_count"`
	MaxCount uint16 `yaml:"max_count"`
	Chance   int32  `yaml:"chance"` // out of RollSpace (100,000)
}

type mobDropEntry struct {
	NpcID int32      `yaml:"npc_id"`
	Items []DropItem `yaml:"items"`
}

type dropListFile struct {
	Drops []mobDropEntry `yaml:"drops"`
}

// RollSpace is the roll denominator every DropItem.Chance is out of,
// matching combat.RollDrops' "d100000-style roll space".
const RollSpace = 100_000

// DropTable holds every NPC's drop list indexed by template ID.
type DropTable struct {
	drops map[int32][]DropItem
}

// LoadDropTable loads NPC drop data from a YAML file.
func LoadDropTable(path string) (*DropTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read drop list %s: %w", path, err)
	}
	var f dropListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse drop list: %w", err)
	}
	t := &DropTable{drops: make(map[int32][]DropItem, len(f.Drops))}
	for _, entry := range f.Drops {
		t.drops[entry.NpcID] = entry.Items
	}
	return t, nil
}

func (t *DropTable) Count() int { return len(t.drops) }

// For renders one NPC's drop list into combat.DropRange entries ready
// for combat.RollDrops: each item gets its own independent [0, Chance)
// roll window, since drop rolls are independent of one another, not
// cumulative slices of one shared roll space.
func (t *DropTable) For(npcID int32) []combat.DropRange {
	items := t.drops[npcID]
	if len(items) == 0 {
		return nil
	}
	out := make([]combat.DropRange, len(items))
	for i, it := range items {
		out[i] = combat.DropRange{
			Min: 0, Max: it.Chance,
			ItemNum:  it.ItemNum,
			ItemVal:  it.ItemVal,
			MinCount: it.MinCount,
			MaxCount: it.MaxCount,
		}
	}
	return out
}
