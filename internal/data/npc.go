package data

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/server/internal/combat"
	"github.com/l1jgo/server/internal/geom"
	"github.com/l1jgo/server/internal/worldmap"
)

// NpcTemplate holds one NPC definition's static stats (data model §3
// "Static index into NPC definitions"). Trimmed from the teacher's
// NpcTemplate to the fields the NPC Stage Machine and combat formula
// actually consult — the teacher's Impl/Size/client-dialog fields
// named a scripted-content system out of scope (spec.md §1 Non-goals:
// "no content-authoring tools, no quest scripting VM").
type NpcTemplate struct {
	NpcID      int32   `yaml:"npc_id"`
	Name       string  `yaml:"name"`
	GfxID      int32   `yaml:"gfx_id"`
	Level      int32   `yaml:"level"`
	HP         int32   `yaml:"hp"`
	MP         int32   `yaml:"mp"`
	Damage     int32   `yaml:"damage"`
	Defense    int32   `yaml:"defense"`
	Aggressive bool    `yaml:"aggressive"`
	Sight      int32   `yaml:"sight"`
	Range      int32   `yaml:"range"`
	AtkWaitMS  int32   `yaml:"atk_wait_ms"`
	MaxShares  int32   `yaml:"max_shares"`
	Enemies    []int32 `yaml:"enemies"`
}

// SpawnEntry is one spawner definition (spec.md §4.1 "spawners consult
// the zone's live count against its configured maximum").
type SpawnEntry struct {
	NpcID      int32  `yaml:"npc_id"`
	MX         int32  `yaml:"mx"`
	MY         int32  `yaml:"my"`
	Group      int32  `yaml:"group"`
	X          int32  `yaml:"x"`
	Y          int32  `yaml:"y"`
	Zone       int32  `yaml:"zone"`
	Max        int32  `yaml:"max"`
	IntervalMS int32  `yaml:"interval_ms"`
}

type npcListFile struct {
	Npcs []NpcTemplate `yaml:"npcs"`
}

type spawnListFile struct {
	Spawns []SpawnEntry `yaml:"spawns"`
}

// NpcTable holds all NPC templates indexed by NpcID.
type NpcTable struct {
	templates map[int32]*NpcTemplate
	drops     *DropTable
}

// LoadNpcTable loads NPC templates from a YAML file.
func LoadNpcTable(path string) (*NpcTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read npc list %s: %w", path, err)
	}
	var f npcListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse npc list: %w", err)
	}
	t := &NpcTable{templates: make(map[int32]*NpcTemplate, len(f.Npcs))}
	for i := range f.Npcs {
		npc := &f.Npcs[i]
		t.templates[npc.NpcID] = npc
	}
	return t, nil
}

// WithDrops attaches a drop table so Factory can populate DropTable on
// spawned NpcRecords; returns t for chaining at load time.
func (t *NpcTable) WithDrops(d *DropTable) *NpcTable {
	t.drops = d
	return t
}

func (t *NpcTable) Get(npcID int32) *NpcTemplate { return t.templates[npcID] }
func (t *NpcTable) Count() int                   { return len(t.templates) }

// LoadSpawnList loads spawn entries from a YAML file.
func LoadSpawnList(path string) ([]SpawnEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawn list %s: %w", path, err)
	}
	var f spawnListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse spawn list: %w", err)
	}
	return f.Spawns, nil
}

// Factory builds the worldmap.SpawnRule.Factory closure for one spawn
// entry: a fresh NpcRecord seeded from its template's static stats
// every time a spawner fires (spec.md §4.1). Returns nil if the
// entry's template id is unknown, so the caller can skip/log it at
// boot rather than panic on a bad data file.
func (t *NpcTable) Factory(e SpawnEntry) func() *worldmap.NpcRecord {
	tmpl := t.Get(e.NpcID)
	if tmpl == nil {
		return nil
	}
	var drops []combat.DropRange
	if t.drops != nil {
		drops = t.drops.For(e.NpcID)
	}
	pos := geom.Position{X: e.X, Y: e.Y, Map: geom.MapPos{MX: e.MX, MY: e.MY, Group: e.Group}}
	return func() *worldmap.NpcRecord {
		return &worldmap.NpcRecord{
			TemplateID: tmpl.NpcID,
			Pos:        pos,
			SpawnPos:   pos,
			Combat: worldmap.CombatBlock{
				Level:    tmpl.Level,
				Vital:    [3]int32{tmpl.HP, tmpl.MP, 0},
				VitalMax: [3]int32{tmpl.HP, tmpl.MP, 0},
			},
			Damage:     tmpl.Damage,
			Defense:    tmpl.Defense,
			Aggressive: tmpl.Aggressive,
			Sight:      tmpl.Sight,
			Range:      tmpl.Range,
			AttackWait: time.Duration(tmpl.AtkWaitMS) * time.Millisecond,
			MaxShares:  tmpl.MaxShares,
			Enemies:    tmpl.Enemies,
			DropTable:  drops,
		}
	}
}
