package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/server/internal/geom"
	"github.com/l1jgo/server/internal/worldmap"
)

// tileCoord is one [x,y] static-geometry entry within a map-group's
// 32x32 grid (geom.MapW x geom.MapH).
type tileCoord struct {
	X int32 `yaml:"x"`
	Y int32 `yaml:"y"`
}

// dirBlockEntry pairs a tile with the directions it blocks (data model
// §3 "directional mask"), encoded as the four letters of geom.Direction
// ("down","right","up","left") rather than a raw bit mask, to keep the
// YAML human-editable.
type dirBlockEntry struct {
	X    int32    `yaml:"x"`
	Y    int32    `yaml:"y"`
	Dirs []string `yaml:"dirs"`
}

// mapGroupEntry is one map-group's static geometry as authored in YAML.
type mapGroupEntry struct {
	MX         int32           `yaml:"mx"`
	MY         int32           `yaml:"my"`
	Group      int32           `yaml:"group"`
	Name       string          `yaml:"name"`
	Blocked    []tileCoord     `yaml:"blocked"`
	NpcBlocked []tileCoord     `yaml:"npc_blocked"`
	DirBlocks  []dirBlockEntry `yaml:"dir_blocks"`
}

type mapListFile struct {
	Maps []mapGroupEntry `yaml:"maps"`
}

// MapDataTable holds the static per-map-group geometry used to seed
// every worldmap.Grid at boot (worldmap.Grid.LoadStatic). Grounded on
// the teacher's data.LoadMapData, re-keyed from the teacher's
// variable-size world-coordinate map onto spec.md's fixed 32x32
// map-group addressing (geom.MapPos).
type MapDataTable struct {
	groups map[geom.MapPos]mapGroupEntry
}

// LoadMapData loads every map-group's static geometry from one YAML
// file (teacher's map_list.yaml idiom, collapsed to one file since
// each group's grid is small and fixed-size).
func LoadMapData(path string) (*MapDataTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map list %s: %w", path, err)
	}
	var f mapListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse map list: %w", err)
	}
	t := &MapDataTable{groups: make(map[geom.MapPos]mapGroupEntry, len(f.Maps))}
	for _, e := range f.Maps {
		t.groups[geom.MapPos{MX: e.MX, MY: e.MY, Group: e.Group}] = e
	}
	return t, nil
}

func (t *MapDataTable) Count() int { return len(t.groups) }

// Positions returns every map-group this table has static data for,
// the boot set main.go iterates to spin up one Actor per group.
func (t *MapDataTable) Positions() []geom.MapPos {
	out := make([]geom.MapPos, 0, len(t.groups))
	for mp := range t.groups {
		out = append(out, mp)
	}
	return out
}

var dirByName = map[string]geom.Direction{
	"down": geom.Down, "right": geom.Right, "up": geom.Up, "left": geom.Left,
}

// Static renders one map-group's YAML entry into the flat boolean/mask
// slices worldmap.Grid.LoadStatic expects, indexed by geom.TileIndex.
func (t *MapDataTable) Static(mp geom.MapPos) (blocked, npcBlocked []bool, masks []worldmap.BlockMask) {
	e, ok := t.groups[mp]
	blocked = make([]bool, geom.MapW*geom.MapH)
	npcBlocked = make([]bool, geom.MapW*geom.MapH)
	masks = make([]worldmap.BlockMask, geom.MapW*geom.MapH)
	if !ok {
		return
	}
	for _, c := range e.Blocked {
		if i, ok := geom.SafeTileIndex(c.X, c.Y); ok {
			blocked[i] = true
		}
	}
	for _, c := range e.NpcBlocked {
		if i, ok := geom.SafeTileIndex(c.X, c.Y); ok {
			npcBlocked[i] = true
		}
	}
	for _, d := range e.DirBlocks {
		i, ok := geom.SafeTileIndex(d.X, d.Y)
		if !ok {
			continue
		}
		var m worldmap.BlockMask
		for _, name := range d.Dirs {
			if dir, ok := dirByName[name]; ok {
				m |= 1 << uint(dir)
			}
		}
		masks[i] = m
	}
	return
}
