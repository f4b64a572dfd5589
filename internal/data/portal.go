package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/server/internal/geom"
)

// portalEntry is one portal (dungeon entrance/exit) as authored in
// YAML: a source tile and the destination a player stepping onto it
// is instantly relocated to.
type portalEntry struct {
	SrcMX    int32 `yaml:"src_mx"`
	SrcMY    int32 `yaml:"src_my"`
	SrcGroup int32 `yaml:"src_group"`
	SrcX     int32 `yaml:"src_x"`
	SrcY     int32 `yaml:"src_y"`
	DstMX    int32 `yaml:"dst_mx"`
	DstMY    int32 `yaml:"dst_my"`
	DstGroup int32 `yaml:"dst_group"`
	DstX     int32 `yaml:"dst_x"`
	DstY     int32 `yaml:"dst_y"`
	DstDir   uint8 `yaml:"dst_dir"`
}

type portalListFile struct {
	Portals []portalEntry `yaml:"portals"`
}

// PortalTable maps a source tile to its destination, re-keyed from the
// teacher's int16-mapID/free-coordinate addressing onto spec.md's
// fixed 32x32 map-group positions (geom.Position).
type PortalTable struct {
	byMap map[geom.MapPos]map[geom.Position]geom.Position
}

// LoadPortalTable loads portal definitions from a YAML file.
func LoadPortalTable(path string) (*PortalTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read portal list %s: %w", path, err)
	}
	var f portalListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse portal list: %w", err)
	}
	t := &PortalTable{byMap: make(map[geom.MapPos]map[geom.Position]geom.Position)}
	for _, e := range f.Portals {
		srcMap := geom.MapPos{MX: e.SrcMX, MY: e.SrcMY, Group: e.SrcGroup}
		src := geom.Position{X: e.SrcX, Y: e.SrcY, Map: srcMap}
		dst := geom.Position{X: e.DstX, Y: e.DstY, Map: geom.MapPos{MX: e.DstMX, MY: e.DstMY, Group: e.DstGroup}}
		if t.byMap[srcMap] == nil {
			t.byMap[srcMap] = make(map[geom.Position]geom.Position)
		}
		t.byMap[srcMap][src] = dst
	}
	return t, nil
}

func (t *PortalTable) Count() int {
	n := 0
	for _, m := range t.byMap {
		n += len(m)
	}
	return n
}

// ForMap returns one map-group's portal source->destination table, the
// shape worldmap.Actor.Portals expects.
func (t *PortalTable) ForMap(mp geom.MapPos) map[geom.Position]geom.Position {
	return t.byMap[mp]
}
