// Package worldmap implements the Map Actor (spec.md §4.1), the
// Tile-Claim Protocol (spec.md §4.3), and the per-map grid/entity
// tables of the data model. Grounded on
// original_source/src/maps/{actor,map,mapitem,logic}.rs for the
// ownership/tick/claim shapes, generalized from the Rust
// message-passing runtime to Go goroutines and channels in the
// teacher's (internal/net.Session) actor idiom.
package worldmap

import "github.com/l1jgo/server/internal/geom"

// Attribute is the coarse per-tile attribute of the data model.
type Attribute uint8

const (
	AttrWalkable Attribute = iota
	AttrEntity
	AttrBlocked
	AttrNpcBlocked
)

// Direction block bits, one per geom.Direction, taken from static map data.
type BlockMask uint8

func (m BlockMask) Blocks(d geom.Direction) bool {
	return m&(1<<uint(d)) != 0
}

// Tile is one cell of a map actor's grid. Invariant: attribute ==
// AttrEntity iff Count > 0; AttrBlocked is set only by static geometry,
// never by entities (data model §3).
type Tile struct {
	Count     int32
	Attribute Attribute
	ItemKey   uint64 // 0 = no pinned ground item; encodes identity.Key
	HasItem   bool
	Block     BlockMask
	Claim     ClaimsKey // zero value = no live outbound claim
}

// Enter increments the occupancy counter, restoring AttrEntity when
// transitioning from empty (spec.md §4.1 "Adding an entity to the grid").
func (t *Tile) Enter() {
	t.Count++
	if t.Count == 1 && t.Attribute != AttrBlocked && t.Attribute != AttrNpcBlocked {
		t.Attribute = AttrEntity
	}
}

// Leave decrements the occupancy counter, restoring Walkable once
// empty, but only if the tile wasn't statically blocked to begin with.
func (t *Tile) Leave() {
	if t.Count > 0 {
		t.Count--
	}
	if t.Count == 0 && t.Attribute == AttrEntity {
		t.Attribute = AttrWalkable
	}
}

// MoverKind distinguishes which blocking rules apply to a step.
type MoverKind uint8

const (
	MoverPlayer MoverKind = iota
	MoverNpc
	MoverMapItem
)

// Blocked implements the tile-attribute half of spec.md §4.1's
// blocking rule (the map-boundary and directional-mask checks live in
// Grid.Blocked, which calls this for the destination tile):
//
//	attribute ∈ {blocked} always blocks;
//	attribute == npc_blocked blocks only NPCs;
//	attribute == entity blocks everything except a map item.
func (t *Tile) Blocked(mover MoverKind) bool {
	switch t.Attribute {
	case AttrBlocked:
		return true
	case AttrNpcBlocked:
		return mover == MoverNpc
	case AttrEntity:
		return mover != MoverMapItem
	default:
		return false
	}
}
