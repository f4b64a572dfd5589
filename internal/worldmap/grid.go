package worldmap

import "github.com/l1jgo/server/internal/geom"

// Grid is the fixed-size per-map tile array (data model §3: W=H=32).
type Grid struct {
	tiles [geom.MapW * geom.MapH]Tile
}

func NewGrid() *Grid {
	return &Grid{}
}

func (g *Grid) At(x, y int32) *Tile {
	return &g.tiles[geom.TileIndex(x, y)]
}

// LoadStatic seeds Attribute/Block from static map data (out of core
// scope per spec.md §1 — the loader lives in internal/data — but the
// grid depends on the shape it returns).
func (g *Grid) LoadStatic(blocked, npcBlocked []bool, blockMask []BlockMask) {
	for i := range g.tiles {
		switch {
		case i < len(blocked) && blocked[i]:
			g.tiles[i].Attribute = AttrBlocked
		case i < len(npcBlocked) && npcBlocked[i]:
			g.tiles[i].Attribute = AttrNpcBlocked
		}
		if i < len(blockMask) {
			g.tiles[i].Block = blockMask[i]
		}
	}
}

// Blocked implements the full step-blocking check of spec.md §4.1: a
// step from p in direction d is blocked iff the destination tile's
// attribute blocks mover, or the directional mask at the source tile
// blocks d. Map-boundary crossing (destination not owned by this map)
// is checked by the caller before consulting this grid.
func (g *Grid) Blocked(srcX, srcY int32, d geom.Direction, destX, destY int32, mover MoverKind) bool {
	src := g.At(srcX, srcY)
	if src.Block.Blocks(d) {
		return true
	}
	dest := g.At(destX, destY)
	return dest.Blocked(mover)
}

// Enter/Leave update occupancy at a tile (spec.md §4.1).
func (g *Grid) Enter(x, y int32) { g.At(x, y).Enter() }
func (g *Grid) Leave(x, y int32) { g.At(x, y).Leave() }

// OccupancyInvariant reports whether the tile's counter is consistent
// (spec.md §8 universal invariant, exposed for tests).
func (g *Grid) OccupancyInvariant(x, y int32, liveCount int32) bool {
	return g.At(x, y).Count == liveCount
}
