// Package geom implements the tile/map coordinate system of the data
// model: a fixed W×H tile grid per map-group, the four-way direction
// tag, and the "king-move minus one" distance metric.
package geom

const (
	MapW = 32
	MapH = 32
)

// MapPos identifies one tile-group: a map at (mx, my) within a group.
type MapPos struct {
	MX, MY int32
	Group  int32
}

func (m MapPos) Neighbor(dx, dy int32) MapPos {
	return MapPos{MX: m.MX + dx, MY: m.MY + dy, Group: m.Group}
}

// Ring returns the nine-neighborhood (this map plus its eight
// neighbors) of m, optionally excluding the diagonal corners.
func Ring(m MapPos, includeCorners bool) []MapPos {
	out := make([]MapPos, 0, 9)
	for dy := int32(-1); dy <= 1; dy++ {
		for dx := int32(-1); dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				out = append(out, m)
				continue
			}
			if !includeCorners && dx != 0 && dy != 0 {
				continue
			}
			out = append(out, m.Neighbor(dx, dy))
		}
	}
	return out
}

// Position is a tile coordinate within a map-group.
type Position struct {
	X, Y int32
	Map  MapPos
}

// Distance implements the "king-move minus one" metric from the data
// model: |Δx|+|Δy|-1 when both deltas are nonzero, else max(|Δx|,|Δy|).
// Only valid when both positions share a Map; callers must check that
// first (distance is undefined across groups/maps).
func Distance(a, b Position) int32 {
	dx := abs32(a.X - b.X)
	dy := abs32(a.Y - b.Y)
	if dx != 0 && dy != 0 {
		return dx + dy - 1
	}
	if dx > dy {
		return dx
	}
	return dy
}

// SameMap reports whether a and b are comparable (same map-group tile).
func SameMap(a, b Position) bool { return a.Map == b.Map }

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// Direction is the four-valued movement tag.
type Direction uint8

const (
	Down Direction = iota
	Right
	Up
	Left
)

// Valid reports whether d is one of the four defined directions
// (spec.md §6: direction ordinal ∈ {0,1,2,3}).
func (d Direction) Valid() bool { return d <= Left }

// Step returns the (Δx, Δy) offset for one step in direction d.
func (d Direction) Step() (int32, int32) {
	switch d {
	case Down:
		return 0, 1
	case Right:
		return 1, 0
	case Up:
		return 0, -1
	case Left:
		return -1, 0
	default:
		return 0, 0
	}
}

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	switch d {
	case Down:
		return Up
	case Up:
		return Down
	case Right:
		return Left
	case Left:
		return Right
	default:
		return d
	}
}

// Step advances p by one tile in direction d, wrapping the tile
// coordinate and shifting MapPos by one when the step would leave
// [0,W)×[0,H) — "crossing a map edge" in the data model.
func Step(p Position, d Direction) Position {
	dx, dy := d.Step()
	x, y := p.X+dx, p.Y+dy
	m := p.Map

	switch {
	case x < 0:
		x = MapW - 1
		m.MX--
	case x >= MapW:
		x = 0
		m.MX++
	}
	switch {
	case y < 0:
		y = MapH - 1
		m.MY--
	case y >= MapH:
		y = 0
		m.MY++
	}
	return Position{X: x, Y: y, Map: m}
}

// TileIndex returns the row-major index of (x,y) into a flat [MapW*MapH] array.
func TileIndex(x, y int32) int {
	return int(y)*MapW + int(x)
}

// InBounds reports whether (x,y) lies within [0,W)×[0,H).
func InBounds(x, y int32) bool {
	return x >= 0 && x < MapW && y >= 0 && y < MapH
}

// SafeTileIndex is TileIndex guarded by InBounds, for callers building
// a flat grid slice from untrusted/external coordinates (e.g. static
// map data loaded from disk).
func SafeTileIndex(x, y int32) (int, bool) {
	if !InBounds(x, y) {
		return 0, false
	}
	return TileIndex(x, y), true
}
