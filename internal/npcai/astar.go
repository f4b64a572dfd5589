package npcai

import (
	"container/heap"

	"github.com/l1jgo/server/internal/geom"
)

// BlockedFunc reports whether pos is impassable to the searching NPC.
// The caller (worldmap) closes over its own grid/ring snapshot so this
// package never depends on worldmap.
type BlockedFunc func(pos geom.Position) bool

// OffsetFunc projects a MapPos into the offset coordinate space used
// for the heuristic, so distances across the nine-map ring are
// monotone (spec.md §4.4 "A* specifics").
type OffsetFunc func(m geom.MapPos) (ox, oy int32)

type node struct {
	pos      geom.Position
	g        int32
	f        int32
	order    int // insertion order, for tie-break
	parent   *node
}

type openQueue []*node

func (q openQueue) Len() int { return len(q) }
func (q openQueue) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	return q[i].order < q[j].order
}
func (q openQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *openQueue) Push(x any)         { *q = append(*q, x.(*node)) }
func (q *openQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// Step is one (position, direction) entry of a successful search's
// result; FindPath returns them in order, suitable for NpcMovement.Moves.
type Step struct {
	Pos geom.Position
	Dir geom.Direction
}

// FindPath implements spec.md §4.4's A*: four-neighborhood, g=depth,
// h=squared Euclidean distance in offset space, f=g+h, tie-break by
// insertion order, closed set keyed by absolute position, bounded by
// nodeBudget. allowedMap reports whether a MapPos lies within the
// NPC's one-ring search space; a target outside it is "no path"
// (spec.md open question: treat group-boundary ambiguity as no path).
func FindPath(start, target geom.Position, blocked BlockedFunc, offset OffsetFunc, allowedMap func(geom.MapPos) bool, nodeBudget int) ([]Step, bool) {
	if !allowedMap(target.Map) {
		return nil, false
	}

	startN := &node{pos: start, g: 0}
	startN.f = heuristic(start, target, offset)

	open := &openQueue{startN}
	heap.Init(open)
	closed := make(map[geom.Position]*node, nodeBudget)
	closed[start] = startN
	order := 1

	var goal *node
	for open.Len() > 0 && nodeBudget > 0 {
		cur := heap.Pop(open).(*node)
		nodeBudget--

		if cur.pos == target {
			goal = cur
			break
		}
		// Adjacent-to-target with target tile blocked counts as reached
		// (spec.md §4.4 Movement stop conditions).
		if geom.SameMap(cur.pos, target) && geom.Distance(cur.pos, target) == 1 && blocked(target) {
			goal = cur
			break
		}

		for d := geom.Down; d <= geom.Left; d++ {
			next := geom.Step(cur.pos, d)
			if !allowedMap(next.Map) {
				continue
			}
			if blocked(next) {
				continue
			}
			if existing, ok := closed[next]; ok && existing.g <= cur.g+1 {
				continue
			}
			n := &node{pos: next, g: cur.g + 1, parent: cur, order: order}
			order++
			n.f = n.g + heuristic(next, target, offset)
			closed[next] = n
			heap.Push(open, n)
		}
	}

	if goal == nil {
		return nil, false
	}
	return reconstruct(goal), true
}

func heuristic(a, b geom.Position, offset OffsetFunc) int32 {
	ax, ay := offset(a.Map)
	bx, by := offset(b.Map)
	dx := (ax*geom.MapW + a.X) - (bx*geom.MapW + b.X)
	dy := (ay*geom.MapH + a.Y) - (by*geom.MapH + b.Y)
	return dx*dx + dy*dy
}

func reconstruct(goal *node) []Step {
	var rev []geom.Position
	for n := goal; n != nil; n = n.parent {
		rev = append(rev, n.pos)
	}
	// rev is target..start; walk backwards to emit start->target steps
	// with the direction taken between consecutive positions.
	steps := make([]Step, 0, len(rev)-1)
	for i := len(rev) - 1; i > 0; i-- {
		from, to := rev[i], rev[i-1]
		steps = append(steps, Step{Pos: to, Dir: directionBetween(from, to)})
	}
	return steps
}

func directionBetween(from, to geom.Position) geom.Direction {
	for d := geom.Down; d <= geom.Left; d++ {
		if geom.Step(from, d) == to {
			return d
		}
	}
	return geom.Down
}
