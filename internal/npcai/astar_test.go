package npcai

import (
	"testing"

	"github.com/l1jgo/server/internal/geom"
)

func TestFindPathStraightLine(t *testing.T) {
	start := geom.Position{X: 0, Y: 0, Map: geom.MapPos{}}
	target := geom.Position{X: 3, Y: 0, Map: geom.MapPos{}}

	noBlock := func(geom.Position) bool { return false }
	offset := func(m geom.MapPos) (int32, int32) { return m.MX, m.MY }
	allowed := func(m geom.MapPos) bool { return m == geom.MapPos{} }

	steps, ok := FindPath(start, target, noBlock, offset, allowed, 256)
	if !ok {
		t.Fatalf("expected path")
	}
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	if steps[len(steps)-1].Pos != target {
		t.Fatalf("path does not end at target: %+v", steps[len(steps)-1])
	}
}

func TestFindPathOutsideRingIsNoPath(t *testing.T) {
	start := geom.Position{X: 0, Y: 0}
	target := geom.Position{X: 0, Y: 0, Map: geom.MapPos{MX: 5}}

	noBlock := func(geom.Position) bool { return false }
	offset := func(m geom.MapPos) (int32, int32) { return m.MX, m.MY }
	allowed := func(m geom.MapPos) bool { return m.MX >= -1 && m.MX <= 1 && m.MY >= -1 && m.MY <= 1 }

	_, ok := FindPath(start, target, noBlock, offset, allowed, 256)
	if ok {
		t.Fatalf("expected no path outside the one-ring search space")
	}
}

func TestFindPathBlockedDestinationAdjacentReached(t *testing.T) {
	start := geom.Position{X: 0, Y: 0}
	target := geom.Position{X: 1, Y: 0}

	blocked := func(p geom.Position) bool { return p == target }
	offset := func(m geom.MapPos) (int32, int32) { return m.MX, m.MY }
	allowed := func(m geom.MapPos) bool { return m == geom.MapPos{} }

	steps, ok := FindPath(start, target, blocked, offset, allowed, 256)
	if !ok {
		t.Fatalf("expected a path terminating adjacent to the blocked target")
	}
	if len(steps) != 0 {
		t.Fatalf("expected no steps: start is already adjacent to the blocked target, got %d", len(steps))
	}
}
