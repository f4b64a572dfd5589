// Package gameclock implements the Game Clock (spec.md's module H):
// a single goroutine that advances the in-world minute/hour and pings
// every live connection, grounded on the teacher's
// cmd/l1jgo/main.go dual-ticker boot pattern and on
// original_source's GameTimeActor (main.rs: "Initializing Game Time
// Actor", spawned once at boot alongside the map actors).
package gameclock

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/server/internal/netio"
	"github.com/l1jgo/server/internal/protocol"
	"github.com/l1jgo/server/internal/worldmap"
)

const minutesPerHour = 60

// Clock owns the server's single notion of wall-clock-independent
// in-world time. It never touches map-actor state directly — advances
// are announced on the bus, same as any other cross-map event (spec.md
// §5 "global broadcast bus").
type Clock struct {
	bus    *worldmap.Bus
	netReg *netio.Registry
	log    *zap.Logger

	minuteEvery time.Duration
	pingEvery   time.Duration

	minute int32
	hour   int32
}

func New(bus *worldmap.Bus, netReg *netio.Registry, minuteEvery, pingEvery time.Duration, log *zap.Logger) *Clock {
	if minuteEvery <= 0 {
		minuteEvery = time.Second
	}
	if pingEvery <= 0 {
		pingEvery = 30 * time.Second
	}
	return &Clock{bus: bus, netReg: netReg, minuteEvery: minuteEvery, pingEvery: pingEvery, log: log}
}

// Run drives the clock until ctx is canceled. It owns two independent
// tickers rather than one combined one, since the minute cadence and
// the keepalive cadence are unrelated and configured separately.
func (c *Clock) Run(ctx context.Context) {
	minuteT := time.NewTicker(c.minuteEvery)
	pingT := time.NewTicker(c.pingEvery)
	defer minuteT.Stop()
	defer pingT.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-minuteT.C:
			c.advanceMinute()
		case <-pingT.C:
			c.pingAll()
		}
	}
}

// advanceMinute rolls the in-world minute/hour forward one tick and
// publishes it on the bus; map actors treat it as purely informational
// (worldmap.Actor.handleBroadcast).
func (c *Clock) advanceMinute() {
	c.minute++
	if c.minute >= minutesPerHour {
		c.minute = 0
		c.hour = (c.hour + 1) % 24
	}
	c.bus.Publish(worldmap.Broadcast{
		Kind:    worldmap.BroadcastTimeUpdate,
		Minutes: c.hour*minutesPerHour + c.minute,
	})
}

// pingAll sends a keepalive Ping to every live session directly
// through the session registry: liveness is a connection-level
// concern, not map-entity state, so it bypasses the map actors and
// their packet batcher entirely.
func (c *Clock) pingAll() {
	body := protocol.NewWriter(protocol.SPing).Done()
	for _, sess := range c.netReg.All() {
		sess.Send(body)
	}
}
