package worldmap

import (
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/server/internal/batch"
	"github.com/l1jgo/server/internal/identity"
	"github.com/l1jgo/server/internal/protocol"
)

// SpawnRule is one NPC spawn point: while fewer than Max NPCs of this
// zone are on the map (dead ones awaiting respawn included), it creates
// one new NPC every Interval (spec.md §4.1
// "spawners consult the zone's live count against its configured
// maximum before creating a new NPC").
type SpawnRule struct {
	Zone     int32
	Max      int32
	Interval time.Duration
	NextAt   time.Time
	Factory  func() *NpcRecord
}

func (a *Actor) liveInZone(zone int32) int32 {
	var n int32
	for _, npc := range a.Npcs {
		if npc.SpawnZone == zone {
			n++
		}
	}
	return n
}

// advanceSpawners is step (b) of the tick: create due NPCs through the
// identity registry (every entity creation is registry-mediated, even
// when the destination is the spawner's own map), so a fresh NPC always
// carries a real generation-tagged key.
func (a *Actor) advanceSpawners(now time.Time) {
	for _, rule := range a.Spawners {
		if now.Before(rule.NextAt) {
			continue
		}
		if a.liveInZone(rule.Zone) >= rule.Max {
			rule.NextAt = now.Add(rule.Interval)
			continue
		}
		npc := rule.Factory()
		npc.SpawnZone = rule.Zone
		npc.SpawnTimer = now
		a.reg.SpawnNpc(a.Pos, npc, nil)
		rule.NextAt = now.Add(rule.Interval)
	}
}

func (a *Actor) onSpawnNpc(m *SpawnNpc) {
	npc := m.Npc
	a.Npcs[npc.Key] = npc
	a.Grid.Enter(npc.Pos.X, npc.Pos.Y)
	if !m.Claim.IsZero() {
		a.Claims.Clear(m.Claim)
	}
	a.reg.UpdateOwner(npc.Key, a.Pos)
	a.out.Add(batch.Token{Map: a.Pos, Kind: batch.KindNpcSpawn}, protocol.SNpcSpawn, encodeNpcSpawn(npc))
}

func (a *Actor) onSpawnPlayer(m *SpawnPlayer) {
	p := m.Player
	a.Players[p.Key] = p
	a.Grid.Enter(p.Position.Pos.X, p.Position.Pos.Y)
	a.reg.UpdateOwner(p.Key, a.Pos)
	a.out.Add(batch.Token{Map: a.Pos, Kind: batch.KindPlayerSpawn}, protocol.SPlayerSpawn, encodePlayerSpawn(p))
	a.log.Debug("player entered map", zap.Uint64("session", p.SessionID), zap.Uint32("key", p.Key.Index))
}

func (a *Actor) onSpawnMapItem(m *SpawnMapItem) {
	it := m.Item
	a.Items[it.Key] = it
	t := a.Grid.At(it.Pos.X, it.Pos.Y)
	t.HasItem = true
	t.ItemKey = it.Key.Encode()
	if !m.Claim.IsZero() {
		a.Claims.Clear(m.Claim)
	}
	a.reg.UpdateOwner(it.Key, a.Pos)
	a.out.Add(batch.Token{Map: a.Pos, Kind: batch.KindItemLoad}, protocol.SItemLoad, encodeItemLoad(it))
}

// removePlayer/removeNpc are the common teardown shared by despawn,
// death cleanup, and map-crossing handoff: clear grid occupancy and
// drop the local table entry. Releasing the global key is the caller's
// responsibility (a map crossing keeps the key; a despawn frees it).
func (a *Actor) removePlayer(k identity.Key) {
	p, ok := a.Players[k]
	if !ok {
		return
	}
	a.Grid.Leave(p.Position.Pos.X, p.Position.Pos.Y)
	delete(a.Players, k)
}

func (a *Actor) removeNpc(k identity.Key) {
	n, ok := a.Npcs[k]
	if !ok {
		return
	}
	a.Grid.Leave(n.Pos.X, n.Pos.Y)
	delete(a.Npcs, k)
}
