package dispatch

import (
	"fmt"

	"github.com/l1jgo/server/internal/geom"
	"github.com/l1jgo/server/internal/worldmap"
)

// MapSenderAdapter implements identity.MapSender over the same
// senders map the Router routes gameplay packets through: the
// Identity Registry lives in a separate package from worldmap purely
// to avoid an import cycle (see internal/identity's doc comment), so
// this is the one place that bridges the two.
type MapSenderAdapter struct {
	Senders map[geom.MapPos]chan<- worldmap.Incoming
}

func (m MapSenderAdapter) send(dest geom.MapPos, msg worldmap.Incoming) error {
	ch, ok := m.Senders[dest]
	if !ok {
		return fmt.Errorf("no map actor for %v", dest)
	}
	select {
	case ch <- msg:
		return nil
	default:
		return fmt.Errorf("mailbox full for %v", dest)
	}
}

func (m MapSenderAdapter) SendSpawnNpc(dest geom.MapPos, msg any) error {
	npc, ok := msg.(*worldmap.NpcRecord)
	if !ok {
		return fmt.Errorf("SendSpawnNpc: unexpected payload %T", msg)
	}
	return m.send(dest, worldmap.Incoming{SpawnNpc: &worldmap.SpawnNpc{Npc: npc}})
}

func (m MapSenderAdapter) SendSpawnPlayer(dest geom.MapPos, msg any) error {
	p, ok := msg.(*worldmap.PlayerRecord)
	if !ok {
		return fmt.Errorf("SendSpawnPlayer: unexpected payload %T", msg)
	}
	return m.send(dest, worldmap.Incoming{SpawnPlayer: &worldmap.SpawnPlayer{Player: p}})
}

func (m MapSenderAdapter) SendSpawnMapItem(dest geom.MapPos, msg any) error {
	it, ok := msg.(*worldmap.MapItemRecord)
	if !ok {
		return fmt.Errorf("SendSpawnMapItem: unexpected payload %T", msg)
	}
	return m.send(dest, worldmap.Incoming{SpawnMapItem: &worldmap.SpawnMapItem{Item: it}})
}
