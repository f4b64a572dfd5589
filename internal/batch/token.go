// Package batch implements the Packet Batcher (spec.md §4.5): per-map,
// per-kind record accumulation into size-bounded frames, flushed to
// the nine-ring of players at tick end. Grounded on
// original_source/src/gameloop/datatasks.rs (DataTaskToken) for the
// token/cap design and the teacher's internal/net/packet.Writer for
// the length-prefixed frame shape.
package batch

import (
	"github.com/l1jgo/server/internal/geom"
	"github.com/l1jgo/server/internal/protocol"
)

// Kind is the semantic stream a token belongs to; each has its own
// per-frame record cap (spec.md §4.5), derived from a ~1420-byte
// MTU-like payload budget.
type Kind uint8

const (
	KindNpcMove Kind = iota
	KindNpcDir
	KindNpcSpawn
	KindNpcUnload
	KindPlayerMove
	KindPlayerDir
	KindPlayerSpawn
	KindPlayerUnload
	KindDamage
	KindVitals
	KindAttack
	KindItemLoad
	KindEntityUnload
	KindChatMsg

	// Point-to-entity variants are delivered only to one socket instead
	// of the nine-ring (spec.md §4.5).
	KindNpcSpawnToEntity
	KindPlayerSpawnToEntity
	KindPlayerInvSlot
	KindPlayerMoney
)

func (k Kind) pointToEntity() bool {
	switch k {
	case KindNpcSpawnToEntity, KindPlayerSpawnToEntity, KindPlayerInvSlot, KindPlayerMoney:
		return true
	default:
		return false
	}
}

// PointToEntity reports whether frames of this kind are delivered to a
// single socket rather than fanned out to the nine-ring (spec.md §4.5).
func (k Kind) PointToEntity() bool { return k.pointToEntity() }

// Caps holds the per-Kind record cap, configured from config.BatchConfig.
type Caps struct {
	Movement       int
	DirectionDeath int
	IDOnly         int
	NpcSpawn       int
	PlayerSpawn    int
	Chat           int
	ItemLoad       int
}

func (c Caps) capFor(k Kind) int {
	switch k {
	case KindNpcMove, KindPlayerMove:
		return c.Movement
	case KindNpcDir, KindDamage, KindVitals, KindAttack:
		return c.DirectionDeath
	case KindNpcUnload, KindPlayerUnload, KindEntityUnload:
		return c.IDOnly
	case KindNpcSpawn, KindNpcSpawnToEntity:
		return c.NpcSpawn
	case KindPlayerSpawn, KindPlayerSpawnToEntity:
		return c.PlayerSpawn
	case KindChatMsg:
		return c.Chat
	case KindItemLoad:
		return c.ItemLoad
	default:
		return 16
	}
}

// Token identifies one broadcast stream: a map, a kind, and — for
// point-to-entity variants only — the target socket id.
type Token struct {
	Map    geom.MapPos
	Kind   Kind
	Socket uint64 // only meaningful when Kind.pointToEntity()
}

// Frame is a sealed, ready-to-send batch: the server packet id to use,
// and the concatenated encoded records (each record already includes
// its own fields; the frame just prefixes a count).
type Frame struct {
	Token   Token
	ID      protocol.ServerPacketID
	Count   int
	Payload []byte
}
