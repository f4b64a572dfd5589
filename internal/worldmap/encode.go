package worldmap

import (
	"github.com/l1jgo/server/internal/identity"
	"github.com/l1jgo/server/internal/protocol"
)

// Record encoders for the Packet Batcher (spec.md §4.5): one function
// per batch.Kind, each producing exactly the bytes appended to a
// sealed frame's payload (no packet id, no count — those live once per
// frame in batch.Frame). Grounded on the teacher's per-packet Writer
// call sites in internal/handler, generalized into small pure encoders
// so worldmap never needs to import the session layer to build them.

func encodeMove(k identity.Key, p PlayerMovement) []byte {
	return protocol.NewRecordWriter().
		U64(k.Encode()).
		Position(p.Pos).
		U8(uint8(p.Direction)).
		Done()
}

func encodeNpcMove(n *NpcRecord) []byte {
	return protocol.NewRecordWriter().
		U64(n.Key.Encode()).
		Position(n.Pos).
		U8(uint8(n.Movement.Direction)).
		Done()
}

func encodeDir(k identity.Key, dir uint8, dead bool) []byte {
	return protocol.NewRecordWriter().
		U64(k.Encode()).
		U8(dir).
		Bool(dead).
		Done()
}

func encodePlayerSpawn(p *PlayerRecord) []byte {
	return protocol.NewRecordWriter().
		U64(p.Key.Encode()).
		Position(p.Position.Pos).
		U8(uint8(p.Position.Direction)).
		I32(p.SpriteID).
		I32(p.Combat.Level).
		I32(p.Combat.Vital[VitalHP]).
		I32(p.Combat.VitalMax[VitalHP]).
		Done()
}

func encodeNpcSpawn(n *NpcRecord) []byte {
	return protocol.NewRecordWriter().
		U64(n.Key.Encode()).
		I32(n.TemplateID).
		Position(n.Pos).
		U8(uint8(n.Movement.Direction)).
		I32(n.Combat.Vital[VitalHP]).
		I32(n.Combat.VitalMax[VitalHP]).
		Done()
}

func encodeUnload(k identity.Key) []byte {
	return protocol.NewRecordWriter().U64(k.Encode()).Done()
}

func encodeDamage(attacker, target identity.Key, amount int32) []byte {
	return protocol.NewRecordWriter().
		U64(attacker.Encode()).
		U64(target.Encode()).
		I32(amount).
		Done()
}

func encodeItemLoad(m *MapItemRecord) []byte {
	return protocol.NewRecordWriter().
		U64(m.Key.Encode()).
		Position(m.Pos).
		Item(m.Descriptor).
		Done()
}

func encodeInvSlot(slot uint16, item protocol.ItemDescriptor) []byte {
	return protocol.NewRecordWriter().
		U16(slot).
		Item(item).
		Done()
}

func encodeMoney(money uint64) []byte {
	return protocol.NewRecordWriter().U64(money).Done()
}

func encodeChat(speaker identity.Key, text string) []byte {
	return protocol.NewRecordWriter().
		U64(speaker.Encode()).
		String(text).
		Done()
}
