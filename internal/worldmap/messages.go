package worldmap

import (
	"github.com/l1jgo/server/internal/geom"
	"github.com/l1jgo/server/internal/identity"
	"github.com/l1jgo/server/internal/protocol"
)

// Incoming is the map actor's mailbox message union (spec.md §4.1
// "incoming message kinds", non-exhaustive list realized here).
type Incoming struct {
	SpawnNpc          *SpawnNpc
	SpawnMapItem      *SpawnMapItem
	SpawnPlayer       *SpawnPlayer
	VerifyPlayerMove  *VerifyPlayerMove
	MovePlayerHandoff *MovePlayerHandoff
	PlayerMessage     *PlayerMessageMsg
	RequestItemDrop   *RequestItemDrop
	DropItemCommit    *DropItemCommit
	BlockUpdate       *BlockUpdate
	AskClaim          *AskClaim
	ClaimGranted      *ClaimGranted
	Commit            *Commit
	ApplyDamage       *ApplyDamage
	RequestPlayerAttack *RequestPlayerAttack
	ShopBuy           *ShopBuy
	ShopSell          *ShopSell
	SnapshotRequest   *SnapshotRequest
}

type SpawnNpc struct {
	Npc   *NpcRecord
	Claim ClaimsKey
}

type SpawnMapItem struct {
	Item  *MapItemRecord
	Claim ClaimsKey
}

type SpawnPlayer struct {
	Player *PlayerRecord
}

// VerifyPlayerMove is sent by dispatch to the player's owning map after
// decoding a Move packet; the map actor owns the authority to accept
// or reject it (spec.md §4.7 gameplay handler prelude).
type VerifyPlayerMove struct {
	Key  identity.Key
	Dir  geom.Direction
	From geom.Position
}

// MovePlayerHandoff is the cross-map commit step of the claim protocol
// (spec.md §4.3 step 5/6), specialized for players.
type MovePlayerHandoff struct {
	Claim    ClaimsKey
	Snapshot *PlayerRecord
}

type PlayerMessageMsg struct {
	From identity.Key
	Text string
}

// RequestItemDrop / DropItemCommit implement the cross-map
// ground-item-drop handshake of spec.md §4.3. The map actor — not
// dispatch — reads the inventory slot, since inventory is player state
// this map alone writes; Tile is the dropper's own tile, the origin
// findDropTile scans outward from, not the destination.
type RequestItemDrop struct {
	Attacker identity.Key
	Tile     geom.Position
	Slot     int
	Amount   uint16
	ReplyTo  chan DropClaimReply
}

type DropClaimReply struct {
	Claim    ClaimsKey
	Item     protocol.ItemDescriptor
	Accepted uint16
}

type DropItemCommit struct {
	Claim    ClaimsKey
	Attacker identity.Key
	Slot     int
	Item     protocol.ItemDescriptor
	Amount   uint16
	Owner    *uint64
}

// BlockUpdate notifies a map of a static geometry change (e.g. a door).
type BlockUpdate struct {
	X, Y int32
	Attr Attribute
}

// AskClaim / ClaimGranted / Commit implement the entity-crossing
// handoff of spec.md §4.3 steps 2-6.
type AskClaim struct {
	Destination geom.Position
	Kind        MoverKind
	ReplyTo     chan ClaimGranted
}

type ClaimGranted struct {
	Granted bool
	Claim   ClaimsKey
}

type Commit struct {
	Claim          ClaimsKey
	PlayerSnapshot *PlayerRecord
	NpcSnapshot    *NpcRecord
}

// ApplyDamage delivers a combat hit to a target on a possibly
// different map than the attacker (spec.md §4.8 "apply it via a
// message to the target's owning map").
type ApplyDamage struct {
	TargetKey  identity.Key
	AttackerID identity.Key
	Amount     int32
}

// RequestPlayerAttack is dispatch's Attack-packet prelude (spec.md §4.7
// gameplay prelude): the map actor, not dispatch, owns the validation
// (alive, not stunned, range, cooldown) and the damage roll, since both
// the attacker's and target's authoritative state live there.
type RequestPlayerAttack struct {
	Attacker identity.Key
	Target   identity.Key
}

// ShopBuy / ShopSell implement the BuyItem/SellItem packets of spec.md
// §6. Pricing is resolved by dispatch against the static shop table
// (internal/data has no dependency on worldmap in reverse, so the map
// actor never sees the shop table itself); the map actor only ever
// touches money and inventory, the two fields of player state it alone
// may write.
type ShopBuy struct {
	Player     identity.Key
	Item       protocol.ItemDescriptor
	TotalPrice uint64
	ReplyTo    chan ShopResult
}

// ShopSell carries the slot the client claims to be selling plus the
// item number the price quote was computed for; onShopSell rejects the
// transaction if the slot's actual contents don't match, since dispatch
// never reads inventory directly.
type ShopSell struct {
	Player    identity.Key
	Slot      int
	ItemNum   uint32
	Amount    uint16
	UnitPrice uint64
	ReplyTo   chan ShopResult
}

// ShopResult reports the outcome of a shop transaction and the buyer's
// new balance so dispatch can push an updated SPlayerMoney without a
// second round trip.
type ShopResult struct {
	OK    bool
	Money uint64
}

// SnapshotRequest is used by the NPC targeting stage when it needs a
// read-only view of another map (spec.md §4.1 "ownership contract":
// reads by other actors are served by copying a snapshot).
type SnapshotRequest struct {
	ReplyTo chan MapSnapshot
}

// MapSnapshot is a read-only copy handed to a requester; it must never
// be mutated by the receiver (design notes: "cross-map updates never
// mutate remote entity state directly").
type MapSnapshot struct {
	Pos     geom.MapPos
	Players []PlayerRecord
	Npcs    []NpcRecord
}
