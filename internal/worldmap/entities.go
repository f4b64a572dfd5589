package worldmap

import (
	"time"

	"github.com/l1jgo/server/internal/combat"
	"github.com/l1jgo/server/internal/geom"
	"github.com/l1jgo/server/internal/identity"
	"github.com/l1jgo/server/internal/npcai"
	"github.com/l1jgo/server/internal/protocol"
)

// UsingKind is the tagged using-state union of the data model: a
// player blocked on a shop/trade/bank/etc carries the partner handle
// in the matching variant, never "peeked" without checking Kind
// (design notes).
type UsingKind uint8

const (
	UsingNone UsingKind = iota
	UsingBank
	UsingFishing
	UsingCrafting
	UsingTrading
	UsingStore
	UsingOther
)

type UsingState struct {
	Kind UsingKind
	ID   int32          // fishing(id) / crafting(id) / store(id) / other(id)
	Key  identity.Key   // trading(key)
}

// InventorySlot is one fixed-size container entry.
type InventorySlot struct {
	Item protocol.ItemDescriptor
}

func (s InventorySlot) Empty() bool { return s.Item.Empty() }

const (
	InventorySize = 30
	EquipmentSize = 5
	BankSize      = 70
	TradeSize     = 30
)

// CombatBlock holds the three-vital combat fields shared by players
// and NPCs (data model §3).
type CombatBlock struct {
	Level      int32
	LevelExp   int64
	Vital      [3]int32 // current
	VitalMax   [3]int32
	Dead       bool
	AttackTimer time.Time
	Stunned     bool
	InCombat    bool
	Attacking   bool
	Target      identity.Key
}

// HP/MP/SP index constants into CombatBlock.Vital.
const (
	VitalHP = 0
	VitalMP = 1
	VitalSP = 2
)

// PlayerRecord is the Player entity of the data model.
type PlayerRecord struct {
	Key identity.Key

	AccountID     uint64
	Username      string
	ResetCode     string

	SessionID     uint64 // primary socket id
	TLSSessionID  uint64
	PeerAddr      string
	OnlineState   OnlineState
	ReconnectCode string

	SpriteID int32
	Combat   CombatBlock

	Position PlayerMovement

	Inventory [InventorySize]InventorySlot
	Equipment [EquipmentSize]InventorySlot
	Bank      [BankSize]InventorySlot
	Trade     [TradeSize]InventorySlot

	Money uint64

	Using              UsingState
	ItemUseCooldown    time.Time
	MapItemPickupReady time.Time

	Friends []identity.Key
	IsGM    bool
}

func (p *PlayerRecord) SetKey(k identity.Key) { p.Key = k }

type OnlineState uint8

const (
	StateNone OnlineState = iota
	StateAccepted
	StateOnline
)

// PlayerMovement is the movement block of the data model.
type PlayerMovement struct {
	Pos       geom.Position
	SpawnPos  geom.Position
	Direction geom.Direction
}

// UsingAllowed implements data-model invariant 2: using_type is not
// none only while the player is not attacking, not stunned, and alive.
func (p *PlayerRecord) UsingAllowed() bool {
	return !p.Combat.Attacking && !p.Combat.Stunned && !p.Combat.Dead
}

// ---- NPC ----

type TargetKind uint8

const (
	TargetNone TargetKind = iota
	TargetPlayer
	TargetNpc
	TargetMapPos
)

type TargetRecord struct {
	Kind      TargetKind
	Key       identity.Key // player/npc target
	AccountID uint64       // player target only
	MapPos    geom.MapPos
	TargetPos geom.Position
	Timer     time.Time
}

type NpcMode uint8

const (
	ModeNormal NpcMode = iota
	ModePet
	ModeSummon
	ModeBoss
)

// MoveStep is one queued (position, direction) pair.
type MoveStep struct {
	Pos geom.Position
	Dir geom.Direction
}

type NpcMovement struct {
	Direction     geom.Direction
	Moving        bool
	Retreating    bool
	WalkToSpawn   bool
	Moves         []MoveStep
	OverridePos   *geom.Position
}

// HitEntry is one attacker's contribution to the hate ledger.
type HitEntry struct {
	Damage    int32
	Timestamp time.Time
}

// NpcRecord is the NPC entity of the data model.
type NpcRecord struct {
	Key identity.Key

	TemplateID int32

	Pos       geom.Position
	SpawnPos  geom.Position
	SpawnZone int32

	SpawnTimer   time.Time
	DespawnTimer time.Time
	AITimer      time.Time
	PathTimer    time.Time
	PathTries    int
	PathFails    int

	Movement NpcMovement
	Mode     NpcMode

	Target TargetRecord

	Combat   CombatBlock
	Damage   int32
	Defense  int32
	HitBy    map[identity.Key]HitEntry

	Stage npcai.Stage

	// Static behavior flags, copied from the NPC template at spawn.
	Aggressive bool
	Sight      int32
	Range      int32
	AttackWait time.Duration
	MaxShares  int32
	Enemies    []int32 // template ids this NPC treats as hostile
	DropTable  []combat.DropRange
}

func (n *NpcRecord) SetKey(k identity.Key) { n.Key = k }

// ---- Map item ----

type MapItemRecord struct {
	Key identity.Key

	Descriptor protocol.ItemDescriptor
	Pos        geom.Position

	DespawnAt  *time.Time
	OwnerGrace *time.Time
	OwnerAcct  *uint64
}

func (m *MapItemRecord) SetKey(k identity.Key) { m.Key = k }
