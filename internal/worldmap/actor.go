package worldmap

import (
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/server/internal/batch"
	"github.com/l1jgo/server/internal/geom"
	"github.com/l1jgo/server/internal/identity"
	"github.com/l1jgo/server/internal/protocol"
)

// Sink delivers sealed batch frames to sessions. The nine-ring fanout
// and point-to-entity delivery (spec.md §4.5 "Flush") are implemented
// by the caller (internal/netio), since only that layer knows the
// live socket set; worldmap just knows which players are on which
// map.
type Sink interface {
	// DeliverRing sends a frame to every player whose current map is
	// within the nine-ring of origin.
	DeliverRing(origin geom.MapPos, frame batch.Frame)
	// DeliverTo sends a frame to exactly one socket.
	DeliverTo(socket uint64, frame batch.Frame)
}

// Config bundles the actor's tunables (spec.md §4.1 "target cadence",
// §5 mailbox sizing, §4.3 claim grace).
type Config struct {
	TickFloor       time.Duration
	MailboxSize     int
	ClaimGrace      time.Duration
	NineRingCorners bool
	BatchCaps       batch.Caps
	AStarNodeBudget int
	AttackWaitDefault time.Duration
	DeathRespawnDelay time.Duration
}

// Actor is the Map Actor of spec.md §4.1: the single writer of every
// entity on one map-group. Grounded on
// original_source/src/maps/actor.rs's MapActor (tick/ownership shape)
// and the teacher's goroutine-per-connection idiom generalized to
// goroutine-per-map.
type Actor struct {
	Pos  geom.MapPos
	Grid *Grid

	Players map[identity.Key]*PlayerRecord
	Npcs    map[identity.Key]*NpcRecord
	Items   map[identity.Key]*MapItemRecord

	Claims   *ClaimTable
	Spawners []*SpawnRule

	// Portals maps a source tile on this map to its instant-teleport
	// destination (internal/data.PortalTable, keyed per map-group).
	// Stepping onto a portal tile overrides the just-completed move's
	// destination before the next tick, same as any other cross-map
	// handoff (spec.md §4.1/§4.3).
	Portals map[geom.Position]geom.Position

	mailbox chan Incoming
	bus     *Bus
	busRecv <-chan Broadcast

	senders map[geom.MapPos]chan<- Incoming // immutable after boot
	sink    Sink
	reg     *identity.Registry

	out *batch.Buffers

	pendingClaims map[identity.Key]pendingClaim

	cfg Config
	log *zap.Logger

	stop chan struct{}
}

type pendingClaim struct {
	dest    geom.Position
	dir     geom.Direction
	kind    MoverKind
	reply   chan ClaimGranted
	started time.Time
}

func NewActor(pos geom.MapPos, grid *Grid, cfg Config, bus *Bus, senders map[geom.MapPos]chan<- Incoming, sink Sink, reg *identity.Registry, log *zap.Logger) *Actor {
	return &Actor{
		Pos:           pos,
		Grid:          grid,
		Players:       make(map[identity.Key]*PlayerRecord),
		Npcs:          make(map[identity.Key]*NpcRecord),
		Items:         make(map[identity.Key]*MapItemRecord),
		Claims:        NewClaimTable(),
		mailbox:       make(chan Incoming, cfg.MailboxSize),
		bus:           bus,
		busRecv:       bus.Subscribe(cfg.MailboxSize),
		senders:       senders,
		sink:          sink,
		reg:           reg,
		out:           batch.NewBuffers(cfg.BatchCaps),
		pendingClaims: make(map[identity.Key]pendingClaim),
		cfg:           cfg,
		log:           log.With(zap.Int32("mx", pos.MX), zap.Int32("my", pos.MY), zap.Int32("group", pos.Group)),
		stop:          make(chan struct{}),
	}
}

// Mailbox returns the send side used by other actors/the identity
// registry/dispatch to enqueue work for this map.
func (a *Actor) Mailbox() chan<- Incoming { return a.mailbox }

func (a *Actor) Stop() { close(a.stop) }

// Run is the actor's tick loop (spec.md §4.1): drain a bounded batch
// of incoming messages, advance spawners, advance NPCs one stage each,
// advance per-player timers, flush batched packets, yield. The actor
// makes forward progress even with an empty mailbox, via the tick
// floor ticker.
func (a *Actor) Run() {
	ticker := time.NewTicker(a.cfg.TickFloor)
	defer ticker.Stop()

	for {
		select {
		case <-a.stop:
			return
		case msg := <-a.mailbox:
			a.handleMessage(msg)
			a.drainMailbox()
			a.tick()
		case ev := <-a.busRecv:
			a.handleBroadcast(ev)
		case <-ticker.C:
			a.tick()
		}
	}
}

// drainMailbox processes whatever is immediately available without
// blocking, bounding the per-pass work (spec.md §4.1 step (b)).
func (a *Actor) drainMailbox() {
	for i := 0; i < a.cfg.MailboxSize; i++ {
		select {
		case msg := <-a.mailbox:
			a.handleMessage(msg)
		default:
			return
		}
	}
}

func (a *Actor) tick() {
	now := time.Now()

	a.reapExpiredClaims(now)
	a.advanceSpawners(now)
	a.dropAdvance(now)
	a.advanceNpcs(now)
	a.advancePlayerTimers(now)

	for _, frame := range a.out.Flush() {
		if frame.Token.Kind.PointToEntity() {
			a.sink.DeliverTo(frame.Token.Socket, frame)
		} else {
			a.sink.DeliverRing(a.Pos, frame)
		}
	}
}

func (a *Actor) reapExpiredClaims(now time.Time) {
	for _, tile := range a.Claims.Reap(now) {
		t := a.Grid.At(tile.X, tile.Y)
		t.Claim = ClaimsKey{}
	}
	for key, pc := range a.pendingClaims {
		if now.Sub(pc.started) > a.cfg.ClaimGrace {
			delete(a.pendingClaims, key)
		}
	}
}

func (a *Actor) handleBroadcast(ev Broadcast) {
	switch ev.Kind {
	case BroadcastTimeUpdate:
		// Ambient world-clock tick; nothing to mutate locally. No
		// session-layer component subscribes to the bus.
	case BroadcastPlayerLoggedOut, BroadcastPlayerLoggedIn:
		// Purely informational for other maps (e.g. friends-online list);
		// no local mutation required.
	}
}

func (a *Actor) handleMessage(msg Incoming) {
	switch {
	case msg.SpawnNpc != nil:
		a.onSpawnNpc(msg.SpawnNpc)
	case msg.SpawnMapItem != nil:
		a.onSpawnMapItem(msg.SpawnMapItem)
	case msg.SpawnPlayer != nil:
		a.onSpawnPlayer(msg.SpawnPlayer)
	case msg.VerifyPlayerMove != nil:
		a.onVerifyPlayerMove(msg.VerifyPlayerMove)
	case msg.PlayerMessage != nil:
		a.onPlayerMessage(msg.PlayerMessage)
	case msg.AskClaim != nil:
		a.onAskClaim(msg.AskClaim)
	case msg.Commit != nil:
		a.onCommit(msg.Commit)
	case msg.RequestItemDrop != nil:
		a.onRequestItemDrop(msg.RequestItemDrop)
	case msg.DropItemCommit != nil:
		a.onDropItemCommit(msg.DropItemCommit)
	case msg.ApplyDamage != nil:
		a.onApplyDamage(msg.ApplyDamage)
	case msg.RequestPlayerAttack != nil:
		a.onRequestPlayerAttack(msg.RequestPlayerAttack)
	case msg.ShopBuy != nil:
		a.onShopBuy(msg.ShopBuy)
	case msg.ShopSell != nil:
		a.onShopSell(msg.ShopSell)
	case msg.BlockUpdate != nil:
		a.onBlockUpdate(msg.BlockUpdate)
	case msg.SnapshotRequest != nil:
		a.onSnapshotRequest(msg.SnapshotRequest)
	}
}

func (a *Actor) onBlockUpdate(m *BlockUpdate) {
	t := a.Grid.At(m.X, m.Y)
	t.Attribute = m.Attr
}

func (a *Actor) onSnapshotRequest(m *SnapshotRequest) {
	snap := MapSnapshot{Pos: a.Pos}
	for _, p := range a.Players {
		snap.Players = append(snap.Players, *p)
	}
	for _, n := range a.Npcs {
		snap.Npcs = append(snap.Npcs, *n)
	}
	select {
	case m.ReplyTo <- snap:
	default:
	}
}

func (a *Actor) onPlayerMessage(m *PlayerMessageMsg) {
	// Chat fanout is handled by the batcher (token KindChatMsg); the
	// caller (dispatch) already validated length and folded width.
	a.out.Add(batch.Token{Map: a.Pos, Kind: batch.KindChatMsg}, protocol.SChatMsg, encodeChat(m.From, m.Text))
}

// sendTo routes a message to the mailbox owning dest, if known.
func (a *Actor) sendTo(dest geom.MapPos, msg Incoming) bool {
	ch, ok := a.senders[dest]
	if !ok {
		return false
	}
	select {
	case ch <- msg:
		return true
	default:
		return false
	}
}

// ring returns this map plus its eight neighbors (glossary:
// "surrounding / nine-ring").
func (a *Actor) ring() []geom.MapPos {
	return geom.Ring(a.Pos, a.cfg.NineRingCorners)
}
