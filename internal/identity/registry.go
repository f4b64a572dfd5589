// Package identity implements the Identity Registry (spec.md §4.2): a
// single actor that allocates generation-tagged global keys, remembers
// each key's EntityKind, and routes spawn requests to the destination
// map's mailbox. Grounded on original_source/src/identity/actor.rs
// (IDActor.runner) and identity/keys.rs (GlobalKey/ClaimsKey), adapted
// to the teacher's goroutine-plus-channel actor idiom instead of a
// slotmap crate.
package identity

import (
	"golang.org/x/sync/singleflight"

	"go.uber.org/zap"

	"github.com/l1jgo/server/internal/geom"
)

// EntityKind classifies a live key.
type EntityKind uint8

const (
	KindPlayer EntityKind = iota
	KindNpc
	KindMapItem
)

// Key is the opaque 64-bit handle with a generation counter (data
// model §3): a reused slot index compares unequal across generations.
type Key struct {
	Index uint32
	Gen   uint32
}

// Encode packs Key into the u64 wire representation (spec.md §6 scalar
// encoding: little-endian multi-byte scalars).
func (k Key) Encode() uint64 {
	return uint64(k.Gen)<<32 | uint64(k.Index)
}

func DecodeKey(v uint64) Key {
	return Key{Index: uint32(v), Gen: uint32(v >> 32)}
}

func (k Key) IsZero() bool { return k == Key{} }

type slot struct {
	kind EntityKind
	used bool
	gen  uint32
}

// MapSender forwards a spawn message to the destination map's mailbox.
// The live implementation is dispatch.MapSenderAdapter, which writes
// into the map actors' mailbox channels; it is expressed
// as an interface here to avoid an import cycle between identity and
// worldmap (worldmap depends on identity.Key, not the reverse).
type MapSender interface {
	SendSpawnNpc(dest geom.MapPos, msg any) error
	SendSpawnPlayer(dest geom.MapPos, msg any) error
	SendSpawnMapItem(dest geom.MapPos, msg any) error
}

// RequestNpcSpawn, RequestPlayerSpawn, RequestItemSpawn, RemoveEntity
// are the four request messages from spec.md §4.2.
type RequestNpcSpawn struct {
	SpawnMap geom.MapPos
	Npc      any // *worldmap.NpcRecord, stamped with the allocated key
	Claim    any // optional claims.Key carried through to the destination
}

type RequestPlayerSpawn struct {
	SpawnMap geom.MapPos
	Player   any // *worldmap.PlayerRecord
}

type RequestItemSpawn struct {
	SpawnMap geom.MapPos
	Item     any // *worldmap.MapItemRecord
	Claim    any
}

type RemoveEntity struct {
	Key Key
}

type request struct {
	npcSpawn    *RequestNpcSpawn
	playerSpawn *RequestPlayerSpawn
	itemSpawn   *RequestItemSpawn
	remove      *RemoveEntity
	ownerUpdate *noteOwner
	ownerQuery  *ownerQuery
	stampedKey  chan Key // returns the allocated key to the caller, if any
}

// Registry is the single-writer actor owning the key table and the
// advisory key→MapPos directory (data model §3: "updates to that
// directory are causally ordered after the owning map has accepted
// the entity").
type Registry struct {
	slots    []slot
	freeList []uint32
	owner    map[Key]geom.MapPos // advisory directory

	inbox  chan request
	sender MapSender
	log    *zap.Logger

	sg singleflight.Group // collapses concurrent directory lookups
}

func New(sender MapSender, mailboxSize int, log *zap.Logger) *Registry {
	return &Registry{
		owner:  make(map[Key]geom.MapPos),
		inbox:  make(chan request, mailboxSize),
		sender: sender,
		log:    log,
	}
}

// Run is the actor's single goroutine loop; it owns slots/owner and
// must never be called concurrently with itself.
func (r *Registry) Run(stop <-chan struct{}) {
	for {
		select {
		case req := <-r.inbox:
			r.handle(req)
		case <-stop:
			return
		}
	}
}

func (r *Registry) handle(req request) {
	switch {
	case req.npcSpawn != nil:
		r.spawnNpc(req)
	case req.playerSpawn != nil:
		r.spawnPlayer(req)
	case req.itemSpawn != nil:
		r.spawnItem(req)
	case req.remove != nil:
		r.removeKey(req.remove.Key)
	case req.ownerUpdate != nil:
		r.owner[req.ownerUpdate.k] = req.ownerUpdate.key
	case req.ownerQuery != nil:
		pos, ok := r.owner[req.ownerQuery.key]
		req.ownerQuery.reply <- ownerResult{pos, ok}
	}
}

func (r *Registry) alloc(kind EntityKind) Key {
	if n := len(r.freeList); n > 0 {
		idx := r.freeList[n-1]
		r.freeList = r.freeList[:n-1]
		r.slots[idx].used = true
		r.slots[idx].kind = kind
		r.slots[idx].gen++
		return Key{Index: idx, Gen: r.slots[idx].gen}
	}
	idx := uint32(len(r.slots))
	r.slots = append(r.slots, slot{kind: kind, used: true, gen: 1})
	return Key{Index: idx, Gen: 1}
}

func (r *Registry) freeSlot(k Key) {
	if int(k.Index) >= len(r.slots) {
		return
	}
	s := &r.slots[k.Index]
	if !s.used || s.gen != k.Gen {
		return
	}
	s.used = false
	r.freeList = append(r.freeList, k.Index)
	delete(r.owner, k)
}

// spawnNpc, spawnPlayer, spawnItem implement the spawn protocol of
// spec.md §4.2: allocate a key, stamp it, forward to the destination
// map; on forwarding failure, remove the key and log.
func (r *Registry) spawnNpc(req request) {
	k := r.alloc(KindNpc)
	if stampKey(req.npcSpawn.Npc, k) {
		if err := r.sender.SendSpawnNpc(req.npcSpawn.SpawnMap, req.npcSpawn.Npc); err != nil {
			r.log.Warn("npc could not be routed to map, releasing key",
				zap.Any("map", req.npcSpawn.SpawnMap), zap.Error(err))
			r.freeSlot(k)
		}
	}
	if req.stampedKey != nil {
		req.stampedKey <- k
	}
}

func (r *Registry) spawnPlayer(req request) {
	k := r.alloc(KindPlayer)
	if stampKey(req.playerSpawn.Player, k) {
		if err := r.sender.SendSpawnPlayer(req.playerSpawn.SpawnMap, req.playerSpawn.Player); err != nil {
			r.log.Warn("player could not be routed to map, releasing key",
				zap.Any("map", req.playerSpawn.SpawnMap), zap.Error(err))
			r.freeSlot(k)
		}
	}
	if req.stampedKey != nil {
		req.stampedKey <- k
	}
}

func (r *Registry) spawnItem(req request) {
	k := r.alloc(KindMapItem)
	if stampKey(req.itemSpawn.Item, k) {
		if err := r.sender.SendSpawnMapItem(req.itemSpawn.SpawnMap, req.itemSpawn.Item); err != nil {
			r.log.Warn("map item could not be routed to map, releasing key",
				zap.Any("map", req.itemSpawn.SpawnMap), zap.Error(err))
			r.freeSlot(k)
		}
	}
	if req.stampedKey != nil {
		req.stampedKey <- k
	}
}

func (r *Registry) removeKey(k Key) {
	r.freeSlot(k)
}

// stampable lets callers provide their own entity record types without
// identity importing worldmap.
type stampable interface {
	SetKey(Key)
}

func stampKey(v any, k Key) bool {
	s, ok := v.(stampable)
	if !ok {
		return false
	}
	s.SetKey(k)
	return true
}

// SpawnNpc, SpawnPlayer, SpawnItem are the client-facing entry points;
// they block until the key has been allocated (not until the map has
// accepted the entity — that happens asynchronously on the map actor).
func (r *Registry) SpawnNpc(spawnMap geom.MapPos, npc stampable, claim any) Key {
	reply := make(chan Key, 1)
	r.inbox <- request{npcSpawn: &RequestNpcSpawn{SpawnMap: spawnMap, Npc: npc, Claim: claim}, stampedKey: reply}
	return <-reply
}

func (r *Registry) SpawnPlayer(spawnMap geom.MapPos, player stampable) Key {
	reply := make(chan Key, 1)
	r.inbox <- request{playerSpawn: &RequestPlayerSpawn{SpawnMap: spawnMap, Player: player}, stampedKey: reply}
	return <-reply
}

func (r *Registry) SpawnItem(spawnMap geom.MapPos, item stampable, claim any) Key {
	reply := make(chan Key, 1)
	r.inbox <- request{itemSpawn: &RequestItemSpawn{SpawnMap: spawnMap, Item: item, Claim: claim}, stampedKey: reply}
	return <-reply
}

func (r *Registry) Remove(k Key) {
	r.inbox <- request{remove: &RemoveEntity{Key: k}}
}

// noteOwner is the advisory directory update sent by a map actor once
// it accepts an entity (design notes: "the registry's key→map
// directory is advisory, not authoritative" — the authoritative owner
// is whichever map actor currently holds the entity in its tables).
type noteOwner struct {
	key geom.MapPos
	k   Key
}

// ownerQuery is a dedicated request variant (not spawn/remove) so a
// directory lookup never races a spawn decision on the same inbox.
type ownerQuery struct {
	key   Key
	reply chan ownerResult
}

type ownerResult struct {
	pos geom.MapPos
	ok  bool
}

// UpdateOwner records where k now lives, routed through the registry's
// single goroutine so r.owner has exactly one writer.
func (r *Registry) UpdateOwner(k Key, pos geom.MapPos) {
	r.inbox <- request{ownerUpdate: &noteOwner{key: pos, k: k}}
}

// Owner looks up the advisory current map for k. Concurrent lookups of
// the same key collapse into a single inbox round-trip via
// singleflight, so a burst of routing decisions about one key doesn't
// flood the registry's mailbox.
func (r *Registry) Owner(k Key) (geom.MapPos, bool) {
	v, _, _ := r.sg.Do(k.Encode0(), func() (any, error) {
		reply := make(chan ownerResult, 1)
		r.inbox <- request{ownerQuery: &ownerQuery{key: k, reply: reply}}
		return <-reply, nil
	})
	res := v.(ownerResult)
	return res.pos, res.ok
}

// Encode0 gives singleflight a stable string key without colliding
// across different (Index, Gen) pairs.
func (k Key) Encode0() string {
	var b [16]byte
	putU32(b[0:4], k.Index)
	putU32(b[4:8], k.Gen)
	return string(b[:8])
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
