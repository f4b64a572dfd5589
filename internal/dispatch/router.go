package dispatch

import (
	"sync"

	"go.uber.org/zap"

	"github.com/l1jgo/server/internal/data"
	"github.com/l1jgo/server/internal/geom"
	"github.com/l1jgo/server/internal/identity"
	"github.com/l1jgo/server/internal/netio"
	"github.com/l1jgo/server/internal/persist"
	"github.com/l1jgo/server/internal/worldmap"
)

// Router bundles the cross-package handles a HandlerFunc needs to turn
// a decoded client packet into a message on the owning map actor's
// mailbox (spec.md §4.7 "push a typed work message"). It is built once
// at boot by cmd/l1jgoworld and shared read-only by every session's
// dispatch goroutine; the only mutable state it owns directly
// (accountOnline) is guarded by its own mutex.
type Router struct {
	Senders    map[geom.MapPos]chan<- worldmap.Incoming
	Ident      *identity.Registry
	NetReg     *netio.Registry
	Hs         *netio.Handshakes
	Accounts   *persist.AccountRepo
	Characters *persist.CharacterRepo
	Items      *persist.ItemRepo
	Logs       *persist.LogRepo
	Shops      *data.ShopTable

	ServerID int

	SpawnMap geom.MapPos
	SpawnPos geom.Position
	VitalMax [3]int32

	Log *zap.Logger

	mu            sync.Mutex
	accountOnline map[uint64]uint64 // accountID -> sessionID
}

func NewRouter(senders map[geom.MapPos]chan<- worldmap.Incoming, ident *identity.Registry, netReg *netio.Registry, hs *netio.Handshakes, accounts *persist.AccountRepo, characters *persist.CharacterRepo, items *persist.ItemRepo, logs *persist.LogRepo, shops *data.ShopTable, serverID int, spawnMap geom.MapPos, spawnPos geom.Position, vitalMax [3]int32, log *zap.Logger) *Router {
	return &Router{
		Senders:       senders,
		Ident:         ident,
		NetReg:        netReg,
		Hs:            hs,
		Accounts:      accounts,
		Characters:    characters,
		Items:         items,
		Logs:          logs,
		Shops:         shops,
		ServerID:      serverID,
		SpawnMap:      spawnMap,
		SpawnPos:      spawnPos,
		VitalMax:      vitalMax,
		Log:           log,
		accountOnline: make(map[uint64]uint64),
	}
}

// RouteTo enqueues msg on the mailbox owning pos, if that map is known
// to this install. Mirrors worldmap.Actor.sendTo, exported for dispatch
// since a handler's source map is the one named by the packet, not a
// neighbor an actor already holds a sender for.
func (rt *Router) RouteTo(pos geom.MapPos, msg worldmap.Incoming) bool {
	ch, ok := rt.Senders[pos]
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

// OwningMap resolves a session's bound entity to its current map via
// the identity registry's advisory directory (spec.md §4.2).
func (rt *Router) OwningMap(sess *netio.Session) (geom.MapPos, bool) {
	if sess.EntityKey == 0 {
		return geom.MapPos{}, false
	}
	return rt.Ident.Owner(identity.DecodeKey(sess.EntityKey))
}

// MarkOnline/MarkOffline implement the MultiLogin check of spec.md §7:
// a second login for an account already bound to a live session is
// rejected rather than silently displacing the first.
func (rt *Router) MarkOnline(accountID, sessionID uint64) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if _, ok := rt.accountOnline[accountID]; ok {
		return false
	}
	rt.accountOnline[accountID] = sessionID
	return true
}

func (rt *Router) MarkOffline(accountID uint64) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	delete(rt.accountOnline, accountID)
}
