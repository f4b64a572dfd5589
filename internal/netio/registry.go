package netio

import (
	"sync"

	"github.com/l1jgo/server/internal/geom"
)

// Registry is the live socket set the Sink implementation fans frames
// out over: which socket is on which map, so DeliverRing only walks
// sockets actually in the nine-ring, and DeliverTo can find one socket
// by id directly. Grounded on the teacher's internal/net.Server session
// map, generalized with a map-membership index since spec.md's Sink
// fans out per-map rather than globally.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uint64]*Session
	byMap    map[geom.MapPos]map[uint64]struct{}
	socketMap map[uint64]geom.MapPos
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:  make(map[uint64]*Session),
		byMap:     make(map[geom.MapPos]map[uint64]struct{}),
		socketMap: make(map[uint64]geom.MapPos),
	}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

func (r *Registry) Remove(socket uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, socket)
	if mp, ok := r.socketMap[socket]; ok {
		delete(r.byMap[mp], socket)
		if len(r.byMap[mp]) == 0 {
			delete(r.byMap, mp)
		}
		delete(r.socketMap, socket)
	}
}

// SetMap records which map a socket's entity currently resides on,
// moving its membership out of any previous map (spec.md §4.1: a
// player belongs to exactly one map actor at a time).
func (r *Registry) SetMap(socket uint64, mp geom.MapPos) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.socketMap[socket]; ok {
		delete(r.byMap[prev], socket)
		if len(r.byMap[prev]) == 0 {
			delete(r.byMap, prev)
		}
	}
	if r.byMap[mp] == nil {
		r.byMap[mp] = make(map[uint64]struct{})
	}
	r.byMap[mp][socket] = struct{}{}
	r.socketMap[socket] = mp
}

func (r *Registry) Get(socket uint64) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[socket]
	return s, ok
}

// SocketsOn returns the sockets currently attached to a map.
func (r *Registry) SocketsOn(mp geom.MapPos) []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uint64, 0, len(r.byMap[mp]))
	for sock := range r.byMap[mp] {
		out = append(out, sock)
	}
	return out
}

// All returns every live session, regardless of map membership. Used
// by the game clock's server-wide keepalive ping, which is not a
// per-map concern.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
