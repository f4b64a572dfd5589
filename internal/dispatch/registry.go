// Package dispatch is Login/Dispatch (spec.md §4.7 "G"): a
// client-packet-id to handler registry, state-gated the way the
// teacher's internal/net/packet.Registry gates opcodes, forwarding
// validated work to the owning map actor's mailbox instead of mutating
// a shared world.State directly.
package dispatch

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/l1jgo/server/internal/errs"
	"github.com/l1jgo/server/internal/netio"
	"github.com/l1jgo/server/internal/protocol"
)

// HandlerFunc handles one decoded client packet for one session.
type HandlerFunc func(ctx *Router, sess *netio.Session, r *protocol.Reader) error

type handlerEntry struct {
	fn      HandlerFunc
	allowed map[netio.State]bool
}

// Registry maps client packet ids to handlers with per-state allow-lists.
type Registry struct {
	handlers map[protocol.ClientPacketID]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{handlers: make(map[protocol.ClientPacketID]*handlerEntry), log: log}
}

func (reg *Registry) Register(id protocol.ClientPacketID, states []netio.State, fn HandlerFunc) {
	allowed := make(map[netio.State]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[id] = &handlerEntry{fn: fn, allowed: allowed}
}

// Dispatch looks up the handler for the frame's packet id, checks the
// session's current state, and calls it with a panic barrier so one
// malformed packet can't take down the whole session-handling
// goroutine (spec.md §7 "PacketManipulation"/"InvalidPacket"). A
// handler error whose kind is errs.Fatal closes the session.
func (reg *Registry) Dispatch(ctx *Router, sess *netio.Session, body []byte) error {
	r := protocol.NewReader(body)
	id := r.PacketID()

	entry, ok := reg.handlers[id]
	if !ok {
		reg.log.Debug("unknown packet id", zap.Uint16("id", uint16(id)), zap.Uint64("session", sess.ID))
		return nil
	}
	state := sess.State()
	if !entry.allowed[state] {
		reg.log.Warn("packet not allowed in current state",
			zap.Uint16("id", uint16(id)), zap.Int32("state", int32(state)), zap.Uint64("session", sess.ID))
		return nil
	}
	err := reg.safeCall(ctx, sess, entry.fn, r, id)
	var e *errs.Error
	if errors.As(err, &e) && errs.Fatal(e.Kind) {
		sess.Close()
	}
	return err
}

func (reg *Registry) safeCall(ctx *Router, sess *netio.Session, fn HandlerFunc, r *protocol.Reader, id protocol.ClientPacketID) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("handler panic recovered", zap.Uint16("id", uint16(id)), zap.Any("panic", rec))
			err = fmt.Errorf("handler panic for packet %d: %v", id, rec)
		}
	}()
	return fn(ctx, sess, r)
}
