package worldmap

import (
	"github.com/l1jgo/server/internal/geom"
	"github.com/l1jgo/server/internal/identity"
)

// BroadcastKind enumerates the global-bus event kinds of spec.md §4.1.
type BroadcastKind uint8

const (
	BroadcastPlayerLoggedIn BroadcastKind = iota
	BroadcastPlayerLoggedOut
	BroadcastPlayerMessage
	BroadcastMovePlayer
	BroadcastTimeUpdate
	BroadcastSendPacketToAll
)

// Broadcast is one global-bus event. It is multi-producer,
// multi-subscriber, and lossy: a slow subscriber drops events rather
// than apply backpressure to the producer (spec.md §5 "shared resources").
type Broadcast struct {
	Kind    BroadcastKind
	Key     identity.Key
	Text    string
	Pos     geom.Position
	Minutes int32
	Packet  []byte
}

// Bus fans Broadcasts out to every subscribed map actor. Each
// subscriber owns a bounded channel; Publish never blocks — a full
// subscriber channel just drops the event, which is acceptable for
// purely informational streams (spec.md §5).
type Bus struct {
	subs []chan Broadcast
}

func NewBus() *Bus { return &Bus{} }

func (b *Bus) Subscribe(bufSize int) <-chan Broadcast {
	ch := make(chan Broadcast, bufSize)
	b.subs = append(b.subs, ch)
	return ch
}

func (b *Bus) Publish(ev Broadcast) {
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
