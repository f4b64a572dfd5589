// Package netio is the Session Layer (spec.md §4.6 "F"): per-connection
// framing, handshake/reconnect, and socket-to-entity binding. Grounded
// on the teacher's internal/net.Session (reader/writer goroutine pair,
// queue-based backpressure) with the Taiwan-client cipher dropped (see
// DESIGN.md) in favor of spec.md §6's plain length-prefixed frames.
package netio

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/server/internal/geom"
	"github.com/l1jgo/server/internal/protocol"
)

// State is the session's protocol phase, distinct from
// worldmap.OnlineState (which tracks the entity, not the socket): a
// session can be Accepted (TCP open, awaiting handshake) before any
// entity exists to attach to.
type State int32

const (
	StateHandshake State = iota
	StateAccepted
	StateOnline
	StateDisconnecting
)

// Session is one accepted TCP connection. Network I/O runs in its own
// reader/writer goroutines (spec.md §4.6); game state is touched only
// from map actor goroutines, reached via InQueue/dispatch.
type Session struct {
	ID   uint64
	conn net.Conn

	state atomic.Int32

	InQueue  chan []byte
	OutQueue chan []byte

	IP string

	// AccountID/EntityKey are set once the session is promoted past the
	// handshake; zero value means "not yet bound".
	AccountID uint64
	EntityKey uint64 // identity.Key encoded via identity.Key.Encode()

	HandshakeCode  string
	ReconnectCode  string
	JoinDeadline   time.Time

	// CurrentPos/CurrentDir cache the entity's last-known authoritative
	// position so dispatch (internal/dispatch) can compute a Move
	// packet's destination without round-tripping to the owning map
	// actor (spec.md §4.7: the map is still the sole authority and may
	// reject the computed step).
	CurrentPos geom.Position
	CurrentDir geom.Direction

	recvBuf []byte // grown/shrunk per spec.md §4.6 "auto-grows ... reclaims"
	growTo  int
	shrinkTo int
	maxFrame int

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	log *zap.Logger
}

func NewSession(conn net.Conn, id uint64, inSize, outSize, maxFrame, growTo, shrinkTo int, log *zap.Logger) *Session {
	s := &Session{
		ID:       id,
		conn:     conn,
		InQueue:  make(chan []byte, inSize),
		OutQueue: make(chan []byte, outSize),
		IP:       conn.RemoteAddr().String(),
		maxFrame: maxFrame,
		growTo:   growTo,
		shrinkTo: shrinkTo,
		closeCh:  make(chan struct{}),
		log:      log.With(zap.Uint64("session", id)),
	}
	s.state.Store(int32(StateHandshake))
	s.recvBuf = make([]byte, 0, shrinkTo)
	return s
}

func (s *Session) State() State        { return State(s.state.Load()) }
func (s *Session) SetState(st State)   { s.state.Store(int32(st)) }
func (s *Session) IsClosed() bool      { return s.closed.Load() }

// Start launches the reader and writer goroutines. The handshake code
// and join timer are armed by the dispatch layer once it knows the
// account (spec.md §4.6 "Handshake"), not here.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send queues an already-encoded frame body for sending. Non-blocking:
// a full OutQueue disconnects the session rather than letting a slow
// client stall the map actor that produced the frame.
func (s *Session) Send(body []byte) {
	if s.closed.Load() {
		return
	}
	select {
	case s.OutQueue <- body:
	default:
		s.log.Warn("output queue full, dropping slow connection")
		s.Close()
	}
}

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(StateDisconnecting)
		close(s.closeCh)
		s.conn.Close()
	})
}

// readLoop decodes frames per spec.md §6 (u64 length_le || body) and
// pushes bodies onto InQueue for dispatch to consume. A violation
// (oversize/zero length) terminates the connection, per spec.md §7.
func (s *Session) readLoop() {
	defer s.Close()

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		body, err := protocol.ReadFrame(s.conn, s.maxFrame)
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("frame read error", zap.Error(err))
			}
			return
		}
		s.trackRecvBuffer(len(body))

		select {
		case s.InQueue <- body:
		case <-s.closeCh:
			return
		}
	}
}

// trackRecvBuffer implements spec.md §4.6's auto-grow/reclaim rule: a
// frame larger than the buffer but no larger than growTo grows the
// buffer to the frame's size; a frame of at most shrinkTo bytes reclaims
// a buffer larger than shrinkTo back down to shrinkTo.
func (s *Session) trackRecvBuffer(n int) {
	if cap(s.recvBuf) < n && n <= s.growTo {
		s.recvBuf = make([]byte, 0, n)
		return
	}
	if cap(s.recvBuf) > s.shrinkTo && n <= s.shrinkTo {
		s.recvBuf = make([]byte, 0, s.shrinkTo)
	}
}

func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case body := <-s.OutQueue:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := protocol.WriteFrame(s.conn, body); err != nil {
				if !s.closed.Load() {
					s.log.Debug("frame write error", zap.Error(err))
				}
				return
			}
		case <-s.closeCh:
			return
		}
	}
}
