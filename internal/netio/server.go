package netio

import (
	"net"
	"sync/atomic"

	"go.uber.org/zap"
)

// Server accepts TCP connections and hands new/dead sessions to
// dispatch over channels, mirroring the teacher's accept-loop shape
// (internal/net.Server) with the cipher/init-packet handshake removed
// in favor of spec.md §6's plain framing.
type Server struct {
	listener net.Listener
	nextID   atomic.Uint64
	newConns chan *Session
	deadCh   chan uint64

	inSize, outSize, maxFrame, growTo, shrinkTo int

	log     *zap.Logger
	closeCh chan struct{}
}

func NewServer(bindAddr string, inSize, outSize, maxFrame, growTo, shrinkTo int, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: ln,
		newConns: make(chan *Session, 64),
		deadCh:   make(chan uint64, 64),
		inSize:   inSize,
		outSize:  outSize,
		maxFrame: maxFrame,
		growTo:   growTo,
		shrinkTo: shrinkTo,
		log:      log,
		closeCh:  make(chan struct{}),
	}, nil
}

func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}

		id := s.nextID.Add(1)
		sess := NewSession(conn, id, s.inSize, s.outSize, s.maxFrame, s.growTo, s.shrinkTo, s.log)
		sess.Start()

		s.log.Info("connection accepted", zap.Uint64("session", id), zap.String("ip", sess.IP))

		select {
		case s.newConns <- sess:
		default:
			s.log.Warn("connection queue full, rejecting new connection")
			sess.Close()
		}
	}
}

func (s *Server) NewSessions() <-chan *Session { return s.newConns }
func (s *Server) NotifyDead(id uint64) {
	select {
	case s.deadCh <- id:
	default:
	}
}
func (s *Server) DeadSessions() <-chan uint64 { return s.deadCh }

func (s *Server) Shutdown() {
	close(s.closeCh)
	s.listener.Close()
}

func (s *Server) Addr() net.Addr { return s.listener.Addr() }
