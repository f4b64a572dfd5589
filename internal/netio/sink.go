package netio

import (
	"encoding/binary"

	"go.uber.org/zap"

	"github.com/l1jgo/server/internal/batch"
	"github.com/l1jgo/server/internal/geom"
)

// Sink implements worldmap.Sink: it owns the only code in the server
// that knows the live socket set, so the nine-ring fanout and
// point-to-entity delivery both live here rather than in worldmap
// (see the worldmap.Sink doc comment).
type Sink struct {
	reg             *Registry
	nineRingCorners bool
	log             *zap.Logger
}

func NewSink(reg *Registry, nineRingCorners bool, log *zap.Logger) *Sink {
	return &Sink{reg: reg, nineRingCorners: nineRingCorners, log: log}
}

// encode builds the wire body for a sealed frame: u16 packet id, u16
// record count, then the concatenated records (spec.md §4.5 "a length
// prefix, a kind id, a count, then the records" — the outer length
// prefix is added by protocol.WriteFrame in the session writer).
func encode(f batch.Frame) []byte {
	body := make([]byte, 4, 4+len(f.Payload))
	binary.LittleEndian.PutUint16(body[0:2], uint16(f.ID))
	binary.LittleEndian.PutUint16(body[2:4], uint16(f.Count))
	body = append(body, f.Payload...)
	return body
}

func (s *Sink) DeliverRing(origin geom.MapPos, frame batch.Frame) {
	body := encode(frame)
	for _, mp := range geom.Ring(origin, s.nineRingCorners) {
		for _, sock := range s.reg.SocketsOn(mp) {
			if sess, ok := s.reg.Get(sock); ok {
				sess.Send(body)
			}
		}
	}
}

func (s *Sink) DeliverTo(socket uint64, frame batch.Frame) {
	sess, ok := s.reg.Get(socket)
	if !ok {
		return
	}
	sess.Send(encode(frame))
}
