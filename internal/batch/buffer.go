package batch

import (
	"github.com/l1jgo/server/internal/protocol"
)

type streamBuf struct {
	id      protocol.ServerPacketID
	records [][]byte
	cap     int
}

// Buffers accumulates records per Token for one map actor's tick and
// seals them into Frames, either on reaching the per-token cap (mid
// tick) or at Flush (end of tick) — spec.md §4.5 "Add task"/"Flush".
// Insertion order within a token is preserved; there is no ordering
// guarantee across tokens (spec.md §4.5 "Ordering").
type Buffers struct {
	caps    Caps
	streams map[Token]*streamBuf
	sealed  []Frame
}

func NewBuffers(caps Caps) *Buffers {
	return &Buffers{caps: caps, streams: make(map[Token]*streamBuf)}
}

// Add appends one encoded record to the token's buffer, sealing and
// resetting the buffer once it reaches the token's cap.
func (b *Buffers) Add(tok Token, id protocol.ServerPacketID, record []byte) {
	s, ok := b.streams[tok]
	if !ok {
		s = &streamBuf{id: id, cap: b.caps.capFor(tok.Kind)}
		b.streams[tok] = s
	}
	s.records = append(s.records, record)
	if len(s.records) >= s.cap {
		b.seal(tok, s)
	}
}

func (b *Buffers) seal(tok Token, s *streamBuf) {
	if len(s.records) == 0 {
		return
	}
	payload := make([]byte, 0, 64*len(s.records))
	for _, r := range s.records {
		payload = append(payload, r...)
	}
	b.sealed = append(b.sealed, Frame{Token: tok, ID: s.id, Count: len(s.records), Payload: payload})
	s.records = s.records[:0]
}

// Flush seals every non-empty buffer and returns all sealed frames
// produced since the previous Flush, clearing internal state.
func (b *Buffers) Flush() []Frame {
	for tok, s := range b.streams {
		b.seal(tok, s)
	}
	out := b.sealed
	b.sealed = nil
	return out
}
