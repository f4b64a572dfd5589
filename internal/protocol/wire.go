package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/l1jgo/server/internal/geom"
)

// Reader decodes scalars from a packet body. Byte layout follows
// spec.md §6: little-endian multi-byte scalars, 1-byte bools,
// u64-length-prefixed variable fields, a 1-byte discriminant before
// optional payloads, 1-byte enum ordinals.
type Reader struct {
	data []byte
	off  int
}

// NewReader wraps a body whose first 2 bytes are the packet id; the
// cursor starts past them.
func NewReader(body []byte) *Reader {
	return &Reader{data: body, off: 2}
}

func (r *Reader) PacketID() ClientPacketID {
	if len(r.data) < 2 {
		return 0
	}
	return ClientPacketID(binary.LittleEndian.Uint16(r.data))
}

func (r *Reader) Remaining() int { return len(r.data) - r.off }

func (r *Reader) need(n int) error {
	if r.off+n > len(r.data) {
		return fmt.Errorf("short read: need %d, have %d", n, r.Remaining())
	}
	return nil
}

func (r *Reader) U8() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.off]
	r.off++
	return v, nil
}

func (r *Reader) Bool() (bool, error) {
	v, err := r.U8()
	return v != 0, err
}

func (r *Reader) U16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v, nil
}

func (r *Reader) I16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

func (r *Reader) U32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

func (r *Reader) U64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v, nil
}

// String reads a u64-length-prefixed UTF-8 string.
func (r *Reader) String() (string, error) {
	n, err := r.U64()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	s := string(r.data[r.off : r.off+int(n)])
	r.off += int(n)
	return s, nil
}

// Bytes reads n raw bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Position reads the i32 x/y/mx/my/group wire layout of spec.md §6.
func (r *Reader) Position() (geom.Position, error) {
	x, err := r.I32()
	if err != nil {
		return geom.Position{}, err
	}
	y, err := r.I32()
	if err != nil {
		return geom.Position{}, err
	}
	mx, err := r.I32()
	if err != nil {
		return geom.Position{}, err
	}
	my, err := r.I32()
	if err != nil {
		return geom.Position{}, err
	}
	group, err := r.I32()
	if err != nil {
		return geom.Position{}, err
	}
	return geom.Position{X: x, Y: y, Map: geom.MapPos{MX: mx, MY: my, Group: group}}, nil
}

// ItemDescriptor is the (num, val, level, data[5]) wire item of spec.md §6.
type ItemDescriptor struct {
	Num   uint32
	Val   uint16
	Level uint8
	Data  [5]int16
}

func (r *Reader) Item() (ItemDescriptor, error) {
	var it ItemDescriptor
	num, err := r.U32()
	if err != nil {
		return it, err
	}
	val, err := r.U16()
	if err != nil {
		return it, err
	}
	level, err := r.U8()
	if err != nil {
		return it, err
	}
	it.Num, it.Val, it.Level = num, val, level
	for i := range it.Data {
		d, err := r.I16()
		if err != nil {
			return it, err
		}
		it.Data[i] = d
	}
	return it, nil
}

// Empty reports whether the item has no value (data model invariant 4:
// "an item slot with val == 0 is semantically empty regardless of num").
func (it ItemDescriptor) Empty() bool { return it.Val == 0 }

// IsCurrency reports whether the descriptor encodes a currency drop
// (data model §3: "num == 0 with val > 0 denotes a currency drop").
func (it ItemDescriptor) IsCurrency() bool { return it.Num == 0 && it.Val > 0 }

// ---- Writer ----

// Writer builds a server packet body. Bytes() returns the packet id
// followed by the encoded fields; no padding is applied (spec.md's
// wire framing uses an explicit u64 length prefix, unlike the
// teacher's 4-byte-padded L1J frames).
type Writer struct {
	buf []byte
}

func NewWriter(id ServerPacketID) *Writer {
	w := &Writer{buf: make([]byte, 0, 64)}
	w.u16(uint16(id))
	return w
}

// NewRecordWriter starts a writer with no leading packet id, for
// encoding one record of a batched frame: the frame carries a single
// shared id (batch.Frame.ID), so individual records omit it.
func NewRecordWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 32)}
}

func (w *Writer) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) U8(v byte) *Writer {
	w.buf = append(w.buf, v)
	return w
}

func (w *Writer) Bool(v bool) *Writer {
	if v {
		return w.U8(1)
	}
	return w.U8(0)
}

func (w *Writer) U16(v uint16) *Writer {
	w.u16(v)
	return w
}

func (w *Writer) I16(v int16) *Writer { return w.U16(uint16(v)) }

func (w *Writer) U32(v uint32) *Writer {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return w
}

func (w *Writer) I32(v int32) *Writer { return w.U32(uint32(v)) }

func (w *Writer) U64(v uint64) *Writer {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return w
}

func (w *Writer) String(s string) *Writer {
	w.U64(uint64(len(s)))
	w.buf = append(w.buf, s...)
	return w
}

func (w *Writer) Bytes(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

// Optional writes the 0x00/0x01 discriminant and, when present, fn.
func (w *Writer) Optional(present bool, fn func(*Writer)) *Writer {
	if present {
		w.U8(1)
		fn(w)
	} else {
		w.U8(0)
	}
	return w
}

func (w *Writer) Position(p geom.Position) *Writer {
	return w.I32(p.X).I32(p.Y).I32(p.Map.MX).I32(p.Map.MY).I32(p.Map.Group)
}

func (w *Writer) Item(it ItemDescriptor) *Writer {
	w.U32(it.Num).U16(it.Val).U8(it.Level)
	for _, d := range it.Data {
		w.I16(d)
	}
	return w
}

// Done returns the encoded body (packet id + fields), unpadded.
func (w *Writer) Done() []byte { return w.buf }
