package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ReadFrame reads one frame per spec.md §6: u64 length_le || body[length].
// 1 ≤ length ≤ maxFrame; violations are framing errors and must close
// the connection (spec.md §7).
func ReadFrame(r io.Reader, maxFrame int) ([]byte, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}
	length := binary.LittleEndian.Uint64(header[:])
	if length == 0 || length > uint64(maxFrame) {
		return nil, fmt.Errorf("invalid frame length: %d", length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read frame body (%d bytes): %w", length, err)
	}
	return body, nil
}

// WriteFrame writes one frame: u64 length_le || body.
func WriteFrame(w io.Writer, body []byte) error {
	var header [8]byte
	binary.LittleEndian.PutUint64(header[:], uint64(len(body)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}
