package protocol

import (
	"bytes"
	"testing"

	"github.com/l1jgo/server/internal/geom"
)

func TestPositionRoundTrip(t *testing.T) {
	want := geom.Position{X: 17, Y: 15, Map: geom.MapPos{MX: 3, MY: -2, Group: 1}}

	w := NewWriter(SPlayerSpawn)
	w.Position(want)

	r := &Reader{data: w.Done(), off: 2}
	got, err := r.Position()
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if got != want {
		t.Fatalf("round-trip mismatch: got %+v want %+v", got, want)
	}
}

func TestItemRoundTrip(t *testing.T) {
	want := ItemDescriptor{Num: 7, Val: 50, Level: 3, Data: [5]int16{1, -2, 3, 0, 9}}

	w := NewWriter(SItemLoad)
	w.Item(want)

	r := &Reader{data: w.Done(), off: 2}
	got, err := r.Item()
	if err != nil {
		t.Fatalf("Item: %v", err)
	}
	if got != want {
		t.Fatalf("round-trip mismatch: got %+v want %+v", got, want)
	}
}

func TestItemEmptyInterpretation(t *testing.T) {
	it := ItemDescriptor{Num: 42, Val: 0}
	if !it.Empty() {
		t.Fatalf("val==0 must be interpreted as empty regardless of num")
	}
}

func TestStringRoundTrip(t *testing.T) {
	w := NewWriter(SChatMsg)
	w.String("hello world")

	r := &Reader{data: w.Done(), off: 2}
	got, err := r.String()
	if err != nil {
		t.Fatalf("String: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	body := []byte{1, 2, 3, 4, 5}
	if err := WriteFrame(&buf, body); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	got, err := ReadFrame(&buf, MaxFrameBytes)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("got %v want %v", got, body)
	}
}

func TestFrameRejectsZeroLength(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, nil); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if _, err := ReadFrame(&buf, MaxFrameBytes); err == nil {
		t.Fatalf("expected error for zero-length frame")
	}
}

func TestFrameRejectsOversize(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, make([]byte, MaxFrameBytes+1)); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if _, err := ReadFrame(&buf, MaxFrameBytes); err == nil {
		t.Fatalf("expected error for oversize frame")
	}
}
