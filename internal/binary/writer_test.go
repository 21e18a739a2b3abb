package binary

import (
	"bytes"
	"testing"
)

func TestSafeWriter_Offset(t *testing.T) {
	buf := &bytes.Buffer{}
	sw := NewSafeWriter(buf)

	if sw.Offset() != 0 {
		t.Errorf("expected initial offset 0, got %d", sw.Offset())
	}

	steps := []struct {
		write func() error
		want  int64
	}{
		{func() error { return sw.WriteBytes([]byte{0xFF, 0xD8}) }, 2},
		{func() error { return sw.WriteBytes(Encode(nil, uint16(0xFFE1), BigEndian)) }, 4},
		{func() error { return sw.WriteBytes([]byte("RIFF")) }, 8},
		{func() error { return sw.WriteBytes(nil) }, 8},
		{func() error { return sw.WriteBytes(Encode(nil, uint32(0x2A), LittleEndian)) }, 12},
	}
	for i, s := range steps {
		if err := s.write(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if sw.Offset() != s.want {
			t.Errorf("step %d: offset %d, want %d", i, sw.Offset(), s.want)
		}
	}
}

func TestSafeWriter_CopyRange(t *testing.T) {
	src := bytes.NewReader([]byte("0123456789"))
	buf := &bytes.Buffer{}
	sw := NewSafeWriter(buf)

	if err := sw.CopyRange(src, 2, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sw.CopyRange(src, 0, 0); err != nil {
		t.Fatalf("zero-length copy: %v", err)
	}
	if buf.String() != "23456" {
		t.Errorf("got %q", buf.String())
	}
	if sw.Offset() != 5 {
		t.Errorf("offset %d, want 5", sw.Offset())
	}

	if err := sw.CopyRange(src, 8, 5); err == nil {
		t.Error("expected error for range past end of source")
	}
}
