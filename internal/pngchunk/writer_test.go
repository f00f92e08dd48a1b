package pngchunk

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/five82/parapng/internal/crcio"
)

func TestWriteLayout(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{1, 2, 3, 4, 5}
	if err := Write(&buf, TypeIDAT, payload); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got := buf.Bytes()
	wantLen := 4 + 4 + len(payload) + 4
	if len(got) != wantLen {
		t.Fatalf("chunk length = %d, want %d", len(got), wantLen)
	}

	length := binary.BigEndian.Uint32(got[0:4])
	if int(length) != len(payload) {
		t.Fatalf("length field = %d, want %d", length, len(payload))
	}
	if !bytes.Equal(got[4:8], TypeIDAT[:]) {
		t.Fatalf("type field = %q, want %q", got[4:8], TypeIDAT[:])
	}
	if !bytes.Equal(got[8:8+len(payload)], payload) {
		t.Fatalf("payload mismatch")
	}
	wantCRC := crcio.Of(TypeIDAT, payload)
	gotCRC := binary.BigEndian.Uint32(got[len(got)-4:])
	if gotCRC != wantCRC {
		t.Fatalf("crc = %#x, want %#x", gotCRC, wantCRC)
	}
}

func TestWriteEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, TypeIEND, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(buf.Bytes()) != 12 {
		t.Fatalf("IEND chunk length = %d, want 12", len(buf.Bytes()))
	}
}

func TestWriteShortWriteFails(t *testing.T) {
	w := &shortWriter{limit: 6}
	err := Write(w, TypeIDAT, []byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected an error from a short underlying write")
	}
}

// shortWriter accepts at most limit bytes across its lifetime, then starts
// reporting short writes, modeling the sink contract's "a return value less
// than len is a failure" behavior without needing a real broken pipe.
type shortWriter struct {
	limit, written int
}

func (w *shortWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.written
	if remaining <= 0 {
		return 0, nil
	}
	n := len(p)
	if n > remaining {
		n = remaining
	}
	w.written += n
	return n, nil
}
