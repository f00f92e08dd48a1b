package deflate

import (
	"bytes"
	"compress/flate"
	"io"
	"testing"
)

func TestChunkRoundTrip(t *testing.T) {
	input := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog"), 50)

	w, err := NewChunk(6, nil)
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	if _, err := w.Write(input); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out, err := w.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := flate.NewReader(bytes.NewReader(out.Bytes))
	defer r.Close()
	got, err := readAll(r)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(got, input) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(input))
	}
}

func TestChunkWithDictionary(t *testing.T) {
	dict := bytes.Repeat([]byte("preamble "), 100)
	input := []byte("preamble data that references the dictionary window")

	w, err := NewChunk(6, dict)
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	if _, err := w.Write(input); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out, err := w.FlushAligned()
	if err != nil {
		t.Fatalf("FlushAligned: %v", err)
	}
	if out.BitsInLastByte != 0 {
		t.Fatalf("FlushAligned output must be byte-aligned, got %d bits", out.BitsInLastByte)
	}

	// FlushAligned leaves the stream open, so terminate it before decoding.
	term, err := FinalEmptyBlock(6)
	if err != nil {
		t.Fatalf("FinalEmptyBlock: %v", err)
	}
	combined := append(append([]byte{}, out.Bytes...), term...)
	fr := flate.NewReaderDict(bytes.NewReader(combined), dict)
	defer fr.Close()
	got, err := readAll(fr)
	if err != nil {
		t.Fatalf("decompress with dict: %v", err)
	}
	if !bytes.Equal(got, input) {
		t.Fatalf("dictionary round trip mismatch: got %q want %q", got, input)
	}
}

func TestDictionaryTruncatedTo32KiB(t *testing.T) {
	big := bytes.Repeat([]byte{0xAB}, MaxDictionary*2)
	w, err := NewChunk(6, big)
	if err != nil {
		t.Fatalf("NewChunk with oversized dictionary: %v", err)
	}
	if _, err := w.Write([]byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestFinalEmptyBlockConcatenates(t *testing.T) {
	w, err := NewChunk(6, nil)
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out, err := w.FlushAligned()
	if err != nil {
		t.Fatalf("FlushAligned: %v", err)
	}

	term, err := FinalEmptyBlock(6)
	if err != nil {
		t.Fatalf("FinalEmptyBlock: %v", err)
	}

	combined := append(append([]byte{}, out.Bytes...), term...)
	r := flate.NewReader(bytes.NewReader(combined))
	defer r.Close()
	got, err := readAll(r)
	if err != nil {
		t.Fatalf("decompress terminated stream: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func TestZlibHeaderChecksum(t *testing.T) {
	for level := -3; level <= 9; level++ {
		h := ZlibHeader(level)
		val := uint16(h[0])<<8 | uint16(h[1])
		if val%31 != 0 {
			t.Fatalf("level %d: zlib header %v not a multiple of 31", level, h)
		}
		if h[1]&0x20 != 0 {
			t.Fatalf("level %d: zlib header must not set FDICT bit: %v", level, h)
		}
	}
}

func readAll(r interface{ Read([]byte) (int, error) }) ([]byte, error) {
	var buf bytes.Buffer
	tmp := make([]byte, 4096)
	for {
		n, err := r.Read(tmp)
		buf.Write(tmp[:n])
		if err != nil {
			if err == io.EOF {
				return buf.Bytes(), nil
			}
			return buf.Bytes(), err
		}
	}
}
