// Package deflate is a thin facade over a raw DEFLATE implementation,
// exposing exactly the three capabilities a chunked, dictionary-chained
// encoder needs: raw (no zlib wrapper) output, a preset dictionary, and a
// byte-aligned flush that leaves the stream open for the next writer to
// continue from. klauspost/compress/flate is a drop-in, faster
// implementation of the same raw-deflate format as the standard library's
// compress/flate and additionally makes the underlying sync-flush mechanism
// cheap to call per chunk.
package deflate

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/flate"
)

// MaxDictionary is the largest preset dictionary DEFLATE can reference (a
// 32 KiB sliding window).
const MaxDictionary = 32 * 1024

// Strategy mirrors the strategy knobs callers may request. The underlying
// flate implementation has no literal strategy parameter, so values other
// than Default are approximated by the caller adjusting filter choice
// instead (see Options.Strategy in the root package).
type Strategy uint8

const (
	StrategyDefault Strategy = iota
	StrategyFiltered
	StrategyHuffmanOnly
	StrategyRLE
)

// Writer produces one chunk's worth of raw-deflate output, optionally seeded
// with a preset dictionary, and reports the exact byte length and bit
// position of its final emitted block.
type Writer struct {
	buf *bytes.Buffer
	fw  *flate.Writer
}

// NewChunk begins a fresh raw-deflate stream at the given compression level,
// preset with dict (the trailing bytes of all preceding chunks' filtered
// output, truncated to MaxDictionary — pass nil for the very first chunk).
func NewChunk(level int, dict []byte) (*Writer, error) {
	if len(dict) > MaxDictionary {
		dict = dict[len(dict)-MaxDictionary:]
	}
	buf := &bytes.Buffer{}
	fw, err := flate.NewWriterDict(buf, level, dict)
	if err != nil {
		return nil, fmt.Errorf("deflate: new writer: %w", err)
	}
	return &Writer{buf: buf, fw: fw}, nil
}

// Write compresses p into the current block.
func (w *Writer) Write(p []byte) (int, error) {
	return w.fw.Write(p)
}

// FlushAligned emits a byte-aligned, non-final sync-flush block: all
// buffered input is emitted, padded with zero bits to the next byte
// boundary, without terminating the stream. The returned bytes are this
// writer's complete output so far and may be concatenated directly with a
// subsequent chunk's output, because DEFLATE sync-flush blocks always end on
// a byte boundary (BitsInLastByte is therefore always 0 in this
// implementation — see Output.BitsInLastByte).
func (w *Writer) FlushAligned() (Output, error) {
	if err := w.fw.Flush(); err != nil {
		return Output{}, fmt.Errorf("deflate: flush: %w", err)
	}
	return Output{Bytes: w.buf.Bytes(), BitsInLastByte: 0}, nil
}

// Close finalizes the stream with a final (BFINAL=1) block, the terminating
// form required for the last chunk in the image (or for a standalone
// single-chunk stream).
func (w *Writer) Close() (Output, error) {
	if err := w.fw.Close(); err != nil {
		return Output{}, fmt.Errorf("deflate: close: %w", err)
	}
	return Output{Bytes: w.buf.Bytes(), BitsInLastByte: 0, Final: true}, nil
}

// Output is the result of finalizing or flushing a chunk's deflate stream.
type Output struct {
	Bytes          []byte
	BitsInLastByte int
	Final          bool
}

// FinalEmptyBlock returns a zero-length, final (BFINAL=1) raw-deflate block,
// used to terminate the combined IDAT stream when the last chunk's own
// output was produced with FlushAligned rather than Close (see the
// dispatcher's finish sequence).
func FinalEmptyBlock(level int) ([]byte, error) {
	buf := &bytes.Buffer{}
	fw, err := flate.NewWriter(buf, level)
	if err != nil {
		return nil, fmt.Errorf("deflate: final empty block: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("deflate: final empty block: %w", err)
	}
	return buf.Bytes(), nil
}

// ZlibHeader builds the 2-byte zlib CMF/FLG header for a 32 KiB window, the
// given compression level, and no preset dictionary bit — the outer zlib
// wrapper never advertises a dictionary even though the per-chunk raw
// deflate streams it wraps used preset dictionaries internally.
func ZlibHeader(level int) [2]byte {
	const cm = 8          // deflate compression method
	const cinfo = 7        // log2(window size) - 8, for a 32 KiB window
	cmf := byte(cinfo<<4 | cm)

	var flevel byte
	switch {
	case level == 1:
		flevel = 0 // fastest
	case level >= 2 && level <= 5:
		flevel = 1 // fast
	case level == 6 || level <= 0:
		flevel = 2 // default
	default:
		flevel = 3 // best compression
	}
	flg := flevel << 6 // FDICT bit (0x20) left clear: no preset dictionary

	check := (uint16(cmf)<<8 | uint16(flg)) % 31
	if check != 0 {
		flg += byte(31 - check)
	}
	return [2]byte{cmf, flg}
}

// ZlibFooter builds the 4-byte big-endian Adler-32 trailer of the
// concatenated uncompressed (filtered) stream.
func ZlibFooter(adler uint32) [4]byte {
	var f [4]byte
	f[0] = byte(adler >> 24)
	f[1] = byte(adler >> 16)
	f[2] = byte(adler >> 8)
	f[3] = byte(adler)
	return f
}
