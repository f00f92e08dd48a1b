// Package pngchunk serializes length-tagged, CRC-protected PNG chunks to an
// output sink.
package pngchunk

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/five82/parapng/internal/crcio"
)

// Chunk type tags used by this encoder.
var (
	TypeIHDR = [4]byte{'I', 'H', 'D', 'R'}
	TypePLTE = [4]byte{'P', 'L', 'T', 'E'}
	TypeTRNS = [4]byte{'t', 'R', 'N', 'S'}
	TypeIDAT = [4]byte{'I', 'D', 'A', 'T'}
	TypeIEND = [4]byte{'I', 'E', 'N', 'D'}
)

// Signature is the fixed 8-byte PNG file signature.
var Signature = [8]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// Write serializes one PNG chunk to w: a 4-byte big-endian length (payload
// only), the 4-byte type, the payload, and a 4-byte big-endian CRC-32 over
// type||payload.
//
// A short write anywhere in the chunk is reported as an error; the caller
// (the encoder state machine) is responsible for treating any error here as
// a sink failure.
func Write(w io.Writer, name [4]byte, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if err := WriteFull(w, lenBuf[:]); err != nil {
		return fmt.Errorf("pngchunk: writing %s length: %w", name, err)
	}
	if err := WriteFull(w, name[:]); err != nil {
		return fmt.Errorf("pngchunk: writing %s type: %w", name, err)
	}
	if len(payload) > 0 {
		if err := WriteFull(w, payload); err != nil {
			return fmt.Errorf("pngchunk: writing %s payload: %w", name, err)
		}
	}
	var crcBuf [4]byte
	binary.BigEndian.PutUint32(crcBuf[:], crcio.Of(name, payload))
	if err := WriteFull(w, crcBuf[:]); err != nil {
		return fmt.Errorf("pngchunk: writing %s crc: %w", name, err)
	}
	return nil
}

// WriteFull treats any write shorter than len(p) as a failure, matching the
// sink contract (a return value less than len is a failure) rather than
// silently looping and hoping a partial writer eventually drains. Exported
// so the root package's signature write — the one byte sequence not framed
// as a PNG chunk — can share the same short-write policy.
func WriteFull(w io.Writer, p []byte) error {
	n, err := w.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return fmt.Errorf("short write: wrote %d of %d bytes", n, len(p))
	}
	return nil
}
