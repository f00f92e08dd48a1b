// Package crcio computes the incremental CRC-32 (IEEE polynomial) used to
// protect every PNG chunk.
package crcio

import "github.com/snksoft/crc"

// IEEE is the PNG/zlib/gzip CRC-32 polynomial parameter set (0xEDB88320,
// reflected), the same table libpng and the standard library's crc32
// package use.
var IEEE = crc.CRC32

// Hash accumulates a CRC-32 across one or more Write calls without
// requiring the caller to first concatenate the bytes it covers — a PNG
// chunk's CRC spans its 4-byte type and its payload, which are rarely
// stored contiguously.
type Hash struct {
	h *crc.Hash
}

// New returns a Hash ready to accumulate chunk bytes.
func New() *Hash {
	return &Hash{h: crc.NewHash(IEEE)}
}

// Write feeds additional bytes into the running CRC. It never fails.
func (h *Hash) Write(p []byte) (int, error) {
	h.h.Update(p)
	return len(p), nil
}

// Sum32 returns the CRC-32 of all bytes written so far.
func (h *Hash) Sum32() uint32 {
	return uint32(h.h.CRC32())
}

// Of is a convenience wrapper computing the CRC-32 of name||payload in one
// call, matching the PNG chunk CRC contract exactly (type field followed by
// chunk payload).
func Of(name [4]byte, payload []byte) uint32 {
	h := New()
	h.Write(name[:])
	h.Write(payload)
	return h.Sum32()
}
