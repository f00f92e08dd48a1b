package pipeline

import (
	"fmt"

	"github.com/five82/parapng/internal/deflate"
	"github.com/five82/parapng/internal/filter"
)

// FilterResult is the synchronous, cheap half of a chunk job: filtering
// every row of the chunk. It runs on the dispatcher's own goroutine because
// it needs only the immediately preceding row, already known by the time
// the previous chunk finished filtering.
type FilterResult struct {
	Seq         int
	Filtered    []byte // filter_byte || filtered_row_bytes, concatenated across all rows
	LastRawRow  []byte // copy of this chunk's last row, raw (unfiltered) bytes
	DictWindow  []byte // trailing <=32KiB of Filtered, for the *next* chunk's deflate dictionary
}

// FilterChunk filters every row of rawRows (stride-aligned, rowCount rows)
// against prevLastRawRow (the raw bytes of the row immediately preceding
// this chunk; pass a zero-filled slice of length stride for the very first
// row of the image).
func FilterChunk(seq int, rawRows []byte, rowCount, stride, bpp int, prevLastRawRow []byte, adaptive bool, fixed filter.Type) (FilterResult, error) {
	if len(rawRows) != rowCount*stride {
		return FilterResult{}, fmt.Errorf("pipeline: chunk %d: row data length %d does not match %d rows of stride %d", seq, len(rawRows), rowCount, stride)
	}

	filtered := make([]byte, 0, rowCount*(stride+1))
	scratch := filter.NewScratch(stride)
	prevRow := prevLastRawRow

	var lastRawRow []byte
	for r := 0; r < rowCount; r++ {
		cur := rawRows[r*stride : (r+1)*stride]

		var ftype filter.Type
		var frow []byte
		if adaptive {
			ftype, frow = filter.SelectAdaptive(scratch, cur, prevRow, bpp)
		} else {
			ftype = fixed
			dst := make([]byte, stride)
			filter.SelectFixed(dst, fixed, cur, prevRow, bpp)
			frow = dst
		}

		filtered = append(filtered, byte(ftype))
		filtered = append(filtered, frow...)
		prevRow = cur
		lastRawRow = cur
	}

	dictWindow := filtered
	if len(dictWindow) > deflate.MaxDictionary {
		dictWindow = dictWindow[len(dictWindow)-deflate.MaxDictionary:]
	}
	dictCopy := make([]byte, len(dictWindow))
	copy(dictCopy, dictWindow)

	lastRowCopy := make([]byte, len(lastRawRow))
	copy(lastRowCopy, lastRawRow)

	return FilterResult{
		Seq:        seq,
		Filtered:   filtered,
		LastRawRow: lastRowCopy,
		DictWindow: dictCopy,
	}, nil
}

// ChunkOutput is the deflated half of a chunk job's result: what the
// dispatcher accumulates into the pending IDAT buffer once ready, in
// sequence order.
type ChunkOutput struct {
	Seq            int
	Bytes          []byte
	BitsInLastByte int
	Final          bool
}

// DeflateChunk runs the CPU-dominant half of a chunk job: raw-deflating
// filtered (the chunk's filter output), seeded with dict (the previous
// chunk's trailing filtered-byte window, nil for the first chunk). This is
// the unit of work dispatched to the worker pool.
func DeflateChunk(seq int, filtered, dict []byte, level int, final bool) (ChunkOutput, error) {
	w, err := deflate.NewChunk(level, dict)
	if err != nil {
		return ChunkOutput{}, fmt.Errorf("pipeline: chunk %d: %w", seq, err)
	}
	if _, err := w.Write(filtered); err != nil {
		return ChunkOutput{}, fmt.Errorf("pipeline: chunk %d: compress: %w", seq, err)
	}

	var out deflate.Output
	if final {
		out, err = w.Close()
	} else {
		out, err = w.FlushAligned()
	}
	if err != nil {
		return ChunkOutput{}, fmt.Errorf("pipeline: chunk %d: finalize: %w", seq, err)
	}

	return ChunkOutput{
		Seq:            seq,
		Bytes:          out.Bytes,
		BitsInLastByte: out.BitsInLastByte,
		Final:          out.Final,
	}, nil
}
