// Package pipeline implements the dispatcher/reorder buffer: it takes the
// row-aligned chunks cut by rowchunk, runs each chunk's filter pass inline, hands
// the dictionary-chained deflate pass to a worker pool, and reassembles the
// resulting ChunkOutputs in strict sequence order into the pending IDAT
// buffer — draining it into PNG IDAT chunks via the chunk writer as it
// grows, the way the dispatcher goroutine in a chunked video encode drains
// completed chunks into a single ordered output file.
package pipeline

import (
	"context"
	"fmt"
	"hash"
	"hash/adler32"
	"io"

	"github.com/five82/parapng/internal/deflate"
	"github.com/five82/parapng/internal/filter"
	"github.com/five82/parapng/internal/logging"
	"github.com/five82/parapng/internal/pngchunk"
	"github.com/five82/parapng/internal/rowchunk"
	"github.com/five82/parapng/internal/workerpool"
)

// idatThreshold bounds how much filtered+deflated data accumulates before
// being flushed out as an IDAT chunk, keeping per-chunk header overhead
// small without emitting a PNG chunk per internal row-chunk.
const idatThreshold = 64 * 1024

// Sink is the output contract: Write behaves like io.Writer (a short write
// is a failure); Flush, if the underlying value implements it, is called at
// IDAT boundaries to let a streaming consumer make progress.
type Sink interface {
	io.Writer
}

// Flusher is an optional capability a Sink may implement.
type Flusher interface {
	Flush() error
}

// Dispatcher owns the reorder buffer and the pending IDAT byte buffer. It
// must only be driven from a single goroutine (the encoder's caller
// thread), matching the "reorder buffer is mutated only by the dispatcher
// thread" contract.
type Dispatcher struct {
	pool  *workerpool.Pool
	sink  Sink
	log   *logging.Logger

	stride, bpp int
	level       int
	adaptive    bool
	fixedFilter filter.Type
	highWater   int

	nextEmitSeq int
	slots       map[int]*workerpool.Future[ChunkOutput]

	prevLastRawRow []byte
	prevDictWindow []byte

	pending    []byte
	adlerHash  hash.Hash32
	sawFinal   bool
	chunkCount int
}

// Config configures a new Dispatcher.
type Config struct {
	Pool        *workerpool.Pool
	Sink        Sink
	Stride      int
	BPP         int
	Level       int
	Adaptive    bool
	FixedFilter filter.Type
	HighWater   int // in-flight+unemitted chunk limit; <=0 defaults to 8
	Logger      *logging.Logger
}

// New creates a Dispatcher ready to accept chunks starting at sequence 0.
func New(cfg Config) *Dispatcher {
	hw := cfg.HighWater
	if hw <= 0 {
		hw = 8
	}
	return &Dispatcher{
		pool:        cfg.Pool,
		sink:        cfg.Sink,
		log:         cfg.Logger,
		stride:      cfg.Stride,
		bpp:         cfg.BPP,
		level:       cfg.Level,
		adaptive:    cfg.Adaptive,
		fixedFilter: cfg.FixedFilter,
		highWater:   hw,
		slots:       make(map[int]*workerpool.Future[ChunkOutput]),
		adlerHash:   adler32.New(),
		pending:     zlibHeaderBytes(cfg.Level),
	}
}

func zlibHeaderBytes(level int) []byte {
	h := deflate.ZlibHeader(level)
	return append([]byte(nil), h[:]...)
}

// Submit files, filters, and dispatches one chunk for deflate. It may block
// to apply backpressure if too many chunks are in flight or ready-but-
// unemitted, or to propagate the first fatal error seen so far.
func (d *Dispatcher) Submit(ctx context.Context, desc rowchunk.Descriptor, rawRows []byte) error {
	fr, err := FilterChunk(desc.Seq, rawRows, desc.RowCount, d.stride, d.bpp, d.prevLastRawRow, d.adaptive, d.fixedFilter)
	if err != nil {
		return err
	}
	d.adlerHash.Write(fr.Filtered)

	dict := d.prevDictWindow
	d.prevLastRawRow = fr.LastRawRow
	d.prevDictWindow = fr.DictWindow

	fut, err := workerpool.Submit(ctx, d.pool, func() (ChunkOutput, error) {
		return DeflateChunk(desc.Seq, fr.Filtered, dict, d.level, false)
	})
	if err != nil {
		return fmt.Errorf("pipeline: submit chunk %d: %w", desc.Seq, err)
	}
	d.slots[desc.Seq] = fut
	d.chunkCount++
	d.log.Debug("dispatched chunk seq=%d rows=%d bytes=%d", desc.Seq, desc.RowCount, len(rawRows))

	if err := d.drainReady(ctx, false); err != nil {
		return err
	}
	for len(d.slots) > d.highWater {
		if err := d.drainReady(ctx, true); err != nil {
			return err
		}
	}
	return nil
}

// drainReady consumes every contiguously-ready future starting at
// nextEmitSeq. If block is true and the next chunk isn't ready yet, it
// waits for it; otherwise it returns immediately once the front of the
// queue isn't ready.
func (d *Dispatcher) drainReady(ctx context.Context, block bool) error {
	for {
		fut, ok := d.slots[d.nextEmitSeq]
		if !ok {
			return nil
		}
		if !block {
			select {
			case <-fut.DoneSignal():
			default:
				return nil
			}
		}
		out, err := fut.Wait(ctx)
		if err != nil {
			return fmt.Errorf("pipeline: chunk %d: %w", d.nextEmitSeq, err)
		}
		delete(d.slots, d.nextEmitSeq)
		d.log.Debug("emitted chunk seq=%d bytes=%d", d.nextEmitSeq, len(out.Bytes))
		d.nextEmitSeq++
		d.sawFinal = out.Final

		d.pending = append(d.pending, out.Bytes...)
		if len(d.pending) >= idatThreshold {
			if err := d.flushPending(); err != nil {
				return err
			}
		}
		block = false // only the head chunk may need a blocking wait; once drained, re-check non-blocking
	}
}

// flushPending writes the accumulated pending bytes as one IDAT chunk and
// flushes the sink, matching the spec's "may be invoked at IDAT chunk
// boundaries to enable streaming consumers" contract.
func (d *Dispatcher) flushPending() error {
	if len(d.pending) == 0 {
		return nil
	}
	if err := pngchunk.Write(d.sink, pngchunk.TypeIDAT, d.pending); err != nil {
		return err
	}
	d.pending = d.pending[:0]
	if f, ok := d.sink.(Flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("pipeline: sink flush failed: %w", err)
		}
	}
	return nil
}

// Finish waits for all outstanding chunks, drains them in order, finalizes
// the deflate stream (appending a terminating empty final block if the last
// chunk's output wasn't already closed as BFINAL=1), appends the zlib
// trailer (the Adler-32 of the whole filtered stream), and flushes
// everything remaining as the last IDAT chunk.
func (d *Dispatcher) Finish(ctx context.Context) error {
	for len(d.slots) > 0 {
		if err := d.drainReady(ctx, true); err != nil {
			return err
		}
	}
	if !d.sawFinal {
		final, err := deflate.FinalEmptyBlock(d.level)
		if err != nil {
			return err
		}
		d.pending = append(d.pending, final...)
	}
	footer := deflate.ZlibFooter(d.adlerHash.Sum32())
	d.pending = append(d.pending, footer[:]...)
	return d.flushPending()
}

// ChunkCount reports how many internal row-chunks have been submitted so
// far (used by tests verifying the reorder buffer drains exactly as many
// sequence numbers as chunks were cut).
func (d *Dispatcher) ChunkCount() int { return d.chunkCount }
