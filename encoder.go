// Package parapng is a multithreaded PNG encoder: it writes valid PNG files
// from raw, pre-packed pixel rows while splitting the image into row-
// aligned chunks and filtering and deflating them concurrently on a worker
// pool, reassembling the chunk outputs in order into a single valid zlib
// stream carried inside IDAT chunks.
package parapng

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/parapng/internal/filter"
	"github.com/five82/parapng/internal/pipeline"
	"github.com/five82/parapng/internal/pngchunk"
	"github.com/five82/parapng/internal/rowchunk"
)

// State is one of the encoder's strictly-forward lifecycle states.
type State int

const (
	Initial State = iota
	HeaderWritten
	PaletteWritten
	ImageBody
	Finished
	Failed
)

func (s State) String() string {
	switch s {
	case Initial:
		return "Initial"
	case HeaderWritten:
		return "HeaderWritten"
	case PaletteWritten:
		return "PaletteWritten"
	case ImageBody:
		return "ImageBody"
	case Finished:
		return "Finished"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Stats is a snapshot of encoder progress, output size, and elapsed wall
// time since New — the library analogue of a CLI progress readout, scaled
// down to a plain struct with no event bus or formatting.
type Stats struct {
	ChunksEmitted int
	RowsAccepted  int
	BytesOut      int
	Elapsed       time.Duration
}

// body holds the state that only exists once the encoder has entered
// ImageBody: the partitioner cutting row-chunks, the dispatcher draining
// them in order, and a carry buffer holding rows not yet enough to cut a
// full chunk.
type body struct {
	part  *rowchunk.Partitioner
	disp  *pipeline.Dispatcher
	carry []byte
}

// Encoder is the public façade: a strict state machine over header,
// optional palette/transparency, streamed row data, and finish.
type Encoder struct {
	sink *countingSink
	ctx  context.Context

	state State
	err   error

	header  Header
	options Options

	body        *body
	rowsWritten int
	startedAt   time.Time
}

// New creates an Encoder writing to sink, for an image described by header,
// configured with the given options.
func New(ctx context.Context, sink pipeline.Sink, header Header, opts ...Option) (*Encoder, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	o := DefaultOptions()
	if header.ColorType == Indexed {
		o.FilterMode = FilterFixed(filter.None)
	}
	for _, opt := range opts {
		opt(&o)
	}

	// Header validation (dimension and color/depth checks, deriving stride
	// and bytes-per-pixel) and option validation (chunk-size bounds, worker
	// pool warm-up) touch disjoint fields, so they run as two goroutines of
	// a phase-1 bootstrap group rather than sequentially, the same shape the
	// teacher uses for its independent indexing/crop-detection bootstrap.
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { return header.validate() })
	g.Go(func() error { return o.validate(&header) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Encoder{
		sink:      &countingSink{inner: sink},
		ctx:       ctx,
		state:     Initial,
		header:    header,
		options:   o,
		startedAt: time.Now(),
	}, nil
}

// State reports the encoder's current lifecycle state.
func (e *Encoder) State() State { return e.state }

// Stats reports a snapshot of progress so far.
func (e *Encoder) Stats() Stats {
	s := Stats{RowsAccepted: e.rowsWritten, BytesOut: e.sink.n, Elapsed: time.Since(e.startedAt)}
	if e.body != nil {
		s.ChunksEmitted = e.body.disp.ChunkCount()
	}
	return s
}

func (e *Encoder) fail(op string, kind ErrorKind, cause error) error {
	ee := newErr(op, kind, cause)
	e.err = ee
	e.state = Failed
	return ee
}

func (e *Encoder) requireState(op string, allowed ...State) error {
	if e.state == Failed {
		return e.fail(op, ErrWrongState, e.err)
	}
	for _, s := range allowed {
		if e.state == s {
			return nil
		}
	}
	return e.fail(op, ErrWrongState, nil)
}

// WriteHeader emits the PNG signature and IHDR chunk.
func (e *Encoder) WriteHeader() error {
	const op = "write_header"
	if err := e.requireState(op, Initial); err != nil {
		return err
	}

	if err := pngchunk.WriteFull(e.sink, pngchunk.Signature[:]); err != nil {
		return e.fail(op, ErrSinkFailure, err)
	}

	var payload [13]byte
	binary.BigEndian.PutUint32(payload[0:4], e.header.Width)
	binary.BigEndian.PutUint32(payload[4:8], e.header.Height)
	payload[8] = e.header.BitDepth
	payload[9] = byte(e.header.ColorType)
	payload[10] = 0 // compression method
	payload[11] = 0 // filter method
	payload[12] = 0 // interlace method

	if err := pngchunk.Write(e.sink, pngchunk.TypeIHDR, payload[:]); err != nil {
		return e.fail(op, ErrSinkFailure, err)
	}

	e.state = HeaderWritten
	return nil
}

// WritePalette emits a PLTE chunk. palette must hold 1..256 RGB triples.
func (e *Encoder) WritePalette(palette [][3]byte) error {
	const op = "write_palette"
	if err := e.requireState(op, HeaderWritten); err != nil {
		return err
	}
	if len(palette) == 0 || len(palette) > 256 {
		return e.fail(op, ErrInvalidOption, nil)
	}
	payload := make([]byte, 0, len(palette)*3)
	for _, c := range palette {
		payload = append(payload, c[0], c[1], c[2])
	}
	if err := pngchunk.Write(e.sink, pngchunk.TypePLTE, payload); err != nil {
		return e.fail(op, ErrSinkFailure, err)
	}
	e.state = PaletteWritten
	return nil
}

// WriteTransparency emits a tRNS chunk. The payload's shape depends on the
// header's color type and is the caller's responsibility to construct
// correctly (indexed alpha values, a single grey key, or an RGB key).
func (e *Encoder) WriteTransparency(payload []byte) error {
	const op = "write_transparency"
	if err := e.requireState(op, HeaderWritten, PaletteWritten); err != nil {
		return err
	}
	if err := pngchunk.Write(e.sink, pngchunk.TypeTRNS, payload); err != nil {
		return e.fail(op, ErrSinkFailure, err)
	}
	if e.state == HeaderWritten {
		e.state = PaletteWritten
	}
	return nil
}

func (e *Encoder) startBody() {
	stride := e.header.Stride()
	fm := e.options.resolveFilter()
	b := &body{part: rowchunk.NewPartitioner(stride, e.options.ChunkSize)}
	b.disp = pipeline.New(pipeline.Config{
		Pool:        e.options.Pool,
		Sink:        e.sink,
		Stride:      stride,
		BPP:         e.header.filterBPP(),
		Level:       int(e.options.CompressionLevel),
		Adaptive:    fm.adaptive,
		FixedFilter: fm.fixed,
		Logger:      e.options.Logger,
	})
	e.body = b
}

// WriteImageRows appends rows (a positive multiple of header.Stride bytes)
// to the image body, partitioning and dispatching chunks as enough rows
// accumulate. It may be called multiple times; exactly header.Height rows
// total must be supplied before Finish.
func (e *Encoder) WriteImageRows(rows []byte) error {
	const op = "write_image_rows"
	if err := e.requireState(op, HeaderWritten, PaletteWritten, ImageBody); err != nil {
		return err
	}
	stride := e.header.Stride()
	if stride == 0 || len(rows)%stride != 0 {
		return e.fail(op, ErrRowCountMismatch, nil)
	}
	n := len(rows) / stride
	if e.rowsWritten+n > int(e.header.Height) {
		return e.fail(op, ErrRowCountMismatch, nil)
	}

	if e.state != ImageBody {
		e.state = ImageBody
		e.startBody()
	}

	// AddRows only returns a Descriptor once a whole chunk's worth of rows
	// has accumulated; rows belonging to a not-yet-cut chunk are carried in
	// e.body.carry until either the next call supplies enough to cut it or
	// Finish cuts it short.
	e.body.carry = append(e.body.carry, rows...)
	descs := e.body.part.AddRows(n)
	off := 0
	for _, d := range descs {
		n := d.RowCount * stride
		if err := e.body.disp.Submit(e.ctx, d, e.body.carry[off:off+n]); err != nil {
			return e.fail(op, ErrCompressionFailure, err)
		}
		off += n
	}
	e.body.carry = append([]byte(nil), e.body.carry[off:]...)

	e.rowsWritten += n
	return nil
}

// Finish drains all outstanding chunk jobs, flushes the final IDAT bytes
// (with the zlib trailer), writes IEND, and transitions to Finished.
func (e *Encoder) Finish() error {
	const op = "finish"
	if err := e.requireState(op, ImageBody); err != nil {
		return err
	}
	if e.rowsWritten != int(e.header.Height) {
		return e.fail(op, ErrRowCountMismatch, nil)
	}

	if d := e.body.part.Finish(); d != nil {
		if len(e.body.carry) != d.RowCount*e.header.Stride() {
			return e.fail(op, ErrInternal, fmt.Errorf("carried %d bytes does not match final chunk of %d rows", len(e.body.carry), d.RowCount))
		}
		if err := e.body.disp.Submit(e.ctx, *d, e.body.carry); err != nil {
			return e.fail(op, ErrCompressionFailure, err)
		}
	}

	if err := e.body.disp.Finish(e.ctx); err != nil {
		return e.fail(op, ErrCompressionFailure, err)
	}

	if err := pngchunk.Write(e.sink, pngchunk.TypeIEND, nil); err != nil {
		return e.fail(op, ErrSinkFailure, err)
	}

	e.state = Finished
	return nil
}

// Release aborts the encoder: outstanding jobs are allowed to finish but
// their outputs are discarded, and the encoder transitions to Failed. It is
// safe to call from any non-Finished state.
func (e *Encoder) Release() error {
	if e.state == Finished || e.state == Failed {
		return e.fail("release", ErrWrongState, e.err)
	}
	return e.fail("release", ErrInternal, fmt.Errorf("released by caller"))
}
