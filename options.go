package parapng

import (
	"io"

	"github.com/five82/parapng/internal/filter"
	"github.com/five82/parapng/internal/logging"
	"github.com/five82/parapng/internal/workerpool"
)

// CompressionLevel selects a deflate compression/speed tradeoff.
type CompressionLevel int

const (
	Fast    CompressionLevel = 1
	Default CompressionLevel = 6
	High    CompressionLevel = 9
)

// FilterMode selects how scanline filters are chosen.
type FilterMode struct {
	adaptive bool
	fixed    filter.Type
}

// FilterAdaptive selects the minimum-sum-of-absolute-differences heuristic
// per row.
var FilterAdaptive = FilterMode{adaptive: true}

// FilterFixed pins every row to a single filter kind.
func FilterFixed(f filter.Type) FilterMode {
	return FilterMode{fixed: f}
}

// StrategyMode mirrors zlib-style deflate strategy hints. The underlying
// deflate implementation exposes no literal strategy switch, so non-Default
// strategies are approximated by steering filter choice (see
// Options.resolveFilter): Filtered and RLE force adaptive filtering.
// HuffmanOnly, Default and Adaptive leave filter selection unchanged; the
// strategy is not passed to the deflate implementation, so HuffmanOnly
// produces the same output as Default for every image — documented in
// DESIGN.md.
type StrategyMode uint8

const (
	StrategyAdaptive StrategyMode = iota
	StrategyDefault
	StrategyFiltered
	StrategyHuffmanOnly
	StrategyRLE
)

const minChunkSize = 32 * 1024
const defaultChunkSize = 256 * 1024

// Options holds the encoding knobs validated on attachment to an Encoder.
type Options struct {
	ChunkSize        int
	CompressionLevel CompressionLevel
	FilterMode       FilterMode
	Strategy         StrategyMode
	Pool             *workerpool.Pool
	Logger           *logging.Logger
}

// DefaultOptions returns the documented defaults: chunk_size 256 KiB,
// filter_mode Adaptive, strategy_mode Adaptive, compression_level 6. Pool is
// left nil; validation fills in a pool sized to the number of logical
// processors.
func DefaultOptions() Options {
	return Options{
		ChunkSize:        defaultChunkSize,
		CompressionLevel: Default,
		FilterMode:       FilterAdaptive,
		Strategy:         StrategyAdaptive,
	}
}

// resolveFilter returns the filter mode actually applied to each chunk,
// approximating the zlib-style strategy hints compress/flate has no direct
// equivalent for: StrategyFiltered and StrategyRLE both exist to favor
// short, regular match distances in the literal stream deflate sees, which
// adaptive per-row filtering already optimizes for directly, so both force
// FilterAdaptive even if FilterMode was pinned to a fixed filter.
// StrategyHuffmanOnly's literal meaning (disable LZ77 matching entirely)
// would require disabling the preset-dictionary chaining this encoder's
// multi-chunk decodability depends on, so it is a silent no-op here — see
// DESIGN.md.
func (o *Options) resolveFilter() FilterMode {
	switch o.Strategy {
	case StrategyFiltered, StrategyRLE:
		return FilterAdaptive
	default:
		return o.FilterMode
	}
}

func (o *Options) validate(h *Header) error {
	if o.ChunkSize < minChunkSize {
		return newErr("options", ErrInvalidOption, nil)
	}
	switch o.CompressionLevel {
	case Fast, Default, High:
	default:
		if o.CompressionLevel < 1 || o.CompressionLevel > 9 {
			return newErr("options", ErrInvalidOption, nil)
		}
	}
	if o.Pool == nil {
		o.Pool = workerpool.New(0)
	}
	return nil
}

// Option configures an Encoder at construction, in the functional-options
// style used throughout this codebase's public API.
type Option func(*Options)

// WithChunkSize overrides the default chunk size (bytes, must be >= 32768).
func WithChunkSize(n int) Option {
	return func(o *Options) { o.ChunkSize = n }
}

// WithCompressionLevel overrides the default compression level.
func WithCompressionLevel(l CompressionLevel) Option {
	return func(o *Options) { o.CompressionLevel = l }
}

// WithFilterMode overrides the default filter mode.
func WithFilterMode(m FilterMode) Option {
	return func(o *Options) { o.FilterMode = m }
}

// WithStrategy overrides the default deflate strategy hint.
func WithStrategy(s StrategyMode) Option {
	return func(o *Options) { o.Strategy = s }
}

// WithWorkerPool supplies a shared worker pool instead of a private one.
func WithWorkerPool(p *workerpool.Pool) Option {
	return func(o *Options) { o.Pool = p }
}

// WithLogger attaches a diagnostic logger writing to w. Pass nil (or omit
// this option) to disable logging entirely.
func WithLogger(w io.Writer, verbose bool) Option {
	return func(o *Options) { o.Logger = logging.New(w, verbose) }
}
