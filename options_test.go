package parapng

import (
	"testing"

	"github.com/five82/parapng/internal/filter"
	"github.com/five82/parapng/internal/workerpool"
)

func TestDefaultOptionsValidate(t *testing.T) {
	h := Header{Width: 10, Height: 10, ColorType: Truecolor, BitDepth: 8}
	if err := h.validate(); err != nil {
		t.Fatalf("header validate: %v", err)
	}
	o := DefaultOptions()
	if err := o.validate(&h); err != nil {
		t.Fatalf("default options should validate: %v", err)
	}
	if o.Pool == nil {
		t.Fatal("validate should fill in a default worker pool")
	}
}

func TestChunkSizeBelowMinimumRejected(t *testing.T) {
	h := Header{Width: 10, Height: 10, ColorType: Truecolor, BitDepth: 8}
	h.validate()
	o := DefaultOptions()
	o.ChunkSize = minChunkSize - 1
	if err := o.validate(&h); err == nil {
		t.Fatal("expected an error for a chunk size below the 32 KiB minimum")
	}
}

func TestExplicitPoolIsPreserved(t *testing.T) {
	h := Header{Width: 10, Height: 10, ColorType: Truecolor, BitDepth: 8}
	h.validate()
	o := DefaultOptions()
	want := workerpool.New(2)
	o.Pool = want
	if err := o.validate(&h); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if o.Pool != want {
		t.Fatal("validate overwrote a caller-supplied worker pool")
	}
}

func TestResolveFilterStrategyApproximation(t *testing.T) {
	cases := []struct {
		strategy     StrategyMode
		filterMode   FilterMode
		wantAdaptive bool
	}{
		{StrategyDefault, FilterFixed(filter.Up), false},
		{StrategyAdaptive, FilterFixed(filter.Up), false},
		{StrategyFiltered, FilterFixed(filter.Up), true},
		{StrategyRLE, FilterFixed(filter.Up), true},
		{StrategyHuffmanOnly, FilterFixed(filter.Up), false},
		{StrategyFiltered, FilterAdaptive, true},
	}
	for _, c := range cases {
		o := Options{Strategy: c.strategy, FilterMode: c.filterMode}
		got := o.resolveFilter()
		if got.adaptive != c.wantAdaptive {
			t.Errorf("strategy=%v filterMode=%+v: resolveFilter().adaptive = %v, want %v",
				c.strategy, c.filterMode, got.adaptive, c.wantAdaptive)
		}
	}
}
