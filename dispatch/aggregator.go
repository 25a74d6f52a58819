package dispatch

import "sync"

// GenotypeAggregator collects per-sample posterior genotype probabilities
// produced by concurrent workers (spec §4.9's `gv`). Callers guarantee
// distinct samples per Add call, so the map's built-in concurrent-write
// protection only ever serializes disjoint keys in practice; sync.Map is
// used instead of a single mutex so that disjoint-sample writes don't
// contend on one lock.
type GenotypeAggregator struct {
	results sync.Map // sample int -> []float32
}

// NewGenotypeAggregator creates an empty aggregator.
func NewGenotypeAggregator() *GenotypeAggregator {
	return &GenotypeAggregator{}
}

// Add records gtProbs for sample. Safe for concurrent calls with distinct
// sample values; calling Add twice for the same sample overwrites.
func (g *GenotypeAggregator) Add(sample int, gtProbs []float32) {
	g.results.Store(sample, gtProbs)
}

// Get returns the gtProbs recorded for sample, or nil if none were added.
func (g *GenotypeAggregator) Get(sample int) []float32 {
	v, ok := g.results.Load(sample)
	if !ok {
		return nil
	}
	return v.([]float32)
}

// Samples returns every sample index with recorded results, in no
// particular order.
func (g *GenotypeAggregator) Samples() []int {
	var out []int
	g.results.Range(func(k, _ any) bool {
		out = append(out, k.(int))
		return true
	})
	return out
}
