package dagphase

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
)

// === SamplerSeed ===

// SamplerSeed uniquely identifies a reproducible sampling run: a master
// RNG seed plus the inputs it is applied to. Two runs with the same
// SamplerSeed, the same Dag, and the same emission evidence MUST produce
// bit-identical sampled haplotype pairs (invariant 5).
type SamplerSeed int64

// NewSamplerSeed creates a SamplerSeed from a configured seed value.
func NewSamplerSeed(seed int64) SamplerSeed {
	return SamplerSeed(seed)
}

// === PartitionedRNG ===

// PartitionedRNG hands out one *rand.Rand per sample index, each seeded
// deterministically from the master seed and the sample index alone.
//
// This is what makes reproducibility independent of the work dispatcher's
// thread count and scheduling order: a sample's stochastic trace never
// depends on which worker goroutine drew it or in what order concurrent
// samples were processed, only on its own index.
//
// Thread-safety: safe for concurrent ForSample calls from different
// goroutines dispatching different sample indices; the dispatcher
// guarantees no two goroutines ever request the same index concurrently,
// but ForSample still serializes map access defensively.
type PartitionedRNG struct {
	seed SamplerSeed

	mu   sync.Mutex
	rngs map[int]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SamplerSeed.
func NewPartitionedRNG(seed SamplerSeed) *PartitionedRNG {
	return &PartitionedRNG{
		seed: seed,
		rngs: make(map[int]*rand.Rand),
	}
}

// ForSample returns a deterministically-seeded RNG for the given sample
// index. The same index always returns the same *rand.Rand instance
// (cached); never returns nil.
func (p *PartitionedRNG) ForSample(sampleIdx int) *rand.Rand {
	p.mu.Lock()
	defer p.mu.Unlock()

	if rng, ok := p.rngs[sampleIdx]; ok {
		return rng
	}
	derivedSeed := int64(p.seed) ^ fnv1a64(fmt.Sprintf("sample_%d", sampleIdx))
	rng := rand.New(rand.NewSource(derivedSeed))
	p.rngs[sampleIdx] = rng
	return rng
}

// Seed returns the SamplerSeed used to create this PartitionedRNG.
func (p *PartitionedRNG) Seed() SamplerSeed {
	return p.seed
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
