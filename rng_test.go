package dagphase

import (
	"math"
	"testing"
)

func TestSamplerSeed_Creation(t *testing.T) {
	tests := []struct {
		name string
		seed int64
	}{
		{"positive seed", 42},
		{"zero seed", 0},
		{"negative seed", -1},
		{"max int64", math.MaxInt64},
		{"min int64", math.MinInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewSamplerSeed(tt.seed)
			if int64(key) != tt.seed {
				t.Errorf("NewSamplerSeed(%d) = %d, want %d", tt.seed, key, tt.seed)
			}
		})
	}
}

func TestPartitionedRNG_DeterministicDerivation(t *testing.T) {
	rng1 := NewPartitionedRNG(NewSamplerSeed(42))
	rng2 := NewPartitionedRNG(NewSamplerSeed(42))

	vals1 := make([]float64, 3)
	vals2 := make([]float64, 3)

	for i := 0; i < 3; i++ {
		vals1[i] = rng1.ForSample(7).Float64()
	}
	for i := 0; i < 3; i++ {
		vals2[i] = rng2.ForSample(7).Float64()
	}

	for i := 0; i < 3; i++ {
		if vals1[i] != vals2[i] {
			t.Errorf("value %d: got %v and %v, want identical", i, vals1[i], vals2[i])
		}
	}
}

func TestPartitionedRNG_SampleIsolation(t *testing.T) {
	// Drawing from one sample's RNG must not affect another sample's RNG,
	// and must not depend on draw order across samples.
	rngA := NewPartitionedRNG(NewSamplerSeed(42))
	rngB := NewPartitionedRNG(NewSamplerSeed(42))

	for i := 0; i < 10; i++ {
		rngA.ForSample(0).Float64()
	}
	for i := 0; i < 5; i++ {
		rngB.ForSample(1).Float64()
	}

	aSample1First := rngA.ForSample(1).Float64()
	bSample1Sixth := rngB.ForSample(1).Float64()

	fresh := NewPartitionedRNG(NewSamplerSeed(42))
	expectedFirst := fresh.ForSample(1).Float64()

	if aSample1First != expectedFirst {
		t.Errorf("A's sample-1 first value = %v, want %v (isolation broken)", aSample1First, expectedFirst)
	}
	if bSample1Sixth == expectedFirst {
		t.Error("B's 6th sample-1 value equals 1st value - unexpected")
	}
}

func TestPartitionedRNG_CachesInstance(t *testing.T) {
	rng := NewPartitionedRNG(NewSamplerSeed(42))

	rng1 := rng.ForSample(3)
	rng2 := rng.ForSample(3)

	if rng1 != rng2 {
		t.Error("ForSample returned different instances for same index")
	}
}

func TestPartitionedRNG_Seed(t *testing.T) {
	seed := int64(12345)
	rng := NewPartitionedRNG(NewSamplerSeed(seed))

	if rng.Seed() != SamplerSeed(seed) {
		t.Errorf("Seed() = %v, want %v", rng.Seed(), seed)
	}
}

func TestPartitionedRNG_ZeroSeed(t *testing.T) {
	rng := NewPartitionedRNG(NewSamplerSeed(0))

	a := rng.ForSample(0)
	b := rng.ForSample(1)

	if a == nil || b == nil {
		t.Error("ForSample returned nil with zero seed")
	}
	if a.Float64() == b.Float64() {
		t.Error("distinct sample indices produced identical RNG output under zero seed (unlikely collision or bug)")
	}
}

func TestPartitionedRNG_NegativeSeed(t *testing.T) {
	rng := NewPartitionedRNG(NewSamplerSeed(math.MinInt64))

	s0 := rng.ForSample(0)
	val := s0.Float64()
	if val < 0 || val >= 1 {
		t.Errorf("Float64() returned %v, want [0, 1)", val)
	}
}

func TestPartitionedRNG_LazyInitialization(t *testing.T) {
	rng := NewPartitionedRNG(NewSamplerSeed(42))

	if len(rng.rngs) != 0 {
		t.Errorf("new PartitionedRNG has %d cached rngs, want 0", len(rng.rngs))
	}

	rng.ForSample(0)

	if len(rng.rngs) != 1 {
		t.Errorf("after one ForSample call, have %d cached rngs, want 1", len(rng.rngs))
	}
}

func TestFnv1a64_Deterministic(t *testing.T) {
	input := "sample_7"
	hash1 := fnv1a64(input)
	hash2 := fnv1a64(input)

	if hash1 != hash2 {
		t.Errorf("fnv1a64(%q) not deterministic: %v != %v", input, hash1, hash2)
	}
}

func TestFnv1a64_Collision(t *testing.T) {
	names := []string{"sample_0", "sample_1", "sample_100", ""}

	hashes := make(map[int64]string)
	for _, name := range names {
		h := fnv1a64(name)
		if existing, ok := hashes[h]; ok {
			t.Errorf("hash collision: %q and %q both hash to %d", name, existing, h)
		}
		hashes[h] = name
	}
}

func BenchmarkPartitionedRNG_ForSample_CacheHit(b *testing.B) {
	rng := NewPartitionedRNG(NewSamplerSeed(42))
	rng.ForSample(0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rng.ForSample(0)
	}
}

func BenchmarkPartitionedRNG_ForSample_CacheMiss(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rng := NewPartitionedRNG(NewSamplerSeed(42))
		rng.ForSample(0)
	}
}

