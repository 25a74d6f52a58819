package dagphase

import "fmt"

// Marker is an opaque genomic site identifier carrying an allele alphabet
// size. NGenotypes is derived: the number of unordered genotypes over
// NAlleles alleles.
type Marker struct {
	ID       int
	NAlleles int
}

// NGenotypes returns nAlleles*(nAlleles+1)/2, the number of unordered
// genotypes over this marker's allele alphabet.
func (m Marker) NGenotypes() int {
	return m.NAlleles * (m.NAlleles + 1) / 2
}

// Markers is an immutable ordered list of Marker values, with precomputed
// prefix sums so callers can slice per-marker allele/genotype/haplotype-bit
// blocks in O(1) without rescanning.
type Markers struct {
	markers       []Marker
	alleleStart   []int // alleleStart[m] = sum of NAlleles over markers < m; len == len(markers)+1
	genotypeStart []int // genotypeStart[m] = sum of NGenotypes over markers < m
	hapBitStart   []int // hapBitStart[m] = sum of ceil(log2(NAlleles)) over markers < m
}

// NewMarkers builds an immutable Markers value from an ordered marker list.
// Returns ErrInvalidArg if any marker has NAlleles < 2.
func NewMarkers(markers []Marker) (Markers, error) {
	out := Markers{
		markers:       append([]Marker(nil), markers...),
		alleleStart:   make([]int, len(markers)+1),
		genotypeStart: make([]int, len(markers)+1),
		hapBitStart:   make([]int, len(markers)+1),
	}
	for i, mk := range out.markers {
		if mk.NAlleles < 2 {
			return Markers{}, fmt.Errorf("%w: marker %d has nAlleles=%d, want >= 2", ErrInvalidArg, i, mk.NAlleles)
		}
		out.alleleStart[i+1] = out.alleleStart[i] + mk.NAlleles
		out.genotypeStart[i+1] = out.genotypeStart[i] + mk.NGenotypes()
		out.hapBitStart[i+1] = out.hapBitStart[i] + bitsFor(mk.NAlleles)
	}
	return out, nil
}

func bitsFor(n int) int {
	bits := 0
	for (1 << bits) < n {
		bits++
	}
	return bits
}

// NMarkers returns the number of markers, L.
func (ms Markers) NMarkers() int { return len(ms.markers) }

// Marker returns the marker at index m.
func (ms Markers) Marker(m int) Marker { return ms.markers[m] }

// SumAlleles returns the prefix sum of allele counts before marker m
// (SumAlleles(0) == 0, SumAlleles(NMarkers()) == total allele count).
func (ms Markers) SumAlleles(m int) int { return ms.alleleStart[m] }

// SumGenotypes returns the prefix sum of genotype counts before marker m.
func (ms Markers) SumGenotypes(m int) int { return ms.genotypeStart[m] }

// SumHaplotypeBits returns the prefix sum of per-marker haplotype encoding
// bit-widths before marker m.
func (ms Markers) SumHaplotypeBits(m int) int { return ms.hapBitStart[m] }

// Reversed returns a new Markers with the marker order reversed, used by
// backward-oriented recursions that walk levels from L-1 down to 0.
func (ms Markers) Reversed() Markers {
	rev := make([]Marker, len(ms.markers))
	for i, mk := range ms.markers {
		rev[len(ms.markers)-1-i] = mk
	}
	out, _ := NewMarkers(rev)
	return out
}

// Equal reports whether two Markers describe the same ordered marker list.
func (ms Markers) Equal(other Markers) bool {
	if len(ms.markers) != len(other.markers) {
		return false
	}
	for i := range ms.markers {
		if ms.markers[i] != other.markers[i] {
			return false
		}
	}
	return true
}

// GenotypeIndex maps an unordered pair of allele symbols to an index in
// [0, nGenotypes) using the standard triangular packing: the pair is sorted
// so a1 <= a2, then indexed as a2*(a2+1)/2 + a1.
func GenotypeIndex(a1, a2 int) int {
	if a1 > a2 {
		a1, a2 = a2, a1
	}
	return a2*(a2+1)/2 + a1
}
