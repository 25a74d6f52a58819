package dagphase

import "fmt"

// HapPair is an immutable view of the two haplotypes of one sample across
// all markers.
type HapPair struct {
	idIndex int
	markers Markers
	a1      []int
	a2      []int
}

// NewHapPair builds a HapPair for sample idIndex. a1 and a2 must each have
// length markers.NMarkers().
func NewHapPair(idIndex int, markers Markers, a1, a2 []int) (HapPair, error) {
	if len(a1) != markers.NMarkers() || len(a2) != markers.NMarkers() {
		return HapPair{}, fmt.Errorf("%w: haplotype length %d/%d != nMarkers %d", ErrInconsistentInputs, len(a1), len(a2), markers.NMarkers())
	}
	return HapPair{
		idIndex: idIndex,
		markers: markers,
		a1:      append([]int(nil), a1...),
		a2:      append([]int(nil), a2...),
	}, nil
}

// Allele1 returns the first haplotype's allele symbol at marker m.
func (hp HapPair) Allele1(m int) int { return hp.a1[m] }

// Allele2 returns the second haplotype's allele symbol at marker m.
func (hp HapPair) Allele2(m int) int { return hp.a2[m] }

// IDIndex returns the sample index this pair belongs to.
func (hp HapPair) IDIndex() int { return hp.idIndex }

// Markers returns the shared Markers this pair is defined over.
func (hp HapPair) Markers() Markers { return hp.markers }

// SampleHapPairs is an array of HapPair sharing one Markers value.
type SampleHapPairs struct {
	markers Markers
	pairs   []HapPair
}

// NewSampleHapPairs builds a SampleHapPairs, requiring every pair to share
// the given Markers.
func NewSampleHapPairs(markers Markers, pairs []HapPair) (SampleHapPairs, error) {
	for i, p := range pairs {
		if !p.markers.Equal(markers) {
			return SampleHapPairs{}, fmt.Errorf("%w: pair %d markers mismatch", ErrInconsistentInputs, i)
		}
	}
	return SampleHapPairs{markers: markers, pairs: append([]HapPair(nil), pairs...)}, nil
}

// NSamples returns the number of haplotype pairs.
func (s SampleHapPairs) NSamples() int { return len(s.pairs) }

// Pair returns the i-th haplotype pair.
func (s SampleHapPairs) Pair(i int) HapPair { return s.pairs[i] }

// Markers returns the shared Markers value.
func (s SampleHapPairs) Markers() Markers { return s.markers }
