package restrict

import "github.com/dagphase/dagphase"

// IBSProvider discovers raw identity-by-state segments between a target
// haplotype and a reference panel. Implementations are free to compute
// segments however they like (hash-based matching, PBWT, a precomputed
// index); RestrictedStates only needs the resulting segment list.
type IBSProvider interface {
	// Segments returns the raw IBS segments for haplotype hapIdx, in no
	// particular order and not necessarily filtered or extended.
	Segments(hapIdx int) []Segment
}

// NewRestrictedStatesFromProvider is a convenience constructor that pulls
// both haplotypes' segments from an IBSProvider before building the
// iterator.
func NewRestrictedStatesFromProvider(dag dagphase.Dag, hapStates [][]int32, ibs IBSProvider, hap1, hap2 int, ibdExtend float64, pos []float64) *RestrictedStates {
	return NewRestrictedStates(dag, hapStates, ibs.Segments(hap1), ibs.Segments(hap2), ibdExtend, pos)
}

// RestrictedStates implements the §6 DiploidStates iterator: at each
// marker it enumerates only the edge pairs reachable through IBS
// segments shared with a reference panel, rather than the full
// Cartesian product of every edge at that level.
type RestrictedStates struct {
	dag       dagphase.Dag
	tree1     *IntervalTree
	tree2     *IntervalTree
	hapStates [][]int32

	marker int
	pairs  [][2]int32
	pos    int
}

// NewRestrictedStates builds the iterator for one target sample's two
// haplotypes. segs1/segs2 are that haplotype's raw IBS segments against
// the reference panel; they are filtered and extended here per spec.
func NewRestrictedStates(dag dagphase.Dag, hapStates [][]int32, segs1, segs2 []Segment, ibdExtend float64, pos []float64) *RestrictedStates {
	const endFilterTol = 1
	f1 := FilterContained(segs1, endFilterTol)
	f2 := FilterContained(segs2, endFilterTol)
	e1 := ExtendSegments(f1, ibdExtend, pos)
	e2 := ExtendSegments(f2, ibdExtend, pos)
	return &RestrictedStates{
		dag:       dag,
		tree1:     NewIntervalTree(e1),
		tree2:     NewIntervalTree(e2),
		hapStates: hapStates,
		marker:    -1,
	}
}

// NMarkers returns the number of markers in the underlying DAG.
func (r *RestrictedStates) NMarkers() int { return r.dag.NLevels() }

// SetMarker resets iteration to marker m.
func (r *RestrictedStates) SetMarker(m int) {
	r.marker = m
	r.pos = 0
	i1 := r.edgeSet(r.tree1, m)
	i2 := r.edgeSet(r.tree2, m)
	r.pairs = cartesianWithMirror(i1, i2)
}

func (r *RestrictedStates) edgeSet(tree *IntervalTree, m int) []int32 {
	haps := tree.Query(m)
	seen := make(map[int32]bool, len(haps))
	out := make([]int32, 0, len(haps))
	for _, h := range haps {
		e := r.hapStates[m][h]
		if e < 0 || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// cartesianWithMirror yields every (e1, e2) in i1 x i2; for any such
// pair where e2 is not in i1, or e1 is not in i2, the reversed pair
// (e2, e1) is also yielded, deduplicated.
func cartesianWithMirror(i1, i2 []int32) [][2]int32 {
	in1 := make(map[int32]bool, len(i1))
	for _, e := range i1 {
		in1[e] = true
	}
	in2 := make(map[int32]bool, len(i2))
	for _, e := range i2 {
		in2[e] = true
	}

	seen := make(map[[2]int32]bool, len(i1)*len(i2))
	out := make([][2]int32, 0, len(i1)*len(i2))
	emit := func(e1, e2 int32) {
		key := [2]int32{e1, e2}
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, key)
	}

	for _, e1 := range i1 {
		for _, e2 := range i2 {
			emit(e1, e2)
			if !(in2[e1] && in1[e2]) {
				emit(e2, e1)
			}
		}
	}
	return out
}

// HasNext reports whether Next has a pair left to return.
func (r *RestrictedStates) HasNext() bool { return r.pos < len(r.pairs) }

// Next advances to the next pair.
func (r *RestrictedStates) Next() {
	r.pos++
}

// Edge1 returns the first edge of the current pair.
func (r *RestrictedStates) Edge1() int32 { return r.pairs[r.pos][0] }

// Edge2 returns the second edge of the current pair.
func (r *RestrictedStates) Edge2() int32 { return r.pairs[r.pos][1] }
