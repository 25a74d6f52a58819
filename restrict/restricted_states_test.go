package restrict

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dagphase/dagphase"
)

type stubDag struct {
	nLevels int
}

func (d *stubDag) NLevels() int                              { return d.nLevels }
func (d *stubDag) NParentNodes(m int) int                    { return 1 }
func (d *stubDag) ParentProb(m, n int) float32               { return 1 }
func (d *stubDag) NOutEdges(m, n int) int                    { return 0 }
func (d *stubDag) OutEdge(m, n, i int) int                   { return 0 }
func (d *stubDag) OutEdgeBySymbol(m, n, s int) (int, bool)   { return 0, false }
func (d *stubDag) Symbol(m, e int) int                       { return 0 }
func (d *stubDag) ParentNode(m, e int) int                   { return 0 }
func (d *stubDag) ChildNode(m, e int) int                    { return 0 }
func (d *stubDag) CondEdgeProb(m, e int) float32             { return 1 }
func (d *stubDag) EdgeProb(m, e int) float32                 { return 1 }
func (d *stubDag) MaxNodes() int                             { return 1 }
func (d *stubDag) Pos(m int) float64                         { return float64(m) }

// TestRestrictedStates_TwoSingletonSegments mirrors the golden scenario
// where both target haplotypes' IBS segments resolve to the same
// two-haplotype reference set spanning the whole region: the Cartesian
// product plus mirrored pairs collapses to exactly the 4 ordered pairs.
func TestRestrictedStates_TwoSingletonSegments(t *testing.T) {
	const L = 3
	dag := &stubDag{nLevels: L}
	hapStates := make([][]int32, L)
	for m := range hapStates {
		hapStates[m] = []int32{0, 1} // hap 0 -> edge 0, hap 1 -> edge 1
	}
	segs1 := []Segment{{Hap: 0, Start: 0, End: L - 1}, {Hap: 1, Start: 0, End: L - 1}}
	segs2 := []Segment{{Hap: 0, Start: 0, End: L - 1}, {Hap: 1, Start: 0, End: L - 1}}
	pos := []float64{0, 1, 2}

	it := NewRestrictedStates(dag, hapStates, segs1, segs2, 0, pos)
	it.SetMarker(1)

	var got [][2]int32
	for it.HasNext() {
		got = append(got, [2]int32{it.Edge1(), it.Edge2()})
		it.Next()
	}

	want := map[[2]int32]bool{
		{0, 0}: true, {0, 1}: true, {1, 0}: true, {1, 1}: true,
	}
	require.Len(t, got, 4)
	for _, p := range got {
		require.True(t, want[p], "unexpected pair %v", p)
		delete(want, p)
	}
	require.Empty(t, want)
}

func TestRestrictedStates_SetMarkerResetsIteration(t *testing.T) {
	const L = 2
	dag := &stubDag{nLevels: L}
	hapStates := [][]int32{{0}, {0}}
	segs := []Segment{{Hap: 0, Start: 0, End: L - 1}}
	pos := []float64{0, 1}

	it := NewRestrictedStates(dag, hapStates, segs, segs, 0, pos)
	it.SetMarker(0)
	require.True(t, it.HasNext())
	it.Next()
	require.False(t, it.HasNext())

	it.SetMarker(0)
	require.True(t, it.HasNext())
}

func TestFilterContained_DropsNestedSegment(t *testing.T) {
	segs := []Segment{
		{Hap: 0, Start: 0, End: 10},
		{Hap: 1, Start: 2, End: 4},
	}
	kept := FilterContained(segs, 1)
	require.Len(t, kept, 1)
	require.Equal(t, 0, kept[0].Hap)
}

func TestFilterContained_KeepsTwoDisjointSegments(t *testing.T) {
	segs := []Segment{
		{Hap: 0, Start: 0, End: 3},
		{Hap: 1, Start: 5, End: 8},
	}
	kept := FilterContained(segs, 1)
	require.Len(t, kept, 2)
}

func TestIntervalTree_QueryAndOverlaps(t *testing.T) {
	segs := []Segment{
		{Hap: 0, Start: 0, End: 4},
		{Hap: 1, Start: 3, End: 7},
		{Hap: 2, Start: 10, End: 12},
	}
	tree := NewIntervalTree(segs)

	require.ElementsMatch(t, []int{0}, tree.Query(1))
	require.ElementsMatch(t, []int{0, 1}, tree.Query(4))
	require.ElementsMatch(t, []int{1}, tree.Query(7))
	require.False(t, tree.Overlaps(8))
	require.True(t, tree.Overlaps(11))
}

func TestExtendSegments_StopsAtNeighborOverlap(t *testing.T) {
	segs := []Segment{
		{Hap: 0, Start: 2, End: 4},
		{Hap: 1, Start: 6, End: 8},
	}
	pos := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8}
	extended := ExtendSegments(segs, 5, pos)

	require.Equal(t, 0, extended[0].Start)
	require.Less(t, extended[0].End, 6)
	require.Greater(t, extended[1].Start, 4)
	require.Equal(t, 8, extended[1].End)
}

var _ dagphase.Dag = (*stubDag)(nil)
