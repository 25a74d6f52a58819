package baum

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dagphase/dagphase"
	"github.com/dagphase/dagphase/internal/testutil"
	"github.com/dagphase/dagphase/nodemap"
)

// goldenAL adapts a goldenGL-shaped per-marker table to ALProvider: AL(m,
// h, a) reads row m, column a, ignoring h (every test haplotype shares the
// table, matching the single-haplotype golden fixtures' reuse of S1/S2's
// shape).
type goldenAL struct {
	nAlleles int
	markers  dagphase.Markers
	al       [][]float32 // [m][a]
}

func newGoldenAL(nAlleles int, al [][]float32) *goldenAL {
	ms := make([]dagphase.Marker, len(al))
	for i := range ms {
		ms[i] = dagphase.Marker{ID: i, NAlleles: nAlleles}
	}
	markers, err := dagphase.NewMarkers(ms)
	if err != nil {
		panic(err)
	}
	return &goldenAL{nAlleles: nAlleles, markers: markers, al: al}
}

func (a *goldenAL) AL(m, h, allele int) float32 { return a.al[m][allele] }
func (a *goldenAL) NMarkers() int                { return a.markers.NMarkers() }
func (a *goldenAL) Marker(m int) dagphase.Marker { return a.markers.Marker(m) }
func (a *goldenAL) Markers() dagphase.Markers    { return a.markers }

func TestHaploidLevel_DegenerateSingleMarker(t *testing.T) {
	dag := &goldenDag{nAlleles: 2, nLevels: 1, cond: [][]float32{{0.6, 0.4}}}
	al := newGoldenAL(2, [][]float32{{1, 0}})

	lv := NewHaploidLevel(dag, al)
	frontier := nodemap.New(0)
	require.NoError(t, frontier.SumUpdate(nodemap.Key1(0), 1))
	require.NoError(t, lv.SetForwardValues(frontier, 0, 0))

	bwdFrontier := nodemap.New(0)
	for i := 0; i < lv.Size(); i++ {
		e, _, _ := lv.State(i)
		require.NoError(t, bwdFrontier.SumUpdate(nodemap.Key1(dag.ChildNode(0, e)), 1))
	}
	require.NoError(t, lv.SetBackwardValues(bwdFrontier))

	got := lv.AlProbs()
	require.Equal(t, []float32{1, 0}, got)
}

func TestHaploidLevel_UniformEmissionTwoMarker(t *testing.T) {
	dag := &goldenDag{nAlleles: 2, nLevels: 2, cond: [][]float32{{0.5, 0.5}, {0.5, 0.5}}}
	al := newGoldenAL(2, [][]float32{{1, 1}, {1, 1}})

	levels := make([]*HaploidLevel, 2)
	frontier := nodemap.New(0)
	require.NoError(t, frontier.SumUpdate(nodemap.Key1(0), 1))
	for m := 0; m < 2; m++ {
		lv := NewHaploidLevel(dag, al)
		require.NoError(t, lv.SetForwardValues(frontier, m, 0))
		levels[m] = lv
	}

	bwdFrontier := nodemap.New(0)
	last := levels[1]
	for i := 0; i < last.Size(); i++ {
		e, _, _ := last.State(i)
		require.NoError(t, bwdFrontier.SumUpdate(nodemap.Key1(dag.ChildNode(1, e)), 1))
	}
	for m := 1; m >= 0; m-- {
		require.NoError(t, levels[m].SetBackwardValues(bwdFrontier))
	}

	for m := 0; m < 2; m++ {
		got := levels[m].AlProbs()
		testutil.AssertFloat32Equal(t, "alProbs[0]", 0.5, got[0], 1e-5)
		testutil.AssertFloat32Equal(t, "alProbs[1]", 0.5, got[1], 1e-5)
		testutil.AssertSumsToOne(t, "alProbs", got, 1e-5)
	}
}

func TestHaploidLevel_NoConsistentState(t *testing.T) {
	dag := &goldenDag{nAlleles: 2, nLevels: 1, cond: [][]float32{{0.6, 0.4}}}
	al := newGoldenAL(2, [][]float32{{0, 0}})

	lv := NewHaploidLevel(dag, al)
	frontier := nodemap.New(0)
	require.NoError(t, frontier.SumUpdate(nodemap.Key1(0), 1))
	require.Error(t, lv.SetForwardValues(frontier, 0, 0))
}
