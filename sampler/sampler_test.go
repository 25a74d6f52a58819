package sampler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dagphase/dagphase"
	"github.com/dagphase/dagphase/baum"
	"github.com/dagphase/dagphase/internal/testutil"
)

// chainDag is a uniform-branching chain DAG, mirroring baum's test fixture:
// node n at level m has nAlleles out-edges, edge id n*nAlleles+i, with
// ChildNode(m, e) == e by construction.
type chainDag struct {
	nAlleles int
	nLevels  int
	cond     [][]float32
}

func (d *chainDag) NLevels() int { return d.nLevels }
func (d *chainDag) NParentNodes(m int) int {
	n := 1
	for i := 0; i < m; i++ {
		n *= d.nAlleles
	}
	return n
}
func (d *chainDag) ParentProb(m, n int) float32 { return 1 / float32(d.NParentNodes(m)) }
func (d *chainDag) NOutEdges(m, n int) int      { return d.nAlleles }
func (d *chainDag) OutEdge(m, n, i int) int      { return n*d.nAlleles + i }
func (d *chainDag) OutEdgeBySymbol(m, n, s int) (int, bool) {
	if s < 0 || s >= d.nAlleles {
		return 0, false
	}
	return n*d.nAlleles + s, true
}
func (d *chainDag) Symbol(m, e int) int      { return e % d.nAlleles }
func (d *chainDag) ParentNode(m, e int) int  { return e / d.nAlleles }
func (d *chainDag) ChildNode(m, e int) int   { return e }
func (d *chainDag) CondEdgeProb(m, e int) float32 { return d.cond[m][e%d.nAlleles] }
func (d *chainDag) EdgeProb(m, e int) float32     { return d.cond[m][e%d.nAlleles] }
func (d *chainDag) MaxNodes() int                 { return d.NParentNodes(d.nLevels) }
func (d *chainDag) Pos(m int) float64             { return float64(m) }

var _ dagphase.Dag = (*chainDag)(nil)

type chainGL struct {
	nAlleles int
	markers  dagphase.Markers
	gl       [][]float32 // [m][a1*nAlleles+a2]
}

func newChainGL(nAlleles int, gl [][]float32) *chainGL {
	ms := make([]dagphase.Marker, len(gl))
	for i := range ms {
		ms[i] = dagphase.Marker{ID: i, NAlleles: nAlleles}
	}
	markers, err := dagphase.NewMarkers(ms)
	if err != nil {
		panic(err)
	}
	return &chainGL{nAlleles: nAlleles, markers: markers, gl: gl}
}

func (g *chainGL) GL(m, sample, a1, a2 int) float32 { return g.gl[m][a1*g.nAlleles+a2] }
func (g *chainGL) NMarkers() int                     { return g.markers.NMarkers() }
func (g *chainGL) Marker(m int) dagphase.Marker       { return g.markers.Marker(m) }
func (g *chainGL) Markers() dagphase.Markers          { return g.markers }
func (g *chainGL) NSamples() int                      { return 1 }

var _ dagphase.GLProvider = (*chainGL)(nil)

// TestSample_DegenerateSingleMarker mirrors S1: a single marker where only
// the homozygous-reference genotype has nonzero emission, so every sampled
// pair must be (0, 0) and gtProbs collapses to [1, 0, 0].
func TestSample_DegenerateSingleMarker(t *testing.T) {
	dag := &chainDag{nAlleles: 2, nLevels: 1, cond: [][]float32{{0.6, 0.4}}}
	gl := newChainGL(2, [][]float32{{1, 0, 0, 0}})

	d := NewDriver(dag, gl, func() level { return baum.NewDiploidLevel(dag, gl) }, false, dagphase.NewPartitionedRNG(dagphase.NewSamplerSeed(42)), nil)
	gtProbs := make([]float32, gl.Markers().SumGenotypes(1))
	samples, err := d.Sample(0, 5, gtProbs)
	require.NoError(t, err)
	require.Len(t, samples, 5)
	for _, s := range samples {
		require.Equal(t, []int{0}, s.Allele1)
		require.Equal(t, []int{0}, s.Allele2)
	}
	testutil.AssertFloat32Equal(t, "gtProbs[0]", 1, gtProbs[0], 1e-5)
	testutil.AssertFloat32Equal(t, "gtProbs[1]", 0, gtProbs[1], 1e-5)
	testutil.AssertFloat32Equal(t, "gtProbs[2]", 0, gtProbs[2], 1e-5)
}

// TestSample_CheckpointingEquivalence mirrors S4: identical seed + inputs,
// lowMem on vs off, must produce identical sampled haplotype pairs and
// posterior genotype probabilities.
func TestSample_CheckpointingEquivalence(t *testing.T) {
	const nAlleles, nLevels = 2, 12
	cond := make([][]float32, nLevels)
	gl := make([][]float32, nLevels)
	for m := range cond {
		cond[m] = []float32{0.5, 0.5}
		gl[m] = []float32{1, 1, 1, 1}
	}
	dag := &chainDag{nAlleles: nAlleles, nLevels: nLevels, cond: cond}
	glp := newChainGL(nAlleles, gl)

	run := func(lowMem bool) ([]HapPairSample, []float32) {
		d := NewDriver(dag, glp, func() level { return baum.NewDiploidLevel(dag, glp) }, lowMem, dagphase.NewPartitionedRNG(dagphase.NewSamplerSeed(7)), nil)
		gtProbs := make([]float32, glp.Markers().SumGenotypes(nLevels))
		samples, err := d.Sample(0, 3, gtProbs)
		require.NoError(t, err)
		return samples, gtProbs
	}

	samplesFull, gtFull := run(false)
	samplesLow, gtLow := run(true)

	require.Equal(t, len(samplesFull), len(samplesLow))
	for i := range samplesFull {
		require.Equal(t, samplesFull[i].Allele1, samplesLow[i].Allele1)
		require.Equal(t, samplesFull[i].Allele2, samplesLow[i].Allele2)
	}
	require.Equal(t, len(gtFull), len(gtLow))
	for g := range gtFull {
		testutil.AssertFloat32Equal(t, "gtProbs", gtFull[g], gtLow[g], 1e-5)
	}
}

func TestSample_NoConsistentState(t *testing.T) {
	dag := &chainDag{nAlleles: 2, nLevels: 1, cond: [][]float32{{0.6, 0.4}}}
	gl := newChainGL(2, [][]float32{{0, 0, 0, 0}})

	d := NewDriver(dag, gl, func() level { return baum.NewDiploidLevel(dag, gl) }, false, dagphase.NewPartitionedRNG(dagphase.NewSamplerSeed(1)), nil)
	_, err := d.Sample(0, 1, nil)
	require.Error(t, err)
}

// TestSample_RecombLevelTraceback exercises the driver over
// baum.RecombDiploidLevel with a nonzero jump probability at every marker,
// asserting the recomb traceback (over this chainDag's nAlleles^m parent
// nodes at level m, so the row/col/jump weights add mass beyond the plain
// node-pair match) still reaches valid, fully-covered haplotype pairs and a
// normalized posterior.
func TestSample_RecombLevelTraceback(t *testing.T) {
	const nAlleles, nLevels = 2, 8
	cond := make([][]float32, nLevels)
	gl := make([][]float32, nLevels)
	pRecomb := make([]float32, nLevels)
	for m := range cond {
		cond[m] = []float32{0.5, 0.5}
		gl[m] = []float32{1, 0.5, 0.5, 1}
		pRecomb[m] = 0.1
	}
	dag := &chainDag{nAlleles: nAlleles, nLevels: nLevels, cond: cond}
	glp := newChainGL(nAlleles, gl)

	d := NewDriver(dag, glp, func() level { return baum.NewRecombDiploidLevel(dag, glp, pRecomb) }, false, dagphase.NewPartitionedRNG(dagphase.NewSamplerSeed(3)), pRecomb)
	gtProbs := make([]float32, glp.Markers().SumGenotypes(nLevels))
	samples, err := d.Sample(0, 4, gtProbs)
	require.NoError(t, err)
	require.Len(t, samples, 4)
	for _, s := range samples {
		require.Len(t, s.Allele1, nLevels)
		require.Len(t, s.Allele2, nLevels)
	}

	for m := 0; m < nLevels; m++ {
		var sum float32
		for _, p := range gtProbs[glp.Markers().SumGenotypes(m):glp.Markers().SumGenotypes(m+1)] {
			sum += p
		}
		testutil.AssertFloat32Equal(t, "gtProbs marker sum", 1, sum, 1e-4)
	}
}
