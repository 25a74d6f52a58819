package baum

import (
	"github.com/dagphase/dagphase"
)

// goldenDag is a uniform-branching leveled DAG for the golden scenarios: at
// every level every node has the same out-edge structure (same symbols,
// same conditional probabilities), so one per-marker cond-edge-prob vector
// fully describes the level regardless of which node it's attached to. Edge
// ids are chosen so ChildNode is the identity, since node n's s-th edge
// leads to exactly the s-th of the nAlleles children spawned by n, globally
// numbered n*nAlleles+s — which is also that child's own position among level m+1's
// NParentNodes(m)*nAlleles nodes.
type goldenDag struct {
	nAlleles int
	nLevels  int
	cond     [][]float32 // cond[m][s]
}

func (d *goldenDag) NLevels() int { return d.nLevels }

func (d *goldenDag) NParentNodes(m int) int {
	n := 1
	for i := 0; i < m; i++ {
		n *= d.nAlleles
	}
	return n
}

func (d *goldenDag) ParentProb(m, n int) float32 { return 1 / float32(d.NParentNodes(m)) }

func (d *goldenDag) NOutEdges(m, n int) int { return d.nAlleles }

func (d *goldenDag) OutEdge(m, n, i int) int { return n*d.nAlleles + i }

func (d *goldenDag) OutEdgeBySymbol(m, n, s int) (int, bool) {
	if s < 0 || s >= d.nAlleles {
		return -1, false
	}
	return n*d.nAlleles + s, true
}

func (d *goldenDag) Symbol(m, e int) int { return e % d.nAlleles }

func (d *goldenDag) ParentNode(m, e int) int { return e / d.nAlleles }

func (d *goldenDag) ChildNode(m, e int) int { return e }

func (d *goldenDag) CondEdgeProb(m, e int) float32 { return d.cond[m][e%d.nAlleles] }

func (d *goldenDag) EdgeProb(m, e int) float32 {
	return d.ParentProb(m, d.ParentNode(m, e)) * d.CondEdgeProb(m, e)
}

func (d *goldenDag) MaxNodes() int { return d.NParentNodes(d.nLevels-1) * d.nAlleles }

func (d *goldenDag) Pos(m int) float64 { return float64(m) }

// goldenGL supplies a single sample's GL table from a flat [m][a1*nAlleles+a2]
// array, identical regardless of which node pair produced (a1, a2).
type goldenGL struct {
	nAlleles int
	markers  dagphase.Markers
	gl       [][]float32
}

func newGoldenGL(nAlleles int, gl [][]float32) *goldenGL {
	ms := make([]dagphase.Marker, len(gl))
	for i := range ms {
		ms[i] = dagphase.Marker{ID: i, NAlleles: nAlleles}
	}
	markers, err := dagphase.NewMarkers(ms)
	if err != nil {
		panic(err)
	}
	return &goldenGL{nAlleles: nAlleles, markers: markers, gl: gl}
}

func (g *goldenGL) GL(m, sample, a1, a2 int) float32 { return g.gl[m][a1*g.nAlleles+a2] }
func (g *goldenGL) NMarkers() int                    { return g.markers.NMarkers() }
func (g *goldenGL) Marker(m int) dagphase.Marker     { return g.markers.Marker(m) }
func (g *goldenGL) Markers() dagphase.Markers        { return g.markers }
func (g *goldenGL) NSamples() int                    { return 1 }
