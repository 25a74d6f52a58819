package baum

import (
	"fmt"

	"github.com/dagphase/dagphase"
	"github.com/dagphase/dagphase/nodemap"
)

// DiploidLevel is one Baum level of the non-recombination diploid HMM
// (spec §4.2): states are edge pairs (e1, e2), one per sample at one
// marker.
type DiploidLevel struct {
	dag dagphase.Dag
	gl  dagphase.GLProvider

	marker int
	sample int

	e1, e2   []int32
	fwd, bwd []float32

	fwdSum float32
	bwdSum float32

	gtProbs []float32
}

// NewDiploidLevel creates an empty diploid level over dag/gl. Levels are
// recycled across samples via Reset; this constructor is called once per
// worker, not once per sample.
func NewDiploidLevel(dag dagphase.Dag, gl dagphase.GLProvider) *DiploidLevel {
	return &DiploidLevel{dag: dag, gl: gl}
}

// Reset empties the level's state for reuse, preserving backing array
// capacity.
func (l *DiploidLevel) Reset() {
	l.e1 = l.e1[:0]
	l.e2 = l.e2[:0]
	l.fwd = l.fwd[:0]
	l.bwd = l.bwd[:0]
	l.fwdSum = 0
	l.bwdSum = 0
	l.gtProbs = nil
}

// Marker returns the level's current marker index.
func (l *DiploidLevel) Marker() int { return l.marker }

// Sample returns the level's current sample index.
func (l *DiploidLevel) Sample() int { return l.sample }

// Size returns the number of active states.
func (l *DiploidLevel) Size() int { return len(l.e1) }

// Capacity returns the allocated length of the level's state arrays, used
// by the sampler driver's level-pruning pass.
func (l *DiploidLevel) Capacity() int { return cap(l.e1) }

// ShrinkTo reallocates the level's backing arrays to newCap, discarding any
// live state (callers only shrink levels between uses, never mid-recursion).
func (l *DiploidLevel) ShrinkTo(newCap int) {
	if newCap < 0 {
		newCap = 0
	}
	l.e1 = make([]int32, 0, newCap)
	l.e2 = make([]int32, 0, newCap)
	l.fwd = make([]float32, 0, newCap)
	l.bwd = make([]float32, 0, newCap)
}

// State returns the i-th active state's edges and forward/backward values.
func (l *DiploidLevel) State(i int) (e1, e2 int, fwd, bwd float32) {
	return int(l.e1[i]), int(l.e2[i]), l.fwd[i], l.bwd[i]
}

// FwdSum returns the unnormalized forward mass summed before normalization.
func (l *DiploidLevel) FwdSum() float32 { return l.fwdSum }

// BwdSum returns the unnormalized backward mass summed before normalization.
func (l *DiploidLevel) BwdSum() float32 { return l.bwdSum }

// GTProbs returns the posterior genotype probabilities computed by the most
// recent SetBackwardValues call; meaningless (all zero) before that call.
func (l *DiploidLevel) GTProbs() []float32 { return l.gtProbs }

func (l *DiploidLevel) grow(required int) {
	if cap(l.e1) >= required {
		return
	}
	newCap := growCapacity(cap(l.e1), required)
	grow := func(s []int32) []int32 {
		n := make([]int32, len(s), newCap)
		copy(n, s)
		return n
	}
	growF := func(s []float32) []float32 {
		n := make([]float32, len(s), newCap)
		copy(n, s)
		return n
	}
	l.e1, l.e2 = grow(l.e1), grow(l.e2)
	l.fwd, l.bwd = growF(l.fwd), growF(l.bwd)
}

func (l *DiploidLevel) push(e1, e2 int, fwd float32) {
	l.grow(len(l.e1) + 1)
	l.e1 = append(l.e1, int32(e1))
	l.e2 = append(l.e2, int32(e2))
	l.fwd = append(l.fwd, fwd)
	l.bwd = append(l.bwd, 0)
}

// SetForwardValues initializes the level from the forward frontier at
// level m-1 (or, for m==0, a frontier pre-seeded with the root nodes' DAG
// marginal probabilities), populates active states, normalizes them, and
// writes the new child-node frontier into frontier for level m.
func (l *DiploidLevel) SetForwardValues(frontier *nodemap.NodeMap, m, sample int) error {
	l.Reset()
	l.marker = m
	l.sample = sample

	frontierSize := frontier.Size()
	for i := 0; i < frontierSize; i++ {
		key, v := frontier.Enum(i)
		n1, n2 := int(key.N1), int(key.N2)
		for i1 := 0; i1 < l.dag.NOutEdges(m, n1); i1++ {
			e1 := l.dag.OutEdge(m, n1, i1)
			s1 := l.dag.Symbol(m, e1)
			for i2 := 0; i2 < l.dag.NOutEdges(m, n2); i2++ {
				e2 := l.dag.OutEdge(m, n2, i2)
				s2 := l.dag.Symbol(m, e2)
				ep := l.gl.GL(m, sample, s1, s2)
				if ep <= 0 {
					continue
				}
				f := ep * v * l.dag.CondEdgeProb(m, e1) * l.dag.CondEdgeProb(m, e2)
				f = clampFloor(f)
				l.push(e1, e2, f)
			}
		}
	}

	if l.Size() == 0 {
		return fmt.Errorf("%w: marker %d sample %d has no consistent diploid state", dagphase.ErrNoConsistentState, m, sample)
	}

	var sum float32
	for _, f := range l.fwd {
		sum += f
	}
	if sum <= 0 {
		return fmt.Errorf("%w: marker %d sample %d forward sum %v <= 0", dagphase.ErrNumericUnderflow, m, sample, sum)
	}
	l.fwdSum = sum

	frontier.Clear()
	for i := range l.fwd {
		l.fwd[i] /= sum
		child1 := l.dag.ChildNode(m, int(l.e1[i]))
		child2 := l.dag.ChildNode(m, int(l.e2[i]))
		if err := frontier.SumUpdate(nodemap.Key2(child1, child2), l.fwd[i]); err != nil {
			return err
		}
	}

	l.gtProbs = make([]float32, l.gl.Marker(m).NGenotypes())
	return nil
}

// SetBackwardValues consumes the backward frontier at level m+1, fills
// each state's backward value and the posterior genotype probabilities,
// and writes the parent-node backward frontier for level m-1.
func (l *DiploidLevel) SetBackwardValues(frontier *nodemap.NodeMap) error {
	m := l.marker
	var bwdSum float32
	for i := range l.bwd {
		child1 := l.dag.ChildNode(m, int(l.e1[i]))
		child2 := l.dag.ChildNode(m, int(l.e2[i]))
		b := frontier.Value(nodemap.Key2(child1, child2))
		l.bwd[i] = b
		bwdSum += b
	}
	frontier.Clear()

	if bwdSum <= 0 {
		return fmt.Errorf("%w: marker %d sample %d backward sum %v <= 0", dagphase.ErrNumericUnderflow, m, l.sample, bwdSum)
	}
	l.bwdSum = bwdSum

	for g := range l.gtProbs {
		l.gtProbs[g] = 0
	}

	var gtSum float32
	for i := range l.bwd {
		l.bwd[i] /= bwdSum
		e1, e2 := int(l.e1[i]), int(l.e2[i])
		s1, s2 := l.dag.Symbol(m, e1), l.dag.Symbol(m, e2)
		stateProb := l.fwd[i] * l.bwd[i]
		g := dagphase.GenotypeIndex(s1, s2)
		l.gtProbs[g] += stateProb
		gtSum += stateProb

		c := l.bwd[i] * l.dag.CondEdgeProb(m, e1) * l.dag.CondEdgeProb(m, e2) * l.gl.GL(m, l.sample, s1, s2)
		c = clampFloor(c)
		if c > 0 {
			parent1 := l.dag.ParentNode(m, e1)
			parent2 := l.dag.ParentNode(m, e2)
			if err := frontier.SumUpdate(nodemap.Key2(parent1, parent2), c); err != nil {
				return err
			}
		}
	}

	if gtSum > 0 {
		for g := range l.gtProbs {
			l.gtProbs[g] /= gtSum
		}
	}
	return nil
}
