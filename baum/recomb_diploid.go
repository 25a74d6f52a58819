package baum

import (
	"fmt"

	"github.com/dagphase/dagphase"
	"github.com/dagphase/dagphase/nodemap"
)

// RecombDiploidLevel is one Baum level of the recombination-augmented
// diploid HMM (spec §4.3): like DiploidLevel, but the node-pair transition
// mixes four cases weighted by the per-level jump probability pRecomb(m) —
// no jump, hap1-only jump, hap2-only jump, both jump — using the
// consumed frontier's row/column/grand-total projections.
type RecombDiploidLevel struct {
	dag     dagphase.Dag
	gl      dagphase.GLProvider
	pRecomb []float32 // precomputed via dagphase.ComputePRecomb, shared across levels

	marker int
	sample int

	e1, e2   []int32
	fwd, bwd []float32

	fwdSum float32
	bwdSum float32

	gtProbs []float32
}

// NewRecombDiploidLevel creates an empty recombination-augmented diploid
// level. pRecomb is shared (read-only) across every level and every
// sample processed by a worker.
func NewRecombDiploidLevel(dag dagphase.Dag, gl dagphase.GLProvider, pRecomb []float32) *RecombDiploidLevel {
	return &RecombDiploidLevel{dag: dag, gl: gl, pRecomb: pRecomb}
}

// Reset empties the level's state for reuse.
func (l *RecombDiploidLevel) Reset() {
	l.e1 = l.e1[:0]
	l.e2 = l.e2[:0]
	l.fwd = l.fwd[:0]
	l.bwd = l.bwd[:0]
	l.fwdSum = 0
	l.bwdSum = 0
	l.gtProbs = nil
}

// Marker returns the level's current marker index.
func (l *RecombDiploidLevel) Marker() int { return l.marker }

// Sample returns the level's current sample index.
func (l *RecombDiploidLevel) Sample() int { return l.sample }

// Size returns the number of active states.
func (l *RecombDiploidLevel) Size() int { return len(l.e1) }

// Capacity returns the allocated length of the level's state arrays.
func (l *RecombDiploidLevel) Capacity() int { return cap(l.e1) }

// ShrinkTo reallocates the level's backing arrays to newCap.
func (l *RecombDiploidLevel) ShrinkTo(newCap int) {
	if newCap < 0 {
		newCap = 0
	}
	l.e1 = make([]int32, 0, newCap)
	l.e2 = make([]int32, 0, newCap)
	l.fwd = make([]float32, 0, newCap)
	l.bwd = make([]float32, 0, newCap)
}

// State returns the i-th active state's edges and forward/backward values.
func (l *RecombDiploidLevel) State(i int) (e1, e2 int, fwd, bwd float32) {
	return int(l.e1[i]), int(l.e2[i]), l.fwd[i], l.bwd[i]
}

// FwdSum returns the unnormalized forward mass before normalization.
func (l *RecombDiploidLevel) FwdSum() float32 { return l.fwdSum }

// BwdSum returns the unnormalized backward mass before normalization.
func (l *RecombDiploidLevel) BwdSum() float32 { return l.bwdSum }

// GTProbs returns the posterior genotype probabilities from the most
// recent backward call.
func (l *RecombDiploidLevel) GTProbs() []float32 { return l.gtProbs }

func (l *RecombDiploidLevel) grow(required int) {
	if cap(l.e1) >= required {
		return
	}
	newCap := growCapacity(cap(l.e1), required)
	growI := func(s []int32) []int32 {
		n := make([]int32, len(s), newCap)
		copy(n, s)
		return n
	}
	growF := func(s []float32) []float32 {
		n := make([]float32, len(s), newCap)
		copy(n, s)
		return n
	}
	l.e1, l.e2 = growI(l.e1), growI(l.e2)
	l.fwd, l.bwd = growF(l.fwd), growF(l.bwd)
}

func (l *RecombDiploidLevel) push(e1, e2 int, fwd float32) {
	l.grow(len(l.e1) + 1)
	l.e1 = append(l.e1, int32(e1))
	l.e2 = append(l.e2, int32(e2))
	l.fwd = append(l.fwd, fwd)
	l.bwd = append(l.bwd, 0)
}

// SetForwardValues initializes the level from the forward frontier at
// level m-1 (node pairs, over the full parent-node space of marker m, not
// just frontier-populated pairs — recombination can jump into a pair with
// no direct frontier mass). r = pRecomb[m] is the jump probability for the
// m-1 -> m transition.
func (l *RecombDiploidLevel) SetForwardValues(frontier *nodemap.NodeMap, m, sample int) error {
	l.Reset()
	l.marker = m
	l.sample = sample

	r := float32(0)
	if m < len(l.pRecomb) {
		r = l.pRecomb[m]
	}
	oneMinusR := 1 - r
	total := frontier.Total()
	nParent := l.dag.NParentNodes(m)

	for n1 := 0; n1 < nParent; n1++ {
		row := frontier.RowSum1(n1)
		pp1 := l.dag.ParentProb(m, n1)
		for n2 := 0; n2 < nParent; n2++ {
			col := frontier.ColSum2(n2)
			pp2 := l.dag.ParentProb(m, n2)
			diag := frontier.Value(nodemap.Key2(n1, n2))

			base := oneMinusR*oneMinusR*diag +
				oneMinusR*r*pp2*row +
				r*oneMinusR*pp1*col +
				r*r*pp1*pp2*total
			if base <= 0 {
				continue
			}

			for i1 := 0; i1 < l.dag.NOutEdges(m, n1); i1++ {
				e1 := l.dag.OutEdge(m, n1, i1)
				s1 := l.dag.Symbol(m, e1)
				cep1 := l.dag.CondEdgeProb(m, e1)
				for i2 := 0; i2 < l.dag.NOutEdges(m, n2); i2++ {
					e2 := l.dag.OutEdge(m, n2, i2)
					s2 := l.dag.Symbol(m, e2)
					ep := l.gl.GL(m, sample, s1, s2)
					if ep <= 0 {
						continue
					}
					f := clampFloor(ep * cep1 * l.dag.CondEdgeProb(m, e2) * base)
					l.push(e1, e2, f)
				}
			}
		}
	}

	if l.Size() == 0 {
		return fmt.Errorf("%w: marker %d sample %d has no consistent recombination state", dagphase.ErrNoConsistentState, m, sample)
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

// weightedProjections scans frontier once and returns, for the backward
// mixing formula: the parentProb(m+1,*)-weighted row sums keyed by first
// node, the parentProb-weighted column sums keyed by second node, and the
// doubly-weighted grand total. Plain (unweighted) RowSum1/ColSum2/Total
// answer a different question (needed for forward, where the target node
// is a single fixed value so its weight factors out of the sum); here the
// backward recursion sums over all possible origins of a fixed target, so
// the weight must be folded in per-entry before summing.
func weightedProjections(dag dagphase.Dag, frontier *nodemap.NodeMap, mNext int) (wRow, wCol map[int32]float32, wTotal float32) {
	wRow = make(map[int32]float32)
	wCol = make(map[int32]float32)
	for i := 0; i < frontier.Size(); i++ {
		key, v := frontier.Enum(i)
		n1, n2 := key.N1, key.N2
		pp1 := dag.ParentProb(mNext, int(n1))
		pp2 := dag.ParentProb(mNext, int(n2))
		wRow[n1] += pp2 * v
		wCol[n2] += pp1 * v
		wTotal += pp1 * pp2 * v
	}
	return wRow, wCol, wTotal
}

// SetBackwardValues consumes the backward frontier at level m+1 (built by
// level m+1's own SetBackwardValues or setInitialBackwardValues, keyed by
// its parent-node pairs), mixes it through the same four-case recombination
// split mirrored for the backward direction, fills gtProbs, and writes the
// (unmixed — mixing happens at level m-1's read side) parent-node backward
// frontier for level m-1.
func (l *RecombDiploidLevel) SetBackwardValues(frontier *nodemap.NodeMap) error {
	m := l.marker
	r := float32(0)
	if m+1 < len(l.pRecomb) {
		r = l.pRecomb[m+1]
	}
	oneMinusR := 1 - r

	wRow, wCol, wTotal := weightedProjections(l.dag, frontier, m+1)

	var bwdSum float32
	for i := range l.bwd {
		c1 := int32(l.dag.ChildNode(m, int(l.e1[i])))
		c2 := int32(l.dag.ChildNode(m, int(l.e2[i])))
		diag := frontier.Value(nodemap.Key2(int(c1), int(c2)))
		b := oneMinusR*oneMinusR*diag +
			oneMinusR*r*wRow[c1] +
			r*oneMinusR*wCol[c2] +
			r*r*wTotal
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
		l.gtProbs[dagphase.GenotypeIndex(s1, s2)] += stateProb
		gtSum += stateProb

		c := clampFloor(l.bwd[i] * l.dag.CondEdgeProb(m, e1) * l.dag.CondEdgeProb(m, e2) * l.gl.GL(m, l.sample, s1, s2))
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

// SetInitialBackwardValues initializes the level at the final marker
// (L-1), where there is no child-level frontier to consume: every active
// state gets a uniform backward value 1/size, gtProbs is populated
// directly from the forward values (since bwd_i is constant), and the
// parent-node backward frontier for level L-2 is written using the plain
// (unmixed) contribution formula — recombination mixing for the L-2 -> L-1
// transition happens when level L-2 reads this frontier.
func (l *RecombDiploidLevel) SetInitialBackwardValues(frontier *nodemap.NodeMap) error {
	m := l.marker
	n := l.Size()
	if n == 0 {
		return fmt.Errorf("%w: marker %d sample %d has no states to initialize backward pass", dagphase.ErrNoConsistentState, m, l.sample)
	}
	uniform := float32(1) / float32(n)
	l.bwdSum = 1

	for g := range l.gtProbs {
		l.gtProbs[g] = 0
	}

	for i := range l.bwd {
		l.bwd[i] = uniform
		e1, e2 := int(l.e1[i]), int(l.e2[i])
		s1, s2 := l.dag.Symbol(m, e1), l.dag.Symbol(m, e2)
		l.gtProbs[dagphase.GenotypeIndex(s1, s2)] += l.fwd[i] * uniform

		c := clampFloor(uniform * l.dag.CondEdgeProb(m, e1) * l.dag.CondEdgeProb(m, e2) * l.gl.GL(m, l.sample, s1, s2))
		if c > 0 {
			parent1 := l.dag.ParentNode(m, e1)
			parent2 := l.dag.ParentNode(m, e2)
			if err := frontier.SumUpdate(nodemap.Key2(parent1, parent2), c); err != nil {
				return err
			}
		}
	}

	var gtSum float32
	for _, g := range l.gtProbs {
		gtSum += g
	}
	if gtSum > 0 {
		for g := range l.gtProbs {
			l.gtProbs[g] /= gtSum
		}
	}
	return nil
}
