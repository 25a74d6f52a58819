package baum

import (
	"fmt"

	"github.com/dagphase/dagphase"
	"github.com/dagphase/dagphase/nodemap"
)

// DuoLevel is one Baum level of the parent/offspring transmission HMM
// (spec §4.5): states are triples (edgeAB1, edgeA2, edgeB2) modeling a
// transmitted haplotype shared between a parent (sample A) and offspring
// (sample B).
type DuoLevel struct {
	dag dagphase.Dag
	gl  dagphase.GLProvider

	marker        int
	sampleA       int
	sampleB       int

	eAB1, eA2, eB2 []int32
	fwd, bwd       []float32

	fwdSum float32
	bwdSum float32

	gtProbsA []float32
	gtProbsB []float32
}

// NewDuoLevel creates an empty duo level over dag/gl.
func NewDuoLevel(dag dagphase.Dag, gl dagphase.GLProvider) *DuoLevel {
	return &DuoLevel{dag: dag, gl: gl}
}

// Reset empties the level's state for reuse.
func (l *DuoLevel) Reset() {
	l.eAB1 = l.eAB1[:0]
	l.eA2 = l.eA2[:0]
	l.eB2 = l.eB2[:0]
	l.fwd = l.fwd[:0]
	l.bwd = l.bwd[:0]
	l.fwdSum = 0
	l.bwdSum = 0
	l.gtProbsA = nil
	l.gtProbsB = nil
}

// Size returns the number of active states.
func (l *DuoLevel) Size() int { return len(l.eAB1) }

// Capacity returns the allocated length of the level's state arrays.
func (l *DuoLevel) Capacity() int { return cap(l.eAB1) }

// ShrinkTo reallocates the level's backing arrays to newCap.
func (l *DuoLevel) ShrinkTo(newCap int) {
	if newCap < 0 {
		newCap = 0
	}
	l.eAB1 = make([]int32, 0, newCap)
	l.eA2 = make([]int32, 0, newCap)
	l.eB2 = make([]int32, 0, newCap)
	l.fwd = make([]float32, 0, newCap)
	l.bwd = make([]float32, 0, newCap)
}

// State returns the i-th active state's edges and forward/backward values.
func (l *DuoLevel) State(i int) (eAB1, eA2, eB2 int, fwd, bwd float32) {
	return int(l.eAB1[i]), int(l.eA2[i]), int(l.eB2[i]), l.fwd[i], l.bwd[i]
}

// GTProbsA returns sampleA's posterior genotype probabilities.
func (l *DuoLevel) GTProbsA() []float32 { return l.gtProbsA }

// GTProbsB returns sampleB's posterior genotype probabilities.
func (l *DuoLevel) GTProbsB() []float32 { return l.gtProbsB }

func (l *DuoLevel) grow(required int) {
	if cap(l.eAB1) >= required {
		return
	}
	newCap := growCapacity(cap(l.eAB1), required)
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
	l.eAB1, l.eA2, l.eB2 = growI(l.eAB1), growI(l.eA2), growI(l.eB2)
	l.fwd, l.bwd = growF(l.fwd), growF(l.bwd)
}

func (l *DuoLevel) push(eAB1, eA2, eB2 int, fwd float32) {
	l.grow(len(l.eAB1) + 1)
	l.eAB1 = append(l.eAB1, int32(eAB1))
	l.eA2 = append(l.eA2, int32(eA2))
	l.eB2 = append(l.eB2, int32(eB2))
	l.fwd = append(l.fwd, fwd)
	l.bwd = append(l.bwd, 0)
}

// SetForwardValues initializes the level from a forward frontier keyed by
// triples (transmitted-haplotype node, parent's-other-haplotype node,
// offspring's-other-haplotype node).
func (l *DuoLevel) SetForwardValues(frontier *nodemap.NodeMap, m, sampleA, sampleB int) error {
	l.Reset()
	l.marker = m
	l.sampleA = sampleA
	l.sampleB = sampleB

	for i := 0; i < frontier.Size(); i++ {
		key, v := frontier.Enum(i)
		nAB, nA2, nB2 := int(key.N1), int(key.N2), int(key.N3)
		for iAB := 0; iAB < l.dag.NOutEdges(m, nAB); iAB++ {
			eAB1 := l.dag.OutEdge(m, nAB, iAB)
			sAB1 := l.dag.Symbol(m, eAB1)
			for iA2 := 0; iA2 < l.dag.NOutEdges(m, nA2); iA2++ {
				eA2 := l.dag.OutEdge(m, nA2, iA2)
				sA2 := l.dag.Symbol(m, eA2)
				glA := l.gl.GL(m, sampleA, sAB1, sA2)
				if glA <= 0 {
					continue
				}
				for iB2 := 0; iB2 < l.dag.NOutEdges(m, nB2); iB2++ {
					eB2 := l.dag.OutEdge(m, nB2, iB2)
					sB2 := l.dag.Symbol(m, eB2)
					glB := l.gl.GL(m, sampleB, sAB1, sB2)
					if glB <= 0 {
						continue
					}
					f := glA * glB * v * l.dag.CondEdgeProb(m, eAB1) * l.dag.CondEdgeProb(m, eA2) * l.dag.CondEdgeProb(m, eB2)
					f = clampFloor(f)
					l.push(eAB1, eA2, eB2, f)
				}
			}
		}
	}

	if l.Size() == 0 {
		return fmt.Errorf("%w: marker %d duo (%d,%d) has no consistent state", dagphase.ErrNoConsistentState, m, sampleA, sampleB)
	}

	var sum float32
	for _, f := range l.fwd {
		sum += f
	}
	if sum <= 0 {
		return fmt.Errorf("%w: marker %d duo (%d,%d) forward sum %v <= 0", dagphase.ErrNumericUnderflow, m, sampleA, sampleB, sum)
	}
	l.fwdSum = sum

	frontier.Clear()
	for i := range l.fwd {
		l.fwd[i] /= sum
		cAB := l.dag.ChildNode(m, int(l.eAB1[i]))
		cA2 := l.dag.ChildNode(m, int(l.eA2[i]))
		cB2 := l.dag.ChildNode(m, int(l.eB2[i]))
		if err := frontier.SumUpdate(nodemap.Key3(cAB, cA2, cB2), l.fwd[i]); err != nil {
			return err
		}
	}

	l.gtProbsA = make([]float32, l.gl.Marker(m).NGenotypes())
	l.gtProbsB = make([]float32, l.gl.Marker(m).NGenotypes())
	return nil
}

// SetBackwardValues consumes the backward frontier at level m+1, fills
// backward values and both individuals' posterior genotype probabilities,
// and writes the parent-node backward frontier for level m-1.
func (l *DuoLevel) SetBackwardValues(frontier *nodemap.NodeMap) error {
	m := l.marker
	var bwdSum float32
	for i := range l.bwd {
		cAB := l.dag.ChildNode(m, int(l.eAB1[i]))
		cA2 := l.dag.ChildNode(m, int(l.eA2[i]))
		cB2 := l.dag.ChildNode(m, int(l.eB2[i]))
		b := frontier.Value(nodemap.Key3(cAB, cA2, cB2))
		l.bwd[i] = b
		bwdSum += b
	}
	frontier.Clear()

	if bwdSum <= 0 {
		return fmt.Errorf("%w: marker %d duo (%d,%d) backward sum %v <= 0", dagphase.ErrNumericUnderflow, m, l.sampleA, l.sampleB, bwdSum)
	}
	l.bwdSum = bwdSum

	for g := range l.gtProbsA {
		l.gtProbsA[g] = 0
		l.gtProbsB[g] = 0
	}

	var gtSum float32
	for i := range l.bwd {
		l.bwd[i] /= bwdSum
		eAB1, eA2, eB2 := int(l.eAB1[i]), int(l.eA2[i]), int(l.eB2[i])
		sAB1, sA2, sB2 := l.dag.Symbol(m, eAB1), l.dag.Symbol(m, eA2), l.dag.Symbol(m, eB2)
		stateProb := l.fwd[i] * l.bwd[i]
		l.gtProbsA[dagphase.GenotypeIndex(sAB1, sA2)] += stateProb
		l.gtProbsB[dagphase.GenotypeIndex(sAB1, sB2)] += stateProb
		gtSum += stateProb

		glA := l.gl.GL(m, l.sampleA, sAB1, sA2)
		glB := l.gl.GL(m, l.sampleB, sAB1, sB2)
		c := clampFloor(l.bwd[i] * l.dag.CondEdgeProb(m, eAB1) * l.dag.CondEdgeProb(m, eA2) * l.dag.CondEdgeProb(m, eB2) * glA * glB)
		if c > 0 {
			pAB := l.dag.ParentNode(m, eAB1)
			pA2 := l.dag.ParentNode(m, eA2)
			pB2 := l.dag.ParentNode(m, eB2)
			if err := frontier.SumUpdate(nodemap.Key3(pAB, pA2, pB2), c); err != nil {
				return err
			}
		}
	}

	if gtSum > 0 {
		for g := range l.gtProbsA {
			l.gtProbsA[g] /= gtSum
			l.gtProbsB[g] /= gtSum
		}
	}
	return nil
}
