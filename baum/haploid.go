package baum

import (
	"fmt"

	"github.com/dagphase/dagphase"
	"github.com/dagphase/dagphase/nodemap"
)

// HaploidLevel is one Baum level of the single-haplotype HMM (spec §4.4):
// states are single edges.
type HaploidLevel struct {
	dag dagphase.Dag
	al  dagphase.ALProvider

	marker int
	hap    int

	edges    []int32
	fwd, bwd []float32

	fwdSum float32
	bwdSum float32

	alProbs []float32
}

// NewHaploidLevel creates an empty haploid level over dag/al.
func NewHaploidLevel(dag dagphase.Dag, al dagphase.ALProvider) *HaploidLevel {
	return &HaploidLevel{dag: dag, al: al}
}

// Reset empties the level's state for reuse.
func (l *HaploidLevel) Reset() {
	l.edges = l.edges[:0]
	l.fwd = l.fwd[:0]
	l.bwd = l.bwd[:0]
	l.fwdSum = 0
	l.bwdSum = 0
	l.alProbs = nil
}

// Marker returns the level's current marker index.
func (l *HaploidLevel) Marker() int { return l.marker }

// Size returns the number of active states.
func (l *HaploidLevel) Size() int { return len(l.edges) }

// Capacity returns the allocated length of the level's state arrays.
func (l *HaploidLevel) Capacity() int { return cap(l.edges) }

// ShrinkTo reallocates the level's backing arrays to newCap.
func (l *HaploidLevel) ShrinkTo(newCap int) {
	if newCap < 0 {
		newCap = 0
	}
	l.edges = make([]int32, 0, newCap)
	l.fwd = make([]float32, 0, newCap)
	l.bwd = make([]float32, 0, newCap)
}

// State returns the i-th active state's edge and forward/backward values.
func (l *HaploidLevel) State(i int) (edge int, fwd, bwd float32) {
	return int(l.edges[i]), l.fwd[i], l.bwd[i]
}

// FwdSum returns the unnormalized forward mass before normalization.
func (l *HaploidLevel) FwdSum() float32 { return l.fwdSum }

// AlProbs returns the posterior allele probabilities computed by the most
// recent SetBackwardValues call.
func (l *HaploidLevel) AlProbs() []float32 { return l.alProbs }

func (l *HaploidLevel) grow(required int) {
	if cap(l.edges) >= required {
		return
	}
	newCap := growCapacity(cap(l.edges), required)
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
	l.edges = growI(l.edges)
	l.fwd, l.bwd = growF(l.fwd), growF(l.bwd)
}

func (l *HaploidLevel) push(edge int, fwd float32) {
	l.grow(len(l.edges) + 1)
	l.edges = append(l.edges, int32(edge))
	l.fwd = append(l.fwd, fwd)
	l.bwd = append(l.bwd, 0)
}

// SetForwardValues initializes the level from the forward frontier at
// level m-1 (singleton node keys), as: f = ep * v * condEdgeProb(m,e),
// where ep = al.AL(m, hap, sym(e)).
func (l *HaploidLevel) SetForwardValues(frontier *nodemap.NodeMap, m, hap int) error {
	l.Reset()
	l.marker = m
	l.hap = hap

	for i := 0; i < frontier.Size(); i++ {
		key, v := frontier.Enum(i)
		n := int(key.N1)
		for j := 0; j < l.dag.NOutEdges(m, n); j++ {
			e := l.dag.OutEdge(m, n, j)
			s := l.dag.Symbol(m, e)
			ep := l.al.AL(m, hap, s)
			if ep <= 0 {
				continue
			}
			f := clampFloor(ep * v * l.dag.CondEdgeProb(m, e))
			l.push(e, f)
		}
	}

	if l.Size() == 0 {
		return fmt.Errorf("%w: marker %d hap %d has no consistent haploid state", dagphase.ErrNoConsistentState, m, hap)
	}

	var sum float32
	for _, f := range l.fwd {
		sum += f
	}
	if sum <= 0 {
		return fmt.Errorf("%w: marker %d hap %d forward sum %v <= 0", dagphase.ErrNumericUnderflow, m, hap, sum)
	}
	l.fwdSum = sum

	frontier.Clear()
	for i := range l.fwd {
		l.fwd[i] /= sum
		child := l.dag.ChildNode(m, int(l.edges[i]))
		if err := frontier.SumUpdate(nodemap.Key1(child), l.fwd[i]); err != nil {
			return err
		}
	}

	l.alProbs = make([]float32, l.al.Marker(m).NAlleles)
	return nil
}

// SetBackwardValues consumes the backward frontier at level m+1, fills
// backward values and alProbs, and writes the parent-node backward
// frontier for level m-1.
func (l *HaploidLevel) SetBackwardValues(frontier *nodemap.NodeMap) error {
	m := l.marker
	var bwdSum float32
	for i := range l.bwd {
		child := l.dag.ChildNode(m, int(l.edges[i]))
		b := frontier.Value(nodemap.Key1(child))
		l.bwd[i] = b
		bwdSum += b
	}
	frontier.Clear()

	if bwdSum <= 0 {
		return fmt.Errorf("%w: marker %d hap %d backward sum %v <= 0", dagphase.ErrNumericUnderflow, m, l.hap, bwdSum)
	}
	l.bwdSum = bwdSum

	for a := range l.alProbs {
		l.alProbs[a] = 0
	}

	var alSum float32
	for i := range l.bwd {
		l.bwd[i] /= bwdSum
		e := int(l.edges[i])
		s := l.dag.Symbol(m, e)
		stateProb := l.fwd[i] * l.bwd[i]
		l.alProbs[s] += stateProb
		alSum += stateProb

		c := clampFloor(l.bwd[i] * l.dag.CondEdgeProb(m, e) * l.al.AL(m, l.hap, s))
		if c > 0 {
			parent := l.dag.ParentNode(m, e)
			if err := frontier.SumUpdate(nodemap.Key1(parent), c); err != nil {
				return err
			}
		}
	}

	if alSum > 0 {
		for a := range l.alProbs {
			l.alProbs[a] /= alSum
		}
	}
	return nil
}
