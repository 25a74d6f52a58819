// Package sampler implements the checkpointed Baum sampler driver (spec
// §4.6): forward pass with O(√L) checkpointing, backward stochastic
// traceback producing K sampled haplotype pairs per individual, and
// optional posterior genotype probability accumulation.
package sampler

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/dagphase/dagphase"
	"github.com/dagphase/dagphase/nodemap"
)

// level is the subset of a baum level's behavior the driver needs. Both
// baum.DiploidLevel and baum.RecombDiploidLevel satisfy it.
type level interface {
	Size() int
	Capacity() int
	ShrinkTo(newCap int)
	State(i int) (e1, e2 int, fwd, bwd float32)
	GTProbs() []float32
	SetForwardValues(frontier *nodemap.NodeMap, m, sample int) error
	SetBackwardValues(frontier *nodemap.NodeMap) error
}

// NewLevel constructs one fresh, empty level object. Callers close over
// their dag/gl/pRecomb to pick the variant (e.g.
// func() level { return baum.NewDiploidLevel(dag, gl) }).
type NewLevel func() level

// HapPairSample is one sampled pair of length-L allele sequences.
type HapPairSample struct {
	Allele1 []int
	Allele2 []int
}

// Driver runs the sampler for one worker's HMM instance. Not safe for
// concurrent use; each dispatcher worker owns one Driver (spec §5).
type Driver struct {
	dag      dagphase.Dag
	gl       dagphase.GLProvider
	newLevel NewLevel
	window   int
	prng     *dagphase.PartitionedRNG
	rng      *rand.Rand

	// pRecomb[m] is the jump probability feeding the forward/backward
	// transition into marker m (spec §4.3); nil or zero-length drives the
	// plain, no-recombination traceback (baum.DiploidLevel). Non-nil makes
	// sampleTransition mix the four §4.3 cases so levels built with
	// baum.RecombDiploidLevel trace back consistently with how they were
	// built forward.
	pRecomb []float32

	levels      []level
	levelMarker []int
	base        int
}

// NewDriver creates a Driver. prng hands out one isolated RNG stream per
// sample index (dagphase.PartitionedRNG), so a sample's stochastic trace
// depends only on its own index, never on dispatch order or worker count.
// pRecomb is the per-marker recombination jump probability driving newLevel
// when it builds baum.RecombDiploidLevel instances; pass nil when newLevel
// builds plain baum.DiploidLevel instances.
func NewDriver(dag dagphase.Dag, gl dagphase.GLProvider, newLevel NewLevel, lowMem bool, prng *dagphase.PartitionedRNG, pRecomb []float32) *Driver {
	n := dag.NLevels()
	w := n
	if lowMem {
		w = windowSize(n)
	}
	if w < 1 {
		w = 1
	}
	markers := make([]int, w)
	for i := range markers {
		markers[i] = -1
	}
	return &Driver{
		dag:         dag,
		gl:          gl,
		newLevel:    newLevel,
		window:      w,
		prng:        prng,
		pRecomb:     pRecomb,
		levels:      make([]level, w),
		levelMarker: markers,
		base:        -1,
	}
}

// rootFrontier builds the forward frontier entering level 0: every pair of
// level-0 parent nodes, weighted by the DAG's marginal ParentProb(0, ·)
// product, per spec §3's "finite set of parent nodes with marginal
// probabilities parentProb" (mirrors baum.DiploidLevel.SetForwardValues'
// m==0 precondition, which this frontier must satisfy).
func (d *Driver) rootFrontier() (*nodemap.NodeMap, error) {
	nNodes := d.dag.NParentNodes(0)
	root := nodemap.New(0)
	for n1 := 0; n1 < nNodes; n1++ {
		p1 := d.dag.ParentProb(0, n1)
		if p1 <= 0 {
			continue
		}
		for n2 := 0; n2 < nNodes; n2++ {
			p2 := d.dag.ParentProb(0, n2)
			if p2 <= 0 {
				continue
			}
			if err := root.SumUpdate(nodemap.Key2(n1, n2), p1*p2); err != nil {
				return nil, err
			}
		}
	}
	return root, nil
}

// windowSize implements W = ceil((sqrt(1+8L)+1)/2), the ring size that
// keeps O(√L) levels live under low-memory checkpointing.
func windowSize(l int) int {
	w := int(math.Ceil((math.Sqrt(1+8*float64(l)) + 1) / 2))
	if w < 1 {
		w = 1
	}
	if w > l {
		w = l
	}
	return w
}

// Sample runs the driver for one individual, returning K independently
// sampled haplotype pairs. If gtProbs is non-nil it must be sized
// Σ_m nGenotypes(m); the posterior genotype probabilities of every marker
// are copied into it.
func (d *Driver) Sample(sample, k int, gtProbs []float32) ([]HapPairSample, error) {
	n := d.dag.NLevels()
	if n == 0 {
		return nil, fmt.Errorf("%w: dag has no levels", dagphase.ErrInvalidArg)
	}
	d.rng = d.prng.ForSample(sample)

	root, err := d.rootFrontier()
	if err != nil {
		return nil, err
	}
	checkpoints, checkpointMarkers, err := d.forwardPass(root, sample)
	if err != nil {
		return nil, err
	}

	results := make([]HapPairSample, k)
	for c := 0; c < k; c++ {
		hp, err := d.traceback(sample, n, checkpoints, checkpointMarkers)
		if err != nil {
			return nil, err
		}
		results[c] = hp
	}

	if gtProbs != nil {
		if err := d.accumulatePosteriors(sample, n, checkpoints, checkpointMarkers, gtProbs); err != nil {
			return nil, err
		}
	}

	d.pruneOversizedLevels()
	return results, nil
}

// forwardPass runs the forward recursion over every marker, returning a
// checkpoint frontier snapshot at the start of each window
// (checkpoints[i] is the frontier entering marker checkpointMarkers[i]).
// The final window's levels are left loaded in the ring.
func (d *Driver) forwardPass(root *nodemap.NodeMap, sample int) (checkpoints []*nodemap.NodeMap, checkpointMarkers []int, err error) {
	n := d.dag.NLevels()
	frontier := root
	for m := 0; m < n; m++ {
		slot := m % d.window
		if slot == 0 {
			checkpoints = append(checkpoints, frontier.Clone())
			checkpointMarkers = append(checkpointMarkers, m)
			d.base = m
		}
		lv := d.newLevel()
		if err := lv.SetForwardValues(frontier, m, sample); err != nil {
			return nil, nil, err
		}
		if lv.Size() == 0 {
			return nil, nil, fmt.Errorf("%w: marker %d sample %d", dagphase.ErrNoConsistentState, m, sample)
		}
		d.levels[slot] = lv
		d.levelMarker[slot] = m
	}
	return checkpoints, checkpointMarkers, nil
}

// levelAt returns the level object for marker m, reloading the window
// from the nearest checkpoint at or before m if it fell out of the ring.
func (d *Driver) levelAt(m, sample int, checkpoints []*nodemap.NodeMap, checkpointMarkers []int) (level, error) {
	slot := m % d.window
	if d.levelMarker[slot] == m {
		return d.levels[slot], nil
	}

	ci := 0
	for i, cm := range checkpointMarkers {
		if cm <= m {
			ci = i
		} else {
			break
		}
	}
	frontier := checkpoints[ci].Clone()
	base := checkpointMarkers[ci]
	end := base + d.window
	if end > d.dag.NLevels() {
		end = d.dag.NLevels()
	}
	for mm := base; mm < end; mm++ {
		lv := d.newLevel()
		if err := lv.SetForwardValues(frontier, mm, sample); err != nil {
			return nil, err
		}
		if lv.Size() == 0 {
			return nil, fmt.Errorf("%w: marker %d sample %d", dagphase.ErrNoConsistentState, mm, sample)
		}
		s := mm % d.window
		d.levels[s] = lv
		d.levelMarker[s] = mm
	}
	return d.levels[m%d.window], nil
}

// traceback performs one independent backward stochastic sample.
func (d *Driver) traceback(sample, n int, checkpoints []*nodemap.NodeMap, checkpointMarkers []int) (HapPairSample, error) {
	hp := HapPairSample{Allele1: make([]int, n), Allele2: make([]int, n)}

	last, err := d.levelAt(n-1, sample, checkpoints, checkpointMarkers)
	if err != nil {
		return HapPairSample{}, err
	}
	i := d.sampleInitialState(last)
	e1, e2, _, _ := last.State(i)
	hp.Allele1[n-1], hp.Allele2[n-1] = d.dag.Symbol(n-1, e1), d.dag.Symbol(n-1, e2)
	curNode1, curNode2 := d.dag.ParentNode(n-1, e1), d.dag.ParentNode(n-1, e2)

	for m := n - 2; m >= 0; m-- {
		lv, err := d.levelAt(m, sample, checkpoints, checkpointMarkers)
		if err != nil {
			return HapPairSample{}, err
		}
		j, err := d.sampleTransition(lv, m, curNode1, curNode2)
		if err != nil {
			return HapPairSample{}, err
		}
		e1, e2, _, _ = lv.State(j)
		hp.Allele1[m], hp.Allele2[m] = d.dag.Symbol(m, e1), d.dag.Symbol(m, e2)
		curNode1, curNode2 = d.dag.ParentNode(m, e1), d.dag.ParentNode(m, e2)
	}
	return hp, nil
}

// sampleInitialState draws u in [0,1) and returns the state whose
// cumulative normalized forward mass first covers it, falling back to the
// last state on floating-point underflow (spec §4.6 failure model).
func (d *Driver) sampleInitialState(lv level) int {
	u := d.rng.Float64()
	var cum float32
	last := lv.Size() - 1
	for i := 0; i < lv.Size(); i++ {
		_, _, fwd, _ := lv.State(i)
		cum += fwd
		if float64(cum) >= u {
			return i
		}
	}
	return last
}

// transitionWeight returns the spec §4.3/§4.6 step 3 mixing weight for a
// candidate state at marker m whose child-node pair is (c1, c2), given the
// already-sampled node pair (curNode1, curNode2) at marker m+1: node-equality
// in both haplotypes, node-row (hap1 stays, hap2 jumps), node-column (hap1
// jumps, hap2 stays), and the unconditional double-jump case. r is the jump
// probability pRecomb[m+1]; r==0 collapses this to plain node-equality
// matching, reproducing baum.DiploidLevel's exact traceback.
func transitionWeight(c1, c2, curNode1, curNode2 int, r, pp1, pp2 float32) float32 {
	oneMinusR := 1 - r
	matches1 := c1 == curNode1
	matches2 := c2 == curNode2
	w := r * r * pp1 * pp2
	if matches1 {
		w += oneMinusR * r * pp2
	}
	if matches2 {
		w += r * oneMinusR * pp1
	}
	if matches1 && matches2 {
		w += oneMinusR * oneMinusR
	}
	return w
}

// sampleTransition returns the state at marker m that produced the
// already-sampled child-node pair (curNode1, curNode2) at marker m+1,
// drawing proportionally to each candidate's fwd mass times its
// transitionWeight. With no recombination this degenerates to the exact
// child-node-pair match; with baum.RecombDiploidLevel, pRecomb[m+1] mixes in
// the row/column/jump cases so the traceback stays consistent with the
// forward recursion that built the level (spec §4.6 step 3).
func (d *Driver) sampleTransition(lv level, m, curNode1, curNode2 int) (int, error) {
	var r, pp1, pp2 float32
	if m+1 < len(d.pRecomb) {
		r = d.pRecomb[m+1]
		pp1 = d.dag.ParentProb(m+1, curNode1)
		pp2 = d.dag.ParentProb(m+1, curNode2)
	}

	var total float32
	for j := 0; j < lv.Size(); j++ {
		e1, e2, fwd, _ := lv.State(j)
		c1, c2 := d.dag.ChildNode(m, e1), d.dag.ChildNode(m, e2)
		total += fwd * transitionWeight(c1, c2, curNode1, curNode2, r, pp1, pp2)
	}
	if total <= 0 {
		return 0, fmt.Errorf("%w: marker %d zero transition mass into node pair (%d,%d)", dagphase.ErrNumericUnderflow, m, curNode1, curNode2)
	}

	u := d.rng.Float64() * float64(total)
	var cum float32
	last := -1
	for j := 0; j < lv.Size(); j++ {
		e1, e2, fwd, _ := lv.State(j)
		c1, c2 := d.dag.ChildNode(m, e1), d.dag.ChildNode(m, e2)
		w := fwd * transitionWeight(c1, c2, curNode1, curNode2, r, pp1, pp2)
		if w <= 0 {
			continue
		}
		last = j
		cum += w
		if float64(cum) >= u {
			return j, nil
		}
	}
	if last < 0 {
		return 0, fmt.Errorf("%w: marker %d no state reaches node pair (%d,%d)", dagphase.ErrNoConsistentState, m, curNode1, curNode2)
	}
	return last, nil
}

// accumulatePosteriors runs one clean backward sweep calling
// SetBackwardValues on every level, copying each level's posterior
// genotype probabilities into gtProbs at its marker's genotype slice.
func (d *Driver) accumulatePosteriors(sample, n int, checkpoints []*nodemap.NodeMap, checkpointMarkers []int, gtProbs []float32) error {
	markers := d.gl.Markers()

	last, err := d.levelAt(n-1, sample, checkpoints, checkpointMarkers)
	if err != nil {
		return err
	}
	bwdFrontier := nodemap.New(0)
	for i := 0; i < last.Size(); i++ {
		e1, e2, _, _ := last.State(i)
		c1, c2 := d.dag.ChildNode(n-1, e1), d.dag.ChildNode(n-1, e2)
		if err := bwdFrontier.SumUpdate(nodemap.Key2(c1, c2), 1); err != nil {
			return err
		}
	}
	if err := last.SetBackwardValues(bwdFrontier); err != nil {
		return err
	}
	copy(gtProbs[markers.SumGenotypes(n-1):markers.SumGenotypes(n)], last.GTProbs())

	for m := n - 2; m >= 0; m-- {
		lv, err := d.levelAt(m, sample, checkpoints, checkpointMarkers)
		if err != nil {
			return err
		}
		if err := lv.SetBackwardValues(bwdFrontier); err != nil {
			return err
		}
		copy(gtProbs[markers.SumGenotypes(m):markers.SumGenotypes(m+1)], lv.GTProbs())
	}
	return nil
}

// pruneOversizedLevels implements spec §4.6 step 6: sample up to 20 of
// the ring's loaded levels uniformly, and shrink any whose capacity
// exceeds 3x the sampled mean back down to 1.5x the mean.
func (d *Driver) pruneOversizedLevels() {
	loaded := make([]level, 0, len(d.levels))
	for _, lv := range d.levels {
		if lv != nil {
			loaded = append(loaded, lv)
		}
	}
	if len(loaded) == 0 {
		return
	}
	nSample := 20
	if nSample > len(loaded) {
		nSample = len(loaded)
	}
	idx := d.rng.Perm(len(loaded))[:nSample]

	var total int
	for _, i := range idx {
		total += loaded[i].Capacity()
	}
	mean := total / nSample

	for _, i := range idx {
		if loaded[i].Capacity() > 3*mean {
			loaded[i].ShrinkTo(3*mean/2 + 1)
		}
	}
}
