package impute

import (
	"fmt"

	"github.com/dagphase/dagphase"
)

// Target is one sample haplotype's observed alleles against the reference
// panel's clusters. Allele(m) returns -1 at reference-only clusters, where
// the target carries no observed allele and emission does not discriminate.
type Target struct {
	allele []int
}

// NewTarget wraps a target haplotype's per-cluster allele observations.
func NewTarget(allele []int) Target {
	return Target{allele: append([]int(nil), allele...)}
}

// Allele returns the target's observed allele at cluster m, or -1 if
// cluster m is reference-only for this target.
func (t Target) Allele(m int) int { return t.allele[m] }

// lsLevel holds one cluster's forward or backward state over all reference
// haplotypes, mirroring the baum package's per-level value/sum shape.
type lsLevel struct {
	fwd []float32
	sum float32
}

// emission returns noErrProb if the reference allele matches the target's
// observed allele, errProb if it mismatches, or 1 if the target is missing
// at this cluster (reference-only marker, no emission discrimination).
func emission(refAllele, targetAllele int, noErrProb, errProb float32) float32 {
	if targetAllele < 0 {
		return 1
	}
	if refAllele == targetAllele {
		return noErrProb
	}
	return errProb
}

// forward runs the forward recursion over every cluster, returning the
// per-cluster, per-reference-haplotype forward values.
func forward(panel *RefPanel, target Target, pRecomb []float32, errProb float64) ([]lsLevel, error) {
	if errProb <= 0 || errProb > 0.5 {
		return nil, fmt.Errorf("%w: err %v outside (0, 0.5]", dagphase.ErrInvalidArg, errProb)
	}
	noErr := float32(1 - errProb)
	err := float32(errProb)

	n := panel.NClusters()
	nHaps := panel.NRefHaps()
	levels := make([]lsLevel, n)

	var lastSum float32
	for m := 0; m < n; m++ {
		fwd := make([]float32, nHaps)
		if m == 0 {
			var sum float32
			for h := 0; h < nHaps; h++ {
				em := emission(panel.Allele(m, h), target.Allele(m), noErr, err)
				fwd[h] = em
				sum += em
			}
			levels[m] = lsLevel{fwd: fwd, sum: sum}
			lastSum = sum
			continue
		}
		if lastSum <= 0 {
			return nil, fmt.Errorf("%w: cluster %d forward sum %v <= 0", dagphase.ErrNumericUnderflow, m-1, lastSum)
		}
		scale := (1 - pRecomb[m]) / lastSum
		shift := pRecomb[m] / float32(nHaps)
		var sum float32
		for h := 0; h < nHaps; h++ {
			em := emission(panel.Allele(m, h), target.Allele(m), noErr, err)
			f := em * (scale*levels[m-1].fwd[h] + shift)
			fwd[h] = f
			sum += f
		}
		levels[m] = lsLevel{fwd: fwd, sum: sum}
		lastSum = sum
	}
	return levels, nil
}

// backward runs the backward recursion, mirroring forward: emission is
// applied first, then the recombination mix is applied to the sum.
func backward(panel *RefPanel, target Target, pRecomb []float32, errProb float64) []lsLevel {
	noErr := float32(1 - errProb)
	err := float32(errProb)

	n := panel.NClusters()
	nHaps := panel.NRefHaps()
	levels := make([]lsLevel, n)

	bwd := make([]float32, nHaps)
	for h := range bwd {
		bwd[h] = 1
	}
	levels[n-1] = lsLevel{fwd: bwd, sum: float32(nHaps)}

	for m := n - 2; m >= 0; m-- {
		next := levels[m+1].fwd
		tmp := make([]float32, nHaps)
		var sum float32
		for h := 0; h < nHaps; h++ {
			em := emission(panel.Allele(m+1, h), target.Allele(m+1), noErr, err)
			tmp[h] = em * next[h]
			sum += tmp[h]
		}
		scale := 1 - pRecomb[m+1]
		shift := pRecomb[m+1] / float32(nHaps) * sum
		cur := make([]float32, nHaps)
		var curSum float32
		for h := 0; h < nHaps; h++ {
			b := scale*tmp[h] + shift
			cur[h] = b
			curSum += b
		}
		levels[m] = lsLevel{fwd: cur, sum: curSum}
	}
	return levels
}
