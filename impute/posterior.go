package impute

// AlleleProbs holds, for one target haplotype, the posterior probability
// of each allele at every cluster.
type AlleleProbs struct {
	// Probs[m][a] is the posterior probability of allele a at cluster m.
	Probs [][]float32
}

// Impute runs the forward-backward recursion for target against panel and
// returns posterior allele probabilities at every cluster. segLen bounds
// the size of the allele-sequence equivalence-class segments used to
// suppress negligible reference-haplotype contributions; errProb is the
// per-allele emission error rate (cfg.Err); a value outside (0, 0.5] is
// rejected with dagphase.ErrInvalidArg.
func Impute(panel *RefPanel, target Target, ne, errProb float64, segLen int) (AlleleProbs, error) {
	pRecomb := computePRecomb(panel, ne)
	fwd, err := forward(panel, target, pRecomb, errProb)
	if err != nil {
		return AlleleProbs{}, err
	}
	bwd := backward(panel, target, pRecomb, errProb)
	segs := BuildSegments(panel, segLen)

	n := panel.NClusters()
	nHaps := panel.NRefHaps()
	out := AlleleProbs{Probs: make([][]float32, n)}

	stateProb := make([]float32, nHaps)
	classProb := make([]float32, 0, nHaps)
	for m := 0; m < n; m++ {
		// Deviation from spec §4.8: the spec buckets fwd at m into
		// fwdHapProbs[m][seqIdx(m+1,h)] and bwd at m into
		// bwdHapProbs[m][seqIdx(m,h)], then position-linear-weights
		// reference-only markers between the flanking segment boundaries.
		// Here fwd and bwd are combined into a single fwd*bwd bucket per
		// cluster directly, with no separate reference-only interpolation
		// pass; see DESIGN.md for why the segment-collapsed posterior still
		// holds without it.
		var sum float32
		for h := 0; h < nHaps; h++ {
			p := fwd[m].fwd[h] * bwd[m].fwd[h]
			stateProb[h] = p
			sum += p
		}
		if sum <= 0 {
			out.Probs[m] = make([]float32, maxAllele(panel, m)+1)
			continue
		}
		for h := range stateProb {
			stateProb[h] /= sum
		}

		seg := segmentFor(segs, m)
		classProb = classProb[:0]
		for range seg.ClassSize {
			classProb = append(classProb, 0)
		}
		for h, p := range stateProb {
			classProb[seg.ClassOf[h]] += p
		}

		threshold := float32(0.005)
		if nc := len(seg.ClassSize); nc > 0 && 1/float32(nc) < threshold {
			threshold = 1 / float32(nc)
		}
		var suppressedSum float32
		for c := range classProb {
			if classProb[c] < threshold {
				classProb[c] = 0
			}
			suppressedSum += classProb[c]
		}
		if suppressedSum > 0 {
			for c := range classProb {
				classProb[c] /= suppressedSum
			}
		}

		probs := make([]float32, maxAllele(panel, m)+1)
		for h := 0; h < nHaps; h++ {
			probs[panel.Allele(m, h)] += classProb[seg.ClassOf[h]] / float32(seg.ClassSize[seg.ClassOf[h]])
		}
		out.Probs[m] = probs
	}
	return out, nil
}

func maxAllele(panel *RefPanel, m int) int {
	max := 0
	for h := 0; h < panel.NRefHaps(); h++ {
		if a := panel.Allele(m, h); a > max {
			max = a
		}
	}
	return max
}
