package dagphase

import "math"

// ComputePRecomb precomputes the per-level recombination jump probability
// pRecomb[m] used by the recombination-augmented diploid level (§4.3),
// from the genetic distance between consecutive marker positions:
//
//	r = 1 - exp(-0.04 * ne * mapScale * modelScale * d)
//
// the same functional form as the haploid imputation recombination formula
// (Config.Ne's doc comment), generalized from per-cluster distance to
// per-level distance and without the reference-haplotype-count divisor
// (there is no reference-panel state space at this layer). pRecomb[0] is
// always 0: there is no preceding level to jump from.
func ComputePRecomb(dag Dag, cfg Config) []float32 {
	n := dag.NLevels()
	r := make([]float32, n)
	if n == 0 {
		return r
	}
	prevPos := dag.Pos(0)
	for m := 1; m < n; m++ {
		pos := dag.Pos(m)
		d := cfg.MapScale * (pos - prevPos)
		if d < 0 {
			d = 0
		}
		p := 1 - math.Exp(-0.04*cfg.Ne*cfg.ModelScale*d)
		if p < 0 {
			p = 0
		} else if p > 1 {
			p = 1
		}
		r[m] = float32(p)
		prevPos = pos
	}
	return r
}
