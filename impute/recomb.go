package impute

import "math"

// computePRecomb implements the §4.8 recombination-probability formula
// r = 1 - exp(-0.04*ne*d/n), where d is the genetic distance in Morgans
// between consecutive cluster midpoints and n is the reference panel size.
// pRecomb[0] is always 0 (no transition into the first cluster).
func computePRecomb(panel *RefPanel, ne float64) []float32 {
	n := panel.NClusters()
	r := make([]float32, n)
	nRefHaps := float64(panel.NRefHaps())
	if n == 0 || nRefHaps == 0 {
		return r
	}
	for m := 1; m < n; m++ {
		d := panel.Pos(m) - panel.Pos(m-1)
		if d < 0 {
			d = 0
		}
		p := 1 - math.Exp(-0.04*ne*d/nRefHaps)
		if p < 0 {
			p = 0
		} else if p > 1 {
			p = 1
		}
		r[m] = float32(p)
	}
	return r
}
