// Package impute implements the Li-Stephens haploid imputation HMM (spec
// §4.8): forward-backward recursion over a reference haplotype panel,
// collapsed into allele-sequence equivalence classes per segment, producing
// posterior allele probabilities for a target haplotype at every cluster.
package impute

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dagphase/dagphase"
)

// RefPanel is a dense reference haplotype panel over nClusters collapsed
// marker clusters: alleles[m][h] is the allele carried by reference
// haplotype h at cluster m. pos is the genetic position, in Morgans, of
// each cluster's midpoint.
type RefPanel struct {
	alleles [][]int
	pos     []float64
}

// NewRefPanel validates and wraps a reference panel.
func NewRefPanel(alleles [][]int, pos []float64) (*RefPanel, error) {
	if len(alleles) != len(pos) {
		return nil, fmt.Errorf("%w: %d clusters but %d positions", dagphase.ErrInconsistentInputs, len(alleles), len(pos))
	}
	if len(alleles) == 0 {
		return nil, fmt.Errorf("%w: empty reference panel", dagphase.ErrInvalidArg)
	}
	n := len(alleles[0])
	for m, row := range alleles {
		if len(row) != n {
			return nil, fmt.Errorf("%w: cluster %d has %d haplotypes, want %d", dagphase.ErrInconsistentInputs, m, len(row), n)
		}
	}
	return &RefPanel{alleles: append([][]int(nil), alleles...), pos: append([]float64(nil), pos...)}, nil
}

// NClusters returns the number of collapsed marker clusters.
func (p *RefPanel) NClusters() int { return len(p.alleles) }

// NRefHaps returns the number of reference haplotypes.
func (p *RefPanel) NRefHaps() int {
	if len(p.alleles) == 0 {
		return 0
	}
	return len(p.alleles[0])
}

// Allele returns the allele carried by reference haplotype h at cluster m.
func (p *RefPanel) Allele(m, h int) int { return p.alleles[m][h] }

// Pos returns the genetic position, in Morgans, of cluster m's midpoint.
func (p *RefPanel) Pos(m int) float64 { return p.pos[m] }

// Segment is a contiguous run of clusters [Start, End) over which
// reference haplotypes are collapsed into allele-sequence equivalence
// classes: haplotypes with an identical allele subsequence share a class,
// so downstream posterior accumulation and suppression operate on
// ClassOf(h) instead of every individual haplotype.
type Segment struct {
	Start, End int
	ClassOf    []int32 // len == nRefHaps
	ClassSize  []int   // len == number of distinct classes
}

// BuildSegments partitions the panel's clusters into contiguous,
// non-overlapping segments of at most segLen clusters each, computing
// per-segment haplotype equivalence classes.
func BuildSegments(p *RefPanel, segLen int) []Segment {
	if segLen < 1 {
		segLen = 1
	}
	n := p.NClusters()
	var segs []Segment
	for start := 0; start < n; start += segLen {
		end := start + segLen
		if end > n {
			end = n
		}
		segs = append(segs, buildSegment(p, start, end))
	}
	return segs
}

func buildSegment(p *RefPanel, start, end int) Segment {
	nHaps := p.NRefHaps()
	classOf := make([]int32, nHaps)
	seen := make(map[string]int32, nHaps)
	var sizes []int
	var sb strings.Builder
	for h := 0; h < nHaps; h++ {
		sb.Reset()
		for m := start; m < end; m++ {
			sb.WriteString(strconv.Itoa(p.Allele(m, h)))
			sb.WriteByte(',')
		}
		key := sb.String()
		class, ok := seen[key]
		if !ok {
			class = int32(len(sizes))
			seen[key] = class
			sizes = append(sizes, 0)
		}
		classOf[h] = class
		sizes[class]++
	}
	return Segment{Start: start, End: end, ClassOf: classOf, ClassSize: sizes}
}

// segmentFor returns the segment covering cluster m.
func segmentFor(segs []Segment, m int) Segment {
	for _, s := range segs {
		if m >= s.Start && m < s.End {
			return s
		}
	}
	return segs[len(segs)-1]
}
