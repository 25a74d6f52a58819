// Package restrict implements the restricted diploid state iterator (spec
// §4.7): given per-target-haplotype IBS segments against a reference
// panel, it restricts diploid Baum-level enumeration to the edges actually
// reachable through those segments at each marker.
//
// There is no interval-tree library anywhere in the example pack (nor
// reasonable third-party candidate commonly reached for in the ecosystem
// for this specific "centered interval tree keyed by integer marker
// index" shape); this is one of the few parts of the core built directly
// on the standard library, per spec.md's own design note calling out
// graph/tree structures as index-only, pointer-free data (see DESIGN.md).
package restrict

import "sort"

// Segment is a contiguous marker-index range [Start, End] (inclusive)
// during which reference haplotype Hap is identical-by-state with a
// target haplotype.
type Segment struct {
	Hap        int
	Start, End int
}

func (s Segment) contains(o Segment, tol int) bool {
	return s.Start <= o.Start+tol && s.End >= o.End-tol
}

func (s Segment) len() int { return s.End - s.Start }

// FilterContained drops every segment that is contained, within tol
// markers of tolerance, by a longer or equal segment already kept.
// Segments covering exactly the same range do not drop each other, so every
// haplotype sharing that range stays in the result. Spec §4.7 calls this
// END_FILTER, defaulting tol to 1.
func FilterContained(segs []Segment, tol int) []Segment {
	sorted := append([]Segment(nil), segs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].len() > sorted[j].len() })

	kept := make([]Segment, 0, len(sorted))
	for _, s := range sorted {
		contained := false
		for _, k := range kept {
			sameRange := k.Start == s.Start && k.End == s.End
			if !sameRange && k.contains(s, tol) {
				contained = true
				break
			}
		}
		if !contained {
			kept = append(kept, s)
		}
	}
	return kept
}

// itNode is one node of a centered interval tree: segments whose range
// straddles center are stored twice, sorted by Start ascending and by End
// descending, so a query can stop scanning each list at the first
// non-overlapping entry.
type itNode struct {
	center      int
	left, right *itNode
	byStart     []Segment
	byEnd       []Segment
}

// IntervalTree answers "which segments cover marker m" queries over a
// fixed set of Segments.
type IntervalTree struct {
	root *itNode
}

// NewIntervalTree builds a centered interval tree over segs.
func NewIntervalTree(segs []Segment) *IntervalTree {
	return &IntervalTree{root: buildNode(segs)}
}

func buildNode(segs []Segment) *itNode {
	if len(segs) == 0 {
		return nil
	}
	sort.Slice(segs, func(i, j int) bool {
		return segs[i].Start+segs[i].End < segs[j].Start+segs[j].End
	})
	center := (segs[len(segs)/2].Start + segs[len(segs)/2].End) / 2

	var left, right, mid []Segment
	for _, s := range segs {
		switch {
		case s.End < center:
			left = append(left, s)
		case s.Start > center:
			right = append(right, s)
		default:
			mid = append(mid, s)
		}
	}

	byStart := append([]Segment(nil), mid...)
	sort.Slice(byStart, func(i, j int) bool { return byStart[i].Start < byStart[j].Start })
	byEnd := append([]Segment(nil), mid...)
	sort.Slice(byEnd, func(i, j int) bool { return byEnd[i].End > byEnd[j].End })

	return &itNode{
		center:  center,
		left:    buildNode(left),
		right:   buildNode(right),
		byStart: byStart,
		byEnd:   byEnd,
	}
}

// Query returns the Hap of every segment covering marker m.
func (t *IntervalTree) Query(m int) []int {
	var out []int
	queryNode(t.root, m, &out)
	return out
}

func queryNode(n *itNode, m int, out *[]int) {
	if n == nil {
		return
	}
	switch {
	case m < n.center:
		for _, s := range n.byStart {
			if s.Start > m {
				break
			}
			*out = append(*out, s.Hap)
		}
		queryNode(n.left, m, out)
	case m > n.center:
		for _, s := range n.byEnd {
			if s.End < m {
				break
			}
			*out = append(*out, s.Hap)
		}
		queryNode(n.right, m, out)
	default:
		for _, s := range n.byStart {
			*out = append(*out, s.Hap)
		}
	}
}

// Overlaps reports whether any segment in the tree covers marker m.
func (t *IntervalTree) Overlaps(m int) bool {
	return len(t.Query(m)) > 0
}
