package restrict

// ExtendSegments extends each segment's boundaries outward by up to
// ibdExtend (cM, measured via pos) in both directions, stopping early if
// the extension would step into a marker already covered by a different
// segment (per spec §4.7: "only if the extended region does not already
// overlap another segment"). pos is the genetic-map position of every
// marker in the DAG, indexed by marker.
func ExtendSegments(segs []Segment, ibdExtend float64, pos []float64) []Segment {
	tree := NewIntervalTree(segs)
	out := make([]Segment, len(segs))
	for i, s := range segs {
		start := s.Start
		for start > 0 && pos[s.Start]-pos[start-1] <= ibdExtend && !overlapsOther(tree, start-1, s.Hap) {
			start--
		}
		end := s.End
		for end < len(pos)-1 && pos[end+1]-pos[s.End] <= ibdExtend && !overlapsOther(tree, end+1, s.Hap) {
			end++
		}
		out[i] = Segment{Hap: s.Hap, Start: start, End: end}
	}
	return out
}

func overlapsOther(tree *IntervalTree, m, selfHap int) bool {
	for _, hap := range tree.Query(m) {
		if hap != selfHap {
			return true
		}
	}
	return false
}
