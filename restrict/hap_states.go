package restrict

import "github.com/dagphase/dagphase"

// BuildHapStateTable walks refHaps through dag, recording at each marker
// the edge carrying each reference haplotype's allele. Row m, column h
// gives the edge index of haplotype h at marker m; it is -1 if no edge
// out of the current node carries that haplotype's symbol (the haplotype
// is inconsistent with the DAG at that marker, e.g. after a rare-variant
// collapse).
func BuildHapStateTable(dag dagphase.Dag, refHaps []dagphase.HapPair, which func(dagphase.HapPair, int) int) [][]int32 {
	n := dag.NLevels()
	table := make([][]int32, n)
	nodes := make([]int, len(refHaps))
	for m := 0; m < n; m++ {
		row := make([]int32, len(refHaps))
		for h, hp := range refHaps {
			sym := which(hp, m)
			e, ok := dag.OutEdgeBySymbol(m, nodes[h], sym)
			if !ok {
				row[h] = -1
				continue
			}
			row[h] = int32(e)
			nodes[h] = dag.ChildNode(m, e)
		}
		table[m] = row
	}
	return table
}
