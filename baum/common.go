// Package baum implements the Baum forward-backward level variants over a
// leveled DAG: diploid (spec §4.2), recombination-augmented diploid (§4.3),
// haploid (§4.4), and duo (§4.5). Each Level variant differs only in the
// arity of its state tuple and its emission/transition formula; the design
// note in spec.md §9 calls these out as "tagged variants... over a
// StateShape capability set" rather than one generic type, since the
// formulas diverge too much to share a body profitably.
package baum

import (
	"github.com/sirupsen/logrus"

	"github.com/dagphase/dagphase"
)

// growCapacity implements the array growth policy preserved from the
// original implementation: newCap = max(required, 3*cap/2 + 1).
func growCapacity(curCap, required int) int {
	grown := 3*curCap/2 + 1
	if grown > required {
		return grown
	}
	return required
}

// clampFloor raises f to dagphase.MinValue if it is positive but below the
// floor, logging the clamp (spec §7: arithmetic floors are recovered
// silently at the data-flow level, but are worth a warn-level trace since
// they indicate emission mass is close to vanishing).
func clampFloor(f float32) float32 {
	if f > 0 && f < dagphase.MinValue {
		logrus.Warnf("baum: forward/backward value %g below floor, clamping to %g", f, dagphase.MinValue)
		return dagphase.MinValue
	}
	return f
}
