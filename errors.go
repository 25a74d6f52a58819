package dagphase

import (
	"errors"
	"math"
)

// Sentinel error kinds from the core's error model. Callers discriminate
// with errors.Is; the core always wraps these with fmt.Errorf("%w: ...")
// so the message carries the offending value.
var (
	// ErrInvalidArg means a precondition on a query or configuration value
	// was violated (negative index, gt >= nGenotypes, err outside (0, 0.5], ...).
	ErrInvalidArg = errors.New("invalid argument")

	// ErrInconsistentInputs means two inputs declared incompatible Markers,
	// Samples, or haplotype/marker counts. Raised at construction time.
	ErrInconsistentInputs = errors.New("inconsistent inputs")

	// ErrNumericUnderflow means a normalization sum was <= 0, or a forward
	// value fell below MinValue with no positive predecessor mass to clamp
	// from. Recoverable occurrences are clamped silently and never surface
	// this error; only the unrecoverable case does.
	ErrNumericUnderflow = errors.New("numeric underflow")

	// ErrNoConsistentState means the forward pass reached a level with an
	// empty state set. Fatal to the affected sample.
	ErrNoConsistentState = errors.New("no consistent state")

	// ErrHashOverflow means the node map's open-addressed table could not
	// grow because doubling its capacity would overflow the index type.
	ErrHashOverflow = errors.New("hash table overflow")

	// ErrCancelled means a work loop observed the dispatcher's poison value.
	ErrCancelled = errors.New("cancelled")
)

// MinValue is the forward/backward-value floor, preserved verbatim from the
// original implementation's heuristic: 100 * the smallest positive float32.
// Whether this threshold holds across other FMA semantics is an open
// question the original leaves unresolved; it is not re-derived here.
const MinValue = 100 * math.SmallestNonzeroFloat32
