// Package testutil provides shared test infrastructure for the dagphase
// HMM core: float-tolerance assertions and golden-scenario loading used
// across the root package and its sub-packages.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// AssertFloat32Equal compares two float32 values with absolute tolerance,
// matching the 1e-5 tolerance spec.md's testable properties require for
// forward/backward normalization checks.
func AssertFloat32Equal(t *testing.T, name string, want, got, absTol float32) {
	t.Helper()
	diff := math.Abs(float64(want) - float64(got))
	if diff > float64(absTol) {
		t.Errorf("%s: got %v, want %v (absDiff=%v > tol=%v)", name, got, want, diff, absTol)
	}
}

// AssertSumsToOne checks that a probability vector sums to 1 within
// absolute tolerance tol.
func AssertSumsToOne(t *testing.T, name string, values []float32, tol float32) {
	t.Helper()
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	if math.Abs(sum-1) > float64(tol) {
		t.Errorf("%s: values sum to %v, want ~1 (tol=%v)", name, sum, tol)
	}
}

// GoldenScenario mirrors one hand-authored end-to-end scenario from
// spec.md §8 (the diploid-level scenarios S1 and S2): a tiny DAG/emission/expectation
// fixture small enough to check by hand, stored as JSON so new scenarios
// can be added without touching Go source.
type GoldenScenario struct {
	Name           string      `json:"name"`
	NAlleles       int         `json:"n_alleles"`
	NMarkers       int         `json:"n_markers"`
	CondEdgeProbs  [][]float64 `json:"cond_edge_probs"`  // [marker][symbol] -> cond prob at the single root node
	GL             [][]float64 `json:"gl"`                // flattened per-marker genotype-likelihood table, row-major [a1*nAlleles+a2]
	ExpectGTProbs  [][]float64 `json:"expect_gt_probs"`  // per-marker expected posterior genotype probabilities
	ExpectAllele   []int       `json:"expect_allele"`    // expected sampled allele per marker (when deterministic)
}

// LoadGoldenScenarios loads the golden scenario fixtures from testdata/.
func LoadGoldenScenarios(t *testing.T) []GoldenScenario {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "testdata", "golden_scenarios.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read golden scenarios: %v", err)
	}

	var scenarios []GoldenScenario
	if err := json.Unmarshal(data, &scenarios); err != nil {
		t.Fatalf("failed to parse golden scenarios: %v", err)
	}
	return scenarios
}
