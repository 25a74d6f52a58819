// Package dagphase implements the core of a leveled-DAG hidden Markov model
// sampler and imputer for population genotype phasing.
//
// # Reading Guide
//
// Start with these two files to understand the model:
//   - markers.go: Marker/Markers, the immutable ordered site list
//   - dag.go: the Dag interface the HMM recursions query, plus the
//     GLProvider/ALProvider genotype/allele likelihood interfaces
//
// # Architecture
//
// The root package defines the data model and interfaces; the recursion and
// orchestration live in sub-packages:
//   - dagphase/nodemap: sparse node-tuple -> probability frontier
//   - dagphase/baum: diploid/haploid/duo/recombination Baum levels
//   - dagphase/restrict: IBS-restricted diploid state iterator
//   - dagphase/sampler: checkpointed forward pass + stochastic backward traceback
//   - dagphase/impute: Li-Stephens haploid imputation HMM
//   - dagphase/dispatch: bounded work queue and worker pool
//
// # Key Interfaces
//
// The extension points the core consumes, never implements:
//   - Dag: read-only leveled DAG query surface
//   - GLProvider / ALProvider: genotype / allele likelihood evidence
//   - IBSProvider: identity-by-state segment discovery (restrict package)
package dagphase
