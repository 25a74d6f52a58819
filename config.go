package dagphase

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Config groups the HMM sampler/imputer's tunable parameters, loadable from
// a YAML file. Zero values are not meaningful defaults for every field
// (NSamplesPerIndividual, Err in particular); callers should always route
// configuration through LoadConfig or explicitly set every field.
type Config struct {
	// NSamplesPerIndividual is K, the number of independent phasings the
	// sampler driver draws per individual. Must be >= 1.
	NSamplesPerIndividual int `yaml:"n_samples_per_individual"`

	// Seed is the RNG master seed. Identical seed + identical inputs
	// yields bit-identical output (see PartitionedRNG).
	Seed int64 `yaml:"seed"`

	// LowMem selects O(sqrt(L)) checkpointing (true) vs O(L) (false) in
	// the sampler driver's forward pass.
	LowMem bool `yaml:"low_mem"`

	// Err is the per-allele emission error rate used by the haploid
	// imputation HMM. Must be in (0, 0.5].
	Err float64 `yaml:"err"`

	// Ne is the effective population size used in the haploid
	// recombination formula r = 1 - exp(-0.04*Ne*d/n).
	Ne float64 `yaml:"ne"`

	// MapScale rescales genetic-map distances before the recombination
	// model consumes them.
	MapScale float64 `yaml:"mapscale"`

	// ModelScale rescales DAG edge-count pressure during model
	// construction (outside this core); within the core, ComputePRecomb
	// multiplies the recombination rate by it.
	ModelScale float64 `yaml:"modelscale"`

	// IBDLength is the minimum length (cM) of an IBS segment. The
	// restricted-state iterator does not read it and applies no length
	// floor: RestrictedStates uses every segment it is given.
	IBDLength float64 `yaml:"ibdlength"`

	// IBDExtend is the length (cM) by which the restricted-state iterator
	// extends each IBS segment in both directions.
	IBDExtend float64 `yaml:"ibdextend"`

	// Cluster is the cM-distance threshold used to collapse adjacent
	// reference markers into a single imputation cluster.
	Cluster float64 `yaml:"cluster"`
}

// DefaultConfig returns a Config with the original implementation's
// defaults for every field not meaningfully zero-valued.
func DefaultConfig() Config {
	return Config{
		NSamplesPerIndividual: 4,
		Seed:                  -99999,
		LowMem:                true,
		Err:                   0.0001,
		Ne:                    1_000_000,
		MapScale:              1.0,
		ModelScale:            1.0,
		IBDLength:             2.0,
		IBDExtend:             1.0,
		Cluster:               0.005,
	}
}

// LoadConfig reads and strictly parses a YAML configuration file, then
// validates it. Unrecognized keys are rejected.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks range constraints on every field that has one.
func (c Config) Validate() error {
	if c.NSamplesPerIndividual < 1 {
		return fmt.Errorf("%w: n_samples_per_individual must be >= 1, got %d", ErrInvalidArg, c.NSamplesPerIndividual)
	}
	if c.Err <= 0 || c.Err > 0.5 {
		return fmt.Errorf("%w: err must be in (0, 0.5], got %g", ErrInvalidArg, c.Err)
	}
	if err := validateNonNegative("ne", c.Ne); err != nil {
		return err
	}
	if err := validateNonNegative("mapscale", c.MapScale); err != nil {
		return err
	}
	if err := validateNonNegative("modelscale", c.ModelScale); err != nil {
		return err
	}
	if err := validateNonNegative("ibdlength", c.IBDLength); err != nil {
		return err
	}
	if err := validateNonNegative("ibdextend", c.IBDExtend); err != nil {
		return err
	}
	if err := validateNonNegative("cluster", c.Cluster); err != nil {
		return err
	}
	return nil
}

func validateNonNegative(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%w: %s must be a finite number, got %v", ErrInvalidArg, name, val)
	}
	if val < 0 {
		return fmt.Errorf("%w: %s must be non-negative, got %v", ErrInvalidArg, name, val)
	}
	return nil
}
