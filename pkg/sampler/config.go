package sampler

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"

	"github.com/nkls/go-polytope-sampler/pkg/geometry"
)

// Configuration errors detected before any simulation step runs.
var (
	ErrInfeasibleStart = errors.New("sampler: initial position violates the domain")
	ErrZeroVelocity    = errors.New("sampler: initial velocity is zero")
	ErrNonTerminating  = errors.New("sampler: max_time and max_grad_evals both unbounded")
)

// Tolerance for the feasibility check on x0; breakpoints generated later
// sit exactly on faces, so an exact-zero tolerance would be too strict.
const feasibilityTol = 1e-9

// Config holds the run parameters for one chain. For MaxTime and
// MaxGradEvals a value ≤ 0 means unbounded; at least one of the two must
// be bounded or the loop would never terminate.
type Config struct {
	X0           []float64 `yaml:"x0"`             // feasible start position
	V0           []float64 `yaml:"v0"`             // nonzero start velocity
	MaxTime      float64   `yaml:"max_time"`       // simulated-time ceiling, ≤0 unbounded
	MaxGradEvals int       `yaml:"max_grad_evals"` // gradient-evaluation ceiling, ≤0 unbounded
	RefreshRate  float64   `yaml:"refresh_rate"`   // homogeneous refreshment rate, 0 disables
	Seed         int64     `yaml:"seed"`
}

// LoadConfig reads a YAML run file with strict field checking.
func LoadConfig(filename string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("sampler: reading config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("sampler: parsing config %s: %w", filename, err)
	}
	return cfg, nil
}

// Validate checks the configuration against the domain. All failures here
// are fatal; nothing is clamped or defaulted silently.
func (c Config) Validate(domain *geometry.Polytope) error {
	if len(c.X0) != domain.Dim() {
		return fmt.Errorf("sampler: x0 has dimension %d, domain has %d", len(c.X0), domain.Dim())
	}
	if len(c.V0) != domain.Dim() {
		return fmt.Errorf("sampler: v0 has dimension %d, domain has %d", len(c.V0), domain.Dim())
	}
	if !domain.Contains(c.X0, feasibilityTol) {
		return ErrInfeasibleStart
	}
	if floats.Norm(c.V0, 2) == 0 {
		return ErrZeroVelocity
	}
	// YAML admits `.inf`, which is just as unbounded as the ≤0 sentinel.
	unboundedTime := c.MaxTime <= 0 || math.IsInf(c.MaxTime, 1)
	if unboundedTime && c.MaxGradEvals <= 0 {
		return ErrNonTerminating
	}
	if c.RefreshRate < 0 {
		return fmt.Errorf("sampler: refresh_rate must be ≥ 0, got %v", c.RefreshRate)
	}
	return nil
}
