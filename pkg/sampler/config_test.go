package sampler

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkls/go-polytope-sampler/pkg/geometry"
)

func validConfig() Config {
	return Config{
		X0:           []float64{1, 1},
		V0:           []float64{1, 0},
		MaxTime:      10,
		MaxGradEvals: 0,
		RefreshRate:  1,
		Seed:         42,
	}
}

func TestConfigValidateAccepts(t *testing.T) {
	require.NoError(t, validConfig().Validate(geometry.Orthant(2)))
}

func TestConfigRejectsInfeasibleStart(t *testing.T) {
	cfg := validConfig()
	cfg.X0 = []float64{-1, 1}
	err := cfg.Validate(geometry.Orthant(2))
	require.ErrorIs(t, err, ErrInfeasibleStart)
}

func TestConfigAcceptsStartOnBoundary(t *testing.T) {
	cfg := validConfig()
	cfg.X0 = []float64{0, 1}
	require.NoError(t, cfg.Validate(geometry.Orthant(2)))
}

func TestConfigRejectsZeroVelocity(t *testing.T) {
	cfg := validConfig()
	cfg.V0 = []float64{0, 0}
	err := cfg.Validate(geometry.Orthant(2))
	require.ErrorIs(t, err, ErrZeroVelocity)
}

func TestConfigRejectsJointlyUnbounded(t *testing.T) {
	cfg := validConfig()
	cfg.MaxTime = 0
	cfg.MaxGradEvals = 0
	err := cfg.Validate(geometry.Orthant(2))
	require.ErrorIs(t, err, ErrNonTerminating)

	// Bounding either counter is enough.
	cfg.MaxGradEvals = 100
	require.NoError(t, cfg.Validate(geometry.Orthant(2)))

	// An explicit +Inf time is just as unbounded as the ≤0 sentinel.
	cfg.MaxTime = math.Inf(1)
	cfg.MaxGradEvals = 0
	require.ErrorIs(t, cfg.Validate(geometry.Orthant(2)), ErrNonTerminating)
}

func TestConfigRejectsNegativeRefreshRate(t *testing.T) {
	cfg := validConfig()
	cfg.RefreshRate = -0.5
	require.Error(t, cfg.Validate(geometry.Orthant(2)))
}

func TestConfigRejectsDimensionMismatch(t *testing.T) {
	cfg := validConfig()
	require.Error(t, cfg.Validate(geometry.Orthant(3)))
}

func TestLoadConfigYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "run.yaml")
	content := `x0: [0.5, 0.5]
v0: [1.0, 0.0]
max_time: 100
max_grad_evals: 5000
refresh_rate: 1.5
seed: 7
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))

	cfg, err := LoadConfig(file)
	require.NoError(t, err)
	require.Equal(t, []float64{0.5, 0.5}, cfg.X0)
	require.Equal(t, []float64{1.0, 0.0}, cfg.V0)
	require.Equal(t, 100.0, cfg.MaxTime)
	require.Equal(t, 5000, cfg.MaxGradEvals)
	require.Equal(t, 1.5, cfg.RefreshRate)
	require.Equal(t, int64(7), cfg.Seed)
}

func TestLoadConfigRejectsUnknownFields(t *testing.T) {
	file := filepath.Join(t.TempDir(), "run.yaml")
	content := `x0: [0.5]
v0: [1.0]
max_time: 1
lambda_ref: 2.0
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))

	_, err := LoadConfig(file)
	require.Error(t, err, "unknown keys must fail loudly, not be ignored")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
