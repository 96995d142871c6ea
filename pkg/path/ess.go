package path

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ESS estimates the per-dimension effective sample size of the path. The
// continuous path is first resampled on a uniform grid of gridSize points,
// then each coordinate series gets the standard autocorrelation estimator
// ESS = n / (1 + 2·Σρ_k), with the lag sum truncated by Geyer's
// initial-positive-sequence rule (stop when a paired autocorrelation
// ρ_{2k} + ρ_{2k+1} turns non-positive).
func (p *Path) ESS(gridSize int) ([]float64, error) {
	if gridSize < 4 {
		return nil, fmt.Errorf("path: ESS grid needs at least 4 points, got %d", gridSize)
	}
	grid := uniformGrid(p.Start(), p.End(), gridSize)
	samples, err := p.SampleAt(grid)
	if err != nil {
		return nil, err
	}
	out := make([]float64, p.dim)
	col := make([]float64, gridSize)
	for d := 0; d < p.dim; d++ {
		mat.Col(col, d, samples)
		out[d] = seriesESS(col)
	}
	return out, nil
}

// uniformGrid returns n equally spaced points spanning [start, end].
func uniformGrid(start, end float64, n int) []float64 {
	grid := make([]float64, n)
	step := (end - start) / float64(n-1)
	for i := range grid {
		grid[i] = start + float64(i)*step
	}
	// Guard against the last point drifting past end by rounding.
	grid[n-1] = end
	return grid
}

// seriesESS applies the discrete-time ESS estimator to one coordinate.
func seriesESS(xs []float64) float64 {
	n := len(xs)
	mean := stat.Mean(xs, nil)
	variance := stat.Variance(xs, nil)
	if variance == 0 {
		// A constant series carries no information; by convention report
		// the full grid size rather than dividing by zero.
		return float64(n)
	}
	// Biased autocovariance estimator (divide by n), standard for ESS.
	autocorr := func(lag int) float64 {
		var sum float64
		for i := 0; i+lag < n; i++ {
			sum += (xs[i] - mean) * (xs[i+lag] - mean)
		}
		return sum / float64(n) / variance
	}
	tau := 1.0
	for lag := 1; lag+1 < n; lag += 2 {
		pair := autocorr(lag) + autocorr(lag+1)
		if pair <= 0 {
			break
		}
		tau += 2 * pair
	}
	ess := float64(n) / tau
	if ess > float64(n) {
		ess = float64(n)
	}
	return ess
}
