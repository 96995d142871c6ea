package core

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

var inf = math.Inf(1)

// NewRand creates a deterministic random generator from a seed.
// Every component that draws randomness receives one of these explicitly;
// there is no ambient global RNG state anywhere in the sampler.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// SampleUnitSphere generates a uniform random direction on the unit sphere
// in dim dimensions by normalizing a standard Gaussian vector.
func SampleUnitSphere(dim int, rng *rand.Rand) []float64 {
	v := make([]float64, dim)
	for {
		for i := range v {
			v[i] = rng.NormFloat64()
		}
		// A numerically-zero Gaussian draw is astronomically unlikely but
		// would produce NaNs on normalization; redraw instead.
		if n := floats.Norm(v, 2); n > 0 {
			floats.Scale(1/n, v)
			return v
		}
	}
}

// SampleExponential draws from Exponential(rate) by inversion.
// A rate of zero (or less) means the event never fires: returns +Inf.
func SampleExponential(rate float64, rng *rand.Rand) float64 {
	if rate <= 0 {
		return inf
	}
	return rng.ExpFloat64() / rate
}
