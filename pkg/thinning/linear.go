// Package thinning draws event times of inhomogeneous Poisson processes by
// thinning against an affine intensity majorant g(t) = c0 + c1·t with
// c1 ≥ 0, derived from a Lipschitz constant on the target gradient. The
// cumulative intensity of max(0, g) is quadratic, so candidate times come
// from a closed-form inversion and no numerical root finding is needed.
package thinning

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/nkls/go-polytope-sampler/pkg/core"
)

// ErrBoundViolated reports an observed intensity above the certified
// majorant. This means the target's Lipschitz constant is wrong; the run
// must abort rather than continue with an invalid event-time law.
var ErrBoundViolated = errors.New("thinning: intensity exceeds certified bound")

// Relative slack allowed before a bound comparison counts as a violation.
const boundTol = 1e-9

// firstArrival inverts the cumulative intensity of max(0, c0 + c1·t)
// against a unit-exponential draw e, returning the first arrival time.
// Returns +Inf when the process never accumulates mass e.
func firstArrival(c0, c1, e float64) float64 {
	if c1 == 0 {
		if c0 <= 0 {
			return math.Inf(1)
		}
		return e / c0
	}
	if c0 >= 0 {
		// Solve c0·t + c1·t²/2 = e, positive root of the quadratic.
		return (-c0 + math.Sqrt(c0*c0+2*c1*e)) / c1
	}
	// The rate is zero until t = −c0/c1, then grows linearly from zero.
	return -c0/c1 + math.Sqrt(2*e/c1)
}

// Linear is the standard thinning oracle: the bound intercept comes from
// one gradient evaluation at the ray origin.
type Linear struct {
	target core.Target
}

// NewLinear creates a thinning oracle for the given target.
func NewLinear(target core.Target) *Linear {
	return &Linear{target: target}
}

// NextEvent implements core.EventTimer.
func (l *Linear) NextEvent(x, v []float64, horizon float64, maxEvals int, rng *rand.Rand) (float64, []float64, int, bool, error) {
	grad := l.target.Grad(x)
	evals := 1
	remaining := 0 // unlimited
	if maxEvals > 0 {
		remaining = maxEvals - evals
		if remaining <= 0 {
			return 0, nil, evals, false, nil
		}
	}
	c0 := floats.Dot(grad, v)
	c1 := l.target.GradLipschitz() * floats.Dot(v, v)
	t, g, n, ok, err := thin(l.target, x, v, c0, c1, horizon, remaining, rng)
	return t, g, evals + n, ok, err
}

// thin runs the thinning loop against the majorant c0 + c1·t, valid for
// the whole ray. On rejection the bound is not re-derived; the loop
// restarts from the rejected time with the same bound shifted forward.
// Each trial costs one gradient evaluation, capped at maxEvals (≤0 means
// unlimited).
func thin(target core.Target, x, v []float64, c0, c1, horizon float64, maxEvals int, rng *rand.Rand) (float64, []float64, int, bool, error) {
	dim := len(x)
	pos := make([]float64, dim)
	elapsed := 0.0
	intercept := c0 // majorant value at the current position along the ray
	evals := 0
	for {
		dt := firstArrival(intercept, c1, rng.ExpFloat64())
		elapsed += dt
		if elapsed >= horizon {
			return 0, nil, evals, false, nil
		}
		if maxEvals > 0 && evals >= maxEvals {
			return 0, nil, evals, false, nil
		}
		copy(pos, x)
		floats.AddScaled(pos, elapsed, v)
		grad := target.Grad(pos)
		evals++
		rate := floats.Dot(grad, v)
		bound := c0 + c1*elapsed
		if rate > bound+boundTol*(1+math.Abs(bound)) {
			return 0, nil, evals, false, fmt.Errorf("%w: rate %v > bound %v at t=%v", ErrBoundViolated, rate, bound, elapsed)
		}
		if rate > 0 && rng.Float64()*bound <= rate {
			return elapsed, grad, evals, true, nil
		}
		intercept = bound
	}
}
