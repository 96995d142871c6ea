package core

import "math/rand"

// Target supplies the gradient of the negative log-density U of the
// distribution being sampled, together with a Lipschitz constant for it.
// The sampler core never sees the density itself; the gradient and the
// constant are enough to build certified event-time majorants.
type Target interface {
	// Dim returns the dimension of the state space.
	Dim() int

	// Grad returns ∇U(x). The returned slice is owned by the caller.
	Grad(x []float64) []float64

	// GradLipschitz returns L such that ‖∇U(a)−∇U(b)‖ ≤ L·‖a−b‖ for all
	// feasible a, b.
	GradLipschitz() float64
}

// ReferenceTarget is a Target that keeps a control-variate reference point.
// The engine moves the reference at refreshment events; oracles may use the
// stored reference gradient to build cheaper intensity bounds.
type ReferenceTarget interface {
	Target

	// SetReference fixes the reference point and caches ∇U there.
	SetReference(x []float64)

	// Reference returns the current reference point and its cached gradient.
	Reference() (x, grad []float64)
}

// LogDensityTarget is a Target that can also evaluate the log-density.
// Only used for diagnostics, never by the simulation loop.
type LogDensityTarget interface {
	Target
	LogDensity(x []float64) float64
}

// EventTimer draws the next gradient-event candidate time along a ray.
// Implementations are interchangeable and selected at engine construction.
type EventTimer interface {
	// NextEvent returns the first event time t ∈ (0, horizon) of the
	// inhomogeneous Poisson process with intensity λ(t) = ⟨∇U(x+tv), v⟩⁺,
	// the gradient evaluated at the event point (reusable for the bounce),
	// and the number of gradient evaluations consumed. ok is false when no
	// event fires before the horizon, or when maxEvals (>0) runs out first.
	// A violated intensity bound is reported as an error, never repaired.
	NextEvent(x, v []float64, horizon float64, maxEvals int, rng *rand.Rand) (t float64, grad []float64, evals int, ok bool, err error)
}

// Logger interface for sampler logging
type Logger interface {
	Printf(format string, args ...interface{})
}
