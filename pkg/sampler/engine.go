// Package sampler runs piecewise deterministic Markov process chains
// restricted to a convex polytope. Each iteration races the first boundary
// crossing, the next gradient-driven bounce candidate, and a homogeneous
// refreshment clock; the winner's velocity transformation is applied and
// the linear flight in between becomes one path segment.
package sampler

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/nkls/go-polytope-sampler/pkg/core"
	"github.com/nkls/go-polytope-sampler/pkg/geometry"
	"github.com/nkls/go-polytope-sampler/pkg/path"
)

// Engine simulates a single chain. It owns its state, RNG, and counters;
// independent chains never share an Engine.
type Engine struct {
	domain *geometry.Polytope
	target core.Target
	oracle core.EventTimer
	cfg    Config
	rng    *rand.Rand
	logger core.Logger
	speed  float64
}

// NewEngine validates the configuration and builds a chain simulator.
// If the target keeps a control-variate reference, it is initialized at
// the starting position.
func NewEngine(domain *geometry.Polytope, target core.Target, oracle core.EventTimer, cfg Config) (*Engine, error) {
	if target.Dim() != domain.Dim() {
		return nil, fmt.Errorf("sampler: target dimension %d, domain dimension %d", target.Dim(), domain.Dim())
	}
	if err := cfg.Validate(domain); err != nil {
		return nil, err
	}
	if ref, hasRef := target.(core.ReferenceTarget); hasRef {
		ref.SetReference(cfg.X0)
	}
	return &Engine{
		domain: domain,
		target: target,
		oracle: oracle,
		cfg:    cfg,
		rng:    core.NewRand(cfg.Seed),
		speed:  floats.Norm(cfg.V0, 2),
	}, nil
}

// SetLogger attaches an optional progress logger. A nil logger (the
// default) keeps the engine silent.
func (e *Engine) SetLogger(logger core.Logger) { e.logger = logger }

// event kinds, in tie-precedence order. Boundary wins ties because
// feasibility is a hard constraint; the stopping horizon yields to all.
type eventKind int

const (
	eventStop eventKind = iota
	eventRefresh
	eventBounce
	eventBoundary
)

// Run simulates the chain until the simulated-time or gradient-budget
// ceiling is reached and returns the frozen path with its diagnostics.
// On a fatal error (a violated intensity bound) the partial path and
// diagnostics are returned alongside the error.
func (e *Engine) Run() (pth *path.Path, diag Diagnostics, err error) {
	start := time.Now()
	dim := e.domain.Dim()

	x := append([]float64(nil), e.cfg.X0...)
	v := append([]float64(nil), e.cfg.V0...)
	maxTime := e.cfg.MaxTime
	if maxTime <= 0 {
		maxTime = math.Inf(1)
	}
	budget := e.cfg.MaxGradEvals // ≤0 means unlimited

	pth = path.New(dim)
	elapsed := 0.0

	defer func() {
		diag.SimTime = elapsed
		diag.WallClock = time.Since(start)
	}()

	for {
		if elapsed >= maxTime {
			break
		}
		if budget > 0 && diag.GradEvals >= budget {
			break
		}
		diag.Iterations++

		remaining := maxTime - elapsed
		tRefresh := core.SampleExponential(e.cfg.RefreshRate, e.rng)

		horizon := math.Min(remaining, tRefresh)
		tBoundary, face, hitBoundary := e.domain.NextBoundary(x, v, horizon)
		if hitBoundary {
			// No point thinning past a wall the trajectory cannot cross.
			horizon = tBoundary
		}
		oracleBudget := 0
		if budget > 0 {
			oracleBudget = budget - diag.GradEvals
		}
		tBounce, grad, evals, haveBounce, err := e.oracle.NextEvent(x, v, horizon, oracleBudget, e.rng)
		diag.GradEvals += evals
		if err != nil {
			return pth, diag, fmt.Errorf("sampler: iteration %d: %w", diag.Iterations, err)
		}

		t := remaining
		kind := eventStop
		if tRefresh < t {
			t, kind = tRefresh, eventRefresh
		}
		if haveBounce && tBounce <= t {
			t, kind = tBounce, eventBounce
		}
		if hitBoundary && tBoundary <= t {
			t, kind = tBoundary, eventBoundary
		}

		if kind == eventStop && math.IsInf(t, 1) {
			// Unbounded time, no wall ahead, and the oracle exhausted its
			// budget without an event: nothing left to simulate.
			if e.logger != nil {
				e.logger.Printf("sampler: no further events after t=%.4g, stopping", elapsed)
			}
			break
		}

		seg := path.Segment{
			T0: elapsed,
			T1: elapsed + t,
			X0: append([]float64(nil), x...),
			V:  append([]float64(nil), v...),
		}
		if err := pth.Append(seg); err != nil {
			return pth, diag, err
		}
		floats.AddScaled(x, t, v)
		elapsed += t

		switch kind {
		case eventBoundary:
			v = geometry.Reflect(v, e.domain.Face(face).Normal)
			diag.BoundaryHits++
		case eventBounce:
			// Bouncy-particle kernel: reflect the velocity across the
			// hyperplane orthogonal to ∇U at the event point, reusing the
			// gradient the oracle already evaluated there.
			v = geometry.Reflect(v, grad)
			diag.Bounces++
		case eventRefresh:
			v = core.SampleUnitSphere(dim, e.rng)
			floats.Scale(e.speed, v)
			diag.Refreshes++
			if ref, hasRef := e.target.(core.ReferenceTarget); hasRef {
				ref.SetReference(x)
			}
		case eventStop:
			// Final segment already appended up to maxTime.
		}
	}

	if e.logger != nil {
		e.logger.Printf("sampler: finished t=%.4g after %d iterations, %d gradient evals",
			elapsed, diag.Iterations, diag.GradEvals)
	}
	return pth, diag, nil
}
