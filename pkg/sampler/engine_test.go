package sampler

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/nkls/go-polytope-sampler/pkg/geometry"
	"github.com/nkls/go-polytope-sampler/pkg/path"
	"github.com/nkls/go-polytope-sampler/pkg/thinning"
)

// shiftedQuadratic is the target U(x) = ½‖x−μ‖², ∇U(x) = x−μ, with the
// exact Lipschitz constant 1.
type shiftedQuadratic struct {
	mu []float64
}

func (s *shiftedQuadratic) Dim() int { return len(s.mu) }
func (s *shiftedQuadratic) Grad(x []float64) []float64 {
	out := make([]float64, len(x))
	floats.SubTo(out, x, s.mu)
	return out
}
func (s *shiftedQuadratic) GradLipschitz() float64 { return 1 }

// flatTarget has a constant density: the gradient vanishes and the chain
// is pure billiards in the domain.
type flatTarget struct{ dim int }

func (f *flatTarget) Dim() int                  { return f.dim }
func (f *flatTarget) Grad(x []float64) []float64 { return make([]float64, f.dim) }
func (f *flatTarget) GradLipschitz() float64     { return 0 }

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	domain := geometry.Orthant(len(cfg.X0))
	target := &shiftedQuadratic{mu: []float64{1, 1}}
	engine, err := NewEngine(domain, target, thinning.NewLinear(target), cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine
}

func TestEngineRejectsInfeasibleStart(t *testing.T) {
	cfg := validConfig()
	cfg.X0 = []float64{-1, 1}
	target := &shiftedQuadratic{mu: []float64{1, 1}}
	_, err := NewEngine(geometry.Orthant(2), target, thinning.NewLinear(target), cfg)
	if err == nil {
		t.Fatal("expected a configuration error before any simulation step")
	}
}

func TestEngineStopsAtMaxTime(t *testing.T) {
	cfg := validConfig()
	cfg.MaxTime = 25
	pth, diag, err := newTestEngine(t, cfg).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if math.Abs(diag.SimTime-25) > 1e-9 {
		t.Errorf("expected sim time 25, got %v", diag.SimTime)
	}
	if math.Abs(pth.End()-25) > 1e-9 {
		t.Errorf("expected path to end at 25, got %v", pth.End())
	}
}

func TestEngineTerminatesOnGradBudget(t *testing.T) {
	cfg := validConfig()
	cfg.MaxTime = 0 // unbounded simulated time
	cfg.MaxGradEvals = 1000
	_, diag, err := newTestEngine(t, cfg).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// The oracle receives the remaining budget every iteration, so the
	// ceiling is reached exactly, never overshot.
	if diag.GradEvals != 1000 {
		t.Errorf("expected exactly 1000 gradient evals, got %d", diag.GradEvals)
	}
	if diag.SimTime <= 0 {
		t.Error("expected positive simulated time")
	}
}

func TestEngineFeasibilityAndContiguity(t *testing.T) {
	cfg := validConfig()
	cfg.MaxTime = 200
	cfg.RefreshRate = 0.5
	domain := geometry.Orthant(2)
	pth, diag, err := newTestEngine(t, cfg).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if pth.Len() == 0 {
		t.Fatal("expected a non-empty path")
	}

	speed := floats.Norm(cfg.V0, 2)
	prevEnd := 0.0
	prevPos := cfg.X0
	total := 0.0
	for i := 0; i < pth.Len(); i++ {
		seg := pth.Segment(i)
		// Monotone, contiguous times.
		if seg.T0 != prevEnd {
			t.Fatalf("segment %d starts at %v, previous ended at %v", i, seg.T0, prevEnd)
		}
		if seg.T1 < seg.T0 {
			t.Fatalf("segment %d has negative duration", i)
		}
		// Consecutive segments share an endpoint position.
		for d, want := range prevPos {
			if math.Abs(seg.X0[d]-want) > 1e-9 {
				t.Fatalf("segment %d starts at %v, previous ended at %v", i, seg.X0, prevPos)
			}
		}
		// Every breakpoint satisfies every constraint.
		if !domain.Contains(seg.X0, 1e-9) {
			t.Fatalf("segment %d breakpoint %v is infeasible", i, seg.X0)
		}
		// Speed is invariant: refreshment redraws on the same sphere and
		// reflections preserve the norm.
		if got := floats.Norm(seg.V, 2); math.Abs(got-speed) > 1e-9 {
			t.Fatalf("segment %d speed %v, want %v", i, got, speed)
		}
		prevEnd = seg.T1
		prevPos = seg.End()
		total += seg.Duration()
	}
	if !domain.Contains(prevPos, 1e-9) {
		t.Fatalf("final position %v is infeasible", prevPos)
	}
	if math.Abs(total-diag.SimTime) > 1e-9 {
		t.Errorf("segment durations sum to %v, diagnostics report %v", total, diag.SimTime)
	}
}

func TestEngineBilliardsReflection(t *testing.T) {
	// Flat target in a box with no refreshment: pure specular billiards.
	lo := []float64{0, 0}
	hi := []float64{1, 1}
	domain, err := geometry.Box(lo, hi)
	if err != nil {
		t.Fatalf("Box: %v", err)
	}
	target := &flatTarget{dim: 2}
	cfg := Config{
		X0:      []float64{0.3, 0.4},
		V0:      []float64{0.6, 0.8},
		MaxTime: 50,
	}
	engine, err := NewEngine(domain, target, thinning.NewLinear(target), cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	pth, diag, err := engine.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if diag.BoundaryHits == 0 {
		t.Fatal("a billiard in a unit box must hit walls")
	}
	if diag.Bounces != 0 {
		t.Errorf("flat target cannot produce gradient bounces, got %d", diag.Bounces)
	}
	if diag.Refreshes != 0 {
		t.Errorf("refreshment disabled, got %d refreshes", diag.Refreshes)
	}

	// Axis-aligned walls: each reflection flips exactly one velocity
	// component and keeps the other.
	for i := 1; i < pth.Len(); i++ {
		prev, cur := pth.Segment(i-1).V, pth.Segment(i).V
		flips := 0
		for d := range prev {
			switch {
			case math.Abs(cur[d]-prev[d]) < 1e-12:
				// unchanged
			case math.Abs(cur[d]+prev[d]) < 1e-12:
				flips++
			default:
				t.Fatalf("segment %d: velocity %v -> %v is not a wall reflection", i, prev, cur)
			}
		}
		if flips != 1 {
			t.Fatalf("segment %d: expected exactly one flipped component, got %d", i, flips)
		}
	}
}

func TestEngineBouncesAgainstGradient(t *testing.T) {
	// Target centered inside the orthant with no refreshment and no
	// reachable boundary along the start direction: the first event is a
	// gradient bounce.
	cfg := validConfig()
	cfg.MaxTime = 100
	cfg.RefreshRate = 0
	cfg.X0 = []float64{2, 2}
	_, diag, err := newTestEngine(t, cfg).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diag.Bounces == 0 {
		t.Error("a confining target must produce gradient bounces")
	}
}

func TestEngineRefreshCounts(t *testing.T) {
	cfg := validConfig()
	cfg.MaxTime = 200
	cfg.RefreshRate = 2.0
	_, diag, err := newTestEngine(t, cfg).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Refreshments arrive at rate 2 over 200 time units; the expected
	// count is 400 and the relative fluctuation is a few percent.
	if diag.Refreshes < 300 || diag.Refreshes > 500 {
		t.Errorf("expected roughly 400 refreshes, got %d", diag.Refreshes)
	}
}

func TestEngineDeterministicForSeed(t *testing.T) {
	cfg := validConfig()
	cfg.MaxTime = 50

	run := func() (*path.Path, Diagnostics) {
		pth, diag, err := newTestEngine(t, cfg).Run()
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return pth, diag
	}
	p1, d1 := run()
	p2, d2 := run()

	if d1.BoundaryHits != d2.BoundaryHits || d1.Bounces != d2.Bounces ||
		d1.Refreshes != d2.Refreshes || d1.GradEvals != d2.GradEvals ||
		d1.Iterations != d2.Iterations {
		t.Errorf("diagnostics differ for the same seed: %+v vs %+v", d1, d2)
	}
	if p1.Len() != p2.Len() {
		t.Fatalf("path lengths differ for the same seed: %d vs %d", p1.Len(), p2.Len())
	}
	lastA := p1.Segment(p1.Len() - 1).End()
	lastB := p2.Segment(p2.Len() - 1).End()
	for d := range lastA {
		if lastA[d] != lastB[d] {
			t.Fatalf("final positions differ for the same seed: %v vs %v", lastA, lastB)
		}
	}
}

func TestEngineMeanNearTruncatedGaussianMean(t *testing.T) {
	// Unit Gaussian centered at (1,1) truncated to the orthant factorizes
	// per dimension; each marginal mean is 1 + φ(−1)/Φ(1) ≈ 1.288.
	cfg := validConfig()
	cfg.MaxTime = 2000
	cfg.RefreshRate = 1
	pth, _, err := newTestEngine(t, cfg).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	mean, err := pth.Mean()
	if err != nil {
		t.Fatalf("Mean: %v", err)
	}
	const want = 1.288
	for d, m := range mean {
		if math.Abs(m-want) > 0.2 {
			t.Errorf("dimension %d: mean %v far from the truncated-Gaussian mean %v", d, m, want)
		}
	}
}
