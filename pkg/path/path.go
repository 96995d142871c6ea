// Package path stores the piecewise-linear skeleton generated by a PDMP
// run and derives estimates from it. Position is affine in time within a
// segment, so the continuous path is fully determined by breakpoints and
// velocities and can be resampled or integrated in closed form.
package path

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Segment is one linear piece of the path: position x(t) = X0 + (t−T0)·V
// for t in [T0, T1].
type Segment struct {
	T0, T1 float64
	X0     []float64
	V      []float64
}

// Duration returns the length of the segment in simulated time.
func (s Segment) Duration() float64 { return s.T1 - s.T0 }

// At returns the position at absolute time t, which must lie in [T0, T1].
func (s Segment) At(t float64) []float64 {
	x := make([]float64, len(s.X0))
	copy(x, s.X0)
	floats.AddScaled(x, t-s.T0, s.V)
	return x
}

// End returns the position at the end of the segment.
func (s Segment) End() []float64 { return s.At(s.T1) }

// Path is the ordered sequence of segments produced by one run. The engine
// appends while simulating; afterwards the path is read-only.
type Path struct {
	dim  int
	segs []Segment
}

// New creates an empty path for states of the given dimension.
func New(dim int) *Path {
	return &Path{dim: dim}
}

// Dim returns the state dimension.
func (p *Path) Dim() int { return p.dim }

// Len returns the number of segments.
func (p *Path) Len() int { return len(p.segs) }

// Segment returns the i-th segment.
func (p *Path) Segment(i int) Segment { return p.segs[i] }

// Start returns the simulated time at which the path begins.
func (p *Path) Start() float64 {
	if len(p.segs) == 0 {
		return 0
	}
	return p.segs[0].T0
}

// End returns the simulated time at which the path ends.
func (p *Path) End() float64 {
	if len(p.segs) == 0 {
		return 0
	}
	return p.segs[len(p.segs)-1].T1
}

// Duration returns the total simulated time covered by the path.
func (p *Path) Duration() float64 { return p.End() - p.Start() }

// Append adds a segment. Segments must be contiguous: the new segment has
// to start at the time and position where the previous one ended.
func (p *Path) Append(s Segment) error {
	if len(s.X0) != p.dim || len(s.V) != p.dim {
		return fmt.Errorf("path: segment dimension %d/%d, want %d", len(s.X0), len(s.V), p.dim)
	}
	if s.T1 < s.T0 {
		return fmt.Errorf("path: segment ends at %v before it starts at %v", s.T1, s.T0)
	}
	if n := len(p.segs); n > 0 && s.T0 != p.segs[n-1].T1 {
		return fmt.Errorf("path: segment starts at %v, previous ended at %v", s.T0, p.segs[n-1].T1)
	}
	p.segs = append(p.segs, s)
	return nil
}

// SampleAt evaluates the path at the given times, which must be
// non-decreasing and lie within [Start, End]. The result has one row per
// time and one column per dimension. Pure function of the frozen path:
// repeated calls with the same times return identical positions.
func (p *Path) SampleAt(times []float64) (*mat.Dense, error) {
	if len(p.segs) == 0 {
		return nil, fmt.Errorf("path: empty path")
	}
	out := mat.NewDense(len(times), p.dim, nil)
	seg := 0
	prev := p.Start()
	for i, t := range times {
		if t < prev {
			return nil, fmt.Errorf("path: times must be non-decreasing, got %v after %v", t, prev)
		}
		if t > p.End() {
			return nil, fmt.Errorf("path: time %v beyond path end %v", t, p.End())
		}
		prev = t
		for seg < len(p.segs)-1 && t > p.segs[seg].T1 {
			seg++
		}
		out.SetRow(i, p.segs[seg].At(t))
	}
	return out, nil
}

// locate returns the index of the segment containing time t.
func (p *Path) locate(t float64) int {
	i := sort.Search(len(p.segs), func(i int) bool { return p.segs[i].T1 >= t })
	if i == len(p.segs) {
		i = len(p.segs) - 1
	}
	return i
}

// At returns the position at an arbitrary time within the path.
func (p *Path) At(t float64) []float64 {
	return p.segs[p.locate(t)].At(t)
}

// Mean returns the time-weighted average position over the whole path:
// (1/T)·Σ ∫ x(t) dt with the per-segment integral in closed form,
// dur·X0 + dur²/2·V. Breakpoint averaging would be biased because
// segment durations vary.
func (p *Path) Mean() ([]float64, error) {
	total := p.Duration()
	if total <= 0 {
		return nil, fmt.Errorf("path: zero total duration")
	}
	acc := make([]float64, p.dim)
	for _, s := range p.segs {
		dur := s.Duration()
		floats.AddScaled(acc, dur, s.X0)
		floats.AddScaled(acc, dur*dur/2, s.V)
	}
	floats.Scale(1/total, acc)
	return acc, nil
}
