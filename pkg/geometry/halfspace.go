package geometry

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Epsilon below which a ray is treated as parallel to a face.
// Matches the tolerance used for feasibility checks on the boundary.
const parallelEps = 1e-12

// HalfSpace is one face of the feasible polytope: the set of points x
// with Normal·x ≥ Offset. Normals need not be unit length.
type HalfSpace struct {
	Normal []float64
	Offset float64
}

// Violation returns how far x is on the infeasible side of the face
// (positive means infeasible).
func (h HalfSpace) Violation(x []float64) float64 {
	return h.Offset - floats.Dot(h.Normal, x)
}

// Polytope is a convex feasible region given as an intersection of
// half-spaces. The face list is ordered and immutable after construction.
type Polytope struct {
	faces []HalfSpace
	dim   int
}

// NewPolytope builds a polytope from an ordered face list.
func NewPolytope(faces []HalfSpace) (*Polytope, error) {
	if len(faces) == 0 {
		return nil, fmt.Errorf("geometry: polytope needs at least one face")
	}
	dim := len(faces[0].Normal)
	for i, f := range faces {
		if len(f.Normal) != dim {
			return nil, fmt.Errorf("geometry: face %d has dimension %d, want %d", i, len(f.Normal), dim)
		}
		if floats.Norm(f.Normal, 2) == 0 {
			return nil, fmt.Errorf("geometry: face %d has zero normal", i)
		}
	}
	return &Polytope{faces: faces, dim: dim}, nil
}

// Orthant returns the non-negative orthant x_i ≥ 0 in dim dimensions,
// one face per coordinate.
func Orthant(dim int) *Polytope {
	faces := make([]HalfSpace, dim)
	for i := 0; i < dim; i++ {
		n := make([]float64, dim)
		n[i] = 1
		faces[i] = HalfSpace{Normal: n, Offset: 0}
	}
	return &Polytope{faces: faces, dim: dim}
}

// Box returns the axis-aligned box lo ≤ x ≤ hi as 2·dim half-spaces,
// lower faces first.
func Box(lo, hi []float64) (*Polytope, error) {
	if len(lo) != len(hi) {
		return nil, fmt.Errorf("geometry: box bounds have dimensions %d and %d", len(lo), len(hi))
	}
	dim := len(lo)
	faces := make([]HalfSpace, 0, 2*dim)
	for i := 0; i < dim; i++ {
		if lo[i] >= hi[i] {
			return nil, fmt.Errorf("geometry: box is empty along coordinate %d", i)
		}
		n := make([]float64, dim)
		n[i] = 1
		faces = append(faces, HalfSpace{Normal: n, Offset: lo[i]})
	}
	for i := 0; i < dim; i++ {
		n := make([]float64, dim)
		n[i] = -1
		faces = append(faces, HalfSpace{Normal: n, Offset: -hi[i]})
	}
	return &Polytope{faces: faces, dim: dim}, nil
}

// Dim returns the dimension of the ambient space.
func (p *Polytope) Dim() int { return p.dim }

// NumFaces returns the number of half-space constraints.
func (p *Polytope) NumFaces() int { return len(p.faces) }

// Face returns the i-th half-space.
func (p *Polytope) Face(i int) HalfSpace { return p.faces[i] }

// Contains reports whether x satisfies every constraint within tol.
func (p *Polytope) Contains(x []float64, tol float64) bool {
	for _, f := range p.faces {
		if f.Violation(x) > tol {
			return false
		}
	}
	return true
}

// NextBoundary finds the first face the ray x + t·v crosses outward,
// scanning every face once. It returns the hit time and face index, or
// ok=false when no face is hit before the horizon. A face the ray moves
// along (Normal·v near zero) or away from is never hit; near-parallel
// rays are treated as "face not reachable", not as a division fault.
func (p *Polytope) NextBoundary(x, v []float64, horizon float64) (t float64, face int, ok bool) {
	best := horizon
	face = -1
	for i, f := range p.faces {
		d := floats.Dot(f.Normal, v)
		// Only faces the trajectory approaches from the feasible side
		// (Normal·v < 0) can be crossed outward.
		if d >= -parallelEps {
			continue
		}
		// Solve Normal·(x + t·v) = Offset for t.
		ti := (f.Offset - floats.Dot(f.Normal, x)) / d
		if ti < 0 {
			// Behind the ray origin; numerically possible when x sits
			// exactly on a face the velocity points away from.
			continue
		}
		if ti < best {
			best = ti
			face = i
		}
	}
	if face < 0 {
		return 0, -1, false
	}
	return best, face, true
}

// Reflect returns v reflected specularly across the hyperplane with the
// given normal: v − 2·(n·v)/(n·n)·n. The tangential component is kept,
// the normal component flips, and ‖v‖ is preserved.
func Reflect(v, normal []float64) []float64 {
	nn := floats.Dot(normal, normal)
	if nn == 0 {
		out := make([]float64, len(v))
		copy(out, v)
		return out
	}
	scale := 2 * floats.Dot(normal, v) / nn
	out := make([]float64, len(v))
	copy(out, v)
	floats.AddScaled(out, -scale, normal)
	return out
}
