// Package model provides ready-made target densities for the sampler:
// a multivariate Gaussian and a Bayesian logistic regression. Both expose
// the gradient of the negative log-density with a certified Lipschitz
// constant; the logistic target additionally keeps a control-variate
// reference point.
package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Gaussian is the target U(x) = ½·(x−μ)ᵀ·P·(x−μ) with precision matrix P.
type Gaussian struct {
	mu   []float64
	prec *mat.SymDense
	lip  float64
}

// NewGaussian builds a Gaussian target from a mean and a precision matrix.
// The gradient Lipschitz constant is the largest precision eigenvalue.
func NewGaussian(mu []float64, prec *mat.SymDense) (*Gaussian, error) {
	if prec.SymmetricDim() != len(mu) {
		return nil, fmt.Errorf("model: mean has dimension %d, precision %d", len(mu), prec.SymmetricDim())
	}
	var eig mat.EigenSym
	if !eig.Factorize(prec, false) {
		return nil, fmt.Errorf("model: precision eigendecomposition failed")
	}
	values := eig.Values(nil)
	lip := values[len(values)-1] // EigenSym returns ascending eigenvalues
	if lip <= 0 {
		return nil, fmt.Errorf("model: precision matrix is not positive definite")
	}
	return &Gaussian{mu: mu, prec: prec, lip: lip}, nil
}

// StandardGaussian returns the unit-variance isotropic Gaussian in dim
// dimensions centered at the origin.
func StandardGaussian(dim int) *Gaussian {
	prec := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		prec.SetSym(i, i, 1)
	}
	g, _ := NewGaussian(make([]float64, dim), prec)
	return g
}

// Dim implements core.Target.
func (g *Gaussian) Dim() int { return len(g.mu) }

// Grad returns ∇U(x) = P·(x−μ).
func (g *Gaussian) Grad(x []float64) []float64 {
	diff := mat.NewVecDense(len(x), nil)
	diff.SubVec(mat.NewVecDense(len(x), x), mat.NewVecDense(len(g.mu), g.mu))
	out := mat.NewVecDense(len(x), nil)
	out.MulVec(g.prec, diff)
	return out.RawVector().Data
}

// GradLipschitz implements core.Target.
func (g *Gaussian) GradLipschitz() float64 { return g.lip }

// LogDensity returns −U(x), the log-density up to the normalizing constant.
func (g *Gaussian) LogDensity(x []float64) float64 {
	diff := mat.NewVecDense(len(x), nil)
	diff.SubVec(mat.NewVecDense(len(x), x), mat.NewVecDense(len(g.mu), g.mu))
	tmp := mat.NewVecDense(len(x), nil)
	tmp.MulVec(g.prec, diff)
	return -0.5 * mat.Dot(diff, tmp)
}
