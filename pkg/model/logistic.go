package model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Logistic is the Bayesian logistic regression target over coefficients β:
// U(β) = Σᵢ [log(1+exp(xᵢᵀβ)) − yᵢ·xᵢᵀβ], the negative log-likelihood of
// binary labels y under the logit model. Combined with a non-negativity
// polytope it gives sign-constrained posterior sampling.
//
// The gradient Hessian satisfies 0 ≼ ∇²U ≼ ¼·XᵀX, so ¼·λmax(XᵀX) is a
// valid gradient Lipschitz constant.
//
// Logistic keeps a control-variate reference point with its cached
// gradient, satisfying core.ReferenceTarget.
type Logistic struct {
	design *mat.Dense // n×p design matrix
	labels []float64  // binary labels, 0 or 1
	lip    float64

	refX    []float64
	refGrad []float64
}

// NewLogistic builds a logistic regression target from an n×p design
// matrix and n binary labels.
func NewLogistic(design *mat.Dense, labels []float64) (*Logistic, error) {
	n, p := design.Dims()
	if len(labels) != n {
		return nil, fmt.Errorf("model: %d labels for %d observations", len(labels), n)
	}
	for i, y := range labels {
		if y != 0 && y != 1 {
			return nil, fmt.Errorf("model: label %d is %v, want 0 or 1", i, y)
		}
	}

	// L = ¼·λmax(XᵀX).
	var gram mat.Dense
	gram.Mul(design.T(), design)
	sym := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			sym.SetSym(i, j, gram.At(i, j))
		}
	}
	var eig mat.EigenSym
	if !eig.Factorize(sym, false) {
		return nil, fmt.Errorf("model: gram eigendecomposition failed")
	}
	values := eig.Values(nil)
	lip := 0.25 * values[len(values)-1]

	return &Logistic{design: design, labels: labels, lip: lip}, nil
}

// SyntheticLogistic generates a logistic target with n observations of
// dimension p from random Gaussian covariates and a known coefficient
// vector truth. Used by the CLI driver and tests.
func SyntheticLogistic(n, p int, truth []float64, rng *rand.Rand) (*Logistic, error) {
	if len(truth) != p {
		return nil, fmt.Errorf("model: truth has dimension %d, want %d", len(truth), p)
	}
	design := mat.NewDense(n, p, nil)
	labels := make([]float64, n)
	row := make([]float64, p)
	for i := 0; i < n; i++ {
		dot := 0.0
		for j := 0; j < p; j++ {
			row[j] = rng.NormFloat64()
			dot += row[j] * truth[j]
		}
		design.SetRow(i, row)
		if rng.Float64() < sigmoid(dot) {
			labels[i] = 1
		}
	}
	return NewLogistic(design, labels)
}

func sigmoid(z float64) float64 {
	// Split by sign to avoid overflow in exp for large |z|.
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	ez := math.Exp(z)
	return ez / (1 + ez)
}

// Dim implements core.Target.
func (l *Logistic) Dim() int {
	_, p := l.design.Dims()
	return p
}

// NumObservations returns the number of data points.
func (l *Logistic) NumObservations() int {
	n, _ := l.design.Dims()
	return n
}

// Grad returns ∇U(β) = Xᵀ·(σ(Xβ) − y). The per-observation sum is where a
// data-parallel target would vectorize; the sampler core never sees it.
func (l *Logistic) Grad(beta []float64) []float64 {
	n, p := l.design.Dims()
	logits := mat.NewVecDense(n, nil)
	logits.MulVec(l.design, mat.NewVecDense(p, beta))
	resid := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		resid.SetVec(i, sigmoid(logits.AtVec(i))-l.labels[i])
	}
	out := mat.NewVecDense(p, nil)
	out.MulVec(l.design.T(), resid)
	return out.RawVector().Data
}

// GradLipschitz implements core.Target.
func (l *Logistic) GradLipschitz() float64 { return l.lip }

// LogDensity returns the log-likelihood Σᵢ [yᵢ·zᵢ − log(1+exp(zᵢ))].
func (l *Logistic) LogDensity(beta []float64) float64 {
	n, p := l.design.Dims()
	logits := mat.NewVecDense(n, nil)
	logits.MulVec(l.design, mat.NewVecDense(p, beta))
	total := 0.0
	for i := 0; i < n; i++ {
		z := logits.AtVec(i)
		total += l.labels[i]*z - log1pExp(z)
	}
	return total
}

// log1pExp computes log(1+exp(z)) without overflow.
func log1pExp(z float64) float64 {
	if z > 35 {
		return z
	}
	return math.Log1p(math.Exp(z))
}

// SetReference implements core.ReferenceTarget.
func (l *Logistic) SetReference(x []float64) {
	l.refX = append([]float64(nil), x...)
	l.refGrad = l.Grad(x)
}

// Reference implements core.ReferenceTarget.
func (l *Logistic) Reference() (x, grad []float64) {
	return l.refX, l.refGrad
}
