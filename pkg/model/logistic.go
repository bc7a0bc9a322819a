package model

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	logisticMaxIter   = 4000
	logisticC         = 1.0
	logisticTolerance = 1e-8
)

// Logistic is an L2-regularized logistic regression fitted by Newton's
// method. The intercept is not penalized.
type Logistic struct {
	MaxIter   int
	C         float64
	Tolerance float64

	coef      []float64
	intercept float64
	iters     int
}

// NewLogistic returns an untrained model with enough iterations to converge
// on standardized features.
func NewLogistic() *Logistic {
	return &Logistic{
		MaxIter:   logisticMaxIter,
		C:         logisticC,
		Tolerance: logisticTolerance,
	}
}

func (l *Logistic) family() Family {
	return FamilyLogistic
}

// Fit replaces any previous coefficients.
func (l *Logistic) Fit(x [][]float64, y []float64) error {
	if err := checkTraining(x, y); err != nil {
		return err
	}
	if l.C <= 0 {
		return fmt.Errorf("inverse regularization must be positive, got %v", l.C)
	}

	n, d := len(x), len(x[0])+1
	design := mat.NewDense(n, d, nil)
	for i, row := range x {
		design.Set(i, 0, 1)
		for j, v := range row {
			design.Set(i, j+1, v)
		}
	}
	target := mat.NewVecDense(n, slices.Clone(y))
	lambda := 1 / l.C

	beta := mat.NewVecDense(d, nil)
	mu := mat.NewVecDense(n, nil)
	resid := mat.NewVecDense(n, nil)
	grad := mat.NewVecDense(d, nil)
	step := mat.NewVecDense(d, nil)
	weighted := mat.NewDense(n, d, nil)
	hess := mat.NewSymDense(d, nil)
	var chol mat.Cholesky

	l.iters = 0
	for it := 1; it <= l.MaxIter; it++ {
		l.iters = it

		mu.MulVec(design, beta)
		for i := 0; i < n; i++ {
			mu.SetVec(i, sigmoid(mu.AtVec(i)))
		}
		resid.SubVec(target, mu)

		grad.MulVec(design.T(), resid)
		for j := 1; j < d; j++ {
			grad.SetVec(j, grad.AtVec(j)-lambda*beta.AtVec(j))
		}

		for i := 0; i < n; i++ {
			p := mu.AtVec(i)
			w := math.Sqrt(p * (1 - p))
			for j := 0; j < d; j++ {
				weighted.Set(i, j, design.At(i, j)*w)
			}
		}
		hess.SymOuterK(1, weighted.T())
		for j := 1; j < d; j++ {
			hess.SetSym(j, j, hess.At(j, j)+lambda)
		}

		if ok := chol.Factorize(hess); !ok {
			return fmt.Errorf("logistic hessian not positive definite at iteration %d", it)
		}
		if err := chol.SolveVecTo(step, grad); err != nil {
			return fmt.Errorf("solving newton step: %w", err)
		}
		beta.AddVec(beta, step)

		delta := floats.Norm(step.RawVector().Data, math.Inf(1))
		if math.IsNaN(delta) {
			return fmt.Errorf("logistic fit diverged at iteration %d", it)
		}
		if delta < l.Tolerance {
			break
		}
	}

	coef := beta.RawVector().Data
	l.intercept = coef[0]
	l.coef = slices.Clone(coef[1:])
	slog.Debug("logistic fitted", "iterations", l.iters, "intercept", l.intercept, "coef", l.coef)
	return nil
}

// Predict returns the positive-class probability per row.
func (l *Logistic) Predict(x [][]float64) ([]float64, error) {
	if l.coef == nil {
		return nil, ErrNotFitted
	}

	out := make([]float64, len(x))
	for i, row := range x {
		if len(row) != len(l.coef) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrFeatureMismatch, i, len(row), len(l.coef))
		}
		out[i] = sigmoid(l.intercept + floats.Dot(row, l.coef))
	}
	return out, nil
}

// Coefficients returns a copy of the fitted weights in feature order.
func (l *Logistic) Coefficients() []float64 {
	return slices.Clone(l.coef)
}

// Intercept returns the fitted bias term.
func (l *Logistic) Intercept() float64 {
	return l.intercept
}

// Iterations reports how many Newton steps the last fit took.
func (l *Logistic) Iterations() int {
	return l.iters
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
