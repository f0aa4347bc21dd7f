package sinfit

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrNoConvergence is returned when the solver runs out of iterations or
// the parameters leave the finite domain.
var ErrNoConvergence = errors.New("sinfit: least squares did not converge")

// Settings bounds the Levenberg-Marquardt solver.
type Settings struct {
	MaxIterations int
	// XTol stops when the relative parameter step falls below it.
	XTol float64
	// FTol stops when the relative cost reduction falls below it.
	FTol          float64
	InitialLambda float64
}

// DefaultSettings returns tolerances comparable to MINPACK's defaults.
func DefaultSettings() Settings {
	return Settings{
		MaxIterations: 200,
		XTol:          1.49012e-8,
		FTol:          1.49012e-8,
		InitialLambda: 1e-3,
	}
}

const maxLambda = 1e16

// LevenbergMarquardt minimises the sum of squares of the m residuals
// computed by f, starting from p0. f writes the residuals for parameters x
// into dst.
func LevenbergMarquardt(f func(dst, x []float64), m int, p0 []float64, settings Settings) ([]float64, error) {
	n := len(p0)
	p := append([]float64(nil), p0...)
	r := make([]float64, m)
	f(r, p)
	cost := floats.Dot(r, r)
	if !finite(cost) {
		return nil, ErrNoConvergence
	}

	lambda := settings.InitialLambda
	jac := mat.NewDense(m, n, nil)
	var jtj mat.SymDense
	g := mat.NewVecDense(n, nil)
	a := mat.NewDense(n, n, nil)
	step := mat.NewVecDense(n, nil)
	pNew := make([]float64, n)
	rNew := make([]float64, m)

	for iter := 0; iter < settings.MaxIterations; iter++ {
		fd.Jacobian(jac, f, p, &fd.JacobianSettings{Formula: fd.Central, OriginValue: r})
		jtj.SymOuterK(1, jac.T())
		g.MulVec(jac.T(), mat.NewVecDense(m, r))

		for {
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					a.Set(i, j, jtj.At(i, j))
				}
				d := jtj.At(i, i)
				if d == 0 {
					d = 1
				}
				a.Set(i, i, jtj.At(i, i)+lambda*d)
			}

			err := step.SolveVec(a, g)
			accepted := false
			costNew := math.Inf(1)
			if err == nil || isCondition(err) {
				for i := range p {
					pNew[i] = p[i] - step.AtVec(i)
				}
				f(rNew, pNew)
				costNew = floats.Dot(rNew, rNew)
				accepted = finite(costNew) && costNew < cost
			}

			if accepted {
				stepNorm := floats.Norm(step.RawVector().Data, 2)
				xNorm := floats.Norm(p, 2)
				reduction := cost - costNew

				copy(p, pNew)
				copy(r, rNew)
				prev := cost
				cost = costNew
				lambda = math.Max(lambda/10, 1e-12)

				if stepNorm <= settings.XTol*(xNorm+settings.XTol) || reduction <= settings.FTol*prev {
					return p, nil
				}
				break
			}

			lambda *= 10
			if lambda > maxLambda {
				// No downhill step exists at this point.
				if !allFinite(p) {
					return nil, ErrNoConvergence
				}
				return p, nil
			}
		}
	}
	return nil, ErrNoConvergence
}

func isCondition(err error) bool {
	var c mat.Condition
	return errors.As(err, &c)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if !finite(x) {
			return false
		}
	}
	return true
}
