// Package detrend removes the slow baseline from an edge trace and optionally
// band-limits what is left to the periods of interest.
package detrend

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Polynomial is a least-squares polynomial fit. Coefs are ordered from the
// constant term up.
type Polynomial struct {
	Coefs []float64 `json:"coefs" msgpack:"coefs"`
	SSRes float64   `json:"ss_res" msgpack:"ss_res"`
	R2    float64   `json:"r2" msgpack:"r2"`
}

// PolyFit fits a polynomial of degree deg to (x, y) by QR least squares.
// Vandermonde columns are scaled to unit maximum before factorizing since x
// is usually seconds of day and x^2 is then of order 1e9.
func PolyFit(x, y []float64, deg int) (*Polynomial, error) {
	n := len(x)
	if n != len(y) {
		return nil, fmt.Errorf("polyfit: len(x)=%d != len(y)=%d", n, len(y))
	}
	if deg < 0 {
		return nil, fmt.Errorf("polyfit: negative degree %d", deg)
	}
	if n < deg+1 {
		return nil, fmt.Errorf("polyfit: %d samples are not enough for degree %d", n, deg)
	}

	X := mat.NewDense(n, deg+1, nil)
	scale := make([]float64, deg+1)
	for j := 0; j <= deg; j++ {
		for i := 0; i < n; i++ {
			v := math.Pow(x[i], float64(j))
			X.Set(i, j, v)
			scale[j] = math.Max(scale[j], math.Abs(v))
		}
		if scale[j] == 0 {
			scale[j] = 1
		}
		for i := 0; i < n; i++ {
			X.Set(i, j, X.At(i, j)/scale[j])
		}
	}

	var qr mat.QR
	qr.Factorize(X)

	coeffs := mat.NewVecDense(deg+1, nil)
	if err := qr.SolveVecTo(coeffs, false, mat.NewVecDense(n, append([]float64(nil), y...))); err != nil {
		return nil, fmt.Errorf("polyfit: %w", err)
	}

	p := &Polynomial{Coefs: make([]float64, deg+1)}
	for j := range p.Coefs {
		p.Coefs[j] = coeffs.AtVec(j) / scale[j]
	}

	fit := p.Eval(x)
	for i := range y {
		r := y[i] - fit[i]
		p.SSRes += r * r
	}
	p.R2 = stat.RSquaredFrom(fit, y, nil)
	return p, nil
}

// PolyVal evaluates the polynomial with coefficients coefs (constant term
// first) at x.
func PolyVal(coefs []float64, x float64) float64 {
	v := 0.0
	for j := len(coefs) - 1; j >= 0; j-- {
		v = v*x + coefs[j]
	}
	return v
}

// Eval evaluates p at every x.
func (p *Polynomial) Eval(x []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = PolyVal(p.Coefs, x[i])
	}
	return out
}

// Params returns the coefficients keyed c_0, c_1, ... plus r2.
func (p *Polynomial) Params() map[string]float64 {
	params := make(map[string]float64, len(p.Coefs)+1)
	for j, c := range p.Coefs {
		params[fmt.Sprintf("c_%d", j)] = c
	}
	params["r2"] = p.R2
	return params
}
