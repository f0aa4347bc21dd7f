package detrend

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// normalize pads b and a to a common length and divides both by a[0].
func normalize(b, a []float64) (nb, na []float64, err error) {
	if len(a) == 0 || a[0] == 0 {
		return nil, nil, fmt.Errorf("filter: leading denominator coefficient must be non-zero")
	}
	n := max(len(a), len(b))
	nb = make([]float64, n)
	na = make([]float64, n)
	for i, v := range b {
		nb[i] = v / a[0]
	}
	for i, v := range a {
		na[i] = v / a[0]
	}
	return nb, na, nil
}

// LFilter runs the direct form II transposed filter b/a over x starting from
// state zi, which must have max(len(a), len(b))-1 entries or be nil.
func LFilter(b, a, x, zi []float64) ([]float64, error) {
	b, a, err := normalize(b, a)
	if err != nil {
		return nil, err
	}
	order := len(a) - 1
	z := make([]float64, order)
	if zi != nil {
		if len(zi) != order {
			return nil, fmt.Errorf("filter: initial state has %d entries, expected %d", len(zi), order)
		}
		copy(z, zi)
	}

	y := make([]float64, len(x))
	for n, xn := range x {
		yn := b[0]*xn + valueOr(z, 0)
		for i := 0; i < order-1; i++ {
			z[i] = b[i+1]*xn + z[i+1] - a[i+1]*yn
		}
		if order > 0 {
			z[order-1] = b[order]*xn - a[order]*yn
		}
		y[n] = yn
	}
	return y, nil
}

func valueOr(z []float64, i int) float64 {
	if i < len(z) {
		return z[i]
	}
	return 0
}

// LFilterZI returns the initial state that makes the filter's step
// response start in steady state.
func LFilterZI(b, a []float64) ([]float64, error) {
	b, a, err := normalize(b, a)
	if err != nil {
		return nil, err
	}
	order := len(a) - 1
	if order == 0 {
		return nil, nil
	}

	// (I - companion(a)^T) zi = b[1:] - a[1:]*b[0]
	m := mat.NewDense(order, order, nil)
	for i := 0; i < order; i++ {
		m.Set(i, i, 1)
	}
	for i := 0; i < order; i++ {
		m.Set(i, 0, m.At(i, 0)+a[i+1])
	}
	for i := 0; i < order-1; i++ {
		m.Set(i, i+1, m.At(i, i+1)-1)
	}
	rhs := mat.NewVecDense(order, nil)
	for i := 0; i < order; i++ {
		rhs.SetVec(i, b[i+1]-a[i+1]*b[0])
	}

	var zi mat.VecDense
	if err := zi.SolveVec(m, rhs); err != nil {
		return nil, fmt.Errorf("filter: steady state: %w", err)
	}
	return append([]float64(nil), zi.RawVector().Data...), nil
}

// FiltFilt applies b/a forwards and then backwards so the output has no
// phase shift. The signal is extended by odd reflection of
// 3*max(len(a), len(b)) samples at both ends and the filter state starts
// from steady state, so x must be longer than that pad.
func FiltFilt(b, a, x []float64) ([]float64, error) {
	padlen := 3 * max(len(a), len(b))
	if len(x) <= padlen {
		return nil, fmt.Errorf("filtfilt: input length %d must be greater than pad length %d", len(x), padlen)
	}

	zi, err := LFilterZI(b, a)
	if err != nil {
		return nil, err
	}

	ext := oddExtend(x, padlen)
	y, err := LFilter(b, a, ext, scaled(zi, ext[0]))
	if err != nil {
		return nil, err
	}
	reverse(y)
	y, err = LFilter(b, a, y, scaled(zi, y[0]))
	if err != nil {
		return nil, err
	}
	reverse(y)
	return y[padlen : len(y)-padlen], nil
}

func oddExtend(x []float64, n int) []float64 {
	last := len(x) - 1
	ext := make([]float64, 0, len(x)+2*n)
	for i := n; i >= 1; i-- {
		ext = append(ext, 2*x[0]-x[i])
	}
	ext = append(ext, x...)
	for i := 1; i <= n; i++ {
		ext = append(ext, 2*x[last]-x[last-i])
	}
	return ext
}

func scaled(v []float64, s float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	for i := range v {
		out[i] = v[i] * s
	}
	return out
}

func reverse(v []float64) {
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}
