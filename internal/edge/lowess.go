package edge

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// LowessIterations is the number of robustifying passes after the initial
// fit.
const LowessIterations = 3

// Smoother maps a trace onto a smoothed trace of the same length.
type Smoother func(trace []float64) ([]float64, error)

// LowessSmoother returns a LOWESS smoother whose neighbourhood spans window
// samples of the trace it is applied to.
func LowessSmoother(window float64) Smoother {
	return func(trace []float64) ([]float64, error) {
		if len(trace) == 0 {
			return nil, fmt.Errorf("lowess: empty trace")
		}
		x := make([]float64, len(trace))
		for i := range x {
			x[i] = float64(i)
		}
		return Lowess(trace, x, window/float64(len(trace)), LowessIterations)
	}
}

// Lowess is locally weighted linear regression. Each fitted value comes
// from a tricube-weighted line through the int(frac*n) nearest neighbours,
// followed by iterations of bisquare robustness reweighting. Pairs with a
// NaN in x or y are left out of the fit and come back as NaN.
func Lowess(y, x []float64, frac float64, iterations int) ([]float64, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("lowess: len(x)=%d != len(y)=%d", len(x), len(y))
	}

	idx := make([]int, 0, len(y))
	for i := range y {
		if !math.IsNaN(y[i]) && !math.IsNaN(x[i]) {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return nil, fmt.Errorf("lowess: no finite samples")
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })

	n := len(idx)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, j := range idx {
		xs[i], ys[i] = x[j], y[j]
	}

	k := int(frac*float64(n) + 1e-10)
	if k < 2 {
		k = 2
	}
	if k > n {
		k = n
	}

	fitted := make([]float64, n)
	robust := make([]float64, n)
	for i := range robust {
		robust[i] = 1
	}
	residuals := make([]float64, n)

	for pass := 0; pass <= iterations; pass++ {
		localFit(xs, ys, robust, k, fitted)
		if pass == iterations {
			break
		}
		for i := range residuals {
			residuals[i] = math.Abs(ys[i] - fitted[i])
		}
		s := median(residuals)
		if s <= 1e-12*math.Max(1, math.Abs(stat.Mean(ys, nil))) {
			break
		}
		for i := range robust {
			u := residuals[i] / (6 * s)
			if u < 1 {
				robust[i] = (1 - u*u) * (1 - u*u)
			} else {
				robust[i] = 0
			}
		}
	}

	out := make([]float64, len(y))
	for i := range out {
		out[i] = math.NaN()
	}
	for i, j := range idx {
		out[j] = fitted[i]
	}
	return out, nil
}

// localFit fills fitted with one weighted regression per sample. xs must be
// sorted; the window of k neighbours slides forward with i.
func localFit(xs, ys, robust []float64, k int, fitted []float64) {
	n := len(xs)
	left := 0
	weights := make([]float64, k)
	for i := 0; i < n; i++ {
		for left+k < n && xs[i]-xs[left] > xs[left+k]-xs[i] {
			left++
		}
		right := left + k
		radius := math.Max(xs[i]-xs[left], xs[right-1]-xs[i])

		sumW := 0.0
		for j := left; j < right; j++ {
			w := 1.0
			if radius > 0 {
				d := math.Abs(xs[j]-xs[i]) / radius
				if d < 1 {
					c := 1 - d*d*d
					w = c * c * c
				} else {
					w = 0
				}
			}
			weights[j-left] = w * robust[j]
			sumW += weights[j-left]
		}

		if sumW <= 0 {
			fitted[i] = ys[i]
			continue
		}
		// Rescale so the weights sum to k; the fit is unchanged and gonum's
		// weighted estimators stay away from their sum(w)-1 denominator.
		for j := range weights {
			weights[j] *= float64(k) / sumW
		}
		xw, yw := xs[left:right], ys[left:right]
		if stat.PopVariance(xw, weights) <= 1e-12*math.Max(radius*radius, 1e-300) {
			fitted[i] = stat.Mean(yw, weights)
			continue
		}
		alpha, beta := stat.LinearRegression(xw, yw, weights, false)
		fitted[i] = alpha + beta*xs[i]
	}
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return 0.5 * (sorted[n/2-1] + sorted[n/2])
}
