package edge

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// SmoothRemoveDeviation smooths trace, drops every point whose absolute
// deviation from the smoothed value is not below maxAbsDev (missing points
// are always dropped), and fits a cubic spline through the smoothed values
// that remain. The spline is evaluated on every index, so the result has no
// gaps.
func SmoothRemoveDeviation(trace []float64, smooth Smoother, maxAbsDev float64) ([]float64, error) {
	z, err := smooth(trace)
	if err != nil {
		return nil, err
	}
	if len(z) != len(trace) {
		return nil, fmt.Errorf("expected lengths of trace and smoothed trace to match: %d, %d", len(trace), len(z))
	}

	var xs, ys []float64
	for i := range trace {
		if math.Abs(trace[i]-z[i]) < maxAbsDev {
			xs = append(xs, float64(i))
			ys = append(ys, z[i])
		}
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("no samples within %.1f of the smoothed trace", maxAbsDev)
	}

	spline, err := fitSpline(xs, ys)
	if err != nil {
		return nil, fmt.Errorf("failed to fit spline through %d samples: %w", len(xs), err)
	}
	out := make([]float64, len(trace))
	for i := range out {
		out[i] = spline.Predict(float64(i))
	}
	return out, nil
}

type constant float64

func (c constant) Predict(float64) float64 { return float64(c) }

// fitSpline uses a not-a-knot cubic when there are enough knots and falls
// back to linear or constant interpolation below that. xs must be strictly
// increasing. An ill-conditioned spline system is accepted.
func fitSpline(xs, ys []float64) (interp.Predictor, error) {
	if len(xs) == 0 || len(xs) != len(ys) {
		return nil, fmt.Errorf("need matching non-empty knots, got %d x and %d y", len(xs), len(ys))
	}
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return nil, fmt.Errorf("knots must be strictly increasing: x[%d]=%g after %g", i, xs[i], xs[i-1])
		}
	}

	switch {
	case len(xs) >= 4:
		var s interp.NotAKnotCubic
		var cond mat.Condition
		if err := s.Fit(xs, ys); err != nil && !errors.As(err, &cond) {
			return nil, err
		}
		return &s, nil
	case len(xs) >= 2:
		var pl interp.PiecewiseLinear
		if err := pl.Fit(xs, ys); err != nil {
			return nil, err
		}
		return &pl, nil
	default:
		return constant(ys[0]), nil
	}
}

// Selection is the canonical edge picked among the quantile candidates.
type Selection struct {
	Index     int
	Raw       []float64
	Corrected []float64
	Deviation float64
}

// SelectMinDeviation runs SmoothRemoveDeviation on every trace and keeps
// the one whose raw values deviate least from the corrected values, measured
// as the population standard deviation over non-missing samples. Ties keep
// the earlier trace. A trace that cannot be smoothed is skipped; if none can
// be, the first error is returned.
func SelectMinDeviation(traces [][]float64, smooth Smoother, maxAbsDev float64) (*Selection, error) {
	var best *Selection
	var firstErr error
	for i, trace := range traces {
		z, err := SmoothRemoveDeviation(trace, smooth, maxAbsDev)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("candidate %d: %w", i, err)
			}
			continue
		}
		dev := residualStdDev(trace, z)
		if best == nil || dev < best.Deviation || math.IsNaN(best.Deviation) {
			best = &Selection{Index: i, Raw: trace, Corrected: z, Deviation: dev}
		}
	}
	if best == nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("no candidate traces")
		}
		return nil, firstErr
	}
	return best, nil
}

func residualStdDev(raw, corrected []float64) float64 {
	diff := make([]float64, 0, len(raw))
	for i := range raw {
		if d := raw[i] - corrected[i]; !math.IsNaN(d) {
			diff = append(diff, d)
		}
	}
	if len(diff) == 0 {
		return math.NaN()
	}
	_, variance := stat.PopMeanVariance(diff, nil)
	return math.Sqrt(variance)
}
