package edge

import "gonum.org/v1/gonum/floats"

// ScaleKm maps fractional range-bin indices onto kilometres with
// idx/len(ranges)*ptp(ranges) + min(ranges). NaN stays NaN.
func ScaleKm(trace, rangesKm []float64) []float64 {
	out := make([]float64, len(trace))
	if len(rangesKm) == 0 {
		return out
	}
	lo := floats.Min(rangesKm)
	span := floats.Max(rangesKm) - lo
	n := float64(len(rangesKm))
	for i, idx := range trace {
		out[i] = idx/n*span + lo
	}
	return out
}
