// Package sinfit fits a drifting sinusoid to a detrended edge trace and
// classifies the best fit against acceptance criteria.
package sinfit

import (
	"fmt"
	"math"
)

// Parameter names as they appear in results and criteria.
const (
	KeyPeriod    = "T_hr"
	KeyAmplitude = "amplitude_km"
	KeyPhase     = "phase_hr"
	KeyOffset    = "offset_km"
	KeySlope     = "slope_kmph"
	KeyR2        = "r2"
)

// Params describes value(t) = |A| sin(2πt/T + 2π·phase/T) + slope·t + offset
// with t in seconds, T and phase in hours, A and offset in km and slope in
// km per hour.
type Params struct {
	THr         float64 `json:"T_hr" msgpack:"T_hr"`
	AmplitudeKm float64 `json:"amplitude_km" msgpack:"amplitude_km"`
	PhaseHr     float64 `json:"phase_hr" msgpack:"phase_hr"`
	OffsetKm    float64 `json:"offset_km" msgpack:"offset_km"`
	SlopeKmph   float64 `json:"slope_kmph" msgpack:"slope_kmph"`
}

func (p Params) vector() []float64 {
	return []float64{p.THr, p.AmplitudeKm, p.PhaseHr, p.OffsetKm, p.SlopeKmph}
}

func paramsFrom(v []float64) Params {
	return Params{THr: v[0], AmplitudeKm: v[1], PhaseHr: v[2], OffsetKm: v[3], SlopeKmph: v[4]}
}

// Value returns the named parameter.
func (p Params) Value(key string) (float64, error) {
	switch key {
	case KeyPeriod:
		return p.THr, nil
	case KeyAmplitude:
		return p.AmplitudeKm, nil
	case KeyPhase:
		return p.PhaseHr, nil
	case KeyOffset:
		return p.OffsetKm, nil
	case KeySlope:
		return p.SlopeKmph, nil
	}
	return 0, fmt.Errorf("unknown sinusoid parameter %q", key)
}

// Sinusoid evaluates the model at tSec seconds.
func Sinusoid(tSec float64, p Params) float64 {
	phaseRad := 2 * math.Pi * p.PhaseHr / p.THr
	freq := 1 / (p.THr * 3600)
	return math.Abs(p.AmplitudeKm)*math.Sin(2*math.Pi*tSec*freq+phaseRad) + p.SlopeKmph/3600*tSec + p.OffsetKm
}

// Eval evaluates the model at every t.
func Eval(t []float64, p Params) []float64 {
	out := make([]float64, len(t))
	for i := range t {
		out[i] = Sinusoid(t[i], p)
	}
	return out
}
