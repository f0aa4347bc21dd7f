package detrend

import (
	"fmt"
	"time"
)

// Options controls the detrend stage.
type Options struct {
	Degree         int
	Bandpass       bool
	FilterOrder    int
	PeriodLimitsHr [2]float64
}

// DefaultOptions fits a quadratic and band-passes 1 to 4.5 hour periods
// with a 4th order filter.
func DefaultOptions() Options {
	return Options{
		Degree:         2,
		Bandpass:       true,
		FilterOrder:    4,
		PeriodLimitsHr: [2]float64{1, 4.5},
	}
}

// Result is the output of Apply. Filtered is nil when band-passing is
// disabled. Signal is what should be fitted: Filtered when present,
// Detrended otherwise.
type Result struct {
	Poly      *Polynomial
	Baseline  []float64
	Detrended []float64
	Filtered  []float64
	Signal    []float64
}

// BandEdgesHz converts period limits in hours to band edges in Hz. The
// longest period gives the lower edge.
func BandEdgesHz(periodLimitsHr [2]float64) (low, high float64) {
	return 1 / (periodLimitsHr[1] * 3600), 1 / (periodLimitsHr[0] * 3600)
}

// Apply fits the polynomial baseline to (t, y), subtracts it and, if
// enabled, band-passes the residual. t is in seconds and cadence is the
// sampling period of y.
func Apply(t, y []float64, cadence time.Duration, opts Options) (*Result, error) {
	p, err := PolyFit(t, y, opts.Degree)
	if err != nil {
		return nil, err
	}

	r := &Result{Poly: p, Baseline: p.Eval(t)}
	r.Detrended = make([]float64, len(y))
	for i := range y {
		r.Detrended[i] = y[i] - r.Baseline[i]
	}
	r.Signal = r.Detrended

	if !opts.Bandpass {
		return r, nil
	}
	if cadence <= 0 {
		return nil, fmt.Errorf("detrend: sampling period must be positive, got %v", cadence)
	}

	low, high := BandEdgesHz(opts.PeriodLimitsHr)
	b, a, err := Bandpass(opts.FilterOrder, low, high, 1/cadence.Seconds())
	if err != nil {
		return nil, fmt.Errorf("detrend: %w", err)
	}
	r.Filtered, err = FiltFilt(b, a, r.Detrended)
	if err != nil {
		return nil, fmt.Errorf("detrend: %w", err)
	}
	r.Signal = r.Filtered
	return r, nil
}
