// Package stability finds the part of an edge trace that is steady enough to
// fit. Steadiness is measured with a rolling coefficient of variation.
package stability

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/hamsci/lstid-detect/internal/timeseries"
)

// ErrNoSamples is returned when the trace handed to FindWindow is empty.
var ErrNoSamples = errors.New("stability: no samples in analysis window")

// Options tunes the stability search.
type Options struct {
	RollingWindow int
	Threshold     float64
	Margin        time.Duration
}

// DefaultOptions returns a 15 sample window, a 0.05 threshold and a 30
// minute edge margin.
func DefaultOptions() Options {
	return Options{
		RollingWindow: 15,
		Threshold:     0.05,
		Margin:        30 * time.Minute,
	}
}

// RollingCV returns the rolling sample standard deviation (ddof 1) divided
// by the rolling mean, both over the trailing window samples. The first
// window-1 entries, and any window containing NaN, are NaN. A zero mean
// gives Inf or NaN; no special casing is applied.
func RollingCV(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if window < 1 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		w := values[i-window+1 : i+1]
		if hasNaN(w) {
			continue
		}
		mean, variance := stat.MeanVariance(w, nil)
		out[i] = math.Sqrt(variance) / mean
	}
	return out
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// StableMask reports cv < threshold per sample. NaN compares false.
func StableMask(cv []float64, threshold float64) []bool {
	mask := make([]bool, len(cv))
	for i, v := range cv {
		mask[i] = v < threshold
	}
	return mask
}

// Island is a maximal run of true values. End is inclusive.
type Island struct {
	Start int `json:"start" msgpack:"start"`
	End   int `json:"end" msgpack:"end"`
	Len   int `json:"len" msgpack:"len"`
}

// Islands returns every maximal run of true values in mask, in order.
func Islands(mask []bool) []Island {
	// Pad with false on both sides so runs touching either end still
	// produce a rising and a falling transition.
	ext := make([]bool, len(mask)+2)
	copy(ext[1:], mask)

	var shifts []int
	for i := 0; i+1 < len(ext); i++ {
		if ext[i] != ext[i+1] {
			shifts = append(shifts, i)
		}
	}

	islands := make([]Island, 0, len(shifts)/2)
	for i := 0; i+1 < len(shifts); i += 2 {
		start, stop := shifts[i], shifts[i+1]
		islands = append(islands, Island{Start: start, End: stop - 1, Len: stop - start})
	}
	return islands
}

// Longest returns the index of the longest island, the first one on ties,
// or -1 when there are none.
func Longest(islands []Island) int {
	best := -1
	for i, isl := range islands {
		if best < 0 || isl.Len > islands[best].Len {
			best = i
		}
	}
	return best
}

// Window is the interval selected for fitting. Samples with
// Start <= t < End are used.
type Window struct {
	Start    time.Time `json:"start" msgpack:"start"`
	End      time.Time `json:"end" msgpack:"end"`
	Island   *Island   `json:"island,omitempty" msgpack:"island,omitempty"`
	Fallback bool      `json:"fallback" msgpack:"fallback"`
}

// Analysis holds the stability metric alongside the chosen window.
type Analysis struct {
	CV      timeseries.Series
	Stable  []bool
	Islands []Island
	Window  Window
}

// FindWindow computes the rolling CV of trace, takes the longest stable run
// and clamps it to lie at least opts.Margin inside [innerStart, innerEnd].
// When no sample is stable, or clamping leaves an empty interval, the
// clamped inner window itself is used and Window.Fallback is set.
func FindWindow(trace timeseries.Series, innerStart, innerEnd time.Time, opts Options) (*Analysis, error) {
	if trace.Len() == 0 {
		return nil, ErrNoSamples
	}

	cv := RollingCV(trace.Values, opts.RollingWindow)
	a := &Analysis{
		CV:     timeseries.Series{Times: append([]time.Time(nil), trace.Times...), Values: cv},
		Stable: StableMask(cv, opts.Threshold),
	}
	a.Islands = Islands(a.Stable)

	lo := innerStart.Add(opts.Margin)
	hi := innerEnd.Add(-opts.Margin)

	if i := Longest(a.Islands); i >= 0 {
		isl := a.Islands[i]
		start, end := trace.Times[isl.Start], trace.Times[isl.End]
		if start.Before(lo) {
			start = lo
		}
		if end.After(hi) {
			end = hi
		}
		if start.Before(end) {
			a.Window = Window{Start: start, End: end, Island: &isl}
			return a, nil
		}
	}

	a.Window = Window{Start: lo, End: hi, Fallback: true}
	return a, nil
}
